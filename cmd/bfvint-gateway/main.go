// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command bfvint-gateway accepts encoded encrypted values and enqueues jobs
// over them for bfvint-worker.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/queue"
	"github.com/luxfi/bfvint/internal/storage"
	"github.com/luxfi/bfvint/internal/worker"
)

const maxValueBytes = 16 << 20

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		redisAddr    = flag.String("redis", "localhost:6379", "Redis address")
		redisDB      = flag.Int("redis-db", 0, "Redis database number")
		queueName    = flag.String("queue", "default", "queue name")
		storagePath  = flag.String("storage", "/tmp/bfvint-storage", "ciphertext storage path")
		redisStorage = flag.Bool("redis-storage", false, "keep values in Redis instead of -storage")
		valueTTL     = flag.Duration("value-ttl", 24*time.Hour, "expiry of values kept in Redis")
		httpAddr     = flag.String("http", ":8080", "HTTP API address")
	)
	flag.Parse()

	log.Printf("bfvint gateway starting...")
	log.Printf("  Redis: %s", *redisAddr)
	if *redisStorage {
		log.Printf("  Storage: redis (ttl %s)", *valueTTL)
	} else {
		log.Printf("  Storage: %s", *storagePath)
	}
	log.Printf("  HTTP: %s", *httpAddr)

	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	var store storage.Storage
	if *redisStorage {
		store, err = storage.NewRedisStorage(storage.RedisConfig{
			Addr: *redisAddr,
			DB:   *redisDB,
			TTL:  *valueTTL,
		})
	} else {
		store, err = storage.NewFileStorage(*storagePath)
	}
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server := &http.Server{
		Addr:         *httpAddr,
		Handler:      newHandler(q, store),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server starting on %s", *httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

// JobRequest describes a job over stored values.
type JobRequest struct {
	Operation string `json:"operation"`
	LHS       string `json:"lhs"`
	RHS       string `json:"rhs,omitempty"`
	Cond      string `json:"cond,omitempty"`
	Constant  int64  `json:"constant,omitempty"`
}

type gateway struct {
	queue   queue.Queue
	storage storage.Storage
}

func newHandler(q queue.Queue, s storage.Storage) http.Handler {
	g := &gateway{queue: q, storage: s}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /operations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, worker.Operations())
	})
	mux.HandleFunc("POST /store", g.handleStore)
	mux.HandleFunc("GET /value/{handle}", g.handleValue)
	mux.HandleFunc("POST /job", g.handleSubmit)
	mux.HandleFunc("GET /job/{id}", g.handleJob)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func (g *gateway) handleStore(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxValueBytes))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	// The gateway holds no keys; it only checks the value framing.
	if _, err := bfvint.EncodedKind(data); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	handle, err := g.storage.Store(r.Context(), data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrStorageFull) {
			status = http.StatusInsufficientStorage
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"handle": string(handle)})
}

func (g *gateway) handleValue(w http.ResponseWriter, r *http.Request) {
	data, err := g.storage.Load(r.Context(), storage.Handle(r.PathValue("handle")))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, storage.ErrInvalidHandle):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Write(data)
}

func (g *gateway) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req JobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !worker.Supported(req.Operation) {
		http.Error(w, fmt.Sprintf("unsupported operation: %q", req.Operation), http.StatusBadRequest)
		return
	}

	for name, h := range map[string]string{"lhs": req.LHS, "rhs": req.RHS, "cond": req.Cond} {
		if h == "" && name != "lhs" {
			continue
		}
		if err := g.checkHandle(r.Context(), storage.Handle(h)); err != nil {
			http.Error(w, fmt.Sprintf("%s: %v", name, err), http.StatusBadRequest)
			return
		}
	}

	job := queue.NewJob(req.Operation, req.LHS)
	job.RHSHandle = req.RHS
	job.CondHandle = req.Cond
	job.Constant = req.Constant
	if err := g.queue.Push(r.Context(), job); err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, queue.ErrInvalidJob) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusAccepted, job)
}

func (g *gateway) checkHandle(ctx context.Context, h storage.Handle) error {
	if err := h.Validate(); err != nil {
		return err
	}
	ok, err := g.storage.Exists(ctx, h)
	if err != nil {
		return err
	}
	if !ok {
		return storage.ErrNotFound
	}
	return nil
}

func (g *gateway) handleJob(w http.ResponseWriter, r *http.Request) {
	job, err := g.queue.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, queue.ErrJobNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, http.StatusOK, job)
}
