// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command bfvint-worker evaluates queued jobs over stored encrypted integers.
//
// Keys are generated at startup and never leave the process, so clients
// encrypt through the worker's own API mounted under /api/.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/queue"
	"github.com/luxfi/bfvint/internal/storage"
	"github.com/luxfi/bfvint/internal/worker"
	"github.com/luxfi/bfvint/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		numWorkers  = flag.Int("workers", 4, "number of worker goroutines")
		redisAddr   = flag.String("redis", "localhost:6379", "Redis address")
		redisDB     = flag.Int("redis-db", 0, "Redis database number")
		queueName   = flag.String("queue", "default", "queue name")
		storagePath = flag.String("storage", "/tmp/bfvint-storage", "ciphertext storage path")
		metricsAddr = flag.String("metrics", ":9090", "metrics and API address")
		paramsName  = flag.String("params", "PN13T65537", "parameter preset")
	)
	flag.Parse()

	log.Printf("bfvint worker starting...")
	log.Printf("  Workers: %d", *numWorkers)
	log.Printf("  Redis: %s", *redisAddr)
	log.Printf("  Storage: %s", *storagePath)
	log.Printf("  Metrics: %s", *metricsAddr)

	q, err := queue.NewRedisQueue(queue.RedisConfig{
		Addr: *redisAddr,
		DB:   *redisDB,
	}, *queueName)
	if err != nil {
		return fmt.Errorf("create queue: %w", err)
	}
	defer q.Close()

	store, err := storage.NewFileStorage(*storagePath)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	lit, err := bfvint.PresetByName(*paramsName)
	if err != nil {
		return err
	}
	bctx, err := bfvint.NewContext(lit)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	defer bctx.Close()

	arith, err := bfvint.NewArithmeticEngine(bctx)
	if err != nil {
		return fmt.Errorf("create arithmetic engine: %w", err)
	}
	cmp, err := bfvint.NewComparisonEngine(arith, bfvint.DefaultComparisonConfig())
	if err != nil {
		return fmt.Errorf("create comparison engine: %w", err)
	}

	cfg := worker.DefaultConfig()
	cfg.Workers = *numWorkers
	pool := worker.NewPool(cfg, q, store, cmp)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	api, err := server.New(server.DefaultConfig(), cmp)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		depth, err := q.Len(r.Context())
		if err != nil {
			log.Printf("Queue length: %v", err)
			depth = -1
		}
		writeMetrics(w, depth, pool.Stats(), arith.Statistics(), cmp.Statistics())
	})
	mux.Handle("/api/", http.StripPrefix("/api", api.Handler()))

	httpServer := &http.Server{
		Addr:    *metricsAddr,
		Handler: mux,
	}

	go func() {
		log.Printf("Metrics server starting on %s", *metricsAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Metrics server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	log.Printf("Received signal: %s", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Metrics server shutdown error: %v", err)
	}

	if err := pool.Stop(); err != nil {
		log.Printf("Worker pool shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

// writeMetrics renders the counters in the Prometheus text format. A negative
// depth means the queue length is unknown and is left out.
func writeMetrics(w io.Writer, depth int64, ps worker.Stats, as bfvint.ArithmeticStats, cs bfvint.ComparisonStats) {
	if depth >= 0 {
		fmt.Fprintf(w, "# HELP bfvint_queue_depth Jobs waiting in the queue\n")
		fmt.Fprintf(w, "# TYPE bfvint_queue_depth gauge\n")
		fmt.Fprintf(w, "bfvint_queue_depth %d\n", depth)
	}

	fmt.Fprintf(w, "# HELP bfvint_jobs_total Jobs processed by the worker pool\n")
	fmt.Fprintf(w, "# TYPE bfvint_jobs_total counter\n")
	fmt.Fprintf(w, "bfvint_jobs_total{status=\"success\"} %d\n", ps.Succeeded)
	fmt.Fprintf(w, "bfvint_jobs_total{status=\"failure\"} %d\n", ps.Failed)

	fmt.Fprintf(w, "# HELP bfvint_jobs_by_operation_total Successful jobs per operation\n")
	fmt.Fprintf(w, "# TYPE bfvint_jobs_by_operation_total counter\n")
	ops := make([]string, 0, len(ps.PerOperation))
	for op := range ps.PerOperation {
		ops = append(ops, op)
	}
	sort.Strings(ops)
	for _, op := range ops {
		fmt.Fprintf(w, "bfvint_jobs_by_operation_total{operation=%q} %d\n", op, ps.PerOperation[op])
	}

	fmt.Fprintf(w, "# HELP bfvint_arithmetic_operations_total Homomorphic arithmetic operations\n")
	fmt.Fprintf(w, "# TYPE bfvint_arithmetic_operations_total counter\n")
	fmt.Fprintf(w, "bfvint_arithmetic_operations_total %d\n", as.Operations)
	fmt.Fprintf(w, "# TYPE bfvint_arithmetic_refreshes_total counter\n")
	fmt.Fprintf(w, "bfvint_arithmetic_refreshes_total %d\n", as.Refreshes)
	fmt.Fprintf(w, "# TYPE bfvint_validation_failures_total counter\n")
	fmt.Fprintf(w, "bfvint_validation_failures_total{engine=\"arithmetic\"} %d\n", as.ValidationFailures)
	fmt.Fprintf(w, "bfvint_validation_failures_total{engine=\"comparison\"} %d\n", cs.ValidationFailures)

	fmt.Fprintf(w, "# HELP bfvint_comparisons_total Evaluated comparisons\n")
	fmt.Fprintf(w, "# TYPE bfvint_comparisons_total counter\n")
	fmt.Fprintf(w, "bfvint_comparisons_total %d\n", cs.Comparisons)
	fmt.Fprintf(w, "# TYPE bfvint_conditional_selects_total counter\n")
	fmt.Fprintf(w, "bfvint_conditional_selects_total %d\n", cs.ConditionalSelects)
	fmt.Fprintf(w, "# TYPE bfvint_comparison_cache_total counter\n")
	fmt.Fprintf(w, "bfvint_comparison_cache_total{result=\"hit\"} %d\n", cs.CacheHits)
	fmt.Fprintf(w, "bfvint_comparison_cache_total{result=\"miss\"} %d\n", cs.CacheMisses)
	fmt.Fprintf(w, "# TYPE bfvint_comparison_seconds_avg gauge\n")
	fmt.Fprintf(w, "bfvint_comparison_seconds_avg %g\n", cs.AverageComparisonTime.Seconds())
	fmt.Fprintf(w, "# TYPE bfvint_noise_consumption_avg gauge\n")
	fmt.Fprintf(w, "bfvint_noise_consumption_avg{engine=\"arithmetic\"} %g\n", as.AverageNoiseConsumption)
	fmt.Fprintf(w, "bfvint_noise_consumption_avg{engine=\"comparison\"} %g\n", cs.AverageNoiseConsumption)
}
