// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package server exposes the arithmetic and comparison engines over HTTP.
//
// Ciphertexts travel as the base64 of their value encoding (see
// bfvint.EncryptedInt.MarshalBinary), which is how encoding/json renders
// []byte fields.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/luxfi/bfvint"
)

// Config holds server configuration.
type Config struct {
	Address string
	// AllowDecrypt enables POST /decrypt. It exposes plaintexts to anyone
	// who can reach the server and is meant for debugging only.
	AllowDecrypt bool
	// ConstantTime pads comparison-family requests to this duration when
	// positive.
	ConstantTime time.Duration
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64
}

// DefaultConfig returns a config listening on :8448 with decryption off.
func DefaultConfig() Config {
	return Config{
		Address:      ":8448",
		MaxBodyBytes: 16 << 20,
	}
}

// Server serves the engines of one encryption context.
type Server struct {
	cfg   Config
	ctx   *bfvint.Context
	arith *bfvint.ArithmeticEngine
	cmp   *bfvint.ComparisonEngine
	start time.Time
}

// New creates a server over cmp and its arithmetic engine.
func New(cfg Config, cmp *bfvint.ComparisonEngine) (*Server, error) {
	if cmp == nil {
		return nil, errors.New("server: nil comparison engine")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	if cfg.ConstantTime > 0 {
		cmp = cmp.ConstantTime(cfg.ConstantTime)
	}
	return &Server{
		cfg:   cfg,
		ctx:   cmp.Arithmetic().Context(),
		arith: cmp.Arithmetic(),
		cmp:   cmp,
		start: time.Now(),
	}, nil
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /stats", s.handleStats)

	mux.HandleFunc("POST /encrypt", s.handleEncrypt)
	mux.HandleFunc("POST /decrypt", s.handleDecrypt)
	mux.HandleFunc("POST /evaluate", s.handleEvaluate)
	mux.HandleFunc("POST /compare", s.handleCompare)
	mux.HandleFunc("POST /select", s.handleSelect)
	mux.HandleFunc("POST /reduce", s.handleReduce)

	mux.HandleFunc("POST /cache", s.handleConfigureCache)
	mux.HandleFunc("DELETE /cache", s.handleClearCache)

	return corsMiddleware(s.limitBody(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encode response: %v", err)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

// clientErrors are failures caused by the request rather than the server.
var clientErrors = []error{
	bfvint.ErrInvalidOperand,
	bfvint.ErrContextMismatch,
	bfvint.ErrMalformedEncoding,
	bfvint.ErrUnknownOperation,
	bfvint.ErrBatchTooLarge,
	bfvint.ErrLengthMismatch,
	bfvint.ErrEmptyInput,
	bfvint.ErrNotBoolean,
}

func writeError(w http.ResponseWriter, err error) {
	for _, target := range clientErrors {
		if errors.Is(err, target) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	log.Printf("server: %v", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	info := s.ctx.Parameters()
	writeJSON(w, map[string]any{
		"status":            "ok",
		"scheme":            "bfv",
		"parameters":        info.Name,
		"security":          info.Security.String(),
		"batch_size":        info.BatchSize,
		"plaintext_modulus": info.PlaintextModulus,
		"safe_range":        s.ctx.SafeRange(),
		"decrypt_enabled":   s.cfg.AllowDecrypt,
		"uptime":            time.Since(s.start).Round(time.Second).String(),
	})
}

// StatsResponse is the body of GET /stats.
type StatsResponse struct {
	Arithmetic bfvint.ArithmeticStats `json:"arithmetic"`
	Comparison bfvint.ComparisonStats `json:"comparison"`
	Cache      bfvint.CacheStatistics `json:"cache"`
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, StatsResponse{
		Arithmetic: s.arith.Statistics(),
		Comparison: s.cmp.Statistics(),
		Cache:      s.cmp.CacheStatistics(),
	})
}

// CacheRequest configures the comparison cache.
type CacheRequest struct {
	Enabled    bool  `json:"enabled"`
	MaxSize    int   `json:"max_size"`
	TTLSeconds int64 `json:"ttl_seconds"`
}

func (s *Server) handleConfigureCache(w http.ResponseWriter, r *http.Request) {
	req := CacheRequest{
		MaxSize:    bfvint.DefaultCacheConfig().MaxSize,
		TTLSeconds: int64(bfvint.DefaultCacheConfig().TTL / time.Second),
	}
	if !decode(w, r, &req) {
		return
	}
	if req.MaxSize <= 0 || req.TTLSeconds <= 0 {
		http.Error(w, fmt.Sprintf("invalid cache config: max_size=%d ttl_seconds=%d", req.MaxSize, req.TTLSeconds), http.StatusBadRequest)
		return
	}
	s.cmp.ConfigureCache(req.Enabled, req.MaxSize, time.Duration(req.TTLSeconds)*time.Second)
	writeJSON(w, s.cmp.CacheStatistics())
}

func (s *Server) handleClearCache(w http.ResponseWriter, _ *http.Request) {
	s.cmp.ClearCache()
	writeJSON(w, s.cmp.CacheStatistics())
}
