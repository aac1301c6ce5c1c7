// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command bfvint-server serves the encrypted integer engines over HTTP.
//
//	bfvint-server -addr :8448 -params PN13T65537 -cache
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/luxfi/bfvint"
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
		addr         = flag.String("addr", ":8448", "HTTP server address")
		paramsName   = flag.String("params", "PN13T65537", "parameter preset")
		allowDecrypt = flag.Bool("debug-decrypt", false, "enable POST /decrypt (exposes plaintexts)")
		constantTime = flag.Duration("constant-time", 0, "pad comparison requests to this duration")
		cacheOn      = flag.Bool("cache", false, "enable the comparison cache")
		cacheSize    = flag.Int("cache-size", bfvint.DefaultCacheConfig().MaxSize, "comparison cache entries")
		cacheTTL     = flag.Duration("cache-ttl", bfvint.DefaultCacheConfig().TTL, "comparison cache TTL")
	)
	flag.Parse()

	lit, err := bfvint.PresetByName(*paramsName)
	if err != nil {
		return err
	}

	log.Printf("bfvint server starting...")
	log.Printf("  Address: %s", *addr)
	log.Printf("  Parameters: %s", *paramsName)
	log.Printf("  Decrypt endpoint: %v", *allowDecrypt)
	if *constantTime > 0 {
		log.Printf("  Constant time: %s", *constantTime)
	}

	ctx, err := bfvint.NewContext(lit)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	defer ctx.Close()

	arith, err := bfvint.NewArithmeticEngine(ctx)
	if err != nil {
		return fmt.Errorf("create arithmetic engine: %w", err)
	}
	cfg := bfvint.DefaultComparisonConfig()
	cfg.Cache = bfvint.CacheConfig{Enabled: *cacheOn, MaxSize: *cacheSize, TTL: *cacheTTL}
	cmp, err := bfvint.NewComparisonEngine(arith, cfg)
	if err != nil {
		return fmt.Errorf("create comparison engine: %w", err)
	}

	srv, err := server.New(server.Config{
		Address:      *addr,
		AllowDecrypt: *allowDecrypt,
		ConstantTime: *constantTime,
	}, cmp)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         *addr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Listening on %s", *addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %s", sig)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}
