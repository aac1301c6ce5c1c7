// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package worker evaluates queued jobs over stored encrypted integers.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/queue"
	"github.com/luxfi/bfvint/internal/storage"
)

// Operations beyond the arithmetic and comparison names.
const (
	OpMin               = "min"
	OpMax               = "max"
	OpAbs               = "abs"
	OpSign              = "sign"
	OpConditionalSelect = "conditional_select"
)

var (
	ErrAlreadyRunning  = errors.New("pool already running")
	ErrShutdownTimeout = errors.New("shutdown timeout")
)

// Config tunes a Pool.
type Config struct {
	Workers int
	// RetryDelay is the pause after a failed Pop.
	RetryDelay time.Duration
	// ShutdownTimeout bounds Stop.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns four workers with a one second retry delay.
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		RetryDelay:      time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Stats counts processed jobs.
type Stats struct {
	Workers      int              `json:"workers"`
	Running      bool             `json:"running"`
	Succeeded    int64            `json:"succeeded"`
	Failed       int64            `json:"failed"`
	PerOperation map[string]int64 `json:"per_operation"`
}

// Pool pops jobs from a queue, evaluates them with the engines and stores
// the results.
type Pool struct {
	cfg     Config
	queue   queue.Queue
	storage storage.Storage
	cmp     *bfvint.ComparisonEngine

	wg      sync.WaitGroup
	cancel  context.CancelFunc
	running atomic.Bool

	successCount atomic.Int64
	failureCount atomic.Int64

	mu    sync.Mutex
	perOp map[string]int64
}

// NewPool creates a pool evaluating with cmp and its arithmetic engine.
func NewPool(cfg Config, q queue.Queue, s storage.Storage, cmp *bfvint.ComparisonEngine) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultConfig().ShutdownTimeout
	}
	return &Pool{
		cfg:     cfg,
		queue:   q,
		storage: s,
		cmp:     cmp,
		perOp:   make(map[string]int64),
	}
}

// Start launches the workers. They run until Stop or until ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, p.cancel = context.WithCancel(ctx)
	log.Printf("Starting %d workers", p.cfg.Workers)

	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	return nil
}

// Stop cancels the workers and waits for in-flight jobs.
func (p *Pool) Stop() error {
	if !p.running.Load() {
		return nil
	}

	log.Println("Stopping worker pool...")
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("Worker pool stopped")
	case <-time.After(p.cfg.ShutdownTimeout):
		log.Println("Shutdown timeout exceeded")
		return ErrShutdownTimeout
	}

	p.running.Store(false)
	return nil
}

// Stats returns a snapshot of the job counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	perOp := make(map[string]int64, len(p.perOp))
	for k, v := range p.perOp {
		perOp[k] = v
	}
	p.mu.Unlock()

	return Stats{
		Workers:      p.cfg.Workers,
		Running:      p.running.Load(),
		Succeeded:    p.successCount.Load(),
		Failed:       p.failureCount.Load(),
		PerOperation: perOp,
	}
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	log.Printf("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			log.Printf("Worker %d stopping", id)
			return
		default:
		}

		job, err := p.queue.Pop(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, queue.ErrQueueClosed) {
				return
			}
			log.Printf("Worker %d: failed to pop job: %v", id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.cfg.RetryDelay):
			}
			continue
		}

		p.processJob(ctx, id, job)
	}
}

func (p *Pool) processJob(ctx context.Context, workerID int, job *queue.Job) {
	log.Printf("Worker %d: processing job %s (op=%s)", workerID, job.ID, job.Operation)

	job.Start()
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to update job status: %v", workerID, err)
	}

	handle, err := p.Evaluate(ctx, job)
	if err != nil {
		job.Fail(err)
		if err := p.queue.Update(ctx, job); err != nil {
			log.Printf("Worker %d: failed to record job failure: %v", workerID, err)
		}
		p.failureCount.Add(1)
		log.Printf("Worker %d: job %s failed: %v", workerID, job.ID, err)
		return
	}

	job.Complete(string(handle))
	if err := p.queue.Update(ctx, job); err != nil {
		log.Printf("Worker %d: failed to update job result: %v", workerID, err)
	}

	p.successCount.Add(1)
	p.mu.Lock()
	p.perOp[job.Operation]++
	p.mu.Unlock()
	log.Printf("Worker %d: job %s completed", workerID, job.ID)
}

// Evaluate runs one job synchronously and stores its result.
func (p *Pool) Evaluate(ctx context.Context, job *queue.Job) (storage.Handle, error) {
	bctx := p.cmp.Arithmetic().Context()

	load := func(name, h string) (*bfvint.EncryptedInt, error) {
		if h == "" {
			return nil, fmt.Errorf("%s: missing %s handle", job.Operation, name)
		}
		v, err := storage.LoadInt(ctx, p.storage, bctx, storage.Handle(h))
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		return v, nil
	}

	lhs, err := load("lhs", job.LHSHandle)
	if err != nil {
		return "", err
	}
	rhs := func() (*bfvint.EncryptedInt, error) { return load("rhs", job.RHSHandle) }

	result, err := p.apply(job, lhs, rhs, func() (*bfvint.EncryptedInt, error) {
		return load("cond", job.CondHandle)
	})
	if err != nil {
		return "", err
	}

	handle, err := storage.StoreInt(ctx, p.storage, result)
	if err != nil {
		return "", fmt.Errorf("store result: %w", err)
	}
	return handle, nil
}

type loader func() (*bfvint.EncryptedInt, error)

func (p *Pool) apply(job *queue.Job, lhs *bfvint.EncryptedInt, rhs, cond loader) (*bfvint.EncryptedInt, error) {
	arith := p.cmp.Arithmetic()

	binary := func(f func(a, b *bfvint.EncryptedInt) (*bfvint.EncryptedInt, error)) (*bfvint.EncryptedInt, error) {
		b, err := rhs()
		if err != nil {
			return nil, err
		}
		return f(lhs, b)
	}

	switch job.Operation {
	case string(bfvint.OpAdd):
		return binary(arith.Add)
	case string(bfvint.OpSubtract):
		return binary(arith.Subtract)
	case string(bfvint.OpMultiply):
		return binary(arith.Multiply)
	case string(bfvint.OpNegate):
		return arith.Negate(lhs)
	case string(bfvint.OpAddConstant):
		return arith.AddConstant(lhs, job.Constant)
	case string(bfvint.OpSubtractConstant):
		return arith.SubtractConstant(lhs, job.Constant)
	case string(bfvint.OpMultiplyConstant):
		return arith.MultiplyConstant(lhs, job.Constant)
	case string(bfvint.OpRefresh):
		if err := arith.Refresh(lhs); err != nil {
			return nil, err
		}
		return lhs, nil
	case OpMin:
		return binary(p.cmp.Min)
	case OpMax:
		return binary(p.cmp.Max)
	case OpAbs:
		return p.cmp.Abs(lhs)
	case OpSign:
		return p.cmp.Sign(lhs)
	case OpConditionalSelect:
		c, err := cond()
		if err != nil {
			return nil, err
		}
		f, err := rhs()
		if err != nil {
			return nil, err
		}
		return p.cmp.ConditionalSelect(&bfvint.EncryptedBool{EncryptedInt: c}, lhs, f)
	}

	op, err := bfvint.ParseCompareOp(job.Operation)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", bfvint.ErrUnknownOperation, job.Operation)
	}
	var flag *bfvint.EncryptedBool
	if job.RHSHandle == "" {
		flag, err = p.cmp.CompareConstant(lhs, job.Constant, op)
	} else {
		var b *bfvint.EncryptedInt
		if b, err = rhs(); err != nil {
			return nil, err
		}
		flag, err = p.cmp.Compare(lhs, b, op)
	}
	if err != nil {
		return nil, err
	}
	return flag.Int(), nil
}

// Operations lists every job operation the pool evaluates.
func Operations() []string {
	ops := []string{
		string(bfvint.OpAdd), string(bfvint.OpSubtract), string(bfvint.OpMultiply),
		string(bfvint.OpNegate), string(bfvint.OpAddConstant), string(bfvint.OpSubtractConstant),
		string(bfvint.OpMultiplyConstant), string(bfvint.OpRefresh),
		OpMin, OpMax, OpAbs, OpSign, OpConditionalSelect,
	}
	for _, op := range bfvint.CompareOps {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)
	return ops
}

// Supported reports whether op is an operation the pool evaluates.
func Supported(op string) bool {
	for _, known := range Operations() {
		if op == known {
			return true
		}
	}
	return false
}
