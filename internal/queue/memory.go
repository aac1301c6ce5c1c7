// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue for single-binary deployments and tests.
// Jobs are stored by value, so callers never share a *Job with the queue.
type MemoryQueue struct {
	pending chan string

	mu     sync.RWMutex
	jobs   map[string]Job
	closed bool
	done   chan struct{}
}

// NewMemoryQueue returns a queue holding at most capacity pending jobs.
func NewMemoryQueue(capacity int) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}
	return &MemoryQueue{
		pending: make(chan string, capacity),
		jobs:    make(map[string]Job),
		done:    make(chan struct{}),
	}
}

func (q *MemoryQueue) Push(_ context.Context, job *Job) error {
	if err := enqueue(job); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.jobs[job.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	select {
	case q.pending <- job.ID:
	default:
		return ErrQueueFull
	}
	q.jobs[job.ID] = *job
	return nil
}

func (q *MemoryQueue) Pop(ctx context.Context) (*Job, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-q.done:
		return nil, ErrQueueClosed
	case id := <-q.pending:
		return q.Get(ctx, id)
	}
}

func (q *MemoryQueue) Update(_ context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.jobs[job.ID]; !ok {
		return ErrJobNotFound
	}
	q.jobs[job.ID] = *job
	return nil
}

func (q *MemoryQueue) Get(_ context.Context, id string) (*Job, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	job, ok := q.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return &job, nil
}

// Len returns the number of jobs waiting to be popped.
func (q *MemoryQueue) Len() int {
	return len(q.pending)
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.done)
	}
	return nil
}
