// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package queue carries deferred encrypted-integer operations between the
// gateway and the workers.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Common errors.
var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrJobNotFound = errors.New("job not found")
	ErrQueueClosed = errors.New("queue closed")
	ErrQueueFull   = errors.New("queue is full")

	ErrInvalidJob   = errors.New("invalid job")
	ErrDuplicateJob = errors.New("duplicate job id")
)

// JobTTL bounds how long a job record is kept.
const JobTTL = 24 * time.Hour

// JobStatus is the lifecycle state of a job.
type JobStatus uint8

const (
	StatusPending JobStatus = iota
	StatusProcessing
	StatusCompleted
	StatusFailed
)

func (s JobStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusProcessing:
		return "processing"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("JobStatus(%d)", uint8(s))
	}
}

// Done reports whether the job has reached a terminal state.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed
}

// MarshalText encodes the status by name, so job records read as
// "status": "completed".
func (s JobStatus) MarshalText() ([]byte, error) {
	if s > StatusFailed {
		return nil, fmt.Errorf("%w: status %d", ErrInvalidJob, uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *JobStatus) UnmarshalText(text []byte) error {
	for st := StatusPending; st <= StatusFailed; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("%w: status %q", ErrInvalidJob, text)
}

// Job is one operation over stored encrypted values. Operation uses the
// engine operation names ("add", "greater_than", "conditional_select", ...).
type Job struct {
	ID           string    `json:"id"`
	Operation    string    `json:"operation"`
	LHSHandle    string    `json:"lhs_handle"`
	RHSHandle    string    `json:"rhs_handle,omitempty"`
	CondHandle   string    `json:"cond_handle,omitempty"`
	Constant     int64     `json:"constant,omitempty"`
	ResultHandle string    `json:"result_handle,omitempty"`
	Status       JobStatus `json:"status"`
	Error        string    `json:"error,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewJob returns a pending job with a fresh ID.
func NewJob(op, lhs string) *Job {
	return &Job{ID: uuid.NewString(), Operation: op, LHSHandle: lhs}
}

// Validate checks the fields every operation needs. Operation-specific
// operands are checked by the worker.
func (j *Job) Validate() error {
	switch {
	case j == nil:
		return fmt.Errorf("%w: nil job", ErrInvalidJob)
	case j.Operation == "":
		return fmt.Errorf("%w: missing operation", ErrInvalidJob)
	case j.LHSHandle == "":
		return fmt.Errorf("%w: %s: missing lhs handle", ErrInvalidJob, j.Operation)
	}
	return nil
}

// Start marks the job as being evaluated.
func (j *Job) Start() {
	j.Status = StatusProcessing
	j.Error = ""
}

// Complete records the handle of the stored result.
func (j *Job) Complete(result string) {
	j.Status = StatusCompleted
	j.ResultHandle = result
	j.Error = ""
}

// Fail records why the job could not be evaluated.
func (j *Job) Fail(err error) {
	j.Status = StatusFailed
	j.ResultHandle = ""
	j.Error = err.Error()
}

// enqueue validates job and resets it to a fresh pending record.
func enqueue(job *Job) error {
	if err := job.Validate(); err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	job.Status = StatusPending
	job.ResultHandle = ""
	job.Error = ""
	return nil
}

// Queue defines job queue operations.
type Queue interface {
	// Push validates the job, records it as pending and enqueues it. An ID
	// that is already known fails with ErrDuplicateJob.
	Push(ctx context.Context, job *Job) error
	// Pop blocks until a job is available or ctx is done.
	Pop(ctx context.Context) (*Job, error)
	// Update stores the job's new state.
	Update(ctx context.Context, job *Job) error
	// Get retrieves a job by ID.
	Get(ctx context.Context, id string) (*Job, error)
	Close() error
}

// RedisQueue implements Queue with a Redis list of job IDs and one JSON
// record per job.
type RedisQueue struct {
	client    redis.UniversalClient
	queueKey  string
	jobPrefix string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisQueue connects to Redis and returns the queue named queueName.
func NewRedisQueue(cfg RedisConfig, queueName string) (*RedisQueue, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisQueueFromClient(client, queueName), nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(client redis.UniversalClient, queueName string) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueKey:  "bfvint:queue:" + queueName,
		jobPrefix: "bfvint:job:",
	}
}

func (q *RedisQueue) Push(ctx context.Context, job *Job) error {
	if err := enqueue(job); err != nil {
		return err
	}
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	// The record is claimed first, so an ID is never queued twice.
	created, err := q.client.SetNX(ctx, q.jobPrefix+job.ID, data, JobTTL).Result()
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	if !created {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.ID)
	}
	if err := q.client.LPush(ctx, q.queueKey, job.ID).Err(); err != nil {
		q.client.Del(ctx, q.jobPrefix+job.ID)
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Len returns the number of jobs waiting to be popped.
func (q *RedisQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return n, nil
}

func (q *RedisQueue) Pop(ctx context.Context) (*Job, error) {
	result, err := q.client.BRPop(ctx, 0, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("pop job: %w", err)
	}

	if len(result) < 2 {
		return nil, ErrQueueEmpty
	}
	return q.Get(ctx, result[1])
}

// Update overwrites an existing record; unknown or expired jobs fail with
// ErrJobNotFound.
func (q *RedisQueue) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	err = q.client.SetArgs(ctx, q.jobPrefix+job.ID, data, redis.SetArgs{Mode: "XX", TTL: JobTTL}).Err()
	if errors.Is(err, redis.Nil) {
		return ErrJobNotFound
	}
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (q *RedisQueue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, q.jobPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}
