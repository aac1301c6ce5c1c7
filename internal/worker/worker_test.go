// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package worker

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/queue"
	"github.com/luxfi/bfvint/internal/storage"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	ctx   *bfvint.Context
	cmp   *bfvint.ComparisonEngine
	store *storage.MemoryStorage
	queue *queue.MemoryQueue
	pool  *Pool
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bctx, err := bfvint.NewContext(bfvint.PN10T65537Insecure)
	require.NoError(t, err)
	t.Cleanup(bctx.Close)

	arith, err := bfvint.NewArithmeticEngine(bctx)
	require.NoError(t, err)
	cmp, err := bfvint.NewComparisonEngine(arith, bfvint.DefaultComparisonConfig())
	require.NoError(t, err)

	f := &fixture{
		ctx:   bctx,
		cmp:   cmp,
		store: storage.NewMemoryStorage(0),
		queue: queue.NewMemoryQueue(64),
	}
	f.pool = NewPool(Config{Workers: 2, RetryDelay: 10 * time.Millisecond}, f.queue, f.store, cmp)
	return f
}

func (f *fixture) put(t *testing.T, v int64) string {
	t.Helper()
	x, err := bfvint.NewEncryptedInt(f.ctx, v)
	require.NoError(t, err)
	h, err := storage.StoreInt(context.Background(), f.store, x)
	require.NoError(t, err)
	return string(h)
}

func (f *fixture) get(t *testing.T, h string) int64 {
	t.Helper()
	v, err := storage.LoadInt(context.Background(), f.store, f.ctx, storage.Handle(h))
	require.NoError(t, err)
	plain, err := v.Decrypt()
	require.NoError(t, err)
	return plain
}

func TestPoolEvaluatesJobs(t *testing.T) {
	f := newFixture(t)
	a, b := f.put(t, 15), f.put(t, -4)
	one := f.put(t, 1)

	jobs := []struct {
		job  *queue.Job
		want int64
	}{
		{&queue.Job{Operation: "add", LHSHandle: a, RHSHandle: b}, 11},
		{&queue.Job{Operation: "subtract", LHSHandle: a, RHSHandle: b}, 19},
		{&queue.Job{Operation: "multiply", LHSHandle: a, RHSHandle: b}, -60},
		{&queue.Job{Operation: "negate", LHSHandle: a}, -15},
		{&queue.Job{Operation: "add_constant", LHSHandle: a, Constant: 5}, 20},
		{&queue.Job{Operation: "subtract_constant", LHSHandle: a, Constant: 5}, 10},
		{&queue.Job{Operation: "multiply_constant", LHSHandle: b, Constant: 3}, -12},
		{&queue.Job{Operation: "refresh", LHSHandle: b}, -4},
		{&queue.Job{Operation: "greater_than", LHSHandle: a, RHSHandle: b}, 1},
		{&queue.Job{Operation: "equal", LHSHandle: a, RHSHandle: b}, 0},
		{&queue.Job{Operation: "lt", LHSHandle: b, Constant: 0}, 1},
		{&queue.Job{Operation: "min", LHSHandle: a, RHSHandle: b}, -4},
		{&queue.Job{Operation: "max", LHSHandle: a, RHSHandle: b}, 15},
		{&queue.Job{Operation: "abs", LHSHandle: b}, 4},
		{&queue.Job{Operation: "sign", LHSHandle: b}, -1},
		{&queue.Job{Operation: "conditional_select", CondHandle: one, LHSHandle: a, RHSHandle: b}, 15},
	}

	ctx := context.Background()
	for _, tc := range jobs {
		require.NoError(t, f.queue.Push(ctx, tc.job))
	}

	require.NoError(t, f.pool.Start(ctx))
	require.ErrorIs(t, f.pool.Start(ctx), ErrAlreadyRunning)
	require.Eventually(t, func() bool {
		return f.pool.Stats().Succeeded == int64(len(jobs))
	}, 30*time.Second, 10*time.Millisecond)
	require.NoError(t, f.pool.Stop())

	for _, tc := range jobs {
		job, err := f.queue.Get(ctx, tc.job.ID)
		require.NoError(t, err)
		require.Equal(t, queue.StatusCompleted, job.Status, job.Operation)
		require.Equal(t, tc.want, f.get(t, job.ResultHandle), job.Operation)
	}

	stats := f.pool.Stats()
	require.False(t, stats.Running)
	require.Zero(t, stats.Failed)
	require.Equal(t, int64(1), stats.PerOperation["conditional_select"])
}

func TestPoolRecordsFailures(t *testing.T) {
	f := newFixture(t)
	a := f.put(t, 3)
	ctx := context.Background()

	jobs := []*queue.Job{
		{Operation: "teleport", LHSHandle: a},
		{Operation: "add", LHSHandle: a},
		{Operation: "abs", LHSHandle: string(storage.ComputeHandle([]byte("missing")))},
		{Operation: "conditional_select", CondHandle: a, LHSHandle: a, RHSHandle: a},
	}
	for _, job := range jobs {
		require.NoError(t, f.queue.Push(ctx, job))
	}

	require.NoError(t, f.pool.Start(ctx))
	require.Eventually(t, func() bool {
		return f.pool.Stats().Failed == int64(len(jobs))
	}, 30*time.Second, 10*time.Millisecond)
	require.NoError(t, f.pool.Stop())

	for _, job := range jobs {
		got, err := f.queue.Get(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, queue.StatusFailed, got.Status)
		require.NotEmpty(t, got.Error, job.Operation)
	}
}

func TestEvaluateSynchronously(t *testing.T) {
	f := newFixture(t)
	job := &queue.Job{Operation: "greater_equal", LHSHandle: f.put(t, 7), RHSHandle: f.put(t, 7)}

	h, err := f.pool.Evaluate(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, int64(1), f.get(t, string(h)))

	_, err = f.pool.Evaluate(context.Background(), &queue.Job{Operation: "bogus", LHSHandle: job.LHSHandle})
	require.ErrorIs(t, err, bfvint.ErrUnknownOperation)
}

func TestSupported(t *testing.T) {
	require.True(t, Supported("conditional_select"))
	require.True(t, Supported("not_equal"))
	require.True(t, Supported("multiply_constant"))
	require.False(t, Supported("divide"))
	require.Len(t, Operations(), 19)
}
