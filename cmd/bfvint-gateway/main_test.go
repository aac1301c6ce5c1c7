// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/queue"
	"github.com/luxfi/bfvint/internal/storage"
	"github.com/luxfi/bfvint/internal/worker"
	"github.com/stretchr/testify/require"
)

func request(t *testing.T, h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, bytes.NewReader(body)))
	return rec
}

func TestGatewayEndToEnd(t *testing.T) {
	bctx, err := bfvint.NewContext(bfvint.PN10T65537Insecure)
	require.NoError(t, err)
	defer bctx.Close()

	q := queue.NewMemoryQueue(8)
	store := storage.NewMemoryStorage(0)
	h := newHandler(q, store)

	upload := func(v int64) string {
		x, err := bfvint.NewEncryptedInt(bctx, v)
		require.NoError(t, err)
		data, err := x.MarshalBinary()
		require.NoError(t, err)

		rec := request(t, h, http.MethodPost, "/store", data)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		return resp["handle"]
	}
	a, b := upload(12), upload(30)

	body, err := json.Marshal(JobRequest{Operation: "max", LHS: a, RHS: b})
	require.NoError(t, err)
	rec := request(t, h, http.MethodPost, "/job", body)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var job queue.Job
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Equal(t, queue.StatusPending, job.Status)

	arith, err := bfvint.NewArithmeticEngine(bctx)
	require.NoError(t, err)
	cmp, err := bfvint.NewComparisonEngine(arith, bfvint.DefaultComparisonConfig())
	require.NoError(t, err)
	pool := worker.NewPool(worker.Config{Workers: 1}, q, store, cmp)
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()

	require.Eventually(t, func() bool {
		got, err := q.Get(context.Background(), job.ID)
		return err == nil && got.Status.Done()
	}, 30*time.Second, 10*time.Millisecond)

	rec = request(t, h, http.MethodGet, "/job/"+job.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	require.Equal(t, queue.StatusCompleted, job.Status, job.Error)

	rec = request(t, h, http.MethodGet, "/value/"+job.ResultHandle, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	v, err := bfvint.UnmarshalEncryptedInt(bctx, rec.Body.Bytes())
	require.NoError(t, err)
	plain, err := v.Decrypt()
	require.NoError(t, err)
	require.Equal(t, int64(30), plain)
}

func TestGatewayRejects(t *testing.T) {
	h := newHandler(queue.NewMemoryQueue(8), storage.NewMemoryStorage(0))

	rec := request(t, h, http.MethodPost, "/store", []byte("not a value"))
	require.Equal(t, http.StatusBadRequest, rec.Code)

	missing := string(storage.ComputeHandle([]byte("missing")))
	for _, req := range []JobRequest{
		{Operation: "divide", LHS: missing},
		{Operation: "abs", LHS: "short"},
		{Operation: "abs", LHS: missing},
	} {
		body, err := json.Marshal(req)
		require.NoError(t, err)
		rec := request(t, h, http.MethodPost, "/job", body)
		require.Equal(t, http.StatusBadRequest, rec.Code, req)
	}

	rec = request(t, h, http.MethodGet, "/job/unknown", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = request(t, h, http.MethodGet, "/value/"+missing, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = request(t, h, http.MethodGet, "/value/zz", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, h, http.MethodGet, "/operations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ops []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ops))
	require.Contains(t, ops, "conditional_select")
}
