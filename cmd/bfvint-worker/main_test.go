// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"strings"
	"testing"

	"github.com/luxfi/bfvint"
	"github.com/luxfi/bfvint/internal/worker"
	"github.com/stretchr/testify/require"
)

func TestWriteMetrics(t *testing.T) {
	var b strings.Builder
	writeMetrics(&b, 3,
		worker.Stats{Succeeded: 7, Failed: 2, PerOperation: map[string]int64{"min": 3, "add": 4}},
		bfvint.ArithmeticStats{Operations: 11, Refreshes: 1},
		bfvint.ComparisonStats{Comparisons: 5, CacheHits: 2},
	)
	out := b.String()

	require.Contains(t, out, "bfvint_queue_depth 3\n")
	require.Contains(t, out, "bfvint_jobs_total{status=\"success\"} 7\n")
	require.Contains(t, out, "bfvint_jobs_total{status=\"failure\"} 2\n")
	require.Contains(t, out, "bfvint_arithmetic_operations_total 11\n")
	require.Contains(t, out, "bfvint_comparisons_total 5\n")
	require.Contains(t, out, "bfvint_comparison_cache_total{result=\"hit\"} 2\n")
	require.Less(t,
		strings.Index(out, `operation="add"`),
		strings.Index(out, `operation="min"`),
		"operations are sorted")

	b.Reset()
	writeMetrics(&b, -1, worker.Stats{}, bfvint.ArithmeticStats{}, bfvint.ComparisonStats{})
	require.NotContains(t, b.String(), "bfvint_queue_depth")
}
