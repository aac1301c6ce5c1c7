// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/luxfi/bfvint"
	"github.com/stretchr/testify/require"
)

func TestSelectOperations(t *testing.T) {
	all, err := selectOperations("all")
	require.NoError(t, err)
	require.Equal(t, bfvint.BenchmarkOperations(), all)

	names, err := selectOperations("min, greater_than")
	require.NoError(t, err)
	require.Equal(t, []string{"min", "greater_than"}, names)

	_, err = selectOperations("min,teleport")
	require.ErrorIs(t, err, bfvint.ErrUnknownOperation)
}

func TestBenchmarkJSON(t *testing.T) {
	ctx, err := bfvint.NewContext(bfvint.PN10T65537Insecure)
	require.NoError(t, err)
	defer ctx.Close()
	arith, err := bfvint.NewArithmeticEngine(ctx)
	require.NoError(t, err)
	cmp, err := bfvint.NewComparisonEngine(arith, bfvint.DefaultComparisonConfig())
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, benchmark(&out, cmp, []string{"min", "abs"}, 2, true))

	dec := json.NewDecoder(&out)
	for _, want := range []string{"min", "abs"} {
		var r bfvint.BenchmarkResult
		require.NoError(t, dec.Decode(&r))
		require.Equal(t, want, r.Operation)
		require.Equal(t, 2, r.Iterations)
	}
}
