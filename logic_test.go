// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogicTruthTables(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, a := range []bool{false, true} {
		for _, b := range []bool{false, true} {
			ea, eb := encBool(t, ctx, a), encBool(t, ctx, b)

			and, err := c.LogicalAnd(ea, eb)
			require.NoError(t, err)
			require.Equal(t, a && b, decBool(t, and), "%v AND %v", a, b)

			or, err := c.LogicalOr(ea, eb)
			require.NoError(t, err)
			require.Equal(t, a || b, decBool(t, or), "%v OR %v", a, b)

			xor, err := c.LogicalXor(ea, eb)
			require.NoError(t, err)
			require.Equal(t, a != b, decBool(t, xor), "%v XOR %v", a, b)
		}
	}
}

func TestLogicalNotInvolution(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, a := range []bool{false, true} {
		n, err := c.LogicalNot(encBool(t, ctx, a))
		require.NoError(t, err)
		require.Equal(t, !a, decBool(t, n))

		nn, err := c.LogicalNot(n)
		require.NoError(t, err)
		require.Equal(t, a, decBool(t, nn))
	}
	require.EqualValues(t, 4, c.Statistics().BooleanOps)
}
