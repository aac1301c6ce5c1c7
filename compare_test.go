// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseCompareOp(t *testing.T) {
	for _, op := range CompareOps {
		got, err := ParseCompareOp(string(op))
		require.NoError(t, err)
		require.Equal(t, op, got)
	}
	for short, want := range map[string]CompareOp{
		"gt": CompareGT, "lt": CompareLT, "ge": CompareGE,
		"le": CompareLE, "eq": CompareEQ, "ne": CompareNE,
	} {
		got, err := ParseCompareOp(short)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseCompareOp("spaceship")
	require.ErrorIs(t, err, ErrUnknownOperation)
}

func TestComparisons(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	pairs := [][2]int64{{3, 7}, {7, 3}, {5, 5}, {-4, 2}, {0, -1}, {-9, -9}}
	for _, p := range pairs {
		a, b := enc(t, ctx, p[0]), enc(t, ctx, p[1])
		for _, op := range CompareOps {
			t.Run(fmt.Sprintf("%s/%d,%d", op, p[0], p[1]), func(t *testing.T) {
				r, err := c.Compare(a, b, op)
				require.NoError(t, err)
				require.Equal(t, op.Eval(p[0], p[1]), decBool(t, r))
			})
		}
	}
}

func TestNamedComparisons(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	a, b := enc(t, ctx, 12), enc(t, ctx, 30)

	for _, tc := range []struct {
		name string
		f    func(a, b *EncryptedInt) (*EncryptedBool, error)
		want bool
	}{
		{"GreaterThan", c.GreaterThan, false},
		{"LessThan", c.LessThan, true},
		{"GreaterEqual", c.GreaterEqual, false},
		{"LessEqual", c.LessEqual, true},
		{"Equal", c.Equal, false},
		{"NotEqual", c.NotEqual, true},
	} {
		r, err := tc.f(a, b)
		require.NoError(t, err, tc.name)
		require.Equal(t, tc.want, decBool(t, r), tc.name)
	}
}

func TestCompareConstantAndSignTests(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	r, err := c.CompareConstant(enc(t, ctx, 8), 8, CompareGE)
	require.NoError(t, err)
	require.True(t, decBool(t, r))

	for _, tc := range []struct {
		v                   int64
		pos, neg, zero bool
	}{
		{5, true, false, false},
		{-5, false, true, false},
		{0, false, false, true},
	} {
		v := enc(t, ctx, tc.v)
		pos, err := c.IsPositive(v)
		require.NoError(t, err)
		neg, err := c.IsNegative(v)
		require.NoError(t, err)
		zero, err := c.IsZero(v)
		require.NoError(t, err)
		require.Equal(t, tc.pos, decBool(t, pos), "IsPositive(%d)", tc.v)
		require.Equal(t, tc.neg, decBool(t, neg), "IsNegative(%d)", tc.v)
		require.Equal(t, tc.zero, decBool(t, zero), "IsZero(%d)", tc.v)
	}
}

func TestComparisonBudget(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	r, err := c.GreaterThan(enc(t, ctx, 2), enc(t, ctx, 1))
	require.NoError(t, err)
	require.Equal(t, ctx.InitialBudget()-CostSubtract-CostSignExtraction, r.NoiseBudget().Current)

	r, err = c.LessEqual(enc(t, ctx, 2), enc(t, ctx, 1))
	require.NoError(t, err)
	require.Equal(t, ctx.InitialBudget()-2*CostSubtract-CostSignExtraction, r.NoiseBudget().Current)
}

func TestComparisonValidation(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	other, err := NewContext(PN10T65537Insecure)
	require.NoError(t, err)

	_, err = c.Equal(enc(t, ctx, 1), enc(t, other, 1))
	require.ErrorIs(t, err, ErrContextMismatch)
	_, err = c.GreaterThan(nil, enc(t, ctx, 1))
	require.ErrorIs(t, err, ErrInvalidOperand)
	_, err = c.LogicalAnd(nil, encBool(t, ctx, true))
	require.ErrorIs(t, err, ErrInvalidOperand)

	s := c.Statistics()
	require.EqualValues(t, 3, s.ValidationFailures)
	require.Zero(t, s.Comparisons)
}

func TestComparisonStatistics(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	a, b := enc(t, ctx, 4), enc(t, ctx, 9)

	_, err := c.LessThan(a, b)
	require.NoError(t, err)
	_, err = c.Min(a, b)
	require.NoError(t, err)
	_, err = c.LogicalNot(encBool(t, ctx, true))
	require.NoError(t, err)

	s := c.Statistics()
	require.EqualValues(t, 2, s.Comparisons)
	require.EqualValues(t, 1, s.ConditionalSelects)
	require.EqualValues(t, 1, s.MinMaxOps)
	require.EqualValues(t, 1, s.BooleanOps)
	require.Greater(t, s.AverageComparisonTime, time.Duration(0))
	require.Greater(t, s.AverageNoiseConsumption, 0.0)

	c.ResetStatistics()
	require.Zero(t, c.Statistics().Comparisons)
}

func TestConstantTime(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	padded := c.ConstantTime(40 * time.Millisecond)

	start := time.Now()
	r, err := padded.GreaterThan(enc(t, ctx, 3), enc(t, ctx, 1))
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
	require.True(t, decBool(t, r))

	// Nested calls are padded once.
	_, err = padded.Clamp(enc(t, ctx, 3), 0, 2)
	require.NoError(t, err)

	require.EqualValues(t, 2, c.Statistics().ConstantTimeOps, "the view shares statistics")

	_, err = c.GreaterThan(enc(t, ctx, 3), enc(t, ctx, 1))
	require.NoError(t, err)
	require.EqualValues(t, 2, c.Statistics().ConstantTimeOps, "the original engine is not padded")
}
