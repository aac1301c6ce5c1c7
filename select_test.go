// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConditionalSelect(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()
	tv, fv := enc(t, ctx, 100), enc(t, ctx, -7)

	r, err := c.ConditionalSelect(encBool(t, ctx, true), tv, fv)
	require.NoError(t, err)
	require.Equal(t, int64(100), dec(t, r))
	require.Equal(t, ctx.InitialBudget()-CostConditionalSelect, r.NoiseBudget().Current)

	r, err = c.ConditionalSelect(encBool(t, ctx, false), tv, fv)
	require.NoError(t, err)
	require.Equal(t, int64(-7), dec(t, r))
}

func TestConditionalSelectRejectsNonBoolean(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	bad := &EncryptedBool{enc(t, ctx, 2)}
	_, err := c.ConditionalSelect(bad, enc(t, ctx, 1), enc(t, ctx, 0))
	require.ErrorIs(t, err, ErrNotBoolean)
	require.EqualValues(t, 1, c.Statistics().ValidationFailures)

	_, err = c.ConditionalSelect(nil, enc(t, ctx, 1), enc(t, ctx, 0))
	require.ErrorIs(t, err, ErrInvalidOperand)

	cfg := DefaultComparisonConfig()
	cfg.VerifyConditions = false
	trusting, err := NewComparisonEngine(c.Arithmetic(), cfg)
	require.NoError(t, err)
	r, err := trusting.ConditionalSelect(bad, enc(t, ctx, 1), enc(t, ctx, 0))
	require.NoError(t, err)
	// 2*1 + (1-2)*0
	require.Equal(t, int64(2), dec(t, r))
}

func TestMinMax(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, p := range [][2]int64{{3, 9}, {9, 3}, {-4, -4}, {-10, 6}} {
		a, b := enc(t, ctx, p[0]), enc(t, ctx, p[1])
		lo, err := c.Min(a, b)
		require.NoError(t, err)
		hi, err := c.Max(a, b)
		require.NoError(t, err)

		gotLo, gotHi := dec(t, lo), dec(t, hi)
		require.Equal(t, min(p[0], p[1]), gotLo)
		require.Equal(t, max(p[0], p[1]), gotHi)
		require.ElementsMatch(t, []int64{p[0], p[1]}, []int64{gotLo, gotHi})
	}
}

func TestAbsSign(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, tc := range []struct{ v, abs, sign int64 }{
		{-5, 5, -1},
		{5, 5, 1},
		{0, 0, 0},
		{-1200, 1200, -1},
	} {
		a, err := c.Abs(enc(t, ctx, tc.v))
		require.NoError(t, err)
		require.Equal(t, tc.abs, dec(t, a), "abs(%d)", tc.v)

		s, err := c.Sign(enc(t, ctx, tc.v))
		require.NoError(t, err)
		require.Equal(t, tc.sign, dec(t, s), "sign(%d)", tc.v)
	}
}

func TestInRangeAndClamp(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, tc := range []struct {
		v       int64
		inRange bool
		clamped int64
	}{
		{15, false, 10},
		{-3, false, 0},
		{0, true, 0},
		{7, true, 7},
		{10, true, 10},
	} {
		in, err := c.InRange(enc(t, ctx, tc.v), 0, 10)
		require.NoError(t, err)
		require.Equal(t, tc.inRange, decBool(t, in), "in_range(%d)", tc.v)

		cl, err := c.Clamp(enc(t, ctx, tc.v), 0, 10)
		require.NoError(t, err)
		require.Equal(t, tc.clamped, dec(t, cl), "clamp(%d)", tc.v)
	}

	_, err := c.Clamp(enc(t, ctx, 1), 5, 4)
	require.ErrorIs(t, err, ErrInvalidOperand)
}
