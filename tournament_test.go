// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTournamentScenario(t *testing.T) {
	c := testComparison(t)
	values := encAll(t, c.Arithmetic().Context(), 25, 10, 30, 5, 20)

	r, err := c.TournamentMinMax(values, false)
	require.NoError(t, err)
	require.Equal(t, int64(5), dec(t, r))

	// Five leaves need three levels; the third level starts below the
	// watermark and is refreshed.
	require.GreaterOrEqual(t, c.Statistics().Refreshes, uint64(1))
	for i, want := range []int64{25, 10, 30, 5, 20} {
		require.Equal(t, want, dec(t, values[i]), "inputs are not modified")
		require.Equal(t, values[i].NoiseBudget().Initial, values[i].NoiseBudget().Current)
	}
}

func TestTournamentShapes(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, in := range [][]int64{
		{42},
		{8, -8},
		{3, 1, 2},
		{9, 4, 7, 1, 8, 2, 6},
		{-1, -1, -1, -1},
	} {
		values := encAll(t, ctx, in...)

		lo, err := c.MinVector(values)
		require.NoError(t, err)
		require.Equal(t, slices.Min(in), dec(t, lo), "min %v", in)

		hi, err := c.MaxVector(values)
		require.NoError(t, err)
		require.Equal(t, slices.Max(in), dec(t, hi), "max %v", in)
	}

	_, err := c.TournamentMinMax(nil, true)
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestArgminArgmax(t *testing.T) {
	c := testComparison(t)
	ctx := c.Arithmetic().Context()

	for _, tc := range []struct {
		in             []int64
		argmin, argmax int64
	}{
		{[]int64{25, 10, 30, 5, 20}, 3, 2},
		{[]int64{3, 1, 1, 3}, 1, 0},
		{[]int64{7}, 0, 0},
	} {
		values := encAll(t, ctx, tc.in...)

		i, err := c.Argmin(values)
		require.NoError(t, err)
		require.Equal(t, tc.argmin, dec(t, i), "argmin %v", tc.in)

		j, err := c.Argmax(values)
		require.NoError(t, err)
		require.Equal(t, tc.argmax, dec(t, j), "argmax %v", tc.in)
	}

	_, err := c.Argmax(nil)
	require.ErrorIs(t, err, ErrEmptyInput)
}
