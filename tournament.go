// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"time"
)

// TournamentMinMax reduces values pairwise to their minimum, or maximum when
// findMax is set. Before a pair is combined, any operand whose budget is
// below RefreshRatio*RefreshWatermark is refreshed on a private copy, so the
// inputs are never modified.
func (c *ComparisonEngine) TournamentMinMax(values []*EncryptedInt, findMax bool) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.tournament(values, findMax)
}

// MinVector returns the minimum of values.
func (c *ComparisonEngine) MinVector(values []*EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.tournament(values, false)
}

// MaxVector returns the maximum of values.
func (c *ComparisonEngine) MaxVector(values []*EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.tournament(values, true)
}

// Argmin returns the encrypted index of the first minimal value.
//
// SECURITY: every input is decrypted.
func (c *ComparisonEngine) Argmin(values []*EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.argExtreme("argmin", values, func(x, best int64) bool { return x < best })
}

// Argmax returns the encrypted index of the first maximal value.
//
// SECURITY: every input is decrypted.
func (c *ComparisonEngine) Argmax(values []*EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.argExtreme("argmax", values, func(x, best int64) bool { return x > best })
}

func (c *ComparisonEngine) tournament(values []*EncryptedInt, findMax bool) (*EncryptedInt, error) {
	name := "tournament_min"
	if findMax {
		name = "tournament_max"
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}
	if err := c.validate(name, values...); err != nil {
		return nil, err
	}
	if len(values) == 1 {
		return values[0].Clone(), nil
	}

	r, err := treeReduce(values, func(a, b *EncryptedInt) (*EncryptedInt, error) {
		var err error
		if a, err = c.ensureBudget(a); err != nil {
			return nil, err
		}
		if b, err = c.ensureBudget(b); err != nil {
			return nil, err
		}
		return c.minMax(a, b, findMax)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return r, nil
}

// ensureBudget returns v, or a refreshed copy of v when its budget is below
// the tournament watermark.
func (c *ComparisonEngine) ensureBudget(v *EncryptedInt) (*EncryptedInt, error) {
	if v.NoiseBudget().Current >= c.cfg.RefreshRatio*c.cfg.RefreshWatermark {
		return v, nil
	}
	fresh := v.Clone()
	if err := fresh.Refresh(); err != nil {
		return nil, err
	}
	c.update(func(s *ComparisonStats) { s.Refreshes++ })
	return fresh, nil
}

func (c *ComparisonEngine) argExtreme(name string, values []*EncryptedInt, better func(x, best int64) bool) (*EncryptedInt, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("%s: %w", name, ErrEmptyInput)
	}
	if err := c.validate(name, values...); err != nil {
		return nil, err
	}

	idx := 0
	var best int64
	for i, v := range values {
		x, err := v.Decrypt()
		if err != nil {
			return nil, fmt.Errorf("%s: element %d: %w", name, i, err)
		}
		if i == 0 || better(x, best) {
			idx, best = i, x
		}
	}

	r, err := NewEncryptedInt(c.ctx, int64(idx))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.update(func(s *ComparisonStats) { s.MinMaxOps++ })
	return r, nil
}
