// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"math"
	"time"
)

// ConditionalSelect returns cond*t + (1-cond)*f. With VerifyConditions set,
// cond is decrypted first and anything other than 0 or 1 is rejected.
func (c *ComparisonEngine) ConditionalSelect(cond *EncryptedBool, t, f *EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.conditionalSelect(cond, t, f)
}

// Min returns the smaller of a and b.
func (c *ComparisonEngine) Min(a, b *EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.minMax(a, b, false)
}

// Max returns the larger of a and b.
func (c *ComparisonEngine) Max(a, b *EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())
	return c.minMax(a, b, true)
}

// Abs returns |v|.
func (c *ComparisonEngine) Abs(v *EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())

	pos, err := c.compareConstant(v, 0, CompareGT)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	neg, err := c.arith.Negate(v)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	r, err := c.conditionalSelect(pos, v, neg)
	if err != nil {
		return nil, fmt.Errorf("abs: %w", err)
	}
	return r, nil
}

// Sign returns 1, -1 or 0.
func (c *ComparisonEngine) Sign(v *EncryptedInt) (*EncryptedInt, error) {
	defer c.pad(time.Now())

	pos, err := c.compareConstant(v, 0, CompareGT)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	neg, err := c.compareConstant(v, 0, CompareLT)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}

	consts := make([]*EncryptedInt, 3)
	for i, k := range []int64{1, -1, 0} {
		if consts[i], err = NewEncryptedInt(c.ctx, k); err != nil {
			return nil, fmt.Errorf("sign: %w", err)
		}
	}

	notPos, err := c.conditionalSelect(neg, consts[1], consts[2])
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	r, err := c.conditionalSelect(pos, consts[0], notPos)
	if err != nil {
		return nil, fmt.Errorf("sign: %w", err)
	}
	return r, nil
}

// InRange returns lo <= v <= hi.
func (c *ComparisonEngine) InRange(v *EncryptedInt, lo, hi int64) (*EncryptedBool, error) {
	defer c.pad(time.Now())

	ge, err := c.compareConstant(v, lo, CompareGE)
	if err != nil {
		return nil, fmt.Errorf("in_range: %w", err)
	}
	le, err := c.compareConstant(v, hi, CompareLE)
	if err != nil {
		return nil, fmt.Errorf("in_range: %w", err)
	}
	r, err := c.and(ge, le)
	if err != nil {
		return nil, fmt.Errorf("in_range: %w", err)
	}
	c.update(func(s *ComparisonStats) { s.BooleanOps++ })
	return r, nil
}

// Clamp returns min(max(v, lo), hi). lo must not exceed hi.
func (c *ComparisonEngine) Clamp(v *EncryptedInt, lo, hi int64) (*EncryptedInt, error) {
	defer c.pad(time.Now())

	if lo > hi {
		return nil, fmt.Errorf("clamp: %w: lower bound %d above upper bound %d", ErrInvalidOperand, lo, hi)
	}
	encLo, err := NewEncryptedInt(c.ctx, lo)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}
	encHi, err := NewEncryptedInt(c.ctx, hi)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}

	// With lo <= hi, max(v, lo) <= hi exactly when v <= hi, so both
	// conditions test v against a plaintext bound.
	aboveLo, err := c.compareConstant(v, lo, CompareGE)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}
	belowHi, err := c.compareConstant(v, hi, CompareLE)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}
	floor, err := c.conditionalSelect(aboveLo, v, encLo)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}
	r, err := c.conditionalSelect(belowHi, floor, encHi)
	if err != nil {
		return nil, fmt.Errorf("clamp: %w", err)
	}
	c.update(func(s *ComparisonStats) { s.MinMaxOps += 2 })
	return r, nil
}

func (c *ComparisonEngine) minMax(a, b *EncryptedInt, wantMax bool) (*EncryptedInt, error) {
	name, op := "min", CompareLE
	if wantMax {
		name, op = "max", CompareGE
	}

	cond, err := c.compare(op, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r, err := c.conditionalSelect(cond, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.update(func(s *ComparisonStats) { s.MinMaxOps++ })
	return r, nil
}

func (c *ComparisonEngine) conditionalSelect(cond *EncryptedBool, t, f *EncryptedInt) (*EncryptedInt, error) {
	const name = "conditional_select"
	if cond == nil {
		c.update(func(s *ComparisonStats) { s.ValidationFailures++ })
		return nil, fmt.Errorf("%s: %w: nil condition", name, ErrInvalidOperand)
	}
	if err := c.validate(name, cond.Int(), t, f); err != nil {
		return nil, err
	}
	if c.cfg.VerifyConditions {
		if _, err := cond.DecryptBool(); err != nil {
			c.update(func(s *ComparisonStats) { s.ValidationFailures++ })
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}

	taken, err := c.arith.Multiply(cond.Int(), t)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	notCond, err := c.not(cond)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	other, err := c.arith.Multiply(notCond.Int(), f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	r, err := c.arith.Add(taken, other)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	bc, bt, bf := cond.NoiseBudget(), t.NoiseBudget(), f.NoiseBudget()
	r.budget = resultBudget(CostConditionalSelect, bc, bt, bf)
	weakest := math.Min(bc.Current, math.Min(bt.Current, bf.Current))
	c.update(func(s *ComparisonStats) {
		s.ConditionalSelects++
		s.observeNoise(weakest - r.budget.Current)
	})
	return r, nil
}
