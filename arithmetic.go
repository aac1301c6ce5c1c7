// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Op names an arithmetic operation. The names double as job operation codes
// and HTTP operation names.
type Op string

const (
	OpAdd              Op = "add"
	OpSubtract         Op = "subtract"
	OpMultiply         Op = "multiply"
	OpNegate           Op = "negate"
	OpAddConstant      Op = "add_constant"
	OpSubtractConstant Op = "subtract_constant"
	OpMultiplyConstant Op = "multiply_constant"
	OpRefresh          Op = "refresh"
)

// Cost returns the noise cost of op.
func (op Op) Cost() float64 {
	switch op {
	case OpAdd, OpAddConstant:
		return CostAdd
	case OpSubtract, OpSubtractConstant:
		return CostSubtract
	case OpMultiply, OpMultiplyConstant:
		return CostMultiply
	case OpNegate:
		return CostNegate
	default:
		return 0
	}
}

// ArithmeticStats are the running counters of an ArithmeticEngine.
type ArithmeticStats struct {
	Operations              uint64
	TotalTime               time.Duration
	AverageTime             time.Duration
	AverageNoiseConsumption float64
	ValidationFailures      uint64
	Refreshes               uint64
	PerOperation            map[Op]uint64
}

// ArithmeticEngine performs homomorphic arithmetic on values of one context.
// It holds no per-call state and is safe for concurrent use on distinct
// values.
type ArithmeticEngine struct {
	ctx *Context

	mu    sync.Mutex
	stats ArithmeticStats
}

// NewArithmeticEngine creates an engine bound to ctx.
func NewArithmeticEngine(ctx *Context) (*ArithmeticEngine, error) {
	if err := ctx.ready(); err != nil {
		return nil, err
	}
	return &ArithmeticEngine{
		ctx:   ctx,
		stats: ArithmeticStats{PerOperation: make(map[Op]uint64)},
	}, nil
}

// Context returns the engine's encryption context.
func (e *ArithmeticEngine) Context() *Context {
	return e.ctx
}

// ========== Single values ==========

// Add returns a + b.
func (e *ArithmeticEngine) Add(a, b *EncryptedInt) (*EncryptedInt, error) {
	return e.binary(OpAdd, a, b, e.ctx.Add)
}

// Subtract returns a - b.
func (e *ArithmeticEngine) Subtract(a, b *EncryptedInt) (*EncryptedInt, error) {
	return e.binary(OpSubtract, a, b, e.ctx.Subtract)
}

// Multiply returns a * b.
func (e *ArithmeticEngine) Multiply(a, b *EncryptedInt) (*EncryptedInt, error) {
	return e.binary(OpMultiply, a, b, e.ctx.Multiply)
}

// Negate returns -a.
func (e *ArithmeticEngine) Negate(a *EncryptedInt) (*EncryptedInt, error) {
	if err := e.validate(OpNegate, a); err != nil {
		return nil, err
	}

	start := time.Now()
	ctA, _, budA := a.snapshot()
	ct, err := e.ctx.Negate(ctA)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpNegate, err)
	}

	budget := resultBudget(CostNegate, budA)
	e.record(OpNegate, time.Since(start), budA.Current-budget.Current)
	return &EncryptedInt{ct: ct, ctx: e.ctx, budget: budget}, nil
}

// AddConstant encrypts k and adds it, paying the same cost as Add.
func (e *ArithmeticEngine) AddConstant(a *EncryptedInt, k int64) (*EncryptedInt, error) {
	c, err := NewEncryptedInt(e.ctx, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpAddConstant, err)
	}
	return e.Add(a, c)
}

// SubtractConstant encrypts k and subtracts it.
func (e *ArithmeticEngine) SubtractConstant(a *EncryptedInt, k int64) (*EncryptedInt, error) {
	c, err := NewEncryptedInt(e.ctx, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpSubtractConstant, err)
	}
	return e.Subtract(a, c)
}

// MultiplyConstant encrypts k and multiplies by it, paying the same cost as
// Multiply.
func (e *ArithmeticEngine) MultiplyConstant(a *EncryptedInt, k int64) (*EncryptedInt, error) {
	c, err := NewEncryptedInt(e.ctx, k)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpMultiplyConstant, err)
	}
	return e.Multiply(a, c)
}

// Refresh refreshes v in place and counts it.
func (e *ArithmeticEngine) Refresh(v *EncryptedInt) error {
	if err := e.validate(OpRefresh, v); err != nil {
		return err
	}
	if err := v.Refresh(); err != nil {
		return err
	}
	e.mu.Lock()
	e.stats.Refreshes++
	e.mu.Unlock()
	return nil
}

// refreshIfNeeded refreshes v in place when it needs a refresh and returns it.
func (e *ArithmeticEngine) refreshIfNeeded(v *EncryptedInt) (*EncryptedInt, error) {
	if !v.NeedsRefresh() {
		return v, nil
	}
	if err := e.Refresh(v); err != nil {
		return nil, err
	}
	return v, nil
}

// freshEnough returns v, or a refreshed copy when v needs a refresh. v itself
// is never modified.
func (e *ArithmeticEngine) freshEnough(v *EncryptedInt) (*EncryptedInt, error) {
	if !v.NeedsRefresh() {
		return v, nil
	}
	return e.refreshIfNeeded(v.Clone())
}

// ========== Batches ==========

// AddBatch returns the slot-wise sum.
func (e *ArithmeticEngine) AddBatch(a, b *EncryptedBatch) (*EncryptedBatch, error) {
	return e.binaryBatch(OpAdd, a, b, e.ctx.Add)
}

// SubtractBatch returns the slot-wise difference.
func (e *ArithmeticEngine) SubtractBatch(a, b *EncryptedBatch) (*EncryptedBatch, error) {
	return e.binaryBatch(OpSubtract, a, b, e.ctx.Subtract)
}

// MultiplyBatch returns the slot-wise product.
func (e *ArithmeticEngine) MultiplyBatch(a, b *EncryptedBatch) (*EncryptedBatch, error) {
	return e.binaryBatch(OpMultiply, a, b, e.ctx.Multiply)
}

// NegateBatch multiplies every slot by an encrypted batch of -1.
func (e *ArithmeticEngine) NegateBatch(a *EncryptedBatch) (*EncryptedBatch, error) {
	if !a.IsValid() {
		e.failValidation()
		return nil, fmt.Errorf("%s: %w", OpNegate, ErrInvalidOperand)
	}
	ones := make([]int64, a.Len())
	for i := range ones {
		ones[i] = -1
	}
	minusOne, err := NewEncryptedBatch(e.ctx, ones)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", OpNegate, err)
	}
	return e.MultiplyBatch(a, minusOne)
}

// ========== Statistics ==========

// Statistics returns a copy of the running counters.
func (e *ArithmeticEngine) Statistics() ArithmeticStats {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := e.stats
	s.PerOperation = make(map[Op]uint64, len(e.stats.PerOperation))
	for k, v := range e.stats.PerOperation {
		s.PerOperation[k] = v
	}
	return s
}

// ResetStatistics zeroes every counter.
func (e *ArithmeticEngine) ResetStatistics() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats = ArithmeticStats{PerOperation: make(map[Op]uint64)}
}

func (e *ArithmeticEngine) record(op Op, elapsed time.Duration, consumed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := &e.stats
	s.Operations++
	s.PerOperation[op]++
	s.TotalTime += elapsed
	s.AverageTime = s.TotalTime / time.Duration(s.Operations)
	s.AverageNoiseConsumption += (consumed - s.AverageNoiseConsumption) / float64(s.Operations)
}

func (e *ArithmeticEngine) failValidation() {
	e.mu.Lock()
	e.stats.ValidationFailures++
	e.mu.Unlock()
}

// ========== Internals ==========

type primitive func(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error)

// validate checks every operand before any primitive runs.
func (e *ArithmeticEngine) validate(op Op, operands ...*EncryptedInt) error {
	for i, v := range operands {
		if !v.IsValid() {
			e.failValidation()
			return fmt.Errorf("%s: %w: operand %d", op, ErrInvalidOperand, i)
		}
		if v.Context() != e.ctx {
			e.failValidation()
			return fmt.Errorf("%s: %w: operand %d", op, ErrContextMismatch, i)
		}
	}
	return nil
}

func (e *ArithmeticEngine) binary(op Op, a, b *EncryptedInt, prim primitive) (*EncryptedInt, error) {
	if err := e.validate(op, a, b); err != nil {
		return nil, err
	}

	start := time.Now()
	ctA, _, budA := a.snapshot()
	ctB, _, budB := b.snapshot()

	ct, err := prim(ctA, ctB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	budget := resultBudget(op.Cost(), budA, budB)
	e.record(op, time.Since(start), math.Min(budA.Current, budB.Current)-budget.Current)
	return &EncryptedInt{ct: ct, ctx: e.ctx, budget: budget}, nil
}

func (e *ArithmeticEngine) binaryBatch(op Op, a, b *EncryptedBatch, prim primitive) (*EncryptedBatch, error) {
	if !a.IsValid() || !b.IsValid() {
		e.failValidation()
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidOperand)
	}
	if a.Context() != e.ctx || b.Context() != e.ctx {
		e.failValidation()
		return nil, fmt.Errorf("%s: %w", op, ErrContextMismatch)
	}

	start := time.Now()
	ctA, _, lenA, budA := a.snapshot()
	ctB, _, lenB, budB := b.snapshot()
	if lenA != lenB {
		e.failValidation()
		return nil, fmt.Errorf("%s: %w: %d vs %d", op, ErrLengthMismatch, lenA, lenB)
	}

	ct, err := prim(ctA, ctB)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	budget := resultBudget(op.Cost(), budA, budB)
	e.record(op, time.Since(start), math.Min(budA.Current, budB.Current)-budget.Current)
	return &EncryptedBatch{ct: ct, ctx: e.ctx, length: lenA, budget: budget}, nil
}
