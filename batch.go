// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// EncryptedBatch packs up to BatchSize integers into one ciphertext.
// Operations act slot-wise on all packed values at once.
type EncryptedBatch struct {
	mu     sync.RWMutex
	ct     *rlwe.Ciphertext
	ctx    *Context
	length int
	budget NoiseBudget
}

// NewEncryptedBatch encrypts values. It fails with ErrBatchTooLarge when
// values does not fit into one ciphertext.
func NewEncryptedBatch(ctx *Context, values []int64) (*EncryptedBatch, error) {
	ct, err := ctx.EncryptVector(values)
	if err != nil {
		return nil, fmt.Errorf("new encrypted batch: %w", err)
	}
	return &EncryptedBatch{
		ct:     ct,
		ctx:    ctx,
		length: len(values),
		budget: ctx.freshBudget(),
	}, nil
}

// NewEncryptedBatchFromCiphertext wraps a ciphertext holding length values.
func NewEncryptedBatchFromCiphertext(ctx *Context, ct *rlwe.Ciphertext, length int, budget NoiseBudget) (*EncryptedBatch, error) {
	if err := ctx.ready(); err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("%w: nil ciphertext", ErrInvalidOperand)
	}
	if length < 0 || length > ctx.Parameters().BatchSize {
		return nil, fmt.Errorf("%w: length %d", ErrBatchTooLarge, length)
	}
	return &EncryptedBatch{ct: ct, ctx: ctx, length: length, budget: budget}, nil
}

// Len returns the logical number of packed values.
func (b *EncryptedBatch) Len() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.length
}

// Context returns the encryption context the batch belongs to.
func (b *EncryptedBatch) Context() *Context {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ctx
}

// Decrypt returns exactly Len values.
func (b *EncryptedBatch) Decrypt() ([]int64, error) {
	if b == nil {
		return nil, fmt.Errorf("decrypt batch: %w: nil value", ErrInvalidOperand)
	}
	ct, ctx, length, _ := b.snapshot()
	return ctx.DecryptVector(ct, length)
}

// IsValid reports whether the batch has a live context, a well-formed
// ciphertext and a length within capacity.
func (b *EncryptedBatch) IsValid() bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.ctx.ready() != nil || b.ct == nil || b.ct.Degree() != 1 {
		return false
	}
	return b.length >= 0 && b.length <= b.ctx.Parameters().BatchSize
}

// NoiseBudget returns a copy of the current budget.
func (b *EncryptedBatch) NoiseBudget() NoiseBudget {
	if b == nil {
		return NoiseBudget{}
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.budget
}

// NeedsRefresh reports whether the budget is below its critical threshold.
func (b *EncryptedBatch) NeedsRefresh() bool {
	return b.NoiseBudget().NeedsRefresh()
}

// Refresh decrypts and re-encrypts every packed value.
func (b *EncryptedBatch) Refresh() error {
	if b == nil {
		return fmt.Errorf("refresh batch: %w: nil value", ErrInvalidOperand)
	}
	ct, ctx, length, _ := b.snapshot()

	values, err := ctx.DecryptVector(ct, length)
	if err != nil {
		return fmt.Errorf("refresh batch: %w", err)
	}
	fresh, err := ctx.EncryptVector(values)
	if err != nil {
		return fmt.Errorf("refresh batch: %w", err)
	}

	b.mu.Lock()
	b.ct = fresh
	b.budget.reset()
	b.mu.Unlock()
	return nil
}

// Clone returns an independent deep copy.
func (b *EncryptedBatch) Clone() *EncryptedBatch {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return &EncryptedBatch{
		ct:     b.ct.CopyNew(),
		ctx:    b.ctx,
		length: b.length,
		budget: b.budget,
	}
}

// Set copies other's ciphertext, length and budget into b.
func (b *EncryptedBatch) Set(other *EncryptedBatch) {
	if b == other {
		return
	}
	other.mu.RLock()
	ct, ctx, length, budget := other.ct.CopyNew(), other.ctx, other.length, other.budget
	other.mu.RUnlock()

	b.mu.Lock()
	b.ct, b.ctx, b.length, b.budget = ct, ctx, length, budget
	b.mu.Unlock()
}

func (b *EncryptedBatch) snapshot() (*rlwe.Ciphertext, *Context, int, NoiseBudget) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ct, b.ctx, b.length, b.budget
}
