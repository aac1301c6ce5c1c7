// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"sync"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// EncryptedInt is one plaintext int64 encrypted in slot 0 of a BFV
// ciphertext, together with its noise budget. The ciphertext and budget are
// guarded by a private lock; operations never hold two value locks at once.
type EncryptedInt struct {
	mu     sync.RWMutex
	ct     *rlwe.Ciphertext
	ctx    *Context
	budget NoiseBudget
}

// NewEncryptedInt encrypts value with the context's initial budget.
func NewEncryptedInt(ctx *Context, value int64) (*EncryptedInt, error) {
	ct, err := ctx.Encrypt(value)
	if err != nil {
		return nil, fmt.Errorf("new encrypted int: %w", err)
	}
	return &EncryptedInt{
		ct:     ct,
		ctx:    ctx,
		budget: ctx.freshBudget(),
	}, nil
}

// NewEncryptedIntFromCiphertext wraps an existing ciphertext with an explicit
// budget. The ciphertext is owned by the returned value afterwards.
func NewEncryptedIntFromCiphertext(ctx *Context, ct *rlwe.Ciphertext, budget NoiseBudget) (*EncryptedInt, error) {
	if err := ctx.ready(); err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("%w: nil ciphertext", ErrInvalidOperand)
	}
	return &EncryptedInt{ct: ct, ctx: ctx, budget: budget}, nil
}

// Context returns the encryption context the value belongs to.
func (v *EncryptedInt) Context() *Context {
	if v == nil {
		return nil
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctx
}

// Decrypt returns the plaintext value.
func (v *EncryptedInt) Decrypt() (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("decrypt: %w: nil value", ErrInvalidOperand)
	}
	ct, ctx, _ := v.snapshot()
	return ctx.DecryptInt(ct)
}

// IsValid reports whether the value has a live context and a well-formed
// degree-1 ciphertext.
func (v *EncryptedInt) IsValid() bool {
	if v == nil {
		return false
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ctx.ready() == nil && v.ct != nil && v.ct.Degree() == 1 && v.ct.Level() >= 0
}

// NeedsRefresh reports whether the budget is below its critical threshold.
func (v *EncryptedInt) NeedsRefresh() bool {
	return v.NoiseBudget().NeedsRefresh()
}

// NoiseBudget returns a copy of the current budget. A nil value has an empty
// budget.
func (v *EncryptedInt) NoiseBudget() NoiseBudget {
	if v == nil {
		return NoiseBudget{}
	}
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.budget
}

// Refresh decrypts and re-encrypts the value, restoring the full budget.
// It is the only way to recover budget and costs a full decrypt/encrypt
// round trip.
func (v *EncryptedInt) Refresh() error {
	if v == nil {
		return fmt.Errorf("refresh: %w: nil value", ErrInvalidOperand)
	}
	ct, ctx, _ := v.snapshot()

	value, err := ctx.DecryptInt(ct)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	fresh, err := ctx.Encrypt(value)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	v.mu.Lock()
	v.ct = fresh
	v.budget.reset()
	v.mu.Unlock()
	return nil
}

// Clone returns an independent deep copy.
func (v *EncryptedInt) Clone() *EncryptedInt {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return &EncryptedInt{
		ct:     v.ct.CopyNew(),
		ctx:    v.ctx,
		budget: v.budget,
	}
}

// Set copies other's ciphertext and budget into v.
func (v *EncryptedInt) Set(other *EncryptedInt) {
	if v == other {
		return
	}
	other.mu.RLock()
	ct, ctx, budget := other.ct.CopyNew(), other.ctx, other.budget
	other.mu.RUnlock()

	v.mu.Lock()
	v.ct, v.ctx, v.budget = ct, ctx, budget
	v.mu.Unlock()
}

// Ciphertext returns a deep copy of the underlying ciphertext.
func (v *EncryptedInt) Ciphertext() *rlwe.Ciphertext {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ct.CopyNew()
}

// snapshot returns the current ciphertext, context and budget. Stored
// ciphertexts are never modified in place, so sharing the pointer is safe.
func (v *EncryptedInt) snapshot() (*rlwe.Ciphertext, *Context, NoiseBudget) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ct, v.ctx, v.budget
}

func (v *EncryptedInt) String() string {
	if v == nil {
		return "EncryptedInt(nil)"
	}
	return fmt.Sprintf("EncryptedInt(budget=%s)", v.NoiseBudget())
}

// EncryptedBool is an EncryptedInt whose plaintext is restricted to 0 or 1.
// Boolean algebra on it is integer arithmetic.
type EncryptedBool struct {
	*EncryptedInt
}

// NewEncryptedBool encrypts b as 0 or 1.
func NewEncryptedBool(ctx *Context, b bool) (*EncryptedBool, error) {
	v, err := NewEncryptedInt(ctx, boolToInt(b))
	if err != nil {
		return nil, err
	}
	return &EncryptedBool{v}, nil
}

// DecryptBool decrypts the flag. A plaintext outside {0,1} is an error.
func (b *EncryptedBool) DecryptBool() (bool, error) {
	if b == nil {
		return false, fmt.Errorf("decrypt: %w: nil flag", ErrInvalidOperand)
	}
	v, err := b.Decrypt()
	if err != nil {
		return false, err
	}
	switch v {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("%w: decrypted %d", ErrNotBoolean, v)
	}
}

// Int exposes the flag as an integer operand.
func (b *EncryptedBool) Int() *EncryptedInt {
	return b.EncryptedInt
}

// Clone returns an independent deep copy.
func (b *EncryptedBool) Clone() *EncryptedBool {
	return &EncryptedBool{b.EncryptedInt.Clone()}
}

// IsValid reports whether the flag wraps a valid value.
func (b *EncryptedBool) IsValid() bool {
	return b != nil && b.EncryptedInt.IsValid()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
