// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// Context owns the BFV parameters and keys and exposes the ciphertext
// primitives the engines are built on. It is immutable after construction
// and safe for concurrent use; every value and engine holds a non-owning
// reference to it and two values interoperate only if they share the same
// *Context.
//
// SECURITY: the context holds the secret key. Refresh and the decrypt-assisted
// comparison circuits need it, so a process that owns a Context can read every
// value encrypted under it.
type Context struct {
	lit    ParametersLiteral
	params bgv.Parameters
	sk     *rlwe.SecretKey
	pk     *rlwe.PublicKey
	evk    *rlwe.MemEvaluationKeySet

	// budget is the initial noise budget of fresh values.
	budget float64
	// maxCiphertextBytes bounds decoded ciphertexts.
	maxCiphertextBytes int

	// Lattigo encoders and evaluators carry scratch buffers, so each call
	// borrows a shallow copy from the pool.
	tools sync.Pool

	closed atomic.Bool
}

// toolkit is one borrowable set of lattigo workers.
type toolkit struct {
	ecd  *bgv.Encoder
	enc  *rlwe.Encryptor
	dec  *rlwe.Decryptor
	eval *bgv.Evaluator
}

// NewContext creates the parameters, generates a key pair and a
// relinearization key, and returns a ready context.
func NewContext(lit ParametersLiteral) (*Context, error) {
	params, err := NewParametersFromLiteral(lit)
	if err != nil {
		return nil, err
	}

	kgen := rlwe.NewKeyGenerator(params)
	sk, pk := kgen.GenKeyPairNew()
	rlk := kgen.GenRelinearizationKeyNew(sk)

	c := &Context{
		lit:    lit,
		params: params,
		sk:     sk,
		pk:     pk,
		evk:    rlwe.NewMemEvaluationKeySet(rlk),
		budget: BudgetForDepth(lit.MaxDepth),

		maxCiphertextBytes: rlwe.NewCiphertext(params, 1, params.MaxLevel()).BinarySize() + 256,
	}

	base := &toolkit{
		ecd:  bgv.NewEncoder(params),
		enc:  rlwe.NewEncryptor(params, pk),
		dec:  rlwe.NewDecryptor(params, sk),
		eval: bgv.NewEvaluator(params, c.evk, true),
	}
	c.tools.New = func() interface{} {
		return &toolkit{
			ecd:  base.ecd.ShallowCopy(),
			enc:  base.enc.ShallowCopy(),
			dec:  base.dec.ShallowCopy(),
			eval: base.eval.ShallowCopy(),
		}
	}
	c.tools.Put(base)

	return c, nil
}

// Close marks the context unusable. Subsequent calls fail with
// ErrContextNotInitialized.
func (c *Context) Close() {
	c.closed.Store(true)
}

func (c *Context) ready() error {
	if c == nil || c.closed.Load() {
		return ErrContextNotInitialized
	}
	return nil
}

func (c *Context) borrow() *toolkit {
	return c.tools.Get().(*toolkit)
}

func (c *Context) release(t *toolkit) {
	c.tools.Put(t)
}

// Parameters returns the batch capacity and plaintext modulus.
func (c *Context) Parameters() ParametersInfo {
	return ParametersInfo{
		Name:             c.lit.Name,
		LogN:             c.params.LogN(),
		BatchSize:        c.params.MaxSlots(),
		PlaintextModulus: c.params.PlaintextModulus(),
		MaxDepth:         c.lit.MaxDepth,
		InitialBudget:    c.budget,
		Security:         c.lit.Security,
	}
}

// InitialBudget returns the noise budget of a freshly encrypted value.
func (c *Context) InitialBudget() float64 {
	return c.budget
}

func (c *Context) freshBudget() NoiseBudget {
	return NewNoiseBudget(c.budget)
}

// SafeRange returns a quarter of the plaintext modulus.
func (c *Context) SafeRange() int64 {
	return c.Parameters().SafeRange()
}

// Encrypt encrypts a single integer into slot 0 of a fresh ciphertext.
func (c *Context) Encrypt(value int64) (*rlwe.Ciphertext, error) {
	return c.EncryptVector([]int64{value})
}

// EncryptVector packs values into the slots of one ciphertext.
func (c *Context) EncryptVector(values []int64) (*rlwe.Ciphertext, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if len(values) > c.params.MaxSlots() {
		return nil, fmt.Errorf("%w: %d values, capacity %d", ErrBatchTooLarge, len(values), c.params.MaxSlots())
	}

	t := c.borrow()
	defer c.release(t)

	pt := bgv.NewPlaintext(c.params, c.params.MaxLevel())
	if err := t.ecd.Encode(values, pt); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	ct, err := t.enc.EncryptNew(pt)
	if err != nil {
		return nil, fmt.Errorf("encrypt: %w", err)
	}
	return ct, nil
}

// DecryptInt decrypts slot 0 as a centered integer in (-t/2, t/2].
func (c *Context) DecryptInt(ct *rlwe.Ciphertext) (int64, error) {
	values, err := c.DecryptVector(ct, 1)
	if err != nil {
		return 0, err
	}
	return values[0], nil
}

// DecryptVector decrypts the first size slots.
func (c *Context) DecryptVector(ct *rlwe.Ciphertext, size int) ([]int64, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	if ct == nil {
		return nil, fmt.Errorf("decrypt: %w: nil ciphertext", ErrInvalidOperand)
	}
	if size < 0 || size > c.params.MaxSlots() {
		return nil, fmt.Errorf("%w: size %d, capacity %d", ErrBatchTooLarge, size, c.params.MaxSlots())
	}

	t := c.borrow()
	defer c.release(t)

	values := make([]int64, c.params.MaxSlots())
	if err := t.ecd.Decode(t.dec.DecryptNew(ct), values); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return values[:size], nil
}

// Add returns a + b.
func (c *Context) Add(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	t := c.borrow()
	defer c.release(t)
	return t.eval.AddNew(a, b)
}

// Subtract returns a - b.
func (c *Context) Subtract(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	t := c.borrow()
	defer c.release(t)
	return t.eval.SubNew(a, b)
}

// Multiply returns the relinearized product a * b.
func (c *Context) Multiply(a, b *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	t := c.borrow()
	defer c.release(t)
	return t.eval.MulRelinNew(a, b)
}

// Negate returns -a by multiplying with the scalar -1.
func (c *Context) Negate(a *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	t := c.borrow()
	defer c.release(t)
	return t.eval.MulNew(a, int64(-1))
}

// EstimateNoise returns log2 of the standard deviation of the decrypted
// ciphertext before decoding. It is a liveness check, not a measurement of
// the remaining budget.
func (c *Context) EstimateNoise(ct *rlwe.Ciphertext) (float64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	if ct == nil {
		return 0, fmt.Errorf("estimate noise: %w: nil ciphertext", ErrInvalidOperand)
	}
	t := c.borrow()
	defer c.release(t)
	std, _, _ := rlwe.Norm(ct, t.dec)
	return std, nil
}
