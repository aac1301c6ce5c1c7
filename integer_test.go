// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestContextParameters(t *testing.T) {
	ctx := testContext(t)
	p := ctx.Parameters()
	require.Equal(t, "PN10T65537Insecure", p.Name)
	require.Equal(t, 10, p.LogN)
	require.Equal(t, 1024, p.BatchSize)
	require.EqualValues(t, 65537, p.PlaintextModulus)
	require.EqualValues(t, 16384, ctx.SafeRange())
	require.Equal(t, "insecure", p.Security.String())
}

func TestContextClosed(t *testing.T) {
	ctx, err := NewContext(PN10T65537Insecure)
	require.NoError(t, err)

	v := enc(t, ctx, 3)
	ctx.Close()

	_, err = NewEncryptedInt(ctx, 1)
	require.ErrorIs(t, err, ErrContextNotInitialized)
	_, err = v.Decrypt()
	require.ErrorIs(t, err, ErrContextNotInitialized)
	require.False(t, v.IsValid())

	_, err = NewArithmeticEngine(ctx)
	require.ErrorIs(t, err, ErrContextNotInitialized)

	var nilCtx *Context
	_, err = nilCtx.Encrypt(1)
	require.ErrorIs(t, err, ErrContextNotInitialized)
}

func TestInvalidParameters(t *testing.T) {
	_, err := NewContext(ParametersLiteral{})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = NewContext(ParametersLiteral{LogN: 10, LogQ: []int{30}, LogP: []int{30}, PlaintextModulus: 1})
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestEncryptDecrypt(t *testing.T) {
	ctx := testContext(t)
	for _, v := range []int64{0, 1, -1, 42, -17, 16384, -16384, 30000} {
		x := enc(t, ctx, v)
		require.Equal(t, v, dec(t, x), "value %d", v)
		require.True(t, x.IsValid())
	}
}

func TestFreshValueBudget(t *testing.T) {
	v := enc(t, testContext(t), 7)
	b := v.NoiseBudget()
	require.Greater(t, b.Current, b.CriticalThreshold)
	require.False(t, v.NeedsRefresh())
}

func TestEstimateNoise(t *testing.T) {
	ctx := testContext(t)
	v := enc(t, ctx, 9)
	noise, err := ctx.EstimateNoise(v.Ciphertext())
	require.NoError(t, err)
	require.Greater(t, noise, 0.0)

	_, err = ctx.EstimateNoise(nil)
	require.ErrorIs(t, err, ErrInvalidOperand)
}

func TestRefresh(t *testing.T) {
	e := testArithmetic(t)
	ctx := e.Context()

	v := enc(t, ctx, 6)
	for i := 0; i < 3; i++ {
		var err error
		v, err = e.MultiplyConstant(v, 1)
		require.NoError(t, err)
	}
	require.Less(t, v.NoiseBudget().Current, v.NoiseBudget().Initial)

	require.NoError(t, e.Refresh(v))
	b := v.NoiseBudget()
	require.Equal(t, b.Initial, b.Current)
	require.Zero(t, b.Operations)
	require.Equal(t, int64(6), dec(t, v))
	require.EqualValues(t, 1, e.Statistics().Refreshes)
}

func TestCloneAndSet(t *testing.T) {
	ctx := testContext(t)
	a := enc(t, ctx, 11)
	b := a.Clone()
	require.NotSame(t, a.ct, b.ct)
	require.Equal(t, int64(11), dec(t, b))

	c := enc(t, ctx, 99)
	c.Set(a)
	require.Equal(t, int64(11), dec(t, c))
	require.NotSame(t, a.ct, c.ct)

	c.Set(c)
	require.Equal(t, int64(11), dec(t, c))
}

func TestFromCiphertext(t *testing.T) {
	ctx := testContext(t)
	ct, err := ctx.Encrypt(5)
	require.NoError(t, err)

	budget := NoiseBudget{Initial: 50, Current: 20, CriticalThreshold: 10}
	v, err := NewEncryptedIntFromCiphertext(ctx, ct, budget)
	require.NoError(t, err)
	require.Equal(t, int64(5), dec(t, v))
	require.Equal(t, 20.0, v.NoiseBudget().Current)

	_, err = NewEncryptedIntFromCiphertext(ctx, nil, budget)
	require.ErrorIs(t, err, ErrInvalidOperand)
}

func TestEncryptedBool(t *testing.T) {
	ctx := testContext(t)
	require.True(t, decBool(t, encBool(t, ctx, true)))
	require.False(t, decBool(t, encBool(t, ctx, false)))

	notBool := &EncryptedBool{enc(t, ctx, 5)}
	_, err := notBool.DecryptBool()
	require.ErrorIs(t, err, ErrNotBoolean)

	var nilBool *EncryptedBool
	require.False(t, nilBool.IsValid())
}

func TestConcurrentValueAccess(t *testing.T) {
	e := testArithmetic(t)
	ctx := e.Context()
	shared := enc(t, ctx, 4)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(k int64) {
			defer wg.Done()
			r, err := e.AddConstant(shared, k)
			if err != nil {
				errs <- err
				return
			}
			got, err := r.Decrypt()
			if err == nil && got != 4+k {
				err = fmt.Errorf("add constant %d: got %d", k, got)
			}
			if err != nil {
				errs <- err
			}
		}(int64(i))
		go func() {
			defer wg.Done()
			if err := shared.Refresh(); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int64(4), dec(t, shared))
}

func TestNilValues(t *testing.T) {
	var v *EncryptedInt
	_, err := v.Decrypt()
	require.ErrorIs(t, err, ErrInvalidOperand)
	require.ErrorIs(t, v.Refresh(), ErrInvalidOperand)
	require.Equal(t, NoiseBudget{}, v.NoiseBudget())
	require.False(t, v.NeedsRefresh())
	require.False(t, v.IsValid())
	require.Nil(t, v.Context())

	var b *EncryptedBool
	_, err = b.DecryptBool()
	require.ErrorIs(t, err, ErrInvalidOperand)

	var batch *EncryptedBatch
	_, err = batch.Decrypt()
	require.ErrorIs(t, err, ErrInvalidOperand)
	require.ErrorIs(t, batch.Refresh(), ErrInvalidOperand)
	require.Zero(t, batch.Len())
}
