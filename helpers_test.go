// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

var (
	sharedCtxOnce sync.Once
	sharedCtx     *Context
	sharedCtxErr  error

	pn13CtxOnce sync.Once
	pn13Ctx     *Context
	pn13CtxErr  error
)

// testContext returns a context shared by every test in the package. Tests
// that close or otherwise spoil a context must create their own.
func testContext(t testing.TB) *Context {
	t.Helper()
	sharedCtxOnce.Do(func() {
		sharedCtx, sharedCtxErr = NewContext(PN10T65537Insecure)
	})
	require.NoError(t, sharedCtxErr)
	return sharedCtx
}

// pn13Context returns a shared context on the PN13T65537 preset, the default
// of the binaries. It is skipped in short mode.
func pn13Context(t testing.TB) *Context {
	t.Helper()
	if testing.Short() {
		t.Skip("PN13T65537 key generation in short mode")
	}
	pn13CtxOnce.Do(func() {
		pn13Ctx, pn13CtxErr = NewContext(PN13T65537)
	})
	require.NoError(t, pn13CtxErr)
	return pn13Ctx
}

func testArithmetic(t testing.TB) *ArithmeticEngine {
	t.Helper()
	e, err := NewArithmeticEngine(testContext(t))
	require.NoError(t, err)
	return e
}

func testComparison(t testing.TB) *ComparisonEngine {
	t.Helper()
	c, err := NewComparisonEngine(testArithmetic(t), DefaultComparisonConfig())
	require.NoError(t, err)
	return c
}

func enc(t testing.TB, ctx *Context, v int64) *EncryptedInt {
	t.Helper()
	x, err := NewEncryptedInt(ctx, v)
	require.NoError(t, err)
	return x
}

func encBool(t testing.TB, ctx *Context, b bool) *EncryptedBool {
	t.Helper()
	x, err := NewEncryptedBool(ctx, b)
	require.NoError(t, err)
	return x
}

func dec(t testing.TB, v *EncryptedInt) int64 {
	t.Helper()
	x, err := v.Decrypt()
	require.NoError(t, err)
	return x
}

func decBool(t testing.TB, b *EncryptedBool) bool {
	t.Helper()
	x, err := b.DecryptBool()
	require.NoError(t, err)
	return x
}

func encAll(t testing.TB, ctx *Context, values ...int64) []*EncryptedInt {
	t.Helper()
	out := make([]*EncryptedInt, len(values))
	for i, v := range values {
		out[i] = enc(t, ctx, v)
	}
	return out
}
