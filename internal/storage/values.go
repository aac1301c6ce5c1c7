// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package storage

import (
	"context"
	"fmt"

	"github.com/luxfi/bfvint"
)

// StoreInt encodes v and stores it.
func StoreInt(ctx context.Context, s Storage, v *bfvint.EncryptedInt) (Handle, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode value: %w", err)
	}
	return s.Store(ctx, data)
}

// LoadInt loads and decodes an integer under the encryption context bctx.
func LoadInt(ctx context.Context, s Storage, bctx *bfvint.Context, handle Handle) (*bfvint.EncryptedInt, error) {
	data, err := s.Load(ctx, handle)
	if err != nil {
		return nil, err
	}
	v, err := bfvint.UnmarshalEncryptedInt(bctx, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", handle, err)
	}
	return v, nil
}

// StoreBatch encodes b and stores it.
func StoreBatch(ctx context.Context, s Storage, b *bfvint.EncryptedBatch) (Handle, error) {
	data, err := b.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("encode batch: %w", err)
	}
	return s.Store(ctx, data)
}

// LoadBatch loads and decodes a batch under bctx.
func LoadBatch(ctx context.Context, s Storage, bctx *bfvint.Context, handle Handle) (*bfvint.EncryptedBatch, error) {
	data, err := s.Load(ctx, handle)
	if err != nil {
		return nil, err
	}
	b, err := bfvint.UnmarshalEncryptedBatch(bctx, data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", handle, err)
	}
	return b, nil
}
