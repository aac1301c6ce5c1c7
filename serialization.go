// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
)

// Encoding layout, little endian:
//
//	version   uint8
//	kind      uint8
//	initial   float64
//	current   float64
//	threshold float64
//	ops       uint64
//	created   int64 (unix nanoseconds)
//	length    uint32 (1 for integers)
//	ctLen     uint32
//	ct        [ctLen]byte (lattigo ciphertext binary)
const encodingVersion = 1

// Kind identifies the value type of an encoding.
type Kind uint8

const (
	KindInt Kind = iota + 1
	KindBatch
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBatch:
		return "batch"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

type header struct {
	Version   uint8
	Kind      uint8
	Initial   float64
	Current   float64
	Threshold float64
	Ops       uint64
	Created   int64
	Length    uint32
}

// ========== EncryptedInt ==========

// MarshalBinary encodes the ciphertext together with its noise budget.
func (v *EncryptedInt) MarshalBinary() ([]byte, error) {
	ct, _, budget := v.snapshot()
	return marshalValue(KindInt, ct, 1, budget)
}

// UnmarshalEncryptedInt decodes an integer encoded under ctx's parameters.
func UnmarshalEncryptedInt(ctx *Context, data []byte) (*EncryptedInt, error) {
	h, ct, err := unmarshalValue(ctx, data, KindInt)
	if err != nil {
		return nil, err
	}
	return NewEncryptedIntFromCiphertext(ctx, ct, h.budget())
}

// ========== EncryptedBatch ==========

// MarshalBinary encodes the ciphertext, logical length and noise budget.
func (b *EncryptedBatch) MarshalBinary() ([]byte, error) {
	ct, _, length, budget := b.snapshot()
	return marshalValue(KindBatch, ct, length, budget)
}

// UnmarshalEncryptedBatch decodes a batch encoded under ctx's parameters.
func UnmarshalEncryptedBatch(ctx *Context, data []byte) (*EncryptedBatch, error) {
	h, ct, err := unmarshalValue(ctx, data, KindBatch)
	if err != nil {
		return nil, err
	}
	return NewEncryptedBatchFromCiphertext(ctx, ct, int(h.Length), h.budget())
}

// EncodedKind returns the kind of an encoded value without decoding the
// ciphertext.
func EncodedKind(data []byte) (Kind, error) {
	h, err := readHeader(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	return Kind(h.Kind), nil
}

// ========== Internals ==========

func marshalValue(kind Kind, ct *rlwe.Ciphertext, length int, budget NoiseBudget) ([]byte, error) {
	if ct == nil {
		return nil, fmt.Errorf("marshal %s: %w: nil ciphertext", kind, ErrInvalidOperand)
	}
	ctData, err := ct.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", kind, err)
	}

	h := header{
		Version:   encodingVersion,
		Kind:      uint8(kind),
		Initial:   budget.Initial,
		Current:   budget.Current,
		Threshold: budget.CriticalThreshold,
		Ops:       budget.Operations,
		Created:   budget.CreatedAt.UnixNano(),
		Length:    uint32(length),
	}

	var buf bytes.Buffer
	buf.Grow(binary.Size(h) + 4 + len(ctData))
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(ctData))); err != nil {
		return nil, err
	}
	buf.Write(ctData)
	return buf.Bytes(), nil
}

func readHeader(r io.Reader) (header, error) {
	var h header
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return h, fmt.Errorf("%w: header: %v", ErrMalformedEncoding, err)
	}
	if h.Version != encodingVersion {
		return h, fmt.Errorf("%w: version %d", ErrMalformedEncoding, h.Version)
	}
	return h, nil
}

func unmarshalValue(ctx *Context, data []byte, want Kind) (header, *rlwe.Ciphertext, error) {
	if err := ctx.ready(); err != nil {
		return header{}, nil, err
	}

	r := bytes.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return h, nil, err
	}
	if Kind(h.Kind) != want {
		return h, nil, fmt.Errorf("%w: want %s, got %s", ErrMalformedEncoding, want, Kind(h.Kind))
	}
	if !validBudget(h) {
		return h, nil, fmt.Errorf("%w: budget %.2f/%.2f", ErrMalformedEncoding, h.Current, h.Initial)
	}

	var ctLen uint32
	if err := binary.Read(r, binary.LittleEndian, &ctLen); err != nil {
		return h, nil, fmt.Errorf("%w: ciphertext length: %v", ErrMalformedEncoding, err)
	}
	if int(ctLen) > ctx.maxCiphertextBytes {
		return h, nil, fmt.Errorf("%w: ciphertext length %d exceeds %d", ErrMalformedEncoding, ctLen, ctx.maxCiphertextBytes)
	}
	if int(ctLen) != r.Len() {
		return h, nil, fmt.Errorf("%w: ciphertext length %d, %d bytes left", ErrMalformedEncoding, ctLen, r.Len())
	}
	ctData := make([]byte, ctLen)
	if _, err := io.ReadFull(r, ctData); err != nil {
		return h, nil, fmt.Errorf("%w: %v", ErrMalformedEncoding, err)
	}

	ct := new(rlwe.Ciphertext)
	if err := ct.UnmarshalBinary(ctData); err != nil {
		return h, nil, fmt.Errorf("%w: ciphertext: %v", ErrMalformedEncoding, err)
	}
	// Every value this package produces sits at the top level.
	if ct.Degree() != 1 || ct.Level() != ctx.params.MaxLevel() || ct.Value[0].N() != ctx.params.N() {
		return h, nil, fmt.Errorf("%w: ciphertext does not match context parameters", ErrMalformedEncoding)
	}
	return h, ct, nil
}

func validBudget(h header) bool {
	for _, f := range []float64{h.Initial, h.Current, h.Threshold} {
		if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
			return false
		}
	}
	return h.Current <= h.Initial
}

func (h header) budget() NoiseBudget {
	return NoiseBudget{
		Initial:           h.Initial,
		Current:           h.Current,
		CriticalThreshold: h.Threshold,
		Operations:        h.Ops,
		CreatedAt:         time.Unix(0, h.Created),
	}
}
