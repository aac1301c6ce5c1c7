// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package server

import (
	"fmt"
	"net/http"

	"github.com/luxfi/bfvint"
)

// EncryptRequest encrypts either one value or, when Values is set, a batch.
type EncryptRequest struct {
	Value  int64   `json:"value"`
	Values []int64 `json:"values,omitempty"`
}

// ValueResponse carries an encoded encrypted value.
type ValueResponse struct {
	Ciphertext   []byte  `json:"ciphertext"`
	Kind         string  `json:"kind"`
	NoiseBudget  float64 `json:"noise_budget"`
	NeedsRefresh bool    `json:"needs_refresh"`
}

func intResponse(v *bfvint.EncryptedInt) (ValueResponse, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return ValueResponse{}, err
	}
	b := v.NoiseBudget()
	return ValueResponse{
		Ciphertext:   data,
		Kind:         bfvint.KindInt.String(),
		NoiseBudget:  b.Current,
		NeedsRefresh: b.NeedsRefresh(),
	}, nil
}

func batchResponse(v *bfvint.EncryptedBatch) (ValueResponse, error) {
	data, err := v.MarshalBinary()
	if err != nil {
		return ValueResponse{}, err
	}
	b := v.NoiseBudget()
	return ValueResponse{
		Ciphertext:   data,
		Kind:         bfvint.KindBatch.String(),
		NoiseBudget:  b.Current,
		NeedsRefresh: b.NeedsRefresh(),
	}, nil
}

func (s *Server) writeInt(w http.ResponseWriter, v *bfvint.EncryptedInt, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := intResponse(v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) writeBool(w http.ResponseWriter, v *bfvint.EncryptedBool, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeInt(w, v.Int(), nil)
}

func (s *Server) writeBatch(w http.ResponseWriter, v *bfvint.EncryptedBatch, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	resp, err := batchResponse(v)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, resp)
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req EncryptRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Values != nil {
		b, err := bfvint.NewEncryptedBatch(s.ctx, req.Values)
		s.writeBatch(w, b, err)
		return
	}
	v, err := bfvint.NewEncryptedInt(s.ctx, req.Value)
	s.writeInt(w, v, err)
}

// DecryptRequest names the value to open.
type DecryptRequest struct {
	Ciphertext []byte `json:"ciphertext"`
}

// DecryptResponse holds Value for integers and Values for batches.
type DecryptResponse struct {
	Value  int64   `json:"value"`
	Values []int64 `json:"values,omitempty"`
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	if !s.cfg.AllowDecrypt {
		http.Error(w, "decryption disabled", http.StatusForbidden)
		return
	}
	var req DecryptRequest
	if !decode(w, r, &req) {
		return
	}

	kind, err := bfvint.EncodedKind(req.Ciphertext)
	if err != nil {
		writeError(w, err)
		return
	}
	if kind == bfvint.KindBatch {
		b, err := bfvint.UnmarshalEncryptedBatch(s.ctx, req.Ciphertext)
		if err != nil {
			writeError(w, err)
			return
		}
		values, err := b.Decrypt()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, DecryptResponse{Values: values})
		return
	}

	v, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.Ciphertext)
	if err != nil {
		writeError(w, err)
		return
	}
	plain, err := v.Decrypt()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, DecryptResponse{Value: plain})
}

// EvaluateRequest applies an arithmetic operation. With Steps set, Left is
// the initial value of a chain and Op is ignored.
type EvaluateRequest struct {
	Op       string             `json:"op"`
	Left     []byte             `json:"left"`
	Right    []byte             `json:"right,omitempty"`
	Constant int64              `json:"constant,omitempty"`
	Steps    []bfvint.ChainStep `json:"steps,omitempty"`
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req EvaluateRequest
	if !decode(w, r, &req) {
		return
	}

	kind, err := bfvint.EncodedKind(req.Left)
	if err != nil {
		writeError(w, err)
		return
	}
	if kind == bfvint.KindBatch {
		s.evaluateBatch(w, req)
		return
	}

	left, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.Left)
	if err != nil {
		writeError(w, err)
		return
	}

	if len(req.Steps) > 0 {
		chain := s.arith.Chain(left)
		if err := chain.LoadSteps(req.Steps); err != nil {
			writeError(w, err)
			return
		}
		v, err := chain.Execute()
		s.writeInt(w, v, err)
		return
	}

	right := func() (*bfvint.EncryptedInt, error) {
		return bfvint.UnmarshalEncryptedInt(s.ctx, req.Right)
	}
	binary := func(f func(a, b *bfvint.EncryptedInt) (*bfvint.EncryptedInt, error)) (*bfvint.EncryptedInt, error) {
		b, err := right()
		if err != nil {
			return nil, fmt.Errorf("right operand: %w", err)
		}
		return f(left, b)
	}

	var v *bfvint.EncryptedInt
	switch bfvint.Op(req.Op) {
	case bfvint.OpAdd:
		v, err = binary(s.arith.Add)
	case bfvint.OpSubtract:
		v, err = binary(s.arith.Subtract)
	case bfvint.OpMultiply:
		v, err = binary(s.arith.Multiply)
	case bfvint.OpNegate:
		v, err = s.arith.Negate(left)
	case bfvint.OpAddConstant:
		v, err = s.arith.AddConstant(left, req.Constant)
	case bfvint.OpSubtractConstant:
		v, err = s.arith.SubtractConstant(left, req.Constant)
	case bfvint.OpMultiplyConstant:
		v, err = s.arith.MultiplyConstant(left, req.Constant)
	case bfvint.OpRefresh:
		v, err = left, s.arith.Refresh(left)
	default:
		err = fmt.Errorf("%w: %q", bfvint.ErrUnknownOperation, req.Op)
	}
	s.writeInt(w, v, err)
}

func (s *Server) evaluateBatch(w http.ResponseWriter, req EvaluateRequest) {
	left, err := bfvint.UnmarshalEncryptedBatch(s.ctx, req.Left)
	if err != nil {
		writeError(w, err)
		return
	}
	binary := func(f func(a, b *bfvint.EncryptedBatch) (*bfvint.EncryptedBatch, error)) (*bfvint.EncryptedBatch, error) {
		b, err := bfvint.UnmarshalEncryptedBatch(s.ctx, req.Right)
		if err != nil {
			return nil, fmt.Errorf("right operand: %w", err)
		}
		return f(left, b)
	}

	var v *bfvint.EncryptedBatch
	switch bfvint.Op(req.Op) {
	case bfvint.OpAdd:
		v, err = binary(s.arith.AddBatch)
	case bfvint.OpSubtract:
		v, err = binary(s.arith.SubtractBatch)
	case bfvint.OpMultiply:
		v, err = binary(s.arith.MultiplyBatch)
	case bfvint.OpNegate:
		v, err = s.arith.NegateBatch(left)
	case bfvint.OpRefresh:
		v, err = left, left.Refresh()
	default:
		err = fmt.Errorf("%w: %q on batch", bfvint.ErrUnknownOperation, req.Op)
	}
	s.writeBatch(w, v, err)
}

// CompareRequest compares Left with Right, or with Constant when Right is
// empty. Op also accepts is_positive, is_negative and is_zero.
type CompareRequest struct {
	Op       string `json:"op"`
	Left     []byte `json:"left"`
	Right    []byte `json:"right,omitempty"`
	Constant int64  `json:"constant,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req CompareRequest
	if !decode(w, r, &req) {
		return
	}
	left, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.Left)
	if err != nil {
		writeError(w, err)
		return
	}

	switch req.Op {
	case "is_positive":
		v, err := s.cmp.IsPositive(left)
		s.writeBool(w, v, err)
		return
	case "is_negative":
		v, err := s.cmp.IsNegative(left)
		s.writeBool(w, v, err)
		return
	case "is_zero":
		v, err := s.cmp.IsZero(left)
		s.writeBool(w, v, err)
		return
	}

	op, err := bfvint.ParseCompareOp(req.Op)
	if err != nil {
		writeError(w, err)
		return
	}
	if len(req.Right) == 0 {
		v, err := s.cmp.CompareConstant(left, req.Constant, op)
		s.writeBool(w, v, err)
		return
	}
	right, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.Right)
	if err != nil {
		writeError(w, fmt.Errorf("right operand: %w", err))
		return
	}
	v, err := s.cmp.Compare(left, right, op)
	s.writeBool(w, v, err)
}

// SelectRequest covers the selection family. Op is one of
// conditional_select (default), min, max, abs, sign, clamp and in_range;
// clamp and in_range use Low and High.
type SelectRequest struct {
	Op        string `json:"op,omitempty"`
	Condition []byte `json:"condition,omitempty"`
	IfTrue    []byte `json:"if_true,omitempty"`
	IfFalse   []byte `json:"if_false,omitempty"`
	Low       int64  `json:"low,omitempty"`
	High      int64  `json:"high,omitempty"`
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}

	a, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.IfTrue)
	if err != nil {
		writeError(w, fmt.Errorf("if_true: %w", err))
		return
	}
	second := func() (*bfvint.EncryptedInt, error) {
		b, err := bfvint.UnmarshalEncryptedInt(s.ctx, req.IfFalse)
		if err != nil {
			return nil, fmt.Errorf("if_false: %w", err)
		}
		return b, nil
	}
	pair := func(f func(a, b *bfvint.EncryptedInt) (*bfvint.EncryptedInt, error)) (*bfvint.EncryptedInt, error) {
		b, err := second()
		if err != nil {
			return nil, err
		}
		return f(a, b)
	}

	var v *bfvint.EncryptedInt
	switch req.Op {
	case "", "conditional_select":
		var cond, f *bfvint.EncryptedInt
		if cond, err = bfvint.UnmarshalEncryptedInt(s.ctx, req.Condition); err != nil {
			err = fmt.Errorf("condition: %w", err)
			break
		}
		if f, err = second(); err != nil {
			break
		}
		v, err = s.cmp.ConditionalSelect(&bfvint.EncryptedBool{EncryptedInt: cond}, a, f)
	case "min":
		v, err = pair(s.cmp.Min)
	case "max":
		v, err = pair(s.cmp.Max)
	case "abs":
		v, err = s.cmp.Abs(a)
	case "sign":
		v, err = s.cmp.Sign(a)
	case "clamp":
		v, err = s.cmp.Clamp(a, req.Low, req.High)
	case "in_range":
		flag, ferr := s.cmp.InRange(a, req.Low, req.High)
		s.writeBool(w, flag, ferr)
		return
	default:
		err = fmt.Errorf("%w: %q", bfvint.ErrUnknownOperation, req.Op)
	}
	s.writeInt(w, v, err)
}

// ReduceRequest folds Values with sum, min, max, argmin or argmax.
type ReduceRequest struct {
	Op     string   `json:"op"`
	Values [][]byte `json:"values"`
}

func (s *Server) handleReduce(w http.ResponseWriter, r *http.Request) {
	var req ReduceRequest
	if !decode(w, r, &req) {
		return
	}

	values := make([]*bfvint.EncryptedInt, len(req.Values))
	for i, data := range req.Values {
		v, err := bfvint.UnmarshalEncryptedInt(s.ctx, data)
		if err != nil {
			writeError(w, fmt.Errorf("values[%d]: %w", i, err))
			return
		}
		values[i] = v
	}

	var (
		v   *bfvint.EncryptedInt
		err error
	)
	switch req.Op {
	case "sum":
		v, err = s.arith.Sum(values)
	case "min":
		v, err = s.cmp.MinVector(values)
	case "max":
		v, err = s.cmp.MaxVector(values)
	case "argmin":
		v, err = s.cmp.Argmin(values)
	case "argmax":
		v, err = s.cmp.Argmax(values)
	default:
		err = fmt.Errorf("%w: %q", bfvint.ErrUnknownOperation, req.Op)
	}
	s.writeInt(w, v, err)
}
