// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package bfvint implements signed integer arithmetic and comparisons over
// BFV ciphertexts, with an abstract noise budget carried by every value.
//
// This implementation is built on lattigo primitives:
//   - schemes/bgv: parameters, encoder and the scale-invariant evaluator
//   - core/rlwe: key generation, encryption and decryption
//
// A Context owns the keys and the lattigo tooling. Values (EncryptedInt,
// EncryptedBool, EncryptedBatch) remember their context and their
// NoiseBudget. The ArithmeticEngine adds, subtracts, multiplies and negates
// values and charges each result a fixed cost below its weakest operand. The
// ComparisonEngine builds comparisons, conditional selection, min/max,
// boolean logic and tournament reductions on top of it.
//
// Values whose budget falls below CriticalRatio of the initial budget report
// NeedsRefresh. Refresh re-encrypts the plaintext with the context keys and
// restores a full budget; it is a decrypt-and-re-encrypt operation, not
// bootstrapping.
//
// See the SECURITY note on ComparisonEngine: comparisons are decrypt-assisted
// and are not confidential against an observer of the evaluating process.
package bfvint
