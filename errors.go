// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import "errors"

// Common errors.
var (
	ErrInvalidParameters     = errors.New("invalid BFV parameters")
	ErrContextNotInitialized = errors.New("encryption context not initialized")
	ErrContextMismatch       = errors.New("operands belong to different encryption contexts")
	ErrInvalidOperand        = errors.New("invalid encrypted operand")
	ErrBatchTooLarge         = errors.New("batch exceeds context batch capacity")
	ErrLengthMismatch        = errors.New("batch lengths differ")
	ErrEmptyInput            = errors.New("empty input")
	ErrNotBoolean            = errors.New("value is not a boolean (0 or 1)")
	ErrUnknownOperation      = errors.New("unknown operation")
	ErrMalformedEncoding     = errors.New("malformed value encoding")
)
