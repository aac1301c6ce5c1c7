// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

func absSigned[T constraints.Signed](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// withinBound reports whether |x| <= bound.
func withinBound[T constraints.Signed](x, bound T) bool {
	return absSigned(x) <= bound
}

// productWithinBound reports whether |a*b| <= bound without overflowing T.
func productWithinBound[T constraints.Signed](a, b, bound T) bool {
	a, b = absSigned(a), absSigned(b)
	if a == 0 || b == 0 {
		return true
	}
	return a <= bound/b
}

// IsInSafeRange decrypts v and reports whether its magnitude is within the
// context's safe range. Values outside it are likely to wrap on the next
// operation.
func (e *ArithmeticEngine) IsInSafeRange(v *EncryptedInt) (bool, error) {
	if err := e.validate("safe range", v); err != nil {
		return false, err
	}
	x, err := v.Decrypt()
	if err != nil {
		return false, fmt.Errorf("safe range: %w", err)
	}
	return withinBound(x, e.ctx.SafeRange()), nil
}

// WillOverflow decrypts both operands and reports whether op applied to them
// would leave the safe range. b is ignored for OpNegate and may be nil.
func (e *ArithmeticEngine) WillOverflow(a, b *EncryptedInt, op Op) (bool, error) {
	switch op {
	case OpAdd, OpSubtract, OpMultiply, OpNegate:
	default:
		return false, fmt.Errorf("will overflow: %w: %q", ErrUnknownOperation, op)
	}

	operands := []*EncryptedInt{a}
	if op != OpNegate {
		operands = append(operands, b)
	}
	if err := e.validate("will overflow", operands...); err != nil {
		return false, err
	}

	x, err := a.Decrypt()
	if err != nil {
		return false, fmt.Errorf("will overflow: %w", err)
	}
	var y int64
	if op != OpNegate {
		if y, err = b.Decrypt(); err != nil {
			return false, fmt.Errorf("will overflow: %w", err)
		}
	}

	bound := e.ctx.SafeRange()
	switch op {
	case OpAdd:
		return !withinBound(x+y, bound), nil
	case OpSubtract:
		return !withinBound(x-y, bound), nil
	case OpMultiply:
		return !productWithinBound(x, y, bound), nil
	default:
		return !withinBound(x, bound), nil
	}
}
