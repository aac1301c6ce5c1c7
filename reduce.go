// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import "fmt"

// treeReduce combines items pairwise, level by level, until one remains.
// Index i is combined with i+1; an odd trailing item is carried to the next
// level unmodified. The longest combination chain is ceil(log2(n)).
func treeReduce[T any](items []T, combine func(a, b T) (T, error)) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyInput
	}

	level := items
	for len(level) > 1 {
		next := make([]T, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			r, err := combine(level[i], level[i+1])
			if err != nil {
				return zero, err
			}
			next = append(next, r)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0], nil
}

// Sum adds values with a pairwise tree so that noise grows with the depth
// of the tree rather than with the number of values.
func (e *ArithmeticEngine) Sum(values []*EncryptedInt) (*EncryptedInt, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("sum: %w", ErrEmptyInput)
	}
	if err := e.validate("sum", values...); err != nil {
		return nil, err
	}
	if len(values) == 1 {
		return values[0].Clone(), nil
	}

	r, err := treeReduce(values, e.Add)
	if err != nil {
		return nil, fmt.Errorf("sum: %w", err)
	}
	return r, nil
}

// DotProduct multiplies a and b element-wise and sums the products.
func (e *ArithmeticEngine) DotProduct(a, b []*EncryptedInt) (*EncryptedInt, error) {
	if len(a) == 0 {
		return nil, fmt.Errorf("dot product: %w", ErrEmptyInput)
	}
	if len(a) != len(b) {
		e.failValidation()
		return nil, fmt.Errorf("dot product: %w: %d vs %d", ErrLengthMismatch, len(a), len(b))
	}

	products := make([]*EncryptedInt, len(a))
	for i := range a {
		p, err := e.Multiply(a[i], b[i])
		if err != nil {
			return nil, fmt.Errorf("dot product: element %d: %w", i, err)
		}
		products[i] = p
	}

	r, err := e.Sum(products)
	if err != nil {
		return nil, fmt.Errorf("dot product: %w", err)
	}
	return r, nil
}

// EvaluatePolynomial evaluates sum(coefficients[i] * x^i) with Horner's
// method: one multiplication per degree. The accumulator is refreshed
// whenever its budget runs low, so any degree decrypts correctly.
func (e *ArithmeticEngine) EvaluatePolynomial(coefficients []int64, x *EncryptedInt) (*EncryptedInt, error) {
	if len(coefficients) == 0 {
		return nil, fmt.Errorf("evaluate polynomial: %w", ErrEmptyInput)
	}
	if err := e.validate("evaluate polynomial", x); err != nil {
		return nil, err
	}
	x, err := e.freshEnough(x)
	if err != nil {
		return nil, fmt.Errorf("evaluate polynomial: %w", err)
	}

	n := len(coefficients) - 1
	acc, err := NewEncryptedInt(e.ctx, coefficients[n])
	if err != nil {
		return nil, fmt.Errorf("evaluate polynomial: %w", err)
	}

	for i := n - 1; i >= 0; i-- {
		if acc, err = e.Multiply(acc, x); err != nil {
			return nil, fmt.Errorf("evaluate polynomial: degree %d: %w", i, err)
		}
		if acc, err = e.AddConstant(acc, coefficients[i]); err != nil {
			return nil, fmt.Errorf("evaluate polynomial: degree %d: %w", i, err)
		}
		if acc, err = e.refreshIfNeeded(acc); err != nil {
			return nil, fmt.Errorf("evaluate polynomial: degree %d: %w", i, err)
		}
	}
	return acc, nil
}
