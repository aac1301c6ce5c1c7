// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"time"
)

// Boolean gates are integer arithmetic on 0/1 plaintexts. Inputs that are not
// 0 or 1 produce arithmetic garbage; the gates do not check.

// LogicalAnd returns a*b.
func (c *ComparisonEngine) LogicalAnd(a, b *EncryptedBool) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.gate("logical_and", c.and, a, b)
}

// LogicalOr returns a + b - a*b.
func (c *ComparisonEngine) LogicalOr(a, b *EncryptedBool) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.gate("logical_or", c.or, a, b)
}

// LogicalXor returns (a OR b) AND NOT(a AND b).
func (c *ComparisonEngine) LogicalXor(a, b *EncryptedBool) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.gate("logical_xor", c.xor, a, b)
}

// LogicalNot returns 1 - a.
func (c *ComparisonEngine) LogicalNot(a *EncryptedBool) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	if err := c.validateFlags("logical_not", a); err != nil {
		return nil, err
	}
	r, err := c.not(a)
	if err != nil {
		return nil, fmt.Errorf("logical_not: %w", err)
	}
	c.update(func(s *ComparisonStats) { s.BooleanOps++ })
	return r, nil
}

func (c *ComparisonEngine) gate(name string, f func(a, b *EncryptedBool) (*EncryptedBool, error), a, b *EncryptedBool) (*EncryptedBool, error) {
	if err := c.validateFlags(name, a, b); err != nil {
		return nil, err
	}
	r, err := f(a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	c.update(func(s *ComparisonStats) { s.BooleanOps++ })
	return r, nil
}

func (c *ComparisonEngine) and(a, b *EncryptedBool) (*EncryptedBool, error) {
	r, err := c.arith.Multiply(a.Int(), b.Int())
	if err != nil {
		return nil, err
	}
	return &EncryptedBool{r}, nil
}

func (c *ComparisonEngine) or(a, b *EncryptedBool) (*EncryptedBool, error) {
	sum, err := c.arith.Add(a.Int(), b.Int())
	if err != nil {
		return nil, err
	}
	prod, err := c.arith.Multiply(a.Int(), b.Int())
	if err != nil {
		return nil, err
	}
	r, err := c.arith.Subtract(sum, prod)
	if err != nil {
		return nil, err
	}
	return &EncryptedBool{r}, nil
}

func (c *ComparisonEngine) xor(a, b *EncryptedBool) (*EncryptedBool, error) {
	either, err := c.or(a, b)
	if err != nil {
		return nil, err
	}
	both, err := c.and(a, b)
	if err != nil {
		return nil, err
	}
	notBoth, err := c.not(both)
	if err != nil {
		return nil, err
	}
	return c.and(either, notBoth)
}

func (c *ComparisonEngine) not(a *EncryptedBool) (*EncryptedBool, error) {
	one, err := NewEncryptedInt(c.ctx, 1)
	if err != nil {
		return nil, err
	}
	r, err := c.arith.Subtract(one, a.Int())
	if err != nil {
		return nil, err
	}
	return &EncryptedBool{r}, nil
}

func (c *ComparisonEngine) validateFlags(op string, flags ...*EncryptedBool) error {
	operands := make([]*EncryptedInt, len(flags))
	for i, f := range flags {
		if f == nil {
			c.update(func(s *ComparisonStats) { s.ValidationFailures++ })
			return fmt.Errorf("%s: %w: operand %d", op, ErrInvalidOperand, i)
		}
		operands[i] = f.Int()
	}
	return c.validate(op, operands...)
}
