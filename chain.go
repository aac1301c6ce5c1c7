// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ChainStep is one deferred operation of a Chain. Operand is nil for
// constant and unary steps.
type ChainStep struct {
	Op       Op            `json:"op"`
	Constant int64         `json:"constant,omitempty"`
	Operand  *EncryptedInt `json:"-"`
}

func (s ChainStep) String() string {
	switch {
	case s.Op == OpNegate:
		return string(s.Op)
	case s.Operand != nil:
		return fmt.Sprintf("%s(encrypted)", s.Op)
	default:
		return fmt.Sprintf("%s(%d)", s.Op, s.Constant)
	}
}

// Chain accumulates operations against an initial value without executing
// them. Execute runs them in order and refreshes the intermediate value
// whenever its budget falls below the critical threshold.
type Chain struct {
	engine  *ArithmeticEngine
	initial *EncryptedInt
	steps   []ChainStep
}

// Chain starts a new chain from initial.
func (e *ArithmeticEngine) Chain(initial *EncryptedInt) *Chain {
	return &Chain{engine: e, initial: initial}
}

func (c *Chain) push(s ChainStep) *Chain {
	c.steps = append(c.steps, s)
	return c
}

// Add appends "+ k".
func (c *Chain) Add(k int64) *Chain { return c.push(ChainStep{Op: OpAddConstant, Constant: k}) }

// Subtract appends "- k".
func (c *Chain) Subtract(k int64) *Chain { return c.push(ChainStep{Op: OpSubtractConstant, Constant: k}) }

// Multiply appends "* k".
func (c *Chain) Multiply(k int64) *Chain { return c.push(ChainStep{Op: OpMultiplyConstant, Constant: k}) }

// AddEncrypted appends "+ v".
func (c *Chain) AddEncrypted(v *EncryptedInt) *Chain { return c.push(ChainStep{Op: OpAdd, Operand: v}) }

// SubtractEncrypted appends "- v".
func (c *Chain) SubtractEncrypted(v *EncryptedInt) *Chain {
	return c.push(ChainStep{Op: OpSubtract, Operand: v})
}

// MultiplyEncrypted appends "* v".
func (c *Chain) MultiplyEncrypted(v *EncryptedInt) *Chain {
	return c.push(ChainStep{Op: OpMultiply, Operand: v})
}

// Negate appends a negation.
func (c *Chain) Negate() *Chain { return c.push(ChainStep{Op: OpNegate}) }

// Steps returns a copy of the recorded steps.
func (c *Chain) Steps() []ChainStep {
	return append([]ChainStep(nil), c.steps...)
}

func (c *Chain) String() string {
	parts := make([]string, len(c.steps))
	for i, s := range c.steps {
		parts[i] = s.String()
	}
	return "chain[" + strings.Join(parts, " -> ") + "]"
}

// MarshalJSON encodes the step list. Chains with encrypted operands cannot be
// serialized.
func (c *Chain) MarshalJSON() ([]byte, error) {
	for i, s := range c.steps {
		if s.Operand != nil {
			return nil, fmt.Errorf("chain step %d: encrypted operand is not serializable", i)
		}
	}
	return json.Marshal(c.steps)
}

// LoadSteps replaces the recorded steps with constant-only steps, typically
// decoded from JSON.
func (c *Chain) LoadSteps(steps []ChainStep) error {
	for i, s := range steps {
		switch s.Op {
		case OpAddConstant, OpSubtractConstant, OpMultiplyConstant, OpNegate:
		case OpAdd, OpSubtract, OpMultiply:
			if s.Operand == nil {
				return fmt.Errorf("chain step %d: %w: %s requires an encrypted operand", i, ErrInvalidOperand, s.Op)
			}
		default:
			return fmt.Errorf("chain step %d: %w: %q", i, ErrUnknownOperation, s.Op)
		}
	}
	c.steps = append([]ChainStep(nil), steps...)
	return nil
}

// Execute applies every step in order to a copy of the initial value. Any
// value about to be used while it needs a refresh is refreshed first, so a
// step never runs past the depth the parameters support.
func (c *Chain) Execute() (*EncryptedInt, error) {
	e := c.engine
	if err := e.validate("chain", c.initial); err != nil {
		return nil, err
	}

	current, err := e.refreshIfNeeded(c.initial.Clone())
	if err != nil {
		return nil, fmt.Errorf("chain: %w", err)
	}
	for i, s := range c.steps {
		if s.Operand != nil {
			if s.Operand, err = e.freshEnough(s.Operand); err != nil {
				return nil, fmt.Errorf("chain step %d (%s): %w", i, s, err)
			}
		}
		if current, err = c.apply(s, current); err != nil {
			return nil, fmt.Errorf("chain step %d (%s): %w", i, s, err)
		}
		if current, err = e.refreshIfNeeded(current); err != nil {
			return nil, fmt.Errorf("chain step %d (%s): %w", i, s, err)
		}
	}
	return current, nil
}

func (c *Chain) apply(s ChainStep, v *EncryptedInt) (*EncryptedInt, error) {
	e := c.engine
	switch s.Op {
	case OpAddConstant:
		return e.AddConstant(v, s.Constant)
	case OpSubtractConstant:
		return e.SubtractConstant(v, s.Constant)
	case OpMultiplyConstant:
		return e.MultiplyConstant(v, s.Constant)
	case OpAdd:
		return e.Add(v, s.Operand)
	case OpSubtract:
		return e.Subtract(v, s.Operand)
	case OpMultiply:
		return e.Multiply(v, s.Operand)
	case OpNegate:
		return e.Negate(v)
	default:
		return nil, errors.Join(ErrUnknownOperation, fmt.Errorf("op %q", s.Op))
	}
}
