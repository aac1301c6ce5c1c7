// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"math"
	"time"
)

// Noise budget defaults and per-operation costs. The costs are calibrated
// heuristics: they rank operations by how fast they consume the real BFV
// noise budget, they do not measure it.
const (
	// DefaultNoiseBudget is the budget of a freshly encrypted value when the
	// parameters do not declare a multiplicative depth.
	DefaultNoiseBudget = 50.0
	// CriticalRatio places the refresh threshold at 20% of the initial budget.
	CriticalRatio = 0.2

	CostAdd      = 1.0
	CostSubtract = 1.0
	CostMultiply = 5.0
	CostNegate   = 2.0
	// CostSignExtraction is charged by every ordering or equality test.
	CostSignExtraction = 3.0
)

// budgetPerLevel is what one multiplicative level is worth: a
// multiplication and an addition. It is below CostMultiply/(1-CriticalRatio),
// so the depth-th sequential multiplication always crosses the threshold.
const budgetPerLevel = CostMultiply + CostAdd

// BudgetForDepth returns the initial budget for parameters that survive depth
// sequential multiplications. A value that does not need a refresh has at
// most depth-1 multiplications behind it, so one more still decrypts.
// A non-positive depth yields DefaultNoiseBudget.
func BudgetForDepth(depth int) float64 {
	if depth <= 0 {
		return DefaultNoiseBudget
	}
	return budgetPerLevel * float64(depth)
}

// NoiseBudget tracks the abstract noise resource of one encrypted value.
// Current never drops below zero.
type NoiseBudget struct {
	Initial           float64
	Current           float64
	CriticalThreshold float64
	Operations        uint64
	CreatedAt         time.Time
}

// NewNoiseBudget returns a full budget with the threshold at CriticalRatio.
func NewNoiseBudget(initial float64) NoiseBudget {
	if initial < 0 {
		initial = 0
	}
	return NoiseBudget{
		Initial:           initial,
		Current:           initial,
		CriticalThreshold: initial * CriticalRatio,
		CreatedAt:         time.Now(),
	}
}

// NeedsRefresh reports whether the budget fell below the critical threshold.
func (b NoiseBudget) NeedsRefresh() bool {
	return b.Current < b.CriticalThreshold
}

// Consumed returns how much of the initial budget is gone.
func (b NoiseBudget) Consumed() float64 {
	return b.Initial - b.Current
}

// Fraction returns Current/Initial, or 0 for an empty budget.
func (b NoiseBudget) Fraction() float64 {
	if b.Initial == 0 {
		return 0
	}
	return b.Current / b.Initial
}

func (b NoiseBudget) String() string {
	return fmt.Sprintf("%.1f/%.1f (threshold %.1f, %d ops)", b.Current, b.Initial, b.CriticalThreshold, b.Operations)
}

// deduct charges cost against the budget, clamping at zero.
func (b *NoiseBudget) deduct(cost float64) {
	b.Current = math.Max(0, b.Current-cost)
	b.Operations++
}

// reset restores the budget after a refresh.
func (b *NoiseBudget) reset() {
	b.Current = b.Initial
	b.Operations = 0
}

// resultBudget derives the budget of an operation result: the weakest operand
// minus cost, keeping the largest initial budget as the refresh ceiling.
func resultBudget(cost float64, operands ...NoiseBudget) NoiseBudget {
	if len(operands) == 0 {
		b := NewNoiseBudget(DefaultNoiseBudget)
		b.deduct(cost)
		return b
	}

	initial := operands[0].Initial
	current := operands[0].Current
	threshold := operands[0].CriticalThreshold
	var ops uint64
	for _, op := range operands {
		initial = math.Max(initial, op.Initial)
		current = math.Min(current, op.Current)
		threshold = math.Max(threshold, op.CriticalThreshold)
		if op.Operations > ops {
			ops = op.Operations
		}
	}

	b := NoiseBudget{
		Initial:           initial,
		Current:           current,
		CriticalThreshold: threshold,
		Operations:        ops,
		CreatedAt:         time.Now(),
	}
	b.deduct(cost)
	return b
}
