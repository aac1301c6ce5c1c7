// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"sort"
	"time"

	"github.com/montanaflynn/stats"
)

// Benchmark sentinels.
const (
	benchmarkLHS = 42
	benchmarkRHS = 17
)

// BenchmarkResult summarises the latencies of one benchmarked operation.
type BenchmarkResult struct {
	Operation  string        `json:"operation"`
	Iterations int           `json:"iterations"`
	Average    time.Duration `json:"average"`
	Median     time.Duration `json:"median"`
	P95        time.Duration `json:"p95"`
	StdDev     time.Duration `json:"stddev"`
}

func (r BenchmarkResult) String() string {
	return fmt.Sprintf("%-18s n=%-5d avg=%-12s median=%-12s p95=%-12s stddev=%s",
		r.Operation, r.Iterations, r.Average, r.Median, r.P95, r.StdDev)
}

type benchmarkOperands struct {
	a, b   *EncryptedInt
	yes    *EncryptedBool
	no     *EncryptedBool
	values []*EncryptedInt
}

type benchmarkFunc func(c *ComparisonEngine, o *benchmarkOperands) error

func discard(_ any, err error) error { return err }

var benchmarkOps = map[string]benchmarkFunc{
	"conditional_select": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.ConditionalSelect(o.yes, o.a, o.b))
	},
	"min":     func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Min(o.a, o.b)) },
	"max":     func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Max(o.a, o.b)) },
	"abs":     func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Abs(o.a)) },
	"sign":    func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Sign(o.a)) },
	"is_zero": func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.IsZero(o.a)) },
	"clamp":   func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Clamp(o.a, 0, 20)) },
	"in_range": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.InRange(o.a, 0, 100))
	},
	"logical_and": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.LogicalAnd(o.yes, o.no))
	},
	"logical_or": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.LogicalOr(o.yes, o.no))
	},
	"logical_xor": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.LogicalXor(o.yes, o.no))
	},
	"logical_not": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.LogicalNot(o.yes))
	},
	"tournament_min": func(c *ComparisonEngine, o *benchmarkOperands) error {
		return discard(c.TournamentMinMax(o.values, false))
	},
	"argmax": func(c *ComparisonEngine, o *benchmarkOperands) error { return discard(c.Argmax(o.values)) },
}

func init() {
	for _, op := range CompareOps {
		op := op
		benchmarkOps[string(op)] = func(c *ComparisonEngine, o *benchmarkOperands) error {
			return discard(c.Compare(o.a, o.b, op))
		}
	}
}

// BenchmarkOperations lists the names accepted by BenchmarkOperation.
func BenchmarkOperations() []string {
	names := make([]string, 0, len(benchmarkOps))
	for name := range benchmarkOps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BenchmarkOperation runs the named operation iterations times on fixed
// sentinel operands, bypassing the cache. Padding applies when called on a
// constant-time view.
func (c *ComparisonEngine) BenchmarkOperation(name string, iterations int) (BenchmarkResult, error) {
	run, ok := benchmarkOps[name]
	if !ok {
		return BenchmarkResult{}, fmt.Errorf("benchmark: %w: %q", ErrUnknownOperation, name)
	}
	if iterations <= 0 {
		return BenchmarkResult{}, fmt.Errorf("benchmark: %w: %d iterations", ErrEmptyInput, iterations)
	}

	o, err := c.benchmarkOperands()
	if err != nil {
		return BenchmarkResult{}, fmt.Errorf("benchmark: %w", err)
	}

	view := *c
	view.bypassCache = true

	samples := make([]float64, iterations)
	for i := range samples {
		start := time.Now()
		if err := run(&view, o); err != nil {
			return BenchmarkResult{}, fmt.Errorf("benchmark %s: %w", name, err)
		}
		samples[i] = float64(time.Since(start))
	}

	mean, _ := stats.Mean(samples)
	median, _ := stats.Median(samples)
	p95, _ := stats.Percentile(samples, 95)
	stddev, _ := stats.StandardDeviation(samples)

	return BenchmarkResult{
		Operation:  name,
		Iterations: iterations,
		Average:    time.Duration(mean),
		Median:     time.Duration(median),
		P95:        time.Duration(p95),
		StdDev:     time.Duration(stddev),
	}, nil
}

func (c *ComparisonEngine) benchmarkOperands() (*benchmarkOperands, error) {
	var (
		o   benchmarkOperands
		err error
	)
	if o.a, err = NewEncryptedInt(c.ctx, benchmarkLHS); err != nil {
		return nil, err
	}
	if o.b, err = NewEncryptedInt(c.ctx, benchmarkRHS); err != nil {
		return nil, err
	}
	if o.yes, err = NewEncryptedBool(c.ctx, true); err != nil {
		return nil, err
	}
	if o.no, err = NewEncryptedBool(c.ctx, false); err != nil {
		return nil, err
	}
	o.values = []*EncryptedInt{o.a, o.b, o.a.Clone(), o.b.Clone()}
	return &o, nil
}
