// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// CompareOp selects a binary comparison. The names double as job operation
// codes and HTTP operation names.
type CompareOp string

const (
	CompareGT CompareOp = "greater_than"
	CompareLT CompareOp = "less_than"
	CompareGE CompareOp = "greater_equal"
	CompareLE CompareOp = "less_equal"
	CompareEQ CompareOp = "equal"
	CompareNE CompareOp = "not_equal"
)

// CompareOps lists every comparison in a stable order.
var CompareOps = []CompareOp{CompareGT, CompareLT, CompareGE, CompareLE, CompareEQ, CompareNE}

// ParseCompareOp accepts both the long names and the short forms gt, lt, ge,
// le, eq and ne.
func ParseCompareOp(s string) (CompareOp, error) {
	switch s {
	case "gt", string(CompareGT):
		return CompareGT, nil
	case "lt", string(CompareLT):
		return CompareLT, nil
	case "ge", string(CompareGE):
		return CompareGE, nil
	case "le", string(CompareLE):
		return CompareLE, nil
	case "eq", string(CompareEQ):
		return CompareEQ, nil
	case "ne", string(CompareNE):
		return CompareNE, nil
	}
	return "", fmt.Errorf("%w: comparison %q", ErrUnknownOperation, s)
}

// Eval applies the comparison to plaintexts.
func (op CompareOp) Eval(a, b int64) bool {
	switch op {
	case CompareGT:
		return a > b
	case CompareLT:
		return a < b
	case CompareGE:
		return a >= b
	case CompareLE:
		return a <= b
	case CompareEQ:
		return a == b
	default:
		return a != b
	}
}

// CostConditionalSelect is two multiplications, one subtraction and one
// addition.
const CostConditionalSelect = 2*CostMultiply + CostSubtract + CostAdd

// DefaultConstantTimeTarget is the padding target used by the server and the
// benchmark tool when constant-time mode is requested without a duration.
const DefaultConstantTimeTarget = 50 * time.Millisecond

// ComparisonConfig configures a ComparisonEngine.
type ComparisonConfig struct {
	// VerifyConditions makes ConditionalSelect decrypt its flag and reject
	// anything other than 0 or 1.
	VerifyConditions bool
	// RefreshWatermark and RefreshRatio control tournament reductions: an
	// operand whose budget is below RefreshRatio*RefreshWatermark is
	// refreshed before it is combined. A zero watermark selects the
	// context's initial budget.
	RefreshWatermark float64
	RefreshRatio     float64
	Cache            CacheConfig
}

// DefaultComparisonConfig returns the default configuration. The cache starts
// disabled.
func DefaultComparisonConfig() ComparisonConfig {
	return ComparisonConfig{
		VerifyConditions: true,
		RefreshRatio:     0.4,
		Cache:            DefaultCacheConfig(),
	}
}

// ComparisonStats are the running counters of a ComparisonEngine.
type ComparisonStats struct {
	Comparisons             uint64
	ConditionalSelects      uint64
	MinMaxOps               uint64
	BooleanOps              uint64
	CacheHits               uint64
	CacheMisses             uint64
	ConstantTimeOps         uint64
	ValidationFailures      uint64
	Refreshes               uint64
	AverageComparisonTime   time.Duration
	AverageNoiseConsumption float64

	totalComparisonTime time.Duration
	noiseSamples        uint64
}

// comparisonState is shared by an engine and every view derived from it.
type comparisonState struct {
	cache *comparisonCache

	mu    sync.Mutex
	stats ComparisonStats
}

// ComparisonEngine builds comparisons, selection and boolean logic on top of
// an ArithmeticEngine.
//
// SECURITY: sign and zero extraction are decrypt-assisted. The engine
// decrypts the difference of its operands and encrypts the outcome as a
// fresh flag, so confidentiality is broken mid-computation for any party
// that can observe the process. Argmin and Argmax decrypt every input.
// Constant-time mode pads the wall-clock time of top-level calls to a target
// duration; it hides dispatch latency only and is not a constant-time
// guarantee for the circuits themselves.
type ComparisonEngine struct {
	arith *ArithmeticEngine
	ctx   *Context
	cfg   ComparisonConfig
	state *comparisonState

	// padTo > 0 enables constant-time padding.
	padTo       time.Duration
	bypassCache bool
}

// NewComparisonEngine creates an engine on top of arith.
func NewComparisonEngine(arith *ArithmeticEngine, cfg ComparisonConfig) (*ComparisonEngine, error) {
	if arith == nil {
		return nil, ErrContextNotInitialized
	}
	if err := arith.ctx.ready(); err != nil {
		return nil, err
	}
	if cfg.RefreshWatermark <= 0 {
		cfg.RefreshWatermark = arith.ctx.InitialBudget()
	}
	if cfg.RefreshRatio <= 0 {
		cfg.RefreshRatio = 0.4
	}
	return &ComparisonEngine{
		arith: arith,
		ctx:   arith.ctx,
		cfg:   cfg,
		state: &comparisonState{cache: newComparisonCache(cfg.Cache)},
	}, nil
}

// ConstantTime returns a view of the engine whose top-level calls take at
// least target. The view shares the cache and statistics. A non-positive
// target disables padding.
func (c *ComparisonEngine) ConstantTime(target time.Duration) *ComparisonEngine {
	view := *c
	view.padTo = target
	return &view
}

// Arithmetic returns the underlying arithmetic engine.
func (c *ComparisonEngine) Arithmetic() *ArithmeticEngine {
	return c.arith
}

// Config returns the engine configuration.
func (c *ComparisonEngine) Config() ComparisonConfig {
	cfg := c.cfg
	cfg.Cache = c.state.cache.config()
	return cfg
}

// ========== Comparisons ==========

// GreaterThan returns a > b.
func (c *ComparisonEngine) GreaterThan(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareGT, a, b)
}

// LessThan returns a < b.
func (c *ComparisonEngine) LessThan(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareLT, a, b)
}

// GreaterEqual returns a >= b.
func (c *ComparisonEngine) GreaterEqual(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareGE, a, b)
}

// LessEqual returns a <= b.
func (c *ComparisonEngine) LessEqual(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareLE, a, b)
}

// Equal returns a == b.
func (c *ComparisonEngine) Equal(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareEQ, a, b)
}

// NotEqual returns a != b.
func (c *ComparisonEngine) NotEqual(a, b *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(CompareNE, a, b)
}

// Compare dispatches on op.
func (c *ComparisonEngine) Compare(a, b *EncryptedInt, op CompareOp) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compare(op, a, b)
}

// CompareConstant compares a against the plaintext k. k is encrypted only
// when the result is not cached.
func (c *ComparisonEngine) CompareConstant(a *EncryptedInt, k int64, op CompareOp) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compareConstant(a, k, op)
}

// IsPositive returns v > 0.
func (c *ComparisonEngine) IsPositive(v *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compareConstant(v, 0, CompareGT)
}

// IsNegative returns v < 0.
func (c *ComparisonEngine) IsNegative(v *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compareConstant(v, 0, CompareLT)
}

// IsZero returns v == 0.
func (c *ComparisonEngine) IsZero(v *EncryptedInt) (*EncryptedBool, error) {
	defer c.pad(time.Now())
	return c.compareConstant(v, 0, CompareEQ)
}

func (c *ComparisonEngine) compareConstant(a *EncryptedInt, k int64, op CompareOp) (*EncryptedBool, error) {
	if err := c.validate(string(op), a); err != nil {
		return nil, err
	}
	return c.cachedCompare(op, a,
		func() (string, error) { return constantCacheKey(string(op), a, k) },
		func() (*EncryptedInt, error) { return NewEncryptedInt(c.ctx, k) })
}

// compare validates, consults the cache and evaluates one comparison.
func (c *ComparisonEngine) compare(op CompareOp, a, b *EncryptedInt) (*EncryptedBool, error) {
	if err := c.validate(string(op), a, b); err != nil {
		return nil, err
	}
	return c.cachedCompare(op, a,
		func() (string, error) { return cacheKey(string(op), a, b) },
		func() (*EncryptedInt, error) { return b, nil })
}

// cachedCompare looks the comparison up by key and, on a miss, resolves the
// right operand and evaluates op. A constant operand is only encrypted on a
// miss.
func (c *ComparisonEngine) cachedCompare(op CompareOp, a *EncryptedInt, key func() (string, error), rhs func() (*EncryptedInt, error)) (*EncryptedBool, error) {
	useCache := !c.bypassCache && c.state.cache.enabled()
	var k string
	if useCache {
		var err error
		if k, err = key(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if hit, ok := c.state.cache.get(k); ok {
			c.update(func(s *ComparisonStats) { s.CacheHits++ })
			return hit, nil
		}
		c.update(func(s *ComparisonStats) { s.CacheMisses++ })
	}

	b, err := rhs()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	start := time.Now()
	r, err := c.evalCompare(op, a, b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	elapsed := time.Since(start)

	consumed := math.Min(a.NoiseBudget().Current, b.NoiseBudget().Current) - r.NoiseBudget().Current
	c.update(func(s *ComparisonStats) {
		s.Comparisons++
		s.totalComparisonTime += elapsed
		s.AverageComparisonTime = s.totalComparisonTime / time.Duration(s.Comparisons)
		s.observeNoise(consumed)
	})

	if useCache {
		c.state.cache.put(k, r)
	}
	return r, nil
}

func (c *ComparisonEngine) evalCompare(op CompareOp, a, b *EncryptedInt) (*EncryptedBool, error) {
	switch op {
	case CompareGT:
		return c.signTest(a, b)
	case CompareLT:
		return c.signTest(b, a)
	case CompareGE:
		lt, err := c.signTest(b, a)
		if err != nil {
			return nil, err
		}
		return c.not(lt)
	case CompareLE:
		gt, err := c.signTest(a, b)
		if err != nil {
			return nil, err
		}
		return c.not(gt)
	case CompareEQ:
		return c.zeroTest(a, b)
	case CompareNE:
		eq, err := c.zeroTest(a, b)
		if err != nil {
			return nil, err
		}
		return c.not(eq)
	default:
		return nil, fmt.Errorf("%w: comparison %q", ErrUnknownOperation, op)
	}
}

// signTest returns a - b > 0.
func (c *ComparisonEngine) signTest(a, b *EncryptedInt) (*EncryptedBool, error) {
	diff, err := c.arith.Subtract(a, b)
	if err != nil {
		return nil, err
	}
	return c.extractPredicate(diff, func(x int64) bool { return x > 0 })
}

// zeroTest returns a - b == 0.
func (c *ComparisonEngine) zeroTest(a, b *EncryptedInt) (*EncryptedBool, error) {
	diff, err := c.arith.Subtract(a, b)
	if err != nil {
		return nil, err
	}
	return c.extractPredicate(diff, func(x int64) bool { return x == 0 })
}

// extractPredicate evaluates pred on the plaintext of v and returns the
// outcome as a fresh flag whose budget is v's budget minus
// CostSignExtraction. It is the only place a comparison reads plaintext.
func (c *ComparisonEngine) extractPredicate(v *EncryptedInt, pred func(int64) bool) (*EncryptedBool, error) {
	ct, _, budget := v.snapshot()
	x, err := c.ctx.DecryptInt(ct)
	if err != nil {
		return nil, fmt.Errorf("sign extraction: %w", err)
	}
	fresh, err := c.ctx.Encrypt(boolToInt(pred(x)))
	if err != nil {
		return nil, fmt.Errorf("sign extraction: %w", err)
	}
	return &EncryptedBool{&EncryptedInt{
		ct:     fresh,
		ctx:    c.ctx,
		budget: resultBudget(CostSignExtraction, budget),
	}}, nil
}

// ========== Statistics ==========

// Statistics returns a copy of the running counters.
func (c *ComparisonEngine) Statistics() ComparisonStats {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.stats
}

// ResetStatistics zeroes every counter. Cache contents are kept.
func (c *ComparisonEngine) ResetStatistics() {
	c.state.mu.Lock()
	c.state.stats = ComparisonStats{}
	c.state.mu.Unlock()
}

func (c *ComparisonEngine) update(f func(s *ComparisonStats)) {
	c.state.mu.Lock()
	f(&c.state.stats)
	c.state.mu.Unlock()
}

func (s *ComparisonStats) observeNoise(consumed float64) {
	s.noiseSamples++
	s.AverageNoiseConsumption += (consumed - s.AverageNoiseConsumption) / float64(s.noiseSamples)
}

// validate checks operands before any primitive runs and counts failures.
func (c *ComparisonEngine) validate(op string, operands ...*EncryptedInt) error {
	for i, v := range operands {
		if !v.IsValid() {
			c.update(func(s *ComparisonStats) { s.ValidationFailures++ })
			return fmt.Errorf("%s: %w: operand %d", op, ErrInvalidOperand, i)
		}
		if v.Context() != c.ctx {
			c.update(func(s *ComparisonStats) { s.ValidationFailures++ })
			return fmt.Errorf("%s: %w: operand %d", op, ErrContextMismatch, i)
		}
	}
	return nil
}

// pad sleeps until padTo has elapsed since start.
func (c *ComparisonEngine) pad(start time.Time) {
	if c.padTo <= 0 {
		return
	}
	if rem := c.padTo - time.Since(start); rem > 0 {
		time.Sleep(rem)
	}
	c.update(func(s *ComparisonStats) { s.ConstantTimeOps++ })
}
