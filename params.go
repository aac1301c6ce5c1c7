// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

package bfvint

import (
	"fmt"

	"github.com/tuneinsight/lattigo/v6/schemes/bgv"
)

// SecurityLevel represents the target security level of a parameter set
type SecurityLevel int

const (
	// SecurityInsecure marks parameter sets that exist only for fast testing
	SecurityInsecure SecurityLevel = 0
	// Security128 provides 128-bit classical security
	Security128 SecurityLevel = 128
)

func (s SecurityLevel) String() string {
	switch s {
	case SecurityInsecure:
		return "insecure"
	case Security128:
		return "128-bit"
	default:
		return fmt.Sprintf("%d-bit", int(s))
	}
}

// ParametersLiteral is a user-friendly BFV parameter description
type ParametersLiteral struct {
	// Name identifies the preset in logs and benchmark output
	Name string
	// LogN is log2 of the ring degree
	LogN int
	// Q is the ciphertext modulus chain
	Q []uint64
	// P is the auxiliary modulus used by relinearization
	P []uint64
	// LogQ and LogP may be given instead of explicit primes
	LogQ []int
	LogP []int
	// PlaintextModulus must satisfy t = 1 mod 2N for full batching
	PlaintextModulus uint64
	// MaxDepth is the number of sequential ciphertext multiplications a
	// fresh value survives. It sizes the initial noise budget; zero selects
	// DefaultNoiseBudget.
	MaxDepth int
	// Security is informative only; it is not enforced
	Security SecurityLevel
}

// Standard parameter sets
var (
	// PN14T65537 provides ~128-bit security and the deepest circuits.
	// N=16384, LogQP=438, t=65537
	PN14T65537 = ParametersLiteral{
		Name: "PN14T65537",
		LogN: 14,
		Q: []uint64{0x10000048001, 0x20008001, 0x1ffc8001,
			0x20040001, 0x1ffc0001, 0x1ffb0001,
			0x20068001, 0x1ff60001, 0x200b0001,
			0x200d0001, 0x1ff18001, 0x200f8001},
		P:                []uint64{0x10000140001, 0x7ffffb0001},
		PlaintextModulus: 0x10001,
		MaxDepth:         7,
		Security:         Security128,
	}

	// PN13T65537 provides ~128-bit security. A fifth sequential
	// multiplication no longer decrypts.
	// N=8192, LogQP=218, t=65537
	PN13T65537 = ParametersLiteral{
		Name:             "PN13T65537",
		LogN:             13,
		LogQ:             []int{54, 54, 54},
		LogP:             []int{55},
		PlaintextModulus: 0x10001,
		MaxDepth:         4,
		Security:         Security128,
	}

	// PN10T65537Insecure is for tests only. N=1024 gives no security at all.
	PN10T65537Insecure = ParametersLiteral{
		Name:             "PN10T65537Insecure",
		LogN:             10,
		Q:                []uint64{0x3fffffa8001, 0x1000090001, 0x10000c8001, 0x10000f0001, 0xffff00001},
		P:                []uint64{0x7fffffd8001},
		PlaintextModulus: 0x10001,
		MaxDepth:         4,
		Security:         SecurityInsecure,
	}
)

// Presets lists the named parameter sets.
var Presets = []ParametersLiteral{PN14T65537, PN13T65537, PN10T65537Insecure}

// PresetByName looks up a preset by its Name.
func PresetByName(name string) (ParametersLiteral, error) {
	for _, p := range Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return ParametersLiteral{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidParameters, name)
}

// NewParametersFromLiteral creates lattigo BGV parameters from a literal
// description. The context evaluates them in scale-invariant (BFV) mode.
func NewParametersFromLiteral(lit ParametersLiteral) (bgv.Parameters, error) {
	if lit.LogN == 0 {
		return bgv.Parameters{}, fmt.Errorf("%w: LogN must be set", ErrInvalidParameters)
	}
	if lit.PlaintextModulus < 2 {
		return bgv.Parameters{}, fmt.Errorf("%w: plaintext modulus must be >= 2", ErrInvalidParameters)
	}
	if lit.MaxDepth < 0 {
		return bgv.Parameters{}, fmt.Errorf("%w: negative MaxDepth", ErrInvalidParameters)
	}

	params, err := bgv.NewParametersFromLiteral(bgv.ParametersLiteral{
		LogN:             lit.LogN,
		Q:                lit.Q,
		P:                lit.P,
		LogQ:             lit.LogQ,
		LogP:             lit.LogP,
		PlaintextModulus: lit.PlaintextModulus,
	})
	if err != nil {
		return bgv.Parameters{}, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return params, nil
}

// ParametersInfo exposes the scheme parameters the engines depend on.
type ParametersInfo struct {
	Name             string
	LogN             int
	BatchSize        int
	PlaintextModulus uint64
	MaxDepth         int
	InitialBudget    float64
	Security         SecurityLevel
}

// SafeRange returns the largest magnitude that is considered safe from
// wraparound: a quarter of the plaintext modulus, symmetric about zero.
func (p ParametersInfo) SafeRange() int64 {
	return int64(p.PlaintextModulus / 4)
}
