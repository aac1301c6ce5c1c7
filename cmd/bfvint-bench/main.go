// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Command bfvint-bench times the comparison-family operations.
//
// Usage:
//
//	bfvint-bench -iterations 20 -op min,max
//	go build -tags profile ./cmd/bfvint-bench && ./bfvint-bench -cpu cpu.prof
//
// Profiling flags (-cpu, -mem, -mutex) only take effect in profile builds.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/luxfi/bfvint"
)

var (
	cpuProfile   = flag.String("cpu", "", "write cpu profile to file")
	memProfile   = flag.String("mem", "", "write memory profile to file")
	mutexProfile = flag.String("mutex", "", "write mutex profile to file")
	iterations   = flag.Int("iterations", 10, "iterations per operation")
	operations   = flag.String("op", "all", "comma separated operations, or all")
	paramsName   = flag.String("params", "PN13T65537", "parameter preset")
	asJSON       = flag.Bool("json", false, "print results as JSON lines")
)

func main() {
	flag.Parse()
	if err := run(os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(out io.Writer) error {
	lit, err := bfvint.PresetByName(*paramsName)
	if err != nil {
		return err
	}
	names, err := selectOperations(*operations)
	if err != nil {
		return err
	}

	ctx, err := bfvint.NewContext(lit)
	if err != nil {
		return fmt.Errorf("create context: %w", err)
	}
	defer ctx.Close()

	arith, err := bfvint.NewArithmeticEngine(ctx)
	if err != nil {
		return err
	}
	cmp, err := bfvint.NewComparisonEngine(arith, bfvint.DefaultComparisonConfig())
	if err != nil {
		return err
	}

	stop, err := startProfiling(*cpuProfile, *memProfile, *mutexProfile)
	if err != nil {
		return err
	}
	defer stop()

	log.Printf("Running %d iterations of %d operations on %s (GOMAXPROCS %d)",
		*iterations, len(names), lit.Name, runtime.GOMAXPROCS(0))

	return benchmark(out, cmp, names, *iterations, *asJSON)
}

// selectOperations expands the -op flag.
func selectOperations(list string) ([]string, error) {
	known := bfvint.BenchmarkOperations()
	if list == "" || list == "all" {
		return known, nil
	}
	var names []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		found := false
		for _, k := range known {
			if k == name {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q", bfvint.ErrUnknownOperation, name)
		}
		names = append(names, name)
	}
	return names, nil
}

func benchmark(out io.Writer, cmp *bfvint.ComparisonEngine, names []string, iterations int, asJSON bool) error {
	enc := json.NewEncoder(out)
	for _, name := range names {
		r, err := cmp.BenchmarkOperation(name, iterations)
		if err != nil {
			return fmt.Errorf("benchmark %s: %w", name, err)
		}
		if asJSON {
			if err := enc.Encode(r); err != nil {
				return err
			}
			continue
		}
		fmt.Fprintln(out, r)
	}
	return nil
}
