// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

package main

import (
	"log"

	"github.com/luxfi/bfvint"
)

func startProfiling(cpu, mem, mutex string) (func(), error) {
	p := bfvint.NewProfiler(bfvint.ProfileConfig{
		CPUProfile:   cpu,
		MemProfile:   mem,
		MutexProfile: mutex,
	})
	if err := p.Start(); err != nil {
		return nil, err
	}
	return func() {
		report, err := p.Stop()
		if err != nil {
			log.Printf("Profiler stop: %v", err)
			return
		}
		log.Printf("Profiled %s: heap %d B, total alloc %d B, %d GCs, wrote %v",
			report.Duration, report.HeapAlloc, report.TotalAlloc, report.NumGC, report.Written)
	}, nil
}
