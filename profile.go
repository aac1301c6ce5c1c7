// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build profile

package bfvint

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	"time"
)

// ProfileConfig names the profile files to write. Empty names are skipped.
type ProfileConfig struct {
	CPUProfile   string
	MemProfile   string
	MutexProfile string
}

// ProfileReport summarises a profiling session.
type ProfileReport struct {
	Duration   time.Duration
	Written    []string
	HeapAlloc  uint64
	TotalAlloc uint64
	NumGC      uint32
}

// Profiler captures pprof profiles around a workload such as a benchmark run.
type Profiler struct {
	cfg     ProfileConfig
	cpuFile *os.File
	start   time.Time
}

// NewProfiler creates a profiler for cfg.
func NewProfiler(cfg ProfileConfig) *Profiler {
	return &Profiler{cfg: cfg}
}

// Start enables the requested profiles.
func (p *Profiler) Start() error {
	p.start = time.Now()

	if p.cfg.MutexProfile != "" {
		// Contention on the toolkit pool and value locks shows up here.
		runtime.SetMutexProfileFraction(1)
	}
	if p.cfg.CPUProfile != "" {
		f, err := os.Create(p.cfg.CPUProfile)
		if err != nil {
			return fmt.Errorf("create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("start cpu profile: %w", err)
		}
		p.cpuFile = f
	}
	return nil
}

// Stop writes every requested profile and returns a report.
func (p *Profiler) Stop() (ProfileReport, error) {
	r := ProfileReport{Duration: time.Since(p.start)}

	if p.cpuFile != nil {
		pprof.StopCPUProfile()
		p.cpuFile.Close()
		p.cpuFile = nil
		r.Written = append(r.Written, p.cfg.CPUProfile)
	}
	if p.cfg.MemProfile != "" {
		runtime.GC()
		if err := writeProfile("heap", p.cfg.MemProfile); err != nil {
			return r, err
		}
		r.Written = append(r.Written, p.cfg.MemProfile)
	}
	if p.cfg.MutexProfile != "" {
		if err := writeProfile("mutex", p.cfg.MutexProfile); err != nil {
			return r, err
		}
		runtime.SetMutexProfileFraction(0)
		r.Written = append(r.Written, p.cfg.MutexProfile)
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	r.HeapAlloc, r.TotalAlloc, r.NumGC = m.HeapAlloc, m.TotalAlloc, m.NumGC
	return r, nil
}

func writeProfile(name, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s profile: %w", name, err)
	}
	defer f.Close()
	if err := pprof.Lookup(name).WriteTo(f, 0); err != nil {
		return fmt.Errorf("write %s profile: %w", name, err)
	}
	return nil
}
