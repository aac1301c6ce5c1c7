// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

//go:build !profile

package main

import "log"

func startProfiling(cpu, mem, mutex string) (func(), error) {
	if cpu != "" || mem != "" || mutex != "" {
		log.Printf("Profiling flags ignored: build with -tags profile")
	}
	return func() {}, nil
}
