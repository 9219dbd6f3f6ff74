// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides the pure Go reference backend.
//
// Example:
//
//	import (
//	    "github.com/born-ml/segmentgrad/autodiff"
//	    "github.com/born-ml/segmentgrad/backend/cpu"
//	)
//
//	e := autodiff.New(cpu.New())
package cpu

import (
	internalcpu "github.com/born-ml/segmentgrad/internal/backend/cpu"
	"github.com/born-ml/segmentgrad/tensor"
)

// Backend is the CPU backend implementation.
type Backend = internalcpu.CPUBackend

// Compile-time check that Backend implements tensor.Backend.
var _ tensor.Backend = (*Backend)(nil)

// New creates a new CPU backend.
func New() *Backend {
	return internalcpu.New()
}
