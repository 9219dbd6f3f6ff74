// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package autodiff provides the engine that runs and differentiates operators.
//
// Example:
//
//	import (
//	    "github.com/born-ml/segmentgrad/autodiff"
//	    "github.com/born-ml/segmentgrad/backend/cpu"
//	    "github.com/born-ml/segmentgrad/ops"
//	)
//
//	func main() {
//	    e := autodiff.New(cpu.New(), autodiff.WithConfig(autodiff.ConfigFromEnv()))
//	    defer e.Close()
//
//	    scope := e.StartScope("step")
//	    defer scope.Close()
//	    y, _ := ops.Gather(e, x, []int32{1, 1, 0}, 0)
//	    grads, _ := scope.Gradients(y, nil, x)
//	}
package autodiff

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/tensor"
)

// Engine dispatches kernels to a backend and records them in scopes.
type Engine = autodiff.Engine

// Scope is a gradient-recording context opened by Engine.StartScope.
type Scope = autodiff.Scope

// TapeEntry is one recorded operation.
type TapeEntry = autodiff.TapeEntry

// GradFunc maps an output gradient to per-input thunks.
type GradFunc = autodiff.GradFunc

// Thunk lazily computes one input gradient.
type Thunk = autodiff.Thunk

// Config holds engine settings.
type Config = autodiff.Config

// Option configures an Engine.
type Option = autodiff.Option

// MemoryInfo is a snapshot of live tensors and tape usage.
type MemoryInfo = autodiff.MemoryInfo

// New creates an engine running kernels on backend.
func New(backend tensor.Backend, opts ...Option) *Engine {
	return autodiff.New(backend, opts...)
}

// WithDebug toggles per-kernel logging.
func WithDebug(on bool) Option { return autodiff.WithDebug(on) }

// WithCheckNumerics toggles NaN/Inf checks on kernel outputs.
func WithCheckNumerics(on bool) Option { return autodiff.WithCheckNumerics(on) }

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option { return autodiff.WithConfig(cfg) }

// ConfigFromEnv reads SEGMENTGRAD_DEBUG and SEGMENTGRAD_CHECK_NUMERICS.
func ConfigFromEnv() Config { return autodiff.ConfigFromEnv() }
