// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package ops provides the differentiable operators.
//
// Every operator takes the engine it runs on. While a scope is open the call
// is recorded, and Scope.Gradients can differentiate through it.
package ops

import (
	"github.com/born-ml/segmentgrad/autodiff"
	internalops "github.com/born-ml/segmentgrad/internal/autodiff/ops"
	"github.com/born-ml/segmentgrad/tensor"
)

// OpDef describes a registered operator.
type OpDef = internalops.OpDef

// Gather selects slices of x along axis. See the internal package for the
// gradient definition.
func Gather(e *autodiff.Engine, x, indices any, axis int) (*tensor.RawTensor, error) {
	return internalops.Gather(e, x, indices, axis)
}

// UnsortedSegmentSum sums the rows of x sharing a segment id.
func UnsortedSegmentSum(e *autodiff.Engine, x, segmentIDs any, numSegments int) (*tensor.RawTensor, error) {
	return internalops.UnsortedSegmentSum(e, x, segmentIDs, numSegments)
}

// GatherDropNegatives gathers rows of x, yielding zero rows for negative indices.
func GatherDropNegatives(e *autodiff.Engine, x, indices *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.GatherDropNegatives(e, x, indices)
}

// Add computes a + b for equally shaped tensors.
func Add(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.Add(e, a, b)
}

// Maximum computes max(a, b) with broadcasting.
func Maximum(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.Maximum(e, a, b)
}

// GreaterEqual computes a >= b with broadcasting.
func GreaterEqual(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.GreaterEqual(e, a, b)
}

// LogicalAnd computes a && b on bool tensors.
func LogicalAnd(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.LogicalAnd(e, a, b)
}

// Where selects a where condition holds and b elsewhere.
func Where(e *autodiff.Engine, condition, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.Where(e, condition, a, b)
}

// Reshape changes the shape of x.
func Reshape(e *autodiff.Engine, x *tensor.RawTensor, shape tensor.Shape) (*tensor.RawTensor, error) {
	return internalops.Reshape(e, x, shape)
}

// Transpose permutes the axes of x.
func Transpose(e *autodiff.Engine, x *tensor.RawTensor, perm ...int) (*tensor.RawTensor, error) {
	return internalops.Transpose(e, x, perm...)
}

// ExpandDims inserts a size-1 axis.
func ExpandDims(e *autodiff.Engine, x *tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	return internalops.ExpandDims(e, x, axis)
}

// Sum reduces x to a scalar.
func Sum(e *autodiff.Engine, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return internalops.Sum(e, x)
}

// Fill creates a constant tensor.
func Fill(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType, value float64) (*tensor.RawTensor, error) {
	return internalops.Fill(e, shape, dtype, value)
}

// Zeros creates a zero tensor.
func Zeros(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return internalops.Zeros(e, shape, dtype)
}

// Ones creates a tensor of ones.
func Ones(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return internalops.Ones(e, shape, dtype)
}

// Registry returns every operator definition keyed by name.
func Registry() (map[string]OpDef, error) {
	return internalops.Registry()
}

// Lookup returns the definition of the named operator.
func Lookup(name string) (OpDef, bool) {
	return internalops.Lookup(name)
}

// All returns every operator definition in registration order.
func All() []OpDef {
	return internalops.All()
}
