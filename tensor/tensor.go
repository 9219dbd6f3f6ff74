// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// RawTensor is an immutable n-dimensional array with a reference-counted buffer.
//
// Example:
//
//	raw, _ := tensor.NewRaw(tensor.Shape{2, 3}, tensor.Float32, tensor.CPU)
//	data := raw.AsFloat32()
//	defer raw.Release()
type RawTensor = tensor.RawTensor

// Shape is the size of each dimension. The empty shape is a scalar.
type Shape = tensor.Shape

// DataType is the runtime element type of a tensor.
type DataType = tensor.DataType

// DType is the constraint satisfied by Go element types.
type DType = tensor.DType

// Device identifies where a tensor's buffer lives.
type Device = tensor.Device

// Backend is the set of kernels a compute backend provides.
type Backend = tensor.Backend

// Supported data types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
	Uint8   = tensor.Uint8
	Bool    = tensor.Bool
)

// CPU is the host device.
const CPU = tensor.CPU

// ErrInvalidArgument is wrapped by every argument validation error.
// Test with errors.Is.
var ErrInvalidArgument = tensor.ErrInvalidArgument

// NewRaw allocates a zeroed tensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice copies data into a new tensor of the given shape.
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	return tensor.FromSlice(data, shape, device)
}

// Scalar creates a 0-D tensor.
func Scalar[T DType](value T, device Device) *RawTensor {
	return tensor.Scalar(value, device)
}

// Values returns a copy of the tensor's elements.
func Values[T DType](t *RawTensor) []T {
	return tensor.Values[T](t)
}

// ConvertAny converts a Go literal to a tensor, inferring its dtype.
// Tensors are returned unchanged.
func ConvertAny(value any) (*RawTensor, error) {
	return tensor.ConvertAny(value, "value", "ConvertAny")
}

// Convert converts a Go literal to a tensor of dtype, rejecting values that
// do not convert exactly.
func Convert(value any, dtype DataType) (*RawTensor, error) {
	return tensor.Convert(value, "value", "Convert", dtype)
}
