package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

func add[T number](x, y T) T { return x + y }

func maximum[T number](x, y T) T {
	if y > x {
		return y
	}
	return x
}

func greaterEqual[T number](x, y T) bool { return x >= y }

// broadcastOperands validates that a and b can be combined and returns the output shape.
func broadcastOperands(kernel string, a, b *tensor.RawTensor) tensor.Shape {
	if a.DType() != b.DType() {
		exceptions.Panicf("%s: dtype mismatch: %s vs %s", kernel, a.DType(), b.DType())
	}
	outShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		exceptions.Panicf("%s: %v", kernel, err)
	}
	return outShape
}

// Add performs element-wise addition with NumPy-style broadcasting.
func (cpu *CPUBackend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape := broadcastOperands("add", a, b)
	result := cpu.newResult("add", outShape, a.DType())
	as, bs := a.Shape(), b.Shape()

	switch a.DType() {
	case tensor.Float32:
		broadcastBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), as, bs, outShape, add[float32])
	case tensor.Float64:
		broadcastBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), as, bs, outShape, add[float64])
	case tensor.Int32:
		broadcastBinary(result.AsInt32(), a.AsInt32(), b.AsInt32(), as, bs, outShape, add[int32])
	case tensor.Int64:
		broadcastBinary(result.AsInt64(), a.AsInt64(), b.AsInt64(), as, bs, outShape, add[int64])
	case tensor.Uint8:
		broadcastBinary(tensor.Data[uint8](result), tensor.Data[uint8](a), tensor.Data[uint8](b), as, bs, outShape, add[uint8])
	default:
		exceptions.Panicf("add: unsupported dtype %s", a.DType())
	}
	return result
}

// Maximum returns the element-wise maximum of a and b with broadcasting.
func (cpu *CPUBackend) Maximum(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape := broadcastOperands("maximum", a, b)
	result := cpu.newResult("maximum", outShape, a.DType())
	as, bs := a.Shape(), b.Shape()

	switch a.DType() {
	case tensor.Float32:
		broadcastBinary(result.AsFloat32(), a.AsFloat32(), b.AsFloat32(), as, bs, outShape, maximum[float32])
	case tensor.Float64:
		broadcastBinary(result.AsFloat64(), a.AsFloat64(), b.AsFloat64(), as, bs, outShape, maximum[float64])
	case tensor.Int32:
		broadcastBinary(result.AsInt32(), a.AsInt32(), b.AsInt32(), as, bs, outShape, maximum[int32])
	case tensor.Int64:
		broadcastBinary(result.AsInt64(), a.AsInt64(), b.AsInt64(), as, bs, outShape, maximum[int64])
	case tensor.Uint8:
		broadcastBinary(tensor.Data[uint8](result), tensor.Data[uint8](a), tensor.Data[uint8](b), as, bs, outShape, maximum[uint8])
	default:
		exceptions.Panicf("maximum: unsupported dtype %s", a.DType())
	}
	return result
}

// GreaterEqual compares a >= b element-wise with broadcasting; the result is Bool.
func (cpu *CPUBackend) GreaterEqual(a, b *tensor.RawTensor) *tensor.RawTensor {
	outShape := broadcastOperands("greaterEqual", a, b)
	result := cpu.newResult("greaterEqual", outShape, tensor.Bool)
	dst := result.AsBool()
	as, bs := a.Shape(), b.Shape()

	switch a.DType() {
	case tensor.Float32:
		broadcastBinary(dst, a.AsFloat32(), b.AsFloat32(), as, bs, outShape, greaterEqual[float32])
	case tensor.Float64:
		broadcastBinary(dst, a.AsFloat64(), b.AsFloat64(), as, bs, outShape, greaterEqual[float64])
	case tensor.Int32:
		broadcastBinary(dst, a.AsInt32(), b.AsInt32(), as, bs, outShape, greaterEqual[int32])
	case tensor.Int64:
		broadcastBinary(dst, a.AsInt64(), b.AsInt64(), as, bs, outShape, greaterEqual[int64])
	case tensor.Uint8:
		broadcastBinary(dst, tensor.Data[uint8](a), tensor.Data[uint8](b), as, bs, outShape, greaterEqual[uint8])
	default:
		exceptions.Panicf("greaterEqual: unsupported dtype %s", a.DType())
	}
	return result
}

// And computes the logical AND of two Bool tensors with broadcasting.
func (cpu *CPUBackend) And(a, b *tensor.RawTensor) *tensor.RawTensor {
	if a.DType() != tensor.Bool {
		exceptions.Panicf("and: expected bool tensors, got %s", a.DType())
	}
	outShape := broadcastOperands("and", a, b)
	result := cpu.newResult("and", outShape, tensor.Bool)
	broadcastBinary(result.AsBool(), a.AsBool(), b.AsBool(), a.Shape(), b.Shape(), outShape,
		func(x, y bool) bool { return x && y })
	return result
}
