package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Fill creates a tensor of shape and dtype with every element set to value.
// Constructors are not differentiable and are never recorded.
func Fill(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType, value float64) (*tensor.RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, tensor.InvalidArgumentf(KernelFill, "%v", err)
	}
	shape = shape.Clone()
	return e.RunKernel(KernelFill,
		func(b tensor.Backend) *tensor.RawTensor { return b.Fill(shape, dtype, value) },
		nil, nil)
}

// Zeros creates a zero-filled tensor.
func Zeros(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return Fill(e, shape, dtype, 0)
}

// Ones creates a tensor filled with ones (true for Bool).
func Ones(e *autodiff.Engine, shape tensor.Shape, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return Fill(e, shape, dtype, 1)
}

// ZerosLike creates zeros shaped like like.
func ZerosLike(e *autodiff.Engine, like *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return Zeros(e, like.Shape(), dtype)
}

// OnesLike creates ones shaped like like.
func OnesLike(e *autodiff.Engine, like *tensor.RawTensor, dtype tensor.DataType) (*tensor.RawTensor, error) {
	return Ones(e, like.Shape(), dtype)
}
