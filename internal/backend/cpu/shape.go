package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Reshape returns a copy of x with a new shape holding the same number of elements.
func (cpu *CPUBackend) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		exceptions.Panicf("reshape: invalid shape: %v", err)
	}
	if x.NumElements() != newShape.NumElements() {
		exceptions.Panicf("reshape: incompatible shapes: %v -> %v (different number of elements)",
			x.Shape(), newShape)
	}

	result := cpu.newResult("reshape", newShape, x.DType())
	copy(result.Data(), x.Data())
	return result
}

// ExpandDims inserts a dimension of size 1 at axis.
// axis may be negative and ranges over [-(rank+1), rank].
func (cpu *CPUBackend) ExpandDims(x *tensor.RawTensor, axis int) *tensor.RawTensor {
	rank := x.Rank()
	if axis < 0 {
		axis += rank + 1
	}
	if axis < 0 || axis > rank {
		exceptions.Panicf("expandDims: invalid axis %d for %dD tensor", axis, rank)
	}
	shape := x.Shape()
	newShape := shape[:axis].Concat(tensor.Shape{1}, shape[axis:])
	return cpu.Reshape(x, newShape)
}

// Transpose permutes the dimensions of x: output dimension i is input dimension axes[i].
// With no axes, all dimensions are reversed.
func (cpu *CPUBackend) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := x.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		exceptions.Panicf("transpose: axes length %d != ndim %d", len(axes), ndim)
	}
	if !tensor.IsPermutation(axes) {
		exceptions.Panicf("transpose: axes %v are not a permutation of [0, %d)", axes, ndim)
	}

	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		newShape[i] = shape[ax]
	}
	result := cpu.newResult("transpose", newShape, x.DType())

	// srcStrides[i] is the input stride of output dimension i.
	inStrides := shape.ComputeStrides()
	srcStrides := make([]int, ndim)
	for i, ax := range axes {
		srcStrides[i] = inStrides[ax]
	}
	outStrides := newShape.ComputeStrides()

	es := x.DType().Size()
	src, dst := x.Data(), result.Data()
	for i := 0; i < newShape.NumElements(); i++ {
		from := computeFlatIndex(i, outStrides, srcStrides)
		copy(dst[i*es:(i+1)*es], src[from*es:(from+1)*es])
	}
	return result
}
