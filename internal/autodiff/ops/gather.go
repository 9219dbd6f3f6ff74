package ops

import (
	"fmt"

	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Gather selects slices of x along axis.
//
// x may be a tensor or a Go literal; indices must be an integer tensor or an
// integer-valued literal. axis may be negative (counted from the end). The
// output shape is x.shape[:axis] + indices.shape + x.shape[axis+1:].
//
// Forward: output[..., i, ...] = x[..., indices[i], ...]
//
// Backward:
//
//	axis 0:  dx = UnsortedSegmentSum(dy, indices, x.shape[0])
//	axis k:  move axis k of dy to the front, segment-sum, move it back
//
// Example:
//
//	x:       [[1, 2], [3, 4]]
//	indices: [1, 1, 0], axis 0
//	output:  [[3, 4], [3, 4], [1, 2]]
//	dy:      ones([3, 2])
//	dx:      [[1, 1], [2, 2]]
func Gather(e *autodiff.Engine, x, indices any, axis int) (*tensor.RawTensor, error) {
	xT, err := tensor.ConvertAny(x, "x", KernelGather)
	if err != nil {
		return nil, err
	}
	idx, err := toIndices(indices, "indices", KernelGather)
	if err != nil {
		return nil, err
	}
	axis, err = tensor.NormalizeAxis(KernelGather, axis, xT.Rank())
	if err != nil {
		return nil, err
	}

	return e.RunKernel(KernelGather,
		func(b tensor.Backend) *tensor.RawTensor { return b.Gather(xT, idx, axis) },
		map[string]*tensor.RawTensor{"x": xT, "indices": idx},
		gatherGrad{xShape: xT.Shape().Clone(), indices: idx, axis: axis})
}

// gatherGrad is the GradFunc of Gather. indices has no gradient.
type gatherGrad struct {
	xShape  tensor.Shape
	indices *tensor.RawTensor
	axis    int
}

func (g gatherGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{
		"x": gatherGradX{dy: dy, xShape: g.xShape, indices: g.indices, axis: g.axis},
	}
}

// gatherGradX computes the gradient of Gather with respect to x.
type gatherGradX struct {
	dy      *tensor.RawTensor
	xShape  tensor.Shape
	indices *tensor.RawTensor
	axis    int
}

func (t gatherGradX) String() string {
	return fmt.Sprintf("gatherGrad(axis=%d, x=%v, indices=%v)", t.axis, t.xShape, t.indices.Shape())
}

func (t gatherGradX) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	if t.axis == 0 && t.indices.Rank() == 1 {
		return UnsortedSegmentSum(e, t.dy, t.indices, t.xShape[0])
	}

	outerShape := t.xShape[:t.axis]
	innerShape := t.xShape[t.axis+1:]
	indicesSize := t.indices.NumElements()

	// dy has the forward output shape outer + indices.shape + inner; collapse
	// the indices dimensions into one.
	values, err := Reshape(e, t.dy, outerShape.Concat(tensor.Shape{indicesSize}, innerShape))
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(values)
	flatIndices, err := Reshape(e, t.indices, tensor.Shape{indicesSize})
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(flatIndices)
	perm := tensor.AxesPermutationToFront(t.axis, len(t.xShape))
	transposed, err := Transpose(e, values, perm...)
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(transposed)
	summed, err := UnsortedSegmentSum(e, transposed, flatIndices, t.xShape[t.axis])
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(summed)
	return Transpose(e, summed, tensor.InversePermutation(perm)...)
}
