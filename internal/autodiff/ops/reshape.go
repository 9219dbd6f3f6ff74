package ops

import (
	"fmt"

	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Reshape returns x with a new shape of the same size.
//
// Backward: reshape dy back to the input shape.
func Reshape(e *autodiff.Engine, x *tensor.RawTensor, newShape tensor.Shape) (*tensor.RawTensor, error) {
	if err := newShape.Validate(); err != nil {
		return nil, tensor.InvalidArgumentf(KernelReshape, "%v", err)
	}
	if newShape.NumElements() != x.NumElements() {
		return nil, tensor.InvalidArgumentf(KernelReshape, "cannot reshape %v (%d elements) to %v (%d elements)",
			x.Shape(), x.NumElements(), newShape, newShape.NumElements())
	}
	newShape = newShape.Clone()
	return e.RunKernel(KernelReshape,
		func(b tensor.Backend) *tensor.RawTensor { return b.Reshape(x, newShape) },
		map[string]*tensor.RawTensor{"x": x},
		reshapeGrad{shape: x.Shape().Clone()})
}

// ExpandDims inserts a dimension of size 1 at axis, in [-(rank+1), rank].
//
// Backward: reshape dy back to the input shape.
func ExpandDims(e *autodiff.Engine, x *tensor.RawTensor, axis int) (*tensor.RawTensor, error) {
	axis, err := tensor.NormalizeAxis(KernelExpandDims, axis, x.Rank()+1)
	if err != nil {
		return nil, err
	}
	return e.RunKernel(KernelExpandDims,
		func(b tensor.Backend) *tensor.RawTensor { return b.ExpandDims(x, axis) },
		map[string]*tensor.RawTensor{"x": x},
		reshapeGrad{shape: x.Shape().Clone()})
}

// reshapeGrad restores the input shape on the output gradient.
type reshapeGrad struct {
	shape tensor.Shape
}

func (g reshapeGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"x": reshapeGradX{dy: dy, shape: g.shape}}
}

type reshapeGradX struct {
	dy    *tensor.RawTensor
	shape tensor.Shape
}

func (t reshapeGradX) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	return Reshape(e, t.dy, t.shape)
}

func (t reshapeGradX) String() string {
	return fmt.Sprintf("reshapeGrad(%v)", t.shape)
}
