package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Add computes a + b for tensors of the same shape and dtype.
//
// Backward: d(a+b)/da = 1, d(a+b)/db = 1, so both inputs receive dy.
func Add(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if !a.Shape().Equal(b.Shape()) {
		return nil, tensor.InvalidArgumentf(KernelAdd, "shapes must match, got %v and %v", a.Shape(), b.Shape())
	}
	if a.DType() != b.DType() {
		return nil, tensor.InvalidArgumentf(KernelAdd, "dtypes must match, got %s and %s", a.DType(), b.DType())
	}
	return e.RunKernel(KernelAdd,
		func(be tensor.Backend) *tensor.RawTensor { return be.Add(a, b) },
		map[string]*tensor.RawTensor{"a": a, "b": b},
		addGrad{})
}

type addGrad struct{}

func (addGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"a": identity{dy}, "b": identity{dy}}
}
