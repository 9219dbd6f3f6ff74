package ops

import (
	"fmt"

	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Sum reduces every element of x to a scalar.
//
// Backward: every element of x receives the scalar dy.
func Sum(e *autodiff.Engine, x *tensor.RawTensor) (*tensor.RawTensor, error) {
	if x.DType() == tensor.Bool {
		return nil, tensor.InvalidArgumentf(KernelSum, "cannot sum a bool tensor")
	}
	return e.RunKernel(KernelSum,
		func(b tensor.Backend) *tensor.RawTensor { return b.Sum(x) },
		map[string]*tensor.RawTensor{"x": x},
		sumGrad{shape: x.Shape().Clone()})
}

type sumGrad struct {
	shape tensor.Shape
}

func (g sumGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"x": broadcastTo{t: dy, shape: g.shape}}
}

// broadcastTo expands t to shape by adding it to zeros of that shape.
type broadcastTo struct {
	t     *tensor.RawTensor
	shape tensor.Shape
}

func (bt broadcastTo) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	if _, _, err := tensor.BroadcastShapes(bt.t.Shape(), bt.shape); err != nil {
		return nil, tensor.InvalidArgumentf(KernelBroadcastTo, "%v", err)
	}
	return e.RunKernel(KernelBroadcastTo,
		func(b tensor.Backend) *tensor.RawTensor {
			zeros := b.Fill(bt.shape, bt.t.DType(), 0)
			defer zeros.Release()
			return b.Add(zeros, bt.t)
		},
		nil, nil)
}

func (bt broadcastTo) String() string {
	return fmt.Sprintf("broadcastTo(%v)", bt.shape)
}
