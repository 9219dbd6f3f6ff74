package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Maximum computes max(a, b) element-wise with broadcasting.
//
// Backward: dy flows to a where a >= b and to b elsewhere. Gradients are only
// defined for an operand that was not broadcast.
func Maximum(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := requireSameDType(KernelMaximum, a, b); err != nil {
		return nil, err
	}
	return e.RunKernel(KernelMaximum,
		func(be tensor.Backend) *tensor.RawTensor { return be.Maximum(a, b) },
		map[string]*tensor.RawTensor{"a": a, "b": b},
		maximumGrad{a: a, b: b})
}

type maximumGrad struct {
	a, b *tensor.RawTensor
}

func (g maximumGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{
		"a": maximumGradInput{dy: dy, a: g.a, b: g.b, first: true},
		"b": maximumGradInput{dy: dy, a: g.a, b: g.b},
	}
}

// maximumGradInput routes dy to a (first) or b; ties go to a.
type maximumGradInput struct {
	dy, a, b *tensor.RawTensor
	first    bool
}

func (t maximumGradInput) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	input := t.b
	if t.first {
		input = t.a
	}
	if !input.Shape().Equal(t.dy.Shape()) {
		return nil, tensor.InvalidArgumentf(KernelMaximum,
			"gradient of broadcast operand %v to %v is not supported", input.Shape(), t.dy.Shape())
	}
	aWins, err := GreaterEqual(e, t.a, t.b)
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(aWins)
	zeros, err := ZerosLike(e, t.dy, t.dy.DType())
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(zeros)
	if t.first {
		return Where(e, aWins, t.dy, zeros)
	}
	return Where(e, aWins, zeros, t.dy)
}

// GreaterEqual computes a >= b element-wise with broadcasting. The Bool
// result is not differentiable, so nothing is recorded.
func GreaterEqual(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if err := requireSameDType(KernelGreaterEqual, a, b); err != nil {
		return nil, err
	}
	return e.RunKernel(KernelGreaterEqual,
		func(be tensor.Backend) *tensor.RawTensor { return be.GreaterEqual(a, b) },
		map[string]*tensor.RawTensor{"a": a, "b": b},
		nil)
}

// LogicalAnd computes a && b for Bool tensors with broadcasting. Not differentiable.
func LogicalAnd(e *autodiff.Engine, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if a.DType() != tensor.Bool || b.DType() != tensor.Bool {
		return nil, tensor.InvalidArgumentf(KernelLogicalAnd, "operands must be bool, got %s and %s", a.DType(), b.DType())
	}
	return e.RunKernel(KernelLogicalAnd,
		func(be tensor.Backend) *tensor.RawTensor { return be.And(a, b) },
		map[string]*tensor.RawTensor{"a": a, "b": b},
		nil)
}

func requireSameDType(op string, a, b *tensor.RawTensor) error {
	if a.DType() != b.DType() {
		return tensor.InvalidArgumentf(op, "dtypes must match, got %s and %s", a.DType(), b.DType())
	}
	if _, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape()); err != nil {
		return tensor.InvalidArgumentf(op, "%v", err)
	}
	return nil
}

func (t maximumGradInput) String() string {
	if t.first {
		return "maximumGrad(a)"
	}
	return "maximumGrad(b)"
}
