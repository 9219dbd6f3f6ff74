package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Where selects a where condition is true and b elsewhere (with broadcasting).
//
// Backward:
//
//	grad_a = where(cond, dy, 0)
//	grad_b = where(cond, 0, dy)
//
// The condition has no gradient.
func Where(e *autodiff.Engine, condition, a, b *tensor.RawTensor) (*tensor.RawTensor, error) {
	if condition.DType() != tensor.Bool {
		return nil, tensor.InvalidArgumentf(KernelWhere, "condition must be bool, got %s", condition.DType())
	}
	if err := requireSameDType(KernelWhere, a, b); err != nil {
		return nil, err
	}
	return e.RunKernel(KernelWhere,
		func(be tensor.Backend) *tensor.RawTensor { return be.Where(condition, a, b) },
		map[string]*tensor.RawTensor{"condition": condition, "a": a, "b": b},
		whereGrad{condition: condition, a: a, b: b})
}

type whereGrad struct {
	condition, a, b *tensor.RawTensor
}

func (g whereGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{
		"a": whereGradInput{dy: dy, condition: g.condition, input: g.a, takeTrue: true},
		"b": whereGradInput{dy: dy, condition: g.condition, input: g.b},
	}
}

// whereGradInput masks dy to the positions the input was selected at.
type whereGradInput struct {
	dy, condition, input *tensor.RawTensor
	takeTrue             bool
}

func (t whereGradInput) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	if !t.input.Shape().Equal(t.dy.Shape()) {
		return nil, tensor.InvalidArgumentf(KernelWhere,
			"gradient of broadcast operand %v to %v is not supported", t.input.Shape(), t.dy.Shape())
	}
	zeros, err := ZerosLike(e, t.dy, t.dy.DType())
	if err != nil {
		return nil, err
	}
	defer e.DisposeIntermediates(zeros)
	if t.takeTrue {
		return Where(e, t.condition, t.dy, zeros)
	}
	return Where(e, t.condition, zeros, t.dy)
}

func (t whereGradInput) String() string {
	if t.takeTrue {
		return "whereGrad(a)"
	}
	return "whereGrad(b)"
}
