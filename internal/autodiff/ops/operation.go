// Package ops defines the differentiable operators built on autodiff.Engine.
//
// Each operator validates its arguments, then calls Engine.RunKernel with
//   - a forward closure invoking one backend kernel, and
//   - a GradFunc value describing how the output gradient flows back to each
//     differentiable input.
//
// Gradients are expressed with other operators rather than hand-written
// kernels: the gradient of Gather is an UnsortedSegmentSum, and the gradient of
// UnsortedSegmentSum is GatherDropNegatives.
package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Kernel names, as recorded on the tape.
const (
	KernelGather             = "Gather"
	KernelUnsortedSegmentSum = "UnsortedSegmentSum"
	KernelAdd                = "Add"
	KernelMaximum            = "Maximum"
	KernelGreaterEqual       = "GreaterEqual"
	KernelLogicalAnd         = "LogicalAnd"
	KernelWhere              = "Where"
	KernelReshape            = "Reshape"
	KernelTranspose          = "Transpose"
	KernelExpandDims         = "ExpandDims"
	KernelSum                = "Sum"
	KernelFill               = "Fill"
	KernelBroadcastTo        = "BroadcastTo"
)

// identity passes the output gradient through unchanged.
type identity struct {
	dy *tensor.RawTensor
}

func (t identity) Compute(*autodiff.Engine) (*tensor.RawTensor, error) {
	return t.dy, nil
}

func (t identity) String() string {
	return "identity"
}

// toIndices coerces value to an integer index tensor for operator op.
// Existing tensors must already be int32/int64; literals are converted,
// rejecting fractional values.
func toIndices(value any, name, op string) (*tensor.RawTensor, error) {
	if t, ok := value.(*tensor.RawTensor); ok && t != nil {
		if err := tensor.RequireIntegerDType(op, name, t); err != nil {
			return nil, err
		}
		return t, nil
	}
	t, err := tensor.ConvertAny(value, name, op)
	if err != nil {
		return nil, err
	}
	if t.DType().IsInteger() {
		return t, nil
	}
	if t.DType().IsFloat() {
		t.Release()
		return tensor.Convert(value, name, op, tensor.Int32)
	}
	t.Release()
	return nil, tensor.InvalidArgumentf(op, "%s must be an int32 or int64 tensor, got %s", name, t.DType())
}
