package autodiff

import "github.com/born-ml/segmentgrad/internal/tensor"

// ForwardFunc computes a kernel's result on the given backend.
// It must not depend on anything but its captured arguments and b.
type ForwardFunc func(b tensor.Backend) *tensor.RawTensor

// Thunk lazily computes the gradient of one operation input.
//
// Thunks are small values holding only the tensors and parameters they need.
// The engine calls Compute only for inputs that lie on a path to a requested
// gradient, so non-differentiable inputs (e.g. integer indices) are never
// evaluated.
type Thunk interface {
	Compute(e *Engine) (*tensor.RawTensor, error)
}

// GradFunc maps the gradient of an operation's output to per-input thunks.
//
// The returned map is keyed by the input names passed to RunKernel. Inputs
// missing from the map are treated as non-differentiable.
type GradFunc interface {
	Grads(dy *tensor.RawTensor) map[string]Thunk
}
