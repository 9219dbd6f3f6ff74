package ops

import (
	"fmt"

	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Transpose permutes the dimensions of x: output dimension i is input
// dimension perm[i]. With no perm, dimensions are reversed.
//
// Backward: transpose dy by the inverse permutation.
func Transpose(e *autodiff.Engine, x *tensor.RawTensor, perm ...int) (*tensor.RawTensor, error) {
	ndim := x.Rank()
	if len(perm) == 0 {
		perm = make([]int, ndim)
		for i := range perm {
			perm[i] = ndim - 1 - i
		}
	}
	if len(perm) != ndim || !tensor.IsPermutation(perm) {
		return nil, tensor.InvalidArgumentf(KernelTranspose, "perm %v is not a permutation of the %d axes of %v", perm, ndim, x.Shape())
	}
	perm = append([]int(nil), perm...)
	return e.RunKernel(KernelTranspose,
		func(b tensor.Backend) *tensor.RawTensor { return b.Transpose(x, perm...) },
		map[string]*tensor.RawTensor{"x": x},
		transposeGrad{perm: perm})
}

type transposeGrad struct {
	perm []int
}

func (g transposeGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"x": transposeGradX{dy: dy, perm: g.perm}}
}

type transposeGradX struct {
	dy   *tensor.RawTensor
	perm []int
}

func (t transposeGradX) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	return Transpose(e, t.dy, tensor.InversePermutation(t.perm)...)
}

func (t transposeGradX) String() string {
	return fmt.Sprintf("transposeGrad(perm=%v)", t.perm)
}
