package ops

import (
	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

// UnsortedSegmentSum sums the rows of x that share a segment id.
//
// segmentIDs holds one integer id per row of x (length x.shape[0]). The
// output has shape [numSegments] + x.shape[1:]. Rows with a negative id are
// excluded from every segment; segments without rows are zero. Ids at or
// above numSegments are handled by the backend (the CPU backend drops them).
//
// Forward: output[k] = Σ x[i] for segmentIDs[i] == k
//
// Backward: dx = GatherDropNegatives(dy, segmentIDs); segmentIDs has no gradient.
//
// Example:
//
//	x:           [1, 2, 3, 4]
//	segmentIDs:  [1, 2, 0, 1]
//	numSegments: 3
//	output:      [3, 5, 2]
func UnsortedSegmentSum(e *autodiff.Engine, x, segmentIDs any, numSegments int) (*tensor.RawTensor, error) {
	xT, err := tensor.ConvertAny(x, "x", KernelUnsortedSegmentSum)
	if err != nil {
		return nil, err
	}
	ids, err := toIndices(segmentIDs, "segmentIds", KernelUnsortedSegmentSum)
	if err != nil {
		return nil, err
	}
	if numSegments < 0 {
		return nil, tensor.InvalidArgumentf(KernelUnsortedSegmentSum, "numSegments must be a non-negative integer, got %d", numSegments)
	}

	return e.RunKernel(KernelUnsortedSegmentSum,
		func(b tensor.Backend) *tensor.RawTensor { return b.UnsortedSegmentSum(xT, ids, numSegments) },
		map[string]*tensor.RawTensor{"x": xT, "segmentIds": ids},
		segmentSumGrad{segmentIDs: ids})
}

// segmentSumGrad is the GradFunc of UnsortedSegmentSum.
type segmentSumGrad struct {
	segmentIDs *tensor.RawTensor
}

func (g segmentSumGrad) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{
		"x": segmentSumGradX{dy: dy, segmentIDs: g.segmentIDs},
	}
}

// segmentSumGradX gathers each row's segment gradient back to the row.
type segmentSumGradX struct {
	dy         *tensor.RawTensor
	segmentIDs *tensor.RawTensor
}

func (t segmentSumGradX) Compute(e *autodiff.Engine) (*tensor.RawTensor, error) {
	return GatherDropNegatives(e, t.dy, t.segmentIDs)
}

func (t segmentSumGradX) String() string {
	return "segmentSumGrad"
}

// GatherDropNegatives gathers rows of x along axis 0, producing zero rows for
// negative indices instead of reading out of range.
//
//	clipped  = Maximum(indices, 0)
//	gathered = Gather(x, clipped, 0)
//	mask     = GreaterEqual(indices, 0), expanded to gathered's rank
//	result   = Where(mask, gathered, zeros)
//
// When x has no rows there is nothing to read and the result is all zeros.
func GatherDropNegatives(e *autodiff.Engine, x, indices *tensor.RawTensor) (*tensor.RawTensor, error) {
	const op = "GatherDropNegatives"
	if err := tensor.RequireIntegerDType(op, "indices", indices); err != nil {
		return nil, err
	}
	if x.Rank() > 0 && x.Shape()[0] == 0 {
		return Zeros(e, indices.Shape().Concat(x.Shape()[1:]), x.DType())
	}

	var intermediates []*tensor.RawTensor
	defer func() { e.DisposeIntermediates(intermediates...) }()
	keep := func(t *tensor.RawTensor, err error) (*tensor.RawTensor, error) {
		if err == nil {
			intermediates = append(intermediates, t)
		}
		return t, err
	}

	zero, err := keep(Fill(e, tensor.Shape{}, indices.DType(), 0))
	if err != nil {
		return nil, err
	}
	clipped, err := keep(Maximum(e, indices, zero))
	if err != nil {
		return nil, err
	}
	gathered, err := keep(Gather(e, x, clipped, 0))
	if err != nil {
		return nil, err
	}
	isPositive, err := keep(GreaterEqual(e, indices, zero))
	if err != nil {
		return nil, err
	}
	for isPositive.Rank() < gathered.Rank() {
		isPositive, err = keep(ExpandDims(e, isPositive, isPositive.Rank()))
		if err != nil {
			return nil, err
		}
	}
	allTrue, err := keep(OnesLike(e, gathered, tensor.Bool))
	if err != nil {
		return nil, err
	}
	mask, err := keep(LogicalAnd(e, isPositive, allTrue))
	if err != nil {
		return nil, err
	}
	zeros, err := keep(ZerosLike(e, gathered, gathered.DType()))
	if err != nil {
		return nil, err
	}
	return Where(e, mask, gathered, zeros)
}
