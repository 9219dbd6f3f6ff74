package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Gather selects slices of x along axis.
//
// indices is an int32/int64 tensor of any rank. The output shape is
// x.shape[:axis] + indices.shape + x.shape[axis+1:], and
//
//	output[o..., i..., r...] = x[o..., indices[i...], r...]
//
// Example:
//
//	x:       [[1, 2], [3, 4]]
//	indices: [1, 1, 0]
//	axis:    0
//	output:  [[3, 4], [3, 4], [1, 2]]
func (cpu *CPUBackend) Gather(x, indices *tensor.RawTensor, axis int) *tensor.RawTensor {
	if !indices.DType().IsInteger() {
		exceptions.Panicf("gather: indices must have an integer dtype, got %s", indices.DType())
	}
	xShape := x.Shape()
	if axis < 0 || axis >= len(xShape) {
		exceptions.Panicf("gather: invalid axis %d for %dD tensor", axis, len(xShape))
	}

	outShape := xShape[:axis].Concat(indices.Shape(), xShape[axis+1:])
	result := cpu.newResult("gather", outShape, x.DType())

	idx := tensor.IndicesAsInt(indices)
	dimSize := xShape[axis]
	outer := xShape[:axis].NumElements()
	sliceBytes := xShape[axis+1:].NumElements() * x.DType().Size()

	src, dst := x.Data(), result.Data()
	for i, v := range idx {
		if v < 0 || v >= dimSize {
			exceptions.Panicf("gather: index %d out of bounds [0, %d) at position %d", v, dimSize, i)
		}
	}
	for o := 0; o < outer; o++ {
		for i, v := range idx {
			from := (o*dimSize + v) * sliceBytes
			to := (o*len(idx) + i) * sliceBytes
			copy(dst[to:to+sliceBytes], src[from:from+sliceBytes])
		}
	}
	return result
}

// UnsortedSegmentSum sums the rows of x that share a segment id.
//
// segmentIDs is a 1-D integer tensor with one id per row (x.shape[0]).
// The output has shape [numSegments] + x.shape[1:]; row k is the sum of every
// x[i] with segmentIDs[i] == k. Rows with a negative id are excluded, as are
// rows whose id is >= numSegments. Segments without rows are zero.
//
// Example:
//
//	x:           [1, 2, 3, 4]
//	segmentIDs:  [1, 2, 0, 1]
//	numSegments: 3
//	output:      [3, 5, 2]
func (cpu *CPUBackend) UnsortedSegmentSum(x, segmentIDs *tensor.RawTensor, numSegments int) *tensor.RawTensor {
	if !segmentIDs.DType().IsInteger() {
		exceptions.Panicf("unsortedSegmentSum: segment ids must have an integer dtype, got %s", segmentIDs.DType())
	}
	if numSegments < 0 {
		exceptions.Panicf("unsortedSegmentSum: numSegments must be >= 0, got %d", numSegments)
	}
	xShape := x.Shape()
	if len(xShape) == 0 {
		exceptions.Panicf("unsortedSegmentSum: x must have rank >= 1")
	}
	if segmentIDs.Rank() != 1 || segmentIDs.Shape()[0] != xShape[0] {
		exceptions.Panicf("unsortedSegmentSum: segment ids shape %v does not match first dimension of x %v",
			segmentIDs.Shape(), xShape)
	}

	outShape := tensor.Shape{numSegments}.Concat(xShape[1:])
	result := cpu.newResult("unsortedSegmentSum", outShape, x.DType())
	ids := tensor.IndicesAsInt(segmentIDs)
	rowSize := xShape[1:].NumElements()

	switch x.DType() {
	case tensor.Float32:
		segmentSum(result.AsFloat32(), x.AsFloat32(), ids, numSegments, rowSize)
	case tensor.Float64:
		segmentSum(result.AsFloat64(), x.AsFloat64(), ids, numSegments, rowSize)
	case tensor.Int32:
		segmentSum(result.AsInt32(), x.AsInt32(), ids, numSegments, rowSize)
	case tensor.Int64:
		segmentSum(result.AsInt64(), x.AsInt64(), ids, numSegments, rowSize)
	case tensor.Uint8:
		segmentSum(tensor.Data[uint8](result), tensor.Data[uint8](x), ids, numSegments, rowSize)
	default:
		exceptions.Panicf("unsortedSegmentSum: unsupported dtype %s", x.DType())
	}
	return result
}

func segmentSum[T number](dst, src []T, ids []int, numSegments, rowSize int) {
	for row, id := range ids {
		if id < 0 || id >= numSegments {
			continue
		}
		out := dst[id*rowSize : (id+1)*rowSize]
		in := src[row*rowSize : (row+1)*rowSize]
		for j, v := range in {
			out[j] += v
		}
	}
}

// Where selects a where condition is true and b elsewhere.
// condition must be Bool; all three operands broadcast to a common shape.
func (cpu *CPUBackend) Where(condition, a, b *tensor.RawTensor) *tensor.RawTensor {
	if condition.DType() != tensor.Bool {
		exceptions.Panicf("where: condition must be bool, got %s", condition.DType())
	}
	if a.DType() != b.DType() {
		exceptions.Panicf("where: dtype mismatch: %s vs %s", a.DType(), b.DType())
	}
	valueShape, _, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		exceptions.Panicf("where: %v", err)
	}
	outShape, _, err := tensor.BroadcastShapes(condition.Shape(), valueShape)
	if err != nil {
		exceptions.Panicf("where: %v", err)
	}

	result := cpu.newResult("where", outShape, a.DType())
	outStrides := outShape.ComputeStrides()
	condStrides := computeBroadcastStridesForShape(condition.Shape(), outShape)
	aStrides := computeBroadcastStridesForShape(a.Shape(), outShape)
	bStrides := computeBroadcastStridesForShape(b.Shape(), outShape)

	es := a.DType().Size()
	cond := condition.AsBool()
	aData, bData, dst := a.Data(), b.Data(), result.Data()
	for i := 0; i < outShape.NumElements(); i++ {
		var from int
		var src []byte
		if cond[computeFlatIndex(i, outStrides, condStrides)] {
			src, from = aData, computeFlatIndex(i, outStrides, aStrides)
		} else {
			src, from = bData, computeFlatIndex(i, outStrides, bStrides)
		}
		copy(dst[i*es:(i+1)*es], src[from*es:(from+1)*es])
	}
	return result
}
