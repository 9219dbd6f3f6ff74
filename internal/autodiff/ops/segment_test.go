package ops

import (
	"testing"

	"github.com/janpfeifer/must"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

func TestUnsortedSegmentSum_Forward(t *testing.T) {
	e := newEngine()
	y := must.M1(UnsortedSegmentSum(e, []float32{1, 2, 3, 4}, []int32{1, 2, 0, 1}, 3))
	assert.Equal(t, tensor.Shape{3}, y.Shape())
	assert.Equal(t, []float32{3, 5, 2}, y.AsFloat32())

	y = must.M1(UnsortedSegmentSum(e, []float32{1, 2, 3}, []int32{-1, 0, -1}, 2))
	assert.Equal(t, []float32{2, 0}, y.AsFloat32(), "negative ids are dropped, empty segments are zero")
}

func TestUnsortedSegmentSum_GradientWithNegativeIDs(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3, 4}, 4)
	ids := fromSlice([]int32{1, -1, 0, 1}, 4)
	dy := fromSlice([]float32{10, 20}, 2)

	_, grads := grad(t, e, func() (*tensor.RawTensor, error) {
		return UnsortedSegmentSum(e, x, ids, 2)
	}, dy, x)
	assert.Equal(t, []float32{20, 0, 10, 20}, grads[0].AsFloat32())
}

func TestUnsortedSegmentSum_GradientRows(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float64{1, 2, 3, 4, 5, 6}, 3, 2)
	ids := fromSlice([]int64{0, -1, 1}, 3)
	dy := fromSlice([]float64{1, 2, 3, 4}, 2, 2)

	_, grads := grad(t, e, func() (*tensor.RawTensor, error) {
		return UnsortedSegmentSum(e, x, ids, 2)
	}, dy, x)
	assert.Equal(t, tensor.Shape{3, 2}, grads[0].Shape())
	assert.Equal(t, []float64{1, 2, 0, 0, 3, 4}, grads[0].AsFloat64())
}

func TestUnsortedSegmentSum_PreservesTotal(t *testing.T) {
	e := newEngine()
	data := []float64{0.5, -1, 2, 3.25, 4, -0.75}
	ids := []int32{2, 0, 2, 1, 0, 3}

	y := must.M1(UnsortedSegmentSum(e, data, ids, 4))
	total := must.M1(Sum(e, y))
	var want float64
	for _, v := range data {
		want += v
	}
	assert.InDelta(t, want, total.AsFloat64()[0], 1e-12)
}

func TestUnsortedSegmentSum_GatherRoundTrip(t *testing.T) {
	// Gather followed by its gradient scatters dy back onto the gathered rows.
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3}, 3)
	ids := fromSlice([]int32{2, 0, 2, 2}, 4)

	_, grads := grad(t, e, func() (*tensor.RawTensor, error) {
		return Gather(e, x, ids, 0)
	}, nil, x)
	want := must.M1(UnsortedSegmentSum(e, fromSlice([]float32{1, 1, 1, 1}, 4), ids, 3))
	assert.Equal(t, want.AsFloat32(), grads[0].AsFloat32())
}

func TestUnsortedSegmentSum_InvalidArguments(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2}, 2)

	_, err := UnsortedSegmentSum(e, x, fromSlice([]float32{0, 1}, 2), 2)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "segmentIds")

	_, err = UnsortedSegmentSum(e, x, []int32{0, 1}, -1)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	_, err = UnsortedSegmentSum(e, x, []float64{0, 1.5}, 2)
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)

	y, err := UnsortedSegmentSum(e, x, []float64{0, 1}, 2)
	require.NoError(t, err, "whole-valued float literals are accepted")
	assert.Equal(t, []float32{1, 2}, y.AsFloat32())

	_, err = UnsortedSegmentSum(e, x, []int32{0}, 2)
	assert.Error(t, err, "one id per row")
}

func TestGatherDropNegatives(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3, 4, 5, 6}, 3, 2)
	indices := fromSlice([]int32{2, -1, 0, -5}, 4)

	y := must.M1(GatherDropNegatives(e, x, indices))
	assert.Equal(t, tensor.Shape{4, 2}, y.Shape())
	assert.Equal(t, []float32{5, 6, 0, 0, 1, 2, 0, 0}, y.AsFloat32())

	_, err := GatherDropNegatives(e, x, fromSlice([]float32{0}, 1))
	assert.ErrorIs(t, err, tensor.ErrInvalidArgument)
}

func TestGatherDropNegatives_NoRows(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float64{}, 0, 2)

	y := must.M1(GatherDropNegatives(e, x, fromSlice([]int32{-1, 3}, 2)))
	assert.Equal(t, tensor.Shape{2, 2}, y.Shape())
	assert.Equal(t, []float64{0, 0, 0, 0}, y.AsFloat64())
}

func TestUnsortedSegmentSum_GradientWithNoSegments(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	y, grads := grad(t, e, func() (*tensor.RawTensor, error) {
		return UnsortedSegmentSum(e, x, []int32{-1, -1}, 0)
	}, nil, x)
	assert.Equal(t, tensor.Shape{0, 3}, y.Shape())
	assert.Equal(t, tensor.Shape{2, 3}, grads[0].Shape())
	assert.Equal(t, []float32{0, 0, 0, 0, 0, 0}, grads[0].AsFloat32())
}

func TestGatherDropNegatives_FailureReleasesIntermediates(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3, 4}, 2, 2)

	before := e.Memory().NumTensors
	_, err := GatherDropNegatives(e, x, fromSlice([]int32{0, 5}, 2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), KernelGather)
	assert.Equal(t, before, e.Memory().NumTensors, "clipped indices and the zero scalar are disposed")
}

func TestUnsortedSegmentSum_ScatterAddIdentity(t *testing.T) {
	e := newEngine()
	x := fromSlice([]float32{1, 2, 3, 4, 5, 6, 7, 8}, 4, 2)
	idx := []int32{3, 0, 3, 3}

	gathered := must.M1(Gather(e, x, idx, 0))
	y := must.M1(UnsortedSegmentSum(e, gathered, idx, 4))
	// Row 0 once, rows 1 and 2 absent, row 3 three times.
	assert.Equal(t, []float32{1, 2, 0, 0, 0, 0, 21, 24}, y.AsFloat32())
}
