package cpu

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

func TestCPUBackend_Identity(t *testing.T) {
	backend := New()
	assert.Equal(t, "CPU", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestAdd_Broadcast(t *testing.T) {
	backend := New()
	a := fromSlice([]float32{1, 2, 3, 4}, 2, 2)
	b := fromSlice([]float32{10, 20}, 2)

	out := backend.Add(a, b)
	assert.Equal(t, []float32{11, 22, 13, 24}, out.AsFloat32())

	assert.Panics(t, func() { backend.Add(a, fromSlice([]float32{1, 2, 3}, 3)) })
	assert.Panics(t, func() { backend.Add(a, fromSlice([]float64{1, 2}, 2)) })
}

func TestMaximum_ScalarOperand(t *testing.T) {
	backend := New()
	ids := fromSlice([]int32{-2, 0, 3, -1}, 4)
	zero := tensor.Scalar[int32](0, tensor.CPU)

	out := backend.Maximum(ids, zero)
	assert.Equal(t, []int32{0, 0, 3, 0}, out.AsInt32())
}

func TestGreaterEqual(t *testing.T) {
	backend := New()
	ids := fromSlice([]int64{-2, 0, 3}, 3)
	zero := tensor.Scalar[int64](0, tensor.CPU)

	out := backend.GreaterEqual(ids, zero)
	assert.Equal(t, tensor.Bool, out.DType())
	assert.Equal(t, []bool{false, true, true}, out.AsBool())
}

func TestAnd(t *testing.T) {
	backend := New()
	a := fromSlice([]bool{true, false}, 2, 1)
	b := fromSlice([]bool{true, true, false}, 1, 3)

	out := backend.And(a, b)
	require.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []bool{true, true, false, false, false, false}, out.AsBool())
}

func TestTranspose(t *testing.T) {
	backend := New()
	x := fromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	out := backend.Transpose(x, 1, 0)
	assert.Equal(t, tensor.Shape{3, 2}, out.Shape())
	assert.Equal(t, []float32{1, 4, 2, 5, 3, 6}, out.AsFloat32())

	reversed := backend.Transpose(x)
	assert.Equal(t, out.AsFloat32(), reversed.AsFloat32())

	assert.Panics(t, func() { backend.Transpose(x, 0, 0) })
}

func TestTranspose_RoundTrip3D(t *testing.T) {
	backend := New()
	data := make([]int32, 24)
	for i := range data {
		data[i] = int32(i)
	}
	x := fromSlice(data, 2, 3, 4)

	for axis := 0; axis < 3; axis++ {
		perm := tensor.AxesPermutationToFront(axis, 3)
		moved := backend.Transpose(x, perm...)
		back := backend.Transpose(moved, tensor.InversePermutation(perm)...)
		assert.Equal(t, x.Shape(), back.Shape())
		if diff := cmp.Diff(data, back.AsInt32()); diff != "" {
			t.Errorf("axis %d round trip mismatch (-want +got):\n%s", axis, diff)
		}
	}
}

func TestReshapeAndExpandDims(t *testing.T) {
	backend := New()
	x := fromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3)

	r := backend.Reshape(x, tensor.Shape{3, 2})
	assert.Equal(t, tensor.Shape{3, 2}, r.Shape())
	assert.Equal(t, x.AsFloat32(), r.AsFloat32())
	assert.Panics(t, func() { backend.Reshape(x, tensor.Shape{4}) })

	assert.Equal(t, tensor.Shape{2, 3, 1}, backend.ExpandDims(x, 2).Shape())
	assert.Equal(t, tensor.Shape{1, 2, 3}, backend.ExpandDims(x, 0).Shape())
	assert.Equal(t, tensor.Shape{2, 3, 1}, backend.ExpandDims(x, -1).Shape())
	assert.Panics(t, func() { backend.ExpandDims(x, 3+1) })
}

func TestSum(t *testing.T) {
	backend := New()
	out := backend.Sum(fromSlice([]float64{1, 2, 3.5}, 3))
	assert.Equal(t, 0, out.Rank())
	assert.Equal(t, []float64{6.5}, out.AsFloat64())

	assert.Equal(t, []int32{0}, backend.Sum(fromSlice([]int32{}, 0)).AsInt32())
}

func TestFill(t *testing.T) {
	backend := New()
	assert.Equal(t, []float32{1, 1, 1}, backend.Fill(tensor.Shape{3}, tensor.Float32, 1).AsFloat32())
	assert.Equal(t, []int64{0, 0}, backend.Fill(tensor.Shape{2}, tensor.Int64, 0).AsInt64())
	assert.Equal(t, []bool{true, true}, backend.Fill(tensor.Shape{1, 2}, tensor.Bool, 1).AsBool())
	assert.Equal(t, []bool{false}, backend.Fill(tensor.Shape{}, tensor.Bool, 0).AsBool())
}
