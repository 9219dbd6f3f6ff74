package autodiff_test

import (
	"math"
	"testing"

	"github.com/gomlx/exceptions"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/segmentgrad/internal/autodiff"
	"github.com/born-ml/segmentgrad/internal/autodiff/ops"
	"github.com/born-ml/segmentgrad/internal/backend/cpu"
	"github.com/born-ml/segmentgrad/internal/tensor"
)

func fromSlice[T tensor.DType](data []T, shape ...int) *tensor.RawTensor {
	return must.M1(tensor.FromSlice(data, tensor.Shape(shape), tensor.CPU))
}

// passThrough is a GradFunc sending dy unchanged to input "x".
type passThrough struct{}

func (passThrough) Grads(dy *tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"x": constThunk{dy}}
}

type constThunk struct{ t *tensor.RawTensor }

func (c constThunk) Compute(*autodiff.Engine) (*tensor.RawTensor, error) { return c.t, nil }

func TestEngine_RecordsOnlyInsideScope(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2, 3}, 3)

	assert.False(t, e.IsRecording())
	_, err := ops.Gather(e, x, []int32{0}, 0)
	require.NoError(t, err)

	scope := e.StartScope("test")
	assert.True(t, e.IsRecording())
	_, err = ops.Gather(e, x, []int32{2, 1}, 0)
	require.NoError(t, err)
	_, err = ops.GreaterEqual(e, x, x) // no gradient, not recorded
	require.NoError(t, err)

	entries := scope.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ops.KernelGather, entries[0].Kernel)
	assert.Same(t, x, entries[0].Inputs["x"])
	assert.Contains(t, entries[0].Inputs, "indices")

	require.NoError(t, scope.Close())
	assert.False(t, e.IsRecording())
}

func TestEngine_KernelFailureRecordsNothing(t *testing.T) {
	e := autodiff.New(cpu.New())
	scope := e.StartScope("failing")
	defer func() { require.NoError(t, scope.Close()) }()

	x := fromSlice([]float32{1, 2}, 2)
	_, err := ops.Gather(e, x, []int32{5}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Gather")
	assert.Equal(t, 0, scope.NumEntries())

	_, err = e.RunKernel("Boom", func(tensor.Backend) *tensor.RawTensor {
		exceptions.Panicf("boom")
		return nil
	}, map[string]*tensor.RawTensor{"x": x}, passThrough{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, 0, scope.NumEntries())

	_, err = e.RunKernel("Nil", func(tensor.Backend) *tensor.RawTensor { return nil }, nil, passThrough{})
	assert.Error(t, err)
}

func TestScope_ClosedEntriesNeverLeak(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2}, 2)

	first := e.StartScope("first")
	y, err := ops.Gather(e, x, []int32{1}, 0)
	require.NoError(t, err)
	require.NoError(t, first.Close())
	assert.True(t, first.Closed())
	assert.Equal(t, 0, first.NumEntries())

	_, err = first.Gradients(y, nil, x)
	assert.Error(t, err, "closed scope")

	second := e.StartScope("second")
	defer second.Close()
	assert.NotEqual(t, first.ID(), second.ID())
	assert.Equal(t, 0, second.NumEntries())
	_, err = second.Gradients(y, nil, x)
	require.Error(t, err)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument), "y was produced in another scope")
}

func TestScope_NestedEntriesReachEnclosingScopes(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2}, 2)

	outer := e.StartScope("outer")
	_, err := ops.Gather(e, x, []int32{0}, 0)
	require.NoError(t, err)
	inner := e.StartScope("inner")
	_, err = ops.Gather(e, x, []int32{1}, 0)
	require.NoError(t, err)

	assert.Equal(t, 2, outer.NumEntries(), "outer sees its own entry and the nested one")
	assert.Equal(t, 1, inner.NumEntries())
	assert.Equal(t, outer.Entries()[1], inner.Entries()[0])
	assert.Equal(t, 2, e.Memory().NumTapeEntries, "shared entries are counted once")

	// Closing outer first closes inner and reports it.
	err = outer.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner")
	assert.True(t, inner.Closed())
	assert.NoError(t, inner.Close(), "closing twice is a no-op")
	assert.False(t, e.IsRecording())
}

func TestScope_GradientsThroughNestedScope(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2, 3}, 3)

	outer := e.StartScope("outer")
	defer outer.Close()
	a := must.M1(ops.Gather(e, x, []int32{0, 2}, 0))

	var b *tensor.RawTensor
	_, innerGrads, err := e.Gradients(func() (*tensor.RawTensor, error) {
		var err error
		b, err = ops.Gather(e, a, []int32{1, 1}, 0)
		return b, err
	}, []*tensor.RawTensor{a}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3}, b.AsFloat32())
	assert.Equal(t, []float32{0, 2}, innerGrads[0].AsFloat32())

	y := must.M1(ops.Add(e, a, b))
	assert.Equal(t, []float32{4, 6}, y.AsFloat32())
	grads, err := outer.Gradients(y, nil, x)
	require.NoError(t, err)
	// dy/da = [1, 1] directly plus [0, 2] through b.
	assert.Equal(t, []float32{1, 0, 3}, grads[0].AsFloat32())
}

func TestEngine_SetBackendRefusedWhileRecording(t *testing.T) {
	e := autodiff.New(cpu.New())
	scope := e.StartScope("train")
	err := e.SetBackend(cpu.New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train")

	require.NoError(t, scope.Close())
	other := cpu.New()
	require.NoError(t, e.SetBackend(other))
	assert.Same(t, other, e.Backend())
}

func TestEngine_CloseReportsOpenScopes(t *testing.T) {
	e := autodiff.New(cpu.New())
	require.NoError(t, e.Close())

	e.StartScope("a")
	e.StartScope("b")
	err := e.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"a"`)
	assert.Contains(t, err.Error(), `"b"`)
	assert.Equal(t, 0, e.Memory().NumScopes)
}

func TestGradients_AccumulatesRepeatedUse(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2, 3}, 3)

	y, grads, err := e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.Add(e, x, x)
	}, []*tensor.RawTensor{x}, nil)
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 4, 6}, y.AsFloat32())
	require.Len(t, grads, 1)
	assert.Equal(t, []float32{2, 2, 2}, grads[0].AsFloat32())
}

func TestGradients_ChainAndUnreachedInput(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float64{1, 2, 3}, 3)
	unused := fromSlice([]float64{7, 8}, 2)
	dy := fromSlice([]float64{1, 10}, 2)

	_, grads, err := e.Gradients(func() (*tensor.RawTensor, error) {
		g, err := ops.Gather(e, x, []int32{2, 2}, 0)
		if err != nil {
			return nil, err
		}
		return ops.Add(e, g, g)
	}, []*tensor.RawTensor{x, unused}, dy)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 22}, grads[0].AsFloat64())
	assert.Equal(t, []float64{0, 0}, grads[1].AsFloat64(), "unreached inputs get zeros")
}

func TestGradients_Errors(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2}, 2)

	_, _, err := e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.Gather(e, x, []int32{0}, 0)
	}, nil, nil)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument), "no xs")

	_, _, err = e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.Gather(e, x, []int32{0}, 0)
	}, []*tensor.RawTensor{x}, fromSlice([]float32{1, 1}, 2))
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument), "dy shape mismatch")

	other := fromSlice([]float32{3}, 1)
	_, _, err = e.Gradients(func() (*tensor.RawTensor, error) {
		return ops.Gather(e, x, []int32{0}, 0)
	}, []*tensor.RawTensor{other}, nil)
	assert.True(t, errors.Is(err, tensor.ErrInvalidArgument), "y does not depend on xs")

	assert.False(t, e.IsRecording(), "scope closed on error paths")
}

func TestGradients_CustomGradFunc(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2}, 2)
	scope := e.StartScope("custom")
	defer scope.Close()

	y, err := e.RunKernel("Copy", func(b tensor.Backend) *tensor.RawTensor {
		return b.Reshape(x, x.Shape())
	}, map[string]*tensor.RawTensor{"x": x}, passThrough{})
	require.NoError(t, err)

	grads, err := scope.Gradients(y, fromSlice([]float32{3, 4}, 2), x)
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 4}, grads[0].AsFloat32())
}

func TestGradients_BadGradientShape(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2}, 2)
	wrong := fromSlice([]float32{1}, 1)
	scope := e.StartScope("bad")
	defer scope.Close()

	y, err := e.RunKernel("Copy", func(b tensor.Backend) *tensor.RawTensor {
		return b.Reshape(x, x.Shape())
	}, map[string]*tensor.RawTensor{"x": x}, badShape{wrong})
	require.NoError(t, err)

	_, err = scope.Gradients(y, nil, x)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shape")
}

type badShape struct{ t *tensor.RawTensor }

func (b badShape) Grads(*tensor.RawTensor) map[string]autodiff.Thunk {
	return map[string]autodiff.Thunk{"x": constThunk{b.t}}
}

func TestEngine_CheckNumerics(t *testing.T) {
	e := autodiff.New(cpu.New(), autodiff.WithCheckNumerics(true))
	assert.True(t, e.Config().CheckNumerics)
	x := fromSlice([]float32{1, float32(math.NaN())}, 2)

	_, err := ops.Gather(e, x, []int32{1}, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NaN")

	_, err = ops.Gather(e, x, []int32{0}, 0)
	assert.NoError(t, err)
}

func TestEngine_MemoryAndDispose(t *testing.T) {
	e := autodiff.New(cpu.New(), autodiff.WithDebug(true))
	x := fromSlice([]float32{1, 2, 3, 4}, 4)

	before := e.Memory()
	y := must.M1(ops.Gather(e, x, []int32{0, 1}, 0))
	z := must.M1(ops.Gather(e, x, []int32{3}, 0))
	during := e.Memory()
	assert.Equal(t, before.NumTensors+2, during.NumTensors)
	assert.Equal(t, before.NumBytes+12, during.NumBytes)

	e.Dispose(y, nil)
	assert.True(t, y.Released())
	assert.Equal(t, during.NumTensors-1, e.Memory().NumTensors)
	e.Dispose(y) // already released: warning only

	scope := e.StartScope("m")
	must.M1(ops.Gather(e, x, []int32{0}, 0))
	info := e.Memory()
	assert.Equal(t, 1, info.NumScopes)
	assert.Equal(t, 1, info.NumTapeEntries)
	assert.Contains(t, info.String(), "1 scope(s)")
	require.NoError(t, scope.Close())

	// Intermediates are kept while recording and released otherwise.
	scope = e.StartScope("keep")
	e.DisposeIntermediates(z)
	assert.False(t, z.Released())
	require.NoError(t, scope.Close())
	e.DisposeIntermediates(z)
	assert.True(t, z.Released())
}

func TestGradients_DisposesIntermediateGradients(t *testing.T) {
	e := autodiff.New(cpu.New())
	x := fromSlice([]float32{1, 2, 3}, 3)

	scope := e.StartScope("dispose")
	defer scope.Close()
	g := must.M1(ops.Gather(e, x, []int32{0, 2}, 0))
	y := must.M1(ops.Sum(e, g))

	before := e.Memory().NumTensors
	grads, err := scope.Gradients(y, nil, x)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 1}, grads[0].AsFloat32())
	assert.Equal(t, before+1, e.Memory().NumTensors, "only the returned gradient stays live")
}
