package tensor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/pkg/errors"
)

// Device represents the compute device for tensor operations.
type Device int

// Supported compute devices.
const (
	CPU Device = iota
	CUDA
	Vulkan
	Metal
	WebGPU
)

// String returns a human-readable device name.
func (d Device) String() string {
	switch d {
	case CPU:
		return "CPU"
	case CUDA:
		return "CUDA"
	case Vulkan:
		return "Vulkan"
	case Metal:
		return "Metal"
	case WebGPU:
		return "WebGPU"
	default:
		return "Unknown"
	}
}

// tensorBuffer is a reference-counted buffer shared by shallow clones.
type tensorBuffer struct {
	data     []byte
	refCount atomic.Int32
	released atomic.Bool
	mu       sync.Mutex // For safe deallocation
}

// newTensorBuffer creates a new reference-counted buffer with refCount = 1.
func newTensorBuffer(size int) *tensorBuffer {
	buf := &tensorBuffer{
		data: make([]byte, size),
	}
	buf.refCount.Store(1)
	return buf
}

// addRef increments the reference count (for Clone operations).
func (tb *tensorBuffer) addRef() {
	tb.refCount.Add(1)
}

// release decrements the reference count and deallocates if it reaches 0.
func (tb *tensorBuffer) release() {
	if tb.refCount.Add(-1) == 0 {
		tb.mu.Lock()
		defer tb.mu.Unlock()
		tb.data = nil
		tb.released.Store(true)
	}
}

// RawTensor is the untyped tensor value passed between the engine, the operators
// and the backends.
//
// A RawTensor is never modified after a kernel returns it: every operation
// produces a new RawTensor. The As* accessors expose the backing memory
// without copying, so callers other than the kernel that allocated the tensor
// must treat the returned slices as read-only.
type RawTensor struct {
	buffer *tensorBuffer // Shared reference-counted buffer
	shape  Shape         // Tensor dimensions
	stride []int         // Memory strides (row-major)
	dtype  DataType      // Runtime type information
	device Device        // Compute device

	released bool // Release was called on this handle
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is zero-initialized.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid shape")
	}

	numElements := shape.NumElements()
	byteSize := numElements * dtype.Size()

	return &RawTensor{
		buffer: newTensorBuffer(byteSize),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
		device: device,
	}, nil
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice[T DType](data []T, shape Shape, device Device) (*RawTensor, error) {
	if shape.NumElements() != len(data) {
		return nil, errors.Errorf("shape %v requires %d elements, but got %d", shape, shape.NumElements(), len(data))
	}
	raw, err := NewRaw(shape, DataTypeOf[T](), device)
	if err != nil {
		return nil, err
	}
	copy(Data[T](raw), data)
	return raw, nil
}

// Scalar creates a 0-D tensor holding value.
func Scalar[T DType](value T, device Device) *RawTensor {
	raw, err := FromSlice([]T{value}, Shape{}, device)
	if err != nil {
		panic(err) // a scalar shape is always valid
	}
	return raw
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Rank returns the number of dimensions.
func (r *RawTensor) Rank() int {
	return len(r.shape)
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// Device returns the tensor's compute device.
func (r *RawTensor) Device() Device {
	return r.device
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	r.checkLive()
	return r.buffer.data
}

func (r *RawTensor) checkLive() {
	if r.Released() {
		panic(errors.Errorf("tensor %s used after release", r))
	}
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	if r.dtype != Float32 {
		panic(errors.Errorf("tensor dtype is %s, not float32", r.dtype))
	}
	return Data[float32](r)
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	if r.dtype != Float64 {
		panic(errors.Errorf("tensor dtype is %s, not float64", r.dtype))
	}
	return Data[float64](r)
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	if r.dtype != Int32 {
		panic(errors.Errorf("tensor dtype is %s, not int32", r.dtype))
	}
	return Data[int32](r)
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	if r.dtype != Int64 {
		panic(errors.Errorf("tensor dtype is %s, not int64", r.dtype))
	}
	return Data[int64](r)
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	if r.dtype != Bool {
		panic(errors.Errorf("tensor dtype is %s, not bool", r.dtype))
	}
	return Data[bool](r)
}

// Data returns a typed zero-copy view of the tensor's memory.
// Panics if T does not match the tensor's dtype.
func Data[T DType](r *RawTensor) []T {
	if want := DataTypeOf[T](); r.dtype != want {
		panic(errors.Errorf("tensor dtype is %s, not %s", r.dtype, want))
	}
	data := r.Data()
	n := r.NumElements()
	if n == 0 {
		return nil
	}
	//nolint:gosec // unsafe.Slice for zero-copy access, bounds checked by NumElements()
	return unsafe.Slice((*T)(unsafe.Pointer(&data[0])), n)
}

// Values returns a copy of the tensor's elements.
func Values[T DType](r *RawTensor) []T {
	return append([]T(nil), Data[T](r)...)
}

// IndicesAsInt returns integer tensor elements widened to int.
// Panics if the tensor is not Int32 or Int64.
func IndicesAsInt(r *RawTensor) []int {
	out := make([]int, r.NumElements())
	switch r.dtype {
	case Int32:
		for i, v := range r.AsInt32() {
			out[i] = int(v)
		}
	case Int64:
		for i, v := range r.AsInt64() {
			out[i] = int(v)
		}
	default:
		panic(errors.Errorf("tensor dtype is %s, not an integer type", r.dtype))
	}
	return out
}

// Clone creates a shallow copy of the RawTensor (shares buffer with reference counting).
func (r *RawTensor) Clone() *RawTensor {
	r.buffer.addRef()
	return &RawTensor{
		buffer: r.buffer,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
		device: r.device,
	}
}

// Release drops this handle's reference to the buffer, deallocating it when
// no clone holds it anymore. Releasing twice is a no-op.
func (r *RawTensor) Release() {
	if r.released {
		return
	}
	r.released = true
	r.buffer.release()
}

// Released reports whether the handle was released or its buffer deallocated.
func (r *RawTensor) Released() bool {
	return r.released || r.buffer.released.Load()
}

// String returns a short description of the tensor (not its values).
func (r *RawTensor) String() string {
	return fmt.Sprintf("Tensor[%s]%v on %s", r.dtype, r.shape, r.device)
}
