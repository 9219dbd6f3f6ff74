// Package cpu implements the reference CPU backend in pure Go.
package cpu

import (
	"github.com/gomlx/exceptions"
	"golang.org/x/exp/constraints"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// number is the set of element types arithmetic kernels operate on.
type number interface {
	constraints.Integer | constraints.Float
}

// CPUBackend implements tensor kernels on the CPU.
// It holds no per-call state and is safe to share between engines.
type CPUBackend struct {
	device tensor.Device
}

// Compile-time check that CPUBackend implements tensor.Backend.
var _ tensor.Backend = (*CPUBackend)(nil)

// New creates a new CPU backend.
func New() *CPUBackend {
	return &CPUBackend{
		device: tensor.CPU,
	}
}

// Name returns the backend name.
func (cpu *CPUBackend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (cpu *CPUBackend) Device() tensor.Device {
	return cpu.device
}

// newResult allocates a zeroed kernel output, failing the kernel on a bad shape.
func (cpu *CPUBackend) newResult(kernel string, shape tensor.Shape, dtype tensor.DataType) *tensor.RawTensor {
	result, err := tensor.NewRaw(shape, dtype, cpu.device)
	if err != nil {
		exceptions.Panicf("%s: failed to create result tensor: %v", kernel, err)
	}
	return result
}
