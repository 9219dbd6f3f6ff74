package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Fill creates a tensor of the given shape and dtype with every element set to value.
// For Bool, any non-zero value is true.
func (cpu *CPUBackend) Fill(shape tensor.Shape, dtype tensor.DataType, value float64) *tensor.RawTensor {
	result := cpu.newResult("fill", shape, dtype)
	if value == 0 {
		return result
	}
	switch dtype {
	case tensor.Float32:
		fill(result.AsFloat32(), float32(value))
	case tensor.Float64:
		fill(result.AsFloat64(), value)
	case tensor.Int32:
		fill(result.AsInt32(), int32(value))
	case tensor.Int64:
		fill(result.AsInt64(), int64(value))
	case tensor.Uint8:
		fill(tensor.Data[uint8](result), uint8(value))
	case tensor.Bool:
		fill(result.AsBool(), true)
	default:
		exceptions.Panicf("fill: unsupported dtype %s", dtype)
	}
	return result
}

func fill[T tensor.DType](data []T, value T) {
	for i := range data {
		data[i] = value
	}
}
