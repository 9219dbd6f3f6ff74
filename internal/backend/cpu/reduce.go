package cpu

import (
	"github.com/gomlx/exceptions"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Sum reduces every element of x to a scalar of the same dtype.
func (cpu *CPUBackend) Sum(x *tensor.RawTensor) *tensor.RawTensor {
	result := cpu.newResult("sum", tensor.Shape{}, x.DType())
	switch x.DType() {
	case tensor.Float32:
		result.AsFloat32()[0] = sumAll(x.AsFloat32())
	case tensor.Float64:
		result.AsFloat64()[0] = sumAll(x.AsFloat64())
	case tensor.Int32:
		result.AsInt32()[0] = sumAll(x.AsInt32())
	case tensor.Int64:
		result.AsInt64()[0] = sumAll(x.AsInt64())
	case tensor.Uint8:
		tensor.Data[uint8](result)[0] = sumAll(tensor.Data[uint8](x))
	default:
		exceptions.Panicf("sum: unsupported dtype %s", x.DType())
	}
	return result
}

func sumAll[T number](data []T) T {
	var total T
	for _, v := range data {
		total += v
	}
	return total
}
