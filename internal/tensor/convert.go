package tensor

import (
	"math"
	"reflect"

	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// literalKind is the element family of a Go literal.
type literalKind int

const (
	kindFloat literalKind = iota
	kindInt
	kindBool
)

// literal is a flattened, rectangular Go value waiting to become a tensor.
type literal struct {
	shape    Shape
	kind     literalKind
	natural  DataType // dtype the Go element type maps to
	floats   []float64
	ints     []int64
	bools    []bool
	sawFirst bool
}

var float16Type = reflect.TypeOf(float16.Float16(0))

// Convert coerces value to a tensor of the given dtype.
//
// value may be a *RawTensor, a Go scalar, or a (nested, rectangular) slice or
// array of float32, float64, float16.Float16, int, int32, int64, uint8 or
// bool. An existing tensor must already have dtype. Literals are converted when
// the conversion is exact: integer literals into float tensors, whole-valued
// floats into integer tensors. Everything else fails with ErrInvalidArgument
// naming argument name of operator op.
func Convert(value any, name, op string, dtype DataType) (*RawTensor, error) {
	if t, ok := value.(*RawTensor); ok {
		if t == nil {
			return nil, InvalidArgumentf(op, "argument %q is nil", name)
		}
		if t.DType() != dtype {
			return nil, InvalidArgumentf(op, "argument %q must be a %s tensor, but got %s tensor", name, dtype, t.DType())
		}
		return t, nil
	}
	lit, err := parseLiteral(value, name, op)
	if err != nil {
		return nil, err
	}
	return lit.toTensor(name, op, dtype)
}

// ConvertAny coerces value to a tensor, keeping the dtype of an existing
// tensor or inferring one from the Go element type of a literal.
// Go int becomes Int32 when every value fits, Int64 otherwise, and
// float16.Float16 becomes Float32.
func ConvertAny(value any, name, op string) (*RawTensor, error) {
	if t, ok := value.(*RawTensor); ok {
		if t == nil {
			return nil, InvalidArgumentf(op, "argument %q is nil", name)
		}
		return t, nil
	}
	lit, err := parseLiteral(value, name, op)
	if err != nil {
		return nil, err
	}
	return lit.toTensor(name, op, lit.natural)
}

func parseLiteral(value any, name, op string) (*literal, error) {
	if value == nil {
		return nil, InvalidArgumentf(op, "argument %q is nil", name)
	}
	lit := &literal{natural: Int32}
	shape, err := lit.walk(reflect.ValueOf(value), 0, name, op)
	if err != nil {
		return nil, err
	}
	lit.shape = shape
	return lit, nil
}

// walk appends the elements of v to lit and returns the shape of v.
func (lit *literal) walk(v reflect.Value, depth int, name, op string) (Shape, error) {
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		n := v.Len()
		var inner Shape
		for i := 0; i < n; i++ {
			s, err := lit.walk(v.Index(i), depth+1, name, op)
			if err != nil {
				return nil, err
			}
			if i == 0 {
				inner = s
			} else if !inner.Equal(s) {
				return nil, InvalidArgumentf(op, "argument %q is not rectangular: element %d at depth %d has shape %v, expected %v",
					name, i, depth, s, inner)
			}
		}
		if n == 0 {
			// The dtype comes from the static element type; float32 when it
			// has none, as for []any.
			if !lit.sawFirst {
				lit.kind, lit.natural = kindFloat, Float32
				elem := v.Type().Elem()
				for elem.Kind() == reflect.Slice || elem.Kind() == reflect.Array {
					elem = elem.Elem()
				}
				if kind, natural, ok := elementKind(elem); ok {
					lit.kind, lit.natural = kind, natural
				}
			}
			return Shape{0}, nil
		}
		return append(Shape{n}, inner...), nil
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil, InvalidArgumentf(op, "argument %q contains a nil element", name)
		}
		return lit.walk(v.Elem(), depth, name, op)
	}
	if err := lit.add(v, name, op); err != nil {
		return nil, err
	}
	return Shape{}, nil
}

// elementKind maps a Go element type to its literal kind and natural dtype.
func elementKind(t reflect.Type) (literalKind, DataType, bool) {
	switch {
	case t == float16Type:
		return kindFloat, Float32, true
	case t.Kind() == reflect.Float32:
		return kindFloat, Float32, true
	case t.Kind() == reflect.Float64:
		return kindFloat, Float64, true
	case t.Kind() == reflect.Int, t.Kind() == reflect.Int8, t.Kind() == reflect.Int16, t.Kind() == reflect.Int32:
		return kindInt, Int32, true
	case t.Kind() == reflect.Int64:
		return kindInt, Int64, true
	case t.Kind() == reflect.Uint8:
		return kindInt, Uint8, true
	case t.Kind() == reflect.Bool:
		return kindBool, Bool, true
	}
	return 0, 0, false
}

func (lit *literal) add(v reflect.Value, name, op string) error {
	kind, natural, ok := elementKind(v.Type())
	if !ok {
		return InvalidArgumentf(op, "argument %q has unsupported element type %s", name, v.Type())
	}
	switch {
	case v.Type() == float16Type:
		lit.floats = append(lit.floats, float64(float16.Float16(v.Uint()).Float32()))
	case kind == kindFloat:
		lit.floats = append(lit.floats, v.Float())
	case v.Kind() == reflect.Uint8:
		lit.ints = append(lit.ints, int64(v.Uint()))
	case kind == kindInt:
		if v.Kind() == reflect.Int && (v.Int() > math.MaxInt32 || v.Int() < math.MinInt32) {
			natural = Int64
		}
		lit.ints = append(lit.ints, v.Int())
	default:
		lit.bools = append(lit.bools, v.Bool())
	}
	if !lit.sawFirst {
		lit.kind, lit.natural, lit.sawFirst = kind, natural, true
		return nil
	}
	if kind != lit.kind {
		return InvalidArgumentf(op, "argument %q mixes element types", name)
	}
	if natural == Int64 || (natural == Float64 && lit.natural == Float32) {
		lit.natural = natural
	}
	return nil
}

func (lit *literal) toTensor(name, op string, dtype DataType) (*RawTensor, error) {
	incompatible := func() error {
		return InvalidArgumentf(op, "argument %q of %s values cannot be converted to %s", name, lit.natural, dtype)
	}
	raw, err := NewRaw(lit.shape, dtype, CPU)
	if err != nil {
		return nil, InvalidArgumentf(op, "argument %q: %v", name, err)
	}
	switch dtype {
	case Float32, Float64:
		if lit.kind == kindBool {
			return nil, incompatible()
		}
		vals := lit.floats
		if lit.kind == kindInt {
			vals = make([]float64, len(lit.ints))
			for i, v := range lit.ints {
				vals[i] = float64(v)
			}
		}
		if dtype == Float32 {
			dst := raw.AsFloat32()
			for i, v := range vals {
				dst[i] = float32(v)
			}
		} else {
			copy(raw.AsFloat64(), vals)
		}
	case Int32, Int64, Uint8:
		vals := lit.ints
		switch lit.kind {
		case kindBool:
			return nil, incompatible()
		case kindFloat:
			vals = make([]int64, len(lit.floats))
			for i, v := range lit.floats {
				if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
					return nil, InvalidArgumentf(op, "argument %q holds non-integer value %g, expected %s", name, v, dtype)
				}
				vals[i] = int64(v)
			}
		}
		if err := fillInts(raw, vals); err != nil {
			return nil, InvalidArgumentf(op, "argument %q: %v", name, err)
		}
	case Bool:
		if lit.kind != kindBool && lit.sawFirst {
			return nil, incompatible()
		}
		copy(raw.AsBool(), lit.bools)
	default:
		return nil, incompatible()
	}
	return raw, nil
}

func fillInts(raw *RawTensor, vals []int64) error {
	switch raw.DType() {
	case Int32:
		dst := raw.AsInt32()
		for i, v := range vals {
			if v > math.MaxInt32 || v < math.MinInt32 {
				return errOverflow(v, Int32)
			}
			dst[i] = int32(v)
		}
	case Int64:
		copy(raw.AsInt64(), vals)
	case Uint8:
		dst := Data[uint8](raw)
		for i, v := range vals {
			if v < 0 || v > math.MaxUint8 {
				return errOverflow(v, Uint8)
			}
			dst[i] = uint8(v)
		}
	}
	return nil
}

func errOverflow(v int64, dtype DataType) error {
	return errors.Errorf("value %d overflows %s", v, dtype)
}
