package tensor

import (
	"slices"

	"github.com/pkg/errors"
)

// Shape lists the size of each dimension, outermost first. An empty Shape is
// a scalar.
type Shape []int

// NumElements returns the product of the dimensions: 1 for a scalar, 0 when
// any dimension is 0.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate rejects negative dimensions. Zero-sized dimensions are valid.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(dim int) bool { return dim < 0 }); i >= 0 {
		return errors.Errorf("dimension %d of shape %v is negative", i, []int(s))
	}
	return nil
}

// Equal reports whether s and other have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of s that is never nil.
func (s Shape) Clone() Shape {
	return append(make(Shape, 0, len(s)), s...)
}

// Concat returns s followed by others, as a new shape.
func (s Shape) Concat(others ...Shape) Shape {
	out := s.Clone()
	for _, o := range others {
		out = append(out, o...)
	}
	return out
}

// ComputeStrides returns the row-major element strides of s: the stride of
// a dimension is the product of the dimensions after it.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	stride := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = stride
		stride *= s[i]
	}
	return strides
}

// BroadcastShapes returns the shape a and b broadcast to, aligning trailing
// dimensions; a missing or size-1 dimension stretches to match the other.
// The flag reports whether either shape differs from the result.
//
//	[3, 1] and [3, 5] -> [3, 5], true
//	[]     and [2, 2] -> [2, 2], true
//	[3, 5] and [3, 5] -> [3, 5], false
//	[3, 4] and [3, 5] -> error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	rank := max(len(a), len(b))
	out := make(Shape, rank)
	stretched := len(a) != len(b)
	dimAt := func(s Shape, i int) int {
		if j := i - (rank - len(s)); j >= 0 {
			return s[j]
		}
		return 1
	}
	for i := range out {
		da, db := dimAt(a, i), dimAt(b, i)
		switch {
		case da == db:
			out[i] = da
		case da == 1:
			out[i], stretched = db, true
		case db == 1:
			out[i], stretched = da, true
		default:
			return nil, false, errors.Errorf("shapes %v and %v cannot be broadcast: dimension %d is %d vs %d",
				[]int(a), []int(b), i, da, db)
		}
	}
	return out, stretched, nil
}
