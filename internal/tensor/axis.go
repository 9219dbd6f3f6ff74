package tensor

// NormalizeAxis maps a possibly negative axis onto [0, rank).
//
// Negative values count from the end: -1 is the last axis. Anything outside
// [-rank, rank) fails with ErrInvalidArgument attributed to op.
func NormalizeAxis(op string, axis, rank int) (int, error) {
	if axis < -rank || axis >= rank {
		return 0, InvalidArgumentf(op, "axis %d out of range for rank %d (must be in [%d, %d))", axis, rank, -rank, rank)
	}
	if axis < 0 {
		axis += rank
	}
	return axis, nil
}

// Range returns the integers [start, end).
func Range(start, end int) []int {
	if end <= start {
		return []int{}
	}
	out := make([]int, 0, end-start)
	for i := start; i < end; i++ {
		out = append(out, i)
	}
	return out
}

// AxesPermutationToFront returns the permutation moving axis to position 0
// while every other axis keeps its relative order:
//
//	[axis, 0, 1, ..., axis-1, axis+1, ..., rank-1]
func AxesPermutationToFront(axis, rank int) []int {
	perm := make([]int, 0, rank)
	perm = append(perm, axis)
	perm = append(perm, Range(0, axis)...)
	perm = append(perm, Range(axis+1, rank)...)
	return perm
}

// InversePermutation returns inv such that inv[perm[i]] = i, so transposing
// by perm and then by inv restores the original axis order.
func InversePermutation(perm []int) []int {
	inv := make([]int, len(perm))
	for i, ax := range perm {
		inv[ax] = i
	}
	return inv
}

// IsPermutation reports whether perm is a permutation of [0, len(perm)).
func IsPermutation(perm []int) bool {
	seen := make([]bool, len(perm))
	for _, ax := range perm {
		if ax < 0 || ax >= len(perm) || seen[ax] {
			return false
		}
		seen[ax] = true
	}
	return true
}
