package tensor

// Backend defines the kernels a compute target must provide.
//
// Kernels are stateless with respect to tensor values: they read their inputs
// and return a freshly allocated result. A kernel reports failure by panicking
// with an error (see github.com/gomlx/exceptions); the engine recovers it and
// returns it to the operator that dispatched the kernel.
//
// Implementations:
//   - CPU: pure Go reference kernels (internal/backend/cpu)
type Backend interface {
	// Indexing operations.
	Gather(x, indices *RawTensor, axis int) *RawTensor                     // select slices of x along axis
	UnsortedSegmentSum(x, segmentIDs *RawTensor, numSegments int) *RawTensor // sum rows of x grouped by segment id
	Where(condition, a, b *RawTensor) *RawTensor                             // a where condition, else b (broadcasting)

	// Element-wise operations (NumPy broadcasting).
	Add(a, b *RawTensor) *RawTensor          // a + b
	Maximum(a, b *RawTensor) *RawTensor      // max(a, b)
	GreaterEqual(a, b *RawTensor) *RawTensor // a >= b, bool result
	And(a, b *RawTensor) *RawTensor          // logical AND of bool tensors

	// Reduction.
	Sum(x *RawTensor) *RawTensor // total sum, scalar result

	// Creation.
	Fill(shape Shape, dtype DataType, value float64) *RawTensor // tensor with every element set to value

	// Shape operations.
	Reshape(x *RawTensor, newShape Shape) *RawTensor // same data, new shape
	Transpose(x *RawTensor, axes ...int) *RawTensor  // permute dimensions
	ExpandDims(x *RawTensor, axis int) *RawTensor    // insert a dimension of size 1

	// Metadata.
	Name() string
	Device() Device
}
