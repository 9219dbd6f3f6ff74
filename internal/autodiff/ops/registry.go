package ops

import (
	"slices"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// OpDef describes a registered operator.
type OpDef struct {
	Name           string   // public operator name
	Kernel         string   // kernel name recorded on the tape
	Inputs         []string // input names passed to RunKernel
	Differentiable []string // inputs that receive a gradient
	Summary        string
}

// IsDifferentiable reports whether any input receives a gradient.
func (d OpDef) IsDifferentiable() bool {
	return len(d.Differentiable) > 0
}

var opDefs = []OpDef{
	{
		Name: "Gather", Kernel: KernelGather,
		Inputs: []string{"x", "indices"}, Differentiable: []string{"x"},
		Summary: "select slices of x along an axis",
	},
	{
		Name: "UnsortedSegmentSum", Kernel: KernelUnsortedSegmentSum,
		Inputs: []string{"x", "segmentIds"}, Differentiable: []string{"x"},
		Summary: "sum rows of x sharing a segment id",
	},
	{
		Name: "Add", Kernel: KernelAdd,
		Inputs: []string{"a", "b"}, Differentiable: []string{"a", "b"},
		Summary: "element-wise a + b",
	},
	{
		Name: "Maximum", Kernel: KernelMaximum,
		Inputs: []string{"a", "b"}, Differentiable: []string{"a", "b"},
		Summary: "element-wise max(a, b) with broadcasting",
	},
	{
		Name: "GreaterEqual", Kernel: KernelGreaterEqual,
		Inputs:  []string{"a", "b"},
		Summary: "element-wise a >= b with broadcasting",
	},
	{
		Name: "LogicalAnd", Kernel: KernelLogicalAnd,
		Inputs:  []string{"a", "b"},
		Summary: "element-wise a && b on bool tensors",
	},
	{
		Name: "Where", Kernel: KernelWhere,
		Inputs: []string{"condition", "a", "b"}, Differentiable: []string{"a", "b"},
		Summary: "select a where condition holds, b elsewhere",
	},
	{
		Name: "Reshape", Kernel: KernelReshape,
		Inputs: []string{"x"}, Differentiable: []string{"x"},
		Summary: "change the shape of x, keeping its size",
	},
	{
		Name: "Transpose", Kernel: KernelTranspose,
		Inputs: []string{"x"}, Differentiable: []string{"x"},
		Summary: "permute the axes of x",
	},
	{
		Name: "ExpandDims", Kernel: KernelExpandDims,
		Inputs: []string{"x"}, Differentiable: []string{"x"},
		Summary: "insert a size-1 axis",
	},
	{
		Name: "Sum", Kernel: KernelSum,
		Inputs: []string{"x"}, Differentiable: []string{"x"},
		Summary: "sum all elements to a scalar",
	},
	{
		Name: "Fill", Kernel: KernelFill,
		Summary: "constant tensor (Zeros, Ones, ZerosLike, OnesLike)",
	},
}

var (
	registryOnce sync.Once
	registry     map[string]OpDef
	registryErr  error
)

func loadRegistry() {
	registry = make(map[string]OpDef, len(opDefs))
	for _, def := range opDefs {
		registryErr = multierr.Append(registryErr, validateOpDef(def))
		if _, dup := registry[def.Name]; dup {
			registryErr = multierr.Append(registryErr, errors.Errorf("op %q registered twice", def.Name))
			continue
		}
		registry[def.Name] = def
	}
}

func validateOpDef(def OpDef) error {
	var err error
	if def.Name == "" || def.Kernel == "" {
		err = multierr.Append(err, errors.Errorf("op %+v: name and kernel are required", def))
	}
	for _, name := range def.Differentiable {
		if !slices.Contains(def.Inputs, name) {
			err = multierr.Append(err, errors.Errorf("op %q: differentiable input %q is not an input", def.Name, name))
		}
	}
	return err
}

// Registry returns the operator definitions keyed by name, or the errors
// found while validating them.
func Registry() (map[string]OpDef, error) {
	registryOnce.Do(loadRegistry)
	return registry, registryErr
}

// Lookup returns the definition of the named operator.
func Lookup(name string) (OpDef, bool) {
	registryOnce.Do(loadRegistry)
	def, ok := registry[name]
	return def, ok
}

// All returns every operator definition in registration order.
func All() []OpDef {
	return slices.Clone(opDefs)
}
