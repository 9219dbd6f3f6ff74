package autodiff

import (
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// tensorSet is a set of tensors keyed by identity.
type tensorSet map[*tensor.RawTensor]struct{}

func (s tensorSet) has(t *tensor.RawTensor) bool {
	_, ok := s[t]
	return ok
}

// Gradients computes dy/dx for every x in xs from the entries recorded in s.
//
// Algorithm:
//  1. Keep only entries on a path from some x to y.
//  2. Seed the gradient of y with dy (ones shaped like y when dy is nil).
//  3. Walk the kept entries in reverse creation order; for each entry whose
//     output has a gradient, compute the thunks of the inputs that lead back
//     to an x, summing contributions to tensors consumed more than once.
//
// Recording is paused during the walk. An x that y does not depend on gets a
// zero gradient; it is an error if y depends on none of xs.
func (s *Scope) Gradients(y, dy *tensor.RawTensor, xs ...*tensor.RawTensor) ([]*tensor.RawTensor, error) {
	if s.closed {
		return nil, errors.Errorf("gradients: scope %q is closed", s.name)
	}
	if len(xs) == 0 {
		return nil, tensor.InvalidArgumentf("gradients", "no tensors to differentiate with respect to")
	}
	e := s.engine
	if dy != nil && !dy.Shape().Equal(y.Shape()) {
		return nil, tensor.InvalidArgumentf("gradients", "dy shape %v does not match y shape %v", dy.Shape(), y.Shape())
	}

	kept, needed := s.filterEntries(y, xs)
	if !needed.has(y) {
		return nil, tensor.InvalidArgumentf("gradients",
			"y %s is not a function of xs: no recorded operation in scope %q leads from xs to y", y, s.name)
	}
	klog.V(2).Infof("autodiff: backward over %d of %d entries in scope %q", len(kept), len(s.entries), s.name)

	e.paused++
	defer func() { e.paused-- }()

	// Tensors that exist before the walk are never disposed by it.
	preexisting := tensorSet{y: {}}
	for _, x := range xs {
		preexisting[x] = struct{}{}
	}
	for _, entry := range s.entries {
		preexisting[entry.Output] = struct{}{}
		for _, in := range entry.Inputs {
			preexisting[in] = struct{}{}
		}
	}

	if dy == nil {
		var err error
		dy, err = e.RunKernel("Fill", func(b tensor.Backend) *tensor.RawTensor {
			return b.Fill(y.Shape(), y.DType(), 1)
		}, nil, nil)
		if err != nil {
			return nil, err
		}
	} else {
		preexisting[dy] = struct{}{}
	}

	grads := map[*tensor.RawTensor]*tensor.RawTensor{y: dy}
	for i := len(kept) - 1; i >= 0; i-- {
		entry := kept[i]
		outGrad, ok := grads[entry.Output]
		if !ok {
			continue
		}
		thunks := entry.Grad.Grads(outGrad)
		for name, input := range entry.Inputs {
			if !needed.has(input) {
				continue
			}
			thunk, ok := thunks[name]
			if !ok {
				klog.V(2).Infof("autodiff: %s#%d input %q has no gradient", entry.Kernel, entry.ID, name)
				continue
			}
			g, err := thunk.Compute(e)
			if err != nil {
				return nil, errors.WithMessagef(err, "gradient of %s#%d with respect to %q", entry.Kernel, entry.ID, name)
			}
			if !g.Shape().Equal(input.Shape()) {
				return nil, errors.Errorf("gradient of %s#%d with respect to %q has shape %v, input has shape %v",
					entry.Kernel, entry.ID, name, g.Shape(), input.Shape())
			}
			if err := s.accumulate(grads, input, g, preexisting); err != nil {
				return nil, err
			}
		}
	}

	results := make([]*tensor.RawTensor, len(xs))
	returned := tensorSet{}
	var err error
	for i, x := range xs {
		if g, ok := grads[x]; ok {
			results[i] = g
		} else {
			results[i], err = e.RunKernel("Fill", func(b tensor.Backend) *tensor.RawTensor {
				return b.Fill(x.Shape(), x.DType(), 0)
			}, nil, nil)
			if err != nil {
				return nil, err
			}
		}
		returned[results[i]] = struct{}{}
	}

	// Release gradients of intermediate tensors.
	disposed := tensorSet{}
	for _, g := range grads {
		if preexisting.has(g) || returned.has(g) || disposed.has(g) {
			continue
		}
		disposed[g] = struct{}{}
		e.Dispose(g)
	}
	return results, err
}

// accumulate adds g into grads[input], disposing a superseded partial sum.
func (s *Scope) accumulate(grads map[*tensor.RawTensor]*tensor.RawTensor, input, g *tensor.RawTensor, preexisting tensorSet) error {
	existing, ok := grads[input]
	if !ok {
		grads[input] = g
		return nil
	}
	sum, err := s.engine.RunKernel("Add", func(b tensor.Backend) *tensor.RawTensor {
		return b.Add(existing, g)
	}, nil, nil)
	if err != nil {
		return errors.WithMessage(err, "accumulating gradient")
	}
	grads[input] = sum
	partials := []*tensor.RawTensor{existing}
	if g != existing {
		partials = append(partials, g)
	}
	for _, partial := range partials {
		if !preexisting.has(partial) && !referenced(grads, partial) {
			s.engine.Dispose(partial)
		}
	}
	return nil
}

func referenced(grads map[*tensor.RawTensor]*tensor.RawTensor, t *tensor.RawTensor) bool {
	for _, g := range grads {
		if g == t {
			return true
		}
	}
	return false
}

// filterEntries returns the entries on a path from xs to y, in creation order,
// and the set of tensors whose gradient is needed.
func (s *Scope) filterEntries(y *tensor.RawTensor, xs []*tensor.RawTensor) ([]*TapeEntry, tensorSet) {
	fromX := tensorSet{}
	for _, x := range xs {
		fromX[x] = struct{}{}
	}
	forward := make([]bool, len(s.entries))
	for i, entry := range s.entries {
		for _, in := range entry.Inputs {
			if fromX.has(in) {
				forward[i] = true
				fromX[entry.Output] = struct{}{}
				break
			}
		}
	}

	needed := tensorSet{}
	if fromX.has(y) {
		needed[y] = struct{}{}
	}
	keep := make([]bool, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		entry := s.entries[i]
		if !forward[i] || !needed.has(entry.Output) {
			continue
		}
		keep[i] = true
		for _, in := range entry.Inputs {
			if fromX.has(in) {
				needed[in] = struct{}{}
			}
		}
	}

	var kept []*TapeEntry
	for i, entry := range s.entries {
		if keep[i] {
			kept = append(kept, entry)
		}
	}
	return kept, needed
}

// Gradients runs f inside a fresh scope and returns its result together with
// the gradients of that result with respect to xs. dy may be nil (ones).
// The scope is closed on every return path.
func (e *Engine) Gradients(f func() (*tensor.RawTensor, error), xs []*tensor.RawTensor, dy *tensor.RawTensor) (y *tensor.RawTensor, grads []*tensor.RawTensor, err error) {
	scope := e.StartScope("gradients")
	defer func() {
		err = multierr.Append(err, scope.Close())
	}()

	y, err = f()
	if err != nil {
		return nil, nil, err
	}
	grads, err = scope.Gradients(y, dy, xs...)
	if err != nil {
		return y, nil, err
	}
	return y, grads, nil
}
