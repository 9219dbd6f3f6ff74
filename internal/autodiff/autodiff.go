// Package autodiff implements the engine every differentiable operation runs through.
//
// The Engine owns the active backend and a stack of recording scopes. Each
// operator calls RunKernel with a forward function and a GradFunc; the engine
// runs the forward function on the backend and, while a scope is recording,
// appends a tape entry. Gradients are computed on demand by walking a scope's
// tape in reverse (see Scope.Gradients).
//
// Usage:
//
//	e := autodiff.New(cpu.New())
//	y, grads, err := e.Gradients(func() (*tensor.RawTensor, error) {
//	    return ops.Gather(e, x, indices, 1)
//	}, []*tensor.RawTensor{x}, nil)
package autodiff

import (
	"math"
	"weak"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// Engine dispatches kernels to a backend and records them for differentiation.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	backend tensor.Backend
	config  Config

	scopes      []*Scope // open scopes, innermost last
	paused      int      // >0 while a backward pass runs
	nextEntryID int

	// live tracks kernel outputs that were neither disposed nor collected.
	// Collected keys are pruned once len(live) reaches pruneAt.
	live    map[weak.Pointer[tensor.RawTensor]]int
	pruneAt int
}

// minPruneAt is the smallest live-map size that triggers pruning.
const minPruneAt = 1024

// New creates an engine running kernels on backend.
func New(backend tensor.Backend, opts ...Option) *Engine {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	klog.V(2).Infof("autodiff: new engine on backend %s (debug=%t, checkNumerics=%t)",
		backend.Name(), cfg.Debug, cfg.CheckNumerics)
	return &Engine{
		backend: backend,
		config:  cfg,
		live:    make(map[weak.Pointer[tensor.RawTensor]]int),
		pruneAt: minPruneAt,
	}
}

// Backend returns the active backend.
func (e *Engine) Backend() tensor.Backend {
	return e.backend
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// SetBackend swaps the active backend. It fails while any scope is open, since
// recorded gradients must run on the backend that produced the forward pass.
func (e *Engine) SetBackend(b tensor.Backend) error {
	if len(e.scopes) > 0 {
		return errors.Errorf("cannot change backend to %s: %d recording scope(s) open, innermost %q",
			b.Name(), len(e.scopes), e.scopes[len(e.scopes)-1].name)
	}
	klog.V(2).Infof("autodiff: backend %s -> %s", e.backend.Name(), b.Name())
	e.backend = b
	return nil
}

// IsRecording reports whether RunKernel currently appends tape entries.
func (e *Engine) IsRecording() bool {
	return len(e.scopes) > 0 && e.paused == 0
}

// RunKernel runs forward on the active backend and returns its result.
//
// If a scope is recording and grad is non-nil, a tape entry binding inputs,
// the output and grad is appended to every open scope, so an enclosing scope
// sees the operations run inside its nested scopes. A kernel failure is
// returned as an error and leaves the tape untouched.
func (e *Engine) RunKernel(kernel string, forward ForwardFunc, inputs map[string]*tensor.RawTensor, grad GradFunc) (*tensor.RawTensor, error) {
	var result *tensor.RawTensor
	if err := exceptions.TryCatch[error](func() { result = forward(e.backend) }); err != nil {
		return nil, errors.Wrapf(err, "kernel %s failed on backend %s", kernel, e.backend.Name())
	}
	if result == nil {
		return nil, errors.Errorf("kernel %s returned no result on backend %s", kernel, e.backend.Name())
	}
	if e.config.CheckNumerics {
		if err := checkNumerics(kernel, result); err != nil {
			result.Release()
			return nil, err
		}
	}
	e.track(result)

	if e.config.Debug {
		klog.Infof("kernel %s -> %s (recording=%t)", kernel, result, e.IsRecording())
	} else {
		klog.V(1).Infof("kernel %s -> %s (recording=%t)", kernel, result, e.IsRecording())
	}

	if grad != nil && e.IsRecording() {
		recorded := make(map[string]*tensor.RawTensor, len(inputs))
		for name, t := range inputs {
			recorded[name] = t
		}
		e.nextEntryID++
		entry := &TapeEntry{
			ID:     e.nextEntryID,
			Kernel: kernel,
			Inputs: recorded,
			Output: result,
			Grad:   grad,
		}
		for _, s := range e.scopes {
			s.record(entry)
		}
	}
	return result, nil
}

// Dispose releases tensors produced by the engine and drops them from the
// memory accounting. Nil and already released tensors are skipped.
func (e *Engine) Dispose(ts ...*tensor.RawTensor) {
	for _, t := range ts {
		if t == nil {
			continue
		}
		if t.Released() {
			klog.Warningf("autodiff: dispose of already released %s", t)
			continue
		}
		delete(e.live, weak.Make(t))
		t.Release()
	}
}

// DisposeIntermediates disposes tensors created only to compute another
// result. While recording it does nothing: the tape may still reference them.
func (e *Engine) DisposeIntermediates(ts ...*tensor.RawTensor) {
	if e.IsRecording() {
		return
	}
	e.Dispose(ts...)
}

func checkNumerics(kernel string, t *tensor.RawTensor) error {
	var bad int
	switch t.DType() {
	case tensor.Float32:
		for _, v := range t.AsFloat32() {
			if f := float64(v); math.IsNaN(f) || math.IsInf(f, 0) {
				bad++
			}
		}
	case tensor.Float64:
		for _, v := range t.AsFloat64() {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				bad++
			}
		}
	}
	if bad > 0 {
		return errors.Errorf("kernel %s produced %d NaN/Inf value(s) in %s", kernel, bad, t)
	}
	return nil
}
