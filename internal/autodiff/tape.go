package autodiff

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"k8s.io/klog/v2"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// TapeEntry records one RunKernel call made while recording.
type TapeEntry struct {
	ID     int                          // engine-wide creation order
	Kernel string                       // kernel name passed to RunKernel
	Inputs map[string]*tensor.RawTensor // named inputs
	Output *tensor.RawTensor
	Grad   GradFunc
}

// Scope is a gradient-recording context.
//
// While a scope is open, every RunKernel call with a GradFunc appends an entry
// to it, including calls made while a nested scope is open. Close discards the
// entries; they never become visible to a scope opened later.
//
// Usage:
//
//	scope := e.StartScope("train-step")
//	defer scope.Close()
//	y, err := ops.Gather(e, x, indices, 0)
//	grads, err := scope.Gradients(y, nil, x)
type Scope struct {
	id      uuid.UUID
	name    string
	engine  *Engine
	entries []*TapeEntry
	closed  bool
}

// StartScope opens a new recording scope nested in any open ones. It must be paired with Close.
func (e *Engine) StartScope(name string) *Scope {
	s := &Scope{
		id:      uuid.New(),
		name:    name,
		engine:  e,
		entries: make([]*TapeEntry, 0, 16),
	}
	e.scopes = append(e.scopes, s)
	klog.V(2).Infof("autodiff: scope %q (%s) opened, depth %d", name, s.id, len(e.scopes))
	return s
}

// ID returns the scope's unique identifier.
func (s *Scope) ID() uuid.UUID {
	return s.id
}

// Name returns the name given to StartScope.
func (s *Scope) Name() string {
	return s.name
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	return s.closed
}

// NumEntries returns the number of recorded entries.
func (s *Scope) NumEntries() int {
	return len(s.entries)
}

// Entries returns the recorded entries in creation order.
func (s *Scope) Entries() []*TapeEntry {
	return append([]*TapeEntry(nil), s.entries...)
}

func (s *Scope) record(entry *TapeEntry) {
	s.entries = append(s.entries, entry)
}

// Close ends the scope and discards its tape. Scopes opened inside it and
// still open are closed first; that is reported as an error after the fact.
// Closing an already closed scope is a no-op.
func (s *Scope) Close() error {
	if s.closed {
		return nil
	}
	e := s.engine
	pos := -1
	for i, open := range e.scopes {
		if open == s {
			pos = i
			break
		}
	}
	var err error
	if pos >= 0 {
		for i := len(e.scopes) - 1; i > pos; i-- {
			inner := e.scopes[i]
			klog.Warningf("autodiff: scope %q closed while inner scope %q is still open", s.name, inner.name)
			err = multierr.Append(err, errors.Errorf("scope %q was still open when enclosing scope %q closed", inner.name, s.name))
			inner.discard()
		}
		e.scopes = e.scopes[:pos]
	}
	s.discard()
	klog.V(2).Infof("autodiff: scope %q (%s) closed, depth %d", s.name, s.id, len(e.scopes))
	return err
}

func (s *Scope) discard() {
	s.entries = nil
	s.closed = true
}

// Close closes every open scope. Each scope left open is reported as an error.
func (e *Engine) Close() error {
	var err error
	for len(e.scopes) > 0 {
		s := e.scopes[len(e.scopes)-1]
		err = multierr.Append(err, errors.Errorf("scope %q (%s) was not closed", s.name, s.id))
		err = multierr.Append(err, s.Close())
	}
	return err
}
