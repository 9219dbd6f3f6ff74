package autodiff

import (
	"fmt"
	"weak"

	"github.com/dustin/go-humanize"

	"github.com/born-ml/segmentgrad/internal/tensor"
)

// MemoryInfo is a snapshot of what the engine currently holds.
type MemoryInfo struct {
	NumTensors     int // kernel outputs neither disposed nor garbage collected
	NumBytes       int // bytes held by those tensors
	NumScopes      int // open recording scopes
	NumTapeEntries int // entries across all open scopes
}

// String formats the snapshot for logs.
func (m MemoryInfo) String() string {
	return fmt.Sprintf("%s tensors (%s), %d scope(s), %s tape entries",
		humanize.Comma(int64(m.NumTensors)), humanize.IBytes(uint64(m.NumBytes)),
		m.NumScopes, humanize.Comma(int64(m.NumTapeEntries)))
}

// Memory reports live tensors and tape usage.
func (e *Engine) Memory() MemoryInfo {
	e.prune()
	var info MemoryInfo
	for _, size := range e.live {
		info.NumTensors++
		info.NumBytes += size
	}
	info.NumScopes = len(e.scopes)
	if len(e.scopes) > 0 {
		// The outermost scope holds every entry of the scopes nested in it.
		info.NumTapeEntries = len(e.scopes[0].entries)
	}
	return info
}

// track adds t to the memory accounting, pruning collected tensors when the
// map has doubled since the last prune.
func (e *Engine) track(t *tensor.RawTensor) {
	if len(e.live) >= e.pruneAt {
		e.prune()
		e.pruneAt = max(minPruneAt, 2*len(e.live))
	}
	e.live[weak.Make(t)] = t.ByteSize()
}

// prune drops tensors that were garbage collected or released outside Dispose.
func (e *Engine) prune() {
	for p := range e.live {
		if t := p.Value(); t == nil || t.Released() {
			delete(e.live, p)
		}
	}
}
