package search

import (
	"errors"
	"fmt"
	"io"

	"github.com/standardbeagle/xref/internal/types"
)

// ErrStop may be returned by a Sink to end a query early without error.
var ErrStop = errors.New("stop search")

// Sink receives references as a query produces them.
type Sink interface {
	Put(ref types.Reference) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ref types.Reference) error

// Put implements Sink
func (f SinkFunc) Put(ref types.Reference) error { return f(ref) }

// Results collects references into the global and non-global streams.
// All reports the global stream first. A positive Limit keeps that many
// references; the first one past it is dropped, sets Truncated and stops
// the query.
type Results struct {
	Global    []types.Reference
	NonGlobal []types.Reference
	Limit     int
	Truncated bool
}

// Put implements Sink
func (r *Results) Put(ref types.Reference) error {
	if r.Limit > 0 && r.Len() >= r.Limit {
		r.Truncated = true
		return ErrStop
	}
	if ref.Global {
		r.Global = append(r.Global, ref)
	} else {
		r.NonGlobal = append(r.NonGlobal, ref)
	}
	return nil
}

// Len returns the number of collected references.
func (r *Results) Len() int { return len(r.Global) + len(r.NonGlobal) }

// All returns the global stream followed by the non-global stream.
func (r *Results) All() []types.Reference {
	out := make([]types.Reference, 0, r.Len())
	out = append(out, r.Global...)
	return append(out, r.NonGlobal...)
}

// LineWriter streams global references to W immediately and holds the
// non-global ones until Flush, preserving the stream order.
type LineWriter struct {
	W       io.Writer
	pending []types.Reference
	count   int
}

// Put implements Sink
func (lw *LineWriter) Put(ref types.Reference) error {
	lw.count++
	if !ref.Global {
		lw.pending = append(lw.pending, ref)
		return nil
	}
	_, err := fmt.Fprintln(lw.W, ref.String())
	return err
}

// Flush writes the held references.
func (lw *LineWriter) Flush() error {
	for _, ref := range lw.pending {
		if _, err := fmt.Fprintln(lw.W, ref.String()); err != nil {
			return err
		}
	}
	lw.pending = nil
	return nil
}

// Count returns how many references were written or held.
func (lw *LineWriter) Count() int { return lw.count }
