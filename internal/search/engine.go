// Package search runs symbol queries against a cross-reference database.
//
// A query is initialised with FindInit, run by one of the Find drivers and
// released with FindCleanup; Search does all three. Every driver has two
// paths: a forward scan of the whole database, and a lookup through the
// inverted index that seeks straight to candidate lines. The engine owns a
// single block stream, so queries on one Engine must not run concurrently.
package search

import (
	"context"
	"errors"

	"github.com/standardbeagle/xref/internal/blockio"
	"github.com/standardbeagle/xref/internal/database"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/matcher"
	"github.com/standardbeagle/xref/internal/types"
)

// ProgressFunc receives periodic progress: files scanned, terms matched,
// postings retrieved.
type ProgressFunc func(stage string, done, total int)

// Query describes one search.
type Query struct {
	Pattern         string
	Field           types.Field
	CaseInsensitive bool
	Truncate        bool
}

// Engine answers queries against one open database.
type Engine struct {
	db       *database.Database
	stream   *blockio.Stream
	codec    encoding.Codec
	index    *invindex.Index
	cache    *matcher.Cache
	text     TextSearcher
	progress ProgressFunc

	query *Query
	m     *matcher.Matcher
	fatal error

	lastFcnOffset int64
	lastFcnName   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithIndex enables the inverted-index paths.
func WithIndex(ix *invindex.Index) Option {
	return func(e *Engine) { e.index = ix }
}

// WithTextSearcher sets the free-text search used by the text and egrep fields.
func WithTextSearcher(ts TextSearcher) Option {
	return func(e *Engine) { e.text = ts }
}

// WithProgress sets the progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) { e.progress = fn }
}

// WithCache shares a compiled-expression cache between engines.
func WithCache(c *matcher.Cache) Option {
	return func(e *Engine) { e.cache = c }
}

// New creates an engine over db.
func New(db *database.Database, opts ...Option) *Engine {
	e := &Engine{
		db:            db,
		stream:        db.NewStream(),
		codec:         encoding.Codec{Compressed: db.Header.Compressed},
		lastFcnOffset: -1,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = matcher.NewCache(64)
	}
	return e
}

// Database returns the database the engine reads.
func (e *Engine) Database() *database.Database { return e.db }

// UsesIndex reports whether queries go through the inverted index.
func (e *Engine) UsesIndex() bool {
	return e.index != nil && e.db.Header.InvertedIndex
}

// FindInit validates and compiles a query. It rejects patterns that are
// neither symbols nor valid regular expressions.
func (e *Engine) FindInit(q Query) error {
	if e.fatal != nil {
		return e.fatal
	}
	e.FindCleanup()
	switch q.Field {
	case types.FieldString, types.FieldRegexp:
		// compiled by the text searcher
	case types.FieldChange:
		return xerrors.NewQueryError(q.Pattern, errors.New("text replacement is not supported"))
	default:
		m, err := matcher.Compile(q.Pattern, matcher.Options{
			Field:           q.Field,
			CaseInsensitive: q.CaseInsensitive,
			Truncate:        q.Truncate,
			InvertedIndex:   e.UsesIndex(),
			Compressed:      e.db.Header.Compressed,
			DBTruncated:     e.db.Header.Truncated,
			Cache:           e.cache,
		})
		if err != nil {
			return err
		}
		e.m = m
	}
	e.query = &q
	debug.LogSearch("query %s %q (index=%v)\n", q.Field, q.Pattern, e.UsesIndex())
	return nil
}

// FindCleanup releases the compiled query.
func (e *Engine) FindCleanup() {
	e.query = nil
	e.m = nil
	e.lastFcnOffset = -1
	e.lastFcnName = ""
}

// Search runs one complete query. Global references reach the sink as they
// are found; see Results for stream ordering.
func (e *Engine) Search(ctx context.Context, q Query, sink Sink) (bool, error) {
	if err := e.FindInit(q); err != nil {
		return false, err
	}
	defer e.FindCleanup()

	counter := &countingSink{next: sink}
	var found bool
	var err error
	switch q.Field {
	case types.FieldSymbol:
		err = e.FindSymbol(ctx, counter)
	case types.FieldDefinition:
		err = e.FindDefinition(ctx, counter)
	case types.FieldCallees:
		found, err = e.FindCallees(ctx, counter)
	case types.FieldCallers:
		err = e.FindCallers(ctx, counter)
	case types.FieldString:
		err = e.FindString(ctx, counter)
	case types.FieldRegexp:
		err = e.FindRegexp(ctx, counter)
	case types.FieldFile:
		err = e.FindFile(ctx, counter)
	case types.FieldIncludes:
		err = e.FindIncludes(ctx, counter)
	}
	return found || counter.n > 0, err
}

type countingSink struct {
	next Sink
	n    int
}

func (c *countingSink) Put(ref types.Reference) error {
	c.n++
	return c.next.Put(ref)
}

// finish maps driver errors to the caller's view: ErrStop is a clean end,
// format errors poison the engine, I/O errors are logged.
func (e *Engine) finish(err error) error {
	if err == nil || errors.Is(err, ErrStop) {
		return nil
	}
	if xerrors.IsFatal(err) {
		e.fatal = err
	}
	var dbErr *xerrors.DatabaseError
	if errors.As(err, &dbErr) || xerrors.IsFatal(err) {
		debug.Error("SEARCH", err, "query aborted")
	}
	return err
}

func (e *Engine) ready() error {
	if e.fatal != nil {
		return e.fatal
	}
	if e.query == nil {
		return xerrors.ErrNoQuery
	}
	return nil
}

func (e *Engine) report(stage string, done, total int) {
	if e.progress != nil {
		e.progress(stage, done, total)
	}
}

// putRef reconstructs the line under the cursor and emits it.
func (e *Engine) putRef(sink Sink, file, function string, seeMore bool) error {
	line, err := ReconstructLine(e.stream, e.codec, e.db.Header.Version, seeMore)
	if err != nil {
		return err
	}
	return sink.Put(types.Reference{
		File:     file,
		Function: function,
		Line:     line.Number,
		Text:     line.Text,
		Global:   function == types.GlobalScope,
	})
}

// Suggest proposes known names close to name, for queries that found nothing.
func (e *Engine) Suggest(ctx context.Context, name string, max int) ([]invindex.Suggestion, error) {
	if e.index != nil {
		return e.index.Suggest(name, max), nil
	}
	names, err := e.definitionNames(ctx)
	if err != nil {
		return nil, err
	}
	return invindex.Suggest(name, names, max), nil
}
