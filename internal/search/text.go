package search

import (
	"context"

	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/matcher"
	"github.com/standardbeagle/xref/internal/srcfiles"
	"github.com/standardbeagle/xref/internal/types"
)

// TextSearcher searches the source files themselves, for queries the
// database cannot answer.
type TextSearcher interface {
	Search(ctx context.Context, expr string, caseless bool, files *srcfiles.List, sink Sink) error
}

// FindString reports source lines that contain the query text literally.
func (e *Engine) FindString(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.findText(ctx, matcher.EscapeText(e.query.Pattern), sink)
}

// FindRegexp reports source lines that match the query expression.
func (e *Engine) FindRegexp(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	return e.findText(ctx, e.query.Pattern, sink)
}

func (e *Engine) findText(ctx context.Context, expr string, sink Sink) error {
	if e.text == nil {
		return xerrors.NewQueryError(e.query.Pattern, xerrors.ErrNoTextSearch)
	}
	return e.finish(e.text.Search(ctx, expr, e.query.CaseInsensitive, e.db.Sources, sink))
}

// FindFile reports the source files whose names match the query.
func (e *Engine) FindFile(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	for i, name := range e.db.Sources.Names() {
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if !e.m.MatchString(name) {
			continue
		}
		err := sink.Put(types.Reference{
			File:     name,
			Function: types.UnknownScope,
			Line:     1,
			Text:     types.UnknownScope,
		})
		if err != nil {
			return e.finish(err)
		}
	}
	return nil
}
