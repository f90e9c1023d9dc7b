package search

import (
	"context"

	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/types"
)

func (e *Engine) formatError(reason string) error {
	return xerrors.NewFormatError(e.db.Path, e.stream.Offset(), reason)
}

// seek moves the stream to an offset taken from the index or saved by a
// driver. An offset past the end of the database means the index and the
// database disagree.
func (e *Engine) seek(offset int64) error {
	ok, err := e.stream.Seek(offset)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.NewFormatError(e.db.Path, offset, "offset beyond end of database")
	}
	return nil
}

// lookup collects the postings of every index term the query matches.
func (e *Engine) lookup(ctx context.Context) ([]types.Posting, error) {
	progress := invindex.ProgressFunc(e.progress)
	set := e.index.FindTerms(e.m, progress)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	postings, err := set.Postings(progress)
	if err != nil {
		return nil, err
	}
	return postings, ctx.Err()
}

// putPostingRef emits the line a posting points at. An empty attribution is
// resolved from the posting: a function definition names itself, a posting
// outside any function is global, anything else names the function at its
// function offset.
func (e *Engine) putPostingRef(sink Sink, p types.Posting, attribution string) error {
	file := e.db.Sources.Name(int(p.FileIndex))
	fn := attribution
	if fn == "" {
		var err error
		if fn, err = e.postingFunction(p); err != nil {
			return err
		}
	}
	if err := e.seek(p.LineOffset); err != nil {
		return err
	}
	return e.putRef(sink, file, fn, false)
}

func (e *Engine) postingFunction(p types.Posting) (string, error) {
	switch {
	case p.FcnOffset == 0 && p.Type == types.FcnDef:
		if err := e.seek(p.LineOffset); err != nil {
			return "", err
		}
		for {
			mark, ok, err := e.nextRecord()
			if err != nil {
				return "", err
			}
			if !ok {
				return "", e.formatError("function definition posting has no definition record")
			}
			if mark == types.FcnDef {
				return e.readName()
			}
		}
	case p.FcnOffset == 0:
		return types.GlobalScope, nil
	case p.FcnOffset == e.lastFcnOffset:
		return e.lastFcnName, nil
	}
	if err := e.seek(p.FcnOffset); err != nil {
		return "", err
	}
	name, err := e.codec.DecodeName(e.stream)
	if err != nil {
		return "", err
	}
	e.lastFcnOffset = p.FcnOffset
	e.lastFcnName = name
	return name, nil
}

func (e *Engine) findSymbolIndexed(ctx context.Context, sink Sink) error {
	postings, err := e.lookup(ctx)
	if err != nil {
		return err
	}
	lastLine := int64(-1)
	for i, p := range postings {
		if p.Type == types.Include {
			continue
		}
		// one reference per line, even when the symbol appears twice on it
		if p.LineOffset == lastLine {
			continue
		}
		lastLine = p.LineOffset
		if err := e.putPostingRef(sink, p, ""); err != nil {
			return err
		}
		if i%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) findDefinitionIndexed(ctx context.Context, sink Sink) error {
	postings, err := e.lookup(ctx)
	if err != nil {
		return err
	}
	for _, p := range postings {
		if !p.Type.IsDefinition() {
			continue
		}
		if err := e.putPostingRef(sink, p, e.m.Pattern()); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (e *Engine) findCallersIndexed(ctx context.Context, sink Sink) error {
	postings, err := e.lookup(ctx)
	if err != nil {
		return err
	}
	for _, p := range postings {
		if p.Type != types.FcnCall {
			continue
		}
		if err := e.putPostingRef(sink, p, ""); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (e *Engine) findCalleesIndexed(ctx context.Context, sink Sink) (bool, error) {
	postings, err := e.lookup(ctx)
	if err != nil {
		return false, err
	}
	found := false
	for _, p := range postings {
		if p.Type != types.Define && p.Type != types.FcnDef {
			continue
		}
		if err := e.seek(p.LineOffset); err != nil {
			return found, err
		}
		// step onto the definition record so the body scan starts after it
		if _, ok, err := e.nextRecord(); err != nil || !ok {
			return found, err
		}
		found = true
		file := e.db.Sources.Name(int(p.FileIndex))
		if _, err := e.calleesOf(sink, file, p.Type == types.Define, true); err != nil {
			return found, err
		}
	}
	return found, ctx.Err()
}

func (e *Engine) findIncludesIndexed(ctx context.Context, sink Sink) error {
	postings, err := e.lookup(ctx)
	if err != nil {
		return err
	}
	for _, p := range postings {
		if p.Type != types.Include {
			continue
		}
		if err := e.putPostingRef(sink, p, types.GlobalScope); err != nil {
			return err
		}
	}
	return ctx.Err()
}
