// Package textsearch answers free-text queries by reading the source files
// listed in a database, the way egrep would.
package textsearch

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"regexp"
	"runtime"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"

	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/search"
	"github.com/standardbeagle/xref/internal/srcfiles"
	"github.com/standardbeagle/xref/internal/types"
)

// maxLineLength bounds a single source line; longer lines end the file scan.
const maxLineLength = 1 << 20

// Grep searches source files in parallel and reports matches in the order
// of the database file list.
type Grep struct {
	// Workers bounds the files read at once; zero selects GOMAXPROCS
	Workers int
	// Exclude holds doublestar patterns of file names to skip
	Exclude []string
}

type match struct {
	line int
	text string
}

// Search implements search.TextSearcher.
func (g *Grep) Search(ctx context.Context, expr string, caseless bool, files *srcfiles.List, sink search.Sink) error {
	if caseless {
		expr = "(?i)" + expr
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return xerrors.NewQueryError(expr, fmt.Errorf("%w: %v", xerrors.ErrRegexCompile, err))
	}

	names := files.Names()
	found := make([][]match, len(names))

	workers := g.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for i, name := range names {
		if g.excluded(name) {
			continue
		}
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			path, ok := files.ResolvePath(name)
			if !ok {
				debug.LogSearch("cannot find source file %s\n", name)
				return nil
			}
			matches, err := grepFile(gctx, re, path)
			if err != nil {
				// one unreadable file does not fail the query
				debug.Error("TEXT", err, "cannot read "+path)
				return nil
			}
			found[i] = matches
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for i, matches := range found {
		for _, m := range matches {
			err := sink.Put(types.Reference{
				File:     names[i],
				Function: types.UnknownScope,
				Line:     m.line,
				Text:     m.text,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *Grep) excluded(name string) bool {
	for _, pattern := range g.Exclude {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			continue
		}
		if matched {
			return true
		}
	}
	return false
}

func grepFile(ctx context.Context, re *regexp.Regexp, path string) ([]match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []match
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 64*1024), maxLineLength)
	for no := 1; sc.Scan(); no++ {
		if no%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		line := sc.Text()
		if re.MatchString(line) {
			out = append(out, match{line: no, text: line})
		}
	}
	return out, sc.Err()
}
