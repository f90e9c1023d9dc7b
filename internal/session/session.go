// Package session opens a database with everything a query needs: the
// inverted index when present, the compiled-expression cache and the text
// searcher. The CLI and the MCP server both go through it.
package session

import (
	"errors"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/database"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/matcher"
	"github.com/standardbeagle/xref/internal/search"
	"github.com/standardbeagle/xref/internal/textsearch"
	"github.com/standardbeagle/xref/internal/types"
)

// Options adjust how a session is opened on top of the configuration.
type Options struct {
	// NoIndex forces forward scans even when an inverted index exists
	NoIndex  bool
	Progress search.ProgressFunc
}

// Session is one open database and the engine over it.
type Session struct {
	Config *config.Config
	DB     *database.Database
	Index  *invindex.Index
	Engine *search.Engine

	opts  Options
	cache *matcher.Cache
}

// Open opens the configured database. A missing or unreadable inverted
// index is logged and the session falls back to scanning.
func Open(cfg *config.Config, opts Options) (*Session, error) {
	return open(cfg, opts, matcher.NewCache(cfg.Search.RegexCacheSize))
}

func open(cfg *config.Config, opts Options, cache *matcher.Cache) (*Session, error) {
	db, err := database.Open(cfg.DatabasePath(), database.WithBlockSize(cfg.Database.BlockSize))
	if err != nil {
		return nil, err
	}
	db.Sources.AddSourceDirs(cfg.Source.Dirs...)

	s := &Session{Config: cfg, DB: db, opts: opts, cache: cache}

	engineOpts := []search.Option{
		search.WithCache(cache),
		search.WithTextSearcher(&textsearch.Grep{
			Workers: cfg.TextSearch.Workers,
			Exclude: cfg.Source.Exclude,
		}),
	}
	if opts.Progress != nil {
		engineOpts = append(engineOpts, search.WithProgress(opts.Progress))
	}

	if db.Header.InvertedIndex && cfg.Database.UseInvertedIndex && !opts.NoIndex {
		ix, err := invindex.Open(db.Path)
		switch {
		case err == nil:
			s.Index = ix
			engineOpts = append(engineOpts, search.WithIndex(ix))
		case errors.Is(err, invindex.ErrNoIndex):
			debug.LogDatabase("no inverted index beside %s, scanning instead\n", db.Path)
		default:
			debug.Error("DB", err, "inverted index unusable, scanning instead")
		}
	}

	s.Engine = search.New(db, engineOpts...)
	return s, nil
}

// Reopen opens the same database again, sharing the expression cache.
// The receiver stays usable; the caller closes whichever it discards.
func (s *Session) Reopen() (*Session, error) {
	return open(s.Config, s.opts, s.cache)
}

// Query builds a query for field with the configured matching options.
func (s *Session) Query(field types.Field, pattern string) search.Query {
	return search.Query{
		Pattern:         pattern,
		Field:           field,
		CaseInsensitive: s.Config.Search.CaseInsensitive,
		Truncate:        s.Config.Search.TruncateSymbols,
	}
}

// SuggestionLimit is the number of names proposed when a query finds nothing.
func (s *Session) SuggestionLimit() int { return s.Config.Search.Suggestions }

// Close releases the database and index files.
func (s *Session) Close() error {
	var err error
	if s.Index != nil {
		err = s.Index.Close()
	}
	if cerr := s.DB.Close(); err == nil {
		err = cerr
	}
	return err
}
