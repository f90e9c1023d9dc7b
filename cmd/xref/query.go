package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/search"
	"github.com/standardbeagle/xref/internal/session"
	"github.com/standardbeagle/xref/internal/types"
)

// queryOutput is the --json form of a query result.
type queryOutput struct {
	Field       string                `json:"field"`
	Pattern     string                `json:"pattern,omitempty"`
	Found       bool                  `json:"found"`
	Count       int                   `json:"count"`
	References  []types.Reference     `json:"references"`
	Suggestions []invindex.Suggestion `json:"suggestions,omitempty"`
}

func queryCommand(name string, aliases []string, usage string, field types.Field) *cli.Command {
	return &cli.Command{
		Name:      name,
		Aliases:   aliases,
		Usage:     usage,
		ArgsUsage: "<pattern>",
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("usage: xref %s <pattern>", name)
			}
			return runQuery(c, field, strings.Join(c.Args().Slice(), " "))
		},
	}
}

func findCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return errors.New("usage: xref find -n <field> <pattern>")
	}
	field, err := types.ParseField(c.String("field"))
	if err != nil {
		return err
	}
	return runQuery(c, field, strings.Join(c.Args().Slice(), " "))
}

// openSession loads the configuration and opens the database it names.
func openSession(c *cli.Context) (*session.Session, error) {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return nil, err
	}
	return session.Open(cfg, session.Options{NoIndex: c.Bool("no-index")})
}

func interruptible(c *cli.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
}

func runQuery(c *cli.Context, field types.Field, pattern string) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := interruptible(c)
	defer stop()

	q := sess.Query(field, pattern)
	limit := sess.Config.Search.MaxResults
	out := c.App.Writer

	if c.Bool("json") {
		res := &search.Results{Limit: limit}
		found, err := sess.Engine.Search(ctx, q, res)
		if err != nil {
			return err
		}
		result := queryOutput{
			Field:      field.String(),
			Pattern:    pattern,
			Found:      found,
			Count:      res.Len(),
			References: res.All(),
		}
		if !found {
			result.Suggestions = suggest(ctx, sess, field, pattern)
		}
		return writeJSON(out, result)
	}

	lw := &search.LineWriter{W: out}
	found, err := sess.Engine.Search(ctx, q, &limitSink{next: lw, max: limit})
	if flushErr := lw.Flush(); err == nil {
		err = flushErr
	}
	if err != nil {
		return err
	}
	if !found {
		printSuggestions(c.App.ErrWriter, pattern, suggest(ctx, sess, field, pattern))
	}
	return nil
}

func functionsCommand(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, stop := interruptible(c)
	defer stop()

	limit := sess.Config.Search.MaxResults
	if c.Bool("json") {
		res := &search.Results{Limit: limit}
		if err := sess.Engine.FindAllFunctions(ctx, res); err != nil {
			return err
		}
		return writeJSON(c.App.Writer, queryOutput{
			Field:      "functions",
			Found:      res.Len() > 0,
			Count:      res.Len(),
			References: res.All(),
		})
	}

	lw := &search.LineWriter{W: c.App.Writer}
	err = sess.Engine.FindAllFunctions(ctx, &limitSink{next: lw, max: limit})
	if flushErr := lw.Flush(); err == nil {
		err = flushErr
	}
	return err
}

func infoCommand(c *cli.Context) error {
	sess, err := openSession(c)
	if err != nil {
		return err
	}
	defer sess.Close()

	db := sess.DB
	info := map[string]interface{}{
		"database":          db.Path,
		"format_version":    db.Header.Version,
		"compressed":        db.Header.Compressed,
		"inverted_index":    db.Header.InvertedIndex,
		"using_index":       sess.Engine.UsesIndex(),
		"truncated_symbols": db.Header.Truncated,
		"source_files":      db.Sources.Count(),
		"source_dirs":       db.Sources.SourceDirs(),
		"include_dirs":      db.Sources.IncludeDirs(),
		"fingerprint":       fmt.Sprintf("%016x", db.Fingerprint()),
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, info)
	}
	for _, key := range []string{"database", "format_version", "compressed", "inverted_index",
		"using_index", "truncated_symbols", "source_files", "source_dirs", "include_dirs", "fingerprint"} {
		fmt.Fprintf(c.App.Writer, "%-18s %v\n", key+":", info[key])
	}
	return nil
}

// suggest proposes names for a symbol query that found nothing. Failures
// only cost the suggestions.
func suggest(ctx context.Context, sess *session.Session, field types.Field, pattern string) []invindex.Suggestion {
	if !field.SymbolField() || sess.SuggestionLimit() <= 0 {
		return nil
	}
	suggestions, err := sess.Engine.Suggest(ctx, pattern, sess.SuggestionLimit())
	if err != nil {
		return nil
	}
	return suggestions
}

func printSuggestions(w io.Writer, pattern string, suggestions []invindex.Suggestion) {
	if len(suggestions) == 0 {
		return
	}
	names := make([]string, len(suggestions))
	for i, s := range suggestions {
		names[i] = s.Term
	}
	fmt.Fprintf(w, "no matches for %q; did you mean: %s\n", pattern, strings.Join(names, ", "))
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// limitSink ends the query once max references went through; zero means
// no limit.
type limitSink struct {
	next search.Sink
	max  int
	n    int
}

func (l *limitSink) Put(ref types.Reference) error {
	if err := l.next.Put(ref); err != nil {
		return err
	}
	l.n++
	if l.max > 0 && l.n >= l.max {
		return search.ErrStop
	}
	return nil
}
