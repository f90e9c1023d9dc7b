package session

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/search"
	"github.com/standardbeagle/xref/internal/testing/builders"
	"github.com/standardbeagle/xref/internal/types"
)

func writeDatabase(t *testing.T, dir string) string {
	return builders.NewDatabase(t).WithIndex().
		File("main.c").
		Line(1, builders.Text("int "), builders.Def("main"), builders.Text("(void) {")).
		Line(2, builders.Text("  "), builders.Call("run"), builders.Text("();")).
		Line(3, builders.Text("}"), builders.End()).
		Write(dir)
}

func TestOpenUsesIndex(t *testing.T) {
	dir := t.TempDir()
	writeDatabase(t, dir)

	s, err := Open(config.Default(dir), Options{})
	require.NoError(t, err)
	defer s.Close()

	assert.True(t, s.Engine.UsesIndex())

	var res search.Results
	found, err := s.Engine.Search(context.Background(), s.Query(types.FieldCallers, "run"), &res)
	require.NoError(t, err)
	assert.True(t, found)
	require.Len(t, res.All(), 1)
	assert.Equal(t, "main", res.All()[0].Function)
}

func TestOpenNoIndex(t *testing.T) {
	dir := t.TempDir()
	writeDatabase(t, dir)

	s, err := Open(config.Default(dir), Options{NoIndex: true})
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Engine.UsesIndex())
	assert.Nil(t, s.Index)
}

func TestOpenMissingIndexFallsBack(t *testing.T) {
	dir := t.TempDir()
	dbPath := writeDatabase(t, dir)
	terms, postings := invindex.Paths(dbPath)
	require.NoError(t, os.Remove(terms))
	require.NoError(t, os.Remove(postings))

	s, err := Open(config.Default(dir), Options{})
	require.NoError(t, err)
	defer s.Close()
	assert.False(t, s.Engine.UsesIndex())

	var res search.Results
	_, err = s.Engine.Search(context.Background(), s.Query(types.FieldDefinition, "main"), &res)
	require.NoError(t, err)
	assert.Len(t, res.All(), 1)
}

func TestOpenMissingDatabase(t *testing.T) {
	_, err := Open(config.Default(t.TempDir()), Options{})
	assert.Error(t, err)
}

func TestReopenAndQueryOptions(t *testing.T) {
	dir := t.TempDir()
	writeDatabase(t, dir)

	cfg := config.Default(dir)
	cfg.Search.CaseInsensitive = true
	cfg.Search.TruncateSymbols = true
	cfg.Source.Dirs = []string{"src"}

	s, err := Open(cfg, Options{})
	require.NoError(t, err)
	defer s.Close()

	q := s.Query(types.FieldSymbol, "Main")
	assert.True(t, q.CaseInsensitive)
	assert.True(t, q.Truncate)
	assert.Contains(t, s.DB.Sources.SourceDirs(), "src")

	again, err := s.Reopen()
	require.NoError(t, err)
	defer again.Close()
	assert.Equal(t, s.DB.Fingerprint(), again.DB.Fingerprint())
}
