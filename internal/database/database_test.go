package database_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/database"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/testing/builders"
)

func TestParseHeader(t *testing.T) {
	tests := []struct {
		line string
		want database.Header
	}{
		{
			line: "cscope 15 /src 0000001234",
			want: database.Header{Version: 15, Dir: "/src", Compressed: true, TrailerOffset: 1234},
		},
		{
			line: "cscope 15 /src -c -q 0000000042 -T 0000001234",
			want: database.Header{
				Version: 15, Dir: "/src", InvertedIndex: true, IndexTerms: 42,
				Truncated: true, TrailerOffset: 1234,
			},
		},
		{
			line: "cscope 9 /usr/src -c 0000000099",
			want: database.Header{Version: 9, Dir: "/usr/src", TrailerOffset: 99},
		},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := database.ParseHeader(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.line+"\n", database.FormatHeader(got))
		})
	}
}

func TestParseHeaderRejects(t *testing.T) {
	for _, line := range []string{
		"",
		"ctags 15 /src 0000001234",
		"cscope x /src 0000001234",
		"cscope 15 /src",
		"cscope 15 /src -z 0000001234",
		"cscope 15 /src -q 0000001234 junk",
		"cscope 15 /src 0",
	} {
		_, err := database.ParseHeader(line)
		assert.Error(t, err, line)
	}
}

func TestLoadTrailer(t *testing.T) {
	built := builders.NewDatabase(t).
		SourceDirs(".", "../lib").
		IncludeDirs("/usr/include").
		File("a.c").Line(1, builders.Text("int "), builders.Sym("a"), builders.Text(";")).
		File("sub/b.c").Line(1, builders.Text("int "), builders.Sym("b"), builders.Text(";")).
		Build()

	db, err := database.Load(bytes.NewReader(built.Data), "/proj/cscope.out")
	require.NoError(t, err)
	assert.Equal(t, built.Header, db.Header)
	assert.Equal(t, []string{"a.c", "sub/b.c"}, db.Sources.Names())
	assert.Equal(t, []string{".", "../lib"}, db.Sources.SourceDirs())
	assert.Equal(t, []string{"/usr/include"}, db.Sources.IncludeDirs())
	assert.Equal(t, "/proj", db.Sources.Root())
	assert.NotZero(t, db.Fingerprint())
}

func TestLoadBadDatabase(t *testing.T) {
	_, err := database.Load(bytes.NewReader([]byte("not a database\n")), "x.out")
	require.Error(t, err)
	assert.True(t, xerrors.IsFatal(err))

	built := builders.NewDatabase(t).File("a.c").Line(1, builders.Sym("a")).Build()
	truncated := built.Data[:built.Header.TrailerOffset+2]
	_, err = database.Load(bytes.NewReader(truncated), "x.out")
	require.Error(t, err)
	assert.True(t, xerrors.IsFatal(err))
}

func TestOpenAndFingerprint(t *testing.T) {
	dir := t.TempDir()
	path := builders.NewDatabase(t).File("a.c").Line(1, builders.Sym("a")).Write(dir)

	db, err := database.Open(path)
	require.NoError(t, err)
	first := db.Fingerprint()
	require.NoError(t, db.Close())

	again, err := database.Fingerprint(path)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	path = builders.NewDatabase(t).File("a.c").File("b.c").Line(1, builders.Sym("b")).Write(dir)
	changed, err := database.Fingerprint(path)
	require.NoError(t, err)
	assert.NotEqual(t, first, changed)

	_, err = database.Open(filepath.Join(dir, "missing.out"))
	var dbErr *xerrors.DatabaseError
	assert.ErrorAs(t, err, &dbErr)
	assert.False(t, xerrors.IsFatal(err))
}

func TestNewStreamReadsSymbolData(t *testing.T) {
	dir := t.TempDir()
	path := builders.NewDatabase(t).File("a.c").Line(1, builders.Sym("a")).Write(dir)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	db, err := database.Open(path, database.WithBlockSize(8))
	require.NoError(t, err)
	defer db.Close()

	s := db.NewStream()
	assert.Equal(t, 8, s.BlockSize())
	ok, err := s.Rewind()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, raw[0], s.Char())
}
