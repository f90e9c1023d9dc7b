package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

func TestLiteralSymbolIsCompressed(t *testing.T) {
	m, err := Compile("helper  \t", Options{Field: types.FieldSymbol, Compressed: true})
	require.NoError(t, err)

	assert.False(t, m.IsRegexp())
	assert.Equal(t, "helper", m.Pattern())
	assert.Equal(t, encoding.Codec{Compressed: true}.CompressPattern("helper"), m.Compressed())
	assert.True(t, m.MatchString("helper"))
	assert.False(t, m.MatchString("helpers"))
}

func TestUncompressedDatabaseKeepsLiteral(t *testing.T) {
	m, err := Compile("printer", Options{Field: types.FieldDefinition})
	require.NoError(t, err)
	assert.Equal(t, []byte("printer"), m.Compressed())
}

func TestNotASymbol(t *testing.T) {
	for _, p := range []string{"a b", "1abc", "foo-bar", ""} {
		_, err := Compile(p, Options{Field: types.FieldCallers})
		require.Error(t, err, "pattern %q", p)
		assert.ErrorIs(t, err, xerrors.ErrNotASymbol)
	}
}

func TestRegexpIsAnchored(t *testing.T) {
	m, err := Compile("^get.*$", Options{Field: types.FieldSymbol})
	require.NoError(t, err)

	assert.True(t, m.IsRegexp())
	assert.Equal(t, "get.*", m.Pattern())
	assert.Equal(t, "get", m.Prefix())
	assert.True(t, m.MatchString("getline"))
	assert.False(t, m.MatchString("forget"))
}

func TestEscapedDollarStaysLiteral(t *testing.T) {
	m, err := Compile(`a.b\$`, Options{Field: types.FieldSymbol})
	require.NoError(t, err)
	assert.True(t, m.MatchString("axb$"))
	assert.False(t, m.MatchString("axb"))
}

func TestBadRegexp(t *testing.T) {
	_, err := Compile("foo[", Options{Field: types.FieldSymbol})
	require.Error(t, err)
	assert.ErrorIs(t, err, xerrors.ErrRegexCompile)

	var qe *xerrors.QueryError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, xerrors.ErrorTypeRegex, qe.Type)
}

func TestCaseInsensitive(t *testing.T) {
	m, err := Compile("Foo", Options{Field: types.FieldSymbol, CaseInsensitive: true})
	require.NoError(t, err)

	assert.True(t, m.IsRegexp())
	for _, name := range []string{"foo", "FOO", "fOo", "Foo"} {
		assert.True(t, m.MatchString(name), name)
	}
	assert.False(t, m.MatchString("food"))
	assert.Equal(t, "Foo", m.Prefix())
}

func TestInvertedIndexForcesRegexp(t *testing.T) {
	m, err := Compile("ab", Options{Field: types.FieldSymbol, InvertedIndex: true})
	require.NoError(t, err)
	assert.True(t, m.IsRegexp())
	assert.Equal(t, "ab", m.Prefix())
	assert.True(t, m.MatchString("ab"))
	assert.False(t, m.MatchString("abc"))
}

func TestPrefixHandlesOptionalCharacters(t *testing.T) {
	m, err := Compile("abc?d*", Options{Field: types.FieldSymbol})
	require.NoError(t, err)
	assert.Equal(t, "ab", m.Prefix())
}

func TestTruncationAgainstFullDatabase(t *testing.T) {
	m, err := Compile("very_long_name", Options{Field: types.FieldSymbol, Truncate: true})
	require.NoError(t, err)
	assert.True(t, m.IsRegexp())
	assert.True(t, m.MatchString("very_lon"))
	assert.True(t, m.MatchString("very_long_other"))
	assert.False(t, m.MatchString("very_lo"))
}

func TestTruncationAgainstTruncatedDatabase(t *testing.T) {
	m, err := Compile("very_long_name", Options{Field: types.FieldSymbol, Truncate: true, DBTruncated: true})
	require.NoError(t, err)
	assert.False(t, m.IsRegexp())
	assert.Equal(t, "very_lon", m.Pattern())
}

func TestFileFieldMatchesAnywhere(t *testing.T) {
	m, err := Compile("util", Options{Field: types.FieldFile})
	require.NoError(t, err)
	assert.True(t, m.IsRegexp())
	assert.Equal(t, "", m.Prefix())
	assert.True(t, m.MatchString("src/strutil.c"))

	m, err = Compile("STDIO", Options{Field: types.FieldIncludes, CaseInsensitive: true})
	require.NoError(t, err)
	assert.True(t, m.MatchString("stdio.h"))
}

func TestCompileUsesCache(t *testing.T) {
	cache := NewCache(4)
	for i := 0; i < 3; i++ {
		_, err := Compile("get.*", Options{Field: types.FieldSymbol, Cache: cache})
		require.NoError(t, err)
	}
	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Misses, "anchored form and prefix form compile once each")
	assert.Equal(t, int64(4), stats.Hits)
}

func TestClassifier(t *testing.T) {
	assert.True(t, IsSymbol("_x1"))
	assert.False(t, IsSymbol("x.y"))
	assert.True(t, HasMeta("a*"))
	assert.False(t, HasMeta("abc"))
	assert.Equal(t, "ab", SimplePrefix("ab.*"))
	assert.Equal(t, `a\.b\(c\)`, EscapeText("a.b(c)"))
}
