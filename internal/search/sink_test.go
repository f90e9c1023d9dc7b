package search

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/types"
)

func TestResultsStreams(t *testing.T) {
	var res Results
	require.NoError(t, res.Put(ref("a.c", "f", 3, "f();")))
	require.NoError(t, res.Put(ref("a.c", types.GlobalScope, 1, "int g;")))
	require.NoError(t, res.Put(ref("b.c", "h", 9, "g = 1;")))

	all := res.All()
	require.Len(t, all, 3)
	assert.Equal(t, 1, all[0].Line, "global references come first")
	assert.Equal(t, "f", all[1].Function)
	assert.Equal(t, "h", all[2].Function)
}

func TestResultsLimit(t *testing.T) {
	res := Results{Limit: 2}
	require.NoError(t, res.Put(ref("a.c", "f", 1, "x")))
	require.NoError(t, res.Put(ref("a.c", "f", 2, "y")))
	assert.False(t, res.Truncated, "exactly Limit references is not truncated")

	assert.ErrorIs(t, res.Put(ref("a.c", types.GlobalScope, 3, "z")), ErrStop)
	assert.True(t, res.Truncated)
	assert.Equal(t, 2, res.Len())
	assert.Empty(t, res.Global, "the reference past the limit is dropped")
}

func TestResultsLimitThroughSearch(t *testing.T) {
	e := loadFixture(t, sampleDatabase(t), 37).engine()

	res := &Results{Limit: 3}
	found, err := e.Search(context.Background(), Query{Pattern: "helper", Field: types.FieldSymbol}, res)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, res.Len())
	assert.False(t, res.Truncated)

	res = &Results{Limit: 2}
	_, err = e.Search(context.Background(), Query{Pattern: "helper", Field: types.FieldSymbol}, res)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Len())
	assert.True(t, res.Truncated)
}

func TestLineWriter(t *testing.T) {
	var out bytes.Buffer
	lw := &LineWriter{W: &out}
	require.NoError(t, lw.Put(ref("a.c", "f", 3, "f();")))
	require.NoError(t, lw.Put(ref("a.c", types.GlobalScope, 1, "int g;")))
	assert.Equal(t, "a.c <global> 1 int g;\n", out.String(), "global lines are written at once")

	require.NoError(t, lw.Flush())
	assert.Equal(t, "a.c <global> 1 int g;\na.c f 3 f();\n", out.String())
	assert.Equal(t, 2, lw.Count())
}

func TestSinkFunc(t *testing.T) {
	var got []types.Reference
	sink := SinkFunc(func(r types.Reference) error {
		got = append(got, r)
		return nil
	})
	require.NoError(t, sink.Put(ref("a.c", "f", 1, "x")))
	assert.Len(t, got, 1)
}
