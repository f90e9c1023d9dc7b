package search

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/blockio"
	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/testing/builders"
	"github.com/standardbeagle/xref/internal/types"
)

func TestReconstructLine(t *testing.T) {
	built := sampleDatabase(t).Build()
	codec := encoding.Codec{Compressed: true}

	tests := []struct {
		name string
		typ  types.RecordType
		no   int
		text string
	}{
		{"helper", types.FcnCall, 4, "  helper();"},
		{"WRAP", types.Define, 1, "#define WRAP() helper()"},
		{"x.h", types.Include, 1, `#include "x.h"`},
		{"log_it", types.FcnCall, 4, `  log_it("x");`},
	}
	for _, bs := range blockSizes {
		s := blockio.New(bytes.NewReader(built.Data), "cscope.out", bs)
		for _, tt := range tests {
			rec, ok := built.Find(tt.name, tt.typ, 0)
			require.True(t, ok, tt.name)

			// cursor on the newline that ends the name
			ok, err := s.Seek(nameEnd(codec, rec))
			require.NoError(t, err)
			require.True(t, ok)

			line, err := ReconstructLine(s, codec, 15, false)
			require.NoError(t, err)
			assert.Equal(t, tt.no, line.Number, "block %d %s", bs, tt.name)
			assert.Equal(t, tt.text, line.Text, "block %d %s", bs, tt.name)
		}
	}
}

func TestReconstructLineSeeMore(t *testing.T) {
	built := sampleDatabase(t).Build()
	codec := encoding.Codec{Compressed: true}
	s := blockio.New(bytes.NewReader(built.Data), "cscope.out", 16)

	macro, ok := built.Find("WRAP", types.Define, 0)
	require.True(t, ok)
	ok, err := s.Seek(nameEnd(codec, macro))
	require.NoError(t, err)
	require.True(t, ok)

	_, err = ReconstructLine(s, codec, 15, true)
	require.NoError(t, err)

	// the next record on the line is the call to helper
	ok, err = s.ScanPast('\t')
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, byte(types.FcnCall), s.Char())
}

func TestReconstructLineRequiresLineNumber(t *testing.T) {
	b := builders.NewDatabase(t).
		File("a.c").
		Line(1, builders.Text("int "), builders.Sym("x"), builders.Text(";"))
	built := b.Build()
	rec, ok := built.Find("x", types.Ident, 0)
	require.True(t, ok)

	data := append([]byte(nil), built.Data...)
	data[rec.LineOffset] = 'q'
	s := blockio.New(bytes.NewReader(data), "cscope.out", 16)
	_, err := s.Seek(rec.Offset + 1)
	require.NoError(t, err)

	_, err = ReconstructLine(s, encoding.Codec{Compressed: true}, 15, false)
	require.Error(t, err)
	assert.True(t, xerrors.IsFatal(err))

	// older databases do not promise a number
	_, err = s.Seek(rec.Offset + 1)
	require.NoError(t, err)
	line, err := ReconstructLine(s, encoding.Codec{Compressed: true}, 11, false)
	require.NoError(t, err)
	assert.Equal(t, "q int x;", line.Text)
}

// nameEnd returns the offset of the newline after a stored name.
func nameEnd(codec encoding.Codec, rec builders.Record) int64 {
	return rec.Offset + int64(len(codec.CompressPattern(rec.Name)))
}

func TestSplitLineNumber(t *testing.T) {
	assert.Equal(t, SourceLine{Number: 42, Text: "x = 1;"}, splitLineNumber("42 x = 1;"))
	assert.Equal(t, SourceLine{Number: 7, Text: ""}, splitLineNumber("7"))
	assert.Equal(t, SourceLine{Text: "no number"}, splitLineNumber("no number"))
}
