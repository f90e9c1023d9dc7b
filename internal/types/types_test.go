package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseField(t *testing.T) {
	tests := []struct {
		in   string
		want Field
	}{
		{"0", FieldSymbol},
		{"1", FieldDefinition},
		{"3", FieldCallers},
		{"8", FieldIncludes},
		{"callees", FieldCallees},
		{" Egrep ", FieldRegexp},
		{"text", FieldString},
	}
	for _, tt := range tests {
		got, err := ParseField(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"9", "-1", "", "grep"} {
		_, err := ParseField(bad)
		assert.Error(t, err, bad)
	}
}

func TestSymbolField(t *testing.T) {
	for _, f := range []Field{FieldSymbol, FieldDefinition, FieldCallees, FieldCallers} {
		assert.True(t, f.SymbolField(), f.String())
	}
	for _, f := range []Field{FieldString, FieldRegexp, FieldFile, FieldIncludes} {
		assert.False(t, f.SymbolField(), f.String())
	}
}

func TestRecordTypes(t *testing.T) {
	assert.True(t, IsMark('$'))
	assert.True(t, IsMark('~'))
	assert.False(t, IsMark(0))
	assert.False(t, IsMark('x'))

	assert.True(t, FcnDef.IsDefinition())
	assert.True(t, Define.IsDefinition())
	assert.False(t, FcnCall.IsDefinition())
	assert.False(t, Include.IsDefinition())
	assert.False(t, LocalDef.IsDefinition())

	assert.Equal(t, "function", FcnDef.String())
	assert.Equal(t, "record('x')", RecordType('x').String())
}

func TestReferenceString(t *testing.T) {
	ref := Reference{File: "x.c", Function: GlobalScope, Line: 12, Text: "int count;"}
	assert.Equal(t, "x.c <global> 12 int count;", ref.String())
}
