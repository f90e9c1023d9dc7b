package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/standardbeagle/xref/internal/types"
)

func TestToRelative(t *testing.T) {
	tests := []struct {
		name     string
		absPath  string
		rootDir  string
		expected string
	}{
		{"file under root", "/src/proj/lib/io.c", "/src/proj", "lib/io.c"},
		{"root level file", "/src/proj/main.c", "/src/proj", "main.c"},
		{"root itself", "/src/proj", "/src/proj", "."},
		{"already relative", "lib/io.c", "/src/proj", "lib/io.c"},
		{"outside root", "/usr/include/stdio.h", "/src/proj", "/usr/include/stdio.h"},
		{"sibling with shared prefix", "/src/project2/a.c", "/src/proj", "/src/project2/a.c"},
		{"dotdot-named file under root", "/src/proj/..hidden.c", "/src/proj", "..hidden.c"},
		{"unclean path", "/src/proj/lib/../main.c", "/src/proj/", "main.c"},
		{"empty root", "/src/proj/main.c", "", "/src/proj/main.c"},
		{"empty path", "", "/src/proj", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ToRelative(tt.absPath, tt.rootDir))
		})
	}
}

func TestToRelativeReferences(t *testing.T) {
	refs := []types.Reference{
		{File: "/src/proj/main.c", Function: "main", Line: 3, Text: "run();"},
		{File: "/usr/include/stdio.h", Function: types.GlobalScope, Line: 1, Text: "int printf();"},
		{File: "util.c", Function: "run", Line: 9, Text: "}"},
	}

	got := ToRelativeReferences(refs, "/src/proj")
	assert.Equal(t, "main.c", got[0].File)
	assert.Equal(t, "/usr/include/stdio.h", got[1].File)
	assert.Equal(t, "util.c", got[2].File)
	assert.Equal(t, "main", got[0].Function)

	assert.Equal(t, "/src/proj/main.c", refs[0].File, "input must not change")
	assert.Nil(t, ToRelativeReferences(nil, "/src/proj"))
}
