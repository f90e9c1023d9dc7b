package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFullInfo(t *testing.T) {
	assert.Equal(t, Version, Info())
	assert.True(t, strings.HasPrefix(FullInfo(), "xref "+Version+" (commit: "))

	old := GitCommit
	GitCommit = "abc123"
	t.Cleanup(func() { GitCommit = old })
	assert.Contains(t, FullInfo(), "commit: abc123")
}
