package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseKDL_Sections(t *testing.T) {
	cfg := Default("/proj")
	err := parseKDL(`
database {
    path "build/cscope.out"
    block_size "4KB"
    use_inverted_index false
}
search {
    case_insensitive true
    truncate_symbols true
    max_results 50
}
source {
    dirs "../lib" "/opt/src"
    exclude {
        "gen/**"
        "**/*.pb.c"
    }
}
text_search {
    workers 3
}
watch {
    enabled false
    debounce_ms 100
    patterns "*.out"
}
`, cfg)
	require.NoError(t, err)

	assert.Equal(t, "build/cscope.out", cfg.Database.Path)
	assert.Equal(t, 4096, cfg.Database.BlockSize)
	assert.False(t, cfg.Database.UseInvertedIndex)
	assert.True(t, cfg.Search.CaseInsensitive)
	assert.True(t, cfg.Search.TruncateSymbols)
	assert.Equal(t, 50, cfg.Search.MaxResults)
	assert.Equal(t, 64, cfg.Search.RegexCacheSize, "unset keys keep their defaults")
	assert.Equal(t, []string{"../lib", "/opt/src"}, cfg.Source.Dirs)
	assert.Equal(t, []string{"gen/**", "**/*.pb.c"}, cfg.Source.Exclude)
	assert.Equal(t, 3, cfg.TextSearch.Workers)
	assert.False(t, cfg.Watch.Enabled)
	assert.Equal(t, 100, cfg.Watch.DebounceMs)
	assert.Equal(t, []string{"*.out"}, cfg.Watch.Patterns)
}

func TestParseKDL_Invalid(t *testing.T) {
	err := parseKDL(`database {`, Default("/proj"))
	assert.Error(t, err)
}

func TestRenderKDLRoundTrip(t *testing.T) {
	want := Default("/proj")
	want.Source.Exclude = []string{"gen/**"}
	want.Source.Dirs = []string{"../lib"}
	want.Search.MaxResults = 10

	got := Default("/proj")
	require.NoError(t, parseKDL(RenderKDL(want), got))
	assert.Equal(t, want, got)
}

func TestLoadLayersGlobalAndProject(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, KDLFileName, `
search {
    case_insensitive true
    max_results 7
}
source {
    exclude "**/third_party/**"
}
`)

	project := t.TempDir()
	writeFile(t, project, KDLFileName, `
search {
    max_results 20
}
source {
    exclude "gen/**"
}
`)

	cfg, err := LoadWithRoot("", project)
	require.NoError(t, err)

	abs, err := filepath.Abs(project)
	require.NoError(t, err)
	assert.Equal(t, abs, cfg.Project.Root)
	assert.True(t, cfg.Search.CaseInsensitive, "global settings apply")
	assert.Equal(t, 20, cfg.Search.MaxResults, "project settings win")
	assert.Equal(t, []string{"**/third_party/**", "gen/**"}, cfg.Source.Exclude)
	assert.Equal(t, filepath.Join(abs, DefaultDatabaseName), cfg.DatabasePath())
}

func TestLoadTOMLProject(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	project := t.TempDir()
	writeFile(t, project, TOMLFileName, `
[database]
path = "/var/db/cscope.out"
use_inverted_index = false

[search]
truncate_symbols = true

[watch]
patterns = ["xref*.out"]
`)

	cfg, err := LoadWithRoot("", project)
	require.NoError(t, err)
	assert.Equal(t, "/var/db/cscope.out", cfg.DatabasePath())
	assert.False(t, cfg.Database.UseInvertedIndex)
	assert.True(t, cfg.Search.TruncateSymbols)
	assert.Equal(t, []string{"xref*.out"}, cfg.Watch.Patterns)
	assert.Equal(t, types.DefaultBlockSize, cfg.Database.BlockSize)
}

func TestLoadTOMLUnknownKey(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "x.toml", "[search]\nfuzzy = true\n")
	_, err := Load(path)
	var cfgErr *xerrors.ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestLoadExplicitFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	writeFile(t, home, KDLFileName, "search {\n    case_insensitive true\n}\n")

	dir := t.TempDir()
	path := writeFile(t, dir, "custom.kdl", "database {\n    path \"db/cscope.out\"\n}\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "db/cscope.out", cfg.Database.Path)
	assert.False(t, cfg.Search.CaseInsensitive, "an explicit file is read on its own")

	_, err = Load(filepath.Join(dir, "missing.kdl"))
	assert.Error(t, err)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := LoadWithRoot("", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultDatabaseName, cfg.Database.Path)
	assert.True(t, cfg.Database.UseInvertedIndex)
	assert.True(t, cfg.Watch.Enabled)
}

func TestValidateAndSetDefaults(t *testing.T) {
	cfg := Default("/proj")
	cfg.Database.BlockSize = 0
	cfg.Search.RegexCacheSize = 0
	cfg.Watch.Patterns = nil

	require.NoError(t, ValidateConfig(cfg))
	assert.Equal(t, types.DefaultBlockSize, cfg.Database.BlockSize)
	assert.Equal(t, 64, cfg.Search.RegexCacheSize)
	assert.Equal(t, max(1, runtime.NumCPU()-1), cfg.TextSearch.Workers)
	assert.Equal(t, []string{"cscope*.out"}, cfg.Watch.Patterns)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty root", func(c *Config) { c.Project.Root = "" }, "project.root"},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"tiny blocks", func(c *Config) { c.Database.BlockSize = 4 }, "database.block_size"},
		{"negative results", func(c *Config) { c.Search.MaxResults = -1 }, "search.max_results"},
		{"negative workers", func(c *Config) { c.TextSearch.Workers = -2 }, "text_search.workers"},
		{"bad exclude", func(c *Config) { c.Source.Exclude = []string{"[a-"} }, "source.exclude"},
		{"negative debounce", func(c *Config) { c.Watch.DebounceMs = -1 }, "watch.debounce_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default("/proj")
			tt.mutate(cfg)
			err := ValidateConfig(cfg)
			var cfgErr *xerrors.ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestMergeExclusions(t *testing.T) {
	got := mergeExclusions([]string{"a", "b"}, []string{"b", "c", "a"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestRenderTOML(t *testing.T) {
	out, err := RenderTOML(Default("/proj"))
	require.NoError(t, err)
	assert.Contains(t, out, "[database]")
	assert.Contains(t, out, "path = 'cscope.out'")
}
