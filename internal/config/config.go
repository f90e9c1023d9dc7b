package config

import (
	"os"
	"path/filepath"

	"github.com/standardbeagle/xref/internal/types"
)

// Config file names looked up in the project directory and, for KDL, in the
// home directory.
const (
	KDLFileName  = ".xref.kdl"
	TOMLFileName = ".xref.toml"
)

// DefaultDatabaseName is the database file looked for when none is configured.
const DefaultDatabaseName = "cscope.out"

type Config struct {
	Version    int        `toml:"version"`
	Project    Project    `toml:"project"`
	Database   Database   `toml:"database"`
	Search     Search     `toml:"search"`
	Source     Source     `toml:"source"`
	TextSearch TextSearch `toml:"text_search"`
	Watch      Watch      `toml:"watch"`
}

type Project struct {
	Root string `toml:"root"`
}

type Database struct {
	Path             string `toml:"path"`       // relative paths are resolved against the project root
	BlockSize        int    `toml:"block_size"` // bytes per read; 0 = default
	UseInvertedIndex bool   `toml:"use_inverted_index"`
}

type Search struct {
	CaseInsensitive bool `toml:"case_insensitive"`
	TruncateSymbols bool `toml:"truncate_symbols"` // compare only the first 8 characters
	MaxResults      int  `toml:"max_results"`      // 0 = unlimited
	RegexCacheSize  int  `toml:"regex_cache_size"`
	Suggestions     int  `toml:"suggestions"` // names proposed when a query finds nothing
}

type Source struct {
	Dirs    []string `toml:"dirs"`    // extra directories for resolving source names
	Exclude []string `toml:"exclude"` // doublestar patterns skipped by text search
}

type TextSearch struct {
	Workers int `toml:"workers"` // 0 = auto-detect
}

type Watch struct {
	Enabled    bool     `toml:"enabled"`
	DebounceMs int      `toml:"debounce_ms"`
	Patterns   []string `toml:"patterns"` // doublestar patterns on names in the database directory
}

// Default returns the configuration used when no file is present.
func Default(root string) *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: root},
		Database: Database{
			Path:             DefaultDatabaseName,
			BlockSize:        types.DefaultBlockSize,
			UseInvertedIndex: true,
		},
		Search: Search{
			MaxResults:     0,
			RegexCacheSize: 64,
			Suggestions:    5,
		},
		Source: Source{
			Dirs:    []string{},
			Exclude: []string{},
		},
		TextSearch: TextSearch{Workers: 0},
		Watch: Watch{
			Enabled:    true,
			DebounceMs: 300,
			Patterns:   []string{"cscope*.out"},
		},
	}
}

// Load reads the configuration for the current directory. An explicit path
// is read on its own; otherwise the global ~/.xref.kdl is applied first and
// the project file second.
func Load(path string) (*Config, error) {
	return LoadWithRoot(path, "")
}

func LoadWithRoot(path string, rootDir string) (*Config, error) {
	searchDir := "."
	if rootDir != "" {
		searchDir = rootDir
	}
	root, err := filepath.Abs(searchDir)
	if err != nil {
		root = searchDir
	}
	cfg := Default(root)

	if path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	// Step 1: global base config
	if homeDir, err := os.UserHomeDir(); err == nil {
		global := filepath.Join(homeDir, KDLFileName)
		if fileExists(global) && filepath.Clean(homeDir) != filepath.Clean(root) {
			if err := applyFile(cfg, global); err != nil {
				return nil, err
			}
			// the global file cannot move the project
			cfg.Project.Root = root
		}
	}

	// Step 2: project config, KDL preferred
	for _, name := range []string{KDLFileName, TOMLFileName} {
		p := filepath.Join(root, name)
		if fileExists(p) {
			if err := applyFile(cfg, p); err != nil {
				return nil, err
			}
			break
		}
	}
	return cfg, nil
}

// applyFile layers one config file over cfg. Exclusions accumulate across
// layers; every other setting is replaced.
func applyFile(cfg *Config, path string) error {
	base := cfg.Source.Exclude
	cfg.Source.Exclude = nil

	var err error
	if filepath.Ext(path) == ".toml" {
		err = LoadTOML(cfg, path)
	} else {
		err = LoadKDL(cfg, path)
	}
	if err != nil {
		return err
	}
	cfg.Source.Exclude = mergeExclusions(base, cfg.Source.Exclude)

	if !filepath.IsAbs(cfg.Project.Root) {
		cfg.Project.Root = filepath.Clean(filepath.Join(filepath.Dir(path), cfg.Project.Root))
	}
	return nil
}

// mergeExclusions combines base and project exclusions, dropping duplicates
// and keeping first-seen order.
func mergeExclusions(base, project []string) []string {
	seen := make(map[string]bool, len(base)+len(project))
	out := make([]string, 0, len(base)+len(project))
	for _, list := range [][]string{base, project} {
		for _, p := range list {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// DatabasePath returns the database path resolved against the project root.
func (c *Config) DatabasePath() string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(c.Project.Root, c.Database.Path)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
