package config

import (
	"errors"
	"fmt"
	"runtime"
	"strconv"

	"github.com/bmatcuk/doublestar/v4"

	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

// Block sizes outside this range are rejected
const (
	minBlockSize = 16
	maxBlockSize = 1 << 24
)

// Validator validates configuration and sets smart defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies smart defaults
// Returns an error if validation fails
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if cfg.Project.Root == "" {
		return xerrors.NewConfigError("project.root", "", errors.New("project root cannot be empty"))
	}
	if err := v.validateDatabaseConfig(&cfg.Database); err != nil {
		return err
	}
	if err := v.validateSearchConfig(&cfg.Search); err != nil {
		return err
	}
	if err := validatePatterns("source.exclude", cfg.Source.Exclude); err != nil {
		return err
	}
	if cfg.TextSearch.Workers < 0 {
		return negative("text_search.workers", cfg.TextSearch.Workers)
	}
	if cfg.Watch.DebounceMs < 0 {
		return negative("watch.debounce_ms", cfg.Watch.DebounceMs)
	}
	if err := validatePatterns("watch.patterns", cfg.Watch.Patterns); err != nil {
		return err
	}

	v.setSmartDefaults(cfg)
	return nil
}

func (v *Validator) validateDatabaseConfig(db *Database) error {
	if db.Path == "" {
		return xerrors.NewConfigError("database.path", "", errors.New("database path cannot be empty"))
	}
	if db.BlockSize != 0 && (db.BlockSize < minBlockSize || db.BlockSize > maxBlockSize) {
		return xerrors.NewConfigError("database.block_size", strconv.Itoa(db.BlockSize),
			fmt.Errorf("block size must be between %d and %d", minBlockSize, maxBlockSize))
	}
	return nil
}

func (v *Validator) validateSearchConfig(search *Search) error {
	if search.MaxResults < 0 {
		return negative("search.max_results", search.MaxResults)
	}
	if search.RegexCacheSize < 0 {
		return negative("search.regex_cache_size", search.RegexCacheSize)
	}
	if search.Suggestions < 0 {
		return negative("search.suggestions", search.Suggestions)
	}
	return nil
}

func validatePatterns(field string, patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return xerrors.NewConfigError(field, p, doublestar.ErrBadPattern)
		}
	}
	return nil
}

func negative(field string, value int) error {
	return xerrors.NewConfigError(field, strconv.Itoa(value), errors.New("cannot be negative"))
}

// setSmartDefaults fills zero values based on system capabilities
func (v *Validator) setSmartDefaults(cfg *Config) {
	if cfg.Database.BlockSize == 0 {
		cfg.Database.BlockSize = types.DefaultBlockSize
	}
	// leave one core for the rest of the system
	if cfg.TextSearch.Workers == 0 {
		cfg.TextSearch.Workers = max(1, runtime.NumCPU()-1)
	}
	if cfg.Search.RegexCacheSize == 0 {
		cfg.Search.RegexCacheSize = 64
	}
	if cfg.Watch.DebounceMs == 0 {
		cfg.Watch.DebounceMs = 300
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"cscope*.out"}
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
