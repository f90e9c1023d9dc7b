package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/database"
	"github.com/standardbeagle/xref/internal/invindex"
)

func configInitCommand(c *cli.Context) error {
	format := c.String("format")
	output := c.String("output")

	root := c.String("root")
	if root == "" {
		root = "."
	}
	cfg := config.Default(root)

	var content string
	switch format {
	case "kdl":
		if output == "" {
			output = filepath.Join(root, config.KDLFileName)
		}
		content = config.RenderKDL(cfg)
	case "toml":
		if output == "" {
			output = filepath.Join(root, config.TOMLFileName)
		}
		var err error
		content, err = config.RenderTOML(cfg)
		if err != nil {
			return fmt.Errorf("failed to generate config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}

	if !c.Bool("force") {
		if _, err := os.Stat(output); err == nil {
			return fmt.Errorf("configuration file %s already exists (use --force to overwrite)", output)
		}
	}
	if err := os.WriteFile(output, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(c.App.Writer, "Configuration file created: %s\n", output)
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		return err
	}
	switch c.String("format") {
	case "toml":
		content, err := config.RenderTOML(cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(c.App.Writer, content)
	case "kdl":
		fmt.Fprint(c.App.Writer, config.RenderKDL(cfg))
	default:
		return fmt.Errorf("unsupported format: %s", c.String("format"))
	}
	return nil
}

// configValidateCommand fails on an invalid configuration or an unreadable
// database, and warns about settings that will silently not apply.
func configValidateCommand(c *cli.Context) error {
	cfg, err := loadConfigWithOverrides(c)
	if err != nil {
		fmt.Fprintf(c.App.Writer, "Configuration validation failed: %v\n", err)
		return err
	}

	var warnings []string
	db, err := database.Open(cfg.DatabasePath())
	if err != nil {
		fmt.Fprintf(c.App.Writer, "Database check failed: %v\n", err)
		return err
	}
	defer db.Close()

	if cfg.Database.UseInvertedIndex && db.Header.InvertedIndex {
		if ix, err := invindex.Open(db.Path); err != nil {
			if errors.Is(err, invindex.ErrNoIndex) {
				warnings = append(warnings, "database was built with an inverted index but the index files are missing; queries will scan")
			} else {
				warnings = append(warnings, fmt.Sprintf("inverted index unusable (%v); queries will scan", err))
			}
		} else {
			ix.Close()
		}
	}
	if cfg.Search.TruncateSymbols && db.Header.Truncated {
		warnings = append(warnings, "database already stores truncated symbols")
	}
	missing := 0
	for _, name := range db.Sources.Names() {
		if _, ok := db.Sources.ResolvePath(name); !ok {
			missing++
		}
	}
	if missing > 0 {
		warnings = append(warnings, fmt.Sprintf("%d of %d source files not found; text searches skip them (see source.dirs)",
			missing, db.Sources.Count()))
	}

	fmt.Fprintf(c.App.Writer, "Configuration is valid (database %s, %d files)\n", db.Path, db.Sources.Count())
	for _, w := range warnings {
		fmt.Fprintf(c.App.Writer, "warning: %s\n", w)
	}
	return nil
}
