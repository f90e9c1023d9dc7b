package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/xref/internal/config"
	"github.com/standardbeagle/xref/internal/debug"
	"github.com/standardbeagle/xref/internal/types"
	"github.com/standardbeagle/xref/internal/version"
)

// loadConfigWithOverrides loads configuration and applies CLI flag overrides
func loadConfigWithOverrides(c *cli.Context) (*config.Config, error) {
	configPath := c.String("config")
	cfg, err := config.LoadWithRoot(configPath, c.String("root"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if db := c.String("db"); db != "" {
		abs, err := filepath.Abs(db)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve database path %q: %w", db, err)
		}
		cfg.Database.Path = abs
	}
	if c.IsSet("case-insensitive") {
		cfg.Search.CaseInsensitive = c.Bool("case-insensitive")
	}
	if c.IsSet("truncate") {
		cfg.Search.TruncateSymbols = c.Bool("truncate")
	}
	if c.IsSet("max") {
		cfg.Search.MaxResults = c.Int("max")
	}
	if dirs := c.StringSlice("source-dir"); len(dirs) > 0 {
		cfg.Source.Dirs = append(cfg.Source.Dirs, dirs...)
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Source.Exclude = append(cfg.Source.Exclude, excludes...)
	}

	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "xref",
		Usage:                  "Query a C cross-reference database: symbols, definitions, callers, callees, includes",
		Version:                version.Info(),
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (default: ~/.xref.kdl then ./.xref.kdl or ./.xref.toml)",
			},
			&cli.StringFlag{
				Name:    "root",
				Aliases: []string{"r"},
				Usage:   "Project root directory (overrides config)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"f"},
				Usage:   "Database file (default: cscope.out in the project root)",
			},
			&cli.BoolFlag{
				Name:    "case-insensitive",
				Aliases: []string{"i"},
				Usage:   "Ignore letter case when matching",
			},
			&cli.BoolFlag{
				Name:    "truncate",
				Aliases: []string{"T"},
				Usage:   "Compare only the first 8 characters of symbols",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.BoolFlag{
				Name:  "no-index",
				Usage: "Scan the database even when an inverted index exists",
			},
			&cli.IntFlag{
				Name:    "max",
				Aliases: []string{"m"},
				Usage:   "Stop after this many references (0 = unlimited)",
			},
			&cli.StringSliceFlag{
				Name:    "source-dir",
				Aliases: []string{"s"},
				Usage:   "Extra directory for locating source files",
			},
			&cli.StringSliceFlag{
				Name:  "exclude",
				Usage: "Skip source files matching a glob in text searches (e.g., --exclude 'gen/**')",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Write debug logs to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				debug.EnableDebug = "true"
				debug.SetDebugOutput(c.App.ErrWriter)
			}
			return nil
		},
		Commands: []*cli.Command{
			queryCommand("symbol", []string{"sym", "0"}, "Find every reference to a symbol", types.FieldSymbol),
			queryCommand("def", []string{"definition", "1"}, "Find the global definition of a symbol", types.FieldDefinition),
			queryCommand("callees", []string{"called-by", "2"}, "Find the functions called by a function", types.FieldCallees),
			queryCommand("callers", []string{"calling", "3"}, "Find the functions calling a function", types.FieldCallers),
			queryCommand("text", []string{"4"}, "Find a text string in the source files", types.FieldString),
			queryCommand("egrep", []string{"6"}, "Find an egrep pattern in the source files", types.FieldRegexp),
			queryCommand("file", []string{"7"}, "Find source files by name", types.FieldFile),
			queryCommand("includes", []string{"including", "8"}, "Find the files #including a file", types.FieldIncludes),
			{
				Name:      "find",
				Usage:     "Run a query by field number (0-8) or name",
				ArgsUsage: "<pattern>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "field",
						Aliases:  []string{"n"},
						Usage:    "Field number or name: 0 symbol, 1 definition, 2 callees, 3 callers, 4 text, 6 egrep, 7 file, 8 includes",
						Required: true,
					},
				},
				Action: findCommand,
			},
			{
				Name:    "functions",
				Aliases: []string{"funcs"},
				Usage:   "List every function definition",
				Action:  functionsCommand,
			},
			{
				Name:   "info",
				Usage:  "Describe the database",
				Action: infoCommand,
			},
			{
				Name:   "mcp",
				Usage:  "Start MCP (Model Context Protocol) server with stdio transport",
				Action: mcpCommand,
			},
			{
				Name:  "config",
				Usage: "Configuration management",
				Subcommands: []*cli.Command{
					{
						Name:  "init",
						Usage: "Write a configuration file with the defaults",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "format", Value: "kdl", Usage: "kdl or toml"},
							&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output path"},
							&cli.BoolFlag{Name: "force", Usage: "Overwrite an existing file"},
						},
						Action: configInitCommand,
					},
					{
						Name:  "show",
						Usage: "Print the effective configuration",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "format", Value: "kdl", Usage: "kdl or toml"},
						},
						Action: configShowCommand,
					},
					{
						Name:   "validate",
						Usage:  "Check the configuration and the database it names",
						Action: configValidateCommand,
					},
				},
			},
		},
	}
}

func main() {
	app := newApp()
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "xref: %v\n", err)
		os.Exit(1)
	}
}
