package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// LoadKDL applies the KDL file at path over cfg.
func LoadKDL(cfg *Config, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return xerrors.NewConfigError("file", path, err)
	}
	if err := parseKDL(string(content), cfg); err != nil {
		return xerrors.NewConfigError("file", path, err)
	}
	return nil
}

// parseKDL walks the document and sets the fields it names; absent nodes
// leave cfg untouched.
func parseKDL(content string, cfg *Config) error {
	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		case "project":
			for _, cn := range n.Children { // project { root "." }
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
			}
		case "database":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "path":
					if s, ok := firstStringArg(cn); ok {
						cfg.Database.Path = s
					}
				case "block_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Database.BlockSize = v
					}
					if s, ok := firstStringArg(cn); ok {
						if sz, err := parseSize(s); err == nil {
							cfg.Database.BlockSize = int(sz)
						}
					}
				case "use_inverted_index":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Database.UseInvertedIndex = b
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "case_insensitive":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.CaseInsensitive = b
					}
				case "truncate_symbols":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Search.TruncateSymbols = b
					}
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxResults = v
					}
				case "regex_cache_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.RegexCacheSize = v
					}
				case "suggestions":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.Suggestions = v
					}
				}
			}
		case "source":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "dirs":
					cfg.Source.Dirs = collectStringArgs(cn)
				case "exclude":
					cfg.Source.Exclude = append(cfg.Source.Exclude, collectStringArgs(cn)...)
				}
			}
		case "text_search":
			for _, cn := range n.Children {
				if nodeName(cn) == "workers" {
					if v, ok := firstIntArg(cn); ok {
						cfg.TextSearch.Workers = v
					}
				}
			}
		case "watch":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "enabled":
					if b, ok := firstBoolArg(cn); ok {
						cfg.Watch.Enabled = b
					}
				case "debounce_ms":
					if v, ok := firstIntArg(cn); ok {
						cfg.Watch.DebounceMs = v
					}
				case "patterns":
					cfg.Watch.Patterns = collectStringArgs(cn)
				}
			}
		case "exclude":
			// top-level shorthand for source { exclude ... }
			cfg.Source.Exclude = append(cfg.Source.Exclude, collectStringArgs(n)...)
		default:
			debug.LogConfig("ignoring unknown config node %q\n", nodeName(n))
		}
	}
	return nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

// collectStringArgs accepts both the inline form (exclude "a" "b") and the
// block form (exclude { "a"; "b" }), where each child node is named by the
// string.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 && len(n.Children) > 0 {
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}
	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}

// parseSize handles size strings like "8KB" or "1MB"
func parseSize(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))

	var multiplier int64 = 1
	numStr := s
	switch {
	case strings.HasSuffix(s, "MB"):
		multiplier = 1024 * 1024
		numStr = strings.TrimSuffix(s, "MB")
	case strings.HasSuffix(s, "KB"):
		multiplier = 1024
		numStr = strings.TrimSuffix(s, "KB")
	case strings.HasSuffix(s, "B"):
		numStr = strings.TrimSuffix(s, "B")
	}

	num, err := strconv.ParseInt(strings.TrimSpace(numStr), 10, 64)
	if err != nil {
		return 0, err
	}
	return num * multiplier, nil
}

// RenderKDL writes cfg in the project file format, for `config init`.
func RenderKDL(cfg *Config) string {
	var b strings.Builder
	fmt.Fprintf(&b, "version %d\n\n", cfg.Version)
	fmt.Fprintf(&b, "database {\n    path %q\n    block_size %d\n    use_inverted_index %t\n}\n\n",
		cfg.Database.Path, cfg.Database.BlockSize, cfg.Database.UseInvertedIndex)
	fmt.Fprintf(&b, "search {\n    case_insensitive %t\n    truncate_symbols %t\n    max_results %d\n    regex_cache_size %d\n    suggestions %d\n}\n\n",
		cfg.Search.CaseInsensitive, cfg.Search.TruncateSymbols, cfg.Search.MaxResults,
		cfg.Search.RegexCacheSize, cfg.Search.Suggestions)
	b.WriteString("source {\n")
	if len(cfg.Source.Dirs) > 0 {
		b.WriteString("    dirs" + quoteAll(cfg.Source.Dirs) + "\n")
	}
	if len(cfg.Source.Exclude) > 0 {
		b.WriteString("    exclude" + quoteAll(cfg.Source.Exclude) + "\n")
	}
	b.WriteString("}\n\n")
	fmt.Fprintf(&b, "text_search {\n    workers %d\n}\n\n", cfg.TextSearch.Workers)
	fmt.Fprintf(&b, "watch {\n    enabled %t\n    debounce_ms %d\n", cfg.Watch.Enabled, cfg.Watch.DebounceMs)
	if len(cfg.Watch.Patterns) > 0 {
		b.WriteString("    patterns" + quoteAll(cfg.Watch.Patterns) + "\n")
	}
	b.WriteString("}\n")
	return b.String()
}

func quoteAll(list []string) string {
	var b strings.Builder
	for _, s := range list {
		b.WriteString(" " + strconv.Quote(s))
	}
	return b.String()
}
