// Package matcher decides how a query pattern is compared against symbol
// names: as a compressed literal compared byte for byte against the stored
// form, or as an anchored regular expression evaluated on decoded names.
package matcher

import (
	"errors"
	"regexp"
	"strings"
	"unicode"

	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

// Options control pattern compilation.
type Options struct {
	Field           types.Field
	CaseInsensitive bool
	// Truncate compares only the first significant characters of symbols
	Truncate bool
	// InvertedIndex forces the regular expression form, which the term scan needs
	InvertedIndex bool
	// Compressed and DBTruncated describe the database being searched
	Compressed  bool
	DBTruncated bool
	Cache       *Cache
}

// Matcher is a compiled query pattern.
type Matcher struct {
	original string
	pattern  string
	literal  []byte
	re       *regexp.Regexp
	prefix   string
	caseless bool
}

// Compile prepares pattern for the given field.
func Compile(pattern string, opts Options) (*Matcher, error) {
	p := strings.TrimRightFunc(pattern, unicode.IsSpace)
	m := &Matcher{original: pattern, caseless: opts.CaseInsensitive}

	if !opts.Field.SymbolField() {
		// file names, includes and free text match anywhere in the string
		return m, m.compile(p, p, opts, false)
	}

	isRegexp := HasMeta(p)
	if !isRegexp && !IsSymbol(p) {
		return nil, xerrors.NewQueryError(pattern, xerrors.ErrNotASymbol)
	}

	sig := types.SignificantLength
	if opts.Truncate && !opts.DBTruncated && len(p) >= sig && !isRegexp {
		p = p[:sig] + ".*"
		isRegexp = true
	}

	if isRegexp || opts.CaseInsensitive || opts.InvertedIndex {
		p = stripAnchors(p)
		if opts.Truncate && !strings.ContainsAny(p, "[{*+") && len(p) > sig {
			p = p[:sig]
		}
		return m, m.compile(p, "^"+p+"$", opts, true)
	}

	if opts.Truncate && len(p) > sig {
		p = p[:sig]
	}
	m.pattern = p
	m.prefix = p
	m.literal = encoding.Codec{Compressed: opts.Compressed}.CompressPattern(p)
	return m, nil
}

func (m *Matcher) compile(inner, expr string, opts Options, anchored bool) error {
	if opts.CaseInsensitive {
		expr = "(?i)" + expr
	}
	re, err := opts.Cache.Compile(expr)
	if err != nil {
		return xerrors.NewQueryError(m.original, errors.Join(xerrors.ErrRegexCompile, err))
	}
	m.pattern = inner
	m.re = re
	if anchored {
		m.prefix = literalPrefix(inner, opts.Cache)
	}
	return nil
}

// stripAnchors removes a leading ^ and a trailing $ so the pattern can be
// anchored uniformly. An escaped trailing \$ stays a literal dollar sign.
func stripAnchors(p string) string {
	p = strings.TrimPrefix(p, "^")
	if strings.HasSuffix(p, "$") && !strings.HasSuffix(p, `\$`) {
		p = strings.TrimSuffix(p, "$")
	}
	return p
}

// literalPrefix returns the text every match must begin with.
func literalPrefix(inner string, cache *Cache) string {
	re, err := cache.Compile(inner)
	if err != nil {
		return SimplePrefix(inner)
	}
	prefix, _ := re.LiteralPrefix()
	return prefix
}

// IsRegexp reports whether candidates are compared with a regular expression.
func (m *Matcher) IsRegexp() bool { return m.re != nil }

// CaseInsensitive reports whether case is ignored.
func (m *Matcher) CaseInsensitive() bool { return m.caseless }

// Pattern returns the pattern after trimming, truncation and anchor removal.
func (m *Matcher) Pattern() string { return m.pattern }

// Original returns the pattern as given.
func (m *Matcher) Original() string { return m.original }

// Compressed returns the stored form of a literal pattern.
func (m *Matcher) Compressed() []byte { return m.literal }

// Prefix returns the literal text every matching name starts with.
func (m *Matcher) Prefix() string { return m.prefix }

// MatchString tests a decoded name.
func (m *Matcher) MatchString(s string) bool {
	if m.re == nil {
		return s == m.pattern
	}
	if m.caseless {
		s = strings.ToLower(s)
	}
	return m.re.MatchString(s)
}
