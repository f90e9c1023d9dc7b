package matcher

import "strings"

// Characters that make a symbol pattern a regular expression
const regexMeta = "^.[{*+$"

// Characters that stop the literal part of a pattern
const prefixStop = ".[{*+"

// HasMeta reports whether the pattern contains regular expression syntax.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, regexMeta)
}

// IsSymbol reports whether s is a C identifier: a letter or underscore
// followed by letters, digits and underscores.
func IsSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// IsSymbolStart reports whether c can begin a symbol name.
func IsSymbolStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// SimplePrefix returns the pattern up to its first repetition or class
// metacharacter. It is the classic approximation; LiteralPrefix on the
// compiled expression is preferred when a regexp is available.
func SimplePrefix(pattern string) string {
	if i := strings.IndexAny(pattern, prefixStop); i >= 0 {
		return pattern[:i]
	}
	return pattern
}

// EscapeText quotes the characters that are special to egrep so free text
// can be searched literally.
func EscapeText(text string) string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if strings.IndexByte(`.*[\^$+?|()`, text[i]) >= 0 {
			b.WriteByte('\\')
		}
		b.WriteByte(text[i])
	}
	return b.String()
}
