// Package encoding implements the byte-level compression used inside the
// cross-reference database: digraph bytes (0x80-0xff) that stand for two
// common characters, and keyword bytes (below 0x20, except tab and newline)
// that stand for a C keyword and its trailing delimiter.
//
// The codec is table driven and stateless. Bytes that have no table entry
// pass through unchanged, as does everything in an uncompressed database.
package encoding

import (
	"io"
	"strings"
)

// Digraph tables. A digraph byte is 0x80 + i*8 + j for dichar1[i], dichar2[j].
const (
	dichar1 = " teisaprnl(of)=c"
	dichar2 = " tnerpla"
)

// Keyword is one entry of the keyword table.
type Keyword struct {
	Text  string
	Delim byte // 0: none, ' ': a space follows, '(': " (" follows
}

// Keywords is indexed by the keyword byte value. Entries 9 and 10 are
// placeholders so tab and newline never decode as keywords.
var Keywords = [32]Keyword{
	{"", 0},
	{"#define", ' '},
	{"#include", ' '},
	{"break", 0},
	{"case", ' '},
	{"char", ' '},
	{"continue", 0},
	{"default", 0},
	{"double", ' '},
	{"\t", 0},
	{"\n", 0},
	{"else", ' '},
	{"enum", ' '},
	{"extern", ' '},
	{"float", ' '},
	{"for", '('},
	{"goto", ' '},
	{"if", '('},
	{"int", ' '},
	{"long", ' '},
	{"register", ' '},
	{"return", 0},
	{"short", ' '},
	{"sizeof", 0},
	{"static", ' '},
	{"struct", ' '},
	{"switch", '('},
	{"typedef", ' '},
	{"union", ' '},
	{"unsigned", ' '},
	{"void", ' '},
	{"while", '('},
}

var (
	dicode1 [256]byte
	dicode2 [256]byte
)

func init() {
	for i := 0; i < len(dichar1); i++ {
		dicode1[dichar1[i]] = byte(i*8 + 1)
	}
	for i := 0; i < len(dichar2); i++ {
		dicode2[dichar2[i]] = byte(i + 1)
	}
}

// Source is a forward cursor over database bytes. Char returns the byte at
// the cursor; Skip advances one byte and reports false at end of data.
type Source interface {
	Char() byte
	Skip() (bool, error)
}

// Codec decodes names and source text. Compressed is false for databases
// built without compression, where every byte is literal.
type Codec struct {
	Compressed bool
}

// AppendByte appends the expansion of c to dst.
func (c Codec) AppendByte(dst []byte, b byte) []byte {
	if !c.Compressed {
		return append(dst, b)
	}
	switch {
	case b >= 0x80:
		v := b & 0x7f
		return append(dst, dichar1[v/8], dichar2[v%8])
	case b < ' ' && b != '\t' && b != '\n':
		kw := Keywords[b]
		if kw.Text == "" {
			return append(dst, b)
		}
		dst = append(dst, kw.Text...)
		if kw.Delim != 0 {
			dst = append(dst, ' ')
		}
		if kw.Delim == '(' {
			dst = append(dst, '(')
		}
		return dst
	}
	return append(dst, b)
}

// Lead returns the first character b expands to.
func (c Codec) Lead(b byte) byte {
	if c.Compressed && b >= 0x80 {
		return dichar1[(b&0x7f)/8]
	}
	return b
}

// Decode expands a whole byte slice.
func (c Codec) Decode(src []byte) string {
	dst := make([]byte, 0, len(src)*2)
	for _, b := range src {
		dst = c.AppendByte(dst, b)
	}
	return string(dst)
}

// DecodeName reads bytes up to (not including) the next newline and returns
// their expansion. The cursor is left on the newline.
func (c Codec) DecodeName(src Source) (string, error) {
	var buf []byte
	for {
		b := src.Char()
		if b == '\n' {
			return string(buf), nil
		}
		buf = c.AppendByte(buf, b)
		ok, err := src.Skip()
		if err != nil || !ok {
			return string(buf), err
		}
	}
}

// DecodeLine writes the expansion of the bytes up to the next newline to w.
// The cursor is left on the newline.
func (c Codec) DecodeLine(src Source, w io.Writer) error {
	var tmp [16]byte
	for {
		b := src.Char()
		if b == '\n' {
			return nil
		}
		if _, err := w.Write(c.AppendByte(tmp[:0], b)); err != nil {
			return err
		}
		ok, err := src.Skip()
		if err != nil || !ok {
			return err
		}
	}
}

// CompressPattern produces the stored form of a literal name so it can be
// compared against database bytes without decoding them. Pairing is greedy
// from the left, the same way the database writer pairs characters.
func (c Codec) CompressPattern(pattern string) []byte {
	if !c.Compressed {
		return []byte(pattern)
	}
	out := make([]byte, 0, len(pattern))
	for i := 0; i < len(pattern); i++ {
		ch := pattern[i]
		if i+1 < len(pattern) && dicode1[ch] != 0 && dicode2[pattern[i+1]] != 0 {
			out = append(out, 0x80-2+dicode1[ch]+dicode2[pattern[i+1]])
			i++
			continue
		}
		out = append(out, ch)
	}
	return out
}

// KeywordByte returns the keyword byte for text, if the table has one.
func KeywordByte(text string) (byte, bool) {
	for i, kw := range Keywords {
		if kw.Text == "" || i == '\t' || i == '\n' {
			continue
		}
		if kw.Text == text {
			return byte(i), true
		}
	}
	return 0, false
}

// CompressLine compresses source text: a keyword followed by its delimiter
// becomes one keyword byte, then the remaining characters are digraph paired.
func (c Codec) CompressLine(text string) []byte {
	if !c.Compressed {
		return []byte(text)
	}
	var out []byte
	var pending strings.Builder
	flush := func() {
		out = append(out, c.CompressPattern(pending.String())...)
		pending.Reset()
	}
	for i := 0; i < len(text); {
		if n, b, ok := matchKeyword(text, i); ok {
			flush()
			out = append(out, b)
			i += n
			continue
		}
		pending.WriteByte(text[i])
		i++
	}
	flush()
	return out
}

// matchKeyword finds a keyword with its full delimiter at text[i:], on word boundaries.
func matchKeyword(text string, i int) (int, byte, bool) {
	if i > 0 && isIdentChar(text[i-1]) {
		return 0, 0, false
	}
	for k := 1; k < len(Keywords); k++ {
		kw := Keywords[k]
		if k == '\t' || k == '\n' || !strings.HasPrefix(text[i:], kw.Text) {
			continue
		}
		suffix := ""
		switch kw.Delim {
		case ' ':
			suffix = " "
		case '(':
			suffix = " ("
		}
		end := i + len(kw.Text)
		if !strings.HasPrefix(text[end:], suffix) {
			continue
		}
		if suffix == "" && end < len(text) && isIdentChar(text[end]) {
			continue
		}
		return len(kw.Text) + len(suffix), byte(k), true
	}
	return 0, 0, false
}

func isIdentChar(b byte) bool {
	return b == '_' || b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}
