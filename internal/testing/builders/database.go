package builders

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/xref/internal/database"
	"github.com/standardbeagle/xref/internal/encoding"
	"github.com/standardbeagle/xref/internal/invindex"
	"github.com/standardbeagle/xref/internal/types"
)

// Segment is one piece of a source line: text, raw bytes, or a symbol record.
type Segment struct {
	text      string
	raw       []byte
	isRaw     bool
	isSymbol  bool
	mark      types.RecordType
	name      string
	incMarker byte
}

// Text is source text; keywords and digraphs are compressed when the database is.
// Tabs become spaces, as the indexer collapses whitespace.
func Text(s string) Segment { return Segment{text: strings.ReplaceAll(s, "\t", " ")} }

// Raw writes bytes exactly as given.
func Raw(b []byte) Segment { return Segment{raw: b, isRaw: true} }

// Sym is a plain (unmarked) symbol.
func Sym(name string) Segment { return Segment{isSymbol: true, mark: types.Ident, name: name} }

// Mark is a marked symbol record.
func Mark(t types.RecordType, name string) Segment {
	return Segment{isSymbol: true, mark: t, name: name}
}

// Def is a function definition.
func Def(name string) Segment { return Mark(types.FcnDef, name) }

// Call is a function call.
func Call(name string) Segment { return Mark(types.FcnCall, name) }

// End closes the current function.
func End() Segment { return Mark(types.FcnEnd, "") }

// Macro opens a #define body.
func Macro(name string) Segment { return Mark(types.Define, name) }

// MacroEnd closes a #define body.
func MacroEnd() Segment { return Mark(types.DefineEnd, "") }

// Include is a quoted #include.
func Include(name string) Segment {
	return Segment{isSymbol: true, mark: types.Include, name: name, incMarker: '"'}
}

// SystemInclude is an angle-bracket #include.
func SystemInclude(name string) Segment {
	return Segment{isSymbol: true, mark: types.Include, name: name, incMarker: '<'}
}

type lineEntry struct {
	no   int
	segs []Segment
}

type fileEntry struct {
	name  string
	lines []lineEntry
}

// Record describes where the builder placed a symbol record.
type Record struct {
	File       string
	Line       int
	Type       types.RecordType
	Name       string
	Offset     int64 // first byte of the stored name
	LineOffset int64 // first byte of the source line
}

// Built is an encoded database.
type Built struct {
	Data    []byte
	Header  database.Header
	Entries []invindex.Entry
	Records []Record
}

// Find returns the n-th record with the given name and type.
func (b *Built) Find(name string, typ types.RecordType, n int) (Record, bool) {
	for _, r := range b.Records {
		if r.Name == name && r.Type == typ {
			if n == 0 {
				return r, true
			}
			n--
		}
	}
	return Record{}, false
}

// DatabaseBuilder assembles a cross-reference database in memory, the way
// the indexer lays out records, so engine tests can run against real bytes.
type DatabaseBuilder struct {
	t           testing.TB
	header      database.Header
	sourceDirs  []string
	includeDirs []string
	files       []*fileEntry
}

// NewDatabase creates a builder for a compressed version 15 database.
func NewDatabase(t testing.TB) *DatabaseBuilder {
	return &DatabaseBuilder{
		t: t,
		header: database.Header{
			Version:    15,
			Dir:        "/src",
			Compressed: true,
		},
		sourceDirs: []string{"."},
	}
}

// Version sets the database format version.
func (b *DatabaseBuilder) Version(v int) *DatabaseBuilder {
	b.header.Version = v
	return b
}

// Uncompressed writes every byte literally (the -c layout).
func (b *DatabaseBuilder) Uncompressed() *DatabaseBuilder {
	b.header.Compressed = false
	return b
}

// Truncated stores symbols cut to their significant length (the -T layout).
func (b *DatabaseBuilder) Truncated() *DatabaseBuilder {
	b.header.Truncated = true
	return b
}

// WithIndex marks the database as having an inverted index and writes one.
func (b *DatabaseBuilder) WithIndex() *DatabaseBuilder {
	b.header.InvertedIndex = true
	return b
}

// SourceDirs sets the view path recorded in the trailer.
func (b *DatabaseBuilder) SourceDirs(dirs ...string) *DatabaseBuilder {
	b.sourceDirs = dirs
	return b
}

// IncludeDirs sets the include directories recorded in the trailer.
func (b *DatabaseBuilder) IncludeDirs(dirs ...string) *DatabaseBuilder {
	b.includeDirs = dirs
	return b
}

// File starts a new source file.
func (b *DatabaseBuilder) File(name string) *DatabaseBuilder {
	b.files = append(b.files, &fileEntry{name: name})
	return b
}

// Line appends a source line to the current file.
func (b *DatabaseBuilder) Line(no int, segs ...Segment) *DatabaseBuilder {
	if len(b.files) == 0 {
		b.t.Fatalf("Line(%d) called before File", no)
	}
	f := b.files[len(b.files)-1]
	f.lines = append(f.lines, lineEntry{no: no, segs: segs})
	return b
}

// Build encodes the database.
func (b *DatabaseBuilder) Build() *Built {
	hdr := b.header
	codec := encoding.Codec{Compressed: hdr.Compressed}

	probe := hdr
	probe.TrailerOffset = 1
	base := int64(len(database.FormatHeader(probe)))

	var body bytes.Buffer
	pos := func() int64 { return base + int64(body.Len()) }

	built := &Built{}
	postings := map[string][]types.Posting{}
	var order []string
	addPosting := func(name string, p types.Posting) {
		if _, ok := postings[name]; !ok {
			order = append(order, name)
		}
		postings[name] = append(postings[name], p)
	}

	for fi, f := range b.files {
		body.WriteString("\t@" + f.name + "\n\n")
		var fcnOffset, macroOffset int64
		for _, ln := range f.lines {
			lineOffset := pos()
			fmt.Fprintf(&body, "%d ", ln.no)
			for _, seg := range ln.segs {
				switch {
				case seg.isRaw:
					body.Write(seg.raw)
				case !seg.isSymbol:
					body.Write(codec.CompressLine(seg.text))
				default:
					body.WriteByte('\n')
					if seg.mark != types.Ident {
						body.WriteByte('\t')
						body.WriteByte(byte(seg.mark))
					}
					if seg.mark == types.Include {
						body.WriteByte(seg.incMarker)
					}
					name := seg.name
					if hdr.Truncated && len(name) > types.SignificantLength {
						name = name[:types.SignificantLength]
					}
					nameOffset := pos()
					body.Write(codec.CompressPattern(name))
					body.WriteByte('\n')

					built.Records = append(built.Records, Record{
						File: f.name, Line: ln.no, Type: seg.mark, Name: name,
						Offset: nameOffset, LineOffset: lineOffset,
					})
					if name != "" {
						p := types.Posting{FileIndex: uint32(fi), LineOffset: lineOffset, Type: seg.mark}
						// records inside a macro body point at the macro name
						switch {
						case seg.mark == types.FcnDef:
						case macroOffset != 0:
							p.FcnOffset = macroOffset
						default:
							p.FcnOffset = fcnOffset
						}
						addPosting(name, p)
					}
					switch seg.mark {
					case types.FcnDef:
						fcnOffset = nameOffset
					case types.FcnEnd:
						fcnOffset = 0
					case types.Define:
						if hdr.Version >= 10 {
							macroOffset = nameOffset
						}
					case types.DefineEnd:
						macroOffset = 0
					}
				}
			}
			if last := len(ln.segs) - 1; last >= 0 && ln.segs[last].isSymbol {
				body.WriteByte('\n')
			} else {
				body.WriteString("\n\n")
			}
		}
	}
	body.WriteString("\t@\n")

	hdr.TrailerOffset = pos()
	var trailer strings.Builder
	fmt.Fprintf(&trailer, "%d\n", len(b.sourceDirs))
	for _, d := range b.sourceDirs {
		trailer.WriteString(d + "\n")
	}
	fmt.Fprintf(&trailer, "%d\n", len(b.includeDirs))
	for _, d := range b.includeDirs {
		trailer.WriteString(d + "\n")
	}
	space := 0
	for _, f := range b.files {
		space += len(f.name) + 1
	}
	fmt.Fprintf(&trailer, "%d\n%d\n", len(b.files), space)
	for _, f := range b.files {
		trailer.WriteString(f.name + "\n")
	}

	for _, name := range order {
		built.Entries = append(built.Entries, invindex.Entry{Term: name, Postings: postings[name]})
	}
	if hdr.InvertedIndex {
		hdr.IndexTerms = int64(len(order))
	}

	header := database.FormatHeader(hdr)
	if int64(len(header)) != base {
		b.t.Fatalf("header length changed: %d != %d", len(header), base)
	}
	built.Header = hdr
	built.Data = append([]byte(header), body.Bytes()...)
	built.Data = append(built.Data, trailer.String()...)
	return built
}

// Write builds the database into dir as cscope.out, with index files when
// requested, and returns the database path.
func (b *DatabaseBuilder) Write(dir string) string {
	built := b.Build()
	path := filepath.Join(dir, "cscope.out")
	require.NoError(b.t, os.WriteFile(path, built.Data, 0644))

	if built.Header.InvertedIndex {
		termPath, postingPath := invindex.Paths(path)
		var terms, postings bytes.Buffer
		require.NoError(b.t, invindex.Write(&terms, &postings, built.Entries))
		require.NoError(b.t, os.WriteFile(termPath, terms.Bytes(), 0644))
		require.NoError(b.t, os.WriteFile(postingPath, postings.Bytes(), 0644))
	}
	return path
}
