// Package database opens a cross-reference database: it parses the header
// line and the trailer (view path, include dirs, source files) and hands out
// block streams over the symbol data.
package database

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/standardbeagle/xref/internal/blockio"
	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/srcfiles"
)

// Magic is the first word of every database header.
const Magic = "cscope"

// Header is the parsed first line of the database.
type Header struct {
	Version       int
	Dir           string
	Compressed    bool
	InvertedIndex bool
	IndexTerms    int64
	Truncated     bool
	TrailerOffset int64
}

// Database is an open cross-reference database.
type Database struct {
	Path        string
	Header      Header
	Sources     *srcfiles.List
	blockSize   int
	r           io.ReaderAt
	closer      io.Closer
	fingerprint uint64
}

// Option configures Open.
type Option func(*Database)

// WithBlockSize overrides the stream block size.
func WithBlockSize(n int) Option {
	return func(d *Database) { d.blockSize = n }
}

// Open opens and validates the database at path.
func Open(path string, opts ...Option) (*Database, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.NewDatabaseError("open", path, 0, err)
	}
	db, err := Load(f, path, opts...)
	if err != nil {
		f.Close()
		return nil, err
	}
	db.closer = f
	return db, nil
}

// Load reads a database from r. Source names are resolved relative to the
// directory of path.
func Load(r io.ReaderAt, path string, opts ...Option) (*Database, error) {
	db := &Database{Path: path, r: r}
	for _, opt := range opts {
		opt(db)
	}

	headerLine, err := readLine(r, 0)
	if err != nil {
		return nil, xerrors.NewDatabaseError("read header", path, 0, err)
	}
	hdr, err := ParseHeader(headerLine)
	if err != nil {
		return nil, xerrors.NewFormatError(path, 0, err.Error())
	}
	db.Header = hdr

	trailer, raw, err := readTrailer(r, hdr.TrailerOffset)
	if err != nil {
		return nil, xerrors.NewFormatError(path, hdr.TrailerOffset, err.Error())
	}
	root := filepath.Dir(path)
	db.Sources = srcfiles.New(root, trailer.sourceDirs, trailer.includeDirs, trailer.files)

	h := xxhash.New()
	_, _ = h.WriteString(headerLine)
	_, _ = h.Write(raw)
	db.fingerprint = h.Sum64()

	debug.LogDatabase("opened %s: version %d, %d files, compressed=%v index=%v\n",
		path, hdr.Version, db.Sources.Count(), hdr.Compressed, hdr.InvertedIndex)
	return db, nil
}

// NewStream returns a fresh block stream over the database.
func (d *Database) NewStream() *blockio.Stream {
	return blockio.New(d.r, d.Path, d.blockSize)
}

// Fingerprint identifies this build of the database. A rebuild with a
// different file list or layout changes it.
func (d *Database) Fingerprint() uint64 { return d.fingerprint }

// Close releases the underlying file.
func (d *Database) Close() error {
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}

// ParseHeader parses "cscope <version> <dir> [-c] [-q <n>] [-T] <offset>".
func ParseHeader(line string) (Header, error) {
	var h Header
	fields := strings.Fields(line)
	if len(fields) < 4 || fields[0] != Magic {
		return h, fmt.Errorf("not a cross-reference database: %q", line)
	}
	v, err := strconv.Atoi(fields[1])
	if err != nil {
		return h, fmt.Errorf("bad version %q", fields[1])
	}
	h.Version = v
	h.Dir = fields[2]
	h.Compressed = true

	rest := fields[3:]
	for len(rest) > 1 {
		switch rest[0] {
		case "-c":
			h.Compressed = false
		case "-T":
			h.Truncated = true
		case "-q":
			h.InvertedIndex = true
			if len(rest) > 2 {
				n, err := strconv.ParseInt(rest[1], 10, 64)
				if err != nil {
					return h, fmt.Errorf("bad index term count %q", rest[1])
				}
				h.IndexTerms = n
				rest = rest[1:]
			}
		default:
			return h, fmt.Errorf("unknown header flag %q", rest[0])
		}
		rest = rest[1:]
	}
	if len(rest) != 1 {
		return h, fmt.Errorf("missing trailer offset")
	}
	off, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil || off <= 0 {
		return h, fmt.Errorf("bad trailer offset %q", rest[0])
	}
	h.TrailerOffset = off
	return h, nil
}

// FormatHeader renders a header line, including the trailing newline.
func FormatHeader(h Header) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d %s", Magic, h.Version, h.Dir)
	if !h.Compressed {
		b.WriteString(" -c")
	}
	if h.InvertedIndex {
		fmt.Fprintf(&b, " -q %.10d", h.IndexTerms)
	}
	if h.Truncated {
		b.WriteString(" -T")
	}
	fmt.Fprintf(&b, " %.10d\n", h.TrailerOffset)
	return b.String()
}

type trailer struct {
	sourceDirs  []string
	includeDirs []string
	files       []string
}

func readTrailer(r io.ReaderAt, offset int64) (trailer, []byte, error) {
	var t trailer
	raw, err := io.ReadAll(io.NewSectionReader(r, offset, 1<<62))
	if err != nil {
		return t, nil, err
	}
	sc := bufio.NewScanner(strings.NewReader(string(raw)))
	sc.Buffer(make([]byte, 64*1024), 1<<20)

	count := func(what string) (int, error) {
		if !sc.Scan() {
			return 0, fmt.Errorf("trailer truncated before %s count", what)
		}
		n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
		if err != nil || n < 0 {
			return 0, fmt.Errorf("bad %s count %q", what, sc.Text())
		}
		return n, nil
	}
	list := func(what string, n int) ([]string, error) {
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			if !sc.Scan() {
				return nil, fmt.Errorf("trailer truncated in %s list", what)
			}
			out = append(out, sc.Text())
		}
		return out, nil
	}

	n, err := count("source dir")
	if err != nil {
		return t, nil, err
	}
	if t.sourceDirs, err = list("source dir", n); err != nil {
		return t, nil, err
	}
	if n, err = count("include dir"); err != nil {
		return t, nil, err
	}
	if t.includeDirs, err = list("include dir", n); err != nil {
		return t, nil, err
	}
	if n, err = count("source file"); err != nil {
		return t, nil, err
	}
	// string space size, used by the original reader to preallocate
	if _, err = count("string space"); err != nil {
		return t, nil, err
	}
	if t.files, err = list("source file", n); err != nil {
		return t, nil, err
	}
	return t, raw, nil
}

func readLine(r io.ReaderAt, offset int64) (string, error) {
	br := bufio.NewReader(io.NewSectionReader(r, offset, 1<<20))
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	if !strings.HasSuffix(line, "\n") {
		return "", io.ErrUnexpectedEOF
	}
	return strings.TrimSuffix(line, "\n"), nil
}

// Fingerprint hashes the header line and trailer of the database at path
// without keeping it open.
func Fingerprint(path string) (uint64, error) {
	db, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer db.Close()
	return db.Fingerprint(), nil
}
