// Package invindex reads the inverted index that accompanies a database: a
// sorted term table and a posting file with one fixed-size record per symbol
// occurrence. A lookup walks the terms that share the pattern's literal
// prefix and ORs the posting ranges of matching terms into a roaring bitmap.
package invindex

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring"

	"github.com/standardbeagle/xref/internal/debug"
	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

// Progress reporting intervals
const (
	TermProgressInterval    = 50
	PostingProgressInterval = 100
)

// ErrNoIndex is returned by Open when the index files do not exist.
var ErrNoIndex = errors.New("inverted index not found")

// Matcher decides which terms contribute postings.
type Matcher interface {
	MatchString(s string) bool
	Prefix() string
	CaseInsensitive() bool
}

// ProgressFunc receives periodic progress while terms and postings are read.
type ProgressFunc func(stage string, done, total int)

// Index is an open inverted index. The term table is held in memory;
// postings are read on demand.
type Index struct {
	postingPath string
	terms       []Term
	postings    io.ReaderAt
	count       uint32
	closers     []io.Closer
}

// Open opens the index files next to dbPath.
func Open(dbPath string) (*Index, error) {
	termPath, postingPath := Paths(dbPath)
	tf, err := os.Open(termPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIndex
		}
		return nil, xerrors.NewDatabaseError("open", termPath, 0, err)
	}
	defer tf.Close()

	pf, err := os.Open(postingPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoIndex
		}
		return nil, xerrors.NewDatabaseError("open", postingPath, 0, err)
	}
	ix, err := Load(tf, pf, postingPath)
	if err != nil {
		pf.Close()
		return nil, err
	}
	ix.closers = append(ix.closers, pf)
	debug.LogDatabase("opened inverted index %s: %d terms, %d postings\n", termPath, len(ix.terms), ix.count)
	return ix, nil
}

// Load builds an index from a term stream and a posting file.
func Load(terms io.Reader, postings io.ReaderAt, postingPath string) (*Index, error) {
	table, err := readTerms(terms)
	if err != nil {
		return nil, xerrors.NewFormatError(postingPath, 0, err.Error())
	}
	var hdr [headerSize]byte
	if n, err := postings.ReadAt(hdr[:], 0); n < len(hdr) {
		return nil, xerrors.NewDatabaseError("read posting header", postingPath, 0, err)
	}
	if string(hdr[:8]) != postingMagic {
		return nil, xerrors.NewFormatError(postingPath, 0, fmt.Sprintf("bad posting file magic %q", hdr[:8]))
	}
	count := binary.LittleEndian.Uint32(hdr[8:])
	for _, t := range table {
		if uint64(t.First)+uint64(t.Count) > uint64(count) {
			return nil, xerrors.NewFormatError(postingPath, 0,
				fmt.Sprintf("term %q references postings beyond %d", t.Text, count))
		}
	}
	return &Index{
		postingPath: postingPath,
		terms:       table,
		postings:    postings,
		count:       count,
	}, nil
}

// Close releases the posting file.
func (ix *Index) Close() error {
	var errs []error
	for _, c := range ix.closers {
		errs = append(errs, c.Close())
	}
	ix.closers = nil
	return xerrors.NewMultiError(errs).ErrorOrNil()
}

// Terms returns the sorted term table.
func (ix *Index) Terms() []Term { return ix.terms }

// PostingCount returns the number of posting records.
func (ix *Index) PostingCount() int { return int(ix.count) }

// lowerBound returns the index of the first term >= s.
func (ix *Index) lowerBound(s string) int {
	return sort.Search(len(ix.terms), func(i int) bool { return ix.terms[i].Text >= s })
}

// FindTerms scans the terms that can match m and collects their postings.
// The scan starts at the literal prefix (upper-cased when matching without
// case) and stops at the first term outside the prefix range.
func (ix *Index) FindTerms(m Matcher, progress ProgressFunc) *PostingSet {
	prefix := m.Prefix()
	caseless := m.CaseInsensitive()
	start, lower := prefix, prefix
	if caseless {
		start = strings.ToUpper(prefix)
		lower = strings.ToLower(prefix)
	}

	set := &PostingSet{ix: ix, bits: roaring.New()}
	for i := ix.lowerBound(start); i < len(ix.terms); i++ {
		t := ix.terms[i]
		if prefix != "" {
			head := t.Text
			if len(head) > len(prefix) {
				head = head[:len(prefix)]
			}
			if caseless && head > lower || !caseless && head != prefix {
				break
			}
		}
		set.Visited++
		if m.MatchString(t.Text) {
			set.Matched++
			if t.Count > 0 {
				set.bits.AddRange(uint64(t.First), uint64(t.First)+uint64(t.Count))
			}
		}
		if progress != nil && set.Visited%TermProgressInterval == 0 {
			progress("symbols matched", set.Visited, len(ix.terms))
		}
	}
	return set
}

// PostingSet is the OR of the posting ranges of every matching term.
type PostingSet struct {
	ix   *Index
	bits *roaring.Bitmap

	// Visited counts the terms tested against the matcher, Matched those that matched
	Visited int
	Matched int
}

// Len returns the number of postings in the set.
func (ps *PostingSet) Len() int {
	return int(ps.bits.GetCardinality())
}

// Or merges another set into this one.
func (ps *PostingSet) Or(other *PostingSet) {
	ps.bits.Or(other.bits)
	ps.Visited += other.Visited
	ps.Matched += other.Matched
}

// Postings reads the posting records and returns them in database order.
func (ps *PostingSet) Postings(progress ProgressFunc) ([]types.Posting, error) {
	total := ps.Len()
	out := make([]types.Posting, 0, total)
	var rec [postingSize]byte
	it := ps.bits.Iterator()
	for it.HasNext() {
		id := it.Next()
		off := int64(headerSize) + int64(id)*postingSize
		if n, err := ps.ix.postings.ReadAt(rec[:], off); n < len(rec) {
			return nil, xerrors.NewDatabaseError("read posting", ps.ix.postingPath, off, err)
		}
		out = append(out, decodePosting(rec[:]))
		if progress != nil && len(out)%PostingProgressInterval == 0 {
			progress("possible references retrieved", len(out), total)
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].LineOffset < out[b].LineOffset })
	return out, nil
}
