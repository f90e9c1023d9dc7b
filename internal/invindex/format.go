package invindex

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/standardbeagle/xref/internal/types"
)

// File layout, little endian:
//
//	terms:    "XREFTRM1" u32 count { u16 len, term, u32 first posting, u32 posting count }*
//	postings: "XREFPST1" u32 count { u32 file index, u64 line offset, u64 function offset, u8 type }*
const (
	termMagic    = "XREFTRM1"
	postingMagic = "XREFPST1"
	headerSize   = 12
	postingSize  = 4 + 8 + 8 + 1
	maxTermLen   = 1<<16 - 1
)

// Term is one entry of the sorted term table.
type Term struct {
	Text  string
	First uint32
	Count uint32
}

// Paths returns the term and posting file names that belong to dbPath:
// cscope.out maps to cscope.in.out and cscope.po.out.
func Paths(dbPath string) (terms, postings string) {
	dir, base := filepath.Split(dbPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if ext == "" {
		return dbPath + ".in", dbPath + ".po"
	}
	return filepath.Join(dir, stem+".in"+ext), filepath.Join(dir, stem+".po"+ext)
}

func readTerms(r io.Reader) ([]Term, error) {
	br := bufio.NewReader(r)
	var hdr [headerSize]byte
	if _, err := io.ReadFull(br, hdr[:]); err != nil {
		return nil, fmt.Errorf("read term header: %w", err)
	}
	if string(hdr[:8]) != termMagic {
		return nil, fmt.Errorf("bad term file magic %q", hdr[:8])
	}
	count := binary.LittleEndian.Uint32(hdr[8:])
	terms := make([]Term, 0, count)

	var lenBuf [2]byte
	var ref [8]byte
	for i := uint32(0); i < count; i++ {
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return nil, fmt.Errorf("read term %d: %w", i, err)
		}
		text := make([]byte, binary.LittleEndian.Uint16(lenBuf[:]))
		if _, err := io.ReadFull(br, text); err != nil {
			return nil, fmt.Errorf("read term %d: %w", i, err)
		}
		if _, err := io.ReadFull(br, ref[:]); err != nil {
			return nil, fmt.Errorf("read term %d: %w", i, err)
		}
		terms = append(terms, Term{
			Text:  string(text),
			First: binary.LittleEndian.Uint32(ref[:4]),
			Count: binary.LittleEndian.Uint32(ref[4:]),
		})
	}
	if !sort.SliceIsSorted(terms, func(a, b int) bool { return terms[a].Text < terms[b].Text }) {
		return nil, fmt.Errorf("term table is not sorted")
	}
	return terms, nil
}

func decodePosting(b []byte) types.Posting {
	return types.Posting{
		FileIndex:  binary.LittleEndian.Uint32(b[0:4]),
		LineOffset: int64(binary.LittleEndian.Uint64(b[4:12])),
		FcnOffset:  int64(binary.LittleEndian.Uint64(b[12:20])),
		Type:       types.RecordType(b[20]),
	}
}

// Entry is one term with its postings, the writer-side view.
type Entry struct {
	Term     string
	Postings []types.Posting
}

// Write encodes entries into the term and posting files. Entries are sorted
// by term; postings keep the order given.
func Write(termsW, postingsW io.Writer, entries []Entry) error {
	sorted := append([]Entry(nil), entries...)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Term < sorted[b].Term })

	tw := bufio.NewWriter(termsW)
	pw := bufio.NewWriter(postingsW)

	total := 0
	for _, e := range sorted {
		total += len(e.Postings)
	}
	var hdr [headerSize]byte
	copy(hdr[:], termMagic)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(len(sorted)))
	if _, err := tw.Write(hdr[:]); err != nil {
		return err
	}
	copy(hdr[:], postingMagic)
	binary.LittleEndian.PutUint32(hdr[8:], uint32(total))
	if _, err := pw.Write(hdr[:]); err != nil {
		return err
	}

	var first uint32
	var rec [postingSize]byte
	for _, e := range sorted {
		if len(e.Term) > maxTermLen {
			return fmt.Errorf("term too long: %d bytes", len(e.Term))
		}
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(len(e.Term)))
		tw.Write(buf[:])
		tw.WriteString(e.Term)
		var ref [8]byte
		binary.LittleEndian.PutUint32(ref[:4], first)
		binary.LittleEndian.PutUint32(ref[4:], uint32(len(e.Postings)))
		tw.Write(ref[:])

		for _, p := range e.Postings {
			binary.LittleEndian.PutUint32(rec[0:4], p.FileIndex)
			binary.LittleEndian.PutUint64(rec[4:12], uint64(p.LineOffset))
			binary.LittleEndian.PutUint64(rec[12:20], uint64(p.FcnOffset))
			rec[20] = byte(p.Type)
			if _, err := pw.Write(rec[:]); err != nil {
				return err
			}
		}
		first += uint32(len(e.Postings))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return pw.Flush()
}
