// Package blockio reads the cross-reference database in fixed-size blocks.
//
// Every scan in the engine is a forward byte scan over one Stream. The buffer
// holds one block followed by a sentinel pair: buf[n] is the current scan
// character and buf[n+1] is NUL, so the inner search loop needs no bounds
// test and a hit on the sentinel triggers a refill.
package blockio

import (
	"errors"
	"io"

	xerrors "github.com/standardbeagle/xref/internal/errors"
	"github.com/standardbeagle/xref/internal/types"
)

// Cursor is a position in the database: block number and offset in the block.
type Cursor struct {
	Block  int64
	Offset int
}

// Abs returns the absolute byte offset of the cursor.
func (c Cursor) Abs(blockSize int) int64 {
	return c.Block*int64(blockSize) + int64(c.Offset)
}

// Stream is a block-buffered cursor over a database file. It is not safe for
// concurrent use; each query owns the stream while it runs.
type Stream struct {
	r         io.ReaderAt
	path      string
	blockSize int

	buf   []byte
	n     int   // valid bytes in buf
	pos   int   // cursor within buf
	block int64 // loaded block number, -1 when nothing is loaded
	mark  byte
	eof   bool
}

// New creates a stream over r. A non-positive block size selects the default.
func New(r io.ReaderAt, path string, blockSize int) *Stream {
	if blockSize <= 0 {
		blockSize = types.DefaultBlockSize
	}
	s := &Stream{
		r:         r,
		path:      path,
		blockSize: blockSize,
		buf:       make([]byte, blockSize+2),
		block:     -1,
		mark:      '\n',
	}
	return s
}

// BlockSize returns the configured block size.
func (s *Stream) BlockSize() int { return s.blockSize }

// Path returns the database path used in error messages.
func (s *Stream) Path() string { return s.path }

// EOF reports whether the last read ran past the end of the database.
func (s *Stream) EOF() bool { return s.eof }

// Cursor returns the current position.
func (s *Stream) Cursor() Cursor {
	return Cursor{Block: s.block, Offset: s.pos}
}

// Offset returns the absolute byte offset of the cursor.
func (s *Stream) Offset() int64 {
	if s.block < 0 {
		return 0
	}
	return s.Cursor().Abs(s.blockSize)
}

// load reads block number b into the buffer. It returns false at end of file.
func (s *Stream) load(b int64) (bool, error) {
	off := b * int64(s.blockSize)
	n, err := s.r.ReadAt(s.buf[:s.blockSize], off)
	if err != nil && !errors.Is(err, io.EOF) {
		// the buffer may hold part of block b; no block is loaded any more
		s.block = -1
		s.n = 0
		s.pos = 0
		return false, xerrors.NewDatabaseError("read block", s.path, off, err)
	}
	if n == 0 {
		s.eof = true
		return false, nil
	}
	s.block = b
	s.n = n
	s.pos = 0
	s.eof = false
	s.buf[n] = s.mark
	s.buf[n+1] = 0
	return true, nil
}

// ReadNextBlock loads the block after the current one and places the cursor
// at its start. It returns false at end of file.
func (s *Stream) ReadNextBlock() (bool, error) {
	return s.load(s.block + 1)
}

// SetMark sets the scan character and rewrites the sentinel of the loaded block.
func (s *Stream) SetMark(c byte) {
	s.mark = c
	if s.block >= 0 {
		s.buf[s.n] = c
	}
}

// Seek positions the cursor at an absolute offset, reloading only when the
// offset lies in a different block.
func (s *Stream) Seek(offset int64) (bool, error) {
	b := offset / int64(s.blockSize)
	if b != s.block || s.eof {
		ok, err := s.load(b)
		if err != nil || !ok {
			return false, err
		}
	}
	s.pos = int(offset % int64(s.blockSize))
	if s.pos >= s.n {
		s.eof = true
		return false, nil
	}
	return true, nil
}

// Rewind positions the cursor at the start of the database.
func (s *Stream) Rewind() (bool, error) {
	return s.Seek(0)
}

// Char returns the byte under the cursor.
func (s *Stream) Char() byte {
	if s.eof || s.block < 0 {
		return 0
	}
	return s.buf[s.pos]
}

// Skip advances one byte, loading the next block when the current one is
// exhausted. It returns false at end of file.
func (s *Stream) Skip() (bool, error) {
	if s.eof || s.block < 0 {
		return false, nil
	}
	s.pos++
	if s.pos < s.n {
		return true, nil
	}
	return s.ReadNextBlock()
}

// Next advances one byte and returns the byte now under the cursor.
func (s *Stream) Next() (byte, bool, error) {
	ok, err := s.Skip()
	if err != nil || !ok {
		return 0, false, err
	}
	return s.buf[s.pos], true, nil
}

// ScanPast advances to the next occurrence of c at or after the cursor and
// leaves the cursor on the byte after it. It returns false at end of file.
func (s *Stream) ScanPast(c byte) (bool, error) {
	if s.eof || s.block < 0 {
		return false, nil
	}
	s.SetMark(c)
	for {
		i := s.pos
		for s.buf[i] != c {
			i++
		}
		if i < s.n {
			s.pos = i
			return s.Skip()
		}
		// sentinel hit: buf[n] is the mark and buf[n+1] the terminator
		ok, err := s.ReadNextBlock()
		if err != nil || !ok {
			return false, err
		}
	}
}

// Back moves the cursor one byte backward, loading the previous block when
// the cursor crosses a block boundary. This is the only backward primitive.
func (s *Stream) Back() error {
	if s.block < 0 {
		return xerrors.ErrStartOfStream
	}
	if s.eof {
		// resume from the last byte of the last loaded block
		s.eof = false
		s.pos = s.n
	}
	if s.pos > 0 {
		s.pos--
		return nil
	}
	if s.block == 0 {
		return xerrors.ErrStartOfStream
	}
	ok, err := s.load(s.block - 1)
	if err != nil {
		return err
	}
	if !ok {
		return xerrors.ErrStartOfStream
	}
	s.pos = s.n - 1
	return nil
}
