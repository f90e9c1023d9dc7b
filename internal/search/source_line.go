package search

import (
	"errors"
	"strconv"
	"strings"

	"github.com/standardbeagle/xref/internal/blockio"
	"github.com/standardbeagle/xref/internal/encoding"
	xerrors "github.com/standardbeagle/xref/internal/errors"
)

// firstDigitVersion is the first database version whose source lines must
// begin with their line number.
const firstDigitVersion = 12

// SourceLine is a reconstructed source line.
type SourceLine struct {
	Number int
	Text   string
}

// ReconstructLine rebuilds the source line that contains the cursor. It
// backs up to the blank line that precedes the line, then decodes forward,
// dropping record marks, until the next blank line.
//
// The cursor is left at the end of the line. With seeMore, it is left on
// the first marked record after the starting position on the same line,
// so a caller scanning for records sees the rest of the line.
func ReconstructLine(s *blockio.Stream, codec encoding.Codec, version int, seeMore bool) (SourceLine, error) {
	start := s.Offset()
	formatErr := func(reason string) error {
		return xerrors.NewFormatError(s.Path(), start, reason)
	}

	var next byte
	for {
		c := s.Char()
		if c == '\n' && next == '\n' {
			break
		}
		next = c
		if err := s.Back(); err != nil {
			if errors.Is(err, xerrors.ErrStartOfStream) {
				return SourceLine{}, formatErr("no blank line before source line")
			}
			return SourceLine{}, err
		}
	}

	// step over the blank line
	if ok, err := s.Skip(); err != nil || !ok {
		return SourceLine{}, eofOr(err, formatErr("database ends inside a source line"))
	}
	c, ok, err := s.Next()
	if err != nil || !ok {
		return SourceLine{}, eofOr(err, formatErr("database ends inside a source line"))
	}
	if version >= firstDigitVersion && (c < '0' || c > '9') {
		return SourceLine{}, formatErr("source line does not start with a line number")
	}

	var buf strings.Builder
	resume := int64(-1)
	for {
		if s.Char() == '\t' {
			if seeMore && resume < 0 && s.Offset() > start {
				resume = s.Offset()
			}
			if ok, err := s.Skip(); err != nil || !ok {
				return SourceLine{}, eofOr(err, formatErr("database ends inside a record"))
			}
			if ok, err := s.Skip(); err != nil || !ok {
				return SourceLine{}, eofOr(err, formatErr("database ends inside a record"))
			}
		}
		if err := codec.DecodeLine(s, &buf); err != nil {
			return SourceLine{}, err
		}
		c, ok, err := s.Next()
		if err != nil {
			return SourceLine{}, err
		}
		if !ok || c == '\n' {
			break
		}
	}

	if resume >= 0 {
		if _, err := s.Seek(resume); err != nil {
			return SourceLine{}, err
		}
	}
	return splitLineNumber(buf.String()), nil
}

// splitLineNumber separates the leading "<number> " from the text.
func splitLineNumber(line string) SourceLine {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	n, err := strconv.Atoi(line[:i])
	if err != nil {
		return SourceLine{Text: line}
	}
	text := line[i:]
	if strings.HasPrefix(text, " ") {
		text = text[1:]
	}
	return SourceLine{Number: n, Text: text}
}

func eofOr(err, eofErr error) error {
	if err != nil {
		return err
	}
	return eofErr
}
