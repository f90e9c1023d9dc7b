package types

import (
	"fmt"
	"strconv"
	"strings"
)

// Common system-wide constants
const (
	// GlobalScope is the attribution for references outside any function
	GlobalScope = "<global>"
	// UnknownScope is the attribution for text-search and file-name results
	UnknownScope = "<unknown>"

	// SignificantLength is the number of leading characters kept when symbols are truncated
	SignificantLength = 8

	// DefaultBlockSize matches the system BUFSIZ the database reader was tuned for
	DefaultBlockSize = 8192

	// MaxOpenFunctions bounds the enclosing-function set tracked by the callers query
	MaxOpenFunctions = 10
)

// RecordType is the mark byte that tags a symbol record in the database.
// Plain symbols carry no mark and are reported as Ident.
type RecordType byte

const (
	Ident     RecordType = 0
	NewFile   RecordType = '@'
	FcnDef    RecordType = '$'
	FcnCall   RecordType = '`'
	FcnEnd    RecordType = '}'
	Include   RecordType = '~'
	Define    RecordType = '#'
	DefineEnd RecordType = ')'
	ClassDef  RecordType = 'c'
	EnumDef   RecordType = 'e'
	MemberDef RecordType = 'm'
	StructDef RecordType = 's'
	TypeDef   RecordType = 't'
	UnionDef  RecordType = 'u'
	GlobalDef RecordType = 'g'
	LocalDef  RecordType = 'l'
	ParamDef  RecordType = 'p'
)

var recordNames = map[RecordType]string{
	Ident:     "symbol",
	NewFile:   "file",
	FcnDef:    "function",
	FcnCall:   "call",
	FcnEnd:    "function-end",
	Include:   "include",
	Define:    "define",
	DefineEnd: "define-end",
	ClassDef:  "class",
	EnumDef:   "enum",
	MemberDef: "member",
	StructDef: "struct",
	TypeDef:   "typedef",
	UnionDef:  "union",
	GlobalDef: "global",
	LocalDef:  "local",
	ParamDef:  "param",
}

func (r RecordType) String() string {
	if name, ok := recordNames[r]; ok {
		return name
	}
	return fmt.Sprintf("record(%q)", byte(r))
}

// IsMark reports whether b is one of the known record marks.
func IsMark(b byte) bool {
	if b == 0 {
		return false
	}
	_, ok := recordNames[RecordType(b)]
	return ok
}

// IsDefinition reports whether the record type belongs to the definition set.
// Calls, includes, function ends and plain symbols are never definitions.
func (r RecordType) IsDefinition() bool {
	switch r {
	case ClassDef, Define, EnumDef, FcnDef, GlobalDef, MemberDef, StructDef, TypeDef, UnionDef:
		return true
	}
	return false
}

// Field selects the query kind. The numeric values follow the line-oriented
// field numbers (-0 ... -8) of the classic cross-reference front end.
type Field int

const (
	FieldSymbol Field = iota
	FieldDefinition
	FieldCallees
	FieldCallers
	FieldString
	FieldChange
	FieldRegexp
	FieldFile
	FieldIncludes
)

var fieldNames = []string{
	FieldSymbol:     "symbol",
	FieldDefinition: "definition",
	FieldCallees:    "callees",
	FieldCallers:    "callers",
	FieldString:     "text",
	FieldChange:     "change",
	FieldRegexp:     "egrep",
	FieldFile:       "file",
	FieldIncludes:   "includes",
}

func (f Field) String() string {
	if f >= 0 && int(f) < len(fieldNames) {
		return fieldNames[f]
	}
	return "field(" + strconv.Itoa(int(f)) + ")"
}

// SymbolField reports whether the field searches symbol names (and so is
// subject to truncation and the not-a-symbol check).
func (f Field) SymbolField() bool {
	return f <= FieldCallers
}

// ParseField accepts a field name or its number.
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(fieldNames) {
			return 0, fmt.Errorf("field number %d out of range 0-%d", n, len(fieldNames)-1)
		}
		return Field(n), nil
	}
	for i, name := range fieldNames {
		if name == s {
			return Field(i), nil
		}
	}
	return 0, fmt.Errorf("unknown field %q", s)
}

// Reference is one query result line.
type Reference struct {
	File     string `json:"file"`
	Function string `json:"function"`
	Line     int    `json:"line"`
	Text     string `json:"text"`
	// Global routes the reference to the primary stream; everything else
	// is reported after it.
	Global bool `json:"-"`
}

// String renders the reference in the line-oriented "file function line text" form.
func (r Reference) String() string {
	return r.File + " " + r.Function + " " + strconv.Itoa(r.Line) + " " + r.Text
}

// Posting is one inverted-index entry.
type Posting struct {
	FileIndex  uint32
	LineOffset int64
	FcnOffset  int64
	Type       RecordType
}
