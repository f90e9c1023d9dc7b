package search

import (
	"context"

	"github.com/standardbeagle/xref/internal/matcher"
	"github.com/standardbeagle/xref/internal/types"
)

// macroVersion is the first database version that records macro bodies.
const macroVersion = 10

// startScan rewinds to the first file record and reads its name.
func (e *Engine) startScan(tr *Tracker) (bool, error) {
	s := e.stream
	if ok, err := s.Rewind(); err != nil || !ok {
		return false, err
	}
	// the header has no tabs, so the first one opens the first file record
	if ok, err := s.ScanPast('\t'); err != nil || !ok {
		return false, err
	}
	if types.RecordType(s.Char()) != types.NewFile {
		return false, e.formatError("first record is not a file")
	}
	name, err := e.readName()
	if err != nil {
		return false, err
	}
	return tr.NewFile(name), nil
}

// newFile handles a file record under the cursor. It reports false at the
// end of the symbol data.
func (e *Engine) newFile(ctx context.Context, tr *Tracker, seen *int) (bool, error) {
	name, err := e.readName()
	if err != nil {
		return false, err
	}
	if !tr.NewFile(name) {
		return false, nil
	}
	*seen++
	e.report("search", *seen, e.db.Sources.Count())
	return true, ctx.Err()
}

// nextRecord advances to the mark of the next marked record.
func (e *Engine) nextRecord() (types.RecordType, bool, error) {
	ok, err := e.stream.ScanPast('\t')
	if err != nil || !ok {
		return 0, false, err
	}
	return types.RecordType(e.stream.Char()), true, nil
}

// readName skips the byte under the cursor (a mark) and decodes the name
// that follows. The cursor is left on the newline ending the name.
func (e *Engine) readName() (string, error) {
	ok, err := e.stream.Skip()
	if err != nil || !ok {
		return "", err
	}
	return e.codec.DecodeName(e.stream)
}

// matchHere tests the name starting at the cursor against the query. On a
// match the cursor is left on the newline ending the name.
func (e *Engine) matchHere() (bool, error) {
	if e.m.IsRegexp() {
		name, err := e.codec.DecodeName(e.stream)
		if err != nil {
			return false, err
		}
		return name != "" && e.m.MatchString(name), nil
	}
	return e.matchLiteral(e.m.Compressed())
}

// matchLiteral compares stored bytes with the compressed pattern. The name
// must end exactly where the pattern does.
func (e *Engine) matchLiteral(lit []byte) (bool, error) {
	s := e.stream
	for _, b := range lit {
		if s.Char() != b {
			return false, nil
		}
		ok, err := s.Skip()
		if err != nil || !ok {
			return false, err
		}
	}
	return s.Char() == '\n', nil
}

// FindSymbol reports every occurrence of the symbol, attributed to the
// enclosing macro or function.
func (e *Engine) FindSymbol(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.UsesIndex() {
		return e.finish(e.findSymbolIndexed(ctx, sink))
	}
	return e.finish(e.findSymbolScan(ctx, sink))
}

func (e *Engine) findSymbolScan(ctx context.Context, sink Sink) error {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return err
	}
	s := e.stream
	version := e.db.Header.Version
	var lit []byte
	if !e.m.IsRegexp() {
		lit = e.m.Compressed()
	}
	seen := 1

	// reported is set once the current source line has been emitted; the
	// rest of the line is still scanned so scope records on it take effect.
	// resumed means the cursor is already on the next record of the line.
	reported, resumed := false, false
	emit := func(fn string) error {
		if err := e.putRef(sink, tr.File, fn, true); err != nil {
			return err
		}
		resumed = s.Char() == '\t'
		reported = resumed
		return nil
	}

	for {
		// every record and text piece starts after a newline
		if resumed {
			resumed = false
		} else if ok, err := s.ScanPast('\n'); err != nil || !ok {
			return err
		}

		if s.Char() == '\n' {
			// blank piece: end of the source line
			reported = false
			continue
		}

		if s.Char() == '\t' {
			if ok, err := s.Skip(); err != nil || !ok {
				return err
			}
			mark := types.RecordType(s.Char())
			switch mark {
			case types.NewFile:
				more, err := e.newFile(ctx, tr, &seen)
				if err != nil || !more {
					return err
				}
				continue
			case types.FcnEnd:
				tr.ExitFunction()
				continue
			case types.DefineEnd:
				tr.ExitMacro()
				continue
			case types.Include:
				continue
			}

			name, err := e.readName()
			if err != nil {
				return err
			}
			opensMacro := false
			switch mark {
			case types.FcnDef:
				tr.EnterFunction(name)
			case types.Define:
				if version >= macroVersion {
					tr.EnterMacro(name)
					opensMacro = true
				}
			}
			if reported || name == "" || !e.m.MatchString(name) {
				continue
			}
			// a macro definition belongs to the scope around it, a function
			// definition to itself
			fn := tr.Function
			if tr.InMacro() && !opensMacro {
				fn = tr.Macro
			}
			if err := emit(fn); err != nil {
				return err
			}
			continue
		}

		// plain symbol or source text
		if reported {
			continue
		}
		if lit == nil {
			if !matcher.IsSymbolStart(e.codec.Lead(s.Char())) {
				continue
			}
			name, err := e.codec.DecodeName(s)
			if err != nil {
				return err
			}
			if !e.m.MatchString(name) {
				continue
			}
		} else {
			if s.Char() != lit[0] {
				continue
			}
			ok, err := e.matchLiteral(lit)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
		}
		if err := emit(tr.Attribution()); err != nil {
			return err
		}
	}
}

// FindDefinition reports the definitions of the symbol.
func (e *Engine) FindDefinition(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.UsesIndex() {
		return e.finish(e.findDefinitionIndexed(ctx, sink))
	}
	return e.finish(e.findDefinitionScan(ctx, sink))
}

func (e *Engine) findDefinitionScan(ctx context.Context, sink Sink) error {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return err
	}
	seen := 1
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return err
		}
		switch {
		case mark == types.NewFile:
			if more, err := e.newFile(ctx, tr, &seen); err != nil || !more {
				return err
			}
		case mark.IsDefinition():
			if ok, err := e.stream.Skip(); err != nil || !ok {
				return err
			}
			matched, err := e.matchHere()
			if err != nil {
				return err
			}
			if matched {
				if err := e.putRef(sink, tr.File, e.m.Pattern(), false); err != nil {
					return err
				}
			}
		}
	}
}

// FindAllFunctions lists every function (and class) definition. It needs
// no query.
func (e *Engine) FindAllFunctions(ctx context.Context, sink Sink) error {
	if e.fatal != nil {
		return e.fatal
	}
	return e.finish(e.findAllFunctionsScan(ctx, sink))
}

func (e *Engine) findAllFunctionsScan(ctx context.Context, sink Sink) error {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return err
	}
	seen := 1
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return err
		}
		switch mark {
		case types.NewFile:
			if more, err := e.newFile(ctx, tr, &seen); err != nil || !more {
				return err
			}
		case types.FcnEnd:
			tr.ExitFunction()
		case types.FcnDef, types.ClassDef:
			name, err := e.readName()
			if err != nil {
				return err
			}
			tr.EnterFunction(name)
			if err := e.putRef(sink, tr.File, name, false); err != nil {
				return err
			}
		}
	}
}

// FindCallers reports the calls to the function, attributed to the open
// macro or to each enclosing function definition.
func (e *Engine) FindCallers(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.UsesIndex() {
		return e.finish(e.findCallersIndexed(ctx, sink))
	}
	return e.finish(e.findCallersScan(ctx, sink))
}

func (e *Engine) findCallersScan(ctx context.Context, sink Sink) error {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return err
	}
	open := NewOpenFunctions(types.MaxOpenFunctions)
	version := e.db.Header.Version
	seen := 1
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return err
		}
		switch mark {
		case types.Define:
			if version >= macroVersion {
				name, err := e.readName()
				if err != nil {
					return err
				}
				tr.EnterMacro(name)
			}
		case types.DefineEnd:
			tr.ExitMacro()
		case types.NewFile:
			open.Reset()
			if more, err := e.newFile(ctx, tr, &seen); err != nil || !more {
				return err
			}
		case types.FcnDef:
			name, err := e.readName()
			if err != nil {
				return err
			}
			tr.EnterFunction(name)
			open.Add(name)
		case types.FcnEnd:
			open.Reset()
			tr.ExitFunction()
		case types.FcnCall:
			if ok, err := e.stream.Skip(); err != nil || !ok {
				return err
			}
			matched, err := e.matchHere()
			if err != nil {
				return err
			}
			if !matched {
				continue
			}
			if tr.InMacro() {
				if err := e.putRef(sink, tr.File, tr.Macro, true); err != nil {
					return err
				}
				continue
			}
			at := e.stream.Offset()
			for i, fn := range open.Names() {
				if i > 0 {
					if err := e.seek(at); err != nil {
						return err
					}
				}
				if err := e.putRef(sink, tr.File, fn, true); err != nil {
					return err
				}
			}
		}
	}
}

// FindCallees reports the calls made inside the definitions of the function
// or macro. It reports whether any definition matched.
func (e *Engine) FindCallees(ctx context.Context, sink Sink) (bool, error) {
	if err := e.ready(); err != nil {
		return false, err
	}
	var found bool
	var err error
	if e.UsesIndex() {
		found, err = e.findCalleesIndexed(ctx, sink)
	} else {
		found, err = e.findCalleesScan(ctx, sink)
	}
	return found, e.finish(err)
}

func (e *Engine) findCalleesScan(ctx context.Context, sink Sink) (bool, error) {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return false, err
	}
	version := e.db.Header.Version
	found := false
	seen := 1

	var mark types.RecordType
	pending := false
	for {
		if !pending {
			if mark, ok, err = e.nextRecord(); err != nil || !ok {
				return found, err
			}
		}
		pending = false

		switch mark {
		case types.NewFile:
			if more, err := e.newFile(ctx, tr, &seen); err != nil || !more {
				return found, err
			}
		case types.Define, types.FcnDef:
			if mark == types.Define && version < macroVersion {
				continue
			}
			if ok, err := e.stream.Skip(); err != nil || !ok {
				return found, err
			}
			matched, err := e.matchHere()
			if err != nil {
				return found, err
			}
			if !matched {
				continue
			}
			found = true
			stop, err := e.calleesOf(sink, tr.File, mark == types.Define, false)
			if err != nil {
				return found, err
			}
			// the body ended at a file record; handle it rather than skip it
			if stop == types.NewFile {
				mark, pending = stop, true
			}
		}
	}
}

// calleesOf reports the calls that follow the cursor up to the end of the
// current definition, and returns the record that ended it.
func (e *Engine) calleesOf(sink Sink, file string, isMacro, indexed bool) (types.RecordType, error) {
	version := e.db.Header.Version
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return 0, err
		}
		switch mark {
		case types.Define:
			// a #define inside a function body is not part of it
			if version >= macroVersion {
				for {
					inner, ok, err := e.nextRecord()
					if err != nil || !ok {
						return 0, err
					}
					if inner == types.DefineEnd {
						break
					}
				}
			}
		case types.FcnCall:
			name, err := e.readName()
			if err != nil {
				return 0, err
			}
			line, err := ReconstructLine(e.stream, e.codec, version, true)
			if err != nil {
				return 0, err
			}
			if err := sink.Put(types.Reference{
				File: file, Function: name, Line: line.Number, Text: line.Text, Global: true,
			}); err != nil {
				return 0, err
			}
		case types.DefineEnd:
			if indexed || isMacro {
				return mark, nil
			}
		case types.FcnDef:
			if indexed {
				return mark, nil
			}
		case types.FcnEnd, types.NewFile:
			return mark, nil
		}
	}
}

// FindIncludes reports the #include lines that name matching files.
func (e *Engine) FindIncludes(ctx context.Context, sink Sink) error {
	if err := e.ready(); err != nil {
		return err
	}
	if e.UsesIndex() {
		return e.finish(e.findIncludesIndexed(ctx, sink))
	}
	return e.finish(e.findIncludesScan(ctx, sink))
}

func (e *Engine) findIncludesScan(ctx context.Context, sink Sink) error {
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return err
	}
	seen := 1
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return err
		}
		switch mark {
		case types.NewFile:
			if more, err := e.newFile(ctx, tr, &seen); err != nil || !more {
				return err
			}
		case types.Include:
			// skip the mark and the quote or bracket marker
			for i := 0; i < 2; i++ {
				if ok, err := e.stream.Skip(); err != nil || !ok {
					return err
				}
			}
			matched, err := e.matchHere()
			if err != nil {
				return err
			}
			if matched {
				if err := e.putRef(sink, tr.File, types.GlobalScope, false); err != nil {
					return err
				}
			}
		}
	}
}

// definitionNames collects the distinct names of all definitions.
func (e *Engine) definitionNames(ctx context.Context) ([]string, error) {
	if e.fatal != nil {
		return nil, e.fatal
	}
	tr := NewTracker()
	ok, err := e.startScan(tr)
	if err != nil || !ok {
		return nil, e.finish(err)
	}
	seen := map[string]bool{}
	var names []string
	files := 1
	for {
		mark, ok, err := e.nextRecord()
		if err != nil || !ok {
			return names, e.finish(err)
		}
		switch {
		case mark == types.NewFile:
			if more, err := e.newFile(ctx, tr, &files); err != nil || !more {
				return names, e.finish(err)
			}
		case mark.IsDefinition():
			name, err := e.readName()
			if err != nil {
				return names, e.finish(err)
			}
			if name != "" && !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
}
