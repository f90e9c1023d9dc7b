package search

import "github.com/standardbeagle/xref/internal/types"

// Tracker follows where a forward scan is: the current file, the enclosing
// function and the open macro body. Function and macro are reset at file
// boundaries.
type Tracker struct {
	File     string
	Function string
	Macro    string
}

// NewTracker returns a tracker outside any file.
func NewTracker() *Tracker {
	return &Tracker{Function: types.GlobalScope}
}

// NewFile starts a file. An empty name marks the end of the symbol data
// and NewFile reports false.
func (t *Tracker) NewFile(name string) bool {
	t.File = name
	t.Function = types.GlobalScope
	t.Macro = ""
	return name != ""
}

// EnterFunction records a function definition.
func (t *Tracker) EnterFunction(name string) { t.Function = name }

// ExitFunction handles a function end.
func (t *Tracker) ExitFunction() { t.Function = types.GlobalScope }

// EnterMacro records a #define.
func (t *Tracker) EnterMacro(name string) { t.Macro = name }

// ExitMacro handles the end of a #define body.
func (t *Tracker) ExitMacro() { t.Macro = "" }

// InMacro reports whether a macro body is open.
func (t *Tracker) InMacro() bool { return t.Macro != "" }

// Attribution names the scope a reference belongs to: the open macro, then
// the enclosing function, then the global scope.
func (t *Tracker) Attribution() string {
	if t.Macro != "" {
		return t.Macro
	}
	if t.Function != "" {
		return t.Function
	}
	return types.GlobalScope
}

// OpenFunctions is the bounded, ordered, duplicate-free set of function
// definitions seen since the last function end. When full, the oldest
// entry is dropped.
type OpenFunctions struct {
	names []string
	limit int
}

// NewOpenFunctions creates a set holding at most limit names.
func NewOpenFunctions(limit int) *OpenFunctions {
	if limit <= 0 {
		limit = types.MaxOpenFunctions
	}
	return &OpenFunctions{limit: limit}
}

// Add inserts name unless it is already present.
func (o *OpenFunctions) Add(name string) {
	for _, n := range o.names {
		if n == name {
			return
		}
	}
	if len(o.names) == o.limit {
		copy(o.names, o.names[1:])
		o.names = o.names[:len(o.names)-1]
	}
	o.names = append(o.names, name)
}

// Reset empties the set.
func (o *OpenFunctions) Reset() { o.names = o.names[:0] }

// Names returns the names in insertion order.
func (o *OpenFunctions) Names() []string { return o.names }

// Len returns the number of names.
func (o *OpenFunctions) Len() int { return len(o.names) }
