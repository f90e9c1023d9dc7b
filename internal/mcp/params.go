package mcp

import (
	"encoding/json"
	"sort"
)

// UnknownField represents a field that was passed but not recognized. It is
// reported back as a warning instead of failing the call.
type UnknownField struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

// QueryParams are the arguments of the symbol query tools.
type QueryParams struct {
	Pattern         string `json:"pattern"`
	CaseInsensitive *bool  `json:"case_insensitive,omitempty"`
	Max             int    `json:"max,omitempty"`

	Warnings []UnknownField `json:"-"`
}

// UnmarshalJSON accepts unknown fields and records them as warnings.
// "symbol" and "name" are accepted as aliases of "pattern".
func (p *QueryParams) UnmarshalJSON(data []byte) error {
	type Alias QueryParams
	known := map[string]struct{}{
		"pattern": {}, "case_insensitive": {}, "max": {},
		"symbol": {}, "name": {}, "max_results": {},
	}
	raw, warnings, err := collectUnknownFields(data, known)
	if err != nil {
		return err
	}
	renameField(raw, "symbol", "pattern")
	renameField(raw, "name", "pattern")
	renameField(raw, "max_results", "max")

	normalized, _ := json.Marshal(raw)
	if err := json.Unmarshal(normalized, (*Alias)(p)); err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}

// TextParams are the arguments of find_text.
type TextParams struct {
	Pattern         string `json:"pattern"`
	Regex           bool   `json:"regex,omitempty"`
	CaseInsensitive *bool  `json:"case_insensitive,omitempty"`
	Max             int    `json:"max,omitempty"`

	Warnings []UnknownField `json:"-"`
}

func (p *TextParams) UnmarshalJSON(data []byte) error {
	type Alias TextParams
	known := map[string]struct{}{
		"pattern": {}, "regex": {}, "case_insensitive": {}, "max": {},
	}
	_, warnings, err := collectUnknownFields(data, known)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, (*Alias)(p)); err != nil {
		return err
	}
	p.Warnings = warnings
	return nil
}

// ListParams are the arguments of list_functions.
type ListParams struct {
	Max int `json:"max,omitempty"`
}

// InfoParams are the arguments of info.
type InfoParams struct {
	Tool string `json:"tool,omitempty"`
}

// collectUnknownFields parses raw JSON into a map and reports the fields
// outside known, sorted by name. Empty input is an empty object.
func collectUnknownFields(data []byte, known map[string]struct{}) (map[string]json.RawMessage, []UnknownField, error) {
	raw := map[string]json.RawMessage{}
	if len(data) == 0 {
		return raw, nil, nil
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, nil, err
	}

	var warnings []UnknownField
	for key, value := range raw {
		if _, ok := known[key]; ok {
			continue
		}
		var v interface{}
		if err := json.Unmarshal(value, &v); err != nil {
			v = string(value)
		}
		warnings = append(warnings, UnknownField{Name: key, Value: v})
	}
	sort.Slice(warnings, func(i, j int) bool { return warnings[i].Name < warnings[j].Name })
	return raw, warnings, nil
}

// renameField moves an alias onto its canonical name unless the canonical
// name is already set.
func renameField(raw map[string]json.RawMessage, alias, canonical string) {
	v, ok := raw[alias]
	if !ok {
		return
	}
	delete(raw, alias)
	if _, set := raw[canonical]; !set {
		raw[canonical] = v
	}
}

func warningMessages(fields []UnknownField) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = "unknown parameter ignored: " + f.Name
	}
	return out
}
