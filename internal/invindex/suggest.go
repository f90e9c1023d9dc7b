package invindex

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
)

// DefaultSuggestThreshold is the minimum Jaro-Winkler similarity for a suggestion
const DefaultSuggestThreshold = 0.8

// Suggestion is a term close to a query that found nothing.
type Suggestion struct {
	Term  string  `json:"term"`
	Score float32 `json:"score"`
}

// Suggest ranks candidate names by similarity to name and returns at most max
// of them. Comparison ignores case.
func Suggest(name string, candidates []string, max int) []Suggestion {
	if name == "" || max <= 0 {
		return nil
	}
	lname := strings.ToLower(name)
	seen := make(map[string]bool, len(candidates))
	var out []Suggestion
	for _, c := range candidates {
		if c == "" || c == name || seen[c] {
			continue
		}
		seen[c] = true
		score, err := edlib.StringsSimilarity(lname, strings.ToLower(c), edlib.JaroWinkler)
		if err != nil || score < DefaultSuggestThreshold {
			continue
		}
		out = append(out, Suggestion{Term: c, Score: score})
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		return out[a].Term < out[b].Term
	})
	if len(out) > max {
		out = out[:max]
	}
	return out
}

// Suggest returns index terms similar to name.
func (ix *Index) Suggest(name string, max int) []Suggestion {
	texts := make([]string, len(ix.terms))
	for i, t := range ix.terms {
		texts[i] = t.Text
	}
	return Suggest(name, texts, max)
}
