package refine

import (
	"strings"

	"github.com/scrypster/lorebinders/pkg/types"
)

// RemoveTitles strips leading honorifics from name: "Captain John Smith"
// becomes "John Smith" and "Dr. Watson" becomes "Watson". A name that is
// itself a title is returned unchanged. Stripping repeats until no leading
// title remains, so RemoveTitles is idempotent.
func (v *Vocabulary) RemoveTitles(name string) string {
	out := name
	for {
		next, ok := v.stripLeadingTitle(out)
		if !ok {
			return out
		}
		out = next
	}
}

func (v *Vocabulary) stripLeadingTitle(name string) (string, bool) {
	fields := strings.Fields(name)
	if len(fields) < 2 || v.IsTitle(name) {
		return name, false
	}
	n := v.maxTitleWords
	if n > len(fields)-1 {
		n = len(fields) - 1
	}
	for ; n >= 1; n-- {
		if v.IsTitle(strings.Join(fields[:n], " ")) {
			return strings.Join(fields[n:], " "), true
		}
	}
	return name, false
}

type suffixRule struct {
	suffix, replacement string
}

// Ordered most specific first. The "ss" rule guards singular words such as
// "glass" from the generic "s" rule.
var singularRules = []suffixRule{
	{"lves", "lf"},
	{"eaves", "eaf"},
	{"oaves", "oaf"},
	{"ives", "ife"},
	{"ies", "y"},
	{"oes", "o"},
	{"sses", "ss"},
	{"ss", "ss"},
	{"xes", "x"},
	{"zes", "ze"},
	{"ches", "ch"},
	{"shes", "sh"},
	{"s", ""},
}

// ToSingular converts an English plural to its singular form using the
// first matching suffix rule. Words matching no rule are returned unchanged.
func ToSingular(word string) string {
	lower := strings.ToLower(word)
	for _, r := range singularRules {
		if len(lower) <= len(r.suffix) || !strings.HasSuffix(lower, r.suffix) {
			continue
		}
		cut := len(word) - len(r.suffix)
		repl := r.replacement
		if tail := word[cut:]; tail == strings.ToUpper(tail) {
			repl = strings.ToUpper(repl)
		}
		return word[:cut] + repl
	}
	return word
}

// MergeTraitValue combines two trait values. Lists are unioned in first-seen
// order, a scalar is added to a list unless already present, equal scalars
// collapse, and unequal scalars become a two element list.
// MergeTraitValue(v, v) is v.
func MergeTraitValue(v1, v2 types.TraitValue) types.TraitValue {
	if !v1.IsList() && !v2.IsList() {
		if v1.Equal(v2) {
			return v1
		}
		return types.List(v1.String(), v2.String())
	}
	return types.List(union(v1.Items(), v2.Items())...)
}

// MergeTraitMaps returns m1 with every key of m2 merged in. Keys present in
// both are combined with MergeTraitValue. Neither input is modified.
func MergeTraitMaps(m1, m2 types.Traits) types.Traits {
	out := m1.Clone()
	if out == nil {
		out = make(types.Traits, len(m2))
	}
	for k, v := range m2 {
		if existing, ok := out[k]; ok {
			out[k] = MergeTraitValue(existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

func union(a, b []string) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, s := range list {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}
