// Package refine implements entity resolution for LoreBinders: name
// normalization, similarity and canonical-name selection, the pre-analysis
// sorter, binder aggregation, cleaning and binder-level deduplication.
//
// Everything in this package is pure and synchronous. Word lists and
// patterns are carried by a Vocabulary injected at construction time.
package refine

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxEntityNameLength is the longest entity name the Cleaner accepts.
const MaxEntityNameLength = 200

// Default patterns.
const (
	DefaultNarratorPattern       = `(?i)\b(narrator|the narrator|the protagonist|protagonist|the main character|main character|i|me|my|myself)\b`
	DefaultLocationSuffixPattern = `\s*\([^()]*\)\s*$|\s+-\s+.*$`
	DefaultPlaceholder           = "none found"
)

// DefaultTitles is the honorific and kinship vocabulary stripped from
// character names.
var DefaultTitles = []string{
	"admiral", "airman", "ambassador", "aunt", "baron", "baroness", "brother",
	"cadet", "cap", "captain", "col", "colonel", "commander", "commodore",
	"corporal", "count", "countess", "cousin", "dad", "daddy", "doc", "doctor",
	"dr", "duchess", "duke", "earl", "ensign", "father", "gen", "general",
	"granddad", "grandfather", "grandma", "grandmom", "grandmother", "grandpop",
	"great aunt", "great grandfather", "great grandmother", "great uncle",
	"great-aunt", "great-grandfather", "great-grandmother", "great-uncle",
	"king", "lady", "leftenant", "lieutenant", "lord", "lt", "ma", "ma'am",
	"madam", "major", "marquis", "miss", "missus", "mister", "mjr", "mom",
	"mommy", "mother", "mr", "mrs", "ms", "nurse", "pa", "pfc", "pop",
	"prince", "princess", "private", "queen", "sarge", "seaman", "sergeant",
	"sir", "sister", "the", "uncle",
}

// Vocabulary holds the word lists and patterns used by normalization.
// It is immutable after construction and safe for concurrent use.
type Vocabulary struct {
	titles         map[string]struct{}
	maxTitleWords  int
	narrator       *regexp.Regexp
	locationSuffix *regexp.Regexp
	placeholder    string
}

// NewVocabulary compiles a Vocabulary. Empty patterns or placeholder fall
// back to the defaults. Patterns are used as given, so a case-insensitive
// narrator pattern needs its own (?i) flag.
func NewVocabulary(titles []string, narratorPattern, locationSuffixPattern, placeholder string) (*Vocabulary, error) {
	if narratorPattern == "" {
		narratorPattern = DefaultNarratorPattern
	}
	if locationSuffixPattern == "" {
		locationSuffixPattern = DefaultLocationSuffixPattern
	}
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}

	narrator, err := regexp.Compile(narratorPattern)
	if err != nil {
		return nil, fmt.Errorf("compile narrator pattern: %w", err)
	}
	suffix, err := regexp.Compile(locationSuffixPattern)
	if err != nil {
		return nil, fmt.Errorf("compile location suffix pattern: %w", err)
	}

	v := &Vocabulary{
		titles:         make(map[string]struct{}, len(titles)),
		narrator:       narrator,
		locationSuffix: suffix,
		placeholder:    strings.TrimSpace(placeholder),
	}
	for _, t := range titles {
		key := titleKey(t)
		if key == "" {
			continue
		}
		v.titles[key] = struct{}{}
		if n := len(strings.Fields(key)); n > v.maxTitleWords {
			v.maxTitleWords = n
		}
	}
	return v, nil
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() *Vocabulary {
	v, err := NewVocabulary(DefaultTitles, "", "", "")
	if err != nil {
		panic(err)
	}
	return v
}

// IsTitle reports whether s, ignoring case, surrounding space and a trailing
// period, is exactly one of the known titles.
func (v *Vocabulary) IsTitle(s string) bool {
	_, ok := v.titles[titleKey(s)]
	return ok
}

// IsPlaceholder reports whether s is the "not found" placeholder.
func (v *Vocabulary) IsPlaceholder(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), v.placeholder)
}

// SubstituteNarrator replaces narrator self-references in text with name.
// An empty name leaves text unchanged.
func (v *Vocabulary) SubstituteNarrator(text, name string) string {
	if name == "" || text == "" {
		return text
	}
	return v.narrator.ReplaceAllLiteralString(text, name)
}

// StripLocationSuffix removes trailing parenthetical or " - suffix"
// qualifiers: "Kitchen (Interior)" becomes "Kitchen". A name that would
// become empty is returned as it was before the last strip.
func (v *Vocabulary) StripLocationSuffix(name string) string {
	out := strings.TrimSpace(name)
	for {
		next := strings.TrimSpace(v.locationSuffix.ReplaceAllString(out, ""))
		if next == out || next == "" {
			return out
		}
		out = next
	}
}

// CanonicalName applies the category specific name rules: suffix stripping
// for locations, title stripping for characters. Other categories are only
// trimmed.
func (v *Vocabulary) CanonicalName(category, name string) string {
	name = strings.TrimSpace(name)
	switch {
	case strings.EqualFold(category, "Locations"):
		return v.StripLocationSuffix(name)
	case strings.EqualFold(category, "Characters"):
		return v.RemoveTitles(name)
	default:
		return name
	}
}

func titleKey(s string) string {
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	return strings.TrimSuffix(s, ".")
}
