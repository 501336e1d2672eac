package refine

import (
	"strings"
	"unicode/utf8"
)

// PriorityPolicy picks the canonical name of two similar names. It returns
// the name to keep and the name to merge into it.
type PriorityPolicy func(key1, key2 string) (keep, merge string)

// ShorterWins keeps the shorter name by character count. Ties keep key2.
func ShorterWins(key1, key2 string) (string, string) {
	if utf8.RuneCountInString(key1) < utf8.RuneCountInString(key2) {
		return key1, key2
	}
	return key2, key1
}

// LongerWins keeps the longer name by character count. Ties keep key2.
func LongerWins(key1, key2 string) (string, string) {
	if utf8.RuneCountInString(key1) > utf8.RuneCountInString(key2) {
		return key1, key2
	}
	return key2, key1
}

// PolicyByName maps a configured policy name to a PriorityPolicy.
// Unknown names return false.
func PolicyByName(name string) (PriorityPolicy, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "shorter":
		return ShorterWins, true
	case "longer":
		return LongerWins, true
	default:
		return nil, false
	}
}

// Resolver decides whether two entity names denote the same entity and
// which of them is canonical.
type Resolver struct {
	vocab  *Vocabulary
	policy PriorityPolicy
}

// NewResolver returns a Resolver. A nil vocab uses DefaultVocabulary and a
// nil policy uses ShorterWins.
func NewResolver(vocab *Vocabulary, policy PriorityPolicy) *Resolver {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if policy == nil {
		policy = ShorterWins
	}
	return &Resolver{vocab: vocab, policy: policy}
}

// Vocabulary returns the resolver's vocabulary.
func (r *Resolver) Vocabulary() *Vocabulary { return r.vocab }

// IsSimilar reports whether key1 and key2 name the same entity. The
// comparison is case-insensitive and symmetric.
func (r *Resolver) IsSimilar(key1, key2 string) bool {
	k1 := strings.ToLower(strings.TrimSpace(key1))
	k2 := strings.ToLower(strings.TrimSpace(key2))
	if k1 == k2 {
		return true
	}
	if k1 == "" || k2 == "" {
		return false
	}

	s1, s2 := ToSingular(k1), ToSingular(k2)
	if k1 == s2 || s1 == k2 || s1 == s2 {
		return true
	}

	if (r.vocab.IsTitle(k1) && strings.HasPrefix(k2, k1+" ")) ||
		(r.vocab.IsTitle(k2) && strings.HasPrefix(k1, k2+" ")) {
		return true
	}

	d1, d2 := r.vocab.RemoveTitles(k1), r.vocab.RemoveTitles(k2)
	if d1 == k2 || k1 == d2 || d1 == d2 || d1 == s2 || s1 == d2 {
		return true
	}

	for _, a := range []string{k1, d1} {
		for _, b := range []string{k2, d2} {
			if boundedAffix(a, b) || boundedAffix(b, a) {
				return true
			}
		}
	}
	return false
}

// boundedAffix reports whether short is a whole-word prefix or suffix of long.
func boundedAffix(short, long string) bool {
	if short == "" {
		return false
	}
	return strings.HasPrefix(long, short+" ") || strings.HasSuffix(long, " "+short)
}

// Prioritize returns the name to keep and the name to merge. A bare title
// contained in the other name always loses; otherwise the policy decides.
func (r *Resolver) Prioritize(key1, key2 string) (keep, merge string) {
	l1, l2 := strings.ToLower(strings.TrimSpace(key1)), strings.ToLower(strings.TrimSpace(key2))
	if l1 != l2 && (strings.Contains(l1, l2) || strings.Contains(l2, l1)) {
		if r.vocab.IsTitle(l1) {
			return key2, key1
		}
		if r.vocab.IsTitle(l2) {
			return key1, key2
		}
	}
	return r.policy(key1, key2)
}
