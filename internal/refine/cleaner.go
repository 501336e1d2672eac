package refine

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/scrypster/lorebinders/pkg/types"
)

// ErrNameTooLong is returned when an entity name exceeds MaxEntityNameLength.
var ErrNameTooLong = errors.New("entity name too long")

// Cleaner canonicalizes a Binder: narrator substitution, placeholder
// removal, per-category name rules and merging of names that collide.
type Cleaner struct {
	vocab    *Vocabulary
	narrator string
}

// NewCleaner returns a Cleaner. A nil vocab uses DefaultVocabulary.
func NewCleaner(vocab *Vocabulary, narrator string) *Cleaner {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	return &Cleaner{vocab: vocab, narrator: narrator}
}

// Clean returns a cleaned copy of b. The input is not modified.
func (c *Cleaner) Clean(b *types.Binder) (*types.Binder, error) {
	out := types.NewBinder()
	for _, catName := range b.CategoryNames() {
		cat := b.Categories[catName]
		newCat := strings.TrimSpace(c.vocab.SubstituteNarrator(catName, c.narrator))
		if newCat == "" {
			newCat = catName
		}
		dst := out.EnsureCategory(newCat)

		for _, name := range cat.EntityNames() {
			rec, err := c.cleanRecord(newCat, cat.Entities[name])
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			if existing, ok := dst.Entities[rec.Name]; ok {
				mergeRecords(existing, rec)
				continue
			}
			dst.Entities[rec.Name] = rec
		}
		if len(dst.Entities) == 0 {
			delete(out.Categories, newCat)
		}
	}
	return out, nil
}

// cleanRecord returns the cleaned copy of one entity, or nil when nothing
// meaningful is left. The length limit applies to the name after narrator
// substitution.
func (c *Cleaner) cleanRecord(category string, e *types.EntityRecord) (*types.EntityRecord, error) {
	name := strings.TrimSpace(c.vocab.SubstituteNarrator(e.Name, c.narrator))
	if n := utf8.RuneCountInString(name); n > MaxEntityNameLength {
		return nil, fmt.Errorf("%w: %s/%.40s... (%d chars)", ErrNameTooLong, category, name, n)
	}
	if name == "" || c.vocab.IsPlaceholder(name) {
		return nil, nil
	}
	name = c.vocab.CanonicalName(category, name)

	rec := types.NewEntityRecord(name, category)
	rec.Summary = c.vocab.SubstituteNarrator(e.Summary, c.narrator)
	for _, ch := range e.Chapters() {
		traits := c.cleanTraits(e.Appearances[ch].Traits)
		if len(traits) == 0 {
			continue
		}
		rec.Appearances[ch] = types.EntityAppearance{Traits: traits}
	}
	if len(rec.Appearances) == 0 && rec.Summary == "" {
		return nil, nil
	}
	return rec, nil
}

func (c *Cleaner) cleanTraits(in types.Traits) types.Traits {
	out := make(types.Traits, len(in))
	for _, key := range in.Keys() {
		newKey := c.vocab.SubstituteNarrator(key, c.narrator)
		if c.vocab.IsPlaceholder(newKey) {
			continue
		}
		value, ok := c.cleanValue(in[key])
		if !ok {
			continue
		}
		if existing, dup := out[newKey]; dup {
			out[newKey] = MergeTraitValue(existing, value)
			continue
		}
		out[newKey] = value
	}
	return out
}

// cleanValue substitutes the narrator and drops placeholder values. It
// returns false when nothing is left.
func (c *Cleaner) cleanValue(v types.TraitValue) (types.TraitValue, bool) {
	v = v.Map(func(s string) string { return c.vocab.SubstituteNarrator(s, c.narrator) })
	if !v.IsList() {
		if c.vocab.IsPlaceholder(v.String()) {
			return v, false
		}
		return v, true
	}
	kept := make([]string, 0, v.Len())
	for _, item := range v.Items() {
		if !c.vocab.IsPlaceholder(item) {
			kept = append(kept, item)
		}
	}
	if len(kept) == 0 {
		return v, false
	}
	return types.List(kept...), true
}
