package types

import "sort"

// EntityAppearance holds the traits observed for one entity in one chapter.
type EntityAppearance struct {
	Traits Traits `json:"traits"`
}

// EntityRecord is one entity tracked across chapters.
type EntityRecord struct {
	Name        string                   `json:"name"`
	Category    string                   `json:"category"`
	Appearances map[int]EntityAppearance `json:"appearances"`
	Summary     string                   `json:"summary,omitempty"`
}

// CategoryRecord groups the entities of one category by name.
type CategoryRecord struct {
	Name     string                   `json:"name"`
	Entities map[string]*EntityRecord `json:"entities"`
}

// Binder is the per-book aggregate handed to reporting.
// Every (category, name) pair is unique and an entity holds at most one
// appearance per chapter.
type Binder struct {
	Categories map[string]*CategoryRecord `json:"categories"`
}

// NewBinder returns an empty Binder.
func NewBinder() *Binder {
	return &Binder{Categories: make(map[string]*CategoryRecord)}
}

// NewEntityRecord returns an entity with no appearances.
func NewEntityRecord(name, category string) *EntityRecord {
	return &EntityRecord{
		Name:        name,
		Category:    category,
		Appearances: make(map[int]EntityAppearance),
	}
}

// EnsureCategory returns the named category, creating it on first use.
func (b *Binder) EnsureCategory(name string) *CategoryRecord {
	if b.Categories == nil {
		b.Categories = make(map[string]*CategoryRecord)
	}
	c, ok := b.Categories[name]
	if !ok {
		c = &CategoryRecord{Name: name, Entities: make(map[string]*EntityRecord)}
		b.Categories[name] = c
	}
	return c
}

// Entity looks up an entity by category and name.
func (b *Binder) Entity(category, name string) (*EntityRecord, bool) {
	c, ok := b.Categories[category]
	if !ok {
		return nil, false
	}
	e, ok := c.Entities[name]
	return e, ok
}

// CategoryNames returns the category names in sorted order.
func (b *Binder) CategoryNames() []string {
	names := make([]string, 0, len(b.Categories))
	for n := range b.Categories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// EntityCount returns the total number of entities across all categories.
func (b *Binder) EntityCount() int {
	n := 0
	for _, c := range b.Categories {
		n += len(c.Entities)
	}
	return n
}

// Clone returns a deep copy of the Binder.
func (b *Binder) Clone() *Binder {
	out := NewBinder()
	for name, c := range b.Categories {
		nc := out.EnsureCategory(name)
		nc.Name = c.Name
		for en, e := range c.Entities {
			nc.Entities[en] = e.Clone()
		}
	}
	return out
}

// EnsureEntity returns the named entity, creating it on first use.
func (c *CategoryRecord) EnsureEntity(name string) *EntityRecord {
	if c.Entities == nil {
		c.Entities = make(map[string]*EntityRecord)
	}
	e, ok := c.Entities[name]
	if !ok {
		e = NewEntityRecord(name, c.Name)
		c.Entities[name] = e
	}
	return e
}

// EntityNames returns the entity names in sorted order.
func (c *CategoryRecord) EntityNames() []string {
	names := make([]string, 0, len(c.Entities))
	for n := range c.Entities {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// SetAppearance records traits for a chapter. An existing appearance for the
// same chapter is overwritten.
func (e *EntityRecord) SetAppearance(chapter int, traits Traits) {
	if e.Appearances == nil {
		e.Appearances = make(map[int]EntityAppearance)
	}
	e.Appearances[chapter] = EntityAppearance{Traits: traits.Clone()}
}

// Chapters returns the chapter numbers the entity appears in, ascending.
func (e *EntityRecord) Chapters() []int {
	out := make([]int, 0, len(e.Appearances))
	for ch := range e.Appearances {
		out = append(out, ch)
	}
	sort.Ints(out)
	return out
}

// Clone returns a deep copy of the entity.
func (e *EntityRecord) Clone() *EntityRecord {
	out := &EntityRecord{
		Name:        e.Name,
		Category:    e.Category,
		Summary:     e.Summary,
		Appearances: make(map[int]EntityAppearance, len(e.Appearances)),
	}
	for ch, a := range e.Appearances {
		out.Appearances[ch] = EntityAppearance{Traits: a.Traits.Clone()}
	}
	return out
}
