package refine

import (
	"sort"
	"strings"

	"github.com/scrypster/lorebinders/pkg/types"
)

// Sorter folds raw per-chapter extraction output into a deduplicated
// EntityIndex before analysis, so similar names are analyzed once.
type Sorter struct {
	resolver *Resolver
	narrator string
}

// NewSorter returns a Sorter. When narrator is non-empty, narrator
// self-references in names and category names are replaced with it before
// deduplication.
func NewSorter(resolver *Resolver, narrator string) *Sorter {
	return &Sorter{resolver: resolver, narrator: narrator}
}

// bucketSet is an insertion ordered name -> chapters map.
type bucketSet struct {
	keys     []string
	chapters map[string][]int
}

func newBucketSet() *bucketSet {
	return &bucketSet{chapters: make(map[string][]int)}
}

func (b *bucketSet) rename(from, to string) {
	if existing, ok := b.chapters[to]; ok {
		b.chapters[to] = mergeChapters(existing, b.chapters[from])
		delete(b.chapters, from)
		for i, k := range b.keys {
			if k == from {
				b.keys = append(b.keys[:i], b.keys[i+1:]...)
				break
			}
		}
		return
	}
	b.chapters[to] = b.chapters[from]
	delete(b.chapters, from)
	for i, k := range b.keys {
		if k == from {
			b.keys[i] = to
			break
		}
	}
}

// Sort returns category -> canonical name -> ascending chapter numbers.
// Chapters are processed in ascending order so the result is deterministic.
func (s *Sorter) Sort(extractions map[int]types.ChapterEntities) types.EntityIndex {
	chapters := make([]int, 0, len(extractions))
	for ch := range extractions {
		chapters = append(chapters, ch)
	}
	sort.Ints(chapters)

	vocab := s.resolver.Vocabulary()
	aggregate := make(map[string]*bucketSet)
	var categoryOrder []string

	for _, ch := range chapters {
		for _, category := range s.chapterCategories(extractions[ch]) {
			names := s.prepareNames(category.name, category.names, vocab)
			if len(names) == 0 {
				continue
			}
			set, ok := aggregate[category.name]
			if !ok {
				set = newBucketSet()
				aggregate[category.name] = set
				categoryOrder = append(categoryOrder, category.name)
			}
			for _, name := range s.dedupeChapter(names) {
				s.fold(set, name, ch)
			}
		}
	}

	out := make(types.EntityIndex, len(aggregate))
	for _, category := range categoryOrder {
		set := aggregate[category]
		entities := make(map[string][]int, len(set.keys))
		for _, k := range set.keys {
			chs := append([]int(nil), set.chapters[k]...)
			sort.Ints(chs)
			entities[k] = chs
		}
		out[category] = entities
	}
	return out
}

type categoryNames struct {
	name  string
	names []string
}

// chapterCategories applies narrator substitution to category names and
// concatenates categories that collide as a result.
func (s *Sorter) chapterCategories(raw types.ChapterEntities) []categoryNames {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []categoryNames
	index := make(map[string]int)
	for _, k := range keys {
		name := strings.TrimSpace(s.resolver.Vocabulary().SubstituteNarrator(k, s.narrator))
		if name == "" {
			continue
		}
		if i, ok := index[name]; ok {
			out[i].names = append(out[i].names, raw[k]...)
			continue
		}
		index[name] = len(out)
		out = append(out, categoryNames{name: name, names: append([]string(nil), raw[k]...)})
	}
	return out
}

func (s *Sorter) prepareNames(category string, raw []string, vocab *Vocabulary) []string {
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = vocab.SubstituteNarrator(strings.TrimSpace(name), s.narrator)
		name = vocab.CanonicalName(category, name)
		if name == "" || vocab.IsPlaceholder(name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

// dedupeChapter greedily merges a chapter's own names: each name joins the
// first similar canonical name, or starts a new one.
func (s *Sorter) dedupeChapter(names []string) []string {
	var canon []string
	for _, name := range names {
		matched := false
		for i, c := range canon {
			if s.resolver.IsSimilar(c, name) {
				canon[i], _ = s.resolver.Prioritize(c, name)
				matched = true
				break
			}
		}
		if !matched {
			canon = append(canon, name)
		}
	}
	return canon
}

func (s *Sorter) fold(set *bucketSet, name string, chapter int) {
	for _, key := range set.keys {
		if !s.resolver.IsSimilar(key, name) {
			continue
		}
		keep, _ := s.resolver.Prioritize(key, name)
		if keep != key {
			set.rename(key, keep)
		}
		set.chapters[keep] = mergeChapters(set.chapters[keep], []int{chapter})
		return
	}
	set.keys = append(set.keys, name)
	set.chapters[name] = []int{chapter}
}

func mergeChapters(a, b []int) []int {
	out := append([]int(nil), a...)
	for _, ch := range b {
		found := false
		for _, existing := range out {
			if existing == ch {
				found = true
				break
			}
		}
		if !found {
			out = append(out, ch)
		}
	}
	return out
}
