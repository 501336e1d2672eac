// Package types defines the core data structures for LoreBinders.
// A Book is split into Chapters, analysis produces EntityProfiles, and
// profiles are folded into a Binder: category -> entity -> chapter -> traits.
package types

import (
	"errors"
	"fmt"
)

// Default category names. Cleaning applies category specific name rules to these.
const (
	CategoryCharacters = "Characters"
	CategoryLocations  = "Locations"
)

// ErrInvalidBook is returned by Book.Validate for malformed input.
var ErrInvalidBook = errors.New("invalid book")

// Chapter is one numbered unit of book content. Immutable once ingested.
type Chapter struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Book is the ingested document. Chapter numbers are unique but need not be
// contiguous.
type Book struct {
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	Chapters []Chapter `json:"chapters"`
}

// Validate checks that every chapter number is >= 1 and unique.
func (b *Book) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil book", ErrInvalidBook)
	}
	seen := make(map[int]struct{}, len(b.Chapters))
	for _, ch := range b.Chapters {
		if ch.Number < 1 {
			return fmt.Errorf("%w: chapter number %d must be >= 1", ErrInvalidBook, ch.Number)
		}
		if _, dup := seen[ch.Number]; dup {
			return fmt.Errorf("%w: duplicate chapter number %d", ErrInvalidBook, ch.Number)
		}
		seen[ch.Number] = struct{}{}
	}
	return nil
}

// ChapterEntities is one chapter's extraction output: category -> entity names.
type ChapterEntities map[string][]string

// EntityIndex is the sorter output: category -> canonical name -> ascending
// chapter numbers.
type EntityIndex map[string]map[string][]int

// CategoryTarget is a transient unit of analysis work for one chapter.
type CategoryTarget struct {
	Category string   `json:"category"`
	Entities []string `json:"entities"`
	Traits   []string `json:"traits,omitempty"`
}

// EntityProfile is a single analysis result for one entity in one chapter.
type EntityProfile struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	ChapterNumber int     `json:"chapter_number"`
	Traits        Traits  `json:"traits"`
	Confidence    float64 `json:"confidence"`
}

// NarratorConfig tells extraction how to treat the narrator.
type NarratorConfig struct {
	Name        string `json:"name,omitempty"`
	ThirdPerson bool   `json:"third_person,omitempty"`
}
