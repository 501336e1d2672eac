// Package storage defines the cache contract the pipeline uses to make runs
// resumable.
//
// Three key spaces are cached: chapter extractions keyed by chapter number,
// entity profiles keyed by (chapter, category, name), and summaries keyed by
// (category, name). Every backend scopes its keys by a workspace so several
// books can share one medium. Writes of a single key are atomic; writes to
// distinct keys may run concurrently.
package storage

import (
	"context"

	"github.com/scrypster/lorebinders/pkg/types"
)

// ExtractionCache stores per-chapter extraction results.
type ExtractionCache interface {
	// ExtractionExists reports whether chapter has a cached extraction.
	ExtractionExists(ctx context.Context, chapter int) (bool, error)

	// SaveExtraction stores the extraction for chapter, replacing any previous value.
	SaveExtraction(ctx context.Context, chapter int, entities types.ChapterEntities) error

	// LoadExtraction returns the cached extraction.
	// Returns ErrNotFound if nothing is cached for chapter.
	LoadExtraction(ctx context.Context, chapter int) (types.ChapterEntities, error)
}

// ProfileCache stores per-entity analysis results.
type ProfileCache interface {
	// ProfileExists reports whether a profile is cached for the key.
	ProfileExists(ctx context.Context, chapter int, category, name string) (bool, error)

	// SaveProfile stores p under (p.ChapterNumber, p.Category, p.Name).
	SaveProfile(ctx context.Context, p types.EntityProfile) error

	// LoadProfile returns the cached profile.
	// Returns ErrNotFound if nothing is cached for the key.
	LoadProfile(ctx context.Context, chapter int, category, name string) (*types.EntityProfile, error)
}

// SummaryCache stores per-entity summaries.
type SummaryCache interface {
	// SummaryExists reports whether a summary is cached for the key.
	SummaryExists(ctx context.Context, category, name string) (bool, error)

	// SaveSummary stores summary under (category, name).
	SaveSummary(ctx context.Context, category, name, summary string) error

	// LoadSummary returns the cached summary.
	// Returns ErrNotFound if nothing is cached for the key.
	LoadSummary(ctx context.Context, category, name string) (string, error)
}

// Cache is the full contract a backend implements for one workspace.
type Cache interface {
	ExtractionCache
	ProfileCache
	SummaryCache

	// Workspace returns the workspace the cache is scoped to.
	Workspace() string

	// Close releases the backend's resources.
	Close() error
}
