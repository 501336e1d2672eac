// Package memory provides an in-process storage.Cache. Nothing survives the
// process, so it suits tests and one-off runs.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Store holds cached values for any number of workspaces.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Workspace returns a cache scoped to workspace.
func (s *Store) Workspace(workspace string) *Cache {
	return &Cache{store: s, workspace: workspace}
}

// Len returns the number of cached entries across all workspaces.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func (s *Store) get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *Store) put(key string, value []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Cache implements storage.Cache on top of a Store. Values are stored
// serialized so callers never share memory with the cache.
type Cache struct {
	store     *Store
	workspace string
}

var _ storage.Cache = (*Cache)(nil)

func (c *Cache) key(parts ...string) string {
	return c.workspace + "\x00" + strings.Join(parts, "\x00")
}

func (c *Cache) extractionKey(chapter int) string {
	return c.key("extraction", strconv.Itoa(chapter))
}

func (c *Cache) profileKey(chapter int, category, name string) string {
	return c.key("profile", strconv.Itoa(chapter), category, name)
}

func (c *Cache) summaryKey(category, name string) string {
	return c.key("summary", category, name)
}

// Workspace returns the workspace the cache is scoped to.
func (c *Cache) Workspace() string { return c.workspace }

// ExtractionExists reports whether chapter has a cached extraction.
func (c *Cache) ExtractionExists(_ context.Context, chapter int) (bool, error) {
	_, ok := c.store.get(c.extractionKey(chapter))
	return ok, nil
}

// SaveExtraction stores the extraction for chapter.
func (c *Cache) SaveExtraction(_ context.Context, chapter int, entities types.ChapterEntities) error {
	if err := storage.ValidateChapter(chapter); err != nil {
		return err
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("memory: failed to encode extraction: %w", err)
	}
	c.store.put(c.extractionKey(chapter), data)
	return nil
}

// LoadExtraction returns the cached extraction or storage.ErrNotFound.
func (c *Cache) LoadExtraction(_ context.Context, chapter int) (types.ChapterEntities, error) {
	data, ok := c.store.get(c.extractionKey(chapter))
	if !ok {
		return nil, fmt.Errorf("%w: extraction for chapter %d", storage.ErrNotFound, chapter)
	}
	var out types.ChapterEntities
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("memory: failed to decode extraction: %w", err)
	}
	return out, nil
}

// ProfileExists reports whether a profile is cached for the key.
func (c *Cache) ProfileExists(_ context.Context, chapter int, category, name string) (bool, error) {
	_, ok := c.store.get(c.profileKey(chapter, category, name))
	return ok, nil
}

// SaveProfile stores p under its chapter, category and name.
func (c *Cache) SaveProfile(_ context.Context, p types.EntityProfile) error {
	if err := storage.ValidateEntityKey(p.ChapterNumber, p.Category, p.Name); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("memory: failed to encode profile: %w", err)
	}
	c.store.put(c.profileKey(p.ChapterNumber, p.Category, p.Name), data)
	return nil
}

// LoadProfile returns the cached profile or storage.ErrNotFound.
func (c *Cache) LoadProfile(_ context.Context, chapter int, category, name string) (*types.EntityProfile, error) {
	data, ok := c.store.get(c.profileKey(chapter, category, name))
	if !ok {
		return nil, fmt.Errorf("%w: profile %s/%s in chapter %d", storage.ErrNotFound, category, name, chapter)
	}
	var p types.EntityProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("memory: failed to decode profile: %w", err)
	}
	return &p, nil
}

// SummaryExists reports whether a summary is cached for the key.
func (c *Cache) SummaryExists(_ context.Context, category, name string) (bool, error) {
	_, ok := c.store.get(c.summaryKey(category, name))
	return ok, nil
}

// SaveSummary stores summary under (category, name).
func (c *Cache) SaveSummary(_ context.Context, category, name, summary string) error {
	if err := storage.ValidateEntityKey(1, category, name); err != nil {
		return err
	}
	c.store.put(c.summaryKey(category, name), []byte(summary))
	return nil
}

// LoadSummary returns the cached summary or storage.ErrNotFound.
func (c *Cache) LoadSummary(_ context.Context, category, name string) (string, error) {
	data, ok := c.store.get(c.summaryKey(category, name))
	if !ok {
		return "", fmt.Errorf("%w: summary %s/%s", storage.ErrNotFound, category, name)
	}
	return string(data), nil
}

// Close is a no-op; the data lives as long as the Store.
func (c *Cache) Close() error { return nil }
