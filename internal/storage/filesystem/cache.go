// Package filesystem provides a storage.Cache that keeps one JSON file per
// key under a root directory:
//
//	<root>/<workspace>/extractions/chapter_<n>.json
//	<root>/<workspace>/profiles/chapter_<n>/<category>/<name>.json
//	<root>/<workspace>/summaries/<category>/<name>.json
//
// Files are written to a temporary name and renamed into place, so readers
// never observe a partial entry.
package filesystem

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Cache implements storage.Cache on the local filesystem.
type Cache struct {
	dir       string
	workspace string
}

var _ storage.Cache = (*Cache)(nil)

type summaryFile struct {
	Category string `json:"category"`
	Name     string `json:"name"`
	Summary  string `json:"summary"`
}

// New opens (creating if needed) the cache directory for workspace under root.
func New(root, workspace string) (*Cache, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root directory is required", storage.ErrInvalidInput)
	}
	dir := filepath.Join(root, workspacePath(workspace))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("filesystem: failed to create cache directory %q: %w", dir, err)
	}
	return &Cache{dir: dir, workspace: workspace}, nil
}

func workspacePath(workspace string) string {
	var parts []string
	for _, seg := range strings.Split(workspace, "/") {
		if seg = storage.SanitizeFilename(seg); seg != "" && seg != "_" {
			parts = append(parts, seg)
		}
	}
	if len(parts) == 0 {
		return "default"
	}
	return filepath.Join(parts...)
}

// Dir returns the workspace directory.
func (c *Cache) Dir() string { return c.dir }

// Workspace returns the workspace the cache is scoped to.
func (c *Cache) Workspace() string { return c.workspace }

func (c *Cache) extractionPath(chapter int) string {
	return filepath.Join(c.dir, "extractions", fmt.Sprintf("chapter_%d.json", chapter))
}

func (c *Cache) profilePath(chapter int, category, name string) string {
	return filepath.Join(c.dir, "profiles", fmt.Sprintf("chapter_%d", chapter),
		storage.KeyFilename(category), storage.KeyFilename(name)+".json")
}

func (c *Cache) summaryPath(category, name string) string {
	return filepath.Join(c.dir, "summaries", storage.KeyFilename(category), storage.KeyFilename(name)+".json")
}

// ExtractionExists reports whether chapter has a cached extraction.
func (c *Cache) ExtractionExists(_ context.Context, chapter int) (bool, error) {
	return exists(c.extractionPath(chapter))
}

// SaveExtraction stores the extraction for chapter.
func (c *Cache) SaveExtraction(_ context.Context, chapter int, entities types.ChapterEntities) error {
	if err := storage.ValidateChapter(chapter); err != nil {
		return err
	}
	return writeJSON(c.extractionPath(chapter), entities)
}

// LoadExtraction returns the cached extraction or storage.ErrNotFound.
func (c *Cache) LoadExtraction(_ context.Context, chapter int) (types.ChapterEntities, error) {
	var out types.ChapterEntities
	if err := readJSON(c.extractionPath(chapter), &out); err != nil {
		return nil, fmt.Errorf("extraction for chapter %d: %w", chapter, err)
	}
	return out, nil
}

// ProfileExists reports whether a profile is cached for the key.
func (c *Cache) ProfileExists(_ context.Context, chapter int, category, name string) (bool, error) {
	return exists(c.profilePath(chapter, category, name))
}

// SaveProfile stores p under its chapter, category and name.
func (c *Cache) SaveProfile(_ context.Context, p types.EntityProfile) error {
	if err := storage.ValidateEntityKey(p.ChapterNumber, p.Category, p.Name); err != nil {
		return err
	}
	return writeJSON(c.profilePath(p.ChapterNumber, p.Category, p.Name), p)
}

// LoadProfile returns the cached profile or storage.ErrNotFound.
func (c *Cache) LoadProfile(_ context.Context, chapter int, category, name string) (*types.EntityProfile, error) {
	var p types.EntityProfile
	if err := readJSON(c.profilePath(chapter, category, name), &p); err != nil {
		return nil, fmt.Errorf("profile %s/%s in chapter %d: %w", category, name, chapter, err)
	}
	return &p, nil
}

// SummaryExists reports whether a summary is cached for the key.
func (c *Cache) SummaryExists(_ context.Context, category, name string) (bool, error) {
	return exists(c.summaryPath(category, name))
}

// SaveSummary stores summary under (category, name).
func (c *Cache) SaveSummary(_ context.Context, category, name, summary string) error {
	if err := storage.ValidateEntityKey(1, category, name); err != nil {
		return err
	}
	return writeJSON(c.summaryPath(category, name), summaryFile{Category: category, Name: name, Summary: summary})
}

// LoadSummary returns the cached summary or storage.ErrNotFound.
func (c *Cache) LoadSummary(_ context.Context, category, name string) (string, error) {
	var s summaryFile
	if err := readJSON(c.summaryPath(category, name), &s); err != nil {
		return "", fmt.Errorf("summary %s/%s: %w", category, name, err)
	}
	return s.Summary, nil
}

// Close is a no-op; files are closed after every operation.
func (c *Cache) Close() error { return nil }

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("filesystem: failed to stat %q: %w", path, err)
	}
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("filesystem: failed to read %q: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("filesystem: failed to decode %q: %w", path, err)
	}
	return nil
}

// writeJSON writes v to a temporary file in the target directory and renames
// it over path.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("filesystem: failed to encode %q: %w", path, err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("filesystem: failed to create %q: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("filesystem: failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("filesystem: failed to write %q: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("filesystem: failed to sync %q: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("filesystem: failed to close %q: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("filesystem: failed to rename into %q: %w", path, err)
	}
	return nil
}
