// Package sqlcache implements storage.Cache over database/sql. The sqlite
// and postgres packages open the connection and apply their schema; the
// queries here are shared and written with "?" placeholders that are
// rebound for the target dialect.
package sqlcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Dialect selects placeholder syntax.
type Dialect int

const (
	// SQLite uses "?" placeholders.
	SQLite Dialect = iota
	// Postgres uses "$n" placeholders.
	Postgres
)

// Cache implements storage.Cache for one workspace.
type Cache struct {
	db        *sql.DB
	dialect   Dialect
	workspace string
	name      string
}

var _ storage.Cache = (*Cache)(nil)

// New wraps db. The cache owns db and closes it on Close.
func New(db *sql.DB, dialect Dialect, workspace string) *Cache {
	name := "sqlite"
	if dialect == Postgres {
		name = "postgres"
	}
	return &Cache{db: db, dialect: dialect, workspace: workspace, name: name}
}

// DB returns the underlying connection pool.
func (c *Cache) DB() *sql.DB { return c.db }

// Workspace returns the workspace the cache is scoped to.
func (c *Cache) Workspace() string { return c.workspace }

// Close closes the database.
func (c *Cache) Close() error { return c.db.Close() }

func (c *Cache) rebind(query string) string {
	if c.dialect != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (c *Cache) exists(ctx context.Context, query string, args ...interface{}) (bool, error) {
	var one int
	err := c.db.QueryRowContext(ctx, c.rebind(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%s: exists query failed: %w", c.name, err)
	}
	return true, nil
}

func (c *Cache) load(ctx context.Context, query string, args ...interface{}) (string, error) {
	var data string
	err := c.db.QueryRowContext(ctx, c.rebind(query), args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%s: load query failed: %w", c.name, err)
	}
	return data, nil
}

func (c *Cache) exec(ctx context.Context, query string, args ...interface{}) error {
	if _, err := c.db.ExecContext(ctx, c.rebind(query), args...); err != nil {
		return fmt.Errorf("%s: write failed: %w", c.name, err)
	}
	return nil
}

// ExtractionExists reports whether chapter has a cached extraction.
func (c *Cache) ExtractionExists(ctx context.Context, chapter int) (bool, error) {
	return c.exists(ctx, `SELECT 1 FROM extractions WHERE workspace = ? AND chapter = ?`, c.workspace, chapter)
}

// SaveExtraction stores the extraction for chapter.
func (c *Cache) SaveExtraction(ctx context.Context, chapter int, entities types.ChapterEntities) error {
	if err := storage.ValidateChapter(chapter); err != nil {
		return err
	}
	data, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("%s: failed to encode extraction: %w", c.name, err)
	}
	return c.exec(ctx, `
		INSERT INTO extractions (workspace, chapter, data)
		VALUES (?, ?, ?)
		ON CONFLICT (workspace, chapter) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, c.workspace, chapter, string(data))
}

// LoadExtraction returns the cached extraction or storage.ErrNotFound.
func (c *Cache) LoadExtraction(ctx context.Context, chapter int) (types.ChapterEntities, error) {
	data, err := c.load(ctx, `SELECT data FROM extractions WHERE workspace = ? AND chapter = ?`, c.workspace, chapter)
	if err != nil {
		return nil, fmt.Errorf("extraction for chapter %d: %w", chapter, err)
	}
	var out types.ChapterEntities
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("%s: failed to decode extraction: %w", c.name, err)
	}
	return out, nil
}

// ProfileExists reports whether a profile is cached for the key.
func (c *Cache) ProfileExists(ctx context.Context, chapter int, category, name string) (bool, error) {
	return c.exists(ctx, `
		SELECT 1 FROM profiles
		WHERE workspace = ? AND chapter = ? AND category = ? AND name = ?
	`, c.workspace, chapter, category, name)
}

// SaveProfile stores p under its chapter, category and name.
func (c *Cache) SaveProfile(ctx context.Context, p types.EntityProfile) error {
	if err := storage.ValidateEntityKey(p.ChapterNumber, p.Category, p.Name); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("%s: failed to encode profile: %w", c.name, err)
	}
	return c.exec(ctx, `
		INSERT INTO profiles (workspace, chapter, category, name, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (workspace, chapter, category, name) DO UPDATE SET
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, c.workspace, p.ChapterNumber, p.Category, p.Name, string(data))
}

// LoadProfile returns the cached profile or storage.ErrNotFound.
func (c *Cache) LoadProfile(ctx context.Context, chapter int, category, name string) (*types.EntityProfile, error) {
	data, err := c.load(ctx, `
		SELECT data FROM profiles
		WHERE workspace = ? AND chapter = ? AND category = ? AND name = ?
	`, c.workspace, chapter, category, name)
	if err != nil {
		return nil, fmt.Errorf("profile %s/%s in chapter %d: %w", category, name, chapter, err)
	}
	var p types.EntityProfile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("%s: failed to decode profile: %w", c.name, err)
	}
	return &p, nil
}

// SummaryExists reports whether a summary is cached for the key.
func (c *Cache) SummaryExists(ctx context.Context, category, name string) (bool, error) {
	return c.exists(ctx, `SELECT 1 FROM summaries WHERE workspace = ? AND category = ? AND name = ?`,
		c.workspace, category, name)
}

// SaveSummary stores summary under (category, name).
func (c *Cache) SaveSummary(ctx context.Context, category, name, summary string) error {
	if err := storage.ValidateEntityKey(1, category, name); err != nil {
		return err
	}
	return c.exec(ctx, `
		INSERT INTO summaries (workspace, category, name, summary)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (workspace, category, name) DO UPDATE SET
			summary = excluded.summary,
			updated_at = CURRENT_TIMESTAMP
	`, c.workspace, category, name, summary)
}

// LoadSummary returns the cached summary or storage.ErrNotFound.
func (c *Cache) LoadSummary(ctx context.Context, category, name string) (string, error) {
	s, err := c.load(ctx, `SELECT summary FROM summaries WHERE workspace = ? AND category = ? AND name = ?`,
		c.workspace, category, name)
	if err != nil {
		return "", fmt.Errorf("summary %s/%s: %w", category, name, err)
	}
	return s, nil
}
