// Package backup snapshots, verifies and restores the SQLite cache so a long
// pipeline run can be preserved before configuration changes invalidate it.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	filePrefix = "lorebinders-"
	fileSuffix = ".db"
	stampFmt   = "20060102-150405.000000000"
)

// Info describes one snapshot file.
type Info struct {
	Path    string
	Created time.Time
	Size    int64
}

// Snapshot writes a consistent copy of the database at dbPath into dir and
// verifies it. The file name carries the creation time so names sort
// chronologically.
func Snapshot(ctx context.Context, dbPath, dir string, now time.Time) (Info, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return Info{}, fmt.Errorf("backup: source database: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Info{}, fmt.Errorf("backup: failed to create backup directory: %w", err)
	}

	created := now.UTC()
	dest := filepath.Join(dir, filePrefix+created.Format(stampFmt)+fileSuffix)

	src, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", dbPath))
	if err != nil {
		return Info{}, fmt.Errorf("backup: failed to open source database: %w", err)
	}
	defer func() { _ = src.Close() }()

	// VACUUM INTO reads a consistent snapshot even with a live WAL.
	quoted := strings.ReplaceAll(dest, "'", "''")
	if _, err := src.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", quoted)); err != nil {
		return Info{}, fmt.Errorf("backup: failed to snapshot database: %w", err)
	}

	if err := Verify(ctx, dest); err != nil {
		_ = os.Remove(dest)
		return Info{}, err
	}

	st, err := os.Stat(dest)
	if err != nil {
		return Info{}, fmt.Errorf("backup: %w", err)
	}
	return Info{Path: dest, Created: created, Size: st.Size()}, nil
}

// Verify runs SQLite's integrity check against the file at path.
func Verify(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return fmt.Errorf("backup: failed to open %s: %w", path, err)
	}
	defer func() { _ = db.Close() }()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("backup: integrity check on %s: %w", path, err)
	}
	if result != "ok" {
		return fmt.Errorf("backup: integrity check on %s failed: %s", path, result)
	}
	return nil
}

// Restore verifies the snapshot and copies it over targetPath. Nothing may
// hold targetPath open while it runs.
func Restore(ctx context.Context, snapshotPath, targetPath string) error {
	if err := Verify(ctx, snapshotPath); err != nil {
		return err
	}

	src, err := os.Open(snapshotPath)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(targetPath)
	if err != nil {
		return fmt.Errorf("backup: failed to create target: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("backup: failed to copy snapshot: %w", err)
	}
	if err := dst.Sync(); err != nil {
		_ = dst.Close()
		return fmt.Errorf("backup: failed to sync target: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	// A WAL left from the replaced database would be replayed over the
	// restored pages.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(targetPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("backup: failed to remove %s: %w", targetPath+suffix, err)
		}
	}
	return Verify(ctx, targetPath)
}

// List returns the snapshots in dir, newest first. A missing directory has
// no snapshots.
func List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: failed to read backup directory: %w", err)
	}

	var snapshots []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		created, err := time.Parse(stampFmt, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		if err != nil {
			continue
		}
		st, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Info{Path: filepath.Join(dir, name), Created: created, Size: st.Size()})
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Created.After(snapshots[j].Created)
	})
	return snapshots, nil
}

// Prune deletes all but the keep newest snapshots and returns the removed
// paths.
func Prune(dir string, keep int) ([]string, error) {
	if keep < 0 {
		keep = 0
	}
	snapshots, err := List(dir)
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var removed []string
	var lastErr error
	for _, s := range snapshots[keep:] {
		if err := os.Remove(s.Path); err != nil {
			lastErr = err
			continue
		}
		removed = append(removed, s.Path)
	}
	if lastErr != nil {
		return removed, fmt.Errorf("backup: failed to delete some snapshots: %w", lastErr)
	}
	return removed, nil
}
