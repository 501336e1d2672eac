// Package report writes resolved binders for downstream rendering.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/scrypster/lorebinders/pkg/types"
)

// Document is the JSON shape written by JSONReporter.
type Document struct {
	Title       string        `json:"title"`
	Author      string        `json:"author,omitempty"`
	Chapters    int           `json:"chapters"`
	GeneratedAt time.Time     `json:"generated_at"`
	Binder      *types.Binder `json:"binder"`
}

// JSONReporter writes the binder as indented JSON, either to Writer or to a
// file at Path. Path wins when both are set.
type JSONReporter struct {
	Path   string
	Writer io.Writer

	// Now stamps GeneratedAt; nil uses time.Now.
	Now func() time.Time
}

// Report writes book's binder.
func (r *JSONReporter) Report(_ context.Context, book *types.Book, binder *types.Binder) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	doc := Document{
		Title:       book.Title,
		Author:      book.Author,
		Chapters:    len(book.Chapters),
		GeneratedAt: now().UTC(),
		Binder:      binder,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("report: marshal binder: %w", err)
	}
	data = append(data, '\n')

	if r.Path == "" {
		w := r.Writer
		if w == nil {
			w = os.Stdout
		}
		_, err := w.Write(data)
		return err
	}
	return writeFileAtomic(r.Path, data)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".binder-*.json")
	if err != nil {
		return fmt.Errorf("report: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("report: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return nil
}
