// Package ingest turns a plain-text manuscript into a Book. Chapters are
// separated by a line containing "***"; an optional YAML front matter block
// may name the title and author.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/lorebinders/pkg/types"
)

// ChapterDelimiter separates chapters in a manuscript.
const ChapterDelimiter = "***"

// UnknownAuthor is used when neither the caller nor the front matter names one.
const UnknownAuthor = "Unknown"

// Metadata is the optional front matter of a manuscript.
type Metadata struct {
	Title  string `yaml:"title"`
	Author string `yaml:"author"`
}

// Chapters splits text on ChapterDelimiter, drops blank parts and numbers the
// rest from 1. Text without a delimiter becomes a single chapter.
func Chapters(text string) []types.Chapter {
	var chapters []types.Chapter
	for _, part := range strings.Split(text, ChapterDelimiter) {
		content := strings.TrimSpace(part)
		if content == "" {
			continue
		}
		n := len(chapters) + 1
		chapters = append(chapters, types.Chapter{
			Number:  n,
			Title:   fmt.Sprintf("Chapter %d", n),
			Content: content,
		})
	}
	return chapters
}

// Parse builds a Book from manuscript text. Non-empty title and author
// arguments win over front matter.
func Parse(text, title, author string) (*types.Book, error) {
	meta, body, err := splitFrontMatter(text)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = meta.Title
	}
	if author == "" {
		author = meta.Author
	}
	if author == "" {
		author = UnknownAuthor
	}

	book := &types.Book{Title: title, Author: author, Chapters: Chapters(body)}
	if len(book.Chapters) == 0 {
		return nil, fmt.Errorf("%w: no chapter text", types.ErrInvalidBook)
	}
	return book, nil
}

// ReadFile parses the manuscript at path. The title falls back to the file
// name without extension.
func ReadFile(path, title, author string) (*types.Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: %w", err)
	}
	book, err := Parse(string(data), title, author)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	if book.Title == "" {
		book.Title = titleFromPath(path)
	}
	return book, nil
}

// splitFrontMatter separates a leading "---" delimited YAML block from the
// body. Text without a complete block is returned unchanged.
func splitFrontMatter(text string) (Metadata, string, error) {
	var meta Metadata
	trimmed := strings.TrimPrefix(text, "\ufeff")
	if !strings.HasPrefix(trimmed, "---\n") && !strings.HasPrefix(trimmed, "---\r\n") {
		return meta, text, nil
	}

	lines := strings.SplitAfter(trimmed, "\n")
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) != "---" {
			continue
		}
		block := strings.Join(lines[1:i], "")
		if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
			return Metadata{}, "", fmt.Errorf("ingest: front matter: %w", err)
		}
		meta.Title = strings.TrimSpace(meta.Title)
		meta.Author = strings.TrimSpace(meta.Author)
		return meta, strings.Join(lines[i+1:], ""), nil
	}
	return meta, text, nil
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}
