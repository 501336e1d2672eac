package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/pkg/types"
)

func TestChapters(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		contents []string
	}{
		{"delimited", "Chapter 1\nSome text.\n***\nChapter 2\nMore text.", []string{"Chapter 1\nSome text.", "Chapter 2\nMore text."}},
		{"no delimiter", "Just a short story.", []string{"Just a short story."}},
		{"blank parts dropped", "Chapter 1\n***\n   \n***\nChapter 2", []string{"Chapter 1", "Chapter 2"}},
		{"empty", "  \n ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chapters := Chapters(tt.text)
			require.Len(t, chapters, len(tt.contents))
			for i, ch := range chapters {
				assert.Equal(t, i+1, ch.Number)
				assert.Equal(t, tt.contents[i], ch.Content)
			}
		})
	}
}

func TestChapterTitles(t *testing.T) {
	chapters := Chapters("A\n***\nB\n***\nC")
	require.Len(t, chapters, 3)
	assert.Equal(t, "Chapter 3", chapters[2].Title)
}

func TestParse(t *testing.T) {
	book, err := Parse("Chapter 1\nText.\n***\nChapter 2\nEnd.", "my_book", "")
	require.NoError(t, err)
	assert.Equal(t, "my_book", book.Title)
	assert.Equal(t, UnknownAuthor, book.Author)
	assert.Len(t, book.Chapters, 2)
	assert.NoError(t, book.Validate())
}

func TestParse_FrontMatter(t *testing.T) {
	text := "---\ntitle: Dusk\nauthor: A. Writer\n---\nOne.\n***\nTwo."

	book, err := Parse(text, "", "")
	require.NoError(t, err)
	assert.Equal(t, "Dusk", book.Title)
	assert.Equal(t, "A. Writer", book.Author)
	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "One.", book.Chapters[0].Content)

	book, err = Parse(text, "Override", "")
	require.NoError(t, err)
	assert.Equal(t, "Override", book.Title)
	assert.Equal(t, "A. Writer", book.Author)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("***\n***", "t", "a")
	assert.ErrorIs(t, err, types.ErrInvalidBook)

	_, err = Parse("---\ntitle: [unclosed\n---\nbody", "", "")
	assert.Error(t, err)
}

func TestParse_UnclosedFrontMatterIsBody(t *testing.T) {
	book, err := Parse("---\njust a rule\nand text", "t", "")
	require.NoError(t, err)
	require.Len(t, book.Chapters, 1)
	assert.Contains(t, book.Chapters[0].Content, "just a rule")
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moby_dick.txt")
	require.NoError(t, os.WriteFile(path, []byte("Call me Ishmael.\n***\nThe whale."), 0o644))

	book, err := ReadFile(path, "", "Melville")
	require.NoError(t, err)
	assert.Equal(t, "moby dick", book.Title)
	assert.Equal(t, "Melville", book.Author)
	assert.Len(t, book.Chapters, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"), "", "")
	assert.Error(t, err)
}
