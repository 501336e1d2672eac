package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrNotFound indicates that the requested key is not cached.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the key or value is invalid.
	ErrInvalidInput = errors.New("invalid input")
)

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9\-]+`)

// SanitizeFilename replaces every run of characters outside [A-Za-z0-9-]
// with a single underscore.
func SanitizeFilename(name string) string {
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// WorkspaceID derives the workspace for a book from its author and title,
// e.g. "Jane Austen", "Pride & Prejudice" -> "Jane_Austen/Pride_Prejudice".
func WorkspaceID(author, title string) string {
	a := strings.Trim(SanitizeFilename(strings.TrimSpace(author)), "_")
	t := strings.Trim(SanitizeFilename(strings.TrimSpace(title)), "_")
	if a == "" {
		a = "unknown"
	}
	if t == "" {
		t = "untitled"
	}
	return a + "/" + t
}

// KeyFilename returns a filesystem safe name for an arbitrary key. The
// sanitized prefix keeps files readable and the hash suffix keeps keys that
// sanitize identically ("A B", "A_B") distinct.
func KeyFilename(key string) string {
	sum := sha256.Sum256([]byte(key))
	prefix := SanitizeFilename(key)
	if len(prefix) > 64 {
		prefix = prefix[:64]
	}
	return prefix + "-" + hex.EncodeToString(sum[:4])
}

// ValidateEntityKey rejects empty categories or names and non-positive
// chapter numbers. Pass chapter 1 when the key has no chapter.
func ValidateEntityKey(chapter int, category, name string) error {
	if chapter < 1 {
		return fmt.Errorf("%w: chapter must be >= 1, got %d", ErrInvalidInput, chapter)
	}
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidInput)
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

// ValidateChapter rejects non-positive chapter numbers.
func ValidateChapter(chapter int) error {
	if chapter < 1 {
		return fmt.Errorf("%w: chapter must be >= 1, got %d", ErrInvalidInput, chapter)
	}
	return nil
}
