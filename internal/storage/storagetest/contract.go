// Package storagetest provides a shared test suite for storage.Cache
// backends.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/internal/storage"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Factory opens a cache for the given workspace. Caches opened by the same
// factory for the same workspace must share data.
type Factory func(t *testing.T, workspace string) storage.Cache

// RunCacheContract runs the cache contract against a backend.
func RunCacheContract(t *testing.T, open Factory) {
	t.Run("extraction round trip", func(t *testing.T) { testExtraction(t, open) })
	t.Run("profile round trip", func(t *testing.T) { testProfile(t, open) })
	t.Run("summary round trip", func(t *testing.T) { testSummary(t, open) })
	t.Run("missing keys", func(t *testing.T) { testMissing(t, open) })
	t.Run("invalid keys", func(t *testing.T) { testInvalid(t, open) })
	t.Run("workspace isolation", func(t *testing.T) { testIsolation(t, open) })
	t.Run("concurrent distinct keys", func(t *testing.T) { testConcurrent(t, open) })
}

func testExtraction(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/extraction")

	ok, err := c.ExtractionExists(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	in := types.ChapterEntities{"Characters": {"Alice", "Bob"}, "Locations": {"Night"}}
	require.NoError(t, c.SaveExtraction(ctx, 1, in))

	ok, err = c.ExtractionExists(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := c.LoadExtraction(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	// overwrite
	in2 := types.ChapterEntities{"Characters": {"Carol"}}
	require.NoError(t, c.SaveExtraction(ctx, 1, in2))
	got, err = c.LoadExtraction(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, in2, got)
}

func testProfile(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/profile")

	p := types.EntityProfile{
		Name:          "Kitchen (Interior)",
		Category:      "Locations",
		ChapterNumber: 3,
		Traits: types.Traits{
			"Key Features": types.List("Stove", "Sink"),
			"Mood":         types.Scalar("Warm"),
		},
		Confidence: 0.9,
	}
	require.NoError(t, c.SaveProfile(ctx, p))

	ok, err := c.ProfileExists(ctx, 3, "Locations", "Kitchen (Interior)")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.ProfileExists(ctx, 4, "Locations", "Kitchen (Interior)")
	require.NoError(t, err)
	assert.False(t, ok)

	got, err := c.LoadProfile(ctx, 3, "Locations", "Kitchen (Interior)")
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, p.Category, got.Category)
	assert.Equal(t, p.ChapterNumber, got.ChapterNumber)
	assert.InDelta(t, p.Confidence, got.Confidence, 1e-9)
	require.Len(t, got.Traits, 2)
	assert.True(t, p.Traits["Key Features"].Equal(got.Traits["Key Features"]))
	assert.True(t, p.Traits["Mood"].Equal(got.Traits["Mood"]))

	// empty profiles are valid cache entries
	empty := types.EntityProfile{Name: "Ghost", Category: "Characters", ChapterNumber: 3, Traits: types.Traits{}}
	require.NoError(t, c.SaveProfile(ctx, empty))
	got, err = c.LoadProfile(ctx, 3, "Characters", "Ghost")
	require.NoError(t, err)
	assert.Empty(t, got.Traits)
}

func testSummary(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/summary")

	require.NoError(t, c.SaveSummary(ctx, "Characters", "Alice", "A curious girl."))
	ok, err := c.SummaryExists(ctx, "Characters", "Alice")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := c.LoadSummary(ctx, "Characters", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "A curious girl.", got)

	ok, err = c.SummaryExists(ctx, "Locations", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testMissing(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/missing")

	_, err := c.LoadExtraction(ctx, 9)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = c.LoadProfile(ctx, 9, "Characters", "Nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = c.LoadSummary(ctx, "Characters", "Nobody")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testInvalid(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/invalid")

	assert.ErrorIs(t, c.SaveExtraction(ctx, 0, types.ChapterEntities{}), storage.ErrInvalidInput)
	assert.ErrorIs(t, c.SaveProfile(ctx, types.EntityProfile{ChapterNumber: 1, Category: "Characters"}), storage.ErrInvalidInput)
	assert.ErrorIs(t, c.SaveSummary(ctx, "", "Alice", "x"), storage.ErrInvalidInput)
}

func testIsolation(t *testing.T, open Factory) {
	ctx := context.Background()
	a := open(t, "author/book-a")
	b := open(t, "author/book-b")
	assert.NotEqual(t, a.Workspace(), b.Workspace())

	require.NoError(t, a.SaveSummary(ctx, "Characters", "Alice", "from a"))
	ok, err := b.SummaryExists(ctx, "Characters", "Alice")
	require.NoError(t, err)
	assert.False(t, ok)

	reopened := open(t, "author/book-a")
	got, err := reopened.LoadSummary(ctx, "Characters", "Alice")
	require.NoError(t, err)
	assert.Equal(t, "from a", got)
}

func testConcurrent(t *testing.T, open Factory) {
	ctx := context.Background()
	c := open(t, "author/concurrent")

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 1; i <= 20; i++ {
		wg.Add(1)
		go func(ch int) {
			defer wg.Done()
			errs <- c.SaveExtraction(ctx, ch, types.ChapterEntities{"Characters": {fmt.Sprintf("Person %d", ch)}})
			errs <- c.SaveSummary(ctx, "Characters", fmt.Sprintf("Person %d", ch), "s")
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 1; i <= 20; i++ {
		got, err := c.LoadExtraction(ctx, i)
		require.NoError(t, err)
		assert.Equal(t, []string{fmt.Sprintf("Person %d", i)}, got["Characters"])
	}
}
