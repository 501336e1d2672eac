package refine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/pkg/types"
)

func binderWith(category, name string, chapter int, traits types.Traits) *types.Binder {
	b := types.NewBinder()
	b.EnsureCategory(category).EnsureEntity(name).SetAppearance(chapter, traits)
	return b
}

func TestCleanRemovesPlaceholders(t *testing.T) {
	b := binderWith("Characters", "Alice", 1, types.Traits{
		"Hair": types.Scalar("None found"),
		"Eyes": types.Scalar("Blue"),
	})
	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)

	alice, ok := out.Entity("Characters", "Alice")
	require.True(t, ok)
	assert.Equal(t, types.Traits{"Eyes": types.Scalar("Blue")}, alice.Appearances[1].Traits)
}

func TestCleanRemovesPlaceholderListItems(t *testing.T) {
	b := binderWith("Characters", "Alice", 1, types.Traits{
		"Mood":       types.List("happy", " none found "),
		"Relations":  types.List("None Found"),
		"None found": types.Scalar("x"),
	})
	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)

	alice, _ := out.Entity("Characters", "Alice")
	require.Len(t, alice.Appearances[1].Traits, 1)
	assert.True(t, types.List("happy").Equal(alice.Appearances[1].Traits["Mood"]))
}

func TestCleanDropsEmptyAppearancesAndEntities(t *testing.T) {
	b := binderWith("Characters", "Ghost", 1, types.Traits{"Hair": types.Scalar("none found")})
	b.EnsureCategory("Characters").EnsureEntity("None Found").SetAppearance(1, types.Traits{"X": types.Scalar("y")})

	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)
	assert.Equal(t, 0, out.EntityCount())
}

func TestCleanNarratorSubstitution(t *testing.T) {
	b := binderWith("Characters", "I", 1, types.Traits{
		"Description": types.Scalar("The narrator is tall."),
	})
	out, err := NewCleaner(nil, "Jane Doe").Clean(b)
	require.NoError(t, err)

	jane, ok := out.Entity("Characters", "Jane Doe")
	require.True(t, ok)
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "Jane Doe is tall.", jane.Appearances[1].Traits["Description"].String())
}

func TestCleanNarratorInKeysAndSummary(t *testing.T) {
	b := binderWith("Characters", "Bob", 1, types.Traits{
		"Opinion of I": types.Scalar("Likes me"),
	})
	b.Categories["Characters"].Entities["Bob"].Summary = "Bob met the protagonist."

	out, err := NewCleaner(nil, "Jane Doe").Clean(b)
	require.NoError(t, err)
	bob, _ := out.Entity("Characters", "Bob")
	assert.Equal(t, "Likes Jane Doe", bob.Appearances[1].Traits["Opinion of Jane Doe"].String())
	assert.Equal(t, "Bob met Jane Doe.", bob.Summary)
}

func TestCleanLocationStandardization(t *testing.T) {
	b := binderWith("Locations", "Kitchen (Interior)", 1, types.Traits{"Key Features": types.Scalar("Stove")})
	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)

	_, ok := out.Entity("Locations", "Kitchen")
	assert.True(t, ok)
	_, ok = out.Entity("Locations", "Kitchen (Interior)")
	assert.False(t, ok)
}

func TestCleanMergesCollisions(t *testing.T) {
	b := types.NewBinder()
	locs := b.EnsureCategory("Locations")
	k1 := locs.EnsureEntity("Kitchen")
	k1.SetAppearance(1, types.Traits{"Key Features": types.Scalar("Stove")})
	k1.Summary = "A warm room."
	k2 := locs.EnsureEntity("Kitchen (Interior)")
	k2.SetAppearance(1, types.Traits{"Key Features": types.Scalar("Sink")})
	k2.SetAppearance(2, types.Traits{"Key Features": types.Scalar("Table")})
	k2.Summary = "Has a sink."

	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)
	require.Len(t, out.Categories["Locations"].Entities, 1)

	kitchen, _ := out.Entity("Locations", "Kitchen")
	assert.Equal(t, []int{1, 2}, kitchen.Chapters())
	assert.True(t, types.List("Stove", "Sink").Equal(kitchen.Appearances[1].Traits["Key Features"]))
	assert.Equal(t, "A warm room.\n\nHas a sink.", kitchen.Summary)
}

func TestCleanStripsCharacterTitlesOnly(t *testing.T) {
	b := binderWith("Characters", "Captain Rex", 1, types.Traits{"Role": types.Scalar("Pilot")})
	b.EnsureCategory("Items").EnsureEntity("The Sword (Broken)").SetAppearance(1, types.Traits{"Role": types.Scalar("Weapon")})

	out, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)
	_, ok := out.Entity("Characters", "Rex")
	assert.True(t, ok)
	_, ok = out.Entity("Items", "The Sword (Broken)")
	assert.True(t, ok)
}

func TestCleanRejectsLongNames(t *testing.T) {
	b := binderWith("Characters", strings.Repeat("a", MaxEntityNameLength+1), 1, types.Traits{"Role": types.Scalar("x")})
	_, err := NewCleaner(nil, "").Clean(b)
	assert.ErrorIs(t, err, ErrNameTooLong)

	b = binderWith("Characters", strings.Repeat("a", MaxEntityNameLength), 1, types.Traits{"Role": types.Scalar("x")})
	_, err = NewCleaner(nil, "").Clean(b)
	assert.NoError(t, err)
}

func TestCleanRejectsNamesLengthenedByNarrator(t *testing.T) {
	name := "I " + strings.Repeat("x", MaxEntityNameLength-3)
	require.Equal(t, MaxEntityNameLength-1, len(name))
	b := binderWith("Items", name, 1, types.Traits{"Role": types.Scalar("x")})

	_, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)

	_, err = NewCleaner(nil, "Jane Doe").Clean(b)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestCleanDoesNotModifyInput(t *testing.T) {
	b := binderWith("Locations", "Kitchen (Interior)", 1, types.Traits{"Hair": types.Scalar("None found"), "Eyes": types.Scalar("x")})
	_, err := NewCleaner(nil, "").Clean(b)
	require.NoError(t, err)
	orig, ok := b.Entity("Locations", "Kitchen (Interior)")
	require.True(t, ok)
	assert.Len(t, orig.Appearances[1].Traits, 2)
}
