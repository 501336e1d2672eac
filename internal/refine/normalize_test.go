package refine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/pkg/types"
)

func TestRemoveTitles(t *testing.T) {
	v := DefaultVocabulary()
	tests := []struct {
		in, want string
	}{
		{"Captain John Smith", "John Smith"},
		{"Dr. Watson", "Watson"},
		{"The Kitchen", "Kitchen"},
		{"Captain", "Captain"},
		{"Saint Nick", "Saint Nick"},
		{"", ""},
		{"Great Aunt Martha", "Martha"},
		{"The Captain Rex", "Rex"},
		{"The King", "King"},
		{"great aunt", "great aunt"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, v.RemoveTitles(tt.in))
		})
	}
}

func TestRemoveTitlesIdempotent(t *testing.T) {
	v := DefaultVocabulary()
	for _, in := range []string{"The Captain John", "Mr. Mrs. Smith", "Lord", "The Great Gobbo", "Sir Sir Sir Bob", "the father"} {
		once := v.RemoveTitles(in)
		assert.Equal(t, once, v.RemoveTitles(once), in)
	}
}

func TestToSingular(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Cats", "Cat"},
		{"Wolves", "Wolf"},
		{"Knives", "Knife"},
		{"Potatoes", "Potato"},
		{"Glasses", "Glass"},
		{"Glass", "Glass"},
		{"James", "Jame"},
		{"Stories", "Story"},
		{"Boxes", "Box"},
		{"Churches", "Church"},
		{"Leaves", "Leaf"},
		{"Cat", "Cat"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ToSingular(tt.in))
		})
	}
}

func TestMergeTraitValue(t *testing.T) {
	tests := []struct {
		name   string
		v1, v2 types.TraitValue
		want   types.TraitValue
	}{
		{"equal scalars", types.Scalar("a"), types.Scalar("a"), types.Scalar("a")},
		{"unequal scalars", types.Scalar("a"), types.Scalar("b"), types.List("a", "b")},
		{"same lists", types.List("a"), types.List("a"), types.List("a")},
		{"list union", types.List("a", "b"), types.List("b", "c"), types.List("a", "b", "c")},
		{"list plus new scalar", types.List("a"), types.Scalar("b"), types.List("a", "b")},
		{"list plus present scalar", types.List("a", "b"), types.Scalar("b"), types.List("a", "b")},
		{"scalar plus list", types.Scalar("c"), types.List("a"), types.List("c", "a")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeTraitValue(tt.v1, tt.v2)
			assert.True(t, tt.want.Equal(got), "got %#v", got.Items())
		})
	}
}

func TestMergeTraitValueIdempotent(t *testing.T) {
	a, b := types.Scalar("x"), types.List("y", "z")
	merged := MergeTraitValue(a, b)
	again := MergeTraitValue(merged, b)
	assert.True(t, merged.Equal(again))
	assert.True(t, merged.Equal(MergeTraitValue(merged, merged)))
}

func TestMergeTraitMaps(t *testing.T) {
	m1 := types.Traits{"Eyes": types.Scalar("Blue"), "Hair": types.Scalar("Red")}
	m2 := types.Traits{"Eyes": types.Scalar("Green"), "Mood": types.Scalar("Calm")}

	got := MergeTraitMaps(m1, m2)
	require.Len(t, got, 3)
	assert.True(t, types.List("Blue", "Green").Equal(got["Eyes"]))
	assert.Equal(t, "Red", got["Hair"].String())
	assert.Equal(t, "Calm", got["Mood"].String())

	// inputs untouched
	assert.Equal(t, "Blue", m1["Eyes"].String())
	assert.Len(t, m1, 2)

	assert.Len(t, MergeTraitMaps(nil, m2), 2)
}

func TestSubstituteNarrator(t *testing.T) {
	v := DefaultVocabulary()
	assert.Equal(t, "Jane Doe", v.SubstituteNarrator("I", "Jane Doe"))
	assert.Equal(t, "Jane Doe is tall.", v.SubstituteNarrator("The narrator is tall.", "Jane Doe"))
	assert.Equal(t, "Opinion of Jane Doe", v.SubstituteNarrator("Opinion of I", "Jane Doe"))
	assert.Equal(t, "Island", v.SubstituteNarrator("Island", "Jane Doe"))
	assert.Equal(t, "The narrator", v.SubstituteNarrator("The narrator", ""))
}

func TestStripLocationSuffix(t *testing.T) {
	v := DefaultVocabulary()
	assert.Equal(t, "Kitchen", v.StripLocationSuffix("Kitchen (Interior)"))
	assert.Equal(t, "Castle", v.StripLocationSuffix("Castle - East Wing"))
	assert.Equal(t, "Castle", v.StripLocationSuffix("Castle (North) (Ruins)"))
	assert.Equal(t, "Great-Hall", v.StripLocationSuffix("Great-Hall"))
	assert.Equal(t, "(Interior)", v.StripLocationSuffix("(Interior)"))
}

func TestNewVocabularyCustom(t *testing.T) {
	v, err := NewVocabulary([]string{"Herr", "Frau"}, `(?i)\bich\b`, "", "n/a")
	require.NoError(t, err)
	assert.Equal(t, "Schmidt", v.RemoveTitles("Herr Schmidt"))
	assert.Equal(t, "Captain Rex", v.RemoveTitles("Captain Rex"))
	assert.Equal(t, "Hans", v.SubstituteNarrator("ich", "Hans"))
	assert.True(t, v.IsPlaceholder(" N/A "))

	_, err = NewVocabulary(nil, "(", "", "")
	assert.Error(t, err)
}
