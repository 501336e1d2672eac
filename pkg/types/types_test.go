package types_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/pkg/types"
)

func TestBookValidate(t *testing.T) {
	tests := []struct {
		name    string
		book    *types.Book
		wantErr bool
	}{
		{"nil book", nil, true},
		{"empty book", &types.Book{}, false},
		{"non-contiguous", &types.Book{Chapters: []types.Chapter{{Number: 1}, {Number: 5}}}, false},
		{"zero chapter", &types.Book{Chapters: []types.Chapter{{Number: 0}}}, true},
		{"duplicate", &types.Book{Chapters: []types.Chapter{{Number: 2}, {Number: 2}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.book.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, types.ErrInvalidBook))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseTraitValue(t *testing.T) {
	tests := []struct {
		raw  string
		want types.TraitValue
	}{
		{`"Blue"`, types.Scalar("Blue")},
		{`42`, types.Scalar("42")},
		{`true`, types.Scalar("true")},
		{`["a", "b"]`, types.List("a", "b")},
		{`["a", ["b", 3]]`, types.List("a", "b", "3")},
		{`{"mother": "Ann", "father": "Bob"}`, types.List("father: Bob", "mother: Ann")},
		{`[]`, types.List()},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := types.ParseTraitValue(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}

	_, err := types.ParseTraitValue(json.RawMessage(`null`))
	assert.ErrorIs(t, err, types.ErrUnsupportedTrait)
}

func TestTraitValueJSONShape(t *testing.T) {
	traits := types.Traits{"Eyes": types.Scalar("Blue"), "Mood": types.List("calm", "tired")}
	data, err := json.Marshal(traits)
	require.NoError(t, err)
	assert.JSONEq(t, `{"Eyes":"Blue","Mood":["calm","tired"]}`, string(data))

	var back types.Traits
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back["Eyes"].Equal(traits["Eyes"]))
	assert.True(t, back["Mood"].Equal(traits["Mood"]))
}

func TestTraitValueListIsCopied(t *testing.T) {
	src := []string{"a", "b"}
	v := types.List(src...)
	src[0] = "changed"
	assert.Equal(t, []string{"a", "b"}, v.Items())

	items := v.Items()
	items[1] = "changed"
	assert.Equal(t, []string{"a", "b"}, v.Items())
}

func TestStageTransitions(t *testing.T) {
	assert.True(t, types.IsValidStageTransition("", types.StageIngested))
	assert.False(t, types.IsValidStageTransition("", types.StageExtracted))
	for i := 0; i+1 < len(types.Stages); i++ {
		assert.True(t, types.IsValidStageTransition(types.Stages[i], types.Stages[i+1]))
	}
	assert.False(t, types.IsValidStageTransition(types.StageExtracted, types.StageAnalyzed))
	assert.False(t, types.IsValidStageTransition(types.StageReported, types.StageIngested))
	assert.False(t, types.IsValidStage("bogus"))
}

func TestBinderCloneIsDeep(t *testing.T) {
	b := types.NewBinder()
	e := b.EnsureCategory("Characters").EnsureEntity("Alice")
	e.SetAppearance(1, types.Traits{"Eyes": types.Scalar("Blue")})
	e.Summary = "A girl."

	cp := b.Clone()
	cp.Categories["Characters"].Entities["Alice"].Appearances[1].Traits["Eyes"] = types.Scalar("Green")
	cp.Categories["Characters"].Entities["Alice"].Summary = "changed"

	orig, ok := b.Entity("Characters", "Alice")
	require.True(t, ok)
	assert.Equal(t, "Blue", orig.Appearances[1].Traits["Eyes"].String())
	assert.Equal(t, "A girl.", orig.Summary)
	assert.Equal(t, 1, cp.EntityCount())
}

func TestEntityChaptersSorted(t *testing.T) {
	e := types.NewEntityRecord("Night", "Locations")
	e.SetAppearance(3, nil)
	e.SetAppearance(1, nil)
	e.SetAppearance(2, nil)
	assert.Equal(t, []int{1, 2, 3}, e.Chapters())
}
