package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/pkg/types"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain object", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"leading prose", `Here you go: {"a":{"b":"}"}} thanks`, `{"a":{"b":"}"}}`},
		{"array", `Result: [{"a":1},{"b":2}] done`, `[{"a":1},{"b":2}]`},
		{"escaped quote", `{"a":"say \"}\""}`, `{"a":"say \"}\""}`},
		{"no json", `nothing here`, `nothing here`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractJSON(tt.in))
		})
	}
}

func TestParseExtractionResponse(t *testing.T) {
	text := "```json\n{\"characters\": [\"Alice\", \" \", {\"name\": \"Bob\"}], \"Locations\": \"Kitchen\", \"Objects\": [\"Sword\"]}\n```"

	got, err := ParseExtractionResponse(text, []string{"Characters", "Locations", "Events"})
	require.NoError(t, err)
	assert.Equal(t, types.ChapterEntities{
		"Characters": {"Alice", "Bob"},
		"Locations":  {"Kitchen"},
		"Events":     {},
	}, got)
}

func TestParseExtractionResponse_Malformed(t *testing.T) {
	_, err := ParseExtractionResponse(`{"Characters": [`, []string{"Characters"})
	assert.Error(t, err)

	_, err = ParseExtractionResponse(`{"Characters": 5}`, []string{"Characters"})
	assert.Error(t, err)
}

func TestParseAnalysisResponse(t *testing.T) {
	text := `{"results":[
		{"entity_name":"Alice","category":"Characters","traits":[
			{"trait":"Appearance","value":"Tall","evidence":"..."},
			{"trait":"Relationships","value":["Bob: brother","Eve: rival"]},
			{"trait":"Mood","value":null},
			{"trait":"Role","value":""},
			{"trait":"","value":"x"}
		]},
		{"entity_name":"  ","category":"Characters","traits":[]}
	]}`

	got, err := ParseAnalysisResponse(text)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].EntityName)
	assert.Equal(t, "Characters", got[0].Category)
	assert.Equal(t, []string{"Appearance", "Relationships"}, got[0].Traits.Keys())
	assert.True(t, got[0].Traits["Relationships"].IsList())
	assert.Equal(t, "Tall", got[0].Traits["Appearance"].String())
}

func TestParseAnalysisResponse_BareArray(t *testing.T) {
	got, err := ParseAnalysisResponse(`[{"entity_name":"Kitchen","category":"Locations","traits":[{"trait":"Key Features","value":{"smell":"bread"}}]}]`)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"smell: bread"}, got[0].Traits["Key Features"].Items())
}

func TestParseSummaryResponse(t *testing.T) {
	s, err := ParseSummaryResponse(`{"summary": "  A brave sailor.  "}`)
	require.NoError(t, err)
	assert.Equal(t, "A brave sailor.", s)

	s, err = ParseSummaryResponse("A plain answer.")
	require.NoError(t, err)
	assert.Equal(t, "A plain answer.", s)

	_, err = ParseSummaryResponse(`{"summary": ""}`)
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestPrompts(t *testing.T) {
	p := ExtractionPrompt("It was dark.", []string{"Characters", "Locations"}, types.NarratorConfig{Name: "Ishmael"})
	assert.Contains(t, p, "- Characters\n- Locations\n")
	assert.Contains(t, p, "named 'Ishmael'")
	assert.True(t, strings.HasSuffix(p, "## TEXT\nIt was dark.\n"))

	assert.NotContains(t, ExtractionPrompt("x", []string{"Characters"}, types.NarratorConfig{}), "Narrator Handling")
	assert.Contains(t, ExtractionPrompt("x", []string{"Characters"}, types.NarratorConfig{ThirdPerson: true}), "Do not extract the narrator")

	a := AnalysisPrompt("ctx", []types.CategoryTarget{
		{Category: "Characters", Entities: []string{"Alice", "Bob"}, Traits: []string{"Mood", "Role"}},
	})
	assert.Contains(t, a, "- Analyze Characters 'Alice' for traits: Mood, Role\n")
	assert.Contains(t, a, "- Analyze Characters 'Bob' for traits: Mood, Role\n")

	s := SummaryPrompt("Alice", "Characters", `{"1":{}}`)
	assert.Contains(t, s, "## ENTITY: Alice (Characters)")
	assert.Contains(t, s, `{"1":{}}`)
}

func TestChunker(t *testing.T) {
	assert.Nil(t, Chunker{}.Split("   "))
	assert.Equal(t, []string{"short"}, Chunker{MaxTokens: 10}.Split("short"))

	para := strings.Repeat("word ", 8) // 40 bytes, 10 tokens
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Chunker{MaxTokens: 25}.Split(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, para+"\n\n"+para, chunks[0])
	assert.Equal(t, para, chunks[1])

	long := "First sentence here. Second sentence here. Third sentence here."
	chunks = Chunker{MaxTokens: 6}.Split(long)
	require.Len(t, chunks, 3)
	assert.Equal(t, "First sentence here.", chunks[0])
	assert.Equal(t, "Third sentence here.", chunks[2])

	for _, c := range (Chunker{MaxTokens: 2}).Split(strings.Repeat("é", 40)) {
		assert.LessOrEqual(t, len(c), 8)
		assert.True(t, strings.HasPrefix(c, "é"))
	}
}
