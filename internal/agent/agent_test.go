package agent

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/internal/llm"
	"github.com/scrypster/lorebinders/pkg/types"
)

type reply struct {
	text string
	err  error
}

// scriptedGenerator returns its replies in order and records every prompt.
type scriptedGenerator struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

func (g *scriptedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if len(g.replies) == 0 {
		return "", errors.New("no scripted reply")
	}
	r := g.replies[0]
	g.replies = g.replies[1:]
	return r.text, r.err
}

func (g *scriptedGenerator) GetModel() string { return "scripted" }

func noWait(opts Options) Options {
	opts.Backoff = func(int) time.Duration { return 0 }
	return opts
}

func TestQuadraticBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, QuadraticBackoff(1))
	assert.Equal(t, 400*time.Millisecond, QuadraticBackoff(2))
	assert.Equal(t, 900*time.Millisecond, QuadraticBackoff(3))
}

func TestExtractor_Extract(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{text: "Sure!\n```json\n{\"Characters\":[\"Alice\",\"Bob\"],\"Locations\":[\"Kitchen (Interior)\"]}\n```"},
	}}
	x := NewExtractor(gen, 0, noWait(Options{}))

	got, err := x.Extract(context.Background(), types.Chapter{Number: 1, Content: "Alice met Bob."},
		[]string{"Characters", "Locations"}, types.NarratorConfig{Name: "Jane"})
	require.NoError(t, err)
	assert.Equal(t, types.ChapterEntities{
		"Characters": {"Alice", "Bob"},
		"Locations":  {"Kitchen (Interior)"},
	}, got)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Alice met Bob.")
	assert.Contains(t, gen.prompts[0], "named 'Jane'")
}

func TestExtractor_ChunksLongChapters(t *testing.T) {
	para := strings.Repeat("Alice walked. ", 100)
	content := para + "\n\n" + para
	gen := &scriptedGenerator{replies: []reply{
		{text: `{"Characters":["Alice","Bob"]}`},
		{text: `{"Characters":["Bob","Carol"]}`},
	}}
	x := NewExtractor(gen, 400, noWait(Options{}))

	got, err := x.Extract(context.Background(), types.Chapter{Number: 3, Content: content}, []string{"Characters"}, types.NarratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, got["Characters"])
	assert.Len(t, gen.prompts, 2)
}

func TestExtractor_EmptyChapterMakesNoCall(t *testing.T) {
	gen := &scriptedGenerator{}
	got, err := NewExtractor(gen, 0, Options{}).Extract(context.Background(), types.Chapter{Number: 1}, []string{"Characters"}, types.NarratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, types.ChapterEntities{"Characters": {}}, got)
	assert.Empty(t, gen.prompts)
}

func TestExecutor_RetriesUnparseableWithFeedback(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{text: "I cannot do that"},
		{text: `{"Characters":["Alice"]}`},
	}}
	got, err := NewExtractor(gen, 0, noWait(Options{})).Extract(context.Background(),
		types.Chapter{Number: 1, Content: "x"}, []string{"Characters"}, types.NarratorConfig{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice"}, got["Characters"])
	require.Len(t, gen.prompts, 2)
	assert.NotContains(t, gen.prompts[0], "could not be parsed")
	assert.Contains(t, gen.prompts[1], "could not be parsed")
}

func TestExecutor_GivesUpWithErrUnparseable(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: "no"}, {text: "no"}}}
	_, err := NewExtractor(gen, 0, noWait(Options{MaxAttempts: 2})).Extract(context.Background(),
		types.Chapter{Number: 7, Content: "x"}, []string{"Characters"}, types.NarratorConfig{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnparseable)
	assert.Contains(t, err.Error(), "chapter 7")
}

func TestExecutor_RetriesTemporaryTransportFaults(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{
		{err: &llm.StatusError{Provider: "openai", StatusCode: http.StatusServiceUnavailable}},
		{err: llm.ErrEmptyResponse},
		{text: `{"summary":"A sailor."}`},
	}}
	var waits []int
	opts := Options{Backoff: func(attempt int) time.Duration {
		waits = append(waits, attempt)
		return 0
	}}

	s, err := NewSummarizer(gen, opts).Summarize(context.Background(), "Ishmael", "Characters", "{}")
	require.NoError(t, err)
	assert.Equal(t, "A sailor.", s)
	assert.Equal(t, []int{1}, waits)
	assert.Contains(t, gen.prompts[2], "previous response was empty")
}

func TestExecutor_DoesNotRetryPermanentFaults(t *testing.T) {
	for name, fault := range map[string]error{
		"client error": &llm.StatusError{Provider: "openai", StatusCode: http.StatusUnauthorized},
		"circuit open": llm.ErrCircuitOpen,
	} {
		t.Run(name, func(t *testing.T) {
			gen := &scriptedGenerator{replies: []reply{{err: fault}, {text: `{"summary":"x"}`}}}
			_, err := NewSummarizer(gen, noWait(Options{})).Summarize(context.Background(), "A", "Characters", "{}")
			assert.ErrorIs(t, err, fault)
			assert.Len(t, gen.prompts, 1)
		})
	}
}

func TestExecutor_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	gen := &scriptedGenerator{replies: []reply{{err: errors.New("connection reset")}}}
	opts := Options{Backoff: func(int) time.Duration {
		cancel()
		return time.Hour
	}}
	_, err := NewSummarizer(gen, opts).Summarize(ctx, "A", "Characters", "{}")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzer_Analyze(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: `{"results":[
		{"entity_name":"Alice","category":"characters","traits":[{"trait":"Mood","value":"Calm"}]},
		{"entity_name":"Sword","category":"Items","traits":[{"trait":"Owner","value":"Alice"}]}
	]}`}}}
	batch := []types.CategoryTarget{
		{Category: "Characters", Entities: []string{"Alice", "Bob"}, Traits: []string{"Mood"}},
		{Category: "Locations", Entities: []string{"Kitchen"}, Traits: []string{"Key Features"}},
	}

	profiles, err := NewAnalyzer(gen, noWait(Options{})).Analyze(context.Background(), batch, types.Chapter{Number: 4, Content: "text"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Alice", profiles[0].Name)
	assert.Equal(t, "Characters", profiles[0].Category)
	assert.Equal(t, 4, profiles[0].ChapterNumber)
	assert.Equal(t, DefaultConfidence, profiles[0].Confidence)
	assert.Equal(t, "Calm", profiles[0].Traits["Mood"].String())
	assert.Contains(t, gen.prompts[0], "- Analyze Locations 'Kitchen' for traits: Key Features")
}

func TestAnalyzer_SingleTargetAdoptsCategory(t *testing.T) {
	gen := &scriptedGenerator{replies: []reply{{text: `[{"entity_name":"Night","category":"Place","traits":[{"trait":"Description","value":"Dark"}]}]`}}}
	batch := []types.CategoryTarget{{Category: "Locations", Entities: []string{"Night"}, Traits: []string{"Description"}}}

	profiles, err := NewAnalyzer(gen, noWait(Options{Confidence: 0.5})).Analyze(context.Background(), batch, types.Chapter{Number: 1, Content: "x"})
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "Locations", profiles[0].Category)
	assert.Equal(t, 0.5, profiles[0].Confidence)
}

func TestAnalyzer_EmptyBatch(t *testing.T) {
	gen := &scriptedGenerator{}
	profiles, err := NewAnalyzer(gen, Options{}).Analyze(context.Background(), []types.CategoryTarget{{Category: "Characters"}}, types.Chapter{Number: 1})
	require.NoError(t, err)
	assert.Empty(t, profiles)
	assert.Empty(t, gen.prompts)
}
