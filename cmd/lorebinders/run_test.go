package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/lorebinders/internal/backup"
	"github.com/scrypster/lorebinders/internal/config"
	"github.com/scrypster/lorebinders/internal/logger"
	"github.com/scrypster/lorebinders/internal/report"
)

// bookGenerator answers each prompt kind with a fixed response.
type bookGenerator struct {
	mu    sync.Mutex
	calls map[string]int
}

func (g *bookGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.calls == nil {
		g.calls = make(map[string]int)
	}

	switch {
	case strings.Contains(prompt, "## TASKS"):
		g.calls["analyze"]++
		return `{"results":[{"entity_name":"Alice","category":"Characters","traits":[{"trait":"Mood","value":"calm"}]}]}`, nil
	case strings.Contains(prompt, "## ENTITY"):
		g.calls["summarize"]++
		return `{"summary":"Alice keeps the lighthouse."}`, nil
	default:
		g.calls["extract"]++
		return `{"Characters":["Alice"],"Locations":[]}`, nil
	}
}

func (g *bookGenerator) GetModel() string { return "book" }

func (g *bookGenerator) count(kind string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[kind]
}

func writeManuscript(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lighthouse.txt")
	text := "Alice climbed the stairs.\n***\nAlice lit the lamp."
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func testConfig(t *testing.T, engine string) *config.Config {
	cfg := config.Default()
	cfg.Storage.Engine = engine
	cfg.Storage.DataPath = t.TempDir()
	cfg.Pipeline.MaxConcurrency = 2
	return cfg
}

func TestRunPipeline_WritesBinder(t *testing.T) {
	cfg := testConfig(t, "memory")
	gen := &bookGenerator{}
	var out bytes.Buffer

	opts := runOptions{input: writeManuscript(t), author: "Jane Doe"}
	binder, err := runPipeline(context.Background(), cfg, opts, gen, logger.Discard(), &out)
	require.NoError(t, err)

	alice, ok := binder.Entity("Characters", "Alice")
	require.True(t, ok)
	assert.Len(t, alice.Appearances, 2)
	assert.Equal(t, "Alice keeps the lighthouse.", alice.Summary)

	var doc report.Document
	require.NoError(t, json.Unmarshal(out.Bytes(), &doc))
	assert.Equal(t, "lighthouse", doc.Title)
	assert.Equal(t, "Jane Doe", doc.Author)
	assert.Equal(t, 2, doc.Chapters)

	assert.Equal(t, 2, gen.count("extract"))
	assert.Equal(t, 2, gen.count("analyze"))
	assert.Equal(t, 1, gen.count("summarize"))
}

func TestRunPipeline_ResumesFromCache(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	input := writeManuscript(t)
	output := filepath.Join(t.TempDir(), "binder.json")
	opts := runOptions{input: input, title: "Lighthouse", output: output}

	first := &bookGenerator{}
	_, err := runPipeline(context.Background(), cfg, opts, first, logger.Discard(), nil)
	require.NoError(t, err)
	firstOut, err := os.ReadFile(output)
	require.NoError(t, err)

	second := &bookGenerator{}
	_, err = runPipeline(context.Background(), cfg, opts, second, logger.Discard(), nil)
	require.NoError(t, err)
	assert.Zero(t, second.count("extract")+second.count("analyze")+second.count("summarize"))

	var a, b report.Document
	require.NoError(t, json.Unmarshal(firstOut, &a))
	secondOut, err := os.ReadFile(output)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(secondOut, &b))
	assert.Equal(t, a.Binder, b.Binder)
}

func TestRunPipeline_MissingInput(t *testing.T) {
	cfg := testConfig(t, "memory")
	opts := runOptions{input: filepath.Join(t.TempDir(), "missing.txt")}
	_, err := runPipeline(context.Background(), cfg, opts, &bookGenerator{}, logger.Discard(), nil)
	assert.Error(t, err)
}

func TestChaptersCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"chapters", writeManuscript(t)})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "lighthouse by Unknown")
	assert.Contains(t, out.String(), "Chapter 2")
}

func TestBackupCommand(t *testing.T) {
	dataPath := t.TempDir()
	t.Setenv("LOREBINDERS_STORAGE_ENGINE", "sqlite")
	t.Setenv("LOREBINDERS_DATA_PATH", dataPath)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	_, err = runPipeline(context.Background(), cfg, runOptions{input: writeManuscript(t), output: filepath.Join(dataPath, "out.json")}, &bookGenerator{}, logger.Discard(), nil)
	require.NoError(t, err)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"backup", "--keep", "1"})
	defer rootCmd.SetArgs(nil)
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, out.String(), "Snapshot written to")

	snapshots, err := backup.List(filepath.Join(dataPath, "backups"))
	require.NoError(t, err)
	assert.Len(t, snapshots, 1)
}

func TestBackupCommand_RequiresSQLite(t *testing.T) {
	t.Setenv("LOREBINDERS_STORAGE_ENGINE", "memory")
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"backup"})
	defer rootCmd.SetArgs(nil)
	assert.Error(t, rootCmd.Execute())
}

func TestApplyRunFlags(t *testing.T) {
	cfg := config.Default()
	opts := runOptions{
		narratorName: "Jane Doe",
		thirdPerson:  true,
		categories:   []string{"Items", "Locations"},
		traits:       []string{"Scar", "Items: Owner", "Factions:Leader"},
	}
	require.NoError(t, applyRunFlags(cfg, opts))

	assert.Equal(t, "Jane Doe", cfg.Pipeline.NarratorName)
	assert.True(t, cfg.Pipeline.ThirdPerson)
	assert.Equal(t, []string{"Characters", "Locations", "Items", "Factions"}, cfg.Pipeline.Categories)
	assert.Equal(t, "Scar", cfg.Pipeline.TraitsFor("Characters")[len(cfg.Pipeline.TraitsFor("Characters"))-1])
	assert.Equal(t, []string{"Description", "Role", "Owner"}, cfg.Pipeline.TraitsFor("Items"))
	assert.Equal(t, []string{"Description", "Role", "Leader"}, cfg.Pipeline.TraitsFor("Factions"))
	assert.Equal(t, []string{"Description", "Role"}, cfg.Pipeline.DefaultTraits)

	assert.Error(t, applyRunFlags(config.Default(), runOptions{traits: []string{"Items:"}}))
}
