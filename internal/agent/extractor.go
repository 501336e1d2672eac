package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/lorebinders/internal/llm"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Extractor asks the model for the named entities of a chapter. Chapters
// longer than the chunk window are extracted piece by piece and the names
// are unioned in first-seen order.
type Extractor struct {
	exec    *executor
	chunker llm.Chunker
}

// NewExtractor creates an Extractor. chunkTokens <= 0 uses llm.DefaultChunkTokens.
func NewExtractor(gen llm.TextGenerator, chunkTokens int, opts Options) *Extractor {
	return &Extractor{
		exec:    newExecutor(gen, opts),
		chunker: llm.Chunker{MaxTokens: chunkTokens},
	}
}

// Extract returns the entity names per category found in chapter. Every
// requested category is present in the result, possibly empty.
func (x *Extractor) Extract(ctx context.Context, chapter types.Chapter, categories []string, narrator types.NarratorConfig) (types.ChapterEntities, error) {
	result := make(types.ChapterEntities, len(categories))
	seen := make(map[string]map[string]bool, len(categories))
	for _, c := range categories {
		result[c] = []string{}
		seen[c] = make(map[string]bool)
	}

	pieces := x.chunker.Split(chapter.Content)
	for i, piece := range pieces {
		fields := logrus.Fields{"stage": "extraction", "chapter": chapter.Number, "chunk": i + 1}
		var found types.ChapterEntities
		err := x.exec.run(ctx, fields, llm.ExtractionPrompt(piece, categories, narrator), func(raw string) error {
			var err error
			found, err = llm.ParseExtractionResponse(raw, categories)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("extract chapter %d: %w", chapter.Number, err)
		}
		for _, c := range categories {
			for _, name := range found[c] {
				if !seen[c][name] {
					seen[c][name] = true
					result[c] = append(result[c], name)
				}
			}
		}
	}
	return result, nil
}
