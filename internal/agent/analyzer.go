package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/lorebinders/internal/llm"
	"github.com/scrypster/lorebinders/pkg/types"
)

// Analyzer asks the model for trait values of a batch of entities in one chapter.
type Analyzer struct {
	exec *executor
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(gen llm.TextGenerator, opts Options) *Analyzer {
	return &Analyzer{exec: newExecutor(gen, opts)}
}

// Analyze returns one profile per entity the model described. The result may
// cover only part of the batch. Categories are normalized to the requested
// spelling; answers for categories outside the batch are dropped.
func (a *Analyzer) Analyze(ctx context.Context, batch []types.CategoryTarget, chapter types.Chapter) ([]types.EntityProfile, error) {
	requested := make(map[string]string, len(batch))
	total := 0
	for _, target := range batch {
		requested[strings.ToLower(target.Category)] = target.Category
		total += len(target.Entities)
	}
	if total == 0 {
		return nil, nil
	}

	fields := logrus.Fields{"stage": "analysis", "chapter": chapter.Number, "entities": total}
	var results []llm.AnalysisResult
	err := a.exec.run(ctx, fields, llm.AnalysisPrompt(chapter.Content, batch), func(raw string) error {
		var err error
		results, err = llm.ParseAnalysisResponse(raw)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("analyze chapter %d: %w", chapter.Number, err)
	}

	profiles := make([]types.EntityProfile, 0, len(results))
	for _, r := range results {
		category, ok := requested[strings.ToLower(r.Category)]
		if !ok {
			if len(batch) != 1 {
				continue
			}
			category = batch[0].Category
		}
		profiles = append(profiles, types.EntityProfile{
			Name:          r.EntityName,
			Category:      category,
			ChapterNumber: chapter.Number,
			Traits:        r.Traits,
			Confidence:    a.exec.opts.Confidence,
		})
	}
	return profiles, nil
}
