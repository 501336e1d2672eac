package agent

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/scrypster/lorebinders/internal/llm"
)

// Summarizer writes the story bible entry for one entity.
type Summarizer struct {
	exec *executor
}

// NewSummarizer creates a Summarizer.
func NewSummarizer(gen llm.TextGenerator, opts Options) *Summarizer {
	return &Summarizer{exec: newExecutor(gen, opts)}
}

// Summarize returns a non-empty summary built from contextData.
func (s *Summarizer) Summarize(ctx context.Context, name, category, contextData string) (string, error) {
	fields := logrus.Fields{"stage": "summarization", "category": category, "entity": name}
	var summary string
	err := s.exec.run(ctx, fields, llm.SummaryPrompt(name, category, contextData), func(raw string) error {
		var err error
		summary, err = llm.ParseSummaryResponse(raw)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("summarize %s/%s: %w", category, name, err)
	}
	return summary, nil
}
