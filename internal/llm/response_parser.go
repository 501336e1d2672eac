package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/scrypster/lorebinders/pkg/types"
)

// TraitResponse is one trait of an analyzed entity.
type TraitResponse struct {
	Trait    string          `json:"trait"`
	Value    json.RawMessage `json:"value"`
	Evidence string          `json:"evidence,omitempty"`
}

// AnalysisResponse is one analyzed entity.
type AnalysisResponse struct {
	EntityName string          `json:"entity_name"`
	Category   string          `json:"category"`
	Traits     []TraitResponse `json:"traits"`
}

// AnalysisResult is an analyzed entity with its traits normalized.
type AnalysisResult struct {
	EntityName string
	Category   string
	Traits     types.Traits
}

type analysisEnvelope struct {
	Results []AnalysisResponse `json:"results"`
}

type summaryEnvelope struct {
	Summary string `json:"summary"`
}

// extractJSON extracts the first balanced JSON object or array from a string
// that may contain extra text. Models add explanations and code fences despite
// instructions.
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}
	open, closing := text[start], byte('}')
	if open == '[' {
		closing = ']'
	}

	depth := 0
	inString := false
	escape := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escape {
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return text[start:]
}

// ParseExtractionResponse decodes an extraction answer into names per category.
// Keys are matched to categories case-insensitively and unrequested keys are
// ignored. A category may map to a single string instead of an array.
func ParseExtractionResponse(text string, categories []string) (types.ChapterEntities, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(extractJSON(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	canonical := make(map[string]string, len(categories))
	for _, c := range categories {
		canonical[strings.ToLower(strings.TrimSpace(c))] = c
	}

	result := make(types.ChapterEntities, len(categories))
	for key, value := range raw {
		category, ok := canonical[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		names, err := decodeNames(value)
		if err != nil {
			return nil, fmt.Errorf("category %q: %w", key, err)
		}
		result[category] = append(result[category], names...)
	}
	for _, c := range categories {
		if _, ok := result[c]; !ok {
			result[c] = []string{}
		}
	}
	return result, nil
}

func decodeNames(raw json.RawMessage) ([]string, error) {
	var list []interface{}
	if err := json.Unmarshal(raw, &list); err != nil {
		var single string
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, fmt.Errorf("expected an array of names: %w", err)
		}
		list = []interface{}{single}
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				names = append(names, s)
			}
		case map[string]interface{}:
			// Some models answer [{"name": "..."}].
			if s, ok := v["name"].(string); ok && strings.TrimSpace(s) != "" {
				names = append(names, strings.TrimSpace(s))
			}
		}
	}
	return names, nil
}

// ParseAnalysisResponse decodes an analysis answer. Both {"results": [...]}
// and a bare array are accepted. Traits with null or empty values are skipped.
func ParseAnalysisResponse(text string) ([]AnalysisResult, error) {
	payload := []byte(extractJSON(text))

	var items []AnalysisResponse
	if strings.HasPrefix(strings.TrimSpace(string(payload)), "[") {
		if err := json.Unmarshal(payload, &items); err != nil {
			return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
		}
	} else {
		var env analysisEnvelope
		if err := json.Unmarshal(payload, &env); err != nil {
			return nil, fmt.Errorf("failed to parse analysis JSON: %w", err)
		}
		items = env.Results
	}

	results := make([]AnalysisResult, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.EntityName)
		if name == "" {
			continue
		}
		traits := make(types.Traits, len(item.Traits))
		for _, t := range item.Traits {
			key := strings.TrimSpace(t.Trait)
			if key == "" || len(t.Value) == 0 {
				continue
			}
			value, err := types.ParseTraitValue(t.Value)
			if err != nil || value.Len() == 0 || strings.TrimSpace(value.String()) == "" {
				continue
			}
			traits[key] = value
		}
		results = append(results, AnalysisResult{
			EntityName: name,
			Category:   strings.TrimSpace(item.Category),
			Traits:     traits,
		})
	}
	return results, nil
}

// ParseSummaryResponse returns the summary text. An answer that is not JSON is
// taken as the summary itself.
func ParseSummaryResponse(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, "{") {
		var env summaryEnvelope
		if err := json.Unmarshal([]byte(extractJSON(trimmed)), &env); err == nil {
			trimmed = strings.TrimSpace(env.Summary)
		}
	}
	trimmed = strings.TrimSpace(strings.Trim(trimmed, "`"))
	if trimmed == "" {
		return "", ErrEmptyResponse
	}
	return trimmed, nil
}
