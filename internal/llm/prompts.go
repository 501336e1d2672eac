package llm

import (
	"fmt"
	"strings"

	"github.com/scrypster/lorebinders/pkg/types"
)

// ExtractionPrompt asks for the named entities of each category in one chapter.
// The expected answer is a JSON object keyed by category with arrays of names.
func ExtractionPrompt(text string, categories []string, narrator types.NarratorConfig) string {
	var b strings.Builder
	b.WriteString(`TASK: List the named entities that appear in a chapter of a novel.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
Your response MUST start with { and end with }
One key per category below, each mapped to an array of names.
Use an empty array when a category has no entities.

Example structure (EXACT FORMAT REQUIRED):
{"Characters":["Alice","Captain Hale"],"Locations":["The Lighthouse"]}

RULES:
1. Use the name as written in the text, with any title it is usually given.
2. List each entity once per category.
3. Do not invent entities that are only implied.
4. Refer to the first-person narrator as "narrator" unless a name is given below.

## CATEGORIES TO EXTRACT
`)
	for _, cat := range categories {
		fmt.Fprintf(&b, "- %s\n", cat)
	}
	switch {
	case narrator.ThirdPerson:
		b.WriteString("\nNarrator Handling:\n- The text is in 3rd person. Do not extract the narrator.\n")
	case narrator.Name != "":
		fmt.Fprintf(&b, "\nNarrator Handling:\n- The narrator is named '%s'. Use that name for them.\n", narrator.Name)
	}
	fmt.Fprintf(&b, "\n## TEXT\n%s\n", text)
	return b.String()
}

// AnalysisPrompt asks for per-entity trait values grounded in one chapter.
func AnalysisPrompt(text string, targets []types.CategoryTarget) string {
	var b strings.Builder
	b.WriteString(`TASK: Describe entities from a chapter of a novel, trait by trait.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
{
  "results": [
    {
      "entity_name": "Alice",
      "category": "Characters",
      "traits": [
        {"trait": "Appearance", "value": "Tall, red coat", "evidence": "short quote"},
        {"trait": "Relationships to other characters", "value": ["Bob: brother"], "evidence": "short quote"}
      ]
    }
  ]
}

RULES:
1. Use entity_name and category exactly as given in TASKS.
2. value is a string, or an array of strings for several distinct facts.
3. Only state what this chapter supports. Use "none found" when it says nothing.
4. Omit an entity entirely if the chapter does not mention it.

`)
	fmt.Fprintf(&b, "## CONTEXT\n%s\n\n## TASKS\n", text)
	for _, target := range targets {
		traits := strings.Join(target.Traits, ", ")
		for _, name := range target.Entities {
			fmt.Fprintf(&b, "- Analyze %s '%s' for traits: %s\n", target.Category, name, traits)
		}
	}
	return b.String()
}

// SummaryPrompt asks for a story bible entry from an entity's collected appearances.
func SummaryPrompt(name, category, contextData string) string {
	return fmt.Sprintf(`TASK: Write a story bible summary for one entity of a novel.
OUTPUT: ONLY valid JSON. NO markdown. NO code blocks. NO backticks.

REQUIRED JSON STRUCTURE:
{"summary":"One to three paragraphs of plain prose."}

RULES:
1. Use only the facts in CONTEXT DATA, which lists traits by chapter number.
2. Note how the entity changes across chapters.
3. Do not mention chapter numbers or this task.

## ENTITY: %s (%s)

## CONTEXT DATA
%s
`, name, category, contextData)
}
