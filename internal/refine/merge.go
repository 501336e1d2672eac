package refine

import "github.com/scrypster/lorebinders/pkg/types"

// mergeRecords folds src into dst. Appearances for the same chapter are
// combined with MergeTraitMaps; new chapters are copied.
func mergeRecords(dst, src *types.EntityRecord) {
	for _, ch := range src.Chapters() {
		app := src.Appearances[ch]
		if existing, ok := dst.Appearances[ch]; ok {
			dst.Appearances[ch] = types.EntityAppearance{Traits: MergeTraitMaps(existing.Traits, app.Traits)}
			continue
		}
		dst.SetAppearance(ch, app.Traits)
	}
	dst.Summary = joinSummaries(dst.Summary, src.Summary)
}

// joinSummaries keeps the non-empty summary, or joins two different
// summaries with a blank line.
func joinSummaries(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "" || a == b:
		return a
	default:
		return a + "\n\n" + b
	}
}
