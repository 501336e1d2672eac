package refine

import "github.com/scrypster/lorebinders/pkg/types"

// Aggregate folds analysis profiles into a new Binder. A later profile for
// the same (category, name, chapter) overwrites an earlier one.
func Aggregate(profiles []types.EntityProfile) *types.Binder {
	b := types.NewBinder()
	for _, p := range profiles {
		b.EnsureCategory(p.Category).EnsureEntity(p.Name).SetAppearance(p.ChapterNumber, p.Traits)
	}
	return b
}
