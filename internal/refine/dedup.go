package refine

import "github.com/scrypster/lorebinders/pkg/types"

// Deduplicate merges entities within each category that the resolver
// considers similar. It returns a new Binder and leaves b unchanged.
// Running it on its own output makes no further merges.
func (r *Resolver) Deduplicate(b *types.Binder) *types.Binder {
	out := b.Clone()
	for _, cat := range out.Categories {
		names := cat.EntityNames()
		removed := make(map[string]bool, len(names))
		for i := 0; i < len(names); i++ {
			if removed[names[i]] {
				continue
			}
			for j := i + 1; j < len(names); j++ {
				if removed[names[j]] || !r.IsSimilar(names[i], names[j]) {
					continue
				}
				keep, merge := r.Prioritize(names[i], names[j])
				mergeRecords(cat.Entities[keep], cat.Entities[merge])
				delete(cat.Entities, merge)
				removed[merge] = true
				if merge == names[i] {
					break
				}
			}
		}
	}
	return out
}
