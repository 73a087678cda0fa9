// CLAUDE:SUMMARY Scope filter: restricts bulk groups by page and by overlap with active keep regions.
package redact

import "github.com/hazyhaar/redact/pagetext"

// filterScope restricts a candidate group per the optional scope. With
// keep_only set, a box survives only if its page carries no active keep box
// (no constraint there) or its normalized rect strictly overlaps at least
// one active keep box's normalized rect on that page.
func filterScope(group []*Box, scope *Scope, keeps []*KeepBox) []*Box {
	if scope == nil {
		return group
	}

	if scope.Page != nil {
		var onPage []*Box
		for _, b := range group {
			if b.Page == *scope.Page {
				onPage = append(onPage, b)
			}
		}
		group = onPage
	}

	if !scope.KeepOnly {
		return group
	}

	keepsByPage := make(map[int][]pagetext.Rect)
	for _, k := range keeps {
		if k.IsRemoved {
			continue
		}
		keepsByPage[k.Page] = append(keepsByPage[k.Page], k.Rect().Normalized())
	}

	var kept []*Box
	for _, b := range group {
		pageKeeps := keepsByPage[b.Page]
		if len(pageKeeps) == 0 {
			kept = append(kept, b)
			continue
		}
		r := b.Rect()
		for _, kr := range pageKeeps {
			if r.Intersects(kr) {
				kept = append(kept, b)
				break
			}
		}
	}
	return kept
}
