// CLAUDE:SUMMARY Bulk similarity matcher: seeds line keys from a drawn rect, scans every page with line-segmented token matching, dedupes by rounded rect identity.
package redact

import (
	"sort"
	"strings"

	"github.com/hazyhaar/redact/pagetext"
)

// lineSelection is one seed: a normalized line key and its rectangle.
type lineSelection struct {
	key  string
	rect pagetext.Rect
}

// matchEntry is one accumulated occurrence of a seed key.
type matchEntry struct {
	key  string
	page int
	rect pagetext.Rect
}

// bulkAddSimilar runs the matcher seeded from the drawn rectangle and turns
// the result into a single reversible bulk state change. With no seed lines
// or no matches it delegates to a plain ADD_MANUAL_BOX: the fallback action
// is returned with delegated=true and the engine re-enters its own dispatch.
func (e *Engine) bulkAddSimilar(st *State, a Action) (Action, *Action, bool, error) {
	p := a.Box
	if p == nil {
		return Action{}, nil, false, errInvalidPayload("BULK_ADD_MANUAL_BOX_SIMILAR")
	}

	var selections []lineSelection
	if doc, ok := e.openDoc(); ok {
		for _, seg := range doc.LineSegments(p.Page, p.rect()) {
			selections = append(selections, lineSelection{key: seg.Key, rect: seg.Rect})
		}
		doc.Close()
	}
	if len(selections) == 0 {
		return Action{Type: ActionAddManualBox, Box: p}, nil, true, nil
	}

	entries := e.collectMatches(p.Page, selections)
	if len(entries) == 0 {
		return Action{Type: ActionAddManualBox, Box: p}, nil, true, nil
	}
	e.cfg.Logger.Debug("bulk similarity matched", "seeds", len(selections), "matches", len(entries))

	existingByRect := make(map[rectKey]*Box, len(st.Manual))
	for _, b := range st.Manual {
		existingByRect[makeRectKey(b.Page, b.Rect())] = b
	}

	type seenKey struct {
		key string
		rk  rectKey
	}
	seen := make(map[seenKey]bool)
	var prior, desired []BoxState

	for _, m := range entries {
		rk := makeRectKey(m.page, m.rect)
		sk := seenKey{key: m.key, rk: rk}
		if seen[sk] {
			continue
		}
		seen[sk] = true

		key := m.key
		if existing, ok := existingByRect[rk]; ok {
			// Coincident with an existing manual box: update it in place
			// instead of creating a duplicate.
			prior = append(prior, BoxState{BoxID: existing.BoxID, IsRemoved: existing.IsRemoved})
			existing.Page = m.page
			existing.X0, existing.Y0 = m.rect.X0, m.rect.Y0
			existing.X1, existing.Y1 = m.rect.X1, m.rect.Y1
			existing.EntityType = "MANUAL"
			existing.Confidence = 1.0
			existing.IsAuto = false
			existing.ManualMatchKey = &key
			if p.OverlayText != nil {
				v := *p.OverlayText
				existing.OverlayText = &v
			}
			existing.IsRemoved = false
			desired = append(desired, BoxState{BoxID: existing.BoxID, IsRemoved: false})
			continue
		}

		id := e.cfg.NewManualID()
		// Recorded as if it had been removed, so the inverse soft-removes it.
		prior = append(prior, BoxState{BoxID: id, IsRemoved: true})
		box := &Box{
			BoxID:          id,
			Page:           m.page,
			X0:             m.rect.X0,
			Y0:             m.rect.Y0,
			X1:             m.rect.X1,
			Y1:             m.rect.Y1,
			EntityType:     "MANUAL",
			Confidence:     1.0,
			ManualMatchKey: &key,
		}
		if p.OverlayText != nil {
			v := *p.OverlayText
			box.OverlayText = &v
		}
		st.Manual = append(st.Manual, box)
		desired = append(desired, BoxState{BoxID: id, IsRemoved: false})
	}

	stored := Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: desired}}
	inverse := &Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: prior}}
	return stored, inverse, false, nil
}

// collectMatches accumulates occurrences of the seed keys across the whole
// document, in deterministic first-found order: page ascending, line group
// ascending by (block, line), seed-key order, then in-line scan order. The
// selections themselves are the first entries. Accumulation stops at the
// configured cap.
func (e *Engine) collectMatches(seedPage int, selections []lineSelection) []matchEntry {
	maxMatches := e.cfg.MaxBulkMatches

	type seed struct {
		key  string
		toks []string
	}
	var seeds []seed
	var entries []matchEntry
	seenKeys := make(map[string]bool)
	for _, sel := range selections {
		if sel.key == "" || seenKeys[sel.key] {
			continue
		}
		toks := strings.Fields(sel.key)
		if len(toks) == 0 {
			continue
		}
		seenKeys[sel.key] = true
		seeds = append(seeds, seed{key: sel.key, toks: toks})
		entries = append(entries, matchEntry{key: sel.key, page: seedPage, rect: sel.rect})
	}
	if len(seeds) == 0 {
		return nil
	}

	doc, ok := e.openDoc()
	if !ok {
		return entries
	}
	defer doc.Close()

	type lineID struct{ block, line int }
	for page := 0; page < doc.PageCount(); page++ {
		if len(entries) >= maxMatches {
			break
		}

		byLine := make(map[lineID][]pagetext.Word)
		for _, w := range doc.Words(page) {
			if e.cfg.Normalize(w.Text) == "" {
				continue // pure punctuation or whitespace
			}
			id := lineID{w.Block, w.Line}
			byLine[id] = append(byLine[id], w)
		}

		lineIDs := make([]lineID, 0, len(byLine))
		for id := range byLine {
			lineIDs = append(lineIDs, id)
		}
		sort.Slice(lineIDs, func(i, j int) bool {
			if lineIDs[i].block != lineIDs[j].block {
				return lineIDs[i].block < lineIDs[j].block
			}
			return lineIDs[i].line < lineIDs[j].line
		})

		for _, id := range lineIDs {
			if len(entries) >= maxMatches {
				break
			}
			group := byLine[id]
			// Deterministic left-to-right order even with missing or
			// duplicated word indices.
			sort.SliceStable(group, func(i, j int) bool {
				am, bm := group[i].WordNo < 0, group[j].WordNo < 0
				if am != bm {
					return bm
				}
				if !am && group[i].WordNo != group[j].WordNo {
					return group[i].WordNo < group[j].WordNo
				}
				return group[i].Rect.Normalized().X0 < group[j].Rect.Normalized().X0
			})
			norms := make([]string, len(group))
			for i, w := range group {
				norms[i] = e.cfg.Normalize(w.Text)
			}

			for _, s := range seeds {
				if len(entries) >= maxMatches {
					break
				}

				if len(s.toks) == 1 {
					token := s.toks[0]
					for i, n := range norms {
						if n != token {
							continue
						}
						entries = append(entries, matchEntry{key: s.key, page: page, rect: group[i].Rect})
						if len(entries) >= maxMatches {
							break
						}
					}
					continue
				}

				if len(norms) < len(s.toks) {
					continue
				}
				for i := 0; i+len(s.toks) <= len(norms); i++ {
					if !tokensEqual(norms[i:i+len(s.toks)], s.toks) {
						continue
					}
					rect := group[i].Rect
					for _, w := range group[i+1 : i+len(s.toks)] {
						rect = rect.Union(w.Rect)
					}
					entries = append(entries, matchEntry{key: s.key, page: page, rect: rect})
					if len(entries) >= maxMatches {
						break
					}
				}
			}
		}
	}
	return entries
}

func tokensEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
