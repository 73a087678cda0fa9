// CLAUDE:SUMMARY Bulk group actions: remove/restore similar by match key, whitelist/blacklist reverts, batch match-key materialization.
package redact

import "fmt"

// autoMatchKey derives an auto box's grouping key from its detected text,
// recomputed on demand and never cached.
func (e *Engine) autoMatchKey(b *Box) string {
	return e.cfg.Normalize(b.Text)
}

// ensureManualMatchKeys fills the manual match key of every manual box
// still missing one, in a single document session. Batch materialization:
// grouping logic must never trigger per-box document opens.
func (e *Engine) ensureManualMatchKeys(st *State) {
	var missing []*Box
	for _, b := range st.Manual {
		if b.ManualMatchKey == nil {
			missing = append(missing, b)
		}
	}
	if len(missing) == 0 {
		return
	}
	doc, ok := e.openDoc()
	if !ok {
		return // keys stay unresolved; grouping treats them as empty
	}
	defer doc.Close()
	for _, b := range missing {
		key := doc.MatchKey(b.Page, b.Rect())
		b.ManualMatchKey = &key
	}
}

// bulkSimilar gathers every box sharing the target's match key, applies the
// scope filter and flips the whole group's removal flag. An empty
// post-filter group reports empty=true: a silent no-op with no history.
func (e *Engine) bulkSimilar(st *State, a Action, wantsRemoved bool) (Action, *Action, bool, error) {
	actionType := ActionBulkRestoreSimilar
	if wantsRemoved {
		actionType = ActionBulkRemoveSimilar
	}
	if a.BoxID == "" {
		return Action{}, nil, true, fmt.Errorf("%w: %s requires box_id", ErrInvalidAction, actionType)
	}
	kind, target, ok := st.Find(a.BoxID)
	if !ok {
		return Action{}, nil, true, fmt.Errorf("%w: %s", ErrUnknownBox, a.BoxID)
	}

	var scope *Scope
	if a.Updates != nil {
		scope = a.Updates.Scope
	}

	var group []*Box
	if kind == CollectionAuto {
		key := e.autoMatchKey(target)
		if key == "" {
			group = []*Box{target}
		} else {
			for _, b := range st.Auto {
				if e.autoMatchKey(b) == key {
					group = append(group, b)
				}
			}
		}
	} else {
		e.ensureManualMatchKeys(st)
		key := ""
		if target.ManualMatchKey != nil {
			key = *target.ManualMatchKey
		}
		if key == "" {
			group = []*Box{target}
		} else {
			for _, b := range st.Manual {
				if b.ManualMatchKey != nil && *b.ManualMatchKey == key {
					group = append(group, b)
				}
			}
		}
	}

	group = filterScope(group, scope, st.Keep)
	if len(group) == 0 {
		return Action{}, nil, true, nil
	}

	// The redo action stores exact box ids, not a fuzzy re-match.
	stored, inverse := e.flipGroup(group, wantsRemoved)
	return stored, inverse, false, nil
}

// revertWhitelist undoes a whitelist addition: every currently-removed auto
// box whose detected text normalizes to the term is restored.
func (e *Engine) revertWhitelist(st *State, a Action) (Action, *Action, bool, error) {
	if a.Term == "" {
		return Action{}, nil, true, fmt.Errorf("%w: REVERT_WHITELIST_ADDITION requires term", ErrInvalidAction)
	}
	normalized := e.cfg.Normalize(a.Term)
	if normalized == "" {
		return Action{}, nil, true, nil
	}

	var group []*Box
	for _, b := range st.Auto {
		if !b.IsRemoved {
			continue
		}
		if b.Text == "" || e.cfg.Normalize(b.Text) != normalized {
			continue
		}
		group = append(group, b)
	}
	if len(group) == 0 {
		return Action{}, nil, true, nil
	}

	stored, inverse := e.flipGroup(group, false)
	return stored, inverse, false, nil
}

// revertBlacklist undoes a blacklist addition: every currently-active
// manual box whose match key equals the term, or whose underlying document
// text yields the term as a learned phrase, is removed.
func (e *Engine) revertBlacklist(st *State, a Action) (Action, *Action, bool, error) {
	if a.Term == "" {
		return Action{}, nil, true, fmt.Errorf("%w: REVERT_BLACKLIST_ADDITION requires term", ErrInvalidAction)
	}
	normalized := e.cfg.Normalize(a.Term)
	if normalized == "" {
		return Action{}, nil, true, nil
	}

	doc, haveDoc := e.openDoc()
	var group []*Box
	for _, b := range st.Manual {
		if b.IsRemoved {
			continue
		}
		key := ""
		if b.ManualMatchKey != nil {
			key = e.cfg.Normalize(*b.ManualMatchKey)
		}
		if key != "" && key == normalized {
			group = append(group, b)
			continue
		}
		if !haveDoc {
			continue
		}
		text := doc.TextUnder(b.Page, b.Rect())
		if text == "" {
			continue
		}
		for _, phrase := range e.cfg.BlacklistPhrases(text) {
			if phrase == normalized {
				group = append(group, b)
				break
			}
		}
	}
	if haveDoc {
		doc.Close()
	}
	if len(group) == 0 {
		return Action{}, nil, true, nil
	}

	stored, inverse := e.flipGroup(group, true)
	return stored, inverse, false, nil
}

// flipGroup applies a removal flag to a whole group, returning the stored
// bulk action and the inverse built from the prior flags.
func (e *Engine) flipGroup(group []*Box, removed bool) (Action, *Action) {
	prior := make([]BoxState, len(group))
	desired := make([]BoxState, len(group))
	for i, b := range group {
		prior[i] = BoxState{BoxID: b.BoxID, IsRemoved: b.IsRemoved}
		desired[i] = BoxState{BoxID: b.BoxID, IsRemoved: removed}
		b.IsRemoved = removed
	}
	stored := Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: desired}}
	inverse := &Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: prior}}
	return stored, inverse
}
