// CLAUDE:SUMMARY ADD_MANUAL_BOX: one selection becomes one box per extracted line, or a single box when no text is found.
package redact

import "fmt"

// addManualBox creates manual boxes for a drawn rectangle. When the
// document yields one or more distinct lines under the selection, each line
// becomes its own box tagged with the line's key: users draw across
// multiple lines but matching stays line-granular. With no extractable
// lines, a single box is created (or overwritten when the payload carries
// an existing id) at the drawn coordinates.
func (e *Engine) addManualBox(st *State, a Action) (Action, *Action, error) {
	p := a.Box
	if p == nil {
		return Action{}, nil, fmt.Errorf("%w: invalid manual box payload", ErrInvalidAction)
	}

	overlay := DefaultOverlayText
	if p.OverlayText != nil && *p.OverlayText != "" {
		overlay = *p.OverlayText
	}
	entity := p.EntityType
	if entity == "" {
		entity = "MANUAL"
	}
	confidence := 1.0
	if p.Confidence != nil {
		confidence = *p.Confidence
	}

	var addedIDs []string

	doc, ok := e.openDoc()
	var lines []lineSelection
	if ok {
		for _, seg := range doc.LineSegments(p.Page, p.rect()) {
			lines = append(lines, lineSelection{key: seg.Key, rect: seg.Rect})
		}
	}

	if len(lines) > 0 {
		for i, ln := range lines {
			id := ""
			if i == 0 && len(lines) == 1 {
				// A replayed single-line add carries its original id; the
				// box it created is revived in place, not duplicated.
				id = p.BoxID
			}
			if id == "" {
				id = e.cfg.NewManualID()
			}
			key := ln.key
			ov := overlay
			if _, b, exists := st.Find(id); exists {
				b.Page = p.Page
				b.X0, b.Y0, b.X1, b.Y1 = ln.rect.X0, ln.rect.Y0, ln.rect.X1, ln.rect.Y1
				b.EntityType = entity
				b.Confidence = confidence
				b.OverlayText = &ov
				b.IsAuto = false
				b.IsRemoved = false
				b.ManualMatchKey = &key
			} else {
				st.Manual = append(st.Manual, &Box{
					BoxID:          id,
					Page:           p.Page,
					X0:             ln.rect.X0,
					Y0:             ln.rect.Y0,
					X1:             ln.rect.X1,
					Y1:             ln.rect.Y1,
					EntityType:     entity,
					Confidence:     confidence,
					OverlayText:    &ov,
					ManualMatchKey: &key,
				})
			}
			addedIDs = append(addedIDs, id)
		}
	} else {
		id := p.BoxID
		if id == "" {
			id = e.cfg.NewManualID()
		}
		matchKey := ""
		if ok {
			matchKey = doc.MatchKey(p.Page, p.rect())
		}
		ov := overlay
		if _, b, exists := st.Find(id); exists {
			b.Page = p.Page
			b.X0, b.Y0, b.X1, b.Y1 = p.X0, p.Y0, p.X1, p.Y1
			b.EntityType = entity
			b.Confidence = confidence
			b.OverlayText = &ov
			b.IsAuto = false
			b.IsRemoved = false
			b.ManualMatchKey = &matchKey
		} else {
			st.Manual = append(st.Manual, &Box{
				BoxID:          id,
				Page:           p.Page,
				X0:             p.X0,
				Y0:             p.Y0,
				X1:             p.X1,
				Y1:             p.Y1,
				EntityType:     entity,
				Confidence:     confidence,
				OverlayText:    &ov,
				ManualMatchKey: &matchKey,
			})
		}
		addedIDs = append(addedIDs, id)
	}
	if doc != nil {
		doc.Close()
	}

	if len(addedIDs) == 1 {
		fixed := *p
		fixed.BoxID = addedIDs[0]
		stored := Action{Type: ActionAddManualBox, Box: &fixed}
		inverse := &Action{Type: ActionRemoveManualBox, BoxID: addedIDs[0]}
		return stored, inverse, nil
	}

	// Multi-line split: record a replayable bulk flag change once the boxes
	// exist. Redo re-activates them, undo soft-removes them.
	desired := make([]BoxState, len(addedIDs))
	prior := make([]BoxState, len(addedIDs))
	for i, id := range addedIDs {
		desired[i] = BoxState{BoxID: id, IsRemoved: false}
		prior[i] = BoxState{BoxID: id, IsRemoved: true}
	}
	stored := Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: desired}}
	inverse := &Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: prior}}
	return stored, inverse, nil
}
