// CLAUDE:SUMMARY Snapshot builder: sanitized box collections, undo/redo flags and learned-term summaries for the host.
package redact

import (
	"sort"

	"github.com/microcosm-cc/bluemonday"
)

// Snapshot is the consistent view of a session returned after every batch.
type Snapshot struct {
	DocumentID         string    `json:"document_id"`
	TotalPages         int       `json:"total_pages"`
	RedactionBoxes     []Box     `json:"redaction_boxes"`
	ManualBoxes        []Box     `json:"manual_boxes"`
	KeepBoxes          []KeepBox `json:"keep_boxes"`
	PayloadType        string    `json:"payload_type"`
	CanUndo            bool      `json:"can_undo"`
	CanRedo            bool      `json:"can_redo"`
	WhitelistAdditions []string  `json:"whitelist_additions"`
	BlacklistAdditions []string  `json:"blacklist_additions"`
}

// sanitizer strips any markup from user- and document-sourced text before
// it leaves the service. The overlay text in particular is rendered by
// clients over the redacted area.
var sanitizer = bluemonday.StrictPolicy()

// Snapshot assembles the public view of a session. totalPages <= 0 is
// resolved by asking the document, when one is available.
func (e *Engine) Snapshot(documentID, payloadType string, st *State, totalPages int) Snapshot {
	if totalPages <= 0 {
		if doc, ok := e.openDoc(); ok {
			totalPages = doc.PageCount()
			doc.Close()
		}
	}

	snap := Snapshot{
		DocumentID:         documentID,
		TotalPages:         totalPages,
		RedactionBoxes:     sanitizeBoxes(st.Auto),
		ManualBoxes:        sanitizeBoxes(st.Manual),
		KeepBoxes:          copyKeepBoxes(st.Keep),
		PayloadType:        payloadType,
		CanUndo:            st.CanUndo(),
		CanRedo:            st.CanRedo(),
		WhitelistAdditions: e.whitelistAdditions(st),
		BlacklistAdditions: e.blacklistAdditions(st),
	}
	return snap
}

// whitelistAdditions summarizes the learned whitelist terms: the distinct
// normalized texts of currently-removed auto boxes.
func (e *Engine) whitelistAdditions(st *State) []string {
	seen := make(map[string]bool)
	for _, b := range st.Auto {
		if !b.IsRemoved {
			continue
		}
		term := e.cfg.Normalize(b.Text)
		if term != "" {
			seen[term] = true
		}
	}
	return sortedTerms(seen)
}

// blacklistAdditions summarizes the learned blacklist terms: the distinct
// non-empty match keys of currently-active manual boxes.
func (e *Engine) blacklistAdditions(st *State) []string {
	seen := make(map[string]bool)
	for _, b := range st.Manual {
		if b.IsRemoved || b.ManualMatchKey == nil {
			continue
		}
		term := e.cfg.Normalize(*b.ManualMatchKey)
		if term != "" {
			seen[term] = true
		}
	}
	return sortedTerms(seen)
}

func sortedTerms(seen map[string]bool) []string {
	terms := make([]string, 0, len(seen))
	for t := range seen {
		terms = append(terms, t)
	}
	sort.Strings(terms)
	return terms
}

func sanitizeBoxes(boxes []*Box) []Box {
	out := make([]Box, len(boxes))
	for i, b := range boxes {
		c := *b
		c.Text = sanitizer.Sanitize(c.Text)
		c.EntityType = sanitizer.Sanitize(c.EntityType)
		if c.OverlayText != nil {
			v := sanitizer.Sanitize(*c.OverlayText)
			c.OverlayText = &v
		}
		if c.ManualMatchKey != nil {
			v := *c.ManualMatchKey
			c.ManualMatchKey = &v
		}
		out[i] = c
	}
	return out
}

func copyKeepBoxes(keeps []*KeepBox) []KeepBox {
	out := make([]KeepBox, len(keeps))
	for i, k := range keeps {
		out[i] = *k
	}
	return out
}
