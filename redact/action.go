// CLAUDE:SUMMARY Action records: the closed set of edit-action tags and their payload fields.
package redact

import "github.com/hazyhaar/redact/pagetext"

// Action type tags. Unknown tags fail with ErrInvalidAction.
const (
	ActionRemoveBox            = "REMOVE_BOX"
	ActionRemoveAutoBox        = "REMOVE_AUTO_BOX" // alias of REMOVE_BOX
	ActionRestoreBox           = "RESTORE_BOX"
	ActionRestoreAutoBox       = "RESTORE_AUTO_BOX" // alias of RESTORE_BOX
	ActionAddManualBox         = "ADD_MANUAL_BOX"
	ActionRemoveManualBox      = "REMOVE_MANUAL_BOX"
	ActionRestoreManualBox     = "RESTORE_MANUAL_BOX"
	ActionUpdateManualBox      = "UPDATE_MANUAL_BOX"
	ActionAddKeepBox           = "ADD_KEEP_BOX"
	ActionBulkAddSimilar       = "BULK_ADD_MANUAL_BOX_SIMILAR"
	ActionBulkRemoveSimilar    = "BULK_REMOVE_SIMILAR"
	ActionBulkRestoreSimilar   = "BULK_RESTORE_SIMILAR"
	ActionBulkSetRemoved       = "BULK_SET_REMOVED"
	ActionRevertWhitelistAdded = "REVERT_WHITELIST_ADDITION"
	ActionRevertBlacklistAdded = "REVERT_BLACKLIST_ADDITION"
	ActionUndo                 = "UNDO"
	ActionRedo                 = "REDO"
)

// Action is one edit action. It doubles as the history record format:
// every stored action and inverse is self-contained and replayable through
// the engine without further lookup.
type Action struct {
	Type    string      `json:"type"`
	BoxID   string      `json:"box_id,omitempty"`
	Box     *BoxPayload `json:"box,omitempty"`
	Updates *Updates    `json:"updates,omitempty"`
	Term    string      `json:"term,omitempty"`
}

// BoxPayload is the box body of ADD_MANUAL_BOX, ADD_KEEP_BOX and
// BULK_ADD_MANUAL_BOX_SIMILAR.
type BoxPayload struct {
	BoxID       string   `json:"box_id,omitempty"`
	Page        int      `json:"page"`
	X0          float64  `json:"x0"`
	Y0          float64  `json:"y0"`
	X1          float64  `json:"x1"`
	Y1          float64  `json:"y1"`
	EntityType  string   `json:"entity_type,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
	OverlayText *string  `json:"overlay_text,omitempty"`
}

// rect returns the payload rectangle as drawn.
func (p *BoxPayload) rect() pagetext.Rect {
	return pagetext.Rect{X0: p.X0, Y0: p.Y0, X1: p.X1, Y1: p.Y1}
}

// Updates carries the action-specific update body: partial fields for
// UPDATE_MANUAL_BOX, a states list for BULK_SET_REMOVED, a scope for the
// bulk similarity actions. Only the fields relevant to the action are read.
type Updates struct {
	States []BoxState `json:"states,omitempty"`
	Scope  *Scope     `json:"scope,omitempty"`

	Page        *int     `json:"page,omitempty"`
	X0          *float64 `json:"x0,omitempty"`
	Y0          *float64 `json:"y0,omitempty"`
	X1          *float64 `json:"x1,omitempty"`
	Y1          *float64 `json:"y1,omitempty"`
	OverlayText *string  `json:"overlay_text,omitempty"`
}

// BoxState is one (box_id, is_removed) pair of a bulk state change.
type BoxState struct {
	BoxID     string `json:"box_id"`
	IsRemoved bool   `json:"is_removed"`
}

// Scope restricts a bulk similarity group by page and/or containment
// within active keep regions.
type Scope struct {
	Page     *int `json:"page,omitempty"`
	KeepOnly bool `json:"keep_only,omitempty"`
}
