// CLAUDE:SUMMARY Box model: Auto/Manual redaction boxes, Keep exclusion zones, rect helpers and rounded rect keys.
// Package redact implements the edit-action engine of an interactive
// document-redaction session: the box collections, the undo/redo history
// that records every mutating action with its precomputed inverse, and the
// bulk text-similarity matcher.
package redact

import (
	"math"

	"github.com/hazyhaar/redact/pagetext"
)

// ID prefixes; the prefix identifies the box variant.
const (
	AutoIDPrefix   = "ai_"
	ManualIDPrefix = "manual_"
	KeepIDPrefix   = "keep_"
)

// DefaultOverlayText is rendered over a manual redaction when the caller
// does not supply overlay text.
const DefaultOverlayText = "REDACTED"

// Box is an auto-detected or manual redaction box. Coordinates are kept
// exactly as supplied (x0 may exceed x1); normalization happens on demand.
// Boxes are never hard-deleted by user actions, only flagged removed.
type Box struct {
	BoxID      string  `json:"box_id,omitempty"`
	Page       int     `json:"page"`
	X0         float64 `json:"x0"`
	Y0         float64 `json:"y0"`
	X1         float64 `json:"x1"`
	Y1         float64 `json:"y1"`
	EntityType string  `json:"entity_type,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`

	// Text is the detected text of an auto box; its normalized form is the
	// auto match key, recomputed on demand and never cached.
	Text string `json:"text,omitempty"`

	OverlayText *string `json:"overlay_text,omitempty"`
	IsAuto      bool    `json:"is_auto"`
	IsRemoved   bool    `json:"is_removed"`

	// ManualMatchKey groups similar manual boxes. nil means not yet
	// computed; empty means computed with no extractable text.
	ManualMatchKey *string `json:"manual_match_key,omitempty"`
}

// Rect returns the box rectangle as drawn (not normalized).
func (b *Box) Rect() pagetext.Rect {
	return pagetext.Rect{X0: b.X0, Y0: b.Y0, X1: b.X1, Y1: b.Y1}
}

// KeepBox is an exclusion zone scoping bulk operations; never itself redacted.
type KeepBox struct {
	BoxID     string  `json:"box_id,omitempty"`
	Page      int     `json:"page"`
	X0        float64 `json:"x0"`
	Y0        float64 `json:"y0"`
	X1        float64 `json:"x1"`
	Y1        float64 `json:"y1"`
	IsRemoved bool    `json:"is_removed"`
}

// Rect returns the keep-box rectangle as drawn.
func (k *KeepBox) Rect() pagetext.Rect {
	return pagetext.Rect{X0: k.X0, Y0: k.Y0, X1: k.X1, Y1: k.Y1}
}

// rectKeyPrecision is the decimal precision of rounded rect identities.
// The two-decimal format is a compatibility contract with stored sessions.
const rectKeyPrecision = 2

// rectKey identifies a rectangle on a page by its rounded coordinates.
// It deduplicates matcher candidates and merges them into coincident
// existing manual boxes.
type rectKey struct {
	Page           int
	X0, Y0, X1, Y1 float64
}

func makeRectKey(page int, r pagetext.Rect) rectKey {
	return rectKey{
		Page: page,
		X0:   round(r.X0),
		Y0:   round(r.Y0),
		X1:   round(r.X1),
		Y1:   round(r.Y1),
	}
}

func round(f float64) float64 {
	pow := math.Pow(10, rectKeyPrecision)
	return math.Round(f*pow) / pow
}
