// CLAUDE:SUMMARY Box store: the three collections, default identity assignment and id lookup.
package redact

import "github.com/hazyhaar/redact/idgen"

// Collection names a box's home: the auto-detected or the manual list.
type Collection string

const (
	CollectionAuto   Collection = "auto"
	CollectionManual Collection = "manual"
)

// Store holds the three box collections of one session. Boxes are held by
// pointer so lookups hand out mutable references; removal is always a flag
// flip, never a slice deletion.
type Store struct {
	Auto   []*Box     `json:"redaction_boxes"`
	Manual []*Box     `json:"manual_boxes"`
	Keep   []*KeepBox `json:"keep_boxes"`
}

// EnsureIDs assigns a default identity to every box lacking one and pins
// the is_auto flags of both collections. Runs before any action references
// a box, so every id an action can name is stable from then on.
func (s *Store) EnsureIDs(autoID, manualID, keepID idgen.Generator) {
	for _, b := range s.Auto {
		if b.BoxID == "" {
			b.BoxID = autoID()
		}
		b.IsAuto = true
	}
	for _, b := range s.Manual {
		if b.BoxID == "" {
			b.BoxID = manualID()
		}
		b.IsAuto = false
	}
	for _, k := range s.Keep {
		if k.BoxID == "" {
			k.BoxID = keepID()
		}
	}
}

// Find looks a box up by id across Auto then Manual, reporting which
// collection it lives in.
func (s *Store) Find(id string) (Collection, *Box, bool) {
	for _, b := range s.Auto {
		if b.BoxID == id {
			return CollectionAuto, b, true
		}
	}
	for _, b := range s.Manual {
		if b.BoxID == id {
			return CollectionManual, b, true
		}
	}
	return "", nil, false
}

// FindKeep looks a keep box up by id.
func (s *Store) FindKeep(id string) (*KeepBox, bool) {
	for _, k := range s.Keep {
		if k.BoxID == id {
			return k, true
		}
	}
	return nil, false
}
