// CLAUDE:SUMMARY Action engine: dispatch over the closed action set, inverse computation, history recording, undo/redo replay.
package redact

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/redact/idgen"
	"github.com/hazyhaar/redact/learn"
	"github.com/hazyhaar/redact/pagetext"
)

// DefaultMaxBulkMatches caps accumulated matches in one bulk similarity
// run. The exact value is a compatibility contract: callers must not assume
// completeness beyond it.
const DefaultMaxBulkMatches = 250

// Config configures an Engine.
type Config struct {
	// Provider opens the session's document. nil means no document is
	// available; every text-dependent operation degrades to its fallback.
	Provider pagetext.Provider

	// ID generators per box variant. Defaults: prefix + 12 hex chars.
	NewAutoID   idgen.Generator
	NewManualID idgen.Generator
	NewKeepID   idgen.Generator

	// Normalize is the match-key normalization. Default: learn.Normalize.
	Normalize func(string) string

	// BlacklistPhrases extracts learned phrases from box text for
	// REVERT_BLACKLIST_ADDITION. Default: learn.ExtractBlacklistPhrases.
	BlacklistPhrases func(string) []string

	// MaxBulkMatches caps one bulk similarity run. Default 250.
	MaxBulkMatches int

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.NewAutoID == nil {
		c.NewAutoID = idgen.Prefixed(AutoIDPrefix, idgen.Hex(12))
	}
	if c.NewManualID == nil {
		c.NewManualID = idgen.Prefixed(ManualIDPrefix, idgen.Hex(12))
	}
	if c.NewKeepID == nil {
		c.NewKeepID = idgen.Prefixed(KeepIDPrefix, idgen.Hex(12))
	}
	if c.Normalize == nil {
		c.Normalize = learn.Normalize
	}
	if c.BlacklistPhrases == nil {
		c.BlacklistPhrases = learn.ExtractBlacklistPhrases
	}
	if c.MaxBulkMatches <= 0 {
		c.MaxBulkMatches = DefaultMaxBulkMatches
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Engine interprets edit actions against one session's State. It is
// single-threaded: the caller must serialize batches per session.
type Engine struct {
	cfg Config
}

// New creates an Engine with the given configuration.
func New(cfg Config) *Engine {
	cfg.defaults()
	return &Engine{cfg: cfg}
}

// ApplyBatch applies an ordered batch of actions. The first invalid action
// aborts the batch at that point; effects of earlier actions in the batch
// remain applied. There is no batch atomicity.
func (e *Engine) ApplyBatch(st *State, actions []Action) error {
	e.EnsureIDs(st)
	for i, a := range actions {
		if err := e.apply(st, a, true); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}

// EnsureIDs assigns the engine's default identities to every box still
// lacking one. Runs at session creation and before every batch, so the id
// set a snapshot reports never shifts afterwards.
func (e *Engine) EnsureIDs(st *State) {
	st.EnsureIDs(e.cfg.NewAutoID, e.cfg.NewManualID, e.cfg.NewKeepID)
}

// apply interprets one action. recordHistory is disabled when the engine
// re-enters itself for undo/redo replay; fallback delegation (bulk similar
// degrading to a plain add) passes the caller's flag through. Nesting depth
// is bounded by a small constant in all defined flows.
func (e *Engine) apply(st *State, a Action, recordHistory bool) error {
	typ := strings.ToUpper(strings.TrimSpace(a.Type))
	if typ == "" {
		return fmt.Errorf("%w: action missing 'type'", ErrInvalidAction)
	}

	switch typ {
	case ActionUndo:
		if len(st.Past) == 0 {
			return nil
		}
		entry := st.Past[len(st.Past)-1]
		st.Past = st.Past[:len(st.Past)-1]
		if entry.Inverse != nil {
			if err := e.apply(st, *entry.Inverse, false); err != nil {
				return fmt.Errorf("undo: %w", err)
			}
		}
		st.Future = append(st.Future, entry)
		return nil

	case ActionRedo:
		if len(st.Future) == 0 {
			return nil
		}
		entry := st.Future[len(st.Future)-1]
		st.Future = st.Future[:len(st.Future)-1]
		if err := e.apply(st, entry.Action, false); err != nil {
			return fmt.Errorf("redo: %w", err)
		}
		st.Past = append(st.Past, entry)
		return nil
	}

	var (
		stored  Action
		inverse *Action
		err     error
	)
	shouldRecord := recordHistory

	switch typ {
	case ActionRemoveBox, ActionRemoveAutoBox:
		stored = a
		inverse, err = e.setRemoved(st, typ, a.BoxID, true)

	case ActionRestoreBox, ActionRestoreAutoBox:
		stored = a
		inverse, err = e.setRemoved(st, typ, a.BoxID, false)

	case ActionRemoveManualBox:
		stored = a
		inverse, err = e.setManualRemoved(st, typ, a.BoxID, true)

	case ActionRestoreManualBox:
		stored = a
		inverse, err = e.setManualRemoved(st, typ, a.BoxID, false)

	case ActionUpdateManualBox:
		stored = a
		inverse, err = e.updateManualBox(st, a)

	case ActionAddKeepBox:
		// Keep-box edits are intentionally not recorded in undo/redo history.
		shouldRecord = false
		err = e.addKeepBox(st, a)

	case ActionAddManualBox:
		stored, inverse, err = e.addManualBox(st, a)

	case ActionBulkAddSimilar:
		var delegated bool
		stored, inverse, delegated, err = e.bulkAddSimilar(st, a)
		if delegated || err != nil {
			if delegated && err == nil {
				return e.apply(st, stored, recordHistory)
			}
			return err
		}

	case ActionBulkRemoveSimilar, ActionBulkRestoreSimilar:
		var empty bool
		stored, inverse, empty, err = e.bulkSimilar(st, a, typ == ActionBulkRemoveSimilar)
		if empty {
			return err // silent no-op, no history entry
		}

	case ActionBulkSetRemoved:
		stored, inverse = e.bulkSetRemoved(st, a)

	case ActionRevertWhitelistAdded:
		var empty bool
		stored, inverse, empty, err = e.revertWhitelist(st, a)
		if empty {
			return err
		}

	case ActionRevertBlacklistAdded:
		var empty bool
		stored, inverse, empty, err = e.revertBlacklist(st, a)
		if empty {
			return err
		}

	default:
		return fmt.Errorf("%w: unsupported action type %q", ErrInvalidAction, typ)
	}

	if err != nil {
		return err
	}
	if shouldRecord {
		st.record(stored, inverse)
	}
	return nil
}

// setRemoved flips is_removed on a box found across Auto+Manual. The
// inverse is computed from the prior flag, so a double remove is idempotent
// and its inverse re-removes rather than restores.
func (e *Engine) setRemoved(st *State, actionType, id string, removed bool) (*Action, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s requires box_id", ErrInvalidAction, actionType)
	}
	_, b, ok := st.Find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBox, id)
	}
	before := b.IsRemoved
	b.IsRemoved = removed
	inv := Action{Type: ActionRestoreBox, BoxID: id}
	if before {
		inv.Type = ActionRemoveBox
	}
	return &inv, nil
}

// setManualRemoved is setRemoved restricted to the manual collection.
func (e *Engine) setManualRemoved(st *State, actionType, id string, removed bool) (*Action, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: %s requires box_id", ErrInvalidAction, actionType)
	}
	kind, b, ok := st.Find(id)
	if !ok || kind != CollectionManual {
		return nil, fmt.Errorf("%w: unknown manual box %s", ErrUnknownBox, id)
	}
	before := b.IsRemoved
	b.IsRemoved = removed
	inv := Action{Type: ActionRestoreManualBox, BoxID: id}
	if before {
		inv.Type = ActionRemoveManualBox
	}
	return &inv, nil
}

// updateManualBox applies a partial field update to one manual box. The
// inverse restores exactly the prior values of the touched fields.
func (e *Engine) updateManualBox(st *State, a Action) (*Action, error) {
	if a.BoxID == "" {
		return nil, fmt.Errorf("%w: UPDATE_MANUAL_BOX requires box_id", ErrInvalidAction)
	}
	kind, b, ok := st.Find(a.BoxID)
	if !ok || kind != CollectionManual {
		return nil, fmt.Errorf("%w: unknown manual box %s", ErrUnknownBox, a.BoxID)
	}
	u := a.Updates
	if u == nil {
		u = &Updates{}
	}

	prior := &Updates{}
	if u.Page != nil {
		v := b.Page
		prior.Page = &v
		b.Page = *u.Page
	}
	if u.X0 != nil {
		v := b.X0
		prior.X0 = &v
		b.X0 = *u.X0
	}
	if u.Y0 != nil {
		v := b.Y0
		prior.Y0 = &v
		b.Y0 = *u.Y0
	}
	if u.X1 != nil {
		v := b.X1
		prior.X1 = &v
		b.X1 = *u.X1
	}
	if u.Y1 != nil {
		v := b.Y1
		prior.Y1 = &v
		b.Y1 = *u.Y1
	}
	if u.OverlayText != nil {
		if b.OverlayText != nil {
			v := *b.OverlayText
			prior.OverlayText = &v
		}
		v := *u.OverlayText
		b.OverlayText = &v
	}
	return &Action{Type: ActionUpdateManualBox, BoxID: a.BoxID, Updates: prior}, nil
}

// addKeepBox creates or overwrites a keep box by id. Not undoable.
func (e *Engine) addKeepBox(st *State, a Action) error {
	p := a.Box
	if p == nil {
		return fmt.Errorf("%w: ADD_KEEP_BOX requires a box payload", ErrInvalidAction)
	}
	id := p.BoxID
	if id == "" {
		id = e.cfg.NewKeepID()
	}
	if k, ok := st.FindKeep(id); ok {
		k.Page = p.Page
		k.X0, k.Y0, k.X1, k.Y1 = p.X0, p.Y0, p.X1, p.Y1
		k.IsRemoved = false
		return nil
	}
	st.Keep = append(st.Keep, &KeepBox{
		BoxID: id,
		Page:  p.Page,
		X0:    p.X0, Y0: p.Y0, X1: p.X1, Y1: p.Y1,
	})
	return nil
}

// bulkSetRemoved is the primitive bulk state change: apply each requested
// flag and build the inverse from the actual prior flags observed. Unknown
// ids are skipped, not errors, so a stored bulk action replays safely
// against a collection that has since changed shape.
func (e *Engine) bulkSetRemoved(st *State, a Action) (Action, *Action) {
	var states []BoxState
	if a.Updates != nil {
		states = a.Updates.States
	}

	var prior []BoxState
	for _, s := range states {
		if s.BoxID == "" {
			continue
		}
		_, b, ok := st.Find(s.BoxID)
		if !ok {
			continue
		}
		prior = append(prior, BoxState{BoxID: b.BoxID, IsRemoved: b.IsRemoved})
		b.IsRemoved = s.IsRemoved
	}

	stored := Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: states}}
	inverse := &Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: prior}}
	return stored, inverse
}

// openDoc acquires the session document for one action step. A nil
// provider or a failed open degrades to "no data available"; document
// access failures are never fatal to the batch.
func (e *Engine) openDoc() (pagetext.Document, bool) {
	if e.cfg.Provider == nil {
		return nil, false
	}
	doc, err := e.cfg.Provider.Open()
	if err != nil {
		e.cfg.Logger.Debug("document open failed, degrading to no data", "error", err)
		return nil, false
	}
	return doc, true
}
