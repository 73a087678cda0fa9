package redact

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/redact/idgen"
	"github.com/hazyhaar/redact/pagetext"
)

func testEngine(p pagetext.Provider) *Engine {
	return New(Config{
		Provider:    p,
		NewAutoID:   idgen.Sequence("ai_t"),
		NewManualID: idgen.Sequence("manual_t"),
		NewKeepID:   idgen.Sequence("keep_t"),
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func autoBox(id, text string, page int) *Box {
	return &Box{BoxID: id, Page: page, X0: 10, Y0: 10, X1: 50, Y1: 20, Text: text, EntityType: "PERSON", Confidence: 0.9}
}

func strptr(s string) *string { return &s }

// twoLinePage lays out "John Smith" on line 0 and "555-1234" on line 1.
func twoLineProvider() *pagetext.Memory {
	return &pagetext.Memory{Pages: [][]pagetext.Word{{
		{Rect: pagetext.Rect{X0: 10, Y0: 10, X1: 40, Y1: 20}, Text: "John", Line: 0, WordNo: 0},
		{Rect: pagetext.Rect{X0: 45, Y0: 10, X1: 85, Y1: 20}, Text: "Smith", Line: 0, WordNo: 1},
		{Rect: pagetext.Rect{X0: 10, Y0: 25, X1: 70, Y1: 35}, Text: "555-1234", Line: 1, WordNo: 0},
	}}}
}

func TestRemoveBoxUndoRedo(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_abc", "John Smith", 0)}}}

	if err := e.ApplyBatch(st, []Action{{Type: ActionRemoveBox, BoxID: "ai_abc"}}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("expected box removed")
	}
	if !st.CanUndo() || st.CanRedo() {
		t.Fatalf("history flags: can_undo=%v can_redo=%v", st.CanUndo(), st.CanRedo())
	}

	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	if st.Auto[0].IsRemoved {
		t.Fatal("undo must restore the prior flag")
	}
	if st.CanUndo() || !st.CanRedo() {
		t.Fatalf("history flags after undo: can_undo=%v can_redo=%v", st.CanUndo(), st.CanRedo())
	}

	if err := e.ApplyBatch(st, []Action{{Type: ActionRedo}}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("redo must reapply the removal")
	}

	// UNDO(REDO(S)) == S.
	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}, {Type: ActionRedo}}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("undo-then-redo must be a no-op on final state")
	}
}

func TestRemoveBoxAliases(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_abc", "x", 0)}}}
	if err := e.ApplyBatch(st, []Action{{Type: ActionRemoveAutoBox, BoxID: "ai_abc"}}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("REMOVE_AUTO_BOX must behave like REMOVE_BOX")
	}
	if err := e.ApplyBatch(st, []Action{{Type: ActionRestoreAutoBox, BoxID: "ai_abc"}}); err != nil {
		t.Fatal(err)
	}
	if st.Auto[0].IsRemoved {
		t.Fatal("RESTORE_AUTO_BOX must behave like RESTORE_BOX")
	}
}

func TestDoubleRemoveIdempotentInverse(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_abc", "x", 0)}}}

	batch := []Action{
		{Type: ActionRemoveBox, BoxID: "ai_abc"},
		{Type: ActionRemoveBox, BoxID: "ai_abc"},
	}
	if err := e.ApplyBatch(st, batch); err != nil {
		t.Fatal(err)
	}

	// Undo of the second remove re-removes (prior flag was already true).
	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("undo of a redundant remove must keep the box removed")
	}
	// Undo of the first remove restores.
	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	if st.Auto[0].IsRemoved {
		t.Fatal("undo of the original remove must restore")
	}
}

func TestBatchAbortsAtFirstError(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_1", "a", 0), autoBox("ai_2", "b", 0)}}}

	err := e.ApplyBatch(st, []Action{
		{Type: ActionRemoveBox, BoxID: "ai_1"},
		{Type: ActionRemoveBox, BoxID: "ai_missing"},
		{Type: ActionRemoveBox, BoxID: "ai_2"},
	})
	if !errors.Is(err, ErrUnknownBox) {
		t.Fatalf("expected ErrUnknownBox, got %v", err)
	}
	if !st.Auto[0].IsRemoved {
		t.Fatal("effects before the failing action must remain applied")
	}
	if st.Auto[1].IsRemoved {
		t.Fatal("actions after the failing one must not run")
	}
}

func TestInvalidActions(t *testing.T) {
	e := testEngine(nil)
	st := &State{}

	for _, a := range []Action{
		{},                            // missing type
		{Type: "FROB_BOX"},            // unknown tag
		{Type: ActionRemoveBox},       // missing box_id
		{Type: ActionAddManualBox},    // missing payload
		{Type: ActionUpdateManualBox}, // missing box_id
	} {
		if err := e.ApplyBatch(st, []Action{a}); !errors.Is(err, ErrInvalidAction) {
			t.Errorf("action %+v: expected ErrInvalidAction, got %v", a, err)
		}
	}
}

func TestManualActionsRejectAutoBoxes(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_abc", "x", 0)}}}

	for _, typ := range []string{ActionRemoveManualBox, ActionRestoreManualBox, ActionUpdateManualBox} {
		err := e.ApplyBatch(st, []Action{{Type: typ, BoxID: "ai_abc"}})
		if !errors.Is(err, ErrUnknownBox) {
			t.Errorf("%s on auto box: expected ErrUnknownBox, got %v", typ, err)
		}
	}
}

func TestUpdateManualBoxInverse(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Manual: []*Box{{
		BoxID: "manual_1", Page: 0, X0: 10, Y0: 10, X1: 50, Y1: 20,
		OverlayText: strptr("SECRET"),
	}}}}

	x0 := 99.5
	err := e.ApplyBatch(st, []Action{{
		Type:    ActionUpdateManualBox,
		BoxID:   "manual_1",
		Updates: &Updates{X0: &x0, OverlayText: strptr("HIDDEN")},
	}})
	if err != nil {
		t.Fatal(err)
	}
	b := st.Manual[0]
	if b.X0 != 99.5 || *b.OverlayText != "HIDDEN" {
		t.Fatalf("update not applied: %+v", b)
	}
	if b.Y0 != 10 || b.X1 != 50 {
		t.Fatal("untouched fields must not change")
	}

	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	if b.X0 != 10 || *b.OverlayText != "SECRET" {
		t.Fatalf("undo must restore exactly the touched fields, got %+v", b)
	}
}

func TestAddKeepBoxNotInHistory(t *testing.T) {
	e := testEngine(nil)
	st := &State{}

	err := e.ApplyBatch(st, []Action{{
		Type: ActionAddKeepBox,
		Box:  &BoxPayload{BoxID: "keep_a", Page: 1, X0: 0, Y0: 0, X1: 10, Y1: 10},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Keep) != 1 || st.Keep[0].BoxID != "keep_a" {
		t.Fatalf("keep boxes: %+v", st.Keep)
	}
	if st.CanUndo() {
		t.Fatal("ADD_KEEP_BOX must not be recorded in history")
	}

	// Overwrite by id, unsetting removal.
	st.Keep[0].IsRemoved = true
	err = e.ApplyBatch(st, []Action{{
		Type: ActionAddKeepBox,
		Box:  &BoxPayload{BoxID: "keep_a", Page: 2, X0: 5, Y0: 5, X1: 15, Y1: 15},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Keep) != 1 || st.Keep[0].Page != 2 || st.Keep[0].IsRemoved {
		t.Fatalf("overwrite failed: %+v", st.Keep[0])
	}
}

func TestAddManualBoxSplitsLines(t *testing.T) {
	e := testEngine(twoLineProvider())
	st := &State{}

	err := e.ApplyBatch(st, []Action{{
		Type: ActionAddManualBox,
		Box:  &BoxPayload{Page: 0, X0: 0, Y0: 0, X1: 100, Y1: 40},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Manual) != 2 {
		t.Fatalf("expected one box per line, got %d", len(st.Manual))
	}
	if *st.Manual[0].ManualMatchKey != "john smith" {
		t.Errorf("line 0 key = %q", *st.Manual[0].ManualMatchKey)
	}
	if *st.Manual[1].ManualMatchKey != "555 1234" {
		t.Errorf("line 1 key = %q", *st.Manual[1].ManualMatchKey)
	}
	for _, b := range st.Manual {
		if *b.OverlayText != DefaultOverlayText {
			t.Errorf("overlay = %q, want %q", *b.OverlayText, DefaultOverlayText)
		}
	}

	// Undo soft-removes all created boxes; redo re-activates them.
	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	for _, b := range st.Manual {
		if !b.IsRemoved {
			t.Fatal("undo must soft-remove every created line box")
		}
	}
	if err := e.ApplyBatch(st, []Action{{Type: ActionRedo}}); err != nil {
		t.Fatal(err)
	}
	for _, b := range st.Manual {
		if b.IsRemoved {
			t.Fatal("redo must re-activate every line box")
		}
	}
}

func TestAddManualBoxSingleLineRedoRevives(t *testing.T) {
	provider := &pagetext.Memory{Pages: [][]pagetext.Word{{
		{Rect: pagetext.Rect{X0: 10, Y0: 10, X1: 40, Y1: 20}, Text: "John", Line: 0, WordNo: 0},
		{Rect: pagetext.Rect{X0: 45, Y0: 10, X1: 85, Y1: 20}, Text: "Smith", Line: 0, WordNo: 1},
	}}}
	e := testEngine(provider)
	st := &State{}

	err := e.ApplyBatch(st, []Action{{
		Type: ActionAddManualBox,
		Box:  &BoxPayload{Page: 0, X0: 0, Y0: 0, X1: 100, Y1: 25},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Manual) != 1 {
		t.Fatalf("expected 1 box, got %d", len(st.Manual))
	}
	id := st.Manual[0].BoxID

	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}, {Type: ActionRedo}}); err != nil {
		t.Fatal(err)
	}
	if len(st.Manual) != 1 {
		t.Fatalf("redo must revive the existing box, not duplicate: %d boxes", len(st.Manual))
	}
	if st.Manual[0].BoxID != id || st.Manual[0].IsRemoved {
		t.Fatalf("revived box: %+v", st.Manual[0])
	}
}

func TestAddManualBoxNoDocument(t *testing.T) {
	e := testEngine(nil)
	st := &State{}

	err := e.ApplyBatch(st, []Action{{
		Type: ActionAddManualBox,
		Box:  &BoxPayload{Page: 3, X0: 1, Y0: 2, X1: 3, Y1: 4},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Manual) != 1 {
		t.Fatalf("expected single fallback box, got %d", len(st.Manual))
	}
	b := st.Manual[0]
	if b.BoxID != "manual_t1" {
		t.Fatalf("expected generated id, got %q", b.BoxID)
	}
	if *b.OverlayText != DefaultOverlayText {
		t.Fatalf("overlay = %q", *b.OverlayText)
	}
	if b.ManualMatchKey == nil || *b.ManualMatchKey != "" {
		t.Fatalf("match key should be computed-empty, got %v", b.ManualMatchKey)
	}

	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}}); err != nil {
		t.Fatal(err)
	}
	if !b.IsRemoved {
		t.Fatal("undo must soft-remove the created box")
	}
}

func TestAddManualBoxOverwriteByID(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Manual: []*Box{{
		BoxID: "manual_keep", Page: 0, X0: 1, Y0: 1, X1: 2, Y1: 2, IsRemoved: true,
	}}}}

	err := e.ApplyBatch(st, []Action{{
		Type: ActionAddManualBox,
		Box:  &BoxPayload{BoxID: "manual_keep", Page: 1, X0: 5, Y0: 5, X1: 9, Y1: 9},
	}})
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Manual) != 1 {
		t.Fatalf("overwrite must not duplicate, got %d boxes", len(st.Manual))
	}
	b := st.Manual[0]
	if b.Page != 1 || b.X0 != 5 || b.IsRemoved {
		t.Fatalf("overwrite not applied: %+v", b)
	}
}

func TestUndoRedoEmptyStacksNoop(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_1", "x", 0)}}}
	if err := e.ApplyBatch(st, []Action{{Type: ActionUndo}, {Type: ActionRedo}}); err != nil {
		t.Fatalf("empty-stack undo/redo must be silent no-ops, got %v", err)
	}
	if st.Auto[0].IsRemoved || st.CanUndo() || st.CanRedo() {
		t.Fatal("no-op undo/redo must not change state")
	}
}

func TestNewActionClearsRedoStack(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{Auto: []*Box{autoBox("ai_1", "x", 0)}}}

	batch := []Action{
		{Type: ActionRemoveBox, BoxID: "ai_1"},
		{Type: ActionUndo},
	}
	if err := e.ApplyBatch(st, batch); err != nil {
		t.Fatal(err)
	}
	if !st.CanRedo() {
		t.Fatal("expected redo available after undo")
	}
	if err := e.ApplyBatch(st, []Action{{Type: ActionRemoveBox, BoxID: "ai_1"}}); err != nil {
		t.Fatal(err)
	}
	if st.CanRedo() {
		t.Fatal("a new recorded action must clear the redo stack")
	}
}

func TestBulkSetRemoved(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{
		Auto:   []*Box{autoBox("ai_1", "a", 0)},
		Manual: []*Box{{BoxID: "manual_1", Page: 0}},
	}}

	states := []BoxState{
		{BoxID: "ai_1", IsRemoved: true},
		{BoxID: "manual_1", IsRemoved: true},
		{BoxID: "ghost", IsRemoved: true}, // silently skipped
	}
	a := Action{Type: ActionBulkSetRemoved, Updates: &Updates{States: states}}
	if err := e.ApplyBatch(st, []Action{a}); err != nil {
		t.Fatal(err)
	}
	if !st.Auto[0].IsRemoved || !st.Manual[0].IsRemoved {
		t.Fatal("both known boxes must be flagged")
	}
	inv := st.Past[len(st.Past)-1].Inverse
	if inv == nil || len(inv.Updates.States) != 2 {
		t.Fatalf("inverse must cover only the boxes actually found: %+v", inv)
	}

	// Idempotence: applying the same list again yields the same flags and
	// an inverse that is a no-op relative to the first.
	if err := e.ApplyBatch(st, []Action{a}); err != nil {
		t.Fatal(err)
	}
	inv2 := st.Past[len(st.Past)-1].Inverse
	for _, s := range inv2.Updates.States {
		if !s.IsRemoved {
			t.Fatalf("second inverse must record already-removed flags: %+v", inv2.Updates.States)
		}
	}
}

func TestInverseReplayRestoresPriorFlags(t *testing.T) {
	e := testEngine(twoLineProvider())
	st := &State{Store: Store{
		Auto: []*Box{autoBox("ai_1", "John Smith", 0), autoBox("ai_2", "Jane Doe", 1)},
	}}
	type snapshot struct {
		id      string
		removed bool
		x0      float64
	}
	var before []snapshot
	for _, b := range st.Auto {
		before = append(before, snapshot{b.BoxID, b.IsRemoved, b.X0})
	}

	batch := []Action{
		{Type: ActionRemoveBox, BoxID: "ai_1"},
		{Type: ActionAddManualBox, Box: &BoxPayload{Page: 0, X0: 0, Y0: 0, X1: 100, Y1: 40}},
		{Type: ActionRemoveBox, BoxID: "ai_2"},
	}
	if err := e.ApplyBatch(st, batch); err != nil {
		t.Fatal(err)
	}

	undos := make([]Action, len(st.Past))
	for i := range undos {
		undos[i] = Action{Type: ActionUndo}
	}
	if err := e.ApplyBatch(st, undos); err != nil {
		t.Fatal(err)
	}

	for i, b := range st.Auto {
		if b.BoxID != before[i].id || b.IsRemoved != before[i].removed || b.X0 != before[i].x0 {
			t.Fatalf("auto box %d not restored: %+v", i, b)
		}
	}
	// Created manual boxes survive but are soft-removed.
	for _, b := range st.Manual {
		if !b.IsRemoved {
			t.Fatalf("created box %s must end soft-removed after full undo", b.BoxID)
		}
	}
}

func TestEnsureIDsAssignsPrefixes(t *testing.T) {
	e := testEngine(nil)
	st := &State{Store: Store{
		Auto:   []*Box{{Page: 0}},
		Manual: []*Box{{Page: 0}},
		Keep:   []*KeepBox{{Page: 0}},
	}}
	if err := e.ApplyBatch(st, nil); err != nil {
		t.Fatal(err)
	}
	if st.Auto[0].BoxID != "ai_t1" || !st.Auto[0].IsAuto {
		t.Fatalf("auto box: %+v", st.Auto[0])
	}
	if st.Manual[0].BoxID != "manual_t1" || st.Manual[0].IsAuto {
		t.Fatalf("manual box: %+v", st.Manual[0])
	}
	if st.Keep[0].BoxID != "keep_t1" {
		t.Fatalf("keep box: %+v", st.Keep[0])
	}
}
