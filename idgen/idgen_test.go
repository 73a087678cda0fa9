package idgen

import (
	"strings"
	"testing"
)

func TestHexLengthAndAlphabet(t *testing.T) {
	gen := Hex(12)
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := gen()
		if len(id) != 12 {
			t.Fatalf("Hex(12) produced %q (len %d)", id, len(id))
		}
		if strings.Trim(id, "0123456789abcdef") != "" {
			t.Fatalf("Hex(12) produced non-hex id %q", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q after %d draws", id, i)
		}
		seen[id] = true
	}
}

func TestPrefixed(t *testing.T) {
	gen := Prefixed("manual_", Hex(12))
	id := gen()
	if !strings.HasPrefix(id, "manual_") {
		t.Fatalf("expected manual_ prefix, got %q", id)
	}
	if len(id) != len("manual_")+12 {
		t.Fatalf("unexpected length for %q", id)
	}
}

func TestSequence(t *testing.T) {
	gen := Sequence("ai_")
	if got := gen(); got != "ai_1" {
		t.Fatalf("first id = %q, want ai_1", got)
	}
	if got := gen(); got != "ai_2" {
		t.Fatalf("second id = %q, want ai_2", got)
	}
}

func TestUUIDv7Sortable(t *testing.T) {
	gen := UUIDv7()
	a, b := gen(), gen()
	if a >= b {
		t.Fatalf("expected time-sorted ids, got %q then %q", a, b)
	}
}
