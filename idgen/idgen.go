// Package idgen provides pluggable ID generation for the redaction service.
//
// Every constructor that mints identifiers (the action engine, the session
// store) accepts a Generator, making the ID strategy a startup-time decision
// rather than a compile-time one. Tests inject deterministic generators.
package idgen

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

// Generator produces unique string identifiers.
type Generator func() string

// Hex returns a Generator producing lowercase hex IDs of the given length,
// sourced from random UUID bytes. Box identifiers use Hex(12).
func Hex(length int) Generator {
	return func() string {
		var s string
		for len(s) < length {
			u := uuid.New()
			s += hex.EncodeToString(u[:])
		}
		return s[:length]
	}
}

// UUIDv7 returns a Generator that produces RFC 9562 UUID v7 strings.
// Time-sortable, globally unique.
func UUIDv7() Generator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Prefixed wraps a Generator and prepends a fixed prefix to every ID.
// Box identifiers compose this with Hex: "ai_", "manual_", "keep_".
func Prefixed(prefix string, gen Generator) Generator {
	return func() string {
		return prefix + gen()
	}
}

// Sequence returns a Generator producing "<prefix>1", "<prefix>2", ...
// Deterministic; intended for tests. Not safe for concurrent use.
func Sequence(prefix string) Generator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

// Default is the service default for non-box identifiers: UUIDv7.
var Default Generator = UUIDv7()

// New produces an ID using the Default generator.
func New() string {
	return Default()
}
