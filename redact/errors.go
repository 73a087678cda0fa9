package redact

import (
	"errors"
	"fmt"
)

// Engine error kinds. The HTTP boundary maps all three to a client error;
// inside a batch the first one aborts processing at that action while
// earlier effects stay applied.
var (
	// ErrInvalidAction marks a malformed action: missing type, missing
	// required box_id or term, unparseable box payload, unknown tag.
	ErrInvalidAction = errors.New("invalid action")

	// ErrUnknownBox marks a box_id that resolves to nothing, or to a box
	// in the wrong collection.
	ErrUnknownBox = errors.New("unknown box")

	// ErrUnsupportedPayload marks a batch applied to a non-PDF session.
	ErrUnsupportedPayload = errors.New("unsupported payload type")
)

func errInvalidPayload(actionType string) error {
	return fmt.Errorf("%w: %s requires a box payload", ErrInvalidAction, actionType)
}
