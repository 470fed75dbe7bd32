package service

import (
	"github.com/dukerupert/vidar/internal/domain"
)

// Session-level errors raised by the modification engine itself, as
// opposed to the typed submission failures owned by the orders package.
var (
	// ErrNotPreviewable: the change set fails the preview gate.
	ErrNotPreviewable = domain.Errorf(domain.EINVALID, "", "A note and at least one change are required before previewing")

	// ErrNotModifiable: the order's current state does not permit
	// entering modification.
	ErrNotModifiable = domain.Errorf(domain.ECONFLICT, "", "Order cannot be modified in its current state")

	// ErrSessionState: an operation was invoked from a session state
	// that does not permit it. This is a programmer error in the
	// caller, not an operator-correctable condition.
	ErrSessionState = domain.Errorf(domain.EINTERNAL, "", "Operation not permitted in the session's current state")
)
