// Package orders defines the contracts the modification engine requires
// from the order subsystem, and an in-memory reference implementation.
package orders

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// Mutator applies a modification request to an order.
//
// A request with DryRun set must never persist anything: the returned
// order carries the projected totals and lines only. A commit request
// either fully applies every staged edit plus any refund, or fully
// fails with one of the typed errors in errors.go.
type Mutator interface {
	ModifyOrder(ctx context.Context, req domain.ModificationRequest) (*domain.Order, error)
}

// Transitioner moves an order through its state machine.
type Transitioner interface {
	// TransitionToState requests a transition to the target state.
	// A rejected transition returns an error wrapping
	// domain.ErrInvalidTransition; the order is left unchanged.
	TransitionToState(ctx context.Context, orderID string, target domain.OrderState) (*domain.Order, error)
}

// Reader fetches the authoritative order record. The engine re-reads
// through this after every terminal outcome so provisional dry-run
// totals never leak into subsequent reads.
type Reader interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

// HistoryReader exposes an order's state-transition history.
type HistoryReader interface {
	// LastTransition returns the most recent state-transition entry.
	// Used once at session start to confirm the order snapshot is
	// current before entering modification.
	LastTransition(ctx context.Context, orderID string) (*domain.StateTransition, error)
}
