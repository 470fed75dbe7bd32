// Package service implements the order modification engine: staging,
// the dry-run/commit protocol, outcome resolution and the
// delta-driven state transition.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/notify"
	"github.com/dukerupert/vidar/internal/orders"
	"github.com/dukerupert/vidar/internal/telemetry"
)

// SessionState is the lifecycle state of one edit session.
type SessionState string

const (
	SessionStaging    SessionState = "staging"
	SessionPreviewing SessionState = "previewing"
	SessionPreviewed  SessionState = "previewed"
	SessionCommitting SessionState = "committing"
	SessionCommitted  SessionState = "committed"
	SessionFailed     SessionState = "failed"
	SessionCancelled  SessionState = "cancelled"
	SessionClosed     SessionState = "closed"
)

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Mutator      orders.Mutator
	Transitioner orders.Transitioner
	Reader       orders.Reader
	History      orders.HistoryReader
	Notifier     notify.Sink
	Metrics      *telemetry.Metrics
	Logger       *slog.Logger
}

// Engine opens modification sessions against orders.
type Engine struct {
	cfg EngineConfig
}

// NewEngine creates the modification engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Mutator == nil || cfg.Transitioner == nil || cfg.Reader == nil || cfg.History == nil {
		return nil, fmt.Errorf("engine requires mutator, transitioner, reader and history collaborators")
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLogSink(slog.Default())
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Engine{cfg: cfg}, nil
}

// sessionStateError wraps ErrSessionState with the offending state so
// callers can both match the sentinel and read what happened.
func sessionStateError(op string, state SessionState) error {
	return domain.WrapError(ErrSessionState, domain.EINTERNAL, op,
		fmt.Sprintf("operation not permitted from session state %s", state))
}

// Session is one order edit session: staging, any number of dry runs,
// at most one commit. Discard it after a terminal outcome and open a
// new one from a fresh order read. Not safe for concurrent use.
type Session struct {
	engine *Engine

	orderID string
	state   SessionState
	changes *ChangeSet

	// priorState and originalTotalWithTax are captured once at session
	// start and never recomputed.
	priorState           domain.OrderState
	originalTotalWithTax int64

	original   *domain.Order
	projection *Projection
	committed  *domain.Order
}

// StartSession enters modification mode for an order: captures the
// pre-modification state and total from the order snapshot, then
// transitions it to Modifying. All reads happen before the transition
// so a failed start leaves the order where it was.
func (e *Engine) StartSession(ctx context.Context, orderID string) (*Session, error) {
	order, err := e.cfg.Reader.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read order %s: %w", orderID, err)
	}
	if !domain.Modifiable(order.State) {
		return nil, ErrNotModifiable
	}

	last, err := e.cfg.History.LastTransition(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to read order history for %s: %w", orderID, err)
	}
	if last.To != order.State {
		// The order moved between the snapshot read and here.
		return nil, domain.Conflict("modification.start", "Order state changed while opening the session")
	}

	if _, err := e.cfg.Transitioner.TransitionToState(ctx, orderID, domain.StateModifying); err != nil {
		return nil, fmt.Errorf("failed to enter modification: %w", err)
	}

	e.cfg.Metrics.SessionStarted()
	e.cfg.Logger.Info("modification session started",
		"order_id", orderID,
		"prior_state", order.State,
		"total_with_tax", order.TotalWithTax,
	)

	return &Session{
		engine:               e,
		orderID:              orderID,
		state:                SessionStaging,
		changes:              NewChangeSet(order),
		priorState:           order.State,
		originalTotalWithTax: order.TotalWithTax,
		original:             order,
	}, nil
}

// State returns the session's current state.
func (s *Session) State() SessionState {
	return s.state
}

// Changes exposes the session's change set for staging mutations.
// Staging is only meaningful before a commit; callers must not stage
// while a submission is in flight.
func (s *Session) Changes() *ChangeSet {
	return s.changes
}

// ResetChanges discards the staged edits and starts staging over from
// an empty change set. Permitted whenever staging itself is.
func (s *Session) ResetChanges() error {
	switch s.state {
	case SessionStaging, SessionPreviewed, SessionFailed:
	default:
		return sessionStateError("modification.resetChanges", s.state)
	}
	s.changes = NewChangeSet(s.original)
	return nil
}

// Order returns the order snapshot the session was opened against.
func (s *Session) Order() *domain.Order {
	return s.original
}

// Projection returns the latest dry-run projection, or nil.
func (s *Session) Projection() *Projection {
	return s.projection
}

// SubmitDryRun submits the staged change set with dryRun set. Each
// successful call fully replaces any prior projection. On a typed
// failure the session moves to Failed but the staged edits are
// retained, so the operator can correct and retry with a fresh dry
// run.
func (s *Session) SubmitDryRun(ctx context.Context) (*Projection, error) {
	switch s.state {
	case SessionStaging, SessionPreviewed, SessionFailed:
	default:
		return nil, sessionStateError("modification.dryRun", s.state)
	}
	if !s.changes.CanPreview() {
		return nil, ErrNotPreviewable
	}

	s.state = SessionPreviewing
	projected, err := s.engine.cfg.Mutator.ModifyOrder(ctx, s.changes.BuildRequest(true, nil))
	if err != nil {
		return nil, s.fail(ctx, "modification.dryRun", err)
	}

	s.state = SessionPreviewed
	s.projection = buildProjection(s.original, projected, s.originalTotalWithTax)
	s.engine.cfg.Metrics.Previewed()
	return s.projection, nil
}

// SubmitCommit re-submits the previewed change set with dryRun unset,
// augmented with a refund block when the outcome is a refund. Only
// callable from Previewed, at most once per session.
func (s *Session) SubmitCommit(ctx context.Context, outcome domain.Outcome) (*domain.Order, error) {
	if s.state != SessionPreviewed {
		// A second commit after Committed or Failed is a programmer
		// error, not a recoverable condition.
		return nil, sessionStateError("modification.commit", s.state)
	}
	if outcome.Kind == domain.OutcomeCancel {
		return nil, domain.Errorf(domain.EINTERNAL, "modification.commit",
			"cancel outcome must go through Cancel, not commit")
	}

	var refund *domain.RefundInput
	if outcome.Kind == domain.OutcomeRefund {
		// Rejected before the round-trip; the session stays Previewed
		// so the operator can pick a payment and retry.
		if outcome.PaymentID == "" {
			return nil, orders.ErrRefundPaymentIDMissing
		}
		refund = &domain.RefundInput{PaymentID: outcome.PaymentID, Reason: outcome.Reason}
	}

	s.state = SessionCommitting
	committed, err := s.engine.cfg.Mutator.ModifyOrder(ctx, s.changes.BuildRequest(false, refund))
	if err != nil {
		return nil, s.fail(ctx, "modification.commit", err)
	}

	s.state = SessionCommitted
	s.committed = committed
	s.engine.cfg.Metrics.Committed(committed.TotalWithTax-s.originalTotalWithTax, refund != nil)
	s.engine.cfg.Logger.Info("modification committed",
		"order_id", s.orderID,
		"total_with_tax", committed.TotalWithTax,
		"refund", refund != nil,
	)
	return committed, nil
}

// Cancel discards the staged request and the provisional projection,
// re-fetches the order from the source of truth and returns the
// session to Staging with a fresh change set. Only callable from
// Previewed. The dry run persisted nothing, so no compensating action
// is needed.
func (s *Session) Cancel(ctx context.Context) error {
	if s.state != SessionPreviewed {
		return sessionStateError("modification.cancel", s.state)
	}

	s.state = SessionCancelled
	s.projection = nil
	s.engine.cfg.Metrics.Cancelled()

	// Mandatory re-fetch: provisional dry-run totals must never leak
	// into subsequent reads.
	order, err := s.engine.cfg.Reader.GetOrder(ctx, s.orderID)
	if err != nil {
		return fmt.Errorf("failed to re-fetch order after cancel: %w", err)
	}
	s.original = order
	s.changes = NewChangeSet(order)
	s.state = SessionStaging
	return nil
}

// Close leaves modification mode without committing, restoring the
// order to its pre-modification state. Callable from Staging,
// Previewed or Failed.
func (s *Session) Close(ctx context.Context) error {
	switch s.state {
	case SessionStaging, SessionPreviewed, SessionFailed:
	default:
		return sessionStateError("modification.close", s.state)
	}
	if _, err := s.engine.cfg.Transitioner.TransitionToState(ctx, s.orderID, s.priorState); err != nil {
		return fmt.Errorf("failed to leave modification: %w", err)
	}
	s.state = SessionClosed
	s.projection = nil
	return nil
}

// fail records a typed submission failure: the session moves to
// Failed, the operator is notified with the collaborator-supplied
// message, and the staged edits are retained for correction.
func (s *Session) fail(ctx context.Context, op string, err error) error {
	s.state = SessionFailed
	code := domain.ErrorCode(err)
	s.engine.cfg.Metrics.Failed(code)
	s.engine.cfg.Notifier.Error(ctx, orders.FailureMessage(err))
	s.engine.cfg.Logger.Error("modification submission failed",
		"order_id", s.orderID,
		"op", op,
		"code", code,
		"error", err,
	)
	if orders.IsTypedFailure(err) {
		return err
	}
	return domain.WrapError(err, domain.EINTERNAL, op, "Order modification failed")
}
