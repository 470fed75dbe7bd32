package service

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// Finalize drives the post-commit state transition. The price delta is
// computed from the committed order, which is authoritative over any
// earlier projection. A positive delta parks the order in
// ArrangingAdditionalPayment until the extra amount is collected; a
// zero or negative delta restores the pre-modification state captured
// at session start.
//
// A rejected transition is surfaced to the operator but never rolls
// back the committed modification: the edits are already durable, only
// the order's state is out of step.
func (s *Session) Finalize(ctx context.Context) error {
	if s.state != SessionCommitted {
		return sessionStateError("modification.finalize", s.state)
	}

	target := s.priorState
	delta := s.committed.TotalWithTax - s.originalTotalWithTax
	if delta > 0 {
		target = domain.StateArrangingAdditionalPayment
	}

	if _, err := s.engine.cfg.Transitioner.TransitionToState(ctx, s.orderID, target); err != nil {
		s.engine.cfg.Metrics.TransitionFailed()
		s.engine.cfg.Notifier.Error(ctx, "The order was modified but could not be moved out of the modifying state. Please transition it manually.")
		s.engine.cfg.Logger.Error("post-commit transition rejected",
			"order_id", s.orderID,
			"target", target,
			"price_delta", delta,
			"error", err,
		)
		s.state = SessionClosed
		return domain.WrapError(err, domain.EINTERNAL, "modification.finalize",
			"Order modified but state transition failed")
	}

	s.engine.cfg.Logger.Info("modification finalized",
		"order_id", s.orderID,
		"target", target,
		"price_delta", delta,
	)
	s.state = SessionClosed
	return nil
}
