package service

import (
	"context"

	"github.com/dukerupert/vidar/internal/domain"
)

// Projection is the provisional result of a dry run: the projected
// order alongside the original, with the price delta computed against
// the total captured at session start.
type Projection struct {
	Original  *domain.Order
	Projected *domain.Order

	OriginalTotalWithTax  int64
	ProjectedTotalWithTax int64
	// PriceDelta is projected minus original. Positive means the
	// customer owes more, negative means a refund is due.
	PriceDelta int64

	AddedLines   []domain.OrderLine
	RemovedLines []domain.OrderLine
	ChangedLines []LineChange
	Surcharges   []domain.Surcharge
}

// LineChange is a quantity change on an existing order line.
type LineChange struct {
	Line        domain.OrderLine
	OldQuantity int
	NewQuantity int
}

// RefundCandidates lists the projected order's payments that a refund
// could be issued against.
func (p *Projection) RefundCandidates() []domain.Payment {
	var out []domain.Payment
	for _, pay := range p.Projected.Payments {
		if pay.Refundable() {
			out = append(out, pay)
		}
	}
	return out
}

func buildProjection(original, projected *domain.Order, originalTotalWithTax int64) *Projection {
	p := &Projection{
		Original:              original,
		Projected:             projected,
		OriginalTotalWithTax:  originalTotalWithTax,
		ProjectedTotalWithTax: projected.TotalWithTax,
		PriceDelta:            projected.TotalWithTax - originalTotalWithTax,
		Surcharges:            projected.Surcharges,
	}

	before := make(map[string]domain.OrderLine, len(original.Lines))
	for _, line := range original.Lines {
		before[line.ID] = line
	}
	after := make(map[string]bool, len(projected.Lines))
	for _, line := range projected.Lines {
		after[line.ID] = true
		old, ok := before[line.ID]
		switch {
		case !ok:
			p.AddedLines = append(p.AddedLines, line)
		case old.Quantity != line.Quantity:
			p.ChangedLines = append(p.ChangedLines, LineChange{
				Line:        line,
				OldQuantity: old.Quantity,
				NewQuantity: line.Quantity,
			})
		}
	}
	for _, line := range original.Lines {
		if !after[line.ID] {
			p.RemovedLines = append(p.RemovedLines, line)
		}
	}
	return p
}

// OutcomeFunc inspects a projection and chooses how to proceed. It is
// how an interactive surface (prompt, API client) plugs into Complete.
type OutcomeFunc func(ctx context.Context, p *Projection) (domain.Outcome, error)

// Complete runs the whole protocol: dry run, outcome decision, then
// either cancel or commit-and-finalize. The decide callback sees the
// projection and returns Cancel, Apply or Refund. On Apply or Refund
// the committed order is returned with the order already transitioned;
// on Cancel the session is back in Staging and the order is nil.
func (s *Session) Complete(ctx context.Context, decide OutcomeFunc) (*domain.Order, error) {
	projection, err := s.SubmitDryRun(ctx)
	if err != nil {
		return nil, err
	}

	outcome, err := decide(ctx, projection)
	if err != nil {
		return nil, err
	}

	if outcome.Kind == domain.OutcomeCancel {
		return nil, s.Cancel(ctx)
	}

	committed, err := s.SubmitCommit(ctx, outcome)
	if err != nil {
		return nil, err
	}
	if err := s.Finalize(ctx); err != nil {
		return committed, err
	}
	return committed, nil
}
