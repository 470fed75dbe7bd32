package orders

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/vidar/internal/billing"
	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/shipping"
	"github.com/dukerupert/vidar/internal/tax"
)

// Variant is a catalog entry the store can sell. Price is net.
type Variant struct {
	ID      string
	Name    string
	SKU     string
	Price   int64
	TaxRate float64
	Stock   int
}

// StoreConfig wires the in-memory store's collaborators and limits.
type StoreConfig struct {
	Rates    tax.RateProvider
	Shipping shipping.Provider
	Billing  billing.Provider

	// MaxOrderLines and MaxOrderValue cap an order after modification.
	// Zero disables the respective limit.
	MaxOrderLines int
	MaxOrderValue int64

	Logger *slog.Logger
}

// Store is an in-memory authoritative order store implementing Mutator,
// Transitioner, Reader and HistoryReader. It recomputes totals with the
// same reconciliation math on dry run and commit, so both passes agree
// to the minor unit.
type Store struct {
	mu       sync.Mutex
	orders   map[string]*domain.Order
	variants map[string]Variant
	sm       *domain.StateMachine
	cfg      StoreConfig
}

// NewStore creates an in-memory order store.
func NewStore(cfg StoreConfig) *Store {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		orders:   make(map[string]*domain.Order),
		variants: make(map[string]Variant),
		sm:       domain.NewStateMachine(),
		cfg:      cfg,
	}
}

// AddVariant registers a catalog variant.
func (s *Store) AddVariant(v Variant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.variants[v.ID] = v
}

// SeedOrder stores a deep copy of the order.
func (s *Store) SeedOrder(o *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = o.Clone()
}

// StockLevel returns the available stock for a variant.
func (s *Store) StockLevel(variantID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.variants[variantID].Stock
}

// GetOrder returns a deep copy of the stored order.
func (s *Store) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

// LastTransition returns the most recent state-transition entry.
func (s *Store) LastTransition(_ context.Context, orderID string) (*domain.StateTransition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	last := o.LastTransition()
	if last == nil {
		return nil, domain.Conflict("orders.history", "Order has no transition history")
	}
	entry := *last
	return &entry, nil
}

// TransitionToState moves the order to the target state.
func (s *Store) TransitionToState(_ context.Context, orderID string, target domain.OrderState) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if err := s.sm.Transition(o, target); err != nil {
		return nil, err
	}
	o.UpdatedAt = time.Now().UTC()
	return o.Clone(), nil
}

// ModifyOrder applies a modification request. Dry runs compute the
// projected order on a clone and persist nothing; commits replace the
// stored order, adjust stock and issue any refund, or fail atomically.
func (s *Store) ModifyOrder(ctx context.Context, req domain.ModificationRequest) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.orders[req.OrderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if stored.State != domain.StateModifying {
		return nil, ErrOrderModificationState
	}
	if !req.HasChanges() {
		return nil, ErrNoChangesSpecified
	}

	modified, stockDelta, err := s.applyModification(ctx, stored.Clone(), req)
	if err != nil {
		return nil, err
	}

	priceDelta := modified.TotalWithTax - stored.TotalWithTax

	var refund *domain.Refund
	if !req.DryRun {
		refund, err = s.settleDelta(ctx, stored, req, priceDelta)
		if err != nil {
			return nil, err
		}
	}

	if req.DryRun {
		return modified, nil
	}

	// Commit point: everything below must succeed together.
	if refund != nil {
		modified.Refunds = append(modified.Refunds, *refund)
	}
	for variantID, qty := range stockDelta {
		v, ok := s.variants[variantID]
		if !ok {
			// Existing lines can reference variants retired from the
			// catalog; there is nothing to restock for those.
			continue
		}
		v.Stock -= qty
		s.variants[variantID] = v
	}
	modified.UpdatedAt = time.Now().UTC()
	s.orders[req.OrderID] = modified

	s.cfg.Logger.Info("order modification committed",
		"order_id", req.OrderID,
		"price_delta", priceDelta,
		"note", req.Note,
	)
	return modified.Clone(), nil
}

// settleDelta validates the commit's financial outcome and issues the
// refund when the total went down. Called before any persistence.
func (s *Store) settleDelta(ctx context.Context, stored *domain.Order, req domain.ModificationRequest, priceDelta int64) (*domain.Refund, error) {
	if priceDelta > 0 {
		if len(stored.Payments) == 0 {
			return nil, ErrPaymentMethodMissing
		}
		return nil, nil
	}
	if priceDelta == 0 {
		return nil, nil
	}

	if req.Refund == nil || req.Refund.PaymentID == "" {
		return nil, ErrRefundPaymentIDMissing
	}
	payment := stored.PaymentByID(req.Refund.PaymentID)
	if payment == nil || !payment.Refundable() {
		return nil, ErrRefundPaymentIDMissing
	}

	processed, err := s.cfg.Billing.RefundPayment(ctx, billing.RefundParams{
		TransactionID: payment.TransactionID,
		AmountCents:   -priceDelta,
		Currency:      stored.CurrencyCode,
		Reason:        req.Refund.Reason,
	})
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, "orders.modify", "Refund could not be processed")
	}

	return &domain.Refund{
		ID:        processed.ID,
		PaymentID: req.Refund.PaymentID,
		Total:     processed.AmountCents,
		Reason:    req.Refund.Reason,
		CreatedAt: processed.CreatedAt,
	}, nil
}

// applyModification computes the edited order. Identical for dry run
// and commit so the two passes always agree. Returns the per-variant
// stock decrements a commit must apply.
func (s *Store) applyModification(ctx context.Context, o *domain.Order, req domain.ModificationRequest) (*domain.Order, map[string]int, error) {
	stockDelta := make(map[string]int)

	for _, add := range req.AddedItems {
		if add.Quantity <= 0 {
			return nil, nil, ErrNegativeQuantity
		}
		variant, ok := s.variants[add.ProductVariantID]
		if !ok {
			return nil, nil, domain.NotFound("orders.modify", "product variant", add.ProductVariantID)
		}
		if variant.Stock < add.Quantity {
			return nil, nil, ErrInsufficientStock
		}
		unit := tax.Reconcile(variant.Price, false, variant.TaxRate)
		line := tax.Reconcile(variant.Price*int64(add.Quantity), false, variant.TaxRate)
		o.Lines = append(o.Lines, domain.OrderLine{
			ID:               uuid.New().String(),
			ProductVariantID: variant.ID,
			ProductName:      variant.Name,
			SKU:              variant.SKU,
			Quantity:         add.Quantity,
			UnitPrice:        unit.Net,
			UnitPriceWithTax: unit.Gross,
			TaxRate:          variant.TaxRate,
			LinePrice:        line.Net,
			LinePriceWithTax: line.Gross,
		})
		stockDelta[variant.ID] += add.Quantity
	}

	for _, adj := range req.LineAdjustments {
		if adj.Quantity < 0 {
			return nil, nil, ErrNegativeQuantity
		}
		line := o.Line(adj.OrderLineID)
		if line == nil {
			return nil, nil, domain.NotFound("orders.modify", "order line", adj.OrderLineID)
		}
		if adj.Quantity == 0 {
			stockDelta[line.ProductVariantID] -= line.Quantity
			o.Lines = removeLine(o.Lines, adj.OrderLineID)
			continue
		}
		increase := adj.Quantity - line.Quantity
		if increase > 0 && s.variants[line.ProductVariantID].Stock < increase {
			return nil, nil, ErrInsufficientStock
		}
		stockDelta[line.ProductVariantID] += increase
		line.Quantity = adj.Quantity
		recomputed := tax.Reconcile(line.UnitPrice*int64(adj.Quantity), false, line.TaxRate)
		line.LinePrice = recomputed.Net
		line.LinePriceWithTax = recomputed.Gross
	}

	for _, in := range req.Surcharges {
		source := in.Price
		if in.PriceIncludesTax {
			source = in.PriceWithTax
		}
		pair := tax.Reconcile(source, in.PriceIncludesTax, in.TaxRate)
		o.Surcharges = append(o.Surcharges, domain.Surcharge{
			ID:             uuid.New().String(),
			Description:    in.Description,
			SKU:            in.SKU,
			Price:          pair.Net,
			PriceWithTax:   pair.Gross,
			TaxRate:        in.TaxRate,
			TaxDescription: in.TaxDescription,
		})
	}

	if req.ShippingAddressPatch != nil {
		o.ShippingAddress = req.ShippingAddressPatch.Apply(o.ShippingAddress)
	}
	if req.BillingAddressPatch != nil {
		o.BillingAddress = req.BillingAddressPatch.Apply(o.BillingAddress)
	}

	var subTotal, subTotalWithTax int64
	var totalQuantity int
	for _, line := range o.Lines {
		subTotal += line.LinePrice
		subTotalWithTax += line.LinePriceWithTax
		totalQuantity += line.Quantity
	}
	for _, sc := range o.Surcharges {
		subTotal += sc.Price
		subTotalWithTax += sc.PriceWithTax
	}

	shippingNet := int64(0)
	if o.ShippingWithTax > 0 || req.RecalculateShipping {
		shippingNet, o.ShippingWithTax = s.shippingCost(ctx, o, req, totalQuantity, subTotal)
	}

	o.SubTotalWithTax = subTotalWithTax
	o.Total = subTotal + shippingNet
	o.TotalWithTax = subTotalWithTax + o.ShippingWithTax

	if s.cfg.MaxOrderLines > 0 && len(o.Lines) > s.cfg.MaxOrderLines {
		return nil, nil, ErrOrderLimit
	}
	if s.cfg.MaxOrderValue > 0 && o.TotalWithTax > s.cfg.MaxOrderValue {
		return nil, nil, ErrOrderLimit
	}

	return o, stockDelta, nil
}

// shippingCost returns the (net, gross) shipping for the edited order.
// Without the recalculation flag the existing gross is kept and the net
// is derived from it at the current shipping rate.
func (s *Store) shippingCost(ctx context.Context, o *domain.Order, req domain.ModificationRequest, totalQuantity int, subTotal int64) (int64, int64) {
	rate, err := s.cfg.Rates.RateFor(ctx, tax.CategoryShipping, o.ShippingAddress)
	if err != nil {
		s.cfg.Logger.Warn("shipping tax rate lookup failed, assuming zero", "error", err)
		rate = 0
	}

	if !req.RecalculateShipping {
		return tax.Reconcile(o.ShippingWithTax, true, rate).Net, o.ShippingWithTax
	}

	quote, err := s.cfg.Shipping.Quote(ctx, shipping.QuoteParams{
		DestinationAddress: o.ShippingAddress,
		TotalQuantity:      totalQuantity,
		SubTotal:           subTotal,
	})
	if err != nil {
		// Keep the existing shipping cost rather than fail the whole
		// modification over a quoting hiccup.
		s.cfg.Logger.Warn("shipping requote failed, keeping existing cost", "error", err)
		return tax.Reconcile(o.ShippingWithTax, true, rate).Net, o.ShippingWithTax
	}
	pair := tax.Reconcile(quote.Cost, false, rate)
	return pair.Net, pair.Gross
}

func removeLine(lines []domain.OrderLine, lineID string) []domain.OrderLine {
	out := lines[:0]
	for _, l := range lines {
		if l.ID != lineID {
			out = append(out, l)
		}
	}
	return out
}

// NewOrderCode generates a human-readable order code.
func NewOrderCode() string {
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), uuid.New().String()[:4])
}
