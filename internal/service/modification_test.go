package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dukerupert/vidar/internal/billing"
	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/notify"
	"github.com/dukerupert/vidar/internal/orders"
	"github.com/dukerupert/vidar/internal/service"
	"github.com/dukerupert/vidar/internal/shipping"
	"github.com/dukerupert/vidar/internal/tax"
)

type testHarness struct {
	store    *orders.Store
	billing  *billing.MockProvider
	notifier *notify.MockSink
	engine   *service.Engine
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	mockBilling := billing.NewMockProvider()
	store := orders.NewStore(orders.StoreConfig{
		Rates:    tax.NewMockRateProvider(10),
		Shipping: shipping.NewMockProvider(500),
		Billing:  mockBilling,
	})
	store.AddVariant(orders.Variant{
		ID:      "variant-1",
		Name:    "House Blend - 1lb",
		SKU:     "HB-1LB",
		Price:   500,
		TaxRate: 10,
		Stock:   10,
	})
	notifier := notify.NewMockSink()
	engine, err := service.NewEngine(service.EngineConfig{
		Mutator:      store,
		Transitioner: store,
		Reader:       store,
		History:      store,
		Notifier:     notifier,
	})
	require.NoError(t, err)
	return &testHarness{store: store, billing: mockBilling, notifier: notifier, engine: engine}
}

// seedSettledOrder stores an order in PaymentSettled with one untaxed
// line so expected totals stay exact under recomputation.
func (h *testHarness) seedSettledOrder(totalWithTax int64) {
	h.store.SeedOrder(&domain.Order{
		ID:           "order-1",
		Code:         orders.NewOrderCode(),
		State:        domain.StatePaymentSettled,
		CurrencyCode: "usd",
		Lines: []domain.OrderLine{
			{
				ID:               "line-1",
				ProductVariantID: "variant-1",
				ProductName:      "House Blend - 1lb",
				SKU:              "HB-1LB",
				Quantity:         2,
				UnitPrice:        totalWithTax / 2,
				UnitPriceWithTax: totalWithTax / 2,
				TaxRate:          0,
				LinePrice:        totalWithTax,
				LinePriceWithTax: totalWithTax,
			},
		},
		Payments: []domain.Payment{
			{ID: "pay_1", Method: "card", State: domain.PaymentSettled, Amount: totalWithTax, TransactionID: "pi_123"},
		},
		SubTotalWithTax: totalWithTax,
		Total:           totalWithTax,
		TotalWithTax:    totalWithTax,
		History: []domain.StateTransition{
			{From: domain.StatePaymentAuthorized, To: domain.StatePaymentSettled, At: time.Now().UTC()},
		},
	})
}

func (h *testHarness) orderState(t *testing.T) domain.OrderState {
	t.Helper()
	o, err := h.store.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	return o.State
}

func Test_StartSession_EntersModification(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	assert.Equal(t, service.SessionStaging, sess.State())
	assert.Equal(t, domain.StateModifying, h.orderState(t))
	assert.Equal(t, int64(1000), sess.Order().TotalWithTax)
}

func Test_StartSession_RejectsNonModifiableState(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	_, err := h.store.TransitionToState(ctx, "order-1", domain.StateModifying)
	require.NoError(t, err)
	_, err = h.store.TransitionToState(ctx, "order-1", domain.StateArrangingAdditionalPayment)
	require.NoError(t, err)
	_, err = h.store.TransitionToState(ctx, "order-1", domain.StateCancelled)
	require.NoError(t, err)

	_, err = h.engine.StartSession(ctx, "order-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNotModifiable))
}

// brokenHistory delegates everything to the store except the history
// read, which always fails.
type brokenHistory struct {
	*orders.Store
}

func (b *brokenHistory) LastTransition(context.Context, string) (*domain.StateTransition, error) {
	return nil, domain.Internal(errors.New("history table unavailable"), "orders.history", "Order history could not be read")
}

// A failed session start must leave the order in its original state so
// modification can be retried once the fault clears.
func Test_StartSession_HistoryFailureLeavesOrderUntouched(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	engine, err := service.NewEngine(service.EngineConfig{
		Mutator:      h.store,
		Transitioner: h.store,
		Reader:       h.store,
		History:      &brokenHistory{Store: h.store},
		Notifier:     h.notifier,
	})
	require.NoError(t, err)

	_, err = engine.StartSession(ctx, "order-1")
	require.Error(t, err)
	assert.Equal(t, domain.StatePaymentSettled, h.orderState(t))

	// The fault clears and the order is still modifiable.
	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, service.SessionStaging, sess.State())
	assert.Equal(t, domain.StateModifying, h.orderState(t))
}

func Test_Session_DryRunRequiresPreviewGate(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	// Changes staged but no note.
	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	_, err = sess.SubmitDryRun(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNotPreviewable))
	assert.Equal(t, service.SessionStaging, sess.State(), "a gate rejection is not a submission failure")

	sess.Changes().SetNote("customer requested an extra bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, service.SessionPreviewed, sess.State())
}

// Additional payment path: the new total exceeds the original, so the
// order parks in ArrangingAdditionalPayment after commit.
func Test_Session_ApplyOutcome_AwaitsAdditionalPayment(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{
		ProductVariantID: "variant-1",
		ProductName:      "House Blend - 1lb",
		Price:            500,
		PriceWithTax:     550,
		TaxRate:          10,
	})
	sess.Changes().SetNote("customer requested an extra bag")

	projection, err := sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), projection.OriginalTotalWithTax)
	assert.Equal(t, int64(1550), projection.ProjectedTotalWithTax, "1000 + 500 net * 1.10")
	assert.Equal(t, int64(550), projection.PriceDelta)
	require.Len(t, projection.AddedLines, 1)
	assert.Empty(t, projection.RemovedLines)

	committed, err := sess.SubmitCommit(ctx, domain.ApplyOutcome())
	require.NoError(t, err)
	assert.Equal(t, int64(1550), committed.TotalWithTax, "commit total must equal the previewed total")
	assert.Equal(t, service.SessionCommitted, sess.State())

	require.NoError(t, sess.Finalize(ctx))
	assert.Equal(t, domain.StateArrangingAdditionalPayment, h.orderState(t))
	assert.Equal(t, 9, h.store.StockLevel("variant-1"))
}

// Refund path: the new total is below the original, a refund is issued
// against the selected payment during commit, and the order returns to
// its pre-modification state.
func Test_Session_RefundOutcome_RestoresPriorState(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	require.NoError(t, sess.Changes().SetLineQuantity("line-1", 1))
	sess.Changes().SetNote("customer returned one bag")

	projection, err := sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-500), projection.PriceDelta)
	require.Len(t, projection.ChangedLines, 1)
	assert.Equal(t, 2, projection.ChangedLines[0].OldQuantity)
	assert.Equal(t, 1, projection.ChangedLines[0].NewQuantity)
	require.Len(t, projection.RefundCandidates(), 1)

	committed, err := sess.SubmitCommit(ctx, domain.RefundOutcome("pay_1", "customer returned one bag"))
	require.NoError(t, err)
	require.Len(t, committed.Refunds, 1)
	assert.Equal(t, int64(500), committed.Refunds[0].Total)
	assert.Contains(t, h.billing.CallLog, "RefundPayment(pi_123, 500)")

	require.NoError(t, sess.Finalize(ctx))
	assert.Equal(t, domain.StatePaymentSettled, h.orderState(t), "delta <= 0 restores the pre-modification state")
	assert.Equal(t, 11, h.store.StockLevel("variant-1"), "removed units return to stock")
}

func Test_Session_RefundOutcomeRequiresPaymentID(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	require.NoError(t, sess.Changes().SetLineQuantity("line-1", 1))
	sess.Changes().SetNote("customer returned one bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)

	_, err = sess.SubmitCommit(ctx, domain.RefundOutcome("", "no payment picked"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, orders.ErrRefundPaymentIDMissing))
	assert.Equal(t, service.SessionPreviewed, sess.State(), "the operator can pick a payment and retry")

	_, err = sess.SubmitCommit(ctx, domain.RefundOutcome("pay_1", "customer returned one bag"))
	require.NoError(t, err)
}

func Test_Session_CancelReturnsToStaging(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("customer requested an extra bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)

	require.NoError(t, sess.Cancel(ctx))
	assert.Equal(t, service.SessionStaging, sess.State())
	assert.Nil(t, sess.Projection(), "cancel discards the provisional projection")
	assert.False(t, sess.Changes().HasChanges(), "cancel discards the staged request")

	o, err := h.store.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), o.TotalWithTax, "nothing was persisted before cancel")
	assert.Equal(t, domain.StateModifying, o.State, "the order stays in modification after cancel")

	require.NoError(t, sess.Close(ctx))
	assert.Equal(t, domain.StatePaymentSettled, h.orderState(t))
}

func Test_Session_RepeatedDryRunReplacesProjection(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("first pass")
	first, err := sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1550), first.ProjectedTotalWithTax)

	require.NoError(t, sess.Changes().SetAddedItemQuantity("variant-1", 2))
	second, err := sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2100), second.ProjectedTotalWithTax, "1000 + 2 * 550")
	assert.Same(t, second, sess.Projection(), "each dry run fully replaces the prior projection")
}

func Test_Session_TypedFailureRetainsStagedEdits(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	require.NoError(t, sess.Changes().SetAddedItemQuantity("variant-1", 100))
	sess.Changes().SetNote("bulk order")

	_, err = sess.SubmitDryRun(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, orders.ErrInsufficientStock))
	assert.Equal(t, service.SessionFailed, sess.State())
	require.Len(t, h.notifier.Errors, 1)
	assert.Equal(t, orders.FailureMessage(orders.ErrInsufficientStock), h.notifier.Errors[0])

	// The staged edits survive; correct the quantity and retry.
	require.NoError(t, sess.Changes().SetAddedItemQuantity("variant-1", 2))
	projection, err := sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2100), projection.ProjectedTotalWithTax)
	assert.Equal(t, service.SessionPreviewed, sess.State())
}

func Test_Session_CommitIsSingleShot(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("customer requested an extra bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)

	_, err = sess.SubmitCommit(ctx, domain.ApplyOutcome())
	require.NoError(t, err)

	_, err = sess.SubmitCommit(ctx, domain.ApplyOutcome())
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err), "a repeated commit is a programmer error")
}

func Test_Session_CommitRejectsCancelOutcome(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("customer requested an extra bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)

	_, err = sess.SubmitCommit(ctx, domain.CancelOutcome())
	require.Error(t, err)
	assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
	assert.Equal(t, service.SessionPreviewed, sess.State(), "a rejected outcome leaves the preview intact")
}

// flakyTransitioner lets a test reject the post-commit transition while
// still delegating earlier transitions to the store.
type flakyTransitioner struct {
	*orders.Store
	failFrom int
	calls    int
}

func (f *flakyTransitioner) TransitionToState(ctx context.Context, orderID string, target domain.OrderState) (*domain.Order, error) {
	f.calls++
	if f.calls >= f.failFrom {
		return nil, domain.Conflict("orders.transition", "Transition rejected by a concurrent update")
	}
	return f.Store.TransitionToState(ctx, orderID, target)
}

func Test_Session_TransitionRejectionKeepsCommit(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	flaky := &flakyTransitioner{Store: h.store, failFrom: 2}
	engine, err := service.NewEngine(service.EngineConfig{
		Mutator:      h.store,
		Transitioner: flaky,
		Reader:       h.store,
		History:      h.store,
		Notifier:     h.notifier,
	})
	require.NoError(t, err)

	sess, err := engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("customer requested an extra bag")
	_, err = sess.SubmitDryRun(ctx)
	require.NoError(t, err)
	_, err = sess.SubmitCommit(ctx, domain.ApplyOutcome())
	require.NoError(t, err)

	err = sess.Finalize(ctx)
	require.Error(t, err)
	require.NotEmpty(t, h.notifier.Errors, "the operator must hear about the stuck order")

	o, err := h.store.GetOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1550), o.TotalWithTax, "committed edits are never rolled back")
	assert.Equal(t, domain.StateModifying, o.State, "the order stays where the rejected transition left it")
}

func Test_Session_CompleteOrchestratesApply(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("customer requested an extra bag")

	committed, err := sess.Complete(ctx, func(_ context.Context, p *service.Projection) (domain.Outcome, error) {
		if p.PriceDelta > 0 {
			return domain.ApplyOutcome(), nil
		}
		return domain.CancelOutcome(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1550), committed.TotalWithTax)
	assert.Equal(t, domain.StateArrangingAdditionalPayment, h.orderState(t))
}

func Test_Session_CompleteOrchestratesCancel(t *testing.T) {
	h := newHarness(t)
	h.seedSettledOrder(1000)
	ctx := context.Background()

	sess, err := h.engine.StartSession(ctx, "order-1")
	require.NoError(t, err)

	sess.Changes().AddItem(service.CatalogSnapshot{ProductVariantID: "variant-1", Price: 500, TaxRate: 10})
	sess.Changes().SetNote("exploratory what-if")

	committed, err := sess.Complete(ctx, func(_ context.Context, _ *service.Projection) (domain.Outcome, error) {
		return domain.CancelOutcome(), nil
	})
	require.NoError(t, err)
	assert.Nil(t, committed)
	assert.Equal(t, service.SessionStaging, sess.State())
	assert.Equal(t, int64(1000), h.mustGetOrder(t).TotalWithTax)
}

func (h *testHarness) mustGetOrder(t *testing.T) *domain.Order {
	t.Helper()
	o, err := h.store.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)
	return o
}
