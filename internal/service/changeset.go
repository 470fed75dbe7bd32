package service

import (
	"github.com/dukerupert/vidar/internal/domain"
)

// CatalogSnapshot is the last-known catalog price/name for a variant,
// captured when the variant is staged. Used only to render the staged
// line before a dry run confirms real pricing; discarded when the order
// is re-fetched.
type CatalogSnapshot struct {
	ProductVariantID string
	ProductName      string
	SKU              string
	Price            int64
	PriceWithTax     int64
	TaxRate          float64
}

// StagedItem is an added variant with its snapshot and quantity.
type StagedItem struct {
	Snapshot CatalogSnapshot
	Quantity int
}

// ChangeSet accumulates the staged edits of one modification session.
// It owns all staged state; a fresh one is created whenever the order
// is re-fetched. Not safe for concurrent use; an edit session is
// single-threaded from the operator's perspective.
type ChangeSet struct {
	orderID string
	note    string

	added      map[string]*StagedItem
	addedOrder []string

	adjustments map[string]int
	originalQty map[string]int
	lineOrder   []string

	surcharges []domain.SurchargeInput

	shippingPatch *domain.AddressPatch
	billingPatch  *domain.AddressPatch

	recalculateShipping bool
}

// NewChangeSet creates an empty change set for the given order. The
// order's current line quantities are recorded so a quantity edit back
// to the original value cancels the adjustment instead of submitting a
// no-op.
func NewChangeSet(order *domain.Order) *ChangeSet {
	original := make(map[string]int, len(order.Lines))
	lineOrder := make([]string, 0, len(order.Lines))
	for _, line := range order.Lines {
		original[line.ID] = line.Quantity
		lineOrder = append(lineOrder, line.ID)
	}
	return &ChangeSet{
		orderID:     order.ID,
		added:       make(map[string]*StagedItem),
		adjustments: make(map[string]int),
		originalQty: original,
		lineOrder:   lineOrder,
	}
}

// AddItem stages one unit of a catalog variant. Re-adding a variant
// already staged increments its quantity and keeps the original
// snapshot.
func (c *ChangeSet) AddItem(snapshot CatalogSnapshot) {
	if item, ok := c.added[snapshot.ProductVariantID]; ok {
		item.Quantity++
		return
	}
	c.added[snapshot.ProductVariantID] = &StagedItem{Snapshot: snapshot, Quantity: 1}
	c.addedOrder = append(c.addedOrder, snapshot.ProductVariantID)
}

// RemoveItem deletes the staged entry for a variant entirely.
func (c *ChangeSet) RemoveItem(variantID string) {
	if _, ok := c.added[variantID]; !ok {
		return
	}
	delete(c.added, variantID)
	for i, id := range c.addedOrder {
		if id == variantID {
			c.addedOrder = append(c.addedOrder[:i], c.addedOrder[i+1:]...)
			break
		}
	}
}

// SetAddedItemQuantity overwrites the quantity of an already-staged
// variant. Quantity must be positive; stock sufficiency is validated
// only server-side during dry run and commit.
func (c *ChangeSet) SetAddedItemQuantity(variantID string, qty int) error {
	if qty <= 0 {
		return domain.Invalid("changeset.setAddedItemQuantity", "Quantity must be a positive integer")
	}
	item, ok := c.added[variantID]
	if !ok {
		return domain.NotFound("changeset.setAddedItemQuantity", "staged item", variantID)
	}
	item.Quantity = qty
	return nil
}

// SetLineQuantity stages a quantity change for an existing order line.
// Setting the line back to its original persisted quantity removes the
// adjustment, so a no-op edit is never submitted.
func (c *ChangeSet) SetLineQuantity(lineID string, qty int) error {
	original, ok := c.originalQty[lineID]
	if !ok {
		return domain.NotFound("changeset.setLineQuantity", "order line", lineID)
	}
	if qty == original {
		delete(c.adjustments, lineID)
		return nil
	}
	c.adjustments[lineID] = qty
	return nil
}

// DefaultSurchargeInput is what the surcharge form starts from after
// each successful AddSurcharge: price zero, tax-inclusive, rate zero.
func DefaultSurchargeInput() domain.SurchargeInput {
	return domain.SurchargeInput{PriceIncludesTax: true}
}

// AddSurcharge appends a surcharge to the change set.
func (c *ChangeSet) AddSurcharge(in domain.SurchargeInput) error {
	if in.Description == "" {
		return domain.Invalid("changeset.addSurcharge", "Surcharge description is required")
	}
	c.surcharges = append(c.surcharges, in)
	return nil
}

// RemoveSurcharge removes a staged surcharge by position.
func (c *ChangeSet) RemoveSurcharge(index int) {
	if index < 0 || index >= len(c.surcharges) {
		return
	}
	c.surcharges = append(c.surcharges[:index], c.surcharges[index+1:]...)
}

// PatchShippingAddress stages a partial shipping-address edit. Empty
// patches are dropped; only modified-and-valid fields should be set.
func (c *ChangeSet) PatchShippingAddress(patch domain.AddressPatch) {
	if patch.Empty() {
		c.shippingPatch = nil
		return
	}
	c.shippingPatch = &patch
}

// PatchBillingAddress stages a partial billing-address edit.
func (c *ChangeSet) PatchBillingAddress(patch domain.AddressPatch) {
	if patch.Empty() {
		c.billingPatch = nil
		return
	}
	c.billingPatch = &patch
}

// SetRecalculateShipping flags the shipping cost for requoting against
// the edited line set.
func (c *ChangeSet) SetRecalculateShipping(recalculate bool) {
	c.recalculateShipping = recalculate
}

// SetNote records the operator's justification. Mandatory before any
// preview.
func (c *ChangeSet) SetNote(note string) {
	c.note = note
}

// Note returns the staged note.
func (c *ChangeSet) Note() string {
	return c.note
}

// StagedItems returns the staged additions in insertion order, with
// their catalog snapshots for rendering.
func (c *ChangeSet) StagedItems() []StagedItem {
	out := make([]StagedItem, 0, len(c.addedOrder))
	for _, id := range c.addedOrder {
		out = append(out, *c.added[id])
	}
	return out
}

// HasChanges reports whether at least one structural change is staged.
func (c *ChangeSet) HasChanges() bool {
	return len(c.added) > 0 ||
		len(c.adjustments) > 0 ||
		len(c.surcharges) > 0 ||
		c.shippingPatch != nil ||
		c.billingPatch != nil
}

// CanPreview is the sole precondition for a dry run: at least one
// structural change and a non-empty note.
func (c *ChangeSet) CanPreview() bool {
	return c.HasChanges() && c.note != ""
}

// BuildRequest snapshots the staged state into an immutable
// ModificationRequest. Dry-run and commit requests are built from the
// same staged content and differ only in dryRun and the refund block.
func (c *ChangeSet) BuildRequest(dryRun bool, refund *domain.RefundInput) domain.ModificationRequest {
	req := domain.ModificationRequest{
		OrderID:             c.orderID,
		DryRun:              dryRun,
		RecalculateShipping: c.recalculateShipping,
		Note:                c.note,
		Refund:              refund,
	}
	for _, id := range c.addedOrder {
		req.AddedItems = append(req.AddedItems, domain.AddedItem{
			ProductVariantID: id,
			Quantity:         c.added[id].Quantity,
		})
	}
	// Adjustments keep the order's own line order for determinism.
	for _, lineID := range c.lineOrder {
		if qty, ok := c.adjustments[lineID]; ok {
			req.LineAdjustments = append(req.LineAdjustments, domain.LineAdjustment{
				OrderLineID: lineID,
				Quantity:    qty,
			})
		}
	}
	req.Surcharges = append(req.Surcharges, c.surcharges...)
	if c.shippingPatch != nil {
		patch := *c.shippingPatch
		req.ShippingAddressPatch = &patch
	}
	if c.billingPatch != nil {
		patch := *c.billingPatch
		req.BillingAddressPatch = &patch
	}
	return req
}
