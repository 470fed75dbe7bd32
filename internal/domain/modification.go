package domain

// ModificationRequest is the full change set for one order edit,
// submitted first as a dry run and then, unchanged apart from DryRun
// and the optional Refund block, as a commit.
type ModificationRequest struct {
	OrderID string

	// DryRun distinguishes the preview submission from the commit.
	// A dry-run submission must never persist anything.
	DryRun bool

	AddedItems      []AddedItem
	LineAdjustments []LineAdjustment
	Surcharges      []SurchargeInput

	ShippingAddressPatch *AddressPatch
	BillingAddressPatch  *AddressPatch

	// RecalculateShipping asks the mutation service to re-quote shipping
	// against the edited line set.
	RecalculateShipping bool

	// Note is the operator's justification. Mandatory.
	Note string

	// Refund is only set on commit, when the resolved outcome is a refund.
	Refund *RefundInput
}

// AddedItem stages a new order line for a catalog variant.
type AddedItem struct {
	ProductVariantID string
	Quantity         int
}

// LineAdjustment stages a quantity change for an existing order line.
// Quantity zero removes the line.
type LineAdjustment struct {
	OrderLineID string
	Quantity    int
}

// SurchargeInput stages a free-form surcharge. Price and PriceWithTax
// are a reconciled net/gross pair.
type SurchargeInput struct {
	Description      string
	SKU              string
	Price            int64
	PriceWithTax     int64
	PriceIncludesTax bool
	TaxRate          float64
	TaxDescription   string
}

// RefundInput targets an existing payment for the refund owed when a
// committed modification lowers the order total.
type RefundInput struct {
	PaymentID string
	Reason    string
}

// HasChanges reports whether the request stages at least one structural
// edit. A note alone is not a change.
func (r *ModificationRequest) HasChanges() bool {
	return len(r.AddedItems) > 0 ||
		len(r.LineAdjustments) > 0 ||
		len(r.Surcharges) > 0 ||
		(r.ShippingAddressPatch != nil && !r.ShippingAddressPatch.Empty()) ||
		(r.BillingAddressPatch != nil && !r.BillingAddressPatch.Empty())
}

// OutcomeKind is the operator's disposition toward a previewed
// modification.
type OutcomeKind int

const (
	OutcomeCancel OutcomeKind = iota
	OutcomeApply
	OutcomeRefund
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCancel:
		return "cancel"
	case OutcomeApply:
		return "apply"
	case OutcomeRefund:
		return "refund"
	default:
		return "unknown"
	}
}

// Outcome carries the operator's decision. PaymentID and Reason are
// only meaningful for OutcomeRefund.
type Outcome struct {
	Kind      OutcomeKind
	PaymentID string
	Reason    string
}

// CancelOutcome discards the previewed modification.
func CancelOutcome() Outcome { return Outcome{Kind: OutcomeCancel} }

// ApplyOutcome commits the previewed modification as-is.
func ApplyOutcome() Outcome { return Outcome{Kind: OutcomeApply} }

// RefundOutcome commits the modification and refunds the price
// difference against the given payment.
func RefundOutcome(paymentID, reason string) Outcome {
	return Outcome{Kind: OutcomeRefund, PaymentID: paymentID, Reason: reason}
}
