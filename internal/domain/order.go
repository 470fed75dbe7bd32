package domain

import "time"

// All monetary amounts are in minor currency units (cents for USD).

// Order is the authoritative order record as returned by the order reader
// and the mutation service. Totals are always server-computed.
type Order struct {
	ID           string
	Code         string
	State        OrderState
	CurrencyCode string

	Lines      []OrderLine
	Surcharges []Surcharge
	Payments   []Payment
	Refunds    []Refund

	ShippingAddress Address
	BillingAddress  Address

	// ShippingWithTax is the gross shipping cost applied to the order.
	ShippingWithTax int64

	// SubTotalWithTax is the gross sum of lines and surcharges,
	// excluding shipping.
	SubTotalWithTax int64

	// Total and TotalWithTax cover lines, surcharges and shipping.
	Total        int64
	TotalWithTax int64

	History   []StateTransition
	UpdatedAt time.Time
}

// OrderLine is a single catalog line on an order.
type OrderLine struct {
	ID               string
	ProductVariantID string
	ProductName      string
	SKU              string
	Quantity         int
	UnitPrice        int64
	UnitPriceWithTax int64
	TaxRate          float64
	LinePrice        int64
	LinePriceWithTax int64
}

// Surcharge is a free-form priced line not tied to a catalog item,
// for example a restocking fee.
type Surcharge struct {
	ID             string
	Description    string
	SKU            string
	Price          int64
	PriceWithTax   int64
	TaxRate        float64
	TaxDescription string
}

// Payment states for payments attached to an order.
const (
	PaymentAuthorized = "authorized"
	PaymentSettled    = "settled"
	PaymentDeclined   = "declined"
)

// Payment is a payment recorded against an order.
type Payment struct {
	ID            string
	Method        string
	State         string
	Amount        int64
	TransactionID string
	CreatedAt     time.Time
}

// Refundable reports whether a refund may target this payment.
func (p Payment) Refundable() bool {
	return p.State == PaymentSettled || p.State == PaymentAuthorized
}

// Refund is a refund issued against a payment.
type Refund struct {
	ID        string
	PaymentID string
	Total     int64
	Reason    string
	CreatedAt time.Time
}

// Address is a full postal address.
type Address struct {
	FullName    string
	Company     string
	StreetLine1 string
	StreetLine2 string
	City        string
	Province    string
	PostalCode  string
	CountryCode string
	Phone       string
}

// AddressPatch is a partial address edit. Only non-nil fields are applied.
type AddressPatch struct {
	FullName    *string
	Company     *string
	StreetLine1 *string
	StreetLine2 *string
	City        *string
	Province    *string
	PostalCode  *string
	CountryCode *string
	Phone       *string
}

// Empty reports whether the patch carries no fields.
func (p AddressPatch) Empty() bool {
	return p.FullName == nil && p.Company == nil && p.StreetLine1 == nil &&
		p.StreetLine2 == nil && p.City == nil && p.Province == nil &&
		p.PostalCode == nil && p.CountryCode == nil && p.Phone == nil
}

// Apply returns addr with the patch's non-nil fields overwritten.
func (p AddressPatch) Apply(addr Address) Address {
	if p.FullName != nil {
		addr.FullName = *p.FullName
	}
	if p.Company != nil {
		addr.Company = *p.Company
	}
	if p.StreetLine1 != nil {
		addr.StreetLine1 = *p.StreetLine1
	}
	if p.StreetLine2 != nil {
		addr.StreetLine2 = *p.StreetLine2
	}
	if p.City != nil {
		addr.City = *p.City
	}
	if p.Province != nil {
		addr.Province = *p.Province
	}
	if p.PostalCode != nil {
		addr.PostalCode = *p.PostalCode
	}
	if p.CountryCode != nil {
		addr.CountryCode = *p.CountryCode
	}
	if p.Phone != nil {
		addr.Phone = *p.Phone
	}
	return addr
}

// Line returns the order line with the given ID, or nil.
func (o *Order) Line(lineID string) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

// PaymentByID returns the payment with the given ID, or nil.
func (o *Order) PaymentByID(paymentID string) *Payment {
	for i := range o.Payments {
		if o.Payments[i].ID == paymentID {
			return &o.Payments[i]
		}
	}
	return nil
}

// LastTransition returns the most recent state-transition history entry,
// or nil when the order has no history.
func (o *Order) LastTransition() *StateTransition {
	if len(o.History) == 0 {
		return nil
	}
	return &o.History[len(o.History)-1]
}

// Clone returns a deep copy of the order. Mutation dry runs operate on
// clones so the stored order is never touched.
func (o *Order) Clone() *Order {
	cp := *o
	cp.Lines = append([]OrderLine(nil), o.Lines...)
	cp.Surcharges = append([]Surcharge(nil), o.Surcharges...)
	cp.Payments = append([]Payment(nil), o.Payments...)
	cp.Refunds = append([]Refund(nil), o.Refunds...)
	cp.History = append([]StateTransition(nil), o.History...)
	return &cp
}
