package api

import (
	"net/http"
	"time"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/orders"
	"github.com/dukerupert/vidar/internal/service"
)

// OrderHandler serves order reads.
type OrderHandler struct {
	reader orders.Reader
}

// NewOrderHandler creates a new order read handler.
func NewOrderHandler(reader orders.Reader) *OrderHandler {
	return &OrderHandler{reader: reader}
}

// Get handles GET /orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.reader.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orderResponse(order))
}

type orderJSON struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	State           string           `json:"state"`
	CurrencyCode    string           `json:"currencyCode"`
	Lines           []orderLineJSON  `json:"lines"`
	Surcharges      []surchargeJSON  `json:"surcharges,omitempty"`
	Payments        []paymentJSON    `json:"payments"`
	Refunds         []refundJSON     `json:"refunds,omitempty"`
	ShippingAddress addressJSON      `json:"shippingAddress"`
	BillingAddress  addressJSON      `json:"billingAddress"`
	ShippingWithTax int64            `json:"shippingWithTax"`
	SubTotalWithTax int64            `json:"subTotalWithTax"`
	Total           int64            `json:"total"`
	TotalWithTax    int64            `json:"totalWithTax"`
	History         []transitionJSON `json:"history,omitempty"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

type orderLineJSON struct {
	ID               string  `json:"id"`
	ProductVariantID string  `json:"productVariantId"`
	ProductName      string  `json:"productName"`
	SKU              string  `json:"sku"`
	Quantity         int     `json:"quantity"`
	UnitPrice        int64   `json:"unitPrice"`
	UnitPriceWithTax int64   `json:"unitPriceWithTax"`
	TaxRate          float64 `json:"taxRate"`
	LinePrice        int64   `json:"linePrice"`
	LinePriceWithTax int64   `json:"linePriceWithTax"`
}

type surchargeJSON struct {
	ID           string  `json:"id"`
	Description  string  `json:"description"`
	SKU          string  `json:"sku,omitempty"`
	Price        int64   `json:"price"`
	PriceWithTax int64   `json:"priceWithTax"`
	TaxRate      float64 `json:"taxRate"`
}

type paymentJSON struct {
	ID     string `json:"id"`
	Method string `json:"method"`
	State  string `json:"state"`
	Amount int64  `json:"amount"`
}

type refundJSON struct {
	ID        string    `json:"id"`
	PaymentID string    `json:"paymentId"`
	Total     int64     `json:"total"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type addressJSON struct {
	StreetLine1 string `json:"streetLine1,omitempty"`
	StreetLine2 string `json:"streetLine2,omitempty"`
	City        string `json:"city,omitempty"`
	Province    string `json:"province,omitempty"`
	PostalCode  string `json:"postalCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

type transitionJSON struct {
	From string    `json:"from"`
	To   string    `json:"to"`
	At   time.Time `json:"at"`
}

func orderResponse(o *domain.Order) orderJSON {
	out := orderJSON{
		ID:              o.ID,
		Code:            o.Code,
		State:           string(o.State),
		CurrencyCode:    o.CurrencyCode,
		Lines:           make([]orderLineJSON, 0, len(o.Lines)),
		Payments:        make([]paymentJSON, 0, len(o.Payments)),
		ShippingAddress: addressResponse(o.ShippingAddress),
		BillingAddress:  addressResponse(o.BillingAddress),
		ShippingWithTax: o.ShippingWithTax,
		SubTotalWithTax: o.SubTotalWithTax,
		Total:           o.Total,
		TotalWithTax:    o.TotalWithTax,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, l := range o.Lines {
		out.Lines = append(out.Lines, orderLineJSON{
			ID:               l.ID,
			ProductVariantID: l.ProductVariantID,
			ProductName:      l.ProductName,
			SKU:              l.SKU,
			Quantity:         l.Quantity,
			UnitPrice:        l.UnitPrice,
			UnitPriceWithTax: l.UnitPriceWithTax,
			TaxRate:          l.TaxRate,
			LinePrice:        l.LinePrice,
			LinePriceWithTax: l.LinePriceWithTax,
		})
	}
	for _, s := range o.Surcharges {
		out.Surcharges = append(out.Surcharges, surchargeJSON{
			ID:           s.ID,
			Description:  s.Description,
			SKU:          s.SKU,
			Price:        s.Price,
			PriceWithTax: s.PriceWithTax,
			TaxRate:      s.TaxRate,
		})
	}
	for _, p := range o.Payments {
		out.Payments = append(out.Payments, paymentJSON{
			ID:     p.ID,
			Method: p.Method,
			State:  p.State,
			Amount: p.Amount,
		})
	}
	for _, rf := range o.Refunds {
		out.Refunds = append(out.Refunds, refundJSON{
			ID:        rf.ID,
			PaymentID: rf.PaymentID,
			Total:     rf.Total,
			Reason:    rf.Reason,
			CreatedAt: rf.CreatedAt,
		})
	}
	for _, t := range o.History {
		out.History = append(out.History, transitionJSON{
			From: string(t.From),
			To:   string(t.To),
			At:   t.At,
		})
	}
	return out
}

func addressResponse(a domain.Address) addressJSON {
	return addressJSON{
		StreetLine1: a.StreetLine1,
		StreetLine2: a.StreetLine2,
		City:        a.City,
		Province:    a.Province,
		PostalCode:  a.PostalCode,
		CountryCode: a.CountryCode,
	}
}

type projectionJSON struct {
	OriginalTotalWithTax  int64             `json:"originalTotalWithTax"`
	ProjectedTotalWithTax int64             `json:"projectedTotalWithTax"`
	PriceDelta            int64             `json:"priceDelta"`
	AddedLines            []orderLineJSON   `json:"addedLines,omitempty"`
	RemovedLines          []orderLineJSON   `json:"removedLines,omitempty"`
	ChangedLines          []changedLineJSON `json:"changedLines,omitempty"`
	RefundCandidates      []paymentJSON     `json:"refundCandidates,omitempty"`
	Order                 orderJSON         `json:"order"`
}

type changedLineJSON struct {
	Line        orderLineJSON `json:"line"`
	OldQuantity int           `json:"oldQuantity"`
	NewQuantity int           `json:"newQuantity"`
}

func projectionResponse(p *service.Projection) projectionJSON {
	out := projectionJSON{
		OriginalTotalWithTax:  p.OriginalTotalWithTax,
		ProjectedTotalWithTax: p.ProjectedTotalWithTax,
		PriceDelta:            p.PriceDelta,
		Order:                 orderResponse(p.Projected),
	}
	for _, l := range p.AddedLines {
		out.AddedLines = append(out.AddedLines, lineResponse(l))
	}
	for _, l := range p.RemovedLines {
		out.RemovedLines = append(out.RemovedLines, lineResponse(l))
	}
	for _, c := range p.ChangedLines {
		out.ChangedLines = append(out.ChangedLines, changedLineJSON{
			Line:        lineResponse(c.Line),
			OldQuantity: c.OldQuantity,
			NewQuantity: c.NewQuantity,
		})
	}
	for _, pay := range p.RefundCandidates() {
		out.RefundCandidates = append(out.RefundCandidates, paymentJSON{
			ID:     pay.ID,
			Method: pay.Method,
			State:  pay.State,
			Amount: pay.Amount,
		})
	}
	return out
}

func lineResponse(l domain.OrderLine) orderLineJSON {
	return orderLineJSON{
		ID:               l.ID,
		ProductVariantID: l.ProductVariantID,
		ProductName:      l.ProductName,
		SKU:              l.SKU,
		Quantity:         l.Quantity,
		UnitPrice:        l.UnitPrice,
		UnitPriceWithTax: l.UnitPriceWithTax,
		TaxRate:          l.TaxRate,
		LinePrice:        l.LinePrice,
		LinePriceWithTax: l.LinePriceWithTax,
	}
}
