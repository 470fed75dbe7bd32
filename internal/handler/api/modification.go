// Package api exposes the order modification workflow over JSON HTTP.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/orders"
	"github.com/dukerupert/vidar/internal/service"
)

// ModificationHandler drives modification sessions over HTTP. Sessions
// are held in memory keyed by order ID; one session per order at a
// time.
type ModificationHandler struct {
	engine *service.Engine
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*service.Session
}

// NewModificationHandler creates a new modification handler.
func NewModificationHandler(engine *service.Engine, logger *slog.Logger) *ModificationHandler {
	return &ModificationHandler{
		engine:   engine,
		logger:   logger,
		sessions: make(map[string]*service.Session),
	}
}

// Start handles POST /orders/{id}/modification
func (h *ModificationHandler) Start(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	h.mu.Lock()
	_, exists := h.sessions[orderID]
	h.mu.Unlock()
	if exists {
		respondError(w, domain.Conflict("api.modification.start", "A modification session is already open for this order"))
		return
	}

	sess, err := h.engine.StartSession(r.Context(), orderID)
	if err != nil {
		respondError(w, err)
		return
	}

	h.mu.Lock()
	h.sessions[orderID] = sess
	h.mu.Unlock()

	h.logger.Info("modification session opened", "order_id", orderID)
	respondJSON(w, http.StatusCreated, map[string]any{
		"orderId": orderID,
		"state":   sess.State(),
	})
}

// previewRequest is the full staged payload: each preview replaces the
// previous staging wholesale.
type previewRequest struct {
	Note                 string                `json:"note"`
	AddedItems           []addedItemInput      `json:"addedItems"`
	LineAdjustments      []lineAdjustmentInput `json:"lineAdjustments"`
	Surcharges           []surchargeInput      `json:"surcharges"`
	ShippingAddressPatch *addressPatchInput    `json:"shippingAddressPatch"`
	BillingAddressPatch  *addressPatchInput    `json:"billingAddressPatch"`
	RecalculateShipping  bool                  `json:"recalculateShipping"`
}

type addedItemInput struct {
	ProductVariantID string `json:"productVariantId"`
	Quantity         int    `json:"quantity"`
}

type lineAdjustmentInput struct {
	OrderLineID string `json:"orderLineId"`
	Quantity    int    `json:"quantity"`
}

type surchargeInput struct {
	Description      string  `json:"description"`
	SKU              string  `json:"sku"`
	Price            int64   `json:"price"`
	PriceWithTax     int64   `json:"priceWithTax"`
	PriceIncludesTax bool    `json:"priceIncludesTax"`
	TaxRate          float64 `json:"taxRate"`
	TaxDescription   string  `json:"taxDescription"`
}

type addressPatchInput struct {
	StreetLine1 *string `json:"streetLine1"`
	StreetLine2 *string `json:"streetLine2"`
	City        *string `json:"city"`
	Province    *string `json:"province"`
	PostalCode  *string `json:"postalCode"`
	CountryCode *string `json:"countryCode"`
}

func (p *addressPatchInput) toPatch() domain.AddressPatch {
	return domain.AddressPatch{
		StreetLine1: p.StreetLine1,
		StreetLine2: p.StreetLine2,
		City:        p.City,
		Province:    p.Province,
		PostalCode:  p.PostalCode,
		CountryCode: p.CountryCode,
	}
}

// Preview handles POST /orders/{id}/modification/preview
func (h *ModificationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.session(r.PathValue("id"))
	if !ok {
		respondError(w, domain.NotFound("api.modification.preview", "modification session for order", r.PathValue("id")))
		return
	}

	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Invalid("api.modification.preview", "Invalid request body"))
		return
	}

	if err := h.stage(sess, req); err != nil {
		respondError(w, err)
		return
	}

	projection, err := sess.SubmitDryRun(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, projectionResponse(projection))
}

func (h *ModificationHandler) stage(sess *service.Session, req previewRequest) error {
	if err := sess.ResetChanges(); err != nil {
		return err
	}
	cs := sess.Changes()
	cs.SetNote(req.Note)
	for _, item := range req.AddedItems {
		if item.Quantity < 0 {
			return orders.ErrNegativeQuantity
		}
		if item.Quantity == 0 {
			continue
		}
		cs.AddItem(service.CatalogSnapshot{ProductVariantID: item.ProductVariantID})
		if err := cs.SetAddedItemQuantity(item.ProductVariantID, item.Quantity); err != nil {
			return err
		}
	}
	for _, adj := range req.LineAdjustments {
		if err := cs.SetLineQuantity(adj.OrderLineID, adj.Quantity); err != nil {
			return err
		}
	}
	for _, s := range req.Surcharges {
		if err := cs.AddSurcharge(domain.SurchargeInput{
			Description:      s.Description,
			SKU:              s.SKU,
			Price:            s.Price,
			PriceWithTax:     s.PriceWithTax,
			PriceIncludesTax: s.PriceIncludesTax,
			TaxRate:          s.TaxRate,
			TaxDescription:   s.TaxDescription,
		}); err != nil {
			return err
		}
	}
	if req.ShippingAddressPatch != nil {
		cs.PatchShippingAddress(req.ShippingAddressPatch.toPatch())
	}
	if req.BillingAddressPatch != nil {
		cs.PatchBillingAddress(req.BillingAddressPatch.toPatch())
	}
	cs.SetRecalculateShipping(req.RecalculateShipping)
	return nil
}

type commitRequest struct {
	Outcome   string `json:"outcome"` // "apply" or "refund"
	PaymentID string `json:"paymentId"`
	Reason    string `json:"reason"`
}

// Commit handles POST /orders/{id}/modification/commit
func (h *ModificationHandler) Commit(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	sess, ok := h.session(orderID)
	if !ok {
		respondError(w, domain.NotFound("api.modification.commit", "modification session for order", orderID))
		return
	}

	var req commitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, domain.Invalid("api.modification.commit", "Invalid request body"))
		return
	}

	var outcome domain.Outcome
	switch req.Outcome {
	case "apply":
		outcome = domain.ApplyOutcome()
	case "refund":
		outcome = domain.RefundOutcome(req.PaymentID, req.Reason)
	default:
		respondError(w, domain.Invalid("api.modification.commit", "Outcome must be \"apply\" or \"refund\""))
		return
	}

	committed, err := sess.SubmitCommit(r.Context(), outcome)
	if err != nil {
		respondError(w, err)
		return
	}

	finalizeErr := sess.Finalize(r.Context())

	h.dropSession(orderID)

	resp := map[string]any{
		"order": orderResponse(committed),
	}
	if finalizeErr != nil {
		// The modification is durable; only the state transition failed.
		resp["transitionError"] = domain.ErrorMessage(finalizeErr)
		respondJSON(w, http.StatusOK, resp)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// CancelPreview handles POST /orders/{id}/modification/cancel
func (h *ModificationHandler) CancelPreview(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	sess, ok := h.session(orderID)
	if !ok {
		respondError(w, domain.NotFound("api.modification.cancel", "modification session for order", orderID))
		return
	}

	if err := sess.Cancel(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"orderId": orderID,
		"state":   sess.State(),
	})
}

// Close handles DELETE /orders/{id}/modification
func (h *ModificationHandler) Close(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")
	sess, ok := h.session(orderID)
	if !ok {
		respondError(w, domain.NotFound("api.modification.close", "modification session for order", orderID))
		return
	}

	if err := sess.Close(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	h.dropSession(orderID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ModificationHandler) session(orderID string) (*service.Session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sess, ok := h.sessions[orderID]
	return sess, ok
}

func (h *ModificationHandler) dropSession(orderID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.sessions, orderID)
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// respondError maps a domain error code to an HTTP status and writes
// the client-safe message.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch domain.ErrorCode(err) {
	case domain.EINVALID:
		status = http.StatusBadRequest
	case domain.ENOTFOUND:
		status = http.StatusNotFound
	case domain.ECONFLICT:
		status = http.StatusConflict
	case domain.EPAYMENT:
		status = http.StatusPaymentRequired
	}
	if errors.Is(err, domain.ErrInvalidTransition) {
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    domain.ErrorCode(err),
			"message": domain.ErrorMessage(err),
		},
	})
}
