// Package postgres provides PostgreSQL-backed order reads. Writes go
// through the orders package; this reader serves the surfaces that
// only need a consistent snapshot of an order and its history.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukerupert/vidar/internal/domain"
	"github.com/dukerupert/vidar/internal/orders"
)

// OrderReader implements orders.Reader and orders.HistoryReader
// against PostgreSQL.
type OrderReader struct {
	pool *pgxpool.Pool
}

// Compile-time checks that OrderReader satisfies the read contracts.
var (
	_ orders.Reader        = (*OrderReader)(nil)
	_ orders.HistoryReader = (*OrderReader)(nil)
)

// NewOrderReader creates a new PostgreSQL-backed order reader.
func NewOrderReader(pool *pgxpool.Pool) *OrderReader {
	return &OrderReader{pool: pool}
}

// GetOrder loads an order with its lines, surcharges, payments,
// refunds and state history.
func (r *OrderReader) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	const orderQuery = `
		SELECT id, code, state, currency_code,
		       shipping_street_line1, shipping_street_line2, shipping_city,
		       shipping_province, shipping_postal_code, shipping_country_code,
		       billing_street_line1, billing_street_line2, billing_city,
		       billing_province, billing_postal_code, billing_country_code,
		       shipping_with_tax, sub_total_with_tax, total, total_with_tax,
		       updated_at
		FROM orders
		WHERE id = $1`

	var o domain.Order
	err := r.pool.QueryRow(ctx, orderQuery, orderID).Scan(
		&o.ID, &o.Code, &o.State, &o.CurrencyCode,
		&o.ShippingAddress.StreetLine1, &o.ShippingAddress.StreetLine2, &o.ShippingAddress.City,
		&o.ShippingAddress.Province, &o.ShippingAddress.PostalCode, &o.ShippingAddress.CountryCode,
		&o.BillingAddress.StreetLine1, &o.BillingAddress.StreetLine2, &o.BillingAddress.City,
		&o.BillingAddress.Province, &o.BillingAddress.PostalCode, &o.BillingAddress.CountryCode,
		&o.ShippingWithTax, &o.SubTotalWithTax, &o.Total, &o.TotalWithTax,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, orders.ErrOrderNotFound
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.getOrder", "failed to load order")
	}

	if o.Lines, err = r.orderLines(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Surcharges, err = r.orderSurcharges(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Payments, err = r.orderPayments(ctx, orderID); err != nil {
		return nil, err
	}
	if o.Refunds, err = r.orderRefunds(ctx, orderID); err != nil {
		return nil, err
	}
	if o.History, err = r.transitions(ctx, orderID); err != nil {
		return nil, err
	}
	return &o, nil
}

// LastTransition returns the most recent state transition recorded for
// the order.
func (r *OrderReader) LastTransition(ctx context.Context, orderID string) (*domain.StateTransition, error) {
	const query = `
		SELECT from_state, to_state, created_at
		FROM order_state_transitions
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var t domain.StateTransition
	err := r.pool.QueryRow(ctx, query, orderID).Scan(&t.From, &t.To, &t.At)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound("postgres.lastTransition", "state transition for order", orderID)
		}
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.lastTransition", "failed to load order history")
	}
	return &t, nil
}

func (r *OrderReader) orderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	const query = `
		SELECT id, product_variant_id, product_name, sku, quantity,
		       unit_price, unit_price_with_tax, tax_rate,
		       line_price, line_price_with_tax
		FROM order_lines
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderLines", "failed to load order lines")
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(
			&l.ID, &l.ProductVariantID, &l.ProductName, &l.SKU, &l.Quantity,
			&l.UnitPrice, &l.UnitPriceWithTax, &l.TaxRate,
			&l.LinePrice, &l.LinePriceWithTax,
		); err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderLines", "failed to scan order line")
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (r *OrderReader) orderSurcharges(ctx context.Context, orderID string) ([]domain.Surcharge, error) {
	const query = `
		SELECT id, description, sku, price, price_with_tax, tax_rate, tax_description
		FROM order_surcharges
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderSurcharges", "failed to load surcharges")
	}
	defer rows.Close()

	var surcharges []domain.Surcharge
	for rows.Next() {
		var s domain.Surcharge
		if err := rows.Scan(
			&s.ID, &s.Description, &s.SKU, &s.Price, &s.PriceWithTax, &s.TaxRate, &s.TaxDescription,
		); err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderSurcharges", "failed to scan surcharge")
		}
		surcharges = append(surcharges, s)
	}
	return surcharges, rows.Err()
}

func (r *OrderReader) orderPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	const query = `
		SELECT id, method, state, amount, transaction_id, created_at
		FROM order_payments
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderPayments", "failed to load payments")
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		var p domain.Payment
		if err := rows.Scan(&p.ID, &p.Method, &p.State, &p.Amount, &p.TransactionID, &p.CreatedAt); err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderPayments", "failed to scan payment")
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *OrderReader) orderRefunds(ctx context.Context, orderID string) ([]domain.Refund, error) {
	const query = `
		SELECT id, payment_id, total, reason, created_at
		FROM order_refunds
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderRefunds", "failed to load refunds")
	}
	defer rows.Close()

	var refunds []domain.Refund
	for rows.Next() {
		var rf domain.Refund
		if err := rows.Scan(&rf.ID, &rf.PaymentID, &rf.Total, &rf.Reason, &rf.CreatedAt); err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.orderRefunds", "failed to scan refund")
		}
		refunds = append(refunds, rf)
	}
	return refunds, rows.Err()
}

func (r *OrderReader) transitions(ctx context.Context, orderID string) ([]domain.StateTransition, error) {
	const query = `
		SELECT from_state, to_state, created_at
		FROM order_state_transitions
		WHERE order_id = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.transitions", "failed to load order history")
	}
	defer rows.Close()

	var history []domain.StateTransition
	for rows.Next() {
		var t domain.StateTransition
		if err := rows.Scan(&t.From, &t.To, &t.At); err != nil {
			return nil, domain.WrapError(err, domain.EINTERNAL, "postgres.transitions", "failed to scan transition")
		}
		history = append(history, t)
	}
	return history, rows.Err()
}
