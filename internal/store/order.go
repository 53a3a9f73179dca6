// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"probitcms/internal/models"
)

// OrderStore handles paid and pending service orders.
type OrderStore struct {
	db *sql.DB
}

// NewOrderStore creates a new OrderStore with the given database connection.
func NewOrderStore(db *sql.DB) *OrderStore {
	return &OrderStore{db: db}
}

const orderColumns = `id, amount, currency, status, customer_name, customer_email,
	service, notes, checkout_session_id, created_at, updated_at`

func scanOrder(row scanner) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.Amount, &o.Currency, &o.Status, &o.CustomerName, &o.CustomerEmail,
		&o.Service, &o.Notes, &o.CheckoutSessionID, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// Create inserts an order. A duplicate checkout session maps to a conflict.
func (s *OrderStore) Create(ctx context.Context, o *models.Order) (*models.Order, error) {
	out, err := scanOrder(s.db.QueryRowContext(ctx, `
		INSERT INTO orders (amount, currency, status, customer_name, customer_email, service, notes, checkout_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+orderColumns,
		o.Amount, o.Currency, o.Status, o.CustomerName, o.CustomerEmail,
		o.Service, o.Notes, o.CheckoutSessionID,
	))
	if err != nil {
		return nil, wrapErr("create order", err)
	}
	return out, nil
}

// FindByID retrieves an order. Returns nil if not found.
func (s *OrderStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.findOne(ctx, "find order by id", `id = $1`, id)
}

// FindBySessionID retrieves the order created for a checkout session.
// Returns nil if not found.
func (s *OrderStore) FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	return s.findOne(ctx, "find order by session", `checkout_session_id = $1`, sessionID)
}

func (s *OrderStore) findOne(ctx context.Context, op, where string, arg any) (*models.Order, error) {
	o, err := scanOrder(s.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return o, nil
}

// List returns orders newest first, optionally narrowed to one status.
func (s *OrderStore) List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error) {
	q := psql.Select(orderColumns).From("orders").OrderBy("created_at DESC", "id")
	if status != nil {
		q = q.Where(sq.Eq{"status": string(*status)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build order list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	out := []models.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

// UpdateStatus sets an order's status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`, status, id,
	)
	if err != nil {
		return wrapErr("update order status", err)
	}
	return nil
}

// UpdateNotes replaces an order's internal notes.
func (s *OrderStore) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE orders SET notes = $1, updated_at = NOW() WHERE id = $2`, notes, id,
	)
	if err != nil {
		return wrapErr("update order notes", err)
	}
	return nil
}

// Delete removes an order by ID.
func (s *OrderStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return wrapErr("delete order", err)
	}
	return nil
}

// RevenueStats sums order amounts overall and for the completed and pending
// statuses.
func (s *OrderStore) RevenueStats(ctx context.Context) (models.RevenueStats, error) {
	var st models.RevenueStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'pending'), 0),
			COUNT(*)
		FROM orders
	`).Scan(&st.Total, &st.Completed, &st.Pending, &st.Count)
	if err != nil {
		return st, fmt.Errorf("revenue stats: %w", err)
	}
	return st, nil
}
