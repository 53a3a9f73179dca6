// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Order is a paid (or pending) service purchase created after checkout.
// Amount is in minor currency units (pence).
type Order struct {
	ID                uuid.UUID   `json:"id"`
	Amount            int64       `json:"amount"`
	Currency          string      `json:"currency"`
	Status            OrderStatus `json:"status"`
	CustomerName      string      `json:"customer_name"`
	CustomerEmail     string      `json:"customer_email"`
	Service           string      `json:"service"`
	Notes             string      `json:"notes"`
	CheckoutSessionID *string     `json:"checkout_session_id,omitempty"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

// RevenueStats aggregates order amounts by status.
type RevenueStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Pending   int64 `json:"pending"`
	Count     int   `json:"count"`
}
