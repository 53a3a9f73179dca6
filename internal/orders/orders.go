// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package orders starts service-package checkouts and keeps the order book
// that operators manage.
package orders

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/metrics"
	"probitcms/internal/models"
	"probitcms/internal/payment"
	"probitcms/internal/validate"
)

// Currency is the only currency packages are sold in.
const Currency = "gbp"

// Repository persists orders. Finders return (nil, nil) on miss.
type Repository interface {
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	List(ctx context.Context, status *models.OrderStatus) ([]models.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	UpdateNotes(ctx context.Context, id uuid.UUID, notes string) error
	Delete(ctx context.Context, id uuid.UUID) error
	RevenueStats(ctx context.Context) (models.RevenueStats, error)
}

// Gateway is the payment provider.
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, r payment.CheckoutRequest) (*payment.Session, error)
	GetCheckoutSession(ctx context.Context, id string) (*payment.Session, error)
}

// CheckoutInput is the pricing-page request. The amount charged always
// comes from the plan catalogue; any price the client posts is ignored.
type CheckoutInput struct {
	PlanName string `json:"planName" validate:"notblank,max=100"`
	PriceID  string `json:"priceId" validate:"max=100"`
}

// Service runs checkouts and order administration.
type Service struct {
	repo    Repository
	gateway Gateway
	plans   []Plan
	baseURL string
	company string
}

// NewService wires the service. baseURL is the public site origin used
// for the payment redirects.
func NewService(repo Repository, gateway Gateway, baseURL, company string) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		plans:   Plans,
		baseURL: strings.TrimRight(baseURL, "/"),
		company: company,
	}
}

// StartCheckout creates a payment session for a plan and returns the URL
// to redirect the visitor to.
func (s *Service) StartCheckout(ctx context.Context, in CheckoutInput) (string, error) {
	const op = "orders.StartCheckout"
	in.PlanName = strings.TrimSpace(in.PlanName)
	if err := validate.Struct(op, in); err != nil {
		return "", err
	}
	plan, ok := FindPlan(s.plans, in.PlanName)
	if !ok {
		return "", apperr.Validation(op, "planName", "choose one of the listed packages")
	}
	amount, err := ParsePrice(plan.Price)
	if err != nil {
		return "", fmt.Errorf("%s: plan %q: %w", op, plan.Name, err)
	}

	meta := map[string]string{"planName": plan.Name}
	if in.PriceID != "" {
		meta["priceId"] = in.PriceID
	}
	sess, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ProductName: plan.Name + " Package",
		Description: strings.TrimSpace(s.company + " " + plan.Name + " Service Package"),
		Amount:      amount,
		Currency:    Currency,
		SuccessURL:  s.baseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   s.baseURL + "/payment/cancel",
		Metadata:    meta,
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			err = apperr.External(op, "payment", err)
		}
		return "", err
	}
	if sess.URL == "" {
		return "", apperr.External(op, "payment", errNoRedirect)
	}

	metrics.CheckoutsStarted.Inc()
	slog.Info("checkout started", "session", sess.ID, "plan", plan.Name, "amount", amount)
	return sess.URL, nil
}

// RecordCheckout turns a returned checkout session into an order. Calling
// it again for the same session returns the existing order.
func (s *Service) RecordCheckout(ctx context.Context, sessionID string) (*models.Order, error) {
	const op = "orders.RecordCheckout"
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, apperr.Validation(op, "session_id", "session id is required")
	}

	if existing, err := s.repo.FindBySessionID(ctx, sessionID); err != nil || existing != nil {
		return existing, err
	}

	sess, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnknown {
			err = apperr.External(op, "payment", err)
		}
		return nil, err
	}

	status := models.OrderPending
	if sess.Paid() {
		status = models.OrderCompleted
	}
	currency := sess.Currency
	if currency == "" {
		currency = Currency
	}
	id := sess.ID
	o, err := s.repo.Create(ctx, &models.Order{
		Amount:            sess.AmountTotal,
		Currency:          currency,
		Status:            status,
		CustomerName:      sess.Customer.Name,
		CustomerEmail:     sess.Customer.Email,
		Service:           sess.Metadata["planName"],
		CheckoutSessionID: &id,
	})
	if apperr.Is(err, apperr.KindConflict) {
		// A concurrent success-page load recorded it first.
		return s.repo.FindBySessionID(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("order recorded", "id", o.ID, "session", sessionID, "status", o.Status, "amount", o.Amount)
	return o, nil
}

// List returns all orders newest first.
func (s *Service) List(ctx context.Context, ac auth.Context) ([]models.Order, error) {
	if _, err := auth.Require(ac, "orders.List"); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, nil)
}

// ListByStatus returns orders in one status.
func (s *Service) ListByStatus(ctx context.Context, ac auth.Context, status models.OrderStatus) ([]models.Order, error) {
	const op = "orders.ListByStatus"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: pending, completed, cancelled")
	}
	return s.repo.List(ctx, &status)
}

// Get returns one order.
func (s *Service) Get(ctx context.Context, ac auth.Context, id uuid.UUID) (*models.Order, error) {
	const op = "orders.Get"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	return s.find(ctx, op, id)
}

// UpdateStatus sets an order's status.
func (s *Service) UpdateStatus(ctx context.Context, ac auth.Context, id uuid.UUID, status models.OrderStatus) (*models.Order, error) {
	const op = "orders.UpdateStatus"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: pending, completed, cancelled")
	}
	o, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if o.Status == status {
		return o, nil
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	slog.Info("order status changed", "id", id, "from", o.Status, "to", status, "operator", operator.ID)
	o.Status = status
	return o, nil
}

// UpdateNotes replaces the operator notes on an order.
func (s *Service) UpdateNotes(ctx context.Context, ac auth.Context, id uuid.UUID, notes string) (*models.Order, error) {
	const op = "orders.UpdateNotes"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	if len(notes) > 10000 {
		return nil, apperr.Validation(op, "notes", "notes must be at most 10000 characters")
	}
	o, err := s.find(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if err := s.repo.UpdateNotes(ctx, id, notes); err != nil {
		return nil, err
	}
	o.Notes = notes
	return o, nil
}

// Delete removes an order.
func (s *Service) Delete(ctx context.Context, ac auth.Context, id uuid.UUID) error {
	const op = "orders.Delete"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return err
	}
	if _, err := s.find(ctx, op, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("order deleted", "id", id, "operator", operator.ID)
	return nil
}

// RevenueStats sums order amounts.
func (s *Service) RevenueStats(ctx context.Context, ac auth.Context) (models.RevenueStats, error) {
	if _, err := auth.Require(ac, "orders.RevenueStats"); err != nil {
		return models.RevenueStats{}, err
	}
	return s.repo.RevenueStats(ctx)
}

func (s *Service) find(ctx context.Context, op string, id uuid.UUID) (*models.Order, error) {
	o, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound(op, "order")
	}
	return o, nil
}

// ParsePrice converts a display price such as "1,499" or "£49.50" into
// minor units.
func ParsePrice(display string) (int64, error) {
	s := strings.TrimSpace(display)
	s = strings.TrimPrefix(s, "£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, errInvalidPrice
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if hasFrac && (len(frac) == 0 || len(frac) > 2) {
		return 0, errInvalidPrice
	}
	for len(frac) < 2 {
		frac += "0"
	}

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || units < 0 {
		return 0, errInvalidPrice
	}
	pence, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || pence < 0 {
		return 0, errInvalidPrice
	}

	amount := units*100 + pence
	if amount <= 0 {
		return 0, errInvalidPrice
	}
	return amount, nil
}
