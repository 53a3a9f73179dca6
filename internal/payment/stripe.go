// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package payment creates and reads Stripe Checkout sessions over the
// Stripe REST API.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"probitcms/internal/apperr"
)

// ErrNotConfigured is returned when no secret key is set.
var ErrNotConfigured = errors.New("payment: no secret key configured")

// Config holds the Stripe credentials.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// CheckoutRequest describes a one-item card payment.
type CheckoutRequest struct {
	ProductName string
	Description string
	Amount      int64 // minor units
	Currency    string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// Session is the subset of a Stripe Checkout session the site uses.
type Session struct {
	ID            string            `json:"id"`
	URL           string            `json:"url"`
	Status        string            `json:"status"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
	Customer      struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
}

// Paid reports whether the session's payment has settled.
func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid" || s.PaymentStatus == "no_payment_required"
}

// Client calls the Stripe API.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a Stripe client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.stripe.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Client{config: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Enabled reports whether a secret key is configured.
func (c *Client) Enabled() bool {
	return c.config.SecretKey != ""
}

// CreateCheckoutSession starts a hosted checkout (POST /v1/checkout/sessions).
func (c *Client) CreateCheckoutSession(ctx context.Context, r CheckoutRequest) (*Session, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("payment_method_types[0]", "card")
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", r.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(r.Amount, 10))
	form.Set("line_items[0][price_data][product_data][name]", r.ProductName)
	if r.Description != "" {
		form.Set("line_items[0][price_data][product_data][description]", r.Description)
	}
	form.Set("success_url", r.SuccessURL)
	form.Set("cancel_url", r.CancelURL)
	for k, v := range r.Metadata {
		form.Set("metadata["+k+"]", v)
	}

	var s Session
	if err := c.do(ctx, "payment.CreateCheckoutSession", http.MethodPost, "/v1/checkout/sessions", form, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetCheckoutSession retrieves a session by ID.
func (c *Client) GetCheckoutSession(ctx context.Context, id string) (*Session, error) {
	var s Session
	path := "/v1/checkout/sessions/" + url.PathEscape(id)
	if err := c.do(ctx, "payment.GetCheckoutSession", http.MethodGet, path, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, form url.Values, out any) error {
	if !c.Enabled() {
		return apperr.External(op, "payment", ErrNotConfigured)
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("stripe request: %w", err)
	}
	req.SetBasicAuth(c.config.SecretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperr.External(op, "payment", fmt.Errorf("stripe http: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperr.External(op, "payment", fmt.Errorf("stripe read body: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		var e stripeError
		if json.Unmarshal(respBody, &e) == nil && e.Error.Message != "" {
			return apperr.External(op, "payment",
				fmt.Errorf("stripe API error (status %d, %s): %s", resp.StatusCode, e.Error.Type, e.Error.Message))
		}
		return apperr.External(op, "payment",
			fmt.Errorf("stripe API error (status %d): %s", resp.StatusCode, string(respBody)))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperr.External(op, "payment", fmt.Errorf("stripe unmarshal: %w", err))
	}
	return nil
}

type stripeError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
