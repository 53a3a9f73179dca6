// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package payment

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"probitcms/internal/apperr"
)

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if user, _, ok := r.BasicAuth(); !ok || user != "sk_test" {
			t.Errorf("basic auth user: got %q", user)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("ParseForm: %v", err)
		}
		checks := map[string]string{
			"mode": "payment",
			"line_items[0][price_data][currency]":            "gbp",
			"line_items[0][price_data][unit_amount]":         "149900",
			"line_items[0][price_data][product_data][name]": "Growth Package",
			"success_url":         "https://probit.test/payment/success?session_id={CHECKOUT_SESSION_ID}",
			"metadata[planName]": "Growth",
		}
		for k, want := range checks {
			if got := r.PostForm.Get(k); got != want {
				t.Errorf("%s: got %q, want %q", k, got, want)
			}
		}
		w.Write([]byte(`{"id":"cs_test_1","url":"https://checkout.stripe.test/c/cs_test_1"}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "sk_test", BaseURL: srv.URL})
	s, err := c.CreateCheckoutSession(context.Background(), CheckoutRequest{
		ProductName: "Growth Package",
		Amount:      149900,
		Currency:    "gbp",
		SuccessURL:  "https://probit.test/payment/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:   "https://probit.test/payment/cancel",
		Metadata:    map[string]string{"planName": "Growth"},
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if s.ID != "cs_test_1" || !strings.HasPrefix(s.URL, "https://checkout.stripe.test/") {
		t.Errorf("session: %+v", s)
	}
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/checkout/sessions/cs_test_2" {
			t.Errorf("path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"id":"cs_test_2","status":"complete","payment_status":"paid","amount_total":49900,
			"currency":"gbp","metadata":{"planName":"Starter"},
			"customer_details":{"email":"buyer@example.com","name":"Buyer"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "sk_test", BaseURL: srv.URL})
	s, err := c.GetCheckoutSession(context.Background(), "cs_test_2")
	if err != nil {
		t.Fatalf("GetCheckoutSession: %v", err)
	}
	if !s.Paid() || s.AmountTotal != 49900 || s.Customer.Email != "buyer@example.com" || s.Metadata["planName"] != "Starter" {
		t.Errorf("session: %+v", s)
	}
}

func TestStripeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`))
	}))
	defer srv.Close()

	c := NewClient(Config{SecretKey: "sk_test", BaseURL: srv.URL})
	_, err := c.GetCheckoutSession(context.Background(), "cs_missing")
	if !apperr.Is(err, apperr.KindExternalService) {
		t.Fatalf("got %v, want external service error", err)
	}
	if !strings.Contains(err.Error(), "No such checkout.session") {
		t.Errorf("error should carry Stripe's message: %v", err)
	}

	_, err = NewClient(Config{}).GetCheckoutSession(context.Background(), "x")
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("unconfigured: got %v", err)
	}
}
