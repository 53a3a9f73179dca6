// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mail sends transactional email through the Resend HTTP API and
// renders the contact-form notification and acknowledgment messages.
package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"probitcms/internal/apperr"
)

// ErrNotConfigured is returned by Send when no API key is set.
var ErrNotConfigured = errors.New("mail: no API key configured")

// Message is a single outbound email.
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	ReplyTo string   `json:"reply_to,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Config holds the Resend credentials and sender identities.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to the Resend API (POST /emails).
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a Resend client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.resend.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Enabled reports whether the client has credentials.
func (c *Client) Enabled() bool {
	return c.config.APIKey != ""
}

// Send delivers msg and returns the provider's message ID.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	const op = "mail.Send"
	if !c.Enabled() {
		return "", apperr.External(op, "email", ErrNotConfigured)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("resend marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", apperr.External(op, "email", fmt.Errorf("resend http: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", apperr.External(op, "email", fmt.Errorf("resend read body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr resendError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return "", apperr.External(op, "email",
				fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, apiErr.Message))
		}
		return "", apperr.External(op, "email",
			fmt.Errorf("resend API error (status %d): %s", resp.StatusCode, string(body)))
	}

	var result resendResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", apperr.External(op, "email", fmt.Errorf("resend unmarshal: %w", err))
	}
	if result.ID == "" {
		return "", apperr.External(op, "email", errors.New("resend: empty message id"))
	}
	return result.ID, nil
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}
