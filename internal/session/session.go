// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package session keeps operator sessions in Valkey. The browser holds only
// a random ID in an HttpOnly cookie; the payload lives under
// "session:<id>" with a sliding TTL.
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"probitcms/internal/auth"
	"probitcms/internal/models"
)

const (
	CookieName = "pcms_session"
	DefaultTTL = 24 * time.Hour

	keyPrefix = "session:"
	idLength  = 32
)

var errNoCookie = errors.New("no session cookie")

// Data is the stored session payload.
type Data struct {
	UserID      uuid.UUID `json:"user_id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        string    `json:"role"`
	TwoFADone   bool      `json:"two_fa_done"`
	CreatedAt   time.Time `json:"created_at"`
}

// ForUser builds the payload for a freshly authenticated password login.
// 2FA is still pending.
func ForUser(u *models.User) *Data {
	return &Data{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        string(u.Role),
	}
}

// AuthContext returns the operator identity once 2FA is complete, or
// auth.Anonymous.
func (d *Data) AuthContext() auth.Context {
	if d == nil || !d.TwoFADone {
		return auth.Anonymous
	}
	return auth.Context{Operator: &auth.Operator{
		ID:          d.UserID,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		Role:        models.Role(d.Role),
	}}
}

// Store manages sessions in Valkey.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	secure bool

	now   func() time.Time
	newID func() (string, error)
}

// NewStore creates a store. secure sets the cookie Secure flag and should
// be true behind TLS.
func NewStore(client *redis.Client, ttl time.Duration, secure bool) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		client: client,
		ttl:    ttl,
		secure: secure,
		now:    time.Now,
		newID:  generateID,
	}
}

// Create stores data under a new ID and sets the cookie.
func (s *Store) Create(ctx context.Context, w http.ResponseWriter, data *Data) (string, error) {
	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("session create: %w", err)
	}

	data.CreatedAt = s.now()
	if err := s.save(ctx, id, data); err != nil {
		return "", err
	}

	s.setCookie(w, id, int(s.ttl.Seconds()))
	return id, nil
}

// Get loads the session named by the request cookie. A missing cookie or
// an expired session returns (nil, nil).
func (s *Store) Get(ctx context.Context, r *http.Request) (*Data, error) {
	id, err := cookieID(r)
	if err != nil {
		return nil, nil
	}

	payload, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session get: %w", err)
	}

	var data Data
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("session unmarshal: %w", err)
	}
	return &data, nil
}

// Update rewrites the payload under the current ID and resets the TTL.
func (s *Store) Update(ctx context.Context, r *http.Request, data *Data) error {
	id, err := cookieID(r)
	if err != nil {
		return fmt.Errorf("session update: %w", err)
	}
	return s.save(ctx, id, data)
}

// Rotate moves the session to a fresh ID. Used when privileges change
// (2FA completion) so a pre-login ID cannot be replayed.
func (s *Store) Rotate(ctx context.Context, w http.ResponseWriter, r *http.Request, data *Data) (string, error) {
	if old, err := cookieID(r); err == nil {
		if err := s.client.Del(ctx, keyPrefix+old).Err(); err != nil {
			return "", fmt.Errorf("session rotate: %w", err)
		}
	}
	id, err := s.newID()
	if err != nil {
		return "", fmt.Errorf("session rotate: %w", err)
	}
	if data.CreatedAt.IsZero() {
		data.CreatedAt = s.now()
	}
	if err := s.save(ctx, id, data); err != nil {
		return "", err
	}
	s.setCookie(w, id, int(s.ttl.Seconds()))
	return id, nil
}

// Destroy removes the session and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	id, err := cookieID(r)
	if err != nil {
		return nil
	}

	s.setCookie(w, "", -1)
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("session destroy: %w", err)
	}
	return nil
}

func (s *Store) save(ctx context.Context, id string, data *Data) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("session marshal: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+id, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

func (s *Store) setCookie(w http.ResponseWriter, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func cookieID(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", errNoCookie
	}
	return c.Value, nil
}

func generateID() (string, error) {
	b := make([]byte, idLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
