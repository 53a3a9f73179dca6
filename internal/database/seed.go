// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// SeedAdmin holds the credentials of the development operator account.
type SeedAdmin struct {
	Email    string
	Password string
	Name     string
}

// Seed creates the development admin when the users table is empty.
// The account starts without 2FA so the operator enrolls on first login.
func Seed(ctx context.Context, db *sql.DB, admin SeedAdmin) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(admin.Password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, 'admin', FALSE)
		ON CONFLICT (email) DO NOTHING
	`, admin.Email, string(hash), admin.Name)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	slog.Info("database seeded with development admin", "email", admin.Email)
	return nil
}
