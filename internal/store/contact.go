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

// ContactStore handles contact form submissions.
type ContactStore struct {
	db *sql.DB
}

// NewContactStore creates a new ContactStore with the given database connection.
func NewContactStore(db *sql.DB) *ContactStore {
	return &ContactStore{db: db}
}

const contactColumns = `id, name, email, phone, service, message, status, created_at, updated_at`

func scanContact(row scanner) (*models.ContactSubmission, error) {
	var c models.ContactSubmission
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Service, &c.Message,
		&c.Status, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create inserts a submission and returns it as stored.
func (s *ContactStore) Create(ctx context.Context, c *models.ContactSubmission) (*models.ContactSubmission, error) {
	out, err := scanContact(s.db.QueryRowContext(ctx, `
		INSERT INTO contact_submissions (name, email, phone, service, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+contactColumns,
		c.Name, c.Email, c.Phone, c.Service, c.Message, c.Status,
	))
	if err != nil {
		return nil, wrapErr("create contact submission", err)
	}
	return out, nil
}

// FindByID retrieves a submission. Returns nil if not found.
func (s *ContactStore) FindByID(ctx context.Context, id uuid.UUID) (*models.ContactSubmission, error) {
	c, err := scanContact(s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_submissions WHERE id = $1`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find contact submission: %w", err)
	}
	return c, nil
}

// List returns submissions newest first, optionally narrowed to one status.
func (s *ContactStore) List(ctx context.Context, status *models.ContactStatus) ([]models.ContactSubmission, error) {
	q := psql.Select(contactColumns).From("contact_submissions").OrderBy("created_at DESC", "id")
	if status != nil {
		q = q.Where(sq.Eq{"status": string(*status)})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build contact list: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list contact submissions: %w", err)
	}
	defer rows.Close()

	out := []models.ContactSubmission{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact submission: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// UpdateStatus sets the status of a submission.
func (s *ContactStore) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ContactStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE contact_submissions SET status = $1, updated_at = NOW() WHERE id = $2`, status, id,
	)
	if err != nil {
		return wrapErr("update contact status", err)
	}
	return nil
}

// CountByStatus returns how many submissions are in the given status.
func (s *ContactStore) CountByStatus(ctx context.Context, status models.ContactStatus) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contact_submissions WHERE status = $1`, status,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count contact submissions: %w", err)
	}
	return n, nil
}

// Delete removes a submission by ID.
func (s *ContactStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contact_submissions WHERE id = $1`, id); err != nil {
		return wrapErr("delete contact submission", err)
	}
	return nil
}
