// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package contact handles contact form intake and the operator inbox.
package contact

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/mail"
	"probitcms/internal/metrics"
	"probitcms/internal/models"
	"probitcms/internal/validate"
)

// Repository persists submissions. Finders return (nil, nil) on miss.
type Repository interface {
	Create(ctx context.Context, c *models.ContactSubmission) (*models.ContactSubmission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ContactSubmission, error)
	List(ctx context.Context, status *models.ContactStatus) ([]models.ContactSubmission, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ContactStatus) error
	CountByStatus(ctx context.Context, status models.ContactStatus) (int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Sender delivers one email and returns its provider ID.
type Sender interface {
	Send(ctx context.Context, msg mail.Message) (string, error)
}

// Composer renders the two contact emails.
type Composer interface {
	ContactNotification(e mail.Enquiry) (mail.Message, error)
	ContactAcknowledgment(e mail.Enquiry) (mail.Message, error)
}

// Input is the visitor's form submission.
type Input struct {
	Name    string `json:"name" validate:"notblank,max=200"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Phone   string `json:"phone" validate:"max=50"`
	Service string `json:"service" validate:"max=200"`
	Message string `json:"message" validate:"notblank,max=10000"`
}

// Notification reports what happened to the follow-up emails. Err is set
// when either send failed; the submission is stored regardless.
type Notification struct {
	AdminEmailID    string `json:"admin_email_id,omitempty"`
	CustomerEmailID string `json:"customer_email_id,omitempty"`
	Err             error  `json:"-"`
}

// SubmitResult is the outcome of a contact submission.
type SubmitResult struct {
	Submission   *models.ContactSubmission
	Notification Notification
}

// DefaultEmailTimeout bounds both follow-up sends together.
const DefaultEmailTimeout = 15 * time.Second

// Service is the contact intake.
type Service struct {
	repo         Repository
	sender       Sender
	composer     Composer
	emailTimeout time.Duration
}

// NewService wires the intake.
func NewService(repo Repository, sender Sender, composer Composer) *Service {
	return &Service{repo: repo, sender: sender, composer: composer, emailTimeout: DefaultEmailTimeout}
}

// Submit stores the submission as new, then sends the operator
// notification and the visitor acknowledgment. Email failures are logged
// and reported in the result; they never undo or fail the submission.
func (s *Service) Submit(ctx context.Context, in Input) (*SubmitResult, error) {
	const op = "contact.Submit"

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Service = strings.TrimSpace(in.Service)
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}

	var phone *string
	if in.Phone != "" {
		phone = &in.Phone
	}
	sub, err := s.repo.Create(ctx, &models.ContactSubmission{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   phone,
		Service: in.Service,
		Message: in.Message,
		Status:  models.ContactNew,
	})
	if err != nil {
		return nil, err
	}
	metrics.ContactSubmissions.Inc()
	slog.Info("contact submission stored", "id", sub.ID)

	return &SubmitResult{Submission: sub, Notification: s.notify(ctx, in)}, nil
}

func (s *Service) notify(ctx context.Context, in Input) Notification {
	// The request may end before the sends finish; the emails should not
	// be cut short by that, only by the timeout.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.emailTimeout)
	defer cancel()

	e := mail.Enquiry{Name: in.Name, Email: in.Email, Phone: in.Phone, Service: in.Service, Message: in.Message}
	var n Notification
	var errs []error

	if msg, err := s.composer.ContactNotification(e); err != nil {
		errs = append(errs, err)
	} else if id, err := s.sender.Send(ctx, msg); err != nil {
		metrics.EmailsFailed.WithLabelValues("admin_notification").Inc()
		slog.Error("contact notification email failed", "error", err)
		errs = append(errs, err)
	} else {
		n.AdminEmailID = id
	}

	if msg, err := s.composer.ContactAcknowledgment(e); err != nil {
		errs = append(errs, err)
	} else if id, err := s.sender.Send(ctx, msg); err != nil {
		metrics.EmailsFailed.WithLabelValues("customer_acknowledgment").Inc()
		slog.Error("contact acknowledgment email failed", "error", err)
		errs = append(errs, err)
	} else {
		n.CustomerEmailID = id
	}

	n.Err = errors.Join(errs...)
	return n
}

// List returns submissions newest first.
func (s *Service) List(ctx context.Context, ac auth.Context) ([]models.ContactSubmission, error) {
	if _, err := auth.Require(ac, "contact.List"); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, nil)
}

// ListByStatus returns submissions in one status.
func (s *Service) ListByStatus(ctx context.Context, ac auth.Context, status models.ContactStatus) ([]models.ContactSubmission, error) {
	const op = "contact.ListByStatus"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: new, read, replied")
	}
	return s.repo.List(ctx, &status)
}

// Get returns a single submission.
func (s *Service) Get(ctx context.Context, ac auth.Context, id uuid.UUID) (*models.ContactSubmission, error) {
	const op = "contact.Get"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound(op, "contact submission")
	}
	return c, nil
}

// Advance moves a submission forward through new, read and replied.
// Repeating the current status is a no-op; going back is a conflict.
func (s *Service) Advance(ctx context.Context, ac auth.Context, id uuid.UUID, status models.ContactStatus) (*models.ContactSubmission, error) {
	const op = "contact.Advance"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: new, read, replied")
	}

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound(op, "contact submission")
	}
	if c.Status == status {
		return c, nil
	}
	if status.Before(c.Status) {
		return nil, apperr.Conflict(op, "submission is already marked "+string(c.Status), nil)
	}

	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		return nil, err
	}
	slog.Info("contact status changed", "id", id, "from", c.Status, "to", status, "operator", operator.ID)
	c.Status = status
	return c, nil
}

// Delete removes a submission.
func (s *Service) Delete(ctx context.Context, ac auth.Context, id uuid.UUID) error {
	const op = "contact.Delete"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return err
	}
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound(op, "contact submission")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	slog.Info("contact submission deleted", "id", id, "operator", operator.ID)
	return nil
}

// CountNew returns how many submissions are still unread.
func (s *Service) CountNew(ctx context.Context, ac auth.Context) (int, error) {
	if _, err := auth.Require(ac, "contact.CountNew"); err != nil {
		return 0, err
	}
	return s.repo.CountByStatus(ctx, models.ContactNew)
}
