// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/mail"
	"probitcms/internal/models"
)

type memRepo struct {
	items map[uuid.UUID]models.ContactSubmission
}

func newMemRepo() *memRepo {
	return &memRepo{items: make(map[uuid.UUID]models.ContactSubmission)}
}

func (m *memRepo) Create(_ context.Context, c *models.ContactSubmission) (*models.ContactSubmission, error) {
	cp := *c
	cp.ID = uuid.New()
	m.items[cp.ID] = cp
	return &cp, nil
}

func (m *memRepo) FindByID(_ context.Context, id uuid.UUID) (*models.ContactSubmission, error) {
	c, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memRepo) List(_ context.Context, status *models.ContactStatus) ([]models.ContactSubmission, error) {
	out := []models.ContactSubmission{}
	for _, c := range m.items {
		if status == nil || c.Status == *status {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.ContactStatus) error {
	c := m.items[id]
	c.Status = status
	m.items[id] = c
	return nil
}

func (m *memRepo) CountByStatus(_ context.Context, status models.ContactStatus) (int, error) {
	n := 0
	for _, c := range m.items {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

// stubSender fails for the recipients listed in failFor.
type stubSender struct {
	sent    []mail.Message
	failFor map[string]bool
}

func (s *stubSender) Send(ctx context.Context, msg mail.Message) (string, error) {
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if s.failFor[msg.To[0]] {
		return "", apperr.External("mail.Send", "email", errors.New("connection refused"))
	}
	s.sent = append(s.sent, msg)
	return "id-" + msg.To[0], nil
}

func newService(repo *memRepo, sender *stubSender) *Service {
	comp := mail.NewComposer(mail.Identity{Company: "ITProBit", FromAddress: "noreply@probit.test", AdminTo: "ops@probit.test"})
	return NewService(repo, sender, comp)
}

func validInput() Input {
	return Input{Name: "Jo", Email: "jo@example.com", Service: "Cloud migration", Message: "Can you help?"}
}

func TestSubmitSendsBothEmails(t *testing.T) {
	repo := newMemRepo()
	sender := &stubSender{}
	svc := newService(repo, sender)

	res, err := svc.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Submission.Status != models.ContactNew {
		t.Errorf("status: got %q, want new", res.Submission.Status)
	}
	if res.Notification.Err != nil {
		t.Errorf("unexpected notification error: %v", res.Notification.Err)
	}
	if res.Notification.AdminEmailID != "id-ops@probit.test" || res.Notification.CustomerEmailID != "id-jo@example.com" {
		t.Errorf("email ids: %+v", res.Notification)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d emails, want 2", len(sender.sent))
	}
	if sender.sent[0].ReplyTo != "jo@example.com" {
		t.Errorf("notification reply-to: got %q", sender.sent[0].ReplyTo)
	}
}

func TestSubmitDurableWhenEmailFails(t *testing.T) {
	tests := []struct {
		name        string
		failFor     map[string]bool
		wantAdminID bool
		wantCustID  bool
	}{
		{"admin notification fails", map[string]bool{"ops@probit.test": true}, false, true},
		{"acknowledgment fails", map[string]bool{"jo@example.com": true}, true, false},
		{"both fail", map[string]bool{"ops@probit.test": true, "jo@example.com": true}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			svc := newService(repo, &stubSender{failFor: tt.failFor})

			res, err := svc.Submit(context.Background(), validInput())
			if err != nil {
				t.Fatalf("Submit must not fail on email errors: %v", err)
			}
			if res.Notification.Err == nil {
				t.Error("expected the email failure to be reported")
			}
			if (res.Notification.AdminEmailID != "") != tt.wantAdminID {
				t.Errorf("admin id: %q", res.Notification.AdminEmailID)
			}
			if (res.Notification.CustomerEmailID != "") != tt.wantCustID {
				t.Errorf("customer id: %q", res.Notification.CustomerEmailID)
			}

			stored, _ := repo.FindByID(context.Background(), res.Submission.ID)
			if stored == nil || stored.Status != models.ContactNew {
				t.Fatalf("submission not persisted as new: %+v", stored)
			}
		})
	}
}

func TestSubmitSurvivesCancelledRequest(t *testing.T) {
	repo := newMemRepo()
	sender := &stubSender{}
	svc := newService(repo, sender)

	// The client went away right after the insert.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Submit(ctx, validInput())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if res.Notification.Err != nil {
		t.Errorf("emails should be sent: %v", res.Notification.Err)
	}
}

func TestSubmitValidation(t *testing.T) {
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{"no name", Input{Email: "a@b.co", Message: "m"}, "name"},
		{"bad email", Input{Name: "A", Email: "nope", Message: "m"}, "email"},
		{"blank message", Input{Name: "A", Email: "a@b.co", Message: "   "}, "message"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemRepo()
			sender := &stubSender{}
			_, err := newService(repo, sender).Submit(context.Background(), tt.in)
			if !apperr.Is(err, apperr.KindValidation) || apperr.FieldOf(err) != tt.field {
				t.Errorf("got %v (field %q), want validation on %q", err, apperr.FieldOf(err), tt.field)
			}
			if len(repo.items) != 0 || len(sender.sent) != 0 {
				t.Error("invalid submission must not be stored or emailed")
			}
		})
	}
}

func TestSubmitOptionalPhone(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubSender{})

	in := validInput()
	in.Phone = "  "
	res, _ := svc.Submit(context.Background(), in)
	if res.Submission.Phone != nil {
		t.Errorf("blank phone should be nil, got %q", *res.Submission.Phone)
	}

	in.Phone = "+44 7700 900000"
	res, _ = svc.Submit(context.Background(), in)
	if res.Submission.Phone == nil || *res.Submission.Phone != "+44 7700 900000" {
		t.Errorf("phone: got %v", res.Submission.Phone)
	}
}

func TestAdvance(t *testing.T) {
	repo := newMemRepo()
	svc := newService(repo, &stubSender{})
	ctx := context.Background()
	ac := auth.ForOperator(&models.User{ID: uuid.New()})

	res, _ := svc.Submit(ctx, validInput())
	id := res.Submission.ID

	if _, err := svc.Advance(ctx, auth.Anonymous, id, models.ContactRead); !apperr.Is(err, apperr.KindAuthentication) {
		t.Errorf("anonymous: got %v", err)
	}

	c, err := svc.Advance(ctx, ac, id, models.ContactRead)
	if err != nil || c.Status != models.ContactRead {
		t.Fatalf("to read: %v, %v", c, err)
	}
	if _, err := svc.Advance(ctx, ac, id, models.ContactRead); err != nil {
		t.Errorf("same status should be a no-op: %v", err)
	}
	if _, err := svc.Advance(ctx, ac, id, models.ContactNew); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("backwards: got %v, want conflict", err)
	}
	if _, err := svc.Advance(ctx, ac, id, models.ContactReplied); err != nil {
		t.Errorf("to replied: %v", err)
	}
	if _, err := svc.Advance(ctx, ac, id, models.ContactStatus("archived")); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("invalid status: got %v", err)
	}
	if _, err := svc.Advance(ctx, ac, uuid.New(), models.ContactRead); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown id: got %v", err)
	}

	n, _ := svc.CountNew(ctx, ac)
	if n != 0 {
		t.Errorf("CountNew: got %d, want 0", n)
	}

	if err := svc.Delete(ctx, ac, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, ac, id); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("after delete: got %v", err)
	}
}
