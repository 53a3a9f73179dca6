// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package moderation runs the comment pipeline. Visitors submit comments,
// which always enter the queue as pending, and operators move them between
// pending, approved and spam or delete them. Only approved comments are
// ever shown publicly.
package moderation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/metrics"
	"probitcms/internal/models"
	"probitcms/internal/validate"
)

// CommentRepository is the comment persistence the pipeline needs.
type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) (*models.Comment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uuid.UUID, status models.CommentStatus) ([]models.Comment, error)
	List(ctx context.Context, status *models.CommentStatus) ([]models.Comment, error)
	CountByStatus(ctx context.Context) (map[models.CommentStatus]int, error)
	ApprovedCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CommentStatus, operatorID uuid.UUID) error
	History(ctx context.Context, commentID uuid.UUID) ([]models.CommentStatusEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostLookup resolves the post a comment is submitted against.
type PostLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
}

// Invalidator drops cached public pages.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// CommentInput is what a visitor submits. It deliberately has no status:
// new comments are always pending.
type CommentInput struct {
	AuthorName    string  `json:"author_name" validate:"notblank,max=100"`
	AuthorEmail   string  `json:"author_email" validate:"required,email,max=254"`
	AuthorWebsite *string `json:"author_website" validate:"omitempty,http_url,max=500"`
	Text          string  `json:"comment_text" validate:"notblank,max=5000"`
}

// Counts tallies the whole queue by status.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Spam     int `json:"spam"`
}

// Queue is the operator view of the moderation queue.
type Queue struct {
	Comments []models.Comment `json:"comments"`
	Counts   Counts           `json:"counts"`
}

// Service is the moderation pipeline.
type Service struct {
	comments CommentRepository
	posts    PostLookup
	cache    Invalidator
}

// NewService wires the pipeline. cache may be nil.
func NewService(comments CommentRepository, posts PostLookup, cache Invalidator) *Service {
	return &Service{comments: comments, posts: posts, cache: cache}
}

// SubmitComment stores a visitor comment as pending. The target post must
// exist and be published.
func (s *Service) SubmitComment(ctx context.Context, postID uuid.UUID, in CommentInput) (*models.Comment, error) {
	const op = "moderation.SubmitComment"

	in.AuthorName = strings.TrimSpace(in.AuthorName)
	in.AuthorEmail = strings.TrimSpace(in.AuthorEmail)
	if in.AuthorWebsite != nil {
		w := strings.TrimSpace(*in.AuthorWebsite)
		if w == "" {
			in.AuthorWebsite = nil
		} else {
			in.AuthorWebsite = &w
		}
	}
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}

	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil || !post.Published {
		return nil, apperr.NotFound(op, "post")
	}

	c, err := s.comments.Create(ctx, &models.Comment{
		PostID:        postID,
		AuthorName:    in.AuthorName,
		AuthorEmail:   in.AuthorEmail,
		AuthorWebsite: in.AuthorWebsite,
		Text:          in.Text,
		Status:        models.CommentPending,
	})
	if err != nil {
		return nil, err
	}

	metrics.CommentsSubmitted.Inc()
	slog.Info("comment submitted", "id", c.ID, "post", postID)
	return c, nil
}

// ListApprovedByPost returns a post's approved comments, newest first.
func (s *Service) ListApprovedByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error) {
	return s.comments.ListByPost(ctx, postID, models.CommentApproved)
}

// ApprovedCounts returns approved comment counts keyed by post.
func (s *Service) ApprovedCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	return s.comments.ApprovedCounts(ctx, postIDs)
}

// ListAll returns the full queue with counts.
func (s *Service) ListAll(ctx context.Context, ac auth.Context) (*Queue, error) {
	if _, err := auth.Require(ac, "moderation.ListAll"); err != nil {
		return nil, err
	}
	return s.queue(ctx, nil)
}

// ListByStatus returns the comments in one status. Counts still cover the
// whole queue.
func (s *Service) ListByStatus(ctx context.Context, ac auth.Context, status models.CommentStatus) (*Queue, error) {
	const op = "moderation.ListByStatus"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: pending, approved, spam")
	}
	return s.queue(ctx, &status)
}

func (s *Service) queue(ctx context.Context, status *models.CommentStatus) (*Queue, error) {
	comments, err := s.comments.List(ctx, status)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.comments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	counts := Counts{
		Pending:  byStatus[models.CommentPending],
		Approved: byStatus[models.CommentApproved],
		Spam:     byStatus[models.CommentSpam],
	}
	counts.Total = counts.Pending + counts.Approved + counts.Spam
	return &Queue{Comments: comments, Counts: counts}, nil
}

// SetStatus moves a comment to status. Setting the current status again
// succeeds without recording anything.
func (s *Service) SetStatus(ctx context.Context, ac auth.Context, id uuid.UUID, status models.CommentStatus) (*models.Comment, error) {
	const op = "moderation.SetStatus"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperr.Validation(op, "status", "status must be one of: pending, approved, spam")
	}

	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound(op, "comment")
	}
	if c.Status == status {
		return c, nil
	}

	from := c.Status
	if err := s.comments.UpdateStatus(ctx, id, from, status, operator.ID); err != nil {
		return nil, err
	}
	c.Status = status

	metrics.CommentTransitions.WithLabelValues(string(status)).Inc()
	slog.Info("comment status changed", "id", id, "from", from, "to", status, "operator", operator.ID)
	if from == models.CommentApproved || status == models.CommentApproved {
		s.invalidate(ctx)
	}
	return c, nil
}

// History returns the status changes recorded for a comment.
func (s *Service) History(ctx context.Context, ac auth.Context, id uuid.UUID) ([]models.CommentStatusEvent, error) {
	const op = "moderation.History"
	if _, err := auth.Require(ac, op); err != nil {
		return nil, err
	}
	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperr.NotFound(op, "comment")
	}
	return s.comments.History(ctx, id)
}

// DeleteComment removes a comment permanently.
func (s *Service) DeleteComment(ctx context.Context, ac auth.Context, id uuid.UUID) error {
	const op = "moderation.DeleteComment"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return err
	}

	c, err := s.comments.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if c == nil {
		return apperr.NotFound(op, "comment")
	}
	if err := s.comments.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("comment deleted", "id", id, "status", c.Status, "operator", operator.ID)
	if c.IsApproved() {
		s.invalidate(ctx)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.InvalidateAll(ctx)
	}
}
