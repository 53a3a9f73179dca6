// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blog manages the lifecycle of blog posts: creation, edits,
// publishing and removal. Every mutating operation requires an operator.
package blog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/auth"
	"probitcms/internal/models"
	"probitcms/internal/slug"
	"probitcms/internal/validate"
)

// PostRepository is the persistence the service needs. Finders return
// (nil, nil) when nothing matches.
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	Update(ctx context.Context, p *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error)
	List(ctx context.Context, f models.PostFilter) ([]models.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Purge(ctx context.Context, id uuid.UUID) error
}

// CommentCounter reports how many comments reference a post.
type CommentCounter interface {
	CountForPost(ctx context.Context, postID uuid.UUID) (int, error)
}

// Invalidator drops cached public pages after content changes.
type Invalidator interface {
	InvalidateAll(ctx context.Context)
}

// PostInput is the payload for creating a post.
type PostInput struct {
	Title     string   `json:"title" validate:"notblank,max=300"`
	Slug      string   `json:"slug" validate:"notblank,max=200"`
	Excerpt   string   `json:"excerpt" validate:"notblank,max=1000"`
	Content   string   `json:"content" validate:"notblank,max=200000"`
	Image     string   `json:"image" validate:"notblank,url"`
	Category  string   `json:"category" validate:"notblank,max=100"`
	Tags      []string `json:"tags"`
	Published bool     `json:"published"`
}

// draftRules bound a post that is not published. Fields may be blank but
// never exceed the limits PostInput sets.
type draftRules struct {
	Title    string `json:"title" validate:"notblank,max=300"`
	Slug     string `json:"slug" validate:"notblank,max=200"`
	Excerpt  string `json:"excerpt" validate:"max=1000"`
	Content  string `json:"content" validate:"max=200000"`
	Image    string `json:"image" validate:"omitempty,url"`
	Category string `json:"category" validate:"max=100"`
}

// PostUpdate is a partial edit. Nil fields keep their stored value.
type PostUpdate struct {
	Title     *string   `json:"title"`
	Slug      *string   `json:"slug"`
	Excerpt   *string   `json:"excerpt"`
	Content   *string   `json:"content"`
	Image     *string   `json:"image"`
	Category  *string   `json:"category"`
	Tags      *[]string `json:"tags"`
	Published *bool     `json:"published"`
}

// Service is the content lifecycle manager.
type Service struct {
	posts    PostRepository
	comments CommentCounter
	cache    Invalidator
}

// NewService wires the service. cache may be nil.
func NewService(posts PostRepository, comments CommentCounter, cache Invalidator) *Service {
	return &Service{posts: posts, comments: comments, cache: cache}
}

// CreatePost validates and stores a new post authored by the operator.
func (s *Service) CreatePost(ctx context.Context, ac auth.Context, in PostInput) (*models.Post, error) {
	const op = "blog.CreatePost"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}

	in.Title = strings.TrimSpace(in.Title)
	in.Slug = strings.TrimSpace(in.Slug)
	in.Category = strings.TrimSpace(in.Category)
	in.Image = strings.TrimSpace(in.Image)
	if err := validate.Struct(op, in); err != nil {
		return nil, err
	}
	if !slug.Valid(in.Slug) {
		return nil, apperr.Validation(op, "slug", "slug may only contain lowercase letters, digits and single hyphens")
	}
	if err := s.ensureSlugFree(ctx, op, in.Slug, uuid.Nil); err != nil {
		return nil, err
	}

	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}
	authorID := operator.ID
	post, err := s.posts.Create(ctx, &models.Post{
		Title:     in.Title,
		Slug:      in.Slug,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Image:     in.Image,
		Category:  in.Category,
		Tags:      tags,
		Published: in.Published,
		AuthorID:  &authorID,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("post created", "id", post.ID, "slug", post.Slug, "published", post.Published, "operator", operator.ID)
	s.invalidate(ctx, post.Published)
	return post, nil
}

// UpdatePost merges the non-nil fields of upd into the stored post. When
// the merged post is published it must satisfy the publish requirements.
func (s *Service) UpdatePost(ctx context.Context, ac auth.Context, id uuid.UUID, upd PostUpdate) (*models.Post, error) {
	const op = "blog.UpdatePost"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return nil, err
	}

	existing, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, apperr.NotFound(op, "post")
	}
	wasPublished := existing.Published

	merged := *existing
	applyUpdate(&merged, upd)

	if upd.Slug != nil && merged.Slug != existing.Slug {
		if !slug.Valid(merged.Slug) {
			return nil, apperr.Validation(op, "slug", "slug may only contain lowercase letters, digits and single hyphens")
		}
		if err := s.ensureSlugFree(ctx, op, merged.Slug, id); err != nil {
			return nil, err
		}
	}
	if err := validateMerged(op, &merged); err != nil {
		return nil, err
	}

	post, err := s.posts.Update(ctx, &merged)
	if err != nil {
		return nil, err
	}
	if post == nil {
		// Deleted between the read and the write.
		return nil, apperr.NotFound(op, "post")
	}

	slog.Info("post updated", "id", post.ID, "slug", post.Slug, "published", post.Published, "operator", operator.ID)
	s.invalidate(ctx, wasPublished || post.Published)
	return post, nil
}

// SetPublished toggles the published flag.
func (s *Service) SetPublished(ctx context.Context, ac auth.Context, id uuid.UUID, published bool) (*models.Post, error) {
	return s.UpdatePost(ctx, ac, id, PostUpdate{Published: &published})
}

// DeletePost removes a post that has no comments. Posts with comments are
// rejected with a conflict; use PurgePost to remove them together.
func (s *Service) DeletePost(ctx context.Context, ac auth.Context, id uuid.UUID) error {
	const op = "blog.DeletePost"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return apperr.NotFound(op, "post")
	}

	n, err := s.comments.CountForPost(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return apperr.Conflict(op, fmt.Sprintf("post has %d comment(s); delete them or purge the post", n), nil)
	}

	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("post deleted", "id", id, "slug", post.Slug, "operator", operator.ID)
	s.invalidate(ctx, post.Published)
	return nil
}

// PurgePost removes a post together with all of its comments.
func (s *Service) PurgePost(ctx context.Context, ac auth.Context, id uuid.UUID) error {
	const op = "blog.PurgePost"
	operator, err := auth.Require(ac, op)
	if err != nil {
		return err
	}

	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if post == nil {
		return apperr.NotFound(op, "post")
	}

	if err := s.posts.Purge(ctx, id); err != nil {
		return err
	}

	slog.Warn("post purged with comments", "id", id, "slug", post.Slug, "operator", operator.ID)
	s.invalidate(ctx, true)
	return nil
}

// GetPostByID returns a post regardless of its published flag.
func (s *Service) GetPostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("blog.GetPostByID", "post")
	}
	return post, nil
}

// GetPostBySlug returns a post regardless of its published flag. Public
// callers must check Published themselves.
func (s *Service) GetPostBySlug(ctx context.Context, postSlug string) (*models.Post, error) {
	post, err := s.posts.FindBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, apperr.NotFound("blog.GetPostBySlug", "post")
	}
	return post, nil
}

// ListPosts returns every post, drafts included, newest first.
func (s *Service) ListPosts(ctx context.Context, ac auth.Context) ([]models.Post, error) {
	if _, err := auth.Require(ac, "blog.ListPosts"); err != nil {
		return nil, err
	}
	return s.posts.List(ctx, models.PostFilter{})
}

func (s *Service) ensureSlugFree(ctx context.Context, op, candidate string, exclude uuid.UUID) error {
	taken, err := s.posts.SlugTaken(ctx, candidate, exclude)
	if err != nil {
		return err
	}
	if taken {
		return apperr.Conflict(op, fmt.Sprintf("slug %q is already in use", candidate), nil)
	}
	return nil
}

func (s *Service) invalidate(ctx context.Context, public bool) {
	if s.cache != nil && public {
		s.cache.InvalidateAll(ctx)
	}
}

// validateMerged checks an edited post. Published posts must pass the same
// rules as CreatePost; drafts only the length and format limits.
func validateMerged(op string, p *models.Post) error {
	if !p.Published {
		return validate.Struct(op, draftRules{
			Title:    p.Title,
			Slug:     p.Slug,
			Excerpt:  p.Excerpt,
			Content:  p.Content,
			Image:    p.Image,
			Category: p.Category,
		})
	}
	if missing := p.MissingPublishFields(); len(missing) > 0 {
		return apperr.Validation(op, missing[0],
			fmt.Sprintf("cannot publish without %s", strings.Join(missing, ", ")))
	}
	return validate.Struct(op, PostInput{
		Title:     p.Title,
		Slug:      p.Slug,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Image:     p.Image,
		Category:  p.Category,
		Tags:      p.Tags,
		Published: p.Published,
	})
}

func applyUpdate(p *models.Post, upd PostUpdate) {
	if upd.Title != nil {
		p.Title = strings.TrimSpace(*upd.Title)
	}
	if upd.Slug != nil {
		p.Slug = strings.TrimSpace(*upd.Slug)
	}
	if upd.Excerpt != nil {
		p.Excerpt = *upd.Excerpt
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Image != nil {
		p.Image = strings.TrimSpace(*upd.Image)
	}
	if upd.Category != nil {
		p.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Tags != nil {
		p.Tags = *upd.Tags
		if p.Tags == nil {
			p.Tags = []string{}
		}
	}
	if upd.Published != nil {
		p.Published = *upd.Published
	}
}

// ParseTags splits comma-separated admin input into trimmed, non-empty tags.
func ParseTags(raw string) []string {
	tags := []string{}
	for _, part := range strings.Split(raw, ",") {
		if t := strings.TrimSpace(part); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
