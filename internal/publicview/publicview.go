// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package publicview assembles the read-only views shown to visitors. Only
// published posts and approved comments ever leave this package.
package publicview

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/models"
)

// PageSize is the number of posts per blog list page.
const PageSize = 6

// PostSource lists and looks up posts.
type PostSource interface {
	List(ctx context.Context, f models.PostFilter) ([]models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	Categories(ctx context.Context) ([]models.CategoryCount, error)
	Recent(ctx context.Context, n int) ([]models.Post, error)
}

// CommentSource reads approved comments.
type CommentSource interface {
	ListApprovedByPost(ctx context.Context, postID uuid.UUID) ([]models.Comment, error)
	ApprovedCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error)
}

// Query is the blog list filter. Page is 1-based; values below 1 mean 1.
type Query struct {
	Category string
	Search   string
	Page     int
}

// ListItem is one post on the blog list page.
type ListItem struct {
	models.Post
	CommentCount int
}

// ListResult is one page of published posts.
type ListResult struct {
	Items      []ListItem
	Total      int
	Page       int
	TotalPages int
	Query      Query
}

// HasPrev reports whether a previous page exists.
func (r ListResult) HasPrev() bool { return r.Page > 1 }

// HasNext reports whether a following page exists.
func (r ListResult) HasNext() bool { return r.Page < r.TotalPages }

// Detail is a published post with its approved comments.
type Detail struct {
	Post     *models.Post
	Comments []models.Comment
}

// Service builds the public views.
type Service struct {
	posts    PostSource
	comments CommentSource
}

// NewService wires the views.
func NewService(posts PostSource, comments CommentSource) *Service {
	return &Service{posts: posts, comments: comments}
}

// ListPublished returns one page of published posts, newest first,
// filtered by exact category and a case-insensitive substring search.
func (s *Service) ListPublished(ctx context.Context, q Query) (*ListResult, error) {
	q.Category = strings.TrimSpace(q.Category)
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}

	posts, err := s.posts.List(ctx, models.PostFilter{
		PublishedOnly: true,
		Category:      q.Category,
		Search:        q.Search,
	})
	if err != nil {
		return nil, err
	}

	// The store already filters; this keeps drafts out even if a source
	// ignores PublishedOnly.
	published := posts[:0:0]
	for _, p := range posts {
		if p.Published {
			published = append(published, p)
		}
	}

	page := Paginate(published, q.Page, PageSize)
	items := make([]ListItem, len(page))
	ids := make([]uuid.UUID, len(page))
	for i, p := range page {
		items[i] = ListItem{Post: p}
		ids[i] = p.ID
	}

	if len(ids) > 0 {
		counts, err := s.comments.ApprovedCounts(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range items {
			items[i].CommentCount = counts[items[i].ID]
		}
	}

	return &ListResult{
		Items:      items,
		Total:      len(published),
		Page:       q.Page,
		TotalPages: TotalPages(len(published), PageSize),
		Query:      q,
	}, nil
}

// PostDetail returns a published post and its approved comments. Drafts
// are reported as not found.
func (s *Service) PostDetail(ctx context.Context, slug string) (*Detail, error) {
	const op = "publicview.PostDetail"
	post, err := s.posts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if post == nil || !post.Published {
		return nil, apperr.NotFound(op, "post")
	}

	comments, err := s.comments.ListApprovedByPost(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	approved := comments[:0:0]
	for _, c := range comments {
		if c.IsApproved() {
			approved = append(approved, c)
		}
	}
	return &Detail{Post: post, Comments: approved}, nil
}

// Categories returns published categories with post counts.
func (s *Service) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	return s.posts.Categories(ctx)
}

// Recent returns the newest n published posts.
func (s *Service) Recent(ctx context.Context, n int) ([]models.Post, error) {
	if n <= 0 {
		return []models.Post{}, nil
	}
	return s.posts.Recent(ctx, n)
}

// Paginate returns the items of 1-based page n. Pages outside the range
// yield an empty slice.
func Paginate[T any](items []T, page, size int) []T {
	if page < 1 || size < 1 {
		return []T{}
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

// TotalPages is the number of pages needed for total items.
func TotalPages(total, size int) int {
	if total <= 0 || size < 1 {
		return 0
	}
	return (total + size - 1) / size
}
