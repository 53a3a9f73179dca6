// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"probitcms/internal/models"
)

// PostStore handles blog post persistence.
type PostStore struct {
	db *sql.DB
}

// NewPostStore creates a new PostStore with the given database connection.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

var postColumns = []string{
	"p.id", "p.title", "p.slug", "p.excerpt", "p.content", "p.image",
	"p.category", "p.tags", "p.published", "p.author_id",
	"p.created_at", "p.updated_at", "COALESCE(u.display_name, '')",
}

// scanPost reads one row selected with postColumns. Arrays are decoded
// through the pgtype map because database/sql has no native TEXT[] support.
func scanPost(m *pgtype.Map, row scanner) (*models.Post, error) {
	var p models.Post
	err := row.Scan(
		&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Content, &p.Image,
		&p.Category, m.SQLScanner(&p.Tags), &p.Published, &p.AuthorID,
		&p.CreatedAt, &p.UpdatedAt, &p.AuthorName,
	)
	if err != nil {
		return nil, err
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return &p, nil
}

func selectPosts() sq.SelectBuilder {
	return psql.Select(postColumns...).
		From("blog_posts p").
		LeftJoin("users u ON u.id = p.author_id")
}

// listQuery builds the filtered, newest-first post listing.
func listQuery(f models.PostFilter) sq.SelectBuilder {
	q := selectPosts()
	if f.PublishedOnly {
		q = q.Where(sq.Eq{"p.published": true})
	}
	if f.Category != "" {
		q = q.Where(sq.Eq{"p.category": f.Category})
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		q = q.Where(sq.Or{
			sq.ILike{"p.title": pattern},
			sq.ILike{"p.excerpt": pattern},
			sq.ILike{"p.content": pattern},
		})
	}
	return q.OrderBy("p.created_at DESC", "p.id")
}

// escapeLike neutralizes LIKE wildcards so the search is a plain substring match.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns posts matching the filter, newest first.
func (s *PostStore) List(ctx context.Context, f models.PostFilter) ([]models.Post, error) {
	query, args, err := listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build post list: %w", err)
	}
	return s.query(ctx, "list posts", query, args...)
}

// Recent returns the newest n published posts.
func (s *PostStore) Recent(ctx context.Context, n int) ([]models.Post, error) {
	query, args, err := listQuery(models.PostFilter{PublishedOnly: true}).Limit(uint64(n)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent posts: %w", err)
	}
	return s.query(ctx, "recent posts", query, args...)
}

func (s *PostStore) query(ctx context.Context, op, query string, args ...any) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	m := pgtype.NewMap()
	posts := []models.Post{}
	for rows.Next() {
		p, err := scanPost(m, rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}

// FindByID retrieves a post by its UUID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findOne(ctx, "find post by id", sq.Expr("p.id = ?", id))
}

// FindBySlug retrieves a post by slug regardless of its published flag.
// Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, "find post by slug", sq.Eq{"p.slug": slug})
}

func (s *PostStore) findOne(ctx context.Context, op string, where sq.Sqlizer) (*models.Post, error) {
	query, args, err := selectPosts().Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	p, err := scanPost(pgtype.NewMap(), s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

// SlugTaken reports whether another post already uses slug. Pass uuid.Nil
// as exclude when creating.
func (s *PostStore) SlugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	var taken bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM blog_posts WHERE slug = $1 AND id <> $2)`,
		slug, exclude,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("check post slug: %w", err)
	}
	return taken, nil
}

// Create inserts a post and returns it as stored.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO blog_posts (title, slug, excerpt, content, image, category, tags, published, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`, p.Title, p.Slug, p.Excerpt, p.Content, p.Image, p.Category, tags, p.Published, p.AuthorID,
	).Scan(&id)
	if err != nil {
		return nil, wrapErr("create post", err)
	}
	return s.FindByID(ctx, id)
}

// Update overwrites every mutable column of an existing post.
func (s *PostStore) Update(ctx context.Context, p *models.Post) (*models.Post, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE blog_posts SET
			title = $1, slug = $2, excerpt = $3, content = $4, image = $5,
			category = $6, tags = $7, published = $8, updated_at = NOW()
		WHERE id = $9
	`, p.Title, p.Slug, p.Excerpt, p.Content, p.Image, p.Category, tags, p.Published, p.ID)
	if err != nil {
		return nil, wrapErr("update post", err)
	}
	return s.FindByID(ctx, p.ID)
}

// Delete removes a post. Comments referencing it make this fail with a
// conflict because of the RESTRICT foreign key.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id); err != nil {
		return wrapErr("delete post", err)
	}
	return nil
}

// Purge removes a post together with all of its comments in one transaction.
func (s *PostStore) Purge(ctx context.Context, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("purge post begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_comments WHERE post_id = $1`, id); err != nil {
		return wrapErr("purge post comments", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM blog_posts WHERE id = $1`, id); err != nil {
		return wrapErr("purge post", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("purge post commit: %w", err)
	}
	return nil
}

// Categories returns the categories of published posts with their counts.
func (s *PostStore) Categories(ctx context.Context) ([]models.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, COUNT(*)
		FROM blog_posts
		WHERE published AND category <> ''
		GROUP BY category
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("list post categories: %w", err)
	}
	defer rows.Close()

	var out []models.CategoryCount
	for rows.Next() {
		var c models.CategoryCount
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scan category count: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Count returns the number of posts, optionally only published ones.
func (s *PostStore) Count(ctx context.Context, publishedOnly bool) (int, error) {
	q := psql.Select("COUNT(*)").From("blog_posts")
	if publishedOnly {
		q = q.Where(sq.Eq{"published": true})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build post count: %w", err)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}
