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

// CommentStore handles blog comments and their moderation audit trail.
type CommentStore struct {
	db *sql.DB
}

// NewCommentStore creates a new CommentStore with the given database connection.
func NewCommentStore(db *sql.DB) *CommentStore {
	return &CommentStore{db: db}
}

var commentColumns = []string{
	"c.id", "c.post_id", "c.author_name", "c.author_email", "c.author_website",
	"c.comment_text", "c.status", "c.created_at",
	"COALESCE(p.title, '')", "COALESCE(p.slug, '')",
}

func scanComment(row scanner) (*models.Comment, error) {
	var c models.Comment
	err := row.Scan(
		&c.ID, &c.PostID, &c.AuthorName, &c.AuthorEmail, &c.AuthorWebsite,
		&c.Text, &c.Status, &c.CreatedAt, &c.PostTitle, &c.PostSlug,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func selectComments() sq.SelectBuilder {
	return psql.Select(commentColumns...).
		From("blog_comments c").
		LeftJoin("blog_posts p ON p.id = c.post_id")
}

// Create inserts a comment. The status column is always written from the
// model, so callers decide the initial state.
func (s *CommentStore) Create(ctx context.Context, c *models.Comment) (*models.Comment, error) {
	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO blog_comments (post_id, author_name, author_email, author_website, comment_text, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, c.PostID, c.AuthorName, c.AuthorEmail, c.AuthorWebsite, c.Text, c.Status).Scan(&id)
	if err != nil {
		return nil, wrapErr("create comment", err)
	}
	return s.FindByID(ctx, id)
}

// FindByID retrieves a comment by its UUID. Returns nil if not found.
func (s *CommentStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	query, args, err := selectComments().Where(sq.Expr("c.id = ?", id)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	c, err := scanComment(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find comment by id: %w", err)
	}
	return c, nil
}

// ListByPost returns the comments of one post in the given status, newest first.
func (s *CommentStore) ListByPost(ctx context.Context, postID uuid.UUID, status models.CommentStatus) ([]models.Comment, error) {
	q := selectComments().
		Where(sq.Expr("c.post_id = ?", postID)).
		Where(sq.Eq{"c.status": string(status)})
	return s.list(ctx, "list post comments", q)
}

// List returns every comment, newest first, optionally narrowed to one status.
func (s *CommentStore) List(ctx context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	q := selectComments()
	if status != nil {
		q = q.Where(sq.Eq{"c.status": string(*status)})
	}
	return s.list(ctx, "list comments", q)
}

func (s *CommentStore) list(ctx context.Context, op string, q sq.SelectBuilder) ([]models.Comment, error) {
	query, args, err := q.OrderBy("c.created_at DESC", "c.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

// CountByStatus tallies all comments per status.
func (s *CommentStore) CountByStatus(ctx context.Context) (map[models.CommentStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM blog_comments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.CommentStatus]int)
	for rows.Next() {
		var status models.CommentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan comment count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// CountForPost returns how many comments of any status reference a post.
func (s *CommentStore) CountForPost(ctx context.Context, postID uuid.UUID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM blog_comments WHERE post_id = $1`, postID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count post comments: %w", err)
	}
	return n, nil
}

// ApprovedCounts returns approved comment counts keyed by post ID. Posts
// with no approved comments are absent from the map.
func (s *CommentStore) ApprovedCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	counts := make(map[uuid.UUID]int, len(postIDs))
	if len(postIDs) == 0 {
		return counts, nil
	}

	ids := make([]string, len(postIDs))
	for i, id := range postIDs {
		ids[i] = id.String()
	}
	query, args, err := psql.Select("post_id", "COUNT(*)").
		From("blog_comments").
		Where(sq.Eq{"status": string(models.CommentApproved), "post_id": ids}).
		GroupBy("post_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build approved counts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("approved counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan approved count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// UpdateStatus moves a comment to a new status and records the change in
// comment_status_events within the same transaction.
func (s *CommentStore) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CommentStatus, operatorID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("update comment status begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE blog_comments SET status = $1 WHERE id = $2`, to, id,
	); err != nil {
		return wrapErr("update comment status", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO comment_status_events (comment_id, from_status, to_status, operator_id)
		VALUES ($1, $2, $3, $4)
	`, id, from, to, operatorID); err != nil {
		return wrapErr("record comment status event", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("update comment status commit: %w", err)
	}
	return nil
}

// History returns the status changes of one comment, oldest first.
func (s *CommentStore) History(ctx context.Context, commentID uuid.UUID) ([]models.CommentStatusEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.comment_id, e.from_status, e.to_status,
		       COALESCE(e.operator_id, '00000000-0000-0000-0000-000000000000'::uuid),
		       e.created_at, COALESCE(u.display_name, '')
		FROM comment_status_events e
		LEFT JOIN users u ON u.id = e.operator_id
		WHERE e.comment_id = $1
		ORDER BY e.created_at ASC, e.id
	`, commentID)
	if err != nil {
		return nil, fmt.Errorf("comment history: %w", err)
	}
	defer rows.Close()

	events := []models.CommentStatusEvent{}
	for rows.Next() {
		var e models.CommentStatusEvent
		if err := rows.Scan(
			&e.ID, &e.CommentID, &e.FromStatus, &e.ToStatus,
			&e.OperatorID, &e.CreatedAt, &e.OperatorName,
		); err != nil {
			return nil, fmt.Errorf("scan comment event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Delete removes a comment. Its audit events cascade.
func (s *CommentStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blog_comments WHERE id = $1`, id); err != nil {
		return wrapErr("delete comment", err)
	}
	return nil
}
