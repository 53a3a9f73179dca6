// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// CommentStatus is the moderation state of a blog comment.
type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentSpam     CommentStatus = "spam"
)

// Valid reports whether s is one of the known moderation states.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentSpam:
		return true
	}
	return false
}

// Comment is a visitor comment on a blog post. New comments always start
// pending and only an operator changes their status.
type Comment struct {
	ID            uuid.UUID     `json:"id"`
	PostID        uuid.UUID     `json:"post_id"`
	AuthorName    string        `json:"author_name"`
	AuthorEmail   string        `json:"author_email"`
	AuthorWebsite *string       `json:"author_website,omitempty"`
	Text          string        `json:"comment_text"`
	Status        CommentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`

	// Populated by the moderation listing join.
	PostTitle string `json:"post_title,omitempty"`
	PostSlug  string `json:"post_slug,omitempty"`
}

// IsApproved returns true if the comment is visible on public pages.
func (c *Comment) IsApproved() bool {
	return c.Status == CommentApproved
}

// CommentStatusEvent records one operator status change on a comment.
type CommentStatusEvent struct {
	ID         uuid.UUID     `json:"id"`
	CommentID  uuid.UUID     `json:"comment_id"`
	FromStatus CommentStatus `json:"from_status"`
	ToStatus   CommentStatus `json:"to_status"`
	OperatorID uuid.UUID     `json:"operator_id"`
	CreatedAt  time.Time     `json:"created_at"`

	// Populated by joined reads.
	OperatorName string `json:"operator_name,omitempty"`
}
