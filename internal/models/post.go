// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Post is a blog post. Drafts and published posts share the blog_posts
// table, differentiated by the Published flag.
type Post struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Excerpt   string     `json:"excerpt"`
	Content   string     `json:"content"`
	Image     string     `json:"image"`
	Category  string     `json:"category"`
	Tags      []string   `json:"tags"`
	Published bool       `json:"published"`
	AuthorID  *uuid.UUID `json:"author_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Populated by joined reads; empty when the author was deleted.
	AuthorName string `json:"author_name,omitempty"`
}

// MissingPublishFields returns the names of the fields a published post
// must carry but p leaves blank. An empty result means p may be published.
func (p *Post) MissingPublishFields() []string {
	var missing []string
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", p.Title},
		{"content", p.Content},
		{"excerpt", p.Excerpt},
		{"image", p.Image},
		{"category", p.Category},
	} {
		if isBlank(f.value) {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// PostFilter narrows a post listing. The zero value lists every post.
type PostFilter struct {
	PublishedOnly bool
	Category      string // exact match when non-empty
	Search        string // case-insensitive substring of title, excerpt or content
}

// CategoryCount is a category label with the number of published posts in it.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
