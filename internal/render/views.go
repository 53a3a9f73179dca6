// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package render

import (
	"strings"

	"probitcms/internal/models"
)

// PostForm is the editor's view of a post. Tags are comma separated.
type PostForm struct {
	ID        string
	Title     string
	Slug      string
	Excerpt   string
	Content   string
	Image     string
	Category  string
	Tags      string
	Published bool
}

// PostFormFor fills the editor from a stored post.
func PostFormFor(p *models.Post) PostForm {
	return PostForm{
		ID:        p.ID.String(),
		Title:     p.Title,
		Slug:      p.Slug,
		Excerpt:   p.Excerpt,
		Content:   p.Content,
		Image:     p.Image,
		Category:  p.Category,
		Tags:      strings.Join(p.Tags, ", "),
		Published: p.Published,
	}
}
