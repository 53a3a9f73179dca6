// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"probitcms/internal/models"
)

// memPosts is an in-memory PostRepository for service tests.
type memPosts struct {
	mu      sync.Mutex
	posts   map[uuid.UUID]models.Post
	clock   time.Time
	deletes int
	purges  int
}

func newMemPosts() *memPosts {
	return &memPosts{
		posts: make(map[uuid.UUID]models.Post),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memPosts) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(time.Minute)
	cp := *p
	cp.ID = uuid.New()
	cp.Tags = append([]string{}, p.Tags...)
	cp.CreatedAt, cp.UpdatedAt = m.clock, m.clock
	m.posts[cp.ID] = cp
	out := cp
	return &out, nil
}

func (m *memPosts) Update(_ context.Context, p *models.Post) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.posts[p.ID]; !ok {
		return nil, nil
	}
	m.clock = m.clock.Add(time.Minute)
	cp := *p
	cp.UpdatedAt = m.clock
	m.posts[p.ID] = cp
	out := cp
	return &out, nil
}

func (m *memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.posts[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memPosts) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.posts {
		if p.Slug == slug {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *memPosts) SlugTaken(_ context.Context, slug string, exclude uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.posts {
		if p.Slug == slug && id != exclude {
			return true, nil
		}
	}
	return false, nil
}

func (m *memPosts) List(_ context.Context, f models.PostFilter) ([]models.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Post{}
	for _, p := range m.posts {
		if f.PublishedOnly && !p.Published {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memPosts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	delete(m.posts, id)
	return nil
}

func (m *memPosts) Purge(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purges++
	delete(m.posts, id)
	return nil
}

// memCounter reports a fixed comment count per post.
type memCounter map[uuid.UUID]int

func (c memCounter) CountForPost(_ context.Context, id uuid.UUID) (int, error) {
	return c[id], nil
}

// countingCache records invalidations.
type countingCache struct{ calls int }

func (c *countingCache) InvalidateAll(context.Context) { c.calls++ }
