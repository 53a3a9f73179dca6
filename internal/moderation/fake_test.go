// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package moderation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"probitcms/internal/models"
)

type memComments struct {
	comments map[uuid.UUID]models.Comment
	events   []models.CommentStatusEvent
	clock    time.Time
	updates  int
}

func newMemComments() *memComments {
	return &memComments{
		comments: make(map[uuid.UUID]models.Comment),
		clock:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memComments) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memComments) Create(_ context.Context, c *models.Comment) (*models.Comment, error) {
	cp := *c
	cp.ID = uuid.New()
	cp.CreatedAt = m.tick()
	m.comments[cp.ID] = cp
	return &cp, nil
}

func (m *memComments) FindByID(_ context.Context, id uuid.UUID) (*models.Comment, error) {
	c, ok := m.comments[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memComments) sorted(keep func(models.Comment) bool) []models.Comment {
	out := []models.Comment{}
	for _, c := range m.comments {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memComments) ListByPost(_ context.Context, postID uuid.UUID, status models.CommentStatus) ([]models.Comment, error) {
	return m.sorted(func(c models.Comment) bool { return c.PostID == postID && c.Status == status }), nil
}

func (m *memComments) List(_ context.Context, status *models.CommentStatus) ([]models.Comment, error) {
	return m.sorted(func(c models.Comment) bool { return status == nil || c.Status == *status }), nil
}

func (m *memComments) CountByStatus(context.Context) (map[models.CommentStatus]int, error) {
	out := make(map[models.CommentStatus]int)
	for _, c := range m.comments {
		out[c.Status]++
	}
	return out, nil
}

func (m *memComments) ApprovedCounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	want := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make(map[uuid.UUID]int)
	for _, c := range m.comments {
		if want[c.PostID] && c.Status == models.CommentApproved {
			out[c.PostID]++
		}
	}
	return out, nil
}

func (m *memComments) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.CommentStatus, operatorID uuid.UUID) error {
	c := m.comments[id]
	c.Status = to
	m.comments[id] = c
	m.updates++
	m.events = append(m.events, models.CommentStatusEvent{
		ID: uuid.New(), CommentID: id, FromStatus: from, ToStatus: to,
		OperatorID: operatorID, CreatedAt: m.tick(),
	})
	return nil
}

func (m *memComments) History(_ context.Context, id uuid.UUID) ([]models.CommentStatusEvent, error) {
	out := []models.CommentStatusEvent{}
	for _, e := range m.events {
		if e.CommentID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memComments) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.comments, id)
	return nil
}

type memPosts map[uuid.UUID]*models.Post

func (m memPosts) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	return m[id], nil
}

type countingCache struct{ calls int }

func (c *countingCache) InvalidateAll(context.Context) { c.calls++ }
