// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ContactStatus tracks how far an operator has handled a contact submission.
type ContactStatus string

const (
	ContactNew     ContactStatus = "new"
	ContactRead    ContactStatus = "read"
	ContactReplied ContactStatus = "replied"
)

// contactRank orders statuses so they can only move forward.
var contactRank = map[ContactStatus]int{
	ContactNew:     0,
	ContactRead:    1,
	ContactReplied: 2,
}

// Valid reports whether s is a known contact status.
func (s ContactStatus) Valid() bool {
	_, ok := contactRank[s]
	return ok
}

// Before reports whether s comes earlier in the new → read → replied order.
func (s ContactStatus) Before(other ContactStatus) bool {
	return contactRank[s] < contactRank[other]
}

// ContactSubmission is a message sent through the public contact form.
type ContactSubmission struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Phone     *string       `json:"phone,omitempty"`
	Service   string        `json:"service"`
	Message   string        `json:"message"`
	Status    ContactStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}
