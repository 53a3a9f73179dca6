// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package auth is the admin session guard. It carries the resolved operator
// identity as an explicit value so that every admin operation can check it
// without reaching into request state.
package auth

import (
	"github.com/google/uuid"

	"probitcms/internal/apperr"
	"probitcms/internal/models"
)

// Operator is an authenticated staff member with admin-panel access.
type Operator struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	Role        models.Role
}

// Context is the caller identity passed into admin service methods.
// The zero value is an anonymous visitor.
type Context struct {
	Operator *Operator
}

// Anonymous is the identity of an unauthenticated caller.
var Anonymous = Context{}

// ForOperator builds a Context for the given user.
func ForOperator(u *models.User) Context {
	if u == nil {
		return Anonymous
	}
	return Context{Operator: &Operator{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
	}}
}

// IsOperator reports whether the context carries an operator.
func (c Context) IsOperator() bool {
	return c.Operator != nil
}

// Require returns the operator in ac, or an authentication error when the
// caller is anonymous. op names the guarded operation in the error.
func Require(ac Context, op string) (Operator, error) {
	if ac.Operator == nil {
		return Operator{}, apperr.Authentication(op)
	}
	return *ac.Operator, nil
}
