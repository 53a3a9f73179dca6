// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the error taxonomy shared by the service layer.
// Services return *Error values; handlers translate the Kind into an HTTP
// status, an inline form message, or a login redirect.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error by how the caller should react to it.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuthentication
	KindNotFound
	KindConflict
	KindExternalService
)

// String returns the lowercase name of the kind, used in logs and JSON.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindExternalService:
		return "external_service"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind    Kind
	Op      string // operation that failed, e.g. "blog.CreatePost"
	Field   string // offending input field for validation errors
	Message string // caller-facing message
	Err     error  // wrapped cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Validation builds a validation error for a single field.
func Validation(op, field, message string) *Error {
	return &Error{Kind: KindValidation, Op: op, Field: field, Message: message}
}

// Authentication builds an error for a missing or invalid operator session.
func Authentication(op string) *Error {
	return &Error{Kind: KindAuthentication, Op: op, Message: "operator session required"}
}

// NotFound builds an error for an absent record.
func NotFound(op, what string) *Error {
	return &Error{Kind: KindNotFound, Op: op, Message: what + " not found"}
}

// Conflict builds an error for a unique or referential constraint violation.
func Conflict(op, message string, cause error) *Error {
	return &Error{Kind: KindConflict, Op: op, Message: message, Err: cause}
}

// External wraps a failed call to a payment, email, LLM or storage provider.
func External(op, service string, cause error) *Error {
	return &Error{Kind: KindExternalService, Op: op, Message: service + " request failed", Err: cause}
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FieldOf returns the offending field of a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// Message returns a message safe to show to the caller. Unknown errors
// collapse to a generic message so internal details never leak.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Message
	}
	return "An unexpected error occurred."
}

// HTTPStatus maps an error to the status code API handlers respond with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
