// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package validate

import (
	"strings"
	"testing"

	"probitcms/internal/apperr"
)

type sample struct {
	Name    string  `json:"author_name" validate:"notblank,max=10"`
	Email   string  `json:"author_email" validate:"required,email"`
	Website *string `json:"author_website" validate:"omitempty,url"`
	Kind    string  `json:"kind" validate:"omitempty,oneof=a b"`
}

func TestStruct(t *testing.T) {
	bad := "not a url"
	good := "https://example.com"

	tests := []struct {
		name      string
		in        sample
		wantField string
		wantMsg   string
	}{
		{name: "valid", in: sample{Name: "Ann", Email: "ann@example.com"}},
		{name: "valid with website", in: sample{Name: "Ann", Email: "ann@example.com", Website: &good}},
		{name: "blank name", in: sample{Name: "   ", Email: "ann@example.com"}, wantField: "author_name", wantMsg: "author name is required"},
		{name: "long name", in: sample{Name: strings.Repeat("x", 11), Email: "ann@example.com"}, wantField: "author_name", wantMsg: "at most 10"},
		{name: "bad email", in: sample{Name: "Ann", Email: "nope"}, wantField: "author_email", wantMsg: "valid email"},
		{name: "bad website", in: sample{Name: "Ann", Email: "ann@example.com", Website: &bad}, wantField: "author_website", wantMsg: "valid URL"},
		{name: "bad enum", in: sample{Name: "Ann", Email: "ann@example.com", Kind: "c"}, wantField: "kind", wantMsg: "one of: a, b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct("test.op", tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) {
				t.Fatalf("kind: got %v, want validation (err=%v)", apperr.KindOf(err), err)
			}
			if got := apperr.FieldOf(err); got != tt.wantField {
				t.Errorf("field: got %q, want %q", got, tt.wantField)
			}
			if !strings.Contains(apperr.Message(err), tt.wantMsg) {
				t.Errorf("message %q does not contain %q", apperr.Message(err), tt.wantMsg)
			}
		})
	}
}
