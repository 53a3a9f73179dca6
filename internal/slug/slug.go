// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from post titles.
package slug

import (
	"regexp"
	"strings"
)

// separators matches every run of characters outside [a-z0-9].
var separators = regexp.MustCompile(`[^a-z0-9]+`)

// Generate lowercases s, collapses each run of non-alphanumeric characters
// into a single hyphen and trims hyphens from both ends.
// Example: "Hello, World! 2026" → "hello-world-2026"
func Generate(s string) string {
	result := separators.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(result, "-")
}

// Valid reports whether s is already in canonical slug form.
func Valid(s string) bool {
	return s != "" && Generate(s) == s
}
