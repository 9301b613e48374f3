// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation and validation.
package slug

import (
	"regexp"
	"strings"
)

var (
	// nonWord matches runs of anything that isn't a word character or a space.
	nonWord = regexp.MustCompile(`[^\w ]+`)
	// spaces collapses runs of spaces into a single hyphen.
	spaces = regexp.MustCompile(` +`)
	// valid accepts lowercase word characters separated by single hyphens.
	valid = regexp.MustCompile(`^[a-z0-9_]+(?:-[a-z0-9_]+)*$`)
)

// Generate derives a slug from a display name: lowercase, non-word
// characters stripped, spaces collapsed to hyphens.
// Example: "Tech & Science!" → "tech-science"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonWord.ReplaceAllString(result, "")
	result = spaces.ReplaceAllString(strings.TrimSpace(result), "-")
	return result
}

// Normalize trims and lowercases a caller-supplied slug.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Valid reports whether s is an already normalized, URL-safe slug.
func Valid(s string) bool {
	return valid.MatchString(s)
}
