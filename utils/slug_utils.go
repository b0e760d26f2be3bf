package utils

import (
	"strings"
)

// IsValidSlug checks that a project slug is URL-safe: lowercase
// alphanumerics and single hyphens, starting and ending alphanumeric.
// Slugs name identity provider resources and groups, so the character
// set stays conservative.
func IsValidSlug(slug string) bool {
	if len(slug) < 2 || len(slug) > 63 {
		return false
	}

	// Must start and end with alphanumeric
	if !isAlphanumeric(slug[0]) || !isAlphanumeric(slug[len(slug)-1]) {
		return false
	}

	for i := 0; i < len(slug); i++ {
		c := slug[i]
		if !isAlphanumeric(c) && c != '-' {
			return false
		}
		if c == '-' && slug[i-1] == '-' {
			return false
		}
	}

	return true
}

// SanitizeSlug derives a valid slug from free text: lowercased, separators
// collapsed to single hyphens, everything else dropped.
func SanitizeSlug(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, " ", "-")
	name = strings.ReplaceAll(name, ".", "-")

	var result strings.Builder
	for _, char := range name {
		if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '-' {
			result.WriteRune(char)
		}
	}

	slug := result.String()
	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	return strings.Trim(slug, "-")
}

// isAlphanumeric checks if a byte is lowercase alphanumeric
func isAlphanumeric(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}
