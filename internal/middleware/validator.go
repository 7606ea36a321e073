package middleware

import (
	"fmt"
	"regexp"
	"strings"
)

// Input validation and sanitization utilities

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateEmail checks the lead email shape
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return fmt.Errorf("email cannot be empty")
	}
	if len(email) > 254 || !emailPattern.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidateLeadName rejects control characters and oversized names
func ValidateLeadName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if len(name) > 128 {
		return fmt.Errorf("name too long (max 128 chars)")
	}
	for _, r := range name {
		if r < 32 {
			return fmt.Errorf("invalid characters in name")
		}
	}
	return nil
}

// ValidateLeadID validates the uuid shape used for lead ids
func ValidateLeadID(id string) error {
	if id == "" {
		return fmt.Errorf("lead ID cannot be empty")
	}
	pattern := `^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`
	matched, _ := regexp.MatchString(pattern, strings.ToLower(id))
	if !matched {
		return fmt.Errorf("invalid lead ID format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidatePage clamps pagination inputs
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidatePageSize clamps pagination size
func ValidatePageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}
