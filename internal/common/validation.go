package common

import (
	"fmt"
	"math"
	"net/mail"
	"strings"

	"github.com/google/uuid"
)

// ValidateUUID validates UUID format with comprehensive checks
func ValidateUUID(idStr string, fieldName string) (uuid.UUID, error) {
	idStr = strings.TrimSpace(idStr)
	if idStr == "" {
		return uuid.Nil, NewValidationError(fieldName, "is required")
	}

	// Check exact length
	if len(idStr) != 36 {
		return uuid.Nil, NewValidationError(fieldName, "must be exactly 36 characters (including hyphens)")
	}

	for _, pos := range []int{8, 13, 18, 23} {
		if idStr[pos] != '-' {
			return uuid.Nil, NewValidationError(fieldName, "has invalid UUID format")
		}
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return uuid.Nil, NewValidationError(fieldName, "contains invalid characters")
	}

	return id, nil
}

// ValidateRequiredString trims value and checks it is present and within maxLength
func ValidateRequiredString(value, fieldName string, maxLength int) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", NewValidationError(fieldName, "is required")
	}
	if len([]rune(value)) > maxLength {
		return "", NewValidationError(fieldName, fmt.Sprintf("cannot exceed %d characters", maxLength))
	}
	return value, nil
}

// ValidateOptionalString validates optional string fields
func ValidateOptionalString(value *string, fieldName string, maxLength int) error {
	if value == nil {
		return nil
	}
	trimmed, err := ValidateRequiredString(*value, fieldName, maxLength)
	if err != nil {
		return err
	}
	*value = trimmed
	return nil
}

// NormalizeTags trims and lowercases tags, dropping blanks and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}

// NormalizeEmail lowercases and validates an email address
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", NewValidationError("email", "must be a valid email address")
	}
	return email, nil
}

// ValidateSortOrder validates sort order parameters
func ValidateSortOrder(sortOrder string) (ascending bool) {
	return strings.ToLower(sortOrder) == "asc"
}

// ValidatePaginationParams clamps page and limit and returns the row offset.
// Pages whose offset would not fit a 32-bit integer are rejected.
func ValidatePaginationParams(page, limit, defaultLimit, maxLimit int) (int, int, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if page > math.MaxInt32/limit {
		return 0, 0, 0, NewValidationError("page", fmt.Sprintf("must be at most %d", math.MaxInt32/limit))
	}
	return page, limit, (page - 1) * limit, nil
}
