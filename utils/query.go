package utils

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

// QueryError represents a malformed query parameter
type QueryError struct {
	Code    string
	Message string
}

func (e *QueryError) Error() string {
	return e.Message
}

func invalidParam(name, expected string) error {
	return &QueryError{Code: "INVALID_QUERY", Message: name + " must be " + expected}
}

// ParseBool accepts true/false, 1/0 and yes/no in any case
func ParseBool(name, raw string) (*bool, error) {
	if raw == "" {
		return nil, nil
	}

	var v bool
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes":
		v = true
	case "false", "0", "no":
		v = false
	default:
		return nil, invalidParam(name, "a boolean")
	}
	return &v, nil
}

// ParseDate accepts RFC3339 timestamps or plain YYYY-MM-DD dates.
// With endOfDay set, a plain date resolves to the last instant of that day.
func ParseDate(name, raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}

	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, invalidParam(name, "an RFC3339 timestamp or a YYYY-MM-DD date")
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// ParseUUID parses an optional identifier
func ParseUUID(name, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, invalidParam(name, "a valid UUID")
	}
	return &id, nil
}

// ParsePage reads page and limit. Missing or out-of-range values fall back to the defaults.
func ParsePage(rawPage, rawLimit string, defaultLimit, maxLimit int) (page int, limit int) {
	page, err := strconv.Atoi(rawPage)
	if err != nil || page < 1 {
		page = 1
	}

	limit, err = strconv.Atoi(rawLimit)
	if err != nil || limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}
