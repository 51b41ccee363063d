package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// NotFoundError is returned when a referenced aggregate does not exist
type NotFoundError struct {
	Code    string
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// ConflictError is returned on unique-constraint violations and stale versions
type ConflictError struct {
	Code    string
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// BadRequestError is returned for invalid state transitions and invalid input
type BadRequestError struct {
	Code    string
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// UnauthorizedError is returned when credentials are rejected
type UnauthorizedError struct {
	Code    string
	Message string
}

func (e *UnauthorizedError) Error() string {
	return e.Message
}

func notFound(entity string, id fmt.Stringer) error {
	return &NotFoundError{
		Code:    strings.ToUpper(strings.ReplaceAll(entity, " ", "_")) + "_NOT_FOUND",
		Message: fmt.Sprintf("%s with ID %s not found", entity, id),
	}
}

func staleVersion(entity string, id fmt.Stringer) error {
	return &ConflictError{
		Code:    "VERSION_CONFLICT",
		Message: fmt.Sprintf("%s %s was modified concurrently, reload and retry", entity, id),
	}
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}

// translateStoreError maps store-native failures onto domain errors.
// Errors that are already domain errors pass through unchanged.
func translateStoreError(err error, action string) error {
	if err == nil {
		return nil
	}

	var nf *NotFoundError
	var cf *ConflictError
	var br *BadRequestError
	var ua *UnauthorizedError
	if errors.As(err, &nf) || errors.As(err, &cf) || errors.As(err, &br) || errors.As(err, &ua) {
		return err
	}

	if isUniqueViolation(err) {
		return &ConflictError{Code: "DUPLICATE_ENTRY", Message: fmt.Sprintf("failed to %s: record already exists", action)}
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
