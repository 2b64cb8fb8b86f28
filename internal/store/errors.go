package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes storage errors.
type ErrorCode string

const (
	// ErrCodeValidationFailed indicates a document failed its collection
	// schema; the write was rejected before persistence.
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	// ErrCodeDuplicateKey indicates an insert with an id that already
	// exists; callers should use Patch or Upsert instead.
	ErrCodeDuplicateKey ErrorCode = "DUPLICATE_KEY"

	// ErrCodeNotFound indicates a Patch or Get targeting an absent id.
	// Remove of an absent id is a no-op, not an error.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnknownCollection indicates a collection name outside the
	// five known kinds.
	ErrCodeUnknownCollection ErrorCode = "UNKNOWN_COLLECTION"
)

// Error is a structured storage error. Storage errors are synchronous:
// they are returned to the mutating caller and are shown to the admin,
// unlike replication errors which degrade to a status flag.
type Error struct {
	Code       ErrorCode
	Collection string
	ID         string
	Message    string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("%s: %s (collection=%s, id=%s)", e.Code, e.Message, e.Collection, e.ID)
	}
	if e.Collection != "" {
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation reports whether err is a schema validation failure.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	return hasCode(err, ErrCodeValidationFailed)
}

// IsDuplicateKey reports whether err is a duplicate primary key error.
func IsDuplicateKey(err error) bool {
	return hasCode(err, ErrCodeDuplicateKey)
}

// IsNotFound reports whether err is a missing document error.
func IsNotFound(err error) bool {
	return hasCode(err, ErrCodeNotFound)
}

func hasCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

func newValidationError(collection, id, msg string) *Error {
	return &Error{Code: ErrCodeValidationFailed, Collection: collection, ID: id, Message: msg}
}

func newDuplicateKeyError(collection, id string) *Error {
	return &Error{Code: ErrCodeDuplicateKey, Collection: collection, ID: id, Message: "document id already exists"}
}

func newNotFoundError(collection, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Collection: collection, ID: id, Message: "document not found"}
}

func newUnknownCollectionError(collection string) *Error {
	return &Error{Code: ErrCodeUnknownCollection, Collection: collection, Message: "unknown collection"}
}
