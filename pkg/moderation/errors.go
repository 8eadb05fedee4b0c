package moderation

import (
	"errors"
	"fmt"
)

// Error types
var (
	// ErrInvalidInput indicates a missing or malformed request field
	ErrInvalidInput = errors.New("invalid input")

	// ErrContentNotFound indicates the content id exists in no collection
	ErrContentNotFound = errors.New("content not found")

	// ErrInvalidCollection indicates an unknown collection name
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrInvalidTransition indicates the item's status does not allow the action
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrPublicationFailed indicates the published row could not be written
	ErrPublicationFailed = errors.New("publication failed")

	// ErrStore indicates the underlying store rejected a call
	ErrStore = errors.New("store error")
)

// ValidationError reports a rejected request field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// ContentError represents an error related to a moderation operation
type ContentError struct {
	ContentID  string
	Collection Collection
	Op         string
	Err        error
}

func (e *ContentError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s failed for content %s: %v", e.Op, e.ContentID, e.Err)
	}
	return fmt.Sprintf("%s failed for content %s in %s: %v", e.Op, e.ContentID, e.Collection, e.Err)
}

func (e *ContentError) Unwrap() error {
	return e.Err
}

// StoreError wraps a failure reported by a Store implementation.
type StoreError struct {
	Collection Collection
	Op         string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s on %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}

func notFound(id string) error {
	return fmt.Errorf("%w: content %s not found in any collection", ErrContentNotFound, id)
}
