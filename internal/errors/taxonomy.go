package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	// ErrStoreUnavailable wraps any record store failure on load or save.
	ErrStoreUnavailable = goerrors.New("record store unavailable")
	// ErrBatchWrite is matched by every BatchWriteError.
	ErrBatchWrite = goerrors.New("batch write failed")
	// ErrNotLoaded is returned when a catalog or run sheet is used before a successful load.
	ErrNotLoaded = goerrors.New("tier not loaded")
	// ErrTaskNotFound is returned for ids missing from the working copy.
	ErrTaskNotFound = goerrors.New("task not found")
	// ErrLinkAlreadySet is returned when attaching a link to a task that already has one.
	ErrLinkAlreadySet = goerrors.New("reference link already set, use change link")
	// ErrLinkNotSet is returned when changing the link of a task that has none.
	ErrLinkNotSet = goerrors.New("no reference link to change")
	// ErrNothingToSave is returned when a save would issue no writes.
	ErrNothingToSave = goerrors.New("nothing to save")
)

// MissingFieldError reports a required field left empty. It is raised by
// local validation and never reaches the store.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

// DuplicateTaskError reports an (item, place) pair already present in a tier.
type DuplicateTaskError struct {
	Tier       string
	Item       string
	Place      string
	ExistingID string
}

func (e *DuplicateTaskError) Error() string {
	return fmt.Sprintf("%s task %q at %q already exists (ID: %s)", e.Tier, e.Item, e.Place, e.ExistingID)
}

// InvalidFieldError reports an unknown field or a value outside its domain.
type InvalidFieldError struct {
	Field string
	Value string
}

func (e *InvalidFieldError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid field: %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

// BatchWriteError reports a failed atomic save. Reloaded is set once the
// caller's view has been refreshed from the store after the failure.
type BatchWriteError struct {
	Op       string
	Writes   int
	Err      error
	Reloaded bool
}

func (e *BatchWriteError) Error() string {
	msg := fmt.Sprintf("%s: batch of %d write(s) failed: %v", e.Op, e.Writes, e.Err)
	if e.Reloaded {
		msg += " (state reloaded from store)"
	}
	return msg
}

// Unwrap exposes both ErrBatchWrite and the underlying cause.
func (e *BatchWriteError) Unwrap() []error {
	return []error{ErrBatchWrite, e.Err}
}

// IsValidation reports whether err is a local validation failure that never
// touched the store.
func IsValidation(err error) bool {
	var missing *MissingFieldError
	var dup *DuplicateTaskError
	var invalid *InvalidFieldError
	return goerrors.As(err, &missing) || goerrors.As(err, &dup) || goerrors.As(err, &invalid)
}
