package domain

import (
	"errors"
	"fmt"
)

// ValidationReason classifies a rejected business-rule check.
type ValidationReason string

const (
	ReasonInsufficientFunds     ValidationReason = "insufficient_funds"
	ReasonMaxLevelReached       ValidationReason = "max_level_reached"
	ReasonCapacityExceeded      ValidationReason = "capacity_exceeded"
	ReasonMinimumStaffViolation ValidationReason = "minimum_staff_violation"
	ReasonSlotLocked            ValidationReason = "slot_locked"
	ReasonSlotUnavailable       ValidationReason = "slot_unavailable"
	ReasonNothingPending        ValidationReason = "nothing_pending"
	ReasonInvalidInput          ValidationReason = "invalid_input"
	ReasonLastRestaurant        ValidationReason = "last_restaurant"
)

// ValidationError is returned when an operation is rejected before any field
// of the save is mutated.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Validationf builds a ValidationError with a formatted message.
func Validationf(reason ValidationReason, format string, args ...any) *ValidationError {
	return &ValidationError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError with the given reason.
// An empty reason matches any ValidationError.
func IsValidation(err error, reason ValidationReason) bool {
	var ve *ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	return reason == "" || ve.Reason == reason
}

// PersistenceError reports that a committed mutation could not be written.
// The in-memory state still reflects the mutation.
type PersistenceError struct {
	Op    string
	Quota bool
	Err   error
}

func (e *PersistenceError) Error() string {
	if e.Quota {
		return fmt.Sprintf("persist %s: storage quota exceeded: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrQuotaExceeded is wrapped by backends that refuse oversized documents.
var ErrQuotaExceeded = errors.New("quota exceeded")

// EntityType names the kind of record an IntegrityError refers to.
type EntityType string

const (
	EntityRestaurant EntityType = "restaurant"
	EntityEmployee   EntityType = "employee"
	EntitySlot       EntityType = "slot"
	EntityCandidate  EntityType = "candidate"
)

// IntegrityError is returned when an operation references an id that does not
// exist in the current save.
type IntegrityError struct {
	Entity EntityType
	ID     string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrNoActiveSave is returned by engine operations invoked before a game was
// started or loaded.
var ErrNoActiveSave = errors.New("no active save")
