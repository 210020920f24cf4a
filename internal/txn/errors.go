package txn

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes transaction errors.
type ErrorCode string

const (
	// ErrCodeAlreadyActive indicates Begin was called on an active transaction.
	ErrCodeAlreadyActive ErrorCode = "ALREADY_ACTIVE"

	// ErrCodeNotActive indicates an instruction was staged outside Begin/Commit.
	ErrCodeNotActive ErrorCode = "NOT_ACTIVE"

	// ErrCodeDependencyResolution indicates commit stopped making progress.
	ErrCodeDependencyResolution ErrorCode = "DEPENDENCY_RESOLUTION"
)

// Error is a state machine error raised by a Transaction.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// TxID identifies the transaction, when one was running.
	TxID string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.TxID != "" {
		return fmt.Sprintf("%s: %s (tx=%s)", e.Code, e.Message, e.TxID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error with the same code, so the sentinels below work
// with errors.Is.
func (e *Error) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == e.Code
	}
	return false
}

var (
	// ErrAlreadyActive matches errors from Begin on an active transaction.
	ErrAlreadyActive = &Error{Code: ErrCodeAlreadyActive, Message: "transaction already active"}

	// ErrNotActive matches errors from Stage on an inactive transaction.
	ErrNotActive = &Error{Code: ErrCodeNotActive, Message: "transaction not active"}
)

// PhaseFailure records one phase handler failure during a commit attempt.
type PhaseFailure struct {
	Phase   Phase
	Message string
}

// String renders the failure as (phase, message).
func (f PhaseFailure) String() string {
	return fmt.Sprintf("(%s, %s)", f.Phase, f.Message)
}

// DependencyResolutionError is returned by Commit when two consecutive
// attempts failed in exactly the same way.
type DependencyResolutionError struct {
	TxID string

	// Failures are the failures of the final attempt, in phase order.
	Failures []PhaseFailure
}

// Error implements the error interface.
func (e *DependencyResolutionError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.String()
	}
	msg := "dependency resolution failed: [" + strings.Join(parts, ", ") + "]"
	if e.TxID != "" {
		msg += " (tx=" + e.TxID + ")"
	}
	return msg
}

// Is lets errors.Is match the DEPENDENCY_RESOLUTION code.
func (e *DependencyResolutionError) Is(target error) bool {
	var te *Error
	if errors.As(target, &te) {
		return te.Code == ErrCodeDependencyResolution
	}
	return false
}

// IsAlreadyActive returns true if err came from Begin on an active
// transaction. Uses errors.Is to handle wrapped errors.
func IsAlreadyActive(err error) bool {
	return errors.Is(err, ErrAlreadyActive)
}

// IsDependencyError returns true if err is a terminal dependency resolution
// failure. Uses errors.As to handle wrapped errors.
func IsDependencyError(err error) bool {
	var de *DependencyResolutionError
	return errors.As(err, &de)
}

func newAlreadyActiveError(txID string) *Error {
	return &Error{Code: ErrCodeAlreadyActive, Message: "transaction already active", TxID: txID}
}

func newNotActiveError(p Phase) *Error {
	return &Error{Code: ErrCodeNotActive, Message: fmt.Sprintf("cannot stage %s instruction: transaction not active", p)}
}

func failuresEqual(a, b []PhaseFailure) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
