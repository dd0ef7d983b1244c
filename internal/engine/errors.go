package engine

import (
	"errors"
	"fmt"
)

// RuntimeError represents a failure inside the dispatch loop.
//
// Runtime errors include:
//   - Reducer panic: the action is skipped and the snapshot is unchanged
//   - Effect panic: the snapshot is already published, later effects still run
//   - Journal failure: the snapshot is already published, the action is
//     missing from the journal
//
// None of these stop the loop.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Seq is the logical clock value of the affected action.
	Seq int64

	// Kind is the affected action's kind.
	Kind string

	// Err is the underlying cause, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeReducerPanic indicates the reducer panicked on an action.
	ErrCodeReducerPanic RuntimeErrorCode = "REDUCER_PANIC"

	// ErrCodeEffectPanic indicates an effect panicked while handling an action.
	ErrCodeEffectPanic RuntimeErrorCode = "EFFECT_PANIC"

	// ErrCodeJournalFailed indicates the action could not be journaled.
	ErrCodeJournalFailed RuntimeErrorCode = "JOURNAL_FAILED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (seq=%d, kind=%s): %v", e.Code, e.Message, e.Seq, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (seq=%d, kind=%s)", e.Code, e.Message, e.Seq, e.Kind)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// IsReducerPanic returns true if the error is a reducer panic.
// Uses errors.As to handle wrapped errors.
func IsReducerPanic(err error) bool {
	return hasCode(err, ErrCodeReducerPanic)
}

// IsJournalError returns true if the error is a journal failure.
func IsJournalError(err error) bool {
	return hasCode(err, ErrCodeJournalFailed)
}

func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

func newPanicError(code RuntimeErrorCode, seq int64, kind string, recovered any) *RuntimeError {
	return &RuntimeError{
		Code:    code,
		Message: fmt.Sprintf("recovered panic: %v", recovered),
		Seq:     seq,
		Kind:    kind,
	}
}
