package service

import (
	"errors"
	"fmt"
)

// Kind is the stable, machine-checkable category of a service error.
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindUnauthorized     Kind = "unauthorized"
	KindForbidden        Kind = "forbidden"
	KindNotFound         Kind = "not_found"
	KindConflict         Kind = "conflict"
	KindAlreadyCompleted Kind = "already_completed"
	KindDuplicate        Kind = "duplicate"
	KindInternal         Kind = "internal"
)

// CodePastDueDate marks the validation error raised for due dates before now.
const CodePastDueDate = "past_due_date"

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Code: string(kind), Message: msg}
}

func ValidationError(msg string) *Error { return newError(KindValidation, msg) }

func PastDueDateError() *Error {
	return &Error{Kind: KindValidation, Code: CodePastDueDate, Message: "due date cannot be in the past"}
}

func UnauthorizedError(msg string) *Error     { return newError(KindUnauthorized, msg) }
func ForbiddenError(msg string) *Error        { return newError(KindForbidden, msg) }
func NotFoundError(msg string) *Error         { return newError(KindNotFound, msg) }
func ConflictError(msg string) *Error         { return newError(KindConflict, msg) }
func AlreadyCompletedError(msg string) *Error { return newError(KindAlreadyCompleted, msg) }
func DuplicateError(msg string) *Error        { return newError(KindDuplicate, msg) }

// InternalError wraps an unexpected store failure. The message is safe to show to clients.
func InternalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Code: string(KindInternal), Message: "internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind of err, or KindInternal for errors that are not *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
