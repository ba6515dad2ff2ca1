package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("not found")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("conflict")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrInternal is matched by every *InternalError.
	ErrInternal = errors.New("internal error")
)

// Error kinds reported to callers.
const (
	KindNotFound   = "not_found"
	KindConflict   = "conflict"
	KindValidation = "validation"
	KindInternal   = "internal"
)

// NotFoundError is returned when a referenced identifier does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// ConflictError is returned when a mutation would break an invariant.
// Conflict carries the clashing booking slot for overlap rejections.
type ConflictError struct {
	Resource string
	ID       string
	Reason   string
	Conflict *TimeSlot
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Resource, e.ID, e.Reason)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

// ValidationError names the offending parameter and what was expected.
type ValidationError struct {
	Param    string
	Expected string
	Reason   string
}

func (e *ValidationError) Error() string {
	msg := "invalid argument"
	if e.Param != "" {
		msg = fmt.Sprintf("invalid argument %q", e.Param)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Expected != "" {
		msg += " (expected " + e.Expected + ")"
	}
	return msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// InternalError marks a failure that is not a domain rejection.
type InternalError struct {
	Err error
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return ErrInternal.Error()
	}
	return "internal error: " + e.Err.Error()
}

func (e *InternalError) Is(target error) bool { return target == ErrInternal }

func (e *InternalError) Unwrap() error { return e.Err }

// ErrorKind classifies err into one of the reported kinds. Anything that
// is not a domain error counts as internal.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}

// ErrorDetails returns the structured fields of a domain error, suitable
// for JSON error bodies.
func ErrorDetails(err error) map[string]any {
	var (
		nf *NotFoundError
		cf *ConflictError
		ve *ValidationError
	)
	switch {
	case errors.As(err, &nf):
		return map[string]any{"resource": nf.Resource, "id": nf.ID}
	case errors.As(err, &cf):
		d := map[string]any{"resource": cf.Resource, "id": cf.ID, "reason": cf.Reason}
		if cf.Conflict != nil {
			d["conflict"] = *cf.Conflict
		}
		return d
	case errors.As(err, &ve):
		d := map[string]any{}
		if ve.Param != "" {
			d["param"] = ve.Param
		}
		if ve.Expected != "" {
			d["expected"] = ve.Expected
		}
		if ve.Reason != "" {
			d["reason"] = ve.Reason
		}
		return d
	}
	return nil
}
