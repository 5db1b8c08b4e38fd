package xlpatch

import (
	"errors"
	"fmt"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("invalid request")

// ErrSheetNotFound indicates the requested worksheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrTableNotFound indicates a referenced table does not exist.
var ErrTableNotFound = errors.New("table not found")

// errEntryMissing reports an archive entry that is not present.
var errEntryMissing = errors.New("archive entry missing")

// ErrFormattingSkipped marks a formatting refinement that was skipped
// because its preconditions did not hold. Steps returning it are logged and
// the pipeline continues.
var ErrFormattingSkipped = errors.New("formatting refinement skipped")

// ValidationError reports a request that cannot be applied. Nothing is
// written when it is returned.
type ValidationError struct {
	Field string // change-set field or "sheet"
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %v", e.Err)
	}
	return fmt.Sprintf("validation of %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field.
func NewValidationError(field string, err error) *ValidationError {
	return &ValidationError{Field: field, Err: err}
}

// WriterIncompatibilityError reports a document the in-process writer cannot
// parse. Callers may retry through a HostBridge.
type WriterIncompatibilityError struct {
	Path string
	Err  error
}

func (e *WriterIncompatibilityError) Error() string {
	return fmt.Sprintf("document %q is not supported by the in-process writer: %v", e.Path, e.Err)
}

func (e *WriterIncompatibilityError) Unwrap() error {
	return e.Err
}

// RepairFailure reports an archive entry that repair expected but could not
// find or patch. It is never fatal.
type RepairFailure struct {
	Entry string
	Err   error
}

func (e *RepairFailure) Error() string {
	return fmt.Sprintf("repair %s: %v", e.Entry, e.Err)
}

func (e *RepairFailure) Unwrap() error {
	return e.Err
}

// skipf wraps ErrFormattingSkipped with a description of the skipped work.
func skipf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrFormattingSkipped, fmt.Sprintf(format, args...))
}
