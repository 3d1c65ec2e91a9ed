package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies every error the ingestion pipeline is allowed to surface.
type Kind string

const (
	KindValidation    Kind = "validation"
	KindPDFProcessing Kind = "pdf_processing"
	KindFileOperation Kind = "file_operation"
	KindConflict      Kind = "conflict"
	KindNotFound      Kind = "not_found"
	KindDatabase      Kind = "database"
	KindInternal      Kind = "internal"
)

// FileOp names the filesystem operation a file_operation error was raised for.
type FileOp string

const (
	OpSave   FileOp = "save"
	OpMove   FileOp = "move"
	OpDelete FileOp = "delete"
)

// DuplicateInfo carries the attributes that matched an existing bill.
type DuplicateInfo struct {
	BillNumber     string `json:"billNumber,omitempty"`
	ClientNumber   string `json:"clientNumber"`
	ReferenceMonth string `json:"referenceMonth"`
}

// Error is the tagged error value used across the pipeline. Exactly one
// value per failure; the Kind decides how callers react and how the HTTP
// layer maps it to a status code.
type Error struct {
	Kind          Kind
	Message       string
	MissingFields []string       // validation
	Op            FileOp         // file_operation
	Path          string         // file_operation
	Duplicate     *DuplicateInfo // conflict
	Cause         error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if len(e.MissingFields) > 0 {
		fmt.Fprintf(&b, " (missing: %s)", strings.Join(e.MissingFields, ", "))
	}
	if e.Op != "" {
		fmt.Fprintf(&b, " (op=%s path=%s)", e.Op, e.Path)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation reports required extracted fields that were absent.
func Validation(message string, missing []string) *Error {
	return &Error{Kind: KindValidation, Message: message, MissingFields: missing}
}

// PDFProcessing wraps a decode or extraction infrastructure failure.
func PDFProcessing(message string, cause error) *Error {
	return &Error{Kind: KindPDFProcessing, Message: message, Cause: cause}
}

// FileOperation reports a staging, commit or cleanup failure for path.
func FileOperation(op FileOp, path string, cause error) *Error {
	return &Error{
		Kind:    KindFileOperation,
		Message: fmt.Sprintf("failed to %s file at %s", op, path),
		Op:      op,
		Path:    path,
		Cause:   cause,
	}
}

// Conflict reports a business-level duplicate bill.
func Conflict(message string, dup DuplicateInfo) *Error {
	return &Error{Kind: KindConflict, Message: message, Duplicate: &dup}
}

// NotFound reports a missing bill or archived file.
func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Message: message}
}

// Database wraps an otherwise unclassified persistence failure.
func Database(message string, cause error) *Error {
	return &Error{Kind: KindDatabase, Message: message, Cause: cause}
}

// Internal wraps failures that match no other kind.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "unexpected internal error", Cause: cause}
}

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Coerce guarantees callers only ever see tagged errors: a foreign error is
// wrapped as internal, a tagged one passes through untouched.
func Coerce(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
