package errors

import (
	stderrors "errors"
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseCopy   Phase = "copy"   // foreign span to owned buffer
	PhaseView   Phase = "view"   // record field access and validation
	PhaseFuture Phase = "future" // completion handle lifecycle
	PhaseGuest  Phase = "guest"  // calls into the guest module
	PhaseConfig Phase = "config" // binding configuration
)

// Kind categorizes the error
type Kind string

const (
	KindOutOfBounds   Kind = "out_of_bounds"
	KindInvalidSpan   Kind = "invalid_span"
	KindNilPointer    Kind = "nil_pointer"
	KindAllocation    Kind = "allocation"
	KindOverflow      Kind = "overflow"
	KindReleased      Kind = "released"
	KindMissingExport Kind = "missing_export"
	KindCallFailed    Kind = "call_failed"
	KindFDB           Kind = "fdb"
	KindInvalidInput  Kind = "invalid_input"
	KindLeaked        Kind = "leaked"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	Detail  string
	Offset  uint32
	Length  uint32
	HasSpan bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.HasSpan {
		b.WriteString(" at ")
		b.WriteString(strconv.FormatUint(uint64(e.Offset), 10))
		b.WriteByte('+')
		b.WriteString(strconv.FormatUint(uint64(e.Length), 10))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Span sets the arena offset and length involved
func (b *Builder) Span(offset, length uint32) *Builder {
	b.err.Offset = offset
	b.err.Length = length
	b.err.HasSpan = true
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message verbatim
func (b *Builder) Detail(msg string) *Builder {
	b.err.Detail = msg
	return b
}

// Detailf sets the detail message from a format string
func (b *Builder) Detailf(format string, args ...any) *Builder {
	b.err.Detail = fmt.Sprintf(format, args...)
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// OutOfBounds creates an error for a span that does not fit the arena
func OutOfBounds(phase Phase, offset, length uint32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOutOfBounds,
		Offset:  offset,
		Length:  length,
		HasSpan: true,
		Detail:  "span outside arena",
	}
}

// InvalidSpan creates an error for a span with a negative length or count
func InvalidSpan(phase Phase, offset uint32, count int32) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidSpan,
		Offset:  offset,
		HasSpan: true,
		Detail:  fmt.Sprintf("negative count %d", count),
		Value:   count,
	}
}

// NilPointer creates an error for a null arena pointer with a non-zero count
func NilPointer(phase Phase, count int32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Detail: fmt.Sprintf("null pointer with count %d", count),
		Value:  count,
	}
}

// Overflow creates an error for a span whose byte size overflows 32 bits
func Overflow(phase Phase, count int32, size uintptr) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Detail: fmt.Sprintf("%d records of %d bytes overflow u32", count, size),
		Value:  count,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size int, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes", size),
		Cause:  cause,
	}
}

// Released creates an error for access through a released future reference
func Released(id uint64) *Error {
	return &Error{
		Phase:  PhaseFuture,
		Kind:   KindReleased,
		Detail: fmt.Sprintf("future %d already released", id),
		Value:  id,
	}
}

// MissingExport creates an error for a guest export that cannot be found
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseConfig,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("export %q not found", name),
	}
}

// CallFailed creates an error for a failed guest call
func CallFailed(name string, cause error) *Error {
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindCallFailed,
		Detail: fmt.Sprintf("call %s", name),
		Cause:  cause,
	}
}

// FDB creates an error for a non-zero fdb_error_t returned by the guest
func FDB(code int32, message string) *Error {
	detail := fmt.Sprintf("fdb error %d", code)
	if message != "" {
		detail += ": " + message
	}
	return &Error{
		Phase:  PhaseGuest,
		Kind:   KindFDB,
		Detail: detail,
		Value:  code,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Code returns the fdb_error_t carried by a KindFDB error anywhere in the chain.
func Code(err error) (int32, bool) {
	var e *Error
	if !stderrors.As(err, &e) {
		return 0, false
	}
	for e.Kind != KindFDB {
		if !stderrors.As(e.Cause, &e) {
			return 0, false
		}
	}
	code, ok := e.Value.(int32)
	return code, ok
}
