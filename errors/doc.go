// Package errors provides structured error types for fdb-wasm.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type carries the arena offset and length involved, a detail message and
// the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseCopy, errors.KindOutOfBounds).
//		Span(ptr, length).
//		Detail("key array").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseView, ptr, length)
//	err := errors.FDB(1020, "not_committed")
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
