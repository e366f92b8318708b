// Package errors provides structured error handling for the recompose engine.
//
// Misuse of the engine (hook order violations, type mismatches, duplicate keys)
// is not recoverable. The core panics with a *ReconcileError so that the panic
// value carries the failing operation, the offending node and state ids, and a
// stack trace. Hosts that want to log those panics before the tick aborts
// install an ErrorHandler with SetHandler.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindHookMismatch indicates a state slot holds a different type than requested.
	KindHookMismatch
	// KindMissingState indicates a state id that does not exist on the node.
	KindMissingState
	// KindDuplicateKey indicates a keyed list with a repeated key.
	KindDuplicateKey
	// KindInvariant indicates an internal reconciliation invariant was broken.
	KindInvariant
	// KindHookOrder indicates a composable called a different number of hooks
	// than on its previous pass.
	KindHookOrder
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindHookMismatch:
		return "hook-mismatch"
	case KindMissingState:
		return "missing-state"
	case KindDuplicateKey:
		return "duplicate-key"
	case KindInvariant:
		return "invariant"
	case KindHookOrder:
		return "hook-order"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Sentinel causes wrapped by ReconcileError. Match them with errors.Is.
var (
	ErrTypeMismatch  = stderrors.New("state value type mismatch")
	ErrStateNotFound = stderrors.New("state not found")
	ErrDuplicateKey  = stderrors.New("duplicate key")
	ErrScopeNotFound = stderrors.New("scope expected to exist but was not found")
	ErrHookOrder     = stderrors.New("hook call count changed between compositions")
	ErrResourceBound = stderrors.New("scope already bound to a different resource")
	ErrKeyType       = stderrors.New("key is not comparable")
	ErrForeignRoot   = stderrors.New("root is owned by another scheduler")
)

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// ReconcileError represents a fatal misuse or invariant violation in the engine.
type ReconcileError struct {
	// Op is the operation that failed (e.g., "core.UseState").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Node is the id of the node involved, if any.
	Node uint64
	// State describes the state id involved, if any.
	State string
	// Detail carries extra context such as the requested and stored types.
	Detail string
	// Err is the underlying cause.
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

// NewReconcileError builds a ReconcileError with a captured stack and timestamp.
func NewReconcileError(op string, kind ErrorKind, cause error) *ReconcileError {
	return &ReconcileError{
		Op:         op,
		Kind:       kind,
		Err:        cause,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

func (e *ReconcileError) Error() string {
	msg := fmt.Sprintf("%s [%s]", e.Op, e.Kind)
	if e.Node != 0 {
		msg += fmt.Sprintf(" node=%d", e.Node)
	}
	if e.State != "" {
		msg += " state=" + e.State
	}
	msg += fmt.Sprintf(": %v", e.Err)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "core.Scheduler.Tick").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	// HandleError is called when a non-panicking error is reported.
	HandleError(err *ReconcileError)
	// HandlePanic is called when a panic is observed.
	HandlePanic(err *PanicError)
}
