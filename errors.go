package nativebind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLibraryNotFound is returned when no candidate file exists in any
	// search location.
	ErrLibraryNotFound = errors.New("nativebind: library not found")
	// ErrLibraryLoad is returned when candidates were found but none could
	// be loaded.
	ErrLibraryLoad = errors.New("nativebind: library failed to load")
	// ErrSymbolNotFound is returned when a declared symbol is absent from
	// the library.
	ErrSymbolNotFound = errors.New("nativebind: symbol not found")
	// ErrSignatureMismatch is returned when a Go func type does not match
	// the declared call signature, or a symbol is rebound differently.
	ErrSignatureMismatch = errors.New("nativebind: signature mismatch")

	ErrOutOfBounds     = errors.New("nativebind: index out of bounds")
	ErrLockFailed      = errors.New("nativebind: failed to lock buffer source")
	ErrReadOnly        = errors.New("nativebind: buffer is read-only")
	ErrClosed          = errors.New("nativebind: already closed")
	ErrInvalidArgument = errors.New("nativebind: invalid argument")

	// ErrPositionUnknown may be returned by a wrapped stream's Seek when it
	// moved but cannot report the new offset. The adapter then asks Tell.
	ErrPositionUnknown = errors.New("nativebind: stream position unknown")
)

// LoadError describes a failed library resolution.
type LoadError struct {
	Library string
	Tried   []string
	Err     error // ErrLibraryNotFound or ErrLibraryLoad
	Last    error // last loader error, if any candidate was tried
}

func (e *LoadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%v: %s", e.Err, e.Library)
	if len(e.Tried) > 0 {
		fmt.Fprintf(&b, " (tried %s)", strings.Join(e.Tried, ", "))
	}
	if e.Last != nil {
		fmt.Fprintf(&b, ": %v", e.Last)
	}
	return b.String()
}

func (e *LoadError) Unwrap() []error {
	if e.Last == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Last}
}

// BindError describes a failed symbol binding.
type BindError struct {
	Library string
	Symbol  string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s in %s: %v", e.Symbol, e.Library, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

// CallError is a native failure sentinel translated into a Go error.
type CallError struct {
	Symbol string
	Code   int64
	Msg    string
}

func (e *CallError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s failed (code %d)", e.Symbol, e.Code)
	}
	return fmt.Sprintf("%s failed: %s", e.Symbol, e.Msg)
}

// CheckCode translates a negative native return code into a *CallError.
// lastError may be nil; when it yields an empty string the message is
// generic.
func CheckCode(symbol string, code int64, lastError func() string) error {
	if code >= 0 {
		return nil
	}
	return newCallError(symbol, code, lastError)
}

// CheckPointer translates a null native pointer into a *CallError.
func CheckPointer(symbol string, ptr uintptr, lastError func() string) error {
	if ptr != 0 {
		return nil
	}
	return newCallError(symbol, 0, lastError)
}

func newCallError(symbol string, code int64, lastError func() string) error {
	e := &CallError{Symbol: symbol, Code: code}
	if lastError != nil {
		e.Msg = lastError()
	}
	return e
}
