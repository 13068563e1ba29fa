// Package errs defines the action-error enumeration and the system-error
// type that together implement spec.md's three-band error taxonomy:
// user errors (returned directly from construction), action errors
// (returned by value from every share operation), and system errors
// (fatal, wrapped, and surfaced to the caller to tear down the share).
package errs

import "fmt"

// ActionCode is the per-operation result code exposed to callers. OK is
// the zero value so a freshly zeroed ActionError reads as success.
type ActionCode int

const (
	OK ActionCode = iota
	Illegal
	Unknown
	Exists
	Missing
	Invalid
	Restricted
)

func (c ActionCode) String() string {
	switch c {
	case OK:
		return "OK"
	case Illegal:
		return "Illegal"
	case Unknown:
		return "Unknown"
	case Exists:
		return "Exists"
	case Missing:
		return "Missing"
	case Invalid:
		return "Invalid"
	case Restricted:
		return "Restricted"
	default:
		return fmt.Sprintf("ActionCode(%d)", int(c))
	}
}

// ActionError is the error type returned by share-engine operations. A
// nil *ActionError (or one with Code == OK) means success.
type ActionError struct {
	Code ActionCode
}

// New builds a non-OK ActionError for code.
func New(code ActionCode) *ActionError {
	if code == OK {
		return nil
	}
	return &ActionError{Code: code}
}

func (e *ActionError) Error() string {
	if e == nil {
		return "OK"
	}
	return e.Code.String()
}

// Is reports whether err is an *ActionError carrying code.
func Is(err error, code ActionCode) bool {
	ae, ok := err.(*ActionError)
	return ok && ae != nil && ae.Code == code
}

// SystemError wraps a fatal, non-recoverable failure: a SQL engine
// error, a disk I/O failure mid-operation, corrupt static data, or an
// unknown schema version. It unwinds out of the share and poisons it —
// callers are expected to tear the share down on receiving one.
type SystemError struct {
	// Context names the failing statement, path, or phase.
	Context string
	Err     error
}

func (e *SystemError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("filemesh: system error: %s", e.Context)
	}
	return fmt.Sprintf("filemesh: system error: %s: %v", e.Context, e.Err)
}

func (e *SystemError) Unwrap() error { return e.Err }

// Systemf builds a SystemError with a formatted context.
func Systemf(err error, format string, args ...any) *SystemError {
	return &SystemError{Context: fmt.Sprintf(format, args...), Err: err}
}
