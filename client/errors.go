package client

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind rather than matching error strings;
// Error() strings are human-readable and may evolve.
type Kind string

const (
	// KindNetwork covers transport failures: connection, timeout,
	// cancelled context, truncated response body.
	KindNetwork Kind = "Network"
	// KindServer covers non-2xx responses that carried a status.
	KindServer Kind = "Server"
	// KindSerialization covers malformed JSON on read paths.
	KindSerialization Kind = "Serialization"
	// KindIO covers local filesystem failures on download paths.
	KindIO Kind = "IO"
)

// Error is the client's structured error type.
type Error struct {
	Kind    Kind
	Op      string // operation name, e.g. "Snapshot"
	Status  int    // HTTP status for KindServer, 0 otherwise
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

func wrapError(kind Kind, op, msg string, cause error) error {
	return &Error{Kind: kind, Op: op, Message: msg, Cause: cause}
}

func serverError(op string, status int, msg string) error {
	return &Error{Kind: KindServer, Op: op, Status: status, Message: msg}
}
