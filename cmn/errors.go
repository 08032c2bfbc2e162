package cmn

import "fmt"

// ErrKind tags every error that crosses a component boundary so that
// callers can branch on category rather than string-matching messages
// (spec.md section 7).
type ErrKind string

const (
	ErrMalformedFrame  ErrKind = "MalformedFrame"
	ErrPeerDisconnected ErrKind = "PeerDisconnected"
	ErrFileNotFound    ErrKind = "FileNotFound"
	ErrStorageFailure  ErrKind = "StorageFailure"
	ErrCorrupted       ErrKind = "Corrupted"
	ErrCancelled       ErrKind = "Cancelled"
	ErrNameExists      ErrKind = "NameExists"
)

// Error is the common carrier for every tagged error kind in the
// system. It wraps an optional underlying cause for %w-style chaining.
type Error struct {
	Kind  ErrKind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, target) match when target is another *Error
// of the same Kind; compare against a bare ErrKind with KindOf.
func (e *Error) Is(target error) bool {
	if k, ok := target.(*Error); ok {
		return e.Kind == k.Kind
	}
	return false
}

func NewError(kind ErrKind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

func WrapError(kind ErrKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Cause: cause}
}

// KindOf extracts the ErrKind carried by err, or "" if err is nil or
// not a *cmn.Error.
func KindOf(err error) ErrKind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
