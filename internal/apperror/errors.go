package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies a processing failure.
type Kind string

const (
	KindInput         Kind = "input_error"
	KindCorrupted     Kind = "corrupted_document"
	KindEncrypted     Kind = "encrypted_document"
	KindSizeLimit     Kind = "size_limit_exceeded"
	KindPageLimit     Kind = "page_limit_exceeded"
	KindConfiguration Kind = "configuration_error"
	KindTimeout       Kind = "processing_timeout"
)

// Error is the typed error carried through the pipeline.
type Error struct {
	Kind    Kind
	Message string
	Path    string
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Path)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Label(), msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports kind equality so errors.Is(err, &Error{Kind: KindInput}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

// Label returns the human readable prefix used in job messages.
func (k Kind) Label() string {
	switch k {
	case KindInput:
		return "input error"
	case KindCorrupted:
		return "corrupted document"
	case KindEncrypted:
		return "encrypted document"
	case KindSizeLimit:
		return "size limit exceeded"
	case KindPageLimit:
		return "page limit exceeded"
	case KindConfiguration:
		return "configuration error"
	case KindTimeout:
		return "processing timeout"
	default:
		return string(k)
	}
}

func newError(kind Kind, path string, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Path: path, Cause: cause}
}

func Input(path string, format string, args ...interface{}) *Error {
	return newError(KindInput, path, nil, format, args...)
}

func Corrupted(path string, cause error, format string, args ...interface{}) *Error {
	return newError(KindCorrupted, path, cause, format, args...)
}

func Encrypted(path string) *Error {
	return newError(KindEncrypted, path, nil, "document is password protected")
}

func SizeLimit(path string, size, limit int64) *Error {
	return newError(KindSizeLimit, path, nil, "file has %d bytes, limit is %d", size, limit)
}

func PageLimit(path string, pages, limit int) *Error {
	return newError(KindPageLimit, path, nil, "document has %d pages, limit is %d", pages, limit)
}

func Configuration(format string, args ...interface{}) *Error {
	return newError(KindConfiguration, "", nil, format, args...)
}

func Timeout(path string, format string, args ...interface{}) *Error {
	return newError(KindTimeout, path, nil, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsPreflight reports whether err must fail a job before it starts.
func IsPreflight(err error) bool {
	switch KindOf(err) {
	case KindInput, KindConfiguration:
		return true
	}
	return false
}
