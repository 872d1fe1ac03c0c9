package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies codec failures
type ErrorKind int

const (
	// KindInvalidHeader reports a missing or mismatched magic
	KindInvalidHeader ErrorKind = iota + 1
	// KindMalformedLength reports a negative or unrepresentable count prefix
	KindMalformedLength
	// KindUnexpectedEOF reports input that ended inside a value
	KindUnexpectedEOF
	// KindTrailingData reports bytes left over after a complete document
	KindTrailingData
	// KindInvalidArgument reports a value that cannot be encoded
	KindInvalidArgument
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidHeader:
		return "InvalidHeader"
	case KindMalformedLength:
		return "MalformedLength"
	case KindUnexpectedEOF:
		return "UnexpectedEndOfInput"
	case KindTrailingData:
		return "TrailingData"
	case KindInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Errors
var (
	ErrInvalidHeader   = &Error{Kind: KindInvalidHeader, Message: "invalid header", Offset: -1}
	ErrMalformedLength = &Error{Kind: KindMalformedLength, Message: "malformed length", Offset: -1}
	ErrUnexpectedEOF   = &Error{Kind: KindUnexpectedEOF, Message: "unexpected end of input", Offset: -1}
	ErrTrailingData    = &Error{Kind: KindTrailingData, Message: "trailing data", Offset: -1}
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument, Message: "invalid argument", Offset: -1}
)

// Error represents a codec error. Offset is -1 when the error is not tied to a
// position in the byte stream (encoding-side validation).
type Error struct {
	Kind    ErrorKind
	Message string
	Offset  int64
	Field   string
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Field != "" {
		b.WriteString(" in ")
		b.WriteString(e.Field)
	}
	if e.Offset >= 0 {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Is matches any *Error of the same kind, so the package sentinels work with
// errors.Is regardless of message, offset or field.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// WithField returns a copy of e whose field path is prefixed by name.
func (e *Error) WithField(name string) *Error {
	c := *e
	switch {
	case c.Field == "":
		c.Field = name
	case strings.HasPrefix(c.Field, "["):
		c.Field = name + c.Field
	default:
		c.Field = name + "." + c.Field
	}
	return &c
}

func newError(kind ErrorKind, offset int, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Offset: int64(offset)}
}

// InvalidArgument builds an encoding-side InvalidArgument error for field.
func InvalidArgument(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindInvalidArgument,
		Message: fmt.Sprintf(format, args...),
		Offset:  -1,
		Field:   field,
	}
}

// WrapField prefixes the field path of a codec error with name. Errors that are
// not *Error are wrapped with the name as context.
func WrapField(err error, name string) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.WithField(name)
	}
	return fmt.Errorf("%s: %w", name, err)
}
