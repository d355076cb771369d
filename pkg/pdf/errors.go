package pdf

import (
	"errors"
	"fmt"
)

// ErrorType classifies structural failures. An empty result is never an
// error; these are the cases where a page cannot be processed at all.
type ErrorType string

const (
	ErrorTypeOpen      ErrorType = "open"
	ErrorTypePageRange ErrorType = "page_range"
	ErrorTypeRender    ErrorType = "render"
	ErrorTypeWrite     ErrorType = "write"
)

// Sentinels matched by errors.Is against an *Error of the same type.
var (
	ErrOpen      = errors.New("document cannot be opened")
	ErrPageRange = errors.New("page index out of range")
	ErrRender    = errors.New("page cannot be rendered")
	ErrWrite     = errors.New("document cannot be written")
)

// Error is a structural failure with context
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrOpen) and friends match by type.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrOpen:
		return e.Type == ErrorTypeOpen
	case ErrPageRange:
		return e.Type == ErrorTypePageRange
	case ErrRender:
		return e.Type == ErrorTypeRender
	case ErrWrite:
		return e.Type == ErrorTypeWrite
	}
	return false
}

// NewError creates a new structural error
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{Type: errType, Message: message, Err: err}
}

func OpenError(message string, err error) *Error {
	return NewError(ErrorTypeOpen, message, err)
}

// PageRangeError reports index outside [0, count).
func PageRangeError(index, count int) *Error {
	return NewError(ErrorTypePageRange, fmt.Sprintf("page index %d out of range [0, %d)", index, count), nil)
}

func RenderError(message string, err error) *Error {
	return NewError(ErrorTypeRender, message, err)
}

func WriteError(message string, err error) *Error {
	return NewError(ErrorTypeWrite, message, err)
}

// IsStructural reports whether err is a structural failure rather than a
// transient or item-level problem.
func IsStructural(err error) bool {
	var e *Error
	return errors.As(err, &e)
}
