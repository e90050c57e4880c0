package stock

import (
	"errors"
	"fmt"
)

// Kind classifies a failed check stage.
type Kind int

// Failure kinds, one per stage boundary.
const (
	KindUnknown Kind = iota
	KindConfigMissing
	KindFetchFailure
	KindParseFailure
	KindNotifyFailure
)

// Sentinel errors matched by errors.Is against a *Error of the same kind.
var (
	ErrConfigMissing = errors.New("config missing")
	ErrFetchFailure  = errors.New("fetch failure")
	ErrParseFailure  = errors.New("parse failure")
	ErrNotifyFailure = errors.New("notify failure")

	// ErrNotFound reports that the label element never appeared before the
	// wait deadline. It is always wrapped inside a fetch failure.
	ErrNotFound = errors.New("label element not found")
)

func (k Kind) String() string {
	switch k {
	case KindConfigMissing:
		return "config_missing"
	case KindFetchFailure:
		return "fetch_failure"
	case KindParseFailure:
		return "parse_failure"
	case KindNotifyFailure:
		return "notify_failure"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindConfigMissing:
		return ErrConfigMissing
	case KindFetchFailure:
		return ErrFetchFailure
	case KindParseFailure:
		return ErrParseFailure
	case KindNotifyFailure:
		return ErrNotifyFailure
	default:
		return nil
	}
}

// Error is the failure value returned by every check stage.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "navigate" or "send message".
	Op  string
	Err error
}

// NewError wraps err with a kind and operation name.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return e.Kind.String()
	}
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.sentinel()
	return s != nil && target == s
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
