package domain

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// ErrAirportNotFound is reported by providers that know the airport does not exist.
var ErrAirportNotFound = errors.New("airport not found")

type Kind int

const (
	KindInvalidCode Kind = iota + 1
	KindDataRetrieval
	KindCacheUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCode:
		return "invalid_code"
	case KindDataRetrieval:
		return "data_retrieval"
	case KindCacheUnavailable:
		return "cache_unavailable"
	default:
		return "unknown"
	}
}

// Error is the failure type of a distance calculation. Code is the airport
// code the failure relates to, empty for cache failures.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Kind sentinels for errors.Is.
var (
	ErrInvalidCode      = &Error{Kind: KindInvalidCode}
	ErrDataRetrieval    = &Error{Kind: KindDataRetrieval}
	ErrCacheUnavailable = &Error{Kind: KindCacheUnavailable}
)

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind when target carries no message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

func InvalidCodeError(code string) *Error {
	return &Error{
		Kind:    KindInvalidCode,
		Code:    code,
		Message: fmt.Sprintf("%q is not a valid IATA code", code),
	}
}

func AirportNotFoundError(code string, cause error) *Error {
	return &Error{
		Kind:    KindInvalidCode,
		Code:    code,
		Message: fmt.Sprintf("Airport with code %q does not exist", code),
		Err:     cause,
	}
}

func EmptyResponseError(code string) *Error {
	return &Error{
		Kind:    KindDataRetrieval,
		Code:    code,
		Message: "Received empty response for airport " + code,
	}
}

func InvalidLocationError(code string) *Error {
	return &Error{
		Kind:    KindDataRetrieval,
		Code:    code,
		Message: "Received location data is invalid for airport " + code,
	}
}

func RetrievalError(code string, cause error) *Error {
	return &Error{
		Kind:    KindDataRetrieval,
		Code:    code,
		Message: fmt.Sprintf("Error while retrieving data for airport %s: %v", code, cause),
		Err:     cause,
	}
}

func CacheError(cause error) *Error {
	return &Error{
		Kind:    KindCacheUnavailable,
		Message: fmt.Sprintf("Error while accessing cache: %v", cause),
		Err:     cause,
	}
}

// KindOf returns the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var derr *Error
	if errors.As(err, &derr) {
		return derr.Kind
	}
	return 0
}

// AggregateError carries every failure of the concurrent airport lookups in
// slot order. It always holds at least one cause.
type AggregateError struct {
	errs []error
}

// NewAggregateError flattens a multierr value. It returns nil for a nil input.
func NewAggregateError(err error) *AggregateError {
	errs := multierr.Errors(err)
	if len(errs) == 0 {
		return nil
	}
	return &AggregateError{errs: errs}
}

func (a *AggregateError) Errors() []error {
	return append([]error(nil), a.errs...)
}

func (a *AggregateError) Unwrap() []error { return a.errs }

func (a *AggregateError) Error() string {
	msgs := make([]string, len(a.errs))
	for i, err := range a.errs {
		msgs[i] = err.Error()
	}
	return "One or more errors occurred. (" + strings.Join(msgs, ") (") + ")"
}
