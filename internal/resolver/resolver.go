package resolver

import (
	"context"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind - data kind of an external request
type Kind string

// data kinds
const (
	KindLookup  Kind = "lookup"
	KindTotals  Kind = "totals"
	KindFilings Kind = "filings"
)

// Request - canonical request descriptor. Two requests with equal descriptors return the same payload.
type Request struct {
	Kind   Kind
	Entity string
	Key    string
	Period int

	// Query and Filter parameterize lookups only
	Query  string
	Filter string
}

// Descriptor - a renamed entity or a changed jurisdiction gives its lookup a new descriptor
func (r Request) Descriptor() string {
	if r.Kind == KindLookup {
		return fmt.Sprintf("%s|%s|%s|%s", r.Kind, r.Entity, r.Query, r.Filter)
	}
	return fmt.Sprintf("%s|%s|%s|%d", r.Kind, r.Entity, r.Key, r.Period)
}

// Source - external API returning raw payloads
type Source interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// ErrorType -
type ErrorType string

// error types
const (
	ErrorTypeRequest      ErrorType = "request"
	ErrorTypeStatus       ErrorType = "status"
	ErrorTypeInvalidJSON  ErrorType = "invalid_json"
	ErrorTypeMissingField ErrorType = "missing_field"
	ErrorTypeUnknownKind  ErrorType = "unknown_kind"
)

// Error - recoverable failure of an external call
type Error struct {
	Code int
	Type ErrorType
	Err  error
}

// Error -
func (err Error) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("%s: %s", err.Type, err.Err.Error())
	}
	return string(err.Type)
}

// Unwrap -
func (err Error) Unwrap() error {
	return err.Err
}

// Retryable - transport errors, throttling and server-side failures
func (err Error) Retryable() bool {
	switch err.Type {
	case ErrorTypeRequest:
		return true
	case ErrorTypeStatus:
		return err.Code == http.StatusTooManyRequests || err.Code >= http.StatusInternalServerError
	default:
		return false
	}
}

func newError(code int, typ ErrorType, err error) Error {
	return Error{code, typ, err}
}

// IsRecoverable - the error is a per-entity failure rather than a fatal one
func IsRecoverable(err error) bool {
	var e Error
	return errors.As(err, &e)
}

// IsRetryable -
func IsRetryable(err error) bool {
	var e Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Retryable()
}
