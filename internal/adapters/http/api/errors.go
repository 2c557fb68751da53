package api

import (
	"context"
	"errors"
	"net/http"

	service "github.com/nourdesoukizz/Cozmx-fencing/internal/app"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/engine"
	"github.com/nourdesoukizz/Cozmx-fencing/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest  = errors.New("bad request")
	ErrRateLimited = errors.New("rate limited")
	ErrNoResult    = errors.New("no simulation result")
)

// Error tags an underlying error with the operation that failed and the kind
// that decides the response status.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Err == nil:
		return e.Op + ": " + e.Kind.Error()
	case e.Kind == nil:
		return e.Op + ": " + e.Err.Error()
	default:
		return e.Op + ": " + e.Kind.Error() + ": " + e.Err.Error()
	}
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of the given kind for op.
func NewKind(op string, kind error) error {
	return &Error{Op: op, Kind: kind}
}

// Wrap tags err with op, keeping its own kind.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// WrapKind tags err with op and kind.
func WrapKind(op string, kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// classify maps an error to a status code and a machine-readable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, model.ErrEventNotFound):
		return http.StatusNotFound, "event_not_found"
	case errors.Is(err, model.ErrUnknownCompetitor):
		return http.StatusNotFound, "unknown_competitor"
	case errors.Is(err, ErrNoResult):
		return http.StatusNotFound, "no_result"
	case errors.Is(err, model.ErrDuplicatePool):
		return http.StatusConflict, "duplicate_pool"
	case errors.Is(err, model.ErrBracketNotSet):
		return http.StatusConflict, "bracket_not_set"
	case errors.Is(err, model.ErrInsufficientBracketSize):
		return http.StatusBadRequest, "insufficient_bracket_size"
	case errors.Is(err, model.ErrInvalidObservation),
		errors.Is(err, engine.ErrUnsupportedSnapshot),
		errors.Is(err, service.ErrInvalidEventName),
		errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "cancelled"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
