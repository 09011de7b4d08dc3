package core

import (
	"errors"
	"net/http"
)

// HTTPError is an error that maps onto an HTTP status code. Key is a stable
// machine-readable code for clients; Message is optional human-readable
// detail.
type HTTPError struct {
	Code    int
	Key     string
	Message string
}

func (e HTTPError) Error() string {
	return e.Key
}

// WithMessage returns a copy carrying human-readable detail.
func (e HTTPError) WithMessage(msg string) HTTPError {
	e.Message = msg
	return e
}

func asHTTPError(err error, target *HTTPError) bool {
	return errors.As(err, target)
}

var (
	ErrBadRequest         = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized       = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrPaymentRequired    = HTTPError{Code: http.StatusPaymentRequired, Key: "payment_required"}
	ErrForbidden          = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound           = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict           = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrUnprocessable      = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrTooManyRequests    = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternalServer     = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
)
