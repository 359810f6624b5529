// Package failure carries the HTTP status and the client-facing message of an expected error.
// Anything that is not a Failure is treated as an internal error.
package failure

import (
	"errors"
	"net/http"
)

// Failure is a wrapper for error messages and codes using standard HTTP response codes.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

var (
	InvalidPageParam  = &Failure{Code: http.StatusBadRequest, Message: "invalid page parameter"}
	InvalidLimitParam = &Failure{Code: http.StatusBadRequest, Message: "invalid limit parameter"}
	ForbiddenError    = &Failure{Code: http.StatusForbidden, Message: "forbidden"}
)

func (e *Failure) Error() string {
	return e.Message
}

// New builds a failure with an explicit status.
func New(code int, msg string) error {
	return &Failure{Code: code, Message: msg}
}

// BadRequest wraps a decoding or validation error. A nil error stays nil.
func BadRequest(err error) error {
	if err == nil {
		return nil
	}

	return New(http.StatusBadRequest, err.Error())
}

func BadRequestFromString(msg string) error {
	return New(http.StatusBadRequest, msg)
}

func Unauthorized(msg string) error {
	return New(http.StatusUnauthorized, msg)
}

// Forbidden is returned when the caller acts on a resource they do not own.
func Forbidden(msg string) error {
	return New(http.StatusForbidden, msg)
}

func NotFound(entityName string) error {
	return New(http.StatusNotFound, entityName)
}

// Conflict is returned when the current state of a slot or booking forbids the transition.
func Conflict(msg string) error {
	return New(http.StatusConflict, msg)
}

func TooLarge(msg string) error {
	return New(http.StatusRequestEntityTooLarge, msg)
}

// Upstream is returned when the payment provider call fails.
func Upstream(msg string) error {
	return New(http.StatusBadGateway, msg)
}

// Disabled is returned when a feature is switched off in configuration.
func Disabled(feature string) error {
	return New(http.StatusServiceUnavailable, feature)
}

// GetCode returns the status of a failure anywhere in the chain, 500 otherwise.
func GetCode(err error) int {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Code
	}

	return http.StatusInternalServerError
}

// GetMessage returns the failure message of an error interface, or an empty string for unexpected errors.
func GetMessage(err error) string {
	var fail *Failure
	if errors.As(err, &fail) {
		return fail.Message
	}

	return ""
}
