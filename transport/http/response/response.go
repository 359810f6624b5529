// Package response writes the JSON envelopes of the HTTP API: {"data": ...} on success,
// {"error": "<code>"} on failure and {"message": ...} for server state notices.
package response

import (
	"encoding/json"
	"net/http"
	"parking/shared/constant"
	"parking/shared/failure"
	"parking/shared/logger"
)

// marshalFailure is written when the payload itself cannot be encoded.
var marshalFailure = []byte(`{"error":"` + constant.ResponseErrorInternal + `"}`)

type Data[T any] struct {
	Data *T `json:"data,omitempty"`
}

type Error struct {
	Error *string `json:"error,omitempty"`
}

type Message struct {
	Message *string `json:"message,omitempty"`
}

func WithMessage(writer http.ResponseWriter, code int, message string) {
	write(writer, code, Message{Message: &message})
}

func WithJSON[T any](writer http.ResponseWriter, code int, payload T) {
	write(writer, code, Data[T]{Data: &payload})
}

// WithError renders a failure as its status and message. Any other error becomes a 500 without
// internal detail.
func WithError(writer http.ResponseWriter, err error) {
	message := failure.GetMessage(err)
	if message == constant.Empty {
		message = constant.ResponseErrorInternal
	}

	write(writer, failure.GetCode(err), Error{Error: &message})
}

func WithRequestLimitExceeded(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusTooManyRequests, constant.ResponseErrorRequestLimitExceeded)
}

func WithPreparingShutdown(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorPrepareShutdown)
}

func WithUnhealthy(writer http.ResponseWriter) {
	WithMessage(writer, http.StatusServiceUnavailable, constant.ResponseErrorUnhealthy)
}

func write(writer http.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.ErrorWithStack(err)

		code = http.StatusInternalServerError
		body = marshalFailure
	}

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)
	writer.WriteHeader(code)

	if _, err = writer.Write(body); err != nil {
		logger.ErrorWithStack(err)
	}
}
