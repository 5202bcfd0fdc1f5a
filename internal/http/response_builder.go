// Package http provides the JSON API of the ledger server.
//
// This file implements a builder for the API's response envelope: every
// body is a JSON object with a "success" flag, and either the payload's
// fields or an "error" message.
package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledgerbook/internal/clock"
	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
	"ledgerbook/internal/services"
	"ledgerbook/internal/store"
)

// JSONResponseBuilder builds an enveloped JSON response.
type JSONResponseBuilder struct {
	statusCode int
	payload    any
	message    string
	headers    map[string]string
}

// NewJSONResponse creates a successful response with status 200.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{statusCode: http.StatusOK, headers: make(map[string]string)}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Payload sets the value whose fields are merged into the envelope. It
// must marshal to a JSON object.
func (b *JSONResponseBuilder) Payload(v any) *JSONResponseBuilder {
	b.payload = v
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

func (b *JSONResponseBuilder) failed() bool {
	return b.statusCode >= 400
}

// Bytes renders the envelope.
func (b *JSONResponseBuilder) Bytes() ([]byte, error) {
	if b.failed() {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Error   string `json:"error"`
		}{false, b.message})
	}
	if b.payload == nil {
		return []byte(`{"success":true}`), nil
	}
	body, err := json.Marshal(b.payload)
	if err != nil {
		return nil, err
	}
	return envelope(body)
}

// envelope splices "success":true into the JSON object body.
func envelope(body []byte) ([]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) < 2 || body[0] != '{' {
		return nil, errors.New("payload is not a JSON object")
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + 16)
	buf.WriteString(`{"success":true`)
	if inner := bytes.TrimSpace(body[1 : len(body)-1]); len(inner) > 0 {
		buf.WriteByte(',')
		buf.Write(inner)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Write sends the response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	body, err := b.Bytes()
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		body = []byte(`{"success":false,"error":"internal error"}`)
		b.statusCode = http.StatusInternalServerError
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
}

// ErrorResponse creates a failed response carrying message.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	b := NewJSONResponse().Status(statusCode)
	b.message = message
	return b
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Header("Allow", allowedMethods)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later")
}

// FromError maps a service error to its response. Store failures and
// unknown errors are reported without their details.
func FromError(err error) *JSONResponseBuilder {
	switch {
	case errors.Is(err, core.ErrInvalidTransaction), errors.Is(err, services.ErrInvalidLimit):
		return UnprocessableEntityError(err.Error())
	case errors.Is(err, period.ErrInvalidUser),
		errors.Is(err, period.ErrInvalidDate),
		errors.Is(err, period.ErrInvalidMonth),
		errors.Is(err, core.ErrInvalidDate),
		errors.Is(err, core.ErrInvalidAmount):
		return BadRequestError(err.Error())
	case errors.Is(err, services.ErrReportNotFound), errors.Is(err, services.ErrTransactionNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, store.ErrRead), errors.Is(err, store.ErrWrite):
		return InternalServerError("storage unavailable")
	case errors.Is(err, clock.ErrUnavailable):
		return InternalServerError("clock unavailable")
	}
	return InternalServerError("internal error")
}
