// Package http provides HTTP server and handler implementations.
//
// This file implements a small builder for JSON responses so handlers
// produce consistent envelopes and error bodies.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	headers    map[string]string
	payload    any
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets the response payload.
func (b *ResponseBuilder) JSON(payload any) *ResponseBuilder {
	b.payload = payload
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(b.statusCode)

	if b.payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(b.payload); err != nil {
		slog.Error("Failed to encode response payload", "error", err)
	}
}

// apiError matches the {"detail": ...} error body the clients expect.
type apiError struct {
	Detail string `json:"detail"`
}

// ErrorResponse creates a standard error response.
func ErrorResponse(statusCode int, detail string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(apiError{Detail: detail})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, detail)
}

// UnauthorizedError creates a 401 response with the Bearer challenge.
func UnauthorizedError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, detail).
		Header("WWW-Authenticate", "Bearer")
}

// ConflictError creates a 409 Conflict error response.
func ConflictError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusConflict, detail)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity response.
func UnprocessableEntityError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, detail)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, detail)
}

// MethodNotAllowedError creates a 405 response with the Allow header.
func MethodNotAllowedError(allowedMethods string) *ResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").
		Header("Allow", allowedMethods)
}

// TooManyRequestsError creates a 429 response with Retry-After.
func TooManyRequestsError(detail string) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, detail).
		Header("Retry-After", "60")
}
