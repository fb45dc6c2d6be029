// Package apperrors defines the typed failures shared by the session, verification and account
// packages, and their HTTP status mapping.
package apperrors

import (
	"errors"
	"net/http"
)

// Kind classifies application failures for consistent HTTP mapping.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindInvalidInput Kind = "invalid_input"
	KindUnauthorized Kind = "unauthorized"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindBadGateway   Kind = "bad_gateway"
	KindUnavailable  Kind = "unavailable"
)

// Error is a typed application failure. Values are compared by identity, so the sentinels below
// work with errors.Is even after wrapping.
type Error struct {
	Kind    Kind
	Message string
	base    error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Unwrap returns the sentinel a detailed error was derived from, if any.
func (e *Error) Unwrap() error {
	return e.base
}

// New builds a typed Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

var (
	ErrInvalidPhoneFormat  = New(KindInvalidInput, "invalid phone number format")
	ErrMissingCredential   = New(KindUnauthorized, "missing credential")
	ErrMalformedCredential = New(KindUnauthorized, "malformed credential")
	ErrExpiredCredential   = New(KindUnauthorized, "credential expired")
	ErrRevokedCredential   = New(KindUnauthorized, "credential revoked")
	ErrCodeMismatch        = New(KindInvalidInput, "verification code mismatch")
	ErrCodeExpired         = New(KindInvalidInput, "verification code expired")
	ErrDeliveryFailed      = New(KindBadGateway, "verification code delivery failed")
	ErrStoreUnavailable    = New(KindUnavailable, "store unavailable")

	ErrAccountNotFound    = New(KindNotFound, "account not found")
	ErrInvalidCredentials = New(KindUnauthorized, "invalid credentials")
	ErrPhoneRegistered    = New(KindConflict, "phone number already registered")
	ErrInvalidInput       = New(KindInvalidInput, "invalid input")
)

// KindOf returns the Kind of the first typed Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return KindUnknown
	}
	return appErr.Kind
}

// HTTPStatus maps an error to an HTTP status code.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindBadGateway:
		return http.StatusBadGateway
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Invalid builds an invalid-input error carrying a client-facing detail. It matches
// ErrInvalidInput under errors.Is.
func Invalid(detail string) *Error {
	return &Error{Kind: KindInvalidInput, Message: detail, base: ErrInvalidInput}
}

// PublicMessage returns the message safe to show a client: the first typed error's own message
// (wrapping context is dropped), or a generic message for untyped internal failures.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	return appErr.Error()
}
