package domain

import (
	"errors"
	"fmt"
)

// ErrKind is used to map domain errors to HTTP status codes consistently.
type ErrKind string

const (
	KindValidation     ErrKind = "validation"     // 400
	KindAuth           ErrKind = "auth"           // 401
	KindForbidden      ErrKind = "forbidden"      // 403
	KindNotFound       ErrKind = "not_found"      // 404
	KindConflict       ErrKind = "conflict"       // 409
	KindRateLimited    ErrKind = "rate_limited"   // 429
	KindInfrastructure ErrKind = "infrastructure" // 503
	KindInternal       ErrKind = "internal"       // 500
)

// Stable machine codes. Clients match on these, so do not rename them.
const (
	CodeMissingInput       = "missing_input"
	CodeInvalidJSON        = "invalid_json"
	CodeInvalidField       = "invalid_field"
	CodeInvalidCredentials = "invalid_credentials"
	CodeAccountBlocked     = "account_blocked"
	CodeNotFound           = "not_found"
	CodeDuplicateEmail     = "duplicate_email"
	CodeAlreadyVerified    = "already_verified"
	CodeRateLimited        = "rate_limited"
	CodeInvalidToken       = "invalid_token"
	CodeExpiredToken       = "expired_token"
	CodeDBUnavailable      = "db_unavailable"
	CodeRedisUnavailable   = "redis_unavailable"
	CodeRabbitUnavailable  = "rabbit_unavailable"
	CodeEmailDelivery      = "email_delivery_failed"
	CodeHashFailed         = "hash_failed"
	CodeRandomFailed       = "random_failed"
	CodeInternal           = "internal_error"
)

// Error is a structured domain error.
// - Kind: high-level category for HTTP mapping
// - Code: stable machine code
// - Message: safe summary for clients
// - Meta: optional details (field, reason, etc.)
// - Cause: wrapped internal error for logging/diagnostics
type Error struct {
	Kind    ErrKind
	Code    string
	Message string
	Meta    map[string]string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Kind, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind ErrKind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func Wrap(kind ErrKind, code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Cause: cause}
}

func WithMeta(err *Error, meta map[string]string) *Error {
	err.Meta = meta
	return err
}

func Is(err error, code string) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// ReasonOf returns the reason code attached to a domain error, if any.
func ReasonOf(err error) Reason {
	var de *Error
	if errors.As(err, &de) && de.Meta != nil {
		return Reason(de.Meta["reason"])
	}
	return ""
}

// ----------------------
// Validation errors (400)
// ----------------------

func ErrMissingInput(field string) *Error {
	return WithMeta(New(KindValidation, CodeMissingInput, "missing required input"), map[string]string{
		"field": field,
	})
}

func ErrInvalidJSON(cause error) *Error {
	return Wrap(KindValidation, CodeInvalidJSON, "invalid JSON body", cause)
}

func ErrInvalidField(field, reason string) *Error {
	return WithMeta(New(KindValidation, CodeInvalidField, "invalid field"), map[string]string{
		"field":  field,
		"reason": reason,
	})
}

func ErrInvalidToken() *Error {
	return New(KindValidation, CodeInvalidToken, "invalid reset token")
}

func ErrExpiredToken() *Error {
	return New(KindValidation, CodeExpiredToken, "reset token expired")
}

// ----------------------
// Auth errors (401 / 403)
// ----------------------

// Unknown email and wrong password both map here so callers cannot
// tell which one happened.
func ErrInvalidCredentials() *Error {
	return New(KindAuth, CodeInvalidCredentials, "invalid email or password")
}

func ErrAccountBlocked() *Error {
	return WithMeta(New(KindForbidden, CodeAccountBlocked, "account is blocked"), map[string]string{
		"reason": string(ReasonBlocked),
	})
}

// ----------------------
// Not found / conflict
// ----------------------

func ErrAccountNotFound() *Error {
	return New(KindNotFound, CodeNotFound, "account not found")
}

func ErrDuplicateEmail() *Error {
	return New(KindConflict, CodeDuplicateEmail, "an account with this email already exists")
}

func ErrAlreadyVerified() *Error {
	return New(KindConflict, CodeAlreadyVerified, "email is already verified")
}

// ----------------------
// Rate limit (429)
// ----------------------

// ErrRateLimited carries the reason code the caller shows the user
// (wait, reset_wait) or the limiter scope for HTTP throttling.
func ErrRateLimited(reason Reason) *Error {
	return WithMeta(New(KindRateLimited, CodeRateLimited, "too many requests"), map[string]string{
		"reason": string(reason),
	})
}

// ErrThrottled is returned by the HTTP limiter; scope names the route bucket.
func ErrThrottled(scope string) *Error {
	return WithMeta(New(KindRateLimited, CodeRateLimited, "too many requests"), map[string]string{
		"scope": scope,
	})
}

// ----------------------
// Infrastructure / internal (5xx)
// ----------------------

func ErrDBUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeDBUnavailable, "database unavailable", cause)
}

func ErrRedisUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeRedisUnavailable, "cache unavailable", cause)
}

func ErrRabbitUnavailable(cause error) *Error {
	return Wrap(KindInfrastructure, CodeRabbitUnavailable, "message broker unavailable", cause)
}

func ErrEmailDelivery(cause error) *Error {
	return Wrap(KindInfrastructure, CodeEmailDelivery, "email could not be sent", cause)
}

func ErrHashFailed(cause error) *Error {
	return Wrap(KindInternal, CodeHashFailed, "password hashing failed", cause)
}

func ErrRandomFailed(cause error) *Error {
	return Wrap(KindInternal, CodeRandomFailed, "random generation failed", cause)
}

func ErrInternal(cause error) *Error {
	return Wrap(KindInternal, CodeInternal, "internal error", cause)
}
