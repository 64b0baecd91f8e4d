// Package common defines shared constants and sentinel errors used across
// the NetGuard server and sensor client. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Account workflow errors.
	ErrConflict                = errors.New("username or email already exists")
	ErrInvalidCredentials      = errors.New("invalid username or password")
	ErrPasswordMismatch        = errors.New("password and confirmation do not match")
	ErrForbidden               = errors.New("forbidden")
	ErrSuperAdminLimitExceeded = errors.New("only one SuperAdmin is allowed")
	ErrInvalidRole             = errors.New("invalid role")
	ErrValidation              = errors.New("validation error")

	// Inference errors.
	ErrModelUnavailable = errors.New("model not available")
	ErrPredictionFailed = errors.New("prediction failed")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
