package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so sentinels survive WithError copies.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing credentials",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	// Configuration errors
	ErrUnknownPlatform = &AppError{
		Code:       "UNKNOWN_PLATFORM",
		Message:    "Unsupported platform",
		StatusCode: 404,
	}

	ErrConfigNotFound = &AppError{
		Code:       "CONFIG_NOT_FOUND",
		Message:    "Webhook not configured",
		StatusCode: 404,
	}

	ErrConfigExists = &AppError{
		Code:       "CONFIG_ALREADY_EXISTS",
		Message:    "Webhook already configured for this account and platform",
		StatusCode: 409,
	}

	// Security violations
	ErrPayloadTooLarge = &AppError{
		Code:       "PAYLOAD_TOO_LARGE",
		Message:    "Payload too large",
		StatusCode: 422,
	}

	ErrUnsupportedContentType = &AppError{
		Code:       "UNSUPPORTED_CONTENT_TYPE",
		Message:    "Unsupported content type",
		StatusCode: 422,
	}

	ErrIPNotAllowed = &AppError{
		Code:       "IP_NOT_ALLOWED",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrIPBlocked = &AppError{
		Code:       "IP_BLOCKED",
		Message:    "Access denied",
		StatusCode: 403,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Rate limit exceeded, please try again later",
		StatusCode: 429,
	}

	// Authentication errors
	ErrInvalidSignature = &AppError{
		Code:       "INVALID_SIGNATURE",
		Message:    "Invalid signature",
		StatusCode: 401,
	}

	ErrReplayDetected = &AppError{
		Code:       "REPLAY_DETECTED",
		Message:    "Invalid signature",
		StatusCode: 401,
	}

	ErrChallengeFailed = &AppError{
		Code:       "CHALLENGE_FAILED",
		Message:    "Verification failed",
		StatusCode: 403,
	}

	// Event lifecycle errors
	ErrEventNotFound = &AppError{
		Code:       "EVENT_NOT_FOUND",
		Message:    "Webhook event not found",
		StatusCode: 404,
	}

	ErrInvalidTransition = &AppError{
		Code:       "INVALID_STATUS_TRANSITION",
		Message:    "Event status does not allow this transition",
		StatusCode: 409,
	}

	ErrRetryLimitReached = &AppError{
		Code:       "RETRY_LIMIT_REACHED",
		Message:    "Event reached the maximum number of retries",
		StatusCode: 409,
	}
)
