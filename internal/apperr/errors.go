// Package apperr defines the error taxonomy shared by every component and
// its single mapping to HTTP responses. Handlers return these sentinels (or
// wrap them) instead of picking status codes themselves.
package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	// ErrAuthenticationRequired covers missing, invalid or expired tokens.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrAccountLocked is returned when the login throttle triggers.
	ErrAccountLocked = errors.New("account temporarily locked")
	// ErrInvalidCredentials covers both wrong password and unknown email so
	// callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccessDenied means authenticated but lacking membership or permission.
	ErrAccessDenied = errors.New("access denied")
	// ErrFeatureDisabled means a multi-workspace operation was attempted
	// while the flag is off for the tenant.
	ErrFeatureDisabled = errors.New("feature disabled")
	// ErrLimitExceeded is the billing gate failure.
	ErrLimitExceeded = errors.New("plan limit exceeded")
	// ErrInvitationInvalid covers expired, used and unknown invitation tokens.
	ErrInvitationInvalid = errors.New("invitation invalid")
	// ErrNotFound means the entity is absent within the caller's scope.
	ErrNotFound = errors.New("not found")
)

// Status maps a taxonomy error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountLocked):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, ErrFeatureDisabled):
		return http.StatusForbidden
	case errors.Is(err, ErrLimitExceeded):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrInvitationInvalid):
		return http.StatusGone
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// JSON writes the error as the standard response body.
func JSON(c echo.Context, err error) error {
	status := Status(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal details never leak to the caller
		message = "internal error"
	}
	return c.JSON(status, echo.Map{"error": message})
}
