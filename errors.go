package authgate

import "errors"

// Core error taxonomy. Strategies and stores translate their internal
// failures into these values before they cross the coordinator boundary;
// nothing below the coordinator leaks a raw store or bcrypt error to the
// caller. Compare with errors.Is.
var (
	// ErrInvalidCredentials covers both "no such user" and "wrong
	// password" so a caller cannot enumerate registered emails.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountExists is returned by registration when the email is
	// already taken, including when the attempt loses a concurrent race.
	ErrAccountExists = errors.New("account already exists")

	// ErrEmailTaken is the store-level duplicate signal. Registration
	// surfaces it as ErrAccountExists.
	ErrEmailTaken = errors.New("email already taken")

	// ErrUserNotFound is returned by store lookups and profile updates
	// on an absent user.
	ErrUserNotFound = errors.New("user not found")

	// ErrMalformedHash means a stored digest could not be parsed. Fatal
	// for that user record; logged, never shown to the caller.
	ErrMalformedHash = errors.New("malformed password hash")

	// ErrProviderExchange means the OAuth provider denied the attempt or
	// the code exchange / profile fetch failed.
	ErrProviderExchange = errors.New("provider exchange failed")

	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
)

// Error codes used in JSON error responses on the HTTP boundary.
const (
	ErrCodeInvalidCreds  = "invalid_credentials"
	ErrCodeEmailExists   = "email_exists"
	ErrCodeMissingField  = "missing_field"
	ErrCodeInvalidEmail  = "invalid_email"
	ErrCodeWeakPassword  = "weak_password"
	ErrCodeProviderError = "provider_error"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeInternal      = "internal_error"
)

// AuthError is the error shape returned to HTTP callers.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string { return e.Message }

func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
