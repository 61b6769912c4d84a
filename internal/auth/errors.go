package auth

import (
	"errors"
	"net/http"
)

// Error is a typed authentication or authorization failure. Code is a
// stable machine-readable identifier, Status the HTTP status it maps to.
// Descriptions are safe for clients: no key material, no internals.
type Error struct {
	Code        string
	Description string
	Status      int
}

func (e *Error) Error() string { return "auth: " + e.Code + ": " + e.Description }

// Failure taxonomy. Request-shape and authentication failures map to
// 400/401, insufficient grant to 403, and key-set outages to 503 so that
// clients can distinguish "obtain a new token" from "retry later".
var (
	ErrHeaderMissing = &Error{
		Code:        "authorization_header_missing",
		Description: "Authorization header is expected.",
		Status:      http.StatusUnauthorized,
	}
	ErrHeaderMalformed = &Error{
		Code:        "invalid_header",
		Description: "Authorization header must be Bearer token.",
		Status:      http.StatusBadRequest,
	}
	ErrTokenMalformed = &Error{
		Code:        "token_malformed",
		Description: "Token is not a valid compact JWT.",
		Status:      http.StatusUnauthorized,
	}
	ErrAlgorithmMismatch = &Error{
		Code:        "algorithm_mismatch",
		Description: "Token signing algorithm is not accepted.",
		Status:      http.StatusUnauthorized,
	}
	ErrUnknownSigningKey = &Error{
		Code:        "unknown_signing_key",
		Description: "Unable to find the appropriate key.",
		Status:      http.StatusUnauthorized,
	}
	ErrSignatureInvalid = &Error{
		Code:        "signature_invalid",
		Description: "Token signature verification failed.",
		Status:      http.StatusUnauthorized,
	}
	ErrTokenExpired = &Error{
		Code:        "token_expired",
		Description: "Token expired.",
		Status:      http.StatusUnauthorized,
	}
	ErrAudienceMismatch = &Error{
		Code:        "audience_mismatch",
		Description: "Token audience does not match this API.",
		Status:      http.StatusUnauthorized,
	}
	ErrIssuerMismatch = &Error{
		Code:        "issuer_mismatch",
		Description: "Token issuer is not trusted.",
		Status:      http.StatusUnauthorized,
	}
	ErrPermissionDenied = &Error{
		Code:        "unauthorized",
		Description: "Permission not found.",
		Status:      http.StatusForbidden,
	}
	ErrKeySetUnavailable = &Error{
		Code:        "keyset_unavailable",
		Description: "Signing keys are temporarily unavailable.",
		Status:      http.StatusServiceUnavailable,
	}
)

// AsError extracts the typed failure from an error chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
