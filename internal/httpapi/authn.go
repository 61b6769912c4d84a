package httpapi

import (
	"net/http"
	"strings"

	"casting.org/internal/auth"
	"casting.org/internal/obs"
)

const bearerScheme = "Bearer"

// requirePermission runs the full verification pipeline before the handler:
// bearer extraction, token verification, then the permission check. The
// required permissions ride along as data on the route definition; all of
// them must be granted.
func (a *API) requirePermission(next http.HandlerFunc, permissions ...string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, aerr := bearerToken(r.Header.Get("Authorization"))
		if aerr != nil {
			respondAuthError(w, aerr)
			return
		}

		claims, err := a.verifier.Verify(r.Context(), token)
		if err != nil {
			respondAuthError(w, asAuthError(err))
			return
		}

		if err := auth.Authorize(claims, permissions...); err != nil {
			respondAuthError(w, asAuthError(err))
			return
		}

		ctx := auth.ContextWithClaims(r.Context(), claims)
		ctx = auth.ContextWithToken(ctx, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken extracts the credential from an "Authorization: Bearer <token>"
// header. A missing header and a malformed one are distinct failures.
func bearerToken(header string) (string, *auth.Error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", auth.ErrHeaderMissing
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], bearerScheme) {
		return "", auth.ErrHeaderMalformed
	}
	return parts[1], nil
}

func asAuthError(err error) *auth.Error {
	if e, ok := auth.AsError(err); ok {
		return e
	}
	return &auth.Error{
		Code:        "invalid_token",
		Description: "Token could not be verified.",
		Status:      http.StatusUnauthorized,
	}
}

func respondAuthError(w http.ResponseWriter, e *auth.Error) {
	obs.ObserveAuthFailure(e.Code)
	writeError(w, e.Status, e.Code)
}
