package auth

// Authorize reports whether the verified claims grant every required
// permission. Multiple requirements use AND semantics: all listed
// permissions must be present in the token. A miss is an authorization
// failure (403), distinct from every authentication failure.
func Authorize(claims *Claims, required ...string) error {
	if claims == nil {
		return ErrPermissionDenied
	}
	for _, perm := range required {
		if !claims.HasPermission(perm) {
			return ErrPermissionDenied
		}
	}
	return nil
}
