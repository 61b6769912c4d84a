package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AlgRS256 is the only accepted signing algorithm. The identity provider
// signs with an asymmetric key; symmetric fallbacks are never permitted.
const AlgRS256 = "RS256"

// Verifier checks raw bearer tokens against the provider's published keys
// and the configured audience/issuer, producing verified Claims or a typed
// *Error for each distinct failure mode.
type Verifier struct {
	keys     KeyProvider
	audience string
	issuer   string
	now      func() time.Time
	parser   *jwt.Parser
}

// VerifierOption configures Verifier behavior.
type VerifierOption func(*Verifier)

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if fn != nil {
			v.now = fn
		}
	}
}

// NewVerifier constructs a Verifier bound to a key provider and the
// expected audience and issuer.
func NewVerifier(keys KeyProvider, audience, issuer string, opts ...VerifierOption) *Verifier {
	v := &Verifier{
		keys:     keys,
		audience: audience,
		issuer:   issuer,
		now:      time.Now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{AlgRS256}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

type tokenHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// Verify runs the full verification pipeline: compact-form shape, declared
// algorithm, key resolution, signature, then standard claims. The declared
// algorithm is checked before any signature work to rule out
// algorithm-confusion downgrades.
func (v *Verifier) Verify(ctx context.Context, raw string) (*Claims, error) {
	raw = strings.TrimSpace(raw)
	segments := strings.Split(raw, ".")
	if len(segments) != 3 {
		return nil, ErrTokenMalformed
	}

	header, err := decodeHeader(segments[0])
	if err != nil {
		return nil, ErrTokenMalformed
	}
	if header.Alg != AlgRS256 {
		return nil, ErrAlgorithmMismatch
	}
	if header.Kid == "" {
		return nil, ErrUnknownSigningKey
	}

	key, err := v.keys.Key(ctx, header.Kid)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrSignatureInvalid
		default:
			return nil, ErrTokenMalformed
		}
	}

	if err := v.validateClaims(claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// validateClaims checks expiry, audience and issuer in that order with
// independent failure kinds on an already signature-verified payload.
func (v *Verifier) validateClaims(c *Claims) error {
	now := v.now().UTC()
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrTokenExpired
	}
	if !audienceContains(c.Audience, v.audience) {
		return ErrAudienceMismatch
	}
	if c.Issuer != v.issuer {
		return ErrIssuerMismatch
	}
	return nil
}

func decodeHeader(segment string) (tokenHeader, error) {
	var header tokenHeader
	data, err := base64.RawURLEncoding.DecodeString(segment)
	if err != nil {
		return header, err
	}
	err = json.Unmarshal(data, &header)
	return header, err
}

func audienceContains(aud jwt.ClaimStrings, expected string) bool {
	for _, a := range aud {
		if a == expected {
			return true
		}
	}
	return false
}
