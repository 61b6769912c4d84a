package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"
)

const defaultFetchTimeout = 10 * time.Second

// jwk mirrors one key object from the provider's published key set.
type jwk struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Use string `json:"use"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

// KeyProvider resolves the public key a token's kid refers to. It returns
// ErrUnknownSigningKey when the kid is not present even after a refresh,
// and ErrKeySetUnavailable when the key set cannot be fetched.
type KeyProvider interface {
	Key(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// JWKSCache caches the identity provider's current signing keys keyed by
// kid. The set is fetched lazily on first use and re-fetched when an
// unseen kid is requested; there is no TTL since rotation is detected via
// unknown kids. The cached set is replaced wholesale, never mutated, so
// readers always observe a complete set, and concurrent misses share a
// single outbound fetch.
type JWKSCache struct {
	url    string
	client *http.Client

	mu   sync.RWMutex
	keys map[string]*rsa.PublicKey
	gen  uint64 // bumped on every successful replace

	refreshMu sync.Mutex
}

var _ KeyProvider = (*JWKSCache)(nil)

// JWKSOption configures JWKSCache.
type JWKSOption func(*JWKSCache)

// WithHTTPClient overrides the HTTP client used for key-set fetches.
func WithHTTPClient(client *http.Client) JWKSOption {
	return func(c *JWKSCache) {
		if client != nil {
			c.client = client
		}
	}
}

// WithFetchTimeout bounds a single key-set fetch.
func WithFetchTimeout(d time.Duration) JWKSOption {
	return func(c *JWKSCache) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// NewJWKSCache creates an empty cache backed by the given JWKS endpoint.
func NewJWKSCache(url string, opts ...JWKSOption) *JWKSCache {
	c := &JWKSCache{
		url:    url,
		client: &http.Client{Timeout: defaultFetchTimeout},
		keys:   make(map[string]*rsa.PublicKey),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Key returns the signing key for kid. A miss triggers at most one refresh
// attempt before reporting ErrUnknownSigningKey.
func (c *JWKSCache) Key(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	key, gen := c.lookup(kid)
	if key != nil {
		return key, nil
	}
	if err := c.refreshSince(ctx, gen); err != nil {
		return nil, err
	}
	if key, _ := c.lookup(kid); key != nil {
		return key, nil
	}
	return nil, ErrUnknownSigningKey
}

func (c *JWKSCache) lookup(kid string) (*rsa.PublicKey, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keys[kid], c.gen
}

// refreshSince fetches a fresh key set unless another caller already
// replaced it after the generation the miss was observed at. Callers that
// lose the race wait on refreshMu and then reuse the winner's result.
func (c *JWKSCache) refreshSince(ctx context.Context, seen uint64) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	c.mu.RLock()
	current := c.gen
	c.mu.RUnlock()
	if current != seen {
		return nil
	}
	return c.fetch(ctx)
}

func (c *JWKSCache) fetch(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: unexpected status %d", ErrKeySetUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrKeySetUnavailable, err)
	}

	var set jwkSet
	if err := json.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("%w: malformed key set", ErrKeySetUnavailable)
	}

	keys := make(map[string]*rsa.PublicKey, len(set.Keys))
	for _, k := range set.Keys {
		if k.Kid == "" || k.Kty != "RSA" {
			continue
		}
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := rsaPublicKey(k)
		if err != nil {
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		// Do not poison previously cached entries with an empty set.
		return fmt.Errorf("%w: key set contained no usable keys", ErrKeySetUnavailable)
	}

	c.mu.Lock()
	c.keys = keys
	c.gen++
	c.mu.Unlock()
	return nil
}

// rsaPublicKey builds an RSA public key from base64url modulus/exponent.
func rsaPublicKey(k jwk) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(k.N)
	if err != nil {
		return nil, fmt.Errorf("decode modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(k.E)
	if err != nil {
		return nil, fmt.Errorf("decode exponent: %w", err)
	}
	if len(nBytes) == 0 || len(eBytes) == 0 || len(eBytes) > 8 {
		return nil, fmt.Errorf("invalid key material")
	}
	e := 0
	for _, b := range eBytes {
		e = e<<8 | int(b)
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: e}, nil
}
