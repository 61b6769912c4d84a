package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
)

func jwksJSON(t *testing.T, keys map[string]*rsa.PublicKey) []byte {
	t.Helper()
	set := jwkSet{}
	for kid, key := range keys {
		set.Keys = append(set.Keys, jwk{
			Kid: kid,
			Kty: "RSA",
			Use: "sig",
			Alg: AlgRS256,
			N:   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		})
	}
	data, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal jwks: %v", err)
	}
	return data
}

func TestJWKSCacheFetchesLazily(t *testing.T) {
	key := newTestKey(t)
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write(jwksJSON(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)
	if got := fetches.Load(); got != 0 {
		t.Fatalf("expected no fetch before first use, got %d", got)
	}

	pub, err := cache.Key(context.Background(), "kid-1")
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if pub.N.Cmp(key.PublicKey.N) != 0 || pub.E != key.PublicKey.E {
		t.Fatalf("cached key does not match served key")
	}

	// A hit must not re-fetch.
	if _, err := cache.Key(context.Background(), "kid-1"); err != nil {
		t.Fatalf("Key (cached): %v", err)
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected exactly one fetch, got %d", got)
	}
}

func TestJWKSCacheUnknownKidRefreshesOnce(t *testing.T) {
	key := newTestKey(t)
	var fetches atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_, _ = w.Write(jwksJSON(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)
	if _, err := cache.Key(context.Background(), "kid-1"); err != nil {
		t.Fatalf("warm up: %v", err)
	}

	if _, err := cache.Key(context.Background(), "kid-2"); !errors.Is(err, ErrUnknownSigningKey) {
		t.Fatalf("Key(kid-2) = %v, want ErrUnknownSigningKey", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Fatalf("expected exactly one refresh attempt for the miss, got %d fetches", got)
	}
}

func TestJWKSCacheRotationPicksUpNewKey(t *testing.T) {
	oldKey := newTestKey(t)
	newKey := newTestKey(t)
	var rotated atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys := map[string]*rsa.PublicKey{"kid-old": &oldKey.PublicKey}
		if rotated.Load() {
			keys = map[string]*rsa.PublicKey{"kid-new": &newKey.PublicKey}
		}
		_, _ = w.Write(jwksJSON(t, keys))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)
	if _, err := cache.Key(context.Background(), "kid-old"); err != nil {
		t.Fatalf("pre-rotation: %v", err)
	}

	rotated.Store(true)
	if _, err := cache.Key(context.Background(), "kid-new"); err != nil {
		t.Fatalf("post-rotation: %v", err)
	}
	// The replaced set no longer carries the retired key.
	if _, err := cache.Key(context.Background(), "kid-old"); !errors.Is(err, ErrUnknownSigningKey) {
		t.Fatalf("retired key = %v, want ErrUnknownSigningKey", err)
	}
}

func TestJWKSCacheFetchFailure(t *testing.T) {
	key := newTestKey(t)
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(jwksJSON(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)

	failing.Store(true)
	if _, err := cache.Key(context.Background(), "kid-1"); !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("cold failure = %v, want ErrKeySetUnavailable", err)
	}

	failing.Store(false)
	if _, err := cache.Key(context.Background(), "kid-1"); err != nil {
		t.Fatalf("recovery: %v", err)
	}

	// A later failed refresh must not poison the cached entries.
	failing.Store(true)
	if _, err := cache.Key(context.Background(), "kid-1"); err != nil {
		t.Fatalf("cached key after outage: %v", err)
	}
}

func TestJWKSCacheMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"keys": "nope"`))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)
	if _, err := cache.Key(context.Background(), "kid-1"); !errors.Is(err, ErrKeySetUnavailable) {
		t.Fatalf("Key = %v, want ErrKeySetUnavailable", err)
	}
}

func TestJWKSCacheColdStartSingleFlight(t *testing.T) {
	key := newTestKey(t)
	var fetches atomic.Int64
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		<-release
		_, _ = w.Write(jwksJSON(t, map[string]*rsa.PublicKey{"kid-1": &key.PublicKey}))
	}))
	defer srv.Close()

	cache := NewJWKSCache(srv.URL)

	const callers = 16
	var wg sync.WaitGroup
	errs := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = cache.Key(context.Background(), "kid-1")
		}(i)
	}
	close(start)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("caller %d: %v", i, err)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("expected a single outbound fetch for a cold cache, got %d", got)
	}
}
