package httpapi

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"casting.org/internal/agency"
	"casting.org/internal/auth"
)

const (
	testAudience = "casting"
	testIssuer   = "https://casting.test.auth0.com/"
	testKid      = "test-key-1"
)

// testEnv wires a real verifier against an in-process JWKS endpoint so
// requests exercise the full pipeline from header to handler.
type testEnv struct {
	key     *rsa.PrivateKey
	handler http.Handler
	svc     *agency.InMemory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, jwksDocument(key, testKid))
	}))
	t.Cleanup(jwksSrv.Close)

	cache := auth.NewJWKSCache(jwksSrv.URL)
	verifier := auth.NewVerifier(cache, testAudience, testIssuer)
	svc := agency.NewInMemory()
	api := New(ReadyProbe{}, "test", svc, verifier, WithRateLimit(10000, 10000))

	return &testEnv{key: key, handler: api.Handler(), svc: svc}
}

func jwksDocument(key *rsa.PrivateKey, kid string) string {
	pub := key.Public().(*rsa.PublicKey)
	doc := map[string]any{
		"keys": []map[string]any{{
			"kid": kid,
			"kty": "RSA",
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}
	data, _ := json.Marshal(doc)
	return string(data)
}

type tokenSpec struct {
	permissions []string
	expiresIn   time.Duration
	audience    string
	issuer      string
}

func (e *testEnv) token(t *testing.T, spec tokenSpec) string {
	t.Helper()
	if spec.expiresIn == 0 {
		spec.expiresIn = time.Hour
	}
	if spec.audience == "" {
		spec.audience = testAudience
	}
	if spec.issuer == "" {
		spec.issuer = testIssuer
	}
	claims := jwt.MapClaims{
		"sub":         "auth0|test-user",
		"iss":         spec.issuer,
		"aud":         spec.audience,
		"exp":         time.Now().Add(spec.expiresIn).Unix(),
		"permissions": spec.permissions,
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKid
	signed, err := tok.SignedString(e.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func (e *testEnv) do(t *testing.T, method, path, authorization string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func assertErrorBody(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d (%s)", rec.Code, status, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("success = %v, want false", body["success"])
	}
	if int(body["error"].(float64)) != status {
		t.Fatalf("error = %v, want %d", body["error"], status)
	}
	if body["message"] != message {
		t.Fatalf("message = %q, want %q", body["message"], message)
	}
}

func TestMissingAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/actors", "", nil)
	assertErrorBody(t, rec, http.StatusUnauthorized, "authorization_header_missing")
}

func TestMalformedAuthorizationHeader(t *testing.T) {
	env := newTestEnv(t)
	for _, header := range []string{"Token abc", "Bearer", "Bearer one two"} {
		rec := env.do(t, http.MethodGet, "/actors", header, nil)
		assertErrorBody(t, rec, http.StatusBadRequest, "invalid_header")
	}
}

func TestReadPermissionGrantsList(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, tokenSpec{permissions: []string{auth.PermGetActors}})

	rec := env.do(t, http.MethodGet, "/actors", "Bearer "+token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("success = %v, want true", body["success"])
	}
	if body["total_actors"].(float64) != 0 {
		t.Fatalf("total_actors = %v, want 0", body["total_actors"])
	}
}

func TestMissingPermissionIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	// Director-shaped grant: full actor control, read-only movies.
	token := env.token(t, tokenSpec{permissions: []string{
		auth.PermGetActors, auth.PermPostActors, auth.PermPatchActors,
		auth.PermDeleteActors, auth.PermGetMovies, auth.PermPatchMovies,
	}})

	rec := env.do(t, http.MethodPost, "/movies", "Bearer "+token, map[string]any{
		"title":        "Dune",
		"release_date": "2021-10-22",
	})
	assertErrorBody(t, rec, http.StatusForbidden, "unauthorized")
}

func TestWritePermissionGrantsCreate(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, tokenSpec{permissions: []string{auth.PermPostMovies}})

	rec := env.do(t, http.MethodPost, "/movies", "Bearer "+token, map[string]any{
		"title":        "Dune",
		"release_date": "2021-10-22",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["created"].(float64) <= 0 {
		t.Fatalf("created = %v, want positive id", body["created"])
	}
	movie := body["movie"].(map[string]any)
	if movie["title"] != "Dune" || movie["release_date"] != "2021-10-22" {
		t.Fatalf("unexpected movie payload: %v", movie)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, tokenSpec{
		permissions: []string{auth.PermGetActors},
		expiresIn:   -time.Minute,
	})
	rec := env.do(t, http.MethodGet, "/actors", "Bearer "+token, nil)
	assertErrorBody(t, rec, http.StatusUnauthorized, "token_expired")
}

func TestWrongAudienceRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, tokenSpec{
		permissions: []string{auth.PermGetActors},
		audience:    "some-other-api",
	})
	rec := env.do(t, http.MethodGet, "/actors", "Bearer "+token, nil)
	assertErrorBody(t, rec, http.StatusUnauthorized, "audience_mismatch")
}

func TestWrongIssuerRejected(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, tokenSpec{
		permissions: []string{auth.PermGetActors},
		issuer:      "https://evil.example.com/",
	})
	rec := env.do(t, http.MethodGet, "/actors", "Bearer "+token, nil)
	assertErrorBody(t, rec, http.StatusUnauthorized, "issuer_mismatch")
}

func TestGarbageTokenRejected(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/actors", "Bearer not.a.jwt-at-all", nil)
	assertErrorBody(t, rec, http.StatusUnauthorized, "token_malformed")
}

func TestPreflightBypassesAuthentication(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodOptions, "/actors", "", nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Fatal("expected CORS headers on preflight response")
	}
}

func TestKeySetOutageIsServiceUnavailable(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	jwksSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	t.Cleanup(jwksSrv.Close)

	cache := auth.NewJWKSCache(jwksSrv.URL)
	verifier := auth.NewVerifier(cache, testAudience, testIssuer)
	api := New(ReadyProbe{}, "test", agency.NewInMemory(), verifier, WithRateLimit(10000, 10000))
	env := &testEnv{key: key, handler: api.Handler()}

	token := env.token(t, tokenSpec{permissions: []string{auth.PermGetActors}})
	rec := env.do(t, http.MethodGet, "/actors", "Bearer "+token, nil)
	assertErrorBody(t, rec, http.StatusServiceUnavailable, "keyset_unavailable")
}
