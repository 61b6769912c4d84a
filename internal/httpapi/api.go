package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"casting.org/internal/agency"
	"casting.org/internal/auth"
	"casting.org/internal/obs"
)

// ReadyProbe checks downstream dependencies (DB ping when configured).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// TokenVerifier produces verified claims from a raw bearer token. The
// production implementation is auth.Verifier; tests substitute their own.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*auth.Claims, error)
}

// API is the HTTP layer.
type API struct {
	router     *mux.Router
	agency     agency.Service
	verifier   TokenVerifier
	readyProbe ReadyProbe
	version    string

	rateBurst  int
	ratePerSec int
}

// Option configures the API.
type Option func(*API)

// WithRateLimit overrides the per-client rate limit.
func WithRateLimit(burst, perSecond int) Option {
	return func(a *API) {
		if burst > 0 && perSecond > 0 {
			a.rateBurst = burst
			a.ratePerSec = perSecond
		}
	}
}

// New wires the route table. Every resource route carries its permission
// requirement as data at definition time.
func New(rp ReadyProbe, version string, svc agency.Service, verifier TokenVerifier, opts ...Option) *API {
	a := &API{
		agency:     svc,
		verifier:   verifier,
		readyProbe: rp,
		version:    version,
		rateBurst:  20,
		ratePerSec: 10,
	}
	for _, opt := range opts {
		opt(a)
	}

	r := mux.NewRouter()

	// Public surface.
	r.HandleFunc("/", a.Health).Methods(http.MethodGet)
	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// Actors.
	r.Handle("/actors", a.requirePermission(a.listActors, auth.PermGetActors)).Methods(http.MethodGet)
	r.Handle("/actors", a.requirePermission(a.createActor, auth.PermPostActors)).Methods(http.MethodPost)
	r.Handle("/actors/{id:[0-9]+}", a.requirePermission(a.updateActor, auth.PermPatchActors)).Methods(http.MethodPatch)
	r.Handle("/actors/{id:[0-9]+}", a.requirePermission(a.deleteActor, auth.PermDeleteActors)).Methods(http.MethodDelete)

	// Movies.
	r.Handle("/movies", a.requirePermission(a.listMovies, auth.PermGetMovies)).Methods(http.MethodGet)
	r.Handle("/movies", a.requirePermission(a.createMovie, auth.PermPostMovies)).Methods(http.MethodPost)
	r.Handle("/movies/{id:[0-9]+}", a.requirePermission(a.updateMovie, auth.PermPatchMovies)).Methods(http.MethodPatch)
	r.Handle("/movies/{id:[0-9]+}", a.requirePermission(a.deleteMovie, auth.PermDeleteMovies)).Methods(http.MethodDelete)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	a.router = r
	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Service handlers ---

func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Casting Agency API is running",
	})
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "casting-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError emits the stable error body shape:
// {"success": false, "error": <status>, "message": <code-or-description>}.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   code,
		"message": msg,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func handleAgencyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, agency.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, agency.ErrNotFound):
		writeError(w, http.StatusNotFound, "resource not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
