package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"casting.org/internal/auth"
)

// Config carries the process-wide settings, read once at startup.
type Config struct {
	Addr string

	// DatabaseURL is optional; without it the service runs on the
	// in-memory roster (development, tests).
	DatabaseURL string

	// Identity provider settings. Domain and audience are mandatory:
	// without them no token can ever verify.
	Auth0Domain string
	APIAudience string
	Algorithms  []string

	JWKSTimeout time.Duration

	RateBurst     int
	RatePerSecond int
}

// Load reads configuration from the environment. A .env file is honored
// when present (development convenience, never required).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:          getenv("ADDR", ":8080"),
		DatabaseURL:   normalizeDSN(os.Getenv("DATABASE_URL")),
		Auth0Domain:   strings.TrimSpace(os.Getenv("AUTH0_DOMAIN")),
		APIAudience:   strings.TrimSpace(os.Getenv("API_AUDIENCE")),
		JWKSTimeout:   10 * time.Second,
		RateBurst:     getint("RATE_BURST", 20),
		RatePerSecond: getint("RATE_PER_SECOND", 10),
	}

	if cfg.Auth0Domain == "" {
		return nil, fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if cfg.APIAudience == "" {
		return nil, fmt.Errorf("API_AUDIENCE is required")
	}

	if raw := strings.TrimSpace(os.Getenv("JWKS_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid JWKS_TIMEOUT %q", raw)
		}
		cfg.JWKSTimeout = d
	}

	algs, err := parseAlgorithms(getenv("ALGORITHMS", auth.AlgRS256))
	if err != nil {
		return nil, err
	}
	cfg.Algorithms = algs

	return cfg, nil
}

// parseAlgorithms accepts the ALGORITHMS list but pins it to RS256: the
// provider signs asymmetrically and symmetric fallbacks are forbidden.
func parseAlgorithms(raw string) ([]string, error) {
	var algs []string
	for _, alg := range strings.Split(raw, ",") {
		alg = strings.TrimSpace(alg)
		if alg == "" {
			continue
		}
		if alg != auth.AlgRS256 {
			return nil, fmt.Errorf("unsupported signing algorithm %q: only %s is accepted", alg, auth.AlgRS256)
		}
		algs = append(algs, alg)
	}
	if len(algs) == 0 {
		return nil, fmt.Errorf("ALGORITHMS must include %s", auth.AlgRS256)
	}
	return algs, nil
}

// JWKSURL is the identity provider's published key-set endpoint.
func (c *Config) JWKSURL() string {
	return "https://" + c.Auth0Domain + "/.well-known/jwks.json"
}

// Issuer is the expected iss claim value.
func (c *Config) Issuer() string {
	return "https://" + c.Auth0Domain + "/"
}

// normalizeDSN rewrites legacy postgres:// schemes some platforms emit.
func normalizeDSN(dsn string) string {
	dsn = strings.TrimSpace(dsn)
	if strings.HasPrefix(dsn, "postgres://") {
		return "postgresql://" + strings.TrimPrefix(dsn, "postgres://")
	}
	return dsn
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getint(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return def
	}
	return v
}
