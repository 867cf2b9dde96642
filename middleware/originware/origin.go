package originware

import (
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

// Origin gating runs before any identity check: it accepts or rejects a
// request based on its declared origin alone. Unlike authentication
// failures, rejections here carry a diagnostic payload listing the
// allowed set, since this is a non-identity boundary.

const (
	headerOrigin           = "Origin"
	headerHost             = "Host"
	headerAllowOrigin      = "Access-Control-Allow-Origin"
	headerAllowMethods     = "Access-Control-Allow-Methods"
	headerAllowHeaders     = "Access-Control-Allow-Headers"
	headerAllowCredentials = "Access-Control-Allow-Credentials"
	headerMaxAge           = "Access-Control-Max-Age"
	headerVary             = "Vary"
)

// EnvDevelopment and EnvProduction key the allow-list.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	// Environment selects which allow-list entry applies.
	Environment string

	// AllowedOrigins maps environment name to exact origins, scheme
	// included, e.g. "https://app.example.com".
	AllowedOrigins map[string][]string

	// TrustedSuffixes accept requests whose origin host, or Host header
	// when no Origin was sent, ends in one of these suffixes.
	TrustedSuffixes []string

	// MaxAge is the preflight cache lifetime advertised to clients.
	MaxAge time.Duration

	AllowedMethods []string
	AllowedHeaders []string

	// Filter skips the gate entirely when it returns true.
	Filter func(router.Context) bool

	ErrorHandler router.ErrorHandler
}

func New(config ...Config) router.MiddlewareFunc {
	cfg := configDefault(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			origin := ctx.GetString(headerOrigin, "")
			host := ctx.GetString(headerHost, "")

			verdict := decide(cfg, origin, host)
			if !verdict.Allowed {
				return cfg.ErrorHandler(ctx, rejectionError(cfg, origin, verdict))
			}

			if verdict.Origin != "" {
				ctx.SetHeader(headerAllowOrigin, verdict.Origin)
				ctx.SetHeader(headerAllowCredentials, "true")
				ctx.SetHeader(headerVary, headerOrigin)
			}

			// Accepted preflights short-circuit with the cache lifetime.
			if ctx.Method() == "OPTIONS" {
				ctx.SetHeader(headerAllowMethods, strings.Join(cfg.AllowedMethods, ", "))
				ctx.SetHeader(headerAllowHeaders, strings.Join(cfg.AllowedHeaders, ", "))
				ctx.SetHeader(headerMaxAge, strconv.Itoa(int(cfg.MaxAge.Seconds())))
				return ctx.Status(router.StatusNoContent).SendString("")
			}

			return ctx.Next()
		}
	}
}

// Verdict is the outcome of the origin decision.
type Verdict struct {
	Allowed bool
	// Origin is the value to echo in Access-Control-Allow-Origin. Empty
	// for originless requests admitted via trusted suffix.
	Origin string
	Reason string
}

// decide applies the decision order: exact allow-list match, then
// trusted-suffix match with www-normalization. Requests without an
// Origin header (server-to-server or same-origin) are judged by their
// Host against the trusted suffixes.
func decide(cfg Config, origin, host string) Verdict {
	if origin == "" {
		if hostMatchesSuffix(host, cfg.TrustedSuffixes) {
			return Verdict{Allowed: true}
		}
		return Verdict{Reason: "no origin header and host is not trusted"}
	}

	allowed := cfg.AllowedOrigins[cfg.Environment]
	normalized := normalizeOrigin(origin)
	for _, candidate := range allowed {
		if strings.EqualFold(origin, candidate) || strings.EqualFold(normalized, normalizeOrigin(candidate)) {
			return Verdict{Allowed: true, Origin: origin}
		}
	}

	if hostMatchesSuffix(originHost(origin), cfg.TrustedSuffixes) {
		return Verdict{Allowed: true, Origin: origin}
	}

	return Verdict{Reason: "origin not in allow-list"}
}

// normalizeOrigin strips a leading "www." from the host so that
// "https://www.example.com" and "https://example.com" compare equal.
func normalizeOrigin(origin string) string {
	scheme, rest, found := strings.Cut(origin, "://")
	if !found {
		return strings.TrimPrefix(origin, "www.")
	}
	return scheme + "://" + strings.TrimPrefix(rest, "www.")
}

// originHost extracts the host part of an origin, dropping scheme and port.
func originHost(origin string) string {
	_, rest, found := strings.Cut(origin, "://")
	if !found {
		rest = origin
	}
	host, _, _ := strings.Cut(rest, ":")
	return host
}

func hostMatchesSuffix(host string, suffixes []string) bool {
	if host == "" {
		return false
	}
	host, _, _ = strings.Cut(host, ":")
	host = strings.TrimPrefix(strings.ToLower(host), "www.")

	for _, suffix := range suffixes {
		s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(suffix)), ".")
		if s == "" {
			continue
		}
		// Match on a label boundary only, so "example.com" never admits
		// "evil-example.com".
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func rejectionError(cfg Config, origin string, verdict Verdict) error {
	return errors.New("origin not allowed", errors.CategoryAuthz).
		WithTextCode("ORIGIN_NOT_ALLOWED").
		WithCode(errors.CodeForbidden).
		WithMetadata(map[string]any{
			"origin":           origin,
			"reason":           verdict.Reason,
			"environment":      cfg.Environment,
			"allowed_origins":  cfg.AllowedOrigins[cfg.Environment],
			"trusted_suffixes": cfg.TrustedSuffixes,
		})
}

func configDefault(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Environment == "" {
		cfg.Environment = EnvDevelopment
	}

	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = map[string][]string{
			EnvDevelopment: {
				"http://localhost:3000",
				"http://localhost:5173",
			},
		}
	}

	if cfg.MaxAge <= 0 {
		cfg.MaxAge = 12 * time.Hour
	}

	if len(cfg.AllowedMethods) == 0 {
		cfg.AllowedMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	}

	if len(cfg.AllowedHeaders) == 0 {
		cfg.AllowedHeaders = []string{"Authorization", "Content-Type"}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(ctx router.Context, err error) error {
			var richErr *errors.Error
			if !errors.As(err, &richErr) {
				return ctx.Status(router.StatusForbidden).SendString("origin not allowed")
			}
			return ctx.JSON(router.StatusForbidden, map[string]any{
				"error":   richErr.Message,
				"details": richErr.Metadata,
			})
		}
	}

	return cfg
}
