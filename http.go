package auth

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// HeaderRenewedAccessToken carries a freshly minted access token back to
// the client when authentication succeeded via the refresh path.
const HeaderRenewedAccessToken = "X-Renewed-Access-Token"

const (
	// AccountLocalsKey is where middleware stores the authenticated Account.
	AccountLocalsKey = "account"
	// ClaimsLocalsKey is where middleware stores the verified access claims.
	ClaimsLocalsKey = "claims"
)

const bearerScheme = "Bearer"

// RouteAuthenticator binds the SessionAuthenticator to HTTP transport:
// bearer header in, refresh cookie in/out, renewed-token header out.
type RouteAuthenticator struct {
	auth         *SessionAuthenticator
	cfg          Config
	Logger       Logger
	ErrorHandler router.ErrorHandler
}

// NewHTTPAuthenticator returns a new RouteAuthenticator
func NewHTTPAuthenticator(auth *SessionAuthenticator, cfg Config) *RouteAuthenticator {
	a := &RouteAuthenticator{
		auth:   auth,
		cfg:    cfg,
		Logger: defLogger{},
	}

	a.ErrorHandler = a.defaultErrHandler

	return a
}

// RegisterAuthRoutes mounts the credential endpoints on the given router.
func RegisterAuthRoutes[T any](app router.Router[T], a *RouteAuthenticator) {
	app.Post("/auth/login", a.Login).SetName("auth.login")
	app.Post("/auth/logout", a.Logout).SetName("auth.logout")
}

// Protected requires a valid principal. Access-only requests are served
// without touching the account ledger; refresh-path requests get a new
// access token in the response header and, when rotation fired, a new
// refresh cookie.
func (a *RouteAuthenticator) Protected() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			creds := a.credentialsFromContext(ctx)

			result, err := a.auth.Authenticate(ctx.Context(), creds)
			if err != nil {
				return a.handleRejection(ctx, err)
			}

			a.applySideChannels(ctx, creds, result)
			a.bindPrincipal(ctx, result)

			return ctx.Next()
		}
	}
}

// Optional authenticates when credentials are present and valid, and
// otherwise lets the request through with no principal bound.
func (a *RouteAuthenticator) Optional() router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			creds := a.credentialsFromContext(ctx)

			if result := a.auth.AuthenticateOptional(ctx.Context(), creds); result != nil {
				a.applySideChannels(ctx, creds, result)
				a.bindPrincipal(ctx, result)
			}

			return ctx.Next()
		}
	}
}

// RequireRole gates a route on the account's role, using the hierarchy.
// It must run after Protected.
func (a *RouteAuthenticator) RequireRole(role UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			account, _ := FromContext(ctx.Context())
			if err := RequireRole(account, role); err != nil {
				return a.ErrorHandler(ctx, err)
			}
			return ctx.Next()
		}
	}
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate checks the login payload before it hits bcrypt.
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Identifier, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Login verifies the payload and, on success, sets the refresh cookie
// and returns the access token in the body.
func (a *RouteAuthenticator) Login(ctx router.Context) error {
	payload := &LoginRequest{}
	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.ErrorHandler(ctx, errors.Wrap(err, errors.CategoryValidation, "invalid login payload").
			WithCode(errors.CodeBadRequest))
	}

	result, err := a.auth.Login(ctx.Context(), payload.Identifier, payload.Password)
	if err != nil {
		a.Logger.Info("login rejected", "identifier", payload.Identifier)
		return a.ErrorHandler(ctx, err)
	}

	a.setRefreshCookie(ctx, result.RefreshToken, result.RefreshExpiry)

	return ctx.JSON(router.StatusOK, map[string]any{
		"access_token": result.AccessToken,
		"expires_at":   result.AccessExpiry,
	})
}

// Logout revokes the presented refresh credential and clears the cookie.
// It succeeds even when the cookie is absent or unverifiable.
func (a *RouteAuthenticator) Logout(ctx router.Context) error {
	raw := ctx.Cookies(a.cfg.GetRefreshCookieName())

	if err := a.auth.Logout(ctx.Context(), raw); err != nil {
		a.Logger.Warn("logout revocation failed", "error", err)
	}

	a.clearRefreshCookie(ctx)

	return ctx.JSON(router.StatusOK, map[string]string{
		"status": "logged_out",
	})
}

func (a *RouteAuthenticator) credentialsFromContext(ctx router.Context) Credentials {
	creds := Credentials{
		RefreshToken: ctx.Cookies(a.cfg.GetRefreshCookieName()),
	}

	header := ctx.GetString(router.HeaderAuthorization, "")
	l := len(bearerScheme)
	if len(header) > l+1 && strings.EqualFold(header[:l], bearerScheme) {
		creds.AccessToken = strings.TrimSpace(header[l:])
	}

	return creds
}

func (a *RouteAuthenticator) applySideChannels(ctx router.Context, creds Credentials, result *AuthResult) {
	if result.Renewed(creds.AccessToken) {
		ctx.SetHeader(HeaderRenewedAccessToken, result.AccessToken)
	}

	if result.Rotated() {
		a.setRefreshCookie(ctx, result.RefreshToken, result.RefreshExpiry)
	}
}

func (a *RouteAuthenticator) bindPrincipal(ctx router.Context, result *AuthResult) {
	ctx.Locals(AccountLocalsKey, result.Account)

	stdCtx := WithContext(ctx.Context(), result.Account)
	if result.Claims != nil {
		ctx.Locals(ClaimsLocalsKey, result.Claims)
		stdCtx = WithClaimsContext(stdCtx, result.Claims)
	}
	ctx.SetContext(stdCtx)
}

func (a *RouteAuthenticator) handleRejection(ctx router.Context, err error) error {
	if ShouldClearRefreshCookie(err) {
		a.clearRefreshCookie(ctx)
	}
	return a.ErrorHandler(ctx, err)
}

func (a *RouteAuthenticator) setRefreshCookie(ctx router.Context, val string, expires time.Time) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetRefreshCookieName(),
		Value:    val,
		Path:     "/",
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *RouteAuthenticator) clearRefreshCookie(ctx router.Context) {
	ctx.Cookie(&router.Cookie{
		Name:     a.cfg.GetRefreshCookieName(),
		Value:    "",
		Path:     "/",
		Domain:   a.cfg.GetCookieDomain(),
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

// defaultErrHandler collapses every auth rejection into a generic
// unauthorized response. The specific reason stays in the logs.
func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Request rejected",
		"error", richErr.Message,
		"category", richErr.Category,
		"text_code", richErr.TextCode,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuthz:
		return c.JSON(router.StatusForbidden, map[string]string{
			"error": "Forbidden",
		})
	case errors.CategoryAuth:
		return c.JSON(router.StatusUnauthorized, map[string]string{
			"error": "Unauthorized",
		})
	case errors.CategoryValidation, errors.CategoryBadInput:
		return c.JSON(router.StatusBadRequest, map[string]string{
			"error": richErr.Message,
		})
	default:
		return c.JSON(router.StatusInternalServerError, map[string]string{
			"error": "Internal Server Error",
		})
	}
}
