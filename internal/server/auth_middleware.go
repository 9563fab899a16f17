package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"PageVault/internal/config"
	"PageVault/internal/ports"
)

const identityContextKey = "pagevaultIdentity"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// sessionClaims are the JWT claims issued by the external auth provider.
type sessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// AuthMiddleware resolves the caller's identity from request credentials
// and rejects unauthenticated access to protected operations.
type AuthMiddleware struct {
	secret   []byte
	issuer   string
	audience string
	loginURL string
	logger   *slog.Logger
}

// NewAuthMiddleware creates the bearer-token verification middleware.
func NewAuthMiddleware(cfg config.AuthConfig, logger *slog.Logger) *AuthMiddleware {
	if cfg.TokenSecret == "" && logger != nil {
		logger.Warn("AUTH_TOKEN_SECRET not set, all requests will be rejected")
	}

	return &AuthMiddleware{
		secret:   []byte(cfg.TokenSecret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		loginURL: cfg.LoginURL,
		logger:   logger,
	}
}

// RequireAuth verifies the bearer token and injects the resolved identity
// into the request context. Browser clients are redirected to the login
// flow; API clients receive 401.
func (m *AuthMiddleware) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, err := m.resolve(c.Request())
			if err != nil {
				if m.logger != nil && !errors.Is(err, errMissingToken) {
					m.logger.Debug("auth rejected", "path", c.Path(), "error", err)
				}
				if wantsHTML(c.Request()) {
					return c.Redirect(http.StatusFound, m.loginURL)
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			c.Set(identityContextKey, identity)
			return next(c)
		}
	}
}

func (m *AuthMiddleware) resolve(r *http.Request) (ports.Identity, error) {
	header := r.Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ports.Identity{}, errMissingToken
	}
	raw := strings.TrimPrefix(header, "Bearer ")

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.issuer != "" {
		options = append(options, jwt.WithIssuer(m.issuer))
	}
	if m.audience != "" {
		options = append(options, jwt.WithAudience(m.audience))
	}

	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if len(m.secret) == 0 {
			return nil, errors.New("token secret not configured")
		}
		return m.secret, nil
	}, options...)
	if err != nil || !token.Valid {
		return ports.Identity{}, errInvalidToken
	}

	if claims.Subject == "" {
		return ports.Identity{}, errInvalidToken
	}

	return ports.Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// identityFrom returns the authenticated caller stored by RequireAuth.
func identityFrom(c echo.Context) (ports.Identity, bool) {
	identity, ok := c.Get(identityContextKey).(ports.Identity)
	return identity, ok
}

func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
