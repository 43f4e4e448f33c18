package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated account behind a request.
type Principal struct {
	ID         uuid.UUID
	Email      string
	Role       string
	Privileged bool
	TokenID    string
	ExpiresAt  time.Time
}

// ErrSubjectNotFound is returned by a Resolver when the token's account is gone.
var ErrSubjectNotFound = errors.New("subject not found")

// Resolver loads the current state of a token's subject.
type Resolver interface {
	ResolvePrincipal(ctx context.Context, id uuid.UUID, role string) (*Principal, error)
}

// Authenticate verifies the bearer token, rejects revoked tokens, and
// resolves the subject against the account store. A deleted subject is
// treated as an invalid token.
func Authenticate(tokens *TokenService, resolver Resolver, revoked RevocationStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims, err := tokens.Verify(strings.TrimSpace(parts[1]))
			if err != nil {
				if errors.Is(err, ErrExpiredToken) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			ctx := c.Request().Context()
			if revoked != nil && claims.ID != "" {
				isRevoked, err := revoked.IsRevoked(ctx, claims.ID)
				if err != nil {
					return err
				}
				if isRevoked {
					return echo.NewHTTPError(http.StatusUnauthorized, "token revoked")
				}
			}

			id, _ := claims.SubjectID()
			p, err := resolver.ResolvePrincipal(ctx, id, claims.Role)
			if err != nil {
				if errors.Is(err, ErrSubjectNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "account no longer exists")
				}
				return err
			}
			p.TokenID = claims.ID
			if claims.ExpiresAt != nil {
				p.ExpiresAt = claims.ExpiresAt.Time
			}

			c.Set("account_id", p.ID.String())
			c.SetRequest(c.Request().WithContext(WithPrincipal(ctx, p)))
			return next(c)
		}
	}
}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, or nil.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}

// AccountIDFromContext returns the authenticated account id, or uuid.Nil.
func AccountIDFromContext(ctx context.Context) uuid.UUID {
	if p := PrincipalFromContext(ctx); p != nil {
		return p.ID
	}
	return uuid.Nil
}

// SignOutHandler revokes the token used for the current request.
func SignOutHandler(revoked RevocationStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		p := PrincipalFromContext(c.Request().Context())
		if p == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
		}
		if p.TokenID != "" {
			if err := revoked.Revoke(c.Request().Context(), p.TokenID, p.ExpiresAt); err != nil {
				return err
			}
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Signed out successfully"})
	}
}
