package auth

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"smartdocs/internal/errors"
	"smartdocs/internal/model"
	"smartdocs/internal/policy"
)

const (
	claimsContextKey = "claims"
	userContextKey   = "current_user"
)

// UserLoader returns the current state of an active user.
// It returns errors.ErrUserNotFound or errors.ErrAccountInactive when the user may not authenticate.
type UserLoader interface {
	LoadActive(ctx context.Context, id uuid.UUID) (*model.User, error)
}

// Middleware authenticates bearer access tokens. A request passes when the
// token verifies, its id is not blacklisted and its user still exists and is
// active. The loaded user is stored on the context; see CurrentUser and Caller.
func Middleware(jwtService *JWTService, tokens TokenStoreInterface, users UserLoader) echo.MiddlewareFunc {
	verify := echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsContextKey,
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return jwtService.ValidateAccessToken(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing or invalid access token",
				Code:  errors.ErrInvalidToken.Code,
			})
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return verify(func(c echo.Context) error {
			claims, ok := c.Get(claimsContextKey).(*Claims)
			if !ok {
				return unauthorized("missing or invalid access token")
			}
			ctx := c.Request().Context()

			revoked, err := tokens.IsAccessTokenBlacklisted(ctx, claims.ID)
			if err == nil && revoked {
				return unauthorized("token has been revoked")
			}

			id, err := uuid.Parse(claims.UserID)
			if err != nil {
				return unauthorized("missing or invalid access token")
			}
			user, err := users.LoadActive(ctx, id)
			if err != nil {
				if stderrors.Is(err, errors.ErrUserNotFound) {
					return unauthorized("user no longer exists")
				}
				return httpError(err)
			}

			c.Set(userContextKey, user)
			return next(c)
		})
	}
}

// CurrentUser returns the user loaded by Middleware.
func CurrentUser(c echo.Context) (*model.User, bool) {
	u, ok := c.Get(userContextKey).(*model.User)
	return u, ok && u != nil
}

// CurrentClaims returns the verified token claims.
func CurrentClaims(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(claimsContextKey).(*Claims)
	return claims, ok && claims != nil
}

// Caller builds the policy principal for the authenticated user.
// Role and department come from the stored user, not from the token.
func Caller(c echo.Context) (policy.Caller, bool) {
	u, ok := CurrentUser(c)
	if !ok {
		return policy.Caller{}, false
	}
	return CallerOf(u), true
}

// CallerOf converts a user into a policy principal.
func CallerOf(u *model.User) policy.Caller {
	return policy.Caller{
		ID:         u.ID,
		Role:       u.Role,
		Department: u.DepartmentName(),
		FullName:   u.FullName,
	}
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	header = strings.TrimSpace(header)
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return header
}

func unauthorized(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
		Error: msg,
		Code:  errors.ErrInvalidToken.Code,
	})
}

func httpError(err error) *echo.HTTPError {
	he := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(he.StatusCode, he.ToErrorResponse())
}
