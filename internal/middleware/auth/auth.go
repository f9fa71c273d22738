// Package auth resolves the session cookie into an account and gates
// routes by role. Two modes share one verification path: strict
// middleware fails the request, optional middleware degrades to
// anonymous.
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ndrozdov/postboard/internal/models"
	"github.com/ndrozdov/postboard/internal/repo"
	"github.com/ndrozdov/postboard/internal/token"
)

// AccessCookie is the session token cookie name.
const AccessCookie = "access_token"

const userContextKey = "current_user"

type Authenticator struct {
	Tokens   *token.Service
	Accounts *repo.AccountRepo
}

// resolve verifies the session cookie and re-checks the subject against
// the account store. A deleted account must not stay logged in on a
// still-valid token. Both middleware modes run exactly this logic.
func (a *Authenticator) resolve(c echo.Context) (*models.User, error) {
	ck, err := c.Cookie(AccessCookie)
	if err != nil {
		return nil, token.ErrMissing
	}
	claims, err := a.Tokens.Verify(ck.Value)
	if err != nil {
		return nil, err
	}
	user, err := a.Accounts.FindByUsername(c.Request().Context(), claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, token.ErrMalformed
	}
	return user, nil
}

// RequireLogin rejects unauthenticated requests with 401. Store errors
// surface as 500.
func (a *Authenticator) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := a.resolve(c)
		if err != nil {
			return httpErr(err, http.StatusUnauthorized, "authentication required")
		}
		c.Set(userContextKey, user)
		return next(c)
	}
}

// RequireRoles gates a route on a fixed role allow-list. Missing or
// invalid credentials answer 403 the same as an insufficient role.
func (a *Authenticator) RequireRoles(roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := a.resolve(c)
			if err != nil {
				return httpErr(err, http.StatusForbidden, "not enough permissions")
			}
			if _, ok := allowed[user.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "not enough permissions")
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

// OptionalUser resolves the session if present and valid, and continues
// anonymously otherwise. Store errors still fail the request.
func (a *Authenticator) OptionalUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := a.resolve(c)
		if err != nil && !isTokenError(err) {
			return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
		}
		if user != nil {
			c.Set(userContextKey, user)
		}
		return next(c)
	}
}

// CurrentUser returns the resolved account, or nil for anonymous.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}

func isTokenError(err error) bool {
	switch err {
	case token.ErrMissing, token.ErrExpired, token.ErrMalformed:
		return true
	}
	return false
}

// httpErr maps a resolve failure onto the route's rejection status,
// letting store failures through as 500.
func httpErr(err error, code int, msg string) error {
	if isTokenError(err) {
		return echo.NewHTTPError(code, msg)
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
