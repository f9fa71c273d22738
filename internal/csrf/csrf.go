// Package csrf implements double-submit anti-forgery protection: a
// signed, time-limited token is delivered via cookie and response body,
// and mutating requests must resubmit it in the form body byte-equal to
// the cookie copy.
package csrf

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

const (
	CookieName = "csrf_token"
	FormField  = "csrf_token"
	HeaderName = "X-CSRF-Token"
)

// Guard signs and validates anti-forgery tokens. Tokens carry only an
// issuance timestamp, never identity.
type Guard struct {
	secret []byte
	window time.Duration
	secure bool
}

func NewGuard(secret []byte, window time.Duration, secure bool) *Guard {
	if window == 0 {
		window = time.Hour
	}
	return &Guard{secret: secret, window: window, secure: secure}
}

// Issue produces a fresh signed token valid for the guard's window.
func (g *Guard) Issue() (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(g.window)),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(g.secret)
}

// IssueInto generates a fresh token for a rendered page: sets the cookie
// and the response header, and returns the value for the body.
func (g *Guard) IssueInto(c echo.Context) (string, error) {
	tok, err := g.Issue()
	if err != nil {
		return "", err
	}
	c.SetCookie(g.cookie(tok, int(g.window.Seconds())))
	c.Response().Header().Set(HeaderName, tok)
	return tok, nil
}

// Validate implements the double-submit check: both copies present,
// byte-equal, and the token itself verifies as signed and fresh.
func (g *Guard) Validate(formToken, cookieToken string) bool {
	if formToken == "" || cookieToken == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(formToken), []byte(cookieToken)) != 1 {
		return false
	}
	return g.verify(formToken)
}

func (g *Guard) verify(raw string) bool {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signature method: %v", t.Header["alg"])
		}
		return g.secret, nil
	}, jwt.WithExpirationRequired())
	return err == nil && t.Valid
}

// Middleware gates a mutating route. It must run before authentication:
// a request with a bad anti-forgery pair is rejected without touching
// the session.
func (g *Guard) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			formToken := c.FormValue(FormField)
			cookieToken := ""
			if ck, err := c.Cookie(CookieName); err == nil {
				cookieToken = ck.Value
			}
			if !g.Validate(formToken, cookieToken) {
				return echo.NewHTTPError(http.StatusForbidden, "invalid CSRF token")
			}
			return next(c)
		}
	}
}

func (g *Guard) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
