package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ndrozdov/postboard/internal/csrf"
	"github.com/ndrozdov/postboard/internal/hash"
	authmw "github.com/ndrozdov/postboard/internal/middleware/auth"
	"github.com/ndrozdov/postboard/internal/models"
	"github.com/ndrozdov/postboard/internal/mykafka"
	"github.com/ndrozdov/postboard/internal/repo"
	"github.com/ndrozdov/postboard/internal/token"
)

// Form length limits carried by the registration and post forms.
const (
	maxCredentialLen = 50
	maxTitleLen      = 50
	maxBodyLen       = 1000
)

type AuthHandler struct {
	Accounts *repo.AccountRepo
	Tokens   *token.Service
	Guard    *csrf.Guard
	Producer *mykafka.Producer
	Secure   bool
}

func CreateCookie(name, value, path string, expTime time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expTime,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

// ShowRegister renders the registration page payload: a fresh CSRF
// token (also set as cookie) and the current user, if any.
func (h *AuthHandler) ShowRegister(c echo.Context) error {
	return h.showForm(c)
}

func (h *AuthHandler) ShowLogin(c echo.Context) error {
	return h.showForm(c)
}

func (h *AuthHandler) showForm(c echo.Context) error {
	tok, err := h.Guard.IssueInto(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"csrf_token": tok,
		"user":       authmw.CurrentUser(c),
	})
}

func (h *AuthHandler) Register(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")
	if username == "" || password == "" ||
		len(username) > maxCredentialLen || len(password) > maxCredentialLen {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid username or password")
	}

	passwordHash, err := hash.HashPassword(password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	err = h.Accounts.Create(c.Request().Context(), username, passwordHash, models.RoleUser)
	if errors.Is(err, repo.ErrConflict) {
		return echo.NewHTTPError(http.StatusBadRequest, "user already exists")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	h.publish(c, username, map[string]interface{}{
		"type":     "user_registered",
		"username": username,
	})

	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) Login(c echo.Context) error {
	username := c.FormValue("username")
	password := c.FormValue("password")

	user, err := h.Accounts.FindByUsername(c.Request().Context(), username)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if user == nil || !hash.CheckPassword(user.PasswordHash, password) {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	accessExp := time.Now().Add(h.Tokens.TTL())
	accessToken, err := h.Tokens.Issue(user.Username, user.Role)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create access token")
	}

	c.SetCookie(CreateCookie(authmw.AccessCookie, accessToken, "/", accessExp, h.Secure))

	h.publish(c, username, map[string]interface{}{
		"type":     "user_logged_in",
		"username": username,
	})

	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AuthHandler) Logout(c echo.Context) error {
	expired := time.Now().Add(-1 * time.Hour)
	c.SetCookie(CreateCookie(authmw.AccessCookie, "", "/", expired, h.Secure))
	return c.Redirect(http.StatusSeeOther, "/")
}
