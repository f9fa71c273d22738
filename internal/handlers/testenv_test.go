package handlers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/config"
	"github.com/ndrozdov/postboard/internal/csrf"
	"github.com/ndrozdov/postboard/internal/handlers"
	"github.com/ndrozdov/postboard/internal/hash"
	"github.com/ndrozdov/postboard/internal/httpserver"
	authmw "github.com/ndrozdov/postboard/internal/middleware/auth"
	"github.com/ndrozdov/postboard/internal/models"
	"github.com/ndrozdov/postboard/internal/repo"
	"github.com/ndrozdov/postboard/internal/token"
)

var testSecret = []byte("test-secret")

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	Tokens *token.Service
	Guard  *csrf.Guard
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db))

	tokens := token.NewService(testSecret, time.Hour)
	guard := csrf.NewGuard(testSecret, time.Hour, false)
	accounts := &repo.AccountRepo{DB: db}
	posts := &repo.PostRepo{DB: db}

	e := echo.New()
	httpserver.Register(e, &httpserver.Deps{
		DB: db,
		AuthHandler: &handlers.AuthHandler{
			Accounts: accounts,
			Tokens:   tokens,
			Guard:    guard,
		},
		PostHandler: &handlers.PostHandler{
			Posts: posts,
			Guard: guard,
		},
		SearchHandler: &handlers.SearchHandler{Index: "posts"},
		Guard:         guard,
		Authn:         &authmw.Authenticator{Tokens: tokens, Accounts: accounts},
	})

	return &testEnv{T: t, E: e, DB: db, Tokens: tokens, Guard: guard}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.E.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return env.do(req)
}

// postForm submits a mutating request with a valid CSRF pair attached.
func (env *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	tok, csrfCookie := env.csrfPair()
	if form == nil {
		form = url.Values{}
	}
	form.Set(csrf.FormField, tok)
	return env.do(env.rawFormRequest(path, form, append(cookies, csrfCookie)...))
}

func (env *testEnv) rawFormRequest(path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	return req
}

func (env *testEnv) csrfPair() (string, *http.Cookie) {
	tok, err := env.Guard.Issue()
	require.NoError(env.T, err)
	return tok, &http.Cookie{Name: csrf.CookieName, Value: tok}
}

func (env *testEnv) createUser(username, password string, role models.Role) *models.User {
	env.T.Helper()
	h, err := hash.HashPassword(password)
	require.NoError(env.T, err)
	user := &models.User{Username: username, PasswordHash: h, Role: role}
	require.NoError(env.T, env.DB.Create(user).Error)
	return user
}

// sessionFor creates the account and returns a valid session cookie.
func (env *testEnv) sessionFor(username string, role models.Role) *http.Cookie {
	env.T.Helper()
	env.createUser(username, "password", role)
	return env.sessionCookie(username, role)
}

func (env *testEnv) sessionCookie(username string, role models.Role) *http.Cookie {
	env.T.Helper()
	tok, err := env.Tokens.Issue(username, role)
	require.NoError(env.T, err)
	return &http.Cookie{Name: authmw.AccessCookie, Value: tok}
}

func (env *testEnv) createPost(owner, title string) *models.Post {
	env.T.Helper()
	post := &models.Post{
		Title:         title,
		Body:          "body of " + title,
		OwnerUsername: owner,
		IsVisible:     true,
	}
	require.NoError(env.T, env.DB.Create(post).Error)
	return post
}

func (env *testEnv) postCount() int64 {
	var count int64
	require.NoError(env.T, env.DB.Model(&models.Post{}).Count(&count).Error)
	return count
}

func responseCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}
