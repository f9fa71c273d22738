package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/csrf"
	"github.com/ndrozdov/postboard/internal/handlers"
	authmw "github.com/ndrozdov/postboard/internal/middleware/auth"
	"github.com/ndrozdov/postboard/internal/models"
)

type Deps struct {
	DB            *gorm.DB
	AuthHandler   *handlers.AuthHandler
	PostHandler   *handlers.PostHandler
	SearchHandler *handlers.SearchHandler
	Guard         *csrf.Guard
	Authn         *authmw.Authenticator
}

// Register wires the route table. Mutating routes run the CSRF check
// before any authentication; role allow-lists are fixed here.
func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = errorHandler

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	guard := d.Guard.Middleware()
	anyRole := d.Authn.RequireRoles(models.RoleUser, models.RoleManager, models.RoleAdmin)
	adminOnly := d.Authn.RequireRoles(models.RoleAdmin)
	managerOnly := d.Authn.RequireRoles(models.RoleManager)

	e.GET("/register", d.AuthHandler.ShowRegister, d.Authn.OptionalUser)
	e.POST("/register", d.AuthHandler.Register, guard)
	e.GET("/login", d.AuthHandler.ShowLogin, d.Authn.OptionalUser)
	e.POST("/login", d.AuthHandler.Login, guard)
	e.POST("/logout", d.AuthHandler.Logout, guard, d.Authn.RequireLogin)

	e.GET("/", d.PostHandler.Index, d.Authn.OptionalUser)
	e.GET("/post/:id", d.PostHandler.Show, d.Authn.OptionalUser)
	e.GET("/search", d.SearchHandler.Search)

	e.GET("/add_post", d.PostHandler.ShowAddPost, anyRole)
	e.POST("/add_post", d.PostHandler.AddPost, guard, anyRole)

	e.GET("/admin/tools", d.PostHandler.AdminTools, adminOnly)
	e.GET("/manager/tools", d.PostHandler.ManagerTools, managerOnly)

	e.POST("/admin/delete_post/:id", d.PostHandler.DeleteAsAdmin, guard, adminOnly)
	e.POST("/manager/delete_post/:id", d.PostHandler.DeleteAsManager, guard, managerOnly)
	e.POST("/user/delete_post/:id", d.PostHandler.DeleteAsOwner, guard, d.Authn.RequireLogin)
}

// errorHandler renders every failure as a generic {status, error} body.
// Internal detail stays in the logs.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	msg := "internal error"
	if he, ok := err.(*echo.HTTPError); ok {
		code = he.Code
		if s, ok := he.Message.(string); ok {
			msg = s
		} else {
			msg = http.StatusText(code)
		}
	}

	if jsonErr := c.JSON(code, echo.Map{"status": code, "error": msg}); jsonErr != nil {
		c.Logger().Errorf("error handler failed: %v", jsonErr)
	}
}
