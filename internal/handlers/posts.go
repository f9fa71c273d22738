package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/ndrozdov/postboard/internal/csrf"
	"github.com/ndrozdov/postboard/internal/logging"
	authmw "github.com/ndrozdov/postboard/internal/middleware/auth"
	"github.com/ndrozdov/postboard/internal/models"
	"github.com/ndrozdov/postboard/internal/mykafka"
	"github.com/ndrozdov/postboard/internal/repo"
	"github.com/ndrozdov/postboard/internal/service/search"
)

type PostHandler struct {
	Posts    *repo.PostRepo
	Guard    *csrf.Guard
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func (h *PostHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "post_events", key, event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *PostHandler) indexPost(c echo.Context, post *models.Post) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	if err := search.IndexPost(ctx, h.ES, h.ESIndex, post); err != nil {
		logging.FromContext(ctx).Warn("post indexing failed", "post_id", post.ID, "error", err)
	}
}

func (h *PostHandler) unindexPost(c echo.Context, id uint) {
	if h.ES == nil {
		return
	}
	ctx := c.Request().Context()
	if err := search.RemovePost(ctx, h.ES, h.ESIndex, id); err != nil {
		logging.FromContext(ctx).Warn("post unindexing failed", "post_id", id, "error", err)
	}
}

func postID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid post id")
	}
	return uint(id), nil
}

// Index lists visible posts newest first, with the main menu. The page
// personalizes if a valid session is present but never requires one.
func (h *PostHandler) Index(c echo.Context) error {
	ctx := c.Request().Context()

	menu, err := h.Posts.ListMenu(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	posts, err := h.Posts.ListVisible(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"menu":  menu,
		"posts": posts,
		"user":  authmw.CurrentUser(c),
	})
}

func (h *PostHandler) Show(c echo.Context) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	post, err := h.Posts.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if post == nil {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}

	tok, err := h.Guard.IssueInto(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"post":       post,
		"user":       authmw.CurrentUser(c),
		"csrf_token": tok,
	})
}

func (h *PostHandler) ShowAddPost(c echo.Context) error {
	tok, err := h.Guard.IssueInto(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"user":       authmw.CurrentUser(c),
		"csrf_token": tok,
	})
}

func (h *PostHandler) AddPost(c echo.Context) error {
	title := c.FormValue("title")
	body := c.FormValue("body")
	if title == "" || body == "" || len(title) > maxTitleLen || len(body) > maxBodyLen {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid post fields")
	}

	user := authmw.CurrentUser(c)
	post := models.Post{
		Title:         title,
		Body:          body,
		OwnerUsername: user.Username,
		IsVisible:     true,
	}
	if err := h.Posts.Create(c.Request().Context(), &post); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to add post")
	}

	h.publish(c, user.Username, map[string]interface{}{
		"type":    "post_created",
		"post_id": post.ID,
		"owner":   post.OwnerUsername,
	})
	h.indexPost(c, &post)

	return c.Redirect(http.StatusSeeOther, "/")
}

// AdminTools and ManagerTools render the moderation listings. The role
// gate is applied in the route table.
func (h *PostHandler) AdminTools(c echo.Context) error {
	return h.tools(c)
}

func (h *PostHandler) ManagerTools(c echo.Context) error {
	return h.tools(c)
}

func (h *PostHandler) tools(c echo.Context) error {
	posts, err := h.Posts.ListVisible(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	tok, err := h.Guard.IssueInto(c)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create CSRF token")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"posts":      posts,
		"user":       authmw.CurrentUser(c),
		"csrf_token": tok,
	})
}

// DeleteAsAdmin removes any post.
func (h *PostHandler) DeleteAsAdmin(c echo.Context) error {
	if err := h.deletePost(c, nil); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/admin/tools")
}

// DeleteAsManager removes any post except those owned by the admin
// account. Managers outrank users but not the superuser.
func (h *PostHandler) DeleteAsManager(c echo.Context) error {
	check := func(post *models.Post) error {
		if post.OwnerUsername == models.AdminUsername {
			return echo.NewHTTPError(http.StatusForbidden, "managers cannot delete posts created by admins")
		}
		return nil
	}
	if err := h.deletePost(c, check); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/manager/tools")
}

// DeleteAsOwner removes a post only when the acting account owns it.
func (h *PostHandler) DeleteAsOwner(c echo.Context) error {
	user := authmw.CurrentUser(c)
	check := func(post *models.Post) error {
		if post.OwnerUsername != user.Username {
			return echo.NewHTTPError(http.StatusForbidden, "users can only delete their own posts")
		}
		return nil
	}
	if err := h.deletePost(c, check); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *PostHandler) deletePost(c echo.Context, check func(*models.Post) error) error {
	id, err := postID(c)
	if err != nil {
		return err
	}

	post, err := h.Posts.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
	if post == nil {
		return echo.NewHTTPError(http.StatusNotFound, "post not found")
	}
	if check != nil {
		if err := check(post); err != nil {
			return err
		}
	}

	if err := h.Posts.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete post")
	}

	h.publish(c, fmt.Sprint(id), map[string]interface{}{
		"type":    "post_deleted",
		"post_id": id,
		"owner":   post.OwnerUsername,
	})
	h.unindexPost(c, id)

	return nil
}
