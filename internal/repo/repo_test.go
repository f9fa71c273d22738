package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ndrozdov/postboard/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared",
		strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Post{}, &models.MenuItem{}))
	return db
}

func TestAccountCreateConflict(t *testing.T) {
	db := newTestDB(t)
	repo := &AccountRepo{DB: db}
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "alice", "hash1", models.RoleUser))
	require.ErrorIs(t, repo.Create(ctx, "alice", "hash2", models.RoleManager), ErrConflict)

	user, err := repo.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "hash1", user.PasswordHash)
	require.Equal(t, models.RoleUser, user.Role)
}

func TestAccountFindMissing(t *testing.T) {
	db := newTestDB(t)
	repo := &AccountRepo{DB: db}

	user, err := repo.FindByUsername(context.Background(), "nobody")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestPostListVisibleOrdering(t *testing.T) {
	db := newTestDB(t)
	repo := &PostRepo{DB: db}
	ctx := context.Background()

	old := &models.Post{Title: "old", Body: "b", OwnerUsername: "alice", IsVisible: true}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, db.Model(old).Update("created_at", time.Now().Add(-time.Hour)).Error)

	require.NoError(t, repo.Create(ctx, &models.Post{Title: "new", Body: "b", OwnerUsername: "bob", IsVisible: true}))

	hidden := &models.Post{Title: "hidden", Body: "b", OwnerUsername: "alice", IsVisible: true}
	require.NoError(t, repo.Create(ctx, hidden))
	require.NoError(t, db.Model(hidden).Update("is_visible", false).Error)

	posts, err := repo.ListVisible(ctx)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	require.Equal(t, "new", posts[0].Title)
	require.Equal(t, "old", posts[1].Title)
}

func TestPostGetAndDelete(t *testing.T) {
	db := newTestDB(t)
	repo := &PostRepo{DB: db}
	ctx := context.Background()

	post := &models.Post{Title: "t", Body: "b", OwnerUsername: "alice", IsVisible: true}
	require.NoError(t, repo.Create(ctx, post))

	got, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "alice", got.OwnerUsername)

	require.NoError(t, repo.Delete(ctx, post.ID))

	got, err = repo.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Nil(t, got)
}
