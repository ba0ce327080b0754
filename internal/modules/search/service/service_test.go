package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chirpnet.io/chirp/internal/model"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Without a search backend configured the service answers from SQL. The
// meilisearch path needs a live server and is covered by integration runs.
func newTestService(t *testing.T) (SearchService, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	svc := NewSearchService(nil, postRepo.NewPostRepository(db), userRepo.NewUserRepository(db))
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, handle, displayName string) *model.User {
	t.Helper()
	user := &model.User{
		Handle:       handle,
		Email:        handle + "@chirp.test",
		PasswordHash: "x",
		DisplayName:  displayName,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSearchPostsFallback(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice", "Alice")

	match := &model.Post{UserID: alice.ID, Content: "Deploying the new Gopher build"}
	other := &model.Post{UserID: alice.ID, Content: "unrelated chatter"}
	deleted := &model.Post{UserID: alice.ID, Content: "gopher but gone", IsDeleted: true}
	require.NoError(t, db.Create(match).Error)
	require.NoError(t, db.Create(other).Error)
	require.NoError(t, db.Create(deleted).Error)

	results, err := svc.SearchPosts(ctx, "gopher", 20, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, match.ID, results[0].ID)
}

func TestSearchUsers(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	createUser(t, db, "gopherfan", "Fan")
	createUser(t, db, "other", "Gopher Lover")
	createUser(t, db, "nobody", "Nobody")

	results, err := svc.SearchUsers(ctx, "gopher", 20, 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
}

func TestSearchHashtags(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()
	require.NoError(t, db.Create(&model.Hashtag{Tag: "golang", PostCount: 3}).Error)
	require.NoError(t, db.Create(&model.Hashtag{Tag: "gopher", PostCount: 1}).Error)
	require.NoError(t, db.Create(&model.Hashtag{Tag: "rustlang", PostCount: 5}).Error)

	results, err := svc.SearchHashtags(ctx, "go", 20)
	require.NoError(t, err)
	require.Len(t, results, 2)
	// Busiest tag first.
	require.Equal(t, "golang", results[0].Tag)
}
