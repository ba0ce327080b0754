package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chirpnet.io/chirp/internal/model"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"chirpnet.io/chirp/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, handle string) *model.User {
	t.Helper()
	user := &model.User{
		Handle:       handle,
		Email:        handle + "@chirp.test",
		PasswordHash: "x",
		DisplayName:  handle,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func newService(t *testing.T) (RelationshipService, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	svc := NewRelationshipService(db, relRepo.NewRelationshipRepository(db), userRepo.NewUserRepository(db), notifications)
	return svc, db
}

func TestToggleFollow(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	following, err := svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, following)

	isFollowing, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, isFollowing)

	var notifications []model.Notification
	require.NoError(t, db.Where("user_id = ?", bob.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, model.NotificationFollow, notifications[0].Type)
	require.Equal(t, alice.ID, *notifications[0].ActorID)

	following, err = svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, following)

	isFollowing, err = svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, isFollowing)
}

func TestToggleFollowSelf(t *testing.T) {
	svc, db := newService(t)
	alice := createUser(t, db, "alice")

	_, err := svc.ToggleFollow(context.Background(), alice.ID, alice.ID)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestToggleFollowUnknownTarget(t *testing.T) {
	svc, db := newService(t)
	alice := createUser(t, db, "alice")

	_, err := svc.ToggleFollow(context.Background(), alice.ID, uuid.New())
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestToggleFollowBlocked(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	blocked, err := svc.ToggleBlock(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, blocked)

	_, err = svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestToggleBlockSeversFollows(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	_, err := svc.ToggleFollow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	_, err = svc.ToggleFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	blocked, err := svc.ToggleBlock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, blocked)

	for _, pair := range [][2]uuid.UUID{{alice.ID, bob.ID}, {bob.ID, alice.ID}} {
		following, err := svc.IsFollowing(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.False(t, following)
	}

	// Unblocking does not restore the severed follows.
	blocked, err = svc.ToggleBlock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, blocked)

	following, err := svc.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, following)
}

func TestToggleMute(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	muted, err := svc.ToggleMute(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, muted)

	// Muting is invisible to the target: follows keep working.
	following, err := svc.ToggleFollow(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, following)

	muted, err = svc.ToggleMute(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, muted)

	var count int64
	require.NoError(t, db.Model(&model.Mute{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestCanView(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")

	post := &model.Post{UserID: alice.ID, Content: "hello"}
	require.NoError(t, db.Create(post).Error)

	canView, err := svc.CanView(ctx, nil, post)
	require.NoError(t, err)
	require.True(t, canView)

	canView, err = svc.CanView(ctx, &bob.ID, post)
	require.NoError(t, err)
	require.True(t, canView)

	_, err = svc.ToggleBlock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	canView, err = svc.CanView(ctx, &bob.ID, post)
	require.NoError(t, err)
	require.False(t, canView)

	// The author always sees their own post, block or not.
	canView, err = svc.CanView(ctx, &alice.ID, post)
	require.NoError(t, err)
	require.True(t, canView)

	post.IsDeleted = true
	canView, err = svc.CanView(ctx, &alice.ID, post)
	require.NoError(t, err)
	require.False(t, canView)

	canView, err = svc.CanView(ctx, nil, nil)
	require.NoError(t, err)
	require.False(t, canView)
}
