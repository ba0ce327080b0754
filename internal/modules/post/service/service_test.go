package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chirpnet.io/chirp/internal/model"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	"chirpnet.io/chirp/internal/modules/post/dto"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	searchService "chirpnet.io/chirp/internal/modules/search/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"chirpnet.io/chirp/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	posts         PostService
	relationships relService.RelationshipService
}

func newTestEnv(t *testing.T, editWindow time.Duration) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	users := userRepo.NewUserRepository(db)
	posts := postRepo.NewPostRepository(db)
	polls := pollRepo.NewPollRepository(db)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	relationships := relService.NewRelationshipService(db, relRepo.NewRelationshipRepository(db), users, notifications)
	aggregator := interactionService.NewAggregator(interactionRepo.NewInteractionRepository(db), posts, noteRepo.NewNoteRepository(db), polls, nil)
	search := searchService.NewSearchService(nil, posts, users)

	return &testEnv{
		db:            db,
		posts:         NewPostService(db, posts, polls, users, relationships, notifications, aggregator, search, editWindow),
		relationships: relationships,
	}
}

func (e *testEnv) createUser(t *testing.T, handle string) *model.User {
	t.Helper()
	user := &model.User{
		Handle:       handle,
		Email:        handle + "@chirp.test",
		PasswordHash: "x",
		DisplayName:  handle,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	resp, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{
		Content: "shipping with @bob, tracked under #Launch and #launch",
	})
	require.NoError(t, err)
	require.Equal(t, alice.ID, resp.Author.ID)
	require.False(t, resp.IsEdited)

	var hashtag model.Hashtag
	require.NoError(t, env.db.Where("tag = ?", "launch").First(&hashtag).Error)
	require.Equal(t, 1, hashtag.PostCount)

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", bob.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, model.NotificationMention, notifications[0].Type)
	require.Equal(t, resp.ID, *notifications[0].PostID)

	// A second post with the same tag bumps the registry counter.
	_, err = env.posts.CreatePost(ctx, bob.ID, dto.CreatePostRequest{Content: "me too #launch"})
	require.NoError(t, err)
	require.NoError(t, env.db.Where("tag = ?", "launch").First(&hashtag).Error)
	require.Equal(t, 2, hashtag.PostCount)
}

func TestCreatePostValidation(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	_, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "   "})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: strings.Repeat("a", model.MaxPostLength+1)})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{
		Content: "pick one",
		Poll:    &dto.CreatePollRequest{Options: []string{"only"}},
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestCreatePostWithPoll(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	resp, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{
		Content: "tabs or spaces?",
		Poll:    &dto.CreatePollRequest{Options: []string{"tabs", "spaces"}, DurationHours: 48},
	})
	require.NoError(t, err)
	require.NotNil(t, resp.Poll)
	require.Equal(t, []string{"tabs", "spaces"}, resp.Poll.Options)
	require.Zero(t, resp.Poll.TotalVotes)
	require.WithinDuration(t, time.Now().Add(48*time.Hour), resp.Poll.ExpiresAt, time.Minute)
}

func TestCreateQuotePost(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	original, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "hot take"})
	require.NoError(t, err)

	quote, err := env.posts.CreatePost(ctx, bob.ID, dto.CreatePostRequest{
		Content: "counterpoint",
		QuoteID: &original.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, quote.QuotedPost)
	require.Equal(t, original.ID, quote.QuotedPost.ID)
	require.Equal(t, "hot take", quote.QuotedPost.Content)
}

func TestCreateQuoteOfHiddenPost(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	original, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "hot take"})
	require.NoError(t, err)

	_, err = env.relationships.ToggleBlock(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = env.posts.CreatePost(ctx, bob.ID, dto.CreatePostRequest{
		Content: "counterpoint",
		QuoteID: &original.ID,
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReply(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	parent, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "thoughts?"})
	require.NoError(t, err)

	// Mentioning the parent author must not double-notify them.
	reply, err := env.posts.Reply(ctx, bob.ID, parent.ID, "agreed @alice")
	require.NoError(t, err)
	require.Equal(t, parent.ID, *reply.ParentID)

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", alice.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, model.NotificationReply, notifications[0].Type)

	refreshed, err := env.posts.GetPost(ctx, &alice.ID, parent.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, refreshed.ReplyCount)
}

func TestEditPost(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	post, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "first draft"})
	require.NoError(t, err)

	edited, err := env.posts.EditPost(ctx, alice.ID, post.ID, "second draft")
	require.NoError(t, err)
	require.True(t, edited.IsEdited)
	require.Equal(t, "second draft", edited.Content)

	history, err := env.posts.GetEditHistory(ctx, &alice.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, history.History, 1)
	require.Equal(t, "first draft", history.History[0].Content)

	_, err = env.posts.EditPost(ctx, alice.ID, post.ID, "third draft")
	require.NoError(t, err)
	history, err = env.posts.GetEditHistory(ctx, &alice.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, history.History, 2)
}

func TestEditPostWindowClosed(t *testing.T) {
	env := newTestEnv(t, time.Nanosecond)
	ctx := context.Background()
	alice := env.createUser(t, "alice")

	post, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "too late"})
	require.NoError(t, err)

	time.Sleep(time.Millisecond)
	_, err = env.posts.EditPost(ctx, alice.ID, post.ID, "rewrite")
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestEditPostOnlyAuthor(t *testing.T) {
	env := newTestEnv(t, time.Minute)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	post, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "mine"})
	require.NoError(t, err)

	_, err = env.posts.EditPost(ctx, bob.ID, post.ID, "hijacked")
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestToggleRepost(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	original, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "boost me"})
	require.NoError(t, err)

	reposted, err := env.posts.ToggleRepost(ctx, bob.ID, original.ID)
	require.NoError(t, err)
	require.True(t, reposted)

	var repost model.Post
	require.NoError(t, env.db.Where("user_id = ? AND repost_id = ?", bob.ID, original.ID).First(&repost).Error)
	require.Empty(t, repost.Content)

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ? AND type = ?", alice.ID, model.NotificationRepost).Find(&notifications).Error)
	require.Len(t, notifications, 1)

	refreshed, err := env.posts.GetPost(ctx, &bob.ID, original.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, refreshed.RepostCount)

	// Toggling again removes the repost row entirely.
	reposted, err = env.posts.ToggleRepost(ctx, bob.ID, original.ID)
	require.NoError(t, err)
	require.False(t, reposted)

	var count int64
	require.NoError(t, env.db.Model(&model.Post{}).Where("repost_id = ?", original.ID).Count(&count).Error)
	require.Zero(t, count)
}

func TestRepostOfRepostTargetsOriginal(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	original, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "origin"})
	require.NoError(t, err)

	_, err = env.posts.ToggleRepost(ctx, bob.ID, original.ID)
	require.NoError(t, err)

	var bobRepost model.Post
	require.NoError(t, env.db.Where("user_id = ? AND repost_id = ?", bob.ID, original.ID).First(&bobRepost).Error)

	reposted, err := env.posts.ToggleRepost(ctx, carol.ID, bobRepost.ID)
	require.NoError(t, err)
	require.True(t, reposted)

	var carolRepost model.Post
	require.NoError(t, env.db.Where("user_id = ?", carol.ID).First(&carolRepost).Error)
	require.Equal(t, original.ID, *carolRepost.RepostID)
}

func TestTogglePin(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	first, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "one"})
	require.NoError(t, err)
	second, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "two"})
	require.NoError(t, err)

	pinned, err := env.posts.TogglePin(ctx, alice.ID, first.ID)
	require.NoError(t, err)
	require.True(t, pinned)

	// Pinning another post displaces the first.
	pinned, err = env.posts.TogglePin(ctx, alice.ID, second.ID)
	require.NoError(t, err)
	require.True(t, pinned)

	var pinnedPosts []model.Post
	require.NoError(t, env.db.Where("user_id = ? AND is_pinned = ?", alice.ID, true).Find(&pinnedPosts).Error)
	require.Len(t, pinnedPosts, 1)
	require.Equal(t, second.ID, pinnedPosts[0].ID)

	pinned, err = env.posts.TogglePin(ctx, alice.ID, second.ID)
	require.NoError(t, err)
	require.False(t, pinned)

	_, err = env.posts.TogglePin(ctx, bob.ID, first.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestDeletePost(t *testing.T) {
	env := newTestEnv(t, 0)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	mod := env.createUser(t, "mod")
	require.NoError(t, env.db.Model(mod).Update("is_moderator", true).Error)

	post, err := env.posts.CreatePost(ctx, alice.ID, dto.CreatePostRequest{Content: "ephemeral"})
	require.NoError(t, err)

	err = env.posts.DeletePost(ctx, bob.ID, post.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	require.NoError(t, env.posts.DeletePost(ctx, mod.ID, post.ID))

	_, err = env.posts.GetPost(ctx, &alice.ID, post.ID)
	require.ErrorIs(t, err, apperror.ErrNotFound)

	// Soft delete: the row survives for audit, flagged.
	var raw model.Post
	require.NoError(t, env.db.Unscoped().Where("id = ?", post.ID).First(&raw).Error)
	require.True(t, raw.IsDeleted)
}
