package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"chirpnet.io/chirp/internal/model"
	feedRepo "chirpnet.io/chirp/internal/modules/feed/repository"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"chirpnet.io/chirp/pkg/database"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db            *gorm.DB
	feed          FeedService
	interactions  interactionRepo.InteractionRepository
	relationships relService.RelationshipService
}

func newTestEnv(t *testing.T) *testEnv {
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
	interactions := interactionRepo.NewInteractionRepository(db)
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	relationships := relService.NewRelationshipService(db, relRepo.NewRelationshipRepository(db), users, notifications)
	aggregator := interactionService.NewAggregator(interactions, posts, noteRepo.NewNoteRepository(db), pollRepo.NewPollRepository(db), nil)

	return &testEnv{
		db:            db,
		feed:          NewFeedService(feedRepo.NewFeedRepository(db), posts, users, interactions, relationships, aggregator),
		interactions:  interactions,
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

func (e *testEnv) createPostAt(t *testing.T, author *model.User, content string, createdAt time.Time) *model.Post {
	t.Helper()
	post := &model.Post{UserID: author.ID, Content: content, CreatedAt: createdAt}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func (e *testEnv) follow(t *testing.T, follower, followee *model.User) {
	t.Helper()
	require.NoError(t, e.db.Create(&model.Follow{FollowerID: follower.ID, FolloweeID: followee.ID}).Error)
}

func postIDs(responses []pkgdto.PostResponse) []uuid.UUID {
	ids := make([]uuid.UUID, len(responses))
	for i, r := range responses {
		ids[i] = r.ID
	}
	return ids
}

func TestHomeTimeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	mallory := env.createUser(t, "mallory")
	eve := env.createUser(t, "eve")

	env.follow(t, alice, bob)
	env.follow(t, alice, mallory)
	env.follow(t, alice, eve)
	require.NoError(t, env.db.Create(&model.Mute{MuterID: alice.ID, MutedID: mallory.ID}).Error)
	require.NoError(t, env.db.Create(&model.Block{BlockerID: eve.ID, BlockedID: alice.ID}).Error)

	own := env.createPostAt(t, alice, "mine", base.Add(1*time.Minute))
	followed := env.createPostAt(t, bob, "from bob", base.Add(2*time.Minute))
	env.createPostAt(t, carol, "not followed", base.Add(3*time.Minute))
	env.createPostAt(t, mallory, "muted away", base.Add(4*time.Minute))
	env.createPostAt(t, eve, "blocking viewer", base.Add(5*time.Minute))

	timeline, err := env.feed.HomeTimeline(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{followed.ID, own.ID}, postIDs(timeline))
}

func TestHomeTimelineSkipsDeleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.follow(t, alice, bob)

	kept := env.createPostAt(t, bob, "kept", base)
	gone := env.createPostAt(t, bob, "gone", base.Add(time.Minute))
	require.NoError(t, env.db.Model(gone).Update("is_deleted", true).Error)

	timeline, err := env.feed.HomeTimeline(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{kept.ID}, postIDs(timeline))
}

func TestProfileTimelinePinnedFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	older := env.createPostAt(t, alice, "older", base)
	newer := env.createPostAt(t, alice, "newer", base.Add(time.Minute))
	require.NoError(t, env.db.Model(older).Update("is_pinned", true).Error)

	// Replies stay off the profile page.
	reply := &model.Post{UserID: alice.ID, Content: "a reply", ParentID: &newer.ID}
	require.NoError(t, env.db.Create(reply).Error)

	timeline, err := env.feed.ProfileTimeline(ctx, nil, "alice", 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{older.ID, newer.ID}, postIDs(timeline))
}

func TestProfileTimelinePrivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	stranger := env.createUser(t, "stranger")
	require.NoError(t, env.db.Model(alice).Update("is_private", true).Error)
	env.follow(t, bob, alice)

	post := env.createPostAt(t, alice, "for followers", base)

	timeline, err := env.feed.ProfileTimeline(ctx, nil, "alice", 20, 0)
	require.NoError(t, err)
	require.Empty(t, timeline)

	timeline, err = env.feed.ProfileTimeline(ctx, &stranger.ID, "alice", 20, 0)
	require.NoError(t, err)
	require.Empty(t, timeline)

	timeline, err = env.feed.ProfileTimeline(ctx, &bob.ID, "alice", 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{post.ID}, postIDs(timeline))

	timeline, err = env.feed.ProfileTimeline(ctx, &alice.ID, "alice", 20, 0)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
}

func TestProfileTimelineBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.createPostAt(t, alice, "hidden from bob", time.Now().Add(-time.Minute))
	require.NoError(t, env.db.Create(&model.Block{BlockerID: alice.ID, BlockedID: bob.ID}).Error)

	timeline, err := env.feed.ProfileTimeline(ctx, &bob.ID, "alice", 20, 0)
	require.NoError(t, err)
	require.Empty(t, timeline)
}

func TestThread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	root := env.createPostAt(t, alice, "discuss", base)

	first := &model.Post{UserID: bob.ID, Content: "first", ParentID: &root.ID, CreatedAt: base.Add(time.Minute)}
	second := &model.Post{UserID: alice.ID, Content: "second", ParentID: &root.ID, CreatedAt: base.Add(2 * time.Minute)}
	require.NoError(t, env.db.Create(first).Error)
	require.NoError(t, env.db.Create(second).Error)

	thread, err := env.feed.Thread(ctx, nil, root.ID, 20, 0)
	require.NoError(t, err)
	require.Equal(t, root.ID, thread.Post.ID)
	require.EqualValues(t, 2, thread.Post.ReplyCount)
	require.Equal(t, []uuid.UUID{first.ID, second.ID}, postIDs(thread.Replies))
}

func TestThreadHiddenRoot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	root := env.createPostAt(t, alice, "walled", time.Now().Add(-time.Minute))
	require.NoError(t, env.db.Create(&model.Block{BlockerID: alice.ID, BlockedID: bob.ID}).Error)

	_, err := env.feed.Thread(ctx, &bob.ID, root.ID, 20, 0)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBookmarksOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	first := env.createPostAt(t, bob, "first saved", base)
	second := env.createPostAt(t, bob, "second saved", base.Add(time.Minute))

	require.NoError(t, env.db.Create(&model.Bookmark{UserID: alice.ID, PostID: first.ID, CreatedAt: base.Add(10 * time.Minute)}).Error)
	require.NoError(t, env.db.Create(&model.Bookmark{UserID: alice.ID, PostID: second.ID, CreatedAt: base.Add(20 * time.Minute)}).Error)

	bookmarks, err := env.feed.Bookmarks(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{second.ID, first.ID}, postIDs(bookmarks))
	require.True(t, bookmarks[0].IsBookmarked)
}

func TestHashtagTimeline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	tagged := env.createPostAt(t, alice, "about #golang", base)
	env.createPostAt(t, alice, "unrelated", base.Add(time.Minute))

	hashtag := &model.Hashtag{Tag: "golang", PostCount: 1}
	require.NoError(t, env.db.Create(hashtag).Error)
	require.NoError(t, env.db.Create(&model.PostHashtag{PostID: tagged.ID, HashtagID: hashtag.ID}).Error)

	timeline, err := env.feed.HashtagTimeline(ctx, nil, "#GoLang", 20, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{tagged.ID}, postIDs(timeline))

	_, err = env.feed.HashtagTimeline(ctx, nil, "#", 20, 0)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestExplore(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	base := time.Now().Add(-time.Hour)

	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	quiet := env.createPostAt(t, alice, "quiet", base)
	popular := env.createPostAt(t, bob, "popular", base.Add(time.Minute))
	require.NoError(t, env.interactions.CreateLike(ctx, alice.ID, popular.ID))
	require.NoError(t, env.interactions.CreateLike(ctx, carol.ID, popular.ID))

	hashtag := &model.Hashtag{Tag: "trending", PostCount: 1}
	require.NoError(t, env.db.Create(hashtag).Error)
	require.NoError(t, env.db.Create(&model.PostHashtag{PostID: popular.ID, HashtagID: hashtag.ID}).Error)

	explore, err := env.feed.Explore(ctx, &alice.ID)
	require.NoError(t, err)

	require.Equal(t, []uuid.UUID{popular.ID, quiet.ID}, postIDs(explore.TrendingPosts))
	require.Len(t, explore.TrendingHashtags, 1)
	require.Equal(t, "trending", explore.TrendingHashtags[0].Tag)
	require.EqualValues(t, 1, explore.TrendingHashtags[0].Count)

	// Suggestions skip the viewer and anyone already followed.
	env.follow(t, alice, bob)
	explore, err = env.feed.Explore(ctx, &alice.ID)
	require.NoError(t, err)
	for _, s := range explore.Suggestions {
		require.NotEqual(t, alice.ID, s.ID)
		require.NotEqual(t, bob.ID, s.ID)
	}
	require.NotEmpty(t, explore.Suggestions)
}
