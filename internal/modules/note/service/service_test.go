package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/note/dto"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"chirpnet.io/chirp/pkg/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db    *gorm.DB
	notes NoteService
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
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	relationships := relService.NewRelationshipService(db, relRepo.NewRelationshipRepository(db), users, notifications)

	return &testEnv{
		db:    db,
		notes: NewNoteService(db, noteRepo.NewNoteRepository(db), posts, users, relationships),
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

func (e *testEnv) createPost(t *testing.T, author *model.User, content string) *model.Post {
	t.Helper()
	post := &model.Post{UserID: author.ID, Content: content}
	require.NoError(t, e.db.Create(post).Error)
	return post
}

func submitRequest() dto.SubmitNoteRequest {
	return dto.SubmitNoteRequest{
		Content: "this claim lacks context",
		Sources: []string{"https://example.com/report"},
	}
}

func TestSubmitNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "a bold claim")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)
	require.Equal(t, model.NoteStatusProposed, note.Status)
	require.Equal(t, "missing_context", note.Category)
	require.Equal(t, []string{"https://example.com/report"}, note.Sources)
	require.Zero(t, note.HelpfulCount)
}

func TestSubmitNoteOwnPost(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	post := env.createPost(t, alice, "self-certified")

	_, err := env.notes.SubmitNote(context.Background(), alice.ID, post.ID, submitRequest())
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestSubmitNoteUnknownCategory(t *testing.T) {
	env := newTestEnv(t)
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "categorize this")

	req := submitRequest()
	req.Category = "vibes"
	_, err := env.notes.SubmitNote(context.Background(), bob.ID, post.ID, req)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestRateNoteConsensus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	for i := 0; i < model.NoteApprovalThreshold-1; i++ {
		rater := env.createUser(t, fmt.Sprintf("rater%d", i))
		rated, err := env.notes.RateNote(ctx, rater.ID, note.ID, model.RatingHelpful)
		require.NoError(t, err)
		require.Equal(t, model.NoteStatusProposed, rated.Status)
	}

	last := env.createUser(t, "lastrater")
	rated, err := env.notes.RateNote(ctx, last.ID, note.ID, model.RatingHelpful)
	require.NoError(t, err)
	require.Equal(t, model.NoteStatusApproved, rated.Status)
	require.Equal(t, model.NoteApprovalThreshold, rated.HelpfulCount)
}

func TestRateNoteUpsert(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	rated, err := env.notes.RateNote(ctx, carol.ID, note.ID, model.RatingHelpful)
	require.NoError(t, err)
	require.Equal(t, 1, rated.HelpfulCount)
	require.Zero(t, rated.NotHelpfulCount)

	// Changing one's mind replaces the vote instead of stacking.
	rated, err = env.notes.RateNote(ctx, carol.ID, note.ID, model.RatingNotHelpful)
	require.NoError(t, err)
	require.Zero(t, rated.HelpfulCount)
	require.Equal(t, 1, rated.NotHelpfulCount)

	var count int64
	require.NoError(t, env.db.Model(&model.NoteRating{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRateOwnNote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	_, err = env.notes.RateNote(ctx, bob.ID, note.ID, model.RatingHelpful)
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestRateNoteInvalidRating(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	_, err = env.notes.RateNote(ctx, carol.ID, note.ID, "meh")
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestModeratorOverrideStandsAgainstConsensus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	rejected, err := env.notes.OverrideStatus(ctx, note.ID, model.NoteStatusRejected)
	require.NoError(t, err)
	require.Equal(t, model.NoteStatusRejected, rejected.Status)

	// Helpful votes keep counting but can no longer flip the status.
	for i := 0; i < model.NoteApprovalThreshold+1; i++ {
		rater := env.createUser(t, fmt.Sprintf("rater%d", i))
		rated, err := env.notes.RateNote(ctx, rater.ID, note.ID, model.RatingHelpful)
		require.NoError(t, err)
		require.Equal(t, model.NoteStatusRejected, rated.Status)
	}
}

func TestNotesForPostVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	mod := env.createUser(t, "mod")
	require.NoError(t, env.db.Model(mod).Update("is_moderator", true).Error)
	post := env.createPost(t, alice, "disputed")

	proposed, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	approved, err := env.notes.SubmitNote(ctx, carol.ID, post.ID, submitRequest())
	require.NoError(t, err)
	_, err = env.notes.OverrideStatus(ctx, approved.ID, model.NoteStatusApproved)
	require.NoError(t, err)

	visible, err := env.notes.NotesForPost(ctx, &bob.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	require.Equal(t, approved.ID, visible[0].ID)

	anonymous, err := env.notes.NotesForPost(ctx, nil, post.ID)
	require.NoError(t, err)
	require.Len(t, anonymous, 1)

	moderated, err := env.notes.NotesForPost(ctx, &mod.ID, post.ID)
	require.NoError(t, err)
	require.Len(t, moderated, 2)

	statuses := map[string]bool{}
	for _, n := range moderated {
		statuses[n.Status] = true
	}
	require.True(t, statuses[model.NoteStatusProposed], "moderators see note %s while proposed", proposed.ID)
	require.True(t, statuses[model.NoteStatusApproved])
}

func TestNotesByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	post := env.createPost(t, alice, "disputed")

	_, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)

	queue, err := env.notes.NotesByStatus(ctx, model.NoteStatusProposed, 20, 0)
	require.NoError(t, err)
	require.Len(t, queue, 1)

	_, err = env.notes.NotesByStatus(ctx, "bogus", 20, 0)
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestDeleteNoteRemovesRatings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")
	post := env.createPost(t, alice, "disputed")

	note, err := env.notes.SubmitNote(ctx, bob.ID, post.ID, submitRequest())
	require.NoError(t, err)
	_, err = env.notes.RateNote(ctx, carol.ID, note.ID, model.RatingHelpful)
	require.NoError(t, err)

	require.NoError(t, env.notes.DeleteNote(ctx, note.ID))

	var notes, ratings int64
	require.NoError(t, env.db.Model(&model.CommunityNote{}).Count(&notes).Error)
	require.NoError(t, env.db.Model(&model.NoteRating{}).Count(&ratings).Error)
	require.Zero(t, notes)
	require.Zero(t, ratings)
}

func TestStaffNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	mod := env.createUser(t, "mod")
	post := env.createPost(t, alice, "flagged")

	note, err := env.notes.CreateStaffNote(ctx, mod.ID, post.ID, dto.StaffNoteRequest{
		Content:  "account under investigation",
		NoteType: "investigation",
	})
	require.NoError(t, err)
	require.Equal(t, "investigation", note.NoteType)

	require.NoError(t, env.notes.DeleteStaffNote(ctx, note.ID))

	var count int64
	require.NoError(t, env.db.Model(&model.StaffNote{}).Count(&count).Error)
	require.Zero(t, count)
}
