package service

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/message/dto"
	messageRepo "chirpnet.io/chirp/internal/modules/message/repository"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"chirpnet.io/chirp/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db       *gorm.DB
	messages MessageService
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
	notifications := notifService.NewNotificationService(notifRepo.NewNotificationRepository(db), nil)
	relationships := relService.NewRelationshipService(db, relRepo.NewRelationshipRepository(db), users, notifications)

	return &testEnv{
		db:       db,
		messages: NewMessageService(db, messageRepo.NewMessageRepository(db), users, relationships, notifications),
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

func TestStartDirectConversationDedup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	first, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)
	require.False(t, first.IsGroup)
	require.Len(t, first.Members, 2)

	// The same pair resolves to the same conversation, from either side.
	again, err := env.messages.StartConversation(ctx, bob.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{alice.ID},
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, env.db.Model(&model.Conversation{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestStartConversationValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	// Only the actor: nobody to talk to.
	_, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{alice.ID},
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	// Three members need the group flag.
	_, err = env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID, carol.ID},
	})
	require.ErrorIs(t, err, apperror.ErrInvalidInput)

	_, err = env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{uuid.New()},
	})
	require.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestStartDirectConversationBlocked(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	require.NoError(t, env.db.Create(&model.Block{BlockerID: bob.ID, BlockedID: alice.ID}).Error)

	_, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID},
	})
	require.ErrorIs(t, err, apperror.ErrForbidden)
}

func TestStartGroupConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	carol := env.createUser(t, "carol")

	conv, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID, carol.ID},
		IsGroup:   true,
		Name:      "launch crew",
	})
	require.NoError(t, err)
	require.True(t, conv.IsGroup)
	require.Equal(t, "launch crew", conv.Name)
	require.Len(t, conv.Members, 3)
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	outsider := env.createUser(t, "outsider")

	conv, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)

	msg, err := env.messages.SendMessage(ctx, alice.ID, conv.ID, "hey bob")
	require.NoError(t, err)
	require.Equal(t, "hey bob", msg.Content)
	require.Equal(t, alice.ID, msg.Sender.ID)

	var notifications []model.Notification
	require.NoError(t, env.db.Where("user_id = ?", bob.ID).Find(&notifications).Error)
	require.Len(t, notifications, 1)
	require.Equal(t, model.NotificationMessage, notifications[0].Type)

	_, err = env.messages.SendMessage(ctx, outsider.ID, conv.ID, "let me in")
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.messages.SendMessage(ctx, alice.ID, conv.ID, "   ")
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
}

func TestInboxUnreadAndMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	conv, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)

	_, err = env.messages.SendMessage(ctx, alice.ID, conv.ID, "one")
	require.NoError(t, err)
	_, err = env.messages.SendMessage(ctx, alice.ID, conv.ID, "two")
	require.NoError(t, err)

	inbox, err := env.messages.Inbox(ctx, bob.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	require.EqualValues(t, 2, inbox[0].UnreadCount)
	require.Equal(t, "two", inbox[0].LastMessage.Content)

	// Reading the conversation clears the counter; own messages never count.
	messages, err := env.messages.Messages(ctx, bob.ID, conv.ID, 20, 0)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "two", messages[0].Content)

	inbox, err = env.messages.Inbox(ctx, bob.ID, 20, 0)
	require.NoError(t, err)
	require.Zero(t, inbox[0].UnreadCount)

	senderInbox, err := env.messages.Inbox(ctx, alice.ID, 20, 0)
	require.NoError(t, err)
	require.Zero(t, senderInbox[0].UnreadCount)
}

func TestMessagesRequireMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	outsider := env.createUser(t, "outsider")

	conv, err := env.messages.StartConversation(ctx, alice.ID, dto.StartConversationRequest{
		MemberIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)

	_, err = env.messages.Messages(ctx, outsider.ID, conv.ID, 20, 0)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	err = env.messages.MarkRead(ctx, outsider.ID, conv.ID)
	require.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = env.messages.Messages(ctx, bob.ID, uuid.New(), 20, 0)
	require.ErrorIs(t, err, apperror.ErrNotFound)
}
