package service

import (
	"context"
	"strings"
	"time"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/message/dto"
	messageRepo "chirpnet.io/chirp/internal/modules/message/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageService interface {
	// StartConversation creates a conversation, or returns the existing one
	// for a 1:1 pair.
	StartConversation(ctx context.Context, actorID uuid.UUID, req dto.StartConversationRequest) (*dto.ConversationResponse, error)
	// SendMessage requires membership, bumps the conversation's activity
	// timestamp and notifies the other members.
	SendMessage(ctx context.Context, actorID, conversationID uuid.UUID, content string) (*dto.MessageResponse, error)
	// Inbox lists the actor's conversations with last message and unread
	// count, most recently active first.
	Inbox(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]dto.ConversationResponse, error)
	// Messages pages a conversation newest first and marks it read.
	Messages(ctx context.Context, actorID, conversationID uuid.UUID, limit, offset int) ([]dto.MessageResponse, error)
	MarkRead(ctx context.Context, actorID, conversationID uuid.UUID) error
}

type messageService struct {
	db                  *gorm.DB
	repo                messageRepo.MessageRepository
	userRepo            userRepo.UserRepository
	relationshipService relService.RelationshipService
	notificationService notifService.NotificationService
}

func NewMessageService(
	db *gorm.DB,
	repo messageRepo.MessageRepository,
	userRepository userRepo.UserRepository,
	relationshipService relService.RelationshipService,
	notificationService notifService.NotificationService,
) MessageService {
	return &messageService{
		db:                  db,
		repo:                repo,
		userRepo:            userRepository,
		relationshipService: relationshipService,
		notificationService: notificationService,
	}
}

func toAuthor(u *model.User) pkgdto.AuthorResponse {
	return pkgdto.AuthorResponse{
		ID:             u.ID,
		Handle:         u.Handle,
		DisplayName:    u.DisplayName,
		IsVerified:     u.IsVerified,
		IsCorpVerified: u.IsCorpVerified,
	}
}

func toMessageResponse(m *model.Message) *dto.MessageResponse {
	resp := &dto.MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt,
	}
	if m.Sender != nil {
		resp.Sender = toAuthor(m.Sender)
	}
	return resp
}

func (s *messageService) StartConversation(ctx context.Context, actorID uuid.UUID, req dto.StartConversationRequest) (*dto.ConversationResponse, error) {
	// The actor is always a member; dedupe the request list against them.
	memberIDs := []uuid.UUID{actorID}
	seen := map[uuid.UUID]bool{actorID: true}
	for _, id := range req.MemberIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, err := s.userRepo.FindByUUID(ctx, id); err != nil {
			return nil, err
		}
		memberIDs = append(memberIDs, id)
	}
	if len(memberIDs) < 2 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "a conversation needs at least one other member")
	}
	if !req.IsGroup && len(memberIDs) != 2 {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "direct conversations have exactly two members")
	}

	if !req.IsGroup {
		peer := memberIDs[1]
		blocked, err := s.relationshipService.IsBlockedEither(ctx, actorID, peer)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, apperror.Wrap(apperror.ErrForbidden, "unable to message this user")
		}
		existing, err := s.repo.FindDirectConversation(ctx, actorID, peer)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.buildConversation(ctx, actorID, existing)
		}
	}

	conv := &model.Conversation{IsGroup: req.IsGroup, Name: strings.TrimSpace(req.Name)}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateConversation(ctx, conv, memberIDs)
	})
	if err != nil {
		return nil, err
	}
	return s.buildConversation(ctx, actorID, conv)
}

func (s *messageService) buildConversation(ctx context.Context, actorID uuid.UUID, conv *model.Conversation) (*dto.ConversationResponse, error) {
	members, err := s.repo.Members(ctx, conv.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ConversationResponse{
		ID:        conv.ID,
		IsGroup:   conv.IsGroup,
		Name:      conv.Name,
		UpdatedAt: conv.UpdatedAt,
	}

	var lastReadAt *time.Time
	for _, m := range members {
		if m.User != nil {
			resp.Members = append(resp.Members, toAuthor(m.User))
		}
		if m.UserID == actorID {
			lastReadAt = m.LastReadAt
		}
	}

	last, err := s.repo.LastMessage(ctx, conv.ID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		resp.LastMessage = toMessageResponse(last)
	}

	resp.UnreadCount, err = s.repo.UnreadCount(ctx, conv.ID, actorID, lastReadAt)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *messageService) requireMembership(ctx context.Context, conversationID, userID uuid.UUID) (*model.Conversation, error) {
	conv, err := s.repo.FindConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	member, err := s.repo.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, apperror.Wrap(apperror.ErrForbidden, "you are not part of this conversation")
	}
	return conv, nil
}

func (s *messageService) SendMessage(ctx context.Context, actorID, conversationID uuid.UUID, content string) (*dto.MessageResponse, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "message cannot be empty")
	}
	if _, err := s.requireMembership(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	members, err := s.repo.Members(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	var recipients []uuid.UUID
	for _, m := range members {
		if m.UserID != actorID {
			recipients = append(recipients, m.UserID)
		}
	}

	msg := &model.Message{
		ConversationID: conversationID,
		SenderID:       actorID,
		Content:        content,
	}

	var created []model.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.CreateMessage(ctx, msg); err != nil {
			return err
		}
		if err := repo.TouchConversation(ctx, conversationID); err != nil {
			return err
		}

		created, err = s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationMessage,
			ActorID:    actorID,
			Recipients: recipients,
			Message:    "sent you a message",
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.Publish(ctx, created)

	sender, err := s.userRepo.FindByUUID(ctx, actorID)
	if err == nil {
		msg.Sender = sender
	}
	return toMessageResponse(msg), nil
}

func (s *messageService) Inbox(ctx context.Context, actorID uuid.UUID, limit, offset int) ([]dto.ConversationResponse, error) {
	convs, err := s.repo.ConversationsForUser(ctx, actorID, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		resp, err := s.buildConversation(ctx, actorID, &convs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *resp)
	}
	return out, nil
}

func (s *messageService) Messages(ctx context.Context, actorID, conversationID uuid.UUID, limit, offset int) ([]dto.MessageResponse, error) {
	if _, err := s.requireMembership(ctx, conversationID, actorID); err != nil {
		return nil, err
	}

	messages, err := s.repo.MessagesForConversation(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}

	// Opening a conversation marks it read.
	if err := s.repo.MarkRead(ctx, conversationID, actorID, time.Now()); err != nil {
		return nil, err
	}

	out := make([]dto.MessageResponse, len(messages))
	for i := range messages {
		out[i] = *toMessageResponse(&messages[i])
	}
	return out, nil
}

func (s *messageService) MarkRead(ctx context.Context, actorID, conversationID uuid.UUID) error {
	if _, err := s.requireMembership(ctx, conversationID, actorID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, conversationID, actorID, time.Now())
}
