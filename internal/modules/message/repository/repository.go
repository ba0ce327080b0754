package repository

import (
	"context"
	"errors"
	"time"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepository interface {
	WithTx(tx *gorm.DB) MessageRepository

	CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []uuid.UUID) error
	FindConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error)
	// FindDirectConversation returns the existing non-group conversation
	// between exactly the two users, or (nil, nil).
	FindDirectConversation(ctx context.Context, a, b uuid.UUID) (*model.Conversation, error)
	// ConversationsForUser lists the user's conversations, most recently
	// active first.
	ConversationsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Conversation, error)
	Members(ctx context.Context, conversationID uuid.UUID) ([]model.ConversationMember, error)
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	TouchConversation(ctx context.Context, conversationID uuid.UUID) error

	CreateMessage(ctx context.Context, msg *model.Message) error
	// MessagesForConversation pages newest first.
	MessagesForConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]model.Message, error)
	LastMessage(ctx context.Context, conversationID uuid.UUID) (*model.Message, error)
	// UnreadCount counts messages newer than the member's last_read_at mark,
	// excluding their own.
	UnreadCount(ctx context.Context, conversationID, userID uuid.UUID, lastReadAt *time.Time) (int64, error)
	MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error
}

type messageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) WithTx(tx *gorm.DB) MessageRepository {
	return &messageRepository{db: tx}
}

func (r *messageRepository) CreateConversation(ctx context.Context, conv *model.Conversation, memberIDs []uuid.UUID) error {
	if err := r.db.WithContext(ctx).Create(conv).Error; err != nil {
		return err
	}
	members := make([]model.ConversationMember, len(memberIDs))
	for i, id := range memberIDs {
		members[i] = model.ConversationMember{ConversationID: conv.ID, UserID: id}
	}
	return r.db.WithContext(ctx).Create(&members).Error
}

func (r *messageRepository) FindConversation(ctx context.Context, id uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Wrap(apperror.ErrNotFound, "conversation not found")
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *messageRepository) FindDirectConversation(ctx context.Context, a, b uuid.UUID) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members cm1 ON cm1.conversation_id = conversations.id AND cm1.user_id = ?", a).
		Joins("JOIN conversation_members cm2 ON cm2.conversation_id = conversations.id AND cm2.user_id = ?", b).
		Where("conversations.is_group = ?", false).
		First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *messageRepository) ConversationsForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Conversation, error) {
	var convs []model.Conversation
	err := r.db.WithContext(ctx).
		Joins("JOIN conversation_members ON conversation_members.conversation_id = conversations.id").
		Where("conversation_members.user_id = ?", userID).
		Order("conversations.updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&convs).Error
	return convs, err
}

func (r *messageRepository) Members(ctx context.Context, conversationID uuid.UUID) ([]model.ConversationMember, error) {
	var members []model.ConversationMember
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("conversation_id = ?", conversationID).
		Find(&members).Error
	return members, err
}

func (r *messageRepository) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *messageRepository) TouchConversation(ctx context.Context, conversationID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}

func (r *messageRepository) CreateMessage(ctx context.Context, msg *model.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

func (r *messageRepository) MessagesForConversation(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&messages).Error
	return messages, err
}

func (r *messageRepository) LastMessage(ctx context.Context, conversationID uuid.UUID) (*model.Message, error) {
	var msg model.Message
	err := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ? AND is_deleted = ?", conversationID, false).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *messageRepository) UnreadCount(ctx context.Context, conversationID, userID uuid.UUID, lastReadAt *time.Time) (int64, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND is_deleted = ?", conversationID, userID, false)
	if lastReadAt != nil {
		q = q.Where("created_at > ?", *lastReadAt)
	}
	var count int64
	err := q.Count(&count).Error
	return count, err
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID, userID uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&model.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", at).Error
}
