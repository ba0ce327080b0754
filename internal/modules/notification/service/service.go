package service

import (
	"context"
	"encoding/json"
	"fmt"

	"chirpnet.io/chirp/internal/model"
	notifRepo "chirpnet.io/chirp/internal/modules/notification/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Event is one triggering action handed to the fan-out engine. Recipients are
// derived by the caller (post author, parent author, resolved mentions,
// conversation members); the engine dedupes them and drops the actor.
type Event struct {
	Type       string
	ActorID    uuid.UUID
	Recipients []uuid.UUID
	PostID     *uuid.UUID
	Message    string
}

type NotificationService interface {
	// FanOut synthesizes one notification per distinct recipient inside the
	// caller's transaction. Self-notifications are suppressed.
	FanOut(ctx context.Context, tx *gorm.DB, event Event) ([]model.Notification, error)
	// Publish pushes already-committed notifications to subscribers,
	// best-effort.
	Publish(ctx context.Context, notifications []model.Notification)
	GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error)
	MarkAsRead(ctx context.Context, userID, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, userID uuid.UUID) error
	UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type notificationService struct {
	repo        notifRepo.NotificationRepository
	redisClient *redis.Client
}

func NewNotificationService(repo notifRepo.NotificationRepository, redisClient *redis.Client) NotificationService {
	return &notificationService{
		repo:        repo,
		redisClient: redisClient,
	}
}

func (s *notificationService) FanOut(ctx context.Context, tx *gorm.DB, event Event) ([]model.Notification, error) {
	seen := make(map[uuid.UUID]bool, len(event.Recipients))
	var created []model.Notification

	for _, recipient := range event.Recipients {
		if recipient == event.ActorID || seen[recipient] {
			continue
		}
		seen[recipient] = true

		actorID := event.ActorID
		n := model.Notification{
			UserID:  recipient,
			ActorID: &actorID,
			Type:    event.Type,
			PostID:  event.PostID,
			Message: event.Message,
		}
		if err := s.repo.Create(ctx, tx, &n); err != nil {
			return nil, err
		}
		created = append(created, n)
	}

	return created, nil
}

func (s *notificationService) Publish(ctx context.Context, notifications []model.Notification) {
	if s.redisClient == nil {
		return
	}

	for i := range notifications {
		n := &notifications[i]
		channel := fmt.Sprintf("user_notifications:%s", n.UserID.String())

		payload, err := json.Marshal(n)
		if err == nil {
			s.redisClient.Publish(ctx, channel, payload)
		}
	}
}

func (s *notificationService) GetNotifications(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.Notification, error) {
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.MarkAsRead(ctx, userID, id)
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *notificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}
