package service

import (
	"context"

	"chirpnet.io/chirp/internal/model"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InteractionService interface {
	// ToggleLike flips the viewer's like on the post and reports the
	// resulting state. Creating a like notifies the author unless the viewer
	// is the author.
	ToggleLike(ctx context.Context, actorID, postID uuid.UUID) (bool, error)
	// ToggleBookmark flips the viewer's private bookmark.
	ToggleBookmark(ctx context.Context, actorID, postID uuid.UUID) (bool, error)
}

type interactionService struct {
	db                  *gorm.DB
	repo                interactionRepo.InteractionRepository
	postRepo            postRepo.PostRepository
	relationshipService relService.RelationshipService
	notificationService notifService.NotificationService
	aggregator          Aggregator
}

func NewInteractionService(
	db *gorm.DB,
	repo interactionRepo.InteractionRepository,
	postRepository postRepo.PostRepository,
	relationshipService relService.RelationshipService,
	notificationService notifService.NotificationService,
	aggregator Aggregator,
) InteractionService {
	return &interactionService{
		db:                  db,
		repo:                repo,
		postRepo:            postRepository,
		relationshipService: relationshipService,
		notificationService: notificationService,
		aggregator:          aggregator,
	}
}

func (s *interactionService) visiblePost(ctx context.Context, actorID, postID uuid.UUID) (*model.Post, error) {
	post, err := s.postRepo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	canView, err := s.relationshipService.CanView(ctx, &actorID, post)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}
	return post, nil
}

func (s *interactionService) ToggleLike(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	post, err := s.visiblePost(ctx, actorID, postID)
	if err != nil {
		return false, err
	}

	var liked bool
	var created []model.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindLike(ctx, actorID, postID)
		if err != nil {
			return err
		}
		if existing != nil {
			liked = false
			return repo.DeleteLike(ctx, actorID, postID)
		}

		if err := repo.CreateLike(ctx, actorID, postID); err != nil {
			return err
		}
		liked = true

		created, err = s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationLike,
			ActorID:    actorID,
			Recipients: []uuid.UUID{post.UserID},
			PostID:     &postID,
		})
		return err
	})
	if err != nil {
		return false, err
	}

	s.notificationService.Publish(ctx, created)
	s.aggregator.InvalidateCounts(ctx, postID)
	return liked, nil
}

func (s *interactionService) ToggleBookmark(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	if _, err := s.visiblePost(ctx, actorID, postID); err != nil {
		return false, err
	}

	existing, err := s.repo.FindBookmark(ctx, actorID, postID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, s.repo.DeleteBookmark(ctx, actorID, postID)
	}
	return true, s.repo.CreateBookmark(ctx, actorID, postID)
}
