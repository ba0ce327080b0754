package service

import (
	"context"

	"chirpnet.io/chirp/internal/model"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RelationshipService interface {
	// ToggleFollow flips the follow edge and reports the resulting state.
	// Fails with Forbidden when a block exists in either direction.
	ToggleFollow(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)
	// ToggleBlock flips the block edge; creating a block also severs follow
	// edges both ways in the same transaction.
	ToggleBlock(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)
	ToggleMute(ctx context.Context, actorID, targetID uuid.UUID) (bool, error)

	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)
	// CanView reports whether the viewer may see the post. Deleted posts are
	// invisible to everyone; a block in either direction hides the post.
	// A nil viewer is an unauthenticated request.
	CanView(ctx context.Context, viewerID *uuid.UUID, post *model.Post) (bool, error)
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error)
}

type relationshipService struct {
	db                  *gorm.DB
	repo                relRepo.RelationshipRepository
	userRepo            userRepo.UserRepository
	notificationService notifService.NotificationService
}

func NewRelationshipService(db *gorm.DB, repo relRepo.RelationshipRepository, userRepo userRepo.UserRepository, notificationService notifService.NotificationService) RelationshipService {
	return &relationshipService{
		db:                  db,
		repo:                repo,
		userRepo:            userRepo,
		notificationService: notificationService,
	}
}

func (s *relationshipService) ToggleFollow(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == targetID {
		return false, apperror.Wrap(apperror.ErrInvalidInput, "cannot follow yourself")
	}
	if _, err := s.userRepo.FindByUUID(ctx, targetID); err != nil {
		return false, err
	}

	var following bool
	var created []model.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		blocked, err := repo.BlockedEither(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if blocked {
			return apperror.Wrap(apperror.ErrForbidden, "unable to follow this user")
		}

		existing, err := repo.FindFollow(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			following = false
			return repo.DeleteFollow(ctx, actorID, targetID)
		}

		if err := repo.CreateFollow(ctx, actorID, targetID); err != nil {
			return err
		}
		following = true

		created, err = s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationFollow,
			ActorID:    actorID,
			Recipients: []uuid.UUID{targetID},
		})
		return err
	})
	if err != nil {
		return false, err
	}

	s.notificationService.Publish(ctx, created)
	return following, nil
}

func (s *relationshipService) ToggleBlock(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == targetID {
		return false, apperror.Wrap(apperror.ErrInvalidInput, "cannot block yourself")
	}
	if _, err := s.userRepo.FindByUUID(ctx, targetID); err != nil {
		return false, err
	}

	var blocked bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindBlock(ctx, actorID, targetID)
		if err != nil {
			return err
		}
		if existing != nil {
			blocked = false
			return repo.DeleteBlock(ctx, actorID, targetID)
		}

		if err := repo.CreateBlock(ctx, actorID, targetID); err != nil {
			return err
		}
		blocked = true

		// A block edge forbids follow edges in either direction.
		return repo.DeleteFollowsBetween(ctx, actorID, targetID)
	})
	return blocked, err
}

func (s *relationshipService) ToggleMute(ctx context.Context, actorID, targetID uuid.UUID) (bool, error) {
	if actorID == targetID {
		return false, apperror.Wrap(apperror.ErrInvalidInput, "cannot mute yourself")
	}
	if _, err := s.userRepo.FindByUUID(ctx, targetID); err != nil {
		return false, err
	}

	existing, err := s.repo.FindMute(ctx, actorID, targetID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, s.repo.DeleteMute(ctx, actorID, targetID)
	}
	return true, s.repo.CreateMute(ctx, actorID, targetID)
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	return s.repo.IsFollowing(ctx, followerID, followeeID)
}

func (s *relationshipService) IsBlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return s.repo.BlockedEither(ctx, a, b)
}

func (s *relationshipService) CanView(ctx context.Context, viewerID *uuid.UUID, post *model.Post) (bool, error) {
	if post == nil || post.IsDeleted {
		return false, nil
	}
	if viewerID == nil || *viewerID == post.UserID {
		return true, nil
	}
	blocked, err := s.repo.BlockedEither(ctx, *viewerID, post.UserID)
	if err != nil {
		return false, err
	}
	return !blocked, nil
}

func (s *relationshipService) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error) {
	return s.repo.Followers(ctx, userID, limit, offset)
}

func (s *relationshipService) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error) {
	return s.repo.Following(ctx, userID, limit, offset)
}
