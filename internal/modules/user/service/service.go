package service

import (
	"context"

	"chirpnet.io/chirp/internal/model"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relRepo "chirpnet.io/chirp/internal/modules/relationship/repository"
	"chirpnet.io/chirp/internal/modules/user/dto"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
)

type UserService interface {
	// GetProfile returns a user's page metadata. Always served, even for
	// private accounts; only the timeline itself is gated.
	GetProfile(ctx context.Context, viewerID *uuid.UUID, handle string) (*dto.ProfileResponse, error)
	UpdateProfile(ctx context.Context, actorID uuid.UUID, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error)
	// SetAffiliation links the actor to a corp-verified account, or clears
	// the link when targetID is nil.
	SetAffiliation(ctx context.Context, actorID uuid.UUID, targetID *uuid.UUID) error
}

type userService struct {
	repo     userRepo.UserRepository
	postRepo postRepo.PostRepository
	relRepo  relRepo.RelationshipRepository
}

func NewUserService(repo userRepo.UserRepository, postRepository postRepo.PostRepository, relationshipRepository relRepo.RelationshipRepository) UserService {
	return &userService{
		repo:     repo,
		postRepo: postRepository,
		relRepo:  relationshipRepository,
	}
}

func (s *userService) buildProfile(ctx context.Context, viewerID *uuid.UUID, user *model.User) (*dto.ProfileResponse, error) {
	postCount, err := s.postRepo.CountByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followerCount, err := s.relRepo.FollowerCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	followingCount, err := s.relRepo.FollowingCount(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	resp := &dto.ProfileResponse{
		ID:             user.ID,
		Handle:         user.Handle,
		DisplayName:    user.DisplayName,
		Bio:            user.Bio,
		Location:       user.Location,
		Website:        user.Website,
		IsVerified:     user.IsVerified,
		IsCorpVerified: user.IsCorpVerified,
		IsPrivate:      user.IsPrivate,
		CreatedAt:      user.CreatedAt,
		PostCount:      postCount,
		FollowerCount:  followerCount,
		FollowingCount: followingCount,
	}

	if viewerID != nil {
		resp.IsOwnProfile = *viewerID == user.ID
		if !resp.IsOwnProfile {
			resp.IsFollowing, err = s.relRepo.IsFollowing(ctx, *viewerID, user.ID)
			if err != nil {
				return nil, err
			}
		}
	}
	return resp, nil
}

func (s *userService) GetProfile(ctx context.Context, viewerID *uuid.UUID, handle string) (*dto.ProfileResponse, error) {
	user, err := s.repo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}
	if user.IsSuspended {
		return nil, apperror.Wrap(apperror.ErrNotFound, "user not found")
	}
	return s.buildProfile(ctx, viewerID, user)
}

func (s *userService) UpdateProfile(ctx context.Context, actorID uuid.UUID, req dto.UpdateProfileRequest) (*dto.ProfileResponse, error) {
	user, err := s.repo.FindByUUID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	if req.DisplayName != "" {
		user.DisplayName = req.DisplayName
	}
	user.Bio = req.Bio
	user.Location = req.Location
	user.Website = req.Website
	if req.IsPrivate != nil {
		user.IsPrivate = *req.IsPrivate
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.buildProfile(ctx, &actorID, user)
}

func (s *userService) SetAffiliation(ctx context.Context, actorID uuid.UUID, targetID *uuid.UUID) error {
	user, err := s.repo.FindByUUID(ctx, actorID)
	if err != nil {
		return err
	}

	if targetID == nil {
		user.AffiliatedWith = nil
		return s.repo.Update(ctx, user)
	}

	if *targetID == actorID {
		return apperror.Wrap(apperror.ErrInvalidInput, "cannot affiliate with yourself")
	}
	target, err := s.repo.FindByUUID(ctx, *targetID)
	if err != nil {
		return err
	}
	if !target.IsCorpVerified {
		return apperror.Wrap(apperror.ErrInvalidInput, "affiliation target must be corp-verified")
	}

	user.AffiliatedWith = &target.ID
	return s.repo.Update(ctx, user)
}
