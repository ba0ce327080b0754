package repository

import (
	"context"
	"errors"

	"chirpnet.io/chirp/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RelationshipRepository interface {
	// WithTx rebinds the repository to a transaction so edge mutations join
	// the caller's unit of work.
	WithTx(tx *gorm.DB) RelationshipRepository

	FindFollow(ctx context.Context, followerID, followeeID uuid.UUID) (*model.Follow, error)
	CreateFollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) error
	// DeleteFollowsBetween removes follow edges in both directions.
	DeleteFollowsBetween(ctx context.Context, a, b uuid.UUID) error

	FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*model.Block, error)
	CreateBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error
	BlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error)

	FindMute(ctx context.Context, muterID, mutedID uuid.UUID) (*model.Mute, error)
	CreateMute(ctx context.Context, muterID, mutedID uuid.UUID) error
	DeleteMute(ctx context.Context, muterID, mutedID uuid.UUID) error

	IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error)
	Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error)
	Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error)
	FollowerCount(ctx context.Context, userID uuid.UUID) (int64, error)
	FollowingCount(ctx context.Context, userID uuid.UUID) (int64, error)
}

type relationshipRepository struct {
	db *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) WithTx(tx *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: tx}
}

func (r *relationshipRepository) FindFollow(ctx context.Context, followerID, followeeID uuid.UUID) (*model.Follow, error) {
	var follow model.Follow
	err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		First(&follow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &follow, nil
}

func (r *relationshipRepository) CreateFollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Follow{
		FollowerID: followerID,
		FolloweeID: followeeID,
	}).Error
}

func (r *relationshipRepository) DeleteFollow(ctx context.Context, followerID, followeeID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Delete(&model.Follow{}).Error
}

func (r *relationshipRepository) DeleteFollowsBetween(ctx context.Context, a, b uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("(follower_id = ? AND followee_id = ?) OR (follower_id = ? AND followee_id = ?)", a, b, b, a).
		Delete(&model.Follow{}).Error
}

func (r *relationshipRepository) FindBlock(ctx context.Context, blockerID, blockedID uuid.UUID) (*model.Block, error) {
	var block model.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		First(&block).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &block, nil
}

func (r *relationshipRepository) CreateBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Block{
		BlockerID: blockerID,
		BlockedID: blockedID,
	}).Error
}

func (r *relationshipRepository) DeleteBlock(ctx context.Context, blockerID, blockedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&model.Block{}).Error
}

func (r *relationshipRepository) BlockedEither(ctx context.Context, a, b uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Block{}).
		Where("(blocker_id = ? AND blocked_id = ?) OR (blocker_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error
	return count > 0, err
}

func (r *relationshipRepository) FindMute(ctx context.Context, muterID, mutedID uuid.UUID) (*model.Mute, error) {
	var mute model.Mute
	err := r.db.WithContext(ctx).
		Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		First(&mute).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &mute, nil
}

func (r *relationshipRepository) CreateMute(ctx context.Context, muterID, mutedID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Mute{
		MuterID: muterID,
		MutedID: mutedID,
	}).Error
}

func (r *relationshipRepository) DeleteMute(ctx context.Context, muterID, mutedID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("muter_id = ? AND muted_id = ?", muterID, mutedID).
		Delete(&model.Mute{}).Error
}

func (r *relationshipRepository) IsFollowing(ctx context.Context, followerID, followeeID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ? AND followee_id = ?", followerID, followeeID).
		Count(&count).Error
	return count > 0, err
}

func (r *relationshipRepository) Followers(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.followee_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *relationshipRepository) Following(ctx context.Context, userID uuid.UUID, limit, offset int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows ON follows.followee_id = users.id").
		Where("follows.follower_id = ?", userID).
		Order("follows.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *relationshipRepository) FollowerCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("followee_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *relationshipRepository) FollowingCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Follow{}).
		Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}
