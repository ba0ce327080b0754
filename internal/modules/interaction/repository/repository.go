package repository

import (
	"context"
	"errors"

	"chirpnet.io/chirp/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InteractionRepository interface {
	WithTx(tx *gorm.DB) InteractionRepository

	// FindLike returns (nil, nil) when no like exists.
	FindLike(ctx context.Context, userID, postID uuid.UUID) (*model.Like, error)
	CreateLike(ctx context.Context, userID, postID uuid.UUID) error
	DeleteLike(ctx context.Context, userID, postID uuid.UUID) error

	FindBookmark(ctx context.Context, userID, postID uuid.UUID) (*model.Bookmark, error)
	CreateBookmark(ctx context.Context, userID, postID uuid.UUID) error
	DeleteBookmark(ctx context.Context, userID, postID uuid.UUID) error
	// BookmarkedPostIDs lists the user's bookmarked posts, most recently
	// saved first.
	BookmarkedPostIDs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]uuid.UUID, error)

	// LikeCounts returns like tallies keyed by post ID. Posts with no likes
	// are absent from the map.
	LikeCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// ReplyCounts counts non-deleted replies per parent post.
	ReplyCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// RepostCounts counts live repost rows per original post.
	RepostCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	// LikedSet reports which of the posts the user has liked.
	LikedSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
	BookmarkedSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type interactionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) WithTx(tx *gorm.DB) InteractionRepository {
	return &interactionRepository{db: tx}
}

func (r *interactionRepository) FindLike(ctx context.Context, userID, postID uuid.UUID) (*model.Like, error) {
	var like model.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&like).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &like, nil
}

func (r *interactionRepository) CreateLike(ctx context.Context, userID, postID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Like{UserID: userID, PostID: postID}).Error
}

func (r *interactionRepository) DeleteLike(ctx context.Context, userID, postID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.Like{}).Error
}

func (r *interactionRepository) FindBookmark(ctx context.Context, userID, postID uuid.UUID) (*model.Bookmark, error) {
	var bookmark model.Bookmark
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&bookmark).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *interactionRepository) CreateBookmark(ctx context.Context, userID, postID uuid.UUID) error {
	return r.db.WithContext(ctx).Create(&model.Bookmark{UserID: userID, PostID: postID}).Error
}

func (r *interactionRepository) DeleteBookmark(ctx context.Context, userID, postID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&model.Bookmark{}).Error
}

func (r *interactionRepository) BookmarkedPostIDs(ctx context.Context, userID uuid.UUID, limit, offset int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Bookmark{}).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Pluck("post_id", &ids).Error
	return ids, err
}

type countRow struct {
	PostID uuid.UUID
	Count  int64
}

func rowsToMap(rows []countRow) map[uuid.UUID]int64 {
	m := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		m[row.PostID] = row.Count
	}
	return m
}

func (r *interactionRepository) LikeCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	var rows []countRow
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", postIDs).
		Group("post_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToMap(rows), nil
}

func (r *interactionRepository) ReplyCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	var rows []countRow
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("parent_id as post_id, COUNT(*) as count").
		Where("parent_id IN ? AND is_deleted = ?", postIDs, false).
		Group("parent_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToMap(rows), nil
}

func (r *interactionRepository) RepostCounts(ctx context.Context, postIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	var rows []countRow
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Select("repost_id as post_id, COUNT(*) as count").
		Where("repost_id IN ? AND content = ? AND is_deleted = ?", postIDs, "", false).
		Group("repost_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rowsToMap(rows), nil
}

func (r *interactionRepository) LikedSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]bool{}, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

func (r *interactionRepository) BookmarkedSet(ctx context.Context, userID uuid.UUID, postIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	if len(postIDs) == 0 {
		return map[uuid.UUID]bool{}, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&model.Bookmark{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
