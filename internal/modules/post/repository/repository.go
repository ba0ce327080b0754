package repository

import (
	"context"
	"errors"
	"strings"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostRepository interface {
	// WithTx rebinds the repository to a transaction so post mutations join
	// the caller's unit of work.
	WithTx(tx *gorm.DB) PostRepository

	Create(ctx context.Context, post *model.Post) error
	// FindByID returns the post regardless of its deleted flag. Callers that
	// serve reads should use FindVisibleByID.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	// FindVisibleByID returns NotFound for missing and soft-deleted posts.
	FindVisibleByID(ctx context.Context, id uuid.UUID) (*model.Post, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Post, error)
	Update(ctx context.Context, post *model.Post) error
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// FindRepost returns the user's repost row pointing at the original, or
	// (nil, nil) when none exists.
	FindRepost(ctx context.Context, userID, originalID uuid.UUID) (*model.Post, error)
	// HardDelete removes a post row outright. Used only for repost rows,
	// which carry no content of their own.
	HardDelete(ctx context.Context, id uuid.UUID) error
	RepostCount(ctx context.Context, postID uuid.UUID) (int64, error)

	// UnpinAll clears the pinned flag on every post of the user. Pinning is
	// exclusive per profile.
	UnpinAll(ctx context.Context, userID uuid.UUID) error
	SetPinned(ctx context.Context, id uuid.UUID, pinned bool) error

	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// FindOrCreateHashtag resolves the registry row for a lowercased tag.
	FindOrCreateHashtag(ctx context.Context, tag string) (*model.Hashtag, error)
	AttachHashtag(ctx context.Context, postID, hashtagID uuid.UUID) error

	// SearchContent is the SQL fallback for post search, newest first.
	SearchContent(ctx context.Context, query string, limit, offset int) ([]model.Post, error)
	SearchHashtags(ctx context.Context, query string, limit int) ([]model.Hashtag, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository {
	return &postRepository{db: tx}
}

func (r *postRepository) Create(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).Preload("User").First(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) FindVisibleByID(ctx context.Context, id uuid.UUID) (*model.Post, error) {
	post, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.IsDeleted {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}
	return post, nil
}

func (r *postRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Post, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id IN ? AND is_deleted = ?", ids, false).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) Update(ctx context.Context, post *model.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

func (r *postRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
}

func (r *postRepository) FindRepost(ctx context.Context, userID, originalID uuid.UUID) (*model.Post, error) {
	var post model.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND repost_id = ? AND content = ?", userID, originalID, "").
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) HardDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.Post{}, "id = ?", id).Error
}

func (r *postRepository) RepostCount(ctx context.Context, postID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("repost_id = ? AND content = ? AND is_deleted = ?", postID, "", false).
		Count(&count).Error
	return count, err
}

func (r *postRepository) UnpinAll(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("user_id = ? AND is_pinned = ?", userID, true).
		Update("is_pinned", false).Error
}

func (r *postRepository) SetPinned(ctx context.Context, id uuid.UUID, pinned bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("id = ?", id).
		Update("is_pinned", pinned).Error
}

func (r *postRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("user_id = ? AND is_deleted = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (r *postRepository) FindOrCreateHashtag(ctx context.Context, tag string) (*model.Hashtag, error) {
	tag = strings.ToLower(tag)
	hashtag := model.Hashtag{Tag: tag}
	err := r.db.WithContext(ctx).
		Where("tag = ?", tag).
		FirstOrCreate(&hashtag).Error
	if err != nil {
		return nil, err
	}
	return &hashtag, nil
}

func (r *postRepository) SearchContent(ctx context.Context, query string, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("LOWER(content) LIKE ? AND is_deleted = ?", pattern, false).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) SearchHashtags(ctx context.Context, query string, limit int) ([]model.Hashtag, error) {
	var hashtags []model.Hashtag
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Where("tag LIKE ?", pattern).
		Order("post_count DESC").
		Limit(limit).
		Find(&hashtags).Error
	return hashtags, err
}

func (r *postRepository) AttachHashtag(ctx context.Context, postID, hashtagID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.PostHashtag{PostID: postID, HashtagID: hashtagID}).Error
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.Hashtag{}).
		Where("id = ?", hashtagID).
		Update("post_count", gorm.Expr("post_count + 1")).Error
}
