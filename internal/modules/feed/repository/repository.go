package repository

import (
	"context"
	"time"

	"chirpnet.io/chirp/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FeedRepository interface {
	// HomeTimeline returns the viewer's own posts plus posts from followed
	// authors, excluding muted authors and authors with a block in either
	// direction, newest first.
	HomeTimeline(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]model.Post, error)
	// ProfileTimeline returns the subject's non-reply posts, pinned first.
	ProfileTimeline(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]model.Post, error)
	// Replies returns a post's direct replies, oldest first.
	Replies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]model.Post, error)
	HashtagTimeline(ctx context.Context, tag string, limit, offset int) ([]model.Post, error)
	// TrendingHashtags ranks tags by post volume since the cutoff.
	TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]TrendingTag, error)
	// TrendingPosts ranks root posts created since the cutoff by like count.
	TrendingPosts(ctx context.Context, since time.Time, limit int) ([]model.Post, error)
}

type TrendingTag struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

type feedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) FeedRepository {
	return &feedRepository{db: db}
}

func (r *feedRepository) HomeTimeline(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	followed := r.db.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)
	muted := r.db.Model(&model.Mute{}).Select("muted_id").Where("muter_id = ?", viewerID)
	blockedByMe := r.db.Model(&model.Block{}).Select("blocked_id").Where("blocker_id = ?", viewerID)
	blockingMe := r.db.Model(&model.Block{}).Select("blocker_id").Where("blocked_id = ?", viewerID)

	err := r.db.WithContext(ctx).
		Preload("User").
		Where("is_deleted = ?", false).
		Where("(user_id = ? OR user_id IN (?))", viewerID, followed).
		Where("user_id NOT IN (?)", muted).
		Where("user_id NOT IN (?)", blockedByMe).
		Where("user_id NOT IN (?)", blockingMe).
		Order("created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) ProfileTimeline(ctx context.Context, subjectID uuid.UUID, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? AND parent_id IS NULL AND is_deleted = ?", subjectID, false).
		Order("is_pinned DESC, created_at DESC, id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) Replies(ctx context.Context, parentID uuid.UUID, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_id = ? AND is_deleted = ?", parentID, false).
		Order("created_at ASC, id ASC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) HashtagTimeline(ctx context.Context, tag string, limit, offset int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Joins("JOIN post_hashtags ON post_hashtags.post_id = posts.id").
		Joins("JOIN hashtags ON hashtags.id = post_hashtags.hashtag_id").
		Where("hashtags.tag = ? AND posts.is_deleted = ?", tag, false).
		Order("posts.created_at DESC, posts.id DESC").
		Limit(limit).Offset(offset).
		Find(&posts).Error
	return posts, err
}

func (r *feedRepository) TrendingHashtags(ctx context.Context, since time.Time, limit int) ([]TrendingTag, error) {
	var tags []TrendingTag
	err := r.db.WithContext(ctx).
		Model(&model.Hashtag{}).
		Select("hashtags.tag, COUNT(posts.id) as count").
		Joins("JOIN post_hashtags ON post_hashtags.hashtag_id = hashtags.id").
		Joins("JOIN posts ON posts.id = post_hashtags.post_id").
		Where("posts.created_at > ? AND posts.is_deleted = ?", since, false).
		Group("hashtags.tag").
		Order("count DESC").
		Limit(limit).
		Scan(&tags).Error
	return tags, err
}

func (r *feedRepository) TrendingPosts(ctx context.Context, since time.Time, limit int) ([]model.Post, error) {
	var posts []model.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("parent_id IS NULL AND repost_id IS NULL AND is_deleted = ? AND created_at > ?", false, since).
		Order("(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) DESC, created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}
