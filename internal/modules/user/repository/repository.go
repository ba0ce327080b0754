package repository

import (
	"context"
	"errors"
	"strings"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUUID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByHandle(ctx context.Context, handle string) (*model.User, error)
	// FindByHandles resolves a batch of handles case-insensitively, silently
	// skipping ones that don't exist. Used for mention fan-out.
	FindByHandles(ctx context.Context, handles []string) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Search(ctx context.Context, query string, limit, offset int) ([]model.User, error)
	// Suggestions returns non-suspended users the viewer doesn't follow yet,
	// most-followed first.
	Suggestions(ctx context.Context, viewerID uuid.UUID, limit int) ([]model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.ErrNotFound
	}
	return r.FindByUUID(ctx, uid)
}

func (r *userRepository) FindByUUID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByHandle(ctx context.Context, handle string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(handle) = ?", strings.ToLower(handle)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByHandles(ctx context.Context, handles []string) ([]model.User, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	lowered := make([]string, 0, len(handles))
	for _, h := range handles {
		lowered = append(lowered, strings.ToLower(h))
	}

	var users []model.User
	err := r.db.WithContext(ctx).
		Where("LOWER(handle) IN ?", lowered).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

func (r *userRepository) Search(ctx context.Context, query string, limit, offset int) ([]model.User, error) {
	var users []model.User
	pattern := "%" + strings.ToLower(query) + "%"
	err := r.db.WithContext(ctx).
		Where("(LOWER(handle) LIKE ? OR LOWER(display_name) LIKE ?) AND is_suspended = ?", pattern, pattern, false).
		Limit(limit).Offset(offset).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Suggestions(ctx context.Context, viewerID uuid.UUID, limit int) ([]model.User, error) {
	var users []model.User
	err := r.db.WithContext(ctx).
		Where("id <> ? AND is_suspended = ?", viewerID, false).
		Where("id NOT IN (?)", r.db.Model(&model.Follow{}).Select("followee_id").Where("follower_id = ?", viewerID)).
		Order("(SELECT COUNT(*) FROM follows WHERE followee_id = users.id) DESC").
		Limit(limit).
		Find(&users).Error
	return users, err
}
