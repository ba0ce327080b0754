package repository

import (
	"context"
	"errors"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NoteRepository interface {
	WithTx(tx *gorm.DB) NoteRepository

	Create(ctx context.Context, note *model.CommunityNote) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CommunityNote, error)
	// FindByPostID returns every note on the post regardless of status,
	// newest first. Used by the moderation surface.
	FindByPostID(ctx context.Context, postID uuid.UUID) ([]model.CommunityNote, error)
	// FindApprovedByPostIDs returns approved notes for the given posts
	// ordered by helpful count. Callers cap the per-post fan-out.
	FindApprovedByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.CommunityNote, error)
	FindByStatus(ctx context.Context, status string, limit, offset int) ([]model.CommunityNote, error)
	Update(ctx context.Context, note *model.CommunityNote) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindRating returns (nil, nil) when the user has not rated the note.
	FindRating(ctx context.Context, noteID, userID uuid.UUID) (*model.NoteRating, error)
	SaveRating(ctx context.Context, rating *model.NoteRating) error
	// CountRatings tallies helpful and not-helpful ratings from the rating
	// rows. Note counters are always recomputed from this, never
	// incremented in place.
	CountRatings(ctx context.Context, noteID uuid.UUID) (helpful, notHelpful int64, err error)

	CreateStaffNote(ctx context.Context, note *model.StaffNote) error
	FindStaffNotesByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.StaffNote, error)
	DeleteStaffNote(ctx context.Context, id uuid.UUID) error
}

type noteRepository struct {
	db *gorm.DB
}

func NewNoteRepository(db *gorm.DB) NoteRepository {
	return &noteRepository{db: db}
}

func (r *noteRepository) WithTx(tx *gorm.DB) NoteRepository {
	return &noteRepository{db: tx}
}

func (r *noteRepository) Create(ctx context.Context, note *model.CommunityNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *noteRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.CommunityNote, error) {
	var note model.CommunityNote
	err := r.db.WithContext(ctx).Preload("Author").First(&note, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Wrap(apperror.ErrNotFound, "community note not found")
	}
	if err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *noteRepository) FindByPostID(ctx context.Context, postID uuid.UUID) ([]model.CommunityNote, error) {
	var notes []model.CommunityNote
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (r *noteRepository) FindApprovedByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.CommunityNote, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var notes []model.CommunityNote
	err := r.db.WithContext(ctx).
		Where("post_id IN ? AND status = ?", postIDs, model.NoteStatusApproved).
		Order("helpful_count DESC").
		Find(&notes).Error
	return notes, err
}

func (r *noteRepository) FindByStatus(ctx context.Context, status string, limit, offset int) ([]model.CommunityNote, error) {
	var notes []model.CommunityNote
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&notes).Error
	return notes, err
}

func (r *noteRepository) Update(ctx context.Context, note *model.CommunityNote) error {
	return r.db.WithContext(ctx).Save(note).Error
}

func (r *noteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&model.NoteRating{}, "note_id = ?", id).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(&model.CommunityNote{}, "id = ?", id).Error
}

func (r *noteRepository) FindRating(ctx context.Context, noteID, userID uuid.UUID) (*model.NoteRating, error) {
	var rating model.NoteRating
	err := r.db.WithContext(ctx).
		Where("note_id = ? AND user_id = ?", noteID, userID).
		First(&rating).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rating, nil
}

func (r *noteRepository) SaveRating(ctx context.Context, rating *model.NoteRating) error {
	return r.db.WithContext(ctx).Save(rating).Error
}

func (r *noteRepository) CountRatings(ctx context.Context, noteID uuid.UUID) (int64, int64, error) {
	var helpful, notHelpful int64
	err := r.db.WithContext(ctx).
		Model(&model.NoteRating{}).
		Where("note_id = ? AND rating = ?", noteID, model.RatingHelpful).
		Count(&helpful).Error
	if err != nil {
		return 0, 0, err
	}
	err = r.db.WithContext(ctx).
		Model(&model.NoteRating{}).
		Where("note_id = ? AND rating = ?", noteID, model.RatingNotHelpful).
		Count(&notHelpful).Error
	return helpful, notHelpful, err
}

func (r *noteRepository) CreateStaffNote(ctx context.Context, note *model.StaffNote) error {
	return r.db.WithContext(ctx).Create(note).Error
}

func (r *noteRepository) FindStaffNotesByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.StaffNote, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var notes []model.StaffNote
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (r *noteRepository) DeleteStaffNote(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.StaffNote{}, "id = ?", id).Error
}
