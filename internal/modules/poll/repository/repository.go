package repository

import (
	"context"
	"errors"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/pkg/apperror"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PollRepository interface {
	WithTx(tx *gorm.DB) PollRepository

	Create(ctx context.Context, poll *model.Poll) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Poll, error)
	// FindByPostID returns (nil, nil) when the post carries no poll.
	FindByPostID(ctx context.Context, postID uuid.UUID) (*model.Poll, error)
	FindByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.Poll, error)

	// FindVote returns (nil, nil) when the user has not voted.
	FindVote(ctx context.Context, pollID, userID uuid.UUID) (*model.PollVote, error)
	CreateVote(ctx context.Context, vote *model.PollVote) error
	// VoteCounts returns per-option tallies keyed by option index. Options
	// with no votes are absent.
	VoteCounts(ctx context.Context, pollID uuid.UUID) (map[int]int64, error)
	FindVotesByPolls(ctx context.Context, pollIDs []uuid.UUID, userID uuid.UUID) ([]model.PollVote, error)
}

type pollRepository struct {
	db *gorm.DB
}

func NewPollRepository(db *gorm.DB) PollRepository {
	return &pollRepository{db: db}
}

func (r *pollRepository) WithTx(tx *gorm.DB) PollRepository {
	return &pollRepository{db: tx}
}

func (r *pollRepository) Create(ctx context.Context, poll *model.Poll) error {
	return r.db.WithContext(ctx).Create(poll).Error
}

func (r *pollRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Poll, error) {
	var poll model.Poll
	err := r.db.WithContext(ctx).First(&poll, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Wrap(apperror.ErrNotFound, "poll not found")
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindByPostID(ctx context.Context, postID uuid.UUID) (*model.Poll, error) {
	var poll model.Poll
	err := r.db.WithContext(ctx).First(&poll, "post_id = ?", postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &poll, nil
}

func (r *pollRepository) FindByPostIDs(ctx context.Context, postIDs []uuid.UUID) ([]model.Poll, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var polls []model.Poll
	err := r.db.WithContext(ctx).Where("post_id IN ?", postIDs).Find(&polls).Error
	return polls, err
}

func (r *pollRepository) FindVote(ctx context.Context, pollID, userID uuid.UUID) (*model.PollVote, error) {
	var vote model.PollVote
	err := r.db.WithContext(ctx).
		Where("poll_id = ? AND user_id = ?", pollID, userID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *pollRepository) CreateVote(ctx context.Context, vote *model.PollVote) error {
	return r.db.WithContext(ctx).Create(vote).Error
}

func (r *pollRepository) VoteCounts(ctx context.Context, pollID uuid.UUID) (map[int]int64, error) {
	type row struct {
		OptionIndex int
		Count       int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&model.PollVote{}).
		Select("option_index, COUNT(*) as count").
		Where("poll_id = ?", pollID).
		Group("option_index").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[int]int64, len(rows))
	for _, r := range rows {
		counts[r.OptionIndex] = r.Count
	}
	return counts, nil
}

func (r *pollRepository) FindVotesByPolls(ctx context.Context, pollIDs []uuid.UUID, userID uuid.UUID) ([]model.PollVote, error) {
	if len(pollIDs) == 0 {
		return nil, nil
	}
	var votes []model.PollVote
	err := r.db.WithContext(ctx).
		Where("poll_id IN ? AND user_id = ?", pollIDs, userID).
		Find(&votes).Error
	return votes, err
}
