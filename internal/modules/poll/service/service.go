package service

import (
	"context"
	"time"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/poll/dto"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
)

type PollService interface {
	// Vote records the viewer's choice. A repeat vote is reported, not
	// rejected; votes after expiry are.
	Vote(ctx context.Context, actorID, pollID uuid.UUID, optionIndex int) (*dto.VoteResponse, error)
	Results(ctx context.Context, viewerID *uuid.UUID, pollID uuid.UUID) (*pkgdto.PollResponse, error)
}

type pollService struct {
	repo                pollRepo.PollRepository
	postRepo            postRepo.PostRepository
	relationshipService relService.RelationshipService
}

func NewPollService(repo pollRepo.PollRepository, postRepository postRepo.PostRepository, relationshipService relService.RelationshipService) PollService {
	return &pollService{
		repo:                repo,
		postRepo:            postRepository,
		relationshipService: relationshipService,
	}
}

func (s *pollService) visiblePoll(ctx context.Context, viewerID *uuid.UUID, pollID uuid.UUID) (*model.Poll, error) {
	poll, err := s.repo.FindByID(ctx, pollID)
	if err != nil {
		return nil, err
	}
	post, err := s.postRepo.FindVisibleByID(ctx, poll.PostID)
	if err != nil {
		return nil, err
	}
	canView, err := s.relationshipService.CanView(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Wrap(apperror.ErrNotFound, "poll not found")
	}
	return poll, nil
}

func (s *pollService) buildResults(ctx context.Context, viewerID *uuid.UUID, poll *model.Poll) (*pkgdto.PollResponse, error) {
	tallies, err := s.repo.VoteCounts(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	options := poll.OptionList()
	voteCounts := make([]int64, len(options))
	var total int64
	for idx, n := range tallies {
		if idx >= 0 && idx < len(voteCounts) {
			voteCounts[idx] = n
		}
		total += n
	}

	resp := &pkgdto.PollResponse{
		ID:         poll.ID,
		Options:    options,
		ExpiresAt:  poll.ExpiresAt,
		TotalVotes: total,
		VoteCounts: voteCounts,
	}
	if viewerID != nil {
		vote, err := s.repo.FindVote(ctx, poll.ID, *viewerID)
		if err != nil {
			return nil, err
		}
		if vote != nil {
			idx := vote.OptionIndex
			resp.UserVoted = &idx
		}
	}
	return resp, nil
}

func (s *pollService) Vote(ctx context.Context, actorID, pollID uuid.UUID, optionIndex int) (*dto.VoteResponse, error) {
	poll, err := s.visiblePoll(ctx, &actorID, pollID)
	if err != nil {
		return nil, err
	}
	if poll.Expired(time.Now()) {
		return nil, apperror.Wrap(apperror.ErrForbidden, "this poll has closed")
	}
	if optionIndex < 0 || optionIndex >= len(poll.OptionList()) {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "option index out of range")
	}

	existing, err := s.repo.FindVote(ctx, poll.ID, actorID)
	if err != nil {
		return nil, err
	}
	alreadyVoted := existing != nil
	if !alreadyVoted {
		vote := &model.PollVote{
			PollID:      poll.ID,
			UserID:      actorID,
			OptionIndex: optionIndex,
		}
		if err := s.repo.CreateVote(ctx, vote); err != nil {
			// Two racing votes both pass the lookup; the loser hits
			// idx_poll_votes_unique. The surviving row is the vote.
			winner, ferr := s.repo.FindVote(ctx, poll.ID, actorID)
			if ferr != nil || winner == nil {
				return nil, err
			}
			alreadyVoted = true
		}
	}

	results, err := s.buildResults(ctx, &actorID, poll)
	if err != nil {
		return nil, err
	}
	return &dto.VoteResponse{AlreadyVoted: alreadyVoted, Poll: *results}, nil
}

func (s *pollService) Results(ctx context.Context, viewerID *uuid.UUID, pollID uuid.UUID) (*pkgdto.PollResponse, error) {
	poll, err := s.visiblePoll(ctx, viewerID, pollID)
	if err != nil {
		return nil, err
	}
	return s.buildResults(ctx, viewerID, poll)
}
