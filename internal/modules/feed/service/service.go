package service

import (
	"context"
	"strings"
	"time"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/feed/dto"
	feedRepo "chirpnet.io/chirp/internal/modules/feed/repository"
	interactionRepo "chirpnet.io/chirp/internal/modules/interaction/repository"
	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
)

const (
	trendingTagWindow  = 7 * 24 * time.Hour
	trendingPostWindow = 24 * time.Hour
	trendingLimit      = 10
	suggestionLimit    = 5
)

type FeedService interface {
	HomeTimeline(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]pkgdto.PostResponse, error)
	// ProfileTimeline serves a user's page by handle. Private accounts show
	// an empty page to non-followers; a block in either direction does the
	// same.
	ProfileTimeline(ctx context.Context, viewerID *uuid.UUID, handle string, limit, offset int) ([]pkgdto.PostResponse, error)
	// Thread returns a post with its direct replies, oldest reply first.
	Thread(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID, limit, offset int) (*dto.ThreadResponse, error)
	HashtagTimeline(ctx context.Context, viewerID *uuid.UUID, tag string, limit, offset int) ([]pkgdto.PostResponse, error)
	Bookmarks(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]pkgdto.PostResponse, error)
	Explore(ctx context.Context, viewerID *uuid.UUID) (*dto.ExploreResponse, error)
}

type feedService struct {
	repo                feedRepo.FeedRepository
	postRepo            postRepo.PostRepository
	userRepo            userRepo.UserRepository
	interactionRepo     interactionRepo.InteractionRepository
	relationshipService relService.RelationshipService
	aggregator          interactionService.Aggregator
}

func NewFeedService(
	repo feedRepo.FeedRepository,
	postRepository postRepo.PostRepository,
	userRepository userRepo.UserRepository,
	interactionRepository interactionRepo.InteractionRepository,
	relationshipService relService.RelationshipService,
	aggregator interactionService.Aggregator,
) FeedService {
	return &feedService{
		repo:                repo,
		postRepo:            postRepository,
		userRepo:            userRepository,
		interactionRepo:     interactionRepository,
		relationshipService: relationshipService,
		aggregator:          aggregator,
	}
}

func (s *feedService) HomeTimeline(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]pkgdto.PostResponse, error) {
	posts, err := s.repo.HomeTimeline(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Enrich(ctx, &viewerID, posts)
}

// canViewProfile gates a subject's page: blocks hide it entirely, private
// accounts require an accepted follow.
func (s *feedService) canViewProfile(ctx context.Context, viewerID *uuid.UUID, subject *model.User) (bool, error) {
	if viewerID != nil && *viewerID == subject.ID {
		return true, nil
	}
	if viewerID != nil {
		blocked, err := s.relationshipService.IsBlockedEither(ctx, *viewerID, subject.ID)
		if err != nil {
			return false, err
		}
		if blocked {
			return false, nil
		}
	}
	if !subject.IsPrivate {
		return true, nil
	}
	if viewerID == nil {
		return false, nil
	}
	return s.relationshipService.IsFollowing(ctx, *viewerID, subject.ID)
}

func (s *feedService) ProfileTimeline(ctx context.Context, viewerID *uuid.UUID, handle string, limit, offset int) ([]pkgdto.PostResponse, error) {
	subject, err := s.userRepo.FindByHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	visible, err := s.canViewProfile(ctx, viewerID, subject)
	if err != nil {
		return nil, err
	}
	if !visible {
		return []pkgdto.PostResponse{}, nil
	}

	posts, err := s.repo.ProfileTimeline(ctx, subject.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Enrich(ctx, viewerID, posts)
}

func (s *feedService) Thread(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID, limit, offset int) (*dto.ThreadResponse, error) {
	post, err := s.postRepo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	canView, err := s.relationshipService.CanView(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}

	enrichedPost, err := s.aggregator.EnrichOne(ctx, viewerID, post)
	if err != nil {
		return nil, err
	}

	replies, err := s.repo.Replies(ctx, post.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	enrichedReplies, err := s.aggregator.Enrich(ctx, viewerID, replies)
	if err != nil {
		return nil, err
	}

	return &dto.ThreadResponse{Post: *enrichedPost, Replies: enrichedReplies}, nil
}

func (s *feedService) HashtagTimeline(ctx context.Context, viewerID *uuid.UUID, tag string, limit, offset int) ([]pkgdto.PostResponse, error) {
	tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
	if tag == "" {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "tag cannot be empty")
	}
	posts, err := s.repo.HashtagTimeline(ctx, tag, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.aggregator.Enrich(ctx, viewerID, posts)
}

func (s *feedService) Bookmarks(ctx context.Context, viewerID uuid.UUID, limit, offset int) ([]pkgdto.PostResponse, error) {
	ids, err := s.interactionRepo.BookmarkedPostIDs(ctx, viewerID, limit, offset)
	if err != nil {
		return nil, err
	}
	posts, err := s.postRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	// Keep bookmark order (most recently saved first).
	byID := make(map[uuid.UUID]model.Post, len(posts))
	for _, p := range posts {
		byID[p.ID] = p
	}
	ordered := make([]model.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			ordered = append(ordered, p)
		}
	}
	return s.aggregator.Enrich(ctx, &viewerID, ordered)
}

func (s *feedService) Explore(ctx context.Context, viewerID *uuid.UUID) (*dto.ExploreResponse, error) {
	now := time.Now()

	tags, err := s.repo.TrendingHashtags(ctx, now.Add(-trendingTagWindow), trendingLimit)
	if err != nil {
		return nil, err
	}
	tagResponses := make([]dto.TrendingTagResponse, len(tags))
	for i, t := range tags {
		tagResponses[i] = dto.TrendingTagResponse{Tag: t.Tag, Count: t.Count}
	}

	posts, err := s.repo.TrendingPosts(ctx, now.Add(-trendingPostWindow), trendingLimit)
	if err != nil {
		return nil, err
	}
	enriched, err := s.aggregator.Enrich(ctx, viewerID, posts)
	if err != nil {
		return nil, err
	}

	resp := &dto.ExploreResponse{
		TrendingHashtags: tagResponses,
		TrendingPosts:    enriched,
	}

	if viewerID != nil {
		users, err := s.userRepo.Suggestions(ctx, *viewerID, suggestionLimit)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			resp.Suggestions = append(resp.Suggestions, pkgdto.AuthorResponse{
				ID:             u.ID,
				Handle:         u.Handle,
				DisplayName:    u.DisplayName,
				IsVerified:     u.IsVerified,
				IsCorpVerified: u.IsCorpVerified,
			})
		}
	}
	return resp, nil
}
