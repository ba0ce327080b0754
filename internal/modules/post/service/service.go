package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"chirpnet.io/chirp/internal/model"
	interactionService "chirpnet.io/chirp/internal/modules/interaction/service"
	notifService "chirpnet.io/chirp/internal/modules/notification/service"
	pollRepo "chirpnet.io/chirp/internal/modules/poll/repository"
	"chirpnet.io/chirp/internal/modules/post/dto"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	searchService "chirpnet.io/chirp/internal/modules/search/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultPollDuration = 24 * time.Hour

type PostService interface {
	CreatePost(ctx context.Context, authorID uuid.UUID, req dto.CreatePostRequest) (*pkgdto.PostResponse, error)
	Reply(ctx context.Context, authorID, parentID uuid.UUID, content string) (*pkgdto.PostResponse, error)
	GetPost(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) (*pkgdto.PostResponse, error)
	// EditPost rewrites the content within the edit window, preserving the
	// prior content in the post's edit history.
	EditPost(ctx context.Context, authorID, postID uuid.UUID, content string) (*pkgdto.PostResponse, error)
	GetEditHistory(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) (*dto.EditHistoryResponse, error)
	// DeletePost soft-deletes. Allowed for the author and for moderators.
	DeletePost(ctx context.Context, actorID, postID uuid.UUID) error
	// ToggleRepost flips the actor's zero-content repost row for the post.
	ToggleRepost(ctx context.Context, actorID, postID uuid.UUID) (bool, error)
	// TogglePin flips the pinned flag; at most one post per author is pinned.
	TogglePin(ctx context.Context, actorID, postID uuid.UUID) (bool, error)
}

type postService struct {
	db                  *gorm.DB
	repo                postRepo.PostRepository
	pollRepo            pollRepo.PollRepository
	userRepo            userRepo.UserRepository
	relationshipService relService.RelationshipService
	notificationService notifService.NotificationService
	aggregator          interactionService.Aggregator
	searchService       searchService.SearchService
	editWindow          time.Duration
}

func NewPostService(
	db *gorm.DB,
	repo postRepo.PostRepository,
	pollRepository pollRepo.PollRepository,
	userRepository userRepo.UserRepository,
	relationshipService relService.RelationshipService,
	notificationService notifService.NotificationService,
	aggregator interactionService.Aggregator,
	search searchService.SearchService,
	editWindow time.Duration,
) PostService {
	if editWindow <= 0 {
		editWindow = 30 * time.Minute
	}
	return &postService{
		db:                  db,
		repo:                repo,
		pollRepo:            pollRepository,
		userRepo:            userRepository,
		relationshipService: relationshipService,
		notificationService: notificationService,
		aggregator:          aggregator,
		searchService:       search,
		editWindow:          editWindow,
	}
}

func (s *postService) visiblePost(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) (*model.Post, error) {
	post, err := s.repo.FindVisibleByID(ctx, postID)
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
	return post, nil
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return apperror.Wrap(apperror.ErrInvalidInput, "content cannot be empty")
	}
	if utf8.RuneCountInString(content) > model.MaxPostLength {
		return apperror.Wrap(apperror.ErrInvalidInput, "content exceeds maximum length")
	}
	return nil
}

func validatePoll(req *dto.CreatePollRequest) error {
	if len(req.Options) < model.MinPollOptions || len(req.Options) > model.MaxPollOptions {
		return apperror.Wrap(apperror.ErrInvalidInput, "polls need between 2 and 4 options")
	}
	for _, opt := range req.Options {
		if strings.TrimSpace(opt) == "" {
			return apperror.Wrap(apperror.ErrInvalidInput, "poll options cannot be empty")
		}
	}
	return nil
}

// attachHashtags maintains the tag registry inside the post's transaction.
func (s *postService) attachHashtags(ctx context.Context, repo postRepo.PostRepository, post *model.Post) error {
	for _, tag := range extractHashtags(post.Content) {
		hashtag, err := repo.FindOrCreateHashtag(ctx, tag)
		if err != nil {
			return err
		}
		if err := repo.AttachHashtag(ctx, post.ID, hashtag.ID); err != nil {
			return err
		}
	}
	return nil
}

// mentionRecipients resolves @handles to user ids, skipping any listed in
// exclude so a user is not notified twice for the same post.
func (s *postService) mentionRecipients(ctx context.Context, content string, exclude ...uuid.UUID) ([]uuid.UUID, error) {
	handles := extractMentions(content)
	if len(handles) == 0 {
		return nil, nil
	}
	users, err := s.userRepo.FindByHandles(ctx, handles)
	if err != nil {
		return nil, err
	}
	excluded := make(map[uuid.UUID]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}
	var recipients []uuid.UUID
	for _, u := range users {
		if !excluded[u.ID] {
			recipients = append(recipients, u.ID)
		}
	}
	return recipients, nil
}

func (s *postService) CreatePost(ctx context.Context, authorID uuid.UUID, req dto.CreatePostRequest) (*pkgdto.PostResponse, error) {
	if err := validateContent(req.Content); err != nil {
		return nil, err
	}
	if req.Poll != nil {
		if err := validatePoll(req.Poll); err != nil {
			return nil, err
		}
	}
	if req.QuoteID != nil {
		if _, err := s.visiblePost(ctx, &authorID, *req.QuoteID); err != nil {
			return nil, err
		}
	}

	post := &model.Post{
		UserID:  authorID,
		Content: req.Content,
		QuoteID: req.QuoteID,
	}

	var created []model.Notification
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Create(ctx, post); err != nil {
			return err
		}
		if err := s.attachHashtags(ctx, repo, post); err != nil {
			return err
		}

		if req.Poll != nil {
			duration := defaultPollDuration
			if req.Poll.DurationHours > 0 {
				duration = time.Duration(req.Poll.DurationHours) * time.Hour
			}
			poll := &model.Poll{
				PostID:    post.ID,
				ExpiresAt: time.Now().Add(duration),
			}
			if err := poll.SetOptions(req.Poll.Options); err != nil {
				return err
			}
			if err := s.pollRepo.WithTx(tx).Create(ctx, poll); err != nil {
				return err
			}
		}

		recipients, err := s.mentionRecipients(ctx, post.Content)
		if err != nil {
			return err
		}
		created, err = s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationMention,
			ActorID:    authorID,
			Recipients: recipients,
			PostID:     &post.ID,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.Publish(ctx, created)

	full, err := s.repo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.searchService.IndexPost(full)
	return s.aggregator.EnrichOne(ctx, &authorID, full)
}

func (s *postService) Reply(ctx context.Context, authorID, parentID uuid.UUID, content string) (*pkgdto.PostResponse, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	parent, err := s.visiblePost(ctx, &authorID, parentID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID:   authorID,
		Content:  content,
		ParentID: &parent.ID,
	}

	var created []model.Notification
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if err := repo.Create(ctx, post); err != nil {
			return err
		}
		if err := s.attachHashtags(ctx, repo, post); err != nil {
			return err
		}

		replyNotifs, err := s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationReply,
			ActorID:    authorID,
			Recipients: []uuid.UUID{parent.UserID},
			PostID:     &post.ID,
		})
		if err != nil {
			return err
		}

		// The parent author already gets a reply notification.
		recipients, err := s.mentionRecipients(ctx, content, parent.UserID)
		if err != nil {
			return err
		}
		mentionNotifs, err := s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationMention,
			ActorID:    authorID,
			Recipients: recipients,
			PostID:     &post.ID,
		})
		if err != nil {
			return err
		}
		created = append(replyNotifs, mentionNotifs...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notificationService.Publish(ctx, created)
	s.aggregator.InvalidateCounts(ctx, parent.ID)

	full, err := s.repo.FindByID(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	s.searchService.IndexPost(full)
	return s.aggregator.EnrichOne(ctx, &authorID, full)
}

func (s *postService) GetPost(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) (*pkgdto.PostResponse, error) {
	post, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.EnrichOne(ctx, viewerID, post)
}

func (s *postService) EditPost(ctx context.Context, authorID, postID uuid.UUID, content string) (*pkgdto.PostResponse, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}
	post, err := s.repo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.UserID != authorID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "you can only edit your own posts")
	}
	if post.IsRepost() {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "reposts cannot be edited")
	}
	now := time.Now()
	if now.Sub(post.CreatedAt) > s.editWindow {
		return nil, apperror.Wrap(apperror.ErrForbidden, "the edit window for this post has closed")
	}

	var history []model.EditSnapshot
	if err := json.Unmarshal([]byte(post.EditHistory), &history); err != nil {
		history = nil
	}
	history = append(history, model.EditSnapshot{Content: post.Content, EditedAt: now})
	raw, err := json.Marshal(history)
	if err != nil {
		return nil, err
	}

	post.Content = content
	post.EditHistory = string(raw)
	post.IsEdited = true
	post.EditedAt = &now
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}

	s.searchService.IndexPost(post)
	return s.aggregator.EnrichOne(ctx, &authorID, post)
}

func (s *postService) GetEditHistory(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) (*dto.EditHistoryResponse, error) {
	post, err := s.visiblePost(ctx, viewerID, postID)
	if err != nil {
		return nil, err
	}

	var history []model.EditSnapshot
	if err := json.Unmarshal([]byte(post.EditHistory), &history); err != nil {
		history = nil
	}
	entries := make([]dto.EditHistoryEntry, len(history))
	for i, h := range history {
		entries[i] = dto.EditHistoryEntry{Content: h.Content, EditedAt: h.EditedAt}
	}
	return &dto.EditHistoryResponse{
		PostID:   post.ID,
		IsEdited: post.IsEdited,
		EditedAt: post.EditedAt,
		History:  entries,
	}, nil
}

func (s *postService) DeletePost(ctx context.Context, actorID, postID uuid.UUID) error {
	post, err := s.repo.FindVisibleByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != actorID {
		actor, err := s.userRepo.FindByUUID(ctx, actorID)
		if err != nil {
			return err
		}
		if !actor.CanModerate() {
			return apperror.Wrap(apperror.ErrForbidden, "you can only delete your own posts")
		}
	}

	if err := s.repo.SoftDelete(ctx, post.ID); err != nil {
		return err
	}

	s.searchService.RemovePost(post.ID)
	invalidate := []uuid.UUID{post.ID}
	if post.ParentID != nil {
		invalidate = append(invalidate, *post.ParentID)
	}
	if post.RepostID != nil {
		invalidate = append(invalidate, *post.RepostID)
	}
	s.aggregator.InvalidateCounts(ctx, invalidate...)
	return nil
}

func (s *postService) ToggleRepost(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	original, err := s.visiblePost(ctx, &actorID, postID)
	if err != nil {
		return false, err
	}
	// Reposting a repost targets the original.
	if original.IsRepost() {
		if original, err = s.visiblePost(ctx, &actorID, *original.RepostID); err != nil {
			return false, err
		}
	}
	originalID := original.ID

	var reposted bool
	var created []model.Notification

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindRepost(ctx, actorID, originalID)
		if err != nil {
			return err
		}
		if existing != nil {
			reposted = false
			return repo.HardDelete(ctx, existing.ID)
		}

		repost := &model.Post{
			UserID:   actorID,
			Content:  "",
			RepostID: &originalID,
		}
		if err := repo.Create(ctx, repost); err != nil {
			return err
		}
		reposted = true

		created, err = s.notificationService.FanOut(ctx, tx, notifService.Event{
			Type:       model.NotificationRepost,
			ActorID:    actorID,
			Recipients: []uuid.UUID{original.UserID},
			PostID:     &originalID,
		})
		return err
	})
	if err != nil {
		return false, err
	}

	s.notificationService.Publish(ctx, created)
	s.aggregator.InvalidateCounts(ctx, originalID)
	return reposted, nil
}

func (s *postService) TogglePin(ctx context.Context, actorID, postID uuid.UUID) (bool, error) {
	post, err := s.repo.FindVisibleByID(ctx, postID)
	if err != nil {
		return false, err
	}
	if post.UserID != actorID {
		return false, apperror.Wrap(apperror.ErrForbidden, "you can only pin your own posts")
	}

	if post.IsPinned {
		return false, s.repo.SetPinned(ctx, post.ID, false)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UnpinAll(ctx, actorID); err != nil {
			return err
		}
		return repo.SetPinned(ctx, post.ID, true)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
