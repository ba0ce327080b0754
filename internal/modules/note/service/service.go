package service

import (
	"context"

	"chirpnet.io/chirp/internal/model"
	"chirpnet.io/chirp/internal/modules/note/dto"
	noteRepo "chirpnet.io/chirp/internal/modules/note/repository"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	userRepo "chirpnet.io/chirp/internal/modules/user/repository"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NoteService interface {
	// SubmitNote proposes a community note on someone else's post.
	SubmitNote(ctx context.Context, authorID, postID uuid.UUID, req dto.SubmitNoteRequest) (*pkgdto.CommunityNoteResponse, error)
	// RateNote upserts the rater's helpful/not_helpful vote and recomputes
	// the note's counters from the rating rows. A note still in the proposed
	// state auto-approves once enough raters found it helpful.
	RateNote(ctx context.Context, raterID, noteID uuid.UUID, rating string) (*pkgdto.CommunityNoteResponse, error)
	// NotesForPost lists approved notes; moderators additionally see
	// proposed and rejected ones.
	NotesForPost(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) ([]pkgdto.CommunityNoteResponse, error)
	// NotesByStatus serves the moderation queue.
	NotesByStatus(ctx context.Context, status string, limit, offset int) ([]pkgdto.CommunityNoteResponse, error)
	// OverrideStatus is the moderator escape hatch around consensus.
	OverrideStatus(ctx context.Context, noteID uuid.UUID, status string) (*pkgdto.CommunityNoteResponse, error)
	DeleteNote(ctx context.Context, noteID uuid.UUID) error

	CreateStaffNote(ctx context.Context, authorID, postID uuid.UUID, req dto.StaffNoteRequest) (*pkgdto.StaffNoteResponse, error)
	DeleteStaffNote(ctx context.Context, id uuid.UUID) error
}

type noteService struct {
	db                  *gorm.DB
	repo                noteRepo.NoteRepository
	postRepo            postRepo.PostRepository
	userRepo            userRepo.UserRepository
	relationshipService relService.RelationshipService
}

func NewNoteService(db *gorm.DB, repo noteRepo.NoteRepository, postRepository postRepo.PostRepository, userRepository userRepo.UserRepository, relationshipService relService.RelationshipService) NoteService {
	return &noteService{
		db:                  db,
		repo:                repo,
		postRepo:            postRepository,
		userRepo:            userRepository,
		relationshipService: relationshipService,
	}
}

func validCategory(category string) bool {
	for _, c := range model.NoteCategories {
		if c == category {
			return true
		}
	}
	return false
}

func toResponse(n *model.CommunityNote) *pkgdto.CommunityNoteResponse {
	resp := &pkgdto.CommunityNoteResponse{
		ID:              n.ID,
		PostID:          n.PostID,
		Content:         n.Content,
		Sources:         n.SourceList(),
		Category:        n.Category,
		Status:          n.Status,
		HelpfulCount:    n.HelpfulCount,
		NotHelpfulCount: n.NotHelpfulCount,
		CreatedAt:       n.CreatedAt,
	}
	if n.Author != nil {
		resp.Author = &pkgdto.AuthorResponse{
			ID:             n.Author.ID,
			Handle:         n.Author.Handle,
			DisplayName:    n.Author.DisplayName,
			IsVerified:     n.Author.IsVerified,
			IsCorpVerified: n.Author.IsCorpVerified,
		}
	}
	return resp
}

func (s *noteService) SubmitNote(ctx context.Context, authorID, postID uuid.UUID, req dto.SubmitNoteRequest) (*pkgdto.CommunityNoteResponse, error) {
	post, err := s.postRepo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	canView, err := s.relationshipService.CanView(ctx, &authorID, post)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}
	if post.UserID == authorID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "you cannot annotate your own post")
	}

	category := req.Category
	if category == "" {
		category = "missing_context"
	}
	if !validCategory(category) {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown note category")
	}

	note := &model.CommunityNote{
		PostID:   post.ID,
		AuthorID: authorID,
		Content:  req.Content,
		Category: category,
		Status:   model.NoteStatusProposed,
	}
	if err := note.SetSources(req.Sources); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}
	return s.respondByID(ctx, note.ID)
}

func (s *noteService) respondByID(ctx context.Context, noteID uuid.UUID) (*pkgdto.CommunityNoteResponse, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	return toResponse(note), nil
}

func (s *noteService) RateNote(ctx context.Context, raterID, noteID uuid.UUID, rating string) (*pkgdto.CommunityNoteResponse, error) {
	if rating != model.RatingHelpful && rating != model.RatingNotHelpful {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "rating must be helpful or not_helpful")
	}

	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if note.AuthorID == raterID {
		return nil, apperror.Wrap(apperror.ErrForbidden, "you cannot rate your own note")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindRating(ctx, noteID, raterID)
		if err != nil {
			return err
		}
		if existing != nil {
			existing.Rating = rating
			if err := repo.SaveRating(ctx, existing); err != nil {
				return err
			}
		} else {
			vote := &model.NoteRating{NoteID: noteID, UserID: raterID, Rating: rating}
			if err := repo.SaveRating(ctx, vote); err != nil {
				return err
			}
		}

		helpful, notHelpful, err := repo.CountRatings(ctx, noteID)
		if err != nil {
			return err
		}
		note.HelpfulCount = int(helpful)
		note.NotHelpfulCount = int(notHelpful)

		// Consensus only promotes proposed notes. Moderator decisions stand.
		if note.Status == model.NoteStatusProposed && helpful >= model.NoteApprovalThreshold {
			note.Status = model.NoteStatusApproved
		}
		return repo.Update(ctx, note)
	})
	if err != nil {
		return nil, err
	}
	return s.respondByID(ctx, noteID)
}

func (s *noteService) NotesForPost(ctx context.Context, viewerID *uuid.UUID, postID uuid.UUID) ([]pkgdto.CommunityNoteResponse, error) {
	if _, err := s.postRepo.FindVisibleByID(ctx, postID); err != nil {
		return nil, err
	}
	notes, err := s.repo.FindByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}

	moderator := false
	if viewerID != nil {
		viewer, err := s.userRepo.FindByUUID(ctx, *viewerID)
		if err == nil {
			moderator = viewer.CanModerate()
		}
	}
	out := make([]pkgdto.CommunityNoteResponse, 0, len(notes))
	for i := range notes {
		n := &notes[i]
		if n.Status != model.NoteStatusApproved && !moderator {
			continue
		}
		out = append(out, *toResponse(n))
	}
	return out, nil
}

func (s *noteService) NotesByStatus(ctx context.Context, status string, limit, offset int) ([]pkgdto.CommunityNoteResponse, error) {
	switch status {
	case model.NoteStatusProposed, model.NoteStatusApproved, model.NoteStatusRejected:
	default:
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown note status")
	}
	notes, err := s.repo.FindByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]pkgdto.CommunityNoteResponse, len(notes))
	for i := range notes {
		out[i] = *toResponse(&notes[i])
	}
	return out, nil
}

func (s *noteService) OverrideStatus(ctx context.Context, noteID uuid.UUID, status string) (*pkgdto.CommunityNoteResponse, error) {
	if status != model.NoteStatusApproved && status != model.NoteStatusRejected {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "status must be approved or rejected")
	}
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}
	note.Status = status
	if err := s.repo.Update(ctx, note); err != nil {
		return nil, err
	}
	return toResponse(note), nil
}

func (s *noteService) DeleteNote(ctx context.Context, noteID uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, noteID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, noteID)
}

func validStaffNoteType(noteType string) bool {
	for _, t := range model.StaffNoteTypes {
		if t == noteType {
			return true
		}
	}
	return false
}

func (s *noteService) CreateStaffNote(ctx context.Context, authorID, postID uuid.UUID, req dto.StaffNoteRequest) (*pkgdto.StaffNoteResponse, error) {
	if _, err := s.postRepo.FindVisibleByID(ctx, postID); err != nil {
		return nil, err
	}

	noteType := req.NoteType
	if noteType == "" {
		noteType = "info"
	}
	if !validStaffNoteType(noteType) {
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown staff note type")
	}

	note := &model.StaffNote{
		PostID:   postID,
		AuthorID: authorID,
		Content:  req.Content,
		NoteType: noteType,
	}
	if err := s.repo.CreateStaffNote(ctx, note); err != nil {
		return nil, err
	}
	return &pkgdto.StaffNoteResponse{
		ID:        note.ID,
		Content:   note.Content,
		NoteType:  note.NoteType,
		CreatedAt: note.CreatedAt,
	}, nil
}

func (s *noteService) DeleteStaffNote(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteStaffNote(ctx, id)
}
