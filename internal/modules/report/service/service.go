package service

import (
	"context"
	"time"

	"chirpnet.io/chirp/internal/model"
	postRepo "chirpnet.io/chirp/internal/modules/post/repository"
	relService "chirpnet.io/chirp/internal/modules/relationship/service"
	"chirpnet.io/chirp/internal/modules/report/dto"
	reportRepo "chirpnet.io/chirp/internal/modules/report/repository"
	"chirpnet.io/chirp/pkg/apperror"
	pkgdto "chirpnet.io/chirp/pkg/dto"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ReportActionResolve    = "resolve"
	ReportActionDismiss    = "dismiss"
	ReportActionDeletePost = "delete_post"
)

type ReportService interface {
	// SubmitReport files a complaint about a post. The reported user is
	// recorded from the post's author at submission time.
	SubmitReport(ctx context.Context, reporterID, postID uuid.UUID, req dto.SubmitReportRequest) (*pkgdto.ReportResponse, error)
	// ReportsByStatus serves the moderation queue.
	ReportsByStatus(ctx context.Context, status string, limit, offset int) ([]pkgdto.ReportResponse, error)
	// Resolve closes a report. delete_post additionally soft-deletes the
	// reported post in the same transaction.
	Resolve(ctx context.Context, moderatorID, reportID uuid.UUID, action string) (*pkgdto.ReportResponse, error)
}

type reportService struct {
	db                  *gorm.DB
	repo                reportRepo.ReportRepository
	postRepo            postRepo.PostRepository
	relationshipService relService.RelationshipService
}

func NewReportService(db *gorm.DB, repo reportRepo.ReportRepository, postRepository postRepo.PostRepository, relationshipService relService.RelationshipService) ReportService {
	return &reportService{
		db:                  db,
		repo:                repo,
		postRepo:            postRepository,
		relationshipService: relationshipService,
	}
}

func toResponse(r *model.Report) *pkgdto.ReportResponse {
	resp := &pkgdto.ReportResponse{
		ID:             r.ID,
		ReportedUserID: r.ReportedUserID,
		ReportedPostID: r.ReportedPostID,
		Reason:         r.Reason,
		Details:        r.Details,
		Status:         r.Status,
		ResolvedBy:     r.ResolvedBy,
		ResolvedAt:     r.ResolvedAt,
		CreatedAt:      r.CreatedAt,
	}
	if r.Reporter != nil {
		resp.Reporter = &pkgdto.AuthorResponse{
			ID:             r.Reporter.ID,
			Handle:         r.Reporter.Handle,
			DisplayName:    r.Reporter.DisplayName,
			IsVerified:     r.Reporter.IsVerified,
			IsCorpVerified: r.Reporter.IsCorpVerified,
		}
	}
	return resp
}

func (s *reportService) SubmitReport(ctx context.Context, reporterID, postID uuid.UUID, req dto.SubmitReportRequest) (*pkgdto.ReportResponse, error) {
	post, err := s.postRepo.FindVisibleByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	canView, err := s.relationshipService.CanView(ctx, &reporterID, post)
	if err != nil {
		return nil, err
	}
	if !canView {
		return nil, apperror.Wrap(apperror.ErrNotFound, "post not found")
	}

	report := &model.Report{
		ReporterID:     reporterID,
		ReportedUserID: &post.UserID,
		ReportedPostID: &post.ID,
		Reason:         req.Reason,
		Details:        req.Details,
		Status:         model.ReportStatusPending,
	}
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}
	created, err := s.repo.FindByID(ctx, report.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(created), nil
}

func (s *reportService) ReportsByStatus(ctx context.Context, status string, limit, offset int) ([]pkgdto.ReportResponse, error) {
	switch status {
	case model.ReportStatusPending, model.ReportStatusResolved, model.ReportStatusDismissed:
	default:
		return nil, apperror.Wrap(apperror.ErrInvalidInput, "unknown report status")
	}
	reports, err := s.repo.FindByStatus(ctx, status, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]pkgdto.ReportResponse, len(reports))
	for i := range reports {
		out[i] = *toResponse(&reports[i])
	}
	return out, nil
}

func (s *reportService) Resolve(ctx context.Context, moderatorID, reportID uuid.UUID, action string) (*pkgdto.ReportResponse, error) {
	report, err := s.repo.FindByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	status := model.ReportStatusResolved
	if action == ReportActionDismiss {
		status = model.ReportStatusDismissed
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if action == ReportActionDeletePost && report.ReportedPostID != nil {
			if err := s.postRepo.WithTx(tx).SoftDelete(ctx, *report.ReportedPostID); err != nil {
				return err
			}
		}

		now := time.Now()
		report.Status = status
		report.ResolvedBy = &moderatorID
		report.ResolvedAt = &now
		return s.repo.WithTx(tx).Update(ctx, report)
	})
	if err != nil {
		return nil, err
	}
	return toResponse(report), nil
}
