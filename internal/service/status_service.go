package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/rs/zerolog"
)

type StatusService interface {
	Get(ctx context.Context, identity models.Identity, studentID string) (*models.StatusRecord, error)
	Set(ctx context.Context, identity models.Identity, studentID, status string) (*models.StatusRecord, error)
}

type statusService struct {
	repo          repository.StatusRepository
	notifications NotificationService
	logger        zerolog.Logger
	now           func() time.Time
}

func NewStatusService(repo repository.StatusRepository, notifications NotificationService, logger zerolog.Logger) StatusService {
	return &statusService{
		repo:          repo,
		notifications: notifications,
		logger:        logger,
		now:           utcNow,
	}
}

func (s *statusService) Get(ctx context.Context, identity models.Identity, studentID string) (*models.StatusRecord, error) {
	if err := authorizeStudent(identity, studentID); err != nil {
		return nil, err
	}
	return currentStatus(ctx, s.repo, studentID)
}

// currentStatus falls back to pending_submission for students with no record.
func currentStatus(ctx context.Context, repo repository.StatusRepository, studentID string) (*models.StatusRecord, error) {
	rec, err := repo.Get(ctx, studentID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.StatusRecord{
			StudentID: studentID,
			Status:    models.AppStatusPendingSubmission,
			Label:     models.AppStatusPendingSubmission.Label(),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application status: %w", err)
	}

	rec.Label = rec.Status.Label()
	return rec, nil
}

func (s *statusService) Set(ctx context.Context, identity models.Identity, studentID, status string) (*models.StatusRecord, error) {
	if err := requireReviewer(identity); err != nil {
		return nil, err
	}

	next, err := models.ParseApplicationStatus(status)
	if err != nil {
		return nil, err
	}

	rec := &models.StatusRecord{
		StudentID: studentID,
		Status:    next,
		Label:     next.Label(),
		UpdatedBy: identity.UserID,
		UpdatedAt: s.now(),
	}
	if err := s.repo.Set(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to set application status: %w", err)
	}

	s.logger.Info().
		Str("student_id", studentID).
		Str("status", next.String()).
		Str("reviewer_id", identity.UserID).
		Msg("Application status updated")

	notify(ctx, s.notifications, s.logger, studentID,
		"Application status updated",
		fmt.Sprintf("Your application status is now %s.", next.Label()),
		statusNotificationType(next),
	)

	return rec, nil
}

func statusNotificationType(status models.ApplicationStatus) models.NotificationType {
	switch status {
	case models.AppStatusApproved:
		return models.NotificationSuccess
	case models.AppStatusActionRequired, models.AppStatusMoreInfoNeeded:
		return models.NotificationWarning
	default:
		return models.NotificationInfo
	}
}
