package service

import (
	"context"
	"fmt"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type NotificationService interface {
	// Append adds a notification to the student's log. It is called by the
	// other services and never exposed to callers directly.
	Append(ctx context.Context, studentID, title, message string, typ models.NotificationType) (*models.Notification, error)
	MarkRead(ctx context.Context, identity models.Identity, studentID, id string) error
	List(ctx context.Context, identity models.Identity, studentID string) (*models.NotificationsResponse, error)
	UnreadCount(ctx context.Context, identity models.Identity, studentID string) (int, error)
}

type notificationService struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		logger: logger,
		now:    utcNow,
	}
}

func (s *notificationService) Append(ctx context.Context, studentID, title, message string, typ models.NotificationType) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.NewString(),
		StudentID: studentID,
		Title:     title,
		Message:   message,
		Type:      typ,
		CreatedAt: s.now(),
	}

	if err := s.repo.Append(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to append notification: %w", err)
	}

	s.logger.Debug().
		Str("student_id", studentID).
		Str("title", title).
		Msg("Notification appended")

	return n, nil
}

func (s *notificationService) MarkRead(ctx context.Context, identity models.Identity, studentID, id string) error {
	if err := authorizeSelf(identity, studentID); err != nil {
		return err
	}
	return s.repo.MarkRead(ctx, studentID, id)
}

func (s *notificationService) List(ctx context.Context, identity models.Identity, studentID string) (*models.NotificationsResponse, error) {
	if err := authorizeSelf(identity, studentID); err != nil {
		return nil, err
	}

	list, err := s.repo.List(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return &models.NotificationsResponse{
		Notifications: list,
		Unread:        countUnread(list),
	}, nil
}

// UnreadCount backs the notification badge without shipping the whole log.
func (s *notificationService) UnreadCount(ctx context.Context, identity models.Identity, studentID string) (int, error) {
	if err := authorizeSelf(identity, studentID); err != nil {
		return 0, err
	}

	list, err := s.repo.List(ctx, studentID)
	if err != nil {
		return 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return countUnread(list), nil
}

func countUnread(list []models.Notification) int {
	return lo.CountBy(list, func(n models.Notification) bool { return !n.Read })
}

// notify appends a notification and only logs a failure; callers never
// fail because a notification could not be written.
func notify(ctx context.Context, svc NotificationService, logger zerolog.Logger, studentID, title, message string, typ models.NotificationType) {
	if svc == nil {
		return
	}
	if _, err := svc.Append(ctx, studentID, title, message, typ); err != nil {
		logger.Error().Err(err).Str("student_id", studentID).Str("title", title).Msg("Failed to append notification")
	}
}
