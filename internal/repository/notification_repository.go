package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

// NotificationRepository is an append-only log per student, newest first.
type NotificationRepository interface {
	Append(ctx context.Context, n *models.Notification) error
	// MarkRead is idempotent; unknown ids are ignored.
	MarkRead(ctx context.Context, studentID, id string) error
	List(ctx context.Context, studentID string) ([]models.Notification, error)
}

type memoryNotificationRepository struct {
	mu     sync.RWMutex
	logs   map[string][]models.Notification
	logger zerolog.Logger
}

func NewMemoryNotificationRepository(logger zerolog.Logger) NotificationRepository {
	return &memoryNotificationRepository{
		logs:   make(map[string][]models.Notification),
		logger: logger,
	}
}

func (r *memoryNotificationRepository) Append(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logs[n.StudentID]
	log = append(log, models.Notification{})
	copy(log[1:], log)
	log[0] = *n
	r.logs[n.StudentID] = log

	return nil
}

func (r *memoryNotificationRepository) MarkRead(ctx context.Context, studentID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logs[studentID]
	for i := range log {
		if log[i].ID == id {
			log[i].Read = true
			break
		}
	}

	return nil
}

func (r *memoryNotificationRepository) List(ctx context.Context, studentID string) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Notification, len(r.logs[studentID]))
	copy(out, r.logs[studentID])
	return out, nil
}

type notificationRepository struct {
	*PostgresRepository
}

func NewNotificationRepository(db *sql.DB, logger zerolog.Logger) NotificationRepository {
	return &notificationRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *notificationRepository) Append(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, student_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.StudentID,
		n.Title,
		n.Message,
		n.Type,
		n.Read,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}

	return nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, studentID, id string) error {
	if !isUUID(id) {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND student_id = $2`,
		id, studentID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationRepository) List(ctx context.Context, studentID string) ([]models.Notification, error) {
	query := `
		SELECT id, student_id, title, message, type, read, created_at
		FROM notifications
		WHERE student_id = $1
		ORDER BY seq DESC
	`

	rows, err := r.db.QueryContext(ctx, query, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := []models.Notification{}
	for rows.Next() {
		var n models.Notification
		err := rows.Scan(
			&n.ID,
			&n.StudentID,
			&n.Title,
			&n.Message,
			&n.Type,
			&n.Read,
			&n.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}

	return notifications, rows.Err()
}
