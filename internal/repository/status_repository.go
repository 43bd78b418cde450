package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

type StatusRepository interface {
	Get(ctx context.Context, studentID string) (*models.StatusRecord, error)
	Set(ctx context.Context, record *models.StatusRecord) error
}

type memoryStatusRepository struct {
	mu       sync.RWMutex
	statuses map[string]models.StatusRecord
	logger   zerolog.Logger
}

func NewMemoryStatusRepository(logger zerolog.Logger) StatusRepository {
	return &memoryStatusRepository{
		statuses: make(map[string]models.StatusRecord),
		logger:   logger,
	}
}

func (r *memoryStatusRepository) Get(ctx context.Context, studentID string) (*models.StatusRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.statuses[studentID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &rec, nil
}

func (r *memoryStatusRepository) Set(ctx context.Context, record *models.StatusRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.statuses[record.StudentID] = *record
	return nil
}

type statusRepository struct {
	*PostgresRepository
}

func NewStatusRepository(db *sql.DB, logger zerolog.Logger) StatusRepository {
	return &statusRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func (r *statusRepository) Get(ctx context.Context, studentID string) (*models.StatusRecord, error) {
	query := `
		SELECT student_id, status, updated_by, updated_at
		FROM application_statuses
		WHERE student_id = $1
	`

	rec := &models.StatusRecord{}
	err := r.db.QueryRowContext(ctx, query, studentID).Scan(
		&rec.StudentID,
		&rec.Status,
		&rec.UpdatedBy,
		&rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Label = rec.Status.Label()
	return rec, nil
}

func (r *statusRepository) Set(ctx context.Context, record *models.StatusRecord) error {
	query := `
		INSERT INTO application_statuses (student_id, status, updated_by, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (student_id) DO UPDATE SET
			status = EXCLUDED.status,
			updated_by = EXCLUDED.updated_by,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		record.StudentID,
		record.Status,
		record.UpdatedBy,
		record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to set application status: %w", err)
	}

	return nil
}
