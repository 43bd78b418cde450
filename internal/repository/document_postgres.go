package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

const documentColumns = `id, student_id, kind, file_name, mime_type, size, storage_key, status, quarter, year, submitted_by, submitted_at, updated_at`

type documentRepository struct {
	*PostgresRepository
}

func NewDocumentRepository(db *sql.DB, logger zerolog.Logger) DocumentRepository {
	return &documentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func scanDocument(s rowScanner) (*models.DocumentRecord, error) {
	var (
		rec     models.DocumentRecord
		quarter sql.NullInt64
		year    sql.NullInt64
	)

	err := s.Scan(
		&rec.ID,
		&rec.StudentID,
		&rec.Kind,
		&rec.FileName,
		&rec.MimeType,
		&rec.Size,
		&rec.StorageKey,
		&rec.Status,
		&quarter,
		&year,
		&rec.SubmittedBy,
		&rec.SubmittedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rec.Quarter = int(quarter.Int64)
	rec.Year = int(year.Int64)
	return &rec, nil
}

func (r *documentRepository) Submit(ctx context.Context, record *models.DocumentRecord, opts SubmitOptions) ([]models.DocumentRecord, error) {
	var superseded []models.DocumentRecord

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		// serialises every submission of one student
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, record.StudentID); err != nil {
			return fmt.Errorf("failed to lock student documents: %w", err)
		}

		if record.Kind.IsRecurring() {
			var count int
			err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM documents WHERE student_id = $1 AND kind = $2 AND year = $3`,
				record.StudentID, record.Kind, record.Year,
			).Scan(&count)
			if err != nil {
				return fmt.Errorf("failed to count documents: %w", err)
			}
			if count >= record.Kind.MaxActive() && !opts.BypassQuota {
				return models.ErrQuotaExceeded
			}
		} else {
			rows, err := tx.QueryContext(ctx,
				`DELETE FROM documents WHERE student_id = $1 AND kind = $2 RETURNING `+documentColumns,
				record.StudentID, record.Kind,
			)
			if err != nil {
				return fmt.Errorf("failed to supersede documents: %w", err)
			}
			defer rows.Close()

			for rows.Next() {
				rec, err := scanDocument(rows)
				if err != nil {
					return err
				}
				superseded = append(superseded, *rec)
			}
			if err := rows.Err(); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO documents (` + documentColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`

		_, err := tx.ExecContext(ctx, query,
			record.ID,
			record.StudentID,
			record.Kind,
			record.FileName,
			record.MimeType,
			record.Size,
			record.StorageKey,
			record.Status,
			nullableInt(record.Quarter),
			nullableInt(record.Year),
			record.SubmittedBy,
			record.SubmittedAt,
			record.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return superseded, nil
}

func (r *documentRepository) Delete(ctx context.Context, id string, opts DeleteOptions) (*models.DocumentRecord, error) {
	if !isUUID(id) {
		return nil, models.ErrNotFound
	}

	var deleted *models.DocumentRecord

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1 FOR UPDATE`, id)
		rec, err := scanDocument(row)
		if errors.Is(err, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return err
		}

		if !opts.AsReviewer {
			if rec.StudentID != opts.OwnerID {
				return models.ErrNotFound
			}
			if rec.Status == models.ReviewVerified {
				return models.ErrForbidden
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}

		deleted = rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *documentRepository) SetStatus(ctx context.Context, id string, status models.ReviewStatus) (*models.DocumentRecord, error) {
	if !isUUID(id) {
		return nil, models.ErrNotFound
	}

	query := `
		UPDATE documents
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + documentColumns

	rec, err := scanDocument(r.db.QueryRowContext(ctx, query, status, nowUTC(), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return rec, err
}

func (r *documentRepository) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	if !isUUID(id) {
		return nil, models.ErrNotFound
	}

	rec, err := scanDocument(r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return rec, err
}

func (r *documentRepository) List(ctx context.Context, studentID string, kind models.DocumentKind) ([]models.DocumentRecord, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE student_id = $1`
	args := []any{studentID}
	if kind != "" {
		query += ` AND kind = $2`
		args = append(args, kind)
	}
	query += ` ORDER BY submitted_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.DocumentRecord{}
	for rows.Next() {
		rec, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}

	return records, rows.Err()
}
