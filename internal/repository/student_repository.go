package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

type StudentRepository interface {
	// Upsert stores enrollment facts and reports whether the profile is new.
	// Bank details of an existing profile are left untouched.
	Upsert(ctx context.Context, profile *models.StudentProfile) (bool, error)
	GetByID(ctx context.Context, id string) (*models.StudentProfile, error)
	UpdateBankDetails(ctx context.Context, id string, bank models.BankDetails) error
	List(ctx context.Context) ([]models.StudentProfile, error)
}

type memoryStudentRepository struct {
	mu       sync.RWMutex
	students map[string]models.StudentProfile
	logger   zerolog.Logger
}

func NewMemoryStudentRepository(logger zerolog.Logger) StudentRepository {
	return &memoryStudentRepository{
		students: make(map[string]models.StudentProfile),
		logger:   logger,
	}
}

func (r *memoryStudentRepository) Upsert(ctx context.Context, profile *models.StudentProfile) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.students[profile.ID]
	stored := *profile
	if ok {
		stored.BankDetails = existing.BankDetails
		stored.CreatedAt = existing.CreatedAt
	}
	r.students[profile.ID] = stored

	return !ok, nil
}

func (r *memoryStudentRepository) GetByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.students[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	if p.BankDetails != nil {
		bank := *p.BankDetails
		p.BankDetails = &bank
	}
	return &p, nil
}

func (r *memoryStudentRepository) UpdateBankDetails(ctx context.Context, id string, bank models.BankDetails) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.students[id]
	if !ok {
		return models.ErrNotFound
	}
	p.BankDetails = &bank
	p.UpdatedAt = nowUTC()
	r.students[id] = p

	return nil
}

func (r *memoryStudentRepository) List(ctx context.Context) ([]models.StudentProfile, error) {
	r.mu.RLock()
	out := make([]models.StudentProfile, 0, len(r.students))
	for _, p := range r.students {
		out = append(out, p)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StudentNumber < out[j].StudentNumber
	})

	return out, nil
}

const studentColumns = `id, first_name, last_name, student_number, email, university, course, year_of_study, residential_address, guardians, bank_details, created_at, updated_at`

type studentRepository struct {
	*PostgresRepository
}

func NewStudentRepository(db *sql.DB, logger zerolog.Logger) StudentRepository {
	return &studentRepository{
		PostgresRepository: NewPostgresRepository(db, logger),
	}
}

func scanStudent(s rowScanner) (*models.StudentProfile, error) {
	var (
		p         models.StudentProfile
		guardians []byte
		bank      []byte
	)

	err := s.Scan(
		&p.ID,
		&p.FirstName,
		&p.LastName,
		&p.StudentNumber,
		&p.Email,
		&p.University,
		&p.Course,
		&p.YearOfStudy,
		&p.ResidentialAddress,
		&guardians,
		&bank,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(guardians) > 0 {
		if err := json.Unmarshal(guardians, &p.Guardians); err != nil {
			return nil, fmt.Errorf("failed to decode guardians: %w", err)
		}
	}
	if len(bank) > 0 {
		var b models.BankDetails
		if err := json.Unmarshal(bank, &b); err != nil {
			return nil, fmt.Errorf("failed to decode bank details: %w", err)
		}
		p.BankDetails = &b
	}

	return &p, nil
}

func (r *studentRepository) Upsert(ctx context.Context, profile *models.StudentProfile) (bool, error) {
	guardians, err := json.Marshal(profile.Guardians)
	if err != nil {
		return false, fmt.Errorf("failed to encode guardians: %w", err)
	}

	query := `
		INSERT INTO students (id, first_name, last_name, student_number, email, university, course, year_of_study, residential_address, guardians, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			student_number = EXCLUDED.student_number,
			email = EXCLUDED.email,
			university = EXCLUDED.university,
			course = EXCLUDED.course,
			year_of_study = EXCLUDED.year_of_study,
			residential_address = EXCLUDED.residential_address,
			guardians = EXCLUDED.guardians,
			updated_at = EXCLUDED.updated_at
		RETURNING (xmax = 0) AS inserted
	`

	var inserted bool
	err = r.db.QueryRowContext(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.StudentNumber,
		profile.Email,
		profile.University,
		profile.Course,
		profile.YearOfStudy,
		profile.ResidentialAddress,
		guardians,
		profile.CreatedAt,
		profile.UpdatedAt,
	).Scan(&inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert student: %w", err)
	}

	return inserted, nil
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (*models.StudentProfile, error) {
	p, err := scanStudent(r.db.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return p, err
}

func (r *studentRepository) UpdateBankDetails(ctx context.Context, id string, bank models.BankDetails) error {
	payload, err := json.Marshal(bank)
	if err != nil {
		return fmt.Errorf("failed to encode bank details: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE students SET bank_details = $1, updated_at = $2 WHERE id = $3`,
		payload, nowUTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update bank details: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}

	return nil
}

func (r *studentRepository) List(ctx context.Context) ([]models.StudentProfile, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY student_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []models.StudentProfile{}
	for rows.Next() {
		p, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, *p)
	}

	return students, rows.Err()
}
