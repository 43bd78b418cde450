package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type StudentService interface {
	RegisterEnrollment(ctx context.Context, identity models.Identity, studentID string, req *models.EnrollmentRequest) (*models.StudentProfile, bool, error)
	UpdateBankDetails(ctx context.Context, identity models.Identity, studentID string, bank models.BankDetails) (*models.StudentProfile, error)
	Get(ctx context.Context, identity models.Identity, studentID string) (*models.StudentProfile, error)
	Directory(ctx context.Context, identity models.Identity) ([]models.StudentSummary, error)
}

type studentService struct {
	students      repository.StudentRepository
	documents     repository.DocumentRepository
	statuses      repository.StatusRepository
	notifications NotificationService
	logger        zerolog.Logger
	now           func() time.Time
}

func NewStudentService(
	students repository.StudentRepository,
	documents repository.DocumentRepository,
	statuses repository.StatusRepository,
	notifications NotificationService,
	logger zerolog.Logger,
) StudentService {
	return &studentService{
		students:      students,
		documents:     documents,
		statuses:      statuses,
		notifications: notifications,
		logger:        logger,
		now:           utcNow,
	}
}

// RegisterEnrollment stores the enrollment facts pushed by the identity
// provider. Only the first registration sends the welcome notification.
func (s *studentService) RegisterEnrollment(ctx context.Context, identity models.Identity, studentID string, req *models.EnrollmentRequest) (*models.StudentProfile, bool, error) {
	if err := authenticated(identity); err != nil {
		return nil, false, err
	}
	if identity.Role != models.RoleSystem {
		return nil, false, models.ErrForbidden
	}

	if strings.TrimSpace(studentID) == "" ||
		strings.TrimSpace(req.FirstName) == "" ||
		strings.TrimSpace(req.LastName) == "" ||
		strings.TrimSpace(req.StudentNumber) == "" {
		return nil, false, fmt.Errorf("%w: first name, last name and student number are required", models.ErrInvalidProfile)
	}
	if req.YearOfStudy < 0 {
		return nil, false, fmt.Errorf("%w: year of study must not be negative", models.ErrInvalidProfile)
	}

	now := s.now()
	profile := &models.StudentProfile{
		ID:                 studentID,
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		StudentNumber:      strings.TrimSpace(req.StudentNumber),
		Email:              strings.TrimSpace(req.Email),
		University:         req.University,
		Course:             req.Course,
		YearOfStudy:        req.YearOfStudy,
		ResidentialAddress: req.ResidentialAddress,
		Guardians:          req.Guardians,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	created, err := s.students.Upsert(ctx, profile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store profile: %w", err)
	}

	if created {
		s.logger.Info().Str("student_id", studentID).Msg("Student registered")
		notify(ctx, s.notifications, s.logger, studentID,
			"Welcome to SRF",
			"Please complete your profile and upload initial documents.",
			models.NotificationInfo,
		)
	}

	stored, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, false, err
	}
	return stored, created, nil
}

func (s *studentService) UpdateBankDetails(ctx context.Context, identity models.Identity, studentID string, bank models.BankDetails) (*models.StudentProfile, error) {
	if err := authorizeSelf(identity, studentID); err != nil {
		return nil, err
	}
	if err := validateBankDetails(&bank); err != nil {
		return nil, err
	}

	if err := s.students.UpdateBankDetails(ctx, studentID, bank); err != nil {
		return nil, err
	}

	s.logger.Info().Str("student_id", studentID).Msg("Bank details updated")

	return s.students.GetByID(ctx, studentID)
}

func validateBankDetails(bank *models.BankDetails) error {
	bank.AccountHolder = strings.TrimSpace(bank.AccountHolder)
	bank.BankName = strings.TrimSpace(bank.BankName)
	bank.BranchCode = strings.TrimSpace(bank.BranchCode)
	bank.AccountNumber = strings.Join(strings.Fields(bank.AccountNumber), "")

	if bank.AccountHolder == "" || bank.BankName == "" {
		return fmt.Errorf("%w: account holder and bank name are required", models.ErrInvalidBankDetails)
	}
	if len(bank.AccountNumber) < 4 || strings.Trim(bank.AccountNumber, "0123456789") != "" {
		return fmt.Errorf("%w: account number must contain at least 4 digits and nothing else", models.ErrInvalidBankDetails)
	}
	return nil
}

func (s *studentService) Get(ctx context.Context, identity models.Identity, studentID string) (*models.StudentProfile, error) {
	if err := authorizeStudent(identity, studentID); err != nil {
		return nil, err
	}

	profile, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	if identity.IsReviewer() && profile.BankDetails != nil {
		masked := profile.BankDetails.Masked()
		profile.BankDetails = &masked
	}

	return profile, nil
}

// Directory lists every registered student with status and progress.
func (s *studentService) Directory(ctx context.Context, identity models.Identity) ([]models.StudentSummary, error) {
	if err := requireReviewer(identity); err != nil {
		return nil, err
	}

	profiles, err := s.students.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	out := make([]models.StudentSummary, 0, len(profiles))
	for _, p := range profiles {
		records, err := s.documents.List(ctx, p.ID, "")
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		status, err := currentStatus(ctx, s.statuses, p.ID)
		if err != nil {
			return nil, err
		}

		pending := lo.CountBy(records, func(r models.DocumentRecord) bool {
			return r.Status == models.ReviewPending
		})

		out = append(out, models.StudentSummary{
			ID:              p.ID,
			Name:            p.FullName(),
			StudentNumber:   p.StudentNumber,
			University:      p.University,
			Course:          p.Course,
			Status:          status.Status,
			StatusLabel:     status.Label,
			ProgressPercent: Progress(records).Percent,
			DocumentCount:   len(records),
			PendingReview:   pending,
		})
	}

	return out, nil
}
