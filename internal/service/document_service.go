package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/integration"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/storage"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/validator"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

type DocumentValidator interface {
	ValidateLatest(ctx context.Context, key string, file validator.FileMeta) error
}

type DocumentService interface {
	Submit(ctx context.Context, identity models.Identity, req *models.UploadDocumentRequest) (*models.SubmitDocumentResponse, error)
	Delete(ctx context.Context, identity models.Identity, id string) error
	SetStatus(ctx context.Context, identity models.Identity, id, status string) (*models.DocumentRecord, error)
	List(ctx context.Context, identity models.Identity, studentID, kind string) ([]models.DocumentRecord, error)
	Download(ctx context.Context, identity models.Identity, id string) (*DocumentFile, error)
}

// DocumentFile is an open stored file. The caller closes Content.
type DocumentFile struct {
	Record  models.DocumentRecord
	Content io.ReadCloser
	Size    int64
}

type documentService struct {
	repo          repository.DocumentRepository
	validator     DocumentValidator
	blobs         storage.BlobStore
	notifications NotificationService
	publisher     integration.EventPublisher
	runner        TaskRunner
	logger        zerolog.Logger
	now           func() time.Time
	newID         func() string
}

func NewDocumentService(
	repo repository.DocumentRepository,
	docValidator DocumentValidator,
	blobs storage.BlobStore,
	notifications NotificationService,
	publisher integration.EventPublisher,
	runner TaskRunner,
	logger zerolog.Logger,
) DocumentService {
	if runner == nil {
		runner = NewGoroutineRunner()
	}
	if publisher == nil {
		publisher = integration.NewNoopPublisher(logger)
	}
	return &documentService{
		repo:          repo,
		validator:     docValidator,
		blobs:         blobs,
		notifications: notifications,
		publisher:     publisher,
		runner:        runner,
		logger:        logger,
		now:           utcNow,
		newID:         uuid.NewString,
	}
}

func uploadKey(studentID string, kind models.DocumentKind) string {
	return studentID + "/" + kind.String()
}

func storageKey(studentID, recordID, fileName string) string {
	return fmt.Sprintf("documents/%s/%s%s", studentID, recordID, strings.ToLower(filepath.Ext(fileName)))
}

func (s *documentService) Submit(ctx context.Context, identity models.Identity, req *models.UploadDocumentRequest) (*models.SubmitDocumentResponse, error) {
	if err := authorizeStudent(identity, req.StudentID); err != nil {
		return nil, err
	}

	kind, err := models.ParseDocumentKind(req.Kind)
	if err != nil {
		return nil, err
	}
	info, _ := kind.Info()
	asReviewer := identity.IsReviewer()
	if info.ReviewerOnly && !asReviewer {
		return nil, models.ErrForbidden
	}

	file := validator.FileMeta{Name: req.FileName, MimeType: req.MimeType, Size: req.Size}
	if err := s.validator.ValidateLatest(ctx, uploadKey(req.StudentID, kind), file); err != nil {
		s.logger.Info().
			Err(err).
			Str("student_id", req.StudentID).
			Str("kind", kind.String()).
			Msg("Document rejected by validator")
		return nil, err
	}

	now := s.now()
	record := &models.DocumentRecord{
		ID:          s.newID(),
		StudentID:   req.StudentID,
		Kind:        kind,
		FileName:    req.FileName,
		MimeType:    validator.NormalizeMimeType(req.MimeType),
		Size:        req.Size,
		Status:      models.ReviewPending,
		SubmittedBy: identity.UserID,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if asReviewer {
		record.Status = models.ReviewVerified
	}
	if kind.IsRecurring() {
		record.Quarter = models.QuarterOf(now)
		record.Year = now.Year()
	}
	record.StorageKey = storageKey(record.StudentID, record.ID, record.FileName)

	if s.blobs != nil {
		err := s.blobs.Put(ctx, record.StorageKey, bytes.NewReader(req.Content), int64(len(req.Content)), record.MimeType)
		if err != nil {
			return nil, fmt.Errorf("failed to store document: %w", err)
		}
	}

	superseded, err := s.repo.Submit(ctx, record, repository.SubmitOptions{BypassQuota: asReviewer})
	if err != nil {
		s.removeBlobs(record.StorageKey)
		return nil, err
	}

	s.removeBlobs(lo.Map(superseded, func(r models.DocumentRecord, _ int) string { return r.StorageKey })...)

	s.logger.Info().
		Str("record_id", record.ID).
		Str("student_id", record.StudentID).
		Str("kind", kind.String()).
		Str("status", record.Status.String()).
		Int("superseded", len(superseded)).
		Msg("Document submitted")

	if asReviewer {
		notify(ctx, s.notifications, s.logger, record.StudentID,
			"Document Added",
			fmt.Sprintf("%s was added to your file by the review team.", kind.Label()),
			models.NotificationInfo,
		)
	} else {
		notify(ctx, s.notifications, s.logger, record.StudentID,
			"Document Submitted",
			fmt.Sprintf("%s was uploaded successfully and is pending review.", kind.Label()),
			models.NotificationSuccess,
		)
	}

	event := &models.DocumentSubmittedEvent{
		RecordID:    record.ID,
		StudentID:   record.StudentID,
		Kind:        kind.String(),
		Status:      record.Status.String(),
		Quarter:     record.Quarter,
		Year:        record.Year,
		Superseded:  len(superseded),
		SubmittedBy: record.SubmittedBy,
		Timestamp:   now.Unix(),
	}
	s.background(func(ctx context.Context) {
		if err := s.publisher.PublishDocumentSubmitted(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("record_id", event.RecordID).Msg("Failed to publish document submitted event")
		}
	})

	return &models.SubmitDocumentResponse{
		Record:     *record,
		Superseded: lo.Map(superseded, func(r models.DocumentRecord, _ int) string { return r.ID }),
	}, nil
}

func (s *documentService) Delete(ctx context.Context, identity models.Identity, id string) error {
	if err := authenticated(identity); err != nil {
		return err
	}

	opts := repository.DeleteOptions{AsReviewer: identity.IsReviewer()}
	switch identity.Role {
	case models.RoleReviewer:
	case models.RoleStudent:
		opts.OwnerID = identity.UserID
	default:
		return models.ErrForbidden
	}

	rec, err := s.repo.Delete(ctx, id, opts)
	if err != nil {
		return err
	}

	s.removeBlobs(rec.StorageKey)

	s.logger.Info().
		Str("record_id", rec.ID).
		Str("student_id", rec.StudentID).
		Str("deleted_by", identity.UserID).
		Msg("Document deleted")

	return nil
}

func (s *documentService) SetStatus(ctx context.Context, identity models.Identity, id, status string) (*models.DocumentRecord, error) {
	if err := requireReviewer(identity); err != nil {
		return nil, err
	}
	if !models.IsValidReviewStatus(status) {
		return nil, models.ErrInvalidReviewStatus
	}

	rec, err := s.repo.SetStatus(ctx, id, models.ReviewStatus(status))
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("record_id", rec.ID).
		Str("student_id", rec.StudentID).
		Str("status", status).
		Str("reviewer_id", identity.UserID).
		Msg("Document review status updated")

	switch rec.Status {
	case models.ReviewVerified:
		notify(ctx, s.notifications, s.logger, rec.StudentID,
			"Document Verified",
			fmt.Sprintf("%s has been verified.", rec.Kind.Label()),
			models.NotificationSuccess,
		)
	case models.ReviewRejected:
		notify(ctx, s.notifications, s.logger, rec.StudentID,
			"Document Rejected",
			fmt.Sprintf("%s was rejected. Please upload a new copy.", rec.Kind.Label()),
			models.NotificationError,
		)
	}

	event := &models.DocumentReviewedEvent{
		RecordID:   rec.ID,
		StudentID:  rec.StudentID,
		Kind:       rec.Kind.String(),
		Status:     rec.Status.String(),
		ReviewerID: identity.UserID,
		Timestamp:  s.now().Unix(),
	}
	s.background(func(ctx context.Context) {
		if err := s.publisher.PublishDocumentReviewed(ctx, event); err != nil {
			s.logger.Error().Err(err).Str("record_id", event.RecordID).Msg("Failed to publish document reviewed event")
		}
	})

	return rec, nil
}

func (s *documentService) List(ctx context.Context, identity models.Identity, studentID, kind string) ([]models.DocumentRecord, error) {
	if err := authorizeStudent(identity, studentID); err != nil {
		return nil, err
	}

	var filter models.DocumentKind
	if kind != "" {
		k, err := models.ParseDocumentKind(kind)
		if err != nil {
			return nil, err
		}
		filter = k
	}

	return s.repo.List(ctx, studentID, filter)
}

// Download opens the stored file of a record. Records of other students are
// reported as not found.
func (s *documentService) Download(ctx context.Context, identity models.Identity, id string) (*DocumentFile, error) {
	if err := authenticated(identity); err != nil {
		return nil, err
	}

	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !identity.CanAccessStudent(rec.StudentID) {
		return nil, models.ErrNotFound
	}
	if s.blobs == nil {
		return nil, models.ErrNotFound
	}

	content, size, err := s.blobs.Get(ctx, rec.StorageKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn().
			Str("record_id", rec.ID).
			Str("storage_key", rec.StorageKey).
			Msg("Document record has no stored file")
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}

	return &DocumentFile{Record: *rec, Content: content, Size: size}, nil
}

// background detaches fn from the request so it outlives the response.
func (s *documentService) background(fn func(ctx context.Context)) {
	if !s.runner.Submit(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fn(ctx)
	}) {
		s.logger.Warn().Msg("Background task dropped")
	}
}

func (s *documentService) removeBlobs(keys ...string) {
	if s.blobs == nil || len(keys) == 0 {
		return
	}
	s.background(func(ctx context.Context) {
		for _, key := range keys {
			if err := s.blobs.Delete(ctx, key); err != nil {
				s.logger.Error().Err(err).Str("storage_key", key).Msg("Failed to delete document blob")
			}
		}
	})
}
