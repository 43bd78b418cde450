package service

import (
	"context"
	"sync"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/integration"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service/storage"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/validator"
	"github.com/rs/zerolog"
)

var (
	student  = models.Identity{UserID: "stu-1", Role: models.RoleStudent}
	other    = models.Identity{UserID: "stu-2", Role: models.RoleStudent}
	reviewer = models.Identity{UserID: "rev-1", Role: models.RoleReviewer}
	system   = models.Identity{UserID: "idp", Role: models.RoleSystem}
)

type inlineRunner struct{}

func (inlineRunner) Submit(task func()) bool {
	task()
	return true
}

type recordingPublisher struct {
	integration.EventPublisher

	mu        sync.Mutex
	submitted []models.DocumentSubmittedEvent
	reviewed  []models.DocumentReviewedEvent
}

func (p *recordingPublisher) PublishDocumentSubmitted(ctx context.Context, event *models.DocumentSubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submitted = append(p.submitted, *event)
	return nil
}

func (p *recordingPublisher) PublishDocumentReviewed(ctx context.Context, event *models.DocumentReviewedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reviewed = append(p.reviewed, *event)
	return nil
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type harness struct {
	documents     repository.DocumentRepository
	notifications NotificationService
	blobs         *storage.MemoryStorage
	publisher     *recordingPublisher
	clock         *fixedClock
	docs          *documentService
}

func newHarness(checker validator.ContentChecker) *harness {
	logger := zerolog.Nop()
	h := &harness{
		documents: repository.NewMemoryDocumentRepository(logger),
		blobs:     storage.NewMemoryStorage(),
		publisher: &recordingPublisher{},
		clock:     &fixedClock{now: time.Date(2026, time.May, 4, 10, 0, 0, 0, time.UTC)},
	}
	h.notifications = NewNotificationService(repository.NewMemoryNotificationRepository(logger), logger)

	v := validator.New(validator.Config{}, checker, logger)
	h.docs = NewDocumentService(h.documents, v, h.blobs, h.notifications, h.publisher, inlineRunner{}, logger).(*documentService)
	h.docs.now = h.clock.Now
	return h
}

func upload(studentID string, kind models.DocumentKind, name, mime string, size int64) *models.UploadDocumentRequest {
	return &models.UploadDocumentRequest{
		StudentID: studentID,
		Kind:      kind.String(),
		FileName:  name,
		MimeType:  mime,
		Size:      size,
		Content:   []byte("content of " + name),
	}
}
