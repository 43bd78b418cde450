package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/rs/zerolog"
)

type SubmitOptions struct {
	// BypassQuota lets reviewers exceed the recurring-kind cap.
	BypassQuota bool
}

type DeleteOptions struct {
	OwnerID    string
	AsReviewer bool
}

// DocumentRepository is the record store. Every mutation is atomic per student.
type DocumentRepository interface {
	// Submit stores record and returns the one-time records it superseded.
	Submit(ctx context.Context, record *models.DocumentRecord, opts SubmitOptions) ([]models.DocumentRecord, error)
	Delete(ctx context.Context, id string, opts DeleteOptions) (*models.DocumentRecord, error)
	SetStatus(ctx context.Context, id string, status models.ReviewStatus) (*models.DocumentRecord, error)
	Get(ctx context.Context, id string) (*models.DocumentRecord, error)
	// List returns records ordered by submission time, oldest first. An
	// empty kind matches every kind.
	List(ctx context.Context, studentID string, kind models.DocumentKind) ([]models.DocumentRecord, error)
}

type studentShelf struct {
	mu      sync.Mutex
	records []models.DocumentRecord
}

type memoryDocumentRepository struct {
	mu      sync.RWMutex
	shelves map[string]*studentShelf
	// record id -> student id
	index  map[string]string
	logger zerolog.Logger
}

func NewMemoryDocumentRepository(logger zerolog.Logger) DocumentRepository {
	return &memoryDocumentRepository{
		shelves: make(map[string]*studentShelf),
		index:   make(map[string]string),
		logger:  logger,
	}
}

func (r *memoryDocumentRepository) shelf(studentID string, create bool) *studentShelf {
	r.mu.RLock()
	s, ok := r.shelves[studentID]
	r.mu.RUnlock()
	if ok || !create {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.shelves[studentID]; !ok {
		s = &studentShelf{}
		r.shelves[studentID] = s
	}
	return s
}

func (r *memoryDocumentRepository) shelfForRecord(id string) *studentShelf {
	r.mu.RLock()
	studentID, ok := r.index[id]
	r.mu.RUnlock()
	if !ok {
		return nil
	}
	return r.shelf(studentID, false)
}

func (r *memoryDocumentRepository) Submit(ctx context.Context, record *models.DocumentRecord, opts SubmitOptions) ([]models.DocumentRecord, error) {
	s := r.shelf(record.StudentID, true)
	s.mu.Lock()
	defer s.mu.Unlock()

	var superseded []models.DocumentRecord

	if record.Kind.IsRecurring() {
		count := 0
		for _, rec := range s.records {
			if rec.Kind == record.Kind && rec.Year == record.Year {
				count++
			}
		}
		if count >= record.Kind.MaxActive() && !opts.BypassQuota {
			return nil, models.ErrQuotaExceeded
		}
	} else {
		kept := s.records[:0]
		for _, rec := range s.records {
			if rec.Kind == record.Kind {
				superseded = append(superseded, rec)
				continue
			}
			kept = append(kept, rec)
		}
		s.records = kept
	}

	s.records = append(s.records, *record)

	r.mu.Lock()
	for _, rec := range superseded {
		delete(r.index, rec.ID)
	}
	r.index[record.ID] = record.StudentID
	r.mu.Unlock()

	return superseded, nil
}

func (r *memoryDocumentRepository) Delete(ctx context.Context, id string, opts DeleteOptions) (*models.DocumentRecord, error) {
	s := r.shelfForRecord(id)
	if s == nil {
		return nil, models.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// the record may have gone while we waited for the shelf
	pos := -1
	for i := range s.records {
		if s.records[i].ID == id {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, models.ErrNotFound
	}

	rec := s.records[pos]
	if !opts.AsReviewer {
		if rec.StudentID != opts.OwnerID {
			return nil, models.ErrNotFound
		}
		if rec.Status == models.ReviewVerified {
			return nil, models.ErrForbidden
		}
	}

	s.records = append(s.records[:pos], s.records[pos+1:]...)

	r.mu.Lock()
	delete(r.index, id)
	r.mu.Unlock()

	return &rec, nil
}

func (r *memoryDocumentRepository) SetStatus(ctx context.Context, id string, status models.ReviewStatus) (*models.DocumentRecord, error) {
	s := r.shelfForRecord(id)
	if s == nil {
		return nil, models.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].Status = status
			s.records[i].UpdatedAt = nowUTC()
			rec := s.records[i]
			return &rec, nil
		}
	}

	return nil, models.ErrNotFound
}

func (r *memoryDocumentRepository) Get(ctx context.Context, id string) (*models.DocumentRecord, error) {
	s := r.shelfForRecord(id)
	if s == nil {
		return nil, models.ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range s.records {
		if rec.ID == id {
			return &rec, nil
		}
	}

	return nil, models.ErrNotFound
}

func (r *memoryDocumentRepository) List(ctx context.Context, studentID string, kind models.DocumentKind) ([]models.DocumentRecord, error) {
	out := []models.DocumentRecord{}

	s := r.shelf(studentID, false)
	if s == nil {
		return out, nil
	}

	s.mu.Lock()
	for _, rec := range s.records {
		if kind == "" || rec.Kind == kind {
			out = append(out, rec)
		}
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.Before(out[j].SubmittedAt)
	})

	return out, nil
}
