package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/repository"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
)

// Progress reports how many distinct core kinds are present. Review status
// does not matter.
func Progress(records []models.DocumentRecord) models.ProgressReport {
	core := models.CoreKinds()
	present := lo.SliceToMap(records, func(r models.DocumentRecord) (models.DocumentKind, struct{}) {
		return r.Kind, struct{}{}
	})

	missing := lo.Filter(core, func(k models.DocumentKind, _ int) bool {
		_, ok := present[k]
		return !ok
	})
	completed := len(core) - len(missing)

	percent := 0
	if len(core) > 0 {
		percent = int(math.Round(100 * float64(completed) / float64(len(core))))
	}

	return models.ProgressReport{
		CompletedCore: completed,
		TotalCore:     len(core),
		Percent:       lo.Clamp(percent, 0, 100),
		Missing:       missing,
	}
}

// Checklist lists every catalog kind with its active count for year and
// whether another upload is allowed. One-time kinds can always be replaced.
func Checklist(records []models.DocumentRecord, year int, asReviewer bool) []models.ChecklistItem {
	counts := lo.CountValuesBy(records, func(r models.DocumentRecord) models.DocumentKind { return r.Kind })
	yearly := lo.CountValuesBy(
		lo.Filter(records, func(r models.DocumentRecord, _ int) bool { return r.Year == year }),
		func(r models.DocumentRecord) models.DocumentKind { return r.Kind },
	)

	return lo.Map(models.Catalog(), func(info models.KindInfo, _ int) models.ChecklistItem {
		item := models.ChecklistItem{
			Kind:      info.Kind,
			Label:     info.Label,
			Cadence:   info.Cadence,
			Core:      info.Core,
			Count:     counts[info.Kind],
			MaxActive: info.MaxActive,
			CanUpload: true,
		}
		if info.Cadence == models.CadenceRecurring {
			item.Count = yearly[info.Kind]
			item.CanUpload = asReviewer || item.Count < info.MaxActive
		}
		if info.ReviewerOnly && !asReviewer {
			item.CanUpload = false
		}
		return item
	})
}

type ProgressService interface {
	Report(ctx context.Context, identity models.Identity, studentID string) (*models.ProgressResponse, error)
}

type progressService struct {
	documents repository.DocumentRepository
	logger    zerolog.Logger
	now       func() time.Time
}

func NewProgressService(documents repository.DocumentRepository, logger zerolog.Logger) ProgressService {
	return &progressService{
		documents: documents,
		logger:    logger,
		now:       utcNow,
	}
}

func (s *progressService) Report(ctx context.Context, identity models.Identity, studentID string) (*models.ProgressResponse, error) {
	if err := authorizeStudent(identity, studentID); err != nil {
		return nil, err
	}

	records, err := s.documents.List(ctx, studentID, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	return &models.ProgressResponse{
		StudentID: studentID,
		Progress:  Progress(records),
		Checklist: Checklist(records, s.now().Year(), identity.IsReviewer()),
	}, nil
}
