package validator

import (
	"context"
	"strings"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
)

// CheckerFunc adapts a plain function to ContentChecker.
type CheckerFunc func(ctx context.Context, file FileMeta) error

func (f CheckerFunc) Check(ctx context.Context, file FileMeta) error {
	return f(ctx, file)
}

// HeuristicChecker stands in for an OCR pass: it takes Delay to answer and
// rejects files whose name contains "fail".
type HeuristicChecker struct {
	Delay time.Duration
}

func NewHeuristicChecker(delay time.Duration) *HeuristicChecker {
	return &HeuristicChecker{Delay: delay}
}

func (c *HeuristicChecker) Check(ctx context.Context, file FileMeta) error {
	if c.Delay > 0 {
		timer := time.NewTimer(c.Delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	if strings.Contains(strings.ToLower(file.Name), "fail") {
		return models.NewValidationError(models.ReasonContentValidationFailed,
			"could not detect student ID or name in document")
	}

	return nil
}
