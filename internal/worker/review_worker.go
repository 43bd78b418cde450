package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/service"
	"github.com/RubachokBoss/relief-fund/portal-service/internal/worker/queue"
	"github.com/rs/zerolog"
)

// ReviewWorker applies review decisions published by an external review desk.
type ReviewWorker interface {
	Start(ctx context.Context) error
	Stop() error
	Stats() ReviewStats
}

type ReviewStats struct {
	Applied  int `json:"applied"`
	Dropped  int `json:"dropped"`
	Retried  int `json:"retried"`
	InFlight int `json:"in_flight"`
}

type reviewWorker struct {
	pool      *WorkerPool
	consumer  queue.Consumer
	documents service.DocumentService
	logger    zerolog.Logger

	statsMu sync.Mutex
	stats   ReviewStats
}

func NewReviewWorker(pool *WorkerPool, consumer queue.Consumer, documents service.DocumentService, logger zerolog.Logger) ReviewWorker {
	return &reviewWorker{
		pool:      pool,
		consumer:  consumer,
		documents: documents,
		logger:    logger,
	}
}

func (w *reviewWorker) Start(ctx context.Context) error {
	msgs, err := w.consumer.Consume(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consuming review decisions: %w", err)
	}

	go w.processMessages(ctx, msgs)

	w.logger.Info().Msg("Review worker started")
	return nil
}

func (w *reviewWorker) Stop() error {
	if err := w.consumer.Close(); err != nil {
		w.logger.Error().Err(err).Msg("Failed to close review consumer")
	}

	stats := w.Stats()
	w.logger.Info().
		Int("applied", stats.Applied).
		Int("dropped", stats.Dropped).
		Int("retried", stats.Retried).
		Msg("Review worker stopped")
	return nil
}

func (w *reviewWorker) Stats() ReviewStats {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	s := w.stats
	s.InFlight = w.pool.GetActiveWorkers()
	return s
}

func (w *reviewWorker) processMessages(ctx context.Context, msgs <-chan queue.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				w.logger.Warn().Msg("Review message channel closed")
				return
			}

			accepted := w.pool.Submit(func() { w.handle(ctx, msg) })
			if !accepted {
				w.count(func(s *ReviewStats) { s.Retried++ })
				if err := msg.Nack(false, true); err != nil {
					w.logger.Error().Err(err).Msg("Failed to nack message")
				}
			}
		}
	}
}

func (w *reviewWorker) handle(ctx context.Context, msg queue.Message) {
	err := w.apply(ctx, msg.Body)
	switch {
	case err == nil:
		w.count(func(s *ReviewStats) { s.Applied++ })
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
	case isPermanentError(err):
		w.logger.Warn().Err(err).Msg("Dropping review decision")
		w.count(func(s *ReviewStats) { s.Dropped++ })
		if ackErr := msg.Ack(false); ackErr != nil {
			w.logger.Error().Err(ackErr).Msg("Failed to ack message")
		}
	default:
		w.logger.Error().Err(err).Msg("Failed to apply review decision, requeueing")
		w.count(func(s *ReviewStats) { s.Retried++ })
		if nackErr := msg.Nack(false, true); nackErr != nil {
			w.logger.Error().Err(nackErr).Msg("Failed to nack message")
		}
	}
}

func (w *reviewWorker) apply(ctx context.Context, body []byte) error {
	var decision models.ReviewDecisionMessage
	if err := json.Unmarshal(body, &decision); err != nil {
		return permanent(fmt.Errorf("failed to unmarshal review decision: %w", err))
	}

	if strings.TrimSpace(decision.RecordID) == "" {
		return permanent(errors.New("empty record_id"))
	}
	if strings.TrimSpace(decision.ReviewerID) == "" {
		return permanent(errors.New("empty reviewer_id"))
	}

	reviewer := models.Identity{UserID: decision.ReviewerID, Role: models.RoleReviewer}
	_, err := w.documents.SetStatus(ctx, reviewer, decision.RecordID, decision.Status)
	switch {
	case err == nil:
		w.logger.Info().
			Str("record_id", decision.RecordID).
			Str("status", decision.Status).
			Str("reviewer_id", decision.ReviewerID).
			Msg("Review decision applied")
		return nil
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrInvalidReviewStatus),
		errors.Is(err, models.ErrForbidden):
		return permanent(err)
	default:
		return err
	}
}

func (w *reviewWorker) count(fn func(s *ReviewStats)) {
	w.statsMu.Lock()
	fn(&w.stats)
	w.statsMu.Unlock()
}

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

func permanent(err error) error {
	return permanentError{err: err}
}

func isPermanentError(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}
