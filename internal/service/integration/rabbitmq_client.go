package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/RubachokBoss/relief-fund/portal-service/internal/models"
	"github.com/RubachokBoss/relief-fund/portal-service/pkg/rabbitmq"
	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// EventPublisher announces document lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishDocumentSubmitted(ctx context.Context, event *models.DocumentSubmittedEvent) error
	PublishDocumentReviewed(ctx context.Context, event *models.DocumentReviewedEvent) error
	Close() error
}

type PublisherConfig struct {
	Exchange            string
	SubmittedRoutingKey string
	ReviewedRoutingKey  string
	PublishTimeout      time.Duration
}

type rabbitMQPublisher struct {
	conn   *rabbitmq.Connection
	cfg    PublisherConfig
	logger zerolog.Logger
}

func NewRabbitMQPublisher(conn *rabbitmq.Connection, cfg PublisherConfig, logger zerolog.Logger) (EventPublisher, error) {
	if err := conn.DeclareExchange(cfg.Exchange); err != nil {
		return nil, err
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	logger.Info().
		Str("exchange", cfg.Exchange).
		Str("submitted_key", cfg.SubmittedRoutingKey).
		Str("reviewed_key", cfg.ReviewedRoutingKey).
		Msg("Event publisher ready")

	return &rabbitMQPublisher{
		conn:   conn,
		cfg:    cfg,
		logger: logger,
	}, nil
}

func (p *rabbitMQPublisher) PublishDocumentSubmitted(ctx context.Context, event *models.DocumentSubmittedEvent) error {
	if err := p.publish(ctx, p.cfg.SubmittedRoutingKey, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("record_id", event.RecordID).
		Str("student_id", event.StudentID).
		Msg("Document submitted event published")
	return nil
}

func (p *rabbitMQPublisher) PublishDocumentReviewed(ctx context.Context, event *models.DocumentReviewedEvent) error {
	if err := p.publish(ctx, p.cfg.ReviewedRoutingKey, event); err != nil {
		return err
	}

	p.logger.Info().
		Str("record_id", event.RecordID).
		Str("status", event.Status).
		Msg("Document reviewed event published")
	return nil
}

func (p *rabbitMQPublisher) publish(ctx context.Context, routingKey string, event any) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	err = p.conn.Channel().PublishWithContext(
		publishCtx,
		p.cfg.Exchange, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	return nil
}

func (p *rabbitMQPublisher) Close() error {
	return p.conn.Close()
}

type noopPublisher struct {
	logger zerolog.Logger
}

// NewNoopPublisher is used when the broker is disabled.
func NewNoopPublisher(logger zerolog.Logger) EventPublisher {
	return &noopPublisher{logger: logger}
}

func (p *noopPublisher) PublishDocumentSubmitted(ctx context.Context, event *models.DocumentSubmittedEvent) error {
	p.logger.Debug().Str("record_id", event.RecordID).Msg("Broker disabled, submitted event dropped")
	return nil
}

func (p *noopPublisher) PublishDocumentReviewed(ctx context.Context, event *models.DocumentReviewedEvent) error {
	p.logger.Debug().Str("record_id", event.RecordID).Msg("Broker disabled, reviewed event dropped")
	return nil
}

func (p *noopPublisher) Close() error {
	return nil
}
