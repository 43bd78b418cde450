package queue

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type Message struct {
	Body      []byte
	Timestamp time.Time
	Ack       func(multiple bool) error
	Nack      func(multiple bool, requeue bool) error
}

type Consumer interface {
	Consume(ctx context.Context) (<-chan Message, error)
	Close() error
}

type rabbitMQConsumer struct {
	channel     *amqp.Channel
	queue       string
	consumerTag string
	prefetch    int
	logger      zerolog.Logger
}

func NewRabbitMQConsumer(channel *amqp.Channel, queue, consumerTag string, prefetch int, logger zerolog.Logger) Consumer {
	if prefetch <= 0 {
		prefetch = 1
	}
	return &rabbitMQConsumer{
		channel:     channel,
		queue:       queue,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		logger:      logger,
	}
}

func (c *rabbitMQConsumer) Consume(ctx context.Context) (<-chan Message, error) {
	if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
		return nil, err
	}

	deliveries, err := c.channel.Consume(
		c.queue,       // queue
		c.consumerTag, // consumer
		false,         // auto-ack
		false,         // exclusive
		false,         // no-local
		false,         // no-wait
		nil,           // args
	)
	if err != nil {
		return nil, err
	}

	output := make(chan Message)

	go c.forward(ctx, deliveries, output)

	c.logger.Info().
		Str("queue", c.queue).
		Str("consumer_tag", c.consumerTag).
		Msg("RabbitMQ consumer started")

	return output, nil
}

// forward hands deliveries to output until ctx ends. A delivery nobody took
// is requeued.
func (c *rabbitMQConsumer) forward(ctx context.Context, deliveries <-chan amqp.Delivery, output chan<- Message) {
	defer close(output)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info().Msg("Stopping RabbitMQ consumer")
			return
		case d, ok := <-deliveries:
			if !ok {
				c.logger.Warn().Msg("RabbitMQ delivery channel closed")
				return
			}

			msg := Message{
				Body:      d.Body,
				Timestamp: d.Timestamp,
				Ack:       d.Ack,
				Nack:      d.Nack,
			}

			select {
			case output <- msg:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					c.logger.Error().
						Err(err).
						Uint64("delivery_tag", d.DeliveryTag).
						Msg("Failed to requeue undelivered message")
				}
				return
			}
		}
	}
}

func (c *rabbitMQConsumer) Close() error {
	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error().Err(err).Msg("Failed to cancel RabbitMQ consumer")
	}
	return c.channel.Close()
}
