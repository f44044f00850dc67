// Package queue provides the RabbitMQ-backed warm-task queue. It is optional
// infrastructure: deployments that share a Redis cache can offload HEAD-
// triggered cache warming to a dedicated warmer process instead of resolving
// in-process.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/hszk-dev/audiorelay/internal/domain/model"
)

// WarmTask asks the warmer to resolve an identifier into the shared cache.
type WarmTask struct {
	TaskID     uuid.UUID     `json:"task_id"`
	VideoID    model.VideoID `json:"video_id"`
	RetryCount int           `json:"retry_count"`
}

// ClientConfig holds configuration for the RabbitMQ client.
type ClientConfig struct {
	URL        string // AMQP connection URL
	QueueName  string // Queue name for warm tasks
	Exchange   string // Exchange name (empty = default exchange)
	RoutingKey string // Routing key (same as queue name for default exchange)
	Prefetch   int    // Consumer prefetch count (QoS)
	MaxRetries int    // Republish attempts before a task is dropped
}

// DefaultClientConfig returns a ClientConfig with sensible defaults.
// Prefetch=1 gives fair dispatch among warmers, since each task may hold a
// yt-dlp subprocess for many seconds.
func DefaultClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:        url,
		QueueName:  "audiorelay_warm",
		Exchange:   "",
		RoutingKey: "audiorelay_warm",
		Prefetch:   1,
		MaxRetries: 2,
	}
}

// amqpConnection abstracts amqp.Connection for testability.
type amqpConnection interface {
	Channel() (*amqp.Channel, error)
	Close() error
	IsClosed() bool
}

// amqpChannel abstracts amqp.Channel for testability.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
	Close() error
}

// Client publishes and consumes warm tasks over RabbitMQ.
type Client struct {
	conn    amqpConnection
	channel amqpChannel
	config  ClientConfig
}

// NewClient connects and declares the queue up front to fail fast.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return newClientWithConnection(ctx, conn, cfg)
}

// newClientWithConnection creates a Client with a given amqpConnection.
// Used for dependency injection in tests.
func newClientWithConnection(_ context.Context, conn amqpConnection, cfg ClientConfig) (*Client, error) {
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	// durable=true so queued warm tasks survive a broker restart
	_, err = ch.QueueDeclare(
		cfg.QueueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare queue: %w", err)
	}

	return &Client{
		conn:    conn,
		channel: ch,
		config:  cfg,
	}, nil
}

// PublishWarmTask enqueues a warm task for an identifier.
func (c *Client) PublishWarmTask(ctx context.Context, id model.VideoID) error {
	return c.publish(ctx, WarmTask{TaskID: uuid.New(), VideoID: id})
}

func (c *Client) publish(ctx context.Context, task WarmTask) error {
	body, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.config.Exchange,
		c.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}
	return nil
}

// ConsumeWarmTasks consumes warm tasks until ctx is cancelled, calling
// handler for each.
//
// Ack/Nack strategy:
//   - Successful handling: Ack
//   - JSON unmarshal failure: Nack without requeue (malformed message)
//   - Handler failure: republish with RetryCount+1 and Ack the original, up
//     to MaxRetries; past that the task is dropped. Nack(requeue=true) would
//     loop the same message without counting attempts.
func (c *Client) ConsumeWarmTasks(ctx context.Context, handler func(task WarmTask) error) error {
	msgs, err := c.channel.Consume(
		c.config.QueueName,
		"",    // consumer tag (auto-generated)
		false, // autoAck - manual ack for reliability
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed unexpectedly")
			}

			var task WarmTask
			if err := json.Unmarshal(msg.Body, &task); err != nil {
				_ = msg.Nack(false, false)
				continue
			}

			if err := handler(task); err != nil {
				task.RetryCount++
				if task.RetryCount > c.config.MaxRetries {
					slog.Warn("dropping warm task after retries",
						"video_id", task.VideoID,
						"retry_count", task.RetryCount,
						"error", err,
					)
					_ = msg.Nack(false, false)
					continue
				}
				if pubErr := c.publish(ctx, task); pubErr != nil {
					slog.Error("failed to republish warm task",
						"video_id", task.VideoID,
						"retry_count", task.RetryCount,
						"error", pubErr,
					)
					_ = msg.Nack(false, false)
				} else {
					_ = msg.Ack(false)
				}
				continue
			}

			_ = msg.Ack(false)
		}
	}
}

// Close gracefully closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error

	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
