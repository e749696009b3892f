// Package queue consumes domain events the core product pushes onto a
// Redis list and dispatches them as trigger events.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jobdeck/automata/pkg/eventbus"
	"github.com/jobdeck/automata/pkg/events"
	"github.com/jobdeck/automata/pkg/models"
)

const (
	DefaultQueue   = "automata:triggers"
	popTimeout     = 1 * time.Second
	connectTimeout = 5 * time.Second
)

// envelope is the wire shape of one queued domain event.
type envelope struct {
	TriggerType string         `json:"trigger_type"`
	Data        map[string]any `json:"data"`
}

// Consumer pops trigger envelopes from Redis and publishes TriggerFired
// events for the workers.
type Consumer struct {
	connection map[string]string
	queue      string
	client     redis.UniversalClient
	publisher  eventbus.EventPublisher
	logger     *slog.Logger
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewConsumer(connection map[string]string, queue string, publisher eventbus.EventPublisher, logger *slog.Logger) *Consumer {
	if queue == "" {
		queue = DefaultQueue
	}

	return &Consumer{
		connection: connection,
		queue:      queue,
		publisher:  publisher,
		stopCh:     make(chan struct{}),
		logger: logger.With(
			"module", "queue_consumer",
			"queue", queue,
		),
	}
}

// Start connects to Redis and begins consuming in the background.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.initializeClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize queue client: %w", err)
	}

	c.wg.Add(1)

	go c.consume(ctx)

	return nil
}

func (c *Consumer) initializeClient(ctx context.Context) error {
	addr := c.connection["addr"]
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0

	if dbStr := c.connection["db"]; dbStr != "" {
		parsed, err := strconv.Atoi(dbStr)
		if err != nil {
			return fmt.Errorf("invalid db value: %w", err)
		}

		db = parsed
	}

	c.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: c.connection["password"],
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	err := c.client.Ping(pingCtx).Err()
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to Redis", "addr", addr, "db", db)

	return nil
}

func (c *Consumer) consume(ctx context.Context) {
	defer c.wg.Done()

	c.logger.InfoContext(ctx, "Starting queue consumer")

	for {
		select {
		case <-c.stopCh:
			c.logger.InfoContext(ctx, "Queue consumer stopped")

			return
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return
		default:
			err := c.processMessage(ctx)
			if err != nil {
				c.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context) error {
	result, err := c.client.BLPop(ctx, popTimeout, c.queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	return c.dispatch(ctx, []byte(result[1]))
}

// dispatch validates one envelope and publishes it as a TriggerFired
// event. Malformed envelopes are logged and dropped; the queue is not a
// place to park poison messages.
func (c *Consumer) dispatch(ctx context.Context, payload []byte) error {
	var env envelope

	err := json.Unmarshal(payload, &env)
	if err != nil {
		c.logger.ErrorContext(ctx, "Dropping malformed trigger envelope", "error", err)

		return nil
	}

	trigger := models.TriggerType(env.TriggerType)
	if !trigger.Valid() {
		c.logger.ErrorContext(ctx, "Dropping envelope with unknown trigger type", "trigger_type", env.TriggerType)

		return nil
	}

	fired := events.TriggerFired{
		BaseEvent:   events.NewBaseEvent(events.TriggerFiredEvent),
		TriggerType: trigger,
		TriggerData: env.Data,
	}

	err = c.publisher.Publish(ctx, string(trigger), fired)
	if err != nil {
		return fmt.Errorf("failed to publish trigger event: %w", err)
	}

	c.logger.InfoContext(ctx, "Dispatched trigger", "trigger_type", trigger)

	return nil
}

// Stop halts consumption and closes the Redis connection.
func (c *Consumer) Stop(ctx context.Context) error {
	close(c.stopCh)
	c.wg.Wait()

	if c.client != nil {
		err := c.client.Close()
		if err != nil {
			c.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
