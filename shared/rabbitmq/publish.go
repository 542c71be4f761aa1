package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	defaultPublishRetries = 3
	defaultPublishDelay   = 100 * time.Millisecond
	defaultBackoffMult    = 2.0
)

// publishPolicy is the retry schedule for PublishWithRetry
type publishPolicy struct {
	retries int
	delay   time.Duration
	mult    float64
}

func newPublishPolicy(cfg *Config) publishPolicy {
	p := publishPolicy{retries: cfg.PublishRetries, delay: cfg.PublishRetryDelay, mult: cfg.PublishBackoffMult}
	if p.retries <= 0 {
		p.retries = defaultPublishRetries
	}
	if p.delay <= 0 {
		p.delay = defaultPublishDelay
	}
	if p.mult <= 0 {
		p.mult = defaultBackoffMult
	}
	return p
}

// backoff returns the wait after the given zero-based failed attempt
func (p publishPolicy) backoff(attempt int) time.Duration {
	return time.Duration(float64(p.delay) * math.Pow(p.mult, float64(attempt)))
}

func (c *Client) publish(ctx context.Context, body []byte, contentType string) error {
	return c.channel.PublishWithContext(ctx, c.config.ExchangeName, c.config.RoutingKey, false, false,
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
		},
	)
}

// PublishWithRetry publishes a persistent flow message, retrying with
// exponential backoff until the retries run out or ctx is done.
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if !c.connected.Load() {
		return ErrNotConnected
	}

	policy := newPublishPolicy(c.config)

	var lastErr error
	for attempt := 0; attempt <= policy.retries; attempt++ {
		lastErr = c.publish(ctx, body, contentType)
		if lastErr == nil {
			c.logger.Debug("Flow message published",
				slog.Int("attempt", attempt+1),
				slog.Int("body_size", len(body)),
			)
			return nil
		}

		if attempt == policy.retries {
			break
		}

		wait := policy.backoff(attempt)
		c.logger.Warn("Publish failed, retrying",
			slog.Int("attempt", attempt+1),
			slog.Duration("retry_after", wait),
			slog.Any("error", lastErr),
		)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return fmt.Errorf("publish canceled after %d attempts: %w", attempt+1, ctx.Err())
		}
	}

	c.logger.Error("Publish failed after all retries",
		slog.Int("attempts", policy.retries+1),
		slog.Any("error", lastErr),
	)
	return fmt.Errorf("failed to publish message after %d attempts: %w", policy.retries+1, lastErr)
}
