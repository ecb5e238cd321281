package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/baechuer/real-time-ressys/services/account-service/internal/application/account"
)

// Result labels what the consumer did with one delivery.
type Result string

const (
	ResultSent       Result = "sent"
	ResultRetry      Result = "retry"
	ResultDropped    Result = "dropped"
	ResultDeadLetter Result = "dead_letter"
)

type ConsumerConfig struct {
	RabbitURL  string
	Exchange   string
	Queue      string
	Prefetch   int
	Tag        string
	RetryDelay time.Duration

	// OnResult observes every handled delivery (metrics).
	OnResult func(kind account.EmailKind, r Result)
}

// Consumer drains the email queue into a Mailer. Deliveries are acked on
// success, dead-lettered on permanent failures and requeued after
// RetryDelay otherwise.
type Consumer struct {
	url        string
	exchange   string
	queue      string
	prefetch   int
	tag        string
	retryDelay time.Duration
	onResult   func(kind account.EmailKind, r Result)

	lg     zerolog.Logger
	mailer account.Mailer

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel

	deliveries <-chan amqp.Delivery
}

func NewConsumer(cfg ConsumerConfig, mailer account.Mailer, lg zerolog.Logger) *Consumer {
	c := &Consumer{
		url:        cfg.RabbitURL,
		exchange:   cfg.Exchange,
		queue:      cfg.Queue,
		prefetch:   cfg.Prefetch,
		tag:        cfg.Tag,
		retryDelay: cfg.RetryDelay,
		onResult:   cfg.OnResult,
		mailer:     mailer,
		lg:         lg.With().Str("component", "rabbitmq_consumer").Logger(),
	}
	if c.exchange == "" {
		c.exchange = DefaultExchange
	}
	if c.queue == "" {
		c.queue = DefaultQueue
	}
	if c.onResult == nil {
		c.onResult = func(account.EmailKind, Result) {}
	}
	return c
}

// Run supervises the connection until ctx is cancelled, reconnecting with
// exponential backoff.
func (c *Consumer) Run(ctx context.Context) error {
	if c.mailer == nil {
		return fmt.Errorf("nil mailer")
	}
	defer c.closeConn()

	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		if ctx.Err() != nil {
			c.lg.Info().Msg("consumer supervisor exiting (ctx cancelled)")
			return nil
		}

		if err := c.connectAndDeclare(); err != nil {
			if isPreconditionFailed(err) {
				return fmt.Errorf("topology precondition failed: %w", err)
			}
			c.lg.Error().Err(err).Dur("backoff", backoff).Msg("connectAndDeclare failed; retrying")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			backoff = minDur(backoff*2, maxBackoff)
			continue
		}

		backoff = 1 * time.Second
		c.consumeLoop(ctx, c.deliveries)
		if ctx.Err() != nil {
			return nil
		}

		c.lg.Warn().Dur("backoff", backoff).Msg("deliveries closed; reconnecting")
		c.closeConn()
		if !sleepOrDone(ctx, backoff) {
			return nil
		}
		backoff = minDur(backoff*2, maxBackoff)
	}
}

func (c *Consumer) connectAndDeclare() error {
	c.closeConn()

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("consume channel: %w", err)
	}

	if err := declareTopology(ch, c.exchange, c.queue); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	if c.prefetch > 0 {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return fmt.Errorf("qos: %w", err)
		}
	}

	dlv, err := ch.Consume(c.queue, c.tag, false, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("consume: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.deliveries = dlv
	c.mu.Unlock()

	c.lg.Info().
		Str("exchange", c.exchange).
		Str("queue", c.queue).
		Int("prefetch", c.prefetch).
		Msg("rabbitmq consumer ready")
	return nil
}

func (c *Consumer) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				c.lg.Warn().Msg("deliveries channel closed")
				return
			}
			c.handleDelivery(ctx, d)
		}
	}
}

func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	start := time.Now()

	var msg account.Email
	if err := json.Unmarshal(d.Body, &msg); err != nil || strings.TrimSpace(msg.To) == "" {
		_ = d.Nack(false, false)
		c.lg.Error().Err(err).Str("routing_key", d.RoutingKey).Msg("bad email payload; dead-lettered")
		c.onResult(msg.Kind, ResultDropped)
		return
	}

	err := c.mailer.Send(ctx, msg)
	switch {
	case err == nil:
		_ = d.Ack(false)
		c.lg.Info().Str("kind", string(msg.Kind)).Dur("took", time.Since(start)).Msg("email delivered")
		c.onResult(msg.Kind, ResultSent)

	case isNonRetriable(err):
		_ = d.Nack(false, false)
		c.lg.Error().Err(err).Str("kind", string(msg.Kind)).Msg("email failed permanently; dead-lettered")
		c.onResult(msg.Kind, ResultDeadLetter)

	default:
		c.lg.Warn().Err(err).Str("kind", string(msg.Kind)).Dur("delay", c.retryDelay).Msg("email failed; requeue")
		sleepOrDone(ctx, c.retryDelay)
		_ = d.Nack(false, true)
		c.onResult(msg.Kind, ResultRetry)
	}
}

func isNonRetriable(err error) bool {
	var per interface{ Permanent() bool }
	return errors.As(err, &per) && per.Permanent()
}

func (c *Consumer) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		_ = c.ch.Close()
		c.ch = nil
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.deliveries = nil
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func isPreconditionFailed(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToUpper(err.Error())
	return strings.Contains(msg, "PRECONDITION_FAILED") || strings.Contains(msg, "INEQUIVALENT ARG")
}
