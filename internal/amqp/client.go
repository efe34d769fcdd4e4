// Package amqp publishes activity events to RabbitMQ and consumes them for
// the export worker.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"runpay/internal/core"
	"runpay/internal/log"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second

	maxReconnectAttempts = 10
)

var (
	ErrCircuitOpen  = errors.New("circuit breaker is open")
	ErrNotConnected = errors.New("not connected to broker")
)

type Client struct {
	url          string
	exchangeName string
	queueName    string
	logger       *log.Logger

	mu      sync.RWMutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	state        int32
	failureCount int64
	failMu       sync.Mutex
	lastFailure  time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewClient connects, declares the exchange and queue and keeps the
// connection alive until Close.
func NewClient(ctx context.Context, url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	lifecycle, cancel := context.WithCancel(context.Background())
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
		ctx:          lifecycle,
		cancel:       cancel,
	}

	op := func() error { return c.connect() }
	b := backoff.WithContext(backoff.WithMaxRetries(newReconnectBackOff(), 3), ctx)
	if err := backoff.Retry(op, b); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// newReconnectBackOff doubles from 1s up to 30s and never gives up on its
// own; callers bound it with retries or a context.
func newReconnectBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

func (c *Client) connect() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return backoff.Permanent(fmt.Errorf("setup exchange and queue: %w", err))
	}

	c.mu.Lock()
	c.conn, c.channel = conn, channel
	c.mu.Unlock()
	c.recordSuccess()

	closed := conn.NotifyClose(make(chan *amqp091.Error, 1))
	c.wg.Add(1)
	go c.watch(closed)

	c.logger.Info("Connected to broker", "exchange", c.exchangeName, "queue", c.queueName)
	return nil
}

// watch reconnects after the broker drops the connection.
func (c *Client) watch(closed <-chan *amqp091.Error) {
	defer c.wg.Done()
	select {
	case <-c.ctx.Done():
		return
	case amqpErr, ok := <-closed:
		if !ok && c.ctx.Err() != nil {
			return
		}
		c.mu.Lock()
		c.conn, c.channel = nil, nil
		c.mu.Unlock()
		c.logger.Warn("Broker connection lost, reconnecting", log.FieldError, amqpErr)
	}

	attempt := 0
	op := func() error {
		attempt++
		err := c.connect()
		if err != nil {
			c.logger.Warn("Reconnect attempt failed", "attempt", attempt, log.FieldError, err)
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(newReconnectBackOff(), maxReconnectAttempts), c.ctx)
	if err := backoff.Retry(op, b); err != nil && c.ctx.Err() == nil {
		c.logger.Error("Giving up on broker", "attempts", attempt, log.FieldError, err)
	}
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// routing key is the queue name on a direct exchange
	if err := ch.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// Connected reports whether a channel is open.
func (c *Client) Connected() bool {
	return c.currentChannel() != nil
}

func (c *Client) isCircuitOpen() bool {
	if atomic.LoadInt32(&c.state) != StateOpen {
		return false
	}
	c.failMu.Lock()
	last := c.lastFailure
	c.failMu.Unlock()
	if time.Since(last) > openTimeout {
		atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
		return false
	}
	return true
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	c.failMu.Lock()
	c.lastFailure = time.Now()
	c.failMu.Unlock()

	failures := atomic.AddInt64(&c.failureCount, 1)
	// a failed probe in half-open reopens at once
	if failures >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) || errors.Is(err, ErrNotConnected) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// PublishActivity publishes one activity entry as a persistent message.
func (c *Client) PublishActivity(ctx context.Context, e core.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("publish %s: %w", e.ID, ErrCircuitOpen)
	}

	body, err := NewActivityEvent(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	if ch == nil {
		c.recordFailure()
		return fmt.Errorf("publish %s: %w", e.ID, ErrNotConnected)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    e.ID.String(),
			Timestamp:    time.Now(),
			Type:         string(e.Kind),
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	c.logger.DebugContext(ctx, "Published activity event",
		log.FieldEntryID, e.ID.String(),
		log.FieldKind, string(e.Kind),
		"exchange", c.exchangeName)
	return nil
}

// Delivery is one consumed event. The receiver must Ack or Nack it.
type Delivery struct {
	Event *ActivityEvent
	ack   func() error
	nack  func(requeue bool) error
}

// NewDelivery builds a delivery with custom acknowledgement callbacks.
func NewDelivery(ev *ActivityEvent, ack func() error, nack func(requeue bool) error) Delivery {
	return Delivery{Event: ev, ack: ack, nack: nack}
}

func (d Delivery) Ack() error { return d.ack() }

func (d Delivery) Nack(requeue bool) error { return d.nack(requeue) }

// ConsumeActivity hands every well-formed event to handler with manual
// acknowledgement. Undecodable messages are dropped. It survives broker
// reconnects and returns when ctx is done.
func (c *Client) ConsumeActivity(ctx context.Context, prefetch int, handler func(context.Context, Delivery)) error {
	for {
		err := c.consumeOnce(ctx, prefetch, handler)
		if ctx.Err() != nil {
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		c.logger.WarnContext(ctx, "Consumer interrupted, waiting for broker", log.FieldError, err)

		wait := func() error {
			if c.Connected() {
				return nil
			}
			return ErrNotConnected
		}
		if err := backoff.Retry(wait, backoff.WithContext(newReconnectBackOff(), ctx)); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, prefetch int, handler func(context.Context, Delivery)) error {
	ch := c.currentChannel()
	if ch == nil {
		return ErrNotConnected
	}
	if prefetch > 0 {
		if err := ch.Qos(prefetch, 0, false); err != nil {
			return fmt.Errorf("set prefetch: %w", err)
		}
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming activity events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed: %w", amqp091.ErrClosed)
			}
			ev, err := ActivityEventFromJSON(d.Body)
			if err != nil {
				c.logger.ErrorContext(ctx, "Failed to unmarshal message", log.FieldError, err)
				d.Nack(false, false) // drop, don't requeue
				continue
			}
			handler(ctx, NewDelivery(ev,
				func() error { return d.Ack(false) },
				func(requeue bool) error { return d.Nack(false, requeue) }))
		}
	}
}

func (c *Client) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Lock()
	ch, conn := c.channel, c.conn
	c.channel, c.conn = nil, nil
	c.mu.Unlock()

	var errs []error
	if ch != nil {
		errs = append(errs, ch.Close())
	}
	if conn != nil {
		errs = append(errs, conn.Close())
	}
	c.wg.Wait()
	return errors.Join(errs...)
}
