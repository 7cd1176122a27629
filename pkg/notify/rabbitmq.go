package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

var ErrPublisherClosed = errors.New("notify: publisher connection closed")

// Message is the envelope consumed by the mail worker
type Message struct {
	To      string    `json:"to"`
	Link    string    `json:"link"`
	Purpose string    `json:"purpose"`
	SentAt  time.Time `json:"sent_at"`
}

// Publisher pushes notification messages onto a durable queue
type Publisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   amqp.Queue
	logger  *zap.Logger
}

func NewPublisher(url, queueName string, logger *zap.Logger) (*Publisher, error) {
	const op = "notify.NewPublisher"

	if logger == nil {
		logger = zap.NewNop()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	logger.Info("RabbitMQ publisher ready", zap.String("queue", q.Name))

	return &Publisher{
		conn:    conn,
		channel: ch,
		queue:   q,
		logger:  logger,
	}, nil
}

// Publish sends msg as a persistent JSON message. A channel is not safe
// for concurrent publishing, so calls are serialised.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	const op = "notify.Publish"

	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now().UTC()
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel.IsClosed() {
		return ErrPublisherClosed
	}

	err = p.channel.PublishWithContext(
		ctx,
		"",
		p.queue.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    msg.SentAt,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Ping reports whether the broker connection is still open
func (p *Publisher) Ping(_ context.Context) error {
	if p.conn.IsClosed() || p.channel.IsClosed() {
		return ErrPublisherClosed
	}
	return nil
}

func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.channel.Close()
	_ = p.conn.Close()
}
