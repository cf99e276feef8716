// Package messaging publishes expense events to RabbitMQ.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/LovationAdmin/gastos-api/models"
	"github.com/LovationAdmin/gastos-api/utils"

	"github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

var ErrPublisherClosed = errors.New("amqp publisher closed")

// Publisher sends expense events to a topic exchange; the routing key is the
// event type (expense.created, expense.updated, expense.deleted). A dropped
// connection is redialed on the next publish.
type Publisher struct {
	mu           sync.Mutex
	url          string
	dial         func(url string) (*amqp091.Connection, error)
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	closed       bool
}

func NewPublisher(url, exchangeName string) (*Publisher, error) {
	p := &Publisher{
		url:          url,
		dial:         amqp091.Dial,
		exchangeName: exchangeName,
	}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held or before p is shared.
func (p *Publisher) connect() error {
	conn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		p.exchangeName, // name
		"topic",        // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	p.conn = conn
	p.channel = channel
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.closed {
		return ErrPublisherClosed
	}
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}

	p.reset()
	utils.SafeWarn("[AMQP] channel closed, reconnecting")
	if err := p.connect(); err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	utils.SafeInfo("✅ [AMQP] reconnected to exchange %s", p.exchangeName)
	return nil
}

func (p *Publisher) reset() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
	p.channel = nil
	p.conn = nil
}

// EventMessage is the wire form of an expense event.
type EventMessage struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	ExpenseID string `json:"expense_id"`
	Timestamp string `json:"timestamp"`
}

func NewEventMessage(event models.ExpenseEvent) EventMessage {
	return EventMessage{
		Type:      event.Type,
		UserID:    event.UserID,
		ExpenseID: event.ExpenseID,
		Timestamp: event.At.UTC().Format(time.RFC3339),
	}
}

func (m EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func (p *Publisher) PublishExpenseEvent(ctx context.Context, event models.ExpenseEvent) error {
	body, err := NewEventMessage(event).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    event.At,
		Body:         body,
	}

	if err := p.ensureChannel(); err != nil {
		return err
	}
	err = p.publish(ctx, event.Type, msg)
	if errors.Is(err, amqp091.ErrClosed) {
		// The broker went away between the check and the publish.
		p.reset()
		if err := p.ensureChannel(); err != nil {
			return err
		}
		err = p.publish(ctx, event.Type, msg)
	}
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	utils.SafeDebug("[AMQP] published %s for expense %s", event.Type, event.ExpenseID)
	return nil
}

func (p *Publisher) publish(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
	return p.channel.PublishWithContext(
		ctx,
		p.exchangeName, // exchange
		routingKey,     // routing key
		false,          // mandatory
		false,          // immediate
		msg,
	)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		p.channel.Close()
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
	}
	p.channel = nil
	p.conn = nil
	return err
}
