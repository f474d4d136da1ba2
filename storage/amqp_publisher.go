package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"festival-scraper/models"
)

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes accepted festivals to a topic exchange with
// routing key festival.accepted.<source>.
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  amqpChannel
	exchange string
	timeout  time.Duration
}

// NewAMQPPublisher dials RabbitMQ and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp: connect: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("amqp: declare exchange %q: %w", exchange, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange, timeout: 5 * time.Second}, nil
}

// RoutingKey returns the routing key used for a festival.
func RoutingKey(f *models.ValidatedFestival) string {
	return "festival.accepted." + f.Source
}

// Emit publishes f as a persistent JSON message.
func (p *AMQPPublisher) Emit(ctx context.Context, f *models.ValidatedFestival) error {
	body, err := json.Marshal(f.Festival)
	if err != nil {
		return fmt.Errorf("amqp: marshal %s: %w", f.URL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.PublishWithContext(
		ctx,
		p.exchange,    // exchange
		RoutingKey(f), // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			MessageId:    uuid.NewString(),
		},
	)
	if err != nil {
		return fmt.Errorf("amqp: publish %s: %w", f.URL, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.channel.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
