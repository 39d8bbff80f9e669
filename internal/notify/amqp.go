package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const contentTypeJSON = "application/json"

// Dial opens a RabbitMQ connection.
func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	return conn, nil
}

func declareQueue(ch *amqp.Channel, queue string) error {
	_, err := ch.QueueDeclare(queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return nil
}

// AMQPPublisher publishes events as persistent JSON messages on a durable queue.
type AMQPPublisher struct {
	mu      sync.Mutex
	channel *amqp.Channel
	queue   string
}

// NewAMQPPublisher opens a channel on conn and declares the durable queue.
func NewAMQPPublisher(conn *amqp.Connection, queue string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	return &AMQPPublisher{channel: ch, queue: queue}, nil
}

// Publish sends ev as a persistent JSON message.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID.String(),
		Type:         string(ev.Type),
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	return p.channel.Close()
}

// Consumer feeds queued events to a handler. A handler error drops the
// message; notifications are best-effort.
type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  zerolog.Logger
}

// NewConsumer opens a channel with the given prefetch and declares the queue.
func NewConsumer(conn *amqp.Connection, queue string, prefetch int, logger zerolog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareQueue(ch, queue); err != nil {
		_ = ch.Close()
		return nil, err
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{channel: ch, queue: queue, logger: logger}, nil
}

// Run delivers messages to handle until ctx is done. Messages that fail to
// decode or to handle are nacked without requeue.
func (c *Consumer) Run(ctx context.Context, handle func(context.Context, Event) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel for %s closed", c.queue)
			}
			c.process(ctx, d, handle)
		}
	}
}

func (c *Consumer) process(ctx context.Context, d amqp.Delivery, handle func(context.Context, Event) error) {
	var ev Event
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		c.logger.Error().Err(err).Str("message_id", d.MessageId).Msg("discarding undecodable notification")
		_ = d.Nack(false, false)
		return
	}

	if err := handle(ctx, ev); err != nil {
		c.logger.Error().Err(err).
			Str("event_type", string(ev.Type)).
			Str("appointment_id", ev.AppointmentID.String()).
			Msg("notification delivery failed")
		_ = d.Nack(false, false)
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Warn().Err(err).Str("message_id", d.MessageId).Msg("ack failed")
	}
}

func (c *Consumer) Close() error {
	return c.channel.Close()
}
