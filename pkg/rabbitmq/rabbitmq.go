package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// OrderQueue is the durable queue order events are routed to.
const OrderQueue = "lesson_order_queue"

// EventOrderPlaced is the type of the event published after a checkout commits.
const EventOrderPlaced = "order.placed"

// ErrChannelUnavailable is returned when the client has no open channel.
var ErrChannelUnavailable = errors.New("rabbitmq channel is not available")

// OrderPlacedEvent is published once per committed order.
type OrderPlacedEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	LessonIDs   []string  `json:"lessonIds"`
	TotalSpaces int       `json:"totalSpaces"`
	PlacedAt    time.Time `json:"placedAt"`
}

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	mu      sync.Mutex // serialises publishes on the shared channel
	log     *logrus.Entry
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the order queue.
func NewClient(cfg Config, logger *logrus.Entry) (*Client, error) {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if _, err := declareOrderQueue(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	log := logger.WithField("component", "rabbitmq")
	log.WithField("queue", OrderQueue).Info("RabbitMQ client connected")

	return &Client{
		conn:    conn,
		channel: ch,
		log:     log,
	}, nil
}

func declareOrderQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		OrderQueue, // name
		true,       // durable
		false,      // delete when unused
		false,      // exclusive
		false,      // no-wait
		nil,        // arguments
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("failed to declare %s: %w", OrderQueue, err)
	}
	return q, nil
}

// Close closes the RabbitMQ channel and connection.
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
	return errors.Join(errs...)
}

// Connected reports whether the broker connection is still open.
func (c *Client) Connected() bool {
	return c != nil && c.conn != nil && !c.conn.IsClosed()
}

// PublishOrderPlaced publishes an order.placed event to the order queue.
func (c *Client) PublishOrderPlaced(event OrderPlacedEvent) error {
	if c == nil || c.channel == nil {
		return ErrChannelUnavailable
	}

	body, err := EncodeOrderPlaced(event)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.channel.Publish(
		"",         // default exchange
		OrderQueue, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         EventOrderPlaced,
			MessageId:    event.OrderID,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.PlacedAt,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", EventOrderPlaced, err)
	}

	c.log.WithField("order_id", event.OrderID).Debug("order event published")
	return nil
}

// EncodeOrderPlaced marshals an event, filling in its type.
func EncodeOrderPlaced(event OrderPlacedEvent) ([]byte, error) {
	event.Type = EventOrderPlaced
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order event: %w", err)
	}
	return body, nil
}

// DecodeOrderPlaced parses the body of an order.placed delivery.
func DecodeOrderPlaced(body []byte) (OrderPlacedEvent, error) {
	var event OrderPlacedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return OrderPlacedEvent{}, fmt.Errorf("failed to unmarshal order event: %w", err)
	}
	if event.Type != EventOrderPlaced {
		return OrderPlacedEvent{}, fmt.Errorf("unexpected event type %q", event.Type)
	}
	return event, nil
}

// ConsumeOrderEvents starts a goroutine that hands every order.placed event to
// handler. Deliveries are acked when handler returns nil; undecodable bodies
// are dropped and failed ones are requeued once.
func (c *Client) ConsumeOrderEvents(handler func(OrderPlacedEvent) error) error {
	if c == nil || c.channel == nil {
		return ErrChannelUnavailable
	}

	queue, err := declareOrderQueue(c.channel)
	if err != nil {
		return err
	}

	msgs, err := c.channel.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	go func() {
		for msg := range msgs {
			c.handleDelivery(msg, handler)
		}
		c.log.Info("order event consumer stopped")
	}()

	return nil
}

func (c *Client) handleDelivery(msg amqp.Delivery, handler func(OrderPlacedEvent) error) {
	log := c.log.WithField("delivery_tag", msg.DeliveryTag)

	event, err := DecodeOrderPlaced(msg.Body)
	if err != nil {
		log.WithError(err).Warn("dropping malformed order event")
		if nackErr := msg.Nack(false, false); nackErr != nil {
			log.WithError(nackErr).Error("failed to nack message")
		}
		return
	}

	if err := handler(event); err != nil {
		log.WithError(err).Warn("failed to process order event")
		if nackErr := msg.Nack(false, !msg.Redelivered); nackErr != nil {
			log.WithError(nackErr).Error("failed to nack message")
		}
		return
	}
	if ackErr := msg.Ack(false); ackErr != nil {
		log.WithError(ackErr).Error("failed to ack message")
	}
}
