package rabbitmq

import (
	"fmt"

	amqp "github.com/streadway/amqp"
)

// Queue names.
const (
	// PaymentEventsQueue carries raw, signature-verified gateway webhook
	// bodies from the HTTP acknowledger to the settlement worker.
	PaymentEventsQueue = "payment_events"
	// OrderEventsQueue carries order lifecycle notifications.
	OrderEventsQueue = "order_events"
)

// Client holds the RabbitMQ connection and channel.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Config holds RabbitMQ connection details.
type Config struct {
	URL string
}

// NewClient connects to RabbitMQ, opens a channel and declares the queues.
func NewClient(cfg Config) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, queue := range []string{PaymentEventsQueue, OrderEventsQueue} {
		_, err = ch.QueueDeclare(
			queue,
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,
		)
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
		}
	}

	return &Client{
		conn:    conn,
		channel: ch,
	}, nil
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
	if len(errs) > 0 {
		return fmt.Errorf("errors closing RabbitMQ client: %v", errs)
	}
	return nil
}

// publish sends a persistent message to a queue via the default exchange.
func (c *Client) publish(queue string, body []byte) error {
	if c.channel == nil {
		return fmt.Errorf("RabbitMQ channel is not available")
	}
	return c.channel.Publish(
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// PublishPaymentEvent enqueues a verified webhook body for the settlement
// worker.
func (c *Client) PublishPaymentEvent(body []byte) error {
	return c.publish(PaymentEventsQueue, body)
}

// PublishOrderEvent enqueues an order lifecycle notification.
func (c *Client) PublishOrderEvent(body []byte) error {
	return c.publish(OrderEventsQueue, body)
}

// ConsumePaymentEvents blocks, delivering each queued webhook body to
// handler. A nil handler result acks the message; an error nacks it back
// onto the queue for redelivery.
func (c *Client) ConsumePaymentEvents(handler func(body []byte) error) error {
	deliveries, err := c.channel.Consume(
		PaymentEventsQueue,
		"",    // consumer tag
		false, // auto-ack off; we ack after processing
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to consume %s: %w", PaymentEventsQueue, err)
	}

	for d := range deliveries {
		if err := handler(d.Body); err != nil {
			d.Nack(false, true)
			continue
		}
		d.Ack(false)
	}
	return nil
}
