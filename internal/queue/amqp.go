package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/streadway/amqp"
)

// AMQPClient publishes to and consumes from a durable RabbitMQ queue.
type AMQPClient struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// DialAMQP connects to the broker and declares the queue.
func DialAMQP(url, queueName string) (*AMQPClient, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("AMQP_URL is required")
	}
	if strings.TrimSpace(queueName) == "" {
		return nil, errors.New("queue name is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return &AMQPClient{conn: conn, ch: ch, queue: queueName}, nil
}

// Send publishes a persistent message to the queue.
func (c *AMQPClient) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode amqp message: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	err = c.ch.Publish(
		"", // default exchange
		c.queue,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     msg.AnalysisID,
			CorrelationId: msg.RequestID,
			Timestamp:     time.Now().UTC(),
			Body:          payload,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// Consume starts a manual-ack consumer that holds at most prefetch
// unacknowledged deliveries.
func (c *AMQPClient) Consume(prefetch int) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ch.Qos(max(prefetch, 1), 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := c.ch.Consume(
		c.queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// Close releases the channel and connection.
func (c *AMQPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.ch.Close(), c.conn.Close())
}

var _ Client = (*AMQPClient)(nil)
