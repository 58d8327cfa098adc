package notice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPSender publishes notices as persistent JSON messages to a direct
// exchange.
type AMQPSender struct {
	conn       *amqp.Connection
	channel    publishChannel
	exchange   string
	routingKey string
	now        func() time.Time
}

func NewAMQPSender(amqpURL, exchange, queue, routingKey string) (*AMQPSender, error) {
	if amqpURL == "" {
		return nil, fmt.Errorf("missing AMQP_URL")
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "direct", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(queue, routingKey, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind queue: %w", err)
	}

	s := newAMQPSender(ch, exchange, routingKey)
	s.conn = conn
	return s, nil
}

func newAMQPSender(ch publishChannel, exchange, routingKey string) *AMQPSender {
	return &AMQPSender{
		channel:    ch,
		exchange:   exchange,
		routingKey: routingKey,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *AMQPSender) Send(ctx context.Context, n Notice) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return s.channel.PublishWithContext(ctx,
		s.exchange,
		s.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    s.now(),
			DeliveryMode: amqp.Persistent,
			MessageId:    fmt.Sprintf("overdue-notice-%d", n.LoanID),
		},
	)
}

func (s *AMQPSender) Close() {
	if s.channel != nil {
		_ = s.channel.Close()
	}
	if s.conn != nil {
		_ = s.conn.Close()
	}
}
