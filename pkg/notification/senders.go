package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/InfiniteGosi/YolmaFoodApp/pkg/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

// Sender delivers a message over one channel. Send must honour ctx.
type Sender interface {
	Channel() string
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the service log. Used in development and as
// the fallback channel.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("notification")}
}

func (s *LogSender) Channel() string { return "log" }

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info("Sending notification",
		zap.String("kind", string(msg.Kind)),
		zap.String("recipient", msg.Recipient),
		zap.String("order_id", msg.OrderID),
		zap.String("subject", msg.Subject))
	return nil
}

// EmailSender sends messages over SMTP.
type EmailSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewEmailSender(cfg config.MailConfig) *EmailSender {
	return &EmailSender{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *EmailSender) Channel() string { return "email" }

func (s *EmailSender) Send(ctx context.Context, msg Message) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.Recipient)
	m.SetHeader("Subject", msg.Subject)
	if msg.IsHTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	// gomail has no context support; abandon the dial when ctx ends.
	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send email to %s: %w", msg.Recipient, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("send email to %s: %w", msg.Recipient, ctx.Err())
	}
}

// MessageWriter is the subset of *kafka.Writer the sender uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds the writer for the notification topic.
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// KafkaSender publishes notification events for downstream channels
// (push, SMS) owned by other services.
type KafkaSender struct {
	writer MessageWriter
}

func NewKafkaSender(writer MessageWriter) *KafkaSender {
	return &KafkaSender{writer: writer}
}

func (s *KafkaSender) Channel() string { return "kafka" }

func (s *KafkaSender) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	key := msg.OrderID
	if key == "" {
		key = msg.Recipient
	}
	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(msg.Kind)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
