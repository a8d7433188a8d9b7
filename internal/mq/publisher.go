package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeRunRequested    MessageType = "run.requested"
	MessageTypeReportCompleted MessageType = "report.completed"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// RunRequestedPayload — payload для запроса немедленной проверки.
type RunRequestedPayload struct {
	RunID       uuid.UUID `json:"run_id"`
	TriggeredBy string    `json:"triggered_by"`
}

// ReportCompletedPayload — payload для события о готовом отчёте.
type ReportCompletedPayload struct {
	RunID         uuid.UUID `json:"run_id"`
	OverallStatus string    `json:"overall_status"`
	Partial       bool      `json:"partial,omitempty"`
	ArtifactRef   string    `json:"artifact_ref,omitempty"`
	ArtifactURL   string    `json:"artifact_url,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:    msg.ID,
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)

		return nil
	})
}

// PublishRunRequested публикует запрос на немедленную проверку.
// Потребитель: Runner.
func (p *Publisher) PublishRunRequested(ctx context.Context, runID uuid.UUID, triggeredBy string) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeRunRequested,
		Payload:   RunRequestedPayload{RunID: runID, TriggeredBy: triggeredBy},
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeRuns, RoutingKeyRequested, msg)
}

// PublishReportCompleted публикует событие о готовом отчёте.
// Потребители: внешние нотификаторы (почта, чат).
func (p *Publisher) PublishReportCompleted(ctx context.Context, payload ReportCompletedPayload) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      MessageTypeReportCompleted,
		Payload:   payload,
		Timestamp: time.Now(),
	}

	return p.Publish(ctx, ExchangeReports, RoutingKeyCompleted, msg)
}
