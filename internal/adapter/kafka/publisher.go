// Package kafka streams confirmed trading actions to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/segmentio/kafka-go"
)

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer Writer
}

var _ domain.AuditLog = (*Publisher)(nil)

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

func NewPublisher(w Writer) *Publisher {
	return &Publisher{writer: w}
}

type tradingActionEvent struct {
	ID            string `json:"id"`
	UserID        string `json:"user_id"`
	ActionType    string `json:"action_type"`
	Netuid        int    `json:"netuid"`
	Hotkey        string `json:"hotkey"`
	Amount        string `json:"amount"`
	TransactionID string `json:"transaction_id"`
	Timestamp     int64  `json:"timestamp"`
}

// AppendTradingAction publishes the action keyed by hotkey so events for one
// hotkey stay ordered within a partition.
func (p *Publisher) AppendTradingAction(ctx context.Context, action domain.TradingAction) error {
	payload, err := json.Marshal(tradingActionEvent{
		ID:            action.ID.String(),
		UserID:        action.UserID.String(),
		ActionType:    string(action.Kind),
		Netuid:        int(action.Netuid),
		Hotkey:        action.Hotkey,
		Amount:        action.Amount.String(),
		TransactionID: action.TransactionID,
		Timestamp:     action.CreatedAt.UnixMicro(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode trading action: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(action.Hotkey),
		Value: payload,
		Time:  action.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish trading action %s: %w", action.ID, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
