package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mu         sync.Mutex
	messages   []kafka.Message
	shouldFail bool
	closed     bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errors.New("kafka error")
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testAction() domain.TradingAction {
	return domain.TradingAction{
		ID:            uuid.MustParse("0b8f5c1e-3d0a-4c57-9d5e-6f1b2a3c4d5e"),
		UserID:        uuid.MustParse("7a1c2b3d-4e5f-4a6b-8c7d-9e0f1a2b3c4d"),
		Kind:          domain.TradeStake,
		Netuid:        18,
		Hotkey:        "5GrwvaEF5zXb26Fz9rcQpDWS57CtERHpNehXCPcNoHGKutQY",
		Amount:        decimal.RequireFromString("0.42"),
		TransactionID: "tx-1",
		CreatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_AppendTradingAction(t *testing.T) {
	w := &mockWriter{}
	p := NewPublisher(w)
	action := testAction()

	require.NoError(t, p.AppendTradingAction(context.Background(), action))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, []byte(action.Hotkey), msg.Key)
	assert.Equal(t, action.CreatedAt, msg.Time)

	var event tradingActionEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, action.ID.String(), event.ID)
	assert.Equal(t, action.UserID.String(), event.UserID)
	assert.Equal(t, "stake", event.ActionType)
	assert.Equal(t, 18, event.Netuid)
	assert.Equal(t, "0.42", event.Amount)
	assert.Equal(t, "tx-1", event.TransactionID)
	assert.Equal(t, action.CreatedAt.UnixMicro(), event.Timestamp)
}

func TestPublisher_WriteError(t *testing.T) {
	p := NewPublisher(&mockWriter{shouldFail: true})

	err := p.AppendTradingAction(context.Background(), testAction())
	assert.ErrorContains(t, err, "kafka error")
}

func TestPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, NewPublisher(w).Close())
	assert.True(t, w.closed)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092", "localhost:9093"}, "trading-actions")
	assert.Equal(t, "trading-actions", w.Topic)
	assert.Equal(t, "localhost:9092,localhost:9093", w.Addr.String())
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
}
