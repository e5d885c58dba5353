package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TradeKind string

const (
	TradeStake   TradeKind = "stake"
	TradeUnstake TradeKind = "unstake"
)

// TradingAction is an audit record of a confirmed wallet operation.
type TradingAction struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Kind          TradeKind       `json:"action_type"`
	Netuid        Netuid          `json:"netuid"`
	Hotkey        string          `json:"hotkey"`
	Amount        decimal.Decimal `json:"amount"`
	TransactionID string          `json:"transaction_id"`
	CreatedAt     time.Time       `json:"timestamp"`
}

type Wallet interface {
	Stake(ctx context.Context, netuid Netuid, hotkey string, amount decimal.Decimal) (txID string, err error)
	Unstake(ctx context.Context, netuid Netuid, hotkey string, amount decimal.Decimal) (txID string, err error)
}

type AuditLog interface {
	AppendTradingAction(ctx context.Context, action TradingAction) error
}
