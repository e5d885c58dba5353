// Package wallet provides a simulated staking wallet. It validates and logs
// each operation and returns a generated transaction ID without signing or
// submitting an extrinsic.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/substrate"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNonPositiveAmount = errors.New("amount must be positive")

type Simulated struct {
	newTxID func() string
}

var _ domain.Wallet = (*Simulated)(nil)

func NewSimulated() *Simulated {
	return &Simulated{newTxID: uuid.NewString}
}

func (w *Simulated) Stake(ctx context.Context, netuid domain.Netuid, hotkey string, amount decimal.Decimal) (string, error) {
	return w.submit(ctx, domain.TradeStake, netuid, hotkey, amount)
}

func (w *Simulated) Unstake(ctx context.Context, netuid domain.Netuid, hotkey string, amount decimal.Decimal) (string, error) {
	return w.submit(ctx, domain.TradeUnstake, netuid, hotkey, amount)
}

func (w *Simulated) submit(ctx context.Context, kind domain.TradeKind, netuid domain.Netuid, hotkey string, amount decimal.Decimal) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", fmt.Errorf("%s %s: %w", kind, amount, ErrNonPositiveAmount)
	}
	if err := substrate.ValidateAddress(hotkey); err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}

	txID := w.newTxID()
	slog.InfoContext(ctx, "Simulated wallet transaction",
		"action_type", kind,
		"netuid", netuid,
		"hotkey", hotkey,
		"amount", amount.String(),
		"transaction_id", txID)
	return txID, nil
}
