// Package trading turns the sentiment signal into stake and unstake actions.
package trading

import (
	"context"
	"log/slog"
	"math"

	"github.com/glory03023/datura-ai-fastapi-task/internal/adapter/metrics"
	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// AmountPerPoint is the stake amount per point of absolute sentiment.
var AmountPerPoint = decimal.New(1, -2)

type Decision struct {
	Kind   domain.TradeKind // empty when no action is taken
	Amount decimal.Decimal
}

func (d Decision) None() bool { return d.Kind == "" }

// Decide stakes on positive sentiment and unstakes on negative sentiment,
// sized at |signal| x 0.01. A zero signal takes no action.
func Decide(signal float64) Decision {
	if signal == 0 || math.IsNaN(signal) {
		return Decision{}
	}

	amount := decimal.NewFromFloat(math.Abs(signal)).Mul(AmountPerPoint)
	if signal > 0 {
		return Decision{Kind: domain.TradeStake, Amount: amount}
	}
	return Decision{Kind: domain.TradeUnstake, Amount: amount}
}

type SignalReader interface {
	Value() float64
}

type Engine struct {
	signal  SignalReader
	wallet  domain.Wallet
	audit   domain.AuditLog
	clock   clockwork.Clock
	metrics *metrics.TradingMetrics
}

func NewEngine(signal SignalReader, wallet domain.Wallet, audit domain.AuditLog, clock clockwork.Clock, m *metrics.TradingMetrics) *Engine {
	return &Engine{signal: signal, wallet: wallet, audit: audit, clock: clock, metrics: m}
}

// Execute reads the current signal and performs the decided wallet operation.
// It reports true only when the wallet confirmed a transaction. The audit
// record is written only after confirmation; an audit failure is logged and
// does not change the result.
func (e *Engine) Execute(ctx context.Context, user *domain.User, netuid domain.Netuid, hotkey string) bool {
	signal := e.signal.Value()
	decision := Decide(signal)
	if decision.None() {
		slog.DebugContext(ctx, "Neutral sentiment, no trade", "netuid", netuid, "hotkey", hotkey)
		e.count("none", "skipped")
		return false
	}

	var (
		txID string
		err  error
	)
	switch decision.Kind {
	case domain.TradeStake:
		txID, err = e.wallet.Stake(ctx, netuid, hotkey, decision.Amount)
	case domain.TradeUnstake:
		txID, err = e.wallet.Unstake(ctx, netuid, hotkey, decision.Amount)
	}
	if err != nil || txID == "" {
		slog.ErrorContext(ctx, "Wallet operation failed",
			"action_type", decision.Kind, "netuid", netuid, "hotkey", hotkey,
			"amount", decision.Amount.String(), "error", err)
		e.count(string(decision.Kind), "failed")
		return false
	}

	action := domain.TradingAction{
		ID:            uuid.New(),
		UserID:        user.ID,
		Kind:          decision.Kind,
		Netuid:        netuid,
		Hotkey:        hotkey,
		Amount:        decision.Amount,
		TransactionID: txID,
		CreatedAt:     e.clock.Now().UTC(),
	}

	// The transaction already happened; record it even if the caller went away.
	if err := e.audit.AppendTradingAction(context.WithoutCancel(ctx), action); err != nil {
		slog.ErrorContext(ctx, "Failed to record trading action",
			"action_id", action.ID, "transaction_id", txID, "username", user.Username, "error", err)
	}

	slog.InfoContext(ctx, "Trading action executed",
		"action_type", decision.Kind, "netuid", netuid, "hotkey", hotkey,
		"amount", decision.Amount.String(), "signal", signal, "transaction_id", txID)
	e.count(string(decision.Kind), "executed")
	return true
}

func (e *Engine) count(kind, result string) {
	if e.metrics != nil {
		e.metrics.Actions.WithLabelValues(kind, result).Inc()
	}
}
