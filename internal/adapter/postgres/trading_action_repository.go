package postgres

import (
	"context"
	"fmt"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// TradingActionRepo is the append-only audit table of executed stakes and unstakes.
type TradingActionRepo struct {
	pool *pgxpool.Pool
}

var _ domain.AuditLog = (*TradingActionRepo)(nil)

func NewTradingActionRepo(pool *pgxpool.Pool) *TradingActionRepo {
	return &TradingActionRepo{pool: pool}
}

func (r *TradingActionRepo) AppendTradingAction(ctx context.Context, a domain.TradingAction) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO trading_actions (id, user_id, action_type, netuid, hotkey, amount, transaction_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7, $8)`,
		a.ID, a.UserID, string(a.Kind), int32(a.Netuid), a.Hotkey, a.Amount.String(), a.TransactionID, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trading action: %w", err)
	}
	return nil
}

// ListByUser returns the user's actions, newest first.
func (r *TradingActionRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]domain.TradingAction, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action_type, netuid, hotkey, amount::text, transaction_id, created_at
		FROM trading_actions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trading actions: %w", err)
	}

	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TradingAction, error) {
		var (
			a      domain.TradingAction
			kind   string
			netuid int32
			amount string
		)
		if err := row.Scan(&a.ID, &a.UserID, &kind, &netuid, &a.Hotkey, &amount, &a.TransactionID, &a.CreatedAt); err != nil {
			return a, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return a, fmt.Errorf("invalid stored amount %q: %w", amount, err)
		}
		a.Kind = domain.TradeKind(kind)
		a.Netuid = domain.Netuid(netuid)
		a.Amount = dec
		return a, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan trading actions: %w", err)
	}
	return actions, nil
}
