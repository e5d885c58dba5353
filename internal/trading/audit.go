package trading

import (
	"context"
	"log/slog"

	"github.com/glory03023/datura-ai-fastapi-task/internal/domain"
)

// MirroredAuditLog writes to a primary log and copies each record to mirrors.
// Only the primary write decides the result; mirror failures are logged.
type MirroredAuditLog struct {
	primary domain.AuditLog
	mirrors []domain.AuditLog
}

var _ domain.AuditLog = (*MirroredAuditLog)(nil)

func NewMirroredAuditLog(primary domain.AuditLog, mirrors ...domain.AuditLog) *MirroredAuditLog {
	return &MirroredAuditLog{primary: primary, mirrors: mirrors}
}

func (m *MirroredAuditLog) AppendTradingAction(ctx context.Context, action domain.TradingAction) error {
	if err := m.primary.AppendTradingAction(ctx, action); err != nil {
		return err
	}
	for _, mirror := range m.mirrors {
		if err := mirror.AppendTradingAction(ctx, action); err != nil {
			slog.WarnContext(ctx, "Failed to mirror trading action", "action_id", action.ID, "error", err)
		}
	}
	return nil
}
