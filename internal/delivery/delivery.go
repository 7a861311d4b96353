// Package delivery forwards completed orders and audit records to the
// outside world. Failures are reported to the caller, which only logs them.
package delivery

import (
	"context"

	"github.com/avvvet/coffeebuddy/internal/models"
	logx "github.com/avvvet/coffeebuddy/pkg/logger"
)

// OrderSink receives each completed order once.
type OrderSink interface {
	SubmitOrder(ctx context.Context, order models.Order) error
}

// AuditLog receives one entry per answered message.
type AuditLog interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// LogSink writes orders and audit entries to the service log.
type LogSink struct{}

func (LogSink) SubmitOrder(_ context.Context, order models.Order) error {
	logx.Info().Str("user_id", order.UserID).Str("summary", order.Summary()).Msg("order received")
	return nil
}

func (LogSink) Record(_ context.Context, entry models.AuditEntry) error {
	logx.Info().Str("user_id", entry.UserID).Str("dialog", entry.Text()).Msg("audit")
	return nil
}

var (
	_ OrderSink = LogSink{}
	_ AuditLog  = LogSink{}
)
