package httpserver

import (
	"context"

	"go.uber.org/zap"

	"github.com/rentloop/rentcore/pkg/rental"
)

// ZapOperationLogger adapts a zap logger to the domain's OperationLogger.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wraps logger.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	return &ZapOperationLogger{logger: logger}
}

func (operationLogger *ZapOperationLogger) LogOperation(_ context.Context, entry rental.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
	}
	if !entry.Actor.IsZero() {
		fields = append(fields, zap.String("actor", entry.Actor.String()))
	}
	if !entry.BookingID.IsZero() {
		fields = append(fields, zap.String("booking_id", entry.BookingID.String()))
	}
	if !entry.PayoutID.IsZero() {
		fields = append(fields, zap.String("payout_id", entry.PayoutID.String()))
	}
	if entry.AmountCents.Int64() > 0 {
		fields = append(fields, zap.Int64("amount_cents", entry.AmountCents.Int64()))
	}
	if entry.Error != nil {
		operationLogger.logger.Warn("operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	operationLogger.logger.Info("operation completed", fields...)
}
