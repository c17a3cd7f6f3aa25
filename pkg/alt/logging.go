package alt

import (
	"context"

	"go.uber.org/zap"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing ledger operation.
type OperationLog struct {
	Operation    string
	AccountID    AccountID
	Counterparty AccountID
	AmountALT    int64
	Reference    string
	Status       string
	Error        error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// ZapOperationLogger adapts a zap logger to the OperationLogger contract.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wires a ZapOperationLogger.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapOperationLogger{logger: logger}
}

// LogOperation emits one structured line per ledger operation.
func (zapLogger *ZapOperationLogger) LogOperation(_ context.Context, entry OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("account_id", entry.AccountID.String()),
		zap.Int64("amount_alt", entry.AmountALT),
		zap.String("status", entry.Status),
	}
	if !entry.Counterparty.IsZero() {
		fields = append(fields, zap.String("counterparty_id", entry.Counterparty.String()))
	}
	if entry.Reference != "" {
		fields = append(fields, zap.String("reference", entry.Reference))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		zapLogger.logger.Warn("ledger operation failed", fields...)
		return
	}
	zapLogger.logger.Info("ledger operation", fields...)
}
