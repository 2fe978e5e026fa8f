// Package oplog writes login flow events and redemption operations to zap.
package oplog

import (
	"context"

	"go.uber.org/zap"

	"github.com/dhemutton/mobile-application/internal/auth"
	"github.com/dhemutton/mobile-application/internal/redemption"
	"github.com/dhemutton/mobile-application/pkg/supply"
)

const (
	messageFlowEvent = "login flow"
	messageOperation = "redemption operation"
	statusError      = "error"
)

// Logger adapts a zap.Logger to auth.FlowLogger and redemption.OperationLogger.
type Logger struct {
	logger *zap.Logger
}

var (
	_ auth.FlowLogger            = (*Logger)(nil)
	_ redemption.OperationLogger = (*Logger)(nil)
)

// New returns a Logger. A nil logger discards everything.
func New(logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{logger: logger}
}

// LogFlowEvent records one step of the login flow. The mobile number is
// masked before it is written.
func (adapter *Logger) LogFlowEvent(ctx context.Context, event auth.FlowEvent) {
	fields := []zap.Field{
		zap.String("action", event.Action),
		zap.String("stage", string(event.Stage)),
		zap.String("mobile_number", auth.MaskMobileNumber(event.MobileNumber)),
		zap.String("endpoint", event.Endpoint),
		zap.String("status", event.Status),
	}
	if event.Error != nil {
		fields = append(fields, zap.Error(event.Error), zap.String("login_error_class", auth.ClassifyLoginError(auth.ErrorMessage(event.Error)).String()))
		if code := supply.ErrorCode(event.Error); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
	}
	adapter.write(event.Status, messageFlowEvent, fields)
}

// LogOperation records one quota or checkout operation.
func (adapter *Logger) LogOperation(ctx context.Context, entry redemption.OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("identity", entry.Identity),
		zap.String("endpoint", entry.Endpoint),
		zap.Strings("categories", entry.Categories),
		zap.String("status", entry.Status),
	}
	if entry.Transactions > 0 {
		fields = append(fields, zap.Int("transactions", entry.Transactions), zap.Int("batches", entry.Batches))
	}
	if entry.Error != nil {
		fields = append(fields, zap.Error(entry.Error))
		if code := supply.ErrorCode(entry.Error); code != "" {
			fields = append(fields, zap.String("error_code", code))
		}
	}
	adapter.write(entry.Status, messageOperation, fields)
}

func (adapter *Logger) write(status string, message string, fields []zap.Field) {
	if status == statusError {
		adapter.logger.Warn(message, fields...)
		return
	}
	adapter.logger.Info(message, fields...)
}
