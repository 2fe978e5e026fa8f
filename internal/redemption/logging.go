package redemption

import "context"

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one quota or checkout operation.
type OperationLog struct {
	Operation    string
	Identity     string
	Endpoint     string
	Categories   []string
	Transactions int
	Batches      int
	Status       string
	Error        error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// WithHistory wires local persistence for quota snapshots and confirmed
// transaction groups.
func WithHistory(history History) ServiceOption {
	return func(service *Service) {
		service.history = history
	}
}
