package gateway

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/notification"
	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/student"
)

// ConsoleGateway is a development gateway that logs messages instead of
// sending them. Useful for local runs and for dry-running a dispatch
// against production data.
type ConsoleGateway struct {
	logger *slog.Logger
}

// NewConsoleGateway creates a ConsoleGateway.
func NewConsoleGateway(logger *slog.Logger) *ConsoleGateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConsoleGateway{logger: logger}
}

// Send logs the message and fabricates a dispatch ID.
func (g *ConsoleGateway) Send(ctx context.Context, contact student.GuardianContact, msg notification.Message) (notification.SendResult, error) {
	id := uuid.NewString()
	g.logger.Info("console gateway send",
		slog.String("contact", contact.String()),
		slog.String("subject", msg.Subject),
		slog.String("dispatch_id", id))
	return notification.SendResult{DispatchID: id}, nil
}
