package command

import (
	"context"
	"log/slog"

	"github.com/MLAAHL/Smart-Attendance-sub001/internal/domain/partition"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPROVISION PARTITION COMMAND
// Drops and recreates one partition's physical storage. Destructive, and
// only available when the deployment explicitly enables it; routine code
// paths always go through lazy provisioning instead.
// ══════════════════════════════════════════════════════════════════════════════

// Reprovisioner destroys and recreates a partition's storage.
type Reprovisioner interface {
	Reprovision(ctx context.Context, key partition.Key) error
}

// ReprovisionPartitionCommand identifies the partition to rebuild.
type ReprovisionPartitionCommand struct {
	Key partition.Key
}

// ReprovisionPartitionHandler handles the ReprovisionPartitionCommand.
type ReprovisionPartitionHandler struct {
	reprovisioner Reprovisioner
	logger        *slog.Logger
}

// NewReprovisionPartitionHandler creates a ReprovisionPartitionHandler.
func NewReprovisionPartitionHandler(reprovisioner Reprovisioner, logger *slog.Logger) *ReprovisionPartitionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReprovisionPartitionHandler{reprovisioner: reprovisioner, logger: logger}
}

// Handle rebuilds the partition.
func (h *ReprovisionPartitionHandler) Handle(ctx context.Context, cmd ReprovisionPartitionCommand) error {
	if err := cmd.Key.Validate(); err != nil {
		return err
	}

	h.logger.Warn("reprovisioning partition, existing data will be dropped",
		slog.String("key", cmd.Key.String()))
	return h.reprovisioner.Reprovision(ctx, cmd.Key)
}
