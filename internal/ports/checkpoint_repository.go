package ports

import (
	"context"

	"checkpoint-route-service/internal/domain"
)

// Port: read-only source of the checkpoint graph snapshot.
type CheckpointRepository interface {
	// Retrieve every checkpoint together with its directional links.
	ListCheckpoints(ctx context.Context) ([]domain.CheckpointNode, error)
}
