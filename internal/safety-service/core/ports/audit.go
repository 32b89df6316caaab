package ports

import (
	"context"

	"carpool-safety/internal/safety-service/core/domain/model"
)

// IViolationAudit is the local evidence log. Append failures must never block
// enforcement; callers log and continue.
type IViolationAudit interface {
	Append(ctx context.Context, v model.SpeedViolation) error
	Close() error
}
