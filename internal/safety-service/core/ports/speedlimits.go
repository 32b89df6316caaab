package ports

import "context"

// ISpeedLimitSource resolves the posted limit for a position. Implementations
// may cache; callers must treat errors as "limit unknown", never as zero.
type ISpeedLimitSource interface {
	LimitMph(ctx context.Context, latitude, longitude float64) (float64, error)
}
