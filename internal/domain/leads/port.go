package leads

import (
	"context"
	"time"
)

// Repository port (interface for persistence)
type Repository interface {
	Save(ctx context.Context, l *Lead) error
	Get(ctx context.Context, id LeadID) (*Lead, error)
	// CountRecentByIP counts lead rows created by ip within the trailing
	// window; the gatekeeper's rate limit is built on this read.
	CountRecentByIP(ctx context.Context, ip string, window time.Duration) (int, error)
	UpdateFunnel(ctx context.Context, id LeadID, flags FunnelFlags) error
	Paginate(ctx context.Context, page, pageSize int) (PaginatedResult, error)
}
