package reporting

import (
	"context"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/models"
)

// Repository is the read slice of the store used by reports
type Repository interface {
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	ListMarkets(ctx context.Context, q store.MarketQuery) ([]models.Market, error)
	MarketTotals(ctx context.Context) ([]store.StateTotal, error)
	ListPositions(ctx context.Context, marketID string) ([]models.Position, error)
}

// Service serves paged market listings, per-market snapshots and
// platform-wide totals. Nothing here mutates state.
type Service interface {
	ActiveMarkets(ctx context.Context, cursor int64, limit int) (models.Page[MarketSummary], error)
	MarketsByState(ctx context.Context, state models.MarketState, cursor int64, limit int) (models.Page[MarketSummary], error)
	Snapshot(ctx context.Context, marketID string) (*MarketSnapshot, error)
	PlatformStats(ctx context.Context) (*PlatformStats, error)
}
