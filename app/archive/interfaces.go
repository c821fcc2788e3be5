package archive

import (
	"context"
	"time"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/models"
)

// Repository defines the storage the archive reads and appends to
type Repository interface {
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	GetArchiveEntry(ctx context.Context, marketID string) (*models.ArchiveEntry, error)
	CreateArchiveEntry(ctx context.Context, entry *models.ArchiveEntry) error
	ListArchive(ctx context.Context, q store.ArchiveQuery) ([]models.ArchiveEntry, error)
}

// Service defines the archive operations
type Service interface {
	Archive(ctx context.Context, marketID string) (*models.PublicMarket, error)
	ByTimeRange(ctx context.Context, from, to time.Time, cursor int64, limit int) (models.Page[models.PublicMarket], error)
	ByStatus(ctx context.Context, state models.MarketState, cursor int64, limit int) (models.Page[models.PublicMarket], error)
	ByCategory(ctx context.Context, category string, cursor int64, limit int) (models.Page[models.PublicMarket], error)
	Export(ctx context.Context, before time.Time) (*ExportResult, error)
}
