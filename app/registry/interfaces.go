package registry

import (
	"context"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/models"
)

// Repository is the slice of the store the identifier generator owns
type Repository interface {
	GetCounter(ctx context.Context, creator string) (*models.CreatorCounter, error)
	SaveCounter(ctx context.Context, counter *models.CreatorCounter) error
	RegistryHas(ctx context.Context, marketID string) (bool, error)
	AppendRegistry(ctx context.Context, entry *models.RegistryEntry) error
	ListRegistry(ctx context.Context, q store.RegistryQuery) ([]models.RegistryEntry, error)
}

// Service assigns market identifiers and serves the append-only registry
type Service interface {
	// Generate derives the next free id for creator and appends it to the
	// registry. It must run inside the caller's unit of work.
	Generate(ctx context.Context, creator string) (*models.RegistryEntry, error)
	GetRegistry(ctx context.Context, cursor int64, limit int) (models.Page[models.RegistryEntry], error)
	GetByCreator(ctx context.Context, creator string, cursor int64, limit int) (models.Page[models.RegistryEntry], error)
}
