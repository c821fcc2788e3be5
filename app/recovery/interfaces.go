package recovery

import (
	"context"

	"github.com/joefazee/settlement/models"
)

// Repository is the slice of the store the recovery validator works on
type Repository interface {
	GetMarket(ctx context.Context, id string) (*models.Market, error)
	UpdateMarket(ctx context.Context, market *models.Market) error
	GetPosition(ctx context.Context, marketID, userID string) (*models.Position, error)
	SavePosition(ctx context.Context, position *models.Position) error
	ListPositions(ctx context.Context, marketID string) ([]models.Position, error)
	GetRecoveryRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error)
	SaveRecoveryRecord(ctx context.Context, record *models.RecoveryRecord) error
}

// Service checks market invariants and repairs the ones that can be
// recomputed from positions.
type Service interface {
	// ValidateIntegrity returns the first violated invariant, or nil.
	ValidateIntegrity(ctx context.Context, marketID string) (*IntegrityReport, error)
	Recover(ctx context.Context, marketID string) (*RecoverResult, error)
	PartialRefund(ctx context.Context, marketID string, users []string) (*RefundResult, error)
	GetRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error)
}
