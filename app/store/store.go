package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// Store is the persisted state of the engine. Every method honours a unit of
// work opened by Atomic on the same ctx.
type Store interface {
	// Atomic runs fn in one unit of work: all writes commit together or none
	// do. A nested call joins the unit of work already on ctx.
	Atomic(ctx context.Context, fn func(ctx context.Context) error) error

	GetMarket(ctx context.Context, id string) (*models.Market, error)
	CreateMarket(ctx context.Context, market *models.Market) error
	UpdateMarket(ctx context.Context, market *models.Market) error
	ListMarkets(ctx context.Context, q MarketQuery) ([]models.Market, error)
	MarketTotals(ctx context.Context) ([]StateTotal, error)

	GetPosition(ctx context.Context, marketID, userID string) (*models.Position, error)
	SavePosition(ctx context.Context, position *models.Position) error
	ListPositions(ctx context.Context, marketID string) ([]models.Position, error)

	GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error)
	SaveBalance(ctx context.Context, balance *models.Balance) error

	GetCounter(ctx context.Context, creator string) (*models.CreatorCounter, error)
	SaveCounter(ctx context.Context, counter *models.CreatorCounter) error
	RegistryHas(ctx context.Context, marketID string) (bool, error)
	AppendRegistry(ctx context.Context, entry *models.RegistryEntry) error
	ListRegistry(ctx context.Context, q RegistryQuery) ([]models.RegistryEntry, error)

	GetRecoveryRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error)
	SaveRecoveryRecord(ctx context.Context, record *models.RecoveryRecord) error

	GetArchiveEntry(ctx context.Context, marketID string) (*models.ArchiveEntry, error)
	CreateArchiveEntry(ctx context.Context, entry *models.ArchiveEntry) error
	ListArchive(ctx context.Context, q ArchiveQuery) ([]models.ArchiveEntry, error)

	GetAccount(ctx context.Context, id string) (*models.Account, error)
	SaveAccount(ctx context.Context, account *models.Account) error

	GetSettings(ctx context.Context) (*models.Settings, error)
	SaveSettings(ctx context.Context, settings *models.Settings) error
}

// MarketQuery filters markets by state and category after a Seq cursor.
type MarketQuery struct {
	States   []models.MarketState
	Category string
	AfterSeq int64
	Limit    int
}

// RegistryQuery pages the id registry, optionally for one creator.
type RegistryQuery struct {
	Creator  string
	AfterSeq int64
	Limit    int
}

// ArchiveQuery pages archive entries. From/To bound the market end time,
// inclusive of From and exclusive of To.
type ArchiveQuery struct {
	From     *time.Time
	To       *time.Time
	State    models.MarketState
	Category string
	AfterSeq int64
	Limit    int
}

// StateTotal aggregates markets in one state.
type StateTotal struct {
	State         models.MarketState
	Count         int64
	TotalStaked   decimal.Decimal
	PaidOut       decimal.Decimal
	FeesCollected decimal.Decimal
	SweptAmount   decimal.Decimal
}

func (q ArchiveQuery) matches(e *models.ArchiveEntry) bool {
	if e.Seq <= q.AfterSeq {
		return false
	}
	if q.From != nil && e.EndTime.Before(*q.From) {
		return false
	}
	if q.To != nil && !e.EndTime.Before(*q.To) {
		return false
	}
	if q.State != "" && e.State != q.State {
		return false
	}
	if q.Category != "" && e.Category != q.Category {
		return false
	}
	return true
}

func (q MarketQuery) matches(m *models.Market) bool {
	if m.Seq <= q.AfterSeq {
		return false
	}
	if q.Category != "" && m.Category != q.Category {
		return false
	}
	if len(q.States) == 0 {
		return true
	}
	for _, s := range q.States {
		if m.State == s {
			return true
		}
	}
	return false
}
