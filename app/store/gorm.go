package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/joefazee/settlement/models"
)

type txKey struct{}

// GormStore implements Store on PostgreSQL through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new store backed by db
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

var _ Store = (*GormStore)(nil)

// conn returns the transaction on ctx, or the base connection.
func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// forUpdate locks the selected rows when running inside a transaction.
func (s *GormStore) forUpdate(ctx context.Context) *gorm.DB {
	q := s.conn(ctx)
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (s *GormStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func notFound(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func upsert(db *gorm.DB, value interface{}) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

// GetMarket returns a market by ID
func (s *GormStore) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	var market models.Market
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&market).Error; err != nil {
		return nil, notFound(err, models.ErrMarketNotFound)
	}
	return &market, nil
}

// CreateMarket creates a new market
func (s *GormStore) CreateMarket(ctx context.Context, market *models.Market) error {
	return s.conn(ctx).Create(market).Error
}

// UpdateMarket writes every column of an existing market
func (s *GormStore) UpdateMarket(ctx context.Context, market *models.Market) error {
	return s.conn(ctx).Save(market).Error
}

func (s *GormStore) ListMarkets(ctx context.Context, q MarketQuery) ([]models.Market, error) {
	var markets []models.Market
	query := s.conn(ctx).Model(&models.Market{}).Where("seq > ?", q.AfterSeq)
	if len(q.States) > 0 {
		query = query.Where("state IN ?", q.States)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Order("seq ASC").Find(&markets).Error
	return markets, err
}

func (s *GormStore) MarketTotals(ctx context.Context) ([]StateTotal, error) {
	var totals []StateTotal
	err := s.conn(ctx).Model(&models.Market{}).
		Select("state, COUNT(*) AS count, " +
			"COALESCE(SUM(total_staked), 0) AS total_staked, " +
			"COALESCE(SUM(paid_out), 0) AS paid_out, " +
			"COALESCE(SUM(fees_collected), 0) AS fees_collected, " +
			"COALESCE(SUM(swept_amount), 0) AS swept_amount").
		Group("state").
		Order("state").
		Scan(&totals).Error
	return totals, err
}

func (s *GormStore) GetPosition(ctx context.Context, marketID, userID string) (*models.Position, error) {
	var position models.Position
	err := s.forUpdate(ctx).Where("market_id = ? AND user_id = ?", marketID, userID).First(&position).Error
	if err != nil {
		return nil, notFound(err, models.ErrPositionNotFound)
	}
	return &position, nil
}

func (s *GormStore) SavePosition(ctx context.Context, position *models.Position) error {
	return upsert(s.conn(ctx), position)
}

func (s *GormStore) ListPositions(ctx context.Context, marketID string) ([]models.Position, error) {
	var positions []models.Position
	err := s.conn(ctx).Where("market_id = ?", marketID).Order("user_id ASC").Find(&positions).Error
	return positions, err
}

func (s *GormStore) GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error) {
	var balance models.Balance
	err := s.forUpdate(ctx).Where("user_id = ? AND asset = ?", userID, asset).First(&balance).Error
	if err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &balance, nil
}

func (s *GormStore) SaveBalance(ctx context.Context, balance *models.Balance) error {
	return upsert(s.conn(ctx), balance)
}

func (s *GormStore) GetCounter(ctx context.Context, creator string) (*models.CreatorCounter, error) {
	var counter models.CreatorCounter
	if err := s.forUpdate(ctx).Where("creator = ?", creator).First(&counter).Error; err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &counter, nil
}

func (s *GormStore) SaveCounter(ctx context.Context, counter *models.CreatorCounter) error {
	return upsert(s.conn(ctx), counter)
}

func (s *GormStore) RegistryHas(ctx context.Context, marketID string) (bool, error) {
	var count int64
	err := s.conn(ctx).Model(&models.RegistryEntry{}).Where("market_id = ?", marketID).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) AppendRegistry(ctx context.Context, entry *models.RegistryEntry) error {
	return s.conn(ctx).Create(entry).Error
}

func (s *GormStore) ListRegistry(ctx context.Context, q RegistryQuery) ([]models.RegistryEntry, error) {
	var entries []models.RegistryEntry
	query := s.conn(ctx).Where("seq > ?", q.AfterSeq)
	if q.Creator != "" {
		query = query.Where("creator = ?", q.Creator)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Order("seq ASC").Find(&entries).Error
	return entries, err
}

func (s *GormStore) GetRecoveryRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error) {
	var record models.RecoveryRecord
	if err := s.forUpdate(ctx).Where("market_id = ?", marketID).First(&record).Error; err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &record, nil
}

func (s *GormStore) SaveRecoveryRecord(ctx context.Context, record *models.RecoveryRecord) error {
	return upsert(s.conn(ctx), record)
}

func (s *GormStore) GetArchiveEntry(ctx context.Context, marketID string) (*models.ArchiveEntry, error) {
	var entry models.ArchiveEntry
	if err := s.conn(ctx).Where("market_id = ?", marketID).First(&entry).Error; err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &entry, nil
}

func (s *GormStore) CreateArchiveEntry(ctx context.Context, entry *models.ArchiveEntry) error {
	res := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "market_id"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrAlreadyArchived
	}
	return nil
}

func (s *GormStore) ListArchive(ctx context.Context, q ArchiveQuery) ([]models.ArchiveEntry, error) {
	var entries []models.ArchiveEntry
	query := s.conn(ctx).Where("seq > ?", q.AfterSeq)
	if q.From != nil {
		query = query.Where("end_time >= ?", *q.From)
	}
	if q.To != nil {
		query = query.Where("end_time < ?", *q.To)
	}
	if q.State != "" {
		query = query.Where("state = ?", q.State)
	}
	if q.Category != "" {
		query = query.Where("category = ?", q.Category)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}
	err := query.Order("seq ASC").Find(&entries).Error
	return entries, err
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := s.forUpdate(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &account, nil
}

func (s *GormStore) SaveAccount(ctx context.Context, account *models.Account) error {
	return upsert(s.conn(ctx), account)
}

func (s *GormStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings
	if err := s.conn(ctx).Where("id = ?", models.SettingsID).First(&settings).Error; err != nil {
		return nil, notFound(err, models.ErrRecordNotFound)
	}
	return &settings, nil
}

func (s *GormStore) SaveSettings(ctx context.Context, settings *models.Settings) error {
	settings.ID = models.SettingsID
	return upsert(s.conn(ctx), settings)
}

// AutoMigrate creates or updates the engine tables. Used by tests and by
// deployments that do not run the SQL migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Market{},
		&models.Position{},
		&models.Balance{},
		&models.RegistryEntry{},
		&models.CreatorCounter{},
		&models.RecoveryRecord{},
		&models.ArchiveEntry{},
		&models.Account{},
		&models.Settings{},
	)
}
