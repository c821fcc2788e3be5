package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

type balanceKey struct {
	user  string
	asset string
}

type memState struct {
	markets     map[string]*models.Market
	positions   map[string]map[string]*models.Position
	balances    map[balanceKey]*models.Balance
	counters    map[string]models.CreatorCounter
	registry    []models.RegistryEntry
	registryIdx map[string]struct{}
	registrySeq int64
	recovery    map[string]*models.RecoveryRecord
	archive     []models.ArchiveEntry
	archiveIdx  map[string]int
	archiveSeq  int64
	accounts    map[string]models.Account
	settings    *models.Settings
}

func newMemState() *memState {
	return &memState{
		markets:     make(map[string]*models.Market),
		positions:   make(map[string]map[string]*models.Position),
		balances:    make(map[balanceKey]*models.Balance),
		counters:    make(map[string]models.CreatorCounter),
		registryIdx: make(map[string]struct{}),
		recovery:    make(map[string]*models.RecoveryRecord),
		archiveIdx:  make(map[string]int),
		accounts:    make(map[string]models.Account),
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, m := range s.markets {
		c.markets[k] = m.Clone()
	}
	for k, byUser := range s.positions {
		cp := make(map[string]*models.Position, len(byUser))
		for u, p := range byUser {
			cp[u] = p.Clone()
		}
		c.positions[k] = cp
	}
	for k, b := range s.balances {
		bc := *b
		c.balances[k] = &bc
	}
	for k, v := range s.counters {
		c.counters[k] = v
	}
	c.registry = append([]models.RegistryEntry(nil), s.registry...)
	for k := range s.registryIdx {
		c.registryIdx[k] = struct{}{}
	}
	c.registrySeq = s.registrySeq
	for k, r := range s.recovery {
		c.recovery[k] = r.Clone()
	}
	c.archive = append([]models.ArchiveEntry(nil), s.archive...)
	for k, v := range s.archiveIdx {
		c.archiveIdx[k] = v
	}
	c.archiveSeq = s.archiveSeq
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	if s.settings != nil {
		c.settings = s.settings.Clone()
	}
	return c
}

type memTx struct {
	owner *MemoryStore
	state *memState
}

type memTxKey struct{}

// MemoryStore implements Store in process memory. A unit of work runs on a
// private copy of the state that replaces the live state on success.
type MemoryStore struct {
	mu    sync.RWMutex
	state *memState
	now   func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), now: func() time.Time { return time.Now().UTC() }}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) tx(ctx context.Context) (*memState, bool) {
	if tx, ok := ctx.Value(memTxKey{}).(*memTx); ok && tx.owner == s {
		return tx.state, true
	}
	return nil, false
}

func (s *MemoryStore) read(ctx context.Context, fn func(st *memState) error) error {
	if st, ok := s.tx(ctx); ok {
		return fn(st)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.state)
}

func (s *MemoryStore) write(ctx context.Context, fn func(st *memState) error) error {
	if st, ok := s.tx(ctx); ok {
		return fn(st)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := s.tx(ctx); ok {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, &memTx{owner: s, state: work})); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *MemoryStore) GetMarket(ctx context.Context, id string) (*models.Market, error) {
	var out *models.Market
	err := s.read(ctx, func(st *memState) error {
		m, ok := st.markets[id]
		if !ok {
			return models.ErrMarketNotFound
		}
		out = m.Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) CreateMarket(ctx context.Context, market *models.Market) error {
	return s.write(ctx, func(st *memState) error {
		if _, exists := st.markets[market.ID]; exists {
			return models.ErrAlreadyExecuted
		}
		if market.State == "" {
			market.State = models.MarketStateActive
		}
		now := s.now()
		market.CreatedAt, market.UpdatedAt = now, now
		st.markets[market.ID] = market.Clone()
		return nil
	})
}

func (s *MemoryStore) UpdateMarket(ctx context.Context, market *models.Market) error {
	return s.write(ctx, func(st *memState) error {
		if _, exists := st.markets[market.ID]; !exists {
			return models.ErrMarketNotFound
		}
		market.UpdatedAt = s.now()
		st.markets[market.ID] = market.Clone()
		return nil
	})
}

func (s *MemoryStore) ListMarkets(ctx context.Context, q MarketQuery) ([]models.Market, error) {
	var out []models.Market
	err := s.read(ctx, func(st *memState) error {
		for _, m := range st.markets {
			if q.matches(m) {
				out = append(out, *m.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, err
}

func (s *MemoryStore) MarketTotals(ctx context.Context) ([]StateTotal, error) {
	byState := map[models.MarketState]*StateTotal{}
	err := s.read(ctx, func(st *memState) error {
		for _, m := range st.markets {
			t, ok := byState[m.State]
			if !ok {
				t = &StateTotal{State: m.State, TotalStaked: decimal.Zero, PaidOut: decimal.Zero,
					FeesCollected: decimal.Zero, SweptAmount: decimal.Zero}
				byState[m.State] = t
			}
			t.Count++
			t.TotalStaked = t.TotalStaked.Add(m.TotalStaked)
			t.PaidOut = t.PaidOut.Add(m.PaidOut)
			t.FeesCollected = t.FeesCollected.Add(m.FeesCollected)
			t.SweptAmount = t.SweptAmount.Add(m.SweptAmount)
		}
		return nil
	})
	out := make([]StateTotal, 0, len(byState))
	for _, t := range byState {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out, err
}

func (s *MemoryStore) GetPosition(ctx context.Context, marketID, userID string) (*models.Position, error) {
	var out *models.Position
	err := s.read(ctx, func(st *memState) error {
		p, ok := st.positions[marketID][userID]
		if !ok {
			return models.ErrPositionNotFound
		}
		out = p.Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) SavePosition(ctx context.Context, position *models.Position) error {
	return s.write(ctx, func(st *memState) error {
		byUser, ok := st.positions[position.MarketID]
		if !ok {
			byUser = make(map[string]*models.Position)
			st.positions[position.MarketID] = byUser
		}
		now := s.now()
		if position.CreatedAt.IsZero() {
			position.CreatedAt = now
		}
		position.UpdatedAt = now
		byUser[position.UserID] = position.Clone()
		return nil
	})
}

func (s *MemoryStore) ListPositions(ctx context.Context, marketID string) ([]models.Position, error) {
	var out []models.Position
	err := s.read(ctx, func(st *memState) error {
		for _, p := range st.positions[marketID] {
			out = append(out, *p.Clone())
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, err
}

func (s *MemoryStore) GetBalance(ctx context.Context, userID, asset string) (*models.Balance, error) {
	var out *models.Balance
	err := s.read(ctx, func(st *memState) error {
		b, ok := st.balances[balanceKey{userID, asset}]
		if !ok {
			return models.ErrRecordNotFound
		}
		c := *b
		out = &c
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveBalance(ctx context.Context, balance *models.Balance) error {
	return s.write(ctx, func(st *memState) error {
		now := s.now()
		if balance.CreatedAt.IsZero() {
			balance.CreatedAt = now
		}
		balance.UpdatedAt = now
		c := *balance
		st.balances[balanceKey{balance.UserID, balance.Asset}] = &c
		return nil
	})
}

func (s *MemoryStore) GetCounter(ctx context.Context, creator string) (*models.CreatorCounter, error) {
	var out *models.CreatorCounter
	err := s.read(ctx, func(st *memState) error {
		c, ok := st.counters[creator]
		if !ok {
			return models.ErrRecordNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveCounter(ctx context.Context, counter *models.CreatorCounter) error {
	return s.write(ctx, func(st *memState) error {
		counter.UpdatedAt = s.now()
		st.counters[counter.Creator] = *counter
		return nil
	})
}

func (s *MemoryStore) RegistryHas(ctx context.Context, marketID string) (bool, error) {
	var found bool
	err := s.read(ctx, func(st *memState) error {
		_, found = st.registryIdx[marketID]
		return nil
	})
	return found, err
}

func (s *MemoryStore) AppendRegistry(ctx context.Context, entry *models.RegistryEntry) error {
	return s.write(ctx, func(st *memState) error {
		if _, exists := st.registryIdx[entry.MarketID]; exists {
			return models.ErrAlreadyExecuted
		}
		st.registrySeq++
		entry.Seq = st.registrySeq
		st.registry = append(st.registry, *entry)
		st.registryIdx[entry.MarketID] = struct{}{}
		return nil
	})
}

func (s *MemoryStore) ListRegistry(ctx context.Context, q RegistryQuery) ([]models.RegistryEntry, error) {
	var out []models.RegistryEntry
	err := s.read(ctx, func(st *memState) error {
		for _, e := range st.registry {
			if e.Seq <= q.AfterSeq || (q.Creator != "" && e.Creator != q.Creator) {
				continue
			}
			out = append(out, e)
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) GetRecoveryRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error) {
	var out *models.RecoveryRecord
	err := s.read(ctx, func(st *memState) error {
		r, ok := st.recovery[marketID]
		if !ok {
			return models.ErrRecordNotFound
		}
		out = r.Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveRecoveryRecord(ctx context.Context, record *models.RecoveryRecord) error {
	return s.write(ctx, func(st *memState) error {
		now := s.now()
		if record.CreatedAt.IsZero() {
			record.CreatedAt = now
		}
		record.UpdatedAt = now
		st.recovery[record.MarketID] = record.Clone()
		return nil
	})
}

func (s *MemoryStore) GetArchiveEntry(ctx context.Context, marketID string) (*models.ArchiveEntry, error) {
	var out *models.ArchiveEntry
	err := s.read(ctx, func(st *memState) error {
		i, ok := st.archiveIdx[marketID]
		if !ok {
			return models.ErrRecordNotFound
		}
		e := st.archive[i]
		out = &e
		return nil
	})
	return out, err
}

func (s *MemoryStore) CreateArchiveEntry(ctx context.Context, entry *models.ArchiveEntry) error {
	return s.write(ctx, func(st *memState) error {
		if _, exists := st.archiveIdx[entry.MarketID]; exists {
			return models.ErrAlreadyArchived
		}
		st.archiveSeq++
		entry.Seq = st.archiveSeq
		st.archiveIdx[entry.MarketID] = len(st.archive)
		st.archive = append(st.archive, *entry)
		return nil
	})
}

func (s *MemoryStore) ListArchive(ctx context.Context, q ArchiveQuery) ([]models.ArchiveEntry, error) {
	var out []models.ArchiveEntry
	err := s.read(ctx, func(st *memState) error {
		for i := range st.archive {
			if !q.matches(&st.archive[i]) {
				continue
			}
			out = append(out, st.archive[i])
			if q.Limit > 0 && len(out) == q.Limit {
				break
			}
		}
		return nil
	})
	return out, err
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	var out *models.Account
	err := s.read(ctx, func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok {
			return models.ErrRecordNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveAccount(ctx context.Context, account *models.Account) error {
	return s.write(ctx, func(st *memState) error {
		now := s.now()
		if account.CreatedAt.IsZero() {
			account.CreatedAt = now
		}
		account.UpdatedAt = now
		st.accounts[account.ID] = *account
		return nil
	})
}

func (s *MemoryStore) GetSettings(ctx context.Context) (*models.Settings, error) {
	var out *models.Settings
	err := s.read(ctx, func(st *memState) error {
		if st.settings == nil {
			return models.ErrRecordNotFound
		}
		out = st.settings.Clone()
		return nil
	})
	return out, err
}

func (s *MemoryStore) SaveSettings(ctx context.Context, settings *models.Settings) error {
	return s.write(ctx, func(st *memState) error {
		settings.ID = models.SettingsID
		settings.UpdatedAt = s.now()
		st.settings = settings.Clone()
		return nil
	})
}
