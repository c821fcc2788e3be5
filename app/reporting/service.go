package reporting

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/models"
)

const statsKey = "reporting:platform_stats"

type service struct {
	repo   Repository
	cache  cache.Cache[PlatformStats]
	clock  clock.Clock
	config *Config
	logger logger.Logger
}

// NewService creates a new reporting service. A nil cache disables
// caching of platform stats.
func NewService(repo Repository, c cache.Cache[PlatformStats], clk clock.Clock, config *Config, l logger.Logger) Service {
	if clk == nil {
		clk = clock.System{}
	}
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &service{repo: repo, cache: c, clock: clk, config: config, logger: l}
}

func (s *service) ActiveMarkets(ctx context.Context, cursor int64, limit int) (models.Page[MarketSummary], error) {
	return s.page(ctx, store.MarketQuery{States: []models.MarketState{models.MarketStateActive}, AfterSeq: cursor}, limit)
}

func (s *service) MarketsByState(ctx context.Context, state models.MarketState, cursor int64, limit int) (models.Page[MarketSummary], error) {
	if !state.IsValid() {
		return models.Page[MarketSummary]{}, fmt.Errorf("%w: unknown state %q", models.ErrInvalidInput, state)
	}
	return s.page(ctx, store.MarketQuery{States: []models.MarketState{state}, AfterSeq: cursor}, limit)
}

func (s *service) page(ctx context.Context, q store.MarketQuery, limit int) (models.Page[MarketSummary], error) {
	limit = models.ClampLimit(limit, s.config.MaxPageSize)
	q.Limit = limit + 1
	markets, err := s.repo.ListMarkets(ctx, q)
	if err != nil {
		return models.Page[MarketSummary]{}, fmt.Errorf("failed to list markets: %w", err)
	}
	rows := make([]MarketSummary, len(markets))
	for i := range markets {
		rows[i] = toSummary(&markets[i])
	}
	return models.NewPage(rows, limit, func(m MarketSummary) int64 { return m.Seq }), nil
}

// Snapshot aggregates positions per outcome. Multipliers follow the payout
// rule: total pool per 100 units staked on the outcome.
func (s *service) Snapshot(ctx context.Context, marketID string) (*MarketSnapshot, error) {
	market, err := s.repo.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}
	positions, err := s.repo.ListPositions(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list positions: %w", err)
	}

	byOutcome := make(map[string]*OutcomeSnapshot, len(market.Outcomes))
	snap := &MarketSnapshot{
		MarketID:       market.ID,
		State:          market.State,
		WinningOutcome: market.WinningOutcome,
		TotalStaked:    market.TotalStaked,
		Outcomes:       make([]OutcomeSnapshot, len(market.Outcomes)),
		Positions:      len(positions),
		PaidOut:        market.PaidOut,
		FeesCollected:  market.FeesCollected,
		Swept:          market.Swept,
		SweptAmount:    market.SweptAmount,
	}
	for i, o := range market.Outcomes {
		snap.Outcomes[i] = OutcomeSnapshot{Outcome: o, Staked: decimal.Zero, Multiplier: decimal.Zero}
		byOutcome[o] = &snap.Outcomes[i]
	}

	for _, p := range positions {
		if p.Claimed {
			snap.Claimed++
		}
		o, ok := byOutcome[p.Outcome]
		if !ok || !p.Amount.IsPositive() {
			continue
		}
		if o.Staked, err = models.CheckedAdd(o.Staked, p.Amount); err != nil {
			return nil, err
		}
		o.Stakers++
	}

	for i := range snap.Outcomes {
		o := &snap.Outcomes[i]
		if !o.Staked.IsPositive() {
			continue
		}
		if o.Multiplier, err = models.MulDiv(market.TotalStaked, models.PercentScale, o.Staked); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// PlatformStats serves the cached totals while they are fresh and
// recomputes them otherwise. Cache failures only cost a recomputation.
func (s *service) PlatformStats(ctx context.Context) (*PlatformStats, error) {
	if s.cache != nil {
		stats, err := s.cache.Get(ctx, statsKey)
		if err == nil {
			return &stats, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Error(err, map[string]interface{}{"key": statsKey, "op": "get"})
		}
	}

	totals, err := s.repo.MarketTotals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate markets: %w", err)
	}

	stats := PlatformStats{
		Markets:       make(map[models.MarketState]int64, len(totals)),
		TotalStaked:   decimal.Zero,
		PaidOut:       decimal.Zero,
		FeesCollected: decimal.Zero,
		SweptAmount:   decimal.Zero,
		GeneratedAt:   s.clock.Now(),
	}
	for _, t := range totals {
		stats.Markets[t.State] = t.Count
		stats.TotalMarkets += t.Count
		stats.TotalStaked = stats.TotalStaked.Add(t.TotalStaked)
		stats.PaidOut = stats.PaidOut.Add(t.PaidOut)
		stats.FeesCollected = stats.FeesCollected.Add(t.FeesCollected)
		stats.SweptAmount = stats.SweptAmount.Add(t.SweptAmount)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsKey, stats, s.config.StatsTTL); err != nil {
			s.logger.Error(err, map[string]interface{}{"key": statsKey, "op": "set"})
		}
	}
	return &stats, nil
}
