package markets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/registry"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/oracle"
	"github.com/joefazee/settlement/internal/sanitizer"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
)

// Operation names, as used for budgets and metrics.
const (
	OpCreateMarket         = "create_market"
	OpStake                = "stake"
	OpResolveManual        = "resolve_manual"
	OpResolveOracle        = "resolve_oracle"
	OpClose                = "close"
	OpCancel               = "cancel"
	OpRefund               = "refund"
	OpClaim                = "claim"
	OpSweep                = "sweep"
	OpUpdateMetadata       = "update_metadata"
	OpUpdateOracle         = "update_oracle"
	OpSetClaimPeriod       = "set_claim_period"
	OpSetMarketClaimPeriod = "set_market_claim_period"
	OpSetBudget            = "set_budget"
)

// service implements the Service interface
type service struct {
	exec       *store.Executor
	repo       Repository
	ids        registry.Service
	funding    ledger.Funding
	oracles    *oracle.Registry
	auth       security.Authorizer
	budgets    *budget.Registry
	clock      clock.Clock
	sanitizer  sanitizer.HTMLStripperer
	config     *Config
	payout     PayoutEngine
	safeguards SafeguardEngine
	metrics    *metrics.Metrics
	logger     logger.Logger
}

// NewService creates a new market service
func NewService(deps Dependencies, config *Config, payout PayoutEngine, safeguards SafeguardEngine) Service {
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	l := deps.Logger
	if l == nil {
		l = logger.NewNullLogger()
	}
	strip := deps.Sanitizer
	if strip == nil {
		strip = sanitizer.NewHTMLStripper()
	}
	return &service{
		exec:       deps.Executor,
		repo:       deps.Repo,
		ids:        deps.Registry,
		funding:    deps.Funding,
		oracles:    deps.Oracles,
		auth:       deps.Authorizer,
		budgets:    deps.Budgets,
		clock:      c,
		sanitizer:  strip,
		config:     config,
		payout:     payout,
		safeguards: safeguards,
		metrics:    deps.Metrics,
		logger:     l,
	}
}

func (s *service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *service) emit(ctx context.Context, t events.Type, market *models.Market, user string, amount decimal.Decimal, data map[string]string) {
	e := events.Event{Type: t, MarketID: market.ID, User: user, Data: data, At: s.now()}
	if !amount.IsZero() {
		e.Amount = amount.String()
	}
	events.Emit(ctx, s.exec.Sink(), e)
}

func (s *service) loadMarket(ctx context.Context, id string) (*models.Market, error) {
	if strings.TrimSpace(id) == "" {
		return nil, models.ErrMarketNotFound
	}
	m, err := s.repo.GetMarket(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrMarketNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to fetch market: %w", err)
	}
	return m, nil
}

func (s *service) findPosition(ctx context.Context, marketID, user string) (*models.Position, error) {
	p, err := s.repo.GetPosition(ctx, marketID, user)
	if errors.Is(err, models.ErrPositionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch position: %w", err)
	}
	return p, nil
}

func (s *service) loadSettings(ctx context.Context) (*models.Settings, error) {
	st, err := s.repo.GetSettings(ctx)
	if errors.Is(err, models.ErrRecordNotFound) {
		return &models.Settings{
			ID:                 models.SettingsID,
			ClaimPeriodSeconds: int64(s.config.ClaimPeriod / time.Second),
			Treasury:           s.config.Treasury,
			Budgets:            models.Budgets{},
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	if st.Treasury == "" {
		st.Treasury = s.config.Treasury
	}
	if st.Budgets == nil {
		st.Budgets = models.Budgets{}
	}
	return st, nil
}

func (s *service) saveMarket(ctx context.Context, m *models.Market) error {
	budget.Charge(ctx, 1)
	if err := s.repo.UpdateMarket(ctx, m); err != nil {
		return fmt.Errorf("failed to update market: %w", err)
	}
	return nil
}

func (s *service) savePosition(ctx context.Context, p *models.Position) error {
	budget.Charge(ctx, 1)
	if err := s.repo.SavePosition(ctx, p); err != nil {
		return fmt.Errorf("failed to save position: %w", err)
	}
	return nil
}

func (s *service) checkOracle(cfg *models.OracleConfig, outcomes models.StringList) error {
	cfg.Normalize(outcomes)
	if err := cfg.Validate(outcomes); err != nil {
		return err
	}
	if cfg.IsSet() && s.oracles != nil && !s.oracles.Has(cfg.Provider) {
		return fmt.Errorf("%w: %s", models.ErrOracleNotFound, cfg.Provider)
	}
	return nil
}

func (s *service) stripTags(tags []string) ([]string, error) {
	out := sanitizer.StripAll(s.sanitizer, tags)
	if len(out) > s.config.MaxTags {
		return nil, fmt.Errorf("%w: at most %d tags", models.ErrInvalidInput, s.config.MaxTags)
	}
	return out, nil
}

// Create validates and opens a new market with an id from the registry
func (s *service) Create(ctx context.Context, req *CreateMarketRequest) (*models.Market, error) {
	if req == nil {
		return nil, models.ErrInvalidInput
	}
	var out *models.Market
	err := s.exec.Do(ctx, OpCreateMarket, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		principal, _ := security.PrincipalFrom(ctx)

		question := s.sanitizer.StripHTML(req.Question)
		if question == "" || len(question) > s.config.MaxQuestionLength {
			return models.ErrInvalidQuestion
		}

		outcomes := make(models.StringList, len(req.Outcomes))
		for i, o := range req.Outcomes {
			outcomes[i] = s.sanitizer.StripHTML(o)
		}
		if err := models.ValidateOutcomes(outcomes); err != nil {
			return err
		}
		if len(outcomes) > s.config.MaxOutcomes {
			return fmt.Errorf("%w: at most %d outcomes", models.ErrInvalidOutcomes, s.config.MaxOutcomes)
		}

		duration, err := req.Duration()
		if err != nil {
			return err
		}
		if duration > s.config.MaxMarketDuration {
			return models.ErrInvalidDuration
		}

		var oracleCfg models.OracleConfig
		if req.OracleConfig != nil {
			oracleCfg = req.OracleConfig.ToModel()
		}
		if err := s.checkOracle(&oracleCfg, outcomes); err != nil {
			return err
		}

		tags, err := s.stripTags(req.Tags)
		if err != nil {
			return err
		}

		entry, err := s.ids.Generate(ctx, principal.UserID)
		if err != nil {
			return err
		}

		now := s.now()
		market := &models.Market{
			ID:            entry.MarketID,
			Seq:           entry.Seq,
			Creator:       principal.UserID,
			Question:      question,
			Outcomes:      outcomes,
			EndTime:       now.Add(duration),
			State:         models.MarketStateActive,
			TotalStaked:   decimal.Zero,
			OracleConfig:  oracleCfg,
			Category:      s.sanitizer.StripHTML(req.Category),
			Tags:          tags,
			FeesCollected: decimal.Zero,
			PaidOut:       decimal.Zero,
			SweptAmount:   decimal.Zero,
		}
		if err := market.Validate(); err != nil {
			return err
		}

		budget.Charge(ctx, 1)
		if err := s.repo.CreateMarket(ctx, market); err != nil {
			return fmt.Errorf("failed to create market: %w", err)
		}

		s.emit(ctx, events.MarketCreated, market, principal.UserID, decimal.Zero, map[string]string{
			"question": market.Question,
			"end_time": market.EndTime.Format(time.RFC3339),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Stake adds amount to the user's position on outcome. Under the overwrite
// policy the whole position follows the latest outcome.
func (s *service) Stake(ctx context.Context, user, marketID, outcome string, amount decimal.Decimal) (*models.Position, error) {
	var out *models.Position
	err := s.exec.Do(ctx, OpStake, func(ctx context.Context) error {
		if err := s.auth.RequireUser(ctx, user); err != nil {
			return err
		}
		if err := models.ValidateAmount(amount); err != nil {
			return err
		}

		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if err := s.safeguards.CheckStake(market, outcome, s.now()); err != nil {
			return err
		}

		pos, err := s.findPosition(ctx, marketID, user)
		if err != nil {
			return err
		}
		if pos == nil {
			pos = &models.Position{MarketID: marketID, UserID: user, Outcome: outcome, Amount: decimal.Zero, Payout: decimal.Zero}
		}
		// a position refunded by recovery stays settled
		if pos.Claimed {
			return models.ErrAlreadyClaimed
		}
		if pos.Amount.IsPositive() && pos.Outcome != outcome && s.config.RestakePolicy == models.RestakeReject {
			return models.ErrOutcomeChangeRejected
		}

		staked, err := models.CheckedAdd(pos.Amount, amount)
		if err != nil {
			return err
		}
		total, err := models.CheckedAdd(market.TotalStaked, amount)
		if err != nil {
			return err
		}

		if err := s.funding.Collect(ctx, user, amount); err != nil {
			return err
		}

		pos.Outcome = outcome
		pos.Amount = staked
		market.TotalStaked = total
		if err := s.savePosition(ctx, pos); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}

		s.emit(ctx, events.MarketStaked, market, user, amount, map[string]string{
			"outcome":      outcome,
			"position":     staked.String(),
			"total_staked": total.String(),
		})
		out = pos
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved(OpStake, amount)
	return out, nil
}

// ResolveManual fixes the winning outcome on behalf of an admin
func (s *service) ResolveManual(ctx context.Context, marketID, outcome string) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpResolveManual, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.safeguards.CheckResolve(market, now); err != nil {
			return err
		}
		if err := market.Resolve(outcome, models.ResolutionManual, now); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketResolved, market, "", decimal.Zero, map[string]string{
			"outcome": outcome,
			"source":  string(models.ResolutionManual),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveOracle reads the configured price feed and resolves the market.
// Anyone may call it once the market has ended. A feed failure leaves the
// market untouched.
func (s *service) ResolveOracle(ctx context.Context, marketID string) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpResolveOracle, func(ctx context.Context) error {
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		now := s.now()
		if err := s.safeguards.CheckResolve(market, now); err != nil {
			return err
		}
		cfg := market.OracleConfig
		if !cfg.IsSet() {
			return models.ErrInvalidOracle
		}
		if s.oracles == nil {
			return fmt.Errorf("%w: %s", models.ErrOracleNotFound, cfg.Provider)
		}
		source, err := s.oracles.Get(cfg.Provider)
		if err != nil {
			return err
		}

		budget.Charge(ctx, 1)
		price, err := source.GetPrice(ctx, cfg.FeedID)
		if err != nil {
			return s.oracleFailed(ctx, market, source.Name(), err)
		}

		winner := cfg.Decide(price)
		if err := market.Resolve(winner, models.ResolutionOracle, now); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketResolved, market, "", decimal.Zero, map[string]string{
			"outcome":  winner,
			"source":   string(models.ResolutionOracle),
			"provider": cfg.Provider,
			"price":    price.String(),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) oracleFailed(ctx context.Context, market *models.Market, source string, err error) error {
	s.logger.Error(err, map[string]interface{}{
		"market_id": market.ID,
		"provider":  market.OracleConfig.Provider,
		"feed_id":   market.OracleConfig.FeedID,
	})
	// Published directly: the surrounding operation fails and its buffer
	// is discarded.
	s.exec.Sink().Publish(context.WithoutCancel(ctx), events.Event{
		Type:     events.OracleUnavailable,
		MarketID: market.ID,
		Data: map[string]string{
			"provider": market.OracleConfig.Provider,
			"feed_id":  market.OracleConfig.FeedID,
			"error":    err.Error(),
		},
		At: s.now(),
	})
	if errors.Is(err, models.ErrOracleUnavailable) {
		return err
	}
	return oracle.Unavailable(source, err)
}

// Close stops staking on an ended market. Anyone may call it.
func (s *service) Close(ctx context.Context, marketID string) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpClose, func(ctx context.Context) error {
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if !market.HasEnded(s.now()) {
			return models.ErrMarketNotEnded
		}
		if err := market.TransitionTo(models.MarketStateClosed); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketClosed, market, "", decimal.Zero, nil)
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Cancel voids an unresolved market; stakes become refundable
func (s *service) Cancel(ctx context.Context, marketID string) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpCancel, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if err := market.Cancel(s.now()); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketCancelled, market, "", decimal.Zero, map[string]string{
			"total_staked": market.TotalStaked.String(),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Refund returns the full stake of a cancelled market's position
func (s *service) Refund(ctx context.Context, user, marketID string) (*models.Position, error) {
	var out *models.Position
	err := s.exec.Do(ctx, OpRefund, func(ctx context.Context) error {
		if err := s.auth.RequireUser(ctx, user); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if market.State != models.MarketStateCancelled {
			return models.ErrInvalidState
		}
		pos, err := s.findPosition(ctx, marketID, user)
		if err != nil {
			return err
		}
		if pos == nil {
			return models.ErrNoRefundableStake
		}
		if pos.Claimed {
			return models.ErrAlreadyClaimed
		}
		if !pos.Amount.IsPositive() {
			return models.ErrNoRefundableStake
		}

		paid, err := models.CheckedAdd(market.PaidOut, pos.Amount)
		if err != nil {
			return err
		}
		if err := pos.MarkClaimed(s.now(), pos.Amount); err != nil {
			return err
		}
		market.PaidOut = paid
		if err := s.savePosition(ctx, pos); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}

		if err := s.funding.Pay(ctx, user, pos.Amount); err != nil {
			return err
		}

		s.emit(ctx, events.MarketRefunded, market, user, pos.Amount, nil)
		out = pos
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved(OpRefund, out.Amount)
	return out, nil
}

// Claim pays a winning position its share of the pool, less the platform fee
func (s *service) Claim(ctx context.Context, user, marketID string) (*ClaimResult, error) {
	var out *ClaimResult
	err := s.exec.Do(ctx, OpClaim, func(ctx context.Context) error {
		if err := s.auth.RequireUser(ctx, user); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return err
		}
		pos, err := s.findPosition(ctx, marketID, user)
		if err != nil {
			return err
		}

		now := s.now()
		period := market.EffectiveClaimPeriod(settings.ClaimPeriod(), true)
		if err := s.safeguards.CheckClaim(market, pos, period, now); err != nil {
			return err
		}

		positions, err := s.repo.ListPositions(ctx, marketID)
		if err != nil {
			return fmt.Errorf("failed to fetch positions: %w", err)
		}
		budget.Charge(ctx, int64(len(positions)))
		winningPool, err := models.StakeOn(positions, market.WinningOutcome)
		if err != nil {
			return err
		}

		share, err := s.payout.Share(pos.Amount, market.TotalStaked, winningPool)
		if err != nil {
			return err
		}
		fee, err := s.payout.Fee(share)
		if err != nil {
			return err
		}
		net, err := models.CheckedSub(share, fee)
		if err != nil {
			return err
		}
		paid, err := models.CheckedAdd(market.PaidOut, net)
		if err != nil {
			return err
		}
		fees, err := models.CheckedAdd(market.FeesCollected, fee)
		if err != nil {
			return err
		}

		if err := pos.MarkClaimed(now, net); err != nil {
			return err
		}
		market.PaidOut = paid
		market.FeesCollected = fees
		if err := s.savePosition(ctx, pos); err != nil {
			return err
		}
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}

		if net.IsPositive() {
			if err := s.funding.Pay(ctx, user, net); err != nil {
				return err
			}
		}
		if fee.IsPositive() {
			if err := s.funding.PayTreasury(ctx, settings.Treasury, fee); err != nil {
				return err
			}
		}

		s.emit(ctx, events.MarketClaimed, market, user, net, map[string]string{
			"share": share.String(),
			"fee":   fee.String(),
		})
		out = &ClaimResult{MarketID: marketID, UserID: user, Share: share, Fee: fee, Payout: net}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved(OpClaim, out.Payout)
	return out, nil
}

// SweepUnclaimed moves unclaimed winnings and rounding dust to the treasury
// once the claim window has closed. includeMarketOverride selects whether a
// per-market window replaces the global one.
func (s *service) SweepUnclaimed(ctx context.Context, marketID string, includeMarketOverride bool) (*SweepResult, error) {
	var out *SweepResult
	err := s.exec.Do(ctx, OpSweep, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		period := market.EffectiveClaimPeriod(settings.ClaimPeriod(), includeMarketOverride)
		if err := s.safeguards.CheckSweep(market, period, now); err != nil {
			return err
		}

		positions, err := s.repo.ListPositions(ctx, marketID)
		if err != nil {
			return fmt.Errorf("failed to fetch positions: %w", err)
		}
		budget.Charge(ctx, int64(len(positions)))
		plan, err := s.payout.Sweep(market, positions)
		if err != nil {
			return err
		}

		unclaimed := make(map[string]struct{}, len(plan.Users))
		for _, u := range plan.Users {
			unclaimed[u] = struct{}{}
		}
		for i := range positions {
			p := &positions[i]
			if _, ok := unclaimed[p.UserID]; !ok {
				continue
			}
			if err := p.MarkClaimed(now, decimal.Zero); err != nil {
				return err
			}
			if err := s.savePosition(ctx, p); err != nil {
				return err
			}
		}

		market.Swept = true
		market.SweptAt = &now
		market.SweptAmount = plan.Amount
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}

		if plan.Amount.IsPositive() {
			if err := s.funding.PayTreasury(ctx, settings.Treasury, plan.Amount); err != nil {
				return err
			}
		}

		s.emit(ctx, events.MarketSwept, market, "", plan.Amount, map[string]string{
			"treasury":  settings.Treasury,
			"unclaimed": plan.UnclaimedShares.String(),
			"dust":      plan.Dust.String(),
		})
		out = &SweepResult{
			MarketID:        marketID,
			Treasury:        settings.Treasury,
			Users:           plan.Users,
			UnclaimedShares: plan.UnclaimedShares,
			Dust:            plan.Dust,
			Amount:          plan.Amount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Moved(OpSweep, out.Amount)
	return out, nil
}

// UpdateMetadata replaces category and tags until the first stake
func (s *service) UpdateMetadata(ctx context.Context, marketID, category string, tags []string) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpUpdateMetadata, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if err := s.safeguards.CheckMetadata(market); err != nil {
			return err
		}
		clean, err := s.stripTags(tags)
		if err != nil {
			return err
		}
		market.Category = s.sanitizer.StripHTML(category)
		market.Tags = clean
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketMetadataSet, market, "", decimal.Zero, map[string]string{
			"category": market.Category,
			"tags":     strings.Join(market.Tags, ","),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateOracleConfig replaces the oracle rule while the market is active
// and unstaked. An empty provider clears it.
func (s *service) UpdateOracleConfig(ctx context.Context, marketID string, cfg models.OracleConfig) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpUpdateOracle, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if err := s.safeguards.CheckOracleUpdate(market); err != nil {
			return err
		}
		if err := s.checkOracle(&cfg, market.Outcomes); err != nil {
			return err
		}
		market.OracleConfig = cfg
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketOracleSet, market, "", decimal.Zero, map[string]string{
			"provider":   cfg.Provider,
			"feed_id":    cfg.FeedID,
			"comparator": string(cfg.Comparator),
			"threshold":  cfg.Threshold.String(),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetClaimPeriod sets the global claim window. Zero disables expiry.
func (s *service) SetClaimPeriod(ctx context.Context, period time.Duration) (*models.Settings, error) {
	var out *models.Settings
	err := s.exec.Do(ctx, OpSetClaimPeriod, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if period < 0 {
			return models.ErrInvalidClaimPeriod
		}
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return err
		}
		settings.ClaimPeriodSeconds = int64(period / time.Second)
		budget.Charge(ctx, 1)
		if err := s.repo.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type: events.ClaimPeriodSet,
			Data: map[string]string{"seconds": fmt.Sprint(settings.ClaimPeriodSeconds)},
			At:   s.now(),
		})
		out = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetMarketClaimPeriod sets the per-market claim window override. Zero
// falls back to the global window.
func (s *service) SetMarketClaimPeriod(ctx context.Context, marketID string, period time.Duration) (*models.Market, error) {
	var out *models.Market
	err := s.exec.Do(ctx, OpSetMarketClaimPeriod, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if period < 0 {
			return models.ErrInvalidClaimPeriod
		}
		market, err := s.loadMarket(ctx, marketID)
		if err != nil {
			return err
		}
		market.ClaimPeriodSeconds = int64(period / time.Second)
		if err := s.saveMarket(ctx, market); err != nil {
			return err
		}
		s.emit(ctx, events.MarketClaimPeriodSet, market, "", decimal.Zero, map[string]string{
			"seconds": fmt.Sprint(market.ClaimPeriodSeconds),
		})
		out = market
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetBudget persists the cost ceiling of op and applies it to the running
// engine once stored. Zero removes the ceiling.
func (s *service) SetBudget(ctx context.Context, op string, ceiling int64) (*models.Settings, error) {
	op = strings.TrimSpace(op)
	var out *models.Settings
	err := s.exec.Do(ctx, OpSetBudget, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if op == "" || ceiling < 0 {
			return models.ErrInvalidInput
		}
		settings, err := s.loadSettings(ctx)
		if err != nil {
			return err
		}
		if ceiling == 0 {
			delete(settings.Budgets, op)
		} else {
			settings.Budgets[op] = ceiling
		}
		budget.Charge(ctx, 1)
		if err := s.repo.SaveSettings(ctx, settings); err != nil {
			return fmt.Errorf("failed to save settings: %w", err)
		}
		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type: events.BudgetSet,
			Data: map[string]string{"op": op, "ceiling": fmt.Sprint(ceiling)},
			At:   s.now(),
		})
		out = settings
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.budgets != nil {
		s.budgets.Set(op, ceiling)
	}
	return out, nil
}

// GetMarket returns one market
func (s *service) GetMarket(ctx context.Context, marketID string) (*models.Market, error) {
	return s.loadMarket(ctx, marketID)
}

// GetPosition returns the user's position on a market
func (s *service) GetPosition(ctx context.Context, marketID, user string) (*models.Position, error) {
	if _, err := s.loadMarket(ctx, marketID); err != nil {
		return nil, err
	}
	return s.repo.GetPosition(ctx, marketID, user)
}

// PayoutMultiplier returns what 100 units staked on outcome would pay
// back if it won, before fees
func (s *service) PayoutMultiplier(ctx context.Context, marketID, outcome string) (decimal.Decimal, error) {
	market, err := s.loadMarket(ctx, marketID)
	if err != nil {
		return decimal.Zero, err
	}
	if !market.HasOutcome(outcome) {
		return decimal.Zero, fmt.Errorf("%w: %q", models.ErrInvalidOutcome, outcome)
	}
	positions, err := s.repo.ListPositions(ctx, marketID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to fetch positions: %w", err)
	}
	pool, err := models.StakeOn(positions, outcome)
	if err != nil {
		return decimal.Zero, err
	}
	return s.payout.Multiplier(market.TotalStaked, pool)
}

// GetSettings returns the persisted engine settings, defaults when unset
func (s *service) GetSettings(ctx context.Context) (*models.Settings, error) {
	return s.loadSettings(ctx)
}

// Bootstrap loads persisted budgets into the running budget registry
func (s *service) Bootstrap(ctx context.Context) error {
	settings, err := s.loadSettings(ctx)
	if err != nil {
		return err
	}
	if s.budgets != nil {
		s.budgets.Load(settings.Budgets)
	}
	s.logger.Info("market settings loaded", map[string]interface{}{
		"claim_period_seconds": settings.ClaimPeriodSeconds,
		"treasury":             settings.Treasury,
		"budgets":              len(settings.Budgets),
	})
	return nil
}
