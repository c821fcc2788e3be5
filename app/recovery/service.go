package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
)

const (
	OpRecover       = "recover"
	OpPartialRefund = "partial_refund"
)

type service struct {
	exec    *store.Executor
	repo    Repository
	funding ledger.Funding
	auth    security.Authorizer
	clock   clock.Clock
	config  *Config
	logger  logger.Logger
}

// NewService creates a new recovery validator
func NewService(deps Dependencies, config *Config) Service {
	c := deps.Clock
	if c == nil {
		c = clock.System{}
	}
	l := deps.Logger
	if l == nil {
		l = logger.NewNullLogger()
	}
	return &service{
		exec:    deps.Executor,
		repo:    deps.Repo,
		funding: deps.Funding,
		auth:    deps.Authorizer,
		clock:   c,
		config:  config,
		logger:  l,
	}
}

func (s *service) load(ctx context.Context, marketID string) (*models.Market, []models.Position, error) {
	if strings.TrimSpace(marketID) == "" {
		return nil, nil, models.ErrMarketNotFound
	}
	market, err := s.repo.GetMarket(ctx, marketID)
	if err != nil {
		return nil, nil, err
	}
	positions, err := s.repo.ListPositions(ctx, marketID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list positions: %w", err)
	}
	budget.Charge(ctx, int64(len(positions))+1)
	return market, positions, nil
}

func (s *service) record(ctx context.Context, marketID string) (*models.RecoveryRecord, error) {
	rec, err := s.repo.GetRecoveryRecord(ctx, marketID)
	if errors.Is(err, models.ErrRecordNotFound) {
		return models.NewRecoveryRecord(marketID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recovery record: %w", err)
	}
	return rec, nil
}

// check returns the first broken invariant of market.
func check(market *models.Market, positions []models.Position) error {
	if market.TotalStaked.IsNegative() {
		return models.ErrNegativeTotalStaked
	}
	if len(market.Outcomes) < 2 {
		return models.ErrInvalidOutcomes
	}
	if market.EndTime.IsZero() {
		return models.ErrMissingEndTime
	}
	sum, err := models.SumStakes(positions)
	if err != nil {
		return err
	}
	if !market.TotalStaked.Equal(sum) {
		return fmt.Errorf("%w: recorded %s, positions %s", models.ErrStakeDrift, market.TotalStaked, sum)
	}
	return nil
}

// recomputable reports whether rebuilding TotalStaked from positions can
// clear violation.
func recomputable(violation error) bool {
	return errors.Is(violation, models.ErrNegativeTotalStaked) || errors.Is(violation, models.ErrStakeDrift)
}

func (s *service) emit(ctx context.Context, t events.Type, marketID string, amount decimal.Decimal, data map[string]string) {
	e := events.Event{Type: t, MarketID: marketID, Data: data, At: s.clock.Now()}
	if !amount.IsZero() {
		e.Amount = amount.String()
	}
	events.Emit(ctx, s.exec.Sink(), e)
}

func (s *service) ValidateIntegrity(ctx context.Context, marketID string) (*IntegrityReport, error) {
	market, positions, err := s.load(ctx, marketID)
	if err != nil {
		return nil, err
	}
	return newReport(market.ID, check(market, positions)), nil
}

// Recover records a no-op when the market is sound. Otherwise it rebuilds
// TotalStaked from positions, unless the market is already settled.
func (s *service) Recover(ctx context.Context, marketID string) (*RecoverResult, error) {
	var out *RecoverResult
	err := s.exec.Do(ctx, OpRecover, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		market, positions, err := s.load(ctx, marketID)
		if err != nil {
			return err
		}
		rec, err := s.record(ctx, market.ID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		rec.Checks++

		violation := check(market, positions)
		result := &RecoverResult{MarketID: market.ID, Before: market.TotalStaked, After: market.TotalStaked}
		if violation == nil {
			rec.Append(models.RecoveryAction{Kind: models.RecoveryActionNoop, Before: market.TotalStaked, After: market.TotalStaked, At: now})
			if err := s.repo.SaveRecoveryRecord(ctx, rec); err != nil {
				return fmt.Errorf("failed to save recovery record: %w", err)
			}
			s.emit(ctx, events.RecoveryNoop, market.ID, decimal.Zero, nil)
			result.Record = rec
			out = result
			return nil
		}

		if market.State.IsTerminal() {
			return fmt.Errorf("%w: %s", models.ErrRecoveryRefused, violation)
		}
		if !recomputable(violation) {
			return fmt.Errorf("%w: %s", models.ErrUnrecoverable, violation)
		}

		sum, err := models.SumStakes(positions)
		if err != nil {
			return err
		}
		market.TotalStaked = sum
		if err := check(market, positions); err != nil {
			return fmt.Errorf("%w: %s", models.ErrUnrecoverable, err)
		}
		if err := s.repo.UpdateMarket(ctx, market); err != nil {
			return fmt.Errorf("failed to update market: %w", err)
		}

		rec.Violations++
		rec.LastRecoveredAt = &now
		rec.Append(models.RecoveryAction{
			Kind:      models.RecoveryActionRecomputed,
			Violation: violation.Error(),
			Before:    result.Before,
			After:     sum,
			At:        now,
		})
		if err := s.repo.SaveRecoveryRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to save recovery record: %w", err)
		}

		s.emit(ctx, events.RecoveryRecovered, market.ID, sum, map[string]string{
			"violation": violation.Error(),
			"before":    result.Before.String(),
		})
		s.logger.Info("market total recomputed", map[string]interface{}{
			"market_id": market.ID,
			"before":    result.Before.String(),
			"after":     sum.String(),
		})

		result.Recovered = true
		result.Violation = violation.Error()
		result.After = sum
		result.Record = rec
		out = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PartialRefund returns the open stake of each listed user and takes it out
// of the pool. Users without an open stake are skipped.
func (s *service) PartialRefund(ctx context.Context, marketID string, users []string) (*RefundResult, error) {
	var out *RefundResult
	err := s.exec.Do(ctx, OpPartialRefund, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if len(users) == 0 || len(users) > s.config.MaxRefundUsers {
			return models.ErrInvalidInput
		}
		market, err := s.repo.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if market.State.IsTerminal() {
			return models.ErrRecoveryRefused
		}

		now := s.clock.Now()
		before := market.TotalStaked
		total := decimal.Zero
		var refunded []string
		seen := make(map[string]struct{}, len(users))
		for _, user := range users {
			user = strings.TrimSpace(user)
			if _, dup := seen[user]; dup || user == "" {
				continue
			}
			seen[user] = struct{}{}

			pos, err := s.repo.GetPosition(ctx, market.ID, user)
			if errors.Is(err, models.ErrPositionNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("failed to load position: %w", err)
			}
			if pos.Claimed || !pos.Amount.IsPositive() {
				continue
			}

			amount := pos.Amount
			if market.TotalStaked, err = models.CheckedSub(market.TotalStaked, amount); err != nil {
				return err
			}
			if market.TotalStaked.IsNegative() {
				return models.ErrNegativeTotalStaked
			}
			if err := pos.MarkClaimed(now, amount); err != nil {
				return err
			}
			pos.Amount = decimal.Zero
			budget.Charge(ctx, 1)
			if err := s.repo.SavePosition(ctx, pos); err != nil {
				return fmt.Errorf("failed to save position: %w", err)
			}
			if err := s.funding.Pay(ctx, user, amount); err != nil {
				return err
			}
			if total, err = models.CheckedAdd(total, amount); err != nil {
				return err
			}
			refunded = append(refunded, user)
		}
		if len(refunded) == 0 {
			return models.ErrNoRefundableStake
		}

		budget.Charge(ctx, 1)
		if err := s.repo.UpdateMarket(ctx, market); err != nil {
			return fmt.Errorf("failed to update market: %w", err)
		}

		rec, err := s.record(ctx, market.ID)
		if err != nil {
			return err
		}
		if rec.RefundTotal, err = models.CheckedAdd(rec.RefundTotal, total); err != nil {
			return err
		}
		rec.LastRecoveredAt = &now
		rec.Append(models.RecoveryAction{
			Kind:   models.RecoveryActionPartialRefund,
			Before: before,
			After:  market.TotalStaked,
			Users:  refunded,
			At:     now,
		})
		if err := s.repo.SaveRecoveryRecord(ctx, rec); err != nil {
			return fmt.Errorf("failed to save recovery record: %w", err)
		}

		s.emit(ctx, events.RecoveryPartialRefund, market.ID, total, map[string]string{
			"users": strings.Join(refunded, ","),
		})
		out = &RefundResult{MarketID: market.ID, Users: refunded, Amount: total, Record: rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRecord returns the audit trail of a market. A market that was never
// checked has an empty record.
func (s *service) GetRecord(ctx context.Context, marketID string) (*models.RecoveryRecord, error) {
	if _, err := s.repo.GetMarket(ctx, marketID); err != nil {
		return nil, err
	}
	return s.record(ctx, marketID)
}

