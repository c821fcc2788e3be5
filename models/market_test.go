package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMarket(end time.Time) *Market {
	return &Market{
		ID:          "mkt_0000000a_000001",
		Creator:     "admin",
		Question:    "Will it rain?",
		Outcomes:    StringList{"yes", "no"},
		EndTime:     end,
		State:       MarketStateActive,
		TotalStaked: decimal.Zero,
	}
}

func TestMarketState(t *testing.T) {
	t.Run("forward transitions only", func(t *testing.T) {
		assert.True(t, MarketStateActive.CanTransitionTo(MarketStateClosed))
		assert.True(t, MarketStateActive.CanTransitionTo(MarketStateResolved))
		assert.True(t, MarketStateActive.CanTransitionTo(MarketStateCancelled))
		assert.True(t, MarketStateClosed.CanTransitionTo(MarketStateResolved))
		assert.True(t, MarketStateClosed.CanTransitionTo(MarketStateCancelled))

		assert.False(t, MarketStateClosed.CanTransitionTo(MarketStateActive))
		assert.False(t, MarketStateResolved.CanTransitionTo(MarketStateCancelled))
		assert.False(t, MarketStateCancelled.CanTransitionTo(MarketStateResolved))
		assert.False(t, MarketStateActive.CanTransitionTo(MarketStateActive))
	})

	t.Run("terminal states", func(t *testing.T) {
		assert.True(t, MarketStateResolved.IsTerminal())
		assert.True(t, MarketStateCancelled.IsTerminal())
		assert.False(t, MarketStateActive.IsTerminal())
		assert.False(t, MarketStateClosed.IsTerminal())
	})

	t.Run("validity", func(t *testing.T) {
		assert.True(t, MarketStateClosed.IsValid())
		assert.False(t, MarketState("draft").IsValid())
	})
}

func TestMarket_AcceptsStakes(t *testing.T) {
	end := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMarket(end)

	assert.True(t, m.AcceptsStakes(end.Add(-time.Second)))
	assert.False(t, m.AcceptsStakes(end))
	assert.False(t, m.AcceptsStakes(end.Add(time.Second)))

	m.State = MarketStateClosed
	assert.False(t, m.AcceptsStakes(end.Add(-time.Hour)))

	assert.True(t, m.HasEnded(end))
	assert.False(t, m.HasEnded(end.Add(-time.Nanosecond)))
}

func TestMarket_Resolve(t *testing.T) {
	end := time.Now()

	t.Run("sets winner once", func(t *testing.T) {
		m := newTestMarket(end)
		require.NoError(t, m.Resolve("yes", ResolutionManual, end))
		assert.Equal(t, MarketStateResolved, m.State)
		assert.Equal(t, "yes", m.WinningOutcome)
		assert.Equal(t, ResolutionManual, m.ResolutionSource)
		require.NotNil(t, m.ResolvedAt)

		err := m.Resolve("no", ResolutionManual, end)
		assert.ErrorIs(t, err, ErrInvalidState)
		assert.Equal(t, "yes", m.WinningOutcome)
	})

	t.Run("unknown outcome", func(t *testing.T) {
		m := newTestMarket(end)
		assert.ErrorIs(t, m.Resolve("maybe", ResolutionManual, end), ErrInvalidOutcome)
		assert.Equal(t, MarketStateActive, m.State)
	})

	t.Run("cancelled market cannot resolve", func(t *testing.T) {
		m := newTestMarket(end)
		require.NoError(t, m.Cancel(end))
		assert.ErrorIs(t, m.Resolve("yes", ResolutionManual, end), ErrInvalidState)
	})
}

func TestMarket_ClaimWindow(t *testing.T) {
	end := time.Now()
	m := newTestMarket(end)

	_, ok := m.ClaimDeadline(time.Minute)
	assert.False(t, ok, "unresolved market has no deadline")

	require.NoError(t, m.Resolve("yes", ResolutionManual, end))
	_, ok = m.ClaimDeadline(0)
	assert.False(t, ok, "zero period never expires")

	deadline, ok := m.ClaimDeadline(100 * time.Second)
	assert.True(t, ok)
	assert.Equal(t, end.Add(100*time.Second), deadline)

	assert.Equal(t, time.Minute, m.EffectiveClaimPeriod(time.Minute, true))
	m.ClaimPeriodSeconds = 30
	assert.Equal(t, 30*time.Second, m.EffectiveClaimPeriod(time.Minute, true))
	assert.Equal(t, time.Minute, m.EffectiveClaimPeriod(time.Minute, false))
}

func TestMarket_Validate(t *testing.T) {
	end := time.Now().Add(time.Hour)

	tests := []struct {
		name   string
		mutate func(m *Market)
		want   error
	}{
		{"valid", func(*Market) {}, nil},
		{"blank question", func(m *Market) { m.Question = "  " }, ErrInvalidQuestion},
		{"one outcome", func(m *Market) { m.Outcomes = StringList{"yes"} }, ErrInvalidOutcomes},
		{"duplicate outcome", func(m *Market) { m.Outcomes = StringList{"yes", "yes"} }, ErrInvalidOutcomes},
		{"blank outcome", func(m *Market) { m.Outcomes = StringList{"yes", ""} }, ErrInvalidOutcomes},
		{"zero end time", func(m *Market) { m.EndTime = time.Time{} }, ErrMissingEndTime},
		{"unknown state", func(m *Market) { m.State = "draft" }, ErrInvalidState},
		{"negative claim period", func(m *Market) { m.ClaimPeriodSeconds = -1 }, ErrInvalidClaimPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMarket(end)
			tt.mutate(m)
			err := m.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMarket_Clone(t *testing.T) {
	now := time.Now()
	m := newTestMarket(now)
	m.Tags = StringList{"weather"}
	require.NoError(t, m.Resolve("yes", ResolutionManual, now))

	c := m.Clone()
	c.Outcomes[0] = "changed"
	c.Tags[0] = "changed"
	*c.ResolvedAt = now.Add(time.Hour)

	assert.Equal(t, "yes", m.Outcomes[0])
	assert.Equal(t, "weather", m.Tags[0])
	assert.Equal(t, now, *m.ResolvedAt)
}

func TestStringList(t *testing.T) {
	t.Run("Value and Scan", func(t *testing.T) {
		list := StringList{"yes", "no"}
		value, err := list.Value()
		assert.NoError(t, err)

		var result StringList
		assert.NoError(t, result.Scan(value))
		assert.Equal(t, list, result)

		assert.NoError(t, result.Scan([]byte(`["a","b","c"]`)))
		assert.Len(t, result, 3)

		assert.NoError(t, result.Scan(nil))
		assert.Nil(t, result)

		var empty StringList
		value, err = empty.Value()
		assert.NoError(t, err)
		assert.Equal(t, "[]", value)
	})
}

func TestOracleConfig(t *testing.T) {
	outcomes := StringList{"above", "below"}

	t.Run("Value and Scan", func(t *testing.T) {
		config := OracleConfig{
			Provider:   "coinbase",
			FeedID:     "BTC-USD",
			Threshold:  decimal.NewFromInt(50000),
			Comparator: ComparatorGTE,
		}
		config.Normalize(outcomes)

		value, err := config.Value()
		assert.NoError(t, err)

		var result OracleConfig
		assert.NoError(t, result.Scan(value))
		assert.Equal(t, "coinbase", result.Provider)
		assert.True(t, config.Threshold.Equal(result.Threshold))
		assert.Equal(t, "above", result.TrueOutcome)
		assert.Equal(t, "below", result.FalseOutcome)

		raw, err := json.Marshal(config)
		assert.NoError(t, err)
		assert.NoError(t, result.Scan(raw))
		assert.NoError(t, result.Scan(nil))
	})

	t.Run("validate", func(t *testing.T) {
		unset := OracleConfig{}
		assert.NoError(t, unset.Validate(outcomes))

		bad := OracleConfig{Provider: "p", FeedID: "f", Comparator: "between", TrueOutcome: "above", FalseOutcome: "below"}
		assert.ErrorIs(t, bad.Validate(outcomes), ErrInvalidComparator)

		noFeed := OracleConfig{Provider: "p", Comparator: ComparatorGT, TrueOutcome: "above", FalseOutcome: "below"}
		assert.ErrorIs(t, noFeed.Validate(outcomes), ErrInvalidOracle)

		foreign := OracleConfig{Provider: "p", FeedID: "f", Comparator: ComparatorGT, TrueOutcome: "maybe", FalseOutcome: "below"}
		assert.ErrorIs(t, foreign.Validate(outcomes), ErrInvalidOutcome)

		same := OracleConfig{Provider: "p", FeedID: "f", Comparator: ComparatorGT, TrueOutcome: "above", FalseOutcome: "above"}
		assert.ErrorIs(t, same.Validate(outcomes), ErrInvalidOracle)
	})

	t.Run("decide", func(t *testing.T) {
		threshold := decimal.NewFromInt(100)
		tests := []struct {
			cmp   Comparator
			price int64
			want  string
		}{
			{ComparatorGT, 101, "above"},
			{ComparatorGT, 100, "below"},
			{ComparatorGTE, 100, "above"},
			{ComparatorLT, 99, "above"},
			{ComparatorLT, 100, "below"},
			{ComparatorLTE, 100, "above"},
			{ComparatorEQ, 100, "above"},
			{ComparatorEQ, 101, "below"},
		}
		for _, tt := range tests {
			cfg := OracleConfig{Provider: "p", FeedID: "f", Threshold: threshold, Comparator: tt.cmp}
			cfg.Normalize(outcomes)
			assert.Equal(t, tt.want, cfg.Decide(decimal.NewFromInt(tt.price)), "%s %d", tt.cmp, tt.price)
		}
	})
}
