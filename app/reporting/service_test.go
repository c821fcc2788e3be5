package reporting

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/models"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func seedMarket(t *testing.T, st *store.MemoryStore, seq int64, state models.MarketState, total int64) *models.Market {
	t.Helper()
	m := &models.Market{
		ID:            fmt.Sprintf("mkt_%06d", seq),
		Seq:           seq,
		Creator:       "admin",
		Question:      "Question?",
		Outcomes:      models.StringList{"yes", "no"},
		EndTime:       start.Add(time.Hour),
		State:         state,
		TotalStaked:   d(total),
		PaidOut:       decimal.Zero,
		FeesCollected: decimal.Zero,
		SweptAmount:   decimal.Zero,
	}
	require.NoError(t, st.CreateMarket(context.Background(), m))
	return m
}

func TestListings(t *testing.T) {
	st := store.NewMemoryStore()
	for i := int64(1); i <= 35; i++ {
		seedMarket(t, st, i, models.MarketStateActive, 0)
	}
	seedMarket(t, st, 36, models.MarketStateResolved, 0)
	seedMarket(t, st, 37, models.MarketStateCancelled, 0)
	svc := NewService(st, nil, nil, GetDefaultConfig(), nil)
	ctx := context.Background()

	page, err := svc.ActiveMarkets(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, page.Items, 30, "default page is the cap")
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(30), page.NextCursor)

	page, err = svc.ActiveMarkets(ctx, page.NextCursor, 100)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.False(t, page.HasMore)

	page, err = svc.ActiveMarkets(ctx, 0, 3)
	require.NoError(t, err)
	assert.Len(t, page.Items, 3)
	assert.Equal(t, int64(1), page.Items[0].Seq)

	resolved, err := svc.MarketsByState(ctx, models.MarketStateResolved, 0, 10)
	require.NoError(t, err)
	require.Len(t, resolved.Items, 1)
	assert.Equal(t, models.MarketStateResolved, resolved.Items[0].State)

	_, err = svc.MarketsByState(ctx, "archived", 0, 10)
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestSnapshot(t *testing.T) {
	st := store.NewMemoryStore()
	m := seedMarket(t, st, 1, models.MarketStateActive, 60)
	ctx := context.Background()
	for _, p := range []models.Position{
		{MarketID: m.ID, UserID: "alice", Outcome: "yes", Amount: d(10)},
		{MarketID: m.ID, UserID: "bob", Outcome: "yes", Amount: d(20)},
		{MarketID: m.ID, UserID: "carol", Outcome: "no", Amount: d(30), Claimed: true},
	} {
		p := p
		require.NoError(t, st.SavePosition(ctx, &p))
	}
	svc := NewService(st, nil, nil, GetDefaultConfig(), nil)

	snap, err := svc.Snapshot(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.Positions)
	assert.Equal(t, 1, snap.Claimed)
	require.Len(t, snap.Outcomes, 2)
	assert.Equal(t, "yes", snap.Outcomes[0].Outcome)
	assert.Equal(t, "30", snap.Outcomes[0].Staked.String())
	assert.Equal(t, 2, snap.Outcomes[0].Stakers)
	assert.Equal(t, "200", snap.Outcomes[0].Multiplier.String())
	assert.Equal(t, "200", snap.Outcomes[1].Multiplier.String())

	empty := seedMarket(t, st, 2, models.MarketStateActive, 0)
	snap, err = svc.Snapshot(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, snap.Outcomes[0].Multiplier.IsZero())

	_, err = svc.Snapshot(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrMarketNotFound)
}

func TestPlatformStats(t *testing.T) {
	t.Run("aggregates without a cache", func(t *testing.T) {
		st := store.NewMemoryStore()
		seedMarket(t, st, 1, models.MarketStateActive, 10)
		seedMarket(t, st, 2, models.MarketStateActive, 20)
		seedMarket(t, st, 3, models.MarketStateResolved, 30)
		svc := NewService(st, nil, clock.NewManual(start), GetDefaultConfig(), nil)

		stats, err := svc.PlatformStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.TotalMarkets)
		assert.Equal(t, int64(2), stats.Markets[models.MarketStateActive])
		assert.Equal(t, "60", stats.TotalStaked.String())
		assert.Equal(t, start, stats.GeneratedAt)
	})

	t.Run("cache hit skips the store", func(t *testing.T) {
		c := new(cache.MockCache[PlatformStats])
		cached := PlatformStats{TotalMarkets: 99, TotalStaked: d(1)}
		c.On("Get", mock.Anything, statsKey).Return(cached, nil)
		svc := NewService(store.NewMemoryStore(), c, nil, GetDefaultConfig(), nil)

		stats, err := svc.PlatformStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(99), stats.TotalMarkets)
		c.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("miss stores with the configured ttl", func(t *testing.T) {
		c := new(cache.MockCache[PlatformStats])
		c.On("Get", mock.Anything, statsKey).Return(PlatformStats{}, cache.ErrCacheMiss)
		c.On("Set", mock.Anything, statsKey, mock.AnythingOfType("reporting.PlatformStats"), 15*time.Second).Return(nil)
		st := store.NewMemoryStore()
		seedMarket(t, st, 1, models.MarketStateActive, 5)
		svc := NewService(st, c, nil, GetDefaultConfig(), nil)

		stats, err := svc.PlatformStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalMarkets)
		c.AssertExpectations(t)
	})

	t.Run("broken cache still answers", func(t *testing.T) {
		c := new(cache.MockCache[PlatformStats])
		c.On("Get", mock.Anything, statsKey).Return(PlatformStats{}, errors.New("redis down"))
		c.On("Set", mock.Anything, statsKey, mock.Anything, mock.Anything).Return(errors.New("redis down"))
		svc := NewService(store.NewMemoryStore(), c, nil, GetDefaultConfig(), nil)

		stats, err := svc.PlatformStats(context.Background())
		require.NoError(t, err)
		assert.Zero(t, stats.TotalMarkets)
	})

	t.Run("redis entry expires after the ttl", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		defer mr.Close()

		c, err := cache.New[PlatformStats](&cache.Config{Backend: cache.RedisBackend, RedisAddr: mr.Addr(), OpTimeout: 100 * time.Millisecond})
		require.NoError(t, err)
		st := store.NewMemoryStore()
		seedMarket(t, st, 1, models.MarketStateActive, 5)
		svc := NewService(st, c, nil, GetDefaultConfig(), nil)
		ctx := context.Background()

		stats, err := svc.PlatformStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalMarkets)

		seedMarket(t, st, 2, models.MarketStateActive, 5)
		stats, err = svc.PlatformStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), stats.TotalMarkets, "served from cache")

		mr.FastForward(16 * time.Second)
		stats, err = svc.PlatformStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalMarkets)
		assert.Equal(t, "10", stats.TotalStaked.String())
	})
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	st := store.NewMemoryStore()
	seedMarket(t, st, 1, models.MarketStateActive, 0)
	seedMarket(t, st, 2, models.MarketStateClosed, 0)

	r := gin.New()
	Init(r.Group("/api/v1"), Dependencies{Repo: st})

	tests := []struct {
		path   string
		status int
		want   string
	}{
		{"/api/v1/reports/markets/active", http.StatusOK, `"id":"mkt_000001"`},
		{"/api/v1/reports/markets?state=closed", http.StatusOK, `"id":"mkt_000002"`},
		{"/api/v1/reports/markets?state=bogus", http.StatusBadRequest, "INVALID_INPUT"},
		{"/api/v1/reports/markets", http.StatusBadRequest, "BAD_REQUEST"},
		{"/api/v1/reports/markets/active?limit=-2", http.StatusBadRequest, "BAD_REQUEST"},
		{"/api/v1/reports/markets/mkt_000001/snapshot", http.StatusOK, `"outcome":"yes"`},
		{"/api/v1/reports/markets/nope/snapshot", http.StatusNotFound, "NOT_FOUND"},
		{"/api/v1/reports/stats", http.StatusOK, `"total_markets":2`},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
		assert.Contains(t, w.Body.String(), tt.want, tt.path)
	}
}
