package oracle

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/models"
)

type countingObserver struct {
	fallbacks []string
	failures  []string
}

func (o *countingObserver) OracleFellBack(s string) { o.fallbacks = append(o.fallbacks, s) }
func (o *countingObserver) OracleFailed(s string)   { o.failures = append(o.failures, s) }

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/BTC-USD":
			_, _ = w.Write([]byte(`{"price":"87350.25"}`))
		case "/EMPTY":
			_, _ = w.Write([]byte(`{}`))
		case "/BAD":
			_, _ = w.Write([]byte(`{"price":"abc"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource("feeds", srv.URL+"/", time.Second)
	ctx := context.Background()

	price, err := src.GetPrice(ctx, "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, "87350.25", price.String())

	for _, feed := range []string{"EMPTY", "BAD", "MISSING"} {
		_, err := src.GetPrice(ctx, feed)
		assert.ErrorIs(t, err, models.ErrOracleUnavailable, feed)
	}
}

func TestFallbackSource(t *testing.T) {
	ctx := context.Background()
	feed := "BTC-USD"

	t.Run("primary success skips backup", func(t *testing.T) {
		primary := NewStaticSource("primary", map[string]decimal.Decimal{feed: decimal.NewFromInt(10)})
		backup := NewStaticSource("backup", map[string]decimal.Decimal{feed: decimal.NewFromInt(20)})
		rec := events.NewRecorder()
		obs := &countingObserver{}
		src := NewFallbackSource("feeds", primary, backup, rec, obs, logger.NewNullLogger())

		price, err := src.GetPrice(ctx, feed)
		require.NoError(t, err)
		assert.Equal(t, "10", price.String())
		assert.Empty(t, rec.Events())
		assert.Empty(t, obs.fallbacks)
	})

	t.Run("primary failure uses backup and signals", func(t *testing.T) {
		primary := NewStaticSource("primary", nil)
		primary.Fail(errors.New("timeout"))
		backup := NewStaticSource("backup", map[string]decimal.Decimal{feed: decimal.NewFromInt(20)})
		rec := events.NewRecorder()
		obs := &countingObserver{}
		src := NewFallbackSource("feeds", primary, backup, rec, obs, logger.NewNullLogger())

		price, err := src.GetPrice(ctx, feed)
		require.NoError(t, err)
		assert.Equal(t, "20", price.String())

		fallbacks := rec.OfType(events.OracleFallback)
		require.Len(t, fallbacks, 1)
		assert.Equal(t, "primary", fallbacks[0].Data["primary"])
		assert.Equal(t, []string{"primary"}, obs.fallbacks)
	})

	t.Run("both failing is unavailable", func(t *testing.T) {
		primary := NewStaticSource("primary", nil)
		backup := NewStaticSource("backup", nil)
		obs := &countingObserver{}
		src := NewFallbackSource("feeds", primary, backup, events.Discard, obs, logger.NewNullLogger())

		_, err := src.GetPrice(ctx, feed)
		assert.ErrorIs(t, err, models.ErrOracleUnavailable)
		assert.Equal(t, []string{"feeds"}, obs.failures)
	})

	t.Run("no backup returns primary error", func(t *testing.T) {
		primary := NewStaticSource("primary", nil)
		src := NewFallbackSource("feeds", primary, nil, events.Discard, nil, logger.NewNullLogger())
		_, err := src.GetPrice(ctx, feed)
		assert.ErrorIs(t, err, models.ErrOracleUnavailable)
	})
}

func TestCachedSource(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	mem := cache.NewMemoryCache[string](clk)
	defer mem.Close()

	inner := NewStaticSource("feeds", map[string]decimal.Decimal{"ETH": decimal.NewFromInt(3000)})
	src := NewCachedSource(inner, mem, time.Minute)

	price, err := src.GetPrice(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "3000", price.String())

	inner.SetPrice("ETH", decimal.NewFromInt(1))
	price, err = src.GetPrice(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "3000", price.String(), "served from cache")

	clk.Advance(time.Minute)
	price, err = src.GetPrice(ctx, "ETH")
	require.NoError(t, err)
	assert.Equal(t, "1", price.String(), "refreshed after the ttl")

	_, err = src.GetPrice(ctx, "DOGE")
	assert.ErrorIs(t, err, models.ErrOracleUnavailable)
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry(NewStaticSource("static", nil))
	assert.True(t, reg.Has("static"))

	_, err := reg.Get("chainlink")
	assert.ErrorIs(t, err, models.ErrOracleNotFound)
}

func TestBuild(t *testing.T) {
	reg := Build(&Config{Provider: "feeds"}, nil, events.Discard, nil, logger.NewNullLogger())
	assert.False(t, reg.Has("feeds"), "no url configured")

	reg = Build(&Config{Provider: "feeds", PrimaryURL: "http://127.0.0.1:1", CacheTTL: time.Second},
		cache.NewMemoryCache[string](nil), events.Discard, nil, logger.NewNullLogger())
	assert.True(t, reg.Has("feeds"))
}
