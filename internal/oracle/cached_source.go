package oracle

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/cache"
)

// CachedSource memoises successful lookups for ttl. Failures are never cached.
type CachedSource struct {
	next  PriceSource
	cache cache.Cache[string]
	ttl   time.Duration
}

func NewCachedSource(next PriceSource, c cache.Cache[string], ttl time.Duration) *CachedSource {
	return &CachedSource{next: next, cache: c, ttl: ttl}
}

func (s *CachedSource) Name() string { return s.next.Name() }

func (s *CachedSource) key(feedID string) string {
	return "oracle:price:" + s.next.Name() + ":" + feedID
}

func (s *CachedSource) GetPrice(ctx context.Context, feedID string) (decimal.Decimal, error) {
	if raw, err := s.cache.Get(ctx, s.key(feedID)); err == nil {
		if price, err := decimal.NewFromString(raw); err == nil {
			return price, nil
		}
	}
	price, err := s.next.GetPrice(ctx, feedID)
	if err != nil {
		return decimal.Zero, err
	}
	// A cache write failure only costs a future lookup.
	_ = s.cache.Set(ctx, s.key(feedID), price.String(), s.ttl)
	return price, nil
}
