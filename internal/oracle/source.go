package oracle

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/models"
)

// PriceSource returns the current price of a feed or fails.
type PriceSource interface {
	GetPrice(ctx context.Context, feedID string) (decimal.Decimal, error)
	Name() string
}

// Unavailable wraps a source failure as models.ErrOracleUnavailable.
func Unavailable(source string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrOracleUnavailable, source, err)
}

// StaticSource serves fixed prices. Unknown feeds fail.
type StaticSource struct {
	name   string
	mu     sync.RWMutex
	prices map[string]decimal.Decimal
	err    error
}

func NewStaticSource(name string, prices map[string]decimal.Decimal) *StaticSource {
	s := &StaticSource{name: name, prices: make(map[string]decimal.Decimal, len(prices))}
	for k, v := range prices {
		s.prices[k] = v
	}
	return s
}

func (s *StaticSource) Name() string { return s.name }

func (s *StaticSource) GetPrice(_ context.Context, feedID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return decimal.Zero, Unavailable(s.name, s.err)
	}
	p, ok := s.prices[feedID]
	if !ok {
		return decimal.Zero, Unavailable(s.name, fmt.Errorf("unknown feed %q", feedID))
	}
	return p, nil
}

// SetPrice updates one feed.
func (s *StaticSource) SetPrice(feedID string, price decimal.Decimal) {
	s.mu.Lock()
	s.prices[feedID] = price
	s.mu.Unlock()
}

// Fail makes every lookup fail with err until cleared with nil.
func (s *StaticSource) Fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// Registry resolves a provider name to its price source.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]PriceSource
}

func NewRegistry(sources ...PriceSource) *Registry {
	r := &Registry{sources: make(map[string]PriceSource, len(sources))}
	for _, s := range sources {
		r.Register(s.Name(), s)
	}
	return r
}

// Register binds name to source, replacing any previous binding.
func (r *Registry) Register(name string, source PriceSource) {
	r.mu.Lock()
	r.sources[name] = source
	r.mu.Unlock()
}

// Get returns the source bound to name or models.ErrOracleNotFound.
func (r *Registry) Get(name string) (PriceSource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrOracleNotFound, name)
	}
	return s, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, err := r.Get(name)
	return err == nil
}
