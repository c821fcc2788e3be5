package registry

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/models"
)

type service struct {
	repo   Repository
	config *Config
	clock  clock.Clock
}

// NewService creates a new identifier generator
func NewService(repo Repository, config *Config, clk clock.Clock) Service {
	if config == nil {
		config = GetDefaultConfig()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &service{repo: repo, config: config, clock: clk}
}

// DeriveID returns the id for the counter-th market of creator. The hash
// part makes ids from different creators diverge; the counter part keeps
// them readable and ordered.
func DeriveID(prefix, creator string, counter int64) string {
	sum := blake2b.Sum256([]byte(creator + "|" + strconv.FormatInt(counter, 10)))
	return fmt.Sprintf("%s_%s_%06d", prefix, hex.EncodeToString(sum[:4]), counter)
}

func (s *service) Generate(ctx context.Context, creator string) (*models.RegistryEntry, error) {
	creator = strings.TrimSpace(creator)
	if creator == "" {
		return nil, models.ErrInvalidUser
	}

	counter, err := s.repo.GetCounter(ctx, creator)
	if errors.Is(err, models.ErrRecordNotFound) {
		counter = &models.CreatorCounter{Creator: creator}
	} else if err != nil {
		return nil, fmt.Errorf("failed to load id counter: %w", err)
	}

	next := counter.Counter
	for attempt := 0; attempt < s.config.MaxRetries; attempt++ {
		next++
		if next > s.config.MaxCounter {
			return nil, fmt.Errorf("%w: creator %s reached %d", models.ErrIDSpaceExhausted, creator, s.config.MaxCounter)
		}

		id := DeriveID(s.config.Prefix, creator, next)
		budget.Charge(ctx, 1)
		taken, err := s.repo.RegistryHas(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to check registry: %w", err)
		}
		if taken {
			continue
		}

		counter.Counter = next
		if err := s.repo.SaveCounter(ctx, counter); err != nil {
			return nil, fmt.Errorf("failed to save id counter: %w", err)
		}
		entry := &models.RegistryEntry{MarketID: id, Creator: creator, CreatedAt: s.clock.Now()}
		if err := s.repo.AppendRegistry(ctx, entry); err != nil {
			return nil, fmt.Errorf("failed to append registry entry: %w", err)
		}
		return entry, nil
	}
	return nil, fmt.Errorf("%w: %d collisions for creator %s", models.ErrIDSpaceExhausted, s.config.MaxRetries, creator)
}

func (s *service) GetRegistry(ctx context.Context, cursor int64, limit int) (models.Page[models.RegistryEntry], error) {
	return s.page(ctx, store.RegistryQuery{AfterSeq: cursor}, limit)
}

func (s *service) GetByCreator(ctx context.Context, creator string, cursor int64, limit int) (models.Page[models.RegistryEntry], error) {
	if strings.TrimSpace(creator) == "" {
		return models.Page[models.RegistryEntry]{}, models.ErrInvalidUser
	}
	return s.page(ctx, store.RegistryQuery{Creator: creator, AfterSeq: cursor}, limit)
}

func (s *service) page(ctx context.Context, q store.RegistryQuery, limit int) (models.Page[models.RegistryEntry], error) {
	limit = models.ClampLimit(limit, s.config.MaxPageSize)
	q.Limit = limit + 1
	entries, err := s.repo.ListRegistry(ctx, q)
	if err != nil {
		return models.Page[models.RegistryEntry]{}, fmt.Errorf("failed to list registry: %w", err)
	}
	return models.NewPage(entries, limit, func(e models.RegistryEntry) int64 { return e.Seq }), nil
}
