package oracle

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/models"
)

// Observer is told about degraded lookups. internal/metrics implements it.
type Observer interface {
	OracleFellBack(source string)
	OracleFailed(source string)
}

// FallbackSource asks the backup only after the primary fails and emits an
// oracle.fallback event when it does.
type FallbackSource struct {
	name     string
	primary  PriceSource
	backup   PriceSource
	sink     events.Sink
	observer Observer
	logger   logger.Logger
}

func NewFallbackSource(name string, primary, backup PriceSource, sink events.Sink, observer Observer, l logger.Logger) *FallbackSource {
	return &FallbackSource{
		name:     name,
		primary:  primary,
		backup:   backup,
		sink:     sink,
		observer: observer,
		logger:   l,
	}
}

func (s *FallbackSource) Name() string { return s.name }

func (s *FallbackSource) GetPrice(ctx context.Context, feedID string) (decimal.Decimal, error) {
	price, primaryErr := s.primary.GetPrice(ctx, feedID)
	if primaryErr == nil {
		return price, nil
	}
	if s.backup == nil {
		s.failed()
		return decimal.Zero, primaryErr
	}

	s.logger.Info("primary price source failed, trying backup", map[string]interface{}{
		"source":  s.primary.Name(),
		"backup":  s.backup.Name(),
		"feed_id": feedID,
		"error":   primaryErr.Error(),
	})
	if s.observer != nil {
		s.observer.OracleFellBack(s.primary.Name())
	}
	// Degradation is reported whether or not the surrounding call commits.
	if s.sink != nil {
		s.sink.Publish(ctx, events.Event{
			Type: events.OracleFallback,
			Data: map[string]string{
				"provider": s.name,
				"primary":  s.primary.Name(),
				"backup":   s.backup.Name(),
				"feed_id":  feedID,
				"error":    primaryErr.Error(),
			},
			At: time.Now().UTC(),
		})
	}

	price, backupErr := s.backup.GetPrice(ctx, feedID)
	if backupErr != nil {
		s.failed()
		return decimal.Zero, fmt.Errorf("%w: primary: %v; backup: %v", models.ErrOracleUnavailable, primaryErr, backupErr)
	}
	return price, nil
}

func (s *FallbackSource) failed() {
	if s.observer != nil {
		s.observer.OracleFailed(s.name)
	}
}
