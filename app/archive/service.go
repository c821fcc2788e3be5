package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/blob"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
)

const (
	OpArchive = "archive"
	OpExport  = "archive_export"
)

const exportContentType = "application/x-ndjson"

type service struct {
	exec   *store.Executor
	repo   Repository
	writer blob.Writer
	auth   security.Authorizer
	clock  clock.Clock
	config *Config
	logger logger.Logger
}

// NewService creates a new archive service. Export fails with
// ErrExportDisabled when writer is nil.
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
		exec:   deps.Executor,
		repo:   deps.Repo,
		writer: deps.Writer,
		auth:   deps.Authorizer,
		clock:  c,
		config: config,
		logger: l,
	}
}

// ErrExportDisabled is returned when no blob writer is configured.
var ErrExportDisabled = fmt.Errorf("%w: archive export is not configured", models.ErrInvalidState)

func (s *service) Archive(ctx context.Context, marketID string) (*models.PublicMarket, error) {
	var out models.PublicMarket
	err := s.exec.Do(ctx, OpArchive, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if strings.TrimSpace(marketID) == "" {
			return models.ErrMarketNotFound
		}
		market, err := s.repo.GetMarket(ctx, marketID)
		if err != nil {
			return err
		}
		if !market.State.IsTerminal() {
			return fmt.Errorf("%w: market is %s", models.ErrMarketNotTerminal, market.State)
		}
		if _, err := s.repo.GetArchiveEntry(ctx, market.ID); err == nil {
			return models.ErrAlreadyArchived
		} else if !errors.Is(err, models.ErrRecordNotFound) {
			return fmt.Errorf("failed to load archive entry: %w", err)
		}

		entry := &models.ArchiveEntry{
			MarketID:   market.ID,
			ArchivedAt: s.clock.Now(),
			State:      market.State,
			Category:   market.Category,
			EndTime:    market.EndTime,
		}
		if err := s.repo.CreateArchiveEntry(ctx, entry); err != nil {
			if errors.Is(err, models.ErrAlreadyArchived) {
				return err
			}
			return fmt.Errorf("failed to archive market: %w", err)
		}
		budget.Charge(ctx, 1)

		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type:     events.MarketArchived,
			MarketID: market.ID,
			Data:     map[string]string{"state": string(market.State), "seq": strconv.FormatInt(entry.Seq, 10)},
			At:       entry.ArchivedAt,
		})
		out = models.NewPublicMarket(market, entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *service) ByTimeRange(ctx context.Context, from, to time.Time, cursor int64, limit int) (models.Page[models.PublicMarket], error) {
	if from.IsZero() || to.IsZero() || !from.Before(to) {
		return models.Page[models.PublicMarket]{}, fmt.Errorf("%w: time range must satisfy from < to", models.ErrInvalidInput)
	}
	return s.page(ctx, store.ArchiveQuery{From: &from, To: &to, AfterSeq: cursor}, limit)
}

func (s *service) ByStatus(ctx context.Context, state models.MarketState, cursor int64, limit int) (models.Page[models.PublicMarket], error) {
	if !state.IsValid() {
		return models.Page[models.PublicMarket]{}, fmt.Errorf("%w: unknown state %q", models.ErrInvalidInput, state)
	}
	return s.page(ctx, store.ArchiveQuery{State: state, AfterSeq: cursor}, limit)
}

func (s *service) ByCategory(ctx context.Context, category string, cursor int64, limit int) (models.Page[models.PublicMarket], error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return models.Page[models.PublicMarket]{}, fmt.Errorf("%w: category is required", models.ErrInvalidInput)
	}
	return s.page(ctx, store.ArchiveQuery{Category: category, AfterSeq: cursor}, limit)
}

func (s *service) page(ctx context.Context, q store.ArchiveQuery, limit int) (models.Page[models.PublicMarket], error) {
	limit = models.ClampLimit(limit, s.config.MaxPageSize)
	q.Limit = limit + 1
	rows, err := s.list(ctx, q)
	if err != nil {
		return models.Page[models.PublicMarket]{}, err
	}
	return models.NewPage(rows, limit, func(m models.PublicMarket) int64 { return m.ArchiveSeq }), nil
}

func (s *service) list(ctx context.Context, q store.ArchiveQuery) ([]models.PublicMarket, error) {
	entries, err := s.repo.ListArchive(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	rows := make([]models.PublicMarket, 0, len(entries))
	for i := range entries {
		market, err := s.repo.GetMarket(ctx, entries[i].MarketID)
		if err != nil {
			return nil, fmt.Errorf("failed to load archived market %s: %w", entries[i].MarketID, err)
		}
		rows = append(rows, models.NewPublicMarket(market, &entries[i]))
	}
	return rows, nil
}

// Export writes one JSON line per archived market that ended before the
// cut-off, in archive order.
func (s *service) Export(ctx context.Context, before time.Time) (*ExportResult, error) {
	if before.IsZero() {
		return nil, fmt.Errorf("%w: cut-off time is required", models.ErrInvalidInput)
	}
	var out *ExportResult
	err := s.exec.Do(ctx, OpExport, func(ctx context.Context) error {
		if err := s.auth.RequireAdmin(ctx); err != nil {
			return err
		}
		if s.writer == nil {
			return ErrExportDisabled
		}

		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		count := 0
		q := store.ArchiveQuery{To: &before, Limit: s.config.ExportBatch}
		for {
			rows, err := s.list(ctx, q)
			if err != nil {
				return err
			}
			for i := range rows {
				if err := enc.Encode(rows[i]); err != nil {
					return fmt.Errorf("failed to encode market %s: %w", rows[i].ID, err)
				}
			}
			count += len(rows)
			budget.Charge(ctx, int64(len(rows)))
			if len(rows) < q.Limit {
				break
			}
			q.AfterSeq = rows[len(rows)-1].ArchiveSeq
		}

		path := fmt.Sprintf("%s/markets-%s.jsonl", strings.Trim(s.config.ExportPrefix, "/ "), before.UTC().Format("20060102T150405Z"))
		size := buf.Len()
		if err := s.writer.Put(ctx, path, &buf, exportContentType); err != nil {
			return fmt.Errorf("failed to write export: %w", err)
		}

		events.Emit(ctx, s.exec.Sink(), events.Event{
			Type: events.ArchiveExported,
			Data: map[string]string{"path": path, "markets": strconv.Itoa(count)},
			At:   s.clock.Now(),
		})
		s.logger.Info("archive exported", map[string]interface{}{"path": path, "markets": count, "bytes": size})
		out = &ExportResult{Path: path, Markets: count, Bytes: size, Before: before}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
