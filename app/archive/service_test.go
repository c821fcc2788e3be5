package archive

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/internal/blob"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
	"github.com/joefazee/settlement/tests/fixtures"
)

type testEnv struct {
	*fixtures.Engine
	svc    Service
	deps   Dependencies
	writer *blob.MemoryWriter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	e := fixtures.NewEngine()
	w := blob.NewMemoryWriter()
	deps := Dependencies{
		Executor:   e.Executor,
		Repo:       e.Store,
		Writer:     w,
		Authorizer: e.Authorizer,
		Clock:      e.Clock,
		Logger:     e.Logger,
	}
	return &testEnv{Engine: e, svc: Init(nil, deps), deps: deps, writer: w}
}

// seed stores a market ending offset after fixtures.Start.
func (env *testEnv) seed(t *testing.T, seq int64, state models.MarketState, category string, offset time.Duration) *models.Market {
	t.Helper()
	m := &models.Market{
		ID:            fmt.Sprintf("mkt_%06d", seq),
		Seq:           seq,
		Creator:       fixtures.Admin,
		Question:      "Will it happen?",
		Outcomes:      models.StringList{"yes", "no"},
		EndTime:       fixtures.Start.Add(offset),
		State:         state,
		Category:      category,
		TotalStaked:   decimal.NewFromInt(100),
		PaidOut:       decimal.Zero,
		FeesCollected: decimal.Zero,
		SweptAmount:   decimal.Zero,
	}
	if state == models.MarketStateResolved {
		m.WinningOutcome = "yes"
	}
	require.NoError(t, env.Store.CreateMarket(context.Background(), m))
	return m
}

func (env *testEnv) archive(t *testing.T, m *models.Market) {
	t.Helper()
	_, err := env.svc.Archive(fixtures.AsAdmin(), m.ID)
	require.NoError(t, err)
}

func TestArchive(t *testing.T) {
	env := newTestEnv(t)
	resolved := env.seed(t, 1, models.MarketStateResolved, "sports", time.Hour)
	active := env.seed(t, 2, models.MarketStateActive, "sports", time.Hour)
	closed := env.seed(t, 3, models.MarketStateClosed, "sports", time.Hour)

	_, err := env.svc.Archive(fixtures.As("alice"), resolved.ID)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	for _, m := range []*models.Market{active, closed} {
		_, err = env.svc.Archive(fixtures.AsAdmin(), m.ID)
		assert.ErrorIs(t, err, models.ErrMarketNotTerminal, m.State)
	}

	_, err = env.svc.Archive(fixtures.AsAdmin(), "missing")
	assert.ErrorIs(t, err, models.ErrMarketNotFound)
	assert.Empty(t, env.Events.OfType(events.MarketArchived))

	pub, err := env.svc.Archive(fixtures.AsAdmin(), resolved.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved.ID, pub.ID)
	assert.Equal(t, int64(1), pub.ArchiveSeq)
	assert.Equal(t, fixtures.Start, pub.ArchivedAt)
	assert.Equal(t, "yes", pub.WinningOutcome)
	require.Len(t, env.Events.OfType(events.MarketArchived), 1)

	_, err = env.svc.Archive(fixtures.AsAdmin(), resolved.ID)
	assert.ErrorIs(t, err, models.ErrAlreadyArchived)
	assert.Len(t, env.Events.OfType(events.MarketArchived), 1)

	entry, err := env.Store.GetArchiveEntry(context.Background(), resolved.ID)
	require.NoError(t, err)
	assert.Equal(t, models.MarketStateResolved, entry.State)
	assert.Equal(t, "sports", entry.Category)
}

func TestPublicView_HasNoUserData(t *testing.T) {
	env := newTestEnv(t)
	m := env.seed(t, 1, models.MarketStateCancelled, "", time.Hour)
	require.NoError(t, env.Store.SavePosition(context.Background(), &models.Position{
		MarketID: m.ID, UserID: "alice", Outcome: "yes", Amount: decimal.NewFromInt(100), Payout: decimal.Zero,
	}))
	env.archive(t, m)

	page, err := env.svc.ByStatus(context.Background(), models.MarketStateCancelled, 0, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	raw, err := json.Marshal(page.Items[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "alice")
	assert.NotContains(t, string(raw), fixtures.Admin)
}

func TestQueries(t *testing.T) {
	env := newTestEnv(t)
	for i := int64(1); i <= 45; i++ {
		state, category := models.MarketStateResolved, "sports"
		if i%4 == 0 {
			state, category = models.MarketStateCancelled, "politics"
		}
		env.archive(t, env.seed(t, i, state, category, time.Duration(i)*time.Hour))
	}
	ctx := context.Background()

	t.Run("status pages are capped", func(t *testing.T) {
		page, err := env.svc.ByStatus(ctx, models.MarketStateResolved, 0, 100)
		require.NoError(t, err)
		assert.Len(t, page.Items, 30)
		assert.True(t, page.HasMore)

		next, err := env.svc.ByStatus(ctx, models.MarketStateResolved, page.NextCursor, 100)
		require.NoError(t, err)
		assert.Len(t, next.Items, 4)
		assert.False(t, next.HasMore)
	})

	t.Run("category", func(t *testing.T) {
		page, err := env.svc.ByCategory(ctx, " politics ", 0, 0)
		require.NoError(t, err)
		assert.Len(t, page.Items, 11)
		for _, m := range page.Items {
			assert.Equal(t, models.MarketStateCancelled, m.State)
		}

		_, err = env.svc.ByCategory(ctx, "  ", 0, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("time range is half open on end time", func(t *testing.T) {
		from := fixtures.Start.Add(10 * time.Hour)
		to := fixtures.Start.Add(15 * time.Hour)
		page, err := env.svc.ByTimeRange(ctx, from, to, 0, 0)
		require.NoError(t, err)
		require.Len(t, page.Items, 5)
		assert.Equal(t, from, page.Items[0].EndTime)
		assert.True(t, page.Items[4].EndTime.Before(to))

		page, err = env.svc.ByTimeRange(ctx, from, to, 0, 2)
		require.NoError(t, err)
		assert.Len(t, page.Items, 2)
		assert.True(t, page.HasMore)
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := env.svc.ByTimeRange(ctx, fixtures.Start, fixtures.Start, 0, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		_, err = env.svc.ByTimeRange(ctx, time.Time{}, fixtures.Start, 0, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
		_, err = env.svc.ByStatus(ctx, "gone", 0, 0)
		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	for i := int64(1); i <= 5; i++ {
		env.archive(t, env.seed(t, i, models.MarketStateResolved, "sports", time.Duration(i)*time.Hour))
	}
	env.seed(t, 6, models.MarketStateResolved, "sports", time.Hour)
	env.deps.Config = &Config{MaxPageSize: 30, ExportPrefix: "exports/", ExportBatch: 2}
	svc := Init(nil, env.deps)
	before := fixtures.Start.Add(4 * time.Hour)

	_, err := svc.Export(fixtures.As("alice"), before)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Export(fixtures.AsAdmin(), time.Time{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	res, err := svc.Export(fixtures.AsAdmin(), before)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Markets)
	assert.Equal(t, "exports/markets-20260301T160000Z.jsonl", res.Path)

	obj, ok := env.writer.Get(res.Path)
	require.True(t, ok)
	assert.Equal(t, "application/x-ndjson", obj.ContentType)
	assert.Equal(t, res.Bytes, len(obj.Data))

	var ids []string
	sc := bufio.NewScanner(bytes.NewReader(obj.Data))
	for sc.Scan() {
		var m models.PublicMarket
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m))
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"mkt_000001", "mkt_000002", "mkt_000003"}, ids)

	exported := env.Events.OfType(events.ArchiveExported)
	require.Len(t, exported, 1)
	assert.Equal(t, "3", exported[0].Data["markets"])
}

type failingWriter struct{}

func (failingWriter) Put(context.Context, string, io.Reader, string) error {
	return errors.New("bucket unavailable")
}

func TestExport_WriterFailures(t *testing.T) {
	env := newTestEnv(t)
	env.archive(t, env.seed(t, 1, models.MarketStateResolved, "", time.Hour))

	env.deps.Writer = failingWriter{}
	_, err := Init(nil, env.deps).Export(fixtures.AsAdmin(), fixtures.Start.Add(48*time.Hour))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket unavailable")
	assert.Empty(t, env.Events.OfType(events.ArchiveExported))

	env.deps.Writer = nil
	_, err = Init(nil, env.deps).Export(fixtures.AsAdmin(), fixtures.Start.Add(48*time.Hour))
	assert.ErrorIs(t, err, ErrExportDisabled)
	assert.Equal(t, models.KindInvalidState, models.KindOf(err))
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, GetDefaultConfig().Validate())
	assert.ErrorIs(t, (&Config{MaxPageSize: 0, ExportPrefix: "a", ExportBatch: 1}).Validate(), models.ErrInvalidPageSize)
	assert.ErrorIs(t, (&Config{MaxPageSize: 1, ExportPrefix: "/", ExportBatch: 1}).Validate(), models.ErrInvalidInput)
	assert.Panics(t, func() { Init(nil, Dependencies{Config: &Config{}}) })
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	m := env.seed(t, 1, models.MarketStateResolved, "sports", time.Hour)
	env.seed(t, 2, models.MarketStateActive, "sports", time.Hour)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if user := c.GetHeader("X-Test-User"); user != "" {
			c.Request = c.Request.WithContext(security.WithPrincipal(c.Request.Context(), security.Principal{UserID: user}))
		}
		c.Next()
	})
	Init(r.Group("/api/v1"), env.deps)

	do := func(method, path, user, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	tests := []struct {
		name   string
		method string
		path   string
		user   string
		body   string
		status int
		want   string
	}{
		{"non admin", http.MethodPost, "/api/v1/archive/" + m.ID, "alice", "", http.StatusForbidden, "UNAUTHORIZED"},
		{"archive", http.MethodPost, "/api/v1/archive/" + m.ID, fixtures.Admin, "", http.StatusCreated, `"archive_seq":1`},
		{"twice", http.MethodPost, "/api/v1/archive/" + m.ID, fixtures.Admin, "", http.StatusConflict, "ALREADY_EXECUTED"},
		{"not terminal", http.MethodPost, "/api/v1/archive/mkt_000002", fixtures.Admin, "", http.StatusConflict, "INVALID_STATE"},
		{"by status", http.MethodGet, "/api/v1/archive/status/resolved", "", "", http.StatusOK, m.ID},
		{"by category", http.MethodGet, "/api/v1/archive/category/sports", "", "", http.StatusOK, m.ID},
		{"range", http.MethodGet, "/api/v1/archive?from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z", "", "", http.StatusOK, m.ID},
		{"range missing to", http.MethodGet, "/api/v1/archive?from=2026-03-01T00:00:00Z", "", "", http.StatusBadRequest, `"error"`},
		{"range reversed", http.MethodGet, "/api/v1/archive?from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z", "", "", http.StatusBadRequest, "INVALID_INPUT"},
		{"export", http.MethodPost, "/api/v1/archive/exports", fixtures.Admin, `{"before":"2026-03-02T00:00:00Z"}`, http.StatusOK, `"markets":1`},
		{"export without body", http.MethodPost, "/api/v1/archive/exports", fixtures.Admin, `{}`, http.StatusBadRequest, `"error"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}
}
