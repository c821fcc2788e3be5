package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func whoAmI(c *gin.Context) {
	p, ok := security.PrincipalFrom(c.Request.Context())
	if !ok {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, p.UserID)
}

func TestAuthenticate(t *testing.T) {
	maker := new(security.MockMaker)
	maker.On("VerifyToken", "good").Return(&security.Payload{Subject: "alice", Permissions: []string{security.PermissionAdmin}}, nil)
	maker.On("VerifyToken", "listed").Return(&security.Payload{Subject: "ops"}, nil)
	maker.On("VerifyToken", "plain").Return(&security.Payload{Subject: "bob"}, nil)
	maker.On("VerifyToken", mock.Anything).Return(nil, security.ErrInvalidToken)

	r := gin.New()
	r.Use(Authenticate(maker))
	r.GET("/me", whoAmI)
	r.GET("/admin", RequireAdmin(security.NewContextAuthorizer([]string{"ops"})), whoAmI)

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"anonymous", "/me", "", http.StatusOK, "anonymous"},
		{"valid token", "/me", "Bearer good", http.StatusOK, "alice"},
		{"bad scheme", "/me", "Basic good", http.StatusUnauthorized, ""},
		{"bad token", "/me", "Bearer bad", http.StatusUnauthorized, ""},
		{"admin allowed", "/admin", "Bearer good", http.StatusOK, "alice"},
		{"admin by id", "/admin", "Bearer listed", http.StatusOK, "ops"},
		{"admin without rights", "/admin", "Bearer plain", http.StatusForbidden, ""},
		{"admin anonymous", "/admin", "", http.StatusForbidden, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(AuthorizationHeaderKey, tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(NewRateLimiter(0.0001, 2).Middleware())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{200, 200, 429}, codes)
}

func TestInstrument(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	r := gin.New()
	r.Use(Instrument(m))
	r.GET("/markets/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/markets/abc", nil))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/markets/:id", "204")))
}

func TestDomainErrorResponse(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{models.ErrClaimPeriodNotExpired, http.StatusBadRequest, "CLAIM_PERIOD_NOT_EXPIRED"},
		{models.ErrMarketNotFound, http.StatusNotFound, "NOT_FOUND"},
		{models.ErrAlreadyClaimed, http.StatusConflict, "ALREADY_CLAIMED"},
		{models.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
		{errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		DomainErrorResponse(c, tt.err)
		assert.Equal(t, tt.status, w.Code, tt.code)
		assert.Contains(t, w.Body.String(), tt.code)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	DomainErrorResponse(c, errors.New("pq: connection refused"))
	assert.NotContains(t, w.Body.String(), "pq:")
}
