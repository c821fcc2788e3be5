package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joefazee/settlement/models"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var r Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	return r
}

func TestSuccessResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("created", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		CreatedResponse(c, "Market created", map[string]string{"id": "mkt_000001"})

		assert.Equal(t, http.StatusCreated, w.Code)
		r := decode(t, w)
		assert.True(t, r.Success)
		assert.Equal(t, "Market created", r.Message)
		assert.Nil(t, r.Error)
		assert.Nil(t, r.Meta)
	})

	t.Run("page carries cursor meta", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		page := models.NewPage([]int64{4, 5, 6}, 2, func(v int64) int64 { return v })
		PageResponse(c, "Markets retrieved", page)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"count":2,"next_cursor":5,"has_more":true}`, string(mustJSON(t, decode(t, w).Meta)))
	})
}

func TestErrorResponses(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		write  func(c *gin.Context)
		status int
		code   string
		msg    string
	}{
		{"bad request", func(c *gin.Context) { BadRequestResponse(c, "cursor must be >= 0") }, http.StatusBadRequest, "BAD_REQUEST", "cursor must be >= 0"},
		{"validation", func(c *gin.Context) { ValidationErrorResponse(c, map[string]string{"amount": "required"}) }, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data"},
		{"unauthorized", UnauthorizedResponse, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized access"},
		{"forbidden", func(c *gin.Context) { ForbiddenResponse(c, "admin only") }, http.StatusForbidden, "FORBIDDEN", "admin only"},
		{"domain error keeps its message", func(c *gin.Context) {
			DomainErrorResponse(c, fmt.Errorf("stake: %w", models.ErrMarketClosed))
		}, http.StatusConflict, "INVALID_STATE", "stake: market is closed for staking"},
		{"internal error is masked", func(c *gin.Context) {
			DomainErrorResponse(c, fmt.Errorf("dial tcp 10.0.0.4:5432: refused"))
		}, http.StatusInternalServerError, "INTERNAL", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.write(c)

			assert.Equal(t, tt.status, w.Code)
			r := decode(t, w)
			assert.False(t, r.Success)
			require.NotNil(t, r.Error)
			assert.Equal(t, tt.code, r.Error.Code)
			assert.Equal(t, tt.msg, r.Error.Message)
		})
	}
}

func TestCorsMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		origins []string
		origin  string
		method  string
		status  int
		allow   string
	}{
		{"any origin", nil, "https://app.example", http.MethodGet, http.StatusOK, "*"},
		{"listed origin", []string{"https://app.example/"}, "https://app.example", http.MethodGet, http.StatusOK, "https://app.example"},
		{"unlisted origin", []string{"https://app.example"}, "https://evil.example", http.MethodGet, http.StatusOK, ""},
		{"preflight", []string{"*"}, "https://app.example", http.MethodOptions, http.StatusNoContent, "*"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.Use(CorsMiddleware(tt.origins))
			r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })
			r.OPTIONS("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

			req := httptest.NewRequest(tt.method, "/x", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.allow, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
