package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wanderstay/staypoints/config"
	"github.com/wanderstay/staypoints/utils"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	config.Set(config.AppConfig{
		JWTSecret:          "middleware-test-secret",
		RateLimitPerMinute: 2,
		AdminUsernames:     []string{"Ops"},
	})
	os.Exit(m.Run())
}

func newAuthEngine() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		uid, _ := ctx.Get(ContextUserIDKey)
		ctx.JSON(http.StatusOK, gin.H{"user_id": uid, "username": ctx.GetString(ContextUsernameKey)})
	})
	r.GET("/admin", AuthRequired(), AdminRequired(), func(ctx *gin.Context) {
		ctx.Status(http.StatusNoContent)
	})
	return r
}

func get(r http.Handler, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func token(t *testing.T, id uint, name string) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, name, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthRequired(t *testing.T) {
	r := newAuthEngine()
	valid := token(t, 42, "mia")

	revoked := token(t, 43, "leo")
	utils.RevokeToken(revoked, time.Now().Add(time.Hour))

	tests := []struct {
		name     string
		auth     string
		wantCode int
		wantBody string
	}{
		{name: "missing", auth: "", wantCode: http.StatusUnauthorized, wantBody: `"code":40101`},
		{name: "wrong scheme", auth: "Basic " + valid, wantCode: http.StatusUnauthorized, wantBody: `"code":40102`},
		{name: "no token", auth: "Bearer    ", wantCode: http.StatusUnauthorized, wantBody: `"code":40103`},
		{name: "revoked", auth: "Bearer " + revoked, wantCode: http.StatusUnauthorized, wantBody: `"code":40104`},
		{name: "garbage", auth: "Bearer not.a.jwt", wantCode: http.StatusUnauthorized, wantBody: `"code":40105`},
		{name: "valid", auth: "bearer " + valid, wantCode: http.StatusOK, wantBody: `"user_id":42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := get(r, "/me", tt.auth)
			require.Equal(t, tt.wantCode, rr.Code)
			require.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestAdminRequired(t *testing.T) {
	r := newAuthEngine()

	rr := get(r, "/admin", "Bearer "+token(t, 42, "mia"))
	require.Equal(t, http.StatusForbidden, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":40301`)

	rr = get(r, "/admin", "Bearer "+token(t, 1, "ops"))
	require.Equal(t, http.StatusNoContent, rr.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RateLimitMiddleware())
	r.GET("/ping", func(ctx *gin.Context) { ctx.Status(http.StatusNoContent) })

	// two per minute gives a burst of one
	require.Equal(t, http.StatusNoContent, get(r, "/ping", "").Code)
	rr := get(r, "/ping", "")
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.Contains(t, rr.Body.String(), `"code":42901`)
}

func TestLimiterSetKeysAreIndependentAndSwept(t *testing.T) {
	set := newLimiterSet(2)
	now := time.Now()

	require.True(t, set.get("user:1", now).Allow())
	require.False(t, set.get("user:1", now).Allow())
	require.True(t, set.get("user:2", now).Allow())

	later := now.Add(2 * limiterIdleTTL)
	set.get("user:3", later)
	require.Len(t, set.visitors, 1)
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString(utils.RequestIDKey)) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, "abc-123", rr.Body.String())
	require.Equal(t, "abc-123", rr.Header().Get("X-Request-ID"))

	rr = get(r, "/", "")
	require.Len(t, rr.Body.String(), 36)
	require.Equal(t, rr.Body.String(), rr.Header().Get("X-Request-ID"))
}

func TestRequestIDReplacesUnsafeValues(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(ctx *gin.Context) { ctx.String(http.StatusOK, ctx.GetString(utils.RequestIDKey)) })

	for _, id := range []string{
		"<script>alert(1)</script>",
		"two words",
		"id\tmatch",
		"caf\u00e9",
		strings.Repeat("a", 65),
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", id)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)

		got := rr.Header().Get("X-Request-ID")
		require.NotEqual(t, id, got)
		_, err := uuid.Parse(got)
		require.NoError(t, err, "id %q", id)
		require.Equal(t, got, rr.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "trace_01.A-z")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, "trace_01.A-z", rr.Header().Get("X-Request-ID"))
}
