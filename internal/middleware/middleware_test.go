package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/survey-api/pkg/auth"
	"github.com/yourusername/survey-api/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s stubRevocations) IsTokenRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.revoked[tokenID], s.err
}

func newAuthRouter(t *testing.T, revoked stubRevocations) (*gin.Engine, *auth.JWTService) {
	t.Helper()
	jwtSvc, err := auth.NewJWTService("secret", "", 1)
	require.NoError(t, err)

	r := gin.New()
	m := NewAuthMiddleware(jwtSvc, revoked, logger.NewNop())
	r.GET("/me", m.RequireAuth(), func(c *gin.Context) {
		owner, _ := OwnerID(c)
		c.String(http.StatusOK, owner.String())
	})
	return r, jwtSvc
}

func TestRequireAuth(t *testing.T) {
	r, jwtSvc := newAuthRouter(t, stubRevocations{revoked: map[string]bool{}})
	owner := uuid.New()
	token, _, err := jwtSvc.GenerateToken(owner, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, owner.String(), w.Body.String())
			}
		})
	}
}

func TestRequireAuth_RevokedToken(t *testing.T) {
	jwtSvc, _ := auth.NewJWTService("secret", "", 1)
	token, claims, err := jwtSvc.GenerateToken(uuid.New(), "")
	require.NoError(t, err)
	r, _ := newAuthRouter(t, stubRevocations{revoked: map[string]bool{claims.TokenID(): true}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireAuth_StoreDown(t *testing.T) {
	r, jwtSvc := newAuthRouter(t, stubRevocations{err: errors.New("redis down")})
	token, _, _ := jwtSvc.GenerateToken(uuid.New(), "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestExtractUintParam(t *testing.T) {
	r := gin.New()
	r.GET("/surveys/:id", ExtractUintParam("id", "surveyID"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": c.GetUint("surveyID")})
	})

	for path, status := range map[string]int{
		"/surveys/12":  http.StatusOK,
		"/surveys/0":   http.StatusBadRequest,
		"/surveys/abc": http.StatusBadRequest,
		"/surveys/-1":  http.StatusBadRequest,
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, status, w.Code, path)
	}
}

type stubCounter struct {
	count int64
	err   error
}

func (s *stubCounter) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if s.err != nil {
		return 0, 0, s.err
	}
	s.count++
	return s.count, 30 * time.Second, nil
}

func newLimitedRouter(counter WindowCounter, cfg RateLimitConfig) *gin.Engine {
	r := gin.New()
	rl := NewRateLimiter(counter, logger.NewNop())
	r.POST("/submit", rl.LimitByIP(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestRateLimiter_RedisWindow(t *testing.T) {
	r := newLimitedRouter(&stubCounter{}, RateLimitConfig{MaxRequests: 2, Window: time.Minute, Burst: 1, KeyPrefix: "rl:test"})

	var codes []int
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		r.ServeHTTP(last, httptest.NewRequest(http.MethodPost, "/submit", nil))
		codes = append(codes, last.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
	assert.Equal(t, "0", last.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "30", last.Header().Get("Retry-After"))
}

func TestRateLimiter_FallsBackToLocalBucket(t *testing.T) {
	cfg := SubmissionRateLimitConfig(10, 2)
	r := newLimitedRouter(&stubCounter{err: errors.New("redis down")}, cfg)

	var codes []int
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/submit", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestRateLimiter_EvictsIdleLocalBuckets(t *testing.T) {
	rl := NewRateLimiter(nil, logger.NewNop())
	clock := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }
	cfg := SubmissionRateLimitConfig(10, 2)

	rl.localLimiter("rl:submit:10.0.0.1", cfg)
	clock = clock.Add(30 * time.Second)
	rl.localLimiter("rl:submit:10.0.0.2", cfg)
	require.Equal(t, 2, rl.fallbackSize())

	// the first client has been idle longer than the window
	clock = clock.Add(45 * time.Second)
	rl.localLimiter("rl:submit:10.0.0.2", cfg)
	assert.Equal(t, 1, rl.fallbackSize())

	clock = clock.Add(5 * time.Minute)
	rl.localLimiter("rl:submit:10.0.0.3", cfg)
	assert.Equal(t, 1, rl.fallbackSize())
}

func TestRequestLogger_PassesThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logger.NewNop()))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}
