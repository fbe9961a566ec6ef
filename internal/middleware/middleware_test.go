package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m)
}

func signToken(t *testing.T, claims jwt.MapClaims, secret string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id": "7d8a6c1e-0000-4000-8000-000000000001", "email": "qa@example.com", "role": role,
		"company_id": "c0000000-0000-4000-8000-000000000001",
		"exp": time.Now().Add(time.Hour).Unix(), "iat": time.Now().Unix(),
	}
}

type stubChecker struct {
	grants map[string][]string
	err    error
}

func (s stubChecker) Has(_ context.Context, role, permission string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	for _, p := range s.grants[role] {
		if p == permission {
			return true, nil
		}
	}
	return false, nil
}

func do(r *gin.Engine, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// ── JWT ───────────────────────────────────────────────────────────────────────

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/me", JWTAuth(testSecret), func(c *gin.Context) {
		claims := GetClaims(c)
		c.JSON(http.StatusOK, gin.H{"role": claims.Role, "company": *claims.CompanyID})
	})

	rec := do(r, http.MethodGet, "/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + signToken(t, validClaims("viewer"), "other-secret")})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired := validClaims("viewer")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	rec = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + signToken(t, expired, testSecret)})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(r, http.MethodGet, "/me", map[string]string{"Authorization": "Bearer " + signToken(t, validClaims("viewer"), testSecret)})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"role":"viewer","company":"c0000000-0000-4000-8000-000000000001"}`, rec.Body.String())
}

func TestRequirePermission(t *testing.T) {
	checker := stubChecker{grants: map[string][]string{"qa_officer": {"complaints.view"}}}
	r := gin.New()
	r.GET("/complaints", JWTAuth(testSecret), RequirePermission(checker, "complaints.view"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/users", JWTAuth(testSecret), RequirePermission(checker, "users.manage"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	auth := map[string]string{"Authorization": "Bearer " + signToken(t, validClaims("qa_officer"), testSecret)}
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/complaints", auth).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/users", auth).Code)

	failing := gin.New()
	failing.GET("/x", JWTAuth(testSecret), RequirePermission(stubChecker{err: errors.New("redis down")}, "complaints.view"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	assert.Equal(t, http.StatusServiceUnavailable, do(failing, http.MethodGet, "/x", auth).Code)

	noAuth := gin.New()
	noAuth.GET("/x", RequirePermission(checker, "complaints.view"), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	assert.Equal(t, http.StatusUnauthorized, do(noAuth, http.MethodGet, "/x", nil).Code)
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.DELETE("/x", JWTAuth(testSecret), RequireRole("admin"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	viewer := map[string]string{"Authorization": "Bearer " + signToken(t, validClaims("viewer"), testSecret)}
	admin := map[string]string{"Authorization": "Bearer " + signToken(t, validClaims("admin"), testSecret)}
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodDelete, "/x", viewer).Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodDelete, "/x", admin).Code)
}

// ── Request ID / CORS ─────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	rec := do(r, http.MethodGet, "/", map[string]string{RequestIDHeader: "abc-123"})
	assert.Equal(t, "abc-123", rec.Body.String())
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))

	rec = do(r, http.MethodGet, "/", nil)
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(RequestIDHeader))
}

func TestCORS(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://localhost:5173"}))
	r.POST("/v1/auth/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := do(r, http.MethodOptions, "/v1/auth/login", map[string]string{
		"Origin": "http://localhost:5173", "Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = do(r, http.MethodOptions, "/v1/auth/login", map[string]string{
		"Origin": "http://evil.example.com", "Access-Control-Request-Method": http.MethodPost,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// ── Errors ────────────────────────────────────────────────────────────────────

func TestRecoveryAndErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(), ErrorHandler())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.GET("/err", func(c *gin.Context) { _ = c.Error(errors.New("pq: relation does not exist")) })

	rec := do(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, rec.Body.String())

	rec = do(r, http.MethodGet, "/err", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "relation")
}

// ── Rate limiting ─────────────────────────────────────────────────────────────

func TestRateLimiter(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewRateLimiter("test", 2, time.Minute, "")
	l.now = func() time.Time { return now }

	r := gin.New()
	r.GET("/", l.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	rec := do(r, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	now = now.Add(61 * time.Second)
	assert.Equal(t, 1, l.Purge())
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
}

func TestRateLimiter_DisabledAndRun(t *testing.T) {
	off := NewRateLimiter("off", 0, time.Minute, "")
	r := gin.New()
	r.GET("/", off.Handler(), func(c *gin.Context) { c.Status(http.StatusOK) })
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", nil).Code)
	}

	l := LoginRateLimiter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond)
		close(done)
	}()
	cancel()
	<-done
}
