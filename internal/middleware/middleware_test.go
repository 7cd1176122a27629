package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/timehacker/api/internal/errors"
	"github.com/timehacker/api/internal/model"
	ctxutil "github.com/timehacker/api/pkg/context"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubResolver struct {
	users map[string]*model.User
	err   error
}

func (r stubResolver) ResolveIdentity(_ context.Context, token string) (*model.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	if u, ok := r.users[token]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUnauthenticated
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER abc", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	user := &model.User{ID: uuid.New(), Email: "a@x.com", IsActive: true}
	resolver := stubResolver{users: map[string]*model.User{"good": user}}

	newEngine := func(r IdentityResolver) *gin.Engine {
		engine := gin.New()
		engine.GET("/me", NewJWTMiddleware(r).RequireAuth(), func(c *gin.Context) {
			identity, ok := CurrentIdentity(c)
			require.True(t, ok)
			assert.Equal(t, identity.ID.String(), ctxutil.GetUserID(c.Request.Context()))
			c.JSON(http.StatusOK, gin.H{"id": identity.ID, "email": identity.Email})
		})
		return engine
	}

	tests := []struct {
		name     string
		resolver IdentityResolver
		header   string
		want     int
		code     string
	}{
		{"valid", resolver, "Bearer good", http.StatusOK, ""},
		{"lowercase scheme", resolver, "bearer good", http.StatusOK, ""},
		{"missing header", resolver, "", http.StatusUnauthorized, apperrors.CodeUnauthenticated},
		{"wrong scheme", resolver, "Token good", http.StatusUnauthorized, apperrors.CodeUnauthenticated},
		{"unknown token", resolver, "Bearer bad", http.StatusUnauthorized, apperrors.CodeUnauthenticated},
		{"disabled", stubResolver{err: apperrors.ErrAccountDisabled}, "Bearer good", http.StatusForbidden, apperrors.CodeAccountDisabled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newEngine(tt.resolver).ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			body := decodeBody(t, w)
			if tt.code == "" {
				assert.Equal(t, "a@x.com", body["email"])
				return
			}
			assert.Equal(t, tt.code, body["code"])
			if tt.want == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	user := &model.User{ID: uuid.New(), Email: "a@x.com", IsActive: true}
	mw := NewJWTMiddleware(stubResolver{users: map[string]*model.User{"good": user}})

	engine := gin.New()
	engine.POST("/logout", mw.OptionalAuth(), func(c *gin.Context) {
		_, ok := CurrentIdentity(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})

	for header, want := range map[string]bool{"": false, "Bearer good": true, "Bearer expired": false} {
		req := httptest.NewRequest(http.MethodPost, "/logout", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code, header)
		assert.Equal(t, want, decodeBody(t, w)["authenticated"], header)
	}
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	d, _ := l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	now = now.Add(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, _ = l.Allow(ctx, "k")
	assert.False(t, d.Allowed)
	assert.Equal(t, 30*time.Second, d.Reset)

	other, _ := l.Allow(ctx, "other")
	assert.True(t, other.Allowed, "keys are independent")

	now = now.Add(30 * time.Second)
	d, _ = l.Allow(ctx, "k")
	assert.True(t, d.Allowed, "first hit slid out of the window")
}

func TestMemoryLimiter_SweepsIdleKeysOncePerWindow(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(5, time.Minute)
	l.now = func() time.Time { return now }
	l.lastSweep = now
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		d, _ := l.Allow(ctx, fmt.Sprintf("ip-%d", i))
		require.True(t, d.Allowed)
	}
	assert.Len(t, l.hits, 1000)

	now = now.Add(59 * time.Second)
	_, _ = l.Allow(ctx, "late")
	assert.Len(t, l.hits, 1001, "no sweep inside the window")

	now = now.Add(2 * time.Second)
	_, _ = l.Allow(ctx, "fresh")
	assert.Len(t, l.hits, 2, "only late and fresh are still live")
	assert.Contains(t, l.hits, "late")
	assert.Contains(t, l.hits, "fresh")
}

func TestRateLimit_Middleware(t *testing.T) {
	engine := gin.New()
	engine.POST("/token", RateLimit(NewMemoryLimiter(1, time.Minute), "token"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	do := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", nil))
		return w
	}

	assert.Equal(t, http.StatusOK, do().Code)

	w := do()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, apperrors.CodeRateLimited, decodeBody(t, w)["code"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, assert.AnError
}

func TestRateLimit_FailsOpen(t *testing.T) {
	engine := gin.New()
	engine.GET("/", RateLimit(failingLimiter{}, "x"), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORS(t *testing.T) {
	engine := gin.New()
	engine.Use(CORS([]string{"https://app.example/"}))
	engine.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantOrigin string
		wantStatus int
	}{
		{"allowed", http.MethodGet, "https://app.example", "https://app.example", http.StatusOK},
		{"not allowed", http.MethodGet, "https://evil.example", "", http.StatusOK},
		{"preflight", http.MethodOptions, "https://app.example", "https://app.example", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

type loginBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

func TestValidateRequestBody(t *testing.T) {
	engine := gin.New()
	engine.POST("/token",
		NewValidationMiddleware().ValidateRequestBody(func() interface{} { return &loginBody{} }),
		func(c *gin.Context) {
			req, ok := ValidatedBody[loginBody](c)
			require.True(t, ok)
			c.JSON(http.StatusOK, gin.H{"email": req.Email})
		},
	)

	tests := []struct {
		name   string
		body   string
		want   int
		fields []string
	}{
		{"valid", `{"email":"a@x.com","password":"secret1"}`, http.StatusOK, nil},
		{"malformed", `{"email":`, http.StatusUnprocessableEntity, nil},
		{"empty body", ``, http.StatusUnprocessableEntity, []string{"email", "password"}},
		{"bad fields", `{"email":"nope","password":"1"}`, http.StatusUnprocessableEntity, []string{"email", "password"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/token", strings.NewReader(tt.body)))

			assert.Equal(t, tt.want, w.Code)
			body := decodeBody(t, w)
			if tt.want == http.StatusOK {
				assert.Equal(t, "a@x.com", body["email"])
				return
			}
			assert.Equal(t, apperrors.CodeValidation, body["code"])
			if tt.fields != nil {
				details, ok := body["details"].(map[string]any)
				require.True(t, ok)
				for _, f := range tt.fields {
					assert.Contains(t, details, f)
				}
			}
		})
	}
}

func TestErrorBody_HidesInternalCause(t *testing.T) {
	body := ErrorBody(apperrors.WrapError(apperrors.ErrInternal, assert.AnError))
	assert.Equal(t, apperrors.CodeInternal, body["code"])
	assert.NotContains(t, body["details"], assert.AnError.Error())
}
