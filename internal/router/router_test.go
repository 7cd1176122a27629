package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timehacker/api/config"
	"github.com/timehacker/api/internal/handler"
	"github.com/timehacker/api/internal/middleware"
	"github.com/timehacker/api/internal/repository"
	"github.com/timehacker/api/internal/service"
	"github.com/timehacker/api/pkg/health"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testApp struct {
	engine  *gin.Engine
	clock   *fakeClock
	monitor *health.Monitor
}

func newTestApp(t *testing.T, rateLimit int) *testApp {
	t.Helper()

	cfg := &config.Config{
		App: config.AppConfig{
			Name:           "TimeHacker API",
			Version:        "test",
			Timeout:        5 * time.Second,
			SiteURL:        "https://www.timehacker.cn",
			AllowedOrigins: []string{"http://localhost:5173"},
		},
		JWT: config.JWTConfig{
			Secret:           "router-test-secret-long-enough-for-hs256",
			SigningAlgorithm: "HS256",
			AccessTTL:        30 * time.Minute,
			RefreshTTL:       7 * 24 * time.Hour,
			ResetTTL:         time.Hour,
		},
	}

	clock := &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
	hasher := service.NewBcryptHasher(bcrypt.MinCost, nil)
	tokens, err := service.NewJWTService(cfg.JWT, hasher, service.WithClock(clock.Now))
	require.NoError(t, err)

	store := repository.NewMemoryStore()
	authService := service.NewAuthService(store, hasher, tokens, service.LogNotifier{}, service.AuthOptions{
		SiteURL:         cfg.App.SiteURL,
		AllowedSiteURLs: cfg.App.AllowedOrigins,
	})

	monitor := health.NewMonitor(time.Minute, zap.NewNop())
	monitor.Register("database", true, store.Ping)

	r := NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewProfileHandler(service.NewProfileService(store)),
		handler.NewTodoHandler(service.NewTodoService(store)),
		handler.NewPomodoroHandler(service.NewPomodoroService(store)),
		handler.NewHealthHandler(monitor, cfg.App.Name, cfg.App.Version),
		middleware.NewValidationMiddleware(),
		middleware.NewJWTMiddleware(authService),
		middleware.NewMemoryLimiter(rateLimit, time.Minute),
		cfg,
	)

	return &testApp{engine: r.SetupRoutes(), clock: clock, monitor: monitor}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testApp) login(t *testing.T, email, password string) map[string]string {
	t.Helper()

	w := a.do(t, http.MethodPost, "/register", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(t, http.MethodPost, "/token", "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return decode[map[string]string](t, w)
}

func TestAuthLifecycle(t *testing.T) {
	app := newTestApp(t, 100)

	w := app.do(t, http.MethodPost, "/register", "", map[string]string{"email": "User@Example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decode[map[string]any](t, w)
	assert.Equal(t, "user@example.com", user["email"])
	assert.NotContains(t, user, "password_hash")

	w = app.do(t, http.MethodPost, "/token", "", map[string]string{"email": "user@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	pair := decode[map[string]string](t, w)
	assert.Equal(t, "bearer", pair["token_type"])
	require.NotEmpty(t, pair["access_token"])
	require.NotEmpty(t, pair["refresh_token"])

	w = app.do(t, http.MethodGet, "/profile", pair["access_token"], nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	app.clock.Advance(31 * time.Minute)

	w = app.do(t, http.MethodGet, "/profile", pair["access_token"], nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	w = app.do(t, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": pair["refresh_token"]})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	refreshed := decode[map[string]string](t, w)
	assert.NotContains(t, refreshed, "refresh_token")

	w = app.do(t, http.MethodGet, "/api/v1/profile", refreshed["access_token"], nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodPost, "/logout", "", map[string]string{"refresh_token": pair["refresh_token"]})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(t, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": pair["refresh_token"]})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterErrors(t *testing.T) {
	app := newTestApp(t, 100)
	app.login(t, "taken@example.com", "secret1")

	tests := []struct {
		name string
		body map[string]string
		code int
		want string
	}{
		{"duplicate email", map[string]string{"email": "TAKEN@example.com", "password": "secret1"}, http.StatusBadRequest, "EMAIL_ALREADY_REGISTERED"},
		{"short password", map[string]string{"email": "new@example.com", "password": "12345"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"bad email", map[string]string{"email": "nope", "password": "secret1"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"empty body", nil, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.body != nil {
				body = tt.body
			}
			w := app.do(t, http.MethodPost, "/register", "", body)
			assert.Equal(t, tt.code, w.Code, w.Body.String())
			assert.Equal(t, tt.want, decode[map[string]any](t, w)["code"])
		})
	}
}

func TestProtectedRoutesRequireBearer(t *testing.T) {
	app := newTestApp(t, 100)

	paths := []string{"/profile", "/todos", "/pomodoro/sessions", "/pomodoro/settings", "/api/v1/todos"}
	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			w := app.do(t, http.MethodGet, path, "", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)

			w = app.do(t, http.MethodGet, path, "not-a-jwt", nil)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestTodoRoutes(t *testing.T) {
	app := newTestApp(t, 100)
	alice := app.login(t, "alice@example.com", "secret1")["access_token"]
	bob := app.login(t, "bob@example.com", "secret1")["access_token"]

	w := app.do(t, http.MethodPost, "/todos", alice, map[string]any{"title": "write report"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	todoID := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodPost, "/todos", alice, map[string]any{"title": "second"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/todos", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = app.do(t, http.MethodGet, "/todos?limit=1", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[[]map[string]any](t, w)
	require.Len(t, page, 1)
	assert.Equal(t, "second", page[0]["title"])

	w = app.do(t, http.MethodGet, "/todos/"+todoID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/todos/not-a-uuid", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodPut, "/todos/"+todoID, alice, map[string]any{"is_completed": true})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, w)["is_completed"])

	w = app.do(t, http.MethodDelete, "/todos/"+todoID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodDelete, "/todos/"+todoID, alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestPomodoroRoutes(t *testing.T) {
	app := newTestApp(t, 100)
	token := app.login(t, "pomo@example.com", "secret1")["access_token"]

	w := app.do(t, http.MethodGet, "/pomodoro/settings", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 25, decode[map[string]any](t, w)["workTime"])

	w = app.do(t, http.MethodPut, "/pomodoro/settings", token, map[string]int{
		"workTime": 50, "shortBreakTime": 10, "longBreakTime": 20, "sessionsUntilLongBreak": 3,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 50, decode[map[string]any](t, w)["workTime"])

	w = app.do(t, http.MethodPost, "/pomodoro/sessions", token, map[string]any{
		"title": "focus", "duration": 25, "completedAt": "2024-03-01T10:00:00Z",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sessionID := decode[map[string]any](t, w)["id"].(string)

	w = app.do(t, http.MethodGet, "/pomodoro/sessions", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = app.do(t, http.MethodDelete, "/pomodoro/sessions/"+sessionID, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestForgotPasswordRoutes(t *testing.T) {
	app := newTestApp(t, 100)
	app.login(t, "reset@example.com", "secret1")

	known := app.do(t, http.MethodPost, "/forgot-password", "", map[string]string{"email": "reset@example.com"})
	unknown := app.do(t, http.MethodPost, "/forgot-password", "", map[string]string{"email": "ghost@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.JSONEq(t, known.Body.String(), unknown.Body.String())

	w := app.do(t, http.MethodPost, "/reset-password", "", map[string]string{"token": "bogus.token", "new_password": "another1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_OR_EXPIRED_RESET_TOKEN", decode[map[string]any](t, w)["code"])
}

func TestRateLimitedTokenRoute(t *testing.T) {
	app := newTestApp(t, 2)

	body := map[string]string{"email": "nobody@example.com", "password": "secret1"}
	for i := 0; i < 2; i++ {
		w := app.do(t, http.MethodPost, "/token", "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w := app.do(t, http.MethodPost, "/token", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", decode[map[string]any](t, w)["code"])

	// each route has its own budget
	for i := 0; i < 2; i++ {
		w = app.do(t, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": "nodot"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
	w = app.do(t, http.MethodPost, "/refresh", "", map[string]string{"refresh_token": "nodot"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	for i := 0; i < 2; i++ {
		w = app.do(t, http.MethodPost, "/logout", "", map[string]string{"refresh_token": "nodot"})
		assert.Equal(t, http.StatusOK, w.Code)
	}
	w = app.do(t, http.MethodPost, "/logout", "", map[string]string{"refresh_token": "nodot"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	app := newTestApp(t, 100)

	w := app.do(t, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	root := decode[map[string]any](t, w)
	assert.Equal(t, "ok", root["status"])
	assert.Equal(t, "TimeHacker API is running", root["message"])

	w = app.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "HEALTHY", decode[map[string]any](t, w)["status"])

	app.monitor.Register("database", true, func(context.Context) error { return errors.New("down") })
	app.monitor.CheckAll(context.Background())

	w = app.do(t, http.MethodGet, "/api/v1/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "UNHEALTHY", decode[map[string]any](t, w)["status"])
}

func TestCORSPreflight(t *testing.T) {
	app := newTestApp(t, 100)

	req := httptest.NewRequest(http.MethodOptions, "/token", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	app.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}
