package app_test

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bizdesk/internal/app"
	"bizdesk/internal/config"
	"bizdesk/internal/database"
	"bizdesk/internal/limiter"
	"bizdesk/internal/models"
	"bizdesk/internal/repositories"
	"bizdesk/internal/services"
	"bizdesk/pkg/client"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type stubProvider struct{}

func (stubProvider) AuthCodeURL(state string) string {
	return "https://provider.test/consent?state=" + url.QueryEscape(state)
}

func (stubProvider) Exchange(ctx context.Context, code string) (*services.Identity, error) {
	return &services.Identity{Email: "ann@example.com", Name: "Ann"}, nil
}

type recordingPublisher struct {
	keys []string
}

func (p *recordingPublisher) PublishEvent(routingKey string, payload interface{}) error {
	p.keys = append(p.keys, routingKey)
	return nil
}

type countingStrategy struct {
	counts map[string]int
}

func (s *countingStrategy) Allow(ctx context.Context, rdb redis.Scripter, key string, limit int, window time.Duration) (bool, error) {
	s.counts[key]++
	return s.counts[key] <= limit, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Port:           "3000",
		BackendURL:     "http://localhost:3000",
		FrontendURL:    "http://frontend.test",
		JWTSecret:      "test_jwt_secret",
		SessionSecret:  "test_session_secret",
		TokenTTL:       time.Hour,
		DatabaseDriver: database.DriverSQLite,
		AuthRateLimit:  2,
		AuthRateWindow: time.Minute,
	}
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrateAll(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func get(t *testing.T, a *fiber.App, path, token string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := a.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestNewApp_HealthAndMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	a := app.NewApp(testConfig(), app.Deps{DB: testDB(t), Provider: stubProvider{}, Registry: registry})

	resp := get(t, a, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, a, "/api/auth/me", "bogus")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = get(t, a, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `bizdesk_token_verifications_total{outcome="failure"} 1`)
}

func TestNewApp_LoginPublishesEvent(t *testing.T) {
	events := &recordingPublisher{}
	a := app.NewApp(testConfig(), app.Deps{DB: testDB(t), Provider: stubProvider{}, Events: events})

	resp := get(t, a, "/api/auth/google", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/google/callback?code=abc&state="+url.QueryEscape(location.Query().Get("state")), nil)
	for _, cookie := range resp.Cookies() {
		req.AddCookie(cookie)
	}
	cb, err := a.Test(req, -1)
	require.NoError(t, err)
	defer cb.Body.Close()
	require.Equal(t, http.StatusFound, cb.StatusCode)

	target, err := url.Parse(cb.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/auth-callback", target.Path)
	assert.Equal(t, []string{services.EventUserLoggedIn}, events.keys)
}

func TestNewApp_CustomersRequireAuth(t *testing.T) {
	cfg := testConfig()
	cfg.CustomersRequireAuth = true
	db := testDB(t)
	a := app.NewApp(cfg, app.Deps{DB: db, Provider: stubProvider{}})

	resp := get(t, a, "/api/customers", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	user := &models.User{Email: "admin@example.com"}
	require.NoError(t, db.Create(user).Error)
	token, err := services.NewAuthService(nil, cfg.JWTSecret).IssueToken(user)
	require.NoError(t, err)

	resp = get(t, a, "/api/customers", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Products stay publicly readable
	resp = get(t, a, "/api/products", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_CustomersPublicByDefault(t *testing.T) {
	a := app.NewApp(testConfig(), app.Deps{DB: testDB(t), Provider: stubProvider{}})

	resp := get(t, a, "/api/customers", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = get(t, a, "/api/unknown", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewApp_RateLimitsAuthRoutes(t *testing.T) {
	strategy := &countingStrategy{counts: map[string]int{}}
	a := app.NewApp(testConfig(), app.Deps{
		DB:       testDB(t),
		Provider: stubProvider{},
		Limiter:  limiter.NewManager(nil, strategy),
	})

	for i := 0; i < 2; i++ {
		resp := get(t, a, "/api/auth/me", "")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	resp := get(t, a, "/api/auth/me", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// Other routes are not limited
	resp = get(t, a, "/api/products", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNewApp_CORS(t *testing.T) {
	a := app.NewApp(testConfig(), app.Deps{DB: testDB(t), Provider: stubProvider{}})

	req := httptest.NewRequest(http.MethodOptions, "/api/customers", nil)
	req.Header.Set("Origin", "http://frontend.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp, err := a.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://frontend.test", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "bizdesk.db")
	t.Setenv("JWT_SECRET", "jwt")
	t.Setenv("SESSION_SECRET", "session")
	t.Setenv("DATABASE_DRIVER", database.DriverSQLite)
	t.Setenv("DATABASE_DSN", dsn)

	cmd := app.NewRootCommand()
	cmd.SetArgs([]string{"migrate", "--env-file", ""})
	require.NoError(t, cmd.Execute())

	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()
	for _, table := range []interface{}{&models.User{}, &models.Customer{}, &models.Product{}, &models.CustomerProduct{}} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestMigrateCommand_InvalidConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("SESSION_SECRET", "")

	cmd := app.NewRootCommand()
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SetArgs([]string{"migrate", "--env-file", ""})
	assert.Error(t, cmd.Execute())
}

func TestRootCommand_Subcommands(t *testing.T) {
	cmd := app.NewRootCommand()
	names := []string{}
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "migrate")
}

func TestNewApp_GoClientEndToEnd(t *testing.T) {
	db := testDB(t)
	cfg := testConfig()
	a := app.NewApp(cfg, app.Deps{DB: db, Provider: stubProvider{}})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = a.Listener(ln) }()
	t.Cleanup(func() { _ = a.Shutdown() })

	user := &models.User{Email: "ann@example.com", Name: "Ann"}
	require.NoError(t, db.Create(user).Error)
	customer := &models.Customer{Name: "Acme", Email: "ops@acme.test"}
	require.NoError(t, db.Create(customer).Error)
	widget := &models.Product{Name: "Widget"}
	gadget := &models.Product{Name: "Gadget"}
	require.NoError(t, db.Create(widget).Error)
	require.NoError(t, db.Create(gadget).Error)

	authService := services.NewAuthService(repositories.NewGORMUserRepository(db), cfg.JWTSecret)
	token, err := authService.IssueToken(user)
	require.NoError(t, err)

	api := client.NewAPIClient("http://" + ln.Addr().String())
	session := client.NewSession(client.NewMemoryStorage(), api)
	api = api.WithSession(session)
	guard := client.NewGuard(session, nil)

	assert.False(t, guard.Navigate(context.Background(), "/customers").Allowed())

	profile, err := session.HandleAuthCallback(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	assert.True(t, guard.Navigate(context.Background(), "/customers").Allowed())

	products, err := api.AddProducts(context.Background(), customer.ID, []uint{widget.ID, gadget.ID})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	products, err = api.ReplaceProducts(context.Background(), customer.ID, []uint{gadget.ID})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Gadget", products[0].Name)

	products, err = api.RemoveProducts(context.Background(), customer.ID, []uint{gadget.ID})
	require.NoError(t, err)
	assert.Empty(t, products)

	_, err = api.AddProducts(context.Background(), customer.ID, []uint{9999})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	require.NoError(t, db.Delete(user).Error)
	assert.Error(t, session.FetchUser(context.Background()))
	assert.False(t, session.IsAuthenticated())
	assert.Equal(t, "/login?redirect=%2Fcustomers", guard.Navigate(context.Background(), "/customers").RedirectTo)
}
