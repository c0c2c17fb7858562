//go:build integration

package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap/zaptest"

	"github.com/xenking/order-pipeline/internal/domain/auth"
	"github.com/xenking/order-pipeline/internal/domain/order"
	"github.com/xenking/order-pipeline/internal/notify"
	"github.com/xenking/order-pipeline/internal/storage/postgres"
	"github.com/xenking/order-pipeline/pkg/health"
)

const (
	testAPIKey = "integration-test-key"
	testPepper = "test-pepper"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

type noopTelemetry struct{}

func (noopTelemetry) MeterProvider() metric.MeterProvider  { return metricnoop.NewMeterProvider() }
func (noopTelemetry) TracerProvider() trace.TracerProvider { return tracenoop.NewTracerProvider() }

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	ctx, cancel := context.WithCancel(zctx.Base(context.Background(), zaptest.NewLogger(t)))
	t.Cleanup(cancel)

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("orders"),
		tcpostgres.WithUsername("orders"),
		tcpostgres.WithPassword("orders"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, postgres.RunMigrations(ctx, pool))

	inventory := postgres.NewInventoryRepository(pool)
	require.NoError(t, inventory.SetStock(ctx, "Widget", 10))
	require.NoError(t, inventory.SetStock(ctx, "Gadget", 2))

	keys := postgres.NewAPIKeyRepository(pool)
	require.NoError(t, keys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey([]byte(testPepper), testAPIKey),
		Name:    "Integration",
		Scopes:  []string{"*"},
	}))

	orders := postgres.NewOrderRepository(pool)
	pipeline, err := order.NewPipeline(inventory, orders, notify.LogNotifier{})
	require.NoError(t, err)

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", time.Second, health.PingCheck(pool))
	healthSvc.Start(ctx, time.Second)
	healthSvc.SetReady(true)
	t.Cleanup(healthSvc.Stop)

	cfg := &Config{RateLimit: RateLimitConfig{Max: 1000, Window: time.Minute}}
	authn := auth.NewAuthenticator(keys, []byte(testPepper))
	srv := httptest.NewServer(NewRouter(ctx, cfg, noopTelemetry{}, healthSvc, pipeline, orders, authn))
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, key, body string) (int, map[string]any, string) {
	t.Helper()
	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("api_key", key)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out, string(raw)
}

func TestService(t *testing.T) {
	srv := startServer(t)

	t.Run("Health", func(t *testing.T) {
		code, body, _ := call(t, srv, http.MethodGet, "/livez", "", "")
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])

		code, _, _ = call(t, srv, http.MethodGet, "/readyz", "", "")
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("Unauthorized", func(t *testing.T) {
		code, _, _ := call(t, srv, http.MethodPost, "/api/orders", "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, code)

		code, _, _ = call(t, srv, http.MethodPost, "/api/orders", "wrong-key", `{}`)
		assert.Equal(t, http.StatusUnauthorized, code)
	})

	t.Run("Rejected", func(t *testing.T) {
		code, body, _ := call(t, srv, http.MethodPost, "/api/orders", testAPIKey,
			`{"customerName":"Jane","email":"jane@example.com","items":[]}`)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "no_items", body["reason"])
	})

	t.Run("PlaceOrder", func(t *testing.T) {
		code, body, _ := call(t, srv, http.MethodPost, "/api/orders", testAPIKey, `{
			"customerName": "Jane Doe",
			"email": "jane@example.com",
			"region": "CA",
			"items": [
				{"name": "Widget", "price": 10.00, "quantity": 5},
				{"name": "Gadget", "price": 20.00, "quantity": 2}
			]
		}`)
		require.Equal(t, http.StatusCreated, code, body)
		assert.Regexp(t, uuidPattern, body["id"])
		assert.InDelta(t, 90.0, body["subtotal"], 1e-9)
		assert.InDelta(t, 102.52, body["grandTotal"], 1e-9)
	})

	t.Run("OutOfStock", func(t *testing.T) {
		code, body, _ := call(t, srv, http.MethodPost, "/api/orders", testAPIKey, `{
			"customerName": "John",
			"email": "john@example.com",
			"items": [
				{"name": "Widget", "price": 10, "quantity": 1},
				{"name": "Gadget", "price": 20, "quantity": 1}
			]
		}`)
		assert.Equal(t, http.StatusConflict, code)
		assert.Equal(t, "Gadget", body["item"])
	})

	t.Run("Report", func(t *testing.T) {
		code, _, csv := call(t, srv, http.MethodGet, "/api/reports/orders?format=csv&sort=amount", testAPIKey, "")
		require.Equal(t, http.StatusOK, code)
		lines := strings.Split(strings.TrimSpace(csv), "\n")
		require.Len(t, lines, 3)
		assert.Contains(t, lines[1], "Jane Doe")
		assert.Equal(t, "TOTAL,,,102.52,", lines[2])
	})
}
