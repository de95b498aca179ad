//go:build integration

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/saturnino-fabrica-de-software/socialhook/internal/admin"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/cache"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/challenge"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/database"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/domain"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/ingest"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/metrics"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/processor"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/queue"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/repository"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/security"
	"github.com/saturnino-fabrica-de-software/socialhook/internal/signature"
)

var (
	testDB    *pgxpool.Pool
	testRedis *redis.Client
)

func TestMain(m *testing.M) {
	os.Exit(runWithContainers(m))
}

func runWithContainers(m *testing.M) int {
	ctx := context.Background()

	pg, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
				"POSTGRES_DB":       "socialhook_test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Printf("Failed to start postgres: %v\n", err)
		return 1
	}
	defer func() { _ = pg.Terminate(ctx) }()

	rd, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Printf("Failed to start redis: %v\n", err)
		return 1
	}
	defer func() { _ = rd.Terminate(ctx) }()

	pgHost, _ := pg.Host(ctx)
	pgPort, _ := pg.MappedPort(ctx, "5432")
	dsn := fmt.Sprintf("postgres://test:test@%s:%s/socialhook_test?sslmode=disable", pgHost, pgPort.Port())

	if err := database.Migrate(ctx, dsn); err != nil {
		fmt.Printf("Failed to run migrations: %v\n", err)
		return 1
	}

	testDB, err = database.NewPool(ctx, database.DefaultPoolConfig(dsn))
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		return 1
	}
	defer testDB.Close()

	redisHost, _ := rd.Host(ctx)
	redisPort, _ := rd.MappedPort(ctx, "6379")
	testRedis = redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", redisHost, redisPort.Port())})
	defer func() { _ = testRedis.Close() }()

	return m.Run()
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []*domain.NormalizedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, e *domain.NormalizedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func (p *capturingPublisher) snapshot() []*domain.NormalizedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.NormalizedEvent(nil), p.events...)
}

type gateway struct {
	router    *Router
	publisher *capturingPublisher
	token     string
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	prefix := "test:" + uuid.NewString() + ":"
	store := cache.NewRedisStoreWithClient(testRedis, prefix)
	q := queue.NewRedisQueue(testRedis, prefix+queue.DefaultKey, logger)

	gate, err := security.NewGate(store, security.DefaultConfig(), logger)
	require.NoError(t, err)

	configRepo := repository.NewWebhookConfigRepository(testDB)
	eventRepo := repository.NewWebhookEventRepository(testDB)
	metricRepo := repository.NewDeliveryMetricRepository(testDB)
	recorder := metrics.NewRecorder(metricRepo, logger)
	publisher := &capturingPublisher{}

	pipeline := ingest.NewPipeline(configRepo, eventRepo, recorder, q, gate,
		challenge.NewHandler(configRepo, logger), logger)
	consumer := processor.NewConsumer(q, eventRepo, configRepo, publisher, recorder,
		processor.ConsumerConfig{Concurrency: 2, PollTimeout: 100 * time.Millisecond}, logger)

	tokens := admin.NewJWTService("integration-secret", admin.Issuer, time.Hour)
	token, err := tokens.GenerateToken("ops@example.com", admin.RoleOperator)
	require.NoError(t, err)

	router := NewRouter(logger, Config{RequestTimeout: 10 * time.Second}, &Dependencies{
		Pipeline: pipeline,
		Operator: admin.NewService(configRepo, eventRepo, recorder, gate, q, logger),
		Tokens:   tokens,
		Checks: map[string]handler.Pinger{
			"postgres": testDB,
			"kv":       store,
		},
		Workers: []Worker{consumer},
	})
	router.Setup()
	router.StartWorkers(ctx)

	t.Cleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = router.Shutdown(shutdownCtx)
	})

	return &gateway{router: router, publisher: publisher, token: token}
}

func (g *gateway) do(t *testing.T, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := g.router.App().Test(req, -1)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func (g *gateway) createConfig(t *testing.T, platform string) admin.CreateConfigResponse {
	t.Helper()

	payload, err := json.Marshal(admin.CreateConfigRequest{
		SocialAccountID: uuid.New(),
		Platform:        platform,
		WebhookURL:      "https://example.com/hooks",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/v1/admin/configs", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.token)

	resp, body := g.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var created admin.CreateConfigResponse
	require.NoError(t, json.Unmarshal(body, &created))
	return created
}

func signedDelivery(t *testing.T, platform domain.Platform, configID uuid.UUID, secret, body string) *http.Request {
	t.Helper()

	header, value, err := signature.Sign(platform, secret, []byte(body))
	require.NoError(t, err)

	url := fmt.Sprintf("/webhooks/%s?webhook_config_id=%s", platform, configID)
	req := httptest.NewRequest(http.MethodPost, url, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(header, value)
	return req
}

func TestIntegration_ReadyEndpoint(t *testing.T) {
	g := newGateway(t)

	resp, body := g.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode, string(body))
}

func TestIntegration_FacebookHandshake(t *testing.T) {
	g := newGateway(t)
	created := g.createConfig(t, "facebook")
	require.NotEmpty(t, created.VerifyToken)

	url := fmt.Sprintf("/webhooks/facebook?hub.mode=subscribe&hub.verify_token=%s&hub.challenge=1158201444&webhook_config_id=%s",
		created.VerifyToken, created.Config.ID)

	resp, body := g.do(t, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "1158201444", string(body))

	wrong := fmt.Sprintf("/webhooks/facebook?hub.mode=subscribe&hub.verify_token=nope&hub.challenge=1&webhook_config_id=%s", created.Config.ID)
	resp, _ = g.do(t, httptest.NewRequest(http.MethodGet, wrong, nil))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestIntegration_DeliveryIsProcessedAndPublished(t *testing.T) {
	g := newGateway(t)
	created := g.createConfig(t, "facebook")

	body := `{"object":"page","entry":[{"id":"page-1","time":1700000000,"changes":[{"field":"feed","value":{"post_id":"page-1_42","verb":"add","item":"status"}}]}]}`

	resp, respBody := g.do(t, signedDelivery(t, domain.PlatformFacebook, created.Config.ID, created.Secret, body))
	require.Equal(t, http.StatusOK, resp.StatusCode, string(respBody))
	assert.JSONEq(t, `{"status":"success","message":"Webhook received"}`, string(respBody))

	require.Eventually(t, func() bool {
		return len(g.publisher.snapshot()) == 1
	}, 10*time.Second, 50*time.Millisecond)

	published := g.publisher.snapshot()[0]
	assert.Equal(t, domain.PlatformFacebook, published.Platform)
	assert.Equal(t, "post_created", published.EventType)

	var status string
	require.Eventually(t, func() bool {
		err := testDB.QueryRow(context.Background(),
			`SELECT status FROM webhook_events WHERE id = $1`, published.WebhookEventID).Scan(&status)
		return err == nil && status == string(domain.StatusProcessed)
	}, 5*time.Second, 50*time.Millisecond)

	// The same signed body again is a replay.
	resp, _ = g.do(t, signedDelivery(t, domain.PlatformFacebook, created.Config.ID, created.Secret, body))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	metricsURL := fmt.Sprintf("/v1/admin/configs/%s/metrics", created.Config.ID)
	req := httptest.NewRequest(http.MethodGet, metricsURL, nil)
	req.Header.Set("Authorization", "Bearer "+g.token)

	require.Eventually(t, func() bool {
		resp, body := g.do(t, req.Clone(context.Background()))
		if resp.StatusCode != http.StatusOK {
			return false
		}
		var m admin.ConfigMetrics
		if err := json.Unmarshal(body, &m); err != nil || m.Summary == nil {
			return false
		}
		return m.Summary.TotalReceived == 1 && m.Summary.SuccessfullyProcessed == 1
	}, 5*time.Second, 100*time.Millisecond)
}

func TestIntegration_BadSignatureIsRejected(t *testing.T) {
	g := newGateway(t)
	created := g.createConfig(t, "twitter")

	body := `{"for_user_id":"1","tweet_create_events":[{"id_str":"99","text":"hi"}]}`
	req := signedDelivery(t, domain.PlatformTwitter, created.Config.ID, "not-the-secret", body)

	resp, _ := g.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var count int
	require.NoError(t, testDB.QueryRow(context.Background(),
		`SELECT COUNT(*) FROM webhook_events WHERE webhook_config_id = $1`, created.Config.ID).Scan(&count))
	assert.Zero(t, count)
}
