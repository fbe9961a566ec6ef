//go:build integration

package router_test

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/luksuri-reka/advanta-cc-sub001/internal/config"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/dto"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/infra"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/progress"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/router"
	"github.com/luksuri-reka/advanta-cc-sub001/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Test Suite Setup ─────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	token  string // admin JWT
	rdb    *redis.Client
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("advanta_test"),
		tcPostgres.WithUsername("advanta"),
		tcPostgres.WithPassword("advanta"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(pgC) })

	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = testcontainers.TerminateContainer(rdC) })

	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                    "test",
		JWTSecret:              "test-secret-key",
		JWTExpirationHours:     8,
		JWTRefreshHours:        24,
		DatabaseURL:            pgURL,
		RedisURL:               rdURL,
		WorkerPoolSize:         2,
		RateLimit:              1000,
		ProgressPollIntervalMs: 100,
		VerifyBaseURL:          "https://verify.example.com",
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)

	store := progress.NewRedisStore(rdb, time.Hour)
	dispatcher := worker.NewDispatcher(rdb)
	deps := router.Deps{
		DB:         db,
		Redis:      rdb,
		Files:      infra.NewLocalStore(t.TempDir(), "http://files.test"),
		Progress:   store,
		Dispatcher: dispatcher,
		MailCB:     infra.NewCircuitBreaker(infra.DefaultCBConfig()),
	}
	svcs := router.NewServices(cfg, deps)
	require.NoError(t, svcs.Roles.SeedDefaults(ctx))
	require.NoError(t, svcs.Reference.SeedProvinces(ctx))
	_, err = svcs.Auth.CreateUser(ctx, dto.CreateUserRequest{
		Email: "admin@e2e.test", Name: "Admin E2E", Password: "advanta2026", Role: "admin",
	})
	require.NoError(t, err)

	pool := worker.NewPool(rdb)
	pool.Register(worker.JobGeneration, worker.QueueGeneration, worker.HandlerFunc(svcs.Generation.HandleJob))
	pool.Register(worker.JobComplaintAck, worker.QueueComplaintAck,
		worker.NewComplaintAckWorker(svcs.ComplaintRepo, svcs.CompanyRepo, deps.Files, dispatcher))
	pool.Register(worker.JobEmail, worker.QueueEmail, worker.NewEmailWorker(infra.NewMailer(cfg), deps.MailCB, rdb))
	pool.Start(ctx, cfg.WorkerPoolSize)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})

	srv := httptest.NewServer(router.New(ctx, cfg, deps, svcs))
	t.Cleanup(srv.Close)

	loginResp := do(t, srv, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"email": "admin@e2e.test", "password": "advanta2026"}), "")
	require.Equal(t, http.StatusOK, loginResp.StatusCode)
	var loginBody struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, loginResp, &loginBody)
	require.NotEmpty(t, loginBody.AccessToken)

	return &testEnv{server: srv, token: loginBody.AccessToken, rdb: rdb}
}

func createProduction(t *testing.T, env *testEnv, lot string, qty int, serial string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/productions", jsonBody(t, map[string]any{
		"lot_number": lot, "variety": "Hibrida P-21", "seed_class": "BR",
		"code_1": "A", "code_2": "B", "code_3": "C", "code_4": "1",
		"lot_total": qty, "lab_result_serial_number": serial,
		"expiry_date": "2099-12-31", "purity_pct": "99.5", "germination_pct": "90",
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var body struct {
		ID string `json:"id"`
	}
	decodeJSON(t, resp, &body)
	return body.ID
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_AsyncGenerationAndVerification(t *testing.T) {
	env := setupTestEnv(t)
	id := createProduction(t, env, "LOT-E2E-1", 2300, "10000")

	rangeResp := do(t, env.server, "GET", "/v1/productions/"+id+"/register-range", nil, env.token)
	require.Equal(t, http.StatusOK, rangeResp.StatusCode)
	var rng dto.RegisterRangeResponse
	decodeJSON(t, rangeResp, &rng)
	assert.Equal(t, "ABC1", rng.StartCode)
	assert.Equal(t, "ABC3", rng.EndCode)
	assert.EqualValues(t, 12299, rng.EndSerial)

	genResp := do(t, env.server, "POST", "/v1/registers/generate/async",
		jsonBody(t, map[string]string{"production_id": id, "qr_token": "QR-E2E"}), env.token)
	require.Equal(t, http.StatusAccepted, genResp.StatusCode)
	var job dto.GenerateResponse
	decodeJSON(t, genResp, &job)

	require.Eventually(t, func() bool {
		resp := do(t, env.server, "GET", "/v1/registers/progress/"+job.JobID, nil, env.token)
		var p progress.Progress
		decodeJSON(t, resp, &p)
		return p.Status == progress.StatusCompleted && p.Inserted == 2300
	}, 30*time.Second, 200*time.Millisecond)

	again := do(t, env.server, "POST", "/v1/registers/generate",
		jsonBody(t, map[string]string{"production_id": id, "qr_token": "QR-E2E"}), env.token)
	assert.Equal(t, http.StatusConflict, again.StatusCode)

	verify := do(t, env.server, "GET", "/v1/public/verify/12001", nil, "")
	require.Equal(t, http.StatusOK, verify.StatusCode)
	var v dto.VerifyResponse
	decodeJSON(t, verify, &v)
	assert.Equal(t, "ABC3", v.Code)
	assert.Equal(t, "LOT-E2E-1", v.LotNumber)
	assert.Equal(t, "valid", v.Status)
	assert.Equal(t, "https://verify.example.com?token=QR-E2E&serial=12001", v.VerificationURL)
}

func TestE2E_ComplaintLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	createProduction(t, env, "LOT-E2E-2", 10, "1")

	submit := do(t, env.server, "POST", "/v1/public/complaints", jsonBody(t, map[string]any{
		"customer_name": "Budi Santoso", "customer_phone": "0812-3456-7890",
		"lot_number": "LOT-E2E-2", "complaint_type": "germination",
		"description": "Less than half of the seeds germinated after a week.",
	}), "")
	require.Equal(t, http.StatusCreated, submit.StatusCode)
	var complaint dto.ComplaintResponse
	decodeJSON(t, submit, &complaint)
	assert.NotNil(t, complaint.ProductionID)

	track := do(t, env.server, "GET", "/v1/public/complaints/"+complaint.ComplaintNumber+"?phone=081234567890", nil, "")
	require.Equal(t, http.StatusOK, track.StatusCode)

	resolve := do(t, env.server, "PATCH", "/v1/complaints/"+complaint.ID+"/status",
		jsonBody(t, map[string]string{"status": "resolved", "resolution": "n/a"}), env.token)
	assert.Equal(t, http.StatusConflict, resolve.StatusCode)

	review := do(t, env.server, "PATCH", "/v1/complaints/"+complaint.ID+"/status",
		jsonBody(t, map[string]string{"status": "in_review"}), env.token)
	require.Equal(t, http.StatusOK, review.StatusCode)

	open := do(t, env.server, "POST", "/v1/complaints/"+complaint.ID+"/investigation",
		jsonBody(t, map[string]any{"lab_test_required": true}), env.token)
	require.Equal(t, http.StatusCreated, open.StatusCode)

	done := do(t, env.server, "POST", "/v1/complaints/"+complaint.ID+"/investigation/complete",
		jsonBody(t, map[string]string{"conclusion": "valid", "resolution": "Replacement seed shipped"}), env.token)
	require.Equal(t, http.StatusOK, done.StatusCode)

	final := do(t, env.server, "GET", "/v1/complaints/"+complaint.ID, nil, env.token)
	var got dto.ComplaintResponse
	decodeJSON(t, final, &got)
	assert.Equal(t, "resolved", got.Status)
	require.NotNil(t, got.Resolution)
	assert.Equal(t, "Replacement seed shipped", *got.Resolution)
}

func TestE2E_PermissionsEnforced(t *testing.T) {
	env := setupTestEnv(t)

	resp := do(t, env.server, "POST", "/v1/users", jsonBody(t, map[string]any{
		"email": "viewer@e2e.test", "name": "Viewer", "password": "viewer2026", "role": "viewer",
	}), env.token)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	login := do(t, env.server, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"email": "viewer@e2e.test", "password": "viewer2026"}), "")
	require.Equal(t, http.StatusOK, login.StatusCode)
	var body dto.LoginResponse
	decodeJSON(t, login, &body)

	assert.Equal(t, http.StatusOK, do(t, env.server, "GET", "/v1/productions", nil, body.AccessToken).StatusCode)
	assert.Equal(t, http.StatusForbidden, do(t, env.server, "POST", "/v1/registers/generate", jsonBody(t, map[string]string{}), body.AccessToken).StatusCode)
	assert.Equal(t, http.StatusUnauthorized, do(t, env.server, "GET", "/v1/productions", nil, "").StatusCode)

	health := do(t, env.server, "GET", "/health", nil, "")
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestE2E_DeadLettersRequeue(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	dl := worker.NewDeadLetters(env.rdb)
	queue := "jobs:e2e_parked"

	dl.Push(ctx, queue, "noop", json.RawMessage(`{"n":1}`), "first", 3)
	dl.Push(ctx, queue, "noop", json.RawMessage(`{"n":2}`), "second", 3)

	n, err := dl.Len(ctx, queue)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entries, err := dl.Peek(ctx, queue, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Reason)

	moved, err := dl.Requeue(ctx, queue, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, moved)

	raw, err := env.rdb.RPop(ctx, queue).Result()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"noop","payload":{"n":1}}`, raw)

	n, err = dl.Len(ctx, queue)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
