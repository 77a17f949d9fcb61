package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobby4fischer/pettrack/internal/app"
	"github.com/bobby4fischer/pettrack/internal/auth"
	"github.com/bobby4fischer/pettrack/internal/config"
	"github.com/bobby4fischer/pettrack/internal/domain"
	"github.com/bobby4fischer/pettrack/internal/repository"
	"github.com/bobby4fischer/pettrack/internal/testutil"
)

type testEnv struct {
	app    *app.App
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DBPath = ":memory:"
	cfg.JWTSecret = "test-secret"
	cfg.LogUseCases = false

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a, err := app.New(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	srv := httptest.NewServer(NewServer(a, logger))
	t.Cleanup(srv.Close)
	return &testEnv{app: a, server: srv}
}

func (e *testEnv) seedUser(t *testing.T, opts ...testutil.UserOption) (*domain.User, string) {
	t.Helper()
	u := testutil.NewTestUser("api", opts...)
	require.NoError(t, e.app.Users.Create(context.Background(), u))
	token, err := auth.IssueToken(e.app.Config.JWTSecret, u.ID, time.Hour)
	require.NoError(t, err)
	return u, token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeInto[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestAuth_MissingToken(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/api/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAuth_ForgedToken(t *testing.T) {
	env := newTestEnv(t)
	_, _ = env.seedUser(t)

	forged, err := auth.IssueToken("wrong-secret", "someone", time.Hour)
	require.NoError(t, err)
	resp := env.do(t, http.MethodGet, "/api/tasks", forged, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestTasks_CreateListDelete(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "write tests"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeInto[taskView](t, resp)
	assert.Equal(t, "write tests", created.Title)
	assert.Equal(t, "pending", created.Status)

	resp = env.do(t, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decodeInto[[]taskView](t, resp)
	require.Len(t, list, 1)

	resp = env.do(t, http.MethodDelete, "/api/tasks/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decodeInto[[]taskView](t, resp))
}

func TestTasks_Create_EmptyTitle(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "  "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTasks_Complete_GateDenied(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "gated"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeInto[taskView](t, resp)

	resp = env.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/complete", token, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body := decodeInto[errorBody](t, resp)
	assert.Contains(t, body.Error, "25-minute session")
}

func TestTasks_Complete_WithQualifyingSession(t *testing.T) {
	env := newTestEnv(t)
	u, token := env.seedUser(t)
	ctx := context.Background()

	resp := env.do(t, http.MethodPost, "/api/tasks", token, map[string]string{"title": "earned"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeInto[taskView](t, resp)

	sessions := repository.NewSQLiteSessionRepo(env.app.DB)
	sess := testutil.NewTestSession(u.ID, testutil.WithTaskID(created.ID), testutil.Stopped(30))
	require.NoError(t, sessions.Create(ctx, sess))

	resp = env.do(t, http.MethodPost, "/api/tasks/"+created.ID+"/complete", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	done := decodeInto[taskView](t, resp)
	assert.Equal(t, "completed", done.Status)
	require.NotNil(t, done.CompletedAt)

	resp = env.do(t, http.MethodGet, "/api/store", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	store := decodeInto[storeView](t, resp)
	assert.Equal(t, 3, store.User.Gems)
}

func TestTasks_Complete_Missing(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/tasks/nope/complete", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessions_StartStopHistory(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/sessions/start", token, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	started := decodeInto[sessionView](t, resp)
	assert.False(t, started.Completed)

	// Second concurrent session is refused.
	resp = env.do(t, http.MethodPost, "/api/sessions/start", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/sessions/"+started.ID+"/stop", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stopped := decodeInto[sessionView](t, resp)
	assert.True(t, stopped.Completed)

	resp = env.do(t, http.MethodGet, "/api/sessions/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decodeInto[[]sessionView](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, started.ID, history[0].ID)
}

func TestStore_PurchaseFlow(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, testutil.WithGems(10))

	resp := env.do(t, http.MethodGet, "/api/store", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	store := decodeInto[storeView](t, resp)
	require.Len(t, store.Catalog, 3)
	assert.Equal(t, 10, store.User.Gems)

	resp = env.do(t, http.MethodPost, "/api/store/purchase", token, map[string]string{"kind": "food"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decodeInto[userView](t, resp)
	assert.Equal(t, 1, after.Gems)
	assert.Equal(t, 1, after.Inventory.Food)

	resp = env.do(t, http.MethodPost, "/api/store/purchase", token, map[string]string{"kind": "food"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/store/purchase", token, map[string]string{"kind": "caviar"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStore_AwardAndSpend(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/store/award", token, map[string]int{"amount": 6})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 6, decodeInto[userView](t, resp).Gems)

	// Spend clamps at zero.
	resp = env.do(t, http.MethodPost, "/api/store/spend", token, map[string]int{"amount": 10})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0, decodeInto[userView](t, resp).Gems)
}

func TestPet_GetFeedRenew(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t,
		testutil.WithVitality(40),
		testutil.WithInventory(domain.Inventory{Toys: 1}))

	resp := env.do(t, http.MethodGet, "/api/pet", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pet := decodeInto[userView](t, resp)
	assert.Equal(t, 40, pet.Pet.Vitality)
	assert.Equal(t, "neutral", pet.Pet.Mood)

	resp = env.do(t, http.MethodPost, "/api/pet/feed", token, map[string]string{"kind": "toys"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	fed := decodeInto[userView](t, resp)
	assert.Equal(t, 55, fed.Pet.Vitality)
	assert.Equal(t, 0, fed.Inventory.Toys)

	// A healthy pet cannot be renewed.
	resp = env.do(t, http.MethodPost, "/api/pet/renew", token, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPet_RenewExpired(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t, testutil.WithVitality(0), testutil.WithGems(30))

	resp := env.do(t, http.MethodPost, "/api/pet/feed", token, map[string]string{"kind": "food"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/pet/renew", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	renewed := decodeInto[userView](t, resp)
	assert.Equal(t, domain.RenewVitality, renewed.Pet.Vitality)
	assert.Equal(t, 0, renewed.Gems)
}

func TestActivity_Report(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.seedUser(t)

	resp := env.do(t, http.MethodPost, "/api/activity", token,
		map[string]string{"kind": "idle", "context": "editor"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decodeInto[map[string]string](t, resp)
	assert.NotEmpty(t, body["id"])

	resp = env.do(t, http.MethodPost, "/api/activity", token,
		map[string]string{"kind": "napping"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz_NoAuth(t *testing.T) {
	env := newTestEnv(t)
	resp := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
