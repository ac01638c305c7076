package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/multitenant/pkg/httpserver"
	"github.com/dmitrymomot/multitenant/pkg/tenant"
	"github.com/dmitrymomot/multitenant/pkg/tenantdb"
)

const adminToken = "secret"

type memoryStore struct {
	mu  sync.Mutex
	ids []string
}

func (s *memoryStore) Add(_ context.Context, ids ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if !slices.Contains(s.ids, id) {
			s.ids = append(s.ids, id)
			n++
		}
	}
	return n, nil
}

func (s *memoryStore) Remove(_ context.Context, ids ...string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.ids)
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool { return slices.Contains(ids, id) })
	return int64(before - len(s.ids)), nil
}

func (s *memoryStore) list() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.ids)
}

type testApp struct {
	router  *tenantdb.Router
	store   *memoryStore
	handler http.Handler
}

func newTestApp(t *testing.T, resolver string, withStore bool) *testApp {
	t.Helper()

	cfg := AppConfig{Layout: LayoutSQLiteFile, DataDir: t.TempDir(), Resolver: resolver, Header: tenant.DefaultHeader, BaseDomain: "example.com"}
	require.NoError(t, cfg.Validate())
	base, err := cfg.baseDBConfig()
	require.NoError(t, err)

	router, err := tenantdb.New(base, tenantdb.WithConfigFunc(cfg.configFunc()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = router.Destroy(context.Background()) })

	app := &testApp{router: router, store: &memoryStore{ids: []string{"acme", "globex"}}}
	sync := func(ctx context.Context) error { return router.SetTenants(ctx, app.store.list()) }
	require.NoError(t, sync(context.Background()))
	require.NoError(t, router.Initialize(context.Background()))

	deps := apiDeps{
		Router:     router,
		Resolver:   cfg.resolver(),
		PathTenant: resolver == ResolverPath,
		Sync:       sync,
		AdminToken: adminToken,
		Checks:     []httpserver.Check{{Name: "tenants", Fn: tenantdb.Healthcheck(router)}},
		Metrics:    http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("# metrics")) }),
	}
	if withStore {
		deps.Store = app.store
	}
	app.handler = newHandler(deps)
	return app
}

type call struct {
	method string
	path   string
	tenant string
	token  string
	body   any
	host   string
}

func (a *testApp) do(t *testing.T, c call) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var body bytes.Buffer
	if c.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(c.body))
	}
	req := httptest.NewRequest(c.method, c.path, &body)
	if c.tenant != "" {
		req.Header.Set(tenant.DefaultHeader, c.tenant)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.host != "" {
		req.Host = c.host
	}
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

// decodeData re-decodes env.Data into v.
func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func str(s string) *string { return &s }
func boolean(b bool) *bool { return &b }

func TestNotesAPI_TenantResolution(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	tests := []struct {
		name   string
		tenant string
		status int
		code   string
	}{
		{"missing tenant", "", http.StatusUnauthorized, "tenant_required"},
		{"unknown tenant", "initech", http.StatusNotFound, "tenant_not_found"},
		{"invalid tenant", "acme corp", http.StatusBadRequest, "bad_request"},
		{"known tenant", "acme", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := app.do(t, call{method: http.MethodGet, path: "/api/notes", tenant: tt.tenant})
			assert.Equal(t, tt.status, rec.Code)
			if tt.code != "" {
				require.NotNil(t, env.Error)
				assert.Equal(t, tt.code, env.Error.Code)
			}
		})
	}
}

func TestNotesAPI_IsolationAndCRUD(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	rec, env := app.do(t, call{method: http.MethodPost, path: "/api/notes", tenant: "acme",
		body: noteInput{Title: str("Quarterly plan"), Body: str("draft"), Pinned: boolean(true)}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created Note
	decodeData(t, env, &created)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "Quarterly plan", created.Title)

	_, env = app.do(t, call{method: http.MethodGet, path: "/api/notes", tenant: "acme"})
	var acmeNotes []Note
	decodeData(t, env, &acmeNotes)
	require.Len(t, acmeNotes, 1)
	assert.Equal(t, created.ID, acmeNotes[0].ID)
	assert.EqualValues(t, 1, env.Meta["total"])

	_, env = app.do(t, call{method: http.MethodGet, path: "/api/notes", tenant: "globex"})
	var globexNotes []Note
	decodeData(t, env, &globexNotes)
	assert.Empty(t, globexNotes)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/api/notes/" + created.ID.String(), tenant: "globex"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = app.do(t, call{method: http.MethodGet, path: "/api/notes/" + created.ID.String(), tenant: "acme"})
	require.Equal(t, http.StatusOK, rec.Code)
	var fetched Note
	decodeData(t, env, &fetched)
	assert.Equal(t, "draft", fetched.Body)
	assert.True(t, fetched.Pinned)

	rec, env = app.do(t, call{method: http.MethodPatch, path: "/api/notes/" + created.ID.String(), tenant: "acme",
		body: noteInput{Body: str("final"), Pinned: boolean(false)}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated Note
	decodeData(t, env, &updated)
	assert.Equal(t, "final", updated.Body)
	assert.False(t, updated.Pinned)

	rec, _ = app.do(t, call{method: http.MethodPatch, path: "/api/notes/" + created.ID.String(), tenant: "globex",
		body: noteInput{Body: str("hijack")}})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/api/notes/" + created.ID.String(), tenant: "acme"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/api/notes/" + created.ID.String(), tenant: "acme"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotesAPI_Validation(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	tests := []struct {
		name string
		c    call
	}{
		{"missing title", call{method: http.MethodPost, path: "/api/notes", body: noteInput{Body: str("x")}}},
		{"unknown field", call{method: http.MethodPost, path: "/api/notes", body: map[string]any{"title": "x", "color": "red"}}},
		{"empty batch", call{method: http.MethodPost, path: "/api/notes/batch", body: []noteInput{}}},
		{"bad id", call{method: http.MethodGet, path: "/api/notes/not-a-uuid"}},
		{"bad limit", call{method: http.MethodGet, path: "/api/notes?limit=-1"}},
		{"bad pinned", call{method: http.MethodGet, path: "/api/notes?pinned=maybe"}},
		{"empty patch", call{method: http.MethodPatch, path: "/api/notes/00000000-0000-0000-0000-000000000001", body: noteInput{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.c.tenant = "acme"
			rec, env := app.do(t, tt.c)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			require.NotNil(t, env.Error)
			assert.Equal(t, "bad_request", env.Error.Code)
		})
	}
}

func TestNotesAPI_BatchAndStats(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	rec, _ := app.do(t, call{method: http.MethodPost, path: "/api/notes/batch", tenant: "globex", body: []noteInput{
		{Title: str("one"), Pinned: boolean(true)},
		{Title: str("two")},
		{Title: str("three"), Pinned: boolean(true)},
	}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// One invalid item rejects the whole batch.
	rec, _ = app.do(t, call{method: http.MethodPost, path: "/api/notes/batch", tenant: "globex", body: []noteInput{
		{Title: str("four")},
		{Body: str("no title")},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env := app.do(t, call{method: http.MethodGet, path: "/api/stats", tenant: "globex"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var stats noteStats
	decodeData(t, env, &stats)
	assert.Equal(t, "globex", stats.Tenant)
	assert.EqualValues(t, 3, stats.Total)
	assert.EqualValues(t, 2, stats.Pinned)
	require.NotNil(t, stats.Latest)

	_, env = app.do(t, call{method: http.MethodGet, path: "/api/notes?pinned=true&limit=1", tenant: "globex"})
	var page []Note
	decodeData(t, env, &page)
	assert.Len(t, page, 1)
	assert.EqualValues(t, 2, env.Meta["total"])

	_, env = app.do(t, call{method: http.MethodGet, path: "/api/stats", tenant: "acme"})
	decodeData(t, env, &stats)
	assert.EqualValues(t, 0, stats.Total)
	assert.Nil(t, stats.Latest)
}

func TestNotesAPI_PathResolver(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverPath, true)

	rec, _ := app.do(t, call{method: http.MethodPost, path: "/api/acme/notes", body: noteInput{Title: str("path based")}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	_, env := app.do(t, call{method: http.MethodGet, path: "/api/acme/notes"})
	var notes []Note
	decodeData(t, env, &notes)
	assert.Len(t, notes, 1)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/api/initech/notes"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNotesAPI_SubdomainResolver(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverSubdomain, true)

	rec, _ := app.do(t, call{method: http.MethodGet, path: "/api/notes", host: "globex.example.com"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/api/notes", host: "example.com"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminAPI_Tenants(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	rec, _ := app.do(t, call{method: http.MethodGet, path: "/admin/tenants"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec, _ = app.do(t, call{method: http.MethodGet, path: "/admin/tenants", token: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	_, env := app.do(t, call{method: http.MethodGet, path: "/admin/tenants", token: adminToken})
	var ids []string
	decodeData(t, env, &ids)
	assert.Equal(t, []string{"acme", "globex"}, ids)

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/admin/tenants", token: adminToken, body: map[string]string{"id": "initech"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.True(t, app.router.HasTenant("initech"))
	assert.Contains(t, app.store.list(), "initech")

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/api/notes", tenant: "initech", body: noteInput{Title: str("hello")}})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec, env = app.do(t, call{method: http.MethodPost, path: "/admin/tenants", token: adminToken, body: map[string]string{"id": "acme"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "conflict", env.Error.Code)

	rec, _ = app.do(t, call{method: http.MethodPost, path: "/admin/tenants", token: adminToken, body: map[string]string{"id": "../etc"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/admin/tenants/initech", token: adminToken})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, app.router.HasTenant("initech"))

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/admin/tenants/initech", token: adminToken})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/api/notes", tenant: "initech"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminAPI_ReadOnlySource(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, false)

	rec, env := app.do(t, call{method: http.MethodPost, path: "/admin/tenants", token: adminToken, body: map[string]string{"id": "initech"}})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.Equal(t, "read_only", env.Error.Code)

	rec, _ = app.do(t, call{method: http.MethodDelete, path: "/admin/tenants/acme", token: adminToken})
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
	assert.True(t, app.router.HasTenant("acme"))
}

func TestAdminAPI_Migrations(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	pending := func() bool {
		_, env := app.do(t, call{method: http.MethodGet, path: "/admin/migrations", token: adminToken})
		var out struct {
			Pending bool `json:"pending"`
			Tenants int  `json:"tenants"`
		}
		decodeData(t, env, &out)
		assert.Equal(t, 2, out.Tenants)
		return out.Pending
	}
	assert.False(t, pending())

	rec, _ := app.do(t, call{method: http.MethodPost, path: "/admin/migrations/down", token: adminToken})
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	assert.True(t, pending())

	rec, env := app.do(t, call{method: http.MethodPost, path: "/admin/migrations/up", token: adminToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		Applied []int64 `json:"applied"`
	}
	decodeData(t, env, &out)
	assert.Equal(t, []int64{2}, out.Applied)
	assert.False(t, pending())
}

func TestHealthEndpointsAndMetrics(t *testing.T) {
	t.Parallel()
	app := newTestApp(t, ResolverHeader, true)

	rec, _ := app.do(t, call{method: http.MethodGet, path: "/livez"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/readyz"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"tenants":"ok"}`, rec.Body.String())

	rec, _ = app.do(t, call{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, "# metrics", rec.Body.String())
}
