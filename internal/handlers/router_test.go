package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/medirank/medirank-api/internal/blobstore"
	"github.com/medirank/medirank-api/internal/metrics"
	"github.com/medirank/medirank-api/internal/models"
	"github.com/medirank/medirank-api/internal/repository"
	"github.com/medirank/medirank-api/internal/services/audits"
	"github.com/medirank/medirank-api/internal/services/auth"
	"github.com/medirank/medirank-api/internal/services/inspection"
)

const testHost = "medirank.s3.ap-south-1.amazonaws.com"

type testEnv struct {
	handler http.Handler
	blobs   *blobstore.MemoryStore
	repo    *repository.MemoryInspectionRepository
}

type envOptions struct {
	users   repository.UserRepository
	blobs   blobstore.Store
	pingErr error
}

func newTestEnv(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	log := zap.NewNop()
	m := metrics.New()

	mem := blobstore.NewMemoryStore(testHost, "")
	var blobs blobstore.Store = mem
	if opts.blobs != nil {
		blobs = opts.blobs
	}
	users := opts.users
	if users == nil {
		users = repository.NewMemoryUserRepository()
	}
	repo := repository.NewMemoryInspectionRepository()

	r := NewRouter(Deps{
		Auth:        auth.NewService(users, "test-secret", log),
		Inspections: inspection.NewService(repo, blobs, log, m),
		Audits:      audits.NewService(),
		Database: PingFunc(func(context.Context) error {
			return opts.pingErr
		}),
		Driver:         "memory",
		Metrics:        m,
		Logger:         log,
		MaxUploadBytes: 1 << 20,
	})
	return &testEnv{handler: r.Handler(), blobs: mem, repo: repo}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	msg, _ := decodeBody(t, rr)["error"].(string)
	return msg
}

func TestRoot(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"ok":true,"msg":"Medirank backend"}`, rr.Body.String())
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "connected", decodeBody(t, rr)["database"])

	down := newTestEnv(t, envOptions{pingErr: errors.New("no reachable servers")})
	rr = down.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "unreachable", decodeBody(t, rr)["database"])
}

func TestStatusAndMetrics(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/api/status", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, serviceName, decodeBody(t, rr)["service"])

	rr = env.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `route="/api/status"`)
}

func TestPathNormalization(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/API/Inspections/", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"items":[]}`, rr.Body.String())
}

func TestUnknownRouteAndMethod(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/nope", nil).Code)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPatch, "/api/inspections", nil).Code)
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	creds := map[string]string{"email": "a@medirank.in", "password": "s3cret", "name": "Asha"}

	rr := env.do(t, http.MethodPost, "/api/auth/register", creds)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	user := decodeBody(t, rr)["user"].(map[string]interface{})
	assert.Equal(t, "a@medirank.in", user["email"])
	assert.Equal(t, "Asha", user["name"])
	assert.NotContains(t, rr.Body.String(), "password")

	rr = env.do(t, http.MethodPost, "/api/auth/register", creds)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email already registered", errorOf(t, rr))

	rr = env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@medirank.in", "password": "s3cret"})
	require.Equal(t, http.StatusOK, rr.Code)
	login := decodeBody(t, rr)
	token, _ := login["token"].(string)
	require.NotEmpty(t, token)

	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeBody(t, rr)["user"].(map[string]interface{})
	assert.Equal(t, user["id"], me["id"])
	assert.Equal(t, "a@medirank.in", me["email"])

	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/auth/me", nil).Code)
}

func TestLogin_SameErrorForUnknownAndWrongPassword(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	env.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "a@b.c", "password": "right"})

	wrong := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "a@b.c", "password": "wrong"})
	unknown := env.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "x@b.c", "password": "right"})

	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "invalid credentials", errorOf(t, wrong))
}

func TestAuth_Validation(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodPost, "/api/auth/register", map[string]string{"email": "a@b.c"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "email and password required", errorOf(t, rr))

	rr = env.do(t, http.MethodPost, "/api/auth/login", "{not json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type downUsers struct{}

func (downUsers) Create(context.Context, *models.User) error {
	return repository.ErrUnavailable
}

func (downUsers) FindByEmail(context.Context, string) (models.User, error) {
	return models.User{}, fmt.Errorf("find user: %w", repository.ErrUnavailable)
}

func TestAuth_StoreUnavailable(t *testing.T) {
	env := newTestEnv(t, envOptions{users: downUsers{}})
	creds := map[string]string{"email": "a@b.c", "password": "pw"}

	for _, path := range []string{"/api/auth/register", "/api/auth/login"} {
		rr := env.do(t, http.MethodPost, path, creds)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code, path)
		assert.Equal(t, "database unavailable", errorOf(t, rr), path)
	}
}

func TestAudits(t *testing.T) {
	env := newTestEnv(t, envOptions{})
	rr := env.do(t, http.MethodGet, "/api/audits?page=2&limit=5&sort=name&order=asc", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeBody(t, rr)
	assert.Equal(t, float64(60), body["total"])
	assert.Equal(t, float64(2), body["page"])
	assert.Equal(t, float64(5), body["limit"])
	assert.Len(t, body["items"], 5)

	rr = env.do(t, http.MethodGet, "/api/audits?page=abc", nil)
	body = decodeBody(t, rr)
	assert.Equal(t, float64(1), body["page"])
	assert.Equal(t, float64(10), body["limit"])
}
