package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/propertyhub-backend/internal/handlers"
	"github.com/AnshRaj112/propertyhub-backend/internal/middleware"
	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
	"github.com/AnshRaj112/propertyhub-backend/pkg/utils"
)

type testServer struct {
	router         http.Handler
	provider       *provider.MemoryProvider
	recaptchaCalls *int32
}

func newTestServer(t *testing.T, recaptchaSecret string) *testServer {
	t.Helper()
	var calls int32
	siteverify := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, `{"success":true,"error-codes":[]}`)
	}))
	t.Cleanup(siteverify.Close)

	p := provider.NewMemoryProviderWithParams(utils.Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 8, KeyLen: 16})
	logger := log.Nop()
	auth := services.NewAuthService(p, nil, nil, "http://localhost:4321/reset-password", logger)

	r := chi.NewRouter()
	SetupRoutes(r, Deps{
		Auth:          handlers.NewAuthHandler(auth, false),
		Recaptcha:     handlers.NewRecaptchaHandler(services.NewRecaptchaVerifier(recaptchaSecret, siteverify.URL, time.Second), false),
		Properties:    handlers.NewPropertyHandler(services.NewPropertyService(p), false),
		Profile:       handlers.NewProfileHandler(services.NewProfileService(p), false),
		Upload:        handlers.NewUploadHandler(nil, false),
		Authenticator: middleware.NewAuthenticator(p, nil, "", logger),
		Environment:   "test",
	})
	return &testServer{router: r, provider: p, recaptchaCalls: &calls}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]interface{}{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func registration() map[string]string {
	return map[string]string{"email": "a@b.com", "password": "abcdef", "phone": "123", "role": "tenant"}
}

func (s *testServer) registerAndLogin(t *testing.T) string {
	t.Helper()
	rec, _ := s.do(t, http.MethodPost, "/api/auth/register", "", registration())
	require.Equal(t, http.StatusCreated, rec.Code)
	rec, body := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "abcdef", "role": "tenant"})
	require.Equal(t, http.StatusOK, rec.Code)
	session := body["session"].(map[string]interface{})
	return session["access_token"].(string)
}

func TestRegisterRequiresEveryField(t *testing.T) {
	s := newTestServer(t, "secret")
	for _, field := range []string{"email", "password", "phone", "role"} {
		t.Run(field, func(t *testing.T) {
			body := registration()
			delete(body, field)
			rec, out := s.do(t, http.MethodPost, "/api/auth/register", "", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, out["error"])
		})
	}
}

func TestRegisterShortPassword(t *testing.T) {
	s := newTestServer(t, "secret")
	for _, pw := range []string{"a", "abcde"} {
		body := registration()
		body["password"] = pw
		rec, _ := s.do(t, http.MethodPost, "/api/auth/register", "", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestRegisterCreatesAccount(t *testing.T) {
	s := newTestServer(t, "secret")
	rec, out := s.do(t, http.MethodPost, "/api/auth/register", "", registration())
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, out["message"])
	user := out["user"].(map[string]interface{})
	assert.Equal(t, "a@b.com", user["email"])

	rec, out = s.do(t, http.MethodPost, "/api/auth/register", "", registration())
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "User already registered", out["error"])
}

func TestLoginRoleMismatch(t *testing.T) {
	s := newTestServer(t, "secret")
	rec, _ := s.do(t, http.MethodPost, "/api/auth/register", "", registration())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, out := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "abcdef", "role": "owner"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, out["error"], "tenant")
	assert.Nil(t, out["session"])
}

func TestLoginMissingField(t *testing.T) {
	s := newTestServer(t, "secret")
	rec, _ := s.do(t, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.com", "password": "abcdef"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t, "secret")
	token := s.registerAndLogin(t)

	rec, out := s.do(t, http.MethodGet, "/api/auth/session", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "a@b.com", out["user"].(map[string]interface{})["email"])

	rec, _ = s.do(t, http.MethodPost, "/api/auth/update-password", token, map[string]string{"password": "12345"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/auth/update-password", token, map[string]string{"password": "ghijkl"})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "a@b.com"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.provider.ResetRequests(), 1)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/auth/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/logout", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRecaptcha(t *testing.T) {
	s := newTestServer(t, "secret")
	rec, out := s.do(t, http.MethodPost, "/api/auth/verify-recaptcha", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.NotEmpty(t, out["error"])
	assert.Zero(t, atomic.LoadInt32(s.recaptchaCalls))

	rec, out = s.do(t, http.MethodPost, "/api/auth/verify-recaptcha", "", map[string]string{"token": "t"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.EqualValues(t, 1, atomic.LoadInt32(s.recaptchaCalls))

	unconfigured := newTestServer(t, "")
	rec, out = unconfigured.do(t, http.MethodPost, "/api/auth/verify-recaptcha", "", map[string]string{"token": "t"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, out["success"])
	assert.Zero(t, atomic.LoadInt32(unconfigured.recaptchaCalls))
}

func TestPropertiesAndProfile(t *testing.T) {
	s := newTestServer(t, "secret")

	rec, _ := s.do(t, http.MethodPost, "/api/properties", "", map[string]interface{}{"title": "Casa"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token := s.registerAndLogin(t)

	rec, _ = s.do(t, http.MethodPost, "/api/properties", token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, out := s.do(t, http.MethodPost, "/api/properties", token, map[string]interface{}{"title": "Casa", "city": "Quito"})
	require.Equal(t, http.StatusCreated, rec.Code)
	id := out["property"].(map[string]interface{})["id"].(string)

	rec, out = s.do(t, http.MethodGet, "/api/properties?city=Quito", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, out["properties"], 1)

	rec, out = s.do(t, http.MethodGet, "/api/properties/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Casa", out["property"].(map[string]interface{})["title"])

	rec, _ = s.do(t, http.MethodGet, "/api/properties/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = s.do(t, http.MethodPut, "/api/properties/"+id, token, map[string]interface{}{"price": 1000})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1000, out["property"].(map[string]interface{})["price"])

	rec, _ = s.do(t, http.MethodDelete, "/api/properties/"+id, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodDelete, "/api/properties/"+id, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, out = s.do(t, http.MethodGet, "/api/users/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tenant", out["profile"].(map[string]interface{})["role"])

	rec, out = s.do(t, http.MethodPut, "/api/users/profile", token, map[string]interface{}{"phone": "999", "role": "owner"})
	require.Equal(t, http.StatusOK, rec.Code)
	profile := out["profile"].(map[string]interface{})
	assert.Equal(t, "999", profile["phone"])
	assert.Equal(t, "tenant", profile["role"])

	rec, _ = s.do(t, http.MethodGet, "/api/users/profile", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUploadWithoutCloudinary(t *testing.T) {
	s := newTestServer(t, "secret")
	token := s.registerAndLogin(t)
	rec, out := s.do(t, http.MethodPost, "/api/upload", token, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Image uploads are not configured", out["error"])
}

func TestUnmatchedRoutesAre404(t *testing.T) {
	s := newTestServer(t, "secret")
	cases := []struct{ method, path string }{
		{http.MethodGet, "/nope"},
		{http.MethodPost, "/nope"},
		{http.MethodPut, "/api/nope"},
		{http.MethodDelete, "/api/auth/whatever"},
		{http.MethodPatch, "/api/properties/p1"},
		{http.MethodPost, "/api/health"},
		{http.MethodGet, "/api/auth/login"},
		{http.MethodGet, "/api/users/other"},
	}
	for _, c := range cases {
		rec, out := s.do(t, c.method, c.path, "", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", c.method, c.path)
		assert.Equal(t, map[string]interface{}{"error": "Endpoint not found"}, out, "%s %s", c.method, c.path)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, "secret")
	rec, out := s.do(t, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "test", out["environment"])
	_, err := time.Parse(time.RFC3339, out["timestamp"].(string))
	assert.NoError(t, err)
}
