package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AnshRaj112/propertyhub-backend/internal/provider"
	"github.com/AnshRaj112/propertyhub-backend/internal/services"
	"github.com/AnshRaj112/propertyhub-backend/pkg/log"
)

type countingLookup struct {
	calls int32
	users map[string]*provider.User
}

func (c *countingLookup) GetUser(_ context.Context, token string) (*provider.User, error) {
	atomic.AddInt32(&c.calls, 1)
	if u, ok := c.users[token]; ok {
		return u, nil
	}
	return nil, &provider.Error{Status: http.StatusUnauthorized, Code: "bad_jwt", Message: "invalid JWT"}
}

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			_, _ = w.Write([]byte("anonymous"))
			return
		}
		assert.Equal(t, BearerToken(r), provider.AccessToken(r.Context()))
		_, _ = w.Write([]byte(user.ID))
	})
}

func get(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuthUsesProviderThroughCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	lookup := &countingLookup{users: map[string]*provider.User{"good": {ID: "u1"}}}
	auth := NewAuthenticator(lookup, services.NewTokenCache(client, time.Minute), "", log.Nop())
	h := auth.RequireAuth(echoUser(t))

	rec := get(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Authentication required"}`, rec.Body.String())

	rec = get(h, "bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for i := 0; i < 3; i++ {
		rec = get(h, "good")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "u1", rec.Body.String())
	}
	// one miss for "bad", one for "good", then cache hits
	assert.EqualValues(t, 2, atomic.LoadInt32(&lookup.calls))
}

func TestOptionalAuthNeverFails(t *testing.T) {
	lookup := &countingLookup{users: map[string]*provider.User{"good": {ID: "u1"}}}
	h := NewAuthenticator(lookup, nil, "", log.Nop()).OptionalAuth(echoUser(t))

	assert.Equal(t, "anonymous", get(h, "").Body.String())
	assert.Equal(t, "anonymous", get(h, "bad").Body.String())
	assert.Equal(t, "u1", get(h, "good").Body.String())
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRequireAuthVerifiesJWTLocally(t *testing.T) {
	lookup := &countingLookup{}
	h := NewAuthenticator(lookup, nil, "jwt-secret", log.Nop()).RequireAuth(echoUser(t))

	good := signed(t, "jwt-secret", jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":           "u9",
		"email":         "a@b.com",
		"user_metadata": map[string]interface{}{"role": "owner"},
		"exp":           time.Now().Add(time.Hour).Unix(),
	})
	rec := get(h, good)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u9", rec.Body.String())

	expired := signed(t, "jwt-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u9", "exp": time.Now().Add(-time.Minute).Unix()})
	assert.Equal(t, http.StatusUnauthorized, get(h, expired).Code)

	forged := signed(t, "other-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u9", "exp": time.Now().Add(time.Hour).Unix()})
	assert.Equal(t, http.StatusUnauthorized, get(h, forged).Code)

	noExp := signed(t, "jwt-secret", jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u9"})
	assert.Equal(t, http.StatusUnauthorized, get(h, noExp).Code)

	assert.Zero(t, atomic.LoadInt32(&lookup.calls))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
		"Bearer  abc": "abc",
	}
	for header, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", header)
		assert.Equal(t, want, BearerToken(req), "header %q", header)
	}
}
