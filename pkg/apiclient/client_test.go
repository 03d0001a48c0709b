package apiclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how often the token is cleared.
type countingStore struct {
	MemoryStore
	mu     sync.Mutex
	clears int
}

func (s *countingStore) Clear() {
	s.mu.Lock()
	s.clears++
	s.mu.Unlock()
	s.MemoryStore.Clear()
}

func newClient(t *testing.T, h http.HandlerFunc, store TokenStore) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", WithTokenStore(store))
}

func TestLoginStoresTokenAndSendsBearer(t *testing.T) {
	store := NewMemoryStore()
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/api/auth/login":
			assert.Empty(t, r.Header.Get("Authorization"))
			var creds Credentials
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, Credentials{Email: "a@b.com", Password: "abcdef", Role: "tenant"}, creds)
			_, _ = io.WriteString(w, `{"message":"Login successful","session":{"access_token":"tok-1"},"user":{"id":"u1","email":"a@b.com"}}`)
		case "/api/users/profile":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"profile":{"id":"u1","role":"tenant"}}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}, store)

	res, err := c.Login(context.Background(), Credentials{Email: "a@b.com", Password: "abcdef", Role: "tenant"})
	require.NoError(t, err)
	assert.Equal(t, "u1", res.User.ID)
	assert.Equal(t, "tok-1", store.Get())
	assert.Equal(t, "tok-1", c.Token())

	profile, err := c.GetProfile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tenant", profile["role"])
}

func TestRejectedLoginStoresNothing(t *testing.T) {
	store := NewMemoryStore()
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"error":"This account is registered as tenant"}`)
	}, store)

	_, err := c.Login(context.Background(), Credentials{Email: "a@b.com", Password: "abcdef", Role: "owner"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, "This account is registered as tenant", err.Error())
	assert.Empty(t, store.Get())
}

func TestLogoutClearsTokenOnceEvenOnFailure(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusInternalServerError} {
		store := &countingStore{}
		store.Set("tok-1")
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"message":"bye"}`)
		}, store)

		err := c.Logout(context.Background())
		if status == http.StatusOK {
			assert.NoError(t, err)
		} else {
			assert.Error(t, err)
		}
		assert.Equal(t, 1, store.clears)
		assert.Empty(t, store.Get())
	}
}

func TestLogoutClearsTokenWhenServerUnreachable(t *testing.T) {
	store := &countingStore{}
	store.Set("tok-1")
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(srv.URL, WithTokenStore(store))

	assert.Error(t, c.Logout(context.Background()))
	assert.Equal(t, 1, store.clears)
	assert.Empty(t, store.Get())
}

func TestAPIErrorFallbackMessage(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, `<html>bad gateway</html>`)
	}, nil)

	_, err := c.HealthCheck(context.Background())
	assert.EqualError(t, err, "Error 502: Bad Gateway")
}

func TestNoTokenNoAuthorizationHeader(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"status":"ok","timestamp":"2024-01-01T00:00:00.000Z","environment":"test"}`)
	}, nil)

	h, err := c.HealthCheck(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}

func TestPropertyCalls(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/properties":
			assert.Equal(t, "Quito", r.URL.Query().Get("city"))
			assert.Equal(t, "5", r.URL.Query().Get("limit"))
			_, _ = io.WriteString(w, `{"properties":[{"id":"p1"},{"id":"p2"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/properties":
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"message":"created","property":{"id":"p3","title":"Casa"}}`)
		case r.Method == http.MethodPut && r.URL.Path == "/api/properties/p3":
			_, _ = io.WriteString(w, `{"message":"updated","property":{"id":"p3","title":"Casa grande"}}`)
		case r.Method == http.MethodDelete && r.URL.Path == "/api/properties/p3":
			_, _ = io.WriteString(w, `{"message":"deleted"}`)
		case r.Method == http.MethodGet && r.URL.Path == "/api/properties/missing":
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Property not found"}`)
		default:
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
	}, NewMemoryStore())
	ctx := context.Background()

	list, err := c.GetProperties(ctx, url.Values{"city": {"Quito"}, "limit": {"5"}})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	created, err := c.CreateProperty(ctx, Property{"title": "Casa"})
	require.NoError(t, err)
	assert.Equal(t, "p3", created["id"])

	updated, err := c.UpdateProperty(ctx, "p3", Property{"title": "Casa grande"})
	require.NoError(t, err)
	assert.Equal(t, "Casa grande", updated["title"])

	require.NoError(t, c.DeleteProperty(ctx, "p3"))

	_, err = c.GetProperty(ctx, "missing")
	assert.EqualError(t, err, "Property not found")
}

func TestSuccessWithoutJSONBodyFails(t *testing.T) {
	for _, body := range []string{"deleted", ""} {
		c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, body)
		}, NewMemoryStore())

		err := c.DeleteProperty(context.Background(), "p1")
		assert.ErrorIs(t, err, ErrInvalidResponse, "body %q", body)
	}
}
