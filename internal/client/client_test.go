package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["password"] != "correct-horse" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"message":"Unauthorized","detail":"invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"token":"tok","expiresAt":"2025-03-12T10:00:00Z","user":{"id":"u1","name":"Alice","email":"alice@example.com","role":"employee"}}}`))
	})
	mux.HandleFunc("/api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"message":"Unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":{"id":"u1","name":"Alice","email":"alice@example.com","role":"employee"}}`))
	})
	mux.HandleFunc("/api/v1/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"message":"ok"}`))
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Login(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	sess, err := New(srv.URL+"/", "").Login(ctx, "alice@example.com", "correct-horse", false)
	require.NoError(t, err)
	assert.Equal(t, "tok", sess.Token)
	assert.Equal(t, srv.URL, sess.ServerURL)
	assert.Equal(t, "Alice", sess.User.Name)
	assert.True(t, sess.ExpiresAt.Equal(time.Date(2025, 3, 12, 10, 0, 0, 0, time.UTC)))

	_, err = New(srv.URL, "").Login(ctx, "alice@example.com", "wrong", false)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "invalid email or password", apiErr.Detail)
}

func TestClient_MeAndLogout(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()

	me, err := New(srv.URL, "tok").Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "employee", me.Role)

	_, err = New(srv.URL, "other").Me(ctx)
	assert.Error(t, err)

	assert.NoError(t, New(srv.URL, "tok").Logout(ctx))
}

func TestClient_NonJSONResponse(t *testing.T) {
	srv := newServer(t)
	_, err := New(srv.URL, "").do(context.Background(), http.MethodGet, "/broken", nil)
	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}
