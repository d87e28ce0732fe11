package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestManager(clock *testClock) *TokenManager {
	return NewTokenManager("secret", "taskflow", 7*24*time.Hour, 30*24*time.Hour, clock.Now)
}

var alice = Identity{ID: "u-1", Name: "Alice", Email: "alice@example.com", Role: task.RoleEmployee}

func TestTokenManager_IssueAndValidate(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	tm := newTestManager(clock)

	token, expiresAt, err := tm.Issue(alice, false)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(7*24*time.Hour), expiresAt)

	claims, err := tm.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, alice, claims.Identity())
}

func TestTokenManager_RememberMeExtendsExpiry(t *testing.T) {
	clock := &testClock{now: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)}
	tm := newTestManager(clock)

	token, expiresAt, err := tm.Issue(alice, true)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(30*24*time.Hour), expiresAt)

	// 10 天后普通 token 已过期,记住我仍然有效
	short, _, err := tm.Issue(alice, false)
	require.NoError(t, err)
	clock.now = clock.now.Add(10 * 24 * time.Hour)

	_, err = tm.Validate(token)
	assert.NoError(t, err)
	_, err = tm.Validate(short)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsForeignTokens(t *testing.T) {
	clock := &testClock{now: time.Now()}
	tm := newTestManager(clock)
	other := NewTokenManager("other-secret", "taskflow", time.Hour, time.Hour, clock.Now)

	token, _, err := other.Issue(alice, false)
	require.NoError(t, err)
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tm.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenManager("secret", "someone-else", time.Hour, time.Hour, clock.Now)
	token, _, err = wrongIssuer.Issue(alice, false)
	require.NoError(t, err)
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_Revoke(t *testing.T) {
	clock := &testClock{now: time.Now()}
	tm := newTestManager(clock)

	token, _, err := tm.Issue(alice, false)
	require.NoError(t, err)
	claims, err := tm.Validate(token)
	require.NoError(t, err)

	tm.Revoke(claims)
	_, err = tm.Validate(token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRevocationList_Prune(t *testing.T) {
	clock := &testClock{now: time.Now()}
	list := NewRevocationList(clock.Now)
	list.Revoke("a", clock.now.Add(time.Hour))
	list.Revoke("b", clock.now.Add(3*time.Hour))

	clock.now = clock.now.Add(2 * time.Hour)
	assert.Equal(t, 1, list.Prune())
	assert.False(t, list.IsRevoked("a"))
	assert.True(t, list.IsRevoked("b"))
}

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	clock := &testClock{now: time.Now()}
	tm := newTestManager(clock)
	manager := Identity{ID: "m-1", Name: "Mia", Role: task.RoleManager}

	router := gin.New()
	router.GET("/me", Middleware(tm), func(c *gin.Context) {
		id, _ := CurrentIdentity(c)
		c.JSON(http.StatusOK, id)
	})
	router.GET("/manager", Middleware(tm), RequireRole(task.RoleManager), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	employeeToken, _, err := tm.Issue(alice, false)
	require.NoError(t, err)
	managerToken, _, err := tm.Issue(manager, false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"missing token", "/me", "", http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"valid token", "/me", "Bearer " + employeeToken, http.StatusOK},
		{"query token", "/me?token=" + employeeToken, "", http.StatusOK},
		{"employee on manager route", "/manager", "Bearer " + employeeToken, http.StatusForbidden},
		{"manager on manager route", "/manager", "Bearer " + managerToken, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
