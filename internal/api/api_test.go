package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/container"
	"github.com/stretchr/testify/require"
)

// 2025-03-05 是 2025-W10 的周三,W10 已关闭,W11 开放
var testNow = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	c      *container.Container
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	cfg.RateLimit.Enabled = false
	cfg.Auth.BcryptCost = 4

	c, err := container.NewContainer(cfg, nil, container.WithClock(func() time.Time { return testNow }))
	require.NoError(t, err)
	go c.Hub().Run()
	t.Cleanup(func() { _ = c.Close() })

	router := SetupRoutes(RouterDeps{
		Config:            cfg,
		DB:                c.DB(),
		Tokens:            c.Tokens(),
		Hub:               c.Hub(),
		Calculator:        c.Calculator(),
		Events:            c.Events(),
		SLAAlerts:         NewSLAAlertManager(),
		TaskService:       c.TaskService(),
		HistoryService:    c.HistoryService(),
		ReviewService:     c.ReviewService(),
		ReportService:     c.ReportService(),
		AuthService:       c.AuthService(),
		AuditLogService:   c.AuditLogService(),
		StatisticsService: c.StatisticsService(),
	})
	return &testServer{router: router, c: c}
}

// envelope 响应体,同时覆盖成功和错误格式
type envelope struct {
	Code       int             `json:"code"`
	Message    string          `json:"message"`
	Detail     string          `json:"detail"`
	Reason     string          `json:"reason"`
	Data       json.RawMessage `json:"data"`
	Pagination PaginationInfo  `json:"pagination"`
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		_ = json.Unmarshal(w.Body.Bytes(), &env)
	}
	return w, env
}

// register 注册用户并返回 token 和用户 ID
func (s *testServer) register(t *testing.T, name, email, role string) (string, string) {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": name, "email": email, "password": "correct-horse", "role": role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	return resp.Token, resp.User.ID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}
