package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"request_id": c.GetString("request_id"),
			"ctx_id":     service.GetRequestID(c.Request.Context()),
		})
	})

	t.Run("generates id", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		id := w.Header().Get(RequestIDHeader)
		assert.NotEmpty(t, id)
		assert.Contains(t, w.Body.String(), `"ctx_id":"`+id+`"`)
	})

	t.Run("keeps client id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", nil)
		req.Header.Set(RequestIDHeader, "custom-request-id")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, "custom-request-id", w.Header().Get(RequestIDHeader))
	})
}

func TestCORSMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(CORSMiddleware(config.CORSConfig{AllowedOrigins: []string{"https://app.example.com"}}))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantOrigin string
	}{
		{"preflight allowed", http.MethodOptions, "https://app.example.com", http.StatusNoContent, "https://app.example.com"},
		{"simple allowed", http.MethodGet, "https://app.example.com", http.StatusOK, "https://app.example.com"},
		{"other origin", http.MethodGet, "https://evil.example.com", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/test", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	for _, hsts := range []bool{true, false} {
		router := gin.New()
		router.Use(SecurityHeadersMiddleware(hsts))
		router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
		assert.Equal(t, hsts, w.Header().Get("Strict-Transport-Security") != "")
		assert.Equal(t, apiCSP, w.Header().Get("Content-Security-Policy"))
		assert.Empty(t, w.Header().Get("Cache-Control"))
	}

	router := gin.New()
	router.Use(SecurityHeadersMiddleware(false))
	router.GET("/api/v1/tasks", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/swagger/index.html", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil))
	assert.Empty(t, w.Header().Get("Content-Security-Policy"))
}

func TestRateLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RateLimitMiddleware(0.001, 1))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestClientRateLimiter_PerClient(t *testing.T) {
	l := NewClientRateLimiter(0.001, 1)
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))

	l.idle = -time.Second
	assert.Equal(t, 2, l.Cleanup())
	assert.True(t, l.Allow("10.0.0.1"))
}

func TestI18n(t *testing.T) {
	router := gin.New()
	router.Use(I18nMiddleware())
	router.GET("/statuses", Statuses)

	tests := []struct {
		name   string
		query  string
		header string
		want   string
	}{
		{"default english", "", "", "Pending approval"},
		{"query zh", "?lang=zh-CN", "", "待审批"},
		{"accept-language", "", "zh-TW,zh;q=0.9,en;q=0.8", "待审批"},
		{"unknown falls back", "?lang=fr", "", "Pending approval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/statuses"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), tt.want)
		})
	}

	assert.Equal(t, "missing.key", NewI18nManager().Translate("zh", "missing.key"))
}

func TestSLAMonitor(t *testing.T) {
	cfg := DefaultSLAConfig()
	cfg.TaskQueryMaxTime = time.Nanosecond
	alerts := NewSLAAlertManager()
	alerts.SetAlertThreshold("task_query", 2)
	var fired []string
	alerts.OnAlert(func(op string, _ []SLAViolation) { fired = append(fired, op) })

	router := gin.New()
	router.Use(SLAMonitorMiddleware(cfg, alerts))
	router.GET("/api/v1/tasks", func(c *gin.Context) {
		time.Sleep(time.Millisecond)
		c.Status(http.StatusOK)
	})
	router.GET("/api/v1/weeks", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/weeks", nil))

	assert.Len(t, alerts.GetViolations("task_query"), 2)
	assert.Empty(t, alerts.GetViolations("unknown"))
	assert.Equal(t, []string{"task_query"}, fired)
	assert.True(t, CheckSLA("unknown", time.Hour, cfg))
}

func TestErrorHandlerMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(ErrorHandlerMiddleware())
	router.GET("/api-error", func(c *gin.Context) {
		_ = c.Error(&APIError{Code: http.StatusTeapot, Message: "teapot"})
	})
	router.GET("/domain-error", func(c *gin.Context) {
		_ = c.Error(service.ErrBatchNotFound)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-error", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/domain-error", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "review batch not found")
}

func TestVersionMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(I18nMiddleware(), VersionMiddleware())
	r.GET("/version", VersionHandler)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, APIVersion, w.Header().Get("X-API-Version"))
	assert.Contains(t, w.Body.String(), `"service":"taskflow-gin"`)

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("API-Version", "v2")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "unsupported API-Version v2")
}
