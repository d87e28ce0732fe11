package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func spanAttrs(span tracesdk.ReadOnlySpan) map[attribute.Key]string {
	out := make(map[attribute.Key]string)
	for _, kv := range span.Attributes() {
		out[kv.Key] = kv.Value.Emit()
	}
	return out
}

func TestSpanAttributesMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := tracesdk.NewTracerProvider(tracesdk.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	tokens := auth.NewTokenManager("secret", "taskflow", time.Hour, time.Hour, nil)
	staff := auth.Identity{ID: "u-1", Name: "Alice", Role: task.RoleEmployee}
	token, _, err := tokens.Issue(staff, false)
	require.NoError(t, err)

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(otelgin.Middleware(ServiceName, otelgin.WithTracerProvider(provider)), SpanAttributesMiddleware())
	group := router.Group("/api/v1", auth.Middleware(tokens))
	group.GET("/tasks/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	group.GET("/reviews/:key", func(c *gin.Context) { c.Status(http.StatusOK) })

	t.Run("task id and actor", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-42", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(RequestIDHeader, "req-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		spans := recorder.Ended()
		require.NotEmpty(t, spans)
		attrs := spanAttrs(spans[len(spans)-1])
		assert.Equal(t, "task-42", attrs[attrTaskID])
		assert.Equal(t, "req-1", attrs[attrRequestID])
		assert.Equal(t, "u-1", attrs[attrUserID])
		assert.Equal(t, string(task.RoleEmployee), attrs[attrUserRole])
		assert.NotContains(t, attrs, attrReviewKey)
	})

	t.Run("review key", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/reviews/u-1@2025-W11", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		spans := recorder.Ended()
		attrs := spanAttrs(spans[len(spans)-1])
		assert.Equal(t, "u-1@2025-W11", attrs[attrReviewKey])
		assert.NotContains(t, attrs, attrTaskID)
	})

	t.Run("unauthenticated request has no actor", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tasks/task-1", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		spans := recorder.Ended()
		attrs := spanAttrs(spans[len(spans)-1])
		assert.Equal(t, "task-1", attrs[attrTaskID])
		assert.NotContains(t, attrs, attrUserID)
	})
}
