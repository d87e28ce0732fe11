package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/config"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

// span 上的业务属性
const (
	attrTaskID    = attribute.Key("taskflow.task_id")
	attrReviewKey = attribute.Key("taskflow.review_key")
	attrRequestID = attribute.Key("taskflow.request_id")
	attrUserID    = attribute.Key("enduser.id")
	attrUserRole  = attribute.Key("enduser.role")
)

var tracerProvider *tracesdk.TracerProvider

// InitTracing 初始化 OpenTelemetry 追踪
func InitTracing(cfg config.TracingConfig) error {
	// 创建 Jaeger exporter
	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.JaegerEndpoint)))
	if err != nil {
		return err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = ServiceName
	}
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
		),
	)
	if err != nil {
		return err
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	tracerProvider = tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
		tracesdk.WithSampler(tracesdk.ParentBased(tracesdk.TraceIDRatioBased(ratio))),
	)

	// 设置全局 TracerProvider
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return nil
}

// TracingMiddleware 追踪中间件
func TracingMiddleware() gin.HandlerFunc {
	return otelgin.Middleware(ServiceName)
}

// SpanAttributesMiddleware 给当前 span 打上任务 ID、评审批次和操作人
// 必须挂在 TracingMiddleware 之后
func SpanAttributesMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := c.Param("id"); id != "" {
			span.SetAttributes(attrTaskID.String(id))
		}
		if key := c.Param("key"); key != "" {
			span.SetAttributes(attrReviewKey.String(key))
		}
		if requestID := c.GetString("request_id"); requestID != "" {
			span.SetAttributes(attrRequestID.String(requestID))
		}

		c.Next()

		// 认证在路由组内完成,处理结束后才能拿到身份
		if identity, ok := auth.CurrentIdentity(c); ok {
			span.SetAttributes(attrUserID.String(identity.ID), attrUserRole.String(string(identity.Role)))
		}
	}
}

// ShutdownTracing 关闭追踪
func ShutdownTracing(ctx context.Context) error {
	if tracerProvider != nil {
		return tracerProvider.Shutdown(ctx)
	}
	return nil
}
