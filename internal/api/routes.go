package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	_ "github.com/mautops/taskflow-gin/docs" // 注册 swagger 文档
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/metrics"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/websocket"
	"github.com/mautops/taskflow-gin/internal/week"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// RouterDeps 路由依赖
type RouterDeps struct {
	Config     *config.Config
	DB         *gorm.DB
	Tokens     *auth.TokenManager
	Hub        *websocket.Hub
	Calculator *week.Calculator
	Events     EventSource
	SLAAlerts  *SLAAlertManager

	TaskService       service.TaskService
	HistoryService    service.HistoryService
	ReviewService     service.ReviewService
	ReportService     service.ReportService
	AuthService       service.AuthService
	AuditLogService   service.AuditLogService
	StatisticsService service.StatisticsService
}

// SetupRoutes 配置路由
func SetupRoutes(deps RouterDeps) *gin.Engine {
	cfg := deps.Config
	if cfg == nil {
		cfg = config.Default()
	}

	router := gin.New()

	// 中间件
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(TracingMiddleware(), SpanAttributesMiddleware())
	}
	router.Use(SecurityHeadersMiddleware(config.IsProduction(cfg)))
	router.Use(CORSMiddleware(cfg.CORS))
	router.Use(I18nMiddleware())
	router.Use(ErrorHandlerMiddleware())
	router.Use(SLAMonitorMiddleware(DefaultSLAConfig(), deps.SLAAlerts))
	if cfg.RateLimit.Enabled {
		router.Use(NewClientRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst).Middleware())
	}

	// 健康检查
	var clients func() int
	if deps.Hub != nil {
		clients = deps.Hub.GetClientCount
	}
	healthController := NewHealthController(deps.DB, clients)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// Swagger UI 路由
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler,
		ginSwagger.URL("/swagger/doc.json"),
	))

	requireAuth := auth.Middleware(deps.Tokens)
	managerOnly := auth.RequireRole(task.RoleManager)

	// WebSocket 路由,token 通过查询参数传递
	if deps.Hub != nil {
		upgrader := websocket.NewUpgrader(cfg.CORS.AllowedOrigins)
		router.GET("/ws", requireAuth, websocket.WebSocketHandler(deps.Hub, deps.TaskService, upgrader))
	}

	authController := NewAuthController(deps.AuthService)
	weekController := NewWeekController(deps.Calculator)
	taskController := NewTaskController(deps.TaskService, deps.ReviewService)
	reviewController := NewReviewController(deps.ReviewService, deps.StatisticsService)
	reportController := NewReportController(deps.ReportService, deps.HistoryService)
	auditController := NewAuditController(deps.AuditLogService)

	// API v1 路由组
	v1 := router.Group("/api/v1", VersionMiddleware())
	{
		v1.GET("/version", VersionHandler)
		v1.GET("/statuses", Statuses)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authController.Register)
			authGroup.POST("/login", authController.Login)
			authGroup.POST("/logout", requireAuth, authController.Logout)
			authGroup.GET("/me", requireAuth, authController.Me)
		}

		secured := v1.Group("", requireAuth)
		{
			secured.GET("/weeks", weekController.Weeks)

			// 任务管理路由
			tasks := secured.Group("/tasks")
			{
				tasks.POST("", taskController.Create)
				tasks.GET("", taskController.List)
				tasks.POST("/bulk", taskController.CreateBulk)
				tasks.POST("/drafts/bulk", taskController.SaveBulkDrafts)
				tasks.POST("/submit", taskController.SubmitBatch)
				tasks.GET("/:id", taskController.Get)
				tasks.PATCH("/:id", taskController.Update)
				tasks.DELETE("/:id", taskController.Delete)
				tasks.GET("/:id/transitions", taskController.Transitions)
				tasks.GET("/:id/history", taskController.History)
				tasks.GET("/:id/reviews", taskController.Reviews)
				tasks.GET("/:id/comments", taskController.ListComments)
				tasks.POST("/:id/comments", taskController.AddComment)
			}
			secured.GET("/batches", taskController.Batches)

			// 审批路由,仅经理
			reviews := secured.Group("/reviews", managerOnly)
			{
				reviews.GET("", reviewController.List)
				reviews.GET("/stats", reviewController.Stats)
				reviews.GET("/:key", reviewController.Get)
				reviews.PUT("/:key/decisions/:taskId", reviewController.SetDecision)
				reviews.POST("/:key/decisions", reviewController.ApplyAll)
				reviews.POST("/:key/submit", reviewController.Submit)
			}

			secured.GET("/reports/summary", reportController.Summary)
			secured.GET("/reports/transitions", managerOnly, reportController.Transitions)

			if deps.Events != nil {
				secured.GET("/events", NewEventController(deps.Events).Since)
			}

			secured.GET("/users", managerOnly, authController.Users)
			secured.GET("/audit-logs", managerOnly, auditController.List)
		}
	}

	// 自定义 NoRoute 处理器,返回 JSON 格式的 404
	// 必须在所有业务路由注册之后设置
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found", "the requested route does not exist")
	})

	return router
}
