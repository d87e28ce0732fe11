package container

import (
	"fmt"
	"time"

	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/database"
	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/websocket"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/mautops/taskflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// eventWorkers 实时事件推送 worker 数
const eventWorkers = 4

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、存储、服务、实时通道等
type Container struct {
	db     *gorm.DB
	logger *logrus.Logger
	calc   *week.Calculator
	store  task.Store
	tokens *auth.TokenManager
	hub    *websocket.Hub
	async  *event.AsyncPublisher
	events *event.PersistingPublisher

	auditLogService   service.AuditLogService
	historyService    service.HistoryService
	taskService       service.TaskService
	reviewService     service.ReviewService
	reportService     service.ReportService
	authService       service.AuthService
	statisticsService service.StatisticsService
}

// Option 容器配置项
type Option func(*options)

type options struct {
	clock week.Clock
}

// WithClock 指定时钟,测试和演示时固定当前时间
func WithClock(clock week.Clock) Option {
	return func(o *options) { o.clock = clock }
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config, logger *logrus.Logger, opts ...Option) (*Container, error) {
	o := &options{clock: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	// 1. 初始化数据库（带重试机制）
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 2. 初始化周计算器
	loc, err := cfg.Week.Location()
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	calc := week.NewCalculator(
		week.WithClock(o.clock),
		week.WithLocation(loc),
		week.WithMaxWeeksAhead(cfg.Week.MaxWeeksAhead),
		week.WithSubmissionCutoff(cfg.Week.SubmissionCutoff),
	)

	// 3. 初始化任务存储
	var store task.Store
	switch cfg.Store.Backend {
	case "database":
		store = task.NewDBStore(repository.NewTaskRepository(db), o.clock)
	default:
		store = task.NewMemoryStore(task.WithStoreClock(o.clock))
	}

	// 4. 初始化认证和实时通道
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL, cfg.Auth.RememberTTL, o.clock)
	hub := websocket.NewHub(logger)
	async := event.NewAsyncPublisher(hub, eventWorkers, 1000, logger)
	events := event.NewPersistingPublisher(repository.NewEventRepository(db), async)

	// 5. 初始化服务
	svcCfg := service.TaskServiceConfig{RequireRejectComment: cfg.Review.RequireRejectComment}
	auditLogService := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	historyService := service.NewHistoryService(repository.NewStateHistoryRepository(db))
	taskService := service.NewTaskService(store, calc, historyService, repository.NewCommentRepository(db), auditLogService, events, logger, svcCfg)
	reviewService := service.NewReviewService(taskService, workflow.NewBoards(), repository.NewReviewRecordRepository(db), auditLogService, events, logger, svcCfg)

	return &Container{
		db:                db,
		logger:            logger,
		calc:              calc,
		store:             store,
		tokens:            tokens,
		hub:               hub,
		async:             async,
		events:            events,
		auditLogService:   auditLogService,
		historyService:    historyService,
		taskService:       taskService,
		reviewService:     reviewService,
		reportService:     service.NewReportService(taskService, store, calc),
		authService:       service.NewAuthService(repository.NewUserRepository(db), tokens, auditLogService, cfg.Auth.BcryptCost),
		statisticsService: service.NewStatisticsService(db),
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB { return c.db }

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger { return c.logger }

// Calculator 获取周计算器
func (c *Container) Calculator() *week.Calculator { return c.calc }

// Store 获取任务存储
func (c *Container) Store() task.Store { return c.store }

// Tokens 获取 token 管理器
func (c *Container) Tokens() *auth.TokenManager { return c.tokens }

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub { return c.hub }

// Events 获取持久化事件发布者
func (c *Container) Events() *event.PersistingPublisher { return c.events }

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService { return c.auditLogService }

// HistoryService 获取状态历史服务
func (c *Container) HistoryService() service.HistoryService { return c.historyService }

// TaskService 获取任务服务
func (c *Container) TaskService() service.TaskService { return c.taskService }

// ReviewService 获取审批服务
func (c *Container) ReviewService() service.ReviewService { return c.reviewService }

// ReportService 获取报表服务
func (c *Container) ReportService() service.ReportService { return c.reportService }

// AuthService 获取认证服务
func (c *Container) AuthService() service.AuthService { return c.authService }

// StatisticsService 获取审批统计服务
func (c *Container) StatisticsService() service.StatisticsService { return c.statisticsService }

// Close 关闭容器,清理资源
// Hub 先停止,队列中剩余的事件不再推送
func (c *Container) Close() error {
	if c.hub != nil {
		c.hub.Stop()
	}
	if c.async != nil {
		c.async.Close()
	}
	return database.Close(c.db)
}
