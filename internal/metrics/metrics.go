package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务创建数
	tasksCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
		[]string{"kind"}, // draft, submitted
	)

	batchesSubmittedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "batches_submitted_total",
			Help: "Total number of task batches submitted for approval",
		},
	)

	// 审批决定数
	reviewDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "review_decisions_total",
			Help: "Total number of manager review decisions applied",
		},
		[]string{"decision"}, // approve, reject
	)

	transitionsRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_rejected_total",
			Help: "Total number of status transitions refused by the transition table",
		},
		[]string{"role"},
	)

	websocketConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of connected real-time clients",
		},
	)

	// 数据库连接数
	databaseConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_active",
			Help: "Number of active database connections",
		},
	)

	databaseConnectionsIdle = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	databaseConnectionsMax = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "database_connections_max",
			Help: "Maximum number of database connections",
		},
	)

	// 任务状态分布
	tasksByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_status",
			Help: "Number of tasks by status",
		},
		[]string{"status"},
	)
)

var (
	once sync.Once
)

func init() {
	// 注册指标
	prometheus.MustRegister(apiRequestsTotal)
	prometheus.MustRegister(apiRequestDuration)
	prometheus.MustRegister(tasksCreatedTotal)
	prometheus.MustRegister(batchesSubmittedTotal)
	prometheus.MustRegister(reviewDecisionsTotal)
	prometheus.MustRegister(transitionsRejectedTotal)
	prometheus.MustRegister(websocketConnections)
	prometheus.MustRegister(databaseConnectionsActive)
	prometheus.MustRegister(databaseConnectionsIdle)
	prometheus.MustRegister(databaseConnectionsMax)
	prometheus.MustRegister(tasksByStatus)

	// 注册 Go 运行时指标（只注册一次）
	once.Do(func() {
		// 默认注册表可能已包含运行时指标,重复注册的错误忽略
		_ = prometheus.Register(prometheus.NewGoCollector())
		_ = prometheus.Register(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	})
}

// Handler 返回 Prometheus 指标处理器
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest 记录 API 请求
func RecordAPIRequest(method, path string, status int, duration float64) {
	apiRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated(draft bool, n int) {
	kind := "submitted"
	if draft {
		kind = "draft"
	}
	tasksCreatedTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordBatchSubmitted 记录批次提交
func RecordBatchSubmitted() {
	batchesSubmittedTotal.Inc()
}

// RecordReviewDecision 记录审批决定
func RecordReviewDecision(decision string) {
	reviewDecisionsTotal.WithLabelValues(decision).Inc()
}

// RecordTransitionRejected 记录被拒绝的状态流转
func RecordTransitionRejected(role string) {
	transitionsRejectedTotal.WithLabelValues(role).Inc()
}

// SetWebsocketConnections 更新实时连接数
func SetWebsocketConnections(n int) {
	websocketConnections.Set(float64(n))
}

// UpdateDatabaseConnections 更新数据库连接数指标
func UpdateDatabaseConnections(db *gorm.DB) error {
	if db == nil {
		return fmt.Errorf("database connection is nil")
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	stats := sqlDB.Stats()
	databaseConnectionsActive.Set(float64(stats.InUse))
	databaseConnectionsIdle.Set(float64(stats.Idle))
	databaseConnectionsMax.Set(float64(stats.MaxOpenConnections))

	return nil
}

// UpdateTasksByStatus 更新任务状态分布指标
func UpdateTasksByStatus(counts map[string]int) {
	tasksByStatus.Reset()
	for status, n := range counts {
		tasksByStatus.WithLabelValues(status).Set(float64(n))
	}
}
