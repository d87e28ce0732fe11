package api

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// SLAConfig SLA 配置
type SLAConfig struct {
	TaskCreationMaxTime time.Duration // 任务创建最大响应时间
	TaskQueryMaxTime    time.Duration // 任务查询最大响应时间
	BatchSubmitMaxTime  time.Duration // 批量提交最大响应时间
	ReviewSubmitMaxTime time.Duration // 审批批次提交最大响应时间
	ReportMaxTime       time.Duration // 报表最大响应时间
}

// DefaultSLAConfig 返回默认 SLA 配置
func DefaultSLAConfig() *SLAConfig {
	return &SLAConfig{
		TaskCreationMaxTime: 1 * time.Second,
		TaskQueryMaxTime:    500 * time.Millisecond,
		BatchSubmitMaxTime:  2 * time.Second,
		ReviewSubmitMaxTime: 2 * time.Second,
		ReportMaxTime:       time.Second,
	}
}

// getOperation 从路由模板和方法获取操作类型
func getOperation(c *gin.Context) string {
	method := c.Request.Method
	path := c.FullPath()
	if path == "" {
		path = c.Request.URL.Path
	}

	switch {
	case path == "/api/v1/tasks" && method == http.MethodPost,
		path == "/api/v1/tasks/bulk" && method == http.MethodPost,
		path == "/api/v1/tasks/drafts/bulk" && method == http.MethodPost:
		return "task_creation"
	case path == "/api/v1/tasks" && method == http.MethodGet:
		return "task_query"
	case path == "/api/v1/tasks/submit" && method == http.MethodPost:
		return "batch_submit"
	case strings.HasPrefix(path, "/api/v1/reviews/") && strings.HasSuffix(path, "/submit"):
		return "review_submit"
	case strings.HasPrefix(path, "/api/v1/reports"):
		return "report"
	}

	return "unknown"
}

// CheckSLA 检查 SLA
func CheckSLA(operation string, duration time.Duration, config *SLAConfig) bool {
	expected := getExpectedDuration(operation, config)
	if expected == 0 {
		return true // 未知操作不检查 SLA
	}
	return duration <= expected
}

// getExpectedDuration 获取期望的响应时间
func getExpectedDuration(operation string, config *SLAConfig) time.Duration {
	switch operation {
	case "task_creation":
		return config.TaskCreationMaxTime
	case "task_query":
		return config.TaskQueryMaxTime
	case "batch_submit":
		return config.BatchSubmitMaxTime
	case "review_submit":
		return config.ReviewSubmitMaxTime
	case "report":
		return config.ReportMaxTime
	default:
		return 0
	}
}

// SLAViolation SLA 违反记录
type SLAViolation struct {
	Operation string
	Duration  time.Duration
	Expected  time.Duration
	Timestamp time.Time
	Path      string
	Method    string
}

// SLAAlertManager SLA 告警管理器
type SLAAlertManager struct {
	violations     map[string][]SLAViolation
	thresholds     map[string]int
	alertCallbacks []func(string, []SLAViolation)
	mu             sync.RWMutex
}

// maxViolationsKept 每个操作保留的违反记录数
const maxViolationsKept = 100

// NewSLAAlertManager 创建 SLA 告警管理器
func NewSLAAlertManager() *SLAAlertManager {
	return &SLAAlertManager{
		violations:     make(map[string][]SLAViolation),
		thresholds:     make(map[string]int),
		alertCallbacks: make([]func(string, []SLAViolation), 0),
	}
}

// RecordViolation 记录 SLA 违反
func (m *SLAAlertManager) RecordViolation(operation string, violation SLAViolation) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.violations[operation] = append(m.violations[operation], violation)
	if n := len(m.violations[operation]); n > maxViolationsKept {
		m.violations[operation] = m.violations[operation][n-maxViolationsKept:]
	}

	// 检查是否达到告警阈值
	threshold := m.thresholds[operation]
	if threshold > 0 && len(m.violations[operation]) >= threshold {
		// 触发告警
		m.triggerAlert(operation)
	}
}

// SetAlertThreshold 设置告警阈值
func (m *SLAAlertManager) SetAlertThreshold(operation string, threshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.thresholds[operation] = threshold
}

// OnAlert 注册告警回调
func (m *SLAAlertManager) OnAlert(callback func(string, []SLAViolation)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alertCallbacks = append(m.alertCallbacks, callback)
}

// GetViolations 获取违反记录
func (m *SLAAlertManager) GetViolations(operation string) []SLAViolation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.violations[operation])
}

// triggerAlert 触发告警
func (m *SLAAlertManager) triggerAlert(operation string) {
	violations := m.violations[operation]
	for _, callback := range m.alertCallbacks {
		callback(operation, violations)
	}
}

// SLAMonitorMiddleware SLA 监控中间件,alertManager 为空时只写响应头
func SLAMonitorMiddleware(config *SLAConfig, alertManager *SLAAlertManager) gin.HandlerFunc {
	if config == nil {
		config = DefaultSLAConfig()
	}

	return func(c *gin.Context) {
		start := time.Now()
		operation := getOperation(c)

		c.Next()

		duration := time.Since(start)
		if !CheckSLA(operation, duration, config) {
			// 记录 SLA 违反
			violation := SLAViolation{
				Operation: operation,
				Duration:  duration,
				Expected:  getExpectedDuration(operation, config),
				Timestamp: time.Now(),
				Path:      c.Request.URL.Path,
				Method:    c.Request.Method,
			}

			if alertManager != nil {
				alertManager.RecordViolation(operation, violation)
			}

			// 设置响应头
			c.Header("X-SLA-Violation", "true")
			c.Header("X-SLA-Operation", operation)
			c.Header("X-SLA-Duration", duration.String())
			c.Header("X-SLA-Expected", violation.Expected.String())
		}
	}
}
