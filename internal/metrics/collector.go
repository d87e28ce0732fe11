package metrics

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatusSource 返回当前各状态的任务数
type StatusSource func(ctx context.Context) (map[string]int, error)

// Job 随采集周期执行的维护任务
type Job func(ctx context.Context) error

// Collector 指标收集器
type Collector struct {
	db       *gorm.DB
	interval time.Duration
	statuses StatusSource
	jobs     []Job
	logger   *logrus.Logger
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// CollectorOption 收集器配置项
type CollectorOption func(*Collector)

// WithStatusSource 设置任务状态数据源
func WithStatusSource(src StatusSource) CollectorOption {
	return func(c *Collector) { c.statuses = src }
}

// WithJob 追加周期维护任务
func WithJob(job Job) CollectorOption {
	return func(c *Collector) { c.jobs = append(c.jobs, job) }
}

// WithLogger 设置日志
func WithLogger(logger *logrus.Logger) CollectorOption {
	return func(c *Collector) { c.logger = logger }
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration, opts ...CollectorOption) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		db:       db,
		interval: interval,
		logger:   logrus.StandardLogger(),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	c.CollectOnce(c.ctx)
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.CollectOnce(c.ctx)
		}
	}
}

// CollectOnce 执行一次采集和维护
func (c *Collector) CollectOnce(ctx context.Context) {
	if c.db != nil {
		if err := UpdateDatabaseConnections(c.db); err != nil {
			c.logger.WithError(err).Debug("Failed to collect database stats")
		}
	}
	if c.statuses != nil {
		counts, err := c.statuses(ctx)
		if err != nil {
			c.logger.WithError(err).Warn("Failed to collect task status counts")
		} else {
			UpdateTasksByStatus(counts)
		}
	}
	for _, job := range c.jobs {
		if err := job(ctx); err != nil {
			c.logger.WithError(err).Warn("Collector job failed")
		}
	}
}
