/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/api"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/container"
	"github.com/mautops/taskflow-gin/internal/metrics"
	"github.com/mautops/taskflow-gin/internal/seed"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the TaskFlow API server.
The server will listen on the configured host and port and provide
REST and WebSocket interfaces for weekly task submission and review.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		cfg, configPath, err := loadConfig(cmd)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if cmd.Flags().Changed("host") {
			cfg.Server.Host, _ = cmd.Flags().GetString("host")
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if config.IsProduction(cfg) {
			gin.SetMode(gin.ReleaseMode)
		}

		// 2. 初始化日志
		logger, err := api.NewLoggerFromConfig(&cfg.Log)
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		api.SetLogger(logger)

		// 3. 初始化链路追踪
		if cfg.Tracing.Enabled {
			if err := api.InitTracing(cfg.Tracing); err != nil {
				return fmt.Errorf("failed to init tracing: %w", err)
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := api.ShutdownTracing(ctx); err != nil {
					logger.WithError(err).Warn("Failed to flush traces")
				}
			}()
		}

		// 4. 初始化容器
		ctr, err := container.NewContainer(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer func() {
			if err := ctr.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close container")
			}
		}()
		go ctr.Hub().Run()

		// 5. 导入初始数据
		if cfg.Seed.File != "" {
			if err := applySeed(cmd.Context(), ctr, cfg.Seed.File); err != nil {
				return err
			}
		}

		// 6. 启动指标收集和周期维护
		collector := metrics.NewCollector(ctr.DB(), 30*time.Second,
			metrics.WithLogger(logger),
			metrics.WithStatusSource(ctr.ReportService().StatusCounts),
			metrics.WithJob(func(ctx context.Context) error {
				if cfg.Events.Retention <= 0 {
					return nil
				}
				_, err := ctr.Events().Prune(ctx, cfg.Events.Retention)
				return err
			}),
			metrics.WithJob(func(context.Context) error {
				ctr.Tokens().Revocations().Prune()
				return nil
			}),
		)
		collector.Start()
		defer collector.Stop()

		// 7. SLA 告警
		alerts := api.NewSLAAlertManager()
		alerts.OnAlert(func(operation string, violations []api.SLAViolation) {
			logger.WithFields(logrus.Fields{
				"operation":  operation,
				"violations": len(violations),
			}).Warn("SLA threshold exceeded")
		})

		// 8. 监听配置变更
		if configPath != "" {
			watcher := config.NewConfigWatcher(cfg, configPath, logger)
			watcher.OnConfigChange(func(next *config.Config) {
				ctr.Calculator().SetMaxWeeksAhead(next.Week.MaxWeeksAhead)
				ctr.Calculator().SetSubmissionCutoff(next.Week.SubmissionCutoff)
				if level, err := logrus.ParseLevel(next.Log.Level); err == nil {
					logger.SetLevel(level)
				}
				logger.WithFields(logrus.Fields{
					"max_weeks_ahead":   next.Week.MaxWeeksAhead,
					"submission_cutoff": next.Week.SubmissionCutoff.String(),
					"log_level":         next.Log.Level,
				}).Info("Configuration reloaded")
			})
			if err := watcher.Start(); err != nil {
				logger.WithError(err).Warn("Config hot reload disabled")
			} else {
				defer watcher.Stop()
			}
		}

		// 9. 设置路由
		router := api.SetupRoutes(api.RouterDeps{
			Config:            cfg,
			DB:                ctr.DB(),
			Tokens:            ctr.Tokens(),
			Hub:               ctr.Hub(),
			Calculator:        ctr.Calculator(),
			Events:            ctr.Events(),
			SLAAlerts:         alerts,
			TaskService:       ctr.TaskService(),
			HistoryService:    ctr.HistoryService(),
			ReviewService:     ctr.ReviewService(),
			ReportService:     ctr.ReportService(),
			AuthService:       ctr.AuthService(),
			AuditLogService:   ctr.AuditLogService(),
			StatisticsService: ctr.StatisticsService(),
		})

		// 10. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.WithField("addr", addr).Info("Server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-errCh:
			return fmt.Errorf("failed to start server: %w", err)
		}

		logger.Info("Shutting down server...")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		logger.Info("Server exited")
		return nil
	},
}

// applySeed 从文件导入初始用户和任务
func applySeed(ctx context.Context, ctr *container.Container, path string) error {
	f, err := seed.Load(path)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	_, err = seed.NewSeeder(ctr.AuthService(), ctr.TaskService(), ctr.Logger()).Apply(ctx, f)
	return err
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
