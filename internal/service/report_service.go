package service

import (
	"context"

	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/report"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/week"
)

// ReportService 统计报表服务
type ReportService interface {
	Summary(ctx context.Context, actor auth.Identity, weekFilter string) (*report.Summary, error)
	StatusCounts(ctx context.Context) (map[string]int, error)
}

type reportService struct {
	tasks TaskService
	calc  *week.Calculator
	store task.Store
}

// NewReportService 创建报表服务
func NewReportService(tasks TaskService, store task.Store, calc *week.Calculator) ReportService {
	return &reportService{tasks: tasks, store: store, calc: calc}
}

// Summary 汇总调用者可见的任务,员工只统计自己的任务
func (s *reportService) Summary(ctx context.Context, actor auth.Identity, weekFilter string) (*report.Summary, error) {
	tasks, err := s.tasks.VisibleTasks(ctx, actor)
	if err != nil {
		return nil, err
	}
	if weekFilter != "" {
		w, err := parseWeek(weekFilter)
		if err != nil {
			return nil, err
		}
		filtered := tasks[:0:0]
		for _, t := range tasks {
			if t.WeekSubmittedFor == w {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
	}
	summary := report.Summarize(tasks, s.calc.Now())
	return &summary, nil
}

// StatusCounts 全部任务按状态计数,供指标采集使用
func (s *reportService) StatusCounts(ctx context.Context) (map[string]int, error) {
	tasks, err := s.store.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(task.AllStatuses))
	for _, st := range task.AllStatuses {
		counts[string(st)] = 0
	}
	for _, t := range tasks {
		counts[string(t.Status)]++
	}
	return counts, nil
}
