package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/service"
)

// ReportController 报表控制器
type ReportController struct {
	reportService  service.ReportService
	historyService service.HistoryService
}

// NewReportController 创建报表控制器
func NewReportController(reportService service.ReportService, historyService service.HistoryService) *ReportController {
	return &ReportController{reportService: reportService, historyService: historyService}
}

// Summary 任务汇总
// @Summary      任务汇总
// @Description  员工看到自己的任务汇总,经理看到全体汇总和按员工的分组
// @Tags         报表
// @Produce      json
// @Param        week query string false "只统计该周,如 2025-W10"
// @Success      200  {object}  Response{data=report.Summary}
// @Failure      400  {object}  ErrorResponse
// @Router       /reports/summary [get]
// @Security     BearerAuth
func (c *ReportController) Summary(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	summary, err := c.reportService.Summary(ctx.Request.Context(), actor, ctx.Query("week"))
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, summary)
}

// Transitions 状态流转统计
// @Summary      状态流转统计
// @Description  统计任务进入各状态的次数,仅经理可用
// @Tags         报表
// @Produce      json
// @Param        week query string false "只统计该周,如 2025-W10"
// @Success      200  {object}  Response{data=map[string]int64}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /reports/transitions [get]
// @Security     BearerAuth
func (c *ReportController) Transitions(ctx *gin.Context) {
	counts, err := c.historyService.Transitions(ctx.Request.Context(), ctx.Query("week"))
	if err != nil {
		handleError(ctx, err)
		return
	}
	Success(ctx, counts)
}
