package api

import (
	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/service"
)

// ReviewController 审批控制器,路由组限制为经理访问
type ReviewController struct {
	reviewService service.ReviewService
	statsService  service.StatisticsService
}

// NewReviewController 创建审批控制器
func NewReviewController(reviewService service.ReviewService, statsService service.StatisticsService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
		statsService:  statsService,
	}
}

// List 待审批批次
// @Summary      待审批批次
// @Description  按员工和周分组的待审批任务,附带当前经理已记录的决定
// @Tags         审批
// @Produce      json
// @Success      200  {object}  Response{data=[]service.ReviewBatchView}
// @Failure      403  {object}  ErrorResponse
// @Router       /reviews [get]
// @Security     BearerAuth
func (c *ReviewController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	batches, err := c.reviewService.ListBatches(ctx.Request.Context(), actor)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, batches)
}

// Get 审批批次详情
// @Summary      审批批次详情
// @Tags         审批
// @Produce      json
// @Param        key path string true "批次键,格式 员工ID@YYYY-Www"
// @Success      200  {object}  Response{data=service.ReviewBatchView}
// @Failure      404  {object}  ErrorResponse
// @Router       /reviews/{key} [get]
// @Security     BearerAuth
func (c *ReviewController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	view, err := c.reviewService.GetBatch(ctx.Request.Context(), actor, ctx.Param("key"))
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, view)
}

// SetDecision 记录单个任务的决定
// @Summary      记录单个任务的决定
// @Description  决定只保存在经理的审批面板中,提交批次时才生效
// @Tags         审批
// @Accept       json
// @Produce      json
// @Param        key     path string                  true "批次键"
// @Param        taskId  path string                  true "任务 ID"
// @Param        request body service.DecisionRequest true "决定"
// @Success      200  {object}  Response{data=service.ReviewBatchView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /reviews/{key}/decisions/{taskId} [put]
// @Security     BearerAuth
func (c *ReviewController) SetDecision(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	view, err := c.reviewService.SetDecision(ctx.Request.Context(), actor, ctx.Param("key"), ctx.Param("taskId"), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, view)
}

// ApplyAll 对整个批次记录同一个决定
// @Summary      对整个批次记录同一个决定
// @Tags         审批
// @Accept       json
// @Produce      json
// @Param        key     path string                  true "批次键"
// @Param        request body service.DecisionRequest true "决定"
// @Success      200  {object}  Response{data=service.ReviewBatchView}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /reviews/{key}/decisions [post]
// @Security     BearerAuth
func (c *ReviewController) ApplyAll(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.DecisionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	view, err := c.reviewService.ApplyAll(ctx.Request.Context(), actor, ctx.Param("key"), &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, view)
}

// Submit 提交审批批次
// @Summary      提交审批批次
// @Description  所有任务都有决定后,按决定更新任务状态并通知员工
// @Tags         审批
// @Produce      json
// @Param        key path string true "批次键"
// @Success      200  {object}  Response{data=service.ReviewResult}
// @Failure      404  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /reviews/{key}/submit [post]
// @Security     BearerAuth
func (c *ReviewController) Submit(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	result, err := c.reviewService.SubmitBatch(ctx.Request.Context(), actor, ctx.Param("key"))
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, result)
}

// ReviewStatsResponse 审批统计
type ReviewStatsResponse struct {
	Overall    *service.ReviewStatistics     `json:"overall"`
	ByReviewer []*service.ReviewerStatistics `json:"byReviewer"`
}

// Stats 审批统计
// @Summary      审批统计
// @Description  审批总数、通过率以及每个审批人的统计
// @Tags         审批
// @Produce      json
// @Success      200  {object}  Response{data=ReviewStatsResponse}
// @Failure      403  {object}  ErrorResponse
// @Router       /reviews/stats [get]
// @Security     BearerAuth
func (c *ReviewController) Stats(ctx *gin.Context) {
	overall, err := c.statsService.GetReviewStatistics(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	byReviewer, err := c.statsService.GetReviewStatisticsByReviewer(ctx.Request.Context())
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, ReviewStatsResponse{Overall: overall, ByReviewer: byReviewer})
}
