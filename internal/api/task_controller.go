package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/utils"
)

// TaskController 任务控制器
type TaskController struct {
	taskService   service.TaskService
	reviewService service.ReviewService
}

// NewTaskController 创建任务控制器
func NewTaskController(taskService service.TaskService, reviewService service.ReviewService) *TaskController {
	return &TaskController{
		taskService:   taskService,
		reviewService: reviewService,
	}
}

// validateTaskID 验证任务 ID 并返回错误响应（如果无效）
func (c *TaskController) validateTaskID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateTaskID(id); err != nil {
		handleError(ctx, err)
		return false
	}
	return true
}

// Create 创建任务
// @Summary      创建任务
// @Description  创建任务或草稿;员工只能提交到开放的周,isDraft 为 false 时直接进入待审批
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        request body service.CreateTaskRequest true "任务信息"
// @Success      201  {object}  Response{data=task.Task}
// @Failure      400  {object}  ErrorResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks [post]
// @Security     BearerAuth
func (c *TaskController) Create(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.CreateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	created, err := c.taskService.Create(ctx.Request.Context(), actor, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Created(ctx, created)
}

// List 任务列表
// @Summary      任务列表
// @Description  员工只能看到自己的任务,经理可以看到全部任务
// @Tags         任务管理
// @Produce      json
// @Param        status    query string false "状态"
// @Param        week      query string false "目标周,如 2025-W10"
// @Param        assignee  query string false "执行人 ID"
// @Param        batch     query string false "批次 ID"
// @Param        is_draft  query bool   false "是否草稿"
// @Param        page      query int    false "页码" default(1)
// @Param        page_size query int    false "每页数量" default(20)
// @Success      200  {object}  PaginatedResponse{data=[]task.Task}
// @Failure      400  {object}  ErrorResponse
// @Router       /tasks [get]
// @Security     BearerAuth
func (c *TaskController) List(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var filter service.ListTasksFilter
	if err := ctx.ShouldBindQuery(&filter); err != nil {
		badRequest(ctx, err)
		return
	}

	page, err := c.taskService.List(ctx.Request.Context(), actor, &filter)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Paginated(ctx, page.Items, NewPaginationInfo(page.Page, page.PageSize, int64(page.Total)))
}

// Get 获取任务
// @Summary      获取任务详情
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response{data=task.Task}
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [get]
// @Security     BearerAuth
func (c *TaskController) Get(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	t, err := c.taskService.Get(ctx.Request.Context(), actor, id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, t)
}

// Update 更新任务
// @Summary      更新任务
// @Description  部分更新任务字段或状态。状态变更按角色校验;携带 expectedVersion 时版本不一致返回 409 和当前任务
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id      path string                    true "任务 ID"
// @Param        request body service.UpdateTaskRequest true "更新字段"
// @Success      200  {object}  Response{data=task.Task}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      409  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/{id} [patch]
// @Security     BearerAuth
func (c *TaskController) Update(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	var req service.UpdateTaskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	updated, err := c.taskService.Update(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, updated)
}

// Delete 删除任务
// @Summary      删除任务
// @Description  员工只能在提交窗口开放时删除自己的任务
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response
// @Failure      403  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id} [delete]
// @Security     BearerAuth
func (c *TaskController) Delete(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	if err := c.taskService.Delete(ctx.Request.Context(), actor, id); err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, nil)
}

// Transitions 可用的状态变更
// @Summary      可用的状态变更
// @Description  返回当前用户可以把任务移动到的状态
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response{data=[]StatusInfo}
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/transitions [get]
// @Security     BearerAuth
func (c *TaskController) Transitions(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	statuses, err := c.taskService.Transitions(ctx.Request.Context(), actor, id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, statusInfos(ctx, statuses))
}

// History 状态历史
// @Summary      状态历史
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response{data=[]service.StateHistory}
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/history [get]
// @Security     BearerAuth
func (c *TaskController) History(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	history, err := c.taskService.History(ctx.Request.Context(), actor, id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, history)
}

// Reviews 审批记录
// @Summary      审批记录
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response{data=[]service.ReviewRecord}
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/reviews [get]
// @Security     BearerAuth
func (c *TaskController) Reviews(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	records, err := c.reviewService.Records(ctx.Request.Context(), actor, id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, records)
}

// ListComments 评论列表
// @Summary      评论列表
// @Tags         任务管理
// @Produce      json
// @Param        id path string true "任务 ID"
// @Success      200  {object}  Response{data=[]service.Comment}
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/comments [get]
// @Security     BearerAuth
func (c *TaskController) ListComments(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	comments, err := c.taskService.ListComments(ctx.Request.Context(), actor, id)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, comments)
}

// AddComment 添加评论
// @Summary      添加评论
// @Tags         任务管理
// @Accept       json
// @Produce      json
// @Param        id      path string                    true "任务 ID"
// @Param        request body service.AddCommentRequest true "评论内容"
// @Success      201  {object}  Response{data=service.Comment}
// @Failure      400  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Router       /tasks/{id}/comments [post]
// @Security     BearerAuth
func (c *TaskController) AddComment(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}
	id := ctx.Param("id")
	if !c.validateTaskID(ctx, id) {
		return
	}

	var req service.AddCommentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	comment, err := c.taskService.AddComment(ctx.Request.Context(), actor, id, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Created(ctx, comment)
}

// CreateBulk 批量创建并提交
// @Summary      批量创建并提交
// @Description  为同一周创建多个任务并作为一个批次提交审批
// @Tags         批量操作
// @Accept       json
// @Produce      json
// @Param        request body service.BulkCreateRequest true "任务列表"
// @Success      201  {object}  Response{data=[]task.Task}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/bulk [post]
// @Security     BearerAuth
func (c *TaskController) CreateBulk(ctx *gin.Context) {
	c.bulk(ctx, c.taskService.CreateBulk)
}

// SaveBulkDrafts 批量保存草稿
// @Summary      批量保存草稿
// @Tags         批量操作
// @Accept       json
// @Produce      json
// @Param        request body service.BulkCreateRequest true "草稿列表"
// @Success      201  {object}  Response{data=[]task.Task}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Router       /tasks/drafts/bulk [post]
// @Security     BearerAuth
func (c *TaskController) SaveBulkDrafts(ctx *gin.Context) {
	c.bulk(ctx, c.taskService.SaveBulkDrafts)
}

func (c *TaskController) bulk(ctx *gin.Context, create func(context.Context, auth.Identity, *service.BulkCreateRequest) ([]*task.Task, error)) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.BulkCreateRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	tasks, err := create(ctx.Request.Context(), actor, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Created(ctx, tasks)
}

// SubmitBatch 提交草稿批次
// @Summary      提交草稿批次
// @Description  将选中的草稿一起提交审批,所有任务共享同一个 batchId 和提交时间
// @Tags         批量操作
// @Accept       json
// @Produce      json
// @Param        request body service.SubmitBatchRequest true "草稿 ID 列表"
// @Success      200  {object}  Response{data=[]task.Task}
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse
// @Failure      422  {object}  ErrorResponse
// @Router       /tasks/submit [post]
// @Security     BearerAuth
func (c *TaskController) SubmitBatch(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	var req service.SubmitBatchRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		badRequest(ctx, err)
		return
	}

	tasks, err := c.taskService.SubmitBatch(ctx.Request.Context(), actor, &req)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, tasks)
}

// Batches 任务批次
// @Summary      任务批次
// @Description  按 batchId 分组的已提交任务,并推断批次状态
// @Tags         批量操作
// @Produce      json
// @Success      200  {object}  Response{data=[]workflow.TaskBatch}
// @Router       /batches [get]
// @Security     BearerAuth
func (c *TaskController) Batches(ctx *gin.Context) {
	actor, ok := currentActor(ctx)
	if !ok {
		return
	}

	batches, err := c.taskService.Batches(ctx.Request.Context(), actor)
	if err != nil {
		handleError(ctx, err)
		return
	}

	Success(ctx, batches)
}
