package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/metrics"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/utils"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/mautops/taskflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	maxCommentLen   = 2000
)

// TaskService 任务服务接口
type TaskService interface {
	Create(ctx context.Context, actor auth.Identity, req *CreateTaskRequest) (*task.Task, error)
	Get(ctx context.Context, actor auth.Identity, id string) (*task.Task, error)
	List(ctx context.Context, actor auth.Identity, filter *ListTasksFilter) (*TaskPage, error)
	Update(ctx context.Context, actor auth.Identity, id string, req *UpdateTaskRequest) (*task.Task, error)
	Delete(ctx context.Context, actor auth.Identity, id string) error
	Transitions(ctx context.Context, actor auth.Identity, id string) ([]task.Status, error)
	// 批量操作方法
	SubmitBatch(ctx context.Context, actor auth.Identity, req *SubmitBatchRequest) ([]*task.Task, error)
	CreateBulk(ctx context.Context, actor auth.Identity, req *BulkCreateRequest) ([]*task.Task, error)
	SaveBulkDrafts(ctx context.Context, actor auth.Identity, req *BulkCreateRequest) ([]*task.Task, error)
	Batches(ctx context.Context, actor auth.Identity) ([]workflow.TaskBatch, error)
	VisibleTasks(ctx context.Context, actor auth.Identity) ([]*task.Task, error)
	// 实时通道
	ApplyRemoteUpdate(ctx context.Context, actor auth.Identity, taskID string, updates task.Updates) (*task.Task, error)
	// 评论与历史
	AddComment(ctx context.Context, actor auth.Identity, taskID string, req *AddCommentRequest) (*Comment, error)
	ListComments(ctx context.Context, actor auth.Identity, taskID string) ([]*Comment, error)
	History(ctx context.Context, actor auth.Identity, taskID string) ([]*StateHistory, error)
}

// CreateTaskRequest 创建任务请求
// @Description 创建任务或草稿的请求参数
type CreateTaskRequest struct {
	Title            string     `json:"title" example:"Write release notes" binding:"required"` // 标题
	Description      string     `json:"description" example:"Cover the API changes"`            // 描述
	Priority         string     `json:"priority" example:"high" enums:"low,medium,high,urgent"` // 优先级,默认 medium
	AssigneeID       string     `json:"assigneeId" example:"user-001"`                          // 执行人 ID,仅经理可指定
	AssigneeName     string     `json:"assigneeName" example:"Alice"`                           // 执行人姓名
	DueDate          *task.Date `json:"dueDate" swaggertype:"string" example:"2025-03-14"`      // 截止日期
	WeekSubmittedFor string     `json:"weekSubmittedFor" example:"2025-W10"`                    // 目标周,为空时取第一个开放周
	EstimatedHours   *float64   `json:"estimatedHours" example:"4"`                             // 预估工时,0.5 到 168
	IsDraft          bool       `json:"isDraft" example:"true"`                                 // 是否保存为草稿
}

// UpdateTaskRequest 更新任务请求
// @Description 部分更新任务,未出现的字段保持不变
type UpdateTaskRequest struct {
	Title            *string      `json:"title" example:"Write release notes"`
	Description      *string      `json:"description"`
	Status           *task.Status `json:"status" swaggertype:"string" example:"in_progress"`
	Priority         *string      `json:"priority" example:"urgent"`
	AssigneeID       *string      `json:"assigneeId"`
	AssigneeName     *string      `json:"assigneeName"`
	DueDate          *task.Date   `json:"dueDate" swaggertype:"string" example:"2025-03-14"`
	WeekSubmittedFor *string      `json:"weekSubmittedFor" example:"2025-W11"`
	EstimatedHours   *float64     `json:"estimatedHours" example:"6"`
	StatusNote       *string      `json:"statusNote" example:"blocked on review"`
	ReviewComment    *string      `json:"reviewComment" example:"please split this task"` // 仅经理
	ExpectedVersion  *int         `json:"expectedVersion" example:"3"`                    // 乐观并发控制,版本不一致返回 409
}

// ListTasksFilter 任务列表查询过滤器
type ListTasksFilter struct {
	Status     string `form:"status"`
	Week       string `form:"week"`
	AssigneeID string `form:"assignee"`
	BatchID    string `form:"batch"`
	IsDraft    *bool  `form:"is_draft"`
	Page       int    `form:"page"`
	PageSize   int    `form:"page_size"`
}

// TaskPage 分页结果
type TaskPage struct {
	Items    []*task.Task `json:"items"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

// SubmitBatchRequest 批量提交请求
// @Description 将多个草稿作为一个批次提交审批
type SubmitBatchRequest struct {
	TaskIDs []string `json:"taskIds" binding:"required"` // 任务 ID 列表
	Week    string   `json:"week" example:"2025-W10"`    // 目标周
}

// BulkCreateRequest 批量创建请求
// @Description 为同一周批量创建任务
type BulkCreateRequest struct {
	Week  string              `json:"week" example:"2025-W10"`
	Tasks []CreateTaskRequest `json:"tasks" binding:"required"`
}

// AddCommentRequest 添加评论请求
type AddCommentRequest struct {
	Body string `json:"body" example:"Looks good" binding:"required"`
}

// Comment 任务评论
type Comment struct {
	ID         string    `json:"id"`
	TaskID     string    `json:"taskId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TaskEvent task:updated 事件数据
type TaskEvent struct {
	TaskID  string        `json:"taskId"`
	Updates *task.Updates `json:"updates,omitempty"`
	Task    *task.Task    `json:"task,omitempty"`
	Version int           `json:"version"`
}

// TaskServiceConfig 任务服务配置
type TaskServiceConfig struct {
	RequireRejectComment bool
}

type taskService struct {
	store       task.Store
	calc        *week.Calculator
	history     HistoryService
	comments    repository.CommentRepository
	auditLogSvc AuditLogService
	publisher   event.Publisher
	logger      *logrus.Logger
	cfg         TaskServiceConfig

	// 串行化先读后写的变更,保证版本检查与写入之间没有其他写入
	writeMu sync.Mutex
}

// NewTaskService 创建任务服务
func NewTaskService(
	store task.Store,
	calc *week.Calculator,
	history HistoryService,
	comments repository.CommentRepository,
	auditLogSvc AuditLogService,
	publisher event.Publisher,
	logger *logrus.Logger,
	cfg TaskServiceConfig,
) TaskService {
	if publisher == nil {
		publisher = event.Nop
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &taskService{
		store:       store,
		calc:        calc,
		history:     history,
		comments:    comments,
		auditLogSvc: auditLogSvc,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
	}
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, actor auth.Identity, req *CreateTaskRequest) (*task.Task, error) {
	in, err := s.createInput(actor, req)
	if err != nil {
		return nil, err
	}
	if req.WeekSubmittedFor == "" {
		if in.WeekSubmittedFor, err = s.defaultWeek(); err != nil {
			return nil, err
		}
	}
	if err := s.checkWindow(actor, in.WeekSubmittedFor); err != nil {
		return nil, err
	}

	t, err := s.store.Create(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	// 记录业务指标
	metrics.RecordTaskCreated(t.IsDraft, 1)
	s.recordChange(ctx, actor, "create", nil, t, nil, "created")
	return t, nil
}

// Get 获取任务详情
func (s *taskService) Get(ctx context.Context, actor auth.Identity, id string) (*task.Task, error) {
	t, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !visible(actor, t) {
		return nil, fmt.Errorf("%w: %s", task.ErrTaskNotFound, id)
	}
	return t, nil
}

// List 列出任务,员工只能看到自己的任务
func (s *taskService) List(ctx context.Context, actor auth.Identity, filter *ListTasksFilter) (*TaskPage, error) {
	if filter == nil {
		filter = &ListTasksFilter{}
	}
	f, err := s.toFilter(actor, filter)
	if err != nil {
		return nil, err
	}
	tasks, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	start := min((page-1)*size, len(tasks))
	end := min(start+size, len(tasks))
	return &TaskPage{Items: tasks[start:end], Total: len(tasks), Page: page, PageSize: size}, nil
}

// VisibleTasks 返回调用者可见的全部任务
func (s *taskService) VisibleTasks(ctx context.Context, actor auth.Identity) ([]*task.Task, error) {
	f, err := s.toFilter(actor, &ListTasksFilter{})
	if err != nil {
		return nil, err
	}
	return s.store.List(ctx, f)
}

// Batches 按提交批次分组调用者可见的任务
func (s *taskService) Batches(ctx context.Context, actor auth.Identity) ([]workflow.TaskBatch, error) {
	tasks, err := s.VisibleTasks(ctx, actor)
	if err != nil {
		return nil, err
	}
	return workflow.GroupTaskBatches(tasks), nil
}

// Update 更新任务
func (s *taskService) Update(ctx context.Context, actor auth.Identity, id string, req *UpdateTaskRequest) (*task.Task, error) {
	return s.update(ctx, actor, id, req, "update", s.store.Update)
}

// ApplyRemoteUpdate 合并实时通道推送的更新,按与 Update 相同的规则校验,后写入者生效
func (s *taskService) ApplyRemoteUpdate(ctx context.Context, actor auth.Identity, taskID string, updates task.Updates) (*task.Task, error) {
	req := &UpdateTaskRequest{
		Title:          updates.Title,
		Description:    updates.Description,
		Status:         updates.Status,
		AssigneeID:     updates.AssigneeID,
		AssigneeName:   updates.AssigneeName,
		DueDate:        updates.DueDate,
		EstimatedHours: updates.EstimatedHours,
		StatusNote:     updates.StatusNote,
		ReviewComment:  updates.ReviewComment,
	}
	if updates.Priority != nil {
		p := string(*updates.Priority)
		req.Priority = &p
	}
	if updates.WeekSubmittedFor != nil {
		w := updates.WeekSubmittedFor.String()
		req.WeekSubmittedFor = &w
	}
	return s.update(ctx, actor, taskID, req, "remote_update", s.store.ApplyRemote)
}

type applyFunc func(ctx context.Context, id string, updates task.Updates) (*task.Task, error)

func (s *taskService) update(ctx context.Context, actor auth.Identity, id string, req *UpdateTaskRequest, action string, apply applyFunc) (*task.Task, error) {
	if req == nil {
		return nil, ErrEmptyUpdate
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// 1. 加载当前任务
	current, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	// 2. 乐观并发检查
	if req.ExpectedVersion != nil && *req.ExpectedVersion != current.Version {
		return nil, &VersionConflictError{Expected: *req.ExpectedVersion, Current: current}
	}

	// 3. 按角色构建并校验更新
	updates, err := s.buildUpdates(actor, current, req)
	if err != nil {
		return nil, err
	}
	if updates.IsEmpty() {
		return nil, ErrEmptyUpdate
	}

	// 4. 写入
	updated, err := apply(ctx, id, updates)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	reason := action
	if req.StatusNote != nil {
		reason = *req.StatusNote
	}
	s.recordChange(ctx, actor, action, current, updated, &updates, reason)
	return updated, nil
}

// buildUpdates 将请求转换为存储更新,并执行编辑窗口、所属周和状态流转规则
func (s *taskService) buildUpdates(actor auth.Identity, current *task.Task, req *UpdateTaskRequest) (task.Updates, error) {
	var u task.Updates
	if req.Title != nil {
		title, err := utils.ValidateTitle(*req.Title)
		if err != nil {
			return u, err
		}
		u.Title = &title
	}
	if req.Description != nil {
		d := utils.SanitizeString(*req.Description)
		u.Description = &d
	}
	if req.Priority != nil {
		p, err := parsePriority(*req.Priority)
		if err != nil {
			return u, err
		}
		u.Priority = &p
	}
	if req.AssigneeID != nil || req.AssigneeName != nil {
		if !actor.IsManager() {
			return u, fmt.Errorf("%w: only managers can reassign tasks", ErrForbidden)
		}
		u.AssigneeID = req.AssigneeID
		u.AssigneeName = req.AssigneeName
	}
	if req.DueDate != nil {
		d := *req.DueDate
		u.DueDate = &d
	}
	if req.EstimatedHours != nil {
		if err := utils.ValidateEstimatedHours(req.EstimatedHours); err != nil {
			return u, err
		}
		h := *req.EstimatedHours
		u.EstimatedHours = &h
	}
	if req.StatusNote != nil {
		note := utils.SanitizeString(*req.StatusNote)
		u.StatusNote = &note
	}
	if req.WeekSubmittedFor != nil {
		w, err := parseWeek(*req.WeekSubmittedFor)
		if err != nil {
			return u, err
		}
		if w != current.WeekSubmittedFor {
			if current.Status != task.StatusDraft {
				return u, ErrWeekImmutable
			}
			if err := s.checkWindow(actor, w); err != nil {
				return u, err
			}
			u.WeekSubmittedFor = &w
		}
	}

	// 员工只能在 draft/rejected 且提交窗口开放时修改内容
	if u.TouchesContent() && !actor.IsManager() {
		if !workflow.StaffCanEdit(current) {
			return u, fmt.Errorf("%w: %s", ErrNotEditable, current.Status)
		}
		if err := s.checkWindow(actor, current.WeekSubmittedFor); err != nil {
			return u, err
		}
	}

	if req.ReviewComment != nil && !actor.IsManager() {
		return u, fmt.Errorf("%w: only managers can leave review comments", ErrForbidden)
	}

	if req.Status == nil || *req.Status == current.Status {
		if req.ReviewComment != nil {
			c := *req.ReviewComment
			u.ReviewComment = &c
		}
		return u, nil
	}
	return s.withStatus(actor, current, *req.Status, req.ReviewComment, u)
}

// withStatus 在更新中加入状态变化及其伴随字段
func (s *taskService) withStatus(actor auth.Identity, current *task.Task, to task.Status, reviewComment *string, u task.Updates) (task.Updates, error) {
	if !to.Valid() {
		return u, &utils.ValidationError{Code: "INVALID_STATUS", Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}

	// 经理处理待审批任务与审批流程走同一套决定规则
	if actor.IsManager() && current.Status == task.StatusPendingApproval {
		d := workflow.Decision{Status: workflow.DecisionApprove}
		if to == task.StatusRejected {
			d.Status = workflow.DecisionReject
		}
		if reviewComment != nil {
			d.Comment = *reviewComment
		}
		if to != task.StatusInProgress && to != task.StatusRejected {
			metrics.RecordTransitionRejected(string(actor.Role))
			return u, workflow.ValidateTransition(current.Status, to, actor.Role)
		}
		if err := d.Validate(s.cfg.RequireRejectComment); err != nil {
			return u, err
		}
		review, err := workflow.ApplyDecision(current, d, actor.ID, s.calc.Now())
		if err != nil {
			return u, err
		}
		metrics.RecordReviewDecision(string(d.Status))
		u.Status = review.Status
		u.ReviewedAt = review.ReviewedAt
		u.ReviewedByID = review.ReviewedByID
		u.ReviewComment = review.ReviewComment
		return u, nil
	}

	if err := workflow.ValidateTransition(current.Status, to, actor.Role); err != nil {
		metrics.RecordTransitionRejected(string(actor.Role))
		return u, err
	}

	if to == task.StatusPendingApproval {
		w := current.WeekSubmittedFor
		if u.WeekSubmittedFor != nil {
			w = *u.WeekSubmittedFor
		}
		if err := s.checkWindow(actor, w); err != nil {
			return u, err
		}
		now := s.calc.Now()
		isDraft := false
		batchID := task.NewBatchID()
		u.IsDraft = &isDraft
		u.SubmittedAt = &now
		u.BatchID = &batchID
	}
	if reviewComment != nil {
		c := *reviewComment
		u.ReviewComment = &c
	}
	u.Status = &to
	return u, nil
}

// Delete 删除任务
func (s *taskService) Delete(ctx context.Context, actor auth.Identity, id string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsManager() {
		if err := s.checkWindow(actor, t.WeekSubmittedFor); err != nil {
			return err
		}
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if s.comments != nil {
		if err := s.comments.DeleteByTaskID(ctx, id); err != nil {
			s.logger.WithError(err).WithField("task_id", id).Warn("failed to delete task comments")
		}
	}

	s.audit(ctx, actor, "delete", "task", id, map[string]interface{}{"title": t.Title, "status": t.Status})
	s.publish(ctx, event.TypeTaskDeleted, id, "", map[string]string{"taskId": id})
	return nil
}

// Transitions 返回调用者可以把任务改成的状态
func (s *taskService) Transitions(ctx context.Context, actor auth.Identity, id string) ([]task.Status, error) {
	t, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return workflow.AllowedTransitions(t, actor.Role), nil
}

// SubmitBatch 批量提交草稿,所有任务共享同一个批次
func (s *taskService) SubmitBatch(ctx context.Context, actor auth.Identity, req *SubmitBatchRequest) ([]*task.Task, error) {
	if req == nil {
		return nil, task.ErrEmptyBatch
	}
	ids := task.UniqueIDs(req.TaskIDs)
	if len(ids) == 0 {
		return nil, task.ErrEmptyBatch
	}
	w, err := s.weekOrDefault(req.Week)
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(actor, w); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	before := make(map[string]*task.Task, len(ids))
	for _, id := range ids {
		t, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if err := workflow.ValidateTransition(t.Status, task.StatusPendingApproval, actor.Role); err != nil {
			metrics.RecordTransitionRejected(string(actor.Role))
			return nil, err
		}
		// 离开草稿后所属周不可变
		if t.Status != task.StatusDraft && t.WeekSubmittedFor != w {
			return nil, ErrWeekImmutable
		}
		before[id] = t
	}

	submitted, err := s.store.SubmitBatch(ctx, ids, w)
	if err != nil {
		return nil, fmt.Errorf("failed to submit batch: %w", err)
	}

	metrics.RecordBatchSubmitted()
	for _, t := range submitted {
		s.recordChange(ctx, actor, "submit", before[t.ID], t, nil, "batch submitted")
	}
	s.audit(ctx, actor, "submit", "batch", submitted[0].BatchID, map[string]interface{}{
		"week":     w.String(),
		"task_ids": ids,
	})
	return submitted, nil
}

// CreateBulk 批量创建并直接提交
func (s *taskService) CreateBulk(ctx context.Context, actor auth.Identity, req *BulkCreateRequest) ([]*task.Task, error) {
	return s.createMany(ctx, actor, req, false)
}

// SaveBulkDrafts 批量保存草稿
func (s *taskService) SaveBulkDrafts(ctx context.Context, actor auth.Identity, req *BulkCreateRequest) ([]*task.Task, error) {
	return s.createMany(ctx, actor, req, true)
}

func (s *taskService) createMany(ctx context.Context, actor auth.Identity, req *BulkCreateRequest, draft bool) ([]*task.Task, error) {
	if req == nil || len(req.Tasks) == 0 {
		return nil, task.ErrEmptyBatch
	}
	w, err := s.weekOrDefault(req.Week)
	if err != nil {
		return nil, err
	}
	if err := s.checkWindow(actor, w); err != nil {
		return nil, err
	}

	inputs := make([]task.CreateInput, 0, len(req.Tasks))
	for i := range req.Tasks {
		item := req.Tasks[i]
		item.WeekSubmittedFor = ""
		in, err := s.createInput(actor, &item)
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
		inputs = append(inputs, in)
	}

	create := s.store.CreateBulk
	action := "bulk_create"
	if draft {
		create = s.store.SaveBulkDrafts
		action = "bulk_draft"
	}
	created, err := create(ctx, w, inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks: %w", err)
	}

	metrics.RecordTaskCreated(draft, len(created))
	if !draft {
		metrics.RecordBatchSubmitted()
	}
	for _, t := range created {
		s.recordChange(ctx, actor, action, nil, t, nil, "created")
	}
	return created, nil
}

// AddComment 添加评论
func (s *taskService) AddComment(ctx context.Context, actor auth.Identity, taskID string, req *AddCommentRequest) (*Comment, error) {
	if _, err := s.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &utils.ValidationError{Code: "INVALID_COMMENT", Field: "body", Message: "body cannot be empty"}
	}
	body, err := utils.TrimAndValidate(req.Body, maxCommentLen)
	if err != nil {
		return nil, &utils.ValidationError{Code: "INVALID_COMMENT", Field: "body", Message: "body " + err.Error()}
	}

	m := &model.CommentModel{
		ID:         uuid.NewString(),
		TaskID:     taskID,
		AuthorID:   actor.ID,
		AuthorName: actor.Name,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.comments.Save(ctx, m); err != nil {
		return nil, fmt.Errorf("failed to save comment: %w", err)
	}

	c := toComment(m)
	s.audit(ctx, actor, "comment", "task", taskID, map[string]string{"comment_id": c.ID})
	s.publish(ctx, event.TypeCommentAdded, taskID, "", c)
	return c, nil
}

// ListComments 按时间正序列出评论
func (s *taskService) ListComments(ctx context.Context, actor auth.Identity, taskID string) ([]*Comment, error) {
	if _, err := s.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	rows, err := s.comments.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load comments: %w", err)
	}
	out := make([]*Comment, 0, len(rows))
	for _, r := range rows {
		out = append(out, toComment(r))
	}
	return out, nil
}

// History 返回任务的状态历史
func (s *taskService) History(ctx context.Context, actor auth.Identity, taskID string) ([]*StateHistory, error) {
	if _, err := s.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	return s.history.List(ctx, taskID)
}

// createInput 校验创建请求并确定执行人
func (s *taskService) createInput(actor auth.Identity, req *CreateTaskRequest) (task.CreateInput, error) {
	var in task.CreateInput
	if req == nil {
		return in, ErrEmptyUpdate
	}
	title, err := utils.ValidateTitle(req.Title)
	if err != nil {
		return in, err
	}
	priority, err := parsePriority(req.Priority)
	if err != nil {
		return in, err
	}
	if err := utils.ValidateEstimatedHours(req.EstimatedHours); err != nil {
		return in, err
	}

	in = task.CreateInput{
		Title:          title,
		Description:    utils.SanitizeString(req.Description),
		Priority:       priority,
		AssigneeID:     actor.ID,
		AssigneeName:   actor.Name,
		DueDate:        req.DueDate,
		EstimatedHours: req.EstimatedHours,
		IsDraft:        req.IsDraft,
		CreatedByID:    actor.ID,
	}
	if actor.IsManager() && req.AssigneeID != "" {
		in.AssigneeID = req.AssigneeID
		in.AssigneeName = req.AssigneeName
	} else if req.AssigneeID != "" && req.AssigneeID != actor.ID {
		return in, fmt.Errorf("%w: only managers can assign tasks to others", ErrForbidden)
	}
	if req.WeekSubmittedFor != "" {
		if in.WeekSubmittedFor, err = parseWeek(req.WeekSubmittedFor); err != nil {
			return in, err
		}
	}
	return in, nil
}

// checkWindow 员工只能操作提交窗口仍开放的周,经理不受限制
func (s *taskService) checkWindow(actor auth.Identity, w week.Week) error {
	if actor.IsManager() || s.calc.IsSubmissionOpen(w) {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrSubmissionClosed, w)
}

func (s *taskService) weekOrDefault(raw string) (week.Week, error) {
	if raw == "" {
		return s.defaultWeek()
	}
	return parseWeek(raw)
}

// defaultWeek 第一个仍可提交的周
func (s *taskService) defaultWeek() (week.Week, error) {
	for opt := range s.calc.AvailableWeeksForSubmission() {
		return parseWeek(opt.Value)
	}
	return week.Week{}, ErrSubmissionClosed
}

func (s *taskService) toFilter(actor auth.Identity, in *ListTasksFilter) (*task.Filter, error) {
	f := &task.Filter{IsDraft: in.IsDraft}
	if in.Status != "" {
		st, err := task.ParseStatus(in.Status)
		if err != nil {
			return nil, &utils.ValidationError{Code: "INVALID_STATUS", Field: "status", Message: err.Error()}
		}
		f.Status = &st
	}
	if in.Week != "" {
		w, err := parseWeek(in.Week)
		if err != nil {
			return nil, err
		}
		f.Week = &w
	}
	if in.BatchID != "" {
		b := in.BatchID
		f.BatchID = &b
	}
	switch {
	case !actor.IsManager():
		id := actor.ID
		f.AssigneeID = &id
	case in.AssigneeID != "":
		a := in.AssigneeID
		f.AssigneeID = &a
	}
	return f, nil
}

// recordChange 写状态历史和审计日志,并广播变更
// 这些副作用失败只记录日志,不影响已完成的写入
func (s *taskService) recordChange(ctx context.Context, actor auth.Identity, action string, before, after *task.Task, updates *task.Updates, reason string) {
	var from task.Status
	if before != nil {
		from = before.Status
	}
	if s.history != nil && from != after.Status {
		if err := s.history.Record(ctx, actor, from, after, reason); err != nil {
			s.logger.WithError(err).WithField("task_id", after.ID).Warn("failed to record state history")
		}
	}

	details := map[string]interface{}{"status": after.Status, "version": after.Version}
	if from != after.Status {
		details["from"] = from
	}
	s.audit(ctx, actor, action, "task", after.ID, details)
	s.publish(ctx, event.TypeTaskUpdated, after.ID, "", TaskEvent{
		TaskID:  after.ID,
		Updates: updates,
		Task:    after,
		Version: after.Version,
	})

	s.logger.WithFields(logrus.Fields{
		"action":  action,
		"task_id": after.ID,
		"user_id": actor.ID,
		"status":  after.Status,
	}).Debug("task changed")
}

func (s *taskService) audit(ctx context.Context, actor auth.Identity, action, resourceType, resourceID string, details interface{}) {
	if s.auditLogSvc == nil || actor.ID == "" {
		return
	}
	if err := s.auditLogSvc.RecordAction(ctx, actor.ID, action, resourceType, resourceID, details); err != nil {
		s.logger.WithError(err).WithField("resource_id", resourceID).Warn("failed to record audit log")
	}
}

func (s *taskService) publish(ctx context.Context, typ event.Type, taskID, userID string, data interface{}) {
	ev, err := event.New(typ, taskID, userID, data)
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.WithError(err).WithField("event", typ).Warn("failed to publish event")
	}
}

func visible(actor auth.Identity, t *task.Task) bool {
	return actor.IsManager() || t.AssigneeID == actor.ID || t.CreatedByID == actor.ID
}

func parsePriority(s string) (task.Priority, error) {
	p, err := task.ParsePriority(s)
	if err != nil {
		return "", &utils.ValidationError{Code: "INVALID_PRIORITY", Field: "priority", Message: err.Error()}
	}
	return p, nil
}

func parseWeek(s string) (week.Week, error) {
	w, err := week.ParseWeek(s)
	if err != nil {
		return week.Week{}, &utils.ValidationError{Code: "INVALID_WEEK", Field: "weekSubmittedFor", Message: err.Error()}
	}
	return w, nil
}

func toComment(m *model.CommentModel) *Comment {
	return &Comment{
		ID:         m.ID,
		TaskID:     m.TaskID,
		AuthorID:   m.AuthorID,
		AuthorName: m.AuthorName,
		Body:       m.Body,
		CreatedAt:  m.CreatedAt,
	}
}

// IsValidationError 是否为输入校验错误
func IsValidationError(err error) bool {
	var ve *utils.ValidationError
	return errors.As(err, &ve)
}
