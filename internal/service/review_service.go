package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/utils"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/mautops/taskflow-gin/internal/workflow"
	"github.com/sirupsen/logrus"
)

// ReviewService 经理审批服务
// 决定先记录在经理自己的决定表中,提交批次时才写入任务
type ReviewService interface {
	ListBatches(ctx context.Context, actor auth.Identity) ([]*ReviewBatchView, error)
	GetBatch(ctx context.Context, actor auth.Identity, key string) (*ReviewBatchView, error)
	SetDecision(ctx context.Context, actor auth.Identity, key, taskID string, req *DecisionRequest) (*ReviewBatchView, error)
	ApplyAll(ctx context.Context, actor auth.Identity, key string, req *DecisionRequest) (*ReviewBatchView, error)
	SubmitBatch(ctx context.Context, actor auth.Identity, key string) (*ReviewResult, error)
	Records(ctx context.Context, actor auth.Identity, taskID string) ([]*ReviewRecord, error)
}

// DecisionRequest 审批决定请求
// @Description 对单个任务或整个批次记录决定
type DecisionRequest struct {
	Decision string `json:"decision" example:"approve" enums:"pending,approve,reject" binding:"required"` // 决定
	Comment  string `json:"comment" example:"Looks good"`                                                 // 审批意见,驳回时必填
}

// ReviewBatchView 审批批次及当前决定
type ReviewBatchView struct {
	Key       string                       `json:"key" example:"user-001@2025-W10"`
	StaffID   string                       `json:"staffId"`
	StaffName string                       `json:"staffName"`
	Week      week.Week                    `json:"week" swaggertype:"string" example:"2025-W10"`
	Tasks     []*task.Task                 `json:"tasks"`
	Decisions map[string]workflow.Decision `json:"decisions"`
	CanSubmit bool                         `json:"canSubmit"`
}

// ReviewResult 批次提交结果
type ReviewResult struct {
	Key      string                 `json:"key"`
	Approved int                    `json:"approved"`
	Rejected int                    `json:"rejected"`
	Tasks    []*task.Task           `json:"tasks"`
	Results  []BatchOperationResult `json:"results"`
}

// BatchOperationResult 批量操作结果
// @Description 批量操作中单个任务的结果
type BatchOperationResult struct {
	TaskID  string `json:"taskId"`          // 任务 ID
	Success bool   `json:"success"`         // 是否成功
	Error   string `json:"error,omitempty"` // 错误信息(如果失败)
}

// ReviewRecord 已提交的审批记录
type ReviewRecord struct {
	ID         string      `json:"id"`
	TaskID     string      `json:"taskId"`
	BatchKey   string      `json:"batchKey"`
	ReviewerID string      `json:"reviewerId"`
	Result     string      `json:"result"`
	ToStatus   task.Status `json:"toStatus"`
	Comment    string      `json:"comment,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// ReviewNotification 审批完成后发给员工的通知
type ReviewNotification struct {
	Key      string `json:"key"`
	Week     string `json:"week"`
	Approved int    `json:"approved"`
	Rejected int    `json:"rejected"`
	Reviewer string `json:"reviewer"`
}

type reviewService struct {
	tasks       TaskService
	boards      *workflow.Boards
	records     repository.ReviewRecordRepository
	auditLogSvc AuditLogService
	publisher   event.Publisher
	logger      *logrus.Logger
	cfg         TaskServiceConfig
}

// NewReviewService 创建审批服务
func NewReviewService(
	tasks TaskService,
	boards *workflow.Boards,
	records repository.ReviewRecordRepository,
	auditLogSvc AuditLogService,
	publisher event.Publisher,
	logger *logrus.Logger,
	cfg TaskServiceConfig,
) ReviewService {
	if boards == nil {
		boards = workflow.NewBoards()
	}
	if publisher == nil {
		publisher = event.Nop
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &reviewService{
		tasks:       tasks,
		boards:      boards,
		records:     records,
		auditLogSvc: auditLogSvc,
		publisher:   publisher,
		logger:      logger,
		cfg:         cfg,
	}
}

// ListBatches 列出全部待审批批次
func (s *reviewService) ListBatches(ctx context.Context, actor auth.Identity) ([]*ReviewBatchView, error) {
	if !actor.IsManager() {
		return nil, ErrForbidden
	}
	batches, err := s.pendingBatches(ctx, actor)
	if err != nil {
		return nil, err
	}
	board := s.boards.For(actor.ID)
	out := make([]*ReviewBatchView, 0, len(batches))
	for _, b := range batches {
		out = append(out, view(b, board))
	}
	return out, nil
}

// GetBatch 获取单个批次
func (s *reviewService) GetBatch(ctx context.Context, actor auth.Identity, key string) (*ReviewBatchView, error) {
	b, err := s.batch(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	return view(b, s.boards.For(actor.ID)), nil
}

// SetDecision 记录单个任务的决定
func (s *reviewService) SetDecision(ctx context.Context, actor auth.Identity, key, taskID string, req *DecisionRequest) (*ReviewBatchView, error) {
	d, err := parseDecision(req)
	if err != nil {
		return nil, err
	}
	b, err := s.batch(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	if !containsTask(b, taskID) {
		return nil, fmt.Errorf("%w: %s not in batch %s", task.ErrTaskNotFound, taskID, key)
	}
	board := s.boards.For(actor.ID)
	board.SetDecision(b.Key, taskID, d)
	return view(b, board), nil
}

// ApplyAll 对批次内所有任务应用同一决定
func (s *reviewService) ApplyAll(ctx context.Context, actor auth.Identity, key string, req *DecisionRequest) (*ReviewBatchView, error) {
	d, err := parseDecision(req)
	if err != nil {
		return nil, err
	}
	b, err := s.batch(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	board := s.boards.For(actor.ID)
	board.ApplyAll(b.Key, b.TaskIDs(), d)
	return view(b, board), nil
}

// SubmitBatch 提交批次的全部决定
// 所有决定先整体校验,任一不合法时不修改任何任务
func (s *reviewService) SubmitBatch(ctx context.Context, actor auth.Identity, key string) (*ReviewResult, error) {
	b, err := s.batch(ctx, actor, key)
	if err != nil {
		return nil, err
	}
	board := s.boards.For(actor.ID)
	ids := b.TaskIDs()
	if !board.CanSubmitBatch(b.Key, ids) {
		return nil, ErrBatchIncomplete
	}

	// 1. 整体校验
	decisions := board.Decisions(b.Key)
	for _, t := range b.Tasks {
		d := decisions[t.ID]
		if err := d.Validate(s.cfg.RequireRejectComment); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		if _, err := workflow.ApplyDecision(t, d, actor.ID, time.Now()); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
	}

	// 2. 逐个写入
	result := &ReviewResult{Key: b.Key}
	for _, t := range b.Tasks {
		d := decisions[t.ID]
		target, _ := d.Target()
		comment := d.Comment
		version := t.Version
		updated, err := s.tasks.Update(ctx, actor, t.ID, &UpdateTaskRequest{
			Status:          &target,
			ReviewComment:   &comment,
			ExpectedVersion: &version,
		})
		if err != nil {
			result.Results = append(result.Results, BatchOperationResult{TaskID: t.ID, Error: err.Error()})
			continue
		}
		result.Results = append(result.Results, BatchOperationResult{TaskID: t.ID, Success: true})
		result.Tasks = append(result.Tasks, updated)
		if d.Status == workflow.DecisionApprove {
			result.Approved++
		} else {
			result.Rejected++
		}
		s.saveRecord(ctx, actor, b.Key, updated, d)
	}

	// 3. 全部成功才清除决定,失败的任务保留决定以便重试
	if len(result.Tasks) == len(b.Tasks) {
		board.Clear(b.Key)
	}

	s.notify(ctx, actor, b, result)
	if s.auditLogSvc != nil {
		if err := s.auditLogSvc.RecordAction(ctx, actor.ID, "review", "batch", b.Key, map[string]interface{}{
			"approved": result.Approved,
			"rejected": result.Rejected,
			"failed":   len(b.Tasks) - len(result.Tasks),
		}); err != nil {
			s.logger.WithError(err).WithField("batch_key", b.Key).Warn("failed to record audit log")
		}
	}
	return result, nil
}

// Records 查询任务的审批记录
func (s *reviewService) Records(ctx context.Context, actor auth.Identity, taskID string) ([]*ReviewRecord, error) {
	if _, err := s.tasks.Get(ctx, actor, taskID); err != nil {
		return nil, err
	}
	rows, err := s.records.FindByTaskID(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to load review records: %w", err)
	}
	out := make([]*ReviewRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, &ReviewRecord{
			ID:         r.ID,
			TaskID:     r.TaskID,
			BatchKey:   r.BatchKey,
			ReviewerID: r.ReviewerID,
			Result:     r.Result,
			ToStatus:   task.Status(r.ToStatus),
			Comment:    r.Comment,
			CreatedAt:  r.CreatedAt,
		})
	}
	return out, nil
}

func (s *reviewService) pendingBatches(ctx context.Context, actor auth.Identity) ([]workflow.ReviewBatch, error) {
	all, err := s.tasks.VisibleTasks(ctx, actor)
	if err != nil {
		return nil, err
	}
	tasks := make([]*task.Task, 0, len(all))
	for _, t := range all {
		if t.Status == task.StatusPendingApproval {
			tasks = append(tasks, t)
		}
	}
	return workflow.GroupForReview(tasks), nil
}

// batch 按键查找待审批批次
func (s *reviewService) batch(ctx context.Context, actor auth.Identity, key string) (workflow.ReviewBatch, error) {
	if !actor.IsManager() {
		return workflow.ReviewBatch{}, ErrForbidden
	}
	k, err := workflow.ParseReviewKey(key)
	if err != nil {
		return workflow.ReviewBatch{}, err
	}
	batches, err := s.pendingBatches(ctx, actor)
	if err != nil {
		return workflow.ReviewBatch{}, err
	}
	for _, b := range batches {
		if b.Key == k.String() {
			return b, nil
		}
	}
	return workflow.ReviewBatch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, key)
}

func (s *reviewService) saveRecord(ctx context.Context, actor auth.Identity, key string, t *task.Task, d workflow.Decision) {
	if s.records == nil {
		return
	}
	rec := &model.ReviewRecordModel{
		ID:         uuid.NewString(),
		TaskID:     t.ID,
		BatchKey:   key,
		ReviewerID: actor.ID,
		Result:     string(d.Status),
		ToStatus:   string(t.Status),
		Comment:    d.Comment,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.records.Save(ctx, rec); err != nil {
		s.logger.WithError(err).WithField("task_id", t.ID).Warn("failed to save review record")
	}
}

// notify 通知员工批次已审批
func (s *reviewService) notify(ctx context.Context, actor auth.Identity, b workflow.ReviewBatch, result *ReviewResult) {
	if len(result.Tasks) == 0 {
		return
	}
	ev, err := event.New(event.TypeNotification, "", b.StaffID, ReviewNotification{
		Key:      b.Key,
		Week:     b.Week.String(),
		Approved: result.Approved,
		Rejected: result.Rejected,
		Reviewer: actor.Name,
	})
	if err == nil {
		err = s.publisher.Publish(ctx, ev)
	}
	if err != nil {
		s.logger.WithError(err).WithField("batch_key", b.Key).Warn("failed to notify staff")
	}
}

func parseDecision(req *DecisionRequest) (workflow.Decision, error) {
	if req == nil {
		return workflow.Decision{}, &utils.ValidationError{Code: "INVALID_DECISION", Field: "decision", Message: "decision is required"}
	}
	st, err := workflow.ParseDecisionStatus(req.Decision)
	if err != nil {
		return workflow.Decision{}, &utils.ValidationError{Code: "INVALID_DECISION", Field: "decision", Message: err.Error()}
	}
	return workflow.Decision{Status: st, Comment: req.Comment}, nil
}

func view(b workflow.ReviewBatch, board *workflow.ReviewBoard) *ReviewBatchView {
	decisions := board.Decisions(b.Key)
	for _, t := range b.Tasks {
		if _, ok := decisions[t.ID]; !ok {
			decisions[t.ID] = workflow.Decision{Status: workflow.DecisionPending}
		}
	}
	return &ReviewBatchView{
		Key:       b.Key,
		StaffID:   b.StaffID,
		StaffName: b.StaffName,
		Week:      b.Week,
		Tasks:     b.Tasks,
		Decisions: decisions,
		CanSubmit: board.CanSubmitBatch(b.Key, b.TaskIDs()),
	}
}

func containsTask(b workflow.ReviewBatch, taskID string) bool {
	for _, t := range b.Tasks {
		if t.ID == taskID {
			return true
		}
	}
	return false
}
