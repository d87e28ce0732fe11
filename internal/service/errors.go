package service

import (
	"errors"
	"fmt"

	"github.com/mautops/taskflow-gin/internal/task"
)

var (
	// ErrForbidden 当前角色无权执行该操作
	ErrForbidden = errors.New("forbidden")
	// ErrSubmissionClosed 目标周的提交窗口已关闭
	ErrSubmissionClosed = errors.New("submission window is closed")
	// ErrWeekImmutable 任务离开草稿后不能修改所属周
	ErrWeekImmutable = errors.New("weekSubmittedFor is immutable once the task leaves draft")
	// ErrNotEditable 任务当前状态下员工不能编辑
	ErrNotEditable = errors.New("task is not editable in its current status")
	// ErrEmptyUpdate 更新请求没有任何字段
	ErrEmptyUpdate = errors.New("no fields to update")
	// ErrBatchIncomplete 批次中仍有未决定的任务
	ErrBatchIncomplete = errors.New("every task in the batch needs a decision before submitting")
	// ErrBatchNotFound 审批批次不存在或已处理完
	ErrBatchNotFound = errors.New("review batch not found")
	// ErrEmailTaken 邮箱已注册
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials 邮箱或密码错误
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = errors.New("user not found")
)

// VersionConflictError 客户端版本过期,携带服务端当前任务
type VersionConflictError struct {
	Expected int
	Current  *task.Task
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("%s: expected version %d, current %d", task.ErrVersionConflict, e.Expected, e.Current.Version)
}

func (e *VersionConflictError) Unwrap() error {
	return task.ErrVersionConflict
}
