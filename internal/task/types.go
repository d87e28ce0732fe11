package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/mautops/taskflow-gin/internal/week"
)

// Status 任务状态
type Status string

const (
	StatusDraft           Status = "draft"
	StatusPendingApproval Status = "pending_approval"
	StatusApproved        Status = "approved"
	StatusTodo            Status = "todo"
	StatusInProgress      Status = "in_progress"
	StatusDone            Status = "done"
	StatusFinished        Status = "finished"
	StatusDelayed         Status = "delayed"
	StatusCancelled       Status = "cancelled"
	StatusRejected        Status = "rejected"
	StatusOverdue         Status = "overdue"
)

// AllStatuses 全部任务状态 (按生命周期顺序)
var AllStatuses = []Status{
	StatusDraft,
	StatusPendingApproval,
	StatusApproved,
	StatusTodo,
	StatusInProgress,
	StatusDone,
	StatusFinished,
	StatusDelayed,
	StatusCancelled,
	StatusRejected,
	StatusOverdue,
}

// ParseStatus 解析任务状态
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := statusTable[st]; !ok {
		return "", fmt.Errorf("unknown status: %q", s)
	}
	return st, nil
}

// Valid 是否为已知状态
func (s Status) Valid() bool {
	_, ok := statusTable[s]
	return ok
}

// Priority 任务优先级
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// AllPriorities 全部优先级
var AllPriorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority 解析优先级,空字符串视为 medium
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityMedium, nil
	}
	p := Priority(strings.ToLower(s))
	for _, known := range AllPriorities {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority: %q", s)
}

// Role 用户角色
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
)

// ParseRole 解析角色
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleEmployee, RoleManager:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Date 日历日期,JSON 格式为 YYYY-MM-DD
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate 由年月日创建日期
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate 解析 YYYY-MM-DD
func ParseDate(s string) (Date, error) {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// String 返回 YYYY-MM-DD
func (d Date) String() string {
	return d.Format(dateLayout)
}

// MarshalText 实现 encoding.TextMarshaler
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON 覆盖内嵌 time.Time 的 RFC3339 编码
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON 解析 "YYYY-MM-DD"
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	return d.UnmarshalText([]byte(s))
}

// Task 任务
type Task struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Description      string     `json:"description,omitempty"`
	Status           Status     `json:"status"`
	Priority         Priority   `json:"priority"`
	AssigneeID       string     `json:"assigneeId"`
	AssigneeName     string     `json:"assigneeName"`
	DueDate          *Date      `json:"dueDate,omitempty"`
	WeekSubmittedFor week.Week  `json:"weekSubmittedFor"`
	EstimatedHours   *float64   `json:"estimatedHours,omitempty"`
	IsDraft          bool       `json:"isDraft"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	ReviewedByID     string     `json:"reviewedById,omitempty"`
	ReviewComment    string     `json:"reviewComment,omitempty"`
	StatusNote       string     `json:"statusNote,omitempty"`
	BatchID          string     `json:"batchId,omitempty"`
	CreatedByID      string     `json:"createdById,omitempty"`
	Version          int        `json:"version"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// Clone 深拷贝任务,避免调用方修改存储中的数据
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DueDate != nil {
		d := *t.DueDate
		c.DueDate = &d
	}
	if t.EstimatedHours != nil {
		h := *t.EstimatedHours
		c.EstimatedHours = &h
	}
	if t.SubmittedAt != nil {
		s := *t.SubmittedAt
		c.SubmittedAt = &s
	}
	if t.ReviewedAt != nil {
		r := *t.ReviewedAt
		c.ReviewedAt = &r
	}
	return &c
}

// CreateInput 创建任务的输入
type CreateInput struct {
	Title            string
	Description      string
	Priority         Priority
	AssigneeID       string
	AssigneeName     string
	DueDate          *Date
	WeekSubmittedFor week.Week
	EstimatedHours   *float64
	IsDraft          bool
	CreatedByID      string
}

// Updates 任务的部分更新,nil 字段保持不变
type Updates struct {
	Title            *string    `json:"title,omitempty"`
	Description      *string    `json:"description,omitempty"`
	Status           *Status    `json:"status,omitempty"`
	Priority         *Priority  `json:"priority,omitempty"`
	AssigneeID       *string    `json:"assigneeId,omitempty"`
	AssigneeName     *string    `json:"assigneeName,omitempty"`
	DueDate          *Date      `json:"dueDate,omitempty"`
	WeekSubmittedFor *week.Week `json:"weekSubmittedFor,omitempty"`
	EstimatedHours   *float64   `json:"estimatedHours,omitempty"`
	IsDraft          *bool      `json:"isDraft,omitempty"`
	SubmittedAt      *time.Time `json:"submittedAt,omitempty"`
	ReviewedAt       *time.Time `json:"reviewedAt,omitempty"`
	ReviewedByID     *string    `json:"reviewedById,omitempty"`
	ReviewComment    *string    `json:"reviewComment,omitempty"`
	StatusNote       *string    `json:"statusNote,omitempty"`
	BatchID          *string    `json:"batchId,omitempty"`
}

// IsEmpty 是否没有任何字段需要更新
func (u *Updates) IsEmpty() bool {
	return u == nil || *u == (Updates{})
}

// TouchesContent 是否修改了状态以外的业务字段
func (u *Updates) TouchesContent() bool {
	if u == nil {
		return false
	}
	return u.Title != nil || u.Description != nil || u.Priority != nil ||
		u.AssigneeID != nil || u.AssigneeName != nil || u.DueDate != nil ||
		u.WeekSubmittedFor != nil || u.EstimatedHours != nil
}

// Apply 将更新合并到任务上,不修改时间戳和版本
func (u *Updates) Apply(t *Task) {
	if u == nil || t == nil {
		return
	}
	if u.Title != nil {
		t.Title = *u.Title
	}
	if u.Description != nil {
		t.Description = *u.Description
	}
	if u.Status != nil {
		t.Status = *u.Status
	}
	if u.Priority != nil {
		t.Priority = *u.Priority
	}
	if u.AssigneeID != nil {
		t.AssigneeID = *u.AssigneeID
	}
	if u.AssigneeName != nil {
		t.AssigneeName = *u.AssigneeName
	}
	if u.DueDate != nil {
		d := *u.DueDate
		t.DueDate = &d
	}
	if u.WeekSubmittedFor != nil {
		t.WeekSubmittedFor = *u.WeekSubmittedFor
	}
	if u.EstimatedHours != nil {
		h := *u.EstimatedHours
		t.EstimatedHours = &h
	}
	if u.IsDraft != nil {
		t.IsDraft = *u.IsDraft
	}
	if u.SubmittedAt != nil {
		s := *u.SubmittedAt
		t.SubmittedAt = &s
	}
	if u.ReviewedAt != nil {
		r := *u.ReviewedAt
		t.ReviewedAt = &r
	}
	if u.ReviewedByID != nil {
		t.ReviewedByID = *u.ReviewedByID
	}
	if u.ReviewComment != nil {
		t.ReviewComment = *u.ReviewComment
	}
	if u.StatusNote != nil {
		t.StatusNote = *u.StatusNote
	}
	if u.BatchID != nil {
		t.BatchID = *u.BatchID
	}
}

// Filter 任务查询过滤器
type Filter struct {
	Status     *Status
	AssigneeID *string
	Week       *week.Week
	BatchID    *string
	IsDraft    *bool
}

// Match 任务是否满足过滤条件
func (f *Filter) Match(t *Task) bool {
	if f == nil {
		return true
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.AssigneeID != nil && t.AssigneeID != *f.AssigneeID {
		return false
	}
	if f.Week != nil && t.WeekSubmittedFor != *f.Week {
		return false
	}
	if f.BatchID != nil && t.BatchID != *f.BatchID {
		return false
	}
	if f.IsDraft != nil && t.IsDraft != *f.IsDraft {
		return false
	}
	return true
}
