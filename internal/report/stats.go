// Package report 计算任务集合的只读统计视图
package report

import (
	"math"
	"sort"
	"time"

	"github.com/mautops/taskflow-gin/internal/task"
)

// Summary 任务统计汇总
type Summary struct {
	Total           int                   `json:"total"`
	Completed       int                   `json:"completed"`
	InProgress      int                   `json:"inProgress"`
	PendingApproval int                   `json:"pendingApproval"`
	Overdue         int                   `json:"overdue"`
	CompletionRate  float64               `json:"completionRate"` // 百分比,保留一位小数
	EstimatedHours  float64               `json:"estimatedHours"`
	ByPriority      map[task.Priority]int `json:"byPriority"`
	ByStatus        map[task.Status]int   `json:"byStatus"`
	ByStaff         []StaffSummary        `json:"byStaff"`
}

// StaffSummary 单个员工的统计
type StaffSummary struct {
	StaffID        string  `json:"staffId"`
	StaffName      string  `json:"staffName"`
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	InProgress     int     `json:"inProgress"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completionRate"`
}

// IsOverdue 截止日期早于 now 且未完成
func IsOverdue(t *task.Task, now time.Time) bool {
	if t == nil || t.DueDate == nil || t.Status.IsCompletion() {
		return false
	}
	return t.DueDate.Before(now)
}

// Summarize 汇总任务统计,不修改输入
func Summarize(tasks []*task.Task, now time.Time) Summary {
	s := Summary{
		ByPriority: make(map[task.Priority]int, len(task.AllPriorities)),
		ByStatus:   make(map[task.Status]int, len(task.AllStatuses)),
	}
	for _, p := range task.AllPriorities {
		s.ByPriority[p] = 0
	}
	for _, st := range task.AllStatuses {
		s.ByStatus[st] = 0
	}

	staff := make(map[string]*StaffSummary)
	for _, t := range tasks {
		if t == nil {
			continue
		}
		s.Total++
		s.ByPriority[t.Priority]++
		s.ByStatus[t.Status]++
		if t.EstimatedHours != nil {
			s.EstimatedHours += *t.EstimatedHours
		}

		ss, ok := staff[t.AssigneeID]
		if !ok {
			ss = &StaffSummary{StaffID: t.AssigneeID, StaffName: t.AssigneeName}
			staff[t.AssigneeID] = ss
		}
		ss.Total++

		if t.Status.IsCompletion() {
			s.Completed++
			ss.Completed++
		}
		if t.Status == task.StatusInProgress {
			s.InProgress++
			ss.InProgress++
		}
		if t.Status == task.StatusPendingApproval {
			s.PendingApproval++
		}
		if IsOverdue(t, now) {
			s.Overdue++
			ss.Overdue++
		}
	}

	s.CompletionRate = rate(s.Completed, s.Total)
	s.ByStaff = make([]StaffSummary, 0, len(staff))
	for _, ss := range staff {
		ss.CompletionRate = rate(ss.Completed, ss.Total)
		s.ByStaff = append(s.ByStaff, *ss)
	}
	sort.Slice(s.ByStaff, func(i, j int) bool {
		if s.ByStaff[i].StaffName != s.ByStaff[j].StaffName {
			return s.ByStaff[i].StaffName < s.ByStaff[j].StaffName
		}
		return s.ByStaff[i].StaffID < s.ByStaff[j].StaffID
	})
	return s
}

func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}
