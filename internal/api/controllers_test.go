package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"healthy"`)

	w, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "api_requests_total")
}

func TestAuthEndpoints(t *testing.T) {
	s := newTestServer(t)
	token, id := s.register(t, "Alice", "alice@example.com", "")

	w, env := s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[service.User](t, env.Data)
	assert.Equal(t, id, me.ID)
	assert.Equal(t, task.RoleEmployee, me.Role)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "Dup", "email": "ALICE@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope-nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/register", "", gin.H{"name": "Bob", "email": "bob", "password": "correct-horse"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_EMAIL", env.Reason)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWeeksEndpoint(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.register(t, "Alice", "alice@example.com", "")

	w, env := s.do(t, http.MethodGet, "/api/v1/weeks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	weeks := decode[WeeksResponse](t, env.Data)
	assert.Equal(t, "2025-W10", weeks.CurrentWeek)
	assert.Equal(t, "2025-W11", weeks.NextWeek)
	assert.False(t, weeks.CurrentOpen)
	require.NotEmpty(t, weeks.Available)
	assert.Equal(t, "2025-W11", weeks.Available[0].Value)
}

func TestWeeklySubmissionAndReview(t *testing.T) {
	s := newTestServer(t)
	alice, aliceID := s.register(t, "Alice", "alice@example.com", "employee")
	mia, _ := s.register(t, "Mia", "mia@example.com", "manager")

	// 1. 员工保存两条草稿并一起提交
	w, env := s.do(t, http.MethodPost, "/api/v1/tasks/drafts/bulk", alice, gin.H{
		"week":  "2025-W11",
		"tasks": []gin.H{{"title": "Write release notes", "estimatedHours": 2}, {"title": "Fix login bug", "priority": "high"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	drafts := decode[[]*task.Task](t, env.Data)
	require.Len(t, drafts, 2)
	assert.True(t, drafts[0].IsDraft)

	w, env = s.do(t, http.MethodPost, "/api/v1/tasks/submit", alice, gin.H{
		"taskIds": []string{drafts[0].ID, drafts[1].ID},
		"week":    "2025-W11",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	submitted := decode[[]*task.Task](t, env.Data)
	require.Len(t, submitted, 2)
	assert.Equal(t, submitted[0].BatchID, submitted[1].BatchID)
	assert.Equal(t, task.StatusPendingApproval, submitted[0].Status)

	w, env = s.do(t, http.MethodGet, "/api/v1/batches", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), submitted[0].BatchID)

	// 2. 员工不能访问审批接口
	w, _ = s.do(t, http.MethodGet, "/api/v1/reviews", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 3. 经理逐个决定后提交批次
	w, env = s.do(t, http.MethodGet, "/api/v1/reviews", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	batches := decode[[]*service.ReviewBatchView](t, env.Data)
	require.Len(t, batches, 1)
	key := batches[0].Key
	assert.Equal(t, aliceID+"@2025-W11", key)

	w, _ = s.do(t, http.MethodPost, "/api/v1/reviews/"+key+"/submit", mia, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, _ = s.do(t, http.MethodPut, "/api/v1/reviews/"+key+"/decisions/"+drafts[0].ID, mia, gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, w.Code)
	w, env = s.do(t, http.MethodPut, "/api/v1/reviews/"+key+"/decisions/"+drafts[1].ID, mia, gin.H{"decision": "reject", "comment": "split it up"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[service.ReviewBatchView](t, env.Data).CanSubmit)

	w, env = s.do(t, http.MethodPost, "/api/v1/reviews/"+key+"/submit", mia, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decode[service.ReviewResult](t, env.Data)
	assert.Equal(t, 1, result.Approved)
	assert.Equal(t, 1, result.Rejected)

	// 4. 员工看到审批结果、历史和审批记录
	w, env = s.do(t, http.MethodGet, "/api/v1/tasks/"+drafts[0].ID, alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, task.StatusInProgress, decode[task.Task](t, env.Data).Status)

	w, env = s.do(t, http.MethodGet, "/api/v1/tasks/"+drafts[1].ID+"/history", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]service.StateHistory](t, env.Data)
	var states []task.Status
	for _, h := range history {
		states = append(states, h.ToState)
	}
	assert.Contains(t, states, task.StatusRejected)
	assert.Contains(t, states, task.StatusPendingApproval)

	w, env = s.do(t, http.MethodGet, "/api/v1/tasks/"+drafts[1].ID+"/reviews", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	records := decode[[]service.ReviewRecord](t, env.Data)
	require.Len(t, records, 1)
	assert.Equal(t, "split it up", records[0].Comment)

	// 5. 统计和报表
	w, env = s.do(t, http.MethodGet, "/api/v1/reviews/stats", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode[ReviewStatsResponse](t, env.Data)
	assert.EqualValues(t, 2, stats.Overall.TotalReviews)

	w, env = s.do(t, http.MethodGet, "/api/v1/reports/summary?week=2025-W11", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":2`)

	// 6. 通知只发给员工本人
	w, env = s.do(t, http.MethodGet, "/api/v1/events?since=0", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"notification"`)
	w, env = s.do(t, http.MethodGet, "/api/v1/events?since=0", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, string(env.Data), `"notification"`)
}

func TestTaskEndpoints_Errors(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.register(t, "Alice", "alice@example.com", "")
	bob, _ := s.register(t, "Bob", "bob@example.com", "")

	w, _ := s.do(t, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": "Late", "weekSubmittedFor": "2025-W10"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "SUBMISSION_CLOSED", env.Reason)

	w, env = s.do(t, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": "Bad hours", "estimatedHours": 0.1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_HOURS", env.Reason)

	w, _ = s.do(t, http.MethodPost, "/api/v1/tasks", alice, `{"title":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": "Draft", "isDraft": true})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	draft := decode[task.Task](t, env.Data)
	assert.Equal(t, "2025-W11", draft.WeekSubmittedFor.String())

	// 其他员工看不到该任务
	w, _ = s.do(t, http.MethodGet, "/api/v1/tasks/"+draft.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/tasks/bad$id", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// 过期版本返回 409 和当前任务
	w, env = s.do(t, http.MethodPatch, "/api/v1/tasks/"+draft.ID, alice, gin.H{"title": "Renamed", "expectedVersion": draft.Version + 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, draft.ID, decode[task.Task](t, env.Data).ID)

	w, env = s.do(t, http.MethodPatch, "/api/v1/tasks/"+draft.ID, alice, gin.H{"title": "Renamed", "expectedVersion": draft.Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Renamed", decode[task.Task](t, env.Data).Title)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/tasks/"+draft.ID, alice, gin.H{"status": "done"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/tasks/"+draft.ID+"/transitions", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"value":"pending_approval"`)

	w, _ = s.do(t, http.MethodPatch, "/api/v1/tasks/"+draft.ID, alice, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodDelete, "/api/v1/tasks/"+draft.ID, bob, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = s.do(t, http.MethodDelete, "/api/v1/tasks/"+draft.ID, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = s.do(t, http.MethodGet, "/api/v1/tasks/"+draft.ID, alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTaskList_PaginationAndComments(t *testing.T) {
	s := newTestServer(t)
	alice, _ := s.register(t, "Alice", "alice@example.com", "")
	mia, _ := s.register(t, "Mia", "mia@example.com", "manager")

	var first task.Task
	for i := 0; i < 3; i++ {
		w, env := s.do(t, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": fmt.Sprintf("task %d", i), "weekSubmittedFor": "2025-W11"})
		require.Equal(t, http.StatusCreated, w.Code)
		if i == 0 {
			first = decode[task.Task](t, env.Data)
		}
	}

	w, env := s.do(t, http.MethodGet, "/api/v1/tasks?page=1&page_size=2&status=pending_approval", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]*task.Task](t, env.Data), 2)
	assert.Equal(t, PaginationInfo{Page: 1, PageSize: 2, Total: 3, TotalPage: 2}, env.Pagination)

	w, _ = s.do(t, http.MethodGet, "/api/v1/tasks?week=someday", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/tasks/"+first.ID+"/comments", mia, gin.H{"body": "Please add estimates"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Please add estimates", decode[service.Comment](t, env.Data).Body)

	w, env = s.do(t, http.MethodGet, "/api/v1/tasks/"+first.ID+"/comments", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.Comment](t, env.Data), 1)

	w, _ = s.do(t, http.MethodPost, "/api/v1/tasks/"+first.ID+"/comments", alice, gin.H{"body": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestManagerOnlyEndpoints(t *testing.T) {
	s := newTestServer(t)
	alice, aliceID := s.register(t, "Alice", "alice@example.com", "")
	mia, _ := s.register(t, "Mia", "mia@example.com", "manager")

	w, env := s.do(t, http.MethodPost, "/api/v1/tasks", alice, gin.H{"title": "Audit me", "weekSubmittedFor": "2025-W11"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode[task.Task](t, env.Data)

	for _, path := range []string{"/api/v1/users", "/api/v1/audit-logs?user_id=" + aliceID, "/api/v1/reviews/stats", "/api/v1/reports/transitions"} {
		w, _ = s.do(t, http.MethodGet, path, alice, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}

	w, env = s.do(t, http.MethodGet, "/api/v1/users", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]service.User](t, env.Data), 2)

	w, env = s.do(t, http.MethodGet, "/api/v1/audit-logs?resource_type=task&resource_id="+created.ID, mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	logs := decode[[]service.AuditLogEntry](t, env.Data)
	require.NotEmpty(t, logs)
	assert.Equal(t, aliceID, logs[0].UserID)
	assert.NotEmpty(t, logs[0].RequestID)

	w, _ = s.do(t, http.MethodGet, "/api/v1/audit-logs", mia, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/reports/transitions?week=2025-W11", mia, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int64{"pending_approval": 1}, decode[map[string]int64](t, env.Data))

	w, _ = s.do(t, http.MethodGet, "/api/v1/reports/transitions?week=W11", mia, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/events?since=abc", mia, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
