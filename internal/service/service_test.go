package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/mautops/taskflow-gin/internal/auth"
	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/database"
	"github.com/mautops/taskflow-gin/internal/event"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/mautops/taskflow-gin/internal/workflow"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	alice   = auth.Identity{ID: "alice", Name: "Alice", Email: "alice@example.com", Role: task.RoleEmployee}
	bob     = auth.Identity{ID: "bob", Name: "Bob", Email: "bob@example.com", Role: task.RoleEmployee}
	manager = auth.Identity{ID: "mia", Name: "Mia", Email: "mia@example.com", Role: task.RoleManager}

	// 2025-03-05 是 2025-W10 的周三,W10 已关闭,W11 开放
	testNow = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	w10     = week.MustParse("2025-W10")
	w11     = week.MustParse("2025-W11")
)

// recorder 记录发布的事件
type recorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *recorder) Publish(_ context.Context, ev event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) ofType(typ event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, ev := range r.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type harness struct {
	db      *gorm.DB
	store   *task.MemoryStore
	calc    *week.Calculator
	events  *recorder
	audit   AuditLogService
	history HistoryService
	tasks   TaskService
	reviews ReviewService
	reports ReportService
	stats   StatisticsService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))

	clock := func() time.Time { return testNow }
	h := &harness{
		db:     db,
		store:  task.NewMemoryStore(task.WithStoreClock(clock)),
		calc:   week.NewCalculator(week.WithClock(clock)),
		events: &recorder{},
	}
	cfg := TaskServiceConfig{RequireRejectComment: true}
	h.audit = NewAuditLogService(repository.NewAuditLogRepository(db))
	h.history = NewHistoryService(repository.NewStateHistoryRepository(db))
	h.tasks = NewTaskService(h.store, h.calc, h.history, repository.NewCommentRepository(db), h.audit, h.events, nil, cfg)
	h.reviews = NewReviewService(h.tasks, workflow.NewBoards(), repository.NewReviewRecordRepository(db), h.audit, h.events, nil, cfg)
	h.reports = NewReportService(h.tasks, h.store, h.calc)
	h.stats = NewStatisticsService(db)
	return h
}

func (h *harness) create(t *testing.T, actor auth.Identity, req CreateTaskRequest) *task.Task {
	t.Helper()
	created, err := h.tasks.Create(context.Background(), actor, &req)
	require.NoError(t, err)
	return created
}

func ptr[T any](v T) *T {
	return &v
}
