package task

import (
	"testing"

	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/database"
	"github.com/mautops/taskflow-gin/internal/model"
	"github.com/mautops/taskflow-gin/internal/repository"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDBStore 基于 sqlite 内存库创建存储
func newTestDBStore(t *testing.T, clock week.Clock) *DBStore {
	t.Helper()
	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.Migrate(db))
	return NewDBStore(repository.NewTaskRepository(db), clock)
}

func TestToModelFromModel(t *testing.T) {
	due := NewDate(2025, 3, 14)
	hours := 4.5
	orig := &Task{
		ID:               "task-1",
		Title:            "Write report",
		Status:           StatusInProgress,
		Priority:         PriorityHigh,
		AssigneeID:       "u-1",
		DueDate:          &due,
		WeekSubmittedFor: w10,
		EstimatedHours:   &hours,
		Version:          3,
	}

	m := ToModel(orig)
	assert.Equal(t, "2025-W10", m.WeekSubmittedFor)
	require.NotNil(t, m.DueDate)
	assert.Equal(t, "2025-03-14", *m.DueDate)

	back, err := FromModel(m)
	require.NoError(t, err)
	assert.Equal(t, orig.WeekSubmittedFor, back.WeekSubmittedFor)
	assert.Equal(t, orig.DueDate.String(), back.DueDate.String())
	assert.Equal(t, StatusInProgress, back.Status)
}

func TestFromModel_RejectsUnknownStatus(t *testing.T) {
	_, err := FromModel(&model.TaskModel{ID: "task-1", Status: "archived", Priority: "low"})
	assert.Error(t, err)
}
