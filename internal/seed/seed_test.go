package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/container"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
users:
  - name: Alice
    email: alice@example.com
    password: correct-horse
  - name: Mia
    email: mia@example.com
    password: correct-horse
    role: manager
tasks:
  - owner: alice@example.com
    title: Write release notes
    priority: high
    week: 2025-W11
    due_date: 2025-03-14
    estimated_hours: 4
  - owner: Alice@Example.com
    title: Plan sprint
    draft: true
  - owner: nobody@example.com
    title: Orphan
  - owner: alice@example.com
    title: Bad date
    due_date: 14/03/2025
`

func newContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = ":memory:"
	cfg.Auth.BcryptCost = 4
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	c, err := container.NewContainer(cfg, logger, container.WithClock(func() time.Time {
		return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestParse(t *testing.T) {
	f, err := Parse([]byte(sample))
	require.NoError(t, err)
	require.Len(t, f.Users, 2)
	require.Len(t, f.Tasks, 4)
	assert.Equal(t, "manager", f.Users[1].Role)
	require.NotNil(t, f.Tasks[0].EstimatedHours)
	assert.InDelta(t, 4.0, *f.Tasks[0].EstimatedHours, 0.001)
	assert.True(t, f.Tasks[1].Draft)

	_, err = Parse([]byte("users:\n  - name: NoMail\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("users: ["))
	assert.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSeeder_Apply(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))
	f, err := Load(path)
	require.NoError(t, err)

	s := NewSeeder(c.AuthService(), c.TaskService(), c.Logger())
	result, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Users)
	assert.Equal(t, 2, result.Tasks)
	assert.Equal(t, 2, result.Skipped)

	users, err := c.AuthService().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)

	var mia *service.User
	for _, u := range users {
		if u.Role == task.RoleManager {
			mia = u
		}
	}
	require.NotNil(t, mia)
	page, err := c.TaskService().List(ctx, mia.Identity(), &service.ListTasksFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Total)

	// 再次导入时用户已存在,只补充任务
	again, err := s.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Users)
	assert.Equal(t, 2, again.Tasks)
}

func TestSeeder_WrongPasswordForExistingUser(t *testing.T) {
	c := newContainer(t)
	ctx := context.Background()
	s := NewSeeder(c.AuthService(), c.TaskService(), nil)

	_, err := s.Apply(ctx, &File{Users: []User{{Name: "A", Email: "a@example.com", Password: "correct-horse"}}})
	require.NoError(t, err)

	_, err = s.Apply(ctx, &File{Users: []User{{Name: "A", Email: "a@example.com", Password: "other-password"}}})
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}
