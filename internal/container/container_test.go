package container

import (
	"context"
	"testing"
	"time"

	"github.com/mautops/taskflow-gin/internal/config"
	"github.com/mautops/taskflow-gin/internal/service"
	"github.com/mautops/taskflow-gin/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(backend string) *config.Config {
	cfg := config.Default()
	cfg.Database = config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}
	cfg.Store.Backend = backend
	cfg.Auth.BcryptCost = 4
	return cfg
}

func TestNewContainer_WiresServices(t *testing.T) {
	for _, backend := range []string{"memory", "database"} {
		t.Run(backend, func(t *testing.T) {
			now := time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)
			c, err := NewContainer(testConfig(backend), nil, WithClock(func() time.Time { return now }))
			require.NoError(t, err)
			defer func() { assert.NoError(t, c.Close()) }()

			assert.Equal(t, "2025-W10", c.Calculator().CurrentWeek().String())
			ctx := context.Background()

			reg, err := c.AuthService().Register(ctx, &service.RegisterRequest{Name: "Alice", Email: "alice@example.com", Password: "correct-horse"})
			require.NoError(t, err)
			actor := reg.User.Identity()

			created, err := c.TaskService().Create(ctx, actor, &service.CreateTaskRequest{Title: "Plan sprint", WeekSubmittedFor: "2025-W11"})
			require.NoError(t, err)
			assert.Equal(t, task.StatusPendingApproval, created.Status)

			got, err := c.Store().Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, created.Title, got.Title)

			events, err := c.Events().Since(ctx, 0, actor.ID, 10)
			require.NoError(t, err)
			assert.NotEmpty(t, events)

			claims, err := c.Tokens().Validate(reg.Token)
			require.NoError(t, err)
			assert.Equal(t, actor, claims.Identity())
		})
	}
}

func TestNewContainer_InvalidTimezone(t *testing.T) {
	cfg := testConfig("memory")
	cfg.Week.Timezone = "Mars/Olympus"
	_, err := NewContainer(cfg, nil)
	assert.Error(t, err)
}
