package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/mautops/taskflow-gin/internal/week"
	"github.com/stretchr/testify/assert"
)

func TestRootCommandTree(t *testing.T) {
	names := map[string]bool{}
	for _, c := range GetRootCmd().Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"server", "migrate", "weeks", "login", "logout", "whoami"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, GetRootCmd().PersistentFlags().Lookup("config"))
}

func TestPrintWeeks(t *testing.T) {
	color.NoColor = true
	calc := week.NewCalculator(
		week.WithClock(func() time.Time { return time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC) }),
		week.WithMaxWeeksAhead(2),
	)

	var buf bytes.Buffer
	printWeeks(&buf, calc)
	out := buf.String()

	assert.Contains(t, out, "Current week: 2025-W10")
	assert.Contains(t, out, "submission closed")
	assert.Contains(t, out, "2025-W11")
	assert.Contains(t, out, "2025-W12")
	assert.NotContains(t, out, "2025-W13")
}
