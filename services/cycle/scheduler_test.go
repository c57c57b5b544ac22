package cycle

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNextRunTime(t *testing.T) {
	loc := time.UTC

	// Before today's slot: run today.
	now := time.Date(2025, time.May, 15, 0, 30, 0, 0, loc)
	next := nextRunTime(now, 1, 0)
	require.Equal(t, time.Date(2025, time.May, 15, 1, 0, 0, 0, loc), next)

	// Past today's slot: run tomorrow.
	now = time.Date(2025, time.May, 15, 9, 0, 0, 0, loc)
	next = nextRunTime(now, 1, 0)
	require.Equal(t, time.Date(2025, time.May, 16, 1, 0, 0, 0, loc), next)

	// Exactly on the slot counts as not yet passed.
	now = time.Date(2025, time.May, 15, 1, 0, 0, 0, loc)
	next = nextRunTime(now, 1, 0)
	require.Equal(t, now, next)
}

func TestNewGenerateTask(t *testing.T) {
	task := NewGenerateTask(time.Date(2025, time.May, 15, 13, 45, 0, 0, time.UTC), "scheduler")
	require.Equal(t, TaskGenerateCycles, task.Type())

	var payload GeneratePayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "2025-05-15", payload.RunDate)
	require.Equal(t, "scheduler", payload.TriggeredBy)
}
