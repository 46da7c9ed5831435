package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionRejectsUnknownStatuses(t *testing.T) {
	assert.False(t, CanTransition("BOGUS", StatusStopped))
	assert.False(t, CanTransition(StatusStopped, "BOGUS"))
}

func TestErrorReachableFromEveryStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, CanTransition(s, StatusError), "from %s", s)
	}
}

func TestLifecycleEdges(t *testing.T) {
	legal := [][2]Status{
		{StatusNotInstalled, StatusStopped},
		{StatusStopped, StatusStarting},
		{StatusStarting, StatusRunning},
		{StatusRunning, StatusStopping},
		{StatusStopping, StatusStopped},
		{StatusRunning, StatusRestarting},
		{StatusRestarting, StatusStarting},
		{StatusRunning, StatusUpdating},
		{StatusStopped, StatusUpdating},
		{StatusUpdating, StatusStopped},
		{StatusVerifying, StatusStopped},
	}
	for _, edge := range legal {
		assert.True(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}

	illegal := [][2]Status{
		{StatusStopped, StatusRunning},
		{StatusRunning, StatusStarting},
		{StatusStopping, StatusRunning},
		{StatusUpdating, StatusRunning},
		{StatusNotInstalled, StatusStarting},
		{StatusVerifying, StatusRunning},
	}
	for _, edge := range illegal {
		assert.False(t, CanTransition(edge[0], edge[1]), "%s -> %s", edge[0], edge[1])
	}
}

func TestBusyStatuses(t *testing.T) {
	assert.True(t, StatusStarting.Busy())
	assert.True(t, StatusUpdating.Busy())
	assert.False(t, StatusRunning.Busy())
	assert.False(t, StatusStopped.Busy())
	assert.False(t, StatusError.Busy())
}

func TestParseTimeOfDay(t *testing.T) {
	h, m, err := ParseTimeOfDay("04:30")
	assert.NoError(t, err)
	assert.Equal(t, 4, h)
	assert.Equal(t, 30, m)

	for _, bad := range []string{"", "4", "24:00", "12:60", "ab:cd"} {
		_, _, err := ParseTimeOfDay(bad)
		assert.Error(t, err, bad)
	}
}

func TestDefaultServerConfigIsValid(t *testing.T) {
	cfg := DefaultServerConfig(0)
	assert.Equal(t, "My Ark Server 1", cfg.SessionName)
	assert.NoError(t, cfg.Validate())

	cfg.ScheduledRestartTime = "25:00"
	assert.Error(t, cfg.Validate())
}
