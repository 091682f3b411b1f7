package schedule

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/modelbay/modelbay/internal/config"
)

func TestNewParsesSchedules(t *testing.T) {
	s, err := New(nil, []config.ScheduleConfig{
		{Name: "nightly", Artifact: "report", Function: "generate", Cron: "0 2 * * *", Enabled: true},
		{Name: "hourly", Artifact: "scanner", Function: "scan", Cron: "@hourly", Enabled: true},
	})
	require.NoError(t, err)
	require.Equal(t, 2, s.EntryCount())
}

func TestNewSkipsDisabled(t *testing.T) {
	s, err := New(nil, []config.ScheduleConfig{
		{Name: "off", Artifact: "report", Function: "generate", Cron: "* * * * *", Enabled: false},
	})
	require.NoError(t, err)
	require.Equal(t, 0, s.EntryCount())
}

func TestNewRejectsInvalidCron(t *testing.T) {
	_, err := New(nil, []config.ScheduleConfig{
		{Name: "bad", Artifact: "report", Function: "generate", Cron: "not a cron", Enabled: true},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad")
}

func TestMarkRunning(t *testing.T) {
	s, err := New(nil, nil)
	require.NoError(t, err)

	require.True(t, s.markRunning("nightly"))
	require.False(t, s.markRunning("nightly"))

	s.clearRunning("nightly")
	require.True(t, s.markRunning("nightly"))
}
