package plan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCronScheduleFrequencies(t *testing.T) {
	cases := []struct {
		frequency string
		want      Schedule
	}{
		{"15min", Schedule{"*/15", "*", "*", "*", "*"}},
		{"hourly", Schedule{"0", "*", "*", "*", "*"}},
		{"4h", Schedule{"0", "*/4", "*", "*", "*"}},
		{"daily", Schedule{"0", "0", "*", "*", "*"}},
		{"weekly", Schedule{"0", "0", "*", "*", "0"}},
	}
	for _, tc := range cases {
		t.Run(tc.frequency, func(t *testing.T) {
			got, err := SnapshotTask{Frequency: tc.frequency}.CronSchedule()
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCronScheduleRawWinsOverFrequency(t *testing.T) {
	task := SnapshotTask{Frequency: "daily", Schedule: "30 2 * * *"}
	got, err := task.CronSchedule()
	require.NoError(t, err)
	assert.Equal(t, Schedule{"30", "2", "*", "*", "*"}, got)
}

func TestCronScheduleRejectsBadInput(t *testing.T) {
	_, err := SnapshotTask{Schedule: "not a cron line"}.CronSchedule()
	assert.Error(t, err)

	_, err = SnapshotTask{Schedule: "99 * * * *"}.CronSchedule()
	assert.Error(t, err)

	_, err = SnapshotTask{Frequency: "fortnightly"}.CronSchedule()
	assert.Error(t, err)
}

func TestScheduleString(t *testing.T) {
	s := Schedule{"*/15", "*", "*", "*", "*"}
	assert.Equal(t, "*/15 * * * *", s.String())
}
