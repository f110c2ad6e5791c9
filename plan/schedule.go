package plan

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// Schedule is the five field crontab form the middleware expects.
type Schedule struct {
	Minute string `json:"minute"`
	Hour   string `json:"hour"`
	Dom    string `json:"dom"`
	Month  string `json:"month"`
	Dow    string `json:"dow"`
}

func (s Schedule) String() string {
	return strings.Join([]string{s.Minute, s.Hour, s.Dom, s.Month, s.Dow}, " ")
}

var frequencySchedules = map[string]Schedule{
	"15min":  {"*/15", "*", "*", "*", "*"},
	"hourly": {"0", "*", "*", "*", "*"},
	"4h":     {"0", "*/4", "*", "*", "*"},
	"daily":  {"0", "0", "*", "*", "*"},
	"weekly": {"0", "0", "*", "*", "0"},
}

// CronSchedule resolves the task to a middleware schedule. A raw schedule
// wins over the frequency enum; both go through the standard cron parser.
func (t SnapshotTask) CronSchedule() (Schedule, error) {
	if t.Schedule != "" {
		fields := strings.Fields(t.Schedule)
		if len(fields) != 5 {
			return Schedule{}, fmt.Errorf("schedule %q must have 5 cron fields", t.Schedule)
		}
		if _, err := cron.ParseStandard(t.Schedule); err != nil {
			return Schedule{}, fmt.Errorf("schedule %q: %w", t.Schedule, err)
		}
		return Schedule{fields[0], fields[1], fields[2], fields[3], fields[4]}, nil
	}
	s, ok := frequencySchedules[t.Frequency]
	if !ok {
		return Schedule{}, fmt.Errorf("unknown frequency %q", t.Frequency)
	}
	return s, nil
}
