package truenas

import (
	"net/url"

	"nasforge/plan"
)

type SnapshotTask struct {
	ID            int           `json:"id"`
	Dataset       string        `json:"dataset"`
	Recursive     bool          `json:"recursive"`
	LifetimeValue int           `json:"lifetime_value"`
	LifetimeUnit  string        `json:"lifetime_unit"`
	NamingSchema  string        `json:"naming_schema"`
	Enabled       bool          `json:"enabled"`
	Schedule      plan.Schedule `json:"schedule"`
}

// QuerySnapshotTasks lists the tasks configured for one dataset.
func (c *Client) QuerySnapshotTasks(dataset string) ([]SnapshotTask, error) {
	q := url.Values{}
	q.Set("dataset", dataset)
	var tasks []SnapshotTask
	if err := c.do("GET", "/pool/snapshottask", q, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func snapshotTaskBody(dataset string, recursive bool, ret plan.Retention, naming string, sched plan.Schedule) map[string]any {
	return map[string]any{
		"dataset":        dataset,
		"recursive":      recursive,
		"lifetime_value": ret.Value,
		"lifetime_unit":  ret.Unit,
		"naming_schema":  naming,
		"enabled":        true,
		"schedule": map[string]string{
			"minute": sched.Minute,
			"hour":   sched.Hour,
			"dom":    sched.Dom,
			"month":  sched.Month,
			"dow":    sched.Dow,
		},
	}
}

// CreateSnapshotTask registers a periodic snapshot task and returns its id.
func (c *Client) CreateSnapshotTask(dataset string, recursive bool, ret plan.Retention, naming string, sched plan.Schedule) (int, error) {
	var created struct {
		ID int `json:"id"`
	}
	body := snapshotTaskBody(dataset, recursive, ret, naming, sched)
	if err := c.do("POST", "/pool/snapshottask", nil, body, &created); err != nil {
		return 0, err
	}
	return created.ID, nil
}

// UpdateSnapshotTask rewrites an existing task in place.
func (c *Client) UpdateSnapshotTask(id int, dataset string, recursive bool, ret plan.Retention, naming string, sched plan.Schedule) error {
	body := snapshotTaskBody(dataset, recursive, ret, naming, sched)
	return c.do("PUT", idPath("/pool/snapshottask", id), nil, body, nil)
}

// DeleteSnapshotTask removes a task.
func (c *Client) DeleteSnapshotTask(id int) error {
	return c.do("DELETE", idPath("/pool/snapshottask", id), nil, nil, nil)
}
