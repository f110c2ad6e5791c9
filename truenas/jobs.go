package truenas

import (
	"fmt"
	"time"
)

const jobWaitTimeout = 30 * time.Second

type Job struct {
	ID     int    `json:"id"`
	Method string `json:"method"`
	State  string `json:"state"`
}

// GetJobs lists the middleware job queue.
func (c *Client) GetJobs() ([]Job, error) {
	var jobs []Job
	if err := c.do("GET", "/core/get_jobs", nil, nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// WaitForJobs polls the job queue every 500ms until nothing is RUNNING or
// WAITING, bounded by timeout. A failing job listing falls back to a brief
// wait rather than an error: the mutation already succeeded, this is only
// settling time.
func (c *Client) WaitForJobs(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		jobs, err := c.GetJobs()
		if err != nil {
			time.Sleep(2 * time.Second)
			return nil
		}
		busy := false
		for _, job := range jobs {
			if job.State == "RUNNING" || job.State == "WAITING" {
				busy = true
				break
			}
		}
		if !busy {
			return nil
		}
		time.Sleep(500 * time.Millisecond)
	}
	return fmt.Errorf("jobs still running after %s", timeout)
}
