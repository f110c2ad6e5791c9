package truenas

// SetPerm chowns a path through the middleware. Runs as a job server side.
func (c *Client) SetPerm(path string, uid, gid int, recursive bool) error {
	body := map[string]any{
		"path": path,
		"uid":  uid,
		"gid":  gid,
		"options": map[string]any{
			"recursive": recursive,
			"traverse":  false,
		},
	}
	if err := c.do("POST", "/filesystem/setperm", nil, body, nil); err != nil {
		return err
	}
	return c.WaitForJobs(jobWaitTimeout)
}
