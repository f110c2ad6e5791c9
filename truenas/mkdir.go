package truenas

import "errors"

// Mkdir creates a directory on the NAS filesystem. An existing directory
// is not an error; home directories get re-applied on every run.
func (c *Client) Mkdir(path string) error {
	err := c.do("POST", "/filesystem/mkdir", nil, path, nil)
	if errors.Is(err, ErrAlreadyExists) {
		return nil
	}
	return err
}
