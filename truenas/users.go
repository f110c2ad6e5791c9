package truenas

import (
	"errors"
	"net/url"
	"strconv"
)

type User struct {
	ID       int    `json:"id"`
	UID      int    `json:"uid"`
	Username string `json:"username"`
	Home     string `json:"home"`
	Shell    string `json:"shell"`
	FullName string `json:"full_name"`
	Builtin  bool   `json:"builtin"`
	Locked   bool   `json:"locked"`
}

type Group struct {
	ID      int    `json:"id"`
	GID     int    `json:"gid"`
	Name    string `json:"group"`
	Builtin bool   `json:"builtin"`
}

// QueryUser looks a user up by username. ErrNotFound when absent.
func (c *Client) QueryUser(username string) (*User, error) {
	q := url.Values{}
	q.Set("username", username)
	var users []User
	if err := c.do("GET", "/user", q, nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNotFound
	}
	return &users[0], nil
}

// CreateUser creates a service account. groupID is the middleware group
// entry id, not the gid. Returns the new user entry id.
func (c *Client) CreateUser(username string, uid, groupID int, home, shell, fullName string) (int, error) {
	reqBody := map[string]any{
		"username":          username,
		"uid":               uid,
		"group":             groupID,
		"home":              home,
		"shell":             shell,
		"full_name":         fullName,
		"password_disabled": true,
		"smb":               false,
		"home_create":       false,
	}
	var id int
	if err := c.do("POST", "/user", nil, reqBody, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateUser patches selected fields of a user entry.
func (c *Client) UpdateUser(id int, fields map[string]any) error {
	return c.do("PUT", idPath("/user", id), nil, fields, nil)
}

// QueryGroup looks a group up by name. ErrNotFound when absent.
func (c *Client) QueryGroup(name string) (*Group, error) {
	q := url.Values{}
	q.Set("group", name)
	var groups []Group
	if err := c.do("GET", "/group", q, nil, &groups); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNotFound
	}
	return &groups[0], nil
}

// QueryGroupByGID resolves a gid to its middleware entry.
func (c *Client) QueryGroupByGID(gid int) (*Group, error) {
	q := url.Values{}
	q.Set("gid", strconv.Itoa(gid))
	var groups []Group
	if err := c.do("GET", "/group", q, nil, &groups); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return nil, ErrNotFound
	}
	return &groups[0], nil
}

// CreateGroup creates a group and returns its entry id. When the group
// already exists the existing entry id is returned instead.
func (c *Client) CreateGroup(name string, gid int) (int, error) {
	reqBody := map[string]any{
		"name": name,
		"gid":  gid,
		"smb":  false,
	}
	var id int
	err := c.do("POST", "/group", nil, reqBody, &id)
	if errors.Is(err, ErrAlreadyExists) {
		g, qerr := c.QueryGroup(name)
		if qerr != nil {
			return 0, err
		}
		return g.ID, nil
	}
	if err != nil {
		return 0, err
	}
	return id, nil
}
