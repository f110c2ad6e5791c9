package truenas

import (
	"strings"
)

// Prop is the middleware's composite property form; only the effective
// value matters here.
type Prop struct {
	Value string `json:"value"`
}

type Dataset struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Mountpoint  string `json:"mountpoint"`
	Recordsize  Prop   `json:"recordsize"`
	Compression Prop   `json:"compression"`
	Atime       Prop   `json:"atime"`
	Exec        Prop   `json:"exec"`
	Comments    Prop   `json:"comments"`
}

// DatasetProps is the create/update body. Zero fields are left to the
// middleware defaults (or inherited from the parent dataset).
type DatasetProps struct {
	Recordsize  string
	Compression string
	Atime       bool
	Exec        bool
	Quota       string
	Comments    string
}

func (p DatasetProps) body() map[string]any {
	onOff := func(b bool) string {
		if b {
			return "ON"
		}
		return "OFF"
	}
	body := map[string]any{
		"atime": onOff(p.Atime),
		"exec":  onOff(p.Exec),
	}
	if p.Recordsize != "" {
		body["recordsize"] = p.Recordsize
	}
	if p.Compression != "" {
		body["compression"] = strings.ToUpper(p.Compression)
	}
	if p.Comments != "" {
		body["comments"] = p.Comments
	}
	if p.Quota != "" {
		body["refquota"] = p.Quota
	}
	return body
}

// QueryDataset fetches a dataset by its full pool relative name.
func (c *Client) QueryDataset(name string) (*Dataset, error) {
	var ds Dataset
	if err := c.do("GET", idPath("/pool/dataset", name), nil, nil, &ds); err != nil {
		return nil, err
	}
	return &ds, nil
}

// CreateDataset creates a filesystem dataset with the given properties.
func (c *Client) CreateDataset(name string, props DatasetProps) error {
	body := props.body()
	body["name"] = name
	body["type"] = "FILESYSTEM"
	return c.do("POST", "/pool/dataset", nil, body, nil)
}

// UpdateDataset applies properties to an existing dataset.
func (c *Client) UpdateDataset(name string, props DatasetProps) error {
	return c.do("PUT", idPath("/pool/dataset", name), nil, props.body(), nil)
}

// DeleteDataset destroys a dataset. The middleware runs the destroy as a
// job, so wait for the job queue to drain before returning.
func (c *Client) DeleteDataset(name string, recursive bool) error {
	body := map[string]any{"recursive": recursive}
	if err := c.do("DELETE", idPath("/pool/dataset", name), nil, body, nil); err != nil {
		return err
	}
	return c.WaitForJobs(jobWaitTimeout)
}
