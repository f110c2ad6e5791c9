package truenas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrAlreadyExists marks create calls that hit an entity the middleware
// already has. Callers treat it as success (the row is simply unchanged).
var ErrAlreadyExists = errors.New("already exists")

// ErrNotFound marks queries that matched nothing.
var ErrNotFound = errors.New("not found")

// Client talks to the TrueNAS middleware v2.0 REST API with bearer auth.
type Client struct {
	BaseURL string
	apiKey  string
	http    *http.Client
}

// NewClient accepts a bare host or a full http(s) URL.
func NewClient(host, apiKey string, timeout time.Duration) *Client {
	base := strings.TrimSuffix(host, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		base = "http://" + base
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		BaseURL: base + "/api/v2.0",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// do runs one request and decodes the response into out when out is non
// nil. Error payloads are folded into the returned error; 409 and the
// middleware's EEXIST style validation errors map to ErrAlreadyExists.
func (c *Client) do(method, path string, query url.Values, body any, out any) error {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s %s: %w", method, path, ErrAlreadyExists)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	case resp.StatusCode == 422 && looksLikeExists(respBody):
		return fmt.Errorf("%s %s: %w", method, path, ErrAlreadyExists)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s failed (%d): %s", method, path, resp.StatusCode, respBody)
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("%s %s: decode response: %w", method, path, err)
		}
	}
	return nil
}

// looksLikeExists sniffs the middleware validation payload for its
// duplicate entity markers.
func looksLikeExists(body []byte) bool {
	s := strings.ToLower(string(body))
	return strings.Contains(s, "eexist") || strings.Contains(s, "already exists") || strings.Contains(s, "already in use")
}

// idPath builds the /thing/id/{id} form the middleware uses for single
// entities. Dataset ids contain slashes and must be escaped.
func idPath(prefix string, id any) string {
	switch v := id.(type) {
	case string:
		return prefix + "/id/" + url.PathEscape(v)
	default:
		return fmt.Sprintf("%s/id/%v", prefix, v)
	}
}
