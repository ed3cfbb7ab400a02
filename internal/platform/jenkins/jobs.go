package jenkins

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// JobExists reports whether a job with the given name exists.
func (c *Client) JobExists(ctx context.Context, name string) (bool, error) {
	resp, err := c.do(ctx, http.MethodGet, "/job/"+url.PathEscape(name)+"/api/json", nil, "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := c.checkStatus("job lookup", resp); err != nil {
		return false, err
	}

	return true, nil
}

// CreateJob creates a new job from its XML definition.
func (c *Client) CreateJob(ctx context.Context, name, configXML string) error {
	path := "/createItem?name=" + url.QueryEscape(name)
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(configXML), "application/xml")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(fmt.Sprintf("create job %s", name), resp)
}

// ReconfigureJob replaces an existing job's XML definition.
func (c *Client) ReconfigureJob(ctx context.Context, name, configXML string) error {
	path := "/job/" + url.PathEscape(name) + "/config.xml"
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(configXML), "application/xml")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(fmt.Sprintf("reconfigure job %s", name), resp)
}
