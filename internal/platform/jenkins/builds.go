package jenkins

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Build is a single run of a job.
type Build struct {
	Number   int64  `json:"number"`
	Building bool   `json:"building"`
	Result   string `json:"result"` // SUCCESS, FAILURE, ABORTED; empty while building
}

// InputAction is a paused pipeline input step awaiting approval.
type InputAction struct {
	ID         string `json:"id"`
	Message    string `json:"message"`
	ProceedURL string `json:"proceedUrl"`
}

// TriggerJob starts a build and returns the queue item id from the Location
// header.
func (c *Client) TriggerJob(ctx context.Context, name string) (int64, error) {
	path := "/job/" + url.PathEscape(name) + "/build"
	resp, err := c.do(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus(fmt.Sprintf("trigger job %s", name), resp); err != nil {
		return 0, err
	}

	location := resp.Header.Get("Location")
	id, err := parseQueueID(location)
	if err != nil {
		return 0, &APIError{Op: fmt.Sprintf("trigger job %s", name), Status: resp.StatusCode, Body: "unparseable queue location: " + location}
	}

	return id, nil
}

// parseQueueID extracts the item id from .../queue/item/<id>/.
func parseQueueID(location string) (int64, error) {
	idx := strings.Index(location, "/queue/item/")
	if idx < 0 {
		return 0, fmt.Errorf("no queue item in %q", location)
	}
	rest := strings.Trim(location[idx+len("/queue/item/"):], "/")
	return strconv.ParseInt(rest, 10, 64)
}

// QueueExecutable returns the build number for a queue item once the build
// has started. A pending item (quiet period, no executor yet) returns
// (0, true, nil); an expired item returns found=false so the caller can fall
// back to the job's build list. The two must stay distinct: a pending item's
// build does not exist yet and any fallback would land on an older build.
func (c *Client) QueueExecutable(ctx context.Context, queueID int64) (int64, bool, error) {
	path := fmt.Sprintf("/queue/item/%d/api/json", queueID)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()

	// Queue items expire a few minutes after the build starts.
	if resp.StatusCode == http.StatusNotFound {
		return 0, false, nil
	}
	if err := c.checkStatus("queue lookup", resp); err != nil {
		return 0, false, err
	}

	var item struct {
		Executable *struct {
			Number int64 `json:"number"`
		} `json:"executable"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return 0, false, fmt.Errorf("failed to decode queue item: %w", err)
	}

	if item.Executable == nil {
		return 0, true, nil
	}
	return item.Executable.Number, true, nil
}

// BuildInfo returns the current state of a build.
func (c *Client) BuildInfo(ctx context.Context, job string, number int64) (*Build, error) {
	path := fmt.Sprintf("/job/%s/%d/api/json", url.PathEscape(job), number)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus("build lookup", resp); err != nil {
		return nil, err
	}

	var build Build
	if err := json.NewDecoder(resp.Body).Decode(&build); err != nil {
		return nil, fmt.Errorf("failed to decode build info: %w", err)
	}

	return &build, nil
}

// LastBuildNumber returns the job's most recent build number, or 0 when the
// job has never built.
func (c *Client) LastBuildNumber(ctx context.Context, job string) (int64, error) {
	path := "/job/" + url.PathEscape(job) + "/api/json"
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if err := c.checkStatus("job lookup", resp); err != nil {
		return 0, err
	}

	var job2 struct {
		LastBuild *struct {
			Number int64 `json:"number"`
		} `json:"lastBuild"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&job2); err != nil {
		return 0, fmt.Errorf("failed to decode job info: %w", err)
	}

	if job2.LastBuild == nil {
		return 0, nil
	}
	return job2.LastBuild.Number, nil
}

// PendingInput returns the build's paused input step, or nil when the build
// is not waiting for approval.
func (c *Client) PendingInput(ctx context.Context, job string, number int64) (*InputAction, error) {
	path := fmt.Sprintf("/job/%s/%d/wfapi/pendingInputActions", url.PathEscape(job), number)
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := c.checkStatus("pending input lookup", resp); err != nil {
		return nil, err
	}

	var actions []InputAction
	if err := json.NewDecoder(resp.Body).Decode(&actions); err != nil {
		return nil, fmt.Errorf("failed to decode pending inputs: %w", err)
	}

	if len(actions) == 0 {
		return nil, nil
	}
	return &actions[0], nil
}

// ProceedInput approves a paused input step.
func (c *Client) ProceedInput(ctx context.Context, job string, number int64, input *InputAction) error {
	path := fmt.Sprintf("/job/%s/%d/input/%s/proceedEmpty", url.PathEscape(job), number, url.PathEscape(input.ID))
	resp, err := c.do(ctx, http.MethodPost, path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus("proceed input", resp)
}
