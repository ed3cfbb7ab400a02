package jenkins

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const credentialStorePath = "/credentials/store/system/domain/_"

// CredentialExists reports whether a credential with the given id exists in
// the system store.
func (c *Client) CredentialExists(ctx context.Context, id string) (bool, error) {
	path := credentialStorePath + "/credential/" + url.PathEscape(id) + "/api/json"
	resp, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if err := c.checkStatus("credential lookup", resp); err != nil {
		return false, err
	}

	return true, nil
}

// CreateCredential adds a credential to the system store from its XML
// definition.
func (c *Client) CreateCredential(ctx context.Context, configXML string) error {
	path := credentialStorePath + "/createCredentials"
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(configXML), "application/xml")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus("create credential", resp)
}

// UpdateCredential replaces an existing credential's XML definition.
func (c *Client) UpdateCredential(ctx context.Context, id, configXML string) error {
	path := credentialStorePath + "/credential/" + url.PathEscape(id) + "/config.xml"
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(configXML), "application/xml")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.checkStatus(fmt.Sprintf("update credential %s", id), resp)
}
