// Package jira queries the upstream tracker for issue relationships the
// webhook payload itself does not carry.
package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	searchPath     = "/rest/api/3/search"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 8 << 10
)

// Client talks to the Jira REST API with a static basic-auth credential
// pair supplied once at construction.
type Client struct {
	baseURL    string
	email      string
	apiToken   string
	httpClient *http.Client
}

// NewClient returns a Client for the given site. baseURL is the site root,
// e.g. https://example.atlassian.net.
func NewClient(baseURL, email, apiToken string) *Client {
	return &Client{
		baseURL:    baseURL,
		email:      email,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// LookupError is a non-success answer from the tracker, kept verbatim for
// diagnostics. Callers must treat it as "children unknown", not "no children".
type LookupError struct {
	StatusCode int
	Body       string
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("jira search failed: status %d: %s", e.StatusCode, e.Body)
}

type searchRequest struct {
	JQL    string   `json:"jql"`
	Fields []string `json:"fields"`
}

type searchResponse struct {
	Issues []struct {
		Key string `json:"key"`
	} `json:"issues"`
}

// FindChildren returns the keys of every issue whose parent is parentKey.
// A successful search with no matches yields an empty slice.
func (c *Client) FindChildren(ctx context.Context, parentKey string) ([]string, error) {
	body, err := json.Marshal(searchRequest{
		JQL:    fmt.Sprintf("parent = %q", parentKey),
		Fields: []string{"key"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.SetBasicAuth(c.email, c.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &LookupError{Body: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &LookupError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	keys := make([]string, 0, len(out.Issues))
	for _, iss := range out.Issues {
		if iss.Key != "" {
			keys = append(keys, iss.Key)
		}
	}
	return keys, nil
}
