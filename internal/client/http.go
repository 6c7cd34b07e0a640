package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// HTTPClient implements traverse.Fetcher against the tracker REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	user       string
	apiVersion string
	epicField  string
	linkTypes  map[string]string
	httpClient *http.Client
}

// NewHTTPClient creates a client for the tracker at baseURL
// (e.g. "https://example.atlassian.net"). When token is non-empty it is sent
// as a bearer token, or as the basic auth password with WithBasicAuth.
func NewHTTPClient(baseURL, token string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		apiVersion: DefaultAPIVersion,
		linkTypes:  make(map[string]string, len(defaultLinkTypes)),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for name, typ := range defaultLinkTypes {
		c.linkTypes[name] = typ
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

// issueRef is the minimal issue shape embedded in links, parents and subtasks.
type issueRef struct {
	Key string `json:"key"`
}

type issueLink struct {
	Type struct {
		Name    string `json:"name"`
		Inward  string `json:"inward"`
		Outward string `json:"outward"`
	} `json:"type"`
	OutwardIssue *issueRef `json:"outwardIssue"`
	InwardIssue  *issueRef `json:"inwardIssue"`
}

type issueFields struct {
	IssueLinks []issueLink `json:"issuelinks"`
	Parent     *issueRef   `json:"parent"`
	Subtasks   []issueRef  `json:"subtasks"`
}

type issueResponse struct {
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// FetchLinks reads the links, parent, subtasks and (when configured) epic of
// one issue. Failures are returned as *traverse.FetchError.
func (c *HTTPClient) FetchLinks(ctx context.Context, key string) (*traverse.RawLinks, error) {
	raw, err := c.fetchLinks(ctx, key)
	if err != nil {
		return nil, &traverse.FetchError{Key: key, Err: err}
	}
	return raw, nil
}

func (c *HTTPClient) fetchLinks(ctx context.Context, key string) (*traverse.RawLinks, error) {
	fields := []string{"issuelinks", "parent", "subtasks"}
	if c.epicField != "" {
		fields = append(fields, c.epicField)
	}
	q := url.Values{}
	q.Set("fields", strings.Join(fields, ","))
	path := c.issuePath(key) + "?" + q.Encode()

	var resp issueResponse
	if err := c.doJSON(ctx, http.MethodGet, path, &resp); err != nil {
		return nil, err
	}

	var f issueFields
	if len(resp.Fields) > 0 {
		if err := json.Unmarshal(resp.Fields, &f); err != nil {
			return nil, fmt.Errorf("decoding fields: %w", err)
		}
	}

	out := &traverse.RawLinks{Key: resp.Key}
	if out.Key == "" {
		out.Key = key
	}
	for _, l := range f.IssueLinks {
		typ := c.RelationTypeFor(l.Type.Name)
		switch {
		case l.OutwardIssue != nil && l.OutwardIssue.Key != "":
			out.Links = append(out.Links, traverse.Link{Type: typ, Direction: traverse.Outward, Key: l.OutwardIssue.Key})
		case l.InwardIssue != nil && l.InwardIssue.Key != "":
			out.Links = append(out.Links, traverse.Link{Type: typ, Direction: traverse.Inward, Key: l.InwardIssue.Key})
		}
	}
	if f.Parent != nil {
		out.Parent = f.Parent.Key
	}
	for _, st := range f.Subtasks {
		if st.Key != "" {
			out.Children = append(out.Children, st.Key)
		}
	}
	if c.epicField != "" {
		epic, err := c.readEpic(resp.Fields)
		if err != nil {
			return nil, err
		}
		out.Epic = epic
	}
	return out, nil
}

// readEpic extracts the epic key from the configured field, which holds
// either a plain key or an issue object depending on the tracker edition.
func (c *HTTPClient) readEpic(fields json.RawMessage) (string, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(fields, &all); err != nil {
		return "", fmt.Errorf("decoding fields: %w", err)
	}
	v, ok := all[c.epicField]
	if !ok || string(v) == "null" {
		return "", nil
	}
	var key string
	if json.Unmarshal(v, &key) == nil {
		return key, nil
	}
	var ref issueRef
	if err := json.Unmarshal(v, &ref); err != nil {
		return "", fmt.Errorf("decoding %s: %w", c.epicField, err)
	}
	return ref.Key, nil
}

// ServerInfo returns the tracker's version string, used as a health check.
func (c *HTTPClient) ServerInfo(ctx context.Context) (string, error) {
	var resp struct {
		Version        string `json:"version"`
		DeploymentType string `json:"deploymentType"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/rest/api/"+c.apiVersion+"/serverInfo", &resp); err != nil {
		return "", err
	}
	if resp.Version == "" {
		return resp.DeploymentType, nil
	}
	return resp.Version, nil
}

func (c *HTTPClient) issuePath(key string) string {
	return "/rest/api/" + c.apiVersion + "/issue/" + url.PathEscape(key)
}

// --- internal helpers ---

// APIError represents an error response from the tracker.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// doJSON performs a request and decodes the JSON response into result.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		if c.user != "" {
			req.SetBasicAuth(c.user, c.token)
		} else {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// errorMessage pulls a readable message out of a tracker error body, which
// carries either "errorMessages" (list) or "error" (string).
func errorMessage(body []byte) string {
	var errResp struct {
		ErrorMessages []string `json:"errorMessages"`
		Error         string   `json:"error"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		if len(errResp.ErrorMessages) > 0 {
			return strings.Join(errResp.ErrorMessages, "; ")
		}
		if errResp.Error != "" {
			return errResp.Error
		}
	}
	return strings.TrimSpace(string(body))
}
