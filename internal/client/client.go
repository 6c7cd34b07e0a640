// Package client reads issue links from a Jira-compatible REST API and
// exposes them as a traverse.Fetcher.
package client

import (
	"strings"
	"time"

	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// DefaultAPIVersion is the REST API version used in request paths.
const DefaultAPIVersion = "2"

// DefaultTimeout bounds a single tracker request.
const DefaultTimeout = 30 * time.Second

// defaultLinkTypes maps the tracker's stock link type names onto relationship
// types. Keys are lower-cased.
var defaultLinkTypes = map[string]string{
	"blocks":     model.TypeBlocks,
	"relates":    model.TypeRelatesTo,
	"relates to": model.TypeRelatesTo,
	"duplicate":  model.TypeDuplicates,
	"duplicates": model.TypeDuplicates,
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithBasicAuth authenticates as user, sending the client token as the
// password (API token auth). Without it the token is sent as a bearer token.
func WithBasicAuth(user string) Option {
	return func(c *HTTPClient) { c.user = user }
}

// WithAPIVersion selects the REST API version ("2" or "3").
func WithAPIVersion(v string) Option {
	return func(c *HTTPClient) {
		if v != "" {
			c.apiVersion = v
		}
	}
}

// WithEpicField names the issue field holding the epic link
// (e.g. "customfield_10014"). Without it epics are not read.
func WithEpicField(field string) Option {
	return func(c *HTTPClient) { c.epicField = field }
}

// WithLinkTypes adds or overrides link type name mappings. Keys are matched
// case-insensitively against the tracker's link type name.
func WithLinkTypes(m map[string]string) Option {
	return func(c *HTTPClient) {
		for name, typ := range m {
			c.linkTypes[strings.ToLower(name)] = typ
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.httpClient.Timeout = d }
}

// RelationTypeFor returns the relationship type recorded for a tracker link
// type name. Unknown names become custom types: lower-cased with runs of
// spaces and hyphens replaced by underscores ("Problem/Incident" stays
// "problem/incident").
func (c *HTTPClient) RelationTypeFor(linkTypeName string) string {
	lower := strings.ToLower(strings.TrimSpace(linkTypeName))
	if typ, ok := c.linkTypes[lower]; ok {
		return typ
	}
	return strings.Join(strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}
