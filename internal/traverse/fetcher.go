// Package traverse builds relationship graphs by repeatedly asking a Fetcher
// for the links declared on each issue.
package traverse

import (
	"context"
	"fmt"
)

// Direction says which end of a tracker link the fetched issue sits on.
type Direction string

const (
	// Outward links read "<fetched issue> <type> <other issue>".
	Outward Direction = "outward"
	// Inward links read "<other issue> <type> <fetched issue>".
	Inward Direction = "inward"
)

// Link is one link declared on a fetched issue. Type is the relationship name
// read in the outward direction (e.g. "blocks", "relates_to", or a custom
// name).
type Link struct {
	Type      string    `json:"type"`
	Direction Direction `json:"direction"`
	Key       string    `json:"key"`
}

// RawLinks is everything a tracker declares about one issue's relationships.
type RawLinks struct {
	Key      string   `json:"key"`
	Links    []Link   `json:"links,omitempty"`
	Parent   string   `json:"parent,omitempty"`
	Epic     string   `json:"epic,omitempty"`
	Children []string `json:"children,omitempty"`
}

// Fetcher returns the links declared on a single issue. Implementations must
// be safe for concurrent use.
type Fetcher interface {
	FetchLinks(ctx context.Context, key string) (*RawLinks, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string) (*RawLinks, error)

// FetchLinks calls f(ctx, key).
func (f FetcherFunc) FetchLinks(ctx context.Context, key string) (*RawLinks, error) {
	return f(ctx, key)
}

// FetchError reports a failed fetch for one issue.
type FetchError struct {
	Key string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching links for %s: %v", e.Key, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
