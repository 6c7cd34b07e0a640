// Package idgen provides short, URL-safe unique ID generation backed by nanoid.
package idgen

import (
	"fmt"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// Prefixes for the kinds of IDs linkgraph hands out.
const (
	PrefixRun   = "run-"
	PrefixEvent = "evt-"
)

// Alphabet defines the character set used for the random portion of the ID.
var Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Length is the number of random characters generated (excluding the prefix).
var Length = 10

// RunID returns an ID tagging one traversal or bulk extraction.
func RunID() string {
	return mustGenerate(PrefixRun)
}

// EventID returns an ID for a published event.
func EventID() string {
	return mustGenerate(PrefixEvent)
}

// GenerateWithPrefix returns a new unique ID with the given prefix.
func GenerateWithPrefix(prefix string) (string, error) {
	id, err := nanoid.Generate(Alphabet, Length)
	if err != nil {
		return "", fmt.Errorf("idgen: %w", err)
	}
	return prefix + id, nil
}

// mustGenerate falls back to the bare prefix when the random source fails;
// IDs only label logs and events.
func mustGenerate(prefix string) string {
	id, err := GenerateWithPrefix(prefix)
	if err != nil {
		return prefix + "unknown"
	}
	return id
}
