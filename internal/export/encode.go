// Package export serializes relationship graphs and writes them to files,
// S3-compatible buckets and git repositories, on demand or on a schedule.
package export

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// Format selects a document encoding.
type Format string

const (
	// FormatJSON is the graph document: {"metadata": ..., "issues": ...}.
	FormatJSON Format = "json"
	// FormatJSONL is a header line carrying the metadata followed by one
	// line per issue, sorted by key.
	FormatJSONL Format = "jsonl"
)

// jsonlVersion is written in every JSONL header.
const jsonlVersion = "1"

// ParseFormat accepts "json" or "jsonl" (case-insensitive).
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatJSONL:
		return f, nil
	case "":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q (want json or jsonl)", s)
	}
}

// ContentType returns the MIME type used when uploading f.
func (f Format) ContentType() string {
	if f == FormatJSONL {
		return "application/x-ndjson"
	}
	return "application/json"
}

// header is the first JSONL line.
type header struct {
	Version  string         `json:"version"`
	Type     string         `json:"type"`
	Metadata model.Metadata `json:"metadata"`
}

// issueLine is one JSONL line per issue.
type issueLine struct {
	Type string        `json:"type"`
	Key  string        `json:"key"`
	Data *model.Record `json:"data"`
}

// Encode writes g to w. JSON output is indented when pretty is set; JSONL is
// always compact.
func Encode(w io.Writer, g *model.Graph, f Format, pretty bool) error {
	switch f {
	case FormatJSONL:
		return writeJSONL(w, g)
	case FormatJSON, "":
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		if pretty {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("encode graph: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// Marshal returns the encoded document.
func Marshal(g *model.Graph, f Format, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, g, f, pretty); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSONL(w io.Writer, g *model.Graph) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(header{Version: jsonlVersion, Type: "header", Metadata: g.Metadata}); err != nil {
		return fmt.Errorf("encode header: %w", err)
	}
	for _, key := range g.SortedIssueKeys() {
		if err := enc.Encode(issueLine{Type: "issue", Key: key, Data: g.Issues[key]}); err != nil {
			return fmt.Errorf("encode issue %s: %w", key, err)
		}
	}
	return nil
}

// Decode reads a document produced by Encode. Metadata is taken as written;
// missing records decode as empty ones.
func Decode(r io.Reader, f Format) (*model.Graph, error) {
	switch f {
	case FormatJSONL:
		return readJSONL(r)
	case FormatJSON, "":
		var g model.Graph
		if err := json.NewDecoder(r).Decode(&g); err != nil {
			return nil, fmt.Errorf("decode graph: %w", err)
		}
		return &g, nil
	default:
		return nil, fmt.Errorf("unknown export format %q", f)
	}
}

func readJSONL(r io.Reader) (*model.Graph, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var g *model.Graph
	line := 0
	for sc.Scan() {
		line++
		text := bytes.TrimSpace(sc.Bytes())
		if len(text) == 0 {
			continue
		}
		if g == nil {
			var h header
			if err := json.Unmarshal(text, &h); err != nil {
				return nil, fmt.Errorf("line %d: decode header: %w", line, err)
			}
			if h.Type != "header" {
				return nil, fmt.Errorf("line %d: expected header, got %q", line, h.Type)
			}
			if h.Version != jsonlVersion {
				return nil, fmt.Errorf("line %d: unsupported version %q", line, h.Version)
			}
			g = &model.Graph{Metadata: h.Metadata, Issues: make(map[string]*model.Record)}
			continue
		}
		var il issueLine
		if err := json.Unmarshal(text, &il); err != nil {
			return nil, fmt.Errorf("line %d: decode issue: %w", line, err)
		}
		if il.Type != "issue" || il.Key == "" {
			return nil, fmt.Errorf("line %d: expected issue line", line)
		}
		if il.Data == nil {
			il.Data = model.NewRecord()
		}
		g.Issues[il.Key] = il.Data
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read jsonl: %w", err)
	}
	if g == nil {
		return nil, errors.New("read jsonl: missing header")
	}
	return g, nil
}
