package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/alfredjeanlab/linkgraph/internal/model"
)

// handleGetGraph handles GET /v1/graph/{key}.
func (s *GraphServer) handleGetGraph(w http.ResponseWriter, r *http.Request) {
	depth, opts, err := s.parseGraphQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	g, err := s.BuildGraph(r.Context(), r.PathValue("key"), depth, opts)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// bulkRequest is the body of POST /v1/graph/bulk. Unset booleans keep the
// default options.
type bulkRequest struct {
	Keys          []string `json:"keys"`
	Include       []string `json:"include,omitempty"`
	Exclude       []string `json:"exclude,omitempty"`
	IncludeCustom *bool    `json:"include_custom,omitempty"`
	Bidirectional *bool    `json:"bidirectional,omitempty"`
	InferConverse *bool    `json:"infer_converse,omitempty"`
}

func (req bulkRequest) options() *model.GraphOptions {
	opts := model.DefaultGraphOptions()
	if len(req.Include) > 0 {
		opts.IncludeTypes = req.Include
	}
	if len(req.Exclude) > 0 {
		opts.ExcludeTypes = req.Exclude
	}
	if req.IncludeCustom != nil {
		opts.IncludeCustom = *req.IncludeCustom
	}
	if req.Bidirectional != nil {
		opts.Bidirectional = *req.Bidirectional
	}
	if req.InferConverse != nil {
		opts.InferConverse = *req.InferConverse
	}
	return &opts
}

// handleBulk handles POST /v1/graph/bulk.
func (s *GraphServer) handleBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	g, err := s.BuildBulk(r.Context(), req.Keys, req.options())
	if err != nil {
		s.writeBuildError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// pathResponse is returned by GET /v1/graph/{key}/path.
type pathResponse struct {
	From       string   `json:"from"`
	To         string   `json:"to"`
	Path       []string `json:"path"`
	Length     int      `json:"length"`
	IssueCount int      `json:"issue_count"`
}

// handleGetPath handles GET /v1/graph/{key}/path?to=K.
// The graph is traversed from key, then searched for the shortest route to K.
func (s *GraphServer) handleGetPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	to := strings.TrimSpace(q.Get("to"))
	if to == "" {
		writeError(w, http.StatusBadRequest, "to is required")
		return
	}
	depth, opts, err := s.parseGraphQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	from := r.PathValue("key")
	g, err := s.BuildGraph(r.Context(), from, depth, opts)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	path, ok := g.GetPath(from, to)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no path from %s to %s within depth %d", from, to, depth))
		return
	}
	writeJSON(w, http.StatusOK, pathResponse{
		From:       from,
		To:         to,
		Path:       path,
		Length:     len(path) - 1,
		IssueCount: g.Metadata.IssueCount,
	})
}

// cyclesResponse is returned by GET /v1/graph/{key}/cycles.
type cyclesResponse struct {
	Root       string     `json:"root"`
	Types      []string   `json:"types,omitempty"`
	HasCycle   bool       `json:"has_cycle"`
	Cycles     [][]string `json:"cycles"`
	IssueCount int        `json:"issue_count"`
}

// handleGetCycles handles GET /v1/graph/{key}/cycles?types=a,b.
// types restricts which relationship types form edges; without it every
// type counts and a link recorded on both ends is one edge.
func (s *GraphServer) handleGetCycles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	depth, opts, err := s.parseGraphQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	root := r.PathValue("key")
	g, err := s.BuildGraph(r.Context(), root, depth, opts)
	if err != nil {
		s.writeBuildError(w, err)
		return
	}

	types := splitList(q.Get("types"))
	cycles := g.FindCycles(types...)
	if cycles == nil {
		cycles = [][]string{}
	}
	writeJSON(w, http.StatusOK, cyclesResponse{
		Root:       root,
		Types:      types,
		HasCycle:   g.HasCycle(root, types...),
		Cycles:     cycles,
		IssueCount: g.Metadata.IssueCount,
	})
}

// parseGraphQuery reads depth and the graph option parameters shared by the
// traversal endpoints.
func (s *GraphServer) parseGraphQuery(q url.Values) (int, *model.GraphOptions, error) {
	depth := s.defaultDepth
	if v := q.Get("depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid depth %q", v)
		}
		depth = n
	}

	opts := model.DefaultGraphOptions()
	if v := splitList(q.Get("include")); len(v) > 0 {
		opts.IncludeTypes = v
	}
	if v := splitList(q.Get("exclude")); len(v) > 0 {
		opts.ExcludeTypes = v
	}
	for _, f := range []struct {
		name string
		dst  *bool
	}{
		{"custom", &opts.IncludeCustom},
		{"bidirectional", &opts.Bidirectional},
		{"converse", &opts.InferConverse},
	} {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid %s %q", f.name, v)
		}
		*f.dst = b
	}
	return depth, &opts, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
