// Package config loads linkgraph settings from an optional TOML file
// overlaid with LG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every setting used by the CLI and the server. Environment
// variables override values read from the file named by LG_CONFIG.
type Config struct {
	// Tracker
	TrackerURL string            `toml:"tracker_url"` // LG_TRACKER_URL (required to fetch)
	Token      string            `toml:"token"`       // LG_TOKEN (bearer, or basic password with User)
	User       string            `toml:"user"`        // LG_USER (enables basic auth)
	APIVersion string            `toml:"api_version"` // LG_API_VERSION (default "2")
	EpicField  string            `toml:"epic_field"`  // LG_EPIC_FIELD (e.g. "customfield_10014")
	Timeout    Duration          `toml:"timeout"`     // LG_TIMEOUT (default 30s)
	LinkTypes  map[string]string `toml:"link_types"`  // file only: tracker link name -> relation type

	// Traversal
	Depth       int      `toml:"depth"`       // LG_DEPTH (default 2)
	Concurrency int      `toml:"concurrency"` // LG_CONCURRENCY (default 8)
	BulkLimit   int      `toml:"bulk_limit"`  // LG_BULK_LIMIT (default 0 = unbounded)
	CacheTTL    Duration `toml:"cache_ttl"`   // LG_CACHE_TTL (default 5m; 0 disables the cache)
	CacheDir    string   `toml:"cache_dir"`   // LG_CACHE_DIR (empty = in memory)
	RateLimit   float64  `toml:"rate_limit"`  // LG_RATE_LIMIT (fetches/sec; 0 = unlimited)
	RateBurst   int      `toml:"rate_burst"`  // LG_RATE_BURST (default 5)

	// Server
	HTTPAddr  string `toml:"http_addr"`  // LG_HTTP_ADDR (default ":8080")
	GRPCAddr  string `toml:"grpc_addr"`  // LG_GRPC_ADDR (default ":9090")
	AuthToken string `toml:"auth_token"` // LG_AUTH_TOKEN (optional, empty = auth disabled)
	NATSURL   string `toml:"nats_url"`   // LG_NATS_URL (optional, empty = no events)

	// Export
	ExportInterval   Duration `toml:"export_interval"`    // LG_EXPORT_INTERVAL (default 0 = disabled)
	ExportSeeds      []string `toml:"export_seeds"`       // LG_EXPORT_SEEDS (comma separated)
	ExportFile       string   `toml:"export_file"`        // LG_EXPORT_FILE (enables file export when set)
	ExportS3Bucket   string   `toml:"export_s3_bucket"`   // LG_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string   `toml:"export_s3_endpoint"` // LG_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string   `toml:"export_s3_region"`   // LG_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string   `toml:"export_s3_key"`      // LG_EXPORT_S3_KEY (default "linkgraph/graph.json")
	ExportGitRepo    string   `toml:"export_git_repo"`    // LG_EXPORT_GIT_REPO (enables git when set; path to clone)
	ExportGitFile    string   `toml:"export_git_file"`    // LG_EXPORT_GIT_FILE (default "linkgraph.json")
	ExportGitBranch  string   `toml:"export_git_branch"`  // LG_EXPORT_GIT_BRANCH (default "main")

	LogLevel string `toml:"log_level"` // LG_LOG_LEVEL (debug, info, warn, error; default info)
}

// Duration is a time.Duration read from TOML as a string such as "30s".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ErrNoTracker is returned by Validate when no tracker URL is configured.
var ErrNoTracker = errors.New("LG_TRACKER_URL is required")

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		APIVersion:      "2",
		Timeout:         Duration(30 * time.Second),
		Depth:           2,
		Concurrency:     8,
		CacheTTL:        Duration(5 * time.Minute),
		RateBurst:       5,
		HTTPAddr:        ":8080",
		GRPCAddr:        ":9090",
		ExportS3Region:  "us-east-1",
		ExportS3Key:     "linkgraph/graph.json",
		ExportGitFile:   "linkgraph.json",
		ExportGitBranch: "main",
		LogLevel:        "info",
	}
}

// Load reads the file named by LG_CONFIG (if set) over the defaults, then
// applies LG_* environment variables.
func Load() (*Config, error) {
	c := Default()
	if path := os.Getenv("LG_CONFIG"); path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	c.TrackerURL = envOrDefault("LG_TRACKER_URL", c.TrackerURL)
	c.Token = envOrDefault("LG_TOKEN", c.Token)
	c.User = envOrDefault("LG_USER", c.User)
	c.APIVersion = envOrDefault("LG_API_VERSION", c.APIVersion)
	c.EpicField = envOrDefault("LG_EPIC_FIELD", c.EpicField)
	c.CacheDir = envOrDefault("LG_CACHE_DIR", c.CacheDir)
	c.HTTPAddr = envOrDefault("LG_HTTP_ADDR", c.HTTPAddr)
	c.GRPCAddr = envOrDefault("LG_GRPC_ADDR", c.GRPCAddr)
	c.AuthToken = envOrDefault("LG_AUTH_TOKEN", c.AuthToken)
	c.NATSURL = envOrDefault("LG_NATS_URL", c.NATSURL)
	c.ExportFile = envOrDefault("LG_EXPORT_FILE", c.ExportFile)
	c.ExportS3Bucket = envOrDefault("LG_EXPORT_S3_BUCKET", c.ExportS3Bucket)
	c.ExportS3Endpoint = envOrDefault("LG_EXPORT_S3_ENDPOINT", c.ExportS3Endpoint)
	c.ExportS3Region = envOrDefault("LG_EXPORT_S3_REGION", c.ExportS3Region)
	c.ExportS3Key = envOrDefault("LG_EXPORT_S3_KEY", c.ExportS3Key)
	c.ExportGitRepo = envOrDefault("LG_EXPORT_GIT_REPO", c.ExportGitRepo)
	c.ExportGitFile = envOrDefault("LG_EXPORT_GIT_FILE", c.ExportGitFile)
	c.ExportGitBranch = envOrDefault("LG_EXPORT_GIT_BRANCH", c.ExportGitBranch)
	c.LogLevel = envOrDefault("LG_LOG_LEVEL", c.LogLevel)
	if v := os.Getenv("LG_EXPORT_SEEDS"); v != "" {
		c.ExportSeeds = splitList(v)
	}

	for _, f := range []struct {
		key string
		dst *int
	}{
		{"LG_DEPTH", &c.Depth},
		{"LG_CONCURRENCY", &c.Concurrency},
		{"LG_BULK_LIMIT", &c.BulkLimit},
		{"LG_RATE_BURST", &c.RateBurst},
	} {
		if err := envInt(f.key, f.dst); err != nil {
			return nil, err
		}
	}
	for _, f := range []struct {
		key string
		dst *Duration
	}{
		{"LG_TIMEOUT", &c.Timeout},
		{"LG_CACHE_TTL", &c.CacheTTL},
		{"LG_EXPORT_INTERVAL", &c.ExportInterval},
	} {
		if err := envDuration(f.key, f.dst); err != nil {
			return nil, err
		}
	}
	if v := os.Getenv("LG_RATE_LIMIT"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("LG_RATE_LIMIT: %w", err)
		}
		c.RateLimit = r
	}

	if c.Depth < 0 {
		return nil, fmt.Errorf("depth must not be negative: %d", c.Depth)
	}
	if _, err := c.SlogLevel(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate reports settings required to reach the tracker.
func (c *Config) Validate() error {
	if c.TrackerURL == "" {
		return ErrNoTracker
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LG_LOG_LEVEL: %w", err)
	}
	return l, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, dst *int) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envDuration(key string, dst *Duration) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = Duration(d)
	return nil
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
