package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Destination is a place an encoded graph document is written to.
type Destination interface {
	// Name identifies the destination in logs and events.
	Name() string
	// Write replaces the destination's content with data.
	Write(ctx context.Context, data []byte) error
}

// FileDestination writes the document to a local file, replacing it
// atomically.
type FileDestination struct {
	path string
}

// NewFileDestination creates a file destination. Missing parent
// directories are created on write.
func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

func (d *FileDestination) Name() string { return "file:" + d.path }

func (d *FileDestination) Write(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(d.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
