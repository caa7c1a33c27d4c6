// Package assets provides the content fetch layer consumed by the scenario
// store. It exposes raw document bytes keyed by a path convention; parsing
// and validation belong to the caller.
//
// Retry policy is deliberately NOT owned here. A fetcher reports failure and
// the caller decides; wrapping a fetcher with retries is the integrator's
// concern.
package assets

import (
	"context"
	"fmt"
	"io/fs"
	"os"
)

// Fetcher retrieves a raw content document by name.
//
// Names use forward slashes regardless of host OS, e.g.
// "scenarios/prologue.yaml".
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// ScenarioExts lists the document extensions probed for a scenario id,
// in preference order.
var ScenarioExts = []string{"yaml", "yml", "json"}

// ScenarioPath returns the content path for a scenario id and extension,
// following the `scenarios/{id}.{ext}` convention.
func ScenarioPath(id, ext string) string {
	return fmt.Sprintf("scenarios/%s.%s", id, ext)
}

// FS is a Fetcher backed by an fs.FS (a content directory, an embedded
// bundle, or a test fstest.MapFS).
type FS struct {
	fsys fs.FS
}

// NewFS wraps an fs.FS as a Fetcher.
func NewFS(fsys fs.FS) *FS {
	return &FS{fsys: fsys}
}

// NewDir returns a Fetcher rooted at a local directory.
func NewDir(dir string) *FS {
	return &FS{fsys: os.DirFS(dir)}
}

// Fetch reads the named file from the underlying filesystem.
// Honors context cancellation before touching the filesystem.
func (f *FS) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := fs.ReadFile(f.fsys, name)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	return data, nil
}
