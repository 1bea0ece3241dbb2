package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var _ Cache = (*LocalCache)(nil)

// LocalCache keeps the catalog snapshot in memory and mirrors it to a JSON
// file so it survives restarts. The file is read at most once per process;
// page loads after that are served from memory.
type LocalCache struct {
	path   string
	source string

	mu       sync.Mutex
	loaded   bool
	snapshot *ModelCache
}

// NewLocalCache returns a cache mirrored to path. With an empty path the
// snapshot lives in memory only. A non-empty source makes Get ignore a file
// written for a different backend, so pointing the frontend at another
// backend does not serve the old backend's models.
func NewLocalCache(path, source string) *LocalCache {
	return &LocalCache{path: path, source: source}
}

func (c *LocalCache) Get(ctx context.Context) (*ModelCache, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.loaded {
		snapshot, err := c.load()
		if err != nil {
			// not marked loaded: the next call retries the file
			return nil, err
		}
		c.snapshot, c.loaded = snapshot, true
	}
	return c.snapshot.clone(), nil
}

func (c *LocalCache) load() (*ModelCache, error) {
	if c.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read model cache %s: %w", c.path, err)
	}

	var snapshot ModelCache
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("parse model cache %s: %w", c.path, err)
	}
	if c.source != "" && snapshot.Source != c.source {
		slog.Info("ignoring model cache written for another backend",
			"path", c.path,
			"cached_source", snapshot.Source,
			"source", c.source,
		)
		return nil, nil
	}
	return &snapshot, nil
}

// Set stores snapshot in memory and then on disk. The in-memory copy is
// updated even when the write fails.
func (c *LocalCache) Set(ctx context.Context, snapshot *ModelCache) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.snapshot, c.loaded = snapshot.clone(), true
	if c.path == "" {
		return nil
	}
	return writeSnapshot(c.path, snapshot)
}

// writeSnapshot replaces path with a synced temp file from the same
// directory, so readers see either the old catalog or the new one.
func writeSnapshot(path string, snapshot *ModelCache) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encode model cache: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create model cache temp file: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write model cache: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync model cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model cache: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod model cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace model cache: %w", err)
	}
	committed = true
	return nil
}

// Close is a no-op.
func (c *LocalCache) Close() error {
	return nil
}
