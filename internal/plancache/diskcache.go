package plancache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"loomcc/internal/version"
)

// ErrMiss indicates the requested key has no cached entry.
var ErrMiss = errors.New("plancache: miss")

// Payload is the on-disk envelope around a cached plan. BuildVersion guards
// against a cache built by one binary satisfying a lookup from another:
// a mismatch is treated as a miss rather than an error.
type Payload struct {
	BuildVersion string `msgpack:"build_version"`
	Body         []byte `msgpack:"body"`
}

// DiskCache stores compiled-plan bodies on disk, one file per key, named
// by the key's hex digest.
type DiskCache struct {
	dir string
}

// OpenDiskCache creates dir if needed and returns a cache rooted there.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("plancache: create %s: %w", dir, err)
	}
	return &DiskCache{dir: dir}, nil
}

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, key.String()+".plan")
}

// Get reads the cached body for key, or ErrMiss if absent or stamped by a
// different build.
func (c *DiskCache) Get(key Digest) ([]byte, error) {
	raw, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("plancache: read %s: %w", key, err)
	}
	var p Payload
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("plancache: decode %s: %w", key, err)
	}
	if p.BuildVersion != version.Version {
		return nil, ErrMiss
	}
	return p.Body, nil
}

// Put writes body under key, stamped with the running build's version.
func (c *DiskCache) Put(key Digest, body []byte) error {
	raw, err := msgpack.Marshal(Payload{BuildVersion: version.Version, Body: body})
	if err != nil {
		return fmt.Errorf("plancache: encode %s: %w", key, err)
	}
	tmp := c.pathFor(key) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("plancache: write %s: %w", key, err)
	}
	if err := os.Rename(tmp, c.pathFor(key)); err != nil {
		return fmt.Errorf("plancache: commit %s: %w", key, err)
	}
	return nil
}
