package driver

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"brick/internal/borrowck"
	"brick/internal/diag"
	"brick/internal/hir"
)

// cacheSchemaVersion is bumped whenever FuncPayload or checker output changes.
const cacheSchemaVersion uint16 = 1

// Digest is a SHA-256 cache key.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// FuncPayload is the cached outcome of checking one function.
type FuncPayload struct {
	Schema      uint16            `msgpack:"schema"`
	Name        string            `msgpack:"name"`
	Diagnostics []diag.Diagnostic `msgpack:"diags,omitempty"`
	Events      []borrowck.Event  `msgpack:"events,omitempty"`
	Func        *hir.Func         `msgpack:"func,omitempty"`
	Iterations  int               `msgpack:"iters"`
}

// DiskCache stores FuncPayloads keyed by Digest, one msgpack file each.
// It is safe for concurrent use.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// DefaultCacheDir returns $XDG_CACHE_HOME/brick or ~/.cache/brick.
func DefaultCacheDir() (string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".cache")
	}
	return filepath.Join(base, "brick"), nil
}

// OpenDiskCache opens (creating if needed) a cache rooted at dir. An empty
// dir selects DefaultCacheDir.
func OpenDiskCache(dir string) (*DiskCache, error) {
	if dir == "" {
		var err error
		if dir, err = DefaultCacheDir(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache root.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Digest) string {
	return filepath.Join(c.dir, "funcs", key.String()+".mp")
}

// Put writes payload under key atomically.
func (c *DiskCache) Put(key Digest, payload *FuncPayload) error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())
	payload.Schema = cacheSchemaVersion
	if err := msgpack.NewEncoder(f).Encode(payload); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads the payload stored under key. A missing entry or one written
// under another schema is a miss, not an error.
func (c *DiskCache) Get(key Digest) (*FuncPayload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Open(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()
	var out FuncPayload
	if err := msgpack.NewDecoder(f).Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Schema != cacheSchemaVersion {
		return nil, false, nil
	}
	return &out, true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return os.RemoveAll(filepath.Join(c.dir, "funcs"))
}
