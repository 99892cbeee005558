// Package cache keeps finished traces on disk so an unchanged program is
// not run again.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"stepper/internal/host"
)

// Current schema version - increment when Entry format changes
const schemaVersion uint16 = 1

// Digest identifies a program and the configuration it was traced with.
type Digest [sha256.Size]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Key hashes everything that affects a trace.
func Key(code string, cfg host.Config) Digest {
	h := sha256.New()
	_, _ = h.Write([]byte(strconv.Itoa(int(schemaVersion))))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strconv.FormatBool(cfg.Detail)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(cfg.NS))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(code))
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Entry is a cached trace: the final progress message and the failure that
// followed it, if any. Only finished runs are cached.
type Entry struct {
	Schema  uint16
	Created time.Time

	Last    *host.Message
	Failure *host.Failure
}

// DiskCache stores entries as msgpack files under one directory.
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns a cache rooted at dir, creating it if needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DiskCache{dir: dir}, nil
}

// OpenDefault opens the cache at the user cache location for app.
func OpenDefault(app string) (*DiskCache, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		base = filepath.Join(home, ".cache")
	}
	return Open(filepath.Join(base, app))
}

func (c *DiskCache) pathFor(key Digest) string {
	hexKey := key.String()
	return filepath.Join(c.dir, "traces", hexKey[:2], hexKey+".mp")
}

// Put writes an entry atomically.
func (c *DiskCache) Put(key Digest, e *Entry) (err error) {
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
	defer func() {
		// after a successful rename the temp name is gone
		if rmErr := os.Remove(f.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) && err == nil {
			err = rmErr
		}
	}()

	stored := *e
	stored.Schema = schemaVersion
	if stored.Created.IsZero() {
		stored.Created = time.Now()
	}
	if err := msgpack.NewEncoder(f).Encode(&stored); err != nil {
		f.Close()
		return fmt.Errorf("encode trace: %w", err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), p)
}

// Get reads an entry. Missing entries and entries written by another schema
// version are reported as absent.
func (c *DiskCache) Get(key Digest) (*Entry, bool, error) {
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

	var e Entry
	if err := msgpack.NewDecoder(f).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("decode trace %s: %w", key, err)
	}
	if e.Schema != schemaVersion {
		return nil, false, nil
	}
	return &e, true, nil
}

// DropAll invalidates the cache.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	old := c.dir + ".old-" + time.Now().Format("20060102150405")
	if err := os.Rename(c.dir, old); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := os.RemoveAll(old); err != nil {
		return err
	}
	return os.MkdirAll(c.dir, 0o755)
}
