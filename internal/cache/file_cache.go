package cache

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/yoockh/mockinterview/internal/utils"
)

// FileCache keeps entries in one JSON file so progress survives between CLI
// invocations when no redis is configured. Writes replace the file
// atomically; it is not meant for concurrent processes.
type FileCache struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

type fileEntry struct {
	Value   json.RawMessage `json:"value"`
	Expires *time.Time      `json:"expires,omitempty"`
}

func NewFileCache(path string) (*FileCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, utils.E(utils.CodeUnavailable, "cache.NewFileCache", "cannot create cache directory", err)
	}
	return &FileCache{path: path, now: time.Now}, nil
}

// DefaultFilePath is ~/.mockinterview/state.json, or the temp dir when no
// home directory is known.
func DefaultFilePath() string {
	dir, err := os.UserHomeDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, ".mockinterview", "state.json")
}

func (c *FileCache) load() (map[string]fileEntry, error) {
	m := map[string]fileEntry{}
	b, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return m, nil
	}
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(b, &m); err != nil {
		// unreadable state file starts over
		return map[string]fileEntry{}, nil
	}
	return m, nil
}

func (c *FileCache) save(m map[string]fileEntry) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

func (c *FileCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.load()
	if err != nil {
		return false, utils.E(utils.CodeUnavailable, "FileCache.GetJSON", "cannot read state file", err)
	}
	e, ok := m[key]
	if !ok {
		return false, nil
	}
	if e.Expires != nil && !c.now().Before(*e.Expires) {
		delete(m, key)
		_ = c.save(m)
		return false, nil
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		delete(m, key)
		_ = c.save(m)
		return false, nil
	}
	return true, nil
}

func (c *FileCache) SetJSON(_ context.Context, key string, val any, ttl time.Duration) error {
	const op = "FileCache.SetJSON"
	b, err := json.Marshal(val)
	if err != nil {
		return utils.E(utils.CodeInvalidArgument, op, "value is not serialisable", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.load()
	if err != nil {
		return utils.E(utils.CodeUnavailable, op, "cannot read state file", err)
	}
	e := fileEntry{Value: b}
	if ttl > 0 {
		exp := c.now().Add(ttl)
		e.Expires = &exp
	}
	m[key] = e
	if err := c.save(m); err != nil {
		return utils.E(utils.CodeUnavailable, op, "cannot write state file", err)
	}
	return nil
}

func (c *FileCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, err := c.load()
	if err != nil {
		return utils.E(utils.CodeUnavailable, "FileCache.Del", "cannot read state file", err)
	}
	for _, k := range keys {
		delete(m, k)
	}
	if err := c.save(m); err != nil {
		return utils.E(utils.CodeUnavailable, "FileCache.Del", "cannot write state file", err)
	}
	return nil
}
