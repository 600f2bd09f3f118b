// Package termcache stores generated search terms durably so a product
// never pays for the same remote generation twice. Keys are normalized
// product names; values are always exactly five terms, enforced on write.
package termcache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-json"

	"github.com/substifinder/backend/internal/domain"
)

// FileCache is a thread-safe key→terms map persisted as a JSON file.
// Entries never expire; regeneration under the same key overwrites.
type FileCache struct {
	path   string
	logger *log.Logger

	mu    sync.RWMutex
	terms map[string][]string
}

// Open loads the cache file at path, or starts empty when it does not
// exist. A corrupt cache file is discarded rather than aborting startup.
func Open(path string, logger *log.Logger) *FileCache {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	c := &FileCache{
		path:   path,
		logger: logger,
		terms:  make(map[string][]string),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("could not read term cache, starting empty", "err", err)
		}
		return c
	}

	if err := json.Unmarshal(data, &c.terms); err != nil {
		logger.Warn("corrupt term cache, starting empty", "err", err)
		c.terms = make(map[string][]string)
		return c
	}

	logger.Info("term cache loaded", "entries", len(c.terms))
	return c
}

// Get returns the cached term list for a key.
func (c *FileCache) Get(key string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	terms, ok := c.terms[key]
	if !ok {
		return nil, false
	}
	out := make([]string, len(terms))
	copy(out, terms)
	return out, true
}

// Put stores exactly five terms under the key and persists the cache
// immediately, so a crash does not lose already-generated terms.
func (c *FileCache) Put(key string, terms []string) error {
	if len(terms) != 5 {
		return fmt.Errorf("%w: expected 5 terms, got %d", domain.ErrInvalidRequest, len(terms))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]string, len(terms))
	copy(stored, terms)
	c.terms[key] = stored

	return c.persistLocked()
}

// Size returns the number of cached entries.
func (c *FileCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.terms)
}

func (c *FileCache) persistLocked() error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}

	data, err := json.MarshalIndent(c.terms, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}

	tmp, err := os.CreateTemp(dir, ".termcache-*.json")
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", domain.ErrCachePersist, err)
	}
	return nil
}
