package query

import (
	"database/sql"
	"log"
	"sync"
	"sync/atomic"

	"github.com/ChamsBouzaiene/tally/internal/workbook"
)

// Cache holds loaded workbooks and their registered SQL databases, keyed by
// file identity (path + mtime + size). A modified file gets a fresh key and
// therefore a fresh load; old entries linger until Clear. Nothing here
// watches the filesystem.
type Cache struct {
	mu      sync.Mutex
	entries map[workbook.FileKey]*cacheEntry

	registrations atomic.Int64
}

type cacheEntry struct {
	once   sync.Once
	err    error
	sheets []workbook.Sheet
	db     *sql.DB
}

// NewCache returns an empty workbook cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[workbook.FileKey]*cacheEntry)}
}

// Registrations reports how many times a workbook has been loaded and
// registered. Useful for verifying that repeated queries against an
// unchanged file hit the cache.
func (c *Cache) Registrations() int64 {
	return c.registrations.Load()
}

// acquire returns the cached entry for the file, loading and registering it
// exactly once per key. Concurrent callers for the same key block on the
// same registration.
func (c *Cache) acquire(path string) (*cacheEntry, error) {
	key, err := workbook.KeyFor(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		e = &cacheEntry{}
		c.entries[key] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.sheets, e.err = workbook.Load(path, "")
		if e.err != nil {
			return
		}
		e.db, e.err = openMemoryDB()
		if e.err != nil {
			return
		}
		if e.err = registerSheets(e.db, e.sheets); e.err != nil {
			e.db.Close()
			e.db = nil
			return
		}
		c.registrations.Add(1)
		log.Printf("🗄️  registered %s (%d sheets)", path, len(e.sheets))
	})
	if e.err != nil {
		return nil, e.err
	}
	return e, nil
}

// Clear drops cached state. With a path it drops every entry for that file
// (all historical keys included); with an empty path it drops everything.
// Registered databases are closed as their entries go.
func (c *Cache) Clear(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if path != "" && key.Path != path {
			continue
		}
		if e.db != nil {
			e.db.Close()
		}
		delete(c.entries, key)
	}
}
