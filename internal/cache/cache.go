// Package cache holds the in-memory current-revision cache. Entries are plain
// snapshots keyed by page name, replaced wholesale on every mutation, so a
// cached revision can never be mutated out from under a reader by storage
// code holding the same pointer.
package cache

import (
	"sync"

	"github.com/mirrorwell/pagestore/wiki"
)

// RevisionCache maps page name to the last-known current revision.
type RevisionCache struct {
	mu      sync.RWMutex
	entries map[string]*wiki.Revision
}

// New creates an empty RevisionCache.
func New() *RevisionCache {
	return &RevisionCache{
		entries: make(map[string]*wiki.Revision),
	}
}

// Get returns a copy of the cached current revision for a page, if present.
func (c *RevisionCache) Get(name string) (*wiki.Revision, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rev, ok := c.entries[name]
	if !ok {
		return nil, false
	}
	return rev.Clone(), true
}

// Put stores a copy of the revision under its page name.
func (c *RevisionCache) Put(rev *wiki.Revision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[rev.PageName] = rev.Clone()
}

// Evict removes the entry for a page, if present.
func (c *RevisionCache) Evict(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// Rename rekeys a page's entry in place, updating the snapshot's own name.
// No-op when the page is not cached.
func (c *RevisionCache) Rename(from, to string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rev, ok := c.entries[from]
	if !ok {
		return
	}
	delete(c.entries, from)
	renamed := rev.Clone()
	renamed.PageName = to
	c.entries[to] = renamed
}

// Len returns the number of cached pages.
func (c *RevisionCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
