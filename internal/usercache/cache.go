// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package usercache implements the run-scoped username -> UserCacheEntry
// table built during P3 and consulted by every later phase.
package usercache

import (
	"strings"
	"sync"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/model"
)

// Cache is the authoritative, run-scoped mapping from lowercase username
// to UserCacheEntry. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]model.UserCacheEntry
}

// New returns an empty Cache.
func New() *Cache {
	return &Cache{entries: map[string]model.UserCacheEntry{}}
}

// Put records lms_id/is_teacher for a username, keyed by lowercase username
// per the spec's UserCacheEntry invariant.
func (c *Cache) Put(username string, entry model.UserCacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[strings.ToLower(username)] = entry
}

// Get returns the entry for a username, and whether it was found.
func (c *Cache) Get(username string) (model.UserCacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[strings.ToLower(username)]
	return e, ok
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
