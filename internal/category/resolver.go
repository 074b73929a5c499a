// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

// Package category implements the Category Path Resolver: it maps a
// slash-separated category path (as produced by a naming schema's
// category_template) onto an LMS category ID, creating any missing
// segments along the way.
package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/linuxfoundation/lfx-v2-roster-sync-service/internal/domain/port"
)

// DryRunCategoryID is the sentinel ID returned by Resolve in dry-run mode
// in place of actually creating a missing segment.
const DryRunCategoryID int64 = -1

// Stats counts the resolver's cache hits versus created segments, reported
// in the job's phase stats for P6.
type Stats struct {
	Found   int
	Created int
}

// Resolver resolves "/"-separated category paths beneath a configured root
// category, caching the full tree on first use and creating missing
// segments on demand. Concurrent resolutions of the same missing segment
// are coalesced via singleflight so only one Create call reaches the LMS.
type Resolver struct {
	store    port.CategoryStore
	rootID   int64
	dryRun   bool
	group    singleflight.Group
	mu       sync.RWMutex
	byParent map[int64]map[string]int64 // parent id -> child name -> child id
	stats    Stats
}

// NewResolver constructs a Resolver. Call Init before the first Resolve.
func NewResolver(store port.CategoryStore, rootID int64, dryRun bool) *Resolver {
	return &Resolver{
		store:    store,
		rootID:   rootID,
		dryRun:   dryRun,
		byParent: map[int64]map[string]int64{},
	}
}

// Init loads every existing category into the resolver's cache. Must be
// called once before any Resolve call.
func (r *Resolver) Init(ctx context.Context) error {
	cats, err := r.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("loading categories: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range cats {
		if r.byParent[c.ParentID] == nil {
			r.byParent[c.ParentID] = map[string]int64{}
		}
		r.byParent[c.ParentID][c.Name] = c.ID
	}
	return nil
}

// Resolve returns the category ID for the given "/"-prefixed path (e.g.
// "/Classes/Grade 10"), creating any segment that does not yet exist
// beneath the resolver's root category. In dry-run mode it never creates:
// a missing segment resolves to DryRunCategoryID and every following
// segment under it does too, since its real ID cannot be known.
//
// Segments are matched by walking byParent level by level using the real
// ID chain the store stamps, not by reconstructing a name-based path: the
// store's own Path field is ID-based ("/1/3"), so a name-based path like
// "/Classes/Grade 10" can never match it.
func (r *Resolver) Resolve(ctx context.Context, path string) (int64, error) {
	segments := splitPath(path)
	if len(segments) == 0 {
		return r.rootID, nil
	}

	parentID := r.rootID
	for _, seg := range segments {
		if id, ok := r.lookup(parentID, seg); ok {
			parentID = id
			r.recordFound()
			continue
		}

		if parentID == DryRunCategoryID {
			r.recordCreated()
			continue
		}

		id, err := r.resolveSegment(ctx, seg, parentID)
		if err != nil {
			return 0, err
		}
		parentID = id
	}

	return parentID, nil
}

func (r *Resolver) resolveSegment(ctx context.Context, name string, parentID int64) (int64, error) {
	if r.dryRun {
		r.recordCreated()
		return DryRunCategoryID, nil
	}

	key := fmt.Sprintf("%d/%s", parentID, name)
	v, err, _ := r.group.Do(key, func() (any, error) {
		if id, ok := r.lookup(parentID, name); ok {
			return id, nil
		}

		id, err := r.store.Create(ctx, name, parentID)
		if err != nil {
			if errors.Is(err, port.ErrAlreadyExists) {
				return r.reloadSegment(ctx, name, parentID)
			}
			return nil, fmt.Errorf("creating category %q under %d: %w", name, parentID, err)
		}

		r.cacheSegment(parentID, name, id)
		return id, nil
	})
	if err != nil {
		return 0, err
	}

	r.recordCreated()
	return v.(int64), nil
}

// reloadSegment re-lists the store after a losing Create (another actor won
// the race and created the same name/parent pair first) and returns the
// winner's id, per spec §4.5's re-query-on-conflict requirement.
func (r *Resolver) reloadSegment(ctx context.Context, name string, parentID int64) (any, error) {
	cats, err := r.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("reloading categories after conflicting create of %q under %d: %w", name, parentID, err)
	}

	r.mu.Lock()
	for _, c := range cats {
		if r.byParent[c.ParentID] == nil {
			r.byParent[c.ParentID] = map[string]int64{}
		}
		r.byParent[c.ParentID][c.Name] = c.ID
	}
	r.mu.Unlock()

	if id, ok := r.lookup(parentID, name); ok {
		return id, nil
	}
	return nil, fmt.Errorf("category %q under %d not found after conflicting create", name, parentID)
}

func (r *Resolver) cacheSegment(parentID int64, name string, id int64) {
	r.mu.Lock()
	if r.byParent[parentID] == nil {
		r.byParent[parentID] = map[string]int64{}
	}
	r.byParent[parentID][name] = id
	r.mu.Unlock()
}

func (r *Resolver) lookup(parentID int64, name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byParent[parentID][name]
	return id, ok
}

func (r *Resolver) recordFound() {
	r.mu.Lock()
	r.stats.Found++
	r.mu.Unlock()
}

func (r *Resolver) recordCreated() {
	r.mu.Lock()
	r.stats.Created++
	r.mu.Unlock()
}

// Stats returns a snapshot of the resolver's found/created counters.
func (r *Resolver) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
