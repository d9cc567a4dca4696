package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/signalsfoundry/netstore/model"
)

var (
	// ErrNoLoader indicates the cache was asked to load a scope it has no
	// loader for (e.g. per-container reads of substations).
	ErrNoLoader = errors.New("no loader for scope")
	// ErrTypeMismatch indicates a resource of another type was offered to a
	// per-type cache.
	ErrTypeMismatch = errors.New("resource type does not match cache")
)

// OneLoader fetches a single resource by id. found=false with a nil error
// means the store confirmed the id is absent.
type OneLoader func(ctx context.Context, id string) (res *model.Resource, found bool, err error)

// ContainerLoader fetches every resource owned by one container.
type ContainerLoader func(ctx context.Context, containerID string) ([]*model.Resource, error)

// AllLoader fetches the whole collection of one type.
type AllLoader func(ctx context.Context) ([]*model.Resource, error)

// Loaders bundles the remote read paths a ResourceCache falls back to.
type Loaders struct {
	One       OneLoader
	Container ContainerLoader
	All       AllLoader
}

// LookupObserver is notified of cache hits and misses.
type LookupObserver interface {
	ObserveCacheLookup(t model.ResourceType, hit bool)
}

// Option customises a ResourceCache.
type Option func(*ResourceCache)

// WithLookupObserver attaches an observer for hit/miss accounting.
func WithLookupObserver(o LookupObserver) Option {
	return func(c *ResourceCache) {
		c.observer = o
	}
}

// ResourceCache is the identity map for one (network, resource type) pair.
//
// It tracks three independent freshness states: the whole collection, each
// container, and each id. Once the collection is fully loaded no id lookup
// reaches the loaders again. Removed ids are remembered so a single-id fetch
// cannot resurrect them.
//
// ResourceCache is not safe for concurrent use; callers serialize access.
type ResourceCache struct {
	typ     model.ResourceType
	loaders Loaders

	byID        map[string]*model.Resource
	byContainer map[string]map[string]*model.Resource
	// containersOf remembers which buckets an id was filed under so an
	// in-place attribute edit that moves it can still be unfiled.
	containersOf map[string][]string

	fullyLoaded      bool
	containersLoaded map[string]struct{}
	removed          map[string]struct{}

	observer LookupObserver
}

// NewResourceCache creates an empty cache for resources of type t.
func NewResourceCache(t model.ResourceType, loaders Loaders, opts ...Option) *ResourceCache {
	c := &ResourceCache{
		typ:              t,
		loaders:          loaders,
		byID:             make(map[string]*model.Resource),
		byContainer:      make(map[string]map[string]*model.Resource),
		containersOf:     make(map[string][]string),
		containersLoaded: make(map[string]struct{}),
		removed:          make(map[string]struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Type returns the resource type this cache holds.
func (c *ResourceCache) Type() model.ResourceType { return c.typ }

// IsFullyLoaded reports whether the whole collection is known locally.
func (c *ResourceCache) IsFullyLoaded() bool { return c.fullyLoaded }

// IsContainerLoaded reports whether every resource of containerID is known
// locally.
func (c *ResourceCache) IsContainerLoaded(containerID string) bool {
	if c.fullyLoaded {
		return true
	}
	_, ok := c.containersLoaded[containerID]
	return ok
}

// IsRemoved reports whether id was removed locally and not reloaded since.
func (c *ResourceCache) IsRemoved(id string) bool {
	_, ok := c.removed[id]
	return ok
}

//
// ---------- Reads ----------
//

// GetResource returns the cached resource for id, loading it on a miss
// unless the collection is fully loaded or the id was removed.
func (c *ResourceCache) GetResource(ctx context.Context, id string) (*model.Resource, bool, error) {
	if r, ok := c.byID[id]; ok {
		c.observe(true)
		return r, true, nil
	}
	c.observe(false)
	if c.fullyLoaded {
		return nil, false, nil
	}
	if _, gone := c.removed[id]; gone {
		return nil, false, nil
	}
	if c.loaders.One == nil {
		return nil, false, fmt.Errorf("%w: %s by id", ErrNoLoader, c.typ)
	}

	r, found, err := c.loaders.One(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !found || r == nil {
		return nil, false, nil
	}
	if err := c.checkType(r); err != nil {
		return nil, false, err
	}
	c.insert(r)
	delete(c.removed, r.ID)
	return r, true, nil
}

// GetAllResources returns the whole collection, bulk-loading it once.
//
// Loaded resources overwrite same-id local entries: a full reload lets the
// remote copy win over local edits that were not flushed yet.
func (c *ResourceCache) GetAllResources(ctx context.Context) ([]*model.Resource, error) {
	if !c.fullyLoaded {
		c.observe(false)
		if c.loaders.All == nil {
			return nil, fmt.Errorf("%w: %s collection", ErrNoLoader, c.typ)
		}
		loaded, err := c.loaders.All(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range loaded {
			if r == nil {
				continue
			}
			if err := c.checkType(r); err != nil {
				return nil, err
			}
		}
		for _, r := range loaded {
			if r == nil {
				continue
			}
			c.insert(r)
			for _, containerID := range r.ContainerIDs() {
				c.containersLoaded[containerID] = struct{}{}
			}
		}
		c.removed = make(map[string]struct{})
		c.fullyLoaded = true
	} else {
		c.observe(true)
	}
	return sortedResources(c.byID), nil
}

// GetContainerResources returns every resource owned by containerID,
// loading the container once. Ids already cached keep their local instance.
func (c *ResourceCache) GetContainerResources(ctx context.Context, containerID string) ([]*model.Resource, error) {
	if c.IsContainerLoaded(containerID) {
		c.observe(true)
		return sortedResources(c.byContainer[containerID]), nil
	}
	c.observe(false)
	if c.loaders.Container == nil {
		return nil, fmt.Errorf("%w: %s by container", ErrNoLoader, c.typ)
	}

	loaded, err := c.loaders.Container(ctx, containerID)
	if err != nil {
		return nil, err
	}
	for _, r := range loaded {
		if r == nil {
			continue
		}
		if err := c.checkType(r); err != nil {
			return nil, err
		}
	}
	for _, r := range loaded {
		if r == nil {
			continue
		}
		if _, cached := c.byID[r.ID]; !cached {
			c.insert(r)
		}
		delete(c.removed, r.ID)
	}
	c.containersLoaded[containerID] = struct{}{}
	return sortedResources(c.byContainer[containerID]), nil
}

// GetResourceCount materialises the collection and counts it.
func (c *ResourceCache) GetResourceCount(ctx context.Context) (int, error) {
	all, err := c.GetAllResources(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

//
// ---------- Local mutations ----------
//

// CreateResources upserts rs without touching any freshness flag.
func (c *ResourceCache) CreateResources(rs ...*model.Resource) error {
	for _, r := range rs {
		if err := c.checkType(r); err != nil {
			return err
		}
	}
	for _, r := range rs {
		c.insert(r)
		delete(c.removed, r.ID)
	}
	return nil
}

// UpdateResource upserts r, re-filing it when its containers changed.
func (c *ResourceCache) UpdateResource(r *model.Resource) error {
	return c.CreateResources(r)
}

// RemoveResource drops id from every index and marks it removed.
func (c *ResourceCache) RemoveResource(id string) {
	c.unfile(id)
	delete(c.byID, id)
	c.removed[id] = struct{}{}
}

//
// ---------- Helpers ----------
//

func (c *ResourceCache) insert(r *model.Resource) {
	c.unfile(r.ID)
	c.byID[r.ID] = r

	containers := r.ContainerIDs()
	for _, containerID := range containers {
		bucket, ok := c.byContainer[containerID]
		if !ok {
			bucket = make(map[string]*model.Resource)
			c.byContainer[containerID] = bucket
		}
		bucket[r.ID] = r
	}
	if len(containers) > 0 {
		c.containersOf[r.ID] = containers
	}
}

func (c *ResourceCache) unfile(id string) {
	for _, containerID := range c.containersOf[id] {
		if bucket, ok := c.byContainer[containerID]; ok {
			delete(bucket, id)
		}
	}
	delete(c.containersOf, id)
}

func (c *ResourceCache) checkType(r *model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.Type != c.typ {
		return fmt.Errorf("%w: %q is %s, cache holds %s", ErrTypeMismatch, r.ID, r.Type, c.typ)
	}
	return nil
}

func (c *ResourceCache) observe(hit bool) {
	if c.observer != nil {
		c.observer.ObserveCacheLookup(c.typ, hit)
	}
}

func sortedResources(m map[string]*model.Resource) []*model.Resource {
	out := make([]*model.Resource, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
