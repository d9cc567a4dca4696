package cache

import (
	"sort"

	"github.com/signalsfoundry/netstore/model"
)

// LoaderFactory builds the remote read paths for one (network, type) cache.
type LoaderFactory func(networkID string, t model.ResourceType) Loaders

// NetworkCache aggregates the per-type resource caches of one network plus
// the network's own record.
type NetworkCache struct {
	networkID string
	network   *model.Resource
	caches    map[model.ResourceType]*ResourceCache

	loaders LoaderFactory
	opts    []Option
}

func newNetworkCache(networkID string, loaders LoaderFactory, opts []Option) *NetworkCache {
	return &NetworkCache{
		networkID: networkID,
		caches:    make(map[model.ResourceType]*ResourceCache),
		loaders:   loaders,
		opts:      opts,
	}
}

// NetworkID returns the id of the network this cache belongs to.
func (n *NetworkCache) NetworkID() string { return n.networkID }

// Network returns the cached network record, if it was set this session.
func (n *NetworkCache) Network() (*model.Resource, bool) {
	return n.network, n.network != nil
}

// SetNetwork stores the network record. The first value wins; later calls
// only refresh it when they carry the same instance (an in-place update).
func (n *NetworkCache) SetNetwork(r *model.Resource) {
	if n.network == nil || n.network == r {
		n.network = r
	}
}

// ReplaceNetwork overwrites the network record unconditionally; used when
// the caller updates the network through the client.
func (n *NetworkCache) ReplaceNetwork(r *model.Resource) {
	n.network = r
}

// Resources returns the cache for type t, creating it on first touch.
func (n *NetworkCache) Resources(t model.ResourceType) *ResourceCache {
	if c, ok := n.caches[t]; ok {
		return c
	}
	var loaders Loaders
	if n.loaders != nil {
		loaders = n.loaders(n.networkID, t)
	}
	c := NewResourceCache(t, loaders, n.opts...)
	n.caches[t] = c
	return c
}

// CachedTypes lists the types that have a cache, in flush order.
func (n *NetworkCache) CachedTypes() []model.ResourceType {
	out := make([]model.ResourceType, 0, len(n.caches))
	for _, t := range model.FlushOrder {
		if _, ok := n.caches[t]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Registry owns the network caches of one client session, keyed by network
// id. A network's cache is created implicitly on first touch and dropped
// wholesale by Invalidate.
type Registry struct {
	networks map[string]*NetworkCache
	loaders  LoaderFactory
	opts     []Option
}

// NewRegistry creates an empty registry whose caches load through loaders.
func NewRegistry(loaders LoaderFactory, opts ...Option) *Registry {
	return &Registry{
		networks: make(map[string]*NetworkCache),
		loaders:  loaders,
		opts:     opts,
	}
}

// Get returns the cache for networkID, creating it if needed.
func (r *Registry) Get(networkID string) *NetworkCache {
	if n, ok := r.networks[networkID]; ok {
		return n
	}
	n := newNetworkCache(networkID, r.loaders, r.opts)
	r.networks[networkID] = n
	return n
}

// Lookup returns the cache for networkID without creating it.
func (r *Registry) Lookup(networkID string) (*NetworkCache, bool) {
	n, ok := r.networks[networkID]
	return n, ok
}

// Invalidate drops everything cached for networkID.
func (r *Registry) Invalidate(networkID string) {
	delete(r.networks, networkID)
}

// NetworkIDs lists the networks that currently have a cache.
func (r *Registry) NetworkIDs() []string {
	out := make([]string, 0, len(r.networks))
	for id := range r.networks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
