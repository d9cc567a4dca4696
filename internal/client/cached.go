package client

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netstore/cache"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// cachedClient is StrategyLazy: a per-network identity map in front of the
// buffered client, filled id by id and container by container.
type cachedClient struct {
	delegate *bufferedClient
	caches   *cache.Registry
	log      logging.Logger
}

func newCachedClient(delegate *bufferedClient, o options) *cachedClient {
	c := &cachedClient{delegate: delegate, log: o.log}
	c.caches = cache.NewRegistry(c.loaders, cache.WithLookupObserver(o.metrics))
	return c
}

var _ NetworkStoreClient = (*cachedClient)(nil)

// loaders routes cache misses through the buffered client so records the
// store does not have yet are still visible.
func (c *cachedClient) loaders(networkID string, t model.ResourceType) cache.Loaders {
	return cache.Loaders{
		One: func(ctx context.Context, id string) (*model.Resource, bool, error) {
			return c.delegate.GetResource(ctx, networkID, t, id)
		},
		Container: func(ctx context.Context, containerID string) ([]*model.Resource, error) {
			return c.delegate.GetContainerResources(ctx, networkID, t, containerID)
		},
		All: func(ctx context.Context) ([]*model.Resource, error) {
			return c.delegate.GetAllResources(ctx, networkID, t)
		},
	}
}

func (c *cachedClient) resources(networkID string, t model.ResourceType) *cache.ResourceCache {
	return c.caches.Get(networkID).Resources(t)
}

//
// ---------- Networks ----------
//

func (c *cachedClient) ListNetworks(ctx context.Context) ([]gateway.NetworkInfo, error) {
	return c.delegate.ListNetworks(ctx)
}

func (c *cachedClient) CreateNetwork(ctx context.Context, network *model.Resource) error {
	if err := c.delegate.CreateNetwork(ctx, network); err != nil {
		return err
	}
	c.caches.Get(network.ID).SetNetwork(network)
	return nil
}

func (c *cachedClient) GetNetwork(ctx context.Context, networkID string) (*model.Resource, bool, error) {
	nc := c.caches.Get(networkID)
	if r, ok := nc.Network(); ok {
		return r, true, nil
	}
	r, found, err := c.delegate.GetNetwork(ctx, networkID)
	if err != nil || !found {
		return nil, found, err
	}
	nc.SetNetwork(r)
	got, _ := nc.Network()
	return got, true, nil
}

func (c *cachedClient) UpdateNetwork(ctx context.Context, network *model.Resource) error {
	if err := network.Validate(); err != nil {
		return err
	}
	if err := c.delegate.UpdateNetwork(ctx, network); err != nil {
		return err
	}
	c.caches.Get(network.ID).ReplaceNetwork(network)
	return nil
}

func (c *cachedClient) DeleteNetwork(ctx context.Context, networkID string) error {
	if err := c.delegate.DeleteNetwork(ctx, networkID); err != nil {
		return err
	}
	c.caches.Invalidate(networkID)
	return nil
}

//
// ---------- Resources ----------
//

func (c *cachedClient) CreateResources(ctx context.Context, networkID string, rs ...*model.Resource) error {
	if err := c.delegate.CreateResources(ctx, networkID, rs...); err != nil {
		return err
	}
	for _, r := range rs {
		if err := c.resources(networkID, r.Type).CreateResources(r); err != nil {
			return fmt.Errorf("%w: %v", ErrIllegalState, err)
		}
	}
	return nil
}

func (c *cachedClient) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	if t == model.ResourceTypeNetwork {
		return c.GetNetwork(ctx, id)
	}
	return c.resources(networkID, t).GetResource(ctx, id)
}

func (c *cachedClient) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	return c.resources(networkID, t).GetContainerResources(ctx, containerID)
}

func (c *cachedClient) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	return c.resources(networkID, t).GetAllResources(ctx)
}

func (c *cachedClient) UpdateResource(ctx context.Context, networkID string, r *model.Resource) error {
	if r != nil && r.Type == model.ResourceTypeNetwork {
		return c.UpdateNetwork(ctx, r)
	}
	if err := c.delegate.UpdateResource(ctx, networkID, r); err != nil {
		return err
	}
	return c.resources(networkID, r.Type).UpdateResource(r)
}

func (c *cachedClient) RemoveResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	if err := c.delegate.RemoveResource(ctx, networkID, t, id); err != nil {
		return err
	}
	c.resources(networkID, t).RemoveResource(id)
	return nil
}

func (c *cachedClient) CountResources(ctx context.Context, networkID string, t model.ResourceType) (int, error) {
	return c.resources(networkID, t).GetResourceCount(ctx)
}

func (c *cachedClient) Flush(ctx context.Context) error {
	return c.delegate.Flush(ctx)
}
