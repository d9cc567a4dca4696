package client

import (
	"context"

	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// preloadingClient is StrategyCollection: the first touch of a type loads
// the whole collection of that type in one call.
type preloadingClient struct {
	*cachedClient
}

func newPreloadingClient(cached *cachedClient) *preloadingClient {
	return &preloadingClient{cachedClient: cached}
}

var _ NetworkStoreClient = (*preloadingClient)(nil)

// ensureCached is the per (network, type) gate: it bulk-loads the
// collection unless the cache already holds all of it. Invalidating the
// network resets the gate along with the cache.
func (c *preloadingClient) ensureCached(ctx context.Context, networkID string, t model.ResourceType) error {
	if t == model.ResourceTypeNetwork {
		return nil
	}
	rc := c.resources(networkID, t)
	if rc.IsFullyLoaded() {
		return nil
	}
	c.log.Debug(ctx, "preloading collection",
		logging.String("network_id", networkID),
		logging.String("type", t.String()),
	)
	_, err := rc.GetAllResources(ctx)
	return err
}

func (c *preloadingClient) CreateResources(ctx context.Context, networkID string, rs ...*model.Resource) error {
	batches, err := groupByType(rs)
	if err != nil {
		return err
	}
	for _, t := range model.FlushOrder {
		if len(batches[t]) == 0 {
			continue
		}
		if err := c.ensureCached(ctx, networkID, t); err != nil {
			return err
		}
	}
	return c.cachedClient.CreateResources(ctx, networkID, rs...)
}

func (c *preloadingClient) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	if err := c.ensureCached(ctx, networkID, t); err != nil {
		return nil, false, err
	}
	return c.cachedClient.GetResource(ctx, networkID, t, id)
}

func (c *preloadingClient) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	if err := c.ensureCached(ctx, networkID, t); err != nil {
		return nil, err
	}
	return c.cachedClient.GetContainerResources(ctx, networkID, t, containerID)
}

func (c *preloadingClient) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	if err := c.ensureCached(ctx, networkID, t); err != nil {
		return nil, err
	}
	return c.cachedClient.GetAllResources(ctx, networkID, t)
}

func (c *preloadingClient) UpdateResource(ctx context.Context, networkID string, r *model.Resource) error {
	if r != nil {
		if err := c.ensureCached(ctx, networkID, r.Type); err != nil {
			return err
		}
	}
	return c.cachedClient.UpdateResource(ctx, networkID, r)
}

func (c *preloadingClient) RemoveResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	if err := c.ensureCached(ctx, networkID, t); err != nil {
		return err
	}
	return c.cachedClient.RemoveResource(ctx, networkID, t, id)
}

func (c *preloadingClient) CountResources(ctx context.Context, networkID string, t model.ResourceType) (int, error) {
	if err := c.ensureCached(ctx, networkID, t); err != nil {
		return 0, err
	}
	return c.cachedClient.CountResources(ctx, networkID, t)
}
