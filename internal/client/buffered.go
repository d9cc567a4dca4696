package client

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// bufferedClient is StrategyNone: writes go to a WriteBuffer, reads go to
// the store and are overlaid with what is buffered.
type bufferedClient struct {
	remote *remoteClient
	buffer *WriteBuffer
	log    logging.Logger
}

func newBufferedClient(remote *remoteClient, o options) *bufferedClient {
	return &bufferedClient{
		remote: remote,
		buffer: NewWriteBuffer(),
		log:    o.log,
	}
}

var _ NetworkStoreClient = (*bufferedClient)(nil)

//
// ---------- Networks ----------
//

func (c *bufferedClient) ListNetworks(ctx context.Context) ([]gateway.NetworkInfo, error) {
	infos, err := c.remote.ListNetworks(ctx)
	if err != nil {
		return nil, err
	}
	out := slices.DeleteFunc(infos, func(info gateway.NetworkInfo) bool {
		return c.buffer.IsNetworkDeleted(info.ID)
	})
	for _, id := range c.buffer.PendingNetworks() {
		r, _ := c.buffer.Pending(id, model.ResourceTypeNetwork, id)
		info := gateway.NetworkInfo{ID: id}
		if a, ok := model.AttributesAs[*model.NetworkAttributes](r); ok {
			info.Name = a.Name
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (c *bufferedClient) CreateNetwork(ctx context.Context, network *model.Resource) error {
	if err := network.Validate(); err != nil {
		return err
	}
	if network.Type != model.ResourceTypeNetwork {
		return fmt.Errorf("%w: %q is a %s, not a network", model.ErrInvalidResource, network.ID, network.Type)
	}
	return c.buffer.Create(network.ID, network)
}

func (c *bufferedClient) GetNetwork(ctx context.Context, networkID string) (*model.Resource, bool, error) {
	return c.GetResource(ctx, networkID, model.ResourceTypeNetwork, networkID)
}

func (c *bufferedClient) UpdateNetwork(ctx context.Context, network *model.Resource) error {
	if err := network.Validate(); err != nil {
		return err
	}
	return c.UpdateResource(ctx, network.ID, network)
}

func (c *bufferedClient) DeleteNetwork(ctx context.Context, networkID string) error {
	c.buffer.DeleteNetwork(networkID)
	c.log.Debug(ctx, "network deletion buffered", logging.String("network_id", networkID))
	return nil
}

//
// ---------- Resources ----------
//

func (c *bufferedClient) CreateResources(ctx context.Context, networkID string, rs ...*model.Resource) error {
	if _, err := groupByType(rs); err != nil {
		return err
	}
	for _, r := range rs {
		if err := c.buffer.Create(networkID, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *bufferedClient) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	if c.buffer.IsNetworkDeleted(networkID) || c.buffer.IsRemoved(networkID, t, id) {
		return nil, false, nil
	}
	if r, ok := c.buffer.Pending(networkID, t, id); ok {
		return r, true, nil
	}
	if c.localOnly(networkID) {
		return nil, false, nil
	}
	return c.remote.GetResource(ctx, networkID, t, id)
}

func (c *bufferedClient) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	if c.buffer.IsNetworkDeleted(networkID) {
		return nil, nil
	}
	var remote []*model.Resource
	if !c.localOnly(networkID) {
		var err error
		if remote, err = c.remote.GetContainerResources(ctx, networkID, t, containerID); err != nil {
			return nil, err
		}
	}
	return c.overlay(networkID, t, remote, func(r *model.Resource) bool {
		return slices.Contains(r.ContainerIDs(), containerID)
	}), nil
}

func (c *bufferedClient) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	if c.buffer.IsNetworkDeleted(networkID) {
		return nil, nil
	}
	var remote []*model.Resource
	if !c.localOnly(networkID) {
		var err error
		if remote, err = c.remote.GetAllResources(ctx, networkID, t); err != nil {
			return nil, err
		}
	}
	return c.overlay(networkID, t, remote, func(*model.Resource) bool { return true }), nil
}

func (c *bufferedClient) UpdateResource(ctx context.Context, networkID string, r *model.Resource) error {
	return c.buffer.Update(networkID, r)
}

func (c *bufferedClient) RemoveResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	return c.buffer.Remove(networkID, t, id)
}

func (c *bufferedClient) CountResources(ctx context.Context, networkID string, t model.ResourceType) (int, error) {
	rs, err := c.GetAllResources(ctx, networkID, t)
	return len(rs), err
}

func (c *bufferedClient) Flush(ctx context.Context) error {
	if c.buffer.Empty() {
		return nil
	}
	ctx, span := c.remote.tracer.Start(ctx, "netstore.flush")
	defer span.End()

	if err := c.buffer.Flush(ctx, c.remote); err != nil {
		span.RecordError(err)
		c.log.Error(ctx, "flush failed", logging.Err(err))
		return err
	}
	c.log.Debug(ctx, "flush complete")
	return nil
}

// localOnly reports whether networkID exists only in the buffer, in which
// case the store has nothing to say about it.
func (c *bufferedClient) localOnly(networkID string) bool {
	return c.buffer.IsNetworkPending(networkID)
}

// overlay replaces remote records by their buffered versions, hides pending
// removals and adds buffered records matching keep that the store does not
// know yet. The result is sorted by id.
func (c *bufferedClient) overlay(networkID string, t model.ResourceType, remote []*model.Resource, keep func(*model.Resource) bool) []*model.Resource {
	out := make([]*model.Resource, 0, len(remote))
	seen := make(map[string]struct{}, len(remote))
	for _, r := range remote {
		seen[r.ID] = struct{}{}
		if c.buffer.IsRemoved(networkID, t, r.ID) {
			continue
		}
		if pending, ok := c.buffer.Pending(networkID, t, r.ID); ok {
			if keep(pending) {
				out = append(out, pending)
			}
			continue
		}
		out = append(out, r)
	}
	for _, r := range c.buffer.PendingResources(networkID, t) {
		if _, dup := seen[r.ID]; dup || !keep(r) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
