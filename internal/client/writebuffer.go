package client

import (
	"context"
	"fmt"
	"slices"

	"github.com/signalsfoundry/netstore/model"
)

// WriteBuffer accumulates local writes until Flush. Per network and per
// type it keeps pending creates, pending updates (latest value wins) and
// deferred removals, each in first-write order.
type WriteBuffer struct {
	networks map[string]*networkBuffer
	order    []string

	// deletedNetworks are deleted after every resource write.
	deletedNetworks []string
}

type networkBuffer struct {
	types map[model.ResourceType]*typeBuffer
}

type typeBuffer struct {
	creates orderedResources
	updates orderedResources
	removes []string
}

// orderedResources is an id-keyed map that remembers insertion order.
type orderedResources struct {
	ids  []string
	byID map[string]*model.Resource
}

func (o *orderedResources) put(r *model.Resource) {
	if o.byID == nil {
		o.byID = make(map[string]*model.Resource)
	}
	if _, ok := o.byID[r.ID]; !ok {
		o.ids = append(o.ids, r.ID)
	}
	o.byID[r.ID] = r
}

func (o *orderedResources) get(id string) (*model.Resource, bool) {
	r, ok := o.byID[id]
	return r, ok
}

func (o *orderedResources) drop(id string) bool {
	if _, ok := o.byID[id]; !ok {
		return false
	}
	delete(o.byID, id)
	o.ids = slices.DeleteFunc(o.ids, func(v string) bool { return v == id })
	return true
}

func (o *orderedResources) list() []*model.Resource {
	out := make([]*model.Resource, 0, len(o.ids))
	for _, id := range o.ids {
		out = append(out, o.byID[id])
	}
	return out
}

func (o *orderedResources) len() int { return len(o.ids) }

func (o *orderedResources) reset() {
	o.ids = nil
	o.byID = nil
}

// NewWriteBuffer returns an empty buffer.
func NewWriteBuffer() *WriteBuffer {
	return &WriteBuffer{networks: make(map[string]*networkBuffer)}
}

func (b *WriteBuffer) typeBuffer(networkID string, t model.ResourceType) *typeBuffer {
	nb, ok := b.networks[networkID]
	if !ok {
		nb = &networkBuffer{types: make(map[model.ResourceType]*typeBuffer)}
		b.networks[networkID] = nb
		b.order = append(b.order, networkID)
	}
	tb, ok := nb.types[t]
	if !ok {
		tb = &typeBuffer{}
		nb.types[t] = tb
	}
	return tb
}

func (b *WriteBuffer) lookup(networkID string, t model.ResourceType) *typeBuffer {
	nb, ok := b.networks[networkID]
	if !ok {
		return nil
	}
	return nb.types[t]
}

// Create buffers a new resource. Creating an id whose removal is pending
// turns into an update of the stored record.
func (b *WriteBuffer) Create(networkID string, r *model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if b.IsNetworkDeleted(networkID) {
		return fmt.Errorf("%w: network %q is pending deletion", ErrIllegalState, networkID)
	}
	tb := b.typeBuffer(networkID, r.Type)
	if i := slices.Index(tb.removes, r.ID); i >= 0 {
		tb.removes = slices.Delete(tb.removes, i, i+1)
		tb.updates.put(r)
		return nil
	}
	tb.creates.put(r)
	return nil
}

// Update buffers the latest value of r. A resource still pending creation
// stays in the create buffer with its new value.
func (b *WriteBuffer) Update(networkID string, r *model.Resource) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if b.IsNetworkDeleted(networkID) {
		return fmt.Errorf("%w: network %q is pending deletion", ErrIllegalState, networkID)
	}
	tb := b.typeBuffer(networkID, r.Type)
	if slices.Contains(tb.removes, r.ID) {
		return fmt.Errorf("%w: %s %q was removed", ErrIllegalState, r.Type, r.ID)
	}
	if _, pending := tb.creates.get(r.ID); pending {
		tb.creates.put(r)
		return nil
	}
	tb.updates.put(r)
	return nil
}

// Remove cancels a pending create outright, or records a deferred removal
// of an already stored resource. Any buffered update is dropped.
func (b *WriteBuffer) Remove(networkID string, t model.ResourceType, id string) error {
	if b.IsNetworkDeleted(networkID) {
		return fmt.Errorf("%w: network %q is pending deletion", ErrIllegalState, networkID)
	}
	tb := b.typeBuffer(networkID, t)
	tb.updates.drop(id)
	if tb.creates.drop(id) {
		return nil
	}
	if !slices.Contains(tb.removes, id) {
		tb.removes = append(tb.removes, id)
	}
	return nil
}

// DeleteNetwork discards everything buffered for networkID. If the network
// itself is still pending creation nothing will reach the store; otherwise
// its deletion is issued at the end of the next flush.
func (b *WriteBuffer) DeleteNetwork(networkID string) {
	pendingCreate := b.IsNetworkPending(networkID)
	if _, ok := b.networks[networkID]; ok {
		delete(b.networks, networkID)
		b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == networkID })
	}
	if !pendingCreate && !b.IsNetworkDeleted(networkID) {
		b.deletedNetworks = append(b.deletedNetworks, networkID)
	}
}

//
// ---------- Views ----------
//

// Pending returns the buffered create or update of id.
func (b *WriteBuffer) Pending(networkID string, t model.ResourceType, id string) (*model.Resource, bool) {
	tb := b.lookup(networkID, t)
	if tb == nil {
		return nil, false
	}
	if r, ok := tb.creates.get(id); ok {
		return r, true
	}
	return tb.updates.get(id)
}

// PendingResources lists buffered creates then updates of one type.
func (b *WriteBuffer) PendingResources(networkID string, t model.ResourceType) []*model.Resource {
	tb := b.lookup(networkID, t)
	if tb == nil {
		return nil
	}
	return append(tb.creates.list(), tb.updates.list()...)
}

// IsRemoved reports whether a deferred removal of id is pending.
func (b *WriteBuffer) IsRemoved(networkID string, t model.ResourceType, id string) bool {
	tb := b.lookup(networkID, t)
	return tb != nil && slices.Contains(tb.removes, id)
}

// IsNetworkDeleted reports whether networkID is pending deletion.
func (b *WriteBuffer) IsNetworkDeleted(networkID string) bool {
	return slices.Contains(b.deletedNetworks, networkID)
}

// PendingNetworks returns the ids of networks whose creation is buffered.
func (b *WriteBuffer) PendingNetworks() []string {
	var out []string
	for _, id := range b.order {
		if b.IsNetworkPending(id) {
			out = append(out, id)
		}
	}
	return out
}

// IsNetworkPending reports whether the creation of networkID is buffered.
func (b *WriteBuffer) IsNetworkPending(networkID string) bool {
	tb := b.lookup(networkID, model.ResourceTypeNetwork)
	if tb == nil {
		return false
	}
	_, ok := tb.creates.get(networkID)
	return ok
}

// Empty reports whether a flush would issue no call.
func (b *WriteBuffer) Empty() bool {
	if len(b.deletedNetworks) > 0 {
		return false
	}
	for _, nb := range b.networks {
		for _, tb := range nb.types {
			if tb.creates.len() > 0 || tb.updates.len() > 0 || len(tb.removes) > 0 {
				return false
			}
		}
	}
	return true
}

//
// ---------- Flush ----------
//

// Flush drains the buffer into w: creates per type in model.FlushOrder,
// then updates in the same order, then removals in reverse order, then
// network deletions. Each type costs one create call and one update call.
//
// A failing call aborts the flush. Types already written stay written;
// the failing type and everything after it stay buffered.
func (b *WriteBuffer) Flush(ctx context.Context, w BatchWriter) error {
	for _, networkID := range slices.Clone(b.order) {
		nb := b.networks[networkID]

		for _, t := range model.FlushOrder {
			tb := nb.types[t]
			if tb == nil || tb.creates.len() == 0 {
				continue
			}
			if err := w.CreateBatch(ctx, networkID, t, tb.creates.list()); err != nil {
				return fmt.Errorf("flush %s creates of network %q: %w", t, networkID, err)
			}
			tb.creates.reset()
		}

		for _, t := range model.FlushOrder {
			tb := nb.types[t]
			if tb == nil || tb.updates.len() == 0 {
				continue
			}
			if err := w.UpdateBatch(ctx, networkID, t, tb.updates.list()); err != nil {
				return fmt.Errorf("flush %s updates of network %q: %w", t, networkID, err)
			}
			tb.updates.reset()
		}

		for i := len(model.FlushOrder) - 1; i >= 0; i-- {
			t := model.FlushOrder[i]
			tb := nb.types[t]
			if tb == nil {
				continue
			}
			for len(tb.removes) > 0 {
				id := tb.removes[0]
				if err := w.DeleteResource(ctx, networkID, t, id); err != nil {
					return fmt.Errorf("flush removal of %s %q in network %q: %w", t, id, networkID, err)
				}
				tb.removes = tb.removes[1:]
			}
		}

		delete(b.networks, networkID)
		b.order = slices.DeleteFunc(b.order, func(v string) bool { return v == networkID })
	}

	for len(b.deletedNetworks) > 0 {
		id := b.deletedNetworks[0]
		if err := w.DeleteNetwork(ctx, id); err != nil {
			return fmt.Errorf("flush deletion of network %q: %w", id, err)
		}
		b.deletedNetworks = b.deletedNetworks[1:]
	}
	return nil
}
