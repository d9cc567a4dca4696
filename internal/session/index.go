package session

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/model"
)

// Index maps ids to live objects, one instance per id and type. Objects
// are created on first access; the client owns the records behind them.
type Index struct {
	networkID string
	client    client.NetworkStoreClient
	objects   map[model.ResourceType]map[string]*Identifiable
	closed    bool
}

func newIndex(networkID string, c client.NetworkStoreClient) *Index {
	return &Index{
		networkID: networkID,
		client:    c,
		objects:   make(map[model.ResourceType]map[string]*Identifiable),
	}
}

// Identifiable is a live network object. It shares its resource record with
// the client and refers back to the index that created it.
type Identifiable struct {
	index    *Index
	resource *model.Resource
	removed  bool
}

func (o *Identifiable) ID() string { return o.resource.ID }

func (o *Identifiable) Type() model.ResourceType { return o.resource.Type }

func (o *Identifiable) Resource() *model.Resource { return o.resource }

func (o *Identifiable) Attributes() model.Attributes { return o.resource.Attributes }

// Removed reports whether the object was removed through the index.
func (o *Identifiable) Removed() bool { return o.removed }

// Update applies fn to the object's attributes and records the change with
// the client.
func (o *Identifiable) Update(ctx context.Context, fn func(model.Attributes)) error {
	if o.removed {
		return fmt.Errorf("%w: %s %q was removed", ErrIllegalState, o.Type(), o.ID())
	}
	if o.index.closed {
		return ErrClosed
	}
	fn(o.resource.Attributes)
	return o.index.client.UpdateResource(ctx, o.index.networkID, o.resource)
}

// Remove removes the object from the network.
func (o *Identifiable) Remove(ctx context.Context) error {
	return o.index.Remove(ctx, o.Type(), o.ID())
}

// ---------- Lookups ----------

// Get returns the object of type t with the given id.
func (x *Index) Get(ctx context.Context, t model.ResourceType, id string) (*Identifiable, bool, error) {
	if x.closed {
		return nil, false, ErrClosed
	}
	r, found, err := x.client.GetResource(ctx, x.networkID, t, id)
	if err != nil {
		return nil, false, err
	}
	if !found {
		x.forget(t, id)
		return nil, false, nil
	}
	return x.wrap(r), true, nil
}

// GetByContainer returns the objects of type t held by a container.
func (x *Index) GetByContainer(ctx context.Context, t model.ResourceType, containerID string) ([]*Identifiable, error) {
	if x.closed {
		return nil, ErrClosed
	}
	rs, err := x.client.GetContainerResources(ctx, x.networkID, t, containerID)
	if err != nil {
		return nil, err
	}
	return x.wrapAll(rs), nil
}

// GetAll returns every object of type t.
func (x *Index) GetAll(ctx context.Context, t model.ResourceType) ([]*Identifiable, error) {
	if x.closed {
		return nil, ErrClosed
	}
	rs, err := x.client.GetAllResources(ctx, x.networkID, t)
	if err != nil {
		return nil, err
	}
	return x.wrapAll(rs), nil
}

// Count returns the number of objects of type t.
func (x *Index) Count(ctx context.Context, t model.ResourceType) (int, error) {
	if x.closed {
		return 0, ErrClosed
	}
	return x.client.CountResources(ctx, x.networkID, t)
}

// Find looks an id up across every equipment type, live objects first.
func (x *Index) Find(ctx context.Context, id string) (*Identifiable, bool, error) {
	if x.closed {
		return nil, false, ErrClosed
	}
	types := model.EquipmentTypes()
	for _, t := range types {
		if o, ok := x.objects[t][id]; ok && !o.removed {
			return o, true, nil
		}
	}
	for _, t := range types {
		o, found, err := x.Get(ctx, t, id)
		if err != nil {
			return nil, false, err
		}
		if found {
			return o, true, nil
		}
	}
	return nil, false, nil
}

// ---------- Writes ----------

// Create adds a resource to the network and returns its live object.
func (x *Index) Create(ctx context.Context, r *model.Resource) (*Identifiable, error) {
	if x.closed {
		return nil, ErrClosed
	}
	if err := x.client.CreateResources(ctx, x.networkID, r); err != nil {
		return nil, err
	}
	return x.wrap(r), nil
}

// Remove removes the object of type t with the given id. A live instance is
// marked removed and leaves the index.
func (x *Index) Remove(ctx context.Context, t model.ResourceType, id string) error {
	if x.closed {
		return ErrClosed
	}
	if err := x.client.RemoveResource(ctx, x.networkID, t, id); err != nil {
		return err
	}
	x.forget(t, id)
	return nil
}

// ---------- Internals ----------

func (x *Index) wrap(r *model.Resource) *Identifiable {
	byID, ok := x.objects[r.Type]
	if !ok {
		byID = make(map[string]*Identifiable)
		x.objects[r.Type] = byID
	}
	if o, ok := byID[r.ID]; ok {
		o.resource = r
		return o
	}
	o := &Identifiable{index: x, resource: r}
	byID[r.ID] = o
	return o
}

func (x *Index) wrapAll(rs []*model.Resource) []*Identifiable {
	out := make([]*Identifiable, 0, len(rs))
	for _, r := range rs {
		out = append(out, x.wrap(r))
	}
	return out
}

func (x *Index) forget(t model.ResourceType, id string) {
	if o, ok := x.objects[t][id]; ok {
		o.removed = true
		delete(x.objects[t], id)
	}
}

func (x *Index) invalidate() {
	x.closed = true
	x.objects = make(map[model.ResourceType]map[string]*Identifiable)
}
