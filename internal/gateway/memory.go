package gateway

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// CountsRecorder receives the store size after every mutation.
type CountsRecorder interface {
	SetStoreCounts(networks, resources int)
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithCountsRecorder publishes network/resource counts to rec.
func WithCountsRecorder(rec CountsRecorder) MemoryOption {
	return func(m *MemoryStore) {
		m.counts = rec
	}
}

// WithStoreLogger sets the logger used for mutation traces.
func WithStoreLogger(l logging.Logger) MemoryOption {
	return func(m *MemoryStore) {
		if l != nil {
			m.log = l
		}
	}
}

// MemoryStore is an in-process Gateway. It is the backing store of the
// netstore server and the test double of the client layer.
//
// All records are copied on the way in and on the way out so callers can
// never alias stored state. Access is guarded by an RWMutex.
type MemoryStore struct {
	mu sync.RWMutex

	networks map[string]*storedNetwork

	counts CountsRecorder
	log    logging.Logger
}

type storedNetwork struct {
	record *model.Resource
	// resources[type][id]
	resources map[model.ResourceType]map[string]*model.Resource
	// byContainer[type][containerID][id]
	byContainer map[model.ResourceType]map[string]map[string]struct{}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	m := &MemoryStore{
		networks: make(map[string]*storedNetwork),
		log:      logging.Noop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

var _ Gateway = (*MemoryStore)(nil)

//
// ---------- Networks ----------
//

func (m *MemoryStore) ListNetworks(ctx context.Context) ([]NetworkInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]NetworkInfo, 0, len(m.networks))
	for id, n := range m.networks {
		info := NetworkInfo{ID: id}
		if a, ok := model.AttributesAs[*model.NetworkAttributes](n.record); ok {
			info.Name = a.Name
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) DeleteNetwork(ctx context.Context, networkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.networks[networkID]; !ok {
		return fmt.Errorf("%w: %q", ErrNetworkNotFound, networkID)
	}
	delete(m.networks, networkID)
	m.publishCountsLocked()
	m.log.Debug(ctx, "network deleted", logging.String("network_id", networkID))
	return nil
}

//
// ---------- Resources ----------
//

// CreateResources stores rs. Creating a NETWORK resource creates the
// network itself; every other type needs the network to exist. The batch is
// applied all-or-nothing.
func (m *MemoryStore) CreateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copies, err := cloneBatch(t, rs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if t == model.ResourceTypeNetwork {
		if len(copies) != 1 || copies[0].ID != networkID {
			return fmt.Errorf("%w: network create must carry exactly the record %q", ErrInvalidRequest, networkID)
		}
		if _, exists := m.networks[networkID]; exists {
			return fmt.Errorf("%w: %q", ErrNetworkExists, networkID)
		}
		m.networks[networkID] = &storedNetwork{
			record:      copies[0],
			resources:   make(map[model.ResourceType]map[string]*model.Resource),
			byContainer: make(map[model.ResourceType]map[string]map[string]struct{}),
		}
		m.publishCountsLocked()
		m.log.Debug(ctx, "network created", logging.String("network_id", networkID))
		return nil
	}

	n, ok := m.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNetworkNotFound, networkID)
	}
	seen := make(map[string]struct{}, len(copies))
	for _, r := range copies {
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: %s %q twice in one batch", ErrResourceExists, t, r.ID)
		}
		seen[r.ID] = struct{}{}
		if _, exists := n.resources[t][r.ID]; exists {
			return fmt.Errorf("%w: %s %q", ErrResourceExists, t, r.ID)
		}
	}
	for _, r := range copies {
		n.putLocked(r)
	}
	m.publishCountsLocked()
	m.log.Debug(ctx, "resources created",
		logging.String("network_id", networkID),
		logging.String("type", t.String()),
		logging.Int("count", len(copies)),
	)
	return nil
}

// GetResource returns a copy of the resource. A missing network or a missing
// resource both report found=false.
func (m *MemoryStore) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.networks[networkID]
	if !ok {
		return nil, false, nil
	}
	var r *model.Resource
	if t == model.ResourceTypeNetwork {
		if id != networkID {
			return nil, false, nil
		}
		r = n.record
	} else {
		r, ok = n.resources[t][id]
		if !ok {
			return nil, false, nil
		}
	}
	out, err := model.CloneResource(r)
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

func (m *MemoryStore) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.networks[networkID]
	if !ok {
		return nil, nil
	}
	ids := n.byContainer[t][containerID]
	out := make([]*model.Resource, 0, len(ids))
	for id := range ids {
		r, err := model.CloneResource(n.resources[t][id])
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortByID(out)
	return out, nil
}

func (m *MemoryStore) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	n, ok := m.networks[networkID]
	if !ok {
		return nil, nil
	}
	if t == model.ResourceTypeNetwork {
		r, err := model.CloneResource(n.record)
		if err != nil {
			return nil, err
		}
		return []*model.Resource{r}, nil
	}
	out := make([]*model.Resource, 0, len(n.resources[t]))
	for _, stored := range n.resources[t] {
		r, err := model.CloneResource(stored)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	sortByID(out)
	return out, nil
}

// UpdateResources replaces stored payloads. Every target must exist; the
// batch is applied all-or-nothing.
func (m *MemoryStore) UpdateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	copies, err := cloneBatch(t, rs)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNetworkNotFound, networkID)
	}
	if t == model.ResourceTypeNetwork {
		if len(copies) != 1 || copies[0].ID != networkID {
			return fmt.Errorf("%w: network update must carry exactly the record %q", ErrInvalidRequest, networkID)
		}
		n.record = copies[0]
		return nil
	}
	for _, r := range copies {
		if _, exists := n.resources[t][r.ID]; !exists {
			return fmt.Errorf("%w: %s %q", ErrResourceNotFound, t, r.ID)
		}
	}
	for _, r := range copies {
		n.deleteLocked(t, r.ID)
		n.putLocked(r)
	}
	m.log.Debug(ctx, "resources updated",
		logging.String("network_id", networkID),
		logging.String("type", t.String()),
		logging.Int("count", len(copies)),
	)
	return nil
}

// DeleteResource removes a resource. Deleting an id the store does not hold
// is not an error.
func (m *MemoryStore) DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if t == model.ResourceTypeNetwork {
		return m.DeleteNetwork(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	n, ok := m.networks[networkID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNetworkNotFound, networkID)
	}
	n.deleteLocked(t, id)
	m.publishCountsLocked()
	return nil
}

// Counts reports how many networks and non-network resources are stored.
func (m *MemoryStore) Counts() (networks, resources int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.countsLocked()
}

//
// ---------- Internal helpers ----------
//

func (n *storedNetwork) putLocked(r *model.Resource) {
	byID := n.resources[r.Type]
	if byID == nil {
		byID = make(map[string]*model.Resource)
		n.resources[r.Type] = byID
	}
	byID[r.ID] = r

	idx := n.byContainer[r.Type]
	if idx == nil {
		idx = make(map[string]map[string]struct{})
		n.byContainer[r.Type] = idx
	}
	for _, c := range r.ContainerIDs() {
		set := idx[c]
		if set == nil {
			set = make(map[string]struct{})
			idx[c] = set
		}
		set[r.ID] = struct{}{}
	}
}

func (n *storedNetwork) deleteLocked(t model.ResourceType, id string) {
	r, ok := n.resources[t][id]
	if !ok {
		return
	}
	delete(n.resources[t], id)
	idx := n.byContainer[t]
	for _, c := range r.ContainerIDs() {
		if set := idx[c]; set != nil {
			delete(set, id)
			if len(set) == 0 {
				delete(idx, c)
			}
		}
	}
}

func (m *MemoryStore) countsLocked() (networks, resources int) {
	for _, n := range m.networks {
		for _, byID := range n.resources {
			resources += len(byID)
		}
	}
	return len(m.networks), resources
}

func (m *MemoryStore) publishCountsLocked() {
	if m.counts == nil {
		return
	}
	m.counts.SetStoreCounts(m.countsLocked())
}

func cloneBatch(t model.ResourceType, rs []*model.Resource) ([]*model.Resource, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRequest, t)
	}
	out := make([]*model.Resource, 0, len(rs))
	for _, r := range rs {
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if r.Type != t {
			return nil, fmt.Errorf("%w: %q is %s in a %s batch", ErrInvalidRequest, r.ID, r.Type, t)
		}
		c, err := model.CloneResource(r)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func sortByID(rs []*model.Resource) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].ID < rs[j].ID })
}
