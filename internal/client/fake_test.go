package client

import (
	"context"
	"errors"
	"testing"

	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/model"
)

// call is one gateway invocation seen by recordingGateway.
type call struct {
	op  string
	t   model.ResourceType
	ids []string
}

// recordingGateway wraps a MemoryStore, records every call and can inject
// failures on creates.
type recordingGateway struct {
	store *gateway.MemoryStore
	calls []call

	// transportFailures fails that many upcoming creates with ErrTransport.
	transportFailures int
	// rejectType makes every create of that type fail permanently.
	rejectType model.ResourceType
}

func newRecordingGateway() *recordingGateway {
	return &recordingGateway{store: gateway.NewMemoryStore()}
}

var _ gateway.Gateway = (*recordingGateway)(nil)

func idsOf(rs []*model.Resource) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

func (g *recordingGateway) record(op string, t model.ResourceType, ids ...string) {
	g.calls = append(g.calls, call{op: op, t: t, ids: ids})
}

func (g *recordingGateway) ListNetworks(ctx context.Context) ([]gateway.NetworkInfo, error) {
	g.record("list", model.ResourceTypeNetwork)
	return g.store.ListNetworks(ctx)
}

func (g *recordingGateway) CreateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	g.record("create", t, idsOf(rs)...)
	if g.transportFailures > 0 {
		g.transportFailures--
		return gateway.ErrTransport
	}
	if t == g.rejectType {
		return &gateway.StoreError{Type: t, Op: "create", Err: errors.New("rejected")}
	}
	return g.store.CreateResources(ctx, networkID, t, rs)
}

func (g *recordingGateway) GetResource(ctx context.Context, networkID string, t model.ResourceType, id string) (*model.Resource, bool, error) {
	g.record("get", t, id)
	return g.store.GetResource(ctx, networkID, t, id)
}

func (g *recordingGateway) GetContainerResources(ctx context.Context, networkID string, t model.ResourceType, containerID string) ([]*model.Resource, error) {
	g.record("get_container", t, containerID)
	return g.store.GetContainerResources(ctx, networkID, t, containerID)
}

func (g *recordingGateway) GetAllResources(ctx context.Context, networkID string, t model.ResourceType) ([]*model.Resource, error) {
	g.record("get_all", t)
	return g.store.GetAllResources(ctx, networkID, t)
}

func (g *recordingGateway) UpdateResources(ctx context.Context, networkID string, t model.ResourceType, rs []*model.Resource) error {
	g.record("update", t, idsOf(rs)...)
	return g.store.UpdateResources(ctx, networkID, t, rs)
}

func (g *recordingGateway) DeleteResource(ctx context.Context, networkID string, t model.ResourceType, id string) error {
	g.record("delete", t, id)
	return g.store.DeleteResource(ctx, networkID, t, id)
}

func (g *recordingGateway) DeleteNetwork(ctx context.Context, networkID string) error {
	g.record("delete_network", model.ResourceTypeNetwork, networkID)
	return g.store.DeleteNetwork(ctx, networkID)
}

// count returns how many recorded calls match op (and t when non-empty).
func (g *recordingGateway) count(op string, t model.ResourceType) int {
	n := 0
	for _, c := range g.calls {
		if c.op == op && (t == "" || c.t == t) {
			n++
		}
	}
	return n
}

func (g *recordingGateway) reset() { g.calls = nil }

// seed writes straight into the store, bypassing the recorder.
func (g *recordingGateway) seed(t *testing.T, networkID string, rs ...*model.Resource) {
	t.Helper()
	ctx := context.Background()
	if _, found, _ := g.store.GetResource(ctx, networkID, model.ResourceTypeNetwork, networkID); !found {
		net := model.NewResource(networkID, &model.NetworkAttributes{Name: networkID})
		if err := g.store.CreateResources(ctx, networkID, model.ResourceTypeNetwork, []*model.Resource{net}); err != nil {
			t.Fatalf("seed network: %v", err)
		}
	}
	for _, r := range rs {
		if err := g.store.CreateResources(ctx, networkID, r.Type, []*model.Resource{r}); err != nil {
			t.Fatalf("seed %s %q: %v", r.Type, r.ID, err)
		}
	}
}

func newLoad(id, vl string, p float64) *model.Resource {
	return model.NewResource(id, &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: vl, P: p}})
}

func newTestClient(t *testing.T, s Strategy, gw gateway.Gateway, opts ...Option) NetworkStoreClient {
	t.Helper()
	opts = append([]Option{WithRetryDelay(0)}, opts...)
	c, err := New(s, gw, opts...)
	if err != nil {
		t.Fatalf("New(%s): %v", s, err)
	}
	return c
}
