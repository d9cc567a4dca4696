package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/netstore/core"
	"github.com/signalsfoundry/netstore/internal/client"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/model"
)

var strategies = []client.Strategy{client.StrategyNone, client.StrategyLazy, client.StrategyCollection}

// seedStation stores network "n" with one node/breaker voltage level:
//
//	BBS1(0) --D1 closed-- LD1(1) --B1 open-- G1(2)
func seedStation(t *testing.T, store *gateway.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	batches := [][]*model.Resource{
		{model.NewResource("n", &model.NetworkAttributes{Name: "station"})},
		{model.NewResource("S1", &model.SubstationAttributes{Name: "S1"})},
		{model.NewResource("VL1", &model.VoltageLevelAttributes{SubstationID: "S1", NominalV: 225, TopologyKind: model.TopologyNodeBreaker})},
		{
			model.NewResource("D1", &model.SwitchAttributes{VoltageLevelID: "VL1", Kind: model.SwitchDisconnector, Node1: 0, Node2: 1}),
			model.NewResource("B1", &model.SwitchAttributes{VoltageLevelID: "VL1", Kind: model.SwitchBreaker, Open: true, Node1: 1, Node2: 2}),
		},
		{model.NewResource("BBS1", &model.BusbarSectionAttributes{VoltageLevelID: "VL1", Node: 0})},
		{model.NewResource("LD1", &model.LoadAttributes{Injection: model.Injection{VoltageLevelID: "VL1", Node: 1}, P0: 10})},
		{model.NewResource("G1", &model.GeneratorAttributes{Injection: model.Injection{VoltageLevelID: "VL1", Node: 2}, MaxP: 100, TargetP: 50})},
	}
	for _, batch := range batches {
		if err := store.CreateResources(ctx, "n", batch[0].Type, batch); err != nil {
			t.Fatalf("seed %s: %v", batch[0].Type, err)
		}
	}
}

func openStation(t *testing.T, s client.Strategy) (*Session, *gateway.MemoryStore) {
	t.Helper()
	store := gateway.NewMemoryStore()
	seedStation(t, store)
	c, err := client.New(s, store, client.WithRetryDelay(0))
	if err != nil {
		t.Fatalf("client.New(%s): %v", s, err)
	}
	sess, err := Open(context.Background(), c, "n")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return sess, store
}

func TestOpenUnknownNetworkIsIllegalState(t *testing.T) {
	c, err := client.New(client.StrategyLazy, gateway.NewMemoryStore())
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}
	if _, err := Open(context.Background(), c, "missing"); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Open(missing) err = %v, want ErrIllegalState", err)
	}
}

func TestCreateFlushAndReopen(t *testing.T) {
	ctx := context.Background()
	store := gateway.NewMemoryStore()
	c, err := client.New(client.StrategyLazy, store)
	if err != nil {
		t.Fatalf("client.New: %v", err)
	}

	sess, err := Create(ctx, c, model.NewResource("grid", &model.NetworkAttributes{Name: "grid"}))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if sess.ID().String() == "" {
		t.Fatalf("session should carry an id")
	}
	if _, err := sess.Index().Create(ctx, model.NewResource("S1", &model.SubstationAttributes{Country: "FR"})); err != nil {
		t.Fatalf("Index.Create: %v", err)
	}
	if nets, _ := store.ListNetworks(ctx); len(nets) != 0 {
		t.Fatalf("nothing should reach the store before Flush, got %+v", nets)
	}
	if err := sess.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, found, _ := store.GetResource(ctx, "grid", model.ResourceTypeSubstation, "S1"); !found {
		t.Fatalf("substation should be stored after Flush")
	}

	other, _ := client.New(client.StrategyNone, store)
	reopened, err := Open(ctx, other, "grid")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if reopened.ID() == sess.ID() {
		t.Fatalf("each session should get its own id")
	}
	net, err := reopened.Network(ctx)
	if err != nil {
		t.Fatalf("Network: %v", err)
	}
	if a, _ := model.AttributesAs[*model.NetworkAttributes](net); a.Name != "grid" {
		t.Fatalf("network name = %q, want grid", a.Name)
	}
}

func TestIndexKeepsOneObjectPerID(t *testing.T) {
	ctx := context.Background()
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			sess, _ := openStation(t, s)
			x := sess.Index()

			a, found, err := x.Get(ctx, model.ResourceTypeLoad, "LD1")
			if err != nil || !found {
				t.Fatalf("Get found=%v err=%v", found, err)
			}
			b, _, _ := x.Get(ctx, model.ResourceTypeLoad, "LD1")
			if a != b {
				t.Fatalf("Get returned two instances for LD1")
			}
			all, err := x.GetByContainer(ctx, model.ResourceTypeLoad, "VL1")
			if err != nil || len(all) != 1 || all[0] != a {
				t.Fatalf("GetByContainer = %v, %v; want the same LD1 instance", all, err)
			}
			if n, _ := x.Count(ctx, model.ResourceTypeSwitch); n != 2 {
				t.Fatalf("switch count = %d, want 2", n)
			}
		})
	}
}

func TestIdentifiableUpdateReachesStore(t *testing.T) {
	ctx := context.Background()
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			sess, store := openStation(t, s)
			ld, _, _ := sess.Index().Get(ctx, model.ResourceTypeLoad, "LD1")

			err := ld.Update(ctx, func(a model.Attributes) {
				a.(*model.LoadAttributes).P0 = 42
			})
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			again, _, _ := sess.Index().Get(ctx, model.ResourceTypeLoad, "LD1")
			if got := again.Attributes().(*model.LoadAttributes).P0; got != 42 {
				t.Fatalf("P0 before flush = %v, want 42", got)
			}
			if err := sess.Flush(ctx); err != nil {
				t.Fatalf("Flush: %v", err)
			}
			stored, _, _ := store.GetResource(ctx, "n", model.ResourceTypeLoad, "LD1")
			if got := stored.Attributes.(*model.LoadAttributes).P0; got != 42 {
				t.Fatalf("stored P0 = %v, want 42", got)
			}
		})
	}
}

func TestRemovedObjectIsGone(t *testing.T) {
	ctx := context.Background()
	sess, store := openStation(t, client.StrategyLazy)
	x := sess.Index()

	g, _, _ := x.Get(ctx, model.ResourceTypeGenerator, "G1")
	if err := g.Remove(ctx); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !g.Removed() {
		t.Fatalf("instance should be marked removed")
	}
	if _, found, _ := x.Get(ctx, model.ResourceTypeGenerator, "G1"); found {
		t.Fatalf("removed generator still visible")
	}
	err := g.Update(ctx, func(model.Attributes) {})
	if !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Update after Remove err = %v, want ErrIllegalState", err)
	}
	if err := sess.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if _, found, _ := store.GetResource(ctx, "n", model.ResourceTypeGenerator, "G1"); found {
		t.Fatalf("generator should be deleted from the store")
	}
}

func TestFindSearchesEveryType(t *testing.T) {
	ctx := context.Background()
	sess, _ := openStation(t, client.StrategyLazy)
	x := sess.Index()

	o, found, err := x.Find(ctx, "B1")
	if err != nil || !found {
		t.Fatalf("Find(B1) found=%v err=%v", found, err)
	}
	if o.Type() != model.ResourceTypeSwitch {
		t.Fatalf("B1 type = %s, want SWITCH", o.Type())
	}
	again, _, _ := x.Find(ctx, "B1")
	if again != o {
		t.Fatalf("Find should return the live instance")
	}
	if _, found, err := x.Find(ctx, "nothing"); err != nil || found {
		t.Fatalf("Find(nothing) found=%v err=%v", found, err)
	}
}

func TestCalculatedBusesFollowSwitchState(t *testing.T) {
	ctx := context.Background()
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			sess, _ := openStation(t, s)

			buses, err := sess.CalculatedBuses(ctx, "VL1")
			if err != nil {
				t.Fatalf("CalculatedBuses: %v", err)
			}
			if diff := cmp.Diff([]string{"VL1_0"}, core.SortedBusIDs(buses)); diff != "" {
				t.Fatalf("bus ids mismatch (-want +got):\n%s", diff)
			}
			if _, ok, _ := sess.ConnectableBus(ctx, "VL1", "G1"); ok {
				t.Fatalf("G1 sits behind an open breaker and joins no bus")
			}

			breaker, _, _ := sess.Index().Get(ctx, model.ResourceTypeSwitch, "B1")
			if err := breaker.Update(ctx, func(a model.Attributes) {
				a.(*model.SwitchAttributes).Open = false
			}); err != nil {
				t.Fatalf("close B1: %v", err)
			}

			bus, ok, err := sess.ConnectableBus(ctx, "VL1", "G1")
			if err != nil || !ok {
				t.Fatalf("ConnectableBus(G1) ok=%v err=%v", ok, err)
			}
			if bus.ID != "VL1_0" || bus.FeederCount() != 2 || bus.BusbarSectionCount() != 1 {
				t.Fatalf("bus = %s feeders=%d bbs=%d, want VL1_0 with 2 feeders and 1 busbar section",
					bus.ID, bus.FeederCount(), bus.BusbarSectionCount())
			}

			objs, err := sess.BusConnectables(ctx, bus)
			if err != nil {
				t.Fatalf("BusConnectables: %v", err)
			}
			var ids []string
			for _, o := range objs {
				ids = append(ids, o.ID())
			}
			if diff := cmp.Diff([]string{"BBS1", "G1", "LD1"}, ids); diff != "" {
				t.Fatalf("connectables mismatch (-want +got):\n%s", diff)
			}
			ld, _, _ := sess.Index().Get(ctx, model.ResourceTypeLoad, "LD1")
			if objs[2] != ld {
				t.Fatalf("BusConnectables should resolve to live index objects")
			}
		})
	}
}

func TestCalculatedBusesUnknownVoltageLevel(t *testing.T) {
	sess, _ := openStation(t, client.StrategyLazy)
	if _, err := sess.CalculatedBuses(context.Background(), "VL9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestBusConnectablesRejectsUnknownEquipment(t *testing.T) {
	ctx := context.Background()
	sess, _ := openStation(t, client.StrategyLazy)

	tests := map[string]core.Vertex{
		"unknown class": {ID: "LD1", ConnectableType: "CAPACITOR_BANK"},
		"unknown id":    {ID: "ghost", ConnectableType: core.ConnectableLoad},
	}
	for name, v := range tests {
		t.Run(name, func(t *testing.T) {
			bus := &core.CalculatedBus{ID: "VL1_0", VoltageLevelID: "VL1", Vertices: []core.Vertex{v}}
			if _, err := sess.BusConnectables(ctx, bus); !errors.Is(err, ErrIllegalState) {
				t.Fatalf("err = %v, want ErrIllegalState", err)
			}
		})
	}
	if _, err := sess.BusConnectables(ctx, nil); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("nil bus err = %v, want ErrIllegalState", err)
	}
}

func TestCloseInvalidatesIndex(t *testing.T) {
	ctx := context.Background()
	sess, _ := openStation(t, client.StrategyLazy)
	ld, _, _ := sess.Index().Get(ctx, model.ResourceTypeLoad, "LD1")

	sess.Close()
	sess.Close()

	if _, _, err := sess.Index().Get(ctx, model.ResourceTypeLoad, "LD1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get after Close err = %v, want ErrClosed", err)
	}
	if err := ld.Update(ctx, func(model.Attributes) {}); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("Update after Close err = %v, want ErrIllegalState", err)
	}
	if err := sess.Flush(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("Flush after Close err = %v, want ErrClosed", err)
	}
}

func TestDeleteRemovesNetwork(t *testing.T) {
	ctx := context.Background()
	sess, store := openStation(t, client.StrategyCollection)
	if _, err := sess.Index().GetAll(ctx, model.ResourceTypeLoad); err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if err := sess.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if nets, _ := store.ListNetworks(ctx); len(nets) != 0 {
		t.Fatalf("networks after Delete = %+v, want none", nets)
	}
	if err := sess.Delete(ctx); !errors.Is(err, ErrClosed) {
		t.Fatalf("second Delete err = %v, want ErrClosed", err)
	}
}
