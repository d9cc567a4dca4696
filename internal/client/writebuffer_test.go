package client

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/netstore/internal/gateway"
	"github.com/signalsfoundry/netstore/model"
)

func TestFlushIssuesOneBatchPerType(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n", newLoad("LDA", "VL1", 1), newLoad("LDB", "VL1", 1))
	c := newTestClient(t, StrategyNone, gw)

	if err := c.CreateResources(ctx, "n", newLoad("LD1", "VL1", 1), newLoad("LD2", "VL1", 2)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.CreateResources(ctx, "n", newLoad("LD3", "VL1", 3)); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, p := range []float64{10, 20} {
		if err := c.UpdateResource(ctx, "n", newLoad("LDA", "VL1", p)); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	if err := c.UpdateResource(ctx, "n", newLoad("LDB", "VL1", 5)); err != nil {
		t.Fatalf("update: %v", err)
	}
	// Updating a resource that is only pending creation stays a create.
	if err := c.UpdateResource(ctx, "n", newLoad("LD2", "VL1", 22)); err != nil {
		t.Fatalf("update pending create: %v", err)
	}

	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []call{
		{op: "create", t: model.ResourceTypeLoad, ids: []string{"LD1", "LD2", "LD3"}},
		{op: "update", t: model.ResourceTypeLoad, ids: []string{"LDA", "LDB"}},
	}
	if diff := cmp.Diff(want, gw.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("flush calls mismatch (-want +got):\n%s", diff)
	}

	r, _, _ := gw.store.GetResource(ctx, "n", model.ResourceTypeLoad, "LDA")
	if p := r.Attributes.(*model.LoadAttributes).P; p != 20 {
		t.Fatalf("LDA.P = %v, want the latest value 20", p)
	}
	r, _, _ = gw.store.GetResource(ctx, "n", model.ResourceTypeLoad, "LD2")
	if p := r.Attributes.(*model.LoadAttributes).P; p != 22 {
		t.Fatalf("LD2.P = %v, want 22", p)
	}

	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("second Flush: %v", err)
	}
	if len(gw.calls) != 0 {
		t.Fatalf("second flush issued %v, want no calls", gw.calls)
	}
}

func TestCreateThenRemoveNeverReachesStore(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n")
	c := newTestClient(t, StrategyLazy, gw)

	if err := c.CreateResources(ctx, "n", newLoad("X", "VL1", 1)); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.UpdateResource(ctx, "n", newLoad("X", "VL1", 2)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.RemoveResource(ctx, "n", model.ResourceTypeLoad, "X"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	for _, cl := range gw.calls {
		for _, id := range cl.ids {
			if id == "X" {
				t.Fatalf("call %+v references X", cl)
			}
		}
	}
	if len(gw.calls) != 0 {
		t.Fatalf("flush issued %v, want no calls", gw.calls)
	}
}

func TestFlushOrderFollowsDependencies(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n",
		model.NewResource("S0", &model.SubstationAttributes{}),
		model.NewResource("VL0", &model.VoltageLevelAttributes{SubstationID: "S0"}),
		newLoad("LD0", "VL0", 0),
	)
	c := newTestClient(t, StrategyNone, gw)

	// Written in reverse dependency order on purpose.
	mustCreate := func(r *model.Resource) {
		t.Helper()
		if err := c.CreateResources(ctx, "n", r); err != nil {
			t.Fatalf("create %s: %v", r.ID, err)
		}
	}
	mustCreate(newLoad("LD1", "VL1", 0))
	mustCreate(model.NewResource("VL1", &model.VoltageLevelAttributes{SubstationID: "S1"}))
	mustCreate(model.NewResource("S1", &model.SubstationAttributes{}))
	_ = c.RemoveResource(ctx, "n", model.ResourceTypeVoltageLevel, "VL0")
	_ = c.RemoveResource(ctx, "n", model.ResourceTypeLoad, "LD0")

	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []call{
		{op: "create", t: model.ResourceTypeSubstation, ids: []string{"S1"}},
		{op: "create", t: model.ResourceTypeVoltageLevel, ids: []string{"VL1"}},
		{op: "create", t: model.ResourceTypeLoad, ids: []string{"LD1"}},
		{op: "delete", t: model.ResourceTypeLoad, ids: []string{"LD0"}},
		{op: "delete", t: model.ResourceTypeVoltageLevel, ids: []string{"VL0"}},
	}
	if diff := cmp.Diff(want, gw.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("flush order mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateRetriedOnceOnTransportFailure(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n")
	c := newTestClient(t, StrategyNone, gw)

	_ = c.CreateResources(ctx, "n", newLoad("LD1", "VL1", 1))
	gw.transportFailures = 1
	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("one transport failure should be absorbed by the retry: %v", err)
	}
	if n := gw.count("create", model.ResourceTypeLoad); n != 2 {
		t.Fatalf("create attempts = %d, want 2", n)
	}
}

func TestSecondTransportFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n")
	c := newTestClient(t, StrategyNone, gw)

	_ = c.CreateResources(ctx, "n", newLoad("LD1", "VL1", 1))
	gw.transportFailures = 2
	gw.reset()
	err := c.Flush(ctx)
	if !errors.Is(err, gateway.ErrStore) {
		t.Fatalf("err = %v, want a store error", err)
	}
	if gateway.IsTransport(err) {
		t.Fatalf("err = %v should no longer read as a retryable transport failure", err)
	}
	var serr *gateway.StoreError
	if !errors.As(err, &serr) || serr.Type != model.ResourceTypeLoad || serr.Op != "create" {
		t.Fatalf("StoreError = %+v", serr)
	}
	if n := gw.count("create", ""); n != 2 {
		t.Fatalf("create attempts = %d, want exactly 2", n)
	}

	// The batch stayed buffered and goes through once the store is back.
	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush after recovery: %v", err)
	}
	if _, found, _ := gw.store.GetResource(ctx, "n", model.ResourceTypeLoad, "LD1"); !found {
		t.Fatalf("LD1 should be stored after the retry flush")
	}
}

func TestNonTransportCreateFailureIsNotRetried(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n")
	c := newTestClient(t, StrategyNone, gw)

	_ = c.CreateResources(ctx, "n", newLoad("LD1", "VL1", 1))
	gw.rejectType = model.ResourceTypeLoad
	gw.reset()
	if err := c.Flush(ctx); err == nil {
		t.Fatalf("expected the rejected create to fail the flush")
	}
	if n := gw.count("create", ""); n != 1 {
		t.Fatalf("create attempts = %d, want 1", n)
	}
}

func TestPartialFlushLeavesFailingAndLaterTypesBuffered(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n")
	c := newTestClient(t, StrategyNone, gw)

	_ = c.CreateResources(ctx, "n",
		model.NewResource("S1", &model.SubstationAttributes{}),
		model.NewResource("VL1", &model.VoltageLevelAttributes{SubstationID: "S1"}),
		newLoad("LD1", "VL1", 1),
	)
	gw.rejectType = model.ResourceTypeVoltageLevel
	if err := c.Flush(ctx); err == nil {
		t.Fatalf("expected flush failure")
	}
	if _, found, _ := gw.store.GetResource(ctx, "n", model.ResourceTypeSubstation, "S1"); !found {
		t.Fatalf("S1 was flushed before the failure and must stay stored")
	}
	if _, found, _ := gw.store.GetResource(ctx, "n", model.ResourceTypeLoad, "LD1"); found {
		t.Fatalf("LD1 comes after the failing type and must not be stored")
	}

	gw.rejectType = ""
	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []call{
		{op: "create", t: model.ResourceTypeVoltageLevel, ids: []string{"VL1"}},
		{op: "create", t: model.ResourceTypeLoad, ids: []string{"LD1"}},
	}
	if diff := cmp.Diff(want, gw.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("second flush mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteBufferRecreateAfterRemoveBecomesUpdate(t *testing.T) {
	b := NewWriteBuffer()
	if err := b.Remove("n", model.ResourceTypeLoad, "LD1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !b.IsRemoved("n", model.ResourceTypeLoad, "LD1") {
		t.Fatalf("removal should be pending")
	}
	if err := b.Create("n", newLoad("LD1", "VL1", 3)); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if b.IsRemoved("n", model.ResourceTypeLoad, "LD1") {
		t.Fatalf("re-creating should cancel the removal")
	}
	pending := b.PendingResources("n", model.ResourceTypeLoad)
	if len(pending) != 1 {
		t.Fatalf("pending = %v", pending)
	}
	tb := b.lookup("n", model.ResourceTypeLoad)
	if tb.creates.len() != 0 || tb.updates.len() != 1 {
		t.Fatalf("creates=%d updates=%d, want 0/1", tb.creates.len(), tb.updates.len())
	}
	if err := b.Update("n", newLoad("LD2", "VL1", 0)); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := b.Remove("n", model.ResourceTypeLoad, "LD2"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := b.Update("n", newLoad("LD2", "VL1", 1)); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("update after removal err = %v, want ErrIllegalState", err)
	}
}

func TestWriteBufferNetworkDeletion(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "old")
	c := newTestClient(t, StrategyNone, gw)

	// A network created and deleted before any flush never reaches the store.
	_ = c.CreateNetwork(ctx, model.NewResource("tmp", &model.NetworkAttributes{}))
	_ = c.CreateResources(ctx, "tmp", newLoad("LD1", "VL1", 0))
	_ = c.DeleteNetwork(ctx, "tmp")

	_ = c.CreateResources(ctx, "old", newLoad("LD9", "VL1", 0))
	_ = c.DeleteNetwork(ctx, "old")
	if err := c.CreateResources(ctx, "old", newLoad("LD8", "VL1", 0)); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("write into a network pending deletion err = %v, want ErrIllegalState", err)
	}

	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []call{{op: "delete_network", t: model.ResourceTypeNetwork, ids: []string{"old"}}}
	if diff := cmp.Diff(want, gw.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("flush calls mismatch (-want +got):\n%s", diff)
	}
}

func TestNoWritesIntoNetworkPendingDeletion(t *testing.T) {
	ctx := context.Background()
	gw := newRecordingGateway()
	gw.seed(t, "n", newLoad("LD1", "VL1", 1))
	c := newTestClient(t, StrategyNone, gw)

	if err := c.DeleteNetwork(ctx, "n"); err != nil {
		t.Fatalf("DeleteNetwork: %v", err)
	}
	if err := c.UpdateResource(ctx, "n", newLoad("LD1", "VL1", 2)); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("update err = %v, want ErrIllegalState", err)
	}
	if err := c.RemoveResource(ctx, "n", model.ResourceTypeLoad, "LD1"); !errors.Is(err, ErrIllegalState) {
		t.Fatalf("remove err = %v, want ErrIllegalState", err)
	}

	gw.reset()
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	want := []call{{op: "delete_network", t: model.ResourceTypeNetwork, ids: []string{"n"}}}
	if diff := cmp.Diff(want, gw.calls, cmp.AllowUnexported(call{})); diff != "" {
		t.Fatalf("flush calls mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateNetworkRejectsNil(t *testing.T) {
	ctx := context.Background()
	for _, s := range []Strategy{StrategyNone, StrategyLazy, StrategyCollection} {
		c := newTestClient(t, s, newRecordingGateway())
		if err := c.UpdateNetwork(ctx, nil); !errors.Is(err, model.ErrInvalidResource) {
			t.Fatalf("%s: UpdateNetwork(nil) err = %v, want ErrInvalidResource", s, err)
		}
	}
}
