package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/netstore/model"
)

const sampleDataset = `
networks:
  - id: sample
    attributes:
      name: Sample grid
      sourceFormat: XIIDM
    resources:
      load:
        - id: LD1
          attributes: {voltageLevelId: VL1, node: 2, p: 12.5}
      voltage-level:
        - id: VL1
          attributes: {substationId: S1, nominalV: 225, topologyKind: NODE_BREAKER}
      SUBSTATION:
        - id: S1
          attributes: {name: Main, country: FR}
      busbar_section:
        - id: BBS1
          attributes: {voltageLevelId: VL1, node: 0}
`

func TestLoadDatasetCreatesInDependencyOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()

	summary, err := LoadDataset(ctx, m, strings.NewReader(sampleDataset))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if len(summary.NetworkIDs) != 1 || summary.NetworkIDs[0] != "sample" {
		t.Fatalf("NetworkIDs = %v", summary.NetworkIDs)
	}
	if summary.Resources[model.ResourceTypeLoad] != 1 || summary.Resources[model.ResourceTypeSubstation] != 1 {
		t.Fatalf("Resources = %v", summary.Resources)
	}

	infos, _ := m.ListNetworks(ctx)
	if len(infos) != 1 || infos[0].Name != "Sample grid" {
		t.Fatalf("ListNetworks = %+v", infos)
	}
	r, found, err := m.GetResource(ctx, "sample", model.ResourceTypeLoad, "LD1")
	if err != nil || !found {
		t.Fatalf("LD1 found=%v err=%v", found, err)
	}
	a, _ := model.AttributesAs[*model.LoadAttributes](r)
	if a.VoltageLevelID != "VL1" || a.Node != 2 || a.P != 12.5 {
		t.Fatalf("LD1 attributes = %+v", a)
	}
	bbs, _ := m.GetContainerResources(ctx, "sample", model.ResourceTypeBusbarSection, "VL1")
	if len(bbs) != 1 {
		t.Fatalf("busbar sections in VL1 = %v", bbs)
	}
}

func TestLoadDatasetAcceptsJSON(t *testing.T) {
	doc := `{"networks": [{"id": "j", "resources": {"GENERATOR": [{"id": "G1", "attributes": {"voltageLevelId": "VL1"}}]}}]}`
	m := NewMemoryStore()
	summary, err := LoadDataset(context.Background(), m, strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadDataset: %v", err)
	}
	if summary.Resources[model.ResourceTypeGenerator] != 1 {
		t.Fatalf("Resources = %v", summary.Resources)
	}
}

func TestLoadDatasetRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty network id", doc: "networks:\n  - id: ''\n"},
		{name: "unknown type", doc: "networks:\n  - id: n\n    resources:\n      FLUX_CAPACITOR:\n        - id: X\n"},
		{name: "empty resource id", doc: "networks:\n  - id: n\n    resources:\n      LOAD:\n        - attributes: {p: 1}\n"},
		{name: "malformed yaml", doc: "networks: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMemoryStore()
			if _, err := LoadDataset(context.Background(), m, strings.NewReader(tc.doc)); err == nil {
				t.Fatalf("expected an error")
			}
			if n, _ := m.Counts(); n != 0 {
				t.Fatalf("nothing should be written on a structural error, got %d networks", n)
			}
		})
	}
}

func TestLoadDatasetStopsOnStoreError(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	mustCreateNetwork(t, m, "sample")

	_, err := LoadDataset(ctx, m, strings.NewReader(sampleDataset))
	if !errors.Is(err, ErrNetworkExists) {
		t.Fatalf("err = %v, want ErrNetworkExists", err)
	}
}
