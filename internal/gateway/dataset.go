package gateway

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/signalsfoundry/netstore/model"
	"gopkg.in/yaml.v3"
)

// DatasetSummary reports what LoadDataset stored.
type DatasetSummary struct {
	NetworkIDs []string
	// Resources counts stored records per type, network records excluded.
	Resources map[model.ResourceType]int
}

// Internal document shapes, kept unexported so the format can evolve.
type datasetDoc struct {
	Networks []networkDoc `yaml:"networks"`
}

type networkDoc struct {
	ID         string                   `yaml:"id"`
	Attributes map[string]any           `yaml:"attributes"`
	Resources  map[string][]resourceDoc `yaml:"resources"`
}

type resourceDoc struct {
	ID         string         `yaml:"id"`
	Attributes map[string]any `yaml:"attributes"`
}

// LoadDatasetFile opens path and feeds it to LoadDataset.
func LoadDatasetFile(ctx context.Context, gw Gateway, path string) (*DatasetSummary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadDataset: %w", err)
	}
	defer f.Close()
	return LoadDataset(ctx, gw, f)
}

// LoadDataset reads a YAML (or JSON) dataset from r and creates every
// network it describes in gw, one batch per resource type in flush order.
//
// Resource types are matched case-insensitively. Structural problems fail
// the load before anything is written; store errors abort it midway.
func LoadDataset(ctx context.Context, gw Gateway, r io.Reader) (*DatasetSummary, error) {
	if gw == nil {
		return nil, fmt.Errorf("LoadDataset: gateway is nil")
	}

	var doc datasetDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && err != io.EOF {
		return nil, fmt.Errorf("LoadDataset: decode failed: %w", err)
	}

	type plannedNetwork struct {
		record  *model.Resource
		batches map[model.ResourceType][]*model.Resource
	}
	planned := make([]plannedNetwork, 0, len(doc.Networks))

	for _, n := range doc.Networks {
		if strings.TrimSpace(n.ID) == "" {
			return nil, fmt.Errorf("LoadDataset: network with empty id")
		}
		attrs, err := model.DecodeAttributes(model.ResourceTypeNetwork, n.Attributes)
		if err != nil {
			return nil, fmt.Errorf("LoadDataset: network %q: %w", n.ID, err)
		}
		p := plannedNetwork{
			record:  &model.Resource{Type: model.ResourceTypeNetwork, ID: n.ID, Attributes: attrs},
			batches: make(map[model.ResourceType][]*model.Resource),
		}
		for rawType, docs := range n.Resources {
			t, err := model.ParseResourceType(rawType)
			if err != nil {
				return nil, fmt.Errorf("LoadDataset: network %q: %w", n.ID, err)
			}
			if t == model.ResourceTypeNetwork {
				return nil, fmt.Errorf("LoadDataset: network %q: nested NETWORK resources are not allowed", n.ID)
			}
			for _, d := range docs {
				a, err := model.DecodeAttributes(t, d.Attributes)
				if err != nil {
					return nil, fmt.Errorf("LoadDataset: %s %q: %w", t, d.ID, err)
				}
				res := &model.Resource{Type: t, ID: d.ID, Attributes: a}
				if err := res.Validate(); err != nil {
					return nil, fmt.Errorf("LoadDataset: %w", err)
				}
				p.batches[t] = append(p.batches[t], res)
			}
		}
		planned = append(planned, p)
	}

	summary := &DatasetSummary{
		NetworkIDs: make([]string, 0, len(planned)),
		Resources:  make(map[model.ResourceType]int),
	}
	for _, p := range planned {
		if err := gw.CreateResources(ctx, p.record.ID, model.ResourceTypeNetwork, []*model.Resource{p.record}); err != nil {
			return summary, fmt.Errorf("LoadDataset: create network %q: %w", p.record.ID, err)
		}
		summary.NetworkIDs = append(summary.NetworkIDs, p.record.ID)

		for _, t := range model.FlushOrder {
			batch := p.batches[t]
			if len(batch) == 0 {
				continue
			}
			if err := gw.CreateResources(ctx, p.record.ID, t, batch); err != nil {
				return summary, fmt.Errorf("LoadDataset: network %q: %w", p.record.ID, err)
			}
			summary.Resources[t] += len(batch)
		}
	}
	return summary, nil
}
