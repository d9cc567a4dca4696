package core

import (
	"fmt"

	"github.com/signalsfoundry/netstore/model"
)

// BuildTopology turns a voltage level record and the equipment attached to
// it into engine input. Branches contribute the terminal(s) on this voltage
// level, three-winding transformers the matching leg(s). Switches become
// edges; the voltage level's internal connections are carried over.
//
// Equipment of a type the engine cannot place (HVDC lines, containers)
// yields ErrUnknownConnectable.
func BuildTopology(voltageLevel *model.Resource, equipment []*model.Resource) (*Topology, error) {
	vl, ok := model.AttributesAs[*model.VoltageLevelAttributes](voltageLevel)
	if !ok {
		return nil, fmt.Errorf("%w: %v is not a voltage level", ErrInvalidTopology, voltageLevel)
	}
	t := &Topology{
		VoltageLevelID:      voltageLevel.ID,
		Kind:                vl.TopologyKind,
		InternalConnections: append([]model.InternalConnection(nil), vl.InternalConnections...),
	}
	if t.Kind == "" {
		t.Kind = model.TopologyNodeBreaker
	}

	for _, r := range equipment {
		if r == nil {
			continue
		}
		if sw, ok := model.AttributesAs[*model.SwitchAttributes](r); ok {
			if sw.VoltageLevelID != t.VoltageLevelID {
				continue
			}
			t.Switches = append(t.Switches, SwitchEdge{
				ID:    r.ID,
				Open:  sw.Open,
				Node1: sw.Node1,
				Node2: sw.Node2,
				Bus1:  sw.Bus1,
				Bus2:  sw.Bus2,
			})
			continue
		}
		vs, err := VerticesOf(r, t.VoltageLevelID)
		if err != nil {
			return nil, err
		}
		t.Vertices = append(t.Vertices, vs...)
	}
	return t, nil
}

// VerticesOf returns the terminals equipment r has on voltage level vlID.
func VerticesOf(r *model.Resource, vlID string) ([]Vertex, error) {
	ct, ok := ConnectableTypeOf(r.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %q of type %s", ErrUnknownConnectable, r.ID, r.Type)
	}

	switch a := r.Attributes.(type) {
	case *model.BusbarSectionAttributes:
		if a.VoltageLevelID != vlID {
			return nil, nil
		}
		return []Vertex{{ID: r.ID, ConnectableType: ct, Node: a.Node}}, nil

	case *model.ConfiguredBusAttributes:
		if a.VoltageLevelID != vlID {
			return nil, nil
		}
		return []Vertex{{ID: r.ID, ConnectableType: ct, Bus: r.ID}}, nil

	case *model.LineAttributes:
		return branchVertices(r.ID, ct, &a.Branch, vlID), nil

	case *model.TwoWindingsTransformerAttributes:
		return branchVertices(r.ID, ct, &a.Branch, vlID), nil

	case *model.ThreeWindingsTransformerAttributes:
		var out []Vertex
		for i, leg := range a.Legs() {
			if leg.VoltageLevelID != vlID {
				continue
			}
			out = append(out, Vertex{ID: r.ID, ConnectableType: ct, Node: leg.Node, Bus: leg.Bus, Side: Side(i + 1)})
		}
		return out, nil
	}

	inj, ok := injectionOf(r.Attributes)
	if !ok {
		return nil, fmt.Errorf("%w: %q carries %T", ErrUnknownConnectable, r.ID, r.Attributes)
	}
	if inj.VoltageLevelID != vlID {
		return nil, nil
	}
	return []Vertex{{ID: r.ID, ConnectableType: ct, Node: inj.Node, Bus: inj.Bus}}, nil
}

func branchVertices(id string, ct ConnectableType, b *model.Branch, vlID string) []Vertex {
	var out []Vertex
	if b.VoltageLevelID1 == vlID {
		out = append(out, Vertex{ID: id, ConnectableType: ct, Node: b.Node1, Bus: b.Bus1, Side: SideOne})
	}
	if b.VoltageLevelID2 == vlID {
		out = append(out, Vertex{ID: id, ConnectableType: ct, Node: b.Node2, Bus: b.Bus2, Side: SideTwo})
	}
	return out
}

func injectionOf(a model.Attributes) (*model.Injection, bool) {
	switch a := a.(type) {
	case *model.LoadAttributes:
		return &a.Injection, true
	case *model.GeneratorAttributes:
		return &a.Injection, true
	case *model.BatteryAttributes:
		return &a.Injection, true
	case *model.ShuntCompensatorAttributes:
		return &a.Injection, true
	case *model.StaticVarCompensatorAttributes:
		return &a.Injection, true
	case *model.VscConverterStationAttributes:
		return &a.Injection, true
	case *model.LccConverterStationAttributes:
		return &a.Injection, true
	case *model.DanglingLineAttributes:
		return &a.Injection, true
	default:
		return nil, false
	}
}
