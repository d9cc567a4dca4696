// core/topology.go
package core

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/signalsfoundry/netstore/model"
)

var (
	// ErrInvalidTopology indicates malformed connectivity input.
	ErrInvalidTopology = errors.New("invalid topology")
	// ErrUnknownConnectable indicates equipment the engine cannot classify.
	ErrUnknownConnectable = errors.New("unknown connectable type")
)

// SwitchEdge is a switching device between two nodes (node/breaker) or two
// configured buses (bus/breaker). Only closed switches connect anything.
type SwitchEdge struct {
	ID    string
	Open  bool
	Node1 int
	Node2 int
	Bus1  string
	Bus2  string
}

// Topology is the raw connectivity of one voltage level.
type Topology struct {
	VoltageLevelID      string
	Kind                model.TopologyKind
	Vertices            []Vertex
	Switches            []SwitchEdge
	InternalConnections []model.InternalConnection
}

// CalculatedBus is an electrically connected group of terminals derived from
// the current switch state. It is never persisted.
type CalculatedBus struct {
	ID             string
	Name           string
	VoltageLevelID string
	Vertices       []Vertex

	busbarSectionCount int
	feederCount        int
	branchCount        int
}

func (b *CalculatedBus) BusbarSectionCount() int { return b.busbarSectionCount }
func (b *CalculatedBus) FeederCount() int        { return b.feederCount }
func (b *CalculatedBus) BranchCount() int        { return b.branchCount }

// Contains reports whether the bus holds a terminal of equipment id.
func (b *CalculatedBus) Contains(id string) bool {
	for _, v := range b.Vertices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// isValid: a bus needs a bus-bar and a feeder, or a branch and two feeders.
func (b *CalculatedBus) isValid() bool {
	return (b.busbarSectionCount >= 1 && b.feederCount >= 1) ||
		(b.branchCount >= 1 && b.feederCount >= 2)
}

// CalculateBuses groups the topology's vertices into calculated buses by
// connectivity over closed switches and internal connections, dropping the
// groups that fail the validity rule. The result is keyed by bus id.
//
// Every call recomputes from scratch; nothing is cached across switch-state
// changes.
func CalculateBuses(t *Topology) (map[string]*CalculatedBus, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil topology", ErrInvalidTopology)
	}
	switch t.Kind {
	case model.TopologyBusBreaker:
		return calculateBusBreaker(t)
	case model.TopologyNodeBreaker, "":
		return calculateNodeBreaker(t)
	default:
		return nil, fmt.Errorf("%w: voltage level %q has unknown topology kind %q", ErrInvalidTopology, t.VoltageLevelID, t.Kind)
	}
}

func calculateNodeBreaker(t *Topology) (map[string]*CalculatedBus, error) {
	nodes := newDisjointSet[int]()
	for _, v := range t.Vertices {
		if v.Node < 0 {
			return nil, fmt.Errorf("%w: %q sits on negative node %d", ErrInvalidTopology, v.ID, v.Node)
		}
		nodes.add(v.Node)
	}
	for _, sw := range t.Switches {
		if sw.Node1 < 0 || sw.Node2 < 0 {
			return nil, fmt.Errorf("%w: switch %q has a negative node", ErrInvalidTopology, sw.ID)
		}
		nodes.add(sw.Node1)
		nodes.add(sw.Node2)
		if !sw.Open {
			nodes.union(sw.Node1, sw.Node2)
		}
	}
	for _, ic := range t.InternalConnections {
		if ic.Node1 < 0 || ic.Node2 < 0 {
			return nil, fmt.Errorf("%w: internal connection %d-%d has a negative node", ErrInvalidTopology, ic.Node1, ic.Node2)
		}
		nodes.add(ic.Node1)
		nodes.add(ic.Node2)
		nodes.union(ic.Node1, ic.Node2)
	}

	return collectBuses(t, nodes, func(v Vertex) (int, bool) { return v.Node, true }, strconv.Itoa), nil
}

func calculateBusBreaker(t *Topology) (map[string]*CalculatedBus, error) {
	buses := newDisjointSet[string]()
	for _, v := range t.Vertices {
		if v.Bus != "" {
			buses.add(v.Bus)
		}
	}
	for _, sw := range t.Switches {
		if sw.Bus1 == "" || sw.Bus2 == "" {
			return nil, fmt.Errorf("%w: switch %q has no bus on one side", ErrInvalidTopology, sw.ID)
		}
		buses.add(sw.Bus1)
		buses.add(sw.Bus2)
		if !sw.Open {
			buses.union(sw.Bus1, sw.Bus2)
		}
	}

	// Equipment without a bus is disconnected and joins no calculated bus.
	return collectBuses(t, buses, func(v Vertex) (string, bool) { return v.Bus, v.Bus != "" }, func(s string) string { return s }), nil
}

func collectBuses[K cmp.Ordered](t *Topology, set *disjointSet[K], keyOf func(Vertex) (K, bool), format func(K) string) map[string]*CalculatedBus {
	members := make(map[K][]Vertex)
	for _, v := range t.Vertices {
		k, ok := keyOf(v)
		if !ok {
			continue
		}
		root := set.find(k)
		members[root] = append(members[root], v)
	}

	minKey := make(map[K]K)
	for _, k := range set.keys() {
		root := set.find(k)
		if cur, ok := minKey[root]; !ok || k < cur {
			minKey[root] = k
		}
	}

	out := make(map[string]*CalculatedBus)
	for root, vertices := range members {
		bus := &CalculatedBus{
			ID:             t.VoltageLevelID + "_" + format(minKey[root]),
			VoltageLevelID: t.VoltageLevelID,
			Vertices:       sortVertices(vertices),
		}
		for _, v := range vertices {
			if v.ConnectableType.IsBusbar() {
				bus.busbarSectionCount++
			}
			if v.ConnectableType.IsFeeder() {
				bus.feederCount++
			}
			if v.ConnectableType.IsBranch() {
				bus.branchCount++
			}
		}
		if bus.isValid() {
			out[bus.ID] = bus
		}
	}
	return out
}

// BusOf returns the calculated bus holding a terminal of equipment id.
func BusOf(buses map[string]*CalculatedBus, id string) (*CalculatedBus, bool) {
	for _, b := range buses {
		if b.Contains(id) {
			return b, true
		}
	}
	return nil, false
}

// SortedBusIDs lists bus ids in a stable order.
func SortedBusIDs(buses map[string]*CalculatedBus) []string {
	out := make([]string, 0, len(buses))
	for id := range buses {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func sortVertices(vs []Vertex) []Vertex {
	out := slices.Clone(vs)
	slices.SortFunc(out, func(a, b Vertex) int {
		if c := cmp.Compare(a.ID, b.ID); c != 0 {
			return c
		}
		return cmp.Compare(a.Side, b.Side)
	})
	return out
}
