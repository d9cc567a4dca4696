package session

import (
	"context"
	"fmt"

	"github.com/signalsfoundry/netstore/core"
	"github.com/signalsfoundry/netstore/internal/logging"
	"github.com/signalsfoundry/netstore/model"
)

// topologyTypes are the equipment types read when building a voltage
// level's topology: switches plus everything that can sit on a vertex.
func topologyTypes() []model.ResourceType {
	var out []model.ResourceType
	for _, t := range model.EquipmentTypes() {
		if _, ok := core.ConnectableTypeOf(t); ok || t == model.ResourceTypeSwitch {
			out = append(out, t)
		}
	}
	return out
}

// CalculatedBuses computes the buses of a voltage level from its current
// switch states. Nothing is cached; every call reads and recomputes.
func (s *Session) CalculatedBuses(ctx context.Context, voltageLevelID string) (map[string]*core.CalculatedBus, error) {
	if s.closed {
		return nil, ErrClosed
	}
	vl, found, err := s.client.GetResource(ctx, s.networkID, model.ResourceTypeVoltageLevel, voltageLevelID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: voltage level %q", ErrNotFound, voltageLevelID)
	}

	var equipment []*model.Resource
	for _, t := range topologyTypes() {
		rs, err := s.client.GetContainerResources(ctx, s.networkID, t, voltageLevelID)
		if err != nil {
			return nil, err
		}
		equipment = append(equipment, rs...)
	}

	topo, err := core.BuildTopology(vl, equipment)
	if err != nil {
		return nil, err
	}
	buses, err := core.CalculateBuses(topo)
	if err != nil {
		return nil, err
	}
	s.log.Debug(ctx, "calculated buses",
		logging.String("voltage_level_id", voltageLevelID),
		logging.Int("equipment", len(equipment)),
		logging.Int("buses", len(buses)),
	)
	return buses, nil
}

// ConnectableBus returns the calculated bus a piece of equipment sits on in
// the given voltage level.
func (s *Session) ConnectableBus(ctx context.Context, voltageLevelID, equipmentID string) (*core.CalculatedBus, bool, error) {
	buses, err := s.CalculatedBuses(ctx, voltageLevelID)
	if err != nil {
		return nil, false, err
	}
	b, ok := core.BusOf(buses, equipmentID)
	return b, ok, nil
}

// BusConnectables resolves a bus's vertices back to live objects, one per
// equipment id in vertex order. A vertex that matches no known equipment
// yields ErrIllegalState.
func (s *Session) BusConnectables(ctx context.Context, bus *core.CalculatedBus) ([]*Identifiable, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if bus == nil {
		return nil, fmt.Errorf("%w: nil bus", ErrIllegalState)
	}
	seen := make(map[string]struct{}, len(bus.Vertices))
	out := make([]*Identifiable, 0, len(bus.Vertices))
	for _, v := range bus.Vertices {
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}

		o, err := s.resolve(ctx, v)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

func (s *Session) resolve(ctx context.Context, v core.Vertex) (*Identifiable, error) {
	types := core.ResourceTypesOf(v.ConnectableType)
	if len(types) == 0 {
		return nil, fmt.Errorf("%w: vertex %q has unknown connectable type %q", ErrIllegalState, v.ID, v.ConnectableType)
	}
	for _, t := range types {
		o, found, err := s.index.Get(ctx, t, v.ID)
		if err != nil {
			return nil, err
		}
		if found {
			return o, nil
		}
	}
	return nil, fmt.Errorf("%w: no %s named %q", ErrIllegalState, v.ConnectableType, v.ID)
}
