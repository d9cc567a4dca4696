package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownResourceType indicates a type tag outside the closed set.
	ErrUnknownResourceType = errors.New("unknown resource type")
	// ErrInvalidResource indicates a resource failed structural validation.
	ErrInvalidResource = errors.New("invalid resource")
)

var attributeFactories = map[ResourceType]func() Attributes{
	ResourceTypeNetwork:                  func() Attributes { return &NetworkAttributes{} },
	ResourceTypeSubstation:               func() Attributes { return &SubstationAttributes{} },
	ResourceTypeVoltageLevel:             func() Attributes { return &VoltageLevelAttributes{} },
	ResourceTypeLoad:                     func() Attributes { return &LoadAttributes{} },
	ResourceTypeGenerator:                func() Attributes { return &GeneratorAttributes{} },
	ResourceTypeBattery:                  func() Attributes { return &BatteryAttributes{} },
	ResourceTypeShuntCompensator:         func() Attributes { return &ShuntCompensatorAttributes{} },
	ResourceTypeStaticVarCompensator:     func() Attributes { return &StaticVarCompensatorAttributes{} },
	ResourceTypeVscConverterStation:      func() Attributes { return &VscConverterStationAttributes{} },
	ResourceTypeLccConverterStation:      func() Attributes { return &LccConverterStationAttributes{} },
	ResourceTypeDanglingLine:             func() Attributes { return &DanglingLineAttributes{} },
	ResourceTypeBusbarSection:            func() Attributes { return &BusbarSectionAttributes{} },
	ResourceTypeSwitch:                   func() Attributes { return &SwitchAttributes{} },
	ResourceTypeLine:                     func() Attributes { return &LineAttributes{} },
	ResourceTypeTwoWindingsTransformer:   func() Attributes { return &TwoWindingsTransformerAttributes{} },
	ResourceTypeThreeWindingsTransformer: func() Attributes { return &ThreeWindingsTransformerAttributes{} },
	ResourceTypeHvdcLine:                 func() Attributes { return &HvdcLineAttributes{} },
	ResourceTypeConfiguredBus:            func() Attributes { return &ConfiguredBusAttributes{} },
}

// NewAttributes returns an empty payload for the given type.
func NewAttributes(t ResourceType) (Attributes, error) {
	f, ok := attributeFactories[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownResourceType, t)
	}
	return f(), nil
}

// EncodeAttributes flattens a payload into a generic map keyed by the JSON
// field names, suitable for google.protobuf.Struct.
func EncodeAttributes(a Attributes) (map[string]any, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil attributes", ErrInvalidResource)
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s attributes: %w", a.ResourceType(), err)
	}
	out := make(map[string]any)
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("encode %s attributes: %w", a.ResourceType(), err)
	}
	return out, nil
}

// DecodeAttributes rebuilds the concrete payload of type t from a generic map.
func DecodeAttributes(t ResourceType, m map[string]any) (Attributes, error) {
	a, err := NewAttributes(t)
	if err != nil {
		return nil, err
	}
	if len(m) == 0 {
		return a, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", t, err)
	}
	if err := json.Unmarshal(raw, a); err != nil {
		return nil, fmt.Errorf("decode %s attributes: %w", t, err)
	}
	return a, nil
}

// CloneResource deep-copies r through the attribute codec so the copy shares
// no memory with the original.
func CloneResource(r *Resource) (*Resource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	m, err := EncodeAttributes(r.Attributes)
	if err != nil {
		return nil, err
	}
	attrs, err := DecodeAttributes(r.Type, m)
	if err != nil {
		return nil, err
	}
	return &Resource{Type: r.Type, ID: r.ID, Attributes: attrs}, nil
}
