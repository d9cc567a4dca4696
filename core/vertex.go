package core

import "github.com/signalsfoundry/netstore/model"

// ConnectableType classifies the equipment behind a vertex. It drives the
// feeder / branch / busbar-section counts of a calculated bus.
type ConnectableType string

const (
	ConnectableBusbarSection            ConnectableType = "BUSBAR_SECTION"
	ConnectableLine                     ConnectableType = "LINE"
	ConnectableTwoWindingsTransformer   ConnectableType = "TWO_WINDINGS_TRANSFORMER"
	ConnectableThreeWindingsTransformer ConnectableType = "THREE_WINDINGS_TRANSFORMER"
	ConnectableGenerator                ConnectableType = "GENERATOR"
	ConnectableBattery                  ConnectableType = "BATTERY"
	ConnectableLoad                     ConnectableType = "LOAD"
	ConnectableShuntCompensator         ConnectableType = "SHUNT_COMPENSATOR"
	ConnectableDanglingLine             ConnectableType = "DANGLING_LINE"
	ConnectableStaticVarCompensator     ConnectableType = "STATIC_VAR_COMPENSATOR"
	ConnectableHvdcConverterStation     ConnectableType = "HVDC_CONVERTER_STATION"
	ConnectableConfiguredBus            ConnectableType = "CONFIGURED_BUS"
)

// Side identifies the terminal of multi-terminal equipment.
type Side int

const (
	SideNone Side = iota
	SideOne
	SideTwo
	SideThree
)

func (s Side) String() string {
	switch s {
	case SideOne:
		return "ONE"
	case SideTwo:
		return "TWO"
	case SideThree:
		return "THREE"
	default:
		return ""
	}
}

// Vertex is one equipment terminal placed on a node (node/breaker) or a
// configured bus (bus/breaker).
type Vertex struct {
	ID              string
	ConnectableType ConnectableType
	Node            int
	Bus             string
	Side            Side
}

// IsFeeder reports whether the vertex counts as a feeder. Branches and HVDC
// converter stations are feeders as well as branches.
func (t ConnectableType) IsFeeder() bool {
	switch t {
	case ConnectableLoad, ConnectableGenerator, ConnectableBattery,
		ConnectableShuntCompensator, ConnectableStaticVarCompensator,
		ConnectableDanglingLine, ConnectableHvdcConverterStation,
		ConnectableLine, ConnectableTwoWindingsTransformer, ConnectableThreeWindingsTransformer:
		return true
	default:
		return false
	}
}

// IsBranch reports whether the vertex counts as a branch.
func (t ConnectableType) IsBranch() bool {
	switch t {
	case ConnectableLine, ConnectableTwoWindingsTransformer,
		ConnectableThreeWindingsTransformer, ConnectableHvdcConverterStation:
		return true
	default:
		return false
	}
}

// IsBusbar reports whether the vertex is a bus-bar (a busbar section, or a
// configured bus in a bus/breaker voltage level).
func (t ConnectableType) IsBusbar() bool {
	return t == ConnectableBusbarSection || t == ConnectableConfiguredBus
}

// ConnectableTypeOf maps a resource type onto the connectable class used by
// the engine. Types that never appear as a vertex return false.
func ConnectableTypeOf(t model.ResourceType) (ConnectableType, bool) {
	switch t {
	case model.ResourceTypeBusbarSection:
		return ConnectableBusbarSection, true
	case model.ResourceTypeLine:
		return ConnectableLine, true
	case model.ResourceTypeTwoWindingsTransformer:
		return ConnectableTwoWindingsTransformer, true
	case model.ResourceTypeThreeWindingsTransformer:
		return ConnectableThreeWindingsTransformer, true
	case model.ResourceTypeGenerator:
		return ConnectableGenerator, true
	case model.ResourceTypeBattery:
		return ConnectableBattery, true
	case model.ResourceTypeLoad:
		return ConnectableLoad, true
	case model.ResourceTypeShuntCompensator:
		return ConnectableShuntCompensator, true
	case model.ResourceTypeDanglingLine:
		return ConnectableDanglingLine, true
	case model.ResourceTypeStaticVarCompensator:
		return ConnectableStaticVarCompensator, true
	case model.ResourceTypeVscConverterStation, model.ResourceTypeLccConverterStation:
		return ConnectableHvdcConverterStation, true
	case model.ResourceTypeConfiguredBus:
		return ConnectableConfiguredBus, true
	default:
		return "", false
	}
}

// ResourceTypesOf is the inverse of ConnectableTypeOf. HVDC converter
// stations map to both converter station resource types.
func ResourceTypesOf(t ConnectableType) []model.ResourceType {
	switch t {
	case ConnectableBusbarSection:
		return []model.ResourceType{model.ResourceTypeBusbarSection}
	case ConnectableLine:
		return []model.ResourceType{model.ResourceTypeLine}
	case ConnectableTwoWindingsTransformer:
		return []model.ResourceType{model.ResourceTypeTwoWindingsTransformer}
	case ConnectableThreeWindingsTransformer:
		return []model.ResourceType{model.ResourceTypeThreeWindingsTransformer}
	case ConnectableGenerator:
		return []model.ResourceType{model.ResourceTypeGenerator}
	case ConnectableBattery:
		return []model.ResourceType{model.ResourceTypeBattery}
	case ConnectableLoad:
		return []model.ResourceType{model.ResourceTypeLoad}
	case ConnectableShuntCompensator:
		return []model.ResourceType{model.ResourceTypeShuntCompensator}
	case ConnectableDanglingLine:
		return []model.ResourceType{model.ResourceTypeDanglingLine}
	case ConnectableStaticVarCompensator:
		return []model.ResourceType{model.ResourceTypeStaticVarCompensator}
	case ConnectableHvdcConverterStation:
		return []model.ResourceType{model.ResourceTypeVscConverterStation, model.ResourceTypeLccConverterStation}
	case ConnectableConfiguredBus:
		return []model.ResourceType{model.ResourceTypeConfiguredBus}
	default:
		return nil
	}
}
