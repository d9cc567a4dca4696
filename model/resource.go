package model

import (
	"fmt"
	"strings"
)

// ResourceType tags the kind of record a Resource carries. It selects which
// per-type cache and buffer a resource lives in.
type ResourceType string

const (
	ResourceTypeNetwork                  ResourceType = "NETWORK"
	ResourceTypeSubstation               ResourceType = "SUBSTATION"
	ResourceTypeVoltageLevel             ResourceType = "VOLTAGE_LEVEL"
	ResourceTypeLoad                     ResourceType = "LOAD"
	ResourceTypeGenerator                ResourceType = "GENERATOR"
	ResourceTypeBattery                  ResourceType = "BATTERY"
	ResourceTypeShuntCompensator         ResourceType = "SHUNT_COMPENSATOR"
	ResourceTypeStaticVarCompensator     ResourceType = "STATIC_VAR_COMPENSATOR"
	ResourceTypeVscConverterStation      ResourceType = "VSC_CONVERTER_STATION"
	ResourceTypeLccConverterStation      ResourceType = "LCC_CONVERTER_STATION"
	ResourceTypeDanglingLine             ResourceType = "DANGLING_LINE"
	ResourceTypeBusbarSection            ResourceType = "BUSBAR_SECTION"
	ResourceTypeSwitch                   ResourceType = "SWITCH"
	ResourceTypeLine                     ResourceType = "LINE"
	ResourceTypeTwoWindingsTransformer   ResourceType = "TWO_WINDINGS_TRANSFORMER"
	ResourceTypeThreeWindingsTransformer ResourceType = "THREE_WINDINGS_TRANSFORMER"
	ResourceTypeHvdcLine                 ResourceType = "HVDC_LINE"
	ResourceTypeConfiguredBus            ResourceType = "CONFIGURED_BUS"
)

// FlushOrder lists every resource type in dependency order: the network
// first, then containers, then equipment, then configured buses. Creates and
// updates are sent in this order; removals in reverse.
var FlushOrder = []ResourceType{
	ResourceTypeNetwork,
	ResourceTypeSubstation,
	ResourceTypeVoltageLevel,
	ResourceTypeSwitch,
	ResourceTypeBusbarSection,
	ResourceTypeLoad,
	ResourceTypeGenerator,
	ResourceTypeBattery,
	ResourceTypeShuntCompensator,
	ResourceTypeStaticVarCompensator,
	ResourceTypeVscConverterStation,
	ResourceTypeLccConverterStation,
	ResourceTypeDanglingLine,
	ResourceTypeLine,
	ResourceTypeTwoWindingsTransformer,
	ResourceTypeThreeWindingsTransformer,
	ResourceTypeHvdcLine,
	ResourceTypeConfiguredBus,
}

// EquipmentTypes are the resource types owned by a network other than the
// network record itself.
func EquipmentTypes() []ResourceType {
	return append([]ResourceType(nil), FlushOrder[1:]...)
}

// ParseResourceType validates a resource type tag. Matching is
// case-insensitive and tolerates '-' in place of '_'.
func ParseResourceType(s string) (ResourceType, error) {
	norm := ResourceType(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_")))
	for _, t := range FlushOrder {
		if t == norm {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownResourceType, s)
}

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	_, err := ParseResourceType(string(t))
	return err == nil
}

func (t ResourceType) String() string { return string(t) }

// Attributes is the mutable payload of a Resource. Each resource type has
// exactly one concrete attributes struct.
type Attributes interface {
	ResourceType() ResourceType
}

// ContainedIn is implemented by attribute payloads owned by one or more
// containers (a voltage level for most equipment, a substation for voltage
// levels, both voltage levels for a line).
type ContainedIn interface {
	ContainerIDs() []string
}

// Resource is a typed, identified record exchanged with the remote store.
type Resource struct {
	Type       ResourceType
	ID         string
	Attributes Attributes
}

// NewResource builds a resource whose type is taken from the attributes.
func NewResource(id string, attrs Attributes) *Resource {
	r := &Resource{ID: id, Attributes: attrs}
	if attrs != nil {
		r.Type = attrs.ResourceType()
	}
	return r
}

// ContainerIDs returns the ids of the containers this resource belongs to,
// or nil when its payload is not container-owned.
func (r *Resource) ContainerIDs() []string {
	if r == nil || r.Attributes == nil {
		return nil
	}
	c, ok := r.Attributes.(ContainedIn)
	if !ok {
		return nil
	}
	ids := c.ContainerIDs()
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || contains(out, id) {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Validate checks the structural invariants every resource must satisfy
// before it is cached or sent to the store.
func (r *Resource) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil resource", ErrInvalidResource)
	}
	if r.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidResource)
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidResource, r.ID, r.Type)
	}
	if r.Attributes == nil {
		return fmt.Errorf("%w: %q has no attributes", ErrInvalidResource, r.ID)
	}
	if got := r.Attributes.ResourceType(); got != r.Type {
		return fmt.Errorf("%w: %q is tagged %s but carries %s attributes", ErrInvalidResource, r.ID, r.Type, got)
	}
	return nil
}

// AttributesAs returns the payload of r as T.
func AttributesAs[T Attributes](r *Resource) (T, bool) {
	var zero T
	if r == nil || r.Attributes == nil {
		return zero, false
	}
	a, ok := r.Attributes.(T)
	return a, ok
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
