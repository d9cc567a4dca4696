package model

import "time"

// TopologyKind tells how a voltage level describes its connectivity.
type TopologyKind string

const (
	TopologyNodeBreaker TopologyKind = "NODE_BREAKER"
	TopologyBusBreaker  TopologyKind = "BUS_BREAKER"
)

// SwitchKind is the category of a switching device.
type SwitchKind string

const (
	SwitchBreaker      SwitchKind = "BREAKER"
	SwitchDisconnector SwitchKind = "DISCONNECTOR"
	SwitchLoadBreak    SwitchKind = "LOAD_BREAK_SWITCH"
)

// NetworkAttributes is the payload of the network record itself.
type NetworkAttributes struct {
	Name             string    `json:"name,omitempty"`
	SourceFormat     string    `json:"sourceFormat,omitempty"`
	CaseDate         time.Time `json:"caseDate,omitempty"`
	ForecastDistance int       `json:"forecastDistance,omitempty"`
}

func (*NetworkAttributes) ResourceType() ResourceType { return ResourceTypeNetwork }

type SubstationAttributes struct {
	Name    string `json:"name,omitempty"`
	Country string `json:"country,omitempty"`
	TSO     string `json:"tso,omitempty"`
}

func (*SubstationAttributes) ResourceType() ResourceType { return ResourceTypeSubstation }

// InternalConnection joins two nodes of a node/breaker voltage level
// unconditionally.
type InternalConnection struct {
	Node1 int `json:"node1"`
	Node2 int `json:"node2"`
}

type VoltageLevelAttributes struct {
	SubstationID        string               `json:"substationId"`
	Name                string               `json:"name,omitempty"`
	NominalV            float64              `json:"nominalV"`
	LowVoltageLimit     float64              `json:"lowVoltageLimit,omitempty"`
	HighVoltageLimit    float64              `json:"highVoltageLimit,omitempty"`
	TopologyKind        TopologyKind         `json:"topologyKind"`
	InternalConnections []InternalConnection `json:"internalConnections,omitempty"`
}

func (*VoltageLevelAttributes) ResourceType() ResourceType { return ResourceTypeVoltageLevel }

func (a *VoltageLevelAttributes) ContainerIDs() []string { return []string{a.SubstationID} }

// Injection holds the fields shared by single-terminal equipment. Node is
// used by node/breaker voltage levels, Bus by bus/breaker ones.
type Injection struct {
	VoltageLevelID string  `json:"voltageLevelId"`
	Name           string  `json:"name,omitempty"`
	Node           int     `json:"node,omitempty"`
	Bus            string  `json:"bus,omitempty"`
	P              float64 `json:"p,omitempty"`
	Q              float64 `json:"q,omitempty"`
}

func (i *Injection) ContainerIDs() []string { return []string{i.VoltageLevelID} }

type LoadAttributes struct {
	Injection
	LoadType string  `json:"loadType,omitempty"`
	P0       float64 `json:"p0"`
	Q0       float64 `json:"q0"`
}

func (*LoadAttributes) ResourceType() ResourceType { return ResourceTypeLoad }

type GeneratorAttributes struct {
	Injection
	EnergySource       string  `json:"energySource,omitempty"`
	MinP               float64 `json:"minP"`
	MaxP               float64 `json:"maxP"`
	TargetP            float64 `json:"targetP"`
	TargetQ            float64 `json:"targetQ,omitempty"`
	TargetV            float64 `json:"targetV,omitempty"`
	VoltageRegulatorOn bool    `json:"voltageRegulatorOn,omitempty"`
}

func (*GeneratorAttributes) ResourceType() ResourceType { return ResourceTypeGenerator }

type BatteryAttributes struct {
	Injection
	MinP    float64 `json:"minP"`
	MaxP    float64 `json:"maxP"`
	TargetP float64 `json:"targetP"`
	TargetQ float64 `json:"targetQ,omitempty"`
}

func (*BatteryAttributes) ResourceType() ResourceType { return ResourceTypeBattery }

type ShuntCompensatorAttributes struct {
	Injection
	SectionCount        int `json:"sectionCount"`
	MaximumSectionCount int `json:"maximumSectionCount"`
}

func (*ShuntCompensatorAttributes) ResourceType() ResourceType {
	return ResourceTypeShuntCompensator
}

type StaticVarCompensatorAttributes struct {
	Injection
	Bmin            float64 `json:"bmin"`
	Bmax            float64 `json:"bmax"`
	RegulationMode  string  `json:"regulationMode,omitempty"`
	VoltageSetpoint float64 `json:"voltageSetpoint,omitempty"`
}

func (*StaticVarCompensatorAttributes) ResourceType() ResourceType {
	return ResourceTypeStaticVarCompensator
}

type VscConverterStationAttributes struct {
	Injection
	LossFactor         float64 `json:"lossFactor"`
	VoltageRegulatorOn bool    `json:"voltageRegulatorOn,omitempty"`
	VoltageSetpoint    float64 `json:"voltageSetpoint,omitempty"`
}

func (*VscConverterStationAttributes) ResourceType() ResourceType {
	return ResourceTypeVscConverterStation
}

type LccConverterStationAttributes struct {
	Injection
	LossFactor  float64 `json:"lossFactor"`
	PowerFactor float64 `json:"powerFactor"`
}

func (*LccConverterStationAttributes) ResourceType() ResourceType {
	return ResourceTypeLccConverterStation
}

type DanglingLineAttributes struct {
	Injection
	R          float64 `json:"r"`
	X          float64 `json:"x"`
	G          float64 `json:"g,omitempty"`
	B          float64 `json:"b,omitempty"`
	P0         float64 `json:"p0"`
	Q0         float64 `json:"q0"`
	PairingKey string  `json:"pairingKey,omitempty"`
}

func (*DanglingLineAttributes) ResourceType() ResourceType { return ResourceTypeDanglingLine }

type BusbarSectionAttributes struct {
	VoltageLevelID string `json:"voltageLevelId"`
	Name           string `json:"name,omitempty"`
	Node           int    `json:"node"`
}

func (*BusbarSectionAttributes) ResourceType() ResourceType { return ResourceTypeBusbarSection }

func (a *BusbarSectionAttributes) ContainerIDs() []string { return []string{a.VoltageLevelID} }

type SwitchAttributes struct {
	VoltageLevelID string     `json:"voltageLevelId"`
	Name           string     `json:"name,omitempty"`
	Kind           SwitchKind `json:"kind"`
	Open           bool       `json:"open"`
	Retained       bool       `json:"retained,omitempty"`
	Fictitious     bool       `json:"fictitious,omitempty"`
	Node1          int        `json:"node1,omitempty"`
	Node2          int        `json:"node2,omitempty"`
	Bus1           string     `json:"bus1,omitempty"`
	Bus2           string     `json:"bus2,omitempty"`
}

func (*SwitchAttributes) ResourceType() ResourceType { return ResourceTypeSwitch }

func (a *SwitchAttributes) ContainerIDs() []string { return []string{a.VoltageLevelID} }

// Branch holds the two terminals shared by lines and two-winding
// transformers. A branch belongs to both of its voltage levels.
type Branch struct {
	Name            string  `json:"name,omitempty"`
	VoltageLevelID1 string  `json:"voltageLevelId1"`
	VoltageLevelID2 string  `json:"voltageLevelId2"`
	Node1           int     `json:"node1,omitempty"`
	Node2           int     `json:"node2,omitempty"`
	Bus1            string  `json:"bus1,omitempty"`
	Bus2            string  `json:"bus2,omitempty"`
	R               float64 `json:"r"`
	X               float64 `json:"x"`
	G1              float64 `json:"g1,omitempty"`
	B1              float64 `json:"b1,omitempty"`
	G2              float64 `json:"g2,omitempty"`
	B2              float64 `json:"b2,omitempty"`
	P1              float64 `json:"p1,omitempty"`
	Q1              float64 `json:"q1,omitempty"`
	P2              float64 `json:"p2,omitempty"`
	Q2              float64 `json:"q2,omitempty"`
}

func (b *Branch) ContainerIDs() []string { return []string{b.VoltageLevelID1, b.VoltageLevelID2} }

type LineAttributes struct {
	Branch
}

func (*LineAttributes) ResourceType() ResourceType { return ResourceTypeLine }

type TwoWindingsTransformerAttributes struct {
	Branch
	RatedU1 float64 `json:"ratedU1"`
	RatedU2 float64 `json:"ratedU2"`
	RatedS  float64 `json:"ratedS,omitempty"`
}

func (*TwoWindingsTransformerAttributes) ResourceType() ResourceType {
	return ResourceTypeTwoWindingsTransformer
}

// Leg is one winding of a three-winding transformer.
type Leg struct {
	VoltageLevelID string  `json:"voltageLevelId"`
	Node           int     `json:"node,omitempty"`
	Bus            string  `json:"bus,omitempty"`
	R              float64 `json:"r"`
	X              float64 `json:"x"`
	G              float64 `json:"g,omitempty"`
	B              float64 `json:"b,omitempty"`
	RatedU         float64 `json:"ratedU"`
}

type ThreeWindingsTransformerAttributes struct {
	Name    string  `json:"name,omitempty"`
	RatedU0 float64 `json:"ratedU0"`
	Leg1    Leg     `json:"leg1"`
	Leg2    Leg     `json:"leg2"`
	Leg3    Leg     `json:"leg3"`
}

func (*ThreeWindingsTransformerAttributes) ResourceType() ResourceType {
	return ResourceTypeThreeWindingsTransformer
}

func (a *ThreeWindingsTransformerAttributes) ContainerIDs() []string {
	return []string{a.Leg1.VoltageLevelID, a.Leg2.VoltageLevelID, a.Leg3.VoltageLevelID}
}

// Legs returns the three windings in side order.
func (a *ThreeWindingsTransformerAttributes) Legs() []Leg {
	return []Leg{a.Leg1, a.Leg2, a.Leg3}
}

// HvdcLineAttributes links two converter stations. It is owned by the
// network, not by a voltage level.
type HvdcLineAttributes struct {
	Name                string  `json:"name,omitempty"`
	ConverterStationID1 string  `json:"converterStationId1"`
	ConverterStationID2 string  `json:"converterStationId2"`
	R                   float64 `json:"r"`
	NominalV            float64 `json:"nominalV"`
	ActivePowerSetpoint float64 `json:"activePowerSetpoint"`
	MaxP                float64 `json:"maxP"`
	ConvertersMode      string  `json:"convertersMode,omitempty"`
}

func (*HvdcLineAttributes) ResourceType() ResourceType { return ResourceTypeHvdcLine }

type ConfiguredBusAttributes struct {
	VoltageLevelID string  `json:"voltageLevelId"`
	Name           string  `json:"name,omitempty"`
	V              float64 `json:"v,omitempty"`
	Angle          float64 `json:"angle,omitempty"`
}

func (*ConfiguredBusAttributes) ResourceType() ResourceType { return ResourceTypeConfiguredBus }

func (a *ConfiguredBusAttributes) ContainerIDs() []string { return []string{a.VoltageLevelID} }
