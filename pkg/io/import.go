package io

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/extensions"
	"github.com/matzehuels/gridcore/pkg/network"
)

// SourceFormat is the source format of networks read from case files.
const SourceFormat = "TOML"

type caseFile struct {
	Network       networkEntry        `toml:"network"`
	Substations   []substationEntry   `toml:"substations"`
	VoltageLevels []voltageLevelEntry `toml:"voltage_levels"`
	Lines         []lineEntry         `toml:"lines"`
	Transformers  []transformerEntry  `toml:"transformers"`
	HvdcLines     []hvdcLineEntry     `toml:"hvdc_lines"`
	TieLines      []tieLineEntry      `toml:"tie_lines"`
	Variants      []variantEntry      `toml:"variants"`
}

type networkEntry struct {
	ID                 string    `toml:"id"`
	Name               string    `toml:"name"`
	SourceFormat       string    `toml:"source_format"`
	CaseDate           time.Time `toml:"case_date"`
	MinValidationLevel string    `toml:"min_validation_level"`
	WorkingVariant     string    `toml:"working_variant"`
}

type positionEntry struct {
	Lat float64 `toml:"lat"`
	Lon float64 `toml:"lon"`
}

type substationEntry struct {
	ID            string              `toml:"id"`
	Name          string              `toml:"name"`
	Country       string              `toml:"country"`
	TSO           string              `toml:"tso"`
	Tags          []string            `toml:"tags"`
	Position      *positionEntry      `toml:"position"`
	VoltageLevels []voltageLevelEntry `toml:"voltage_levels"`
}

type voltageLevelEntry struct {
	ID                  string               `toml:"id"`
	Name                string               `toml:"name"`
	NominalV            float64              `toml:"nominal_v"`
	LowVoltageLimit     float64              `toml:"low_voltage_limit"`
	HighVoltageLimit    float64              `toml:"high_voltage_limit"`
	Topology            string               `toml:"topology"`
	Buses               []busEntry           `toml:"buses"`
	Switches            []switchEntry        `toml:"switches"`
	InternalConnections [][]int              `toml:"internal_connections"`
	BusbarSections      []busbarSectionEntry `toml:"busbar_sections"`
	Loads               []loadEntry          `toml:"loads"`
	Generators          []generatorEntry     `toml:"generators"`
	DanglingLines       []danglingLineEntry  `toml:"dangling_lines"`
	ConverterStations   []converterEntry     `toml:"converter_stations"`
}

type busEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
}

type switchEntry struct {
	ID       string `toml:"id"`
	Name     string `toml:"name"`
	Kind     string `toml:"kind"`
	Bus1     string `toml:"bus1"`
	Bus2     string `toml:"bus2"`
	Node1    int    `toml:"node1"`
	Node2    int    `toml:"node2"`
	Open     bool   `toml:"open"`
	Retained *bool  `toml:"retained"`
}

type busbarSectionEntry struct {
	ID      string `toml:"id"`
	Name    string `toml:"name"`
	Node    int    `toml:"node"`
	Busbar  *int   `toml:"busbar_index"`
	Section *int   `toml:"section_index"`
}

// connectionEntry is embedded by injections. Node is required in
// node-breaker levels.
type connectionEntry struct {
	Bus            string `toml:"bus"`
	ConnectableBus string `toml:"connectable_bus"`
	Node           *int   `toml:"node"`
}

func (c connectionEntry) connection() network.Connection {
	conn := network.Connection{Bus: c.Bus, ConnectableBus: c.ConnectableBus, Node: -1}
	if c.Node != nil {
		conn.Node = *c.Node
	}
	return conn
}

type loadEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	connectionEntry
	P0 *float64 `toml:"p0"`
	Q0 *float64 `toml:"q0"`
}

type generatorEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	connectionEntry
	MinP               float64  `toml:"min_p"`
	MaxP               float64  `toml:"max_p"`
	TargetP            *float64 `toml:"target_p"`
	TargetQ            *float64 `toml:"target_q"`
	TargetV            *float64 `toml:"target_v"`
	VoltageRegulatorOn bool     `toml:"voltage_regulator_on"`
}

type boundaryNodeEntry struct {
	Code    string `toml:"code"`
	Name    string `toml:"name"`
	Country string `toml:"country"`
}

type danglingLineEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	connectionEntry
	R            float64            `toml:"r"`
	X            float64            `toml:"x"`
	G            float64            `toml:"g"`
	B            float64            `toml:"b"`
	P0           *float64           `toml:"p0"`
	Q0           *float64           `toml:"q0"`
	PairingKey   string             `toml:"pairing_key"`
	BoundaryNode *boundaryNodeEntry `toml:"boundary_node"`
}

type converterEntry struct {
	ID   string `toml:"id"`
	Name string `toml:"name"`
	connectionEntry
	LossFactor float64 `toml:"loss_factor"`
}

type lineEntry struct {
	ID            string          `toml:"id"`
	Name          string          `toml:"name"`
	R             float64         `toml:"r"`
	X             float64         `toml:"x"`
	G1            float64         `toml:"g1"`
	B1            float64         `toml:"b1"`
	G2            float64         `toml:"g2"`
	B2            float64         `toml:"b2"`
	VoltageLevel1 string          `toml:"voltage_level1"`
	Connection1   connectionEntry `toml:"connection1"`
	VoltageLevel2 string          `toml:"voltage_level2"`
	Connection2   connectionEntry `toml:"connection2"`
}

type transformerEntry struct {
	ID            string          `toml:"id"`
	Name          string          `toml:"name"`
	R             float64         `toml:"r"`
	X             float64         `toml:"x"`
	G             float64         `toml:"g"`
	B             float64         `toml:"b"`
	RatedU1       float64         `toml:"rated_u1"`
	RatedU2       float64         `toml:"rated_u2"`
	VoltageLevel1 string          `toml:"voltage_level1"`
	Connection1   connectionEntry `toml:"connection1"`
	VoltageLevel2 string          `toml:"voltage_level2"`
	Connection2   connectionEntry `toml:"connection2"`
}

type hvdcLineEntry struct {
	ID                  string   `toml:"id"`
	Name                string   `toml:"name"`
	R                   float64  `toml:"r"`
	NominalV            float64  `toml:"nominal_v"`
	MaxP                float64  `toml:"max_p"`
	ActivePowerSetpoint *float64 `toml:"active_power_setpoint"`
	ConvertersMode      string   `toml:"converters_mode"`
	ConverterStation1   string   `toml:"converter_station1"`
	ConverterStation2   string   `toml:"converter_station2"`
}

type tieLineEntry struct {
	ID            string `toml:"id"`
	Name          string `toml:"name"`
	DanglingLine1 string `toml:"dangling_line1"`
	DanglingLine2 string `toml:"dangling_line2"`
}

type loadOverride struct {
	P0 *float64 `toml:"p0"`
	Q0 *float64 `toml:"q0"`
}

type variantEntry struct {
	ID             string                  `toml:"id"`
	Source         string                  `toml:"source"`
	OpenSwitches   []string                `toml:"open_switches"`
	ClosedSwitches []string                `toml:"closed_switches"`
	Loads          map[string]loadOverride `toml:"loads"`
}

// value returns *p, or NaN when the value is absent.
func value(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}

// ImportCase reads a TOML case file from path and builds its network.
// opts are applied after the options taken from the file, so a caller can
// override the name or install a logger.
func ImportCase(path string, opts ...network.Option) (*network.Network, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCase(f, opts...)
}

// ReadCase decodes a TOML case file from r and builds its network.
//
// The file declares a [network] table, substations with nested voltage
// levels, top-level branches and tie lines, and optional variants:
//
//	[network]
//	id = "n1"
//
//	[[substations]]
//	id = "s1"
//	country = "FR"
//
//	[[substations.voltage_levels]]
//	id = "vl1"
//	nominal_v = 380.0
//	buses = [{ id = "b1" }]
//	loads = [{ id = "l1", bus = "b1", p0 = 10.0, q0 = 5.0 }]
//
//	[[variants]]
//	id = "peak"
//	loads = { l1 = { p0 = 25.0 } }
//
// Steady-state values left out of the file (p0, target_p, ...) are unset,
// which only succeeds when min_validation_level is EQUIPMENT. Unknown keys
// are rejected.
//
// ReadCase does not close r.
func ReadCase(r io.Reader, opts ...network.Option) (*network.Network, error) {
	var cf caseFile
	md, err := toml.NewDecoder(r).Decode(&cf)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode case file")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidFormat, "unknown keys in case file: %s", strings.Join(keys, ", "))
	}
	return build(&cf, opts)
}

func build(cf *caseFile, extra []network.Option) (*network.Network, error) {
	var opts []network.Option
	if cf.Network.Name != "" {
		opts = append(opts, network.WithName(cf.Network.Name))
	}
	if !cf.Network.CaseDate.IsZero() {
		opts = append(opts, network.WithCaseDate(cf.Network.CaseDate))
	}
	if cf.Network.MinValidationLevel != "" {
		level, err := network.ParseValidationLevel(cf.Network.MinValidationLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, network.WithMinValidationLevel(level))
	}
	format := cf.Network.SourceFormat
	if format == "" {
		format = SourceFormat
	}

	n, err := network.New(cf.Network.ID, format, append(opts, extra...)...)
	if err != nil {
		return nil, err
	}

	for _, se := range cf.Substations {
		if err := addSubstation(n, se); err != nil {
			return nil, fmt.Errorf("substation %s: %w", se.ID, err)
		}
	}
	for _, ve := range cf.VoltageLevels {
		if err := addVoltageLevel(n, ve); err != nil {
			return nil, err
		}
	}
	for _, le := range cf.Lines {
		if _, err := n.AddLine(network.LineAdder{
			ID: le.ID, Name: le.Name,
			R: le.R, X: le.X, G1: le.G1, B1: le.B1, G2: le.G2, B2: le.B2,
			VoltageLevel1: le.VoltageLevel1, Connection1: le.Connection1.connection(),
			VoltageLevel2: le.VoltageLevel2, Connection2: le.Connection2.connection(),
		}); err != nil {
			return nil, fmt.Errorf("line %s: %w", le.ID, err)
		}
	}
	for _, te := range cf.Transformers {
		if err := addTransformer(n, te); err != nil {
			return nil, fmt.Errorf("transformer %s: %w", te.ID, err)
		}
	}
	for _, he := range cf.HvdcLines {
		mode, err := network.ParseConvertersMode(he.ConvertersMode)
		if err != nil {
			return nil, fmt.Errorf("hvdc line %s: %w", he.ID, err)
		}
		if _, err := n.AddHvdcLine(network.HvdcLineAdder{
			ID: he.ID, Name: he.Name,
			R: he.R, NominalV: he.NominalV, MaxP: he.MaxP,
			ActivePowerSetpoint: value(he.ActivePowerSetpoint),
			ConvertersMode:      mode,
			ConverterStation1:   he.ConverterStation1,
			ConverterStation2:   he.ConverterStation2,
		}); err != nil {
			return nil, fmt.Errorf("hvdc line %s: %w", he.ID, err)
		}
	}
	for _, te := range cf.TieLines {
		if _, err := n.AddTieLine(network.TieLineAdder{
			ID: te.ID, Name: te.Name,
			DanglingLine1: te.DanglingLine1, DanglingLine2: te.DanglingLine2,
		}); err != nil {
			return nil, fmt.Errorf("tie line %s: %w", te.ID, err)
		}
	}
	for _, ve := range cf.Variants {
		if err := addVariant(n, ve); err != nil {
			return nil, fmt.Errorf("variant %s: %w", ve.ID, err)
		}
	}
	if cf.Network.WorkingVariant != "" {
		if err := n.Variants().SetWorkingVariant(cf.Network.WorkingVariant); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func addSubstation(n *network.Network, se substationEntry) error {
	s, err := n.AddSubstation(network.SubstationAdder{
		ID: se.ID, Name: se.Name, Country: se.Country, TSO: se.TSO, GeographicalTags: se.Tags,
	})
	if err != nil {
		return err
	}
	if se.Position != nil {
		pos, err := extensions.NewSubstationPosition(se.Position.Lat, se.Position.Lon)
		if err != nil {
			return err
		}
		s.AddExtension(pos)
	}
	for _, ve := range se.VoltageLevels {
		if err := addVoltageLevel(s, ve); err != nil {
			return err
		}
	}
	return nil
}

func (ve voltageLevelEntry) adder() (network.VoltageLevelAdder, error) {
	kind, err := network.ParseTopologyKind(ve.Topology)
	if err != nil {
		return network.VoltageLevelAdder{}, err
	}
	return network.VoltageLevelAdder{
		ID: ve.ID, Name: ve.Name,
		NominalV:         ve.NominalV,
		LowVoltageLimit:  ve.LowVoltageLimit,
		HighVoltageLimit: ve.HighVoltageLimit,
		TopologyKind:     kind,
	}, nil
}

type levelAdder interface {
	AddVoltageLevel(network.VoltageLevelAdder) (*network.VoltageLevel, error)
}

// addVoltageLevel creates ve in a network or a substation and fills it.
func addVoltageLevel(parent levelAdder, ve voltageLevelEntry) error {
	a, err := ve.adder()
	if err != nil {
		return fmt.Errorf("voltage level %s: %w", ve.ID, err)
	}
	vl, err := parent.AddVoltageLevel(a)
	if err != nil {
		return fmt.Errorf("voltage level %s: %w", ve.ID, err)
	}
	if err := populate(vl, ve); err != nil {
		return fmt.Errorf("voltage level %s: %w", ve.ID, err)
	}
	return nil
}

// populate creates the content of a voltage level: buses and switches
// first, then every injection.
func populate(vl *network.VoltageLevel, ve voltageLevelEntry) error {
	for _, be := range ve.Buses {
		if _, err := vl.AddBus(network.BusAdder{ID: be.ID, Name: be.Name}); err != nil {
			return err
		}
	}
	for _, sw := range ve.Switches {
		kind, err := network.ParseSwitchKind(sw.Kind)
		if err != nil {
			return fmt.Errorf("switch %s: %w", sw.ID, err)
		}
		a := network.SwitchAdder{
			ID: sw.ID, Name: sw.Name, Kind: kind,
			Bus1: sw.Bus1, Bus2: sw.Bus2, Node1: sw.Node1, Node2: sw.Node2,
			Open: sw.Open,
		}
		if sw.Retained != nil {
			a.Retained = *sw.Retained
			a.NotRetained = !*sw.Retained
		}
		if _, err := vl.AddSwitch(a); err != nil {
			return err
		}
	}
	for _, ic := range ve.InternalConnections {
		if len(ic) != 2 {
			return errors.New(errors.ErrCodeInvalidFormat, "internal connection %v: want two nodes", ic)
		}
		if err := vl.AddInternalConnection(ic[0], ic[1]); err != nil {
			return err
		}
	}
	for _, be := range ve.BusbarSections {
		bbs, err := vl.AddBusbarSection(network.BusbarSectionAdder{ID: be.ID, Name: be.Name, Node: be.Node})
		if err != nil {
			return err
		}
		if be.Busbar != nil && be.Section != nil {
			pos, err := extensions.NewBusbarSectionPosition(*be.Busbar, *be.Section)
			if err != nil {
				return fmt.Errorf("busbar section %s: %w", be.ID, err)
			}
			bbs.AddExtension(pos)
		}
	}
	for _, le := range ve.Loads {
		if _, err := vl.AddLoad(network.LoadAdder{
			ID: le.ID, Name: le.Name, Connection: le.connection(),
			P0: value(le.P0), Q0: value(le.Q0),
		}); err != nil {
			return err
		}
	}
	for _, ge := range ve.Generators {
		if _, err := vl.AddGenerator(network.GeneratorAdder{
			ID: ge.ID, Name: ge.Name, Connection: ge.connection(),
			MinP: ge.MinP, MaxP: ge.MaxP,
			TargetP: value(ge.TargetP), TargetQ: value(ge.TargetQ), TargetV: value(ge.TargetV),
			VoltageRegulatorOn: ge.VoltageRegulatorOn,
		}); err != nil {
			return err
		}
	}
	for _, de := range ve.DanglingLines {
		dl, err := vl.AddDanglingLine(network.DanglingLineAdder{
			ID: de.ID, Name: de.Name, Connection: de.connection(),
			R: de.R, X: de.X, G: de.G, B: de.B,
			P0: value(de.P0), Q0: value(de.Q0),
			PairingKey: de.PairingKey,
		})
		if err != nil {
			return err
		}
		if bn := de.BoundaryNode; bn != nil {
			ext, err := extensions.NewBoundaryNode(bn.Code, bn.Name, bn.Country)
			if err != nil {
				return fmt.Errorf("dangling line %s: %w", de.ID, err)
			}
			dl.AddExtension(ext)
			if de.PairingKey == "" {
				if err := dl.SetPairingKey(bn.Code); err != nil {
					return err
				}
			}
		}
	}
	for _, ce := range ve.ConverterStations {
		if _, err := vl.AddConverterStation(network.ConverterStationAdder{
			ID: ce.ID, Name: ce.Name, Connection: ce.connection(), LossFactor: ce.LossFactor,
		}); err != nil {
			return err
		}
	}
	return nil
}

func addTransformer(n *network.Network, te transformerEntry) error {
	vl, ok := n.VoltageLevel(te.VoltageLevel1)
	if !ok {
		return errors.NotFound("voltage level %q not found", te.VoltageLevel1)
	}
	s := vl.Substation()
	if s == nil {
		return errors.Validation("voltage level %q is not in a substation", te.VoltageLevel1)
	}
	_, err := s.AddTwoWindingsTransformer(network.TwoWindingsTransformerAdder{
		ID: te.ID, Name: te.Name,
		R: te.R, X: te.X, G: te.G, B: te.B,
		RatedU1: te.RatedU1, RatedU2: te.RatedU2,
		VoltageLevel1: te.VoltageLevel1, Connection1: te.Connection1.connection(),
		VoltageLevel2: te.VoltageLevel2, Connection2: te.Connection2.connection(),
	})
	return err
}

func addVariant(n *network.Network, ve variantEntry) error {
	source := ve.Source
	if source == "" {
		source = network.InitialVariantID
	}
	vm := n.Variants()
	if err := vm.CloneVariant(source, ve.ID); err != nil {
		return err
	}
	v, err := vm.Variant(ve.ID)
	if err != nil {
		return err
	}
	for _, id := range ve.OpenSwitches {
		if err := setSwitch(n, v, id, true); err != nil {
			return err
		}
	}
	for _, id := range ve.ClosedSwitches {
		if err := setSwitch(n, v, id, false); err != nil {
			return err
		}
	}
	for id, o := range ve.Loads {
		l, ok := n.Load(id)
		if !ok {
			return errors.NotFound("load %q not found", id)
		}
		if o.P0 != nil {
			if err := l.SetP0(v, *o.P0); err != nil {
				return err
			}
		}
		if o.Q0 != nil {
			if err := l.SetQ0(v, *o.Q0); err != nil {
				return err
			}
		}
	}
	return nil
}

func setSwitch(n *network.Network, v network.Variant, id string, open bool) error {
	sw, ok := n.Switch(id)
	if !ok {
		return errors.NotFound("switch %q not found", id)
	}
	return sw.SetOpen(v, open)
}
