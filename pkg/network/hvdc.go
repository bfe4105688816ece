package network

import (
	"math"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// ConvertersMode tells which station rectifies.
type ConvertersMode int

const (
	// Side1RectifierSide2Inverter transfers power from station 1 to station 2.
	Side1RectifierSide2Inverter ConvertersMode = iota
	// Side1InverterSide2Rectifier transfers power from station 2 to station 1.
	Side1InverterSide2Rectifier
)

func (m ConvertersMode) String() string {
	if m == Side1InverterSide2Rectifier {
		return "SIDE_1_INVERTER_SIDE_2_RECTIFIER"
	}
	return "SIDE_1_RECTIFIER_SIDE_2_INVERTER"
}

// ParseConvertersMode parses a converters mode name. An empty string is
// Side1RectifierSide2Inverter.
func ParseConvertersMode(s string) (ConvertersMode, error) {
	switch s {
	case "SIDE_1_RECTIFIER_SIDE_2_INVERTER", "":
		return Side1RectifierSide2Inverter, nil
	case "SIDE_1_INVERTER_SIDE_2_RECTIFIER":
		return Side1InverterSide2Rectifier, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown converters mode %q", s)
}

type hvdcState struct {
	setpoint float64
	mode     ConvertersMode
}

// HvdcLine links two converter stations. It couples their buses in
// connected components but not, by default, in synchronous components.
type HvdcLine struct {
	identifiable
	r, nominalV, maxP float64
	cs1, cs2          *VscConverterStation
	state             perVariant[hvdcState]
}

// HvdcLineAdder describes an HVDC line to create.
type HvdcLineAdder struct {
	ID                  string
	Name                string
	Fictitious          bool
	R                   float64
	NominalV            float64
	MaxP                float64
	ActivePowerSetpoint float64
	ConvertersMode      ConvertersMode
	ConverterStation1   string
	ConverterStation2   string
}

func checkSetpoint(c *checker, setpoint float64) error {
	return c.ssh(isSet(setpoint) && setpoint >= 0, "active power setpoint %v is invalid", setpoint)
}

// AddHvdcLine creates an HVDC line between two converter stations.
func (n *Network) AddHvdcLine(a HvdcLineAdder) (*HvdcLine, error) {
	if err := n.checkNewID("HVDC line", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "HVDC line", a.ID)
	if err := c.equipment(isSet(a.R) && a.R >= 0, "r %v is invalid", a.R); err != nil {
		return nil, err
	}
	if err := c.equipment(a.NominalV > 0, "nominal voltage %v is invalid", a.NominalV); err != nil {
		return nil, err
	}
	if err := c.equipment(isSet(a.MaxP) && a.MaxP >= 0, "max P %v is invalid", a.MaxP); err != nil {
		return nil, err
	}
	if err := checkSetpoint(c, a.ActivePowerSetpoint); err != nil {
		return nil, err
	}
	var stations [2]*VscConverterStation
	for i, id := range []string{a.ConverterStation1, a.ConverterStation2} {
		cs, ok := n.ConverterStation(id)
		if !ok {
			return nil, errors.Validation("HVDC line %q: converter station %q not found", a.ID, id)
		}
		if cs.hvdcLine != nil {
			return nil, errors.Validation("HVDC line %q: converter station %q is already used by %q", a.ID, id, cs.hvdcLine.id)
		}
		stations[i] = cs
	}
	if stations[0] == stations[1] {
		return nil, errors.Validation("HVDC line %q: both ends on converter station %q", a.ID, stations[0].id)
	}

	h := &HvdcLine{
		r: a.R, nominalV: a.NominalV, maxP: a.MaxP,
		cs1: stations[0], cs2: stations[1],
		state: newPerVariant(n.variants.VariantArraySize(), hvdcState{a.ActivePowerSetpoint, a.ConvertersMode}),
	}
	h.init(h, n.ref, a.ID, a.Name, a.Fictitious)
	h.track(&h.state)
	if err := n.register(h, c.level); err != nil {
		return nil, err
	}
	h.cs1.hvdcLine, h.cs2.hvdcLine = h, h
	n.invalidateTopology(-1, h.cs1.terminal.vl, h.cs2.terminal.vl)
	return h, nil
}

func (h *HvdcLine) Type() IdentifiableType { return TypeHvdcLine }

func (h *HvdcLine) R() float64        { return h.r }
func (h *HvdcLine) NominalV() float64 { return h.nominalV }
func (h *HvdcLine) MaxP() float64     { return h.maxP }

func (h *HvdcLine) ConverterStation1() *VscConverterStation { return h.cs1 }
func (h *HvdcLine) ConverterStation2() *VscConverterStation { return h.cs2 }

func (h *HvdcLine) otherStation(cs *VscConverterStation) *VscConverterStation {
	if cs == h.cs1 {
		return h.cs2
	}
	return h.cs1
}

func (h *HvdcLine) ActivePowerSetpoint(v Variant) float64 {
	return h.state.values[v.index()].setpoint
}

func (h *HvdcLine) ConvertersMode(v Variant) ConvertersMode {
	return h.state.values[v.index()].mode
}

func (h *HvdcLine) SetActivePowerSetpoint(v Variant, setpoint float64) error {
	n, err := h.mutable()
	if err != nil {
		return err
	}
	c := newChecker(n, "HVDC line", h.id)
	if err := checkSetpoint(c, setpoint); err != nil {
		return err
	}
	s := &h.state.values[v.index()]
	old := s.setpoint
	s.setpoint = setpoint
	n.recordValidationLevel(h.validationLevel())
	h.notifyUpdate("activePowerSetpoint", v.ID(), old, setpoint)
	return nil
}

func (h *HvdcLine) SetConvertersMode(v Variant, mode ConvertersMode) error {
	if _, err := h.mutable(); err != nil {
		return err
	}
	s := &h.state.values[v.index()]
	old := s.mode
	s.mode = mode
	h.notifyUpdate("convertersMode", v.ID(), old, mode)
	return nil
}

func (h *HvdcLine) validationLevel() ValidationLevel {
	for _, s := range h.state.values {
		if math.IsNaN(s.setpoint) || s.setpoint < 0 {
			return ValidationEquipment
		}
	}
	return ValidationSteadyStateHypothesis
}

// Remove deletes the line; its converter stations remain.
func (h *HvdcLine) Remove() error {
	n, err := h.mutable()
	if err != nil {
		return err
	}
	h.cs1.hvdcLine, h.cs2.hvdcLine = nil, nil
	n.unregister(h)
	n.invalidateTopology(-1, h.cs1.terminal.vl, h.cs2.terminal.vl)
	return nil
}
