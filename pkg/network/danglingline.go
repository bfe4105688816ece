package network

import (
	"math"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// DanglingLine is a line connected at one end only; the other end is a
// boundary point consuming P0 and Q0. Two dangling lines sharing a pairing
// key can be paired into a [TieLine].
type DanglingLine struct {
	injection
	r, x, g, b float64
	pairingKey string
	state      perVariant[loadState]
	tieLine    *TieLine
}

// DanglingLineAdder describes a dangling line to create.
type DanglingLineAdder struct {
	ID         string
	Name       string
	Fictitious bool
	Connection Connection
	R, X, G, B float64
	P0, Q0     float64
	PairingKey string
}

// AddDanglingLine creates a dangling line in the voltage level.
func (vl *VoltageLevel) AddDanglingLine(a DanglingLineAdder) (*DanglingLine, error) {
	n, err := vl.checkMutable()
	if err != nil {
		return nil, err
	}
	if err := n.checkNewID("dangling line", a.ID); err != nil {
		return nil, err
	}
	c := newChecker(n, "dangling line", a.ID)
	if err := checkImpedance(c, a.R, a.X); err != nil {
		return nil, err
	}
	if err := checkAdmittance(c, [2]string{"g", "b"}, a.G, a.B); err != nil {
		return nil, err
	}
	if err := checkLoadValues(c, a.P0, a.Q0); err != nil {
		return nil, err
	}
	dl := &DanglingLine{
		r: a.R, x: a.X, g: a.G, b: a.B,
		pairingKey: a.PairingKey,
		state:      newPerVariant(n.variants.VariantArraySize(), loadState{a.P0, a.Q0}),
	}
	dl.setup(dl, n, vl, a.ID, a.Name, a.Fictitious)
	dl.track(&dl.state)
	if err := n.addConnectable(dl, []Connection{a.Connection}, c.level); err != nil {
		return nil, err
	}
	return dl, nil
}

func (dl *DanglingLine) Type() IdentifiableType { return TypeDanglingLine }

func (dl *DanglingLine) R() float64 { return dl.r }
func (dl *DanglingLine) X() float64 { return dl.x }
func (dl *DanglingLine) G() float64 { return dl.g }
func (dl *DanglingLine) B() float64 { return dl.b }

func (dl *DanglingLine) P0(v Variant) float64 { return dl.state.values[v.index()].p0 }
func (dl *DanglingLine) Q0(v Variant) float64 { return dl.state.values[v.index()].q0 }

func (dl *DanglingLine) SetP0(v Variant, p0 float64) error {
	return dl.set(v, "p0", p0, func(s *loadState) *float64 { return &s.p0 })
}

func (dl *DanglingLine) SetQ0(v Variant, q0 float64) error {
	return dl.set(v, "q0", q0, func(s *loadState) *float64 { return &s.q0 })
}

func (dl *DanglingLine) set(v Variant, attr string, value float64, field func(*loadState) *float64) error {
	n, err := dl.mutable()
	if err != nil {
		return err
	}
	c := newChecker(n, "dangling line", dl.id)
	if err := c.ssh(isSet(value), "%s is invalid", attr); err != nil {
		return err
	}
	p := field(&dl.state.values[v.index()])
	old := *p
	*p = value
	n.recordValidationLevel(dl.validationLevel())
	dl.notifyUpdate(attr, v.ID(), old, value)
	return nil
}

func (dl *DanglingLine) validationLevel() ValidationLevel {
	for _, s := range dl.state.values {
		if math.IsNaN(s.p0) || math.IsNaN(s.q0) {
			return ValidationEquipment
		}
	}
	return ValidationSteadyStateHypothesis
}

// PairingKey returns the key matching this line with its counterpart in
// another network, "" if none.
func (dl *DanglingLine) PairingKey() string { return dl.pairingKey }

// SetPairingKey changes the pairing key of an unpaired dangling line.
func (dl *DanglingLine) SetPairingKey(key string) error {
	if _, err := dl.mutable(); err != nil {
		return err
	}
	if dl.tieLine != nil {
		return errors.IllegalState("dangling line %q is paired in tie line %q", dl.id, dl.tieLine.id)
	}
	old := dl.pairingKey
	dl.pairingKey = key
	dl.notifyUpdate("pairingKey", "", old, key)
	return nil
}

// TieLine returns the tie line the dangling line belongs to, nil if none.
func (dl *DanglingLine) TieLine() *TieLine { return dl.tieLine }

func (dl *DanglingLine) IsPaired() bool { return dl.tieLine != nil }

// Remove deletes an unpaired dangling line.
func (dl *DanglingLine) Remove() error {
	if dl.tieLine != nil {
		return errors.IllegalState("dangling line %q is paired in tie line %q: remove the tie line first", dl.id, dl.tieLine.id)
	}
	return removeConnectable(dl)
}

func (dl *DanglingLine) isZeroImpedance() bool {
	return dl.r == 0 && dl.x == 0
}
