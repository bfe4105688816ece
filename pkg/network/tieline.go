package network

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// TieLine pairs two dangling lines into a line across a boundary. Its
// electrical parameters are those of the two halves in series.
type TieLine struct {
	identifiable
	dl1, dl2 *DanglingLine
}

// TieLineAdder describes a tie line to create from two unpaired dangling
// lines of the network.
type TieLineAdder struct {
	ID            string
	Name          string
	Fictitious    bool
	DanglingLine1 string
	DanglingLine2 string
	// EnsureIDUnicity suffixes ID with "#n" when it is taken.
	EnsureIDUnicity bool
}

// AddTieLine pairs two dangling lines. Both must be unpaired and their
// pairing keys, when both set, must match.
func (n *Network) AddTieLine(a TieLineAdder) (*TieLine, error) {
	if err := n.checkLive(); err != nil {
		return nil, err
	}
	id := a.ID
	if a.EnsureIDUnicity {
		id = uniqueID(id, n.index.contains)
	}
	if err := n.checkNewID("tie line", id); err != nil {
		return nil, err
	}
	var halves [2]*DanglingLine
	for i, dlID := range []string{a.DanglingLine1, a.DanglingLine2} {
		dl, ok := n.DanglingLine(dlID)
		if !ok {
			return nil, errors.Validation("tie line %q: dangling line %q not found", id, dlID)
		}
		if dl.tieLine != nil {
			return nil, errors.Validation("tie line %q: dangling line %q is already paired in %q", id, dlID, dl.tieLine.id)
		}
		halves[i] = dl
	}
	if halves[0] == halves[1] {
		return nil, errors.Validation("tie line %q: both halves are dangling line %q", id, halves[0].id)
	}
	k1, k2 := halves[0].pairingKey, halves[1].pairingKey
	if k1 != "" && k2 != "" && k1 != k2 {
		return nil, errors.Validation("tie line %q: pairing keys %q and %q differ", id, k1, k2)
	}
	tl, err := n.pair(id, a.Name, a.Fictitious, halves[0], halves[1])
	if err != nil {
		return nil, err
	}
	n.invalidateTopology(-1, halves[0].VoltageLevel(), halves[1].VoltageLevel())
	return tl, nil
}

// pair creates and registers the tie line of two checked halves.
func (n *Network) pair(id, name string, fictitious bool, dl1, dl2 *DanglingLine) (*TieLine, error) {
	tl := &TieLine{dl1: dl1, dl2: dl2}
	tl.init(tl, n.ref, id, name, fictitious)
	if err := n.register(tl, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	dl1.tieLine, dl2.tieLine = tl, tl
	return tl, nil
}

func (tl *TieLine) Type() IdentifiableType { return TypeTieLine }

func (tl *TieLine) DanglingLine1() *DanglingLine { return tl.dl1 }
func (tl *TieLine) DanglingLine2() *DanglingLine { return tl.dl2 }

// DanglingLine returns the half on the given side.
func (tl *TieLine) DanglingLine(side Side) *DanglingLine {
	if side == SideTwo {
		return tl.dl2
	}
	return tl.dl1
}

func (tl *TieLine) Terminal1() *Terminal { return tl.dl1.terminal }
func (tl *TieLine) Terminal2() *Terminal { return tl.dl2.terminal }

// PairingKey returns the pairing key of the halves.
func (tl *TieLine) PairingKey() string {
	if tl.dl1.pairingKey != "" {
		return tl.dl1.pairingKey
	}
	return tl.dl2.pairingKey
}

func (tl *TieLine) otherHalf(dl *DanglingLine) *DanglingLine {
	if dl == tl.dl1 {
		return tl.dl2
	}
	return tl.dl1
}

// R returns the series resistance of the equivalent pi model.
func (tl *TieLine) R() float64 { return tl.equivalent().r }

// X returns the series reactance of the equivalent pi model.
func (tl *TieLine) X() float64 { return tl.equivalent().x }

func (tl *TieLine) G1() float64 { return tl.equivalent().g1 }
func (tl *TieLine) B1() float64 { return tl.equivalent().b1 }
func (tl *TieLine) G2() float64 { return tl.equivalent().g2 }
func (tl *TieLine) B2() float64 { return tl.equivalent().b2 }

// Remove splits the tie line back into its dangling lines. With
// updateDanglingLines, each half gets p0 and q0 opposite to its computed
// boundary flow in every variant, so the halves keep consuming what the
// other side used to supply.
func (tl *TieLine) Remove(updateDanglingLines bool) error {
	n, err := tl.mutable()
	if err != nil {
		return err
	}
	if updateDanglingLines {
		for _, v := range n.variants.handles() {
			for _, dl := range []*DanglingLine{tl.dl1, tl.dl2} {
				b := dl.Boundary(v)
				s := &dl.state.values[v.index()]
				if !math.IsNaN(b.P) {
					s.p0 = -b.P + 0
				}
				if !math.IsNaN(b.Q) {
					s.q0 = -b.Q + 0
				}
			}
		}
		n.forgetValidationLevel()
	}
	id := tl.id
	n.notifyBeforeRemoval(tl)
	tl.dl1.tieLine, tl.dl2.tieLine = nil, nil
	n.index.remove(tl)
	tl.removed = true
	n.invalidateTopology(-1, tl.dl1.VoltageLevel(), tl.dl2.VoltageLevel())
	n.notifyAfterRemoval(id)

	n.logger.Debug("tie line removed", "network", n.id, "tieLine", id, "updated", updateDanglingLines)
	observability.Merge().OnTieLineRemoved(n.id, id)
	return nil
}

// =============================================================================
// Equivalent pi model
// =============================================================================

type piModel struct {
	r, x, g1, b1, g2, b2 float64
}

// admittance is the nodal admittance matrix of a two-port.
type admittance struct {
	y11, y12, y21, y22 complex128
}

func branchAdmittance(r, x float64, ysh1, ysh2 complex128) admittance {
	y := 1 / complex(r, x)
	return admittance{y11: y + ysh1, y12: -y, y21: -y, y22: y + ysh2}
}

// chain eliminates the node joining side 2 of a to side 1 of b.
func chain(a, b admittance) admittance {
	d := a.y22 + b.y11
	return admittance{
		y11: a.y11 - a.y12*a.y21/d,
		y12: -a.y12 * b.y12 / d,
		y21: -b.y21 * a.y21 / d,
		y22: b.y22 - b.y21*b.y12/d,
	}
}

func (y admittance) pi() piModel {
	z := -1 / y.y12
	ysh1 := y.y11 + y.y12
	ysh2 := y.y22 + y.y21
	return piModel{
		r: real(z) + 0, x: imag(z) + 0,
		g1: real(ysh1) + 0, b1: imag(ysh1) + 0,
		g2: real(ysh2) + 0, b2: imag(ysh2) + 0,
	}
}

// equivalent chains the two halves, each with its whole shunt on its
// network side. A zero-impedance half only contributes its shunt.
func (tl *TieLine) equivalent() piModel {
	dl1, dl2 := tl.dl1, tl.dl2
	sh1, sh2 := complex(dl1.g, dl1.b), complex(dl2.g, dl2.b)
	switch {
	case dl1.isZeroImpedance() && dl2.isZeroImpedance():
		return piModel{g1: dl1.g, b1: dl1.b, g2: dl2.g, b2: dl2.b}
	case dl1.isZeroImpedance():
		return branchAdmittance(dl2.r, dl2.x, sh1, sh2).pi()
	case dl2.isZeroImpedance():
		return branchAdmittance(dl1.r, dl1.x, sh1, sh2).pi()
	}
	return chain(
		branchAdmittance(dl1.r, dl1.x, sh1, 0),
		branchAdmittance(dl2.r, dl2.x, 0, sh2),
	).pi()
}

// =============================================================================
// Naming
// =============================================================================

// mergedID joins two ids in sorted order, or returns the id when both are
// equal.
func mergedID(id1, id2 string) string {
	if id1 == id2 {
		return id1
	}
	ids := []string{id1, id2}
	slices.Sort(ids)
	return strings.Join(ids, " + ")
}

// uniqueID returns id, or id suffixed with "#n" for the lowest n making it
// free.
func uniqueID(id string, taken func(string) bool) string {
	if !taken(id) {
		return id
	}
	for i := 0; ; i++ {
		if candidate := fmt.Sprintf("%s#%d", id, i); !taken(candidate) {
			return candidate
		}
	}
}
