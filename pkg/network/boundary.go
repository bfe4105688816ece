package network

import (
	"math"
	"math/cmplx"
)

// Boundary is the electrical state at the boundary end of a dangling line.
// Angles are in degrees; unknown values are NaN.
type Boundary struct {
	V, Angle float64
	P, Q     float64
}

var unknownBoundary = Boundary{V: math.NaN(), Angle: math.NaN(), P: math.NaN(), Q: math.NaN()}

// Boundary computes the boundary state of variant v from the network-side
// bus voltage and terminal flow. The shunt admittance is split equally
// between both ends. A zero-impedance line mirrors the network side.
func (dl *DanglingLine) Boundary(v Variant) Boundary {
	t := dl.terminal
	u, angle := math.NaN(), math.NaN()
	if bus, ok := t.Bus(v); ok {
		u, angle = bus.V(), bus.Angle()
	}
	p, q := t.P(v), t.Q(v)

	if dl.isZeroImpedance() && dl.g == 0 && dl.b == 0 {
		return Boundary{V: u, Angle: angle, P: -p, Q: -q}
	}
	if math.IsNaN(u) || math.IsNaN(angle) || math.IsNaN(p) || math.IsNaN(q) || u <= 0 {
		return unknownBoundary
	}
	ysh := complex(dl.g/2, dl.b/2)
	return otherSide(complex(dl.r, dl.x), ysh, ysh, u, angle, p, q)
}

// otherSide propagates voltage and flow through a pi model of series
// impedance z and shunts y1, y2. Voltages are phase-to-phase (kV) and
// powers three-phase (MW, MVar), so I = conj(S/V) is the matching current.
// The returned flow enters the model at side 2.
func otherSide(z, y1, y2 complex128, u, angleDeg, p, q float64) Boundary {
	v1 := cmplx.Rect(u, angleDeg*math.Pi/180)
	i1 := cmplx.Conj(complex(p, q) / v1)
	series := i1 - y1*v1
	v2 := v1 - z*series
	i2 := y2*v2 - series
	s2 := v2 * cmplx.Conj(i2)
	return Boundary{
		V:     cmplx.Abs(v2),
		Angle: cmplx.Phase(v2) * 180 / math.Pi,
		P:     real(s2),
		Q:     imag(s2),
	}
}
