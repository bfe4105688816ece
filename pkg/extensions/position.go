package extensions

import (
	"fmt"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/network"
)

// Coordinate is a WGS84 position in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%.4f, %.4f)", c.Latitude, c.Longitude)
}

func (c Coordinate) validate() error {
	if c.Latitude < -90 || c.Latitude > 90 {
		return errors.Validation("latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return errors.Validation("longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// SubstationPosition is the geographic position of a substation.
type SubstationPosition struct {
	coord Coordinate
	owner network.Extendable
}

// NewSubstationPosition returns a position for the given latitude and
// longitude.
func NewSubstationPosition(lat, lon float64) (*SubstationPosition, error) {
	c := Coordinate{Latitude: lat, Longitude: lon}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &SubstationPosition{coord: c}, nil
}

func (p *SubstationPosition) Name() string { return "substationPosition" }

func (p *SubstationPosition) Attach(owner network.Extendable) { p.owner = owner }

// Substation returns the substation the position is attached to.
func (p *SubstationPosition) Substation() (*network.Substation, bool) {
	s, ok := p.owner.(*network.Substation)
	return s, ok
}

func (p *SubstationPosition) Coordinate() Coordinate { return p.coord }

// BusbarSectionPosition locates a busbar section in the single-line layout
// of its voltage level.
type BusbarSectionPosition struct {
	busbarIndex  int
	sectionIndex int
	owner        network.Extendable
}

// NewBusbarSectionPosition returns a position. Both indexes start at 0.
func NewBusbarSectionPosition(busbarIndex, sectionIndex int) (*BusbarSectionPosition, error) {
	if busbarIndex < 0 {
		return nil, errors.Validation("busbar index %d is negative", busbarIndex)
	}
	if sectionIndex < 0 {
		return nil, errors.Validation("section index %d is negative", sectionIndex)
	}
	return &BusbarSectionPosition{busbarIndex: busbarIndex, sectionIndex: sectionIndex}, nil
}

func (p *BusbarSectionPosition) Name() string { return "busbarSectionPosition" }

func (p *BusbarSectionPosition) Attach(owner network.Extendable) { p.owner = owner }

func (p *BusbarSectionPosition) BusbarSection() (*network.BusbarSection, bool) {
	b, ok := p.owner.(*network.BusbarSection)
	return b, ok
}

func (p *BusbarSectionPosition) BusbarIndex() int  { return p.busbarIndex }
func (p *BusbarSectionPosition) SectionIndex() int { return p.sectionIndex }
