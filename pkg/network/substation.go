package network

import (
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// Substation groups voltage levels sharing a physical site.
type Substation struct {
	identifiable
	country    string
	tso        string
	tags       []string
	subNetwork string
	vls        []*VoltageLevel
}

// SubstationAdder describes a substation to create.
type SubstationAdder struct {
	ID               string
	Name             string
	Fictitious       bool
	Country          string // ISO 3166 alpha-2 code
	TSO              string
	GeographicalTags []string
}

// AddSubstation creates a substation.
func (n *Network) AddSubstation(a SubstationAdder) (*Substation, error) {
	if err := n.checkNewID("substation", a.ID); err != nil {
		return nil, err
	}
	s := &Substation{
		country: a.Country,
		tso:     a.TSO,
		tags:    slices.Clone(a.GeographicalTags),
	}
	s.init(s, n.ref, a.ID, a.Name, a.Fictitious)
	if err := n.register(s, ValidationSteadyStateHypothesis); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Substation) Type() IdentifiableType { return TypeSubstation }

func (s *Substation) Country() string { return s.country }

func (s *Substation) SetCountry(country string) {
	old := s.country
	s.country = country
	s.notifyUpdate("country", "", old, country)
}

func (s *Substation) TSO() string { return s.tso }

func (s *Substation) SetTSO(tso string) {
	old := s.tso
	s.tso = tso
	s.notifyUpdate("tso", "", old, tso)
}

func (s *Substation) GeographicalTags() []string { return slices.Clone(s.tags) }

func (s *Substation) AddGeographicalTag(tag string) {
	if !slices.Contains(s.tags, tag) {
		s.tags = append(s.tags, tag)
	}
}

// SubNetworkID returns the id of the sub-network the substation came from,
// or "" if it was created directly in its network.
func (s *Substation) SubNetworkID() string { return s.subNetwork }

func (s *Substation) VoltageLevels() []*VoltageLevel { return slices.Clone(s.vls) }

// TwoWindingsTransformers returns the transformers of the substation.
func (s *Substation) TwoWindingsTransformers() []*TwoWindingsTransformer {
	n := s.Network()
	if n == nil {
		return nil
	}
	var out []*TwoWindingsTransformer
	for _, t := range n.TwoWindingsTransformers() {
		if t.substation == s {
			out = append(out, t)
		}
	}
	return out
}

// Remove deletes an empty substation.
func (s *Substation) Remove() error {
	n := s.Network()
	if n == nil {
		return errors.IllegalState("substation %q has already been removed", s.id)
	}
	if err := n.checkLive(); err != nil {
		return err
	}
	if len(s.vls) > 0 {
		return errors.IllegalState("substation %q still contains %d voltage level(s)", s.id, len(s.vls))
	}
	n.unregister(s)
	return nil
}
