package network

import "time"

// SubNetwork records one network absorbed by a merge: its id, name,
// source format, case date and network extensions. Substations and
// voltage levels remember the sub-network they came from.
type SubNetwork struct {
	id           string
	name         string
	sourceFormat string
	caseDate     time.Time
	ref          *netRef
	extensions   extensionSet
}

func newSubNetwork(parent *Network, from *Network) *SubNetwork {
	sn := &SubNetwork{
		id:           from.id,
		name:         from.name,
		sourceFormat: from.sourceFormat,
		caseDate:     from.caseDate,
		ref:          parent.ref,
	}
	sn.extensions.owner = sn
	from.extensions.moveTo(&sn.extensions)
	return sn
}

func (sn *SubNetwork) ID() string { return sn.id }

func (sn *SubNetwork) Name() string { return sn.name }

func (sn *SubNetwork) NameOrID() string {
	if sn.name != "" {
		return sn.name
	}
	return sn.id
}

func (sn *SubNetwork) SourceFormat() string { return sn.sourceFormat }

func (sn *SubNetwork) CaseDate() time.Time { return sn.caseDate }

// Network returns the merged network holding the sub-network.
func (sn *SubNetwork) Network() *Network { return sn.ref.get() }

// Substations returns the substations that came from this sub-network.
func (sn *SubNetwork) Substations() []*Substation {
	var out []*Substation
	for _, s := range sn.Network().Substations() {
		if s.subNetwork == sn.id {
			out = append(out, s)
		}
	}
	return out
}

// VoltageLevels returns the voltage levels that came from this sub-network.
func (sn *SubNetwork) VoltageLevels() []*VoltageLevel {
	var out []*VoltageLevel
	for _, vl := range sn.Network().VoltageLevels() {
		if vl.SubNetworkID() == sn.id {
			out = append(out, vl)
		}
	}
	return out
}

// DanglingLines returns the dangling lines located in the sub-network.
func (sn *SubNetwork) DanglingLines() []*DanglingLine {
	var out []*DanglingLine
	for _, dl := range sn.Network().DanglingLines() {
		if dl.VoltageLevel().SubNetworkID() == sn.id {
			out = append(out, dl)
		}
	}
	return out
}

func (sn *SubNetwork) extensionSet() *extensionSet { return &sn.extensions }

func (sn *SubNetwork) AddExtension(ext Extension) { sn.extensions.add(ext) }

func (sn *SubNetwork) ExtensionByName(name string) (Extension, bool) {
	return sn.extensions.byName(name)
}

func (sn *SubNetwork) Extensions() []Extension { return sn.extensions.list() }
