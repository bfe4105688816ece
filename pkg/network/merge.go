package network

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// HybridSourceFormat is the source format of a merge of networks read from
// different formats.
const HybridSourceFormat = "hybrid"

// MergeState is the progress of a merge.
type MergeState int

const (
	MergeIdle MergeState = iota
	MergeChecking
	MergeCommitting
	MergeDone
	MergeAborted
)

func (s MergeState) String() string {
	switch s {
	case MergeChecking:
		return "checking"
	case MergeCommitting:
		return "committing"
	case MergeDone:
		return "done"
	case MergeAborted:
		return "aborted"
	default:
		return "idle"
	}
}

// Merge creates network id and merges every given network into it. The
// source networks are retired; each becomes a sub-network of the result.
func Merge(id string, networks ...*Network) (*Network, error) {
	if len(networks) < 2 {
		return nil, errors.Validation("merge %q: at least two networks are required", id)
	}
	first := networks[0]
	level := first.minLevel
	for _, o := range networks[1:] {
		level = min(level, o.minLevel)
	}
	n, err := New(id, first.sourceFormat,
		WithCaseDate(first.caseDate),
		WithLogger(first.logger),
		WithMinValidationLevel(level),
	)
	if err != nil {
		return nil, err
	}
	n.asyncLinks = maps.Clone(first.asyncLinks)
	if err := n.Merge(networks...); err != nil {
		return nil, err
	}
	return n, nil
}

// Merge absorbs others into n, in order. Unpaired dangling lines sharing a
// pairing key across networks become tie lines.
//
// The whole batch is checked before anything changes: if any check fails
// (multi-variant or retired network, duplicate ids or sub-network ids, data
// below the minimum validation level of n), no network is modified.
func (n *Network) Merge(others ...*Network) error {
	start := time.Now()
	m := &merger{n: n, state: MergeIdle}
	plan, err := m.check(others)
	if err == nil {
		m.commit(plan)
	}
	d := time.Since(start)

	if err != nil {
		n.logger.Warn("merge aborted", "network", n.id, "error", err)
	} else {
		n.logger.Info("merged network", "network", n.id, "merged", len(others), "tieLines", len(plan.pairings), "duration", d)
	}
	tieLines := 0
	if plan != nil {
		tieLines = len(plan.pairings)
	}
	observability.Merge().OnMergeComplete(n.id, len(others), tieLines, m.state.String(), d, err)
	return err
}

type merger struct {
	n     *Network
	state MergeState
}

// pairing is a tie line to create between a dangling line already in the
// receiver (or an earlier network of the batch) and one from other.
type pairing struct {
	dl1, dl2 *DanglingLine
	id, name string
	rename1  string
	rename2  string
	other    *Network
}

type mergePlan struct {
	others   []*Network
	pairings []*pairing
	// ownSubNetwork is set when the receiver's untagged elements need a
	// sub-network of their own.
	ownSubNetwork bool
}

// mergeView answers id lookups as if the planned merges had been applied.
type mergeView struct {
	indexes  []*index
	claimed  map[string]bool
	released map[string]bool
}

func (v *mergeView) taken(id string) bool {
	if v.claimed[id] {
		return true
	}
	if v.released[id] {
		return false
	}
	for _, x := range v.indexes {
		if x.contains(id) {
			return true
		}
	}
	return false
}

func (m *merger) abort(err error) error {
	m.state = MergeAborted
	return err
}

func (m *merger) check(others []*Network) (*mergePlan, error) {
	m.state = MergeChecking
	n := m.n
	if len(others) == 0 {
		return nil, m.abort(errors.Validation("merge into %q: no network given", n.id))
	}

	seen := map[*Network]bool{n: true}
	for _, net := range append([]*Network{n}, others...) {
		if err := net.checkLive(); err != nil {
			return nil, m.abort(err)
		}
		if size := net.variants.VariantArraySize(); size != 1 {
			return nil, m.abort(errors.IllegalState("network %q has %d variants: merging is only supported for single-variant networks", net.id, size))
		}
	}
	for _, o := range others {
		if seen[o] {
			return nil, m.abort(errors.IllegalState("network %q appears twice in the merge", o.id))
		}
		seen[o] = true
		// the receiver's minimum level never drops
		if level := o.ValidationLevel(); level < n.minLevel {
			return nil, m.abort(errors.Validation("merge into %q: network %q is only valid at %s, %s required", n.id, o.id, level, n.minLevel))
		}
	}

	plan := &mergePlan{others: others}
	subIDs := make(map[string]bool)
	for _, sn := range n.subNetworks {
		subIDs[sn.id] = true
	}
	if n.hasUntagged() && !subIDs[n.id] {
		plan.ownSubNetwork = true
		subIDs[n.id] = true
	}
	for _, o := range others {
		ids := o.mergedSubNetworkIDs()
		for _, id := range ids {
			if subIDs[id] {
				return nil, m.abort(errors.Validation("sub-network %q already exists in %q", id, n.id))
			}
			subIDs[id] = true
		}
	}

	view := &mergeView{
		indexes:  []*index{n.index},
		claimed:  make(map[string]bool),
		released: make(map[string]bool),
	}
	pool := make(map[string][]*DanglingLine)
	for _, dl := range n.UnpairedDanglingLines() {
		if dl.pairingKey != "" {
			pool[dl.pairingKey] = append(pool[dl.pairingKey], dl)
		}
	}

	for _, o := range others {
		pairings := m.planPairings(o, pool)

		exempt := make(map[string]bool)
		for _, p := range pairings {
			if p.dl1.id == p.dl2.id {
				exempt[p.dl2.id] = true
			}
		}
		if err := checkCollisions(n, o, view, exempt); err != nil {
			return nil, m.abort(err)
		}

		view.indexes = append(view.indexes, o.index)
		for _, p := range pairings {
			if p.dl1.id == p.dl2.id {
				p.rename1, p.rename2 = p.dl1.id+"_1", p.dl2.id+"_2"
				for _, id := range []string{p.rename1, p.rename2} {
					if view.taken(id) {
						return nil, m.abort(errors.DuplicateID(id))
					}
					view.claimed[id] = true
				}
				view.released[p.dl1.id] = true
			}
			p.id = uniqueID(mergedID(p.dl1.id, p.dl2.id), view.taken)
			view.claimed[p.id] = true
			p.name = mergedID(p.dl1.NameOrID(), p.dl2.NameOrID())
			p.other = o
		}
		plan.pairings = append(plan.pairings, pairings...)

		for _, dl := range o.UnpairedDanglingLines() {
			if dl.pairingKey != "" && !slices.ContainsFunc(pairings, func(p *pairing) bool { return p.dl2 == dl }) {
				pool[dl.pairingKey] = append(pool[dl.pairingKey], dl)
			}
		}
	}
	return plan, nil
}

// planPairings matches the unpaired dangling lines of o against the pool.
// A key with several candidates pairs only if exactly one of them is
// connected. Matched candidates leave the pool.
func (m *merger) planPairings(o *Network, pool map[string][]*DanglingLine) []*pairing {
	var out []*pairing
	for _, dl := range o.UnpairedDanglingLines() {
		key := dl.pairingKey
		candidates := pool[key]
		if key == "" || len(candidates) == 0 {
			continue
		}
		match := candidates[0]
		if len(candidates) > 1 {
			var connected []*DanglingLine
			for _, c := range candidates {
				if c.terminal.IsConnected(c.Network().Working()) {
					connected = append(connected, c)
				}
			}
			if len(connected) != 1 {
				m.n.logger.Warn("several dangling lines share a pairing key: none paired",
					"pairingKey", key, "danglingLine", dl.id, "candidates", len(candidates), "connected", len(connected))
				continue
			}
			match = connected[0]
		}
		pool[key] = slices.DeleteFunc(candidates, func(c *DanglingLine) bool { return c == match })
		out = append(out, &pairing{dl1: match, dl2: dl})
	}
	return out
}

// checkCollisions reports the ids of o already used in the planned merge,
// type by type.
func checkCollisions(n, o *Network, view *mergeView, exempt map[string]bool) error {
	byType := make(map[IdentifiableType][]string)
	for id, obj := range o.index.objects {
		if !exempt[id] && view.taken(id) {
			byType[obj.Type()] = append(byType[obj.Type()], id)
		}
	}
	for alias, target := range o.index.aliases {
		if view.taken(alias) {
			t := o.index.objects[target].Type()
			byType[t] = append(byType[t], alias)
		}
	}
	if len(byType) == 0 {
		return nil
	}
	var parts []string
	for _, t := range slices.Sorted(maps.Keys(byType)) {
		ids := byType[t]
		slices.Sort(ids)
		parts = append(parts, t.String()+": "+strings.Join(ids, ", "))
	}
	return errors.New(errors.ErrCodeDuplicateID, "networks %q and %q share ids (%s)", n.id, o.id, strings.Join(parts, "; "))
}

func (m *merger) commit(plan *mergePlan) {
	m.state = MergeCommitting
	n := m.n

	if plan.ownSubNetwork {
		sn := newSubNetwork(n, n)
		n.tagUntagged(sn.id)
		n.subNetworks = append(n.subNetworks, sn)
	}

	for _, o := range plan.others {
		if o.hasUntagged() || len(o.subNetworks) == 0 {
			sn := newSubNetwork(n, o)
			o.tagUntagged(sn.id)
			n.subNetworks = append(n.subNetworks, sn)
		}
		for _, sn := range o.subNetworks {
			sn.ref = n.ref
			n.subNetworks = append(n.subNetworks, sn)
		}
		o.subNetworks = nil

		for _, p := range plan.pairings {
			if p.other != o || p.rename1 == "" {
				continue
			}
			// dl1 is in n by now: it came from n or from an earlier network.
			mustRename(n.index, p.dl1, p.rename1)
			mustRename(o.index, p.dl2, p.rename2)
		}

		n.index.absorb(o.index)
		for _, r := range o.refs {
			r.set(n)
		}
		n.refs = append(n.refs, o.refs...)
		o.refs = nil

		for _, p := range plan.pairings {
			if p.other != o {
				continue
			}
			if _, err := n.pair(p.id, p.name, false, p.dl1, p.dl2); err != nil {
				panic(errors.Wrap(errors.ErrCodeInternal, err, "merge %q: create tie line %q", n.id, p.id))
			}
		}

		if o.sourceFormat != n.sourceFormat {
			n.sourceFormat = HybridSourceFormat
		}
		o.retiredInto = n
	}

	n.forgetValidationLevel()
	n.invalidateTopology(-1)
	m.state = MergeDone
}

func mustRename(x *index, obj Identifiable, id string) {
	if err := x.rename(obj, id); err != nil {
		panic(errors.Wrap(errors.ErrCodeInternal, err, "rename %q", obj.ID()))
	}
}

// hasUntagged reports whether n holds substations or substation-less
// voltage levels not yet attributed to a sub-network.
func (n *Network) hasUntagged() bool {
	for _, s := range n.Substations() {
		if s.subNetwork == "" {
			return true
		}
	}
	for _, vl := range n.VoltageLevels() {
		if vl.substation == nil && vl.subNetwork == "" {
			return true
		}
	}
	return false
}

func (n *Network) tagUntagged(id string) {
	for _, s := range n.Substations() {
		if s.subNetwork == "" {
			s.subNetwork = id
		}
	}
	for _, vl := range n.VoltageLevels() {
		if vl.substation == nil && vl.subNetwork == "" {
			vl.subNetwork = id
		}
	}
}

// mergedSubNetworkIDs lists the sub-networks o brings into a merge.
func (n *Network) mergedSubNetworkIDs() []string {
	var ids []string
	if n.hasUntagged() || len(n.subNetworks) == 0 {
		ids = append(ids, n.id)
	}
	for _, sn := range n.subNetworks {
		ids = append(ids, sn.id)
	}
	return ids
}
