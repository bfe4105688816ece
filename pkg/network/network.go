package network

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/gridcore/pkg/errors"
	"github.com/matzehuels/gridcore/pkg/observability"
)

// Network is the root aggregate of the model. Use [New] to create one.
type Network struct {
	id           string
	name         string
	sourceFormat string
	caseDate     time.Time
	uuid         uuid.UUID

	ref  *netRef   // reference handed to elements created here
	refs []*netRef // every reference resolving to this network

	index       *index
	variants    *VariantManager
	states      perVariant[*networkState]
	subNetworks []*SubNetwork
	listeners   []Listener
	extensions  extensionSet

	logger     *log.Logger
	asyncLinks map[IdentifiableType]bool

	minLevel   ValidationLevel
	levelMu    sync.Mutex
	level      ValidationLevel
	levelKnown bool

	retiredInto *Network
}

// networkState holds the network-wide caches of one variant.
type networkState struct {
	mu            sync.Mutex
	busViewIDs    map[string]*Bus
	busBreakerIDs map[string]*Bus
	connected     *componentsManager
	synchronous   *componentsManager
}

func newNetworkState(*networkState) *networkState {
	return &networkState{
		connected:   &componentsManager{kind: ComponentConnected},
		synchronous: &componentsManager{kind: ComponentSynchronous},
	}
}

// Option configures a Network created by New.
type Option func(*Network)

// WithName sets the human-readable name of the network.
func WithName(name string) Option {
	return func(n *Network) { n.name = name }
}

// WithCaseDate sets the date of the case. It defaults to the creation time.
func WithCaseDate(t time.Time) Option {
	return func(n *Network) { n.caseDate = t }
}

// WithLogger sets the logger used for merges, variant operations and
// excluded elements. It defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(n *Network) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithMinValidationLevel sets the minimum acceptable validation level.
// It defaults to ValidationSteadyStateHypothesis.
func WithMinValidationLevel(level ValidationLevel) Option {
	return func(n *Network) { n.minLevel = level }
}

// WithAsynchronousLinks sets the link types that do not couple buses
// synchronously. Synchronous components ignore them; connected components
// do not. It defaults to TypeHvdcLine.
func WithAsynchronousLinks(types ...IdentifiableType) Option {
	return func(n *Network) {
		n.asyncLinks = make(map[IdentifiableType]bool, len(types))
		for _, t := range types {
			n.asyncLinks[t] = true
		}
	}
}

// New creates an empty network with a single variant, InitialVariantID.
func New(id, sourceFormat string, opts ...Option) (*Network, error) {
	if err := errors.ValidateIdentifier("network", id); err != nil {
		return nil, err
	}
	n := &Network{
		id:           id,
		sourceFormat: sourceFormat,
		caseDate:     time.Now(),
		uuid:         uuid.New(),
		index:        newIndex(),
		logger:       log.Default(),
		asyncLinks:   map[IdentifiableType]bool{TypeHvdcLine: true},
		minLevel:     ValidationSteadyStateHypothesis,
		level:        ValidationSteadyStateHypothesis,
		levelKnown:   true,
	}
	for _, opt := range opts {
		opt(n)
	}
	n.ref = newNetRef(n)
	n.refs = []*netRef{n.ref}
	n.variants = newVariantManager(n)
	n.states = newPerVariantFunc(1, newNetworkState)
	n.extensions.owner = n
	return n, nil
}

func (n *Network) ID() string { return n.id }

func (n *Network) Name() string { return n.name }

func (n *Network) NameOrID() string {
	if n.name != "" {
		return n.name
	}
	return n.id
}

// SourceFormat returns the format the network was built from, or "hybrid"
// once networks of different formats have been merged.
func (n *Network) SourceFormat() string { return n.sourceFormat }

func (n *Network) CaseDate() time.Time { return n.caseDate }

// UUID identifies this network instance; it differs between two networks
// built from the same case.
func (n *Network) UUID() uuid.UUID { return n.uuid }

func (n *Network) Logger() *log.Logger { return n.logger }

// Variants returns the variant manager.
func (n *Network) Variants() *VariantManager { return n.variants }

// Working is a shortcut for n.Variants().Working().
func (n *Network) Working() Variant { return n.variants.Working() }

func (n *Network) extensionSet() *extensionSet { return &n.extensions }

func (n *Network) AddExtension(ext Extension) { n.extensions.add(ext) }

func (n *Network) ExtensionByName(name string) (Extension, bool) { return n.extensions.byName(name) }

func (n *Network) Extensions() []Extension { return n.extensions.list() }

// IsRetired reports whether the network has been absorbed by a merge.
// Every mutator of a retired network fails with an IllegalState error.
func (n *Network) IsRetired() bool { return n.retiredInto != nil }

func (n *Network) checkLive() error {
	if n.retiredInto != nil {
		return errors.IllegalState("network %q has been merged into %q", n.id, n.retiredInto.id)
	}
	return nil
}

// checkNewID validates id and checks it is free in the index.
func (n *Network) checkNewID(kind, id string) error {
	if err := n.checkLive(); err != nil {
		return err
	}
	if err := errors.ValidateIdentifier(kind, id); err != nil {
		return err
	}
	if n.index.contains(id) {
		return errors.DuplicateID(id)
	}
	return nil
}

// register adds a freshly built element to the index and notifies.
func (n *Network) register(obj Identifiable, level ValidationLevel) error {
	if err := n.index.add(obj); err != nil {
		return err
	}
	n.recordValidationLevel(level)
	n.notifyCreation(obj)
	return nil
}

// unregister removes obj from the index and marks it removed.
func (n *Network) unregister(obj Identifiable) {
	id := obj.ID()
	n.notifyBeforeRemoval(obj)
	n.index.remove(obj)
	obj.core().removed = true
	n.forgetValidationLevel()
	n.notifyAfterRemoval(id)
}

// variantObjects lists everything whose arrays follow the variant manager.
func (n *Network) variantObjects() []variantAware {
	objs := make([]variantAware, 0, n.index.size()+1)
	objs = append(objs, networkStores{n})
	n.index.each(func(obj Identifiable) {
		objs = append(objs, obj.core())
	})
	return objs
}

// networkStores exposes the network-level caches to the variant manager.
type networkStores struct{ n *Network }

func (s networkStores) extendVariantArraySize(number, source int) {
	s.n.states.extend(number, source)
}

func (s networkStores) reduceVariantArraySize(number int) { s.n.states.reduce(number) }

func (s networkStores) deleteVariantArrayElement(index int) { s.n.states.delete(index) }

func (s networkStores) allocateVariantArrayElement(indexes []int, source int) {
	s.n.states.allocate(indexes, source)
}

func (n *Network) state(v Variant) *networkState {
	return n.states.values[v.index()]
}

// invalidateTopology is the single path dropping derived topology: the bus
// caches of the given voltage levels (every level when none is given) and
// the network-wide bus and component caches. slot < 0 invalidates every
// variant.
func (n *Network) invalidateTopology(slot int, vls ...*VoltageLevel) {
	if len(vls) == 0 {
		vls = allOf[*VoltageLevel](n.index, TypeVoltageLevel)
	}
	for _, vl := range vls {
		vl.invalidate(slot)
	}
	variantID := ""
	if slot < 0 {
		for _, s := range n.states.values {
			if s != nil {
				s.invalidate()
			}
		}
	} else {
		n.states.values[slot].invalidate()
		variantID = n.variantIDAt(slot)
	}
	observability.Topology().OnInvalidate(n.id, variantID)
}

func (n *Network) variantIDAt(slot int) string {
	n.variants.mu.RLock()
	defer n.variants.mu.RUnlock()
	for id, s := range n.variants.slots {
		if s.index == slot {
			return id
		}
	}
	return ""
}

func (s *networkState) invalidate() {
	s.mu.Lock()
	s.busViewIDs = nil
	s.busBreakerIDs = nil
	s.mu.Unlock()
	s.connected.invalidate()
	s.synchronous.invalidate()
}

// Identifiable returns the element with the given id or alias.
func (n *Network) Identifiable(id string) (Identifiable, bool) { return n.index.get(id) }

// Identifiables returns every element, type by type, in insertion order.
func (n *Network) Identifiables() []Identifiable {
	out := make([]Identifiable, 0, n.index.size())
	n.index.each(func(obj Identifiable) { out = append(out, obj) })
	return out
}

// IdentifiablesOfType returns the elements of type t in insertion order.
func (n *Network) IdentifiablesOfType(t IdentifiableType) []Identifiable { return n.index.all(t) }

// Intersection returns, per type of n's elements, the ids also used in other.
func (n *Network) Intersection(other *Network) map[IdentifiableType][]string {
	return n.index.intersection(other.index)
}

func (n *Network) Substations() []*Substation { return allOf[*Substation](n.index, TypeSubstation) }

func (n *Network) Substation(id string) (*Substation, bool) { return lookup[*Substation](n.index, id) }

func (n *Network) VoltageLevels() []*VoltageLevel {
	return allOf[*VoltageLevel](n.index, TypeVoltageLevel)
}

func (n *Network) VoltageLevel(id string) (*VoltageLevel, bool) {
	return lookup[*VoltageLevel](n.index, id)
}

func (n *Network) Switches() []*Switch { return allOf[*Switch](n.index, TypeSwitch) }

func (n *Network) Switch(id string) (*Switch, bool) { return lookup[*Switch](n.index, id) }

// ConfiguredBuses returns the buses declared in bus-breaker voltage levels.
func (n *Network) ConfiguredBuses() []*ConfiguredBus {
	return allOf[*ConfiguredBus](n.index, TypeBus)
}

func (n *Network) ConfiguredBus(id string) (*ConfiguredBus, bool) {
	return lookup[*ConfiguredBus](n.index, id)
}

func (n *Network) BusbarSections() []*BusbarSection {
	return allOf[*BusbarSection](n.index, TypeBusbarSection)
}

func (n *Network) BusbarSection(id string) (*BusbarSection, bool) {
	return lookup[*BusbarSection](n.index, id)
}

func (n *Network) Loads() []*Load { return allOf[*Load](n.index, TypeLoad) }

func (n *Network) Load(id string) (*Load, bool) { return lookup[*Load](n.index, id) }

func (n *Network) Generators() []*Generator { return allOf[*Generator](n.index, TypeGenerator) }

func (n *Network) Generator(id string) (*Generator, bool) { return lookup[*Generator](n.index, id) }

func (n *Network) DanglingLines() []*DanglingLine {
	return allOf[*DanglingLine](n.index, TypeDanglingLine)
}

func (n *Network) DanglingLine(id string) (*DanglingLine, bool) {
	return lookup[*DanglingLine](n.index, id)
}

// UnpairedDanglingLines returns the dangling lines not part of a tie line.
func (n *Network) UnpairedDanglingLines() []*DanglingLine {
	var out []*DanglingLine
	for _, dl := range n.DanglingLines() {
		if !dl.IsPaired() {
			out = append(out, dl)
		}
	}
	return out
}

func (n *Network) Lines() []*Line { return allOf[*Line](n.index, TypeLine) }

func (n *Network) Line(id string) (*Line, bool) { return lookup[*Line](n.index, id) }

func (n *Network) TwoWindingsTransformers() []*TwoWindingsTransformer {
	return allOf[*TwoWindingsTransformer](n.index, TypeTwoWindingsTransformer)
}

func (n *Network) TwoWindingsTransformer(id string) (*TwoWindingsTransformer, bool) {
	return lookup[*TwoWindingsTransformer](n.index, id)
}

func (n *Network) TieLines() []*TieLine { return allOf[*TieLine](n.index, TypeTieLine) }

func (n *Network) TieLine(id string) (*TieLine, bool) { return lookup[*TieLine](n.index, id) }

func (n *Network) HvdcLines() []*HvdcLine { return allOf[*HvdcLine](n.index, TypeHvdcLine) }

func (n *Network) HvdcLine(id string) (*HvdcLine, bool) { return lookup[*HvdcLine](n.index, id) }

func (n *Network) ConverterStations() []*VscConverterStation {
	return allOf[*VscConverterStation](n.index, TypeHvdcConverterStation)
}

func (n *Network) ConverterStation(id string) (*VscConverterStation, bool) {
	return lookup[*VscConverterStation](n.index, id)
}

// Connectable returns the connectable element with the given id.
func (n *Network) Connectable(id string) (Connectable, bool) {
	return lookup[Connectable](n.index, id)
}

// SubNetworks returns the sub-networks created by merges, in creation order.
func (n *Network) SubNetworks() []*SubNetwork {
	out := make([]*SubNetwork, len(n.subNetworks))
	copy(out, n.subNetworks)
	return out
}

// SubNetwork returns the sub-network with the given id.
func (n *Network) SubNetwork(id string) (*SubNetwork, bool) {
	for _, sn := range n.subNetworks {
		if sn.id == id {
			return sn, true
		}
	}
	return nil, false
}
