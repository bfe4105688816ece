package network

import (
	"fmt"
	"maps"
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// IdentifiableType is the concrete type of an element stored in the index.
type IdentifiableType int

const (
	TypeSubstation IdentifiableType = iota
	TypeVoltageLevel
	TypeBus
	TypeSwitch
	TypeBusbarSection
	TypeLoad
	TypeGenerator
	TypeDanglingLine
	TypeLine
	TypeTwoWindingsTransformer
	TypeTieLine
	TypeHvdcLine
	TypeHvdcConverterStation

	typeCount
)

var typeNames = [typeCount]string{
	TypeSubstation:             "SUBSTATION",
	TypeVoltageLevel:           "VOLTAGE_LEVEL",
	TypeBus:                    "BUS",
	TypeSwitch:                 "SWITCH",
	TypeBusbarSection:          "BUSBAR_SECTION",
	TypeLoad:                   "LOAD",
	TypeGenerator:              "GENERATOR",
	TypeDanglingLine:           "DANGLING_LINE",
	TypeLine:                   "LINE",
	TypeTwoWindingsTransformer: "TWO_WINDINGS_TRANSFORMER",
	TypeTieLine:                "TIE_LINE",
	TypeHvdcLine:               "HVDC_LINE",
	TypeHvdcConverterStation:   "HVDC_CONVERTER_STATION",
}

func (t IdentifiableType) String() string {
	if t < 0 || t >= typeCount {
		return fmt.Sprintf("IdentifiableType(%d)", int(t))
	}
	return typeNames[t]
}

// IdentifiableTypes returns every identifiable type in declaration order.
func IdentifiableTypes() []IdentifiableType {
	out := make([]IdentifiableType, typeCount)
	for i := range out {
		out[i] = IdentifiableType(i)
	}
	return out
}

// ParseIdentifiableType returns the type named s (e.g. "HVDC_LINE").
func ParseIdentifiableType(s string) (IdentifiableType, error) {
	for t, name := range typeNames {
		if name == s {
			return IdentifiableType(t), nil
		}
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown identifiable type %q", s)
}

// Identifiable is implemented by every element registered in a network index.
//
// Ids are immutable except for the renaming performed by a merge when two
// paired dangling lines share the same id. Names, properties, aliases and
// extensions are mutable.
type Identifiable interface {
	Extendable

	ID() string
	Name() string
	// NameOrID returns the name if set, the id otherwise.
	NameOrID() string
	SetName(name string)
	Type() IdentifiableType
	IsFictitious() bool

	// Network returns the network currently owning the element, following
	// merges. It returns nil once the element has been removed.
	Network() *Network

	Property(key string) (string, bool)
	// SetProperty sets a property and returns its previous value.
	SetProperty(key, value string) string
	RemoveProperty(key string) bool
	PropertyNames() []string

	Aliases() []string
	// AliasType returns the type attached to an alias ("" if untyped).
	AliasType(alias string) (string, bool)
	// AddAlias registers an alias, unique across ids and aliases of the network.
	AddAlias(alias, aliasType string) error
	RemoveAlias(alias string)

	core() *identifiable
}

// identifiable is the state shared by every element. Concrete types embed it
// and call init from their constructor.
type identifiable struct {
	self       Identifiable
	id         string
	name       string
	fictitious bool
	ref        *netRef
	properties map[string]string
	aliases    map[string]string // alias -> alias type
	extensions extensionSet
	stores     []variantStore
	removed    bool
}

func (b *identifiable) init(self Identifiable, ref *netRef, id, name string, fictitious bool) {
	b.self = self
	b.ref = ref
	b.id = id
	b.name = name
	b.fictitious = fictitious
}

// track registers per-variant arrays resized by the variant manager.
func (b *identifiable) track(stores ...variantStore) {
	b.stores = append(b.stores, stores...)
}

func (b *identifiable) core() *identifiable { return b }

func (b *identifiable) ID() string         { return b.id }
func (b *identifiable) Name() string       { return b.name }
func (b *identifiable) IsFictitious() bool { return b.fictitious }

func (b *identifiable) NameOrID() string {
	if b.name != "" {
		return b.name
	}
	return b.id
}

func (b *identifiable) SetName(name string) {
	old := b.name
	b.name = name
	b.notifyUpdate("name", "", old, name)
}

func (b *identifiable) Network() *Network {
	if b.removed || b.ref == nil {
		return nil
	}
	return b.ref.get()
}

func (b *identifiable) Property(key string) (string, bool) {
	v, ok := b.properties[key]
	return v, ok
}

func (b *identifiable) SetProperty(key, value string) string {
	if b.properties == nil {
		b.properties = make(map[string]string)
	}
	old := b.properties[key]
	b.properties[key] = value
	b.notifyUpdate("properties["+key+"]", "", old, value)
	return old
}

func (b *identifiable) RemoveProperty(key string) bool {
	old, ok := b.properties[key]
	if !ok {
		return false
	}
	delete(b.properties, key)
	b.notifyUpdate("properties["+key+"]", "", old, nil)
	return true
}

func (b *identifiable) PropertyNames() []string {
	return slices.Sorted(maps.Keys(b.properties))
}

func (b *identifiable) Aliases() []string {
	return slices.Sorted(maps.Keys(b.aliases))
}

func (b *identifiable) AliasType(alias string) (string, bool) {
	t, ok := b.aliases[alias]
	return t, ok
}

func (b *identifiable) AddAlias(alias, aliasType string) error {
	if err := errors.ValidateIdentifier("alias", alias); err != nil {
		return err
	}
	n := b.Network()
	if n == nil {
		return errors.IllegalState("%s %q has been removed", b.self.Type(), b.id)
	}
	if _, ok := b.aliases[alias]; ok {
		return nil
	}
	if err := n.index.addAlias(b.self, alias); err != nil {
		return err
	}
	if b.aliases == nil {
		b.aliases = make(map[string]string)
	}
	b.aliases[alias] = aliasType
	return nil
}

func (b *identifiable) RemoveAlias(alias string) {
	if _, ok := b.aliases[alias]; !ok {
		return
	}
	delete(b.aliases, alias)
	if n := b.Network(); n != nil {
		n.index.removeAlias(alias)
	}
}

func (b *identifiable) notifyUpdate(attribute, variantID string, oldValue, newValue any) {
	if n := b.Network(); n != nil {
		n.notifyUpdate(b.self, attribute, variantID, oldValue, newValue)
	}
}

// extendVariantArraySize, reduceVariantArraySize, deleteVariantArrayElement
// and allocateVariantArrayElement forward the variant manager's decisions to
// every tracked per-variant array.

func (b *identifiable) extendVariantArraySize(number, source int) {
	for _, s := range b.stores {
		s.extend(number, source)
	}
}

func (b *identifiable) reduceVariantArraySize(number int) {
	for _, s := range b.stores {
		s.reduce(number)
	}
}

func (b *identifiable) deleteVariantArrayElement(index int) {
	for _, s := range b.stores {
		s.delete(index)
	}
}

func (b *identifiable) allocateVariantArrayElement(indexes []int, source int) {
	for _, s := range b.stores {
		s.allocate(indexes, source)
	}
}

func describe(o Identifiable) string {
	return fmt.Sprintf("%s %q", o.Type(), o.ID())
}
