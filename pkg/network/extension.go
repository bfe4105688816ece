package network

import (
	"reflect"
	"slices"
	"strings"
)

// Extension is a capability object attached to an element, a network or a
// sub-network. An element holds at most one extension per concrete type.
type Extension interface {
	Name() string
}

// Attachable is implemented by extensions that need to know their owner.
type Attachable interface {
	Attach(owner Extendable)
}

// Extendable is anything extensions can be attached to.
type Extendable interface {
	// AddExtension attaches ext, replacing any extension of the same type.
	AddExtension(ext Extension)
	ExtensionByName(name string) (Extension, bool)
	Extensions() []Extension
	extensionSet() *extensionSet
}

type extensionSet struct {
	owner  Extendable
	byType map[reflect.Type]Extension
}

func (s *extensionSet) add(ext Extension) {
	if ext == nil {
		return
	}
	if s.byType == nil {
		s.byType = make(map[reflect.Type]Extension)
	}
	s.byType[reflect.TypeOf(ext)] = ext
	if a, ok := ext.(Attachable); ok && s.owner != nil {
		a.Attach(s.owner)
	}
}

func (s *extensionSet) list() []Extension {
	out := make([]Extension, 0, len(s.byType))
	for _, e := range s.byType {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Extension) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

func (s *extensionSet) byName(name string) (Extension, bool) {
	for _, e := range s.byType {
		if e.Name() == name {
			return e, true
		}
	}
	return nil, false
}

// moveTo transfers every extension to dst and empties s.
func (s *extensionSet) moveTo(dst *extensionSet) {
	for _, e := range s.list() {
		dst.add(e)
	}
	s.byType = nil
}

func (b *identifiable) extensionSet() *extensionSet {
	if b.extensions.owner == nil {
		b.extensions.owner = b.self
	}
	return &b.extensions
}

func (b *identifiable) AddExtension(ext Extension) { b.extensionSet().add(ext) }

func (b *identifiable) ExtensionByName(name string) (Extension, bool) {
	return b.extensions.byName(name)
}

func (b *identifiable) Extensions() []Extension { return b.extensions.list() }

// ExtensionOf returns the extension of type T attached to e.
func ExtensionOf[T Extension](e Extendable) (T, bool) {
	ext, ok := e.extensionSet().byType[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return ext.(T), true
}

// RemoveExtension detaches the extension of type T from e and reports
// whether one was attached.
func RemoveExtension[T Extension](e Extendable) bool {
	s := e.extensionSet()
	key := reflect.TypeFor[T]()
	if _, ok := s.byType[key]; !ok {
		return false
	}
	delete(s.byType, key)
	return true
}
