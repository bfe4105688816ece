package network

import (
	"slices"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// index maps ids and aliases to elements and keeps, per concrete type, the
// insertion order used by every getAll-style accessor.
type index struct {
	objects map[string]Identifiable
	aliases map[string]string // alias -> id
	buckets [typeCount]bucket
}

// bucket is an insertion-ordered set. Removal leaves a hole that compact
// squeezes out once holes dominate.
type bucket struct {
	items []Identifiable
	pos   map[Identifiable]int
	holes int
}

func newIndex() *index {
	return &index{
		objects: make(map[string]Identifiable),
		aliases: make(map[string]string),
	}
}

// contains reports whether id is used as an id or an alias.
func (x *index) contains(id string) bool {
	if _, ok := x.objects[id]; ok {
		return true
	}
	_, ok := x.aliases[id]
	return ok
}

func (x *index) add(obj Identifiable) error {
	id := obj.ID()
	if x.contains(id) {
		return errors.DuplicateID(id)
	}
	x.objects[id] = obj
	x.buckets[obj.Type()].push(obj)
	return nil
}

// get resolves id as an id first, then as an alias.
func (x *index) get(id string) (Identifiable, bool) {
	if obj, ok := x.objects[id]; ok {
		return obj, true
	}
	if target, ok := x.aliases[id]; ok {
		obj, ok := x.objects[target]
		return obj, ok
	}
	return nil, false
}

// all returns the elements of exactly type t in insertion order.
func (x *index) all(t IdentifiableType) []Identifiable {
	return x.buckets[t].list()
}

func (x *index) remove(obj Identifiable) {
	id := obj.ID()
	if cur, ok := x.objects[id]; !ok || cur != obj {
		return
	}
	delete(x.objects, id)
	for _, alias := range obj.Aliases() {
		delete(x.aliases, alias)
	}
	x.buckets[obj.Type()].remove(obj)
}

func (x *index) addAlias(obj Identifiable, alias string) error {
	if x.contains(alias) {
		return errors.DuplicateID(alias)
	}
	x.aliases[alias] = obj.ID()
	return nil
}

func (x *index) removeAlias(alias string) {
	delete(x.aliases, alias)
}

// rename re-keys obj under newID. Only the merge engine renames elements.
func (x *index) rename(obj Identifiable, newID string) error {
	if x.contains(newID) {
		return errors.DuplicateID(newID)
	}
	oldID := obj.ID()
	delete(x.objects, oldID)
	obj.core().id = newID
	x.objects[newID] = obj
	for alias, target := range x.aliases {
		if target == oldID {
			x.aliases[alias] = newID
		}
	}
	return nil
}

// intersection returns, per concrete type of x's elements, the ids also used
// (as id or alias) in other. Aliases of x colliding with other are reported
// under the type of the element owning them.
func (x *index) intersection(other *index) map[IdentifiableType][]string {
	out := make(map[IdentifiableType][]string)
	for id, obj := range x.objects {
		if other.contains(id) {
			out[obj.Type()] = append(out[obj.Type()], id)
		}
	}
	for alias, target := range x.aliases {
		if other.contains(alias) {
			t := x.objects[target].Type()
			out[t] = append(out[t], alias)
		}
	}
	for t := range out {
		slices.Sort(out[t])
	}
	return out
}

// absorb moves every element of other into x, keeping other's per-type
// order after x's. Ids must have been checked with intersection first.
func (x *index) absorb(other *index) {
	for t := range other.buckets {
		for _, obj := range other.buckets[t].list() {
			x.objects[obj.ID()] = obj
			x.buckets[t].push(obj)
		}
	}
	for alias, id := range other.aliases {
		x.aliases[alias] = id
	}
	other.objects = make(map[string]Identifiable)
	other.aliases = make(map[string]string)
	other.buckets = [typeCount]bucket{}
}

// each visits every element, type by type, in insertion order.
func (x *index) each(fn func(Identifiable)) {
	for t := range x.buckets {
		for _, obj := range x.buckets[t].list() {
			fn(obj)
		}
	}
}

func (x *index) size() int { return len(x.objects) }

func (b *bucket) push(obj Identifiable) {
	if b.pos == nil {
		b.pos = make(map[Identifiable]int)
	}
	b.pos[obj] = len(b.items)
	b.items = append(b.items, obj)
}

func (b *bucket) remove(obj Identifiable) {
	i, ok := b.pos[obj]
	if !ok {
		return
	}
	delete(b.pos, obj)
	b.items[i] = nil
	b.holes++
	if b.holes > 16 && b.holes*2 > len(b.items) {
		b.compact()
	}
}

func (b *bucket) compact() {
	live := b.items[:0]
	for _, obj := range b.items {
		if obj != nil {
			b.pos[obj] = len(live)
			live = append(live, obj)
		}
	}
	clear(b.items[len(live):])
	b.items = live
	b.holes = 0
}

func (b *bucket) list() []Identifiable {
	out := make([]Identifiable, 0, len(b.items)-b.holes)
	for _, obj := range b.items {
		if obj != nil {
			out = append(out, obj)
		}
	}
	return out
}

// allOf returns the elements of type t converted to T.
func allOf[T Identifiable](x *index, t IdentifiableType) []T {
	objs := x.all(t)
	out := make([]T, 0, len(objs))
	for _, obj := range objs {
		out = append(out, obj.(T))
	}
	return out
}

// lookup returns the element with the given id (or alias) if it has type T.
func lookup[T Identifiable](x *index, id string) (T, bool) {
	obj, ok := x.get(id)
	if !ok {
		var zero T
		return zero, false
	}
	v, ok := obj.(T)
	return v, ok
}
