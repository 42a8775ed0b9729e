package frostvale

import "reflect"

// Queries iterate every archetype holding the required component set and hand
// the callback one pointer per component, valid for the duration of the call.
// Optionals widen the match: archetypes missing an optional component still
// match and the callback receives nil for it. Without narrows it: archetypes
// holding any excluded component are skipped. Returning false from the
// callback stops the iteration.

type Query1[A any] struct {
	ecs     *Ecs
	exclude set[componentId]
}

type Query2[A, B any] struct {
	ecs     *Ecs
	exclude set[componentId]
}

type Query3[A, B, C any] struct {
	ecs     *Ecs
	exclude set[componentId]
}

type Query4[A, B, C, D any] struct {
	ecs     *Ecs
	exclude set[componentId]
}

func MakeQuery1[A any](cmd *Commands) Query1[A] {
	return Query1[A]{ecs: cmd.app.ecs}
}

func MakeQuery2[A, B any](cmd *Commands) Query2[A, B] {
	return Query2[A, B]{ecs: cmd.app.ecs}
}

func MakeQuery3[A, B, C any](cmd *Commands) Query3[A, B, C] {
	return Query3[A, B, C]{ecs: cmd.app.ecs}
}

func MakeQuery4[A, B, C, D any](cmd *Commands) Query4[A, B, C, D] {
	return Query4[A, B, C, D]{ecs: cmd.app.ecs}
}

func (q Query1[A]) Without(components ...any) Query1[A] {
	q.exclude = componentIdSet(q.ecs, components...)
	return q
}

func (q Query2[A, B]) Without(components ...any) Query2[A, B] {
	q.exclude = componentIdSet(q.ecs, components...)
	return q
}

func (q Query3[A, B, C]) Without(components ...any) Query3[A, B, C] {
	q.exclude = componentIdSet(q.ecs, components...)
	return q
}

func (q Query4[A, B, C, D]) Without(components ...any) Query4[A, B, C, D] {
	q.exclude = componentIdSet(q.ecs, components...)
	return q
}

func (q Query1[A]) Map(m func(EntityId, *A) bool, optionals ...any) {
	idA := typeId[A](q.ecs)
	opt := componentIdSet(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if archExcluded(arch, q.exclude) {
			continue
		}
		compsA, ok := column[A](arch, idA)
		if !ok && !opt.contains(idA) {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(compsA, r)) {
				return
			}
		}
	}
}

func (q Query2[A, B]) Map(m func(EntityId, *A, *B) bool, optionals ...any) {
	idA := typeId[A](q.ecs)
	idB := typeId[B](q.ecs)
	opt := componentIdSet(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if archExcluded(arch, q.exclude) {
			continue
		}
		compsA, okA := column[A](arch, idA)
		if !okA && !opt.contains(idA) {
			continue
		}
		compsB, okB := column[B](arch, idB)
		if !okB && !opt.contains(idB) {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(compsA, r), pick(compsB, r)) {
				return
			}
		}
	}
}

func (q Query3[A, B, C]) Map(m func(EntityId, *A, *B, *C) bool, optionals ...any) {
	idA := typeId[A](q.ecs)
	idB := typeId[B](q.ecs)
	idC := typeId[C](q.ecs)
	opt := componentIdSet(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if archExcluded(arch, q.exclude) {
			continue
		}
		compsA, okA := column[A](arch, idA)
		if !okA && !opt.contains(idA) {
			continue
		}
		compsB, okB := column[B](arch, idB)
		if !okB && !opt.contains(idB) {
			continue
		}
		compsC, okC := column[C](arch, idC)
		if !okC && !opt.contains(idC) {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(compsA, r), pick(compsB, r), pick(compsC, r)) {
				return
			}
		}
	}
}

func (q Query4[A, B, C, D]) Map(m func(EntityId, *A, *B, *C, *D) bool, optionals ...any) {
	idA := typeId[A](q.ecs)
	idB := typeId[B](q.ecs)
	idC := typeId[C](q.ecs)
	idD := typeId[D](q.ecs)
	opt := componentIdSet(q.ecs, optionals...)

	for _, arch := range q.ecs.archetypes {
		if archExcluded(arch, q.exclude) {
			continue
		}
		compsA, okA := column[A](arch, idA)
		if !okA && !opt.contains(idA) {
			continue
		}
		compsB, okB := column[B](arch, idB)
		if !okB && !opt.contains(idB) {
			continue
		}
		compsC, okC := column[C](arch, idC)
		if !okC && !opt.contains(idC) {
			continue
		}
		compsD, okD := column[D](arch, idD)
		if !okD && !opt.contains(idD) {
			continue
		}
		for entityId, r := range arch.entities {
			if !m(entityId, pick(compsA, r), pick(compsB, r), pick(compsC, r), pick(compsD, r)) {
				return
			}
		}
	}
}

// GetComponent reads a single entity's component without a full query pass.
// The pointer stays valid until the next command flush.
func GetComponent[T any](cmd *Commands, entityId EntityId) (*T, bool) {
	ecs := cmd.app.ecs
	archId, ok := ecs.entityIndex[entityId]
	if !ok {
		return nil, false
	}
	arch := ecs.archetypes[archId]
	comps, ok := column[T](arch, typeId[T](ecs))
	if !ok {
		return nil, false
	}
	return &comps[arch.entities[entityId]], true
}

// HasComponent reports whether the entity currently carries a T.
func HasComponent[T any](cmd *Commands, entityId EntityId) bool {
	_, ok := GetComponent[T](cmd, entityId)
	return ok
}

func column[T any](arch *archetype, id componentId) ([]T, bool) {
	data, ok := arch.columns[id]
	if !ok {
		return nil, false
	}
	return data.([]T), true
}

func pick[T any](comps []T, r row) *T {
	if comps == nil {
		return nil
	}
	return &comps[r]
}

func typeId[T any](ecs *Ecs) componentId {
	return ecs.componentIdOf(reflect.TypeFor[T]())
}

type idSet set[componentId]

func (s idSet) contains(id componentId) bool {
	_, ok := s[id]
	return ok
}

func componentIdSet(ecs *Ecs, components ...any) idSet {
	res := make(idSet, len(components))
	for _, c := range components {
		res[ecs.componentIdOf(structTypeOf(c))] = struct{}{}
	}
	return res
}

func archExcluded(arch *archetype, excl set[componentId]) bool {
	if len(excl) == 0 {
		return false
	}
	for _, id := range arch.key {
		if _, hit := excl[id]; hit {
			return true
		}
	}
	return false
}
