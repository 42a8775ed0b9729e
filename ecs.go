package frostvale

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"reflect"
	"slices"
	"sync"
)

type EntityId uint64

type (
	componentId  uint32
	archetypeId  uint64
	archetypeKey []componentId
	row          int
)

type set[T comparable] = map[T]struct{}

// Ecs stores entities grouped by archetype: every entity with the same
// component set shares a table whose columns are typed slices, one per
// component, indexed by row. Moving an entity between archetypes (adding or
// removing components) copies its row into the destination table.
type Ecs struct {
	archetypes  map[archetypeId]*archetype
	entityIndex map[EntityId]archetypeId

	idMu      sync.Mutex
	idCounter EntityId

	regMu       sync.Mutex
	compCounter componentId
	compIds     map[reflect.Type]componentId
	compTypes   map[componentId]reflect.Type
}

type archetype struct {
	id       archetypeId
	key      archetypeKey
	entities map[EntityId]row
	columns  map[componentId]any // typed slices, see ecs_reflect.go
	recycled []row
}

func MakeEcs() Ecs {
	return Ecs{
		archetypes:  make(map[archetypeId]*archetype),
		entityIndex: make(map[EntityId]archetypeId),
		compIds:     make(map[reflect.Type]componentId),
		compTypes:   make(map[componentId]reflect.Type),
	}
}

func (ecs *Ecs) addEntity(components ...any) EntityId {
	return ecs.insertEntity(ecs.nextEntityId(), components...)
}

func (ecs *Ecs) insertEntity(entityId EntityId, components ...any) EntityId {
	archId, arch := ecs.archetypeOf(ecs.keyOf(components...))

	r := ecs.reserveRow(arch)
	arch.entities[entityId] = r
	for _, component := range components {
		ecs.writeComponent(arch, r, component)
	}
	ecs.entityIndex[entityId] = archId

	return entityId
}

func (ecs *Ecs) removeEntity(entityId EntityId) {
	ecs.releaseRow(entityId)
}

func (ecs *Ecs) hasEntity(entityId EntityId) bool {
	_, ok := ecs.entityIndex[entityId]
	return ok
}

func (ecs *Ecs) addComponents(entityId EntityId, components ...any) {
	srcArch := ecs.archetypes[ecs.entityIndex[entityId]]
	srcRow := srcArch.entities[entityId]

	dstKey := mergeKeys(srcArch.key, ecs.keyOf(components...))
	dstArchId, dstArch := ecs.archetypeOf(dstKey)
	dstRow := ecs.reserveRow(dstArch)

	ecs.copyRow(srcArch, srcRow, dstArch, dstRow)
	for _, component := range components {
		ecs.writeComponent(dstArch, dstRow, component)
	}
	ecs.releaseRow(entityId)

	dstArch.entities[entityId] = dstRow
	ecs.entityIndex[entityId] = dstArchId
}

func (ecs *Ecs) removeComponents(entityId EntityId, components ...any) {
	srcArch := ecs.archetypes[ecs.entityIndex[entityId]]
	srcRow := srcArch.entities[entityId]

	drop := make(set[componentId])
	for _, c := range components {
		drop[ecs.componentIdOf(structTypeOf(c))] = struct{}{}
	}

	var dstKey archetypeKey
	for _, id := range srcArch.key {
		if _, gone := drop[id]; !gone {
			dstKey = append(dstKey, id)
		}
	}

	dstArchId, dstArch := ecs.archetypeOf(dstKey)
	dstRow := ecs.reserveRow(dstArch)

	ecs.copyRow(srcArch, srcRow, dstArch, dstRow)
	ecs.releaseRow(entityId)

	dstArch.entities[entityId] = dstRow
	ecs.entityIndex[entityId] = dstArchId
}

// copyRow copies the component values shared by both archetypes. The shorter
// key is always the subset, whether components were added or removed.
func (ecs *Ecs) copyRow(src *archetype, srcRow row, dst *archetype, dstRow row) {
	key := src.key
	if len(dst.key) < len(key) {
		key = dst.key
	}
	for _, id := range key {
		val := reflectSliceGet(src.columns[id], int(srcRow))
		reflectSliceSet(dst.columns[id], int(dstRow), val)
	}
}

func (ecs *Ecs) writeComponent(arch *archetype, r row, component any) {
	value := reflect.ValueOf(component)
	if value.Kind() == reflect.Pointer {
		value = value.Elem()
	}
	id := ecs.componentIdOf(structTypeOf(component))
	reflectSliceSet(arch.columns[id], int(r), value)
}

func (ecs *Ecs) releaseRow(entityId EntityId) {
	arch := ecs.archetypes[ecs.entityIndex[entityId]]
	arch.recycled = append(arch.recycled, arch.entities[entityId])
	delete(arch.entities, entityId)
	delete(ecs.entityIndex, entityId)
}

func (ecs *Ecs) archetypeOf(key archetypeKey) (archetypeId, *archetype) {
	id := hashKey(key)
	if arch, ok := ecs.archetypes[id]; ok {
		return id, arch
	}

	arch := &archetype{
		id:       id,
		key:      key,
		entities: make(map[EntityId]row),
		columns:  make(map[componentId]any),
	}
	for _, compId := range key {
		arch.columns[compId] = reflectSliceMake(ecs.compTypes[compId])
	}
	ecs.archetypes[id] = arch
	return id, arch
}

func (ecs *Ecs) reserveRow(arch *archetype) row {
	if n := len(arch.recycled); n > 0 {
		r := arch.recycled[n-1]
		arch.recycled = arch.recycled[:n-1]
		return r
	}
	r := row(len(arch.entities))
	for _, id := range arch.key {
		arch.columns[id] = reflectSliceAppend(
			arch.columns[id],
			reflect.Zero(ecs.compTypes[id]),
		)
	}
	return r
}

func (ecs *Ecs) keyOf(components ...any) archetypeKey {
	var key archetypeKey
	for _, component := range components {
		key = append(key, ecs.componentIdOf(structTypeOf(component)))
	}
	return normalizeKey(key)
}

// structTypeOf unwraps pointers and insists components are structs; anything
// else is a programmer error.
func structTypeOf(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("component must be a struct or pointer to struct, got %s", t.Kind()))
	}
	return t
}

func mergeKeys(a, b archetypeKey) archetypeKey {
	return normalizeKey(append(slices.Clone(a), b...))
}

// normalizeKey sorts and dedups component ids so that any component ordering
// produces the same canonical archetype key.
func normalizeKey(key archetypeKey) archetypeKey {
	seen := make(set[componentId], len(key))
	out := make(archetypeKey, 0, len(key))
	for _, id := range key {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// hashKey derives the archetype id from the canonical key. Ids are faster to
// compare than keys but are only as unique as the hash.
func hashKey(key archetypeKey) archetypeId {
	h := fnv.New64a()
	var b [8]byte
	for _, id := range key {
		binary.LittleEndian.PutUint64(b[:], uint64(id))
		h.Write(b[:])
	}
	return archetypeId(h.Sum64())
}

func (ecs *Ecs) nextEntityId() EntityId {
	ecs.idMu.Lock()
	defer ecs.idMu.Unlock()
	id := ecs.idCounter
	ecs.idCounter++
	return id
}

func (ecs *Ecs) componentIdOf(t reflect.Type) componentId {
	ecs.regMu.Lock()
	defer ecs.regMu.Unlock()

	if id, ok := ecs.compIds[t]; ok {
		return id
	}
	id := ecs.compCounter
	ecs.compCounter++
	ecs.compIds[t] = id
	ecs.compTypes[id] = t
	return id
}
