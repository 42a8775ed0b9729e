package frostvale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_Map(t *testing.T) {
	type Comp1 struct{ a int }
	type Comp2 struct{ b float32 }
	type Comp3 struct{}

	ecs := MakeEcs()
	ecs.addEntity(Comp1{a: 1})                                 // comp1 only                       -- shouldn't match
	id2 := ecs.addEntity(Comp1{a: 2}, Comp2{b: 1.37})          // comp1 & comp2                    -- should match
	id3 := ecs.addEntity(Comp1{a: 3}, Comp2{b: 4.20}, Comp3{}) // comp1 & comp2 + something extra  -- should match
	ecs.addEntity(Comp1{a: 4}, Comp3{})                        // comp1 + something extra          -- shouldn't match
	ecs.addEntity(Comp2{b: 3.14})                              // comp2 only                       -- shouldn't match

	query := Query2[Comp1, Comp2]{ecs: &ecs}

	// Archetype iteration order is not defined, so collect then compare.
	got := map[EntityId]Comp1{}
	query.Map(func(entityId EntityId, c1 *Comp1, c2 *Comp2) bool {
		got[entityId] = *c1
		return true
	})

	require.Len(t, got, 2)
	assert.Equal(t, Comp1{a: 2}, got[id2])
	assert.Equal(t, Comp1{a: 3}, got[id3])
}

func TestQuery_MapStopsOnFalse(t *testing.T) {
	type Comp struct{ n int }

	ecs := MakeEcs()
	for i := 0; i < 5; i++ {
		ecs.addEntity(Comp{n: i})
	}

	seen := 0
	Query1[Comp]{ecs: &ecs}.Map(func(entityId EntityId, c *Comp) bool {
		seen++
		return false
	})

	if seen != 1 {
		t.Errorf("expected iteration to stop after the first callback, saw %v", seen)
	}
}

func TestQuery_Without(t *testing.T) {
	type Body struct{ n int }
	type Frozen struct{}

	ecs := MakeEcs()
	warm := ecs.addEntity(Body{n: 1})
	ecs.addEntity(Body{n: 2}, Frozen{})

	var matched []EntityId
	Query1[Body]{ecs: &ecs}.Without(Frozen{}).
		Map(func(entityId EntityId, b *Body) bool {
			matched = append(matched, entityId)
			return true
		})

	require.Len(t, matched, 1)
	assert.Equal(t, warm, matched[0])
}

func TestQuery_Optionals(t *testing.T) {
	type Pos struct{ x float32 }
	type Vel struct{ v float32 }

	ecs := MakeEcs()
	moving := ecs.addEntity(Pos{x: 1}, Vel{v: 3})
	still := ecs.addEntity(Pos{x: 2})

	// Vel is optional: entities without it still match, with a nil pointer.
	got := map[EntityId]*Vel{}
	Query2[Pos, Vel]{ecs: &ecs}.Map(func(entityId EntityId, p *Pos, v *Vel) bool {
		got[entityId] = v
		return true
	}, Vel{})

	require.Len(t, got, 2)
	require.NotNil(t, got[moving])
	assert.Equal(t, float32(3), got[moving].v)
	assert.Nil(t, got[still])
}

func TestQuery_PointersMutateInPlace(t *testing.T) {
	type Counter struct{ n int }

	ecs := MakeEcs()
	id := ecs.addEntity(Counter{n: 10})

	Query1[Counter]{ecs: &ecs}.Map(func(entityId EntityId, c *Counter) bool {
		c.n++
		return true
	})

	arch := ecs.archetypes[ecs.entityIndex[id]]
	col := arch.columns[ecs.componentIdOf(structTypeOf(Counter{}))].([]Counter)
	assert.Equal(t, 11, col[arch.entities[id]].n)
}

func TestQuery_GetComponent(t *testing.T) {
	type Health struct{ hp int }
	type Missing struct{}

	app := NewAppBuilder().Build()
	cmd := app.Commands()

	id := cmd.AddEntity(&Health{hp: 30})
	app.FlushCommands()

	h, ok := GetComponent[Health](cmd, id)
	require.True(t, ok)
	assert.Equal(t, 30, h.hp)

	// Mutation through the pointer sticks.
	h.hp = 25
	h2, _ := GetComponent[Health](cmd, id)
	assert.Equal(t, 25, h2.hp)

	_, ok = GetComponent[Missing](cmd, id)
	assert.False(t, ok)
	_, ok = GetComponent[Health](cmd, EntityId(9999))
	assert.False(t, ok)

	assert.True(t, HasComponent[Health](cmd, id))
	assert.False(t, HasComponent[Missing](cmd, id))
}
