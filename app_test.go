package frostvale

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func TestApp_changeState(t *testing.T) {
	app := &App{
		stateful:     true,
		initialState: 1,
		state:        1,
		finalState:   2,
	}

	app.changeState(2)
	if app.nextState != State(2) {
		t.Errorf("The nextState should be set correctly.")
	}
	if !app.stateTransitioning {
		t.Errorf("The stateTransitioning flag should be true.")
	}

	app.executeChangeState(2)
	if app.state != State(2) {
		t.Errorf("The app state should change correctly.")
	}
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := &MockResource1{name: "Resource1"}
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Adding the same type again panics.
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	// Resources must be pointers.
	require.Panics(t, func() {
		app.addResources(MockResource2{name: "by value"})
	})

	resource2 := &MockResource2{name: "Resource2"}
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")
}

func TestApp_ResourceInjection(t *testing.T) {
	app := NewAppBuilder().Build()
	app.addResources(&MockResource1{name: "injected"})

	var got string
	app.UseSystem(System(func(r *MockResource1) {
		got = r.name
	}).InStage(Update))

	app.Step(0)
	assert.Equal(t, "injected", got)
}

func TestApp_MissingResourceStrikesSystem(t *testing.T) {
	app := NewAppBuilder().Build()

	app.UseSystem(System(func(r *MockResource2) {}).InStage(Update))

	// The injection panic is caught by the fault boundary; after three
	// strikes the system is quarantined instead of crashing the app.
	for i := 0; i < systemStrikeLimit+2; i++ {
		app.Step(0)
	}

	entry := app.systemsStateless[Update.Name][0]
	assert.True(t, entry.disabled)
	assert.Equal(t, systemStrikeLimit, entry.strikes)
}

func TestApp_StepAppliesDeferredTransition(t *testing.T) {
	builder := NewAppBuilder().UseStates(0, 2)
	app := builder.Build()

	entered := 0
	app.UseSystem(System(func(cmd *Commands) {
		cmd.ChangeState(1)
	}).InStage(Update).InState(OnExecute(0)))
	app.UseSystem(System(func(cmd *Commands) {
		entered++
	}).InStage(Update).InState(OnEnter(1)))

	app.Start()
	assert.Equal(t, State(0), app.State())

	// The transition is deferred to the end of the step; the enter phase of
	// the new state runs within the same call.
	app.Step(0)
	assert.Equal(t, State(1), app.State())
	assert.Equal(t, 1, entered)
}

func TestApp_HalfRateRunsOnEvenTicks(t *testing.T) {
	app := NewAppBuilder().Build()

	full, half := 0, 0
	app.UseSystem(System(func(cmd *Commands) { full++ }).InStage(Update))
	app.UseSystem(System(func(cmd *Commands) { half++ }).InStage(Update).HalfRate())

	for i := 0; i < 4; i++ {
		app.Step(time.Millisecond)
	}

	assert.Equal(t, 4, full)
	assert.Equal(t, 2, half, "half-rate systems run on ticks 0 and 2 only")
}

func TestApp_PanickedSystemIsQuarantined(t *testing.T) {
	app := NewAppBuilder().Build()

	calls := 0
	app.UseSystem(System(func(cmd *Commands) {
		calls++
		panic("boom")
	}).InStage(Update))

	for i := 0; i < systemStrikeLimit+3; i++ {
		app.Step(0)
	}

	assert.Equal(t, systemStrikeLimit, calls, "quarantined system must not be called again")
}

func TestApp_PanicDoesNotStopOtherSystems(t *testing.T) {
	app := NewAppBuilder().Build()

	ran := false
	app.UseSystem(System(func(cmd *Commands) {
		panic("first system down")
	}).InStage(Update))
	app.UseSystem(System(func(cmd *Commands) {
		ran = true
	}).InStage(Update))

	app.Step(0)
	assert.True(t, ran, "a panic in one system must not take down the rest of the stage")
}

func TestApp_StartIsIdempotent(t *testing.T) {
	builder := NewAppBuilder().UseStates(0, 1)
	app := builder.Build()

	entered := 0
	app.UseSystem(System(func(cmd *Commands) { entered++ }).InStage(Update).InState(OnEnter(0)))

	app.Start()
	app.Start()
	app.Step(0)

	assert.Equal(t, 1, entered)
}

func TestApp_FlushDropsEntitySpawnedAndRemovedSameStage(t *testing.T) {
	type Tag struct{ n int }

	app := NewAppBuilder().Build()
	cmd := app.Commands()

	id := cmd.AddEntity(&Tag{n: 1})
	cmd.RemoveEntity(id)
	app.FlushCommands()

	assert.False(t, cmd.HasEntity(id))
}

func TestApp_FlushAppliesComponentAddsAfterSpawns(t *testing.T) {
	type Base struct{ n int }
	type Extra struct{ s string }

	app := NewAppBuilder().Build()
	cmd := app.Commands()

	// AddComponents on an id reserved in the same stage lands after the
	// entity materializes.
	id := cmd.AddEntity(&Base{n: 5})
	cmd.AddComponents(id, &Extra{s: "later"})
	app.FlushCommands()

	extra, ok := GetComponent[Extra](cmd, id)
	require.True(t, ok)
	assert.Equal(t, "later", extra.s)
	base, _ := GetComponent[Base](cmd, id)
	assert.Equal(t, 5, base.n)
}

func TestApp_AdvanceClock(t *testing.T) {
	app := NewAppBuilder().UseModule(TimeModule{}).Build()

	app.Step(250 * time.Millisecond)
	app.Step(250 * time.Millisecond)

	tm := resourceOf[Time](app)
	require.NotNil(t, tm)
	assert.Equal(t, 500*time.Millisecond, tm.Elapsed)
	assert.Equal(t, 250*time.Millisecond, tm.Delta)
	assert.InDelta(t, 0.25, tm.DeltaSec, 1e-6)
}
