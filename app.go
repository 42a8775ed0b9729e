package frostvale

import (
	"fmt"
	"reflect"
	"time"
)

type systemFn any

// Module wires a feature into the app: resources, systems, stages.
type Module interface {
	Install(app *App, cmd *Commands)
}

// systemStrikeLimit is how many panics a system survives before it is
// quarantined. One frame's damage stays contained; a persistent crasher stops
// spamming the log and the rest of the diorama keeps running.
const systemStrikeLimit = 3

type App struct {
	stateful           bool
	stateTransitioning bool
	started            bool
	initialState       State
	finalState         State
	nextState          State
	state              State

	stages           []Stage
	systems          map[string]map[State]map[statePhase][]*systemEntry
	systemsStateless map[string][]*systemEntry
	resources        map[reflect.Type]any
	ecs              *Ecs

	ticks uint64

	pendingAdditions    []pendingAdd
	pendingRemovals     []EntityId
	pendingCompAdds     []pendingCompAdd
	pendingCompRemovals []pendingCompRemoval
}

type pendingAdd struct {
	eid        EntityId
	components []any
}

type pendingCompAdd struct {
	eid        EntityId
	components []any
}

type pendingCompRemoval struct {
	eid        EntityId
	components []any
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

func (app *App) State() State {
	return app.state
}

func (app *App) Ticks() uint64 {
	return app.ticks
}

// Start performs the initial state entry. Run calls it; tests that drive the
// app through Step may call it directly. Idempotent.
func (app *App) Start() {
	if app.started {
		return
	}
	app.started = true

	if app.stateful {
		app.state = app.initialState
		app.callSystems(app.state, enter)
	}
}

// Run drives the frame loop until the final state is reached. The pace is a
// soft cap: ticks arriving before the pacer's next slot are skipped without
// running any stage, and the skipped spans fold into the next executed
// frame's delta. A stateless app runs until the process exits.
func (app *App) Run() {
	app.Start()

	pacer := resourceOf[FramePacer](app)
	last := time.Now()

	for {
		now := time.Now()
		if pacer != nil && !pacer.Admit(now) {
			time.Sleep(pacerNap)
			continue
		}

		app.Step(now.Sub(last))
		last = now

		if app.stateful && app.state == app.finalState {
			app.callSystems(app.state, exit)
			return
		}
	}
}

// Step advances the simulation by exactly one tick of the given delta.
// Deterministic: the wall clock is never read here, so Step(0) leaves every
// time-derived quantity untouched.
func (app *App) Step(dt time.Duration) {
	app.Start()
	app.advanceClock(dt)

	app.callSystems(app.state, execute)

	if app.stateful && app.stateTransitioning {
		app.stateTransitioning = false
		app.executeChangeState(app.nextState)
	}

	app.ticks++
}

func (app *App) advanceClock(dt time.Duration) {
	t := resourceOf[Time](app)
	if t == nil {
		return
	}
	t.Now = t.Now.Add(dt)
	t.Delta = dt
	t.DeltaSec = float32(dt.Seconds())
	t.Elapsed += dt
	t.Tick = app.ticks
}

func (app *App) callSystems(state State, phase statePhase) {
	for _, stage := range app.stages {
		if phase == execute {
			for _, entry := range app.systemsStateless[stage.Name] {
				app.callSystem(entry, phase)
			}
		}

		if app.stateful {
			if stageSystems, ok := app.systems[stage.Name]; ok {
				if stateSystems, ok := stageSystems[state]; ok {
					for _, entry := range stateSystems[phase] {
						app.callSystem(entry, phase)
					}
				}
			}
		}

		app.FlushCommands()
	}
}

// callSystem is the fault boundary: a panicking system loses the rest of its
// tick, earns a strike, and after systemStrikeLimit strikes stops being
// scheduled at all.
func (app *App) callSystem(entry *systemEntry, phase statePhase) {
	if entry.disabled {
		return
	}
	if phase == execute && entry.halfRate && app.ticks%2 != 0 {
		return
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		entry.strikes++
		if entry.strikes >= systemStrikeLimit {
			entry.disabled = true
			app.Logger().Errorf("system %s panicked (strike %d), quarantined: %v", entry.name, entry.strikes, r)
		} else {
			app.Logger().Errorf("system %s panicked (strike %d): %v", entry.name, entry.strikes, r)
		}
	}()

	app.callSystemInternal(entry.fn)
}

var typeOfCommands = reflect.TypeOf(Commands{})

// callSystemInternal resolves each parameter of the system function:
// *Commands gets a fresh handle, anything else must be a registered resource
// pointer.
func (app *App) callSystemInternal(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())
	for i := 0; i < systemType.NumIn(); i++ {
		paramType := systemType.In(i).Elem()

		if paramType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[paramType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			panic(fmt.Sprintf("system %s: no resource of type %s", systemName(system), paramType))
		}
	}
	systemValue.Call(args)
}

func (app *App) changeState(next State) {
	app.nextState = next
	app.stateTransitioning = true
}

func (app *App) executeChangeState(next State) {
	app.callSystems(app.state, exit)
	app.state = next
	app.callSystems(app.state, enter)
}

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource must be a pointer, got %s", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

// resourceOf fetches a registered resource by type, nil when absent.
func resourceOf[T any](app *App) *T {
	if r, ok := app.resources[reflect.TypeFor[T]()]; ok {
		return r.(*T)
	}
	return nil
}

// FlushCommands applies buffered structural changes: removals first so the
// rest never touches dead entities, then new entities, then component adds
// and removes. Entities both spawned and despawned in the same stage are
// dropped without ever materializing.
func (app *App) FlushCommands() {
	if len(app.pendingAdditions) == 0 && len(app.pendingRemovals) == 0 &&
		len(app.pendingCompAdds) == 0 && len(app.pendingCompRemovals) == 0 {
		return
	}

	removed := make(set[EntityId], len(app.pendingRemovals))
	for _, eid := range app.pendingRemovals {
		removed[eid] = struct{}{}
		if app.ecs.hasEntity(eid) {
			app.ecs.removeEntity(eid)
		}
	}
	app.pendingRemovals = app.pendingRemovals[:0]

	for _, add := range app.pendingAdditions {
		if _, dead := removed[add.eid]; dead {
			continue
		}
		app.ecs.insertEntity(add.eid, add.components...)
	}
	app.pendingAdditions = app.pendingAdditions[:0]

	for _, add := range app.pendingCompAdds {
		if app.ecs.hasEntity(add.eid) {
			app.ecs.addComponents(add.eid, add.components...)
		}
	}
	app.pendingCompAdds = app.pendingCompAdds[:0]

	for _, rem := range app.pendingCompRemovals {
		if app.ecs.hasEntity(rem.eid) {
			app.ecs.removeComponents(rem.eid, rem.components...)
		}
	}
	app.pendingCompRemovals = app.pendingCompRemovals[:0]
}
