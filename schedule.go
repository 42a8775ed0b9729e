package frostvale

import (
	"fmt"
	"reflect"
	"runtime"
	"slices"
	"strings"
)

type State int

type Stage struct {
	Name string
}

// The frame walks these stages in order; FlushCommands runs after each one.
var (
	Prelude    = Stage{Name: "Prelude"}
	PreUpdate  = Stage{Name: "PreUpdate"}
	Update     = Stage{Name: "Update"}
	PostUpdate = Stage{Name: "PostUpdate"}
	PreRender  = Stage{Name: "PreRender"}
	Render     = Stage{Name: "Render"}
	PostRender = Stage{Name: "PostRender"}
	Finale     = Stage{Name: "Finale"}
)

func defaultStages() []Stage {
	return []Stage{Prelude, PreUpdate, Update, PostUpdate, PreRender, Render, PostRender, Finale}
}

type statePhase int

const (
	enter   statePhase = 0
	execute statePhase = 1
	exit    statePhase = 2
)

// systemEntry is a scheduled system plus its runtime bookkeeping. Entries are
// shared pointers so strike counts survive across ticks.
type systemEntry struct {
	fn       systemFn
	name     string
	halfRate bool
	strikes  int
	disabled bool
}

type systemScheduleBuilder struct {
	system        systemFn
	inStage       Stage
	runAlways     bool
	inState       State
	inStatePhase  statePhase
	stateProvided bool
	halfRate      bool
}

type stateScheduleBuilder struct {
	state  State
	phase  statePhase
	always bool
}

func OnEnter(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: enter}
}

func OnExecute(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: execute}
}

func OnExit(state State) stateScheduleBuilder {
	return stateScheduleBuilder{state: state, phase: exit}
}

func Always() stateScheduleBuilder {
	return stateScheduleBuilder{always: true}
}

func System(system systemFn) systemScheduleBuilder {
	return systemScheduleBuilder{
		system:  system,
		inStage: Update,
	}
}

func (sched systemScheduleBuilder) InStage(s Stage) systemScheduleBuilder {
	sched.inStage = s
	return sched
}

func (sched systemScheduleBuilder) InState(s stateScheduleBuilder) systemScheduleBuilder {
	sched.runAlways = s.always
	sched.inState = s.state
	sched.inStatePhase = s.phase
	sched.stateProvided = true
	return sched
}

func (sched systemScheduleBuilder) RunAlways() systemScheduleBuilder {
	sched.runAlways = true
	return sched
}

func (sched systemScheduleBuilder) InAnyState() systemScheduleBuilder {
	return sched.RunAlways()
}

// HalfRate schedules the system on even ticks only. Enter and exit phases
// ignore the lane so one-shot transitions never miss.
func (sched systemScheduleBuilder) HalfRate() systemScheduleBuilder {
	sched.halfRate = true
	return sched
}

type stagePosition int

const (
	stageBefore stagePosition = iota
	stageAfter
)

type stagePositionBuilder struct {
	position stagePosition
	target   Stage
}

func BeforeStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageBefore, target: s}
}

func AfterStage(s Stage) stagePositionBuilder {
	return stagePositionBuilder{position: stageAfter, target: s}
}

func (app *App) UseStage(stage Stage, where stagePositionBuilder) *App {
	stageIdx := -1
	for i, s := range app.stages {
		if s.Name == where.target.Name {
			stageIdx = i
			break
		}
	}
	if stageIdx == -1 {
		panic(fmt.Sprintf("stage %q not found", where.target.Name))
	}

	insertAt := stageIdx
	if where.position == stageAfter {
		insertAt++
	}

	app.stages = slices.Insert(app.stages, insertAt, stage)
	app.initStage(stage)

	return app
}

func (app *App) UseSystem(sched systemScheduleBuilder) *App {
	validateSystemFn(sched.system)

	entry := &systemEntry{
		fn:       sched.system,
		name:     systemName(sched.system),
		halfRate: sched.halfRate,
	}

	if sched.runAlways || !sched.stateProvided {
		if _, ok := app.systemsStateless[sched.inStage.Name]; !ok {
			panic(fmt.Sprintf("stage %q not found", sched.inStage.Name))
		}
		app.systemsStateless[sched.inStage.Name] = append(app.systemsStateless[sched.inStage.Name], entry)
		return app
	}

	if !app.stateful {
		panic("stateful system scheduled on a stateless app")
	}

	stageSystems, ok := app.systems[sched.inStage.Name]
	if !ok {
		panic(fmt.Sprintf("stage %q not found", sched.inStage.Name))
	}
	stateSystems, ok := stageSystems[sched.inState]
	if !ok {
		panic(fmt.Sprintf("state %v outside the app's state range", sched.inState))
	}
	stateSystems[sched.inStatePhase] = append(stateSystems[sched.inStatePhase], entry)

	return app
}

func (app *App) initStage(stage Stage) {
	app.systemsStateless[stage.Name] = make([]*systemEntry, 0)

	if app.stateful {
		app.systems[stage.Name] = make(map[State]map[statePhase][]*systemEntry)
		for state := app.initialState; state <= app.finalState; state++ {
			app.systems[stage.Name][state] = map[statePhase][]*systemEntry{
				enter:   {},
				execute: {},
				exit:    {},
			}
		}
	}
}

// validateSystemFn rejects malformed systems at registration instead of
// letting them strike out at runtime.
func validateSystemFn(fn systemFn) {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		panic(fmt.Sprintf("system must be a func, got %T", fn))
	}
	for i := 0; i < t.NumIn(); i++ {
		if t.In(i).Kind() != reflect.Pointer {
			panic(fmt.Sprintf("system %s: parameter %d must be a pointer", systemName(fn), i))
		}
	}
}

func systemName(fn systemFn) string {
	full := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if i := strings.LastIndexByte(full, '/'); i >= 0 {
		full = full[i+1:]
	}
	return full
}
