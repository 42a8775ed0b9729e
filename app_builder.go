package frostvale

import "reflect"

type AppBuilder struct {
	app     *App
	modules []Module
}

func NewAppBuilder() *AppBuilder {
	ecs := MakeEcs()
	return &AppBuilder{app: &App{
		resources:        make(map[reflect.Type]any),
		systems:          make(map[string]map[State]map[statePhase][]*systemEntry),
		systemsStateless: make(map[string][]*systemEntry),
		ecs:              &ecs,
	}}
}

// UseStates makes the app stateful over the inclusive state range. The app
// starts by entering initialState; reaching finalState ends Run.
func (b *AppBuilder) UseStates(initialState State, finalState State) *AppBuilder {
	b.app.stateful = true
	b.app.initialState = initialState
	b.app.finalState = finalState
	return b
}

func (b *AppBuilder) UseModule(modules ...Module) *AppBuilder {
	b.modules = append(b.modules, modules...)
	return b
}

// Build lays out the stage tables, then installs modules in registration
// order. Stage tables must exist first so Install can schedule systems.
func (b *AppBuilder) Build() *App {
	app := b.app

	app.stages = defaultStages()
	for _, stage := range app.stages {
		app.initStage(stage)
	}

	commands := &Commands{app: app}
	for _, module := range b.modules {
		module.Install(app, commands)
	}

	return app
}
