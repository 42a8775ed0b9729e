package frostvale

import "fmt"

// App states. Loading holds the simulation idle until the asset batch lands;
// Shutdown is the final state, reaching it ends Run.
const (
	StateLoading State = iota
	StateRunning
	StateShutdown
)

// VillageBoot carries the in-flight load between the kickoff and the flip
// into Running. Batch jobs fill disjoint Scene fields from their own
// goroutines; readers wait for Progress.Finished first.
type VillageBoot struct {
	Settings Settings
	Progress *LoadProgress
	Scene    *VillageScene

	loggedFraction float32
}

// VillageModule owns the loading state machine: generate the layout and
// start the batch on entering Loading, poll it every tick, then either build
// the scene on entering Running or log the failure and shut down. The scene
// is never partially built.
type VillageModule struct {
	Settings Settings
}

func (m VillageModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&VillageBoot{Settings: m.Settings, Scene: &VillageScene{}})

	app.UseSystem(
		System(villageLoadStartSystem).
			InStage(Update).
			InState(OnEnter(StateLoading)),
	)
	app.UseSystem(
		System(villageLoadPollSystem).
			InStage(Update).
			InState(OnExecute(StateLoading)),
	)
	app.UseSystem(
		System(villageBuildSystem).
			InStage(Update).
			InState(OnEnter(StateRunning)),
	)
	app.UseSystem(
		System(villageTeardownSystem).
			InStage(Finale).
			InState(OnExit(StateShutdown)),
	)
}

func villageLoadStartSystem(cmd *Commands, assets *AssetServer, rng *Rng, boot *VillageBoot) {
	def := GenerateVillage(boot.Settings, rng)
	boot.Scene.Def = def

	jobs := []LoadJob{{
		Name: "village meshes",
		Run: func(server *AssetServer) error {
			boot.Scene.Meshes = registerVillageAssets(server, def)
			return nil
		},
	}}
	if path := boot.Settings.GroundTexture; path != "" {
		jobs = append(jobs, LoadJob{
			Name: "ground texture",
			Run: func(server *AssetServer) error {
				id, err := server.LoadTexture(path)
				if err != nil {
					return err
				}
				boot.Scene.GroundTexture = id
				return nil
			},
		})
	}
	if path := boot.Settings.AmbiencePath; path != "" {
		jobs = append(jobs, LoadJob{
			Name: "ambience",
			Run: func(server *AssetServer) error {
				id, err := server.LoadAudio(path)
				if err != nil {
					return err
				}
				boot.Scene.Ambience = id
				return nil
			},
		})
	}

	boot.Progress = assets.LoadBatch(jobs...)
	cmd.Logger().Infof("Loading %d asset jobs", len(jobs))
}

func villageLoadPollSystem(cmd *Commands, boot *VillageBoot) {
	if boot.Progress == nil {
		return
	}
	if f := boot.Progress.Fraction(); f != boot.loggedFraction {
		boot.loggedFraction = f
		cmd.Logger().Debugf("Assets %d%% loaded", int(f*100))
	}
	if !boot.Progress.Finished() {
		return
	}
	if err := boot.Progress.Err(); err != nil {
		cmd.Logger().Errorf("Asset load failed: %v", err)
		cmd.ChangeState(StateShutdown)
		return
	}
	cmd.ChangeState(StateRunning)
}

// villageBuildSystem runs in the enter phase of Running, so the first
// running tick already sees the whole village.
func villageBuildSystem(cmd *Commands, assets *AssetServer, drifts *DriftField, audio *AudioState, boot *VillageBoot) {
	BuildVillage(cmd, assets, drifts, audio, cmd.Logger(), boot.Scene)
}

// villageTeardownSystem fires once, when Run leaves the final state.
func villageTeardownSystem(state *RenderState) {
	if state.Target != nil {
		state.Target.Close()
	}
}

// NewVillageApp wires the full diorama over the given settings. The target
// receives one frame per executed tick. A nil target selects the forward
// renderer for windowed runs and a NullRenderer for headless ones; tests
// pass their own target to inspect frames.
func NewVillageApp(settings Settings, target RenderTarget) (*App, error) {
	builder := NewAppBuilder().
		UseStates(StateLoading, StateShutdown).
		UseModule(
			LoggingModule{Prefix: "frostvale"},
			TimeModule{TargetFPS: settings.TargetFPS},
			RandomModule{Seed: settings.Seed},
			HierarchyModule{},
		)

	if settings.Headless {
		builder.UseModule(InputModule{Headless: true})
	} else {
		builder.UseModule(
			WindowModule{
				Width:      settings.WindowWidth,
				Height:     settings.WindowHeight,
				Title:      settings.WindowTitle,
				CloseState: StateShutdown,
			},
			InputModule{},
		)
	}

	builder.UseModule(
		AssetServerModule{},
		OrbitCameraModule{},
		WeatherModule{Active: StateRunning},
		DriftModule{Active: StateRunning},
		PathModule{Active: StateRunning},
		LodModule{Active: StateRunning, Bias: settings.LodBias},
		AudioModule{Active: StateRunning},
		RenderModule{
			Target:      target,
			Width:       settings.WindowWidth,
			Height:      settings.WindowHeight,
			TrackWindow: !settings.Headless,
		},
		VillageModule{Settings: settings},
	)

	app := builder.Build()

	if target == nil {
		if settings.Headless {
			target = &NullRenderer{}
		} else {
			forward, err := NewForwardRenderer(resourceOf[WindowState](app), resourceOf[AssetServer](app))
			if err != nil {
				return nil, fmt.Errorf("create renderer: %w", err)
			}
			target = forward
		}
		resourceOf[RenderState](app).Target = target
	}
	return app, nil
}
