package frostvale

import (
	"fmt"
	"reflect"
)

// renderTargetTag marks that a render module has claimed the app's output.
// Only one render module may drive an app.
type renderTargetTag struct {
	Name string
}

// claimRenderOutput enforces the single-renderer invariant. A second claim
// would double the collect and submit systems behind one RenderState, so it
// fails fast naming both claimants.
func claimRenderOutput(app *App, target RenderTarget) {
	name := "deferred"
	if target != nil {
		name = fmt.Sprintf("%T", target)
	}
	t := reflect.TypeOf((*renderTargetTag)(nil)).Elem()
	if res, ok := app.resources[t]; ok {
		prev := "unknown"
		if tag, ok2 := res.(*renderTargetTag); ok2 {
			prev = tag.Name
		}
		// Also log via the injected logger, then fail fast.
		app.Logger().Errorf("Render output already claimed by %s, refusing %s", prev, name)
		panic(fmt.Sprintf("render output already claimed by %s, refusing %s", prev, name))
	}
	app.addResources(&renderTargetTag{Name: name})
}
