package lightwave

import (
	"fmt"
)

// RendererTag marks that a renderer has been installed into the App.
// Only one renderer should be installed at a time.
type RendererTag struct {
	Name RendererName
}

// ensureSingleRenderer panics when a different renderer was installed before.
// Installing the same renderer twice reports false.
func ensureSingleRenderer(app *App, name RendererName) bool {
	if app == nil {
		panic("ensureSingleRenderer: app is nil")
	}
	if tag, ok := Resource[RendererTag](app); ok {
		if tag.Name != name {
			app.Logger().Criticalf("multiple renderers installed: %s and %s", tag.Name, name)
			panic(fmt.Sprintf("multiple renderers installed: %s and %s", tag.Name, name))
		}
		return false
	}
	app.addResources(&RendererTag{Name: name})
	return true
}
