package lightwave

// RendererName identifies the driver a RendererModule runs on.
type RendererName string

const (
	RendererWGPU     RendererName = "wgpu"
	RendererHeadless RendererName = "headless"
)

// UseRenderer installs exactly one renderer module.
//
//	app.UseRenderer(RendererModule{ConfigPath: "renderer.yaml"})
func (app *App) UseRenderer(mod RendererModule) *App {
	return app.UseModules(mod)
}

// UseWGPU opens a window of the given size and renders to it with the default pass graph.
func (app *App) UseWGPU(width, height int, title string) *App {
	return app.UseRenderer(RendererModule{Width: width, Height: height, Title: title})
}

// UseHeadless renders into a recording driver, for tests and servers.
func (app *App) UseHeadless(width, height int) *App {
	return app.UseRenderer(RendererModule{Headless: true, Width: width, Height: height})
}
