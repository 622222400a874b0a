package lightwave

// PlatformWindowModule ensures a single shared GLFW window (WindowState) is created
// and made available as a resource for the renderer and input modules.
// Install is idempotent: an existing WindowState resource is reused.
type PlatformWindowModule struct {
	Width  int
	Height int
	Title  string
}

// NewPlatformWindow creates a module that provides a shared WindowState resource.
// Zero sizes and an empty title fall back to defaults.
func NewPlatformWindow(width, height int, title string) *PlatformWindowModule {
	width, height, title = windowDefaults(width, height, title)
	return &PlatformWindowModule{Width: width, Height: height, Title: title}
}

func windowDefaults(width, height int, title string) (int, int, string) {
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}
	if title == "" {
		title = "Lightwave"
	}
	return width, height, title
}

func (m PlatformWindowModule) Install(app *App, cmd *Commands) {
	ensureWindowResource(app, m.Width, m.Height, m.Title)
}

// ensureWindowResource creates the shared window unless one exists.
// Failing to open a window is fatal.
func ensureWindowResource(app *App, width, height int, title string) *WindowState {
	if ws, ok := Resource[WindowState](app); ok {
		return ws
	}
	width, height, title = windowDefaults(width, height, title)
	ws, err := createWindowState(width, height, title)
	if err != nil {
		app.Logger().Criticalf("window: %v", err)
		panic(err)
	}
	app.addResources(ws)
	app.OnShutdown(ws.destroy)
	app.UseSystem(
		System(windowCloseSystem).
			InStage(Prelude).
			RunAlways(),
	)
	app.Logger().Infof("created shared window (%dx%d) '%s'", width, height, title)
	return ws
}

func windowCloseSystem(ws *WindowState, cmd *Commands) {
	if ws.ShouldClose() {
		cmd.Exit()
	}
}
