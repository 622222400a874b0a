package main

import (
	"flag"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl32"

	lw "github.com/gekko3d/lightwave"
	"github.com/gekko3d/lightwave/lwrt/rt/core"
)

func init() {
	runtime.LockOSThread()
}

type demoScene struct {
	spinner lw.DrawableId
}

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	zapLog := flag.Bool("zap", false, "Log through zap")
	configPath := flag.String("config", "", "Renderer YAML config (built-in graph when empty)")
	headless := flag.Bool("headless", false, "Render with the recording driver")
	frames := flag.Int("frames", 0, "Exit after this many frames (0 runs until the window closes)")
	flag.Parse()

	app := lw.NewAppBuilder().
		UseModule(
			lw.LoggingModule{Prefix: "lightwave", Debug: *debug, Zap: *zapLog},
			lw.TimeModule{},
		).
		Build()

	if !*headless {
		app.UseModules(lw.NewPlatformWindow(1280, 720, "Lightwave"), lw.InputModule{}, lw.FlyingCameraModule{})
	}
	app.UseRenderer(lw.RendererModule{
		Headless:   *headless,
		Width:      1280,
		Height:     720,
		ConfigPath: *configPath,
	})

	demo := &demoScene{}
	populate(app, demo)

	app.UseSystem(lw.System(func(t *lw.Time, scene *lw.Scene, cmd *lw.Commands) {
		if d := scene.Drawable(demo.spinner); d != nil {
			angle := float32(math.Mod(t.Elapsed().Seconds(), 2*math.Pi))
			d.Transform.Rotation = mgl32.QuatRotate(angle, mgl32.Vec3{0, 1, 0})
		}
		if *frames > 0 && t.Frame >= uint64(*frames) {
			cmd.Exit()
		}
	}).InStage(lw.Update).RunAlways())

	if !*headless {
		app.UseSystem(lw.System(func(input *lw.Input, cmd *lw.Commands) {
			if input.JustPressed[lw.KeyEscape] {
				cmd.Exit()
			}
		}).InStage(lw.PostUpdate).RunAlways())
	}

	app.Run()
}

func populate(app *lw.App, demo *demoScene) {
	assets, _ := lw.Resource[lw.AssetServer](app)
	scene, _ := lw.Resource[lw.Scene](app)
	log := app.Logger()

	add := func(d lw.Drawable) lw.DrawableId {
		id, err := scene.AddDrawable(assets, d)
		if err != nil {
			log.Errorf("demo: %v", err)
		}
		return id
	}

	ground := core.NewTransform()
	ground.Scale = mgl32.Vec3{40, 1, 40}
	add(lw.Drawable{Mesh: assets.CreatePlaneMesh(), Transform: ground, Color: mgl32.Vec4{0.6, 0.6, 0.6, 1}})

	box := core.NewTransform()
	box.Position = mgl32.Vec3{0, 0.5, 0}
	demo.spinner = add(lw.Drawable{Mesh: assets.CreateBoxMesh(), Transform: box, Color: mgl32.Vec4{0.9, 0.3, 0.2, 1}})

	sphere := assets.CreateSphereMesh()
	glass := assets.CreateTransparentMaterial(lw.DefaultTransparentPipeline, lw.DefaultTexture)
	for i := 0; i < 8; i++ {
		a := float64(i) / 8 * 2 * math.Pi
		t := core.NewTransform()
		t.Position = mgl32.Vec3{float32(math.Cos(a)) * 3, 0.5, float32(math.Sin(a)) * 3}
		d := lw.Drawable{Mesh: sphere, Transform: t, Color: mgl32.Vec4{0.2, 0.5, 0.9, 1}}
		if i%2 == 1 {
			d.Materials = []lw.AssetId{glass}
			d.Color[3] = 0.5
		}
		add(d)
	}

	scene.AddLight(core.NewAmbientLight(mgl32.Vec3{1, 1, 1}, 0.15), false)
	scene.AddLight(core.NewDirectionalLight(mgl32.Vec3{-0.4, -1, -0.3}, mgl32.Vec3{1, 0.95, 0.85}, 1.2), true)
	scene.AddLight(core.NewPointLight(mgl32.Vec3{0, 2, 2}, mgl32.Vec3{1, 0.6, 0.3}, 2, 6), true)
}
