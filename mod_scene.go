package lightwave

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
)

// MainCamera is the camera the renderer module draws the scene from.
type MainCamera struct {
	core.Camera
}

func NewMainCamera(pos, target mgl32.Vec3) *MainCamera {
	cam := core.NewPerspectiveCamera(pos, target.Sub(pos), mgl32.Vec3{0, 1, 0}, core.Perspective{
		FOV:    mgl32.DegToRad(60),
		Aspect: 16.0 / 9.0,
		Near:   0.1,
		Far:    500,
	}, 0)
	return &MainCamera{Camera: cam}
}

func ensureMainCamera(app *App) *MainCamera {
	if c, ok := Resource[MainCamera](app); ok {
		return c
	}
	c := NewMainCamera(mgl32.Vec3{0, 2, 6}, mgl32.Vec3{})
	app.addResources(c)
	return c
}

type DrawableId int

// Drawable places a mesh asset in the scene. Materials are indexed by mesh
// primitive; missing entries reuse the last one, or the default material.
type Drawable struct {
	Mesh      AssetId
	Materials []AssetId
	Transform core.Transform
	Color     mgl32.Vec4
	// Passes restricts the passes drawing this mesh. Empty means the scene defaults.
	Passes []string
	Hidden bool
}

type SceneLight struct {
	Light  core.Light
	Shadow bool
}

// Scene holds what the renderer module submits every frame.
type Scene struct {
	drawables []Drawable
	live      []bool
	free      []DrawableId

	Lights        []SceneLight
	DefaultPasses []string
}

type SceneModule struct {
	DefaultPasses []string
}

var defaultScenePasses = []string{"geometry", "shadow"}

func (m SceneModule) Install(app *App, cmd *Commands) {
	s := ensureScene(app)
	if len(m.DefaultPasses) > 0 {
		s.DefaultPasses = m.DefaultPasses
	}
}

func ensureScene(app *App) *Scene {
	ensureAssetServer(app)
	ensureMainCamera(app)
	if s, ok := Resource[Scene](app); ok {
		return s
	}
	s := NewScene()
	app.addResources(s)
	return s
}

func NewScene() *Scene {
	return &Scene{DefaultPasses: defaultScenePasses}
}

// AddDrawable validates d against assets and stores it.
func (s *Scene) AddDrawable(assets *AssetServer, d Drawable) (DrawableId, error) {
	if _, ok := assets.Mesh(d.Mesh); !ok {
		return -1, fmt.Errorf("mesh %q: %w", d.Mesh, ErrUnknownAsset)
	}
	for _, m := range d.Materials {
		if _, ok := assets.Material(m); !ok {
			return -1, fmt.Errorf("material %q: %w", m, ErrUnknownAsset)
		}
	}
	if d.Transform.Scale == (mgl32.Vec3{}) {
		d.Transform = core.NewTransform()
	}
	if d.Color == (mgl32.Vec4{}) {
		d.Color = mgl32.Vec4{1, 1, 1, 1}
	}

	if n := len(s.free); n > 0 {
		id := s.free[n-1]
		s.free = s.free[:n-1]
		s.drawables[id] = d
		s.live[id] = true
		return id, nil
	}
	s.drawables = append(s.drawables, d)
	s.live = append(s.live, true)
	return DrawableId(len(s.drawables) - 1), nil
}

// Drawable returns a pointer valid until the drawable is removed.
func (s *Scene) Drawable(id DrawableId) *Drawable {
	if id < 0 || int(id) >= len(s.drawables) || !s.live[id] {
		return nil
	}
	return &s.drawables[id]
}

func (s *Scene) RemoveDrawable(id DrawableId) bool {
	if s.Drawable(id) == nil {
		return false
	}
	s.drawables[id] = Drawable{}
	s.live[id] = false
	s.free = append(s.free, id)
	return true
}

func (s *Scene) DrawableCount() int { return len(s.drawables) - len(s.free) }

// Each calls fn for every visible drawable in id order.
func (s *Scene) Each(fn func(id DrawableId, d *Drawable)) {
	for i := range s.drawables {
		if s.live[i] && !s.drawables[i].Hidden {
			fn(DrawableId(i), &s.drawables[i])
		}
	}
}

func (s *Scene) AddLight(l core.Light, shadow bool) int {
	s.Lights = append(s.Lights, SceneLight{Light: l, Shadow: shadow})
	return len(s.Lights) - 1
}
