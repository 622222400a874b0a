package lightwave

import (
	"cmp"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/config"
	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu/wgpudriver"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

const (
	DefaultMeshPool      = "meshes"
	DefaultPendingBudget = 2 * time.Millisecond
)

// RendererModule creates the render core and drives one frame per app step.
// The pass graph comes from Config, else from the YAML file at ConfigPath,
// else from config.Default.
type RendererModule struct {
	Headless bool
	Width    int
	Height   int
	Title    string
	VSync    bool

	ConfigPath string
	Config     *config.Renderer

	// MeshPool names the block geometry pool mesh assets are uploaded to.
	MeshPool      string
	PendingBudget time.Duration
	// Workers and Chunk size the pool that populates threaded frames.
	Workers int
	Chunk   int
}

// RenderState is the renderer module's resource.
type RenderState struct {
	Renderer *render.Renderer
	Driver   gpu.Driver

	submitter *frame.Submitter
	log       core.Logger
	meshPool  string
	budget    time.Duration

	meshes   map[AssetId]*meshEntry
	textures map[AssetId]bool
	retired  []retiredMesh

	passBits map[string]uint32
	jobs     []drawJob
	noPool   bool
}

// meshEntry holds the uploaded form of a mesh asset. transparent is the
// same mesh with every primitive flagged transparent.
type meshEntry struct {
	opaque      frame.Mesh
	transparent frame.Mesh
	ids         []geometry.AllocID
}

type retiredMesh struct {
	ids   []geometry.AllocID
	after uint64
}

type drawJob struct {
	mesh      *frame.Mesh
	materials []frame.RenderMaterial
	transform mgl32.Mat4
	color     mgl32.Vec4
	passBits  uint32
}

func (mod RendererModule) name() RendererName {
	if mod.Headless {
		return RendererHeadless
	}
	return RendererWGPU
}

func (mod RendererModule) Install(app *App, cmd *Commands) {
	if !ensureSingleRenderer(app, mod.name()) {
		return
	}
	log := app.Logger()

	rs, err := mod.newRenderState(app, log)
	if err != nil {
		log.Criticalf("renderer: %v", err)
		panic(err)
	}
	app.addResources(rs)
	app.OnShutdown(rs.release)

	if _, ok := Resource[Time](app); !ok {
		TimeModule{MaxDt: 250 * time.Millisecond}.Install(app, cmd)
	}
	ensureScene(app)

	app.UseSystem(
		System(assetSyncSystem).
			InStage(PreRender).
			RunAlways(),
	)
	app.UseSystem(
		System(renderSystem).
			InStage(Render).
			RunAlways(),
	)
	log.Infof("renderer selected: %s", mod.name())
}

func (mod RendererModule) driver(app *App, log core.Logger) (gpu.Driver, error) {
	if mod.Headless {
		w, h, _ := windowDefaults(mod.Width, mod.Height, "")
		return gpu.NewHeadlessDriver(w, h), nil
	}
	ws := ensureWindowResource(app, mod.Width, mod.Height, mod.Title)
	return wgpudriver.New(ws.Window(), wgpudriver.Options{Logger: log, VSync: mod.VSync})
}

func (mod RendererModule) config() (*config.Renderer, error) {
	switch {
	case mod.Config != nil:
		return mod.Config, nil
	case mod.ConfigPath != "":
		return config.Load(mod.ConfigPath)
	}
	return config.Default(), nil
}

func (mod RendererModule) newRenderState(app *App, log core.Logger) (*RenderState, error) {
	cfg, err := mod.config()
	if err != nil {
		return nil, err
	}
	drv, err := mod.driver(app, log)
	if err != nil {
		return nil, fmt.Errorf("%s driver: %w", mod.name(), err)
	}
	r, err := render.New(drv, cfg.Options(log))
	if err != nil {
		drv.Release()
		return nil, err
	}
	if err := cfg.Apply(r); err != nil {
		// the resources that were created still render
		log.Errorf("renderer config: %v", err)
	}

	pool := mod.MeshPool
	if pool == "" {
		pool = DefaultMeshPool
	}
	budget := mod.PendingBudget
	if budget <= 0 {
		budget = DefaultPendingBudget
	}
	return &RenderState{
		Renderer:  r,
		Driver:    drv,
		submitter: frame.NewSubmitter(mod.Workers, cmp.Or(mod.Chunk, 64)),
		log:       log,
		meshPool:  pool,
		budget:    budget,
		meshes:    make(map[AssetId]*meshEntry),
		textures:  make(map[AssetId]bool),
		passBits:  make(map[string]uint32),
	}, nil
}

func (rs *RenderState) release() {
	rs.submitter.Stop()
	rs.Renderer.Release()
	rs.Driver.Release()
}

// Mesh returns the uploaded form of a mesh asset.
func (rs *RenderState) Mesh(id AssetId) (*frame.Mesh, bool) {
	e, ok := rs.meshes[id]
	if !ok {
		return nil, false
	}
	return &e.opaque, true
}

func assetSyncSystem(rs *RenderState, assets *AssetServer, t *Time) {
	rs.syncTextures(assets)
	rs.syncMeshes(assets, t.Frame)
}

func (rs *RenderState) syncTextures(assets *AssetServer) {
	for id, tex := range assets.textures {
		if rs.textures[id] {
			continue
		}
		props := render.TextureProps{TextureDesc: gpu.TextureDesc{
			Width:  tex.Width,
			Height: tex.Height,
			Layers: 1,
			Format: tex.Format,
		}}
		if !rs.Renderer.CreateTexture(string(id), props, tex.Texels) {
			// queue full, retried next frame
			return
		}
		rs.textures[id] = true
	}
}

func (rs *RenderState) syncMeshes(assets *AssetServer, now uint64) {
	for _, id := range assets.takeRemovedMeshes() {
		if e, ok := rs.meshes[id]; ok {
			delete(rs.meshes, id)
			rs.retired = append(rs.retired, retiredMesh{ids: e.ids, after: now + render.FrameRing})
		}
	}

	pool := rs.Renderer.Resources().BlockGeometry(core.NameHash(rs.meshPool))
	if pool == nil {
		if !rs.noPool && len(assets.meshes) > 0 {
			rs.log.Criticalf("renderer: mesh pool %q is not configured", rs.meshPool)
			rs.noPool = true
		}
		return
	}

	kept := rs.retired[:0]
	for _, r := range rs.retired {
		if now < r.after {
			kept = append(kept, r)
			continue
		}
		for _, id := range r.ids {
			pool.Free(id)
		}
	}
	rs.retired = kept

	for id, asset := range assets.meshes {
		if _, ok := rs.meshes[id]; ok {
			continue
		}
		if rs.Renderer.PendingSpace() < len(asset.Primitives) {
			// queue full, retried next frame
			return
		}
		e, err := rs.uploadMesh(pool, asset)
		if err != nil {
			rs.log.Errorf("mesh %q: %v", asset.Name, err)
			// the pool is exhausted, keep the failure so it is not retried every frame
			e = &meshEntry{}
		}
		rs.meshes[id] = e
	}
}

func (rs *RenderState) uploadMesh(pool *geometry.BlockGeometry, asset MeshAsset) (*meshEntry, error) {
	e := &meshEntry{}
	for i, p := range asset.Primitives {
		id := pool.UploadPrimitive(p, rs.Renderer)
		if id == geometry.NullID {
			for _, done := range e.ids {
				pool.Free(done)
			}
			return nil, fmt.Errorf("primitive %d: upload failed", i)
		}
		e.ids = append(e.ids, id)
		block := frame.PooledBlock(pool.NameHash(), id, 0, 0)
		e.opaque.Primitives = append(e.opaque.Primitives, frame.MeshPrimitive{Block: block, Material: i})
		e.transparent.Primitives = append(e.transparent.Primitives, frame.MeshPrimitive{Block: block, Material: i, Flags: frame.ModelTransparent})
	}
	e.opaque.Name, e.transparent.Name = asset.Name, asset.Name
	e.opaque.Min, e.opaque.Max = asset.Min, asset.Max
	e.transparent.Min, e.transparent.Max = asset.Min, asset.Max
	return e, nil
}

func (rs *RenderState) passMask(names []string) uint32 {
	var mask uint32
	for _, n := range names {
		b, ok := rs.passBits[n]
		if !ok {
			b = rs.Renderer.PassBit(n)
			rs.passBits[n] = b
		}
		mask |= b
	}
	return mask
}

func (rs *RenderState) materials(assets *AssetServer, d *Drawable, count int) ([]frame.RenderMaterial, bool) {
	ids := d.Materials
	if len(ids) == 0 {
		ids = []AssetId{assets.DefaultMaterial()}
	}
	out := make([]frame.RenderMaterial, count)
	transparent := false
	for i := range out {
		m, ok := assets.Material(ids[min(i, len(ids)-1)])
		if !ok {
			m, _ = assets.Material(assets.DefaultMaterial())
		}
		out[i] = frame.NewRenderMaterial(m.Pipeline, m.Textures...)
		transparent = transparent || m.Transparent
	}
	return out, transparent || d.Color.W() < 1
}

// buildJobs resolves every visible drawable on the app goroutine so that
// the parallel population only reads immutable data.
func (rs *RenderState) buildJobs(scene *Scene, assets *AssetServer) []drawJob {
	rs.jobs = rs.jobs[:0]
	scene.Each(func(_ DrawableId, d *Drawable) {
		e, ok := rs.meshes[d.Mesh]
		if !ok || len(e.ids) == 0 {
			return
		}
		passes := d.Passes
		if len(passes) == 0 {
			passes = scene.DefaultPasses
		}
		mats, transparent := rs.materials(assets, d, len(e.opaque.Primitives))
		mesh := &e.opaque
		if transparent {
			mesh = &e.transparent
		}
		rs.jobs = append(rs.jobs, drawJob{
			mesh:      mesh,
			materials: mats,
			transform: d.Transform.ObjectToWorld(),
			color:     d.Color,
			passBits:  rs.passMask(passes),
		})
	})
	return rs.jobs
}

func renderSystem(rs *RenderState, scene *Scene, assets *AssetServer, cam *MainCamera, t *Time) {
	r := rs.Renderer
	if w, h := r.WindowSize(); w > 0 && h > 0 {
		cam.SetAspect(float32(w) / float32(h))
	}
	cam.BuildFrustum()

	if f := r.BeginFrame(cam.Camera); f != nil {
		rs.populate(f, scene, assets)
		r.EndFrame()
	}

	if err := r.Render(t.DtSeconds(), t.Time, rs.budget); err != nil {
		rs.log.Errorf("render: %v", err)
	}
}

func (rs *RenderState) populate(f *frame.RenderFrame, scene *Scene, assets *AssetServer) {
	for _, l := range scene.Lights {
		f.PushLight(l.Light, l.Shadow)
	}
	rs.Renderer.PrepareFrame(f)

	jobs := rs.buildJobs(scene, assets)
	rs.submitter.Populate(f, len(jobs), func(f *frame.RenderFrame, i int) {
		j := &jobs[i]
		f.PushMesh(j.mesh, j.transform, j.materials, frame.NewModelData(j.transform, j.color), j.passBits)
	})
}
