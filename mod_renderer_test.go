package lightwave

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/gekko3d/lightwave/lwrt/rt/config"
	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type headlessApp struct {
	app    *App
	clock  *fakeClock
	rs     *RenderState
	scene  *Scene
	assets *AssetServer
	logs   *observer.ObservedLogs
}

func newHeadlessApp(t *testing.T, cfg *config.Renderer) *headlessApp {
	t.Helper()
	z, logs := newObservedZap()
	clock := &fakeClock{now: time.Unix(1000, 0)}

	app := NewAppBuilder().
		UseModule(TimeModule{Clock: clock.Now}).
		Build()
	app.addResources(z)
	app.UseRenderer(RendererModule{
		Headless:      true,
		Width:         320,
		Height:        200,
		Config:        cfg,
		PendingBudget: time.Second,
		Workers:       2,
		Chunk:         1,
	})
	t.Cleanup(app.stop)

	h := &headlessApp{app: app, clock: clock, logs: logs}
	var ok bool
	h.rs, ok = Resource[RenderState](app)
	require.True(t, ok)
	h.scene, _ = Resource[Scene](app)
	h.assets, _ = Resource[AssetServer](app)
	return h
}

func (h *headlessApp) step(n int) {
	for range n {
		h.clock.Advance(16 * time.Millisecond)
		h.app.Step()
	}
}

func TestRendererModuleDrawsScene(t *testing.T) {
	h := newHeadlessApp(t, nil)
	box := h.assets.CreateBoxMesh()
	_, err := h.scene.AddDrawable(h.assets, Drawable{Mesh: box})
	require.NoError(t, err)
	h.scene.AddLight(core.NewDirectionalLight(mgl32.Vec3{0, -1, -1}, mgl32.Vec3{1, 1, 1}, 1), false)

	h.step(4)

	drv, ok := h.rs.Driver.(*gpu.HeadlessDriver)
	require.True(t, ok)
	assert.Equal(t, 4, drv.Presents())

	mesh, ok := h.rs.Mesh(box)
	require.True(t, ok)
	require.Len(t, mesh.Primitives, 1)
	assert.Equal(t, "box", mesh.Name)

	f := h.rs.Renderer.AppliedFrame()
	require.NotNil(t, f)
	assert.GreaterOrEqual(t, f.ModelCount(), 1)
	assert.Equal(t, 1, f.LightCount())
	assert.Zero(t, h.rs.Renderer.PendingFrames())
}

func TestRendererModuleTransparentDrawable(t *testing.T) {
	h := newHeadlessApp(t, nil)
	box := h.assets.CreateBoxMesh()
	_, err := h.scene.AddDrawable(h.assets, Drawable{Mesh: box, Color: mgl32.Vec4{1, 0, 0, 0.5}})
	require.NoError(t, err)

	h.step(1)

	jobs := h.rs.jobs
	require.Len(t, jobs, 1)
	entry := h.rs.meshes[box]
	assert.Same(t, &entry.transparent, jobs[0].mesh)
	assert.Equal(t, h.rs.Renderer.PassBits("geometry", "shadow"), jobs[0].passBits)
}

func TestRendererModuleRetiresRemovedMeshes(t *testing.T) {
	h := newHeadlessApp(t, nil)
	box := h.assets.CreateBoxMesh()
	h.step(1)
	_, ok := h.rs.Mesh(box)
	require.True(t, ok)

	require.True(t, h.assets.RemoveMesh(box))
	h.step(1)
	_, ok = h.rs.Mesh(box)
	assert.False(t, ok)
	require.Len(t, h.rs.retired, 1)

	h.step(4)
	assert.Empty(t, h.rs.retired)
}

func TestRendererModuleUploadsMoreMeshesThanTheQueueHolds(t *testing.T) {
	h := newHeadlessApp(t, nil)
	ids := make([]AssetId, render.MaxPendingResources+88)
	for i := range ids {
		ids[i] = h.assets.CreateBoxMesh()
	}

	h.step(1)
	assert.Less(t, len(h.rs.meshes), len(ids), "a full queue defers the rest")

	h.step(3)
	for _, id := range ids {
		e, ok := h.rs.meshes[id]
		require.True(t, ok, "mesh %s was never uploaded", id)
		assert.NotEmpty(t, e.ids, "mesh %s has no blocks", id)
	}
	assert.Zero(t, h.rs.Renderer.PendingCount())
}

func TestRendererModuleMissingPool(t *testing.T) {
	cfg := config.Default()
	cfg.Pools = nil
	h := newHeadlessApp(t, cfg)
	h.assets.CreateBoxMesh()

	h.step(3)

	found := h.logs.FilterField(zap.Bool("critical", true)).All()
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Message, `"meshes"`)
	assert.Empty(t, h.rs.meshes)
}

func TestSingleRenderer(t *testing.T) {
	app := NewAppBuilder().Build()
	assert.True(t, ensureSingleRenderer(app, RendererHeadless))
	assert.False(t, ensureSingleRenderer(app, RendererHeadless))
	assert.Panics(t, func() { ensureSingleRenderer(app, RendererWGPU) })
}
