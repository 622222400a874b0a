package pass

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/frame"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
	"github.com/gekko3d/lightwave/lwrt/rt/render"
)

type recordingLogger struct {
	mu       sync.Mutex
	warnings []string
	errors   []string
}

func (l *recordingLogger) DebugEnabled() bool       { return false }
func (l *recordingLogger) SetDebug(bool)            {}
func (l *recordingLogger) Debugf(string, ...any)    {}
func (l *recordingLogger) Infof(string, ...any)     {}
func (l *recordingLogger) Criticalf(string, ...any) {}
func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}
func (l *recordingLogger) Errorf(format string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

type fixture struct {
	drv *gpu.HeadlessDriver
	r   *render.Renderer
	log *recordingLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	drv := gpu.NewHeadlessDriver(320, 200)
	log := &recordingLogger{}
	r, err := render.New(drv, render.Options{
		Frame: frame.FrameConfig{
			MaxBuckets:       16,
			MaxBucketSize:    64,
			MaxLights:        8,
			MaxBones:         16,
			MaxShadowCasters: 4,
			MaxPassData:      16,
		},
		Logger: log,
	})
	require.NoError(t, err)
	return &fixture{drv: drv, r: r, log: log}
}

func (fx *fixture) pipeline(t *testing.T, name string) gpu.PipelineID {
	t.Helper()
	id, err := fx.r.CreatePipeline(name, gpu.PipelineDesc{})
	require.NoError(t, err)
	return id
}

func (fx *fixture) texture(t *testing.T, name string, props render.TextureProps) gpu.TextureID {
	t.Helper()
	if props.Width == 0 && props.WindowScale == 0 {
		props.Width, props.Height = 16, 16
	}
	require.NoError(t, fx.r.ExecuteNow(render.PendingTexture(name, props, nil)))
	id, ok := fx.r.Resources().Texture(core.NameHash(name))
	require.True(t, ok)
	return id
}

func (fx *fixture) pool(t *testing.T) *geometry.BlockGeometry {
	t.Helper()
	pool, err := fx.r.CreateBlockGeometry("meshes", geometry.BlockGeometryProps{
		VerticesPerBlock: 64,
		MaxVerticeBlocks: 32,
		IndicesPerBlock:  2048,
		MaxIndiceBlocks:  32,
		PositionLayout:   geometry.DefaultPositionLayout(),
		AttributeLayout:  geometry.DefaultAttributeLayout(),
	})
	require.NoError(t, err)
	return pool
}

// frame runs one producer frame through fill and renders it.
func (fx *fixture) frame(t *testing.T, fill func(f *frame.RenderFrame)) *frame.RenderFrame {
	t.Helper()
	f := fx.r.BeginFrame(testCamera())
	require.NotNil(t, f)
	if fill != nil {
		fill(f)
	}
	fx.r.EndFrame()
	fx.drv.Calls()
	require.NoError(t, fx.r.Render(0.016, time.Unix(1, 0), time.Second))
	return f
}

func testCamera() core.Camera {
	return core.NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0},
		core.Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 0.1, Far: 100}, 0)
}

func callsOf(calls []gpu.Call, kind gpu.CallKind) []gpu.Call {
	var out []gpu.Call
	for _, c := range calls {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

func white() mgl32.Vec4 { return mgl32.Vec4{1, 1, 1, 1} }
