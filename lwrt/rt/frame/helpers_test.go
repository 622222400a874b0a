package frame

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

type recordingLogger struct {
	mu        sync.Mutex
	criticals []string
	warnings  []string
}

func (l *recordingLogger) DebugEnabled() bool    { return false }
func (l *recordingLogger) SetDebug(bool)         {}
func (l *recordingLogger) Debugf(string, ...any) {}
func (l *recordingLogger) Infof(string, ...any)  {}
func (l *recordingLogger) Errorf(string, ...any) {}
func (l *recordingLogger) Warnf(format string, args ...any) {
	l.mu.Lock()
	l.warnings = append(l.warnings, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}
func (l *recordingLogger) Criticalf(format string, args ...any) {
	l.mu.Lock()
	l.criticals = append(l.criticals, fmt.Sprintf(format, args...))
	l.mu.Unlock()
}

type acceptQueue struct{}

func (acceptQueue) PushBlockUpload(geometry.UploadRequest) bool { return true }

type poolResolver map[uint32]*geometry.BlockGeometry

func (r poolResolver) DrawCall(b GeometryBlock, baseInstance uint32) (gpu.IndirectCommand, bool, bool) {
	if b.IsRaw() {
		cmd, indexed := RawDrawCall(b, baseInstance)
		return cmd, indexed, true
	}
	g, ok := r[b.Pool]
	if !ok {
		return gpu.IndirectCommand{}, false, false
	}
	return g.MakeDrawCall(b.ID, baseInstance, b.Offset, b.Count), g.HasIndices(), true
}

func testPool() *geometry.BlockGeometry {
	return geometry.NewBlockGeometry("test pool", geometry.BlockGeometryProps{
		VerticesPerBlock: 64,
		MaxVerticeBlocks: 64,
		IndicesPerBlock:  256,
		MaxIndiceBlocks:  64,
		PositionLayout:   geometry.DefaultPositionLayout(),
		AttributeLayout:  geometry.DefaultAttributeLayout(),
	}, nil)
}

func testCamera() core.Camera {
	return core.NewPerspectiveCamera(
		mgl32.Vec3{0, 0, 5}, mgl32.Vec3{0, 0, -1}, mgl32.Vec3{0, 1, 0},
		core.Perspective{FOV: mgl32.DegToRad(90), Aspect: 1, Near: 0.1, Far: 100}, 0)
}

func testFrame(size int, threaded bool, log core.Logger) *RenderFrame {
	f := NewRenderFrame(FrameConfig{
		MaxBuckets:       4,
		MaxBucketSize:    size,
		MaxLights:        8,
		MaxBones:         16,
		MaxShadowCasters: 2,
		MaxPassData:      4,
		Threaded:         threaded,
	}, log)
	f.Initialize(1)
	return f
}
