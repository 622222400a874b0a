package render

import (
	"fmt"
	"time"

	"github.com/gekko3d/lightwave/lwrt/rt/core"
	"github.com/gekko3d/lightwave/lwrt/rt/geometry"
	"github.com/gekko3d/lightwave/lwrt/rt/gpu"
)

// MaxPendingResources is the capacity of the pending resource queue.
const MaxPendingResources = 512

type PendingKind int

const (
	PendingCreateBuffer PendingKind = iota
	PendingDestroyBuffer
	PendingCreateTexture
	PendingDestroyTexture
	PendingCreateFramebuffer
	PendingDestroyFramebuffer
	PendingCreateBlockGeometry
	PendingDestroyBlockGeometry
	PendingBlockUpload
)

var pendingKindNames = [...]string{
	"create buffer",
	"destroy buffer",
	"create texture",
	"destroy texture",
	"create framebuffer",
	"destroy framebuffer",
	"create block geometry",
	"destroy block geometry",
	"block upload",
}

func (k PendingKind) String() string {
	if k < 0 || int(k) >= len(pendingKindNames) {
		return fmt.Sprintf("PendingKind(%d)", int(k))
	}
	return pendingKindNames[k]
}

// PendingResource is one driver side request. Only the fields of its Kind
// are read; destroy requests identify the resource by Hash.
type PendingResource struct {
	Kind        PendingKind
	Name        string
	Hash        uint32
	Buffer      gpu.BufferDesc
	Texture     TextureProps
	Framebuffer FramebufferProps
	Data        []byte
	Upload      geometry.UploadRequest
}

func PendingBuffer(name string, desc gpu.BufferDesc, data []byte) PendingResource {
	return PendingResource{Kind: PendingCreateBuffer, Name: name, Hash: core.NameHash(name), Buffer: desc, Data: data}
}

func PendingTexture(name string, props TextureProps, data []byte) PendingResource {
	return PendingResource{Kind: PendingCreateTexture, Name: name, Hash: core.NameHash(name), Texture: props, Data: data}
}

func PendingFramebuffer(name string, props FramebufferProps) PendingResource {
	return PendingResource{Kind: PendingCreateFramebuffer, Name: name, Hash: core.NameHash(name), Framebuffer: props}
}

func PendingDestroy(kind PendingKind, name string) PendingResource {
	return PendingResource{Kind: kind, Name: name, Hash: core.NameHash(name)}
}

// PushPendingResource queues res for the driver goroutine. It never blocks
// and reports false when the queue is full.
func (r *Renderer) PushPendingResource(res PendingResource) bool {
	select {
	case r.pending <- res:
		return true
	default:
		r.log.Warnf("pending resource queue full, dropping %s %q", res.Kind, res.Name)
		return false
	}
}

// PushBlockUpload queues the upload of one pooled allocation.
func (r *Renderer) PushBlockUpload(req geometry.UploadRequest) bool {
	return r.PushPendingResource(PendingResource{Kind: PendingBlockUpload, Hash: req.Pool, Upload: req})
}

func (r *Renderer) PendingCount() int { return len(r.pending) }

// PendingSpace returns how many requests can still be queued this frame.
func (r *Renderer) PendingSpace() int { return cap(r.pending) - len(r.pending) }

// ProcessPendingResources executes queued requests in FIFO order until the
// queue is empty or budget has elapsed. At least one request is executed
// per call when any is queued. Returns the number executed.
func (r *Renderer) ProcessPendingResources(budget time.Duration) int {
	start := r.now()
	n := 0
	for {
		var res PendingResource
		select {
		case res = <-r.pending:
		default:
			return n
		}
		if err := r.executePending(res); err != nil {
			r.log.Errorf("%s %q: %v", res.Kind, res.Name, err)
		}
		n++
		if r.now().Sub(start) >= budget {
			return n
		}
	}
}

// ExecuteNow runs res immediately instead of queueing it. It must be called
// on the driver goroutine, for example from Pass.InitializePass.
func (r *Renderer) ExecuteNow(res PendingResource) error {
	return r.executePending(res)
}

func (r *Renderer) executePending(res PendingResource) error {
	rs := r.resources
	switch res.Kind {
	case PendingCreateBuffer:
		return rs.createBuffer(r.drv, res.Name, res.Buffer, res.Data)
	case PendingDestroyBuffer:
		return rs.destroyBuffer(r.drv, res.Hash)
	case PendingCreateTexture:
		return rs.createTexture(r.drv, res.Name, res.Texture, res.Data, r.width, r.height)
	case PendingDestroyTexture:
		return rs.destroyTexture(r.drv, res.Hash)
	case PendingCreateFramebuffer:
		return rs.createFramebuffer(r.drv, res.Name, res.Framebuffer)
	case PendingDestroyFramebuffer:
		return rs.destroyFramebuffer(r.drv, res.Hash)
	case PendingCreateBlockGeometry:
		g := rs.BlockGeometry(res.Hash)
		if g == nil {
			return ErrUnknownResource
		}
		return g.CreateBuffers(r.drv)
	case PendingDestroyBlockGeometry:
		g := rs.removePool(res.Hash)
		if g == nil {
			return ErrUnknownResource
		}
		g.Release(r.drv)
		return nil
	case PendingBlockUpload:
		g := rs.BlockGeometry(res.Hash)
		if g == nil {
			return fmt.Errorf("block geometry %#x: %w", res.Hash, ErrUnknownResource)
		}
		return g.Upload(r.drv, res.Upload)
	}
	return fmt.Errorf("unsupported pending kind %d", int(res.Kind))
}
