package geometry

// UploadRequest carries the host data of one pooled allocation to the driver goroutine.
type UploadRequest struct {
	Pool         uint32
	ID           AllocID
	Positions    []byte
	Attributes   []byte
	Indices      []uint32
	VerticeCount int
	IndiceCount  int
}

// UploadQueue accepts uploads without blocking; false means the queue is full.
type UploadQueue interface {
	PushBlockUpload(req UploadRequest) bool
}
