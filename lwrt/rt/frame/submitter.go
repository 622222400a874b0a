package frame

import (
	"runtime"
	"sync"

	"github.com/alitto/pond/v2"
)

// Submitter fans frame population out over a worker pool. Frames that are
// not Threaded are populated on the calling goroutine.
type Submitter struct {
	pool  pond.Pool
	chunk int
}

// NewSubmitter starts a pool of workers goroutines; workers <= 0 uses one per CPU.
// Each task handles chunk consecutive indices.
func NewSubmitter(workers, chunk int) *Submitter {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Submitter{pool: pond.NewPool(workers), chunk: max(chunk, 1)}
}

// Populate calls fn for every index in [0, n) and returns once all calls finished.
func (s *Submitter) Populate(f *RenderFrame, n int, fn func(f *RenderFrame, i int)) {
	if !f.cfg.Threaded || n <= s.chunk {
		for i := 0; i < n; i++ {
			fn(f, i)
		}
		return
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += s.chunk {
		end := min(start+s.chunk, n)
		wg.Add(1)
		s.pool.Submit(func() {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(f, i)
			}
		})
	}
	wg.Wait()
}

func (s *Submitter) Stop() {
	s.pool.StopAndWait()
}
