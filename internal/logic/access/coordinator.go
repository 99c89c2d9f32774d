package access

import (
	"sync"
	"sync/atomic"

	"github.com/cjeanneret/SenseCam/internal/hw/camera"
)

// Coordinator owns the single camera handle and lends it to one caller at a
// time. Callers never see the handle outside a Do/With callback.
//
// Acquisition blocks without timeout. Ordering is that of sync.Mutex: waiters
// are admitted in no particular order until one has waited more than 1ms,
// after which the lock is handed off in FIFO order.
type Coordinator struct {
	mu       sync.Mutex
	cam      camera.Camera
	inFlight atomic.Bool
}

// New wraps cam. The coordinator becomes the camera's only owner.
func New(cam camera.Camera) *Coordinator {
	return &Coordinator{cam: cam}
}

// Do runs fn with exclusive access to the camera and returns its error.
// Access is released on every exit path, including a panic in fn.
func (c *Coordinator) Do(fn func(cam camera.Camera) error) error {
	return With(c, fn)
}

// With runs fn with exclusive access to the camera and returns its result.
func With[R any](c *Coordinator, fn func(cam camera.Camera) R) R {
	c.mu.Lock()
	c.inFlight.Store(true)
	defer func() {
		c.inFlight.Store(false)
		c.mu.Unlock()
	}()
	return fn(c.cam)
}

// InFlight reports whether some caller currently holds the camera.
func (c *Coordinator) InFlight() bool {
	return c.inFlight.Load()
}

// Close releases the camera once any in-flight access has finished.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cam.Close()
}
