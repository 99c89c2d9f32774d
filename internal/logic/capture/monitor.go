package capture

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cjeanneret/SenseCam/internal/debug"
	"github.com/cjeanneret/SenseCam/internal/hw/camera"
	"github.com/cjeanneret/SenseCam/internal/logic/access"
)

// Monitor periodically captures a frame and logs its metadata. It shares the
// camera with the HTTP handlers through the coordinator.
type Monitor struct {
	coord    *access.Coordinator
	interval time.Duration // delay after a good frame
	retry    time.Duration // delay after a missing frame

	frames atomic.Uint64
	misses atomic.Uint64
}

// Stats counts monitor captures.
type Stats struct {
	Frames uint64
	Misses uint64
}

func NewMonitor(coord *access.Coordinator, interval, retry time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	if retry <= 0 {
		retry = 100 * time.Millisecond
	}
	return &Monitor{
		coord:    coord,
		interval: interval,
		retry:    retry,
	}
}

// Run captures until ctx is cancelled. It always returns ctx.Err().
func (m *Monitor) Run(ctx context.Context) error {
	debug.Section("Frame monitor")
	debug.Verbose("Monitor: interval=%v retry=%v", m.interval, m.retry)

	for {
		select {
		case <-ctx.Done():
			s := m.Stats()
			debug.Info("Monitor stopped (frames=%d, misses=%d)", s.Frames, s.Misses)
			return ctx.Err()
		default:
		}

		delay := m.interval
		if !m.captureOnce() {
			delay = m.retry
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (m *Monitor) captureOnce() bool {
	debug.Live("Waiting for camera frame...")
	return access.With(m.coord, func(cam camera.Camera) bool {
		frame, ok := cam.Framebuffer()
		if !ok {
			m.misses.Add(1)
			debug.Warn("no framebuffer")
			return false
		}
		m.frames.Add(1)
		debug.Frame(frame.Width, frame.Height, len(frame.Data), frame.Format)
		return true
	})
}

// Stats returns the counters so far.
func (m *Monitor) Stats() Stats {
	return Stats{
		Frames: m.frames.Load(),
		Misses: m.misses.Load(),
	}
}
