package camera

import (
	"errors"
	"fmt"
	"time"

	"github.com/cjeanneret/SenseCam/internal/debug"
	"github.com/cjeanneret/SenseCam/internal/hw/gpio"
)

// Driver names accepted in Config.Driver.
const (
	DriverTestPattern = "testpattern"
	DriverV4L2        = "v4l2"
)

var (
	ErrUnknownDriver = errors.New("unknown camera driver")
	ErrUnsupported   = errors.New("not supported by this driver")
)

// Frame is one encoded image. Data belongs to the driver and is only valid
// until the next Framebuffer call on the same Camera.
type Frame struct {
	Data   []byte
	Width  int
	Height int
	Format PixelFormat
}

// Camera is the capture capability shared by the rest of the application.
// Implementations are not safe for concurrent use; share one through
// access.Coordinator.
type Camera interface {
	// Framebuffer returns the latest frame, or false if none is available.
	Framebuffer() (Frame, bool)
	Close() error
}

// Config is everything needed to bring a sensor up.
type Config struct {
	Driver         string
	Device         string // V4L2 device node
	PixelFormat    PixelFormat
	FrameSize      FrameSize
	JPEGQuality    int // 1-100
	FPS            int
	CaptureTimeout time.Duration
	FailEvery      int // testpattern: every Nth capture yields no frame
	Pins           Pins
}

// Open validates cfg, powers the sensor up and starts the selected driver.
func Open(cfg Config, g gpio.Driver) (Camera, error) {
	if err := cfg.Pins.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pin assignment: %w", err)
	}

	var open func(Config) (Camera, error)
	switch cfg.Driver {
	case DriverTestPattern:
		open = func(c Config) (Camera, error) { return NewTestPattern(c) }
	case DriverV4L2:
		open = openV4L2
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}

	debug.Verbose("Camera: powering up sensor (pwdn=%d, reset=%d)", cfg.Pins.PWDN, cfg.Pins.Reset)
	if err := PowerUp(g, cfg.Pins); err != nil {
		return nil, fmt.Errorf("sensor power-up: %w", err)
	}

	cam, err := open(cfg)
	if err != nil {
		_ = PowerDown(g, cfg.Pins)
		return nil, fmt.Errorf("init %s camera: %w", cfg.Driver, err)
	}

	debug.Info("Camera initialized: driver=%s format=%v size=%v", cfg.Driver, cfg.PixelFormat, cfg.FrameSize)
	return newSensor(cam, g, cfg.Pins), nil
}
