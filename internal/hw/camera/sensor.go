package camera

import (
	"errors"
	"time"

	"github.com/cjeanneret/SenseCam/internal/debug"
	"github.com/cjeanneret/SenseCam/internal/hw/gpio"
)

const (
	resetPulse  = 10 * time.Millisecond
	settleDelay = 20 * time.Millisecond
)

// PowerUp brings the sensor out of power-down and reset:
// 1. PWDN to LOW (power on)
// 2. RESET pulsed LOW, then HIGH
// 3. Wait for the sensor to settle
// Lines set to gpio.NotConnected are skipped.
func PowerUp(g gpio.Driver, p Pins) error {
	touched := false

	if p.PWDN != gpio.NotConnected {
		if err := g.SetupPin(p.PWDN, gpio.Output); err != nil {
			return err
		}
		if err := g.WritePin(p.PWDN, gpio.Low); err != nil {
			return err
		}
		touched = true
	}

	if p.Reset != gpio.NotConnected {
		if err := g.SetupPin(p.Reset, gpio.Output); err != nil {
			return err
		}
		if err := gpio.Pulse(g, p.Reset, gpio.Low, resetPulse); err != nil {
			return err
		}
		touched = true
	}

	if p.LED != gpio.NotConnected {
		if err := g.SetupPin(p.LED, gpio.Output); err != nil {
			return err
		}
		if err := g.WritePin(p.LED, gpio.Low); err != nil {
			return err
		}
	}

	if touched {
		time.Sleep(settleDelay)
	}
	return nil
}

// PowerDown puts the sensor back into power-down and turns the indicator off.
func PowerDown(g gpio.Driver, p Pins) error {
	var errs []error
	if p.LED != gpio.NotConnected {
		errs = append(errs, g.WritePin(p.LED, gpio.Low))
	}
	if p.PWDN != gpio.NotConnected {
		errs = append(errs, g.WritePin(p.PWDN, gpio.High))
	}
	return errors.Join(errs...)
}

// sensor wraps a driver with the board-level lines: the LED is lit for the
// duration of each capture and Close powers the sensor down.
type sensor struct {
	Camera
	gpio gpio.Driver
	pins Pins
}

func newSensor(cam Camera, g gpio.Driver, p Pins) *sensor {
	return &sensor{Camera: cam, gpio: g, pins: p}
}

func (s *sensor) Framebuffer() (Frame, bool) {
	if s.pins.LED == gpio.NotConnected {
		return s.Camera.Framebuffer()
	}

	if err := s.gpio.WritePin(s.pins.LED, gpio.High); err != nil {
		debug.Warn("Camera: indicator on failed: %v", err)
	}
	defer func() {
		if err := s.gpio.WritePin(s.pins.LED, gpio.Low); err != nil {
			debug.Warn("Camera: indicator off failed: %v", err)
		}
	}()
	return s.Camera.Framebuffer()
}

func (s *sensor) Close() error {
	return errors.Join(s.Camera.Close(), PowerDown(s.gpio, s.pins))
}
