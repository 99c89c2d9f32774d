package gpio

import (
	"time"

	"github.com/cjeanneret/SenseCam/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// NotConnected marks an optional line that is not wired.
const NotConnected = -1

// Driver defines the abstract interface for controlling GPIOs.
// The sensor power-down, reset and indicator lines go through it,
// so a mock can stand in on a development machine.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// MockDriver only logs actions.
type MockDriver struct{}

// NewDriver returns a MockDriver when mock is true, otherwise the go-rpio driver.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return &MockDriver{}, nil
	}
	return NewRPiRealDriver()
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	debug.GPIO("ReadPin", pin, nil)
	return Low, nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	return nil
}

// Pulse drives pin to level for width, then back to the opposite level.
// Pins set to NotConnected are ignored.
func Pulse(d Driver, pin int, level Level, width time.Duration) error {
	if pin == NotConnected {
		return nil
	}
	if err := d.WritePin(pin, level); err != nil {
		return err
	}
	time.Sleep(width)
	return d.WritePin(pin, !level)
}
