package camera

import (
	"fmt"

	"github.com/cjeanneret/SenseCam/internal/hw/gpio"
)

// Pins is the DVP wiring of the sensor: a clock output, eight data lines,
// three sync lines and the two SCCB control lines. PWDN, Reset and LED are
// optional and use gpio.NotConnected when absent.
type Pins struct {
	XCLK  int `yaml:"xclk"`
	D0    int `yaml:"d0"` // Y2
	D1    int `yaml:"d1"` // Y3
	D2    int `yaml:"d2"` // Y4
	D3    int `yaml:"d3"` // Y5
	D4    int `yaml:"d4"` // Y6
	D5    int `yaml:"d5"` // Y7
	D6    int `yaml:"d6"` // Y8
	D7    int `yaml:"d7"` // Y9
	VSYNC int `yaml:"vsync"`
	HREF  int `yaml:"href"`
	PCLK  int `yaml:"pclk"`
	SIOD  int `yaml:"siod"`
	SIOC  int `yaml:"sioc"`

	PWDN  int `yaml:"pwdn"`  // active HIGH power-down
	Reset int `yaml:"reset"` // active LOW reset
	LED   int `yaml:"led"`   // capture indicator
}

// DefaultPins returns the wiring of the Sense camera expansion board.
func DefaultPins() Pins {
	return Pins{
		XCLK:  10,
		D0:    15,
		D1:    17,
		D2:    18,
		D3:    16,
		D4:    14,
		D5:    12,
		D6:    11,
		D7:    48,
		VSYNC: 38,
		HREF:  47,
		PCLK:  13,
		SIOD:  40,
		SIOC:  39,
		PWDN:  gpio.NotConnected,
		Reset: gpio.NotConnected,
		LED:   gpio.NotConnected,
	}
}

type namedPin struct {
	name string
	pin  int
}

func (p Pins) required() []namedPin {
	return []namedPin{
		{"xclk", p.XCLK},
		{"d0", p.D0}, {"d1", p.D1}, {"d2", p.D2}, {"d3", p.D3},
		{"d4", p.D4}, {"d5", p.D5}, {"d6", p.D6}, {"d7", p.D7},
		{"vsync", p.VSYNC},
		{"href", p.HREF},
		{"pclk", p.PCLK},
		{"siod", p.SIOD},
		{"sioc", p.SIOC},
	}
}

func (p Pins) optional() []namedPin {
	return []namedPin{{"pwdn", p.PWDN}, {"reset", p.Reset}, {"led", p.LED}}
}

// Validate checks that every required line is assigned, optional lines are
// either assigned or NotConnected, and no GPIO is used twice.
func (p Pins) Validate() error {
	seen := make(map[int]string)
	check := func(np namedPin) error {
		if other, dup := seen[np.pin]; dup {
			return fmt.Errorf("pin %d assigned to both %s and %s", np.pin, other, np.name)
		}
		seen[np.pin] = np.name
		return nil
	}

	for _, np := range p.required() {
		if np.pin < 0 {
			return fmt.Errorf("%s pin must be >= 0, got %d", np.name, np.pin)
		}
		if err := check(np); err != nil {
			return err
		}
	}
	for _, np := range p.optional() {
		if np.pin == gpio.NotConnected {
			continue
		}
		if np.pin < 0 {
			return fmt.Errorf("%s pin must be >= 0 or %d (not connected), got %d", np.name, gpio.NotConnected, np.pin)
		}
		if err := check(np); err != nil {
			return err
		}
	}
	return nil
}
