// Package gpio provides the line-level sensor inputs and indicator outputs
// with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Sample is one read of all inputs, already in logical form.
type Sample struct {
	Bottle bool // true = bottle at the inspection point
	Cap    bool // true = cap detected
	Button bool // true = reset button pressed
}

// Reader reads the sensor and button inputs.
type Reader interface {
	// Read returns the logical state of every input. Polarity is resolved
	// here: the cap sensor and the button are active-low on the wire.
	// Nothing is debounced or remembered between calls.
	Read() (Sample, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the four outputs. Each setter is idempotent.
type Writer interface {
	SetBottleIndicator(on bool) error
	SetCapIndicator(on bool) error
	SetAlarmIndicator(on bool) error
	SetAlarmRelay(on bool) error

	// Close drives every output off and releases GPIO resources.
	Close() error
}

// Pins maps each signal to a BCM line offset.
type Pins struct {
	Bottle    int
	Cap       int
	Button    int
	BottleLED int
	CapLED    int
	AlarmLED  int
	Relay     int
}

// DefaultChip is the GPIO character device on a Raspberry Pi.
const DefaultChip = "gpiochip0"

// DefaultPins is the reference wiring (BCM numbering).
var DefaultPins = Pins{
	Bottle:    17,
	Cap:       27,
	Button:    22,
	BottleLED: 5,
	CapLED:    6,
	AlarmLED:  13,
	Relay:     19,
}

func level(on bool) int {
	if on {
		return 1
	}
	return 0
}
