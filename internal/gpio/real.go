//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "capmonitor"

// RealIO drives actual hardware through the Linux GPIO character device.
// It implements both Reader and Writer.
type RealIO struct {
	chip *gpiocdev.Chip

	bottle *gpiocdev.Line
	cap    *gpiocdev.Line
	button *gpiocdev.Line

	bottleLED *gpiocdev.Line
	capLED    *gpiocdev.Line
	alarmLED  *gpiocdev.Line
	relay     *gpiocdev.Line
}

// NewRealIO requests every line on the named chip. Outputs start low.
func NewRealIO(chipName string, pins Pins) (*RealIO, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", chipName, err)
	}
	io := &RealIO{chip: chip}

	requests := []struct {
		name string
		pin  int
		dst  **gpiocdev.Line
		opts []gpiocdev.LineReqOption
	}{
		// Bottle sensor: active-high.
		{"bottle", pins.Bottle, &io.bottle, []gpiocdev.LineReqOption{gpiocdev.AsInput}},
		// Cap sensor: 0 on the wire means cap present.
		{"cap", pins.Cap, &io.cap, []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.AsActiveLow}},
		// Reset button: pulled up, 0 while pressed.
		{"button", pins.Button, &io.button, []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.AsActiveLow, gpiocdev.WithPullUp}},
		{"bottle LED", pins.BottleLED, &io.bottleLED, []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}},
		{"cap LED", pins.CapLED, &io.capLED, []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}},
		{"alarm LED", pins.AlarmLED, &io.alarmLED, []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}},
		{"relay", pins.Relay, &io.relay, []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}},
	}

	for _, r := range requests {
		line, err := chip.RequestLine(r.pin, r.opts...)
		if err != nil {
			io.Close()
			return nil, fmt.Errorf("request %s pin %d: %w", r.name, r.pin, err)
		}
		*r.dst = line
	}

	return io, nil
}

// Read returns the logical state of every input.
func (r *RealIO) Read() (Sample, error) {
	bottle, err := r.bottle.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read bottle pin: %w", err)
	}
	capv, err := r.cap.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read cap pin: %w", err)
	}
	button, err := r.button.Value()
	if err != nil {
		return Sample{}, fmt.Errorf("read button pin: %w", err)
	}

	return Sample{
		Bottle: bottle == 1,
		Cap:    capv == 1,
		Button: button == 1,
	}, nil
}

// SetBottleIndicator drives the bottle-present LED.
func (r *RealIO) SetBottleIndicator(on bool) error {
	return setLine(r.bottleLED, "bottle LED", on)
}

// SetCapIndicator drives the cap-present LED.
func (r *RealIO) SetCapIndicator(on bool) error {
	return setLine(r.capLED, "cap LED", on)
}

// SetAlarmIndicator drives the alarm LED.
func (r *RealIO) SetAlarmIndicator(on bool) error {
	return setLine(r.alarmLED, "alarm LED", on)
}

// SetAlarmRelay engages or releases the alarm relay.
func (r *RealIO) SetAlarmRelay(on bool) error {
	return setLine(r.relay, "relay", on)
}

func setLine(l *gpiocdev.Line, name string, on bool) error {
	if err := l.SetValue(level(on)); err != nil {
		return fmt.Errorf("set %s: %w", name, err)
	}
	return nil
}

// Close drives outputs low and releases all lines.
// Every line is reconfigured to input with pull-down (matching Pi boot
// defaults) before closing, so the relay cannot float on during reboot.
func (r *RealIO) Close() error {
	var errs []error

	for _, out := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"bottle LED", r.bottleLED},
		{"cap LED", r.capLED},
		{"alarm LED", r.alarmLED},
		{"relay", r.relay},
	} {
		if out.line == nil {
			continue
		}
		if err := out.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear %s: %w", out.name, err))
		}
	}

	for _, l := range []struct {
		name string
		line *gpiocdev.Line
	}{
		{"bottle", r.bottle},
		{"cap", r.cap},
		{"button", r.button},
		{"bottle LED", r.bottleLED},
		{"cap LED", r.capLED},
		{"alarm LED", r.alarmLED},
		{"relay", r.relay},
	} {
		if l.line == nil {
			continue
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure %s pin: %w", l.name, err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s pin: %w", l.name, err))
		}
	}

	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
