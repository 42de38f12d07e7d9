//go:build !linux

package gpio

import "errors"

// RealIO is not available on non-Linux platforms.
type RealIO struct{}

// NewRealIO returns an error on non-Linux platforms.
func NewRealIO(chipName string, pins Pins) (*RealIO, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (r *RealIO) Read() (Sample, error) {
	return Sample{}, errors.New("gpio: not supported")
}

func (r *RealIO) SetBottleIndicator(on bool) error { return errors.New("gpio: not supported") }
func (r *RealIO) SetCapIndicator(on bool) error    { return errors.New("gpio: not supported") }
func (r *RealIO) SetAlarmIndicator(on bool) error  { return errors.New("gpio: not supported") }
func (r *RealIO) SetAlarmRelay(on bool) error      { return errors.New("gpio: not supported") }

// Close is not implemented on non-Linux platforms.
func (r *RealIO) Close() error {
	return nil
}
