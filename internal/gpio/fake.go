package gpio

import "errors"

// FakeReader is a test double that returns scripted input samples.
type FakeReader struct {
	// Samples contains scripted values to return.
	// Each call to Read() consumes the next sample.
	Samples []Sample

	// index tracks current position in Samples
	index int

	// Reads counts calls to Read, including failed ones.
	Reads int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error
}

// NewFakeReader creates a FakeReader with the given samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeReader) Read() (Sample, error) {
	f.Reads++
	if f.ReadError != nil {
		return Sample{}, f.ReadError
	}

	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the reader to the beginning of samples.
func (f *FakeReader) Reset() {
	f.index = 0
	f.Reads = 0
	f.Closed = false
}

// Output names used in FakeWriter.Calls.
const (
	OutputBottle = "bottle"
	OutputCap    = "cap"
	OutputAlarm  = "alarm"
	OutputRelay  = "relay"
)

// Call records one setter invocation on a FakeWriter.
type Call struct {
	Output string
	On     bool
}

// FakeWriter is a test double that records output levels.
type FakeWriter struct {
	Bottle bool
	Cap    bool
	Alarm  bool
	Relay  bool

	// Calls lists every successful setter call in order.
	Calls []Call

	// Closed tracks if Close was called
	Closed bool

	// WriteError, if set, is returned by every setter and no level changes.
	WriteError error
}

// NewFakeWriter creates a FakeWriter with every output off.
func NewFakeWriter() *FakeWriter {
	return &FakeWriter{}
}

func (f *FakeWriter) set(dst *bool, output string, on bool) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	*dst = on
	f.Calls = append(f.Calls, Call{Output: output, On: on})
	return nil
}

// SetBottleIndicator records the bottle indicator level.
func (f *FakeWriter) SetBottleIndicator(on bool) error {
	return f.set(&f.Bottle, OutputBottle, on)
}

// SetCapIndicator records the cap indicator level.
func (f *FakeWriter) SetCapIndicator(on bool) error {
	return f.set(&f.Cap, OutputCap, on)
}

// SetAlarmIndicator records the alarm indicator level.
func (f *FakeWriter) SetAlarmIndicator(on bool) error {
	return f.set(&f.Alarm, OutputAlarm, on)
}

// SetAlarmRelay records the relay level.
func (f *FakeWriter) SetAlarmRelay(on bool) error {
	return f.set(&f.Relay, OutputRelay, on)
}

// Close drives every output off and marks the writer closed.
func (f *FakeWriter) Close() error {
	f.Bottle, f.Cap, f.Alarm, f.Relay = false, false, false, false
	f.Closed = true
	return nil
}
