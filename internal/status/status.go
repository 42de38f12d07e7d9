// Package status provides a thread-safe status tracker for the capmonitor daemon.
// It is written by the control loop and read by HTTP handlers and MQTT
// system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	BootID      string
	PollMs      int64
	LongPressMs int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	Diagnostics bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	State         logic.State
	Counter       logic.ErrorCounter
	Indicators    logic.Indicators
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	MQTTPending   int
	MQTTDropped   int
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Alarmed reports whether the alarm latch was set at snapshot time.
func (s Snapshot) Alarmed() bool {
	return s.State == logic.StateAlarm
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	now  func() time.Time
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
		now: time.Now,
	}
}

// Update copies the machine's observable state.
// Called from the control loop on every cycle.
func (t *Tracker) Update(state logic.State, counter logic.ErrorCounter, ind logic.Indicators, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state
	t.snap.Counter = counter
	t.snap.Indicators = ind
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTTBacklog records how many messages are waiting for the broker and
// how many have been dropped since startup.
func (t *Tracker) SetMQTTBacklog(pending, dropped int) {
	t.mu.Lock()
	t.snap.MQTTPending = pending
	t.snap.MQTTDropped = dropped
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = t.now()
	return s
}
