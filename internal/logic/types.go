// Package logic contains the pure inspection logic for the bottle-cap monitor.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Alarm thresholds. These are build-time constants; there is no way to change
// them on a running device.
const (
	// MaxErrors is the number of faulty bottles inside one window that trips the alarm.
	MaxErrors = 3
	// ErrorWindow is the number of bottles, counted from the first fault, after
	// which an untripped window is closed and the counters start over.
	ErrorWindow = 20
)

// State is the inspection state machine's current state.
type State string

const (
	StateIdle       State = "IDLE_WATCHING"
	StateInspecting State = "BOTTLE_IN_INSPECTION"
	StateAlarm      State = "ALARM_TRIPPED"
)

// EventType names a diagnostic event emitted by the machine.
type EventType string

const (
	EventBottleDetected    EventType = "BOTTLE_DETECTED"
	EventCapDetected       EventType = "CAP_DETECTED"
	EventBottlePassed      EventType = "BOTTLE_PASSED"
	EventBottleFaulty      EventType = "BOTTLE_FAULTY"
	EventWindowClosed      EventType = "WINDOW_CLOSED"
	EventAlarmTripped      EventType = "ALARM_TRIPPED"
	EventInspectionAborted EventType = "INSPECTION_ABORTED"
	EventReset             EventType = "RESET"
)

// Event is something that happened during a step. Events are observational
// only; nothing in the control path consumes them.
type Event struct {
	Timestamp time.Time
	Type      EventType
	// State at the moment the event was produced.
	State State
	// Counter values at the time of the event.
	Faulty int
	Window int
}

// Input is one control cycle's view of the world.
type Input struct {
	Bottle bool // bottle at the inspection point
	Cap    bool // cap detected on that bottle
	Reset  bool // one-shot long-press pulse from the reset button
	Time   time.Time
}

// Indicators holds the desired level of each output line.
type Indicators struct {
	Bottle bool
	Cap    bool
	Alarm  bool
	Relay  bool
}

// ErrorCounter tracks faulty bottles inside the current window.
//
// Window is zero whenever Faulty is zero, and Faulty never exceeds Window
// while Faulty is positive.
type ErrorCounter struct {
	Faulty int
	Window int
}

// EventCounts tracks lifetime totals since startup. Resets do not clear them.
type EventCounts struct {
	Bottles       int
	Capped        int
	Faulty        int
	WindowsClosed int
	Alarms        int
	Aborted       int
	Resets        int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	State     State
	Counter   ErrorCounter
	Counts    EventCounts
}
