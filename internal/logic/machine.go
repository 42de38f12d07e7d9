package logic

import "time"

// Machine is the bottle inspection state machine. It owns the error counter,
// the current inspection session and the alarm latch. It is not safe for
// concurrent use; the control loop is its only caller.
type Machine struct {
	state      State
	counter    ErrorCounter
	capSeen    bool
	indicators Indicators
	// waitClear holds off a new session until the inspection point has
	// read empty once after an aborted inspection.
	waitClear bool

	counts        EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewMachine creates a machine in IDLE_WATCHING with cleared counters.
// The startTime is used for calculating uptime in heartbeat data.
func NewMachine(startTime time.Time) *Machine {
	return &Machine{
		state:         StateIdle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Step advances the machine by one control cycle and returns the events
// produced. A reset pulse in the input is consumed by this call.
func (m *Machine) Step(in Input) []Event {
	switch m.state {
	case StateInspecting:
		return m.stepInspecting(in)
	case StateAlarm:
		return m.stepAlarm(in)
	default:
		return m.stepIdle(in)
	}
}

func (m *Machine) stepIdle(in Input) []Event {
	if in.Reset {
		return m.reset(in.Time, nil)
	}
	if !in.Bottle {
		m.waitClear = false
		return nil
	}
	if m.waitClear {
		// Still the aborted bottle.
		return nil
	}

	m.state = StateInspecting
	m.capSeen = false
	m.indicators.Bottle = true
	events := []Event{m.event(in.Time, EventBottleDetected)}

	// The entering sample already counts as the first inspection reading.
	return m.observeCap(in, events)
}

func (m *Machine) stepInspecting(in Input) []Event {
	if in.Reset {
		// The bottle under inspection is discarded, not scored.
		m.counts.Aborted++
		events := []Event{m.event(in.Time, EventInspectionAborted)}
		events = m.reset(in.Time, events)
		m.waitClear = true
		return events
	}
	if !in.Bottle {
		return m.finishInspection(in.Time)
	}
	return m.observeCap(in, nil)
}

func (m *Machine) stepAlarm(in Input) []Event {
	if in.Reset {
		return m.reset(in.Time, nil)
	}
	return nil
}

// observeCap latches capSeen the first time a cap is reported for the
// current bottle.
func (m *Machine) observeCap(in Input, events []Event) []Event {
	if !in.Cap || m.capSeen {
		return events
	}
	m.capSeen = true
	m.indicators.Cap = true
	return append(events, m.event(in.Time, EventCapDetected))
}

// finishInspection scores the bottle that just left the inspection point.
func (m *Machine) finishInspection(now time.Time) []Event {
	m.indicators.Bottle = false
	m.indicators.Cap = false

	faulty := !m.capSeen
	m.capSeen = false
	m.counter.record(faulty)

	m.counts.Bottles++
	var events []Event
	if faulty {
		m.counts.Faulty++
		events = append(events, m.event(now, EventBottleFaulty))
	} else {
		m.counts.Capped++
		events = append(events, m.event(now, EventBottlePassed))
	}

	// Window close is checked before the alarm, so a fault landing on the
	// last bottle of the window clears the counters instead of tripping.
	if m.counter.windowFull() {
		m.counter = ErrorCounter{}
		m.counts.WindowsClosed++
		events = append(events, m.event(now, EventWindowClosed))
	}

	if m.counter.tripped() {
		m.state = StateAlarm
		m.indicators.Alarm = true
		m.indicators.Relay = true
		m.counts.Alarms++
		return append(events, m.event(now, EventAlarmTripped))
	}

	m.state = StateIdle
	return events
}

// reset reinitialises counters, session and outputs and returns to idle.
func (m *Machine) reset(now time.Time, events []Event) []Event {
	m.state = StateIdle
	m.counter = ErrorCounter{}
	m.capSeen = false
	m.indicators = Indicators{}
	m.counts.Resets++
	return append(events, m.event(now, EventReset))
}

func (m *Machine) event(now time.Time, t EventType) Event {
	return Event{
		Timestamp: now,
		Type:      t,
		State:     m.state,
		Faulty:    m.counter.Faulty,
		Window:    m.counter.Window,
	}
}

// record adds one scored bottle to the counter. The window only counts while
// at least one fault has been seen.
func (c *ErrorCounter) record(faulty bool) {
	if faulty {
		c.Faulty++
	}
	if c.Faulty > 0 {
		c.Window++
	}
}

func (c ErrorCounter) windowFull() bool {
	return c.Window >= ErrorWindow
}

func (c ErrorCounter) tripped() bool {
	return c.Faulty >= MaxErrors
}

// State returns the current state.
func (m *Machine) State() State {
	return m.state
}

// Counter returns the current error counter.
func (m *Machine) Counter() ErrorCounter {
	return m.counter
}

// Indicators returns the desired output levels after the last step.
func (m *Machine) Indicators() Indicators {
	return m.indicators
}

// CapSeen reports whether a cap has been latched for the bottle currently
// under inspection. It is always false outside BOTTLE_IN_INSPECTION.
func (m *Machine) CapSeen() bool {
	return m.capSeen
}

// WaitingForClear reports whether the machine is ignoring a bottle left at
// the inspection point by an aborted inspection.
func (m *Machine) WaitingForClear() bool {
	return m.waitClear
}

// Alarmed reports whether the alarm latch is set.
func (m *Machine) Alarmed() bool {
	return m.state == StateAlarm
}

// EventCountsSnapshot returns a copy of the lifetime counts.
func (m *Machine) EventCountsSnapshot() EventCounts {
	return m.counts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (m *Machine) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(m.lastHeartbeat) < interval {
		return nil
	}

	m.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(m.startTime),
		State:     m.state,
		Counter:   m.counter,
		Counts:    m.counts,
	}
}
