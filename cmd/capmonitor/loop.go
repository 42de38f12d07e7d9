package main

import (
	"os"
	"syscall"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/button"
	"github.com/sweeney/bottle-cap-monitor/internal/gpio"
	"github.com/sweeney/bottle-cap-monitor/internal/logger"
	"github.com/sweeney/bottle-cap-monitor/internal/logic"
	"github.com/sweeney/bottle-cap-monitor/internal/mqtt"
	"github.com/sweeney/bottle-cap-monitor/internal/status"
)

// controller runs one flat control cycle per tick: read, reset control,
// state machine, outputs, diagnostics.
type controller struct {
	reader    gpio.Reader
	writer    gpio.Writer
	publisher mqtt.Publisher
	tracker   *status.Tracker
	log       *logger.Logger
	diag      *logger.Logger
	heartbeat time.Duration
	now       func() time.Time

	machine *logic.Machine
	button  *button.LongPress
	// applied is the last level successfully written to each output.
	applied logic.Indicators
}

func newController(reader gpio.Reader, writer gpio.Writer, publisher mqtt.Publisher, tracker *status.Tracker, log, diag *logger.Logger, heartbeat time.Duration, now func() time.Time) *controller {
	return &controller{
		reader:    reader,
		writer:    writer,
		publisher: publisher,
		tracker:   tracker,
		log:       log,
		diag:      diag,
		heartbeat: heartbeat,
		now:       now,
		machine:   logic.NewMachine(now()),
		button:    button.NewLongPress(button.DefaultDebounce, button.LongPressDuration),
	}
}

func (c *controller) run(tick <-chan time.Time, sig <-chan os.Signal) error {
	for {
		select {
		case s := <-sig:
			c.shutdown(s)
			return nil
		case <-tick:
			c.cycle()
		}
	}
}

func (c *controller) cycle() {
	t := c.now()
	sample, err := c.reader.Read()
	if err != nil {
		c.log.Warnw("gpio read error", "err", err)
		return
	}

	// The button is polled in every state so a long press is never missed.
	reset := c.button.Poll(sample.Button, t)

	events := c.machine.Step(logic.Input{
		Bottle: sample.Bottle,
		Cap:    sample.Cap,
		Reset:  reset,
		Time:   t,
	})

	c.applyIndicators(c.machine.Indicators())

	for _, e := range events {
		c.logEvent(e)
		if err := c.publisher.Publish(e); err != nil {
			c.log.Warnw("publish error", "event", e.Type, "err", err)
		}
	}

	if hb := c.machine.CheckHeartbeat(t, c.heartbeat); hb != nil {
		c.log.Infow("heartbeat",
			"uptime", hb.Uptime,
			"state", hb.State,
			"faulty", hb.Counter.Faulty,
			"window", hb.Counter.Window,
			"bottles", hb.Counts.Bottles,
			"faulty_total", hb.Counts.Faulty,
			"alarms", hb.Counts.Alarms,
		)
		if net := readNetworkInfo(); net != nil {
			c.tracker.SetNetwork(net)
		}
		c.updateTracker()
		snap := c.tracker.Snapshot()
		hbEvent := mqtt.SystemEvent{
			Timestamp:  hb.Timestamp,
			Event:      "HEARTBEAT",
			RawPayload: status.FormatStatusEvent(snap, "HEARTBEAT", ""),
		}
		if err := c.publisher.PublishSystem(hbEvent); err != nil {
			c.log.Warnw("heartbeat publish error", "err", err)
		}
	}

	c.updateTracker()
}

// applyIndicators writes the outputs whose desired level differs from the
// last level written. A failed write leaves applied untouched, so it is
// retried on the next cycle.
func (c *controller) applyIndicators(want logic.Indicators) {
	outputs := []struct {
		name    string
		applied *bool
		want    bool
		set     func(bool) error
	}{
		{"bottle", &c.applied.Bottle, want.Bottle, c.writer.SetBottleIndicator},
		{"cap", &c.applied.Cap, want.Cap, c.writer.SetCapIndicator},
		{"alarm", &c.applied.Alarm, want.Alarm, c.writer.SetAlarmIndicator},
		{"relay", &c.applied.Relay, want.Relay, c.writer.SetAlarmRelay},
	}
	for _, o := range outputs {
		if *o.applied == o.want {
			continue
		}
		if err := o.set(o.want); err != nil {
			c.log.Warnw("output write error", "output", o.name, "on", o.want, "err", err)
			continue
		}
		*o.applied = o.want
	}
}

func (c *controller) logEvent(e logic.Event) {
	switch e.Type {
	case logic.EventBottleDetected:
		c.diag.Infow("Bottle detected")
	case logic.EventCapDetected:
		c.diag.Infow("Cap detected")
	case logic.EventBottlePassed:
		c.diag.Infow("Bottle capped", "faulty", e.Faulty, "window", e.Window)
	case logic.EventBottleFaulty:
		c.diag.Infow("Bottle without cap", "faulty", e.Faulty, "window", e.Window)
	case logic.EventWindowClosed:
		c.diag.Infow("Error window closed, counters cleared")
	case logic.EventAlarmTripped:
		c.diag.Warnw("Maximum number of faulty bottles reached. ALARM!", "faulty", e.Faulty, "window", e.Window)
		c.log.Warnw("alarm tripped", "faulty", e.Faulty, "window", e.Window)
	case logic.EventInspectionAborted:
		c.diag.Infow("Inspection aborted by reset")
	case logic.EventReset:
		c.diag.Infow("Reset, counters and outputs cleared")
		c.log.Infow("reset by long press")
	}
}

func (c *controller) updateTracker() {
	c.tracker.Update(c.machine.State(), c.machine.Counter(), c.applied, c.machine.EventCountsSnapshot())
	if cs, ok := c.publisher.(mqtt.ConnectionStatus); ok {
		c.tracker.SetMQTTConnected(cs.IsConnected())
	}
	if bs, ok := c.publisher.(mqtt.BacklogStatus); ok {
		c.tracker.SetMQTTBacklog(bs.Backlog())
	}
}

func (c *controller) shutdown(s os.Signal) {
	c.log.Infow("shutting down", "signal", s)
	reason := "UNKNOWN"
	switch s {
	case syscall.SIGINT:
		reason = "SIGINT"
	case syscall.SIGTERM:
		reason = "SIGTERM"
	}

	c.updateTracker()
	snap := c.tracker.Snapshot()
	event := mqtt.SystemEvent{
		Timestamp:  c.now(),
		Event:      "SHUTDOWN",
		Reason:     reason,
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "SHUTDOWN", reason),
	}
	if err := c.publisher.PublishSystem(event); err != nil {
		c.log.Warnw("failed to publish shutdown event", "err", err)
	}
}
