package status

import (
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
)

var testStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newFixedTracker(cfg Config, now time.Time) *Tracker {
	tr := NewTracker(testStart, cfg)
	tr.now = func() time.Time { return now }
	return tr
}

func TestNewTracker(t *testing.T) {
	cfg := Config{BootID: "b-1", PollMs: 5, LongPressMs: 1000, HTTPAddr: ":8080"}
	tr := NewTracker(testStart, cfg)

	snap := tr.Snapshot()
	if !snap.StartTime.Equal(testStart) {
		t.Errorf("StartTime: got %v, want %v", snap.StartTime, testStart)
	}
	if snap.Config != cfg {
		t.Errorf("Config: got %+v, want %+v", snap.Config, cfg)
	}
	if snap.State != "" {
		t.Errorf("State: got %q, want empty before first update", snap.State)
	}
	if snap.MQTTConnected {
		t.Error("expected MQTTConnected=false initially")
	}
}

func TestUpdateAndSnapshot(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	tr.Update(logic.StateAlarm,
		logic.ErrorCounter{Faulty: 3, Window: 5},
		logic.Indicators{Alarm: true, Relay: true},
		logic.EventCounts{Bottles: 7, Capped: 4, Faulty: 3, Alarms: 1})

	snap := tr.Snapshot()
	if snap.State != logic.StateAlarm || !snap.Alarmed() {
		t.Errorf("State: got %q, want ALARM_TRIPPED", snap.State)
	}
	if snap.Counter.Faulty != 3 || snap.Counter.Window != 5 {
		t.Errorf("Counter: got %+v", snap.Counter)
	}
	if !snap.Indicators.Relay || snap.Indicators.Bottle {
		t.Errorf("Indicators: got %+v", snap.Indicators)
	}
	if snap.Counts.Bottles != 7 || snap.Counts.Alarms != 1 {
		t.Errorf("Counts: got %+v", snap.Counts)
	}
}

func TestSetters(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	tr.SetMQTTConnected(true)
	tr.SetNetwork(&NetworkInfo{Type: "ethernet", IP: "10.0.0.9", Status: "connected"})

	snap := tr.Snapshot()
	if !snap.MQTTConnected {
		t.Error("expected MQTTConnected=true")
	}
	if snap.Network == nil || snap.Network.IP != "10.0.0.9" {
		t.Errorf("Network: got %+v", snap.Network)
	}

	tr.SetMQTTConnected(false)
	if tr.Snapshot().MQTTConnected {
		t.Error("expected MQTTConnected=false")
	}

	tr.SetMQTTBacklog(3, 7)
	if snap := tr.Snapshot(); snap.MQTTPending != 3 || snap.MQTTDropped != 7 {
		t.Errorf("backlog: got (%d, %d), want (3, 7)", snap.MQTTPending, snap.MQTTDropped)
	}
}

func TestSnapshotUptime(t *testing.T) {
	tr := newFixedTracker(Config{}, testStart.Add(90*time.Minute))
	if got := tr.Snapshot().Uptime(); got != 90*time.Minute {
		t.Errorf("Uptime: got %v, want 90m", got)
	}
}

func TestSnapshotIsCopy(t *testing.T) {
	tr := NewTracker(testStart, Config{})
	tr.Update(logic.StateIdle, logic.ErrorCounter{}, logic.Indicators{}, logic.EventCounts{Bottles: 1})

	snap := tr.Snapshot()
	tr.Update(logic.StateAlarm, logic.ErrorCounter{Faulty: 3, Window: 3}, logic.Indicators{Alarm: true}, logic.EventCounts{Bottles: 9})

	if snap.State != logic.StateIdle || snap.Counts.Bottles != 1 {
		t.Error("snapshot changed after later update")
	}
}

func TestFormatJSON(t *testing.T) {
	cfg := Config{
		BootID:      "0b7d1c2e",
		PollMs:      5,
		LongPressMs: 1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://10.0.0.5:1883",
		HTTPAddr:    ":8080",
		Diagnostics: true,
	}
	tr := newFixedTracker(cfg, testStart.Add(61*time.Second))
	tr.Update(logic.StateInspecting,
		logic.ErrorCounter{Faulty: 1, Window: 2},
		logic.Indicators{Bottle: true, Cap: true},
		logic.EventCounts{Bottles: 12, Capped: 11, Faulty: 1})
	tr.SetMQTTConnected(true)
	tr.SetMQTTBacklog(2, 41)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	s := sj.Status

	if s.Event != "" || s.Reason != "" {
		t.Errorf("web JSON should not carry event/reason, got %q/%q", s.Event, s.Reason)
	}
	if s.BootID != "0b7d1c2e" {
		t.Errorf("BootID: got %q", s.BootID)
	}
	if s.State != "BOTTLE_IN_INSPECTION" || s.Alarm {
		t.Errorf("State: got %q alarm=%v", s.State, s.Alarm)
	}
	if s.Faulty != 1 || s.Window != 2 {
		t.Errorf("counter: got (%d, %d)", s.Faulty, s.Window)
	}
	if !s.Indicators.Bottle || !s.Indicators.Cap || s.Indicators.Relay {
		t.Errorf("Indicators: got %+v", s.Indicators)
	}
	if s.UptimeSeconds != 61 {
		t.Errorf("UptimeSeconds: got %d, want 61", s.UptimeSeconds)
	}
	if s.StartTime != "2026-01-01T00:00:00Z" || s.Timestamp != "2026-01-01T00:01:01Z" {
		t.Errorf("times: got %s / %s", s.StartTime, s.Timestamp)
	}
	if !s.MQTT.Connected || s.MQTT.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("MQTT: got %+v", s.MQTT)
	}
	if s.MQTT.Pending != 2 || s.MQTT.Dropped != 41 {
		t.Errorf("MQTT backlog: got pending=%d dropped=%d", s.MQTT.Pending, s.MQTT.Dropped)
	}
	if s.Counts.Bottles != 12 || s.Counts.Capped != 11 {
		t.Errorf("Counts: got %+v", s.Counts)
	}
	if s.Config.MaxErrors != logic.MaxErrors || s.Config.ErrorWindow != logic.ErrorWindow {
		t.Errorf("thresholds: got %d/%d", s.Config.MaxErrors, s.Config.ErrorWindow)
	}
	if s.Config.LongPressMs != 1000 || !s.Config.Diagnostics {
		t.Errorf("Config: got %+v", s.Config)
	}
	if s.Network != nil {
		t.Error("Network should be omitted when unknown")
	}
}

func TestFormatJSONUnknownState(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	var sj StatusJSON
	json.Unmarshal(FormatJSON(tr.Snapshot()), &sj)
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first update: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestFormatJSONWithNetwork(t *testing.T) {
	tr := NewTracker(testStart, Config{})
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.42", Status: "connected", SSID: "Plant"})

	var sj StatusJSON
	json.Unmarshal(FormatJSON(tr.Snapshot()), &sj)
	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.SSID != "Plant" || sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network: got %+v", sj.Status.Network)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := newFixedTracker(Config{BootID: "b-2"}, testStart)
	tr.Update(logic.StateAlarm, logic.ErrorCounter{Faulty: 3, Window: 5}, logic.Indicators{Alarm: true, Relay: true}, logic.EventCounts{})

	data := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if strings.Contains(string(data), "\n") {
		t.Error("MQTT payload should be compact")
	}

	var sj StatusJSON
	if err := json.Unmarshal(data, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event/reason: got %q/%q", sj.Status.Event, sj.Status.Reason)
	}
	if !sj.Status.Alarm || !sj.Status.Indicators.Relay {
		t.Error("alarm state should be reported")
	}
	if sj.Status.BootID != "b-2" {
		t.Errorf("BootID: got %q", sj.Status.BootID)
	}
}

func TestFormatStatusEventOmitsReasonWhenEmpty(t *testing.T) {
	tr := NewTracker(testStart, Config{})
	data := FormatStatusEvent(tr.Snapshot(), "STARTUP", "")
	if strings.Contains(string(data), `"reason"`) {
		t.Errorf("reason should be omitted: %s", data)
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker(testStart, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				tr.Update(logic.StateIdle, logic.ErrorCounter{}, logic.Indicators{}, logic.EventCounts{Bottles: n*1000 + j})
				tr.SetMQTTConnected(j%2 == 0)
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				FormatJSON(tr.Snapshot())
			}
		}()
	}
	wg.Wait()
}
