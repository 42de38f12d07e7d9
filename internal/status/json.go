package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string         `json:"event,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	BootID        string         `json:"boot_id"`
	State         string         `json:"state"`
	Alarm         bool           `json:"alarm"`
	Faulty        int            `json:"faulty"`
	Window        int            `json:"window"`
	Indicators    IndicatorsJSON `json:"indicators"`
	UptimeSeconds int64          `json:"uptime_seconds"`
	StartTime     string         `json:"start_time"`
	Timestamp     string         `json:"timestamp"`
	MQTT          MQTTStatus     `json:"mqtt"`
	Counts        CountsJSON     `json:"counts"`
	Network       *NetworkJSON   `json:"network,omitempty"`
	Config        ConfigJSON     `json:"config"`
}

// IndicatorsJSON reports the level of each output.
type IndicatorsJSON struct {
	Bottle bool `json:"bottle"`
	Cap    bool `json:"cap"`
	Alarm  bool `json:"alarm"`
	Relay  bool `json:"relay"`
}

// MQTTStatus reports MQTT connection state and the offline backlog.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Pending   int    `json:"pending"`
	Dropped   int    `json:"dropped"`
}

// CountsJSON is the JSON representation of lifetime counts.
type CountsJSON struct {
	Bottles       int `json:"bottles"`
	Capped        int `json:"capped"`
	Faulty        int `json:"faulty"`
	WindowsClosed int `json:"windows_closed"`
	Alarms        int `json:"alarms"`
	Aborted       int `json:"aborted"`
	Resets        int `json:"resets"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	MaxErrors   int    `json:"max_errors"`
	ErrorWindow int    `json:"error_window"`
	PollMs      int64  `json:"poll_ms"`
	LongPressMs int64  `json:"long_press_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	Diagnostics bool   `json:"diagnostics"`
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.State)
	if state == "" {
		state = "UNKNOWN"
	}

	inner := StatusInner{
		BootID: snap.Config.BootID,
		State:  state,
		Alarm:  snap.Alarmed(),
		Faulty: snap.Counter.Faulty,
		Window: snap.Counter.Window,
		Indicators: IndicatorsJSON{
			Bottle: snap.Indicators.Bottle,
			Cap:    snap.Indicators.Cap,
			Alarm:  snap.Indicators.Alarm,
			Relay:  snap.Indicators.Relay,
		},
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Pending:   snap.MQTTPending,
			Dropped:   snap.MQTTDropped,
		},
		Counts: CountsJSON{
			Bottles:       snap.Counts.Bottles,
			Capped:        snap.Counts.Capped,
			Faulty:        snap.Counts.Faulty,
			WindowsClosed: snap.Counts.WindowsClosed,
			Alarms:        snap.Counts.Alarms,
			Aborted:       snap.Counts.Aborted,
			Resets:        snap.Counts.Resets,
		},
		Config: ConfigJSON{
			MaxErrors:   logic.MaxErrors,
			ErrorWindow: logic.ErrorWindow,
			PollMs:      snap.Config.PollMs,
			LongPressMs: snap.Config.LongPressMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			Diagnostics: snap.Config.Diagnostics,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
