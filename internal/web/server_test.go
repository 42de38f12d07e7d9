package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sweeney/bottle-cap-monitor/internal/logic"
	"github.com/sweeney/bottle-cap-monitor/internal/status"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		BootID:      "test-boot",
		PollMs:      5,
		LongPressMs: 1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://10.0.0.5:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateAlarm,
		logic.ErrorCounter{Faulty: 3, Window: 5},
		logic.Indicators{Alarm: true, Relay: true},
		logic.EventCounts{Bottles: 7, Capped: 4, Faulty: 3, Alarms: 1})
	tr.SetMQTTConnected(true)
	tr.SetMQTTBacklog(0, 5)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	s := sj.Status
	if s.State != "ALARM_TRIPPED" || !s.Alarm {
		t.Errorf("State: got %q alarm=%v", s.State, s.Alarm)
	}
	if s.Faulty != 3 || s.Window != 5 {
		t.Errorf("counter: got (%d, %d), want (3, 5)", s.Faulty, s.Window)
	}
	if !s.Indicators.Relay {
		t.Error("expected relay ON")
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.MQTT.Dropped != 5 {
		t.Errorf("MQTT.Dropped: got %d, want 5", s.MQTT.Dropped)
	}
	if s.Counts.Bottles != 7 {
		t.Errorf("Counts.Bottles: got %d, want 7", s.Counts.Bottles)
	}
	if s.BootID != "test-boot" {
		t.Errorf("BootID: got %q", s.BootID)
	}
}

func TestJSONUnknownStateBeforeFirstCycle(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.State != "UNKNOWN" {
		t.Errorf("State before first cycle: got %q, want UNKNOWN", sj.Status.State)
	}
}

func TestHTMLEndpoints(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.Update(logic.StateAlarm, logic.ErrorCounter{Faulty: 3, Window: 5}, logic.Indicators{Alarm: true, Relay: true}, logic.EventCounts{})

	for _, path := range []string{"/", "/index.html"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + path)
			if err != nil {
				t.Fatalf("GET %s: %v", path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != 200 {
				t.Errorf("status: got %d, want 200", resp.StatusCode)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type: got %q, want text/html", ct)
			}

			body, _ := io.ReadAll(resp.Body)
			page := string(body)
			if !strings.Contains(page, "ALARM_TRIPPED") {
				t.Error("page should show the alarm state")
			}
			if !strings.Contains(page, "3 / 3") {
				t.Error("page should show faults against MaxErrors")
			}
			if !strings.Contains(page, "5 / 20") {
				t.Error("page should show window against ErrorWindow")
			}
		})
	}
}

func TestHTMLShowsMQTTBacklog(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetMQTTBacklog(4, 12)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "4 pending, 12 dropped") {
		t.Error("page should show the MQTT backlog")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestNoWriteEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/index.json", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == 200 {
		t.Error("status page must not accept writes")
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	tr.Update(logic.StateInspecting, logic.ErrorCounter{}, logic.Indicators{Bottle: true}, logic.EventCounts{})
	if sj := getJSON(t, ts.URL+"/index.json"); !sj.Status.Indicators.Bottle {
		t.Error("expected bottle indicator ON")
	}

	tr.Update(logic.StateIdle, logic.ErrorCounter{Faulty: 1, Window: 1}, logic.Indicators{}, logic.EventCounts{Bottles: 1, Faulty: 1})
	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Indicators.Bottle {
		t.Error("expected bottle indicator OFF")
	}
	if sj.Status.Faulty != 1 || sj.Status.Counts.Faulty != 1 {
		t.Errorf("faults not reflected: %+v", sj.Status)
	}
}

func TestUptimeFormatting(t *testing.T) {
	fn := indexTmpl.Lookup("index")
	if fn == nil {
		t.Fatal("index template missing")
	}
	var b strings.Builder
	snap := status.Snapshot{
		StartTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Now:       time.Date(2026, 1, 2, 1, 2, 3, 0, time.UTC),
	}
	if err := renderHTML(&b, snap); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(b.String(), "1d 1h 2m 3s") {
		t.Error("uptime not formatted as days/hours/minutes/seconds")
	}
	if !strings.Contains(b.String(), "UNKNOWN") {
		t.Error("empty state should render as UNKNOWN")
	}
}
