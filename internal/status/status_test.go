package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/sweeney/pulse-sensor/internal/driver"
	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

func testTracker() *Tracker {
	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return NewTracker(start, Config{
		PollMs:      50,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		I2CBusNo:    1,
	})
}

func TestTrackerUpdateAndSnapshot(t *testing.T) {
	tr := testTracker()

	tr.Update(
		pipeline.HeartRateReading{BPM: 68, Valid: true, Confidence: 75},
		true,
		driver.Stats{Samples: 1200, Beats: 80, NotReady: 3},
	)
	tr.SetMQTTConnected(true)

	snap := tr.Snapshot()
	if snap.Reading.BPM != 68 || !snap.Reading.Valid {
		t.Errorf("reading: %+v", snap.Reading)
	}
	if !snap.WarmedUp {
		t.Error("warmed-up flag lost")
	}
	if snap.Stats.Samples != 1200 || snap.Stats.Beats != 80 {
		t.Errorf("stats: %+v", snap.Stats)
	}
	if !snap.MQTTConnected {
		t.Error("mqtt flag lost")
	}
	if snap.Now.IsZero() {
		t.Error("snapshot should stamp Now")
	}
}

func TestFormatJSON(t *testing.T) {
	tr := testTracker()
	tr.Update(
		pipeline.HeartRateReading{BPM: 72, Valid: true, Confidence: 100},
		true,
		driver.Stats{Samples: 100, Beats: 7, BusErrors: 1},
	)

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.BPM != 72 || !sj.Status.Valid || sj.Status.Confidence != 100 {
		t.Errorf("reading fields: %+v", sj.Status)
	}
	if sj.Status.Counters.Beats != 7 || sj.Status.Counters.BusErrors != 1 {
		t.Errorf("counters: %+v", sj.Status.Counters)
	}
	if sj.Status.Event != "" {
		t.Errorf("web JSON should carry no event, got %q", sj.Status.Event)
	}
	if sj.Status.Config.PollMs != 50 {
		t.Errorf("config: %+v", sj.Status.Config)
	}
}

func TestFormatStatusEvent(t *testing.T) {
	tr := testTracker()

	var sj StatusJSON
	payload := FormatStatusEvent(tr.Snapshot(), "SHUTDOWN", "SIGTERM")
	if err := json.Unmarshal(payload, &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Event != "SHUTDOWN" || sj.Status.Reason != "SIGTERM" {
		t.Errorf("event fields: %+v", sj.Status)
	}
}

func TestSnapshotNetworkCopied(t *testing.T) {
	tr := testTracker()
	tr.SetNetwork(&NetworkInfo{Type: "wifi", IP: "192.168.1.50", Status: "connected", SSID: "attic"})

	var sj StatusJSON
	if err := json.Unmarshal(FormatJSON(tr.Snapshot()), &sj); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if sj.Status.Network == nil || sj.Status.Network.SSID != "attic" {
		t.Errorf("network: %+v", sj.Status.Network)
	}
}
