package driver

import (
	"errors"
	"math"
	"testing"

	"github.com/sweeney/pulse-sensor/internal/bus"
	"github.com/sweeney/pulse-sensor/internal/hrs3300"
	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

// testConfig runs the pipeline at one tick per sample, 100 Hz.
func testDriverConfig() Config {
	return Config{
		Pipeline: pipeline.Config{
			TickRate:            100,
			SampleIntervalTicks: 1,
			BaselineShift:       5,
			LowpassWindow:       4,
			WarmupSamples:       48,
			NoiseThresholdPct:   125,
			MinRefractoryTicks:  25,
			MaxRefractoryTicks:  200,
			OutlierPct:          30,
			SmoothingWindow:     6,
		},
		ReadyTimeoutTicks: 100,
	}
}

// sineBus scripts a fake bus with a PPG-like sinusoid.
func sineBus(n int, period int) *bus.FakeBus {
	fake := bus.NewFakeBus()
	fake.Registers[hrs3300.RegID] = hrs3300.DeviceID
	fake.BlockStart = hrs3300.RegC1DataM
	for i := 0; i < n; i++ {
		v := 5000 + 500*math.Sin(2*math.Pi*float64(i)/float64(period))
		fake.Blocks = append(fake.Blocks, hrs3300.EncodeSampleBlock(uint32(v), 3000))
	}
	return fake
}

// manualClock is advanced explicitly by the test loop.
type manualClock struct {
	tick uint32
}

func (c *manualClock) now() uint32 { return c.tick }

func TestPollDrivesPipelineTo100BPM(t *testing.T) {
	fake := sineBus(600, 60)
	clock := &manualClock{}
	d := New(fake, testDriverConfig(), clock.now)

	if err := d.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}

	var reading pipeline.HeartRateReading
	for i := 0; i < 600; i++ {
		clock.tick = uint32(i + 1)
		r, err := d.Poll()
		if err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
		reading = r
		if d.Stats().Beats >= 5 {
			break
		}
	}

	if d.Stats().Beats < 5 {
		t.Fatalf("only %d beats detected", d.Stats().Beats)
	}
	if reading.BPM < 98 || reading.BPM > 102 {
		t.Errorf("bpm: got %d, want 100 +- 2", reading.BPM)
	}
	if !reading.Valid {
		t.Error("reading should be valid by the 5th beat")
	}
	if d.Stats().Samples == 0 {
		t.Error("sample counter should advance")
	}
}

func TestPollTimeoutWhenNeverReady(t *testing.T) {
	fake := bus.NewFakeBus()
	fake.Registers[hrs3300.RegID] = hrs3300.DeviceID
	fake.BlockStart = hrs3300.RegC1DataM
	// A zero HRS count never asserts the ready condition.
	fake.Blocks = [][]byte{hrs3300.EncodeSampleBlock(0, 3000)}

	// Auto-advancing clock: every look at the clock costs a tick, so the
	// bounded wait must terminate.
	var tick uint32
	d := New(fake, testDriverConfig(), func() uint32 {
		tick++
		return tick
	})

	_, err := d.Poll()
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if d.Stats().Timeouts != 1 || d.Stats().NotReady != 1 {
		t.Errorf("stats: %+v", d.Stats())
	}
	if tick > 300 {
		t.Errorf("wait was not bounded: %d clock reads", tick)
	}
}

func TestPollPropagatesBusError(t *testing.T) {
	fake := bus.NewFakeBus()
	fake.BlockErr = errors.New("nack")
	clock := &manualClock{tick: 1}
	d := New(fake, testDriverConfig(), clock.now)

	_, err := d.Poll()
	var be *bus.Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *bus.Error, got %v", err)
	}
	if d.Stats().BusErrors != 1 {
		t.Errorf("bus error counter: %+v", d.Stats())
	}
}

func TestPollErrorKeepsLastReading(t *testing.T) {
	fake := sineBus(600, 60)
	clock := &manualClock{}
	d := New(fake, testDriverConfig(), clock.now)

	for i := 0; i < 500; i++ {
		clock.tick = uint32(i + 1)
		if _, err := d.Poll(); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	before := d.LastReading()
	if before.BPM == 0 {
		t.Fatal("expected a reading before the fault")
	}

	fake.BlockErr = errors.New("bus stuck")
	clock.tick++
	got, err := d.Poll()
	if err == nil {
		t.Fatal("expected an error")
	}
	if got != before {
		t.Errorf("reading changed on error: %+v -> %+v", before, got)
	}
}

// TestReplayDeterminism replays an identical sample sequence from a fresh
// driver; the reading sequence must be bit-identical.
func TestReplayDeterminism(t *testing.T) {
	run := func() []pipeline.HeartRateReading {
		fake := sineBus(400, 66)
		clock := &manualClock{}
		d := New(fake, testDriverConfig(), clock.now)
		out := make([]pipeline.HeartRateReading, 400)
		for i := range out {
			clock.tick = uint32(i + 1)
			r, err := d.Poll()
			if err != nil {
				t.Fatalf("poll %d: %v", i, err)
			}
			out[i] = r
		}
		return out
	}

	first := run()
	second := run()
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("reading %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestResetClearsReading(t *testing.T) {
	fake := sineBus(600, 60)
	clock := &manualClock{}
	d := New(fake, testDriverConfig(), clock.now)

	for i := 0; i < 500; i++ {
		clock.tick = uint32(i + 1)
		if _, err := d.Poll(); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if d.LastReading().BPM == 0 {
		t.Fatal("expected a reading before reset")
	}

	d.Reset()
	if d.LastReading() != (pipeline.HeartRateReading{}) {
		t.Errorf("reset should clear the reading, got %+v", d.LastReading())
	}
	if d.WarmedUp() {
		t.Error("reset should restart warm-up")
	}
}
