// Package driver exposes the public surface of the heart-rate sensor: an
// explicitly owned, explicitly initialized driver object with an
// init/poll/reset lifecycle. Each Poll drives one full pipeline cycle
// (acquire, condition, detect, estimate) synchronously; there is no
// background task and no shared state, so the driver is single-context by
// contract and needs no locks.
package driver

import (
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/pulse-sensor/internal/bus"
	"github.com/sweeney/pulse-sensor/internal/hrs3300"
	"github.com/sweeney/pulse-sensor/internal/pipeline"
)

// ErrTimeout reports that the sensor's data-ready condition did not assert
// within the configured budget. The caller decides whether to retry;
// repeated bus errors or timeouts usually mean the sensor is disconnected
// and the driver should be Reset before re-initialization.
var ErrTimeout = errors.New("driver: data-ready timeout")

// Clock returns the current monotonic tick count. Injectable for tests.
type Clock func() uint32

// Config tunes the driver and its pipeline.
type Config struct {
	// Pipeline holds the signal-chain tuning constants.
	Pipeline pipeline.Config

	// ReadyTimeoutTicks bounds the busy-wait for the sensor's data-ready
	// condition inside Poll.
	ReadyTimeoutTicks uint32
}

// DefaultConfig returns the driver defaults for the PineTime cadence.
func DefaultConfig() Config {
	return Config{
		Pipeline:          pipeline.DefaultConfig(),
		ReadyTimeoutTicks: 500,
	}
}

// Stats counts pipeline activity since the driver was created.
type Stats struct {
	Samples   int // raw samples processed
	Beats     int // accepted pulse events
	NotReady  int // polls that had to wait for data-ready
	Timeouts  int // polls that gave up waiting
	BusErrors int // transport failures surfaced
}

// Driver owns one sensor instance and its pipeline state.
type Driver struct {
	sensor *hrs3300.Sensor
	pipe   *pipeline.Pipeline
	cfg    Config
	now    Clock

	last  pipeline.HeartRateReading
	stats Stats
}

// New creates a driver on the given bus. A nil clock gets a millisecond
// tick derived from the monotonic wall clock.
func New(b bus.Bus, cfg Config, now Clock) *Driver {
	if now == nil {
		start := time.Now()
		now = func() uint32 {
			return uint32(time.Since(start).Milliseconds())
		}
	}
	return &Driver{
		sensor: hrs3300.New(b),
		pipe:   pipeline.NewPipeline(cfg.Pipeline),
		cfg:    cfg,
		now:    now,
	}
}

// Init powers up and configures the sensor.
func (d *Driver) Init() error {
	if err := d.sensor.Init(); err != nil {
		return fmt.Errorf("init sensor: %w", err)
	}
	return nil
}

// Poll acquires one raw sample and runs it through the pipeline, returning
// the refreshed reading. It waits for the sensor's data-ready condition up
// to ReadyTimeoutTicks, then fails with ErrTimeout rather than hanging.
// Transport failures propagate as *bus.Error; both leave the previous
// reading in place.
func (d *Driver) Poll() (pipeline.HeartRateReading, error) {
	start := d.now()
	waited := false

	for {
		sample, err := d.sensor.ReadSample()
		if err == nil {
			tick := d.now()
			d.stats.Samples++
			d.last = d.pipe.Process(pipeline.RawSample{
				Counts: sample.HRS,
				ALS:    sample.ALS,
				Tick:   tick,
			})
			d.stats.Beats = d.pipe.Beats()
			return d.last, nil
		}

		if !errors.Is(err, hrs3300.ErrNotReady) {
			d.stats.BusErrors++
			return d.last, err
		}

		if !waited {
			waited = true
			d.stats.NotReady++
		}
		if d.now()-start >= d.cfg.ReadyTimeoutTicks {
			d.stats.Timeouts++
			return d.last, fmt.Errorf("%w after %d ticks", ErrTimeout, d.cfg.ReadyTimeoutTicks)
		}
	}
}

// LastReading returns the most recent reading without touching the bus.
func (d *Driver) LastReading() pipeline.HeartRateReading {
	return d.last
}

// WarmedUp reports whether the conditioner's baseline has converged.
func (d *Driver) WarmedUp() bool {
	return d.pipe.WarmedUp()
}

// Stats returns a copy of the activity counters.
func (d *Driver) Stats() Stats {
	return d.stats
}

// Enable turns the sensor's measurement and LED on or off without
// touching pipeline state.
func (d *Driver) Enable(on bool) error {
	return d.sensor.Enable(on)
}

// Reset clears all pipeline state, e.g. after sensor detach. The sensor's
// register configuration is untouched; re-run Init after a power cycle.
func (d *Driver) Reset() {
	d.pipe.Reset()
	d.last = pipeline.HeartRateReading{}
}
