// Package pipeline turns raw PPG counts into a validated heart-rate
// estimate. This package has NO hardware dependencies (no bus, MQTT, OS, or
// wall clock) and does all arithmetic in integers so the chain can be lifted
// onto a no-FPU target unchanged. Time is always injectable via tick counts.
package pipeline

// RawSample is one calibrated ADC reading with its acquisition tick.
type RawSample struct {
	// Counts is the reflected-light (pulse) channel count.
	Counts uint32
	// ALS is the ambient-light channel count. Carried for diagnostics;
	// not fused into the estimate.
	ALS uint32
	// Tick is the monotonic acquisition timestamp.
	Tick uint32
}

// ConditionedSample is the AC-coupled, noise-suppressed signal value.
type ConditionedSample struct {
	Value int32
	Tick  uint32
	// Provisional marks samples produced before the baseline estimate has
	// converged. The detector ignores them for interval measurement.
	Provisional bool
}

// PulseEvent is a detected waveform peak.
type PulseEvent struct {
	// Tick is the timestamp of the peak sample.
	Tick uint32
	// Interval is the distance in ticks to the previous accepted peak.
	// Always > 0; a peak with no usable predecessor emits no event.
	Interval uint32
}

// HeartRateReading is the externally visible output of the pipeline.
type HeartRateReading struct {
	// BPM is the smoothed heart rate in beats per minute. Zero until the
	// first interval has been measured.
	BPM int
	// Valid is set once at least two consecutive intervals agree within
	// tolerance, and cleared when confidence decays to zero.
	Valid bool
	// Confidence is a 0-100 quality indicator.
	Confidence int
}

// Config holds the tuning constants of the chain. The sensor's raw-count
// scaling is undocumented, so everything here is configuration rather than
// values derived from a datasheet.
type Config struct {
	// TickRate is the number of ticks per second.
	TickRate uint32

	// SampleIntervalTicks is the nominal spacing of raw samples.
	SampleIntervalTicks uint32

	// BaselineShift is the log2 of the baseline time constant in samples.
	// Must be long relative to a beat period but short enough to track
	// finger-repositioning drift.
	BaselineShift uint

	// LowpassWindow is the moving-average width of the high-frequency
	// suppression stage, in samples. Clamped to [1, 32].
	LowpassWindow int

	// WarmupSamples is the number of initial samples marked provisional
	// while the baseline converges.
	WarmupSamples int

	// NoiseThresholdPct scales the running noise floor into the peak
	// acceptance threshold, in percent.
	NoiseThresholdPct uint32

	// MinRefractoryTicks is the minimum spacing of accepted peaks. Peaks
	// closer than this are physiologically implausible (>240 BPM at the
	// default) and dropped as noise.
	MinRefractoryTicks uint32

	// MaxRefractoryTicks bounds a usable inter-peak interval. A longer
	// gap re-anchors the detector without emitting an event.
	MaxRefractoryTicks uint32

	// OutlierPct is the deviation from the smoothed interval beyond which
	// a new interval is down-weighted, in percent.
	OutlierPct uint32

	// SmoothingWindow is the number of retained intervals. Clamped to
	// [1, 8].
	SmoothingWindow int
}

// DefaultConfig matches the PineTime cadence: millisecond ticks, a 50 ms
// sample interval, and refractory bounds covering 30-240 BPM.
func DefaultConfig() Config {
	return Config{
		TickRate:            1000,
		SampleIntervalTicks: 50,
		BaselineShift:       5,
		LowpassWindow:       4,
		WarmupSamples:       48,
		NoiseThresholdPct:   125,
		MinRefractoryTicks:  250,
		MaxRefractoryTicks:  2000,
		OutlierPct:          30,
		SmoothingWindow:     6,
	}
}

// normalized clamps window sizes to their fixed capacities and fills
// unusable zero values.
func (c Config) normalized() Config {
	if c.TickRate == 0 {
		c.TickRate = 1
	}
	if c.LowpassWindow < 1 {
		c.LowpassWindow = 1
	}
	if c.LowpassWindow > lowpassCap {
		c.LowpassWindow = lowpassCap
	}
	if c.SmoothingWindow < 1 {
		c.SmoothingWindow = 1
	}
	if c.SmoothingWindow > intervalCap {
		c.SmoothingWindow = intervalCap
	}
	if c.NoiseThresholdPct == 0 {
		c.NoiseThresholdPct = 100
	}
	if c.OutlierPct == 0 {
		c.OutlierPct = 30
	}
	return c
}

// Pipeline chains the conditioner, detector and estimator. One Pipeline
// exists per sensor instance; its state persists across calls until Reset.
type Pipeline struct {
	cond Conditioner
	det  Detector
	est  Estimator
}

// NewPipeline creates a pipeline with its own stage state.
func NewPipeline(cfg Config) *Pipeline {
	cfg = cfg.normalized()
	p := &Pipeline{}
	p.cond.init(cfg)
	p.det.init(cfg)
	p.est.init(cfg)
	return p
}

// Process runs one raw sample through the whole chain and returns the
// current reading. Samples that yield no pulse event still age the
// estimator's confidence.
func (p *Pipeline) Process(s RawSample) HeartRateReading {
	cs := p.cond.Process(s)
	if ev, ok := p.det.Process(cs); ok {
		return p.est.Update(ev)
	}
	return p.est.Expire(s.Tick)
}

// Reading returns the current reading without consuming a sample.
func (p *Pipeline) Reading() HeartRateReading {
	return p.est.Reading()
}

// WarmedUp reports whether the baseline estimate has converged.
func (p *Pipeline) WarmedUp() bool {
	return p.cond.WarmedUp()
}

// Beats returns the number of pulse events accepted since the last reset.
func (p *Pipeline) Beats() int {
	return p.det.Beats()
}

// Reset clears all stage state, e.g. on sensor detach.
func (p *Pipeline) Reset() {
	p.cond.Reset()
	p.det.Reset()
	p.est.Reset()
}
