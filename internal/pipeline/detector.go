package pipeline

// phase is the detector state.
type phase int

const (
	phaseFalling phase = iota
	phaseRising
	phaseRefractory
)

// detectorNoiseShift is the log2 time constant of the noise-floor average.
const detectorNoiseShift = 4

// minRisingRun is the number of strictly increasing samples required before
// a decrease counts as a peak candidate.
const minRisingRun = 2

// minPeakAmplitude floors the acceptance threshold so that ±1 count
// quantization ripple on an otherwise flat signal can never register as a
// beat.
const minPeakAmplitude = 2

// Detector finds peaks in the conditioned waveform and measures inter-pulse
// intervals. A candidate peak (a rising run followed by a decrease) is
// accepted only if its amplitude exceeds the running noise floor and it
// falls outside the refractory window of the previous beat.
type Detector struct {
	cfg   Config
	state phase

	prev     int32
	havePrev bool
	lastTick uint32

	peakValue int32
	peakTick  uint32
	risingRun int

	// noise-floor accumulator over |value|; the floor is acc >> shift.
	noiseAcc int64

	lastBeatTick    uint32
	haveBeat        bool
	refractoryUntil uint32

	beats int
}

// NewDetector creates a standalone detector. Most callers use Pipeline
// instead.
func NewDetector(cfg Config) *Detector {
	d := &Detector{}
	d.init(cfg.normalized())
	return d
}

func (d *Detector) init(cfg Config) {
	d.cfg = cfg
}

// Process consumes one conditioned sample. It returns a PulseEvent and true
// when a peak is accepted and a usable interval to the previous beat
// exists. Rejected candidates and warm-up samples are absorbed silently;
// a skipped beat is a normal outcome of noisy input, not an error.
func (d *Detector) Process(s ConditionedSample) (PulseEvent, bool) {
	if d.havePrev && s.Tick <= d.lastTick {
		d.Reset()
	}
	d.lastTick = s.Tick

	v := s.Value

	// Track the noise floor on every sample, including provisional ones,
	// so the threshold is settled when detection starts.
	av := int64(v)
	if av < 0 {
		av = -av
	}
	d.noiseAcc += av - d.noiseAcc>>detectorNoiseShift

	if !d.havePrev {
		d.prev = v
		d.havePrev = true
		return PulseEvent{}, false
	}

	if s.Provisional {
		d.prev = v
		return PulseEvent{}, false
	}

	if d.state == phaseRefractory {
		if s.Tick < d.refractoryUntil {
			d.prev = v
			return PulseEvent{}, false
		}
		d.state = phaseFalling
	}

	var ev PulseEvent
	accepted := false

	switch d.state {
	case phaseRising:
		switch {
		case v > d.prev:
			d.peakValue = v
			d.peakTick = s.Tick
			d.risingRun++
		case v < d.prev:
			ev, accepted = d.candidate(s.Tick)
		default:
			// Plateau: the first equal maximum keeps the peak
			// timestamp.
		}
	case phaseFalling:
		if v > d.prev {
			d.state = phaseRising
			d.risingRun = 1
			d.peakValue = v
			d.peakTick = s.Tick
		}
	}

	d.prev = v
	return ev, accepted
}

// candidate applies the amplitude and refractory checks to the tracked
// peak. Called on the first decrease after a rising run.
func (d *Detector) candidate(now uint32) (PulseEvent, bool) {
	d.state = phaseFalling
	run := d.risingRun
	d.risingRun = 0

	if run < minRisingRun {
		return PulseEvent{}, false
	}

	threshold := (d.noiseAcc >> detectorNoiseShift) * int64(d.cfg.NoiseThresholdPct) / 100
	if threshold < minPeakAmplitude {
		threshold = minPeakAmplitude
	}
	if int64(d.peakValue) <= threshold {
		return PulseEvent{}, false
	}

	if d.haveBeat && d.peakTick-d.lastBeatTick < d.cfg.MinRefractoryTicks {
		return PulseEvent{}, false
	}

	d.state = phaseRefractory
	d.refractoryUntil = now + d.cfg.MinRefractoryTicks

	var ev PulseEvent
	ok := false
	if d.haveBeat {
		interval := d.peakTick - d.lastBeatTick
		if interval <= d.cfg.MaxRefractoryTicks {
			ev = PulseEvent{Tick: d.peakTick, Interval: interval}
			ok = true
			d.beats++
		}
		// A longer gap re-anchors without emitting: the interval spans
		// lost contact and would poison the estimate.
	}
	d.lastBeatTick = d.peakTick
	d.haveBeat = true

	return ev, ok
}

// Beats returns the number of accepted pulse events since the last reset.
func (d *Detector) Beats() int {
	return d.beats
}

// Reset clears the state machine and noise floor. The beat counter
// survives so status counters keep accumulating across gaps.
func (d *Detector) Reset() {
	d.state = phaseFalling
	d.prev = 0
	d.havePrev = false
	d.lastTick = 0
	d.peakValue = 0
	d.peakTick = 0
	d.risingRun = 0
	d.noiseAcc = 0
	d.lastBeatTick = 0
	d.haveBeat = false
	d.refractoryUntil = 0
}
