package pipeline

// intervalCap is the fixed capacity of the interval history ring.
const intervalCap = 8

// Interval weights. Outliers stay in the history but contribute a quarter
// of a normal interval's weight, so a missed or extra beat cannot drag the
// smoothed estimate far.
const (
	weightNormal  = 4
	weightOutlier = 1
)

// confidenceStep is added per agreeing interval and removed per overdue
// expected-beat window.
const confidenceStep = 25

// weightedInterval is one retained inter-pulse interval.
type weightedInterval struct {
	ticks  uint32
	weight uint32
}

// Estimator converts inter-pulse intervals into a smoothed, outlier-
// rejecting BPM reading with a validity flag. It owns a short weighted
// history of recent intervals; the smoothed BPM is a weighted moving
// average over that history.
type Estimator struct {
	cfg Config

	history [intervalCap]weightedInterval
	count   int
	idx     int

	// smoothed is the weighted-average interval in ticks.
	smoothed uint32

	lastInterval uint32
	agreeRun     int

	bpm        int
	valid      bool
	confidence int

	haveEvent     bool
	decayDeadline uint32
}

// NewEstimator creates a standalone estimator. Most callers use Pipeline
// instead.
func NewEstimator(cfg Config) *Estimator {
	e := &Estimator{}
	e.init(cfg.normalized())
	return e
}

func (e *Estimator) init(cfg Config) {
	e.cfg = cfg
}

// Update consumes one pulse event and returns the refreshed reading.
func (e *Estimator) Update(ev PulseEvent) HeartRateReading {
	if ev.Interval == 0 {
		return e.Reading()
	}

	outlier := false
	if e.smoothed > 0 {
		outlier = deviationExceeds(ev.Interval, e.smoothed, e.cfg.OutlierPct)
	}

	// A missed or extra beat stays in the history, but down-weighted.
	w := uint32(weightNormal)
	if outlier {
		w = weightOutlier
	}
	e.push(weightedInterval{ticks: ev.Interval, weight: w})
	e.recompute()

	if outlier {
		e.agreeRun = 0
		e.confidence -= confidenceStep / 2
		if e.confidence < 0 {
			e.confidence = 0
		}
	} else {
		if e.lastInterval > 0 &&
			!deviationExceeds(ev.Interval, e.lastInterval, e.cfg.OutlierPct) {
			e.agreeRun++
			e.confidence += confidenceStep
			if e.confidence > 100 {
				e.confidence = 100
			}
		} else if e.lastInterval > 0 {
			e.agreeRun = 0
		}
	}

	if e.agreeRun >= 1 {
		e.valid = true
	}
	if e.confidence == 0 {
		e.valid = false
	}

	e.lastInterval = ev.Interval
	e.haveEvent = true
	e.decayDeadline = ev.Tick + e.smoothed + e.smoothed/2

	return e.Reading()
}

// Expire ages the reading when no event has arrived by now. Confidence
// drops one step per missed 1.5x-period window, signalling lost contact
// rather than a sudden claim of zero heart rate.
func (e *Estimator) Expire(now uint32) HeartRateReading {
	if !e.haveEvent || e.smoothed == 0 {
		return e.Reading()
	}

	for now >= e.decayDeadline && e.confidence > 0 {
		e.confidence -= confidenceStep
		if e.confidence < 0 {
			e.confidence = 0
		}
		e.decayDeadline += e.smoothed + e.smoothed/2
	}
	if e.confidence == 0 {
		e.valid = false
	}

	return e.Reading()
}

// Reading returns the current reading. The value is immutable; callers may
// retain it.
func (e *Estimator) Reading() HeartRateReading {
	return HeartRateReading{
		BPM:        e.bpm,
		Valid:      e.valid,
		Confidence: e.confidence,
	}
}

// Reset clears the interval history and validity state.
func (e *Estimator) Reset() {
	e.history = [intervalCap]weightedInterval{}
	e.count = 0
	e.idx = 0
	e.smoothed = 0
	e.lastInterval = 0
	e.agreeRun = 0
	e.bpm = 0
	e.valid = false
	e.confidence = 0
	e.haveEvent = false
	e.decayDeadline = 0
}

func (e *Estimator) push(wi weightedInterval) {
	e.history[e.idx] = wi
	e.idx++
	if e.idx == e.cfg.SmoothingWindow {
		e.idx = 0
	}
	if e.count < e.cfg.SmoothingWindow {
		e.count++
	}
}

// recompute derives the smoothed interval and BPM from the history.
func (e *Estimator) recompute() {
	var sum, wsum uint64
	for i := 0; i < e.count; i++ {
		sum += uint64(e.history[i].ticks) * uint64(e.history[i].weight)
		wsum += uint64(e.history[i].weight)
	}
	if wsum == 0 {
		return
	}
	e.smoothed = uint32((sum + wsum/2) / wsum)
	if e.smoothed == 0 {
		e.smoothed = 1
	}
	e.bpm = int((uint64(60)*uint64(e.cfg.TickRate) + uint64(e.smoothed)/2) / uint64(e.smoothed))
}

// deviationExceeds reports whether |a-b| exceeds pct percent of b.
func deviationExceeds(a, b uint32, pct uint32) bool {
	var diff uint32
	if a > b {
		diff = a - b
	} else {
		diff = b - a
	}
	return uint64(diff)*100 > uint64(pct)*uint64(b)
}
