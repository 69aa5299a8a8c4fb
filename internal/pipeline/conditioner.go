package pipeline

// lowpassCap is the fixed capacity of the low-pass history ring.
const lowpassCap = 32

// Conditioner removes the slow DC baseline and suppresses sampling noise,
// producing a band-limited AC waveform. The baseline is an exponential
// moving average held in a shifted accumulator; the low-pass stage is a
// moving average over a fixed ring. Both are O(1) per sample and
// allocation-free.
type Conditioner struct {
	cfg Config

	// baseline accumulator; the estimate is acc >> BaselineShift.
	acc int64

	ring    [lowpassCap]int64
	ringIdx int
	ringSum int64

	seen     int
	lastTick uint32
}

// NewConditioner creates a standalone conditioner. Most callers use
// Pipeline instead.
func NewConditioner(cfg Config) *Conditioner {
	c := &Conditioner{}
	c.init(cfg.normalized())
	return c
}

func (c *Conditioner) init(cfg Config) {
	c.cfg = cfg
}

// Process consumes one raw sample and returns the conditioned value.
// A non-increasing tick is treated as a gap: state is cleared and the
// sample starts a fresh warm-up.
func (c *Conditioner) Process(s RawSample) ConditionedSample {
	if c.seen > 0 && s.Tick <= c.lastTick {
		c.Reset()
	}
	c.lastTick = s.Tick

	raw := int64(s.Counts)
	if c.seen == 0 {
		// Prime the baseline so the first samples don't see a huge
		// step from zero.
		c.acc = raw << c.cfg.BaselineShift
	}

	c.acc += raw - c.acc>>c.cfg.BaselineShift
	ac := raw - c.acc>>c.cfg.BaselineShift

	w := c.cfg.LowpassWindow
	c.ringSum += ac - c.ring[c.ringIdx]
	c.ring[c.ringIdx] = ac
	c.ringIdx++
	if c.ringIdx == w {
		c.ringIdx = 0
	}

	out := c.ringSum / int64(w)

	provisional := c.seen < c.cfg.WarmupSamples
	c.seen++

	return ConditionedSample{
		Value:       int32(out),
		Tick:        s.Tick,
		Provisional: provisional,
	}
}

// WarmedUp reports whether the warm-up period has elapsed.
func (c *Conditioner) WarmedUp() bool {
	return c.seen >= c.cfg.WarmupSamples
}

// Reset clears the baseline, history and warm-up state.
func (c *Conditioner) Reset() {
	c.acc = 0
	c.ring = [lowpassCap]int64{}
	c.ringIdx = 0
	c.ringSum = 0
	c.seen = 0
	c.lastTick = 0
}
