package level

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/meko-christian/algo-approx"
)

const ln10 = 2.302585092994045684017991454684

// MeterConfig configures a Meter.
type MeterConfig struct {
	// FloorDB maps to a normalized level of 0; 0 dBFS maps to 1.
	FloorDB float64
	// Decay is the per-block factor a falling level may drop by. Zero
	// follows the signal without ballistics.
	Decay float64
}

// MeterOption mutates a MeterConfig.
type MeterOption func(*MeterConfig)

// DefaultMeterConfig returns a -60 dB floor without decay.
func DefaultMeterConfig() MeterConfig {
	return MeterConfig{FloorDB: -60}
}

// WithFloorDB sets the level shown as empty. Values >= 0 are ignored.
func WithFloorDB(db float64) MeterOption {
	return func(cfg *MeterConfig) {
		if db < 0 {
			cfg.FloorDB = db
		}
	}
}

// WithDecay sets the per-block release factor in [0, 1).
func WithDecay(decay float64) MeterOption {
	return func(cfg *MeterConfig) {
		if decay >= 0 && decay < 1 {
			cfg.Decay = decay
		}
	}
}

// Meter holds one normalized RMS level per channel.
type Meter struct {
	cfg    MeterConfig
	levels []atomic.Uint64
}

// NewMeter creates a meter for channels channels.
func NewMeter(channels int, opts ...MeterOption) *Meter {
	cfg := DefaultMeterConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if channels < 1 {
		channels = 1
	}
	return &Meter{cfg: cfg, levels: make([]atomic.Uint64, channels)}
}

// Channels returns the metered channel count.
func (m *Meter) Channels() int { return len(m.levels) }

// Process measures one block. Extra buffer channels are ignored; missing
// ones read as silence.
func (m *Meter) Process(buf *core.Buffer) {
	for ch := range m.levels {
		l := Normalize(RMS(buf.Channel(ch)), m.cfg.FloorDB)
		if m.cfg.Decay > 0 {
			prev := math.Float64frombits(m.levels[ch].Load())
			l = max(l, prev*m.cfg.Decay)
		}
		m.levels[ch].Store(math.Float64bits(l))
	}
}

// Level returns the normalized level of channel ch, or 0 if out of range.
func (m *Meter) Level(ch int) float64 {
	if ch < 0 || ch >= len(m.levels) {
		return 0
	}
	return math.Float64frombits(m.levels[ch].Load())
}

// Levels appends every channel's level to dst[:0] and returns it.
func (m *Meter) Levels(dst []float64) []float64 {
	dst = dst[:0]
	for ch := range m.levels {
		dst = append(dst, m.Level(ch))
	}
	return dst
}

// Reset drops every level to 0.
func (m *Meter) Reset() {
	for ch := range m.levels {
		m.levels[ch].Store(0)
	}
}

// RMS returns the root mean square of x.
func RMS(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return approx.FastSqrt(sum / float64(len(x)))
}

// Normalize maps an RMS amplitude to [0, 1] on a dB scale from floorDB to
// 0 dBFS.
func Normalize(rms, floorDB float64) float64 {
	if rms <= 0 || floorDB >= 0 {
		return 0
	}
	db := 20 * approx.FastLog(rms) / ln10
	return core.Clamp((db-floorDB)/-floorDB, 0, 1)
}
