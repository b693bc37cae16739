package spectrum

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-vecmath"
	"github.com/mjibson/go-dsp/window"
)

const (
	// FloorDB is the lowest value Spectrum reports.
	FloorDB = -130.0

	magEps = 1e-12
)

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSmoothing sets the exponential smoothing between frames in [0, 0.95].
func WithSmoothing(s float64) Option {
	return func(a *Analyzer) { a.smoothing = core.Clamp(s, 0, 0.95) }
}

// Analyzer computes the magnitude spectrum of the newest size samples fed
// through Push.
type Analyzer struct {
	sampleRate float64
	size       int

	ring  []atomic.Uint64
	write atomic.Uint64

	mu        sync.Mutex
	smoothing float64
	win       []float64
	winGain   float64
	plan      *algofft.Plan[complex128]
	in, out   []complex128
	re, im    []float64
	mag       []float64
	db        []float64
	haveFrame bool
}

// NewAnalyzer creates an analyzer with a Hann window of size samples. size
// must be a power of two in [256, 8192].
func NewAnalyzer(sampleRate float64, size int, opts ...Option) (*Analyzer, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("spectrum: sample rate must be positive and finite: %f", sampleRate)
	}
	if size < 256 || size > 8192 || size&(size-1) != 0 {
		return nil, fmt.Errorf("spectrum: size must be a power of two in [256, 8192]: %d", size)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("spectrum: fft plan: %w", err)
	}

	bins := size/2 + 1
	a := &Analyzer{
		sampleRate: sampleRate,
		size:       size,
		ring:       make([]atomic.Uint64, size),
		smoothing:  0.5,
		win:        window.Hann(size),
		plan:       plan,
		in:         make([]complex128, size),
		out:        make([]complex128, size),
		re:         make([]float64, bins),
		im:         make([]float64, bins),
		mag:        make([]float64, bins),
		db:         make([]float64, bins),
	}
	for _, opt := range opts {
		opt(a)
	}

	var sum float64
	for _, w := range a.win {
		sum += w
	}
	a.winGain = math.Max(sum/float64(size), magEps)

	for i := range a.db {
		a.db[i] = FloorDB
	}

	return a, nil
}

// Size returns the frame length.
func (a *Analyzer) Size() int { return a.size }

// Bins returns the number of bins Spectrum returns.
func (a *Analyzer) Bins() int { return a.size/2 + 1 }

// BinFrequency returns the center frequency of bin i in Hz.
func (a *Analyzer) BinFrequency(i int) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return float64(i) * a.sampleRate / float64(a.size)
}

// SetSampleRate relabels the bins for a stream running at sampleRate.
// Samples already in the ring are kept.
func (a *Analyzer) SetSampleRate(sampleRate float64) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("spectrum: sample rate must be positive and finite: %f", sampleRate)
	}
	a.mu.Lock()
	a.sampleRate = sampleRate
	a.mu.Unlock()
	return nil
}

// Push appends the mono sum of buf's channels to the ring. It does not
// block or allocate.
func (a *Analyzer) Push(buf *core.Buffer) {
	n := buf.Frames()
	chans := buf.NumChannels()
	if n == 0 || chans == 0 {
		return
	}
	scale := 1 / float64(chans)

	w := a.write.Load()
	for i := 0; i < n; i++ {
		var s float64
		for _, ch := range buf.Channels {
			s += ch[i]
		}
		a.ring[(w+uint64(i))%uint64(a.size)].Store(math.Float64bits(s * scale))
	}
	a.write.Store(w + uint64(n))
}

// Spectrum analyzes the newest frame and appends one dBFS value per bin to
// dst[:0]. Before a full frame has been pushed every bin reads FloorDB.
func (a *Analyzer) Spectrum(dst []float64) []float64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	w := a.write.Load()
	if w >= uint64(a.size) {
		a.analyze(w)
	}

	return append(dst[:0], a.db...)
}

// Reset forgets every pushed sample and the smoothed spectrum.
func (a *Analyzer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := range a.ring {
		a.ring[i].Store(0)
	}
	a.write.Store(0)
	for i := range a.db {
		a.db[i] = FloorDB
	}
	a.haveFrame = false
}

func (a *Analyzer) analyze(w uint64) {
	start := w - uint64(a.size)
	for i := range a.in {
		s := math.Float64frombits(a.ring[(start+uint64(i))%uint64(a.size)].Load())
		a.in[i] = complex(s*a.win[i], 0)
	}

	if err := a.plan.Forward(a.out, a.in); err != nil {
		return
	}

	for k := range a.re {
		a.re[k] = real(a.out[k])
		a.im[k] = imag(a.out[k])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := float64(a.size) * a.winGain
	last := len(a.mag) - 1
	for k, m := range a.mag {
		m /= norm
		if k > 0 && k < last {
			m *= 2
		}
		v := math.Max(core.LinearToDB(math.Max(m, magEps)), FloorDB)
		if a.haveFrame {
			v = a.smoothing*a.db[k] + (1-a.smoothing)*v
		}
		a.db[k] = v
	}
	a.haveFrame = true
}
