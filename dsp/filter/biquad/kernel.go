package biquad

import (
	"sort"
	"sync"

	"github.com/cwbudde/algo-vecmath/cpu"
)

// blockFn filters buf in place with one section and returns the new state.
type blockFn func(c Coefficients, d0, d1 float64, buf []float64) (float64, float64)

type kernelEntry struct {
	name     string
	level    cpu.SIMDLevel
	priority int
	fn       blockFn
}

var (
	kernelMu   sync.Mutex
	kernels    []kernelEntry
	activeOnce sync.Once
	active     kernelEntry
)

// registerKernel adds a block kernel. Called from init functions only.
func registerKernel(e kernelEntry) {
	kernelMu.Lock()
	defer kernelMu.Unlock()

	kernels = append(kernels, e)
	sort.SliceStable(kernels, func(i, j int) bool {
		return kernels[i].priority > kernels[j].priority
	})
}

// selectKernel returns the highest-priority kernel supported by features.
func selectKernel(features cpu.Features) kernelEntry {
	kernelMu.Lock()
	defer kernelMu.Unlock()

	for _, e := range kernels {
		if cpu.Supports(features, e.level) {
			return e
		}
	}

	return kernelEntry{name: "generic", level: cpu.SIMDNone, fn: processBlockGeneric}
}

func blockKernel() blockFn {
	activeOnce.Do(func() {
		active = selectKernel(cpu.DetectFeatures())
	})
	return active.fn
}

// KernelName reports which block kernel the running process selected.
func KernelName() string {
	blockKernel()
	return active.name
}

func init() {
	registerKernel(kernelEntry{
		name:     "generic",
		level:    cpu.SIMDNone,
		priority: 0,
		fn:       processBlockGeneric,
	})
}

// processBlockGeneric is a 2x-unrolled scalar kernel.
func processBlockGeneric(c Coefficients, d0, d1 float64, buf []float64) (float64, float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	i := 0
	n := len(buf)
	for ; i+1 < n; i += 2 {
		x0 := buf[i]
		y0 := b0*x0 + d0
		d0n := b1*x0 - a1*y0 + d1
		d1n := b2*x0 - a2*y0

		x1 := buf[i+1]
		y1 := b0*x1 + d0n
		d0 = b1*x1 - a1*y1 + d1n
		d1 = b2*x1 - a2*y1

		buf[i] = y0
		buf[i+1] = y1
	}

	if i < n {
		x := buf[i]
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	return d0, d1
}
