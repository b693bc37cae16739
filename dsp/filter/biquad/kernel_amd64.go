//go:build amd64 && !purego

package biquad

import "github.com/cwbudde/algo-vecmath/cpu"

func init() {
	registerKernel(kernelEntry{
		name:     "unroll4",
		level:    cpu.SIMDAVX2,
		priority: 20,
		fn:       processBlockUnroll4,
	})
}

// processBlockUnroll4 keeps the recursion in registers across four samples.
// TODO: replace with an AVX2 assembly kernel once one beats this on real EQ blocks.
func processBlockUnroll4(c Coefficients, d0, d1 float64, buf []float64) (float64, float64) {
	b0, b1, b2 := c.B0, c.B1, c.B2
	a1, a2 := c.A1, c.A2

	i := 0
	n := len(buf)
	for ; i+3 < n; i += 4 {
		x0 := buf[i]
		y0 := b0*x0 + d0
		t0 := b1*x0 - a1*y0 + d1
		t1 := b2*x0 - a2*y0

		x1 := buf[i+1]
		y1 := b0*x1 + t0
		t0 = b1*x1 - a1*y1 + t1
		t1 = b2*x1 - a2*y1

		x2 := buf[i+2]
		y2 := b0*x2 + t0
		t0 = b1*x2 - a1*y2 + t1
		t1 = b2*x2 - a2*y2

		x3 := buf[i+3]
		y3 := b0*x3 + t0
		d0 = b1*x3 - a1*y3 + t1
		d1 = b2*x3 - a2*y3

		buf[i] = y0
		buf[i+1] = y1
		buf[i+2] = y2
		buf[i+3] = y3
	}

	for ; i < n; i++ {
		x := buf[i]
		y := b0*x + d0
		d0 = b1*x - a1*y + d1
		d1 = b2*x - a2*y
		buf[i] = y
	}

	return d0, d1
}
