package biquad

// Chain is an ordered cascade of biquad sections processed in series.
type Chain struct {
	sections []Section
}

// NewChain creates a cascade from one or more coefficient sets.
func NewChain(coeffs []Coefficients) *Chain {
	c := &Chain{sections: make([]Section, len(coeffs))}
	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}

	return c
}

// ProcessSample cascades input through all sections in order.
func (c *Chain) ProcessSample(x float64) float64 {
	for i := range c.sections {
		x = c.sections[i].ProcessSample(x)
	}

	return x
}

// ProcessBlock filters a block in place through the full cascade.
func (c *Chain) ProcessBlock(buf []float64) {
	for i := range c.sections {
		c.sections[i].ProcessBlock(buf)
	}
}

// Reset clears all section states.
func (c *Chain) Reset() {
	for i := range c.sections {
		c.sections[i].Reset()
	}
}

// NumSections returns the number of biquad sections.
func (c *Chain) NumSections() int {
	return len(c.sections)
}

// Section returns a pointer to the i-th section.
func (c *Chain) Section(i int) *Section {
	return &c.sections[i]
}

// UpdateCoefficients replaces the filter coefficients. The delay-line state
// is kept when the section count is unchanged; otherwise the sections are
// replaced and start from zero state.
func (c *Chain) UpdateCoefficients(coeffs []Coefficients) {
	if len(coeffs) != len(c.sections) {
		c.sections = make([]Section, len(coeffs))
	}

	for i := range coeffs {
		c.sections[i].Coefficients = coeffs[i]
	}
}
