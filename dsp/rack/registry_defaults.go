package rack

// DefaultRegistry returns a Registry holding every built-in unit.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.MustRegister(NameDelay, func() (Unit, error) { return NewDelay(), nil })
	r.MustRegister(NameDistortion, func() (Unit, error) { return NewDistortion(), nil })
	r.MustRegister(NameReverb, func() (Unit, error) { return NewReverb(), nil })
	r.MustRegister(NameChorus, func() (Unit, error) { return NewChorus(), nil })
	r.MustRegister(NameEQ, func() (Unit, error) { return NewEQ(), nil })
	r.MustRegister(NameInputGain, func() (Unit, error) { return NewInputGain(), nil })
	r.MustRegister(NameOutputGain, func() (Unit, error) { return NewOutputGain(), nil })

	return r
}
