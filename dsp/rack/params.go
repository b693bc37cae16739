package rack

import (
	"encoding/json"
	"fmt"
	"math"
)

const paramStateVersion = 1

// paramDef declares one parameter of a built-in unit.
type paramDef struct {
	info ParamInfo
	// discrete parameters are rounded to the nearest integer.
	discrete bool
}

// paramSet stores canonical parameter values for a unit and forwards
// accepted changes to the unit's kernels through apply. Units embed it to
// get Params, Param, SetParam, State and SetState.
type paramSet struct {
	defs   []paramDef
	values []float64
	apply  func(id string, value float64) error
}

func newParamSet(apply func(id string, value float64) error, defs ...paramDef) *paramSet {
	p := &paramSet{
		defs:   defs,
		values: make([]float64, len(defs)),
		apply:  apply,
	}
	for i, d := range defs {
		p.values[i] = d.info.Default
	}
	return p
}

type paramState struct {
	Version int                `json:"version"`
	Params  map[string]float64 `json:"params"`
}

// Params lists the unit's parameters.
func (p *paramSet) Params() []ParamInfo {
	out := make([]ParamInfo, len(p.defs))
	for i, d := range p.defs {
		out[i] = d.info
	}
	return out
}

// Param returns the current value of id.
func (p *paramSet) Param(id string) (float64, bool) {
	i := p.index(id)
	if i < 0 {
		return 0, false
	}
	return p.values[i], true
}

// SetParam validates and applies one value.
func (p *paramSet) SetParam(id string, value float64) error {
	i := p.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownParam, id)
	}

	v, err := p.canonical(i, value)
	if err != nil {
		return err
	}
	if err := p.apply(id, v); err != nil {
		return err
	}
	p.values[i] = v

	return nil
}

// State encodes every parameter value.
func (p *paramSet) State() ([]byte, error) {
	st := paramState{Version: paramStateVersion, Params: make(map[string]float64, len(p.defs))}
	for i, d := range p.defs {
		st.Params[d.info.ID] = p.values[i]
	}
	return json.Marshal(st)
}

// SetState restores values written by State. Either every value in data is
// applied or none is; parameters missing from data keep their value.
func (p *paramSet) SetState(data []byte) error {
	var st paramState
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("%w: %v", ErrStateDeserialize, err)
	}
	if st.Version != paramStateVersion {
		return fmt.Errorf("%w: unsupported parameter state version %d", ErrStateDeserialize, st.Version)
	}

	next := make([]float64, len(p.values))
	copy(next, p.values)
	for id, value := range st.Params {
		i := p.index(id)
		if i < 0 {
			return fmt.Errorf("%w: %w: %s", ErrStateDeserialize, ErrUnknownParam, id)
		}
		v, err := p.canonical(i, value)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrStateDeserialize, err)
		}
		next[i] = v
	}

	prev := p.values
	p.values = next
	if err := p.applyAll(); err != nil {
		p.values = prev
		_ = p.applyAll()
		return fmt.Errorf("%w: %v", ErrStateDeserialize, err)
	}

	return nil
}

// applyAll pushes every stored value through apply, as after Prepare.
func (p *paramSet) applyAll() error {
	for i, d := range p.defs {
		if err := p.apply(d.info.ID, p.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *paramSet) canonical(i int, value float64) (float64, error) {
	d := p.defs[i]
	if math.IsNaN(value) || value < d.info.Min || value > d.info.Max {
		return 0, fmt.Errorf("rack: %s must be in [%g, %g]: %f", d.info.ID, d.info.Min, d.info.Max, value)
	}
	if d.discrete {
		value = math.Round(value)
	}
	return value, nil
}

func (p *paramSet) index(id string) int {
	for i, d := range p.defs {
		if d.info.ID == id {
			return i
		}
	}
	return -1
}

func param(id, name, unit string, lo, hi, def float64) paramDef {
	return paramDef{info: ParamInfo{ID: id, Name: name, Unit: unit, Min: lo, Max: hi, Default: def}}
}

func discreteParam(id, name string, lo, hi, def float64) paramDef {
	d := param(id, name, "", lo, hi, def)
	d.discrete = true
	return d
}
