package rack

import "github.com/cwbudde/algo-rack/dsp/core"

// Unit is one effect in the rack. The rack calls Prepare and Reset from the
// control side and Process from the audio side, never concurrently with
// each other.
type Unit interface {
	// Name is the stable display name, also used as the registry key.
	Name() string
	Prepare(spec core.ProcessSpec) error
	// Process transforms buf in place. It must not allocate or block.
	Process(buf *core.Buffer)
	Reset()
	// State returns an opaque snapshot that SetState can restore.
	State() ([]byte, error)
	SetState(data []byte) error
}

// Releaser is implemented by units holding resources that should be freed
// when the unit is removed or the host stops.
type Releaser interface {
	Release()
}

// ParamInfo describes one automatable parameter.
type ParamInfo struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Unit    string  `json:"unit,omitempty"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Default float64 `json:"default"`
}

// Parameterized is implemented by units with named parameters.
type Parameterized interface {
	Params() []ParamInfo
	Param(id string) (float64, bool)
	SetParam(id string, value float64) error
}

// UnitState is the lifecycle stage of a slot.
type UnitState int

const (
	StateUninitialized UnitState = iota
	StatePrepared
	StateActive
	StateInactive
	StateMarkedForRemoval
	StateDestroyed
)

func (s UnitState) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StatePrepared:
		return "prepared"
	case StateActive:
		return "active"
	case StateInactive:
		return "inactive"
	case StateMarkedForRemoval:
		return "marked for removal"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// SlotInfo is a snapshot of one slot.
type SlotInfo struct {
	Name     string
	Active   bool
	Position int
	Node     NodeID
	State    UnitState
}

func release(u Unit) {
	if r, ok := u.(Releaser); ok {
		r.Release()
	}
}
