package rack

import (
	"errors"
	"strconv"
	"sync/atomic"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// addUnit adds a constant to every sample.
type addUnit struct {
	name       string
	value      float64
	prepareErr error

	prepareCalls atomic.Int64
	processCalls atomic.Int64
	resetCalls   atomic.Int64
	releaseCalls atomic.Int64
	lastSpec     core.ProcessSpec
}

func newAddUnit(name string, value float64) *addUnit {
	return &addUnit{name: name, value: value}
}

func (u *addUnit) Name() string { return u.name }

func (u *addUnit) Prepare(spec core.ProcessSpec) error {
	u.prepareCalls.Add(1)
	u.lastSpec = spec
	return u.prepareErr
}

func (u *addUnit) Process(buf *core.Buffer) {
	u.processCalls.Add(1)
	for _, ch := range buf.Channels {
		for i := range ch {
			ch[i] += u.value
		}
	}
}

func (u *addUnit) Reset() { u.resetCalls.Add(1) }

func (u *addUnit) Release() { u.releaseCalls.Add(1) }

func (u *addUnit) State() ([]byte, error) {
	return []byte(strconv.FormatFloat(u.value, 'g', -1, 64)), nil
}

func (u *addUnit) SetState(data []byte) error {
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	u.value = v
	return nil
}

// panicUnit panics on every Process call.
type panicUnit struct {
	processCalls atomic.Int64
}

func (u *panicUnit) Name() string                   { return "Panic" }
func (u *panicUnit) Prepare(core.ProcessSpec) error { return nil }
func (u *panicUnit) Reset()                         {}
func (u *panicUnit) State() ([]byte, error)         { return nil, nil }
func (u *panicUnit) SetState([]byte) error          { return nil }

func (u *panicUnit) Process(*core.Buffer) {
	u.processCalls.Add(1)
	panic("boom")
}

// testRegistry builds add units A=1, B=2, C=4, D=8.
func testRegistry() *Registry {
	r := NewRegistry()
	for name, v := range map[string]float64{"A": 1, "B": 2, "C": 4, "D": 8} {
		r.MustRegister(name, func() (Unit, error) { return newAddUnit(name, v), nil })
	}
	return r
}

var errRejected = errors.New("rejected by test router")

// rejectRouter wraps the default router and refuses the requests its
// predicates match.
type rejectRouter struct {
	*defaultRouter
	rejectNode    func(id NodeID) bool
	rejectConnect func(from, to NodeID, ch int) bool
}

func newRejectRouter() *rejectRouter {
	return &rejectRouter{defaultRouter: NewRouter().(*defaultRouter)}
}

func (r *rejectRouter) AddNode(id NodeID) error {
	if r.rejectNode != nil && r.rejectNode(id) {
		return errRejected
	}
	return r.defaultRouter.AddNode(id)
}

func (r *rejectRouter) Connect(from, to NodeID, ch int) error {
	if r.rejectConnect != nil && r.rejectConnect(from, to, ch) {
		return errRejected
	}
	return r.defaultRouter.Connect(from, to, ch)
}

func testSpec() core.ProcessSpec {
	return core.ProcessSpec{SampleRate: 48000, BlockSize: 64, Channels: 2}
}

// preparedRack returns a prepared two-channel rack using testRegistry.
func preparedRack(opts ...Option) *Rack {
	r := New(append([]Option{WithRegistry(testRegistry())}, opts...)...)
	if err := r.Prepare(testSpec()); err != nil {
		panic(err)
	}
	return r
}

// processDC runs one block of zeros and returns the first output sample.
func processDC(r *Rack) float64 {
	buf := core.NewBuffer(2, 64)
	r.Process(buf)
	return buf.Channels[0][0]
}
